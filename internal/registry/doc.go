// Package registry talks to the remote component registry. It fetches the
// file payload of one plugin for one variant and materializes those files
// into a project.
package registry
