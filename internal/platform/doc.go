// Package platform provides the process-level plumbing shared by the other
// packages: the zap logger used by the CLI and the services, and filesystem
// helpers for reading optional files and writing files under a project root
// without escaping it.
package platform
