// Package manifest defines the plugin catalog and registry payload formats
// and validates them against embedded JSON schemas. A catalog lists plugin
// definitions keyed by variant; a registry item carries the files and
// dependencies of one plugin for one variant.
package manifest
