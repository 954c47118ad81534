// Package outcome defines the taxonomy of expected failures returned by the
// plugin and upstream services. Expected failures travel inside result values
// as *Failure; only infrastructure problems are returned as plain errors.
package outcome

import (
	"errors"
	"fmt"
)

// Kind classifies an expected failure.
type Kind string

const (
	DirtyWorkingTree          Kind = "dirty_working_tree"
	MissingIdentity           Kind = "missing_identity"
	PluginNotFound            Kind = "plugin_not_found"
	UnsupportedVariant        Kind = "unsupported_variant_for_plugin"
	AlreadyInstalled          Kind = "already_installed"
	NotInstalled              Kind = "not_installed"
	RegistryFetchError        Kind = "registry_fetch_error"
	InvalidPayload            Kind = "invalid_payload"
	TransformationFailed      Kind = "transformation_failed"
	TransformationTimedOut    Kind = "transformation_timed_out"
	MissingContent            Kind = "missing_content"
	UpstreamRemoteMismatch    Kind = "upstream_remote_mismatch"
	MergeConflict             Kind = "merge_conflict"
	PartialConflictResolution Kind = "partial_conflict_resolution"
	DependencyInstallFailed   Kind = "dependency_install_failed"
)

// Failure is an expected, typed failure with a human-readable reason.
type Failure struct {
	Kind   Kind   `json:"kind"`
	Reason string `json:"reason"`
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return f.Reason
}

// Is matches another *Failure with the same Kind, so callers can write
// errors.Is(err, &outcome.Failure{Kind: outcome.PluginNotFound}).
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind
}

// Fail builds a Failure with a formatted reason.
func Fail(kind Kind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// AsFailure extracts a *Failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or "" if err carries no Failure.
func KindOf(err error) Kind {
	if f, ok := AsFailure(err); ok {
		return f.Kind
	}
	return ""
}
