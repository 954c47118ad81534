package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kitforge/kit/internal/outcome"
	"github.com/kitforge/kit/internal/toolserver"
	"github.com/kitforge/kit/internal/workspace"
)

type ErrorKind string

const (
	KindInternal    ErrorKind = "internal"
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindConflict    ErrorKind = "conflict"
	KindUnavailable ErrorKind = "unavailable"
)

const (
	ExitInternal    = 1
	ExitInvalid     = 2
	ExitNotFound    = 3
	ExitConflict    = 4
	ExitUnavailable = 5
)

type ExitError struct {
	Code    int
	Kind    ErrorKind
	Message string
	Err     error
}

func (e ExitError) Error() string {
	return errorMessage(e)
}

func (e ExitError) Unwrap() error {
	return e.Err
}

// NormalizeError maps an error to an exit code. Expected failures carry
// their kind; infrastructure errors are classified by sentinel.
func NormalizeError(err error) ExitError {
	if err == nil {
		return ExitError{Code: 0}
	}
	var exitErr ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Code == 0 {
			exitErr.Code = ExitInternal
		}
		return exitErr
	}

	if f, ok := outcome.AsFailure(err); ok {
		return failureExit(f)
	}

	switch {
	case errors.Is(err, workspace.ErrNoPackageJSON),
		errors.Is(err, workspace.ErrNotMonorepo),
		errors.Is(err, workspace.ErrUnknownVariant),
		errors.Is(err, toolserver.ErrInvalidArguments),
		errors.Is(err, errUsage):
		return ExitError{Code: ExitInvalid, Kind: KindValidation, Err: err}
	case errors.Is(err, toolserver.ErrUnknownTool):
		return ExitError{Code: ExitNotFound, Kind: KindNotFound, Err: err}
	default:
		return ExitError{Code: ExitInternal, Kind: KindInternal, Err: err}
	}
}

func failureExit(f *outcome.Failure) ExitError {
	e := ExitError{Kind: ErrorKind(f.Kind), Err: f}
	switch f.Kind {
	case outcome.NotInstalled, outcome.PluginNotFound:
		e.Code = ExitNotFound
	case outcome.DirtyWorkingTree,
		outcome.AlreadyInstalled,
		outcome.UpstreamRemoteMismatch,
		outcome.MergeConflict,
		outcome.PartialConflictResolution:
		e.Code = ExitConflict
	case outcome.RegistryFetchError,
		outcome.TransformationFailed,
		outcome.TransformationTimedOut,
		outcome.DependencyInstallFailed:
		e.Code = ExitUnavailable
	default:
		e.Code = ExitInvalid
	}
	return e
}

func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return NormalizeError(err).Code
}

func writeCLIError(w io.Writer, exitErr ExitError, asJSON bool) error {
	if exitErr.Code == 0 {
		return nil
	}
	message := errorMessage(exitErr)
	if asJSON {
		payload := struct {
			Code    int    `json:"code"`
			Kind    string `json:"kind"`
			Message string `json:"message"`
		}{
			Code:    exitErr.Code,
			Kind:    string(exitErr.Kind),
			Message: message,
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	}

	prefix := "Error"
	if exitErr.Kind != "" {
		prefix = fmt.Sprintf("Error (%s)", exitErr.Kind)
	}
	_, err := fmt.Fprintf(w, "%s: %s\n", prefix, message)
	return err
}

func errorMessage(exitErr ExitError) string {
	if exitErr.Message != "" {
		return exitErr.Message
	}
	if exitErr.Err != nil {
		return exitErr.Err.Error()
	}
	return "unknown error"
}
