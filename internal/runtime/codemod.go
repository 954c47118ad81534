package runtime

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/kitforge/kit/internal/branding"
	"github.com/kitforge/kit/internal/outcome"
)

// CodemodTimeout bounds a codemod run.
const CodemodTimeout = 5 * time.Minute

// DefaultPackageRunner is used when no runner is configured.
const DefaultPackageRunner = "npx --yes"

// Codemod identifies the transformation to run after a plugin's files land.
type Codemod struct {
	PackageRunner string // e.g. "npx --yes"
	CodemodsPath  string // local checkout of the codemods repository, optional
	Variant       string
	PluginID      string
	Dir           string
	Timeout       time.Duration
}

// Command builds the codemod invocation. A local codemods checkout runs the
// workflow directly; otherwise the published package is used.
func (c Codemod) Command() Command {
	runner := strings.Fields(c.PackageRunner)
	if len(runner) == 0 {
		runner = strings.Fields(DefaultPackageRunner)
	}

	args := append([]string{}, runner[1:]...)
	if c.CodemodsPath != "" {
		workflow := path.Join(strings.TrimRight(c.CodemodsPath, "/"), "codemods", c.Variant, c.PluginID)
		args = append(args, "codemod", "workflow", "run", "--allow-dirty", "-w", workflow)
	} else {
		pkg := fmt.Sprintf("@%s/%s-%s", branding.CacheNamespace(), c.Variant, c.PluginID)
		args = append(args, "codemod", "--allow-dirty", pkg)
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = CodemodTimeout
	}
	return Command{Name: runner[0], Args: args, Dir: c.Dir, Timeout: timeout}
}

// RunCodemod runs the transformation. It never returns an error: the files it
// operates on are already written, so any problem comes back as a soft
// failure for the caller to surface as a warning. A nil result means success.
func RunCodemod(ctx context.Context, r Runner, c Codemod) *outcome.Failure {
	cmd := c.Command()
	out, err := r.Run(ctx, cmd)
	if err != nil {
		return outcome.Fail(outcome.TransformationFailed, "codemod could not run: %v", err)
	}
	if out.TimedOut {
		return outcome.Fail(outcome.TransformationTimedOut,
			"codemod timed out after %s (the workflow engine may have stalled after an error)", cmd.Timeout)
	}
	if out.ExitCode != 0 {
		msg := strings.TrimSpace(out.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(out.Stdout)
		}
		return outcome.Fail(outcome.TransformationFailed, "codemod exited with status %d: %s", out.ExitCode, msg)
	}
	return nil
}
