package runtime

import (
	"context"
	"fmt"
	"strings"
)

// DefaultPackageManager is used when none is configured.
const DefaultPackageManager = "pnpm"

// PackageManager drives the workspace package manager.
type PackageManager struct {
	Runner Runner
	Name   string // binary, e.g. "pnpm"
}

func (p PackageManager) binary() string {
	if p.Name == "" {
		return DefaultPackageManager
	}
	return p.Name
}

// Add installs the given name@range specs into the project at dir. An empty
// spec list is a no-op.
func (p PackageManager) Add(ctx context.Context, dir string, specs []string) error {
	if len(specs) == 0 {
		return nil
	}
	return p.run(ctx, dir, append([]string{"add"}, specs...))
}

// Install installs the project's declared dependencies.
func (p PackageManager) Install(ctx context.Context, dir string) error {
	return p.run(ctx, dir, []string{"install"})
}

func (p PackageManager) run(ctx context.Context, dir string, args []string) error {
	cmd := Command{Name: p.binary(), Args: args, Dir: dir}
	out, err := p.Runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if !out.OK() {
		return fmt.Errorf("%s failed (exit %d): %s", cmd, out.ExitCode, strings.TrimSpace(out.Stderr))
	}
	return nil
}
