package scaffold

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitforge/kit/internal/gitx"
	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/runtime"
	"github.com/kitforge/kit/internal/upstream"
	"github.com/kitforge/kit/internal/workspace"
)

// CreateOptions describes the project to create. Directory is the parent the
// project directory Name is created in. Token, when set, is a GitHub token
// used for the clone only.
type CreateOptions struct {
	Variant   manifest.Variant
	Name      string
	Directory string
	Token     string
}

// CreateResult is the outcome of Create.
type CreateResult struct {
	Success     bool             `json:"success"`
	ProjectPath string           `json:"projectPath"`
	Variant     manifest.Variant `json:"variant"`
	KitRepo     string           `json:"kitRepo"`
	Message     string           `json:"message"`
}

// Creator clones template repositories into new projects.
type Creator struct {
	Runner         runtime.Runner
	PackageManager string
	CLIVersion     string
	Logger         *zap.Logger
	Now            func() time.Time
}

func (c *Creator) runner() runtime.Runner {
	if c.Runner == nil {
		return &runtime.Exec{}
	}
	return c.Runner
}

func (c *Creator) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Creator) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid project name %q", name)
	}
	return nil
}

// Create clones the variant's template into Directory/Name, installs its
// dependencies and writes the project marker. A token-authenticated clone
// has its origin rewritten so the token is not left in .git/config.
func (c *Creator) Create(ctx context.Context, opts CreateOptions) (*CreateResult, error) {
	repo, ok := upstream.Repo(opts.Variant)
	if !ok {
		return nil, fmt.Errorf("unknown variant %q", opts.Variant)
	}
	if err := validateName(opts.Name); err != nil {
		return nil, err
	}

	parent, err := filepath.Abs(opts.Directory)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", opts.Directory, err)
	}
	projectPath := filepath.Join(parent, opts.Name)

	if _, err := os.Stat(projectPath); err == nil {
		return nil, fmt.Errorf("target directory %q already exists; choose a different name or remove it first", projectPath)
	}
	if info, err := os.Stat(parent); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("parent directory %q does not exist", parent)
	}

	r := c.runner()
	log := c.logger().With(zap.String("variant", string(opts.Variant)), zap.String("repo", repo))

	var cloneURL string
	switch {
	case opts.Token != "":
		cloneURL = "https://" + opts.Token + "@" + strings.TrimPrefix(upstream.HTTPSURL(repo), "https://")
	case upstream.HasSSHAccess(ctx, r):
		cloneURL = upstream.SSHURL(repo)
	default:
		cloneURL = upstream.HTTPSURL(repo)
	}

	log.Info("cloning template")
	if err := gitx.Clone(ctx, r, cloneURL, projectPath); err != nil {
		return nil, redact(fmt.Errorf("cloning %s: %w", repo, err), opts.Token)
	}

	if opts.Token != "" {
		if err := gitx.Open(projectPath, r).SetRemote(ctx, "origin", upstream.HTTPSURL(repo)); err != nil {
			return nil, fmt.Errorf("removing token from origin: %w", err)
		}
	}

	log.Info("installing dependencies")
	pm := runtime.PackageManager{Runner: r, Name: c.PackageManager}
	if err := pm.Install(ctx, projectPath); err != nil {
		return nil, fmt.Errorf("installing dependencies: %w", err)
	}

	if err := workspace.WriteMarker(projectPath, string(opts.Variant), repo, c.CLIVersion, c.now()); err != nil {
		return nil, err
	}

	return &CreateResult{
		Success:     true,
		ProjectPath: projectPath,
		Variant:     opts.Variant,
		KitRepo:     repo,
		Message:     fmt.Sprintf("Project %q created successfully with variant %q.", opts.Name, opts.Variant),
	}, nil
}

// redact removes token from err's message.
func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "***"))
}
