// Package plugins orchestrates the plugin lifecycle inside a generated
// project: install, update check, update apply, and the read-only views
// (list, status, outdated, diff) built on the same catalog and registry.
//
// Expected failures are returned inside result values as *outcome.Failure.
// Returned errors are reserved for infrastructure problems (I/O, transport,
// an unreadable project).
package plugins

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitforge/kit/internal/basestore"
	"github.com/kitforge/kit/internal/branding"
	"github.com/kitforge/kit/internal/catalog"
	"github.com/kitforge/kit/internal/gitx"
	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/outcome"
	"github.com/kitforge/kit/internal/runtime"
	"github.com/kitforge/kit/internal/workspace"
)

// ItemFetcher retrieves a plugin's registry item for a variant.
// *registry.Client implements it.
type ItemFetcher interface {
	FetchItem(ctx context.Context, variant manifest.Variant, pluginID, identity string) (*manifest.RegistryItem, error)
}

// Options configures a Service. Only ProjectDir, Catalog and Registry are
// required.
type Options struct {
	ProjectDir string
	Catalog    *catalog.Registry
	Registry   ItemFetcher

	// Identity is the cached registry identity, used when an operation is
	// not given one explicitly.
	Identity string
	// SaveIdentity persists a new identity. Nil disables persistence.
	SaveIdentity func(string) error

	Runner         runtime.Runner
	PackageRunner  string
	CodemodsPath   string
	PackageManager string
	CodemodTimeout time.Duration

	Logger *zap.Logger
	Now    func() time.Time
}

// Service runs plugin operations against one project.
type Service struct {
	dir      string
	catalog  *catalog.Registry
	registry ItemFetcher
	bases    *basestore.Store
	repo     *gitx.Repo
	runner   runtime.Runner
	packages runtime.PackageManager

	identity     string
	saveIdentity func(string) error

	packageRunner  string
	codemodsPath   string
	codemodTimeout time.Duration

	log *zap.Logger
	now func() time.Time
}

// New returns a Service for opts.ProjectDir.
func New(opts Options) *Service {
	runner := opts.Runner
	if runner == nil {
		runner = &runtime.Exec{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Bundled()
	}

	return &Service{
		dir:            opts.ProjectDir,
		catalog:        cat,
		registry:       opts.Registry,
		bases:          basestore.New(opts.ProjectDir),
		repo:           gitx.Open(opts.ProjectDir, runner),
		runner:         runner,
		packages:       runtime.PackageManager{Runner: runner, Name: opts.PackageManager},
		identity:       strings.TrimSpace(opts.Identity),
		saveIdentity:   opts.SaveIdentity,
		packageRunner:  opts.PackageRunner,
		codemodsPath:   opts.CodemodsPath,
		codemodTimeout: opts.CodemodTimeout,
		log:            logger.Named("plugins"),
		now:            now,
	}
}

// Dir returns the project root.
func (s *Service) Dir() string { return s.dir }

// Catalog returns the plugin catalog in use.
func (s *Service) Catalog() *catalog.Registry { return s.catalog }

// project validates the workspace and returns its variant.
func (s *Service) project() (*workspace.Project, error) {
	p, err := workspace.Validate(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading project %s: %w", s.dir, err)
	}
	return p, nil
}

// resolveIdentity returns the explicit identity, else the cached one. An
// explicit identity is persisted so later calls can omit it.
func (s *Service) resolveIdentity(explicit string) (string, *outcome.Failure) {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" {
		if explicit != s.identity && s.saveIdentity != nil {
			if err := s.saveIdentity(explicit); err != nil {
				s.log.Warn("could not cache registry identity", zap.Error(err))
			}
		}
		s.identity = explicit
		return explicit, nil
	}
	if s.identity != "" {
		return s.identity, nil
	}
	return "", outcome.Fail(outcome.MissingIdentity,
		"No registry identity configured. Run `%s plugins init <github-username>` or pass one explicitly.",
		branding.CLIName())
}

// fetch retrieves the registry item, separating expected failures from
// infrastructure errors.
func (s *Service) fetch(ctx context.Context, v manifest.Variant, pluginID, identity string) (*manifest.RegistryItem, *outcome.Failure, error) {
	if s.registry == nil {
		return nil, nil, fmt.Errorf("no registry client configured")
	}
	item, err := s.registry.FetchItem(ctx, v, pluginID, identity)
	if err != nil {
		if f, ok := outcome.AsFailure(err); ok {
			return nil, f, nil
		}
		return nil, nil, err
	}
	return item, nil, nil
}

// lookup validates a plugin against the catalog for variant v.
func (s *Service) lookup(pluginID string, v manifest.Variant) (manifest.PluginDefinition, *outcome.Failure) {
	p, err := s.catalog.ValidatePlugin(pluginID, v)
	if err != nil {
		f, _ := outcome.AsFailure(err)
		return p, f
	}
	return p, nil
}
