package cli

import (
	"context"
	"fmt"

	"github.com/kitforge/kit/internal/catalog"
	"github.com/kitforge/kit/internal/config"
	"github.com/kitforge/kit/internal/plugins"
	"github.com/kitforge/kit/internal/registry"
	"github.com/kitforge/kit/internal/runtime"
	"github.com/kitforge/kit/internal/scaffold"
	"github.com/kitforge/kit/internal/toolserver"
	"github.com/kitforge/kit/internal/upstream"
	"github.com/kitforge/kit/internal/workspace"
)

// pluginService builds the plugin service for dir from the resolved settings.
func pluginService(ctx context.Context, dir string) *plugins.Service {
	cat := catalog.Load(ctx, catalog.Options{
		URL:      settings.CatalogURL,
		CacheDir: settings.CacheDir,
		Logger:   logger,
	})
	return plugins.New(plugins.Options{
		ProjectDir:     dir,
		Catalog:        cat,
		Registry:       registry.NewClient(settings.RegistryURL, logger),
		Identity:       settings.Username,
		SaveIdentity:   config.SaveUsername,
		Runner:         &runtime.Exec{},
		PackageRunner:  settings.PackageRunner,
		CodemodsPath:   settings.CodemodsPath,
		PackageManager: settings.PackageManager,
		Logger:         logger,
	})
}

// syncer builds an upstream syncer for the project at dir.
func syncer(dir string) (*upstream.Syncer, error) {
	proj, err := workspace.Validate(dir)
	if err != nil {
		return nil, fmt.Errorf("reading project %s: %w", dir, err)
	}
	return upstream.New(dir, proj.Variant, &runtime.Exec{}, logger), nil
}

func creator() *scaffold.Creator {
	return &scaffold.Creator{
		Runner:         &runtime.Exec{},
		PackageManager: settings.PackageManager,
		CLIVersion:     buildVersion,
		Logger:         logger,
	}
}

// toolServer builds a tool server whose calls run against the project path
// given in each call.
func toolServer(ctx context.Context) (*toolserver.Server, error) {
	return toolserver.New(toolserver.Env{
		Plugins: func(dir string) (*plugins.Service, error) {
			return pluginService(ctx, dir), nil
		},
		Upstream: syncer,
		Creator:  creator(),
		Version:  buildVersion,
		Logger:   logger,
	})
}
