package plugins

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kitforge/kit/internal/basestore"
	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/outcome"
	"github.com/kitforge/kit/internal/registry"
	"github.com/kitforge/kit/internal/runtime"
)

// InstallOptions selects the plugin to install.
type InstallOptions struct {
	PluginID     string
	Identity     string
	SkipGitCheck bool
	// SkipDependencies leaves the registry item's npm dependencies alone.
	SkipDependencies bool
}

// InstallResult is the outcome of Install. Warnings never undo a success:
// the plugin's files are already on disk when they are raised.
type InstallResult struct {
	Success            bool               `json:"success"`
	PluginID           string             `json:"pluginId,omitempty"`
	PluginName         string             `json:"pluginName,omitempty"`
	Variant            manifest.Variant   `json:"variant,omitempty"`
	Files              []string           `json:"files,omitempty"`
	EnvVars            []manifest.EnvVar  `json:"envVars,omitempty"`
	EnvFiles           []string           `json:"envFiles,omitempty"`
	PostInstallMessage string             `json:"postInstallMessage,omitempty"`
	Warnings           []*outcome.Failure `json:"warnings,omitempty"`
	Failure            *outcome.Failure   `json:"failure,omitempty"`
}

func failedInstall(f *outcome.Failure) *InstallResult {
	return &InstallResult{Success: false, Failure: f}
}

// Install adds a plugin to the project. The steps run in order and each
// stops the install on failure: clean working tree, identity, catalog
// lookup, idempotency guard, fetch and write, base snapshot, codemod, env
// declarations.
func (s *Service) Install(ctx context.Context, opts InstallOptions) (*InstallResult, error) {
	proj, err := s.project()
	if err != nil {
		return nil, err
	}
	v := proj.Variant
	log := s.log.With(zap.String("plugin", opts.PluginID), zap.String("variant", string(v)))

	if !opts.SkipGitCheck {
		clean, err := s.repo.IsClean(ctx)
		if err != nil {
			return nil, fmt.Errorf("checking git status: %w", err)
		}
		if !clean {
			return failedInstall(outcome.Fail(outcome.DirtyWorkingTree,
				"Git working directory has uncommitted changes. Please commit or stash them before installing a plugin.")), nil
		}
	}

	identity, f := s.resolveIdentity(opts.Identity)
	if f != nil {
		return failedInstall(f), nil
	}

	plugin, f := s.lookup(opts.PluginID, v)
	if f != nil {
		return failedInstall(f), nil
	}

	if IsInstalled(s.dir, plugin, v) {
		return failedInstall(outcome.Fail(outcome.AlreadyInstalled, "Plugin %q is already installed.", plugin.Name)), nil
	}

	item, f, err := s.fetch(ctx, v, plugin.ID, identity)
	if err != nil {
		return nil, err
	}
	if f != nil {
		return failedInstall(f), nil
	}

	written, err := registry.WriteFiles(s.dir, item.Files)
	if err != nil {
		return nil, fmt.Errorf("writing plugin files: %w", err)
	}
	log.Info("plugin files written", zap.Int("files", len(written)))

	snapshot := make([]basestore.File, 0, len(item.Files))
	for _, file := range item.Files {
		snapshot = append(snapshot, basestore.File{Target: file.Target, Content: file.Content})
	}
	if err := s.bases.Save(plugin.ID, snapshot); err != nil {
		return nil, fmt.Errorf("saving base versions: %w", err)
	}

	res := &InstallResult{
		Success:            true,
		PluginID:           plugin.ID,
		PluginName:         plugin.Name,
		Variant:            v,
		Files:              written,
		EnvVars:            plugin.EnvVars(v),
		PostInstallMessage: plugin.PostInstallMessage,
	}

	if !opts.SkipDependencies {
		if w := s.installDependencies(ctx, item); w != nil {
			log.Warn("dependency install failed", zap.String("reason", w.Reason))
			res.Warnings = append(res.Warnings, w)
		}
	}

	if w := runtime.RunCodemod(ctx, s.runner, runtime.Codemod{
		PackageRunner: s.packageRunner,
		CodemodsPath:  s.codemodsPath,
		Variant:       string(v),
		PluginID:      plugin.ID,
		Dir:           s.dir,
		Timeout:       s.codemodTimeout,
	}); w != nil {
		log.Warn("codemod did not complete", zap.String("kind", string(w.Kind)), zap.String("reason", w.Reason))
		res.Warnings = append(res.Warnings, w)
	}

	res.EnvFiles, err = AppendEnvVars(s.dir, plugin.Name, res.EnvVars)
	if err != nil {
		return nil, fmt.Errorf("appending environment variables: %w", err)
	}

	version := item.Version
	if version == "" {
		version = "latest"
	}
	if err := recordInstall(s.dir, ManifestEntry{
		PluginID:    plugin.ID,
		Version:     version,
		Variant:     v,
		InstalledAt: s.now().UTC(),
		Source:      "registry",
	}); err != nil {
		return nil, fmt.Errorf("recording plugin: %w", err)
	}

	return res, nil
}

// installDependencies adds the item's npm dependencies to the project. A
// failure is returned as a warning.
func (s *Service) installDependencies(ctx context.Context, item *manifest.RegistryItem) *outcome.Failure {
	specs := item.DependencySpecs()
	if len(specs) == 0 {
		return nil
	}
	if err := s.packages.Add(ctx, s.dir, specs); err != nil {
		return outcome.Fail(outcome.DependencyInstallFailed, "installing dependencies failed: %v", err)
	}
	return nil
}
