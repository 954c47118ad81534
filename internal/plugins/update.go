package plugins

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitforge/kit/internal/basestore"
	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/outcome"
	"github.com/kitforge/kit/internal/platform"
	"github.com/kitforge/kit/internal/reconcile"
)

// fileReaders bounds concurrent reads during an update check.
const fileReaders = 8

// CheckOptions selects the plugin to check.
type CheckOptions struct {
	PluginID string
	Identity string
}

// CheckResult reports how each of the plugin's files relates to the latest
// registry content.
type CheckResult struct {
	Success         bool                   `json:"success"`
	PluginID        string                 `json:"pluginId,omitempty"`
	Variant         manifest.Variant       `json:"variant,omitempty"`
	HasBaseVersions bool                   `json:"hasBaseVersions"`
	Counts          reconcile.Counts       `json:"counts,omitempty"`
	Files           []reconcile.FileReport `json:"files,omitempty"`
	Failure         *outcome.Failure       `json:"failure,omitempty"`
}

// CheckUpdate fetches the plugin's current registry item and classifies every
// file against its local copy and stored base version.
func (s *Service) CheckUpdate(ctx context.Context, opts CheckOptions) (*CheckResult, error) {
	proj, err := s.project()
	if err != nil {
		return nil, err
	}
	v := proj.Variant

	identity, f := s.resolveIdentity(opts.Identity)
	if f != nil {
		return &CheckResult{Failure: f}, nil
	}
	plugin, f := s.lookup(opts.PluginID, v)
	if f != nil {
		return &CheckResult{Failure: f}, nil
	}
	item, f, err := s.fetch(ctx, v, plugin.ID, identity)
	if err != nil {
		return nil, err
	}
	if f != nil {
		return &CheckResult{Failure: f}, nil
	}

	reports, err := s.classify(ctx, plugin.ID, item.Files)
	if err != nil {
		return nil, err
	}

	counts := reconcile.Tally(reports)
	s.log.Debug("update check complete",
		zap.String("plugin", plugin.ID),
		zap.Int("files", len(reports)),
		zap.Int("pending", counts.Pending()))

	return &CheckResult{
		Success:         true,
		PluginID:        plugin.ID,
		Variant:         v,
		HasBaseVersions: s.bases.Exists(plugin.ID),
		Counts:          counts,
		Files:           reports,
	}, nil
}

// classify reads local and base versions concurrently. Reports keep the
// order of files.
func (s *Service) classify(ctx context.Context, pluginID string, files []manifest.RegistryFile) ([]reconcile.FileReport, error) {
	reports := make([]reconcile.FileReport, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fileReaders)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path, err := platform.SafeJoin(s.dir, file.Target)
			if err != nil {
				return err
			}
			local, err := platform.ReadOptional(path)
			if err != nil {
				return err
			}
			base, err := s.bases.Read(pluginID, file.Target)
			if err != nil {
				return err
			}
			reports[i] = reconcile.Report(file.Target, base, local, file.Content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("classifying plugin files: %w", err)
	}
	return reports, nil
}

// Action is the caller's decision for one file of an update.
type Action string

const (
	ActionWrite  Action = "write"
	ActionSkip   Action = "skip"
	ActionDelete Action = "delete"
)

// ApplyFile is one decision of an update.
type ApplyFile struct {
	Path    string  `json:"path"`
	Content *string `json:"content,omitempty"`
	Action  Action  `json:"action"`
}

// ApplyOptions carries the caller's decisions for a plugin update.
type ApplyOptions struct {
	PluginID string
	Identity string
	Files    []ApplyFile
	// SkipDependencies opts out of the final package install.
	SkipDependencies bool
}

// ApplyResult lists what was done per action.
type ApplyResult struct {
	Success           bool             `json:"success"`
	PluginID          string           `json:"pluginId,omitempty"`
	Written           []string         `json:"written"`
	Skipped           []string         `json:"skipped"`
	Deleted           []string         `json:"deleted"`
	DependencyWarning *outcome.Failure `json:"dependencyWarning,omitempty"`
	Failure           *outcome.Failure `json:"failure,omitempty"`
}

// ApplyUpdate executes the decisions in order. After every non-delete
// action the base store takes the registry's content for that path, so the
// file reads as unchanged on the next check. Deletions leave the base store
// alone. A write without content stops the run; earlier files stay written.
func (s *Service) ApplyUpdate(ctx context.Context, opts ApplyOptions) (*ApplyResult, error) {
	proj, err := s.project()
	if err != nil {
		return nil, err
	}
	v := proj.Variant

	res := &ApplyResult{PluginID: opts.PluginID, Written: []string{}, Skipped: []string{}, Deleted: []string{}}

	identity, f := s.resolveIdentity(opts.Identity)
	if f != nil {
		res.Failure = f
		return res, nil
	}
	plugin, f := s.lookup(opts.PluginID, v)
	if f != nil {
		res.Failure = f
		return res, nil
	}
	item, f, err := s.fetch(ctx, v, plugin.ID, identity)
	if err != nil {
		return nil, err
	}
	if f != nil {
		res.Failure = f
		return res, nil
	}
	// Registry targets keyed by clean path so "./a" and "a//b" find their base.
	remote := make(map[string]manifest.RegistryFile, len(item.Files))
	for _, rf := range item.Files {
		remote[cleanTarget(rf.Target)] = rf
	}

	for _, file := range opts.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dest, err := platform.SafeJoin(s.dir, file.Path)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", file.Path, err)
		}

		switch file.Action {
		case ActionWrite:
			if file.Content == nil {
				res.Failure = outcome.Fail(outcome.MissingContent, "Missing content for write action on %s", file.Path)
				return res, nil
			}
			if err := platform.WriteFile(dest, []byte(*file.Content)); err != nil {
				return nil, err
			}
			res.Written = append(res.Written, file.Path)
		case ActionSkip:
			res.Skipped = append(res.Skipped, file.Path)
		case ActionDelete:
			if err := platform.RemoveIfExists(dest); err != nil {
				return nil, err
			}
			res.Deleted = append(res.Deleted, file.Path)
			continue
		default:
			res.Failure = outcome.Fail(outcome.InvalidPayload, "Unknown action %q for %s", file.Action, file.Path)
			return res, nil
		}

		if rf, ok := remote[cleanTarget(file.Path)]; ok {
			if err := s.bases.Save(plugin.ID, []basestore.File{{Target: rf.Target, Content: rf.Content}}); err != nil {
				return nil, fmt.Errorf("updating base version of %s: %w", file.Path, err)
			}
		}
	}

	if !opts.SkipDependencies {
		if w := s.installDependencies(ctx, item); w != nil {
			s.log.Warn("dependency install failed", zap.String("plugin", plugin.ID), zap.String("reason", w.Reason))
			res.DependencyWarning = w
		}
	}

	res.Success = true
	return res, nil
}

func cleanTarget(p string) string {
	return path.Clean(filepath.ToSlash(p))
}
