package plugins

import (
	"context"
	"sort"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/outcome"
	"github.com/kitforge/kit/internal/platform"
)

// registryFetchers bounds concurrent registry requests in Outdated.
const registryFetchers = 4

// OutdatedPlugin is an installed plugin whose registry files differ from
// what is on disk.
type OutdatedPlugin struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Path             string   `json:"path,omitempty"`
	InstalledVersion string   `json:"installedVersion,omitempty"`
	LatestVersion    string   `json:"latestVersion,omitempty"`
	Change           string   `json:"change,omitempty"`
	ChangedFiles     []string `json:"changedFiles"`
}

// OutdatedResult is the outcome of Outdated.
type OutdatedResult struct {
	Variant   manifest.Variant `json:"variant"`
	Installed int              `json:"installed"`
	Outdated  []OutdatedPlugin `json:"outdated"`
	Failure   *outcome.Failure `json:"failure,omitempty"`
}

// Outdated compares every installed plugin with the registry. A plugin is
// outdated when any of its registry files is missing locally or differs.
// Plugins whose registry item cannot be fetched are skipped.
func (s *Service) Outdated(ctx context.Context, identity string) (*OutdatedResult, error) {
	proj, err := s.project()
	if err != nil {
		return nil, err
	}
	v := proj.Variant

	var installed []manifest.PluginDefinition
	for _, p := range s.catalog.PluginsForVariant(v) {
		if IsInstalled(s.dir, p, v) {
			installed = append(installed, p)
		}
	}
	res := &OutdatedResult{Variant: v, Installed: len(installed), Outdated: []OutdatedPlugin{}}
	if len(installed) == 0 {
		return res, nil
	}

	id, f := s.resolveIdentity(identity)
	if f != nil {
		res.Failure = f
		return res, nil
	}

	recorded, err := ReadManifest(s.dir)
	if err != nil {
		return nil, err
	}

	found := make([]*OutdatedPlugin, len(installed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(registryFetchers)
	for i, p := range installed {
		g.Go(func() error {
			item, f, err := s.fetch(gctx, v, p.ID, id)
			if err == nil && f != nil {
				err = f
			}
			if err != nil {
				s.log.Warn("skipping plugin, registry fetch failed", zap.String("plugin", p.ID), zap.Error(err))
				return nil
			}
			changed, err := s.changedFiles(item.Files)
			if err != nil {
				return err
			}
			if len(changed) == 0 {
				return nil
			}
			o := &OutdatedPlugin{
				ID:            p.ID,
				Name:          p.Name,
				Path:          p.Path(v),
				LatestVersion: item.Version,
				ChangedFiles:  changed,
			}
			if e, ok := recorded.Entry(p.ID); ok {
				o.InstalledVersion = e.Version
			}
			o.Change = VersionChange(o.InstalledVersion, o.LatestVersion)
			found[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, o := range found {
		if o != nil {
			res.Outdated = append(res.Outdated, *o)
		}
	}
	return res, nil
}

func (s *Service) changedFiles(files []manifest.RegistryFile) ([]string, error) {
	var changed []string
	for _, file := range files {
		path, err := platform.SafeJoin(s.dir, file.Target)
		if err != nil {
			return nil, err
		}
		local, err := platform.ReadOptional(path)
		if err != nil {
			return nil, err
		}
		if local == nil || *local != file.Content {
			changed = append(changed, file.Target)
		}
	}
	sort.Strings(changed)
	return changed, nil
}

// VersionChange names the size of the step from installed to latest:
// "major", "minor", "patch", "prerelease", or "" when either side does not
// parse as semver or latest is not newer.
func VersionChange(installed, latest string) string {
	from, err := semver.NewVersion(installed)
	if err != nil {
		return ""
	}
	to, err := semver.NewVersion(latest)
	if err != nil {
		return ""
	}
	if !to.GreaterThan(from) {
		return ""
	}
	switch {
	case to.Major() != from.Major():
		return "major"
	case to.Minor() != from.Minor():
		return "minor"
	case to.Patch() != from.Patch():
		return "patch"
	default:
		return "prerelease"
	}
}
