package plugins

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kitforge/kit/internal/catalog"
	"github.com/kitforge/kit/internal/manifest"
)

// Listing describes one plugin available for the project's variant.
type Listing struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Installed          bool     `json:"installed"`
	EnvVars            []string `json:"envVars"`
	PostInstallMessage string   `json:"postInstallMessage,omitempty"`
}

// ListResult is the outcome of List.
type ListResult struct {
	Variant manifest.Variant `json:"variant"`
	Source  catalog.Source   `json:"source"`
	Plugins []Listing        `json:"plugins"`
}

// List returns the catalog plugins supporting the project's variant with
// their install state.
func (s *Service) List(ctx context.Context) (*ListResult, error) {
	proj, err := s.project()
	if err != nil {
		return nil, err
	}
	v := proj.Variant

	res := &ListResult{Variant: v, Source: s.catalog.Source(), Plugins: []Listing{}}
	for _, p := range s.catalog.PluginsForVariant(v) {
		vars := p.EnvVars(v)
		keys := make([]string, 0, len(vars))
		for _, ev := range vars {
			keys = append(keys, ev.Key)
		}
		res.Plugins = append(res.Plugins, Listing{
			ID:                 p.ID,
			Name:               p.Name,
			Description:        p.Description,
			Installed:          IsInstalled(s.dir, p, v),
			EnvVars:            keys,
			PostInstallMessage: p.PostInstallMessage,
		})
	}
	return res, nil
}

// PluginState is a plugin's install state in a status report.
type PluginState struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Installed bool   `json:"installed"`
}

// StatusResult summarizes the project.
type StatusResult struct {
	Variant            manifest.Variant `json:"variant"`
	Version            string           `json:"version"`
	GitClean           bool             `json:"gitClean"`
	RegistryConfigured bool             `json:"registryConfigured"`
	Plugins            []PluginState    `json:"plugins"`
}

// Status reports the project's variant, version, git state, whether a
// registry identity is configured, and the install state of each plugin.
// A project outside git reports GitClean false.
func (s *Service) Status(ctx context.Context) (*StatusResult, error) {
	proj, err := s.project()
	if err != nil {
		return nil, err
	}

	clean := false
	if s.repo.IsRepo() {
		clean, err = s.repo.IsClean(ctx)
		if err != nil {
			return nil, fmt.Errorf("checking git status: %w", err)
		}
	}

	res := &StatusResult{
		Variant:            proj.Variant,
		Version:            proj.Version,
		GitClean:           clean,
		RegistryConfigured: s.identity != "",
		Plugins:            []PluginState{},
	}
	for _, p := range s.catalog.PluginsForVariant(proj.Variant) {
		res.Plugins = append(res.Plugins, PluginState{
			ID:        p.ID,
			Name:      p.Name,
			Installed: IsInstalled(s.dir, p, proj.Variant),
		})
	}
	return res, nil
}

// InitResult is the outcome of InitRegistry.
type InitResult struct {
	Success  bool             `json:"success"`
	Variant  manifest.Variant `json:"variant"`
	Username string           `json:"username"`
}

// InitRegistry stores the registry identity after confirming the project is
// a recognized workspace.
func (s *Service) InitRegistry(ctx context.Context, username string) (*InitResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username must not be empty")
	}
	proj, err := s.project()
	if err != nil {
		return nil, err
	}
	if s.saveIdentity != nil {
		if err := s.saveIdentity(username); err != nil {
			return nil, fmt.Errorf("saving registry identity: %w", err)
		}
	}
	s.identity = username
	s.log.Info("registry identity configured", zap.String("variant", string(proj.Variant)))

	return &InitResult{Success: true, Variant: proj.Variant, Username: username}, nil
}
