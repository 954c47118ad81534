// Package basestore persists the last synchronized remote content of plugin
// files. A base version is the common ancestor used to classify a file during
// an update check. Snapshots live under node_modules/.cache so they stay out
// of version control.
package basestore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kitforge/kit/internal/branding"
	"github.com/kitforge/kit/internal/platform"
)

// File is a target path and the content written to it.
type File struct {
	Target  string
	Content string
}

// Store reads and writes base versions for one project. It does no locking.
type Store struct {
	root string
}

// New returns the store for the project rooted at projectDir.
func New(projectDir string) *Store {
	return &Store{
		root: filepath.Join(projectDir, "node_modules", ".cache", branding.CacheNamespace(), "bases"),
	}
}

// Root returns the directory holding all plugin namespaces.
func (s *Store) Root() string { return s.root }

func (s *Store) pluginDir(pluginID string) (string, error) {
	return platform.SafeJoin(s.root, pluginID)
}

func (s *Store) path(pluginID, target string) (string, error) {
	dir, err := s.pluginDir(pluginID)
	if err != nil {
		return "", fmt.Errorf("invalid plugin id: %w", err)
	}
	return platform.SafeJoin(dir, target)
}

// Save snapshots the files for pluginID, overwriting earlier snapshots of the
// same targets.
func (s *Store) Save(pluginID string, files []File) error {
	for _, f := range files {
		p, err := s.path(pluginID, f.Target)
		if err != nil {
			return fmt.Errorf("saving base version: %w", err)
		}
		if err := platform.WriteFile(p, []byte(f.Content)); err != nil {
			return fmt.Errorf("saving base version: %w", err)
		}
	}
	return nil
}

// Read returns the base version of target, or nil if none was saved.
func (s *Store) Read(pluginID, target string) (*string, error) {
	p, err := s.path(pluginID, target)
	if err != nil {
		return nil, fmt.Errorf("reading base version: %w", err)
	}
	return platform.ReadOptional(p)
}

// Exists reports whether any snapshot was ever saved for pluginID.
func (s *Store) Exists(pluginID string) bool {
	dir, err := s.pluginDir(pluginID)
	if err != nil {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
