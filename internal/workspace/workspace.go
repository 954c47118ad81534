// Package workspace inspects a generated project: which variant it is, which
// version of the template it carries, and the marker written at creation.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kitforge/kit/internal/branding"
	"github.com/kitforge/kit/internal/manifest"
)

var (
	// ErrNoPackageJSON means dir is not a JavaScript project root.
	ErrNoPackageJSON = errors.New("no package.json found")
	// ErrNotMonorepo means the root package.json lacks the turbo dependency.
	ErrNotMonorepo = errors.New("not a turbo monorepo")
	// ErrUnknownVariant means no variant matched the dependencies.
	ErrUnknownVariant = errors.New("could not detect project variant")
)

// Project is a validated project root.
type Project struct {
	Dir     string           `json:"dir"`
	Variant manifest.Variant `json:"variant"`
	Version string           `json:"version"`
}

type packageJSON struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// deps merges dependencies and devDependencies.
func (p *packageJSON) deps() map[string]string {
	out := make(map[string]string, len(p.Dependencies)+len(p.DevDependencies))
	for k, v := range p.Dependencies {
		out[k] = v
	}
	for k, v := range p.DevDependencies {
		out[k] = v
	}
	return out
}

// readPackage returns nil, nil when the file does not exist.
func readPackage(path string) (*packageJSON, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &pkg, nil
}

func readDeps(path string) (map[string]string, error) {
	pkg, err := readPackage(path)
	if err != nil || pkg == nil {
		return map[string]string{}, err
	}
	return pkg.deps(), nil
}

// DetectVariant determines the variant of the project rooted at dir from the
// dependencies of the web app and the database package.
func DetectVariant(dir string) (manifest.Variant, error) {
	root, err := readPackage(filepath.Join(dir, "package.json"))
	if err != nil {
		return "", err
	}
	if root == nil {
		return "", fmt.Errorf("%w in %s: run this command from a %s project root", ErrNoPackageJSON, dir, branding.DisplayName())
	}
	if root.deps()["turbo"] == "" {
		return "", fmt.Errorf("%w: the \"turbo\" dependency was not found in package.json", ErrNotMonorepo)
	}

	web, err := readDeps(filepath.Join(dir, "apps", "web", "package.json"))
	if err != nil {
		return "", err
	}
	db, err := readDeps(filepath.Join(dir, "packages", "database", "package.json"))
	if err != nil {
		return "", err
	}

	has := func(name string, sets ...map[string]string) bool {
		for _, s := range sets {
			if s[name] != "" {
				return true
			}
		}
		return false
	}

	hasSupabase := has("@supabase/supabase-js", web)
	hasReactRouter := has("@react-router/node", web)
	hasDrizzle := has("drizzle-orm", web, db)
	hasPrisma := has("@prisma/client", web, db)

	switch {
	case hasReactRouter && hasSupabase:
		return manifest.VariantReactRouterSupabase, nil
	case hasSupabase:
		return manifest.VariantNextSupabase, nil
	case hasDrizzle:
		return manifest.VariantNextDrizzle, nil
	case hasPrisma:
		return manifest.VariantNextPrisma, nil
	default:
		return "", ErrUnknownVariant
	}
}

// Validate detects the variant and reads the template version.
func Validate(dir string) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	variant, err := DetectVariant(abs)
	if err != nil {
		return nil, err
	}
	root, err := readPackage(filepath.Join(abs, "package.json"))
	if err != nil {
		return nil, err
	}
	version := root.Version
	if version == "" {
		version = "unknown"
	}
	return &Project{Dir: abs, Variant: variant, Version: version}, nil
}
