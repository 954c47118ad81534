// Package workspacetest writes minimal project trees for tests.
package workspacetest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kitforge/kit/internal/manifest"
)

// webDeps are the app dependencies that identify each variant.
var webDeps = map[manifest.Variant]map[string]string{
	manifest.VariantNextSupabase:        {"next": "15.0.0", "@supabase/supabase-js": "^2.45.0"},
	manifest.VariantNextDrizzle:         {"next": "15.0.0", "drizzle-orm": "^0.36.0"},
	manifest.VariantNextPrisma:          {"next": "15.0.0", "@prisma/client": "^6.0.0"},
	manifest.VariantReactRouterSupabase: {"@react-router/node": "^7.0.0", "@supabase/supabase-js": "^2.45.0"},
}

// WritePackage writes a package.json at dir/rel.
func WritePackage(t *testing.T, dir, rel string, pkg map[string]any) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel), "package.json")
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	data, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatal(err)
	}
}

// Project writes a turbo monorepo detected as variant v.
func Project(t *testing.T, dir string, v manifest.Variant) {
	t.Helper()
	WritePackage(t, dir, ".", map[string]any{
		"name":            "my-saas",
		"version":         "2.1.0",
		"devDependencies": map[string]string{"turbo": "^2.3.0"},
	})
	WritePackage(t, dir, "apps/web", map[string]any{
		"name":         "web",
		"dependencies": webDeps[v],
	})
}
