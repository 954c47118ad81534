package workspace

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/workspace/workspacetest"
)

func TestDetectVariant_AllVariants(t *testing.T) {
	for _, v := range manifest.Variants {
		t.Run(string(v), func(t *testing.T) {
			dir := t.TempDir()
			workspacetest.Project(t, dir, v)

			got, err := DetectVariant(dir)
			require.NoError(t, err)
			assert.Equal(t, v, got)
		})
	}
}

func TestDetectVariant_DatabasePackage(t *testing.T) {
	dir := t.TempDir()
	workspacetest.WritePackage(t, dir, ".", map[string]any{"dependencies": map[string]string{"turbo": "2"}})
	workspacetest.WritePackage(t, dir, "apps/web", map[string]any{"dependencies": map[string]string{"next": "15"}})
	workspacetest.WritePackage(t, dir, "packages/database", map[string]any{"dependencies": map[string]string{"@prisma/client": "6"}})

	got, err := DetectVariant(dir)
	require.NoError(t, err)
	assert.Equal(t, manifest.VariantNextPrisma, got)
}

func TestDetectVariant_Precedence(t *testing.T) {
	dir := t.TempDir()
	workspacetest.WritePackage(t, dir, ".", map[string]any{"devDependencies": map[string]string{"turbo": "2"}})
	workspacetest.WritePackage(t, dir, "apps/web", map[string]any{"dependencies": map[string]string{
		"@supabase/supabase-js": "2",
		"drizzle-orm":           "0.36",
	}})

	got, err := DetectVariant(dir)
	require.NoError(t, err)
	assert.Equal(t, manifest.VariantNextSupabase, got, "supabase wins over drizzle")
}

func TestDetectVariant_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string)
		want  error
	}{
		{"empty dir", func(t *testing.T, dir string) {}, ErrNoPackageJSON},
		{"no turbo", func(t *testing.T, dir string) {
			workspacetest.WritePackage(t, dir, ".", map[string]any{"name": "x"})
		}, ErrNotMonorepo},
		{"unknown stack", func(t *testing.T, dir string) {
			workspacetest.WritePackage(t, dir, ".", map[string]any{"devDependencies": map[string]string{"turbo": "2"}})
			workspacetest.WritePackage(t, dir, "apps/web", map[string]any{"dependencies": map[string]string{"vue": "3"}})
		}, ErrUnknownVariant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)
			_, err := DetectVariant(dir)
			assert.True(t, errors.Is(err, tt.want), "err = %v", err)
		})
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	workspacetest.Project(t, dir, manifest.VariantNextDrizzle)

	p, err := Validate(dir)
	require.NoError(t, err)
	assert.Equal(t, manifest.VariantNextDrizzle, p.Variant)
	assert.Equal(t, "2.1.0", p.Version)
}

func TestValidate_UnknownVersion(t *testing.T) {
	dir := t.TempDir()
	workspacetest.WritePackage(t, dir, ".", map[string]any{"devDependencies": map[string]string{"turbo": "2"}})
	workspacetest.WritePackage(t, dir, "apps/web", map[string]any{"dependencies": map[string]string{"@prisma/client": "6"}})

	p, err := Validate(dir)
	require.NoError(t, err)
	assert.Equal(t, "unknown", p.Version)
}

func TestMarkerRoundTrip(t *testing.T) {
	dir := t.TempDir()

	m, err := ReadMarker(dir)
	require.NoError(t, err)
	assert.Nil(t, m)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, WriteMarker(dir, "next-supabase", "kitforge/next-supabase-saas-kit-turbo", "1.4.0", created))

	m, err = ReadMarker(dir)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 1, m.Version)
	assert.Equal(t, "next-supabase", m.Variant)
	assert.Equal(t, "kitforge/next-supabase-saas-kit-turbo", m.KitRepo)
	assert.True(t, created.Equal(m.CreatedAt))
	assert.Equal(t, "1.4.0", m.CLIVersion)
}
