package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/outcome"
)

const remoteCatalog = `{"plugins":[
  {"id":"kanban","name":"Kanban","description":"Boards","variants":{"next-prisma":{"envVars":[]}}},
  {"id":"blog","name":"Blog","description":"Posts","variants":{"next-prisma":{"envVars":[]},"next-supabase":{"envVars":[]}}}
]}`

func catalogServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestBundled(t *testing.T) {
	r := Bundled()
	assert.Equal(t, SourceBundled, r.Source())
	require.NotEmpty(t, r.Plugins())

	_, ok := r.Plugin("waitlist")
	assert.True(t, ok)
}

func TestLoad_NoURLUsesBundled(t *testing.T) {
	r := Load(context.Background(), Options{CacheDir: t.TempDir()})
	assert.Equal(t, SourceBundled, r.Source())
}

func TestLoad_FetchesAndCaches(t *testing.T) {
	srv, hits := catalogServer(t, http.StatusOK, remoteCatalog)
	dir := t.TempDir()
	opts := Options{URL: srv.URL, CacheDir: dir}

	r := Load(context.Background(), opts)
	assert.Equal(t, SourceRemote, r.Source())
	require.Len(t, r.Plugins(), 2)

	r = Load(context.Background(), opts)
	assert.Equal(t, SourceCache, r.Source())
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestLoad_ExpiredCacheRefetches(t *testing.T) {
	srv, hits := catalogServer(t, http.StatusOK, remoteCatalog)
	dir := t.TempDir()

	now := time.Now()
	Load(context.Background(), Options{URL: srv.URL, CacheDir: dir, Now: func() time.Time { return now }})

	later := now.Add(2 * time.Hour)
	r := Load(context.Background(), Options{URL: srv.URL, CacheDir: dir, Now: func() time.Time { return later }})
	assert.Equal(t, SourceRemote, r.Source())
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestLoad_StaleCacheOnFailure(t *testing.T) {
	good, _ := catalogServer(t, http.StatusOK, remoteCatalog)
	dir := t.TempDir()

	now := time.Now()
	Load(context.Background(), Options{URL: good.URL, CacheDir: dir, Now: func() time.Time { return now }})
	good.Close()

	later := now.Add(48 * time.Hour)
	r := Load(context.Background(), Options{URL: good.URL, CacheDir: dir, Now: func() time.Time { return later }})
	assert.Equal(t, SourceStale, r.Source())
	_, ok := r.Plugin("kanban")
	assert.True(t, ok)
}

func TestLoad_FallbacksToBundled(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "boom"},
		{"invalid payload", http.StatusOK, `{"plugins":[{"id":"x"}]}`},
		{"not json", http.StatusOK, "<html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := catalogServer(t, tt.status, tt.body)
			r := Load(context.Background(), Options{URL: srv.URL, CacheDir: t.TempDir()})
			assert.Equal(t, SourceBundled, r.Source())
		})
	}
}

func TestLoad_CacheKeyedByURL(t *testing.T) {
	first, _ := catalogServer(t, http.StatusOK, remoteCatalog)
	second, hits := catalogServer(t, http.StatusOK, `{"plugins":[]}`)
	dir := t.TempDir()

	Load(context.Background(), Options{URL: first.URL, CacheDir: dir})
	r := Load(context.Background(), Options{URL: second.URL, CacheDir: dir})

	assert.Equal(t, SourceRemote, r.Source())
	assert.Empty(t, r.Plugins())
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestPluginsForVariant_KeepsOrder(t *testing.T) {
	c, err := manifest.ParseCatalog([]byte(remoteCatalog))
	require.NoError(t, err)
	r := New(c, SourceRemote)

	var ids []string
	for _, p := range r.PluginsForVariant(manifest.VariantNextPrisma) {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"kanban", "blog"}, ids)
	assert.Empty(t, r.PluginsForVariant(manifest.VariantReactRouterSupabase))
}

func TestValidatePlugin(t *testing.T) {
	c, err := manifest.ParseCatalog([]byte(remoteCatalog))
	require.NoError(t, err)
	r := New(c, SourceRemote)

	p, err := r.ValidatePlugin("blog", manifest.VariantNextSupabase)
	require.NoError(t, err)
	assert.Equal(t, "Blog", p.Name)

	_, err = r.ValidatePlugin("nope", manifest.VariantNextSupabase)
	assert.Equal(t, outcome.PluginNotFound, outcome.KindOf(err))

	_, err = r.ValidatePlugin("kanban", manifest.VariantNextSupabase)
	assert.Equal(t, outcome.UnsupportedVariant, outcome.KindOf(err))
}
