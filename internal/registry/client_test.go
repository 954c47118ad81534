package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/outcome"
)

const itemJSON = `{
  "name": "waitlist",
  "files": [
    {"path": "a/package.json", "content": "{\"name\":\"@kit/waitlist\"}", "type": "registry:file", "target": "packages/plugins/waitlist/package.json"}
  ],
  "dependencies": {"zod": "^3.23.0"}
}`

func TestFetchItem(t *testing.T) {
	var gotPath, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser = r.URL.Query().Get("username")
		_, _ = w.Write([]byte(itemJSON))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/r/", nil)
	item, err := c.FetchItem(context.Background(), manifest.VariantNextSupabase, "waitlist", "octo cat")
	require.NoError(t, err)

	assert.Equal(t, "/r/next-supabase/waitlist.json", gotPath)
	assert.Equal(t, "octo cat", gotUser)
	assert.Equal(t, "waitlist", item.Name)
	require.Len(t, item.Files, 1)
	assert.Equal(t, "packages/plugins/waitlist/package.json", item.Files[0].Target)
	assert.Equal(t, []string{"zod@^3.23.0"}, item.DependencySpecs())
}

func TestFetchItem_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind outcome.Kind
	}{
		{"not found", http.StatusNotFound, "", outcome.RegistryFetchError},
		{"unauthorized", http.StatusUnauthorized, `{"error":"no license"}`, outcome.RegistryFetchError},
		{"empty payload", http.StatusOK, `{"name":"waitlist","files":[]}`, outcome.RegistryFetchError},
		{"files missing", http.StatusOK, `{"name":"waitlist"}`, outcome.RegistryFetchError},
		{"files null", http.StatusOK, `{"name":"waitlist","files":null}`, outcome.RegistryFetchError},
		{"malformed payload", http.StatusOK, `{"files":"nope"}`, outcome.InvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, nil).FetchItem(context.Background(), manifest.VariantNextPrisma, "waitlist", "octocat")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, outcome.KindOf(err))
		})
	}
}

func TestFetchItem_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, nil).FetchItem(context.Background(), manifest.VariantNextPrisma, "waitlist", "octocat")
	require.Error(t, err)
	_, isFailure := outcome.AsFailure(err)
	assert.False(t, isFailure, "transport errors are infrastructure errors")
}

func TestItemURL(t *testing.T) {
	c := &Client{BaseURL: "https://registry.example.com/r"}
	got := c.ItemURL(manifest.VariantReactRouterSupabase, "roadmap", "a&b")
	assert.Equal(t, "https://registry.example.com/r/react-router-supabase/roadmap.json?username=a%26b", got)
}
