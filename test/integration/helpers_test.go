//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kitforge/kit/internal/gitx/gitxtest"
	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/runtime"
	"github.com/kitforge/kit/internal/workspace/workspacetest"
)

// testEnv holds an isolated project and the registry it installs from.
type testEnv struct {
	HomeDir    string // HOME, holds ~/.kit
	ProjectDir string // a committed next-supabase project
	Registry   *registryServer

	mu       sync.Mutex
	commands []string
}

// setupTestEnv creates a git-backed project and a fake registry. HOME is
// redirected so nothing touches the real ~/.kit.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gitxtest.RequireGit(t)

	env := &testEnv{
		HomeDir:    t.TempDir(),
		ProjectDir: filepath.Join(t.TempDir(), "my-saas"),
		Registry:   newRegistryServer(t),
	}
	t.Setenv("HOME", env.HomeDir)

	gitxtest.Init(t, env.ProjectDir)
	workspacetest.Project(t, env.ProjectDir, manifest.VariantNextSupabase)
	gitxtest.Commit(t, env.ProjectDir, map[string]string{
		"README.md":  "# my-saas\n",
		".gitignore": "node_modules\n.env.local\n",
	}, "initial")
	return env
}

// runner runs git for real and records every other command without running
// it, so package managers and codemods are never invoked.
func (e *testEnv) runner() runtime.Runner {
	exec := &runtime.Exec{}
	return runtime.RunnerFunc(func(ctx context.Context, cmd runtime.Command) (*runtime.Output, error) {
		if cmd.Name == "git" {
			return exec.Run(ctx, cmd)
		}
		e.mu.Lock()
		e.commands = append(e.commands, cmd.String())
		e.mu.Unlock()
		return &runtime.Output{}, nil
	})
}

// recorded returns the non-git commands run so far.
func (e *testEnv) recorded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.commands...)
}

// registryServer serves registry items at /r/<variant>/<plugin>.json.
type registryServer struct {
	*httptest.Server

	mu    sync.Mutex
	items map[string]*manifest.RegistryItem
	users []string
}

func newRegistryServer(t *testing.T) *registryServer {
	t.Helper()
	rs := &registryServer{items: make(map[string]*manifest.RegistryItem)}
	rs.Server = httptest.NewServer(http.HandlerFunc(rs.serve))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *registryServer) BaseURL() string {
	return rs.URL + "/r"
}

// Publish replaces the item served for variant/pluginID.
func (rs *registryServer) Publish(v manifest.Variant, pluginID string, item *manifest.RegistryItem) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.items[string(v)+"/"+pluginID] = item
}

// Users returns the identities sent with each request.
func (rs *registryServer) Users() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]string(nil), rs.users...)
}

func (rs *registryServer) serve(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/r/"), ".json")

	rs.mu.Lock()
	item, ok := rs.items[key]
	rs.users = append(rs.users, r.URL.Query().Get("username"))
	rs.mu.Unlock()

	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(item)
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// readFile returns the content of path, failing the test if it is missing.
func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}
