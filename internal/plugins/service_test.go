package plugins

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kitforge/kit/internal/catalog"
	"github.com/kitforge/kit/internal/gitx/gitxtest"
	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/outcome"
	"github.com/kitforge/kit/internal/runtime"
	"github.com/kitforge/kit/internal/workspace/workspacetest"
)

const testCatalog = `
plugins:
  - id: waitlist
    name: Waitlist
    description: Collect sign-ups.
    postInstallMessage: Run the waitlist migration.
    variants:
      next-supabase:
        path: packages/plugins/waitlist
        envVars:
          - key: WAITLIST_NOTIFY_EMAIL
            description: Notified on sign-up
            defaultValue: team@example.com
          - key: WAITLIST_SECRET
            description: Signing secret
  - id: roadmap
    name: Roadmap
    description: Public roadmap.
    variants:
      next-supabase:
        path: packages/plugins/roadmap
        envVars: []
  - id: kanban
    name: Kanban
    description: Boards.
    variants:
      next-prisma:
        path: packages/plugins/kanban
        envVars: []
`

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeRegistry serves registry items from memory.
type fakeRegistry struct {
	mu    sync.Mutex
	items map[string]*manifest.RegistryItem
	err   error
	calls []string
}

func (f *fakeRegistry) FetchItem(ctx context.Context, v manifest.Variant, pluginID, identity string) (*manifest.RegistryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pluginID+"@"+identity)
	if f.err != nil {
		return nil, f.err
	}
	item, ok := f.items[pluginID]
	if !ok {
		return nil, outcome.Fail(outcome.RegistryFetchError, "Failed to fetch plugin registry for %q (404): Not Found", pluginID)
	}
	return item, nil
}

func (f *fakeRegistry) set(pluginID string, item *manifest.RegistryItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[pluginID] = item
}

// recorder captures commands and answers them with a configurable output.
type recorder struct {
	mu       sync.Mutex
	commands []runtime.Command
	respond  func(cmd runtime.Command) (*runtime.Output, error)
}

func (r *recorder) Run(ctx context.Context, cmd runtime.Command) (*runtime.Output, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	respond := r.respond
	r.mu.Unlock()
	if respond != nil {
		return respond(cmd)
	}
	return &runtime.Output{}, nil
}

// lines renders recorded commands as "name arg..." strings.
func (r *recorder) lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c.String())
	}
	return out
}

type harness struct {
	dir      string
	svc      *Service
	registry *fakeRegistry
	runner   *recorder
	saved    []string
}

func waitlistItem() *manifest.RegistryItem {
	return &manifest.RegistryItem{
		Name:    "waitlist",
		Version: "1.2.0",
		Files: []manifest.RegistryFile{
			{Path: "plugins/waitlist/package.json", Content: `{"name":"@kit/waitlist"}` + "\n", Type: "registry:file", Target: "packages/plugins/waitlist/package.json"},
			{Path: "plugins/waitlist/src/index.ts", Content: "export const waitlist = true;\n", Type: "registry:file", Target: "packages/plugins/waitlist/src/index.ts"},
		},
		Dependencies: map[string]string{"zod": "^3.23.0"},
	}
}

type harnessOption func(*Options)

func withIdentity(id string) harnessOption {
	return func(o *Options) { o.Identity = id }
}

// newHarness builds a next-supabase project committed to a fresh git
// repository.
func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	dir := t.TempDir()
	workspacetest.Project(t, dir, manifest.VariantNextSupabase)
	gitxtest.Init(t, dir)
	gitxtest.Commit(t, dir, nil, "initial")

	c, err := manifest.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)

	h := &harness{
		dir:      dir,
		registry: &fakeRegistry{items: map[string]*manifest.RegistryItem{"waitlist": waitlistItem()}},
		runner:   &recorder{},
	}
	o := Options{
		ProjectDir:   dir,
		Catalog:      catalog.New(c, catalog.SourceRemote),
		Registry:     h.registry,
		Identity:     "octocat",
		SaveIdentity: func(id string) error { h.saved = append(h.saved, id); return nil },
		Runner:       h.runner,
		Now:          func() time.Time { return fixedNow },
	}
	for _, fn := range opts {
		fn(&o)
	}
	h.svc = New(o)
	return h
}

func (h *harness) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func (h *harness) write(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(h.dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

// commands returns recorded commands that start with prefix.
func (h *harness) commands(prefix string) []string {
	var out []string
	for _, l := range h.runner.lines() {
		if strings.HasPrefix(l, prefix) {
			out = append(out, l)
		}
	}
	return out
}
