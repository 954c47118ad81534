// Package catalog loads the plugin catalog. A remote catalog URL is fetched at
// most once per TTL; on any network or payload problem the last cached copy
// for the same URL is used, then the catalog bundled into the binary.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kitforge/kit/internal/branding"
	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/outcome"
)

const (
	cacheFileName = "plugins-cache.json"

	// DefaultTTL is how long a fetched catalog is served from cache.
	DefaultTTL = time.Hour

	fetchTimeout = 15 * time.Second
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Source records where a loaded catalog came from.
type Source string

const (
	SourceBundled Source = "bundled"
	SourceCache   Source = "cache"
	SourceRemote  Source = "remote"
	SourceStale   Source = "stale-cache"
)

// Registry is an immutable, ordered set of plugin definitions.
type Registry struct {
	plugins []manifest.PluginDefinition
	source  Source
}

// New wraps a parsed catalog.
func New(c *manifest.Catalog, source Source) *Registry {
	plugins := make([]manifest.PluginDefinition, len(c.Plugins))
	copy(plugins, c.Plugins)
	return &Registry{plugins: plugins, source: source}
}

// Bundled returns the catalog compiled into the binary.
func Bundled() *Registry {
	c, err := manifest.ParseCatalog(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("bundled plugin catalog is invalid: %v", err))
	}
	return New(c, SourceBundled)
}

// Source reports where the catalog was loaded from.
func (r *Registry) Source() Source { return r.source }

// Plugins returns all definitions in catalog order.
func (r *Registry) Plugins() []manifest.PluginDefinition {
	out := make([]manifest.PluginDefinition, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// Plugin looks up a definition by id.
func (r *Registry) Plugin(id string) (manifest.PluginDefinition, bool) {
	for _, p := range r.plugins {
		if p.ID == id {
			return p, true
		}
	}
	return manifest.PluginDefinition{}, false
}

// PluginsForVariant returns the plugins offered for v, in catalog order.
func (r *Registry) PluginsForVariant(v manifest.Variant) []manifest.PluginDefinition {
	var out []manifest.PluginDefinition
	for _, p := range r.plugins {
		if p.Supports(v) {
			out = append(out, p)
		}
	}
	return out
}

// ValidatePlugin returns the definition for id if it is offered for v.
// The error is always an *outcome.Failure.
func (r *Registry) ValidatePlugin(id string, v manifest.Variant) (manifest.PluginDefinition, error) {
	p, ok := r.Plugin(id)
	if !ok {
		return manifest.PluginDefinition{}, outcome.Fail(outcome.PluginNotFound,
			"Plugin %q not found. Run `%s plugins list` to see available plugins.", id, branding.CLIName())
	}
	if !p.Supports(v) {
		return manifest.PluginDefinition{}, outcome.Fail(outcome.UnsupportedVariant,
			"Plugin %q is not available for the %s variant.", id, v)
	}
	return p, nil
}

// Options controls Load.
type Options struct {
	URL        string        // remote catalog URL; empty means bundled only
	CacheDir   string        // directory holding the cache file
	TTL        time.Duration // zero means DefaultTTL
	HTTPClient *http.Client
	Logger     *zap.Logger
	Now        func() time.Time
}

// cacheEntry is the on-disk cache record.
type cacheEntry struct {
	SourceURL string           `json:"source_url"`
	FetchedAt time.Time        `json:"fetched_at"`
	Catalog   manifest.Catalog `json:"catalog"`
}

// Load resolves the catalog. It never fails: every error path degrades to a
// stale cache or the bundled catalog.
func Load(ctx context.Context, opts Options) *Registry {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.URL == "" {
		return Bundled()
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	cached, err := readCache(opts.CacheDir)
	if err != nil {
		log.Debug("ignoring unreadable catalog cache", zap.Error(err))
	}
	if cached != nil && cached.SourceURL != opts.URL {
		cached = nil
	}
	if cached != nil && now().Sub(cached.FetchedAt) < ttl {
		return New(&cached.Catalog, SourceCache)
	}

	c, err := fetch(ctx, opts.HTTPClient, opts.URL)
	if err == nil {
		entry := &cacheEntry{SourceURL: opts.URL, FetchedAt: now(), Catalog: *c}
		if err := writeCache(opts.CacheDir, entry); err != nil {
			log.Debug("could not write catalog cache", zap.Error(err))
		}
		return New(c, SourceRemote)
	}

	log.Warn("catalog fetch failed", zap.String("url", opts.URL), zap.Error(err))
	if cached != nil {
		return New(&cached.Catalog, SourceStale)
	}
	return Bundled()
}

func fetch(ctx context.Context, client *http.Client, url string) (*manifest.Catalog, error) {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", branding.CLIName()+"-cli")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return manifest.ParseCatalog(body)
}

// readCache returns nil, nil when no cache file exists.
func readCache(dir string) (*cacheEntry, error) {
	if dir == "" {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, cacheFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog cache: %w", err)
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("parsing catalog cache: %w", err)
	}
	return &entry, nil
}

func writeCache(dir string, entry *cacheEntry) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling catalog cache: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, cacheFileName), data, 0644); err != nil {
		return fmt.Errorf("writing catalog cache: %w", err)
	}
	return nil
}
