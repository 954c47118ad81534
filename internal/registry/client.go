package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitforge/kit/internal/branding"
	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/outcome"
)

const (
	defaultTimeout = 30 * time.Second
	maxPayloadSize = 32 << 20
)

// Client fetches registry items.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewClient returns a client for the registry at baseURL. An empty baseURL
// uses the default registry.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = branding.RegistryURL()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		Logger:     logger,
	}
}

// ItemURL returns the payload URL for a plugin.
func (c *Client) ItemURL(variant manifest.Variant, pluginID, identity string) string {
	q := url.Values{}
	q.Set("username", identity)
	return fmt.Sprintf("%s/%s/%s.json?%s",
		strings.TrimRight(c.BaseURL, "/"), url.PathEscape(string(variant)), url.PathEscape(pluginID), q.Encode())
}

// FetchItem retrieves the payload of pluginID for variant. Expected failures
// (bad status, empty or malformed payload) are returned as *outcome.Failure;
// transport errors are returned as-is.
func (c *Client) FetchItem(ctx context.Context, variant manifest.Variant, pluginID, identity string) (*manifest.RegistryItem, error) {
	endpoint := c.ItemURL(variant, pluginID, identity)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", branding.CLIName()+"-cli")

	c.logger().Debug("fetching registry item",
		zap.String("plugin", pluginID), zap.String("variant", string(variant)))

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching plugin %q: %w", pluginID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, outcome.Fail(outcome.RegistryFetchError,
			"Failed to fetch plugin registry for %q (%d): %s", pluginID, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		return nil, fmt.Errorf("reading registry response: %w", err)
	}

	item, err := manifest.ParseRegistryItem(body)
	if err != nil {
		return nil, outcome.Fail(outcome.InvalidPayload, "Registry payload for %q is invalid: %v", pluginID, err)
	}
	if len(item.Files) == 0 {
		return nil, outcome.Fail(outcome.RegistryFetchError, "Plugin %q has no files in the registry.", pluginID)
	}
	return item, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
