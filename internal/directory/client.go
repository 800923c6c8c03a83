// Package directory fetches add-on listings from the Vaadin directory.
package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dnswlt/dirsearch/internal/api"
)

const (
	DefaultURL       = "https://vaadin.com/Directory/resource/addon/all"
	DefaultTimeout   = 30 * time.Second
	DefaultCacheSize = 8
	DefaultCacheTTL  = time.Hour
)

var (
	// ErrCatalogUnavailable is returned (wrapped) if the directory cannot be
	// reached, times out, or answers with a non-200 status.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrCatalogDecode is returned (wrapped) if the response is not a valid listing.
	ErrCatalogDecode = errors.New("catalog response invalid")
)

// Client fetches listings per framework version. If a cache directory is
// configured, successful responses are kept on disk and reused by later
// clients for the same URL until they expire. A Client is safe for
// concurrent use.
type Client struct {
	baseURL   string
	client    *http.Client
	decoder   *api.Decoder
	cacheDir  string
	cacheTTL  time.Duration
	cacheSize int
	cache     *listingCache // nil if caching is disabled
}

type ClientOption func(*Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout sets the timeout of a whole request, including reading the body.
// Zero or negative values select DefaultTimeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.client.Timeout = timeout
	}
}

// WithCacheDir enables the listing cache below dir. Cached listings older
// than ttl are fetched again. An empty dir disables caching, a zero or
// negative ttl selects DefaultCacheTTL.
func WithCacheDir(dir string, ttl time.Duration) ClientOption {
	return func(c *Client) {
		if ttl <= 0 {
			ttl = DefaultCacheTTL
		}
		c.cacheDir = dir
		c.cacheTTL = ttl
	}
}

// WithCacheSize sets the number of listings kept in the cache directory.
// Zero or negative values select DefaultCacheSize.
func WithCacheSize(n int) ClientOption {
	return func(c *Client) {
		if n <= 0 {
			n = DefaultCacheSize
		}
		c.cacheSize = n
	}
}

func WithDecodeOptions(opts api.DecodeOptions) ClientOption {
	return func(c *Client) {
		c.decoder = api.NewDecoder(opts)
	}
}

// NewClient creates a client for the listing endpoint at baseURL.
// An empty baseURL selects DefaultURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid catalog URL %q: %v", baseURL, err)
	}
	c := &Client{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: DefaultTimeout},
		decoder:   api.NewDecoder(api.DefaultDecodeOptions),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cacheDir != "" {
		cache, err := openListingCache(cacheSubdir(c.cacheDir, baseURL), c.cacheSize, c.cacheTTL)
		if err != nil {
			return nil, err
		}
		c.cache = cache
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// List returns all add-ons compatible with the given framework version
// (e.g. "7"). An empty version lists add-ons for all versions.
func (c *Client) List(ctx context.Context, frameworkVersion string) (*api.Listing, error) {
	if c.cache != nil {
		if data, ok := c.cache.get(frameworkVersion); ok {
			listing, err := c.decoder.DecodeBytes(data)
			if err == nil {
				log.Debugf("Using cached listing for framework version %q", frameworkVersion)
				return listing, nil
			}
			log.Warnf("Discarding invalid cached listing: %v", err)
			c.cache.remove(frameworkVersion)
		}
	}

	u, err := c.listURL(frameworkVersion)
	if err != nil {
		return nil, err
	}
	data, err := c.fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	listing, err := c.decoder.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogDecode, err)
	}

	if c.cache != nil {
		if err := c.cache.put(frameworkVersion, data); err != nil {
			log.Warnf("Failed to cache listing: %v", err)
		}
	}
	return listing, nil
}

func (c *Client) listURL(frameworkVersion string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid catalog URL %q: %v", c.baseURL, err)
	}
	q := u.Query()
	q.Set("detailed", "true")
	if frameworkVersion != "" {
		q.Set("vaadin", frameworkVersion)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// fetch performs an HTTP GET and returns the response body.
func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, u)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", u, err)
	}
	return data, nil
}
