package mirror

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/debtower/pkg/cache"
	"github.com/matzehuels/debtower/pkg/errors"
	"github.com/matzehuels/debtower/pkg/observability"
)

const (
	// DefaultURL is the Debian CDN redirector.
	DefaultURL = "http://deb.debian.org/debian/"
	// DefaultTTL is how long a fetched index stays cached.
	DefaultTTL = 6 * time.Hour

	httpTimeout     = 5 * time.Minute
	defaultAttempts = 3
	defaultDelay    = time.Second
)

var (
	// ErrNotFound is returned when the mirror has no file at the requested path.
	ErrNotFound = errors.New(errors.ErrCodeNotFound, "file not found on mirror")

	// ErrNetwork is returned for transport failures and unexpected status codes.
	ErrNetwork = errors.New(errors.ErrCodeNetwork, "mirror request failed")
)

// Client fetches files from one mirror.
type Client struct {
	http     *http.Client
	base     string
	cache    cache.Cache
	ttl      time.Duration
	attempts int
	delay    time.Duration
	logger   *log.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithTTL sets how long fetched indexes are cached.
func WithTTL(ttl time.Duration) Option { return func(c *Client) { c.ttl = ttl } }

// WithRetry sets the attempt count and the initial backoff delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) { c.attempts, c.delay = attempts, delay }
}

// WithLogger sets the logger used for fetch progress.
func WithLogger(l *log.Logger) Option { return func(c *Client) { c.logger = l } }

// New creates a client for the mirror rooted at baseURL. A nil cache
// disables caching.
func New(baseURL string, c cache.Cache, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	cl := &Client{
		http:     &http.Client{Timeout: httpTimeout},
		base:     strings.TrimSuffix(baseURL, "/") + "/",
		cache:    cache.Namespace(c, "mirror:"),
		ttl:      DefaultTTL,
		attempts: defaultAttempts,
		delay:    defaultDelay,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl, nil
}

// BaseURL returns the mirror root with a trailing slash.
func (c *Client) BaseURL() string { return c.base }

// FetchIndex downloads and decompresses the index named by ref. The
// compressed bytes are cached; refresh skips the cache lookup but still
// stores the new response.
func (c *Client) FetchIndex(ctx context.Context, ref IndexRef, refresh bool) ([]byte, error) {
	p := ref.Path()
	key := c.base + p

	var raw []byte
	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, key); ok {
			c.logger.Debug("index cache hit", "index", ref)
			observability.Cache().OnCacheHit(ctx, "index")
			raw = data
		} else {
			observability.Cache().OnCacheMiss(ctx, "index")
		}
	}
	if raw == nil {
		c.logger.Info("fetching index", "url", c.base+p)
		data, err := c.Fetch(ctx, p)
		if err != nil {
			return nil, err
		}
		raw = data
		if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
			c.logger.Warn("cache write failed", "index", ref, "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "index", len(raw))
		}
	}

	text, err := Decompress(raw)
	if err != nil {
		_ = c.cache.Delete(ctx, key)
		return nil, err
	}
	c.logger.Debug("index decompressed", "index", ref, "compressed", len(raw), "size", len(text))
	return text, nil
}

// Fetch downloads the file at rel (relative to the mirror root) with retries.
func (c *Client) Fetch(ctx context.Context, rel string) ([]byte, error) {
	var data []byte
	err := Retry(ctx, c.attempts, c.delay, func() error {
		body, err := c.doRequest(ctx, c.base+rel)
		if err != nil {
			return err
		}
		defer body.Close()
		data, err = io.ReadAll(body)
		if err != nil {
			return &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "read %s", rel)}
		}
		return nil
	})
	return data, err
}

// Download saves the pool file at rel into dir and returns the local path.
// Pool files are not cached.
func (c *Client) Download(ctx context.Context, rel, dir string) (string, error) {
	if err := errors.ValidatePoolPath(rel); err != nil {
		return "", err
	}
	dest := filepath.Join(dir, path.Base(rel))

	err := Retry(ctx, c.attempts, c.delay, func() error {
		body, err := c.doRequest(ctx, c.base+rel)
		if err != nil {
			return err
		}
		defer body.Close()

		f, err := os.Create(dest)
		if err != nil {
			return errors.Wrap(errors.ErrCodeStorage, err, "create %s", dest)
		}
		if _, err := io.Copy(f, body); err != nil {
			f.Close()
			return &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "download %s", rel)}
		}
		return f.Close()
	})
	if err != nil {
		_ = os.Remove(dest)
		return "", err
	}
	return dest, nil
}

func (c *Client) doRequest(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, url)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, url, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}

	hooks.OnResponse(ctx, req.Method, url, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode, url); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(code int, url string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	case code >= 500:
		return &RetryableError{Err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// IsNotFound reports whether err means the file does not exist on the mirror.
func IsNotFound(err error) bool { return stderrors.Is(err, ErrNotFound) }
