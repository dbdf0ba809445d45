// Package ddragon resolves Riot's Data Dragon CDN: the current asset version,
// versioned asset URLs and the champion id to key table.
package ddragon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"fiddlegg/internal/logging"
)

const (
	// DefaultBaseURL is the public Data Dragon host
	DefaultBaseURL = "https://ddragon.leagueoflegends.com"

	// FallbackVersion is served when version discovery fails
	FallbackVersion = "15.17.1"

	// VersionTTL is how long a discovered version stays current
	VersionTTL = 5 * time.Minute

	// DefaultTimeout bounds every CDN request
	DefaultTimeout = 5 * time.Second
)

var (
	ErrDecode          = errors.New("malformed CDN response")
	ErrMappingNotFound = errors.New("champion mapping not found")
	ErrInvalidAsset    = errors.New("invalid asset reference")
)

// Option configures the CDN-facing types in this package
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	fallback   string
	now        func() time.Time
	logger     logrus.FieldLogger
}

// WithBaseURL sets a custom CDN base URL (useful for testing)
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithHTTPClient replaces the HTTP client used for CDN requests
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithTimeout sets the per-request timeout for CDN calls
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithFallbackVersion overrides the version served when discovery fails
func WithFallbackVersion(v string) Option {
	return func(o *options) {
		o.fallback = v
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		fallback:   FallbackVersion,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}
	return o
}

// cdnClient performs bounded GET requests against the CDN
type cdnClient struct {
	httpClient *http.Client
	timeout    time.Duration
}

// getJSON fetches url and decodes the JSON body into result
func (c *cdnClient) getJSON(ctx context.Context, url string, result interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("CDN returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}
