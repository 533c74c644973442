package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"catalog/crawler/internal/config"
	"catalog/crawler/internal/proxy"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// ErrFetchFailed covers transport errors and non-2xx responses.
var ErrFetchFailed = errors.New("fetch failed")

// SourceClient fetches pages of the catalog site, one request at a time.
type SourceClient interface {
	FetchHTML(ctx context.Context, url string) (string, error)
	Requests() int
	Close() error
}

type sourceClient struct {
	mu          sync.Mutex
	rl          ratelimit.Limiter
	clock       clock.Clock
	interval    time.Duration
	httpClient  *resty.Client
	proxies     proxy.Supplier
	activeProxy string

	lastDone time.Time
	requests int
}

type Option func(*sourceClient)

// WithProxySupplier routes each request through the next proxy of s.
func WithProxySupplier(s proxy.Supplier) Option {
	return func(c *sourceClient) {
		c.proxies = s
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(clk clock.Clock) Option {
	return func(c *sourceClient) {
		c.clock = clk
	}
}

// NewSourceClient builds the throttled fetcher. Every call waits until
// cfg.Interval has elapsed since the previous call finished, successful or not.
func NewSourceClient(cfg config.SourceConfig, opts ...Option) SourceClient {
	c := &sourceClient{
		clock:    clock.New(),
		interval: cfg.Interval,
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.MaxRequestsPerSecond > 0 {
		c.rl = ratelimit.New(cfg.MaxRequestsPerSecond, ratelimit.WithClock(c.clock))
	} else {
		c.rl = ratelimit.NewUnlimited()
	}

	httpClient := resty.New().SetRetryCount(0)
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}
	if cfg.UserAgent != "" {
		httpClient.SetHeader("User-Agent", cfg.UserAgent)
	}
	c.httpClient = httpClient

	return c
}

func (c *sourceClient) FetchHTML(ctx context.Context, url string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.awaitGap(ctx); err != nil {
		return "", fmt.Errorf("request cancelled: %w", err)
	}

	c.rl.Take()
	c.rotateProxy()

	c.requests++
	defer func() {
		c.lastDone = c.clock.Now()
	}()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return "", fmt.Errorf("%w: GET %s: %v", ErrFetchFailed, url, err)
	}

	if code := resp.StatusCode(); code < 200 || code > 299 {
		return "", fmt.Errorf("%w: GET %s: HTTP %s", ErrFetchFailed, url, resp.Status())
	}

	log.Debugf("Fetched %s (%d bytes)", url, len(resp.String()))
	return resp.String(), nil
}

func (c *sourceClient) rotateProxy() {
	if c.proxies == nil {
		return
	}
	next := c.proxies.Get()
	if next == "" || next == c.activeProxy {
		return
	}
	c.httpClient.SetProxy(next)
	c.activeProxy = next
	log.Debugf("🔗 Using proxy: %s", next)
}

// awaitGap blocks until the post-request interval of the previous call is over.
func (c *sourceClient) awaitGap(ctx context.Context) error {
	if c.lastDone.IsZero() || c.interval <= 0 {
		return nil
	}

	wait := c.lastDone.Add(c.interval).Sub(c.clock.Now())
	if wait <= 0 {
		return nil
	}

	timer := c.clock.Timer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Requests returns how many requests were issued so far.
func (c *sourceClient) Requests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests
}

func (c *sourceClient) Close() error {
	return c.httpClient.Close()
}
