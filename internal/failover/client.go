package failover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spofree/spofree/internal/provider"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const DefaultTimeout = 10 * time.Second

// Options configures the Client.
type Options struct {
	Instances  []string
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Limiter throttles outgoing attempts. Nil means unthrottled.
	Limiter *rate.Limiter
}

// Response is a fully read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Instance   string
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client issues GET requests against a pool of interchangeable instances.
// The rotation pointer lives as long as the Client: a call starts on whichever
// instance the previous call ended on.
type Client struct {
	opts      Options
	instances []string
	client    *http.Client

	mu      sync.Mutex
	current int
}

func New(opts Options) (*Client, error) {
	if len(opts.Instances) == 0 {
		return nil, fmt.Errorf("no api instances: %w", provider.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c := &Client{
		opts:      opts,
		instances: append([]string(nil), opts.Instances...),
		client:    opts.HTTPClient,
	}
	if c.client == nil {
		c.client = &http.Client{}
	}
	return c, nil
}

// Current returns the base URL the next request will start on.
func (c *Client) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instances[c.current]
}

// Index returns the rotation pointer.
func (c *Client) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Instances returns the configured base URLs in rotation order.
func (c *Client) Instances() []string {
	return append([]string(nil), c.instances...)
}

func (c *Client) base() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instances[c.current]
}

func (c *Client) rotate() {
	c.mu.Lock()
	c.current = (c.current + 1) % len(c.instances)
	next := c.instances[c.current]
	c.mu.Unlock()
	c.opts.Logger.Warn("switching api instance", slog.String("instance", next))
}

// Request performs GET endpoint against the instance at the pointer. A 429,
// a 5xx, a transport error or a timeout rotates to the next instance and
// retries immediately; any other response is returned as is. After one
// attempt per instance it fails with provider.ErrAllInstancesExhausted.
func (c *Client) Request(ctx context.Context, endpoint string, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var lastErr error
	for attempt := 0; attempt < len(c.instances); attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.opts.Limiter != nil {
			if err := c.opts.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		base := c.base()
		resp, err := c.do(ctx, joinURL(base, endpoint), timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.opts.Logger.Debug("api attempt failed", slog.String("instance", base), slog.Any("err", err))
			lastErr = err
			c.rotate()
			continue
		}
		if retryable(resp.StatusCode) {
			lastErr = classify(resp.StatusCode)
			c.opts.Logger.Debug("api attempt rejected", slog.String("instance", base), slog.Int("status", resp.StatusCode))
			c.rotate()
			continue
		}
		resp.Instance = base
		return resp, nil
	}
	return nil, errors.Join(provider.ErrAllInstancesExhausted, lastErr)
}

// ProbeResult is the outcome of checking a single instance.
type ProbeResult struct {
	Instance string
	Status   int
	Latency  time.Duration
	Err      error
}

// Probe requests endpoint once on every instance concurrently. The rotation
// pointer is not touched. A status that would rotate a Request is reported
// as an error.
func (c *Client) Probe(ctx context.Context, endpoint string, timeout time.Duration) []ProbeResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	results := make([]ProbeResult, len(c.instances))
	var g errgroup.Group
	for i, base := range c.instances {
		g.Go(func() error {
			start := time.Now()
			resp, err := c.do(ctx, joinURL(base, endpoint), timeout)
			r := ProbeResult{Instance: base, Latency: time.Since(start), Err: err}
			if resp != nil {
				r.Status = resp.StatusCode
				if retryable(resp.StatusCode) {
					r.Err = classify(resp.StatusCode)
				}
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Client) do(ctx context.Context, url string, timeout time.Duration) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, mapHTTPError(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mapHTTPError(err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func classify(status int) error {
	if status == http.StatusTooManyRequests {
		return provider.ErrRateLimited
	}
	return fmt.Errorf("http status %d: %w", status, provider.ErrTemporary)
}

func mapHTTPError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, provider.ErrTemporary)
	}
	return err
}

func joinURL(base, endpoint string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(endpoint, "/")
}
