// Package catalog queries the backend for searches and entity feeds and
// normalizes the loosely shaped payloads into provider types.
package catalog

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spofree/spofree/internal/failover"
	"github.com/tidwall/gjson"
)

const (
	DefaultSearchTimeout = 5 * time.Second
	DefaultFeedTimeout   = 10 * time.Second
	// feedLimit caps entities mined from an artist feed.
	feedLimit = 50
)

// Requester is the slice of the failover client the catalog needs.
type Requester interface {
	Request(ctx context.Context, endpoint string, timeout time.Duration) (*failover.Response, error)
}

type Options struct {
	SearchTimeout time.Duration
	FeedTimeout   time.Duration
	Logger        *slog.Logger
}

type Catalog struct {
	client Requester
	opts   Options
}

func New(client Requester, opts Options) *Catalog {
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultSearchTimeout
	}
	if opts.FeedTimeout <= 0 {
		opts.FeedTimeout = DefaultFeedTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Catalog{client: client, opts: opts}
}

// fetch returns the parsed body of a successful response. Failures of any
// kind collapse into ok=false; callers treat that as "no data".
func (c *Catalog) fetch(ctx context.Context, endpoint string, timeout time.Duration) (gjson.Result, bool) {
	resp, err := c.client.Request(ctx, endpoint, timeout)
	if err != nil {
		c.opts.Logger.Warn("catalog request failed", slog.String("endpoint", endpoint), slog.Any("err", err))
		return gjson.Result{}, false
	}
	if !resp.OK() {
		c.opts.Logger.Debug("catalog request rejected", slog.String("endpoint", endpoint), slog.Int("status", resp.StatusCode))
		return gjson.Result{}, false
	}
	if !gjson.ValidBytes(resp.Body) {
		c.opts.Logger.Debug("catalog response is not json", slog.String("endpoint", endpoint))
		return gjson.Result{}, false
	}
	return gjson.ParseBytes(resp.Body), true
}

// encodeComponent escapes s for a query value, spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
