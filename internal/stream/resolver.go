package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spofree/spofree/internal/failover"
	"github.com/spofree/spofree/internal/manifest"
	"github.com/spofree/spofree/internal/provider"
	"github.com/tidwall/gjson"
)

const DefaultTimeout = 15 * time.Second

// directURLFields are checked in this order on every item.
var directURLFields = []string{"OriginalTrackUrl", "originalTrackUrl", "url"}

// Requester is the slice of the failover client the resolver needs.
type Requester interface {
	Request(ctx context.Context, endpoint string, timeout time.Duration) (*failover.Response, error)
}

// QualitySource supplies the preferred tier. It is read on every Resolve so
// settings changes apply to the next track.
type QualitySource interface {
	Quality() provider.Quality
}

// FixedQuality is a QualitySource that never changes.
type FixedQuality provider.Quality

func (q FixedQuality) Quality() provider.Quality { return provider.Quality(q) }

type Options struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// Resolver maps a track id to a playable URL, walking quality tiers.
type Resolver struct {
	client Requester
	prefs  QualitySource
	opts   Options
}

func NewResolver(client Requester, prefs QualitySource, opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if prefs == nil {
		prefs = FixedQuality(provider.QualityLossless)
	}
	return &Resolver{client: client, prefs: prefs, opts: opts}
}

// Tiers returns preferred followed by the remaining fallback tiers, each once.
func Tiers(preferred provider.Quality) []provider.Quality {
	if !preferred.Valid() {
		preferred = provider.QualityLossless
	}
	out := []provider.Quality{preferred}
	for _, q := range provider.FallbackQualities {
		if q != preferred {
			out = append(out, q)
		}
	}
	return out
}

// Resolve returns an https stream URL for trackID or
// provider.ErrStreamUnresolved once every tier has been tried.
func (r *Resolver) Resolve(ctx context.Context, trackID string) (string, error) {
	for _, tier := range Tiers(r.prefs.Quality()) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		endpoint := fmt.Sprintf("/track/?id=%s&quality=%s", url.QueryEscape(trackID), tier)
		resp, err := r.client.Request(ctx, endpoint, r.opts.Timeout)
		if err != nil {
			r.opts.Logger.Debug("track lookup failed", slog.String("track", trackID), slog.String("quality", string(tier)), slog.Any("err", err))
			continue
		}
		if !resp.OK() {
			continue
		}
		if u, ok := FromPayload(resp.Body); ok {
			r.opts.Logger.Info("resolved stream", slog.String("track", trackID), slog.String("quality", string(tier)))
			return u, nil
		}
	}
	return "", fmt.Errorf("track %s: %w", trackID, provider.ErrStreamUnresolved)
}

// FromPayload finds a playable URL in one track endpoint response. Direct URL
// fields win over manifests across all items.
func FromPayload(body []byte) (string, bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}
	items := Items(gjson.ParseBytes(body))
	for _, item := range items {
		for _, field := range directURLFields {
			v := item.Get(field)
			if v.Type == gjson.String && strings.HasPrefix(v.Str, "http") {
				return manifest.EnforceHTTPS(v.Str), true
			}
		}
	}
	for _, item := range items {
		m := item.Get("manifest")
		if m.Type != gjson.String || m.Str == "" {
			continue
		}
		if u, ok := manifest.Resolve(m.Str); ok {
			return u, true
		}
	}
	return "", false
}

// Items flattens the three payload shapes: a bare object, a bare array, or
// either of those under "data".
func Items(root gjson.Result) []gjson.Result {
	if data := root.Get("data"); root.IsObject() && data.Exists() {
		root = data
	}
	if root.IsArray() {
		return root.Array()
	}
	if root.IsObject() {
		return []gjson.Result{root}
	}
	return nil
}
