package catalog

import (
	"context"
	"strings"

	"github.com/spofree/spofree/internal/provider"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// Category selects one search endpoint via its query discriminator.
type Category string

const (
	CategoryTracks    Category = "s"
	CategoryAlbums    Category = "al"
	CategoryArtists   Category = "a"
	CategoryPlaylists Category = "p"
)

// envelopeKey is the key a category's items may be nested under.
func (c Category) envelopeKey() string {
	switch c {
	case CategoryTracks:
		return "tracks"
	case CategoryAlbums:
		return "albums"
	case CategoryArtists:
		return "artists"
	case CategoryPlaylists:
		return "playlists"
	}
	return ""
}

func searchEndpoint(c Category, query string) string {
	return "/search/?" + string(c) + "=" + encodeComponent(query)
}

// SearchAll queries all four categories concurrently. A category that fails
// comes back empty without affecting the others. A blank query makes no
// request at all.
func (c *Catalog) SearchAll(ctx context.Context, query string) provider.SearchResults {
	query = strings.TrimSpace(query)
	if query == "" {
		return provider.SearchResults{}
	}

	var (
		res provider.SearchResults
		g   errgroup.Group
	)
	g.Go(func() error {
		res.Tracks = parseTracks(c.searchItems(ctx, CategoryTracks, query))
		return nil
	})
	g.Go(func() error {
		res.Albums = parseAlbums(c.searchItems(ctx, CategoryAlbums, query))
		return nil
	})
	g.Go(func() error {
		res.Artists = parseArtists(c.searchItems(ctx, CategoryArtists, query))
		return nil
	})
	g.Go(func() error {
		res.Playlists = parsePlaylists(c.searchItems(ctx, CategoryPlaylists, query))
		return nil
	})
	_ = g.Wait()
	return res
}

// searchItems queries one category and returns its raw items.
func (c *Catalog) searchItems(ctx context.Context, cat Category, query string) []gjson.Result {
	root, ok := c.fetch(ctx, searchEndpoint(cat, query), c.opts.SearchTimeout)
	if !ok {
		return nil
	}
	return ExtractItems(root, cat.envelopeKey())
}

// SearchTracks returns only the track category. Used to match free text to a
// single track.
func (c *Catalog) SearchTracks(ctx context.Context, query string) []provider.Track {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	return parseTracks(c.searchItems(ctx, CategoryTracks, query))
}
