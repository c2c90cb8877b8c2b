package catalog

import (
	"context"

	"github.com/samber/lo"
	"github.com/spofree/spofree/internal/provider"
	"github.com/tidwall/gjson"
)

// unwrapItems replaces {"item": {...}} wrappers with their inner object.
func unwrapItems(items []gjson.Result) []gjson.Result {
	return lo.Map(items, func(it gjson.Result, _ int) gjson.Result {
		if inner := it.Get("item"); inner.IsObject() {
			return inner
		}
		return it
	})
}

// AlbumTracks lists the tracks of an album. Failures yield an empty list.
func (c *Catalog) AlbumTracks(ctx context.Context, albumID string) []provider.Track {
	root, ok := c.fetch(ctx, "/album/?id="+encodeComponent(albumID), c.opts.FeedTimeout)
	if !ok {
		return nil
	}
	return parseTracks(unwrapItems(ExtractItems(root, "items")))
}

// PlaylistTracks lists the tracks of a remote playlist.
func (c *Catalog) PlaylistTracks(ctx context.Context, uuid string) []provider.Track {
	root, ok := c.fetch(ctx, "/playlist/?id="+encodeComponent(uuid), c.opts.FeedTimeout)
	if !ok {
		return nil
	}
	return parseTracks(unwrapItems(ExtractItems(root, "items")))
}

func (c *Catalog) artistFeed(ctx context.Context, artistID string) (gjson.Result, bool) {
	return c.fetch(ctx, "/artist/?f="+encodeComponent(artistID), c.opts.FeedTimeout)
}

// ArtistTopTracks mines track-like objects out of the artist feed.
func (c *Catalog) ArtistTopTracks(ctx context.Context, artistID string) []provider.Track {
	root, ok := c.artistFeed(ctx, artistID)
	if !ok {
		return nil
	}
	return TracksInFeed(root)
}

// ArtistAlbums mines album-like objects out of the artist feed.
func (c *Catalog) ArtistAlbums(ctx context.Context, artistID string) []provider.Album {
	root, ok := c.artistFeed(ctx, artistID)
	if !ok {
		return nil
	}
	return AlbumsInFeed(root)
}

func TracksInFeed(root gjson.Result) []provider.Track {
	return collect(root, TrackLike, ParseTrack, func(t provider.Track) string { return t.ID })
}

func AlbumsInFeed(root gjson.Result) []provider.Album {
	return collect(root, AlbumLike, ParseAlbum, func(a provider.Album) string { return a.ID })
}
