package catalog

import (
	"strings"

	"github.com/samber/lo"
	"github.com/spofree/spofree/internal/provider"
	"github.com/tidwall/gjson"
)

const (
	unknownArtist = "Unknown Artist"
	unknownAlbum  = "Unknown Album"
	unknownUser   = "Unknown"
)

type ImageKind int

const (
	ImageCover ImageKind = iota
	ImageArtist
	ImagePlaylist
)

const (
	imageBase        = "https://resources.tidal.com/images/"
	PlaceholderImage = "https://via.placeholder.com/300?text=No+Image"
)

// ImageURL expands a backend image reference into a CDN URL.
func ImageURL(ref string, kind ImageKind) string {
	if ref == "" {
		return PlaceholderImage
	}
	size := "640x640"
	switch kind {
	case ImageArtist:
		size = "320x320"
	case ImagePlaylist:
		size = "480x320"
	}
	return imageBase + strings.ReplaceAll(ref, "-", "/") + "/" + size + ".jpg"
}

// truthy mirrors how the backend marks absent values: missing, null, false,
// zero and the empty string all count as absent.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	}
	return r.Exists()
}

// str returns the first truthy path as a string.
func str(item gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := item.Get(p); truthy(v) {
			return v.String()
		}
	}
	return ""
}

// ExtractItems unwraps a list envelope: an optional "data" wrapper, then
// root[key].items, root[key], root.items, or root itself when it is an array.
func ExtractItems(root gjson.Result, key string) []gjson.Result {
	if !root.Exists() {
		return nil
	}
	if data := root.Get("data"); truthy(data) {
		root = data
	}
	if key != "" && root.IsObject() {
		keyed := root.Get(key)
		if items := keyed.Get("items"); items.IsArray() {
			return items.Array()
		}
		if keyed.IsArray() {
			return keyed.Array()
		}
	}
	if items := root.Get("items"); root.IsObject() && items.IsArray() {
		return items.Array()
	}
	if root.IsArray() {
		return root.Array()
	}
	return nil
}

// ArtistName walks the attribution fallback chain used by every entity kind.
func ArtistName(item gjson.Result) string {
	if name := str(item, "artist.name", "artists.0.name", "creator.name", "mainArtist.name", "album.artist.name", "mix.artist.name"); name != "" {
		return name
	}
	return unknownArtist
}

func ArtistID(item gjson.Result) string {
	return str(item, "artist.id", "artists.0.id", "album.artist.id")
}

// ParseTrack normalizes a track-shaped item. Items without both id and title
// are rejected.
func ParseTrack(item gjson.Result) (provider.Track, bool) {
	if !truthy(item.Get("id")) || !truthy(item.Get("title")) {
		return provider.Track{}, false
	}
	quality := provider.Quality(str(item, "audioQuality"))
	if quality == "" {
		quality = provider.QualityLossless
	}
	album := item.Get("album")
	albumTitle := str(album, "title")
	if albumTitle == "" {
		albumTitle = unknownAlbum
	}
	return provider.Track{
		ID:    item.Get("id").String(),
		Title: item.Get("title").String(),
		Artist: provider.ArtistRef{
			ID:      ArtistID(item),
			Name:    ArtistName(item),
			Picture: ImageURL(str(item, "artist.picture", "artists.0.picture"), ImageArtist),
		},
		Album: provider.AlbumRef{
			ID:    str(album, "id"),
			Title: albumTitle,
			Cover: ImageURL(str(album, "cover"), ImageCover),
		},
		Duration: max(int(item.Get("duration").Int()), 0),
		Quality:  quality,
	}, true
}

func ParseAlbum(item gjson.Result) (provider.Album, bool) {
	if !truthy(item.Get("id")) || !truthy(item.Get("title")) {
		return provider.Album{}, false
	}
	return provider.Album{
		ID:    item.Get("id").String(),
		Title: item.Get("title").String(),
		Cover: ImageURL(str(item, "cover"), ImageCover),
		Artist: provider.ArtistRef{
			ID:   ArtistID(item),
			Name: ArtistName(item),
		},
		ReleaseDate: str(item, "releaseDate"),
	}, true
}

// ParseArtist rejects album-shaped items the backend mixes into artist results.
func ParseArtist(item gjson.Result) (provider.Artist, bool) {
	if !truthy(item.Get("id")) || !truthy(item.Get("name")) || truthy(item.Get("album")) {
		return provider.Artist{}, false
	}
	kind := str(item, "type")
	if kind == "" {
		kind = "MAIN"
	}
	return provider.Artist{
		ID:      item.Get("id").String(),
		Name:    item.Get("name").String(),
		Picture: ImageURL(str(item, "picture"), ImageArtist),
		Type:    kind,
	}, true
}

func ParsePlaylist(item gjson.Result) (provider.Playlist, bool) {
	if !truthy(item.Get("uuid")) || !truthy(item.Get("title")) {
		return provider.Playlist{}, false
	}
	creator := str(item, "creator.name")
	if creator == "" {
		creator = unknownUser
	}
	return provider.Playlist{
		UUID:        item.Get("uuid").String(),
		Title:       item.Get("title").String(),
		Description: str(item, "description"),
		Image:       ImageURL(str(item, "squareImage", "image"), ImageCover),
		Creator:     provider.Creator{Name: creator},
	}, true
}

func parseTracks(items []gjson.Result) []provider.Track {
	return lo.FilterMap(items, func(it gjson.Result, _ int) (provider.Track, bool) {
		return ParseTrack(it)
	})
}

func parseAlbums(items []gjson.Result) []provider.Album {
	return lo.FilterMap(items, func(it gjson.Result, _ int) (provider.Album, bool) {
		return ParseAlbum(it)
	})
}

func parseArtists(items []gjson.Result) []provider.Artist {
	artists := lo.FilterMap(items, func(it gjson.Result, _ int) (provider.Artist, bool) {
		return ParseArtist(it)
	})
	return lo.UniqBy(artists, func(a provider.Artist) string { return a.ID })
}

func parsePlaylists(items []gjson.Result) []provider.Playlist {
	return lo.FilterMap(items, func(it gjson.Result, _ int) (provider.Playlist, bool) {
		return ParsePlaylist(it)
	})
}
