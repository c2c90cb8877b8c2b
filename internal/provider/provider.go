package provider

import "time"

// Quality is an audio fidelity tier requested from the backend.
type Quality string

const (
	QualityLossless Quality = "LOSSLESS"
	QualityHigh     Quality = "HIGH"
	QualityLow      Quality = "LOW"
	QualityHiRes    Quality = "HI_RES"
	// QualityLocal marks tracks imported from local files; they are never resolved.
	QualityLocal Quality = "LOCAL"
)

// FallbackQualities is the fixed order tried after the preferred tier.
var FallbackQualities = []Quality{QualityLossless, QualityHigh, QualityLow, QualityHiRes}

// Valid reports whether q is a tier the backend understands.
func (q Quality) Valid() bool {
	for _, f := range FallbackQualities {
		if q == f {
			return true
		}
	}
	return false
}

type ArtistRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

type AlbumRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Cover string `json:"cover"`
}

type Track struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Artist    ArtistRef `json:"artist"`
	Album     AlbumRef  `json:"album"`
	Duration  int       `json:"duration"`
	Quality   Quality   `json:"quality"`
	StreamURL string    `json:"streamUrl,omitempty"`
}

type Album struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Cover       string    `json:"cover"`
	Artist      ArtistRef `json:"artist"`
	ReleaseDate string    `json:"releaseDate,omitempty"`
}

type Artist struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Type    string `json:"type,omitempty"`
}

type Creator struct {
	Name string `json:"name"`
}

type Playlist struct {
	UUID        string  `json:"uuid"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Creator     Creator `json:"creator"`
	IsLocal     bool    `json:"isLocal"`
	Tracks      []Track `json:"tracks"`
}

// Kind tags the payload of a RecentlyPlayedItem.
type Kind string

const (
	KindTrack    Kind = "TRACK"
	KindAlbum    Kind = "ALBUM"
	KindArtist   Kind = "ARTIST"
	KindPlaylist Kind = "PLAYLIST"
)

// RecentlyPlayedItem carries exactly one payload matching Kind.
type RecentlyPlayedItem struct {
	Kind      Kind      `json:"type"`
	Track     *Track    `json:"track,omitempty"`
	Album     *Album    `json:"album,omitempty"`
	Artist    *Artist   `json:"artist,omitempty"`
	Playlist  *Playlist `json:"playlist,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

func RecentTrack(t Track, at time.Time) RecentlyPlayedItem {
	return RecentlyPlayedItem{Kind: KindTrack, Track: &t, Timestamp: at.UnixMilli()}
}

func RecentAlbum(a Album, at time.Time) RecentlyPlayedItem {
	return RecentlyPlayedItem{Kind: KindAlbum, Album: &a, Timestamp: at.UnixMilli()}
}

func RecentArtist(a Artist, at time.Time) RecentlyPlayedItem {
	return RecentlyPlayedItem{Kind: KindArtist, Artist: &a, Timestamp: at.UnixMilli()}
}

func RecentPlaylist(p Playlist, at time.Time) RecentlyPlayedItem {
	return RecentlyPlayedItem{Kind: KindPlaylist, Playlist: &p, Timestamp: at.UnixMilli()}
}

// NaturalID returns the identity used to dedupe recent activity: the track,
// album or artist id, or the playlist uuid.
func (i RecentlyPlayedItem) NaturalID() string {
	switch {
	case i.Track != nil:
		return i.Track.ID
	case i.Album != nil:
		return i.Album.ID
	case i.Artist != nil:
		return i.Artist.ID
	case i.Playlist != nil:
		return i.Playlist.UUID
	}
	return ""
}

// Title is a display label for whichever payload the item carries.
func (i RecentlyPlayedItem) Title() string {
	switch {
	case i.Track != nil:
		return i.Track.Title
	case i.Album != nil:
		return i.Album.Title
	case i.Artist != nil:
		return i.Artist.Name
	case i.Playlist != nil:
		return i.Playlist.Title
	}
	return ""
}

// SearchResults groups the four search categories.
type SearchResults struct {
	Tracks    []Track    `json:"tracks"`
	Albums    []Album    `json:"albums"`
	Artists   []Artist   `json:"artists"`
	Playlists []Playlist `json:"playlists"`
}

func (r SearchResults) Empty() bool {
	return len(r.Tracks) == 0 && len(r.Albums) == 0 && len(r.Artists) == 0 && len(r.Playlists) == 0
}
