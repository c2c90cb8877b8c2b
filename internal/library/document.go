package library

import "github.com/spofree/spofree/internal/provider"

const (
	DefaultAccentColor = "#1db954"

	maxRecentlyPlayed = 20
	maxHistory        = 10
)

// Settings are independent user preferences. No field constrains another.
type Settings struct {
	Quality             provider.Quality `json:"audioQuality"`
	AccentColor         string           `json:"accentColor"`
	ShowVisualizer      bool             `json:"showVisualizer"`
	ShowStats           bool             `json:"showStats"`
	CompactMode         bool             `json:"compactMode"`
	ReducedMotion       bool             `json:"reducedMotion"`
	GrayscaleMode       bool             `json:"grayscaleMode"`
	SquareAvatars       bool             `json:"squareAvatars"`
	HighPerformanceMode bool             `json:"highPerformanceMode"`
	DisableGlow         bool             `json:"disableGlow"`
	UpdateTitle         bool             `json:"updateTitle"`
}

func DefaultSettings() Settings {
	return Settings{
		Quality:        provider.QualityLossless,
		AccentColor:    DefaultAccentColor,
		ShowVisualizer: true,
		UpdateTitle:    true,
	}
}

// Document is the persisted library. Settings are stored flat alongside the
// collections.
type Document struct {
	LikedSongs      []provider.Track              `json:"likedSongs"`
	Playlists       []provider.Playlist           `json:"playlists"`
	SavedAlbums     []provider.Album              `json:"savedAlbums"`
	FollowedArtists []provider.Artist             `json:"followedArtists"`
	SearchHistory   []string                      `json:"searchHistory"`
	RecentlyPlayed  []provider.RecentlyPlayedItem `json:"recentlyPlayed"`
	Settings
}

// defaultDocument is the base every load is merged onto. Fields missing from
// the stored JSON keep these values.
func defaultDocument() Document {
	return Document{
		LikedSongs:      []provider.Track{},
		Playlists:       []provider.Playlist{},
		SavedAlbums:     []provider.Album{},
		FollowedArtists: []provider.Artist{},
		SearchHistory:   []string{},
		RecentlyPlayed:  []provider.RecentlyPlayedItem{},
		Settings:        DefaultSettings(),
	}
}
