// Package library owns the user's collections and settings. Every call reads
// the persisted document fresh, applies its change and writes it back; there
// is no longer-lived cache.
package library

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spofree/spofree/internal/provider"
)

const (
	placeholderPrefix = "https://via.placeholder.com/300?text="
	ownerName         = "You"
)

type Options struct {
	Logger *slog.Logger
	// Now is a test seam for timestamps.
	Now func() time.Time
}

type Store struct {
	backend Backend
	opts    Options
	// mu serializes read-modify-write sequences.
	mu sync.Mutex
}

func Open(backend Backend, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{backend: backend, opts: opts}
}

// load reads the document and merges it onto the defaults. Unparseable data
// resets the whole document to defaults.
func (s *Store) load(ctx context.Context) (Document, error) {
	doc := defaultDocument()
	raw, err := s.backend.Load(ctx)
	if err != nil {
		return doc, err
	}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.opts.Logger.Debug("library document corrupt, resetting", slog.Any("err", err))
		return defaultDocument(), nil
	}
	return doc, nil
}

func (s *Store) save(ctx context.Context, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal library: %w", err)
	}
	return s.backend.Save(ctx, data)
}

// update runs fn against a fresh document and saves it when fn reports a
// change.
func (s *Store) update(ctx context.Context, fn func(doc *Document) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if !fn(&doc) {
		return nil
	}
	return s.save(ctx, doc)
}

func (s *Store) snapshot(ctx context.Context) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// toggle removes item when its id is present, otherwise prepends it.
func toggle[T any](list []T, item T, id func(T) string) ([]T, bool) {
	key := id(item)
	match := func(v T) bool { return id(v) == key }
	if lo.ContainsBy(list, match) {
		return lo.Reject(list, func(v T, _ int) bool { return match(v) }), false
	}
	return append([]T{item}, list...), true
}

func trackID(t provider.Track) string { return t.ID }
func albumID(a provider.Album) string { return a.ID }
func artistID(a provider.Artist) string { return a.ID }
func playlistUUID(p provider.Playlist) string { return p.UUID }

// ToggleLikeSong likes or unlikes track and reports whether it is now liked.
func (s *Store) ToggleLikeSong(ctx context.Context, track provider.Track) (bool, error) {
	var present bool
	err := s.update(ctx, func(doc *Document) bool {
		doc.LikedSongs, present = toggle(doc.LikedSongs, track, trackID)
		return true
	})
	return present, err
}

func (s *Store) ToggleSaveAlbum(ctx context.Context, album provider.Album) (bool, error) {
	var present bool
	err := s.update(ctx, func(doc *Document) bool {
		doc.SavedAlbums, present = toggle(doc.SavedAlbums, album, albumID)
		return true
	})
	return present, err
}

func (s *Store) ToggleFollowArtist(ctx context.Context, artist provider.Artist) (bool, error) {
	var present bool
	err := s.update(ctx, func(doc *Document) bool {
		doc.FollowedArtists, present = toggle(doc.FollowedArtists, artist, artistID)
		return true
	})
	return present, err
}

// SavePlaylist saves or forgets a playlist by uuid. IsLocal is stored as given.
func (s *Store) SavePlaylist(ctx context.Context, playlist provider.Playlist) (bool, error) {
	var present bool
	err := s.update(ctx, func(doc *Document) bool {
		doc.Playlists, present = toggle(doc.Playlists, playlist, playlistUUID)
		return true
	})
	return present, err
}

func placeholderFor(title string) string {
	return placeholderPrefix + strings.ReplaceAll(url.QueryEscape(title), "+", "%20")
}

func isPlaceholder(image string) bool {
	return strings.Contains(image, "placeholder")
}

func newPlaylist(title string) provider.Playlist {
	return provider.Playlist{
		UUID:    uuid.NewString(),
		Title:   title,
		Image:   placeholderFor(title),
		Creator: provider.Creator{Name: ownerName},
		IsLocal: true,
		Tracks:  []provider.Track{},
	}
}

// CreatePlaylist appends a new empty user-owned playlist.
func (s *Store) CreatePlaylist(ctx context.Context, title string) (provider.Playlist, error) {
	p := newPlaylist(title)
	err := s.update(ctx, func(doc *Document) bool {
		doc.Playlists = append(doc.Playlists, p)
		return true
	})
	if err != nil {
		return provider.Playlist{}, err
	}
	return p, nil
}

// SaveQueueAsPlaylist creates a user-owned playlist holding tracks.
func (s *Store) SaveQueueAsPlaylist(ctx context.Context, title string, tracks []provider.Track) (provider.Playlist, error) {
	p := newPlaylist(title)
	p.Tracks = lo.UniqBy(tracks, trackID)
	if len(p.Tracks) > 0 && p.Tracks[0].Album.Cover != "" {
		p.Image = p.Tracks[0].Album.Cover
	}
	err := s.update(ctx, func(doc *Document) bool {
		doc.Playlists = append(doc.Playlists, p)
		return true
	})
	if err != nil {
		return provider.Playlist{}, err
	}
	return p, nil
}

// editPlaylist applies fn to the playlist with uuid, or fails with
// ErrNotFound.
func (s *Store) editPlaylist(ctx context.Context, id string, fn func(p *provider.Playlist) bool) error {
	found := false
	err := s.update(ctx, func(doc *Document) bool {
		_, i, ok := lo.FindIndexOf(doc.Playlists, func(p provider.Playlist) bool { return p.UUID == id })
		if !ok {
			return false
		}
		found = true
		return fn(&doc.Playlists[i])
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("playlist %s: %w", id, provider.ErrNotFound)
	}
	return nil
}

// AddTrackToPlaylist appends track unless the playlist already holds it. A
// playlist still showing its placeholder adopts the track's album cover.
func (s *Store) AddTrackToPlaylist(ctx context.Context, playlistID string, track provider.Track) error {
	return s.editPlaylist(ctx, playlistID, func(p *provider.Playlist) bool {
		if lo.ContainsBy(p.Tracks, func(t provider.Track) bool { return t.ID == track.ID }) {
			return false
		}
		p.Tracks = append(p.Tracks, track)
		if isPlaceholder(p.Image) && track.Album.Cover != "" {
			p.Image = track.Album.Cover
		}
		return true
	})
}

// PlaylistUpdate carries optional replacements; nil fields are left alone.
type PlaylistUpdate struct {
	Title       *string
	Description *string
	Image       *string
}

func (s *Store) UpdatePlaylist(ctx context.Context, playlistID string, u PlaylistUpdate) error {
	return s.editPlaylist(ctx, playlistID, func(p *provider.Playlist) bool {
		if u.Title != nil {
			p.Title = *u.Title
		}
		if u.Description != nil {
			p.Description = *u.Description
		}
		if u.Image != nil {
			p.Image = *u.Image
		}
		return true
	})
}

// SetPlaylistTracks replaces the track list, e.g. after a reorder or removal.
func (s *Store) SetPlaylistTracks(ctx context.Context, playlistID string, tracks []provider.Track) error {
	return s.editPlaylist(ctx, playlistID, func(p *provider.Playlist) bool {
		p.Tracks = append([]provider.Track{}, tracks...)
		if isPlaceholder(p.Image) && len(tracks) > 0 {
			p.Image = tracks[0].Album.Cover
		}
		return true
	})
}

// DeletePlaylist removes the playlist. Unknown ids are ignored.
func (s *Store) DeletePlaylist(ctx context.Context, playlistID string) error {
	return s.update(ctx, func(doc *Document) bool {
		before := len(doc.Playlists)
		doc.Playlists = lo.Reject(doc.Playlists, func(p provider.Playlist, _ int) bool { return p.UUID == playlistID })
		return len(doc.Playlists) != before
	})
}

// AddToRecentlyPlayed moves item to the front, replacing any entry with the
// same natural id, and keeps the newest 20.
func (s *Store) AddToRecentlyPlayed(ctx context.Context, item provider.RecentlyPlayedItem) error {
	if item.Timestamp == 0 {
		item.Timestamp = s.opts.Now().UnixMilli()
	}
	key := item.NaturalID()
	return s.update(ctx, func(doc *Document) bool {
		rest := lo.Reject(doc.RecentlyPlayed, func(i provider.RecentlyPlayedItem, _ int) bool { return i.NaturalID() == key })
		doc.RecentlyPlayed = append([]provider.RecentlyPlayedItem{item}, rest...)
		if len(doc.RecentlyPlayed) > maxRecentlyPlayed {
			doc.RecentlyPlayed = doc.RecentlyPlayed[:maxRecentlyPlayed]
		}
		return true
	})
}

// AddToHistory records a search query, most recent first. Queries differing
// only in case collapse into the newest spelling.
func (s *Store) AddToHistory(ctx context.Context, query string) error {
	return s.update(ctx, func(doc *Document) bool {
		rest := lo.Reject(doc.SearchHistory, func(q string, _ int) bool { return strings.EqualFold(q, query) })
		doc.SearchHistory = append([]string{query}, rest...)
		if len(doc.SearchHistory) > maxHistory {
			doc.SearchHistory = doc.SearchHistory[:maxHistory]
		}
		return true
	})
}

func (s *Store) LikedSongs(ctx context.Context) ([]provider.Track, error) {
	doc, err := s.snapshot(ctx)
	return doc.LikedSongs, err
}

func (s *Store) SavedAlbums(ctx context.Context) ([]provider.Album, error) {
	doc, err := s.snapshot(ctx)
	return doc.SavedAlbums, err
}

func (s *Store) FollowedArtists(ctx context.Context) ([]provider.Artist, error) {
	doc, err := s.snapshot(ctx)
	return doc.FollowedArtists, err
}

func (s *Store) Playlists(ctx context.Context) ([]provider.Playlist, error) {
	doc, err := s.snapshot(ctx)
	return doc.Playlists, err
}

func (s *Store) Playlist(ctx context.Context, playlistID string) (provider.Playlist, error) {
	doc, err := s.snapshot(ctx)
	if err != nil {
		return provider.Playlist{}, err
	}
	p, ok := lo.Find(doc.Playlists, func(p provider.Playlist) bool { return p.UUID == playlistID })
	if !ok {
		return provider.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, provider.ErrNotFound)
	}
	return p, nil
}

func (s *Store) History(ctx context.Context) ([]string, error) {
	doc, err := s.snapshot(ctx)
	return doc.SearchHistory, err
}

func (s *Store) RecentlyPlayed(ctx context.Context) ([]provider.RecentlyPlayedItem, error) {
	doc, err := s.snapshot(ctx)
	return doc.RecentlyPlayed, err
}

func (s *Store) IsLiked(ctx context.Context, id string) bool {
	doc, _ := s.snapshot(ctx)
	return lo.ContainsBy(doc.LikedSongs, func(t provider.Track) bool { return t.ID == id })
}

func (s *Store) IsAlbumSaved(ctx context.Context, id string) bool {
	doc, _ := s.snapshot(ctx)
	return lo.ContainsBy(doc.SavedAlbums, func(a provider.Album) bool { return a.ID == id })
}

func (s *Store) IsArtistFollowed(ctx context.Context, id string) bool {
	doc, _ := s.snapshot(ctx)
	return lo.ContainsBy(doc.FollowedArtists, func(a provider.Artist) bool { return a.ID == id })
}

func (s *Store) IsPlaylistSaved(ctx context.Context, id string) bool {
	doc, _ := s.snapshot(ctx)
	return lo.ContainsBy(doc.Playlists, func(p provider.Playlist) bool { return p.UUID == id })
}
