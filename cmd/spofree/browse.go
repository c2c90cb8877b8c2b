package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spofree/spofree/internal/library"
	"github.com/spofree/spofree/internal/provider"
)

// feeds is the part of the catalog the browse commands read.
type feeds interface {
	AlbumTracks(ctx context.Context, albumID string) []provider.Track
	PlaylistTracks(ctx context.Context, uuid string) []provider.Track
	ArtistTopTracks(ctx context.Context, artistID string) []provider.Track
	ArtistAlbums(ctx context.Context, artistID string) []provider.Album
}

func printTracks(w io.Writer, tracks []provider.Track) {
	for i, t := range tracks {
		fmt.Fprintf(w, "  %2d. %s  %s — %s (%s)\n", i+1, t.ID, t.Artist.Name, t.Title, formatSeconds(t.Duration))
	}
}

func formatSeconds(sec int) string {
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

// runAlbum prints an album's tracks. With save the album is toggled in the
// library; either way it is recorded as recently played.
func runAlbum(ctx context.Context, w io.Writer, f feeds, store *library.Store, id string, save bool) error {
	tracks := f.AlbumTracks(ctx, id)
	if len(tracks) == 0 {
		fmt.Fprintln(w, "No tracks")
		return nil
	}
	first := tracks[0]
	album := provider.Album{ID: id, Title: first.Album.Title, Cover: first.Album.Cover, Artist: first.Artist}
	if save {
		if _, err := store.ToggleSaveAlbum(ctx, album); err != nil {
			return err
		}
	}
	if err := store.AddToRecentlyPlayed(ctx, provider.RecentAlbum(album, time.Now())); err != nil {
		return err
	}
	mark := ""
	if store.IsAlbumSaved(ctx, id) {
		mark = " [saved]"
	}
	fmt.Fprintf(w, "%s — %s%s\n", album.Artist.Name, album.Title, mark)
	printTracks(w, tracks)
	return nil
}

// runArtist prints an artist's top tracks and albums. With save the artist is
// toggled as followed.
func runArtist(ctx context.Context, w io.Writer, f feeds, store *library.Store, id string, save bool) error {
	top := f.ArtistTopTracks(ctx, id)
	albums := f.ArtistAlbums(ctx, id)
	if len(top) == 0 && len(albums) == 0 {
		fmt.Fprintln(w, "Nothing found")
		return nil
	}
	artist := provider.Artist{ID: id}
	switch {
	case len(top) > 0:
		artist.Name, artist.Picture = top[0].Artist.Name, top[0].Artist.Picture
	default:
		artist.Name, artist.Picture = albums[0].Artist.Name, albums[0].Artist.Picture
	}
	if save {
		if _, err := store.ToggleFollowArtist(ctx, artist); err != nil {
			return err
		}
	}
	if err := store.AddToRecentlyPlayed(ctx, provider.RecentArtist(artist, time.Now())); err != nil {
		return err
	}
	mark := ""
	if store.IsArtistFollowed(ctx, id) {
		mark = " [following]"
	}
	fmt.Fprintf(w, "%s%s\n", artist.Name, mark)
	fmt.Fprintf(w, "Top tracks (%d)\n", len(top))
	printTracks(w, top)
	fmt.Fprintf(w, "Albums (%d)\n", len(albums))
	for _, a := range albums {
		fmt.Fprintf(w, "  %s  %s %s\n", a.ID, a.Title, a.ReleaseDate)
	}
	return nil
}

// runPlaylist prints a playlist. Playlists the library owns are read from it;
// anything else is fetched from the API.
func runPlaylist(ctx context.Context, w io.Writer, f feeds, store *library.Store, uuid string) error {
	if p, err := store.Playlist(ctx, uuid); err == nil {
		fmt.Fprintf(w, "%s (library, %d tracks)\n", p.Title, len(p.Tracks))
		printTracks(w, p.Tracks)
		return store.AddToRecentlyPlayed(ctx, provider.RecentPlaylist(p, time.Now()))
	} else if !provider.IsNotFound(err) {
		return err
	}
	tracks := f.PlaylistTracks(ctx, uuid)
	if len(tracks) == 0 {
		fmt.Fprintln(w, "No tracks")
		return nil
	}
	fmt.Fprintf(w, "Playlist %s (%d tracks)\n", uuid, len(tracks))
	printTracks(w, tracks)
	return nil
}

// runLibrary prints everything the library holds.
func runLibrary(ctx context.Context, w io.Writer, store *library.Store) error {
	liked, err := store.LikedSongs(ctx)
	if err != nil {
		return err
	}
	albums, _ := store.SavedAlbums(ctx)
	artists, _ := store.FollowedArtists(ctx)
	playlists, _ := store.Playlists(ctx)
	recent, _ := store.RecentlyPlayed(ctx)
	history, _ := store.History(ctx)

	fmt.Fprintf(w, "Liked songs (%d)\n", len(liked))
	printTracks(w, liked)
	fmt.Fprintf(w, "Saved albums (%d)\n", len(albums))
	for _, a := range albums {
		fmt.Fprintf(w, "  %s  %s — %s\n", a.ID, a.Artist.Name, a.Title)
	}
	fmt.Fprintf(w, "Followed artists (%d)\n", len(artists))
	for _, a := range artists {
		fmt.Fprintf(w, "  %s  %s\n", a.ID, a.Name)
	}
	fmt.Fprintf(w, "Playlists (%d)\n", len(playlists))
	for _, p := range playlists {
		fmt.Fprintf(w, "  %s  %s (%d tracks)\n", p.UUID, p.Title, len(p.Tracks))
	}
	fmt.Fprintf(w, "Recently played (%d)\n", len(recent))
	for _, r := range recent {
		fmt.Fprintf(w, "  %-8s %s\n", r.Kind, r.Title())
	}
	fmt.Fprintf(w, "Search history (%d)\n", len(history))
	for _, q := range history {
		fmt.Fprintf(w, "  %s\n", q)
	}
	return nil
}
