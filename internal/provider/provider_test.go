package provider

import (
	"testing"
	"time"
)

func TestNaturalID(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		item RecentlyPlayedItem
		want string
	}{
		{"track", RecentTrack(Track{ID: "t1"}, now), "t1"},
		{"album", RecentAlbum(Album{ID: "a1"}, now), "a1"},
		{"artist", RecentArtist(Artist{ID: "ar1"}, now), "ar1"},
		{"playlist", RecentPlaylist(Playlist{UUID: "p-1"}, now), "p-1"},
		{"empty", RecentlyPlayedItem{Kind: KindTrack}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.NaturalID(); got != tt.want {
				t.Errorf("NaturalID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQualityValid(t *testing.T) {
	for _, q := range FallbackQualities {
		if !q.Valid() {
			t.Errorf("expected %s to be valid", q)
		}
	}
	if QualityLocal.Valid() {
		t.Error("local quality must not be requested from the backend")
	}
	if Quality("ULTRA").Valid() {
		t.Error("unknown quality reported valid")
	}
}
