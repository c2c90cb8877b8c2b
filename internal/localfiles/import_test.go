package localfiles

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spofree/spofree/internal/provider"
)

func TestImportWalksDirectories(t *testing.T) {
	dir := t.TempDir()
	albumDir := filepath.Join(dir, "Homework")
	if err := os.MkdirAll(albumDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"01 Daftendirekt.mp3", "02 WDPK.FLAC", "cover.jpg", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(albumDir, name), []byte("fake audio"), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}

	tracks, err := Import(context.Background(), []string{dir}, Options{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 audio files, got %d", len(tracks))
	}
	tr := tracks[0]
	if tr.Title != "01 Daftendirekt" {
		t.Errorf("expected filename fallback title, got %q", tr.Title)
	}
	if tr.Album.Title != "Homework" || tr.Artist.Name != "Unknown Artist" {
		t.Errorf("unexpected fallbacks %+v", tr)
	}
	if !strings.HasPrefix(tr.ID, IDPrefix) || tr.Quality != provider.QualityLocal {
		t.Errorf("unexpected identity %+v", tr)
	}
	if !strings.HasPrefix(tr.StreamURL, "file://") || !IsLocal(tr) {
		t.Errorf("expected file url, got %s", tr.StreamURL)
	}
	if tracks[0].ID == tracks[1].ID {
		t.Error("expected distinct ids per file")
	}
	if tracks[0].Album.ID != tracks[1].Album.ID {
		t.Error("expected files in one directory to share an album id")
	}
}

func TestImportSingleFileIsStable(t *testing.T) {
	song := filepath.Join(t.TempDir(), "track.opus")
	if err := os.WriteFile(song, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	a, err := Import(context.Background(), []string{song}, Options{})
	if err != nil || len(a) != 1 {
		t.Fatalf("Import: %v %v", a, err)
	}
	b, _ := Import(context.Background(), []string{song}, Options{})
	if a[0].ID != b[0].ID {
		t.Error("expected the same path to map to the same id")
	}
}

func TestImportMissingPath(t *testing.T) {
	if _, err := Import(context.Background(), []string{filepath.Join(t.TempDir(), "nope")}, Options{}); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestImportCancelled(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "a.mp3"), []byte("x"), 0o644)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Import(ctx, []string{dir}, Options{}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestIsLocal(t *testing.T) {
	if IsLocal(provider.Track{ID: "123", StreamURL: "https://cdn/x.flac"}) {
		t.Error("remote track reported as local")
	}
	if !IsLocal(provider.Track{ID: "local:abc"}) {
		t.Error("local id not recognized")
	}
}
