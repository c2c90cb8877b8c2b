// Package localfiles turns audio files on disk into tracks that play without
// going through the backend.
package localfiles

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/spofree/spofree/internal/provider"
)

// IDPrefix marks track ids minted from local paths.
const IDPrefix = "local:"

var allowedExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
	".wav":  true,
	".opus": true,
}

type Options struct {
	Logger *slog.Logger
}

// Import reads every audio file under paths. Directories are walked; files
// with other extensions are skipped. A path that does not exist is an error.
func Import(ctx context.Context, paths []string, opts Options) ([]provider.Track, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	var out []provider.Track
	for _, root := range paths {
		abs, err := filepath.Abs(root)
		if err != nil {
			return out, fmt.Errorf("resolve %s: %w", root, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return out, fmt.Errorf("import %s: %w", root, err)
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				opts.Logger.Debug("skip unreadable path", slog.String("path", path), slog.Any("err", err))
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() || !IsAudio(path) {
				return nil
			}
			out = append(out, readTrack(path, opts.Logger))
			return nil
		})
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// IsAudio reports whether path has a supported audio extension.
func IsAudio(path string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsLocal reports whether t came from a local file.
func IsLocal(t provider.Track) bool {
	return strings.HasPrefix(t.ID, IDPrefix) || strings.HasPrefix(t.StreamURL, "file://")
}

func hash(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

func readTrack(path string, logger *slog.Logger) provider.Track {
	var artist, album, title string
	if f, err := os.Open(path); err == nil {
		meta, err := tag.ReadFrom(f)
		f.Close()
		if err == nil {
			artist, album, title = meta.Artist(), meta.Album(), meta.Title()
		} else {
			logger.Debug("no tags", slog.String("path", path), slog.Any("err", err))
		}
	}
	if artist == "" {
		artist = "Unknown Artist"
	}
	if album == "" {
		album = filepath.Base(filepath.Dir(path))
		if album == "." || album == string(filepath.Separator) {
			album = "Unknown Album"
		}
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return provider.Track{
		ID:        IDPrefix + hash(path),
		Title:     title,
		Artist:    provider.ArtistRef{ID: IDPrefix + hash(strings.ToLower(artist)), Name: artist},
		Album:     provider.AlbumRef{ID: IDPrefix + hash(strings.ToLower(artist) + "/" + strings.ToLower(album)), Title: album},
		Quality:   provider.QualityLocal,
		StreamURL: u.String(),
	}
}
