package library

import (
	"context"
	"log/slog"

	"github.com/spofree/spofree/internal/provider"
)

func (s *Store) Settings(ctx context.Context) (Settings, error) {
	doc, err := s.snapshot(ctx)
	return doc.Settings, err
}

// UpdateSettings applies fn to the stored settings.
func (s *Store) UpdateSettings(ctx context.Context, fn func(*Settings)) error {
	return s.update(ctx, func(doc *Document) bool {
		fn(&doc.Settings)
		return true
	})
}

// Quality returns the preferred stream tier. Read failures fall back to the
// default tier so playback can still be attempted.
func (s *Store) Quality() provider.Quality {
	st, err := s.Settings(context.Background())
	if err != nil {
		s.opts.Logger.Warn("read quality setting", slog.Any("err", err))
		return DefaultSettings().Quality
	}
	return st.Quality
}

func (s *Store) SetQuality(ctx context.Context, q provider.Quality) error {
	return s.UpdateSettings(ctx, func(st *Settings) { st.Quality = q })
}

func (s *Store) AccentColor(ctx context.Context) string {
	st, err := s.Settings(ctx)
	if err != nil || st.AccentColor == "" {
		return DefaultAccentColor
	}
	return st.AccentColor
}

func (s *Store) SetAccentColor(ctx context.Context, color string) error {
	return s.UpdateSettings(ctx, func(st *Settings) { st.AccentColor = color })
}
