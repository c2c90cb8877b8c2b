package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spofree/spofree/internal/config"
	"github.com/spofree/spofree/internal/localfiles"
	"github.com/spofree/spofree/internal/provider"
	_ "modernc.org/sqlite"
)

const (
	listQueue    = "queue"
	listOriginal = "original"
)

// PersistenceStore handles queue state persistence to SQLite.
type PersistenceStore struct {
	db *sql.DB
}

// NewPersistenceStore creates a new persistence store at the given path.
// If dbPath is empty, uses the default location.
func NewPersistenceStore(dbPath string) (*PersistenceStore, error) {
	if dbPath == "" {
		var err error
		dbPath, err = DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve queue db path: %w", err)
		}
	}

	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open queue db: %w", err)
	}

	store := &PersistenceStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// DefaultPath returns <state>/queue.db.
func DefaultPath() (string, error) {
	dir, err := config.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "queue.db"), nil
}

func (s *PersistenceStore) ensureSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS queue_items (
			list TEXT NOT NULL,
			position INTEGER NOT NULL,
			track_id TEXT NOT NULL,
			track_json TEXT NOT NULL,
			PRIMARY KEY (list, position)
		);`,
		`CREATE TABLE IF NOT EXISTS queue_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			current_id TEXT NOT NULL DEFAULT '',
			shuffle_enabled INTEGER NOT NULL DEFAULT 0,
			repeat_mode INTEGER NOT NULL DEFAULT 0
		);`,
		// Ensure there's always exactly one state row
		`INSERT OR IGNORE INTO queue_state (id, current_id, shuffle_enabled, repeat_mode)
		 VALUES (1, '', 0, 0);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate queue schema: %w", err)
		}
	}
	return nil
}

// Save persists both queues, the current track id and the modes.
func (s *PersistenceStore) Save(ctx context.Context, st State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_items`); err != nil {
		return fmt.Errorf("clear queue items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO queue_items (list, position, track_id, track_json)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	lists := map[string][]provider.Track{listQueue: st.Queue}
	if st.Shuffling {
		lists[listOriginal] = st.OriginalQueue
	}
	for list, tracks := range lists {
		for i, track := range tracks {
			track.StreamURL = streamURLToKeep(track)
			trackJSON, err := json.Marshal(track)
			if err != nil {
				return fmt.Errorf("marshal track %s: %w", track.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, list, i, track.ID, string(trackJSON)); err != nil {
				return fmt.Errorf("insert track %s: %w", track.ID, err)
			}
		}
	}

	currentID := ""
	if st.Current != nil {
		currentID = st.Current.ID
	}
	shuffleInt := 0
	if st.Shuffling {
		shuffleInt = 1
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE queue_state SET current_id = ?, shuffle_enabled = ?, repeat_mode = ? WHERE id = 1`,
		currentID, shuffleInt, int(st.Repeat))
	if err != nil {
		return fmt.Errorf("update queue state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// streamURLToKeep drops resolved backend URLs; they expire. Local file URLs
// are the track's identity and are kept.
func streamURLToKeep(t provider.Track) string {
	if localfiles.IsLocal(t) {
		return t.StreamURL
	}
	return ""
}

// LoadResult contains the result of loading a queue from persistence.
type LoadResult struct {
	Queue         []provider.Track
	OriginalQueue []provider.Track
	CurrentID     string
	Shuffled      bool
	Repeat        RepeatMode
}

// Load reads the queue state from SQLite.
func (s *PersistenceStore) Load(ctx context.Context) (LoadResult, error) {
	var result LoadResult

	var shuffleInt int
	err := s.db.QueryRowContext(ctx,
		`SELECT current_id, shuffle_enabled, repeat_mode FROM queue_state WHERE id = 1`).
		Scan(&result.CurrentID, &shuffleInt, &result.Repeat)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return result, fmt.Errorf("load queue state: %w", err)
	}
	result.Shuffled = shuffleInt == 1

	rows, err := s.db.QueryContext(ctx,
		`SELECT list, track_json FROM queue_items ORDER BY list, position ASC`)
	if err != nil {
		return result, fmt.Errorf("load queue items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var list, trackJSON string
		if err := rows.Scan(&list, &trackJSON); err != nil {
			return result, fmt.Errorf("scan track: %w", err)
		}

		var track provider.Track
		if err := json.Unmarshal([]byte(trackJSON), &track); err != nil {
			// Skip corrupted entries
			continue
		}
		switch list {
		case listQueue:
			result.Queue = append(result.Queue, track)
		case listOriginal:
			result.OriginalQueue = append(result.OriginalQueue, track)
		}
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("iterate tracks: %w", err)
	}

	if !result.Shuffled || len(result.OriginalQueue) == 0 {
		result.Shuffled = result.Shuffled && len(result.OriginalQueue) > 0
		result.OriginalQueue = cloneTracks(result.Queue)
	}
	if indexOf(result.Queue, result.CurrentID) < 0 {
		result.CurrentID = ""
	}
	return result, nil
}

// Clear removes all persisted queue data.
func (s *PersistenceStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_items`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE queue_state SET current_id = '', shuffle_enabled = 0, repeat_mode = 0 WHERE id = 1`); err != nil {
		return err
	}

	return tx.Commit()
}

// Close closes the database connection.
func (s *PersistenceStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
