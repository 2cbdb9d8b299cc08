package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"dropsum/internal/model"
)

const currentSchemaVersion = 1

// ErrNotFound is returned by Get for an unknown canonical video ID.
var ErrNotFound = errors.New("record not found")

// SQLite persists processed records in a local SQLite database,
// keyed by canonical video ID with a secondary index on the source
// item ID for the dedup lookup.
type SQLite struct {
	db   *sql.DB
	path string
}

// New opens (creating if needed) the record store at the given path.
func New(path string) (*SQLite, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &SQLite{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// migrate runs database migrations.
func (s *SQLite) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	return nil
}

// migrateV1 creates the initial schema.
func (s *SQLite) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS processed (
			video_id TEXT PRIMARY KEY NOT NULL,
			source_id INTEGER NOT NULL DEFAULT 0,
			url TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			output_path TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			processed_at TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'done',
			error TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_processed_source_id ON processed(source_id);
		CREATE INDEX IF NOT EXISTS idx_processed_at ON processed(processed_at);

		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert writes a record, replacing any existing record with the same
// canonical video ID. The replace is atomic; this is what allows force
// reprocessing without manual cleanup.
func (s *SQLite) Upsert(rec model.ProcessedRecord) error {
	tagsJSON, _ := json.Marshal(rec.Tags)
	if rec.Tags == nil {
		tagsJSON = []byte("[]")
	}
	processedAt := rec.ProcessedAt.UTC().Format(time.RFC3339)

	_, err := s.db.Exec(`
		INSERT INTO processed (video_id, source_id, url, title, output_path, tags, processed_at, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			source_id = excluded.source_id,
			url = excluded.url,
			title = excluded.title,
			output_path = excluded.output_path,
			tags = excluded.tags,
			processed_at = excluded.processed_at,
			status = excluded.status,
			error = excluded.error
	`, rec.VideoID, rec.SourceID, rec.URL, rec.Title, rec.OutputPath,
		string(tagsJSON), processedAt, rec.Status, rec.Error)
	return err
}

// HasItem reports whether a completed record exists for the given
// source item ID. Failed attempts do not count, so they are retried
// on the next run.
func (s *SQLite) HasItem(sourceID int64) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM processed WHERE source_id = ? AND status = ?",
		sourceID, model.StatusDone).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasVideo reports whether a completed record exists for the given
// canonical video ID.
func (s *SQLite) HasVideo(videoID string) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM processed WHERE video_id = ? AND status = ?",
		videoID, model.StatusDone).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get returns the record for a canonical video ID.
func (s *SQLite) Get(videoID string) (model.ProcessedRecord, error) {
	row := s.db.QueryRow(`
		SELECT video_id, source_id, url, title, output_path, tags, processed_at, status, error
		FROM processed
		WHERE video_id = ?
	`, videoID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProcessedRecord{}, ErrNotFound
	}
	return rec, err
}

// List returns records ordered by recency, newest first.
// A limit of 0 means no limit.
func (s *SQLite) List(limit int) ([]model.ProcessedRecord, error) {
	query := `
		SELECT video_id, source_id, url, title, output_path, tags, processed_at, status, error
		FROM processed
		ORDER BY processed_at DESC
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.ProcessedRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Delete removes the record for a canonical video ID, reporting
// whether anything was deleted. Deletion is an administrative
// operation; the pipeline itself never calls it.
func (s *SQLite) Delete(videoID string) (bool, error) {
	res, err := s.db.Exec("DELETE FROM processed WHERE video_id = ?", videoID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Stats summarizes the store contents.
type Stats struct {
	TotalProcessed    int
	ProcessedToday    int
	ProcessedThisWeek int
}

// Stats returns aggregate counts over processed records.
func (s *SQLite) Stats() (Stats, error) {
	var st Stats

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)

	// processed_at is stored as UTC RFC3339, which compares
	// lexicographically in timestamp order.
	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(CASE WHEN processed_at >= ? THEN 1 END),
			COUNT(CASE WHEN processed_at >= ? THEN 1 END)
		FROM processed
	`, midnight.UTC().Format(time.RFC3339), weekAgo.UTC().Format(time.RFC3339)).
		Scan(&st.TotalProcessed, &st.ProcessedToday, &st.ProcessedThisWeek)

	return st, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (model.ProcessedRecord, error) {
	var rec model.ProcessedRecord
	var tagsJSON string
	var processedAt string

	if err := row.Scan(
		&rec.VideoID, &rec.SourceID, &rec.URL, &rec.Title, &rec.OutputPath,
		&tagsJSON, &processedAt, &rec.Status, &rec.Error,
	); err != nil {
		return rec, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
		rec.Tags = []string{}
	}
	rec.ProcessedAt, _ = time.Parse(time.RFC3339, processedAt)

	return rec, nil
}

// DefaultPath returns the default database path: ~/.config/dropsum/processed.db
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "dropsum", "processed.db"), nil
}
