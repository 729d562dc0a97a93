package mediastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"imagepick/internal/logging"
)

// Default timeout for index operations
const defaultTimeout = 5 * time.Second

// Store is the device media index, backed by SQLite. It is the only
// component that talks to the underlying content database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens (creating if necessary) the media index at dbPath.
// The parent directory must already exist and be writable.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	logging.Info("Media index path: %s", dbPath)

	// WAL plus busy_timeout avoids "database is locked" under concurrent readers
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open media index: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close index after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to media index: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close index after schema failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize index schema: %w", err)
	}

	logging.Info("Media index initialized at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS media (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		title TEXT NOT NULL,
		folder_path TEXT NOT NULL,
		bucket_id INTEGER NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		orientation INTEGER NOT NULL DEFAULT 0,
		mime_type TEXT NOT NULL,
		date_added INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_media_date_added ON media(date_added DESC);
	CREATE INDEX IF NOT EXISTS idx_media_bucket_date ON media(bucket_id, date_added DESC);
	CREATE INDEX IF NOT EXISTS idx_media_mime ON media(mime_type);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Upsert inserts or replaces one index row, keyed by path.
func (s *Store) Upsert(ctx context.Context, row Row) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO media (path, name, title, folder_path, bucket_id, size, width, height, orientation, mime_type, date_added)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			title = excluded.title,
			folder_path = excluded.folder_path,
			bucket_id = excluded.bucket_id,
			size = excluded.size,
			width = excluded.width,
			height = excluded.height,
			orientation = excluded.orientation,
			mime_type = excluded.mime_type,
			date_added = excluded.date_added`,
		row.Path, row.Name, row.Title, row.FolderPath, row.BucketID,
		row.Size, row.Width, row.Height, row.Orientation, row.MimeType,
		row.DateAdded.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert failed for %s: %w", row.Path, err)
	}
	return nil
}

// DeleteMissing removes rows whose path is not in the keep set. Used by the
// scanner to drop entries for files that disappeared between scans.
func (s *Store) DeleteMissing(ctx context.Context, keep map[string]struct{}) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, path FROM media`)
	if err != nil {
		return 0, fmt.Errorf("listing index paths failed: %w", err)
	}
	defer rows.Close()

	var stale []int64
	for rows.Next() {
		var id int64
		var path string
		if err := rows.Scan(&id, &path); err != nil {
			return 0, fmt.Errorf("scan failed: %w", err)
		}
		if _, ok := keep[path]; !ok {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("rows error: %w", err)
	}

	for _, id := range stale {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("delete failed for id %d: %w", id, err)
		}
	}
	return len(stale), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
