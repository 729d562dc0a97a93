package mediastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"imagepick/internal/logging"
	"imagepick/internal/metrics"
)

// PageQuery describes one paged read of the index. A nil BucketID means no
// folder filter; Limit <= 0 means no limit.
type PageQuery struct {
	MimeTypes []string
	BucketID  *int64
	Offset    int
	Limit     int
}

// folderPaths interns folder path strings: many images share a folder, so
// repeated rows reuse one allocation.
var folderPaths sync.Map

func internFolderPath(p string) string {
	if v, ok := folderPaths.Load(p); ok {
		return v.(string)
	}
	actual, _ := folderPaths.LoadOrStore(p, p)
	return actual.(string)
}

func observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IndexQueriesTotal.WithLabelValues(operation, status).Inc()
	metrics.IndexQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func mimeSelection(mimeTypes []string) (string, []interface{}) {
	if len(mimeTypes) == 0 {
		return "1=1", nil
	}
	placeholders := strings.Repeat("?,", len(mimeTypes))
	args := make([]interface{}, len(mimeTypes))
	for i, m := range mimeTypes {
		args[i] = m
	}
	return fmt.Sprintf("mime_type IN (%s)", placeholders[:len(placeholders)-1]), args
}

const imageColumns = `id, path, name, title, folder_path, bucket_id, size, width, height, orientation, date_added`

// scanImage decodes one index row. A 90/270 orientation swaps the stored
// width and height.
func scanImage(rows *sql.Rows) (Image, error) {
	var img Image
	var orientation int
	var dateAdded int64
	var folderPath string

	if err := rows.Scan(
		&img.MediaID, &img.Path, &img.Name, &img.Title, &folderPath,
		&img.BucketID, &img.Size, &img.Width, &img.Height, &orientation, &dateAdded,
	); err != nil {
		return Image{}, err
	}

	if orientation == 90 || orientation == 270 {
		img.Width, img.Height = img.Height, img.Width
	}
	img.FolderPath = internFolderPath(folderPath)
	img.DateAdded = time.Unix(dateAdded, 0)
	return img, nil
}

func (s *Store) queryImages(ctx context.Context, where string, args []interface{}, limit, offset int) ([]Image, error) {
	query := fmt.Sprintf(`SELECT %s FROM media WHERE %s ORDER BY date_added DESC, id DESC`, imageColumns, where)
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("index query failed: %w", err)
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return images, nil
}

// QueryPage reads one page of images in descending date-added order, with
// the format filter and any folder filter pushed down into SQL.
func (s *Store) QueryPage(ctx context.Context, q PageQuery) (images []Image, err error) {
	start := time.Now()
	defer func() { observe("page", start, err) }()

	where, args := mimeSelection(q.MimeTypes)
	if q.BucketID != nil {
		where = fmt.Sprintf("(%s) AND bucket_id = ?", where)
		args = append(args, *q.BucketID)
	}

	images, err = s.queryImages(ctx, where, args, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	logging.Debug("QueryPage offset=%d limit=%d returned %d rows in %v", q.Offset, q.Limit, len(images), time.Since(start))
	return images, nil
}

// QueryByID returns the single image with the given media id, or ErrNotFound.
func (s *Store) QueryByID(ctx context.Context, mimeTypes []string, id int64) (img Image, err error) {
	start := time.Now()
	defer func() { observe("by_id", start, err) }()

	where, args := mimeSelection(mimeTypes)
	where = fmt.Sprintf("(%s) AND id = ?", where)
	args = append(args, id)

	images, err := s.queryImages(ctx, where, args, 0, 0)
	if err != nil {
		return Image{}, err
	}
	if len(images) == 0 {
		err = fmt.Errorf("media id %d: %w", id, ErrNotFound)
		return Image{}, err
	}
	return images[0], nil
}

// QueryByIDs returns the images matching the given media ids. Missing ids
// are silently absent from the result.
func (s *Store) QueryByIDs(ctx context.Context, mimeTypes []string, ids []int64) (images []Image, err error) {
	start := time.Now()
	defer func() { observe("by_ids", start, err) }()

	if len(ids) == 0 {
		return nil, nil
	}

	where, args := mimeSelection(mimeTypes)
	placeholders := strings.Repeat("?,", len(ids))
	where = fmt.Sprintf("(%s) AND id IN (%s)", where, placeholders[:len(placeholders)-1])
	for _, id := range ids {
		args = append(args, id)
	}

	return s.queryImages(ctx, where, args, 0, 0)
}

// QueryIDs returns only media ids (no row materialization) in descending
// date-added order, optionally filtered by bucket and capped at limit.
func (s *Store) QueryIDs(ctx context.Context, mimeTypes []string, bucketID *int64, limit int) (ids []int64, err error) {
	start := time.Now()
	defer func() { observe("ids_only", start, err) }()

	where, args := mimeSelection(mimeTypes)
	if bucketID != nil {
		where = fmt.Sprintf("(%s) AND bucket_id = ?", where)
		args = append(args, *bucketID)
	}

	query := fmt.Sprintf(`SELECT id FROM media WHERE %s ORDER BY date_added DESC, id DESC`, where)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("id query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ids, nil
}

// Count returns the number of index rows matching the format filter.
func (s *Store) Count(ctx context.Context, mimeTypes []string) (count int, err error) {
	start := time.Now()
	defer func() { observe("count", start, err) }()

	where, args := mimeSelection(mimeTypes)
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM media WHERE %s`, where), args...).Scan(&count)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return count, nil
}
