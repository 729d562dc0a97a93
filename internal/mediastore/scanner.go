package mediastore

import (
	"context"
	"hash/fnv"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"imagepick/internal/logging"
	"imagepick/internal/metrics"

	"github.com/rwcarlsen/goexif/exif"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// mimeByExtension maps supported raster extensions to their MIME type.
var mimeByExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".avif": "image/avif",
	".heic": "image/heic",
	".heif": "image/heif",
}

// MimeTypeFor returns the MIME type for a file path, or "" when the
// extension is not a supported image format.
func MimeTypeFor(path string) string {
	return mimeByExtension[strings.ToLower(filepath.Ext(path))]
}

// BucketID computes the index grouping key for a folder path. It matches
// the platform convention of hashing the lowercased directory path, so the
// same folder always maps to the same bucket.
func BucketID(folderPath string) int64 {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(folderPath)))
	return int64(h.Sum32())
}

// ScanStats summarizes one scanner run.
type ScanStats struct {
	Indexed  int
	Removed  int
	Skipped  int
	Duration time.Duration
}

// Scanner walks a directory tree and populates the media index with one
// row per supported image file.
type Scanner struct {
	store *Store
	root  string
}

// NewScanner creates a Scanner rooted at dir.
func NewScanner(store *Store, dir string) *Scanner {
	return &Scanner{store: store, root: dir}
}

// Scan walks the root, upserting a row for every supported image and
// removing rows whose files no longer exist.
func (s *Scanner) Scan(ctx context.Context) (ScanStats, error) {
	start := time.Now()
	metrics.ScanRunsTotal.Inc()

	stats := ScanStats{}
	seen := make(map[string]struct{})

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("scan: skipping %s: %v", path, err)
			metrics.ScanErrors.Inc()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		mimeType := MimeTypeFor(path)
		if mimeType == "" {
			stats.Skipped++
			return nil
		}

		row, err := s.buildRow(path, mimeType)
		if err != nil {
			logging.Warn("scan: cannot stat %s: %v", path, err)
			metrics.ScanErrors.Inc()
			return nil
		}

		if err := s.store.Upsert(ctx, row); err != nil {
			logging.Error("scan: upsert failed for %s: %v", path, err)
			metrics.ScanErrors.Inc()
			return nil
		}

		seen[path] = struct{}{}
		stats.Indexed++
		metrics.ScanFilesIndexed.Inc()
		return nil
	})
	if err != nil {
		return stats, err
	}

	removed, err := s.store.DeleteMissing(ctx, seen)
	if err != nil {
		return stats, err
	}
	stats.Removed = removed
	stats.Duration = time.Since(start)
	metrics.ScanLastRunDuration.Set(stats.Duration.Seconds())

	logging.Info("Scan complete: %d indexed, %d removed, %d skipped in %v",
		stats.Indexed, stats.Removed, stats.Skipped, stats.Duration)
	return stats, nil
}

func (s *Scanner) buildRow(path, mimeType string) (Row, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Row{}, err
	}

	name := filepath.Base(path)
	folder := filepath.Dir(path)

	row := Row{
		Path:       path,
		Name:       name,
		Title:      strings.TrimSuffix(name, filepath.Ext(name)),
		FolderPath: folder,
		BucketID:   BucketID(folder),
		Size:       info.Size(),
		MimeType:   mimeType,
		DateAdded:  info.ModTime(),
	}

	if w, h, ok := probeDimensions(path); ok {
		row.Width, row.Height = w, h
	}

	if orientation, taken, ok := probeExif(path); ok {
		row.Orientation = orientation
		if !taken.IsZero() {
			row.DateAdded = taken
		}
	}

	return row, nil
}

// probeDimensions reads image bounds without a full decode. Formats with no
// registered decoder (AVIF, HEIF) report unknown dimensions.
func probeDimensions(path string) (int, int, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

// probeExif extracts the rotation in degrees and the capture time from
// EXIF metadata, when present.
func probeExif(path string) (int, time.Time, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, time.Time{}, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return 0, time.Time{}, false
	}

	orientation := 0
	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil {
			switch v {
			case 3:
				orientation = 180
			case 6:
				orientation = 90
			case 8:
				orientation = 270
			}
		}
	}

	taken, err := x.DateTime()
	if err != nil {
		taken = time.Time{}
	}
	return orientation, taken, true
}
