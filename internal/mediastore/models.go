package mediastore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned by point queries that match no row.
var ErrNotFound = errors.New("media item not found")

// Image is one row of the media index, orientation-corrected.
// Immutable after construction; superseded only by re-query.
type Image struct {
	MediaID    int64     `json:"mediaId"`
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Title      string    `json:"title"`
	FolderPath string    `json:"folderPath"`
	BucketID   int64     `json:"bucketId"`
	Size       int64     `json:"size"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	DateAdded  time.Time `json:"dateAdded"`
}

// Resolution returns the pixel dimensions as "WxH".
func (i Image) Resolution() string {
	return fmt.Sprintf("%dx%d", i.Width, i.Height)
}

// AspectRatio returns width/height, or 1.0 when the height is unknown.
func (i Image) AspectRatio() float64 {
	if i.Height > 0 {
		return float64(i.Width) / float64(i.Height)
	}
	return 1.0
}

// URI returns the stable content identifier for this image.
func (i Image) URI() string {
	return fmt.Sprintf("media://%d", i.MediaID)
}

// ParseURI extracts the media id from a content identifier as produced
// by Image.URI.
func ParseURI(uri string) (int64, error) {
	rest, ok := strings.CutPrefix(uri, "media://")
	if !ok {
		return 0, fmt.Errorf("not a media URI: %q", uri)
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid media id in %q: %w", uri, err)
	}
	return id, nil
}

// Folder is an aggregate over images sharing a bucket id. Recomputed from
// the image snapshot, never incrementally updated.
type Folder struct {
	BucketID   int64     `json:"bucketId"`
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	ImageCount int       `json:"imageCount"`
	TotalSize  int64     `json:"totalSize"`
	LastAdded  time.Time `json:"lastAdded"`
}

// Row is the raw form of an index entry as written by the scanner.
// Width and Height are the stored (pre-orientation) dimensions.
type Row struct {
	Path        string
	Name        string
	Title       string
	FolderPath  string
	BucketID    int64
	Size        int64
	Width       int
	Height      int
	Orientation int
	MimeType    string
	DateAdded   time.Time
}
