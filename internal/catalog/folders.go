package catalog

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"imagepick/internal/logging"
	"imagepick/internal/mediastore"
	"imagepick/internal/paging"
)

// Folders derives folder aggregates by grouping the full image snapshot by
// bucket id. Aggregates are cached until invalidated; they are only valid
// for one image snapshot, so invalidation cascades to the image catalog.
type Folders struct {
	images *Images

	mu     sync.Mutex
	cached []mediastore.Folder
	loaded bool
}

// NewFolders creates a folder catalog over the given image catalog.
func NewFolders(images *Images) *Folders {
	return &Folders{images: images}
}

// GetAll returns the cached aggregate list, computing it on first use.
func (c *Folders) GetAll(ctx context.Context) ([]mediastore.Folder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.cached, nil
	}

	images, err := c.images.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	folders := aggregate(images)
	c.cached = folders
	c.loaded = true
	logging.Debug("folder aggregates computed: %d folders from %d images", len(folders), len(images))
	return folders, nil
}

// GetPage slices the cached aggregate list. Paging is deterministic and
// exhaustive within one cache generation.
func (c *Folders) GetPage(ctx context.Context, offset, limit int) ([]mediastore.Folder, error) {
	folders, err := c.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if offset >= len(folders) {
		return nil, nil
	}
	end := offset + limit
	if end > len(folders) {
		end = len(folders)
	}
	return folders[offset:end], nil
}

// Lookup returns the aggregate for one bucket id.
func (c *Folders) Lookup(ctx context.Context, bucketID int64) (*mediastore.Folder, error) {
	folders, err := c.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range folders {
		if folders[i].BucketID == bucketID {
			f := folders[i]
			return &f, nil
		}
	}
	return nil, mediastore.ErrNotFound
}

// Invalidate clears the aggregate cache and, by delegation, the underlying
// image snapshot.
func (c *Folders) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.loaded = false
	c.mu.Unlock()
	c.images.Invalidate()
}

// FolderPages returns a page source over the aggregate list.
func (c *Folders) FolderPages() *paging.Source[mediastore.Folder] {
	return paging.NewSource(func(ctx context.Context, offset, limit int) ([]mediastore.Folder, error) {
		return c.GetPage(ctx, offset, limit)
	})
}

// aggregate groups images by bucket id and computes per-folder count, total
// size and the most recent date-added. Folders are ordered by last added
// descending, bucket id as tiebreak.
func aggregate(images []mediastore.Image) []mediastore.Folder {
	byBucket := make(map[int64]*mediastore.Folder)
	for _, img := range images {
		f, ok := byBucket[img.BucketID]
		if !ok {
			f = &mediastore.Folder{
				BucketID:  img.BucketID,
				Path:      img.FolderPath,
				Name:      filepath.Base(img.FolderPath),
				LastAdded: img.DateAdded,
			}
			byBucket[img.BucketID] = f
		}
		f.ImageCount++
		f.TotalSize += img.Size
		if img.DateAdded.After(f.LastAdded) {
			f.LastAdded = img.DateAdded
		}
	}

	folders := make([]mediastore.Folder, 0, len(byBucket))
	for _, f := range byBucket {
		folders = append(folders, *f)
	}
	sort.Slice(folders, func(i, j int) bool {
		if !folders[i].LastAdded.Equal(folders[j].LastAdded) {
			return folders[i].LastAdded.After(folders[j].LastAdded)
		}
		return folders[i].BucketID > folders[j].BucketID
	})
	return folders
}
