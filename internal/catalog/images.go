package catalog

import (
	"context"
	"sync"

	"imagepick/internal/logging"
	"imagepick/internal/mediastore"
	"imagepick/internal/metrics"
	"imagepick/internal/paging"
)

// Querier is the slice of the media index the image catalog needs.
// *mediastore.Store implements it.
type Querier interface {
	QueryPage(ctx context.Context, q mediastore.PageQuery) ([]mediastore.Image, error)
	QueryByID(ctx context.Context, mimeTypes []string, id int64) (mediastore.Image, error)
	QueryByIDs(ctx context.Context, mimeTypes []string, ids []int64) ([]mediastore.Image, error)
	QueryIDs(ctx context.Context, mimeTypes []string, bucketID *int64, limit int) ([]int64, error)
	Count(ctx context.Context, mimeTypes []string) (int, error)
}

// snapshotCall is one in-flight full-index query, shared by every caller
// that arrives while it runs.
type snapshotCall struct {
	gen    uint64
	done   chan struct{}
	images []mediastore.Image
	err    error
}

// Images is the image catalog: it owns the accepted-format filter, exposes
// point and page queries, and caches a full snapshot computed at most once
// per cache generation.
type Images struct {
	store     Querier
	mimeTypes []string

	mu       sync.Mutex
	gen      uint64
	snapshot []mediastore.Image
	loaded   bool
	inflight *snapshotCall
}

// NewImages creates an image catalog over the given store, restricted to
// the given MIME types (empty means no format filter).
func NewImages(store Querier, mimeTypes []string) *Images {
	return &Images{store: store, mimeTypes: mimeTypes}
}

// GetPage reads one page directly from the index; it does not require a
// prior full load.
func (c *Images) GetPage(ctx context.Context, offset, limit int) ([]mediastore.Image, error) {
	return c.store.QueryPage(ctx, mediastore.PageQuery{
		MimeTypes: c.mimeTypes,
		Offset:    offset,
		Limit:     limit,
	})
}

// GetPageInFolder reads one page of a single folder, with the folder filter
// pushed down into the index query.
func (c *Images) GetPageInFolder(ctx context.Context, bucketID int64, offset, limit int) ([]mediastore.Image, error) {
	return c.store.QueryPage(ctx, mediastore.PageQuery{
		MimeTypes: c.mimeTypes,
		BucketID:  &bucketID,
		Offset:    offset,
		Limit:     limit,
	})
}

// GetByID returns one image or mediastore.ErrNotFound.
func (c *Images) GetByID(ctx context.Context, id int64) (mediastore.Image, error) {
	return c.store.QueryByID(ctx, c.mimeTypes, id)
}

// GetByIDs returns the images matching ids, in index order.
func (c *Images) GetByIDs(ctx context.Context, ids []int64) ([]mediastore.Image, error) {
	return c.store.QueryByIDs(ctx, c.mimeTypes, ids)
}

// GetByURIs resolves content identifiers to images. Malformed identifiers
// are skipped rather than failing the whole batch.
func (c *Images) GetByURIs(ctx context.Context, uris []string) ([]mediastore.Image, error) {
	var ids []int64
	for _, uri := range uris {
		id, err := mediastore.ParseURI(uri)
		if err != nil {
			logging.Warn("ignoring unparseable media URI %q: %v", uri, err)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return c.store.QueryByIDs(ctx, c.mimeTypes, ids)
}

// IDs returns up to limit media ids in descending date-added order, with
// no full record materialization. limit <= 0 returns all ids.
func (c *Images) IDs(ctx context.Context, limit int) ([]int64, error) {
	return c.store.QueryIDs(ctx, c.mimeTypes, nil, limit)
}

// IDsInFolder is IDs restricted to one bucket.
func (c *Images) IDsInFolder(ctx context.Context, bucketID int64, limit int) ([]int64, error) {
	return c.store.QueryIDs(ctx, c.mimeTypes, &bucketID, limit)
}

// Count returns the number of images matching the format filter.
func (c *Images) Count(ctx context.Context) (int, error) {
	return c.store.Count(ctx, c.mimeTypes)
}

// GetAll returns the cached full snapshot, computing it at most once per
// cache generation. Concurrent callers share a single in-flight query.
func (c *Images) GetAll(ctx context.Context) ([]mediastore.Image, error) {
	c.mu.Lock()
	if c.loaded {
		snapshot := c.snapshot
		c.mu.Unlock()
		return snapshot, nil
	}
	if c.inflight == nil {
		call := &snapshotCall{gen: c.gen, done: make(chan struct{})}
		c.inflight = call
		metrics.SnapshotRefreshTotal.Inc()
		go c.runSnapshot(call)
	} else {
		metrics.SnapshotCoalescedTotal.Inc()
	}
	call := c.inflight
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-call.done:
		return call.images, call.err
	}
}

// runSnapshot executes the full-index query backing one snapshot call. It
// deliberately ignores caller contexts: the result is shared, so one
// caller's cancellation must not fail the others.
func (c *Images) runSnapshot(call *snapshotCall) {
	images, err := c.store.QueryPage(context.Background(), mediastore.PageQuery{
		MimeTypes: c.mimeTypes,
	})
	call.images, call.err = images, err
	close(call.done)

	c.mu.Lock()
	if c.gen == call.gen {
		c.inflight = nil
		if err == nil {
			c.snapshot = images
			c.loaded = true
		}
	}
	c.mu.Unlock()

	if err != nil {
		logging.Error("full snapshot query failed: %v", err)
	} else {
		logging.Debug("full snapshot loaded: %d images", len(images))
	}
}

// Invalidate drops the cached snapshot. The next GetAll re-queries; a
// snapshot still in flight for the old generation is discarded on arrival.
func (c *Images) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.snapshot = nil
	c.loaded = false
	c.inflight = nil
	c.mu.Unlock()
}

// AllPhotos returns a page source over every image in the catalog.
func (c *Images) AllPhotos() *paging.Source[mediastore.Image] {
	return paging.NewSource(func(ctx context.Context, offset, limit int) ([]mediastore.Image, error) {
		return c.GetPage(ctx, offset, limit)
	})
}

// FolderPhotos returns a page source over one folder, filtered at the
// index level.
func (c *Images) FolderPhotos(bucketID int64) *paging.Source[mediastore.Image] {
	return paging.NewSource(func(ctx context.Context, offset, limit int) ([]mediastore.Image, error) {
		return c.GetPageInFolder(ctx, bucketID, offset, limit)
	})
}

// PhotosByIDs returns a page source restricted to an id set. The id filter
// is applied in memory over generic pages; id-set queries are assumed small
// and rare, so no index pushdown is done.
func (c *Images) PhotosByIDs(ids []int64) *paging.Source[mediastore.Image] {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return paging.NewFilteredSource(
		func(ctx context.Context, offset, limit int) ([]mediastore.Image, error) {
			return c.GetPage(ctx, offset, limit)
		},
		func(img mediastore.Image) bool {
			_, ok := want[img.MediaID]
			return ok
		},
	)
}
