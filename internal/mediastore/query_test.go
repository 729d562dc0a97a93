package mediastore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// newTestStore opens a fresh index in a temp directory and seeds it with
// the given rows.
func newTestStore(t *testing.T, rows []Row) *Store {
	t.Helper()

	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	for _, row := range rows {
		if err := store.Upsert(context.Background(), row); err != nil {
			t.Fatalf("Upsert(%s) error = %v", row.Path, err)
		}
	}
	return store
}

func testRow(name, folder, mime string, added time.Time) Row {
	return Row{
		Path:       filepath.Join(folder, name),
		Name:       name,
		Title:      name,
		FolderPath: folder,
		BucketID:   BucketID(folder),
		Size:       100,
		Width:      4000,
		Height:     3000,
		MimeType:   mime,
		DateAdded:  added,
	}
}

func TestQueryPageOrdering(t *testing.T) {
	t.Parallel()

	base := time.Unix(1700000000, 0)
	store := newTestStore(t, []Row{
		testRow("old.jpg", "/photos", "image/jpeg", base),
		testRow("mid.jpg", "/photos", "image/jpeg", base.Add(time.Hour)),
		testRow("new.jpg", "/photos", "image/jpeg", base.Add(2*time.Hour)),
	})

	images, err := store.QueryPage(context.Background(), PageQuery{Limit: 10})
	if err != nil {
		t.Fatalf("QueryPage() error = %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("QueryPage() returned %d images, want 3", len(images))
	}

	want := []string{"new.jpg", "mid.jpg", "old.jpg"}
	for i, name := range want {
		if images[i].Name != name {
			t.Errorf("images[%d].Name = %q, want %q", i, images[i].Name, name)
		}
	}
}

func TestQueryPagePagination(t *testing.T) {
	t.Parallel()

	base := time.Unix(1700000000, 0)
	var rows []Row
	for i := 0; i < 7; i++ {
		rows = append(rows, testRow(
			string(rune('a'+i))+".jpg", "/photos", "image/jpeg",
			base.Add(time.Duration(i)*time.Minute),
		))
	}
	store := newTestStore(t, rows)

	// Walk pages of 3 until a short page; every row must appear exactly once.
	seen := make(map[int64]bool)
	offset := 0
	for {
		page, err := store.QueryPage(context.Background(), PageQuery{Offset: offset, Limit: 3})
		if err != nil {
			t.Fatalf("QueryPage(offset=%d) error = %v", offset, err)
		}
		for _, img := range page {
			if seen[img.MediaID] {
				t.Errorf("media id %d returned twice", img.MediaID)
			}
			seen[img.MediaID] = true
		}
		if len(page) < 3 {
			break
		}
		offset += len(page)
	}
	if len(seen) != 7 {
		t.Errorf("pagination yielded %d distinct rows, want 7", len(seen))
	}
}

func TestQueryPageMimeFilter(t *testing.T) {
	t.Parallel()

	base := time.Unix(1700000000, 0)
	store := newTestStore(t, []Row{
		testRow("a.jpg", "/photos", "image/jpeg", base),
		testRow("b.png", "/photos", "image/png", base),
		testRow("c.gif", "/photos", "image/gif", base),
	})

	images, err := store.QueryPage(context.Background(), PageQuery{
		MimeTypes: []string{"image/jpeg", "image/png"},
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("QueryPage() error = %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("QueryPage() returned %d images, want 2", len(images))
	}
	for _, img := range images {
		if img.Name == "c.gif" {
			t.Errorf("gif row returned despite mime filter")
		}
	}
}

func TestQueryPageBucketFilter(t *testing.T) {
	t.Parallel()

	base := time.Unix(1700000000, 0)
	store := newTestStore(t, []Row{
		testRow("a.jpg", "/photos/camera", "image/jpeg", base),
		testRow("b.jpg", "/photos/camera", "image/jpeg", base.Add(time.Minute)),
		testRow("c.jpg", "/photos/screenshots", "image/jpeg", base),
	})

	bucket := BucketID("/photos/camera")
	images, err := store.QueryPage(context.Background(), PageQuery{
		BucketID: &bucket,
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("QueryPage() error = %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("QueryPage() returned %d images, want 2", len(images))
	}
	for _, img := range images {
		if img.BucketID != bucket {
			t.Errorf("image %s has bucket %d, want %d", img.Name, img.BucketID, bucket)
		}
	}
}

func TestQueryPageOrientationSwap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		orientation int
		wantWidth   int
		wantHeight  int
	}{
		{name: "no rotation", orientation: 0, wantWidth: 4000, wantHeight: 3000},
		{name: "90 degrees", orientation: 90, wantWidth: 3000, wantHeight: 4000},
		{name: "180 degrees", orientation: 180, wantWidth: 4000, wantHeight: 3000},
		{name: "270 degrees", orientation: 270, wantWidth: 3000, wantHeight: 4000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			row := testRow("img.jpg", "/photos", "image/jpeg", time.Unix(1700000000, 0))
			row.Orientation = tt.orientation
			store := newTestStore(t, []Row{row})

			images, err := store.QueryPage(context.Background(), PageQuery{Limit: 1})
			if err != nil {
				t.Fatalf("QueryPage() error = %v", err)
			}
			if len(images) != 1 {
				t.Fatalf("QueryPage() returned %d images, want 1", len(images))
			}
			if images[0].Width != tt.wantWidth || images[0].Height != tt.wantHeight {
				t.Errorf("dimensions = %dx%d, want %dx%d",
					images[0].Width, images[0].Height, tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestQueryByID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, []Row{
		testRow("a.jpg", "/photos", "image/jpeg", time.Unix(1700000000, 0)),
	})

	images, err := store.QueryPage(context.Background(), PageQuery{Limit: 1})
	if err != nil || len(images) != 1 {
		t.Fatalf("seed read failed: %v (%d rows)", err, len(images))
	}

	got, err := store.QueryByID(context.Background(), nil, images[0].MediaID)
	if err != nil {
		t.Fatalf("QueryByID() error = %v", err)
	}
	if got.Name != "a.jpg" {
		t.Errorf("QueryByID().Name = %q, want %q", got.Name, "a.jpg")
	}

	_, err = store.QueryByID(context.Background(), nil, images[0].MediaID+999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("QueryByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestQueryByIDsSkipsMissing(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, []Row{
		testRow("a.jpg", "/photos", "image/jpeg", time.Unix(1700000000, 0)),
		testRow("b.jpg", "/photos", "image/jpeg", time.Unix(1700000100, 0)),
	})

	ids, err := store.QueryIDs(context.Background(), nil, nil, 0)
	if err != nil {
		t.Fatalf("QueryIDs() error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("QueryIDs() returned %d ids, want 2", len(ids))
	}

	images, err := store.QueryByIDs(context.Background(), nil, append(ids, 99999))
	if err != nil {
		t.Fatalf("QueryByIDs() error = %v", err)
	}
	if len(images) != 2 {
		t.Errorf("QueryByIDs() returned %d images, want 2 (missing id silently absent)", len(images))
	}
}

func TestQueryIDsLimit(t *testing.T) {
	t.Parallel()

	base := time.Unix(1700000000, 0)
	var rows []Row
	for i := 0; i < 5; i++ {
		rows = append(rows, testRow(
			string(rune('a'+i))+".jpg", "/photos", "image/jpeg",
			base.Add(time.Duration(i)*time.Minute),
		))
	}
	store := newTestStore(t, rows)

	ids, err := store.QueryIDs(context.Background(), nil, nil, 3)
	if err != nil {
		t.Fatalf("QueryIDs() error = %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("QueryIDs(limit=3) returned %d ids, want 3", len(ids))
	}
}

func TestCount(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, []Row{
		testRow("a.jpg", "/photos", "image/jpeg", time.Unix(1700000000, 0)),
		testRow("b.png", "/photos", "image/png", time.Unix(1700000100, 0)),
	})

	count, err := store.Count(context.Background(), nil)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}

	count, err = store.Count(context.Background(), []string{"image/jpeg"})
	if err != nil {
		t.Fatalf("Count(jpeg) error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count(jpeg) = %d, want 1", count)
	}
}

func TestUpsertReplacesByPath(t *testing.T) {
	t.Parallel()

	row := testRow("a.jpg", "/photos", "image/jpeg", time.Unix(1700000000, 0))
	store := newTestStore(t, []Row{row})

	row.Size = 999
	if err := store.Upsert(context.Background(), row); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	count, err := store.Count(context.Background(), nil)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("Count() = %d after re-upsert, want 1", count)
	}

	images, err := store.QueryPage(context.Background(), PageQuery{Limit: 1})
	if err != nil || len(images) != 1 {
		t.Fatalf("read back failed: %v", err)
	}
	if images[0].Size != 999 {
		t.Errorf("Size = %d after re-upsert, want 999", images[0].Size)
	}
}

func TestParseURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		uri     string
		want    int64
		wantErr bool
	}{
		{name: "valid", uri: "media://42", want: 42},
		{name: "round trip", uri: Image{MediaID: 7}.URI(), want: 7},
		{name: "wrong scheme", uri: "file:///tmp/a.jpg", wantErr: true},
		{name: "not a number", uri: "media://abc", wantErr: true},
		{name: "empty", uri: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseURI(tt.uri)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseURI(%q) error = nil, want error", tt.uri)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURI(%q) error = %v", tt.uri, err)
			}
			if got != tt.want {
				t.Errorf("ParseURI(%q) = %d, want %d", tt.uri, got, tt.want)
			}
		})
	}
}
