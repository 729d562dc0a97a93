package thumbs

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
)

// stubDecode installs a decode function that returns a fixed-size image and
// counts invocations.
func stubDecode(c *Cache, side int, calls *int32) {
	c.decode = func(_ string, _ int) (image.Image, error) {
		atomic.AddInt32(calls, 1)
		return image.NewRGBA(image.Rect(0, 0, side, side)), nil
	}
}

func TestCacheHit(t *testing.T) {
	t.Parallel()

	var calls int32
	c := NewCache(1 << 20)
	stubDecode(c, 16, &calls)

	for i := 0; i < 3; i++ {
		img, err := c.Get(context.Background(), "media://1", "/x/a.jpg", 128)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if img.Bounds().Dx() != 16 {
			t.Fatalf("Get() returned %dx image, want 16x", img.Bounds().Dx())
		}
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("decode ran %d times for 3 gets of one key, want 1", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	if want := int64(16 * 16 * 4); c.Bytes() != want {
		t.Errorf("Bytes() = %d, want %d", c.Bytes(), want)
	}
}

func TestCacheKeyIncludesSize(t *testing.T) {
	t.Parallel()

	var calls int32
	c := NewCache(1 << 20)
	stubDecode(c, 16, &calls)

	if _, err := c.Get(context.Background(), "media://1", "/x/a.jpg", 128); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, err := c.Get(context.Background(), "media://1", "/x/a.jpg", 256); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("decode ran %d times for two sizes of one uri, want 2", got)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCacheEvictsColdest(t *testing.T) {
	t.Parallel()

	// Budget fits exactly two 16x16 entries.
	entry := int64(16 * 16 * 4)
	var calls int32
	c := NewCache(2 * entry)
	stubDecode(c, 16, &calls)

	get := func(uri string) {
		t.Helper()
		if _, err := c.Get(context.Background(), uri, "/x/a.jpg", 128); err != nil {
			t.Fatalf("Get(%s) error = %v", uri, err)
		}
	}

	get("media://1")
	get("media://2")
	get("media://1") // touch 1 so 2 is now coldest
	get("media://3") // evicts 2

	if c.Len() != 2 {
		t.Fatalf("Len() = %d after eviction, want 2", c.Len())
	}

	atomic.StoreInt32(&calls, 0)
	get("media://1")
	get("media://3")
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("warm entries re-decoded %d times, want 0", got)
	}
	get("media://2")
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("evicted entry re-decoded %d times, want 1", got)
	}
}

func TestCacheKeepsOneOversizedEntry(t *testing.T) {
	t.Parallel()

	var calls int32
	c := NewCache(10) // smaller than any decoded image
	stubDecode(c, 16, &calls)

	if _, err := c.Get(context.Background(), "media://1", "/x/a.jpg", 128); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (never evict the sole entry)", c.Len())
	}
}

func TestCacheClear(t *testing.T) {
	t.Parallel()

	var calls int32
	c := NewCache(1 << 20)
	stubDecode(c, 16, &calls)

	if _, err := c.Get(context.Background(), "media://1", "/x/a.jpg", 128); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	c.Clear()
	if c.Len() != 0 || c.Bytes() != 0 {
		t.Errorf("Len()=%d Bytes()=%d after Clear, want 0 0", c.Len(), c.Bytes())
	}

	if _, err := c.Get(context.Background(), "media://1", "/x/a.jpg", 128); err != nil {
		t.Fatalf("Get() after Clear error = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("decode ran %d times across a Clear, want 2", got)
	}
}

func TestCacheDiscardsStaleStore(t *testing.T) {
	t.Parallel()

	c := NewCache(1 << 20)

	// A decode that started before Clear must not repopulate the cache.
	staleGen := c.gen
	c.Clear()
	c.put(cacheKey{uri: "media://1", size: 128}, image.NewRGBA(image.Rect(0, 0, 16, 16)), staleGen)

	if c.Len() != 0 {
		t.Errorf("Len() = %d after stale store, want 0", c.Len())
	}
}

func TestCacheGetCancelled(t *testing.T) {
	t.Parallel()

	c := NewCache(1 << 20)
	// Fill the decode semaphore so Get has to wait for a slot.
	for i := 0; i < cap(c.sem); i++ {
		c.sem <- struct{}{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Get(ctx, "media://1", "/x/a.jpg", 128); !errors.Is(err, context.Canceled) {
		t.Errorf("Get(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestCacheDecodeError(t *testing.T) {
	t.Parallel()

	boom := errors.New("corrupt file")
	c := NewCache(1 << 20)
	c.decode = func(string, int) (image.Image, error) { return nil, boom }

	if _, err := c.Get(context.Background(), "media://1", "/x/a.jpg", 128); !errors.Is(err, boom) {
		t.Fatalf("Get() error = %v, want %v", err, boom)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after failed decode, want 0", c.Len())
	}
}

func TestSampleFactor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		width  int
		height int
		target int
		want   int
	}{
		{name: "no downsample needed", width: 100, height: 100, target: 100, want: 1},
		{name: "half", width: 512, height: 512, target: 256, want: 2},
		{name: "quarter", width: 1024, height: 1024, target: 256, want: 4},
		{name: "limited by short side", width: 4096, height: 300, target: 256, want: 1},
		{name: "large photo", width: 4000, height: 3000, target: 256, want: 8},
		{name: "smaller than target", width: 100, height: 100, target: 256, want: 1},
		{name: "zero target", width: 1000, height: 1000, target: 0, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := sampleFactor(tt.width, tt.height, tt.target); got != tt.want {
				t.Errorf("sampleFactor(%d, %d, %d) = %d, want %d",
					tt.width, tt.height, tt.target, got, tt.want)
			}
		})
	}
}

func TestDecodeChainRealImage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "big.png")
	img := imaging.New(800, 600, color.NRGBA{R: 40, G: 80, B: 120, A: 255})
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("saving test image: %v", err)
	}

	thumb, err := decodeThumbnail(path, 128)
	if err != nil {
		t.Fatalf("decodeThumbnail() error = %v", err)
	}
	b := thumb.Bounds()
	if b.Dx() > 128 || b.Dy() > 128 {
		t.Errorf("thumbnail is %dx%d, want within 128x128", b.Dx(), b.Dy())
	}
	if b.Dx() != 128 {
		t.Errorf("thumbnail width = %d, want 128 (fit on the long side)", b.Dx())
	}
}

func TestDecodeChainJunkFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "junk.jpg")
	if err := os.WriteFile(path, []byte("not an image at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := decodeThumbnail(path, 128); err == nil {
		t.Fatal("decodeThumbnail() on junk bytes succeeded, want error")
	}
}

func TestDecodeChainMissingFile(t *testing.T) {
	t.Parallel()

	_, err := decodeThumbnail(filepath.Join(t.TempDir(), "nope.jpg"), 128)
	if err == nil {
		t.Fatal("decodeThumbnail() on a missing file succeeded, want error")
	}
}
