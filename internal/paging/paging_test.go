package paging

import (
	"context"
	"errors"
	"testing"
)

// sliceFetch returns a FetchFunc over a fixed slice, mimicking an
// offset-limit backing query.
func sliceFetch(data []int) FetchFunc[int] {
	return func(_ context.Context, offset, limit int) ([]int, error) {
		if offset >= len(data) {
			return nil, nil
		}
		end := offset + limit
		if end > len(data) {
			end = len(data)
		}
		return data[offset:end], nil
	}
}

func collect(t *testing.T, src *Source[int], limit int) []int {
	t.Helper()

	var all []int
	offset := 0
	for {
		page, err := src.Load(context.Background(), offset, limit)
		if err != nil {
			t.Fatalf("Load(offset=%d) error = %v", offset, err)
		}
		all = append(all, page.Items...)
		if page.Next == nil {
			return all
		}
		if *page.Next <= offset {
			t.Fatalf("continuation did not advance: %d -> %d", offset, *page.Next)
		}
		offset = *page.Next
	}
}

func TestSourceExhaustive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		total int
		limit int
	}{
		{name: "empty", total: 0, limit: 5},
		{name: "single short page", total: 3, limit: 5},
		{name: "exact multiple", total: 10, limit: 5},
		{name: "uneven last page", total: 11, limit: 4},
		{name: "page size one", total: 4, limit: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := make([]int, tt.total)
			for i := range data {
				data[i] = i
			}

			got := collect(t, NewSource(sliceFetch(data)), tt.limit)
			if len(got) != tt.total {
				t.Fatalf("collected %d items, want %d", len(got), tt.total)
			}
			for i, v := range got {
				if v != i {
					t.Errorf("item %d = %d, want %d (order or duplication broken)", i, v, i)
				}
			}
		})
	}
}

func TestSourceExactBoundaryExtraPage(t *testing.T) {
	t.Parallel()

	// When the data size is an exact multiple of the page size, the last
	// full page still reports a continuation; the extra load comes back
	// empty and terminates cleanly.
	data := []int{0, 1, 2, 3}
	src := NewSource(sliceFetch(data))

	page, err := src.Load(context.Background(), 0, 4)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if page.Next == nil {
		t.Fatal("full page reported no continuation")
	}

	page, err = src.Load(context.Background(), *page.Next, 4)
	if err != nil {
		t.Fatalf("Load(next) error = %v", err)
	}
	if len(page.Items) != 0 || page.Next != nil {
		t.Errorf("trailing page = %d items, next=%v; want empty terminal page", len(page.Items), page.Next)
	}
}

func TestSourceStatus(t *testing.T) {
	t.Parallel()

	src := NewSource(sliceFetch([]int{1, 2, 3}))
	if src.Status() != StatusIdle {
		t.Errorf("initial Status() = %v, want idle", src.Status())
	}

	if _, err := src.Load(context.Background(), 0, 10); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if src.Status() != StatusLoaded {
		t.Errorf("Status() after load = %v, want loaded", src.Status())
	}
}

func TestSourceErrorAndRetry(t *testing.T) {
	t.Parallel()

	boom := errors.New("backing store unavailable")
	fail := true
	src := NewSource(func(_ context.Context, offset, limit int) ([]int, error) {
		if fail {
			return nil, boom
		}
		return sliceFetch([]int{1, 2})(context.Background(), offset, limit)
	})

	_, err := src.Load(context.Background(), 0, 10)
	if !errors.Is(err, boom) {
		t.Fatalf("Load() error = %v, want %v", err, boom)
	}
	if src.Status() != StatusErrored {
		t.Errorf("Status() after failure = %v, want errored", src.Status())
	}
	if !errors.Is(src.LastErr(), boom) {
		t.Errorf("LastErr() = %v, want %v", src.LastErr(), boom)
	}

	// Same offset again succeeds once the backing store recovers.
	fail = false
	page, err := src.Load(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("retry Load() error = %v", err)
	}
	if len(page.Items) != 2 {
		t.Errorf("retry returned %d items, want 2", len(page.Items))
	}
	if src.Status() != StatusLoaded {
		t.Errorf("Status() after retry = %v, want loaded", src.Status())
	}
	if src.LastErr() != nil {
		t.Errorf("LastErr() after retry = %v, want nil", src.LastErr())
	}
}

func TestFilteredSourceStaysExhaustive(t *testing.T) {
	t.Parallel()

	data := make([]int, 20)
	for i := range data {
		data[i] = i
	}

	// Keep only multiples of 3. Pages may come back nearly empty, but the
	// continuation still walks the full backing range.
	src := NewFilteredSource(sliceFetch(data), func(v int) bool { return v%3 == 0 })

	got := collect(t, src, 4)
	want := []int{0, 3, 6, 9, 12, 15, 18}
	if len(got) != len(want) {
		t.Fatalf("collected %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestStatusString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status Status
		want   string
	}{
		{StatusIdle, "idle"},
		{StatusLoading, "loading"},
		{StatusLoaded, "loaded"},
		{StatusErrored, "errored"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
