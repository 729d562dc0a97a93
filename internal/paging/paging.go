package paging

import (
	"context"
	"sync"
)

// Status tracks the load state of a page source.
type Status int

const (
	// StatusIdle means no load has been requested yet.
	StatusIdle Status = iota
	// StatusLoading means a page request is in flight.
	StatusLoading
	// StatusLoaded means the most recent page request succeeded.
	StatusLoaded
	// StatusErrored means the most recent page request failed. The caller
	// may retry by requesting the same offset again.
	StatusErrored
)

// String returns the string representation of a status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Page is one loaded page plus its continuation key. Next is nil when the
// source is exhausted.
type Page[T any] struct {
	Items []T
	Next  *int
}

// FetchFunc reads one page of items at the given offset.
type FetchFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// Source is a restartable page source over a fetch function. Loads always
// start from offset 0 on refresh; there is no refresh key.
type Source[T any] struct {
	fetch  FetchFunc[T]
	filter func(T) bool

	mu      sync.Mutex
	status  Status
	lastErr error
}

// NewSource creates a page source over fetch.
func NewSource[T any](fetch FetchFunc[T]) *Source[T] {
	return &Source[T]{fetch: fetch}
}

// NewFilteredSource creates a page source that drops fetched items failing
// keep. The continuation key is still computed from the unfiltered page, so
// paging through the backing data stays exhaustive.
func NewFilteredSource[T any](fetch FetchFunc[T], keep func(T) bool) *Source[T] {
	return &Source[T]{fetch: fetch, filter: keep}
}

// Load fetches one page. A short page (fewer items than requested) marks
// the end of the data; the returned continuation is nil.
func (s *Source[T]) Load(ctx context.Context, offset, limit int) (Page[T], error) {
	s.setStatus(StatusLoading, nil)

	items, err := s.fetch(ctx, offset, limit)
	if err != nil {
		s.setStatus(StatusErrored, err)
		return Page[T]{}, err
	}

	// hasMore is judged on the raw page size, before filtering, so a filter
	// can never truncate pagination early.
	hasMore := len(items) >= limit

	if s.filter != nil {
		kept := items[:0:0]
		for _, item := range items {
			if s.filter(item) {
				kept = append(kept, item)
			}
		}
		page := Page[T]{Items: kept}
		if hasMore {
			next := offset + len(items)
			page.Next = &next
		}
		s.setStatus(StatusLoaded, nil)
		return page, nil
	}

	page := Page[T]{Items: items}
	if hasMore {
		next := offset + len(items)
		page.Next = &next
	}
	s.setStatus(StatusLoaded, nil)
	return page, nil
}

func (s *Source[T]) setStatus(status Status, err error) {
	s.mu.Lock()
	s.status = status
	s.lastErr = err
	s.mu.Unlock()
}

// Status returns the current load state.
func (s *Source[T]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastErr returns the error from the most recent failed load, if any.
func (s *Source[T]) LastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
