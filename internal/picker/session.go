package picker

import (
	"context"
	"fmt"
	"sync"

	"imagepick/internal/logging"
	"imagepick/internal/mediastore"
	"imagepick/internal/metrics"
	"imagepick/internal/paging"

	"github.com/google/uuid"
)

// maxPreloadIDs bounds the select-all id pools. Pools are a first-N-by-recency
// sample, not a complete set: on an index larger than the bound, select-all
// silently leaves items beyond the sample untouched, and the "all selected"
// flags are computed against the sample.
const maxPreloadIDs = 3000

// Library is the image catalog surface a session depends on.
// *catalog.Images implements it.
type Library interface {
	AllPhotos() *paging.Source[mediastore.Image]
	FolderPhotos(bucketID int64) *paging.Source[mediastore.Image]
	GetByIDs(ctx context.Context, ids []int64) ([]mediastore.Image, error)
	GetByURIs(ctx context.Context, uris []string) ([]mediastore.Image, error)
	IDs(ctx context.Context, limit int) ([]int64, error)
	IDsInFolder(ctx context.Context, bucketID int64, limit int) ([]int64, error)
}

// FolderLister is the folder catalog surface a session depends on.
// *catalog.Folders implements it.
type FolderLister interface {
	FolderPages() *paging.Source[mediastore.Folder]
}

// FolderImages is the folder drill-down context: the folder plus a page
// source scoped to it.
type FolderImages struct {
	Folder mediastore.Folder
	Images *paging.Source[mediastore.Image]
}

// State is one consistent snapshot of a picker session. Every transition
// replaces the selection containers wholesale; nothing is mutated in place.
type State struct {
	Photos  *paging.Source[mediastore.Image]
	Folders *paging.Source[mediastore.Folder]

	// Current is non-nil while drilled into a folder.
	Current *FolderImages

	// Selected is the ordered selection; SelectedIDs mirrors it for O(1)
	// membership tests.
	Selected    []mediastore.Image
	SelectedIDs map[int64]struct{}

	AllSelected    bool
	FolderSelected bool

	// Bounded id pools backing the two select-all scopes.
	AllPhotoIDs    []int64
	FolderPhotoIDs []int64

	// Message is a transient user-facing notice (cap exceeded).
	Message string

	MaxSelectionReached bool
}

// Selected is one picked image as returned to the host.
type Selected struct {
	URI     string `json:"uri"`
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	MediaID int64  `json:"mediaId"`
}

// Session is one picker session. Events are serialized: evMu admits one
// handler at a time, so every handler runs against the latest state and
// installs a fully recomputed replacement. mu guards only the state slot
// so State() never blocks behind an in-flight lookup.
type Session struct {
	id      string
	cfg     Config
	max     int
	preload int

	library Library

	evMu  sync.Mutex
	mu    sync.Mutex
	state State
	done  bool
}

// Open starts a picker session: it wires the photo and folder streams,
// resolves any preselected identifiers, and preloads the global id pool.
func Open(ctx context.Context, library Library, folders FolderLister, cfg Config) (*Session, error) {
	max := cfg.maxSelection()
	preload := maxPreloadIDs
	if max < preload {
		preload = max
	}

	s := &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		max:     max,
		preload: preload,
		library: library,
	}

	st := State{
		Photos:      library.AllPhotos(),
		Folders:     folders.FolderPages(),
		SelectedIDs: map[int64]struct{}{},
	}

	if len(cfg.PreselectedURIs) > 0 {
		preselected, err := library.GetByURIs(ctx, cfg.PreselectedURIs)
		if err != nil {
			return nil, fmt.Errorf("resolving preselected images: %w", err)
		}
		st.Selected = preselected
		st.SelectedIDs = idSet(mediaIDs(preselected))
	}

	allIDs, err := library.IDs(ctx, preload)
	if err != nil {
		return nil, fmt.Errorf("preloading photo ids: %w", err)
	}
	st.AllPhotoIDs = allIDs
	st.MaxSelectionReached = len(st.Selected) >= max
	recomputeFlags(&st)

	s.state = st
	metrics.SessionsOpen.Inc()
	logging.Debug("picker session %s opened: %d preselected, %d pooled ids", s.id, len(st.Selected), len(allIDs))
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// State returns the current state snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ImageClicked toggles one image. Deselecting always succeeds; selecting
// past the cap changes nothing except the transient message.
func (s *Session) ImageClicked(img mediastore.Image) {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.SessionEventsTotal.WithLabelValues("image_clicked").Inc()

	st := s.state
	if _, selected := st.SelectedIDs[img.MediaID]; selected {
		kept := make([]mediastore.Image, 0, len(st.Selected)-1)
		for _, sel := range st.Selected {
			if sel.MediaID != img.MediaID {
				kept = append(kept, sel)
			}
		}
		st.Selected = kept
		st.SelectedIDs = idSet(mediaIDs(kept))
		st.MaxSelectionReached = false
	} else {
		if len(st.Selected) >= s.max {
			st.Message = fmt.Sprintf("Maximum of %d images allowed", s.max)
			st.MaxSelectionReached = true
			s.state = st
			return
		}
		next := append(append([]mediastore.Image(nil), st.Selected...), img)
		st.Selected = next
		st.SelectedIDs = idSet(mediaIDs(next))
		st.MaxSelectionReached = len(next) >= s.max
	}

	recomputeFlags(&st)
	s.state = st
}

// FolderClicked enters a folder (opening a folder-scoped stream and id
// pool) or, with nil, returns to the folder list.
func (s *Session) FolderClicked(ctx context.Context, folder *mediastore.Folder) error {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	metrics.SessionEventsTotal.WithLabelValues("folder_clicked").Inc()

	if folder == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		st := s.state
		st.Current = nil
		st.FolderPhotoIDs = nil
		recomputeFlags(&st)
		s.state = st
		return nil
	}

	ids, err := s.library.IDsInFolder(ctx, folder.BucketID, s.preload)
	if err != nil {
		return fmt.Errorf("preloading folder ids: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Current = &FolderImages{
		Folder: *folder,
		Images: s.library.FolderPhotos(folder.BucketID),
	}
	st.FolderPhotoIDs = ids
	recomputeFlags(&st)
	s.state = st
	return nil
}

// SelectAll toggles the selection over one scope: the current folder when
// folderID is non-nil, otherwise all photos. If every pooled id is already
// selected the scope is deselected; otherwise missing ids are added up to
// the remaining capacity, with a message when any were dropped.
func (s *Session) SelectAll(ctx context.Context, folderID *int64) error {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	metrics.SessionEventsTotal.WithLabelValues("select_all").Inc()

	s.mu.Lock()
	st := s.state
	pool := st.AllPhotoIDs
	if folderID != nil {
		pool = st.FolderPhotoIDs
	}

	var missing []int64
	for _, id := range pool {
		if _, ok := st.SelectedIDs[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		// Everything in scope selected: deselect exactly the scope.
		inPool := idSet(pool)
		kept := make([]mediastore.Image, 0, len(st.Selected))
		for _, sel := range st.Selected {
			if _, ok := inPool[sel.MediaID]; !ok {
				kept = append(kept, sel)
			}
		}
		st.Selected = kept
		st.SelectedIDs = idSet(mediaIDs(kept))
		st.MaxSelectionReached = false
		recomputeFlags(&st)
		s.state = st
		s.mu.Unlock()
		return nil
	}

	capacity := s.max - len(st.Selected)
	if capacity < 0 {
		capacity = 0
	}
	toAdd := missing
	if len(toAdd) > capacity {
		toAdd = toAdd[:capacity]
	}
	s.mu.Unlock()

	var added []mediastore.Image
	if len(toAdd) > 0 {
		var err error
		added, err = s.library.GetByIDs(ctx, toAdd)
		if err != nil {
			return fmt.Errorf("resolving select-all ids: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st = s.state
	if len(added) > 0 {
		next := append(append([]mediastore.Image(nil), st.Selected...), added...)
		st.Selected = next
		st.SelectedIDs = idSet(mediaIDs(next))
		st.MaxSelectionReached = len(next) >= s.max
	}
	if len(toAdd) < len(missing) {
		st.Message = fmt.Sprintf("Maximum of %d images allowed", s.max)
	}
	recomputeFlags(&st)
	s.state = st
	return nil
}

// ClearSelection empties the selection and resets every selection flag.
func (s *Session) ClearSelection() {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.SessionEventsTotal.WithLabelValues("clear").Inc()

	st := s.state
	st.Selected = nil
	st.SelectedIDs = map[int64]struct{}{}
	st.AllSelected = false
	st.FolderSelected = false
	st.MaxSelectionReached = false
	s.state = st
}

// DismissMessage clears the transient message only.
func (s *Session) DismissMessage() {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.SessionEventsTotal.WithLabelValues("dismiss_message").Inc()

	st := s.state
	st.Message = ""
	s.state = st
}

// Finish ends the session and returns the ordered selection as host-facing
// records.
func (s *Session) Finish() []Selected {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true
	metrics.SessionsOpen.Dec()

	result := make([]Selected, 0, len(s.state.Selected))
	for _, img := range s.state.Selected {
		result = append(result, Selected{
			URI:     img.URI(),
			Name:    img.Name,
			Size:    img.Size,
			Width:   img.Width,
			Height:  img.Height,
			MediaID: img.MediaID,
		})
	}
	logging.Debug("picker session %s finished with %d images", s.id, len(result))
	return result
}

// Cancel ends the session without a result.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	metrics.SessionsOpen.Dec()
	logging.Debug("picker session %s cancelled", s.id)
}

// recomputeFlags derives both "all selected" flags from the pools and the
// current selection. They are never toggled directly.
func recomputeFlags(st *State) {
	st.AllSelected = poolSelected(st.AllPhotoIDs, st.SelectedIDs)
	st.FolderSelected = poolSelected(st.FolderPhotoIDs, st.SelectedIDs)
}

func poolSelected(pool []int64, selected map[int64]struct{}) bool {
	if len(pool) == 0 {
		return false
	}
	for _, id := range pool {
		if _, ok := selected[id]; !ok {
			return false
		}
	}
	return true
}

func mediaIDs(images []mediastore.Image) []int64 {
	ids := make([]int64, len(images))
	for i, img := range images {
		ids[i] = img.MediaID
	}
	return ids
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
