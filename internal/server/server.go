package server

import (
	"encoding/json"
	"errors"
	"image/jpeg"
	"net/http"
	"strconv"
	"sync"

	"imagepick/internal/catalog"
	"imagepick/internal/logging"
	"imagepick/internal/mediastore"
	"imagepick/internal/picker"
	"imagepick/internal/thumbs"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultPageSize = 30
	maxPageSize     = 500
	defaultThumb    = 256
)

// Server is the demo host: a JSON surface over the picker core so the
// contract can be exercised without a native UI.
type Server struct {
	images  *catalog.Images
	folders *catalog.Folders
	thumbs  *thumbs.Cache
	cfg     picker.Config

	mu       sync.Mutex
	sessions map[string]*picker.Session
}

// New creates a demo host over the given catalogs.
func New(images *catalog.Images, folders *catalog.Folders, cache *thumbs.Cache, cfg picker.Config) *Server {
	return &Server{
		images:   images,
		folders:  folders,
		thumbs:   cache,
		cfg:      cfg,
		sessions: make(map[string]*picker.Session),
	}
}

// Router builds the demo host route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/images", s.listImages).Methods("GET")
	api.HandleFunc("/images/count", s.countImages).Methods("GET")
	api.HandleFunc("/folders", s.listFolders).Methods("GET")
	api.HandleFunc("/folders/{bucket}/images", s.listFolderImages).Methods("GET")
	api.HandleFunc("/thumbnail/{id}", s.thumbnail).Methods("GET")
	api.HandleFunc("/cache/clear", s.clearCache).Methods("POST")

	api.HandleFunc("/session", s.openSession).Methods("POST")
	api.HandleFunc("/session/{id}", s.sessionState).Methods("GET")
	api.HandleFunc("/session/{id}/events", s.sessionEvent).Methods("POST")
	api.HandleFunc("/session/{id}/finish", s.finishSession).Methods("POST")
	api.HandleFunc("/session/{id}", s.cancelSession).Methods("DELETE")

	r.Use(Metrics())
	r.Use(Logger())
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pageParams(r *http.Request) (int, int) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}

type pageResponse struct {
	Items interface{} `json:"items"`
	Next  *int        `json:"next"`
}

func nextOffset(offset, returned, limit int) *int {
	if returned < limit {
		return nil
	}
	next := offset + returned
	return &next
}

func (s *Server) listImages(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	images, err := s.images.GetPage(r.Context(), offset, limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Items: images, Next: nextOffset(offset, len(images), limit)})
}

func (s *Server) countImages(w http.ResponseWriter, r *http.Request) {
	count, err := s.images.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) listFolders(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	folders, err := s.folders.GetPage(r.Context(), offset, limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Items: folders, Next: nextOffset(offset, len(folders), limit)})
}

func (s *Server) listFolderImages(w http.ResponseWriter, r *http.Request) {
	bucket, err := strconv.ParseInt(mux.Vars(r)["bucket"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	offset, limit := pageParams(r)
	images, err := s.images.GetPageInFolder(r.Context(), bucket, offset, limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Items: images, Next: nextOffset(offset, len(images), limit)})
}

func (s *Server) thumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size < 1 {
		size = defaultThumb
	}

	img, err := s.images.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, mediastore.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
		} else {
			writeError(w, http.StatusBadGateway, err)
		}
		return
	}

	thumb, err := s.thumbs.Get(r.Context(), img.URI(), img.Path, size)
	if err != nil {
		// No thumbnail: the client renders a placeholder
		logging.Debug("thumbnail unavailable for %s: %v", img.Path, err)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if err := jpeg.Encode(w, thumb, &jpeg.Options{Quality: 80}); err != nil {
		logging.Warn("thumbnail encode failed for %s: %v", img.Path, err)
	}
}

func (s *Server) clearCache(w http.ResponseWriter, _ *http.Request) {
	s.thumbs.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("response encode failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
