package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"imagepick/internal/logging"
	"imagepick/internal/mediastore"
	"imagepick/internal/picker"

	"github.com/gorilla/mux"
)

// openSessionRequest optionally overrides parts of the server's default
// picker configuration for one session.
type openSessionRequest struct {
	MaxSelection    *int     `json:"maxSelection,omitempty"`
	MimeTypes       []string `json:"mimeTypes,omitempty"`
	PreselectedURIs []string `json:"preselectedUris,omitempty"`
}

type sessionEventRequest struct {
	Event    string `json:"event"`
	URI      string `json:"uri,omitempty"`
	BucketID *int64 `json:"bucketId,omitempty"`
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	cfg := s.cfg
	if r.Body != nil {
		var req openSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			if req.MaxSelection != nil {
				cfg.MaxSelection = *req.MaxSelection
			}
			if len(req.MimeTypes) > 0 {
				cfg.MimeTypes = req.MimeTypes
			}
			if len(req.PreselectedURIs) > 0 {
				cfg.PreselectedURIs = req.PreselectedURIs
			}
		}
	}

	sess, err := picker.Open(r.Context(), s.images, s.folders, cfg)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()

	logging.Debug("session %s opened", sess.ID())
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":    sess.ID(),
		"state": sess.State(),
	})
}

func (s *Server) session(r *http.Request) (*picker.Session, error) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown session %q", id)
	}
	return sess, nil
}

func (s *Server) sessionState(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) sessionEvent(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req sessionEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()
	switch req.Event {
	case "imageClicked":
		images, lookupErr := s.images.GetByURIs(ctx, []string{req.URI})
		if lookupErr != nil {
			writeError(w, http.StatusBadGateway, lookupErr)
			return
		}
		if len(images) == 0 {
			writeError(w, http.StatusNotFound, fmt.Errorf("unknown image %q", req.URI))
			return
		}
		sess.ImageClicked(images[0])
	case "folderClicked":
		var folder *mediastore.Folder
		if req.BucketID != nil {
			folder, err = s.folders.Lookup(ctx, *req.BucketID)
			if err != nil {
				writeError(w, http.StatusNotFound, err)
				return
			}
		}
		err = sess.FolderClicked(ctx, folder)
	case "selectAll":
		err = sess.SelectAll(ctx, req.BucketID)
	case "clearSelection":
		sess.ClearSelection()
	case "dismissMessage":
		sess.DismissMessage()
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown event %q", req.Event))
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) finishSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	selected := sess.Finish()

	s.mu.Lock()
	delete(s.sessions, mux.Vars(r)["id"])
	s.mu.Unlock()

	logging.Debug("session %s finished with %d selected", sess.ID(), len(selected))
	writeJSON(w, http.StatusOK, map[string]interface{}{"selected": selected})
}

func (s *Server) cancelSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	sess.Cancel()

	s.mu.Lock()
	delete(s.sessions, mux.Vars(r)["id"])
	s.mu.Unlock()

	logging.Debug("session %s cancelled", sess.ID())
	w.WriteHeader(http.StatusNoContent)
}
