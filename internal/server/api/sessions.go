package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/pupiltrack/internal/store"
)

// SessionHandler handles HTTP requests for recording sessions.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

type sessionResponse struct {
	ID        string  `json:"id"`
	EntityID  int     `json:"entity_id"`
	Strategy  string  `json:"strategy"`
	Endpoint  string  `json:"endpoint,omitempty"`
	StartedAt string  `json:"started_at"`
	EndedAt   *string `json:"ended_at"`
	Results   int     `json:"results"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/sessions and /api/sessions/{id}
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions"), "/")
	if id == "" {
		h.list(w, r)
		return
	}
	if strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	h.get(w, r, id)
}

func (h *SessionHandler) toResponse(s *store.Session) (sessionResponse, error) {
	n, err := h.store.Results().Count(s.ID)
	if err != nil {
		return sessionResponse{}, err
	}

	resp := sessionResponse{
		ID:        s.ID,
		EntityID:  s.EntityID,
		Strategy:  s.Strategy,
		Endpoint:  s.Endpoint,
		StartedAt: s.StartedAt.Format(time.RFC3339),
		Results:   n,
	}
	if s.EndedAt != nil {
		ended := s.EndedAt.Format(time.RFC3339)
		resp.EndedAt = &ended
	}
	return resp, nil
}

// list handles GET /api/sessions
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		resp, err := h.toResponse(s)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to count results")
			return
		}
		response.Sessions = append(response.Sessions, resp)
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id}
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	s, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	resp, err := h.toResponse(s)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count results")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
