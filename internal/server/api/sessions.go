package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/GauravRai2002/ARBadminton/internal/collision"
	"github.com/GauravRai2002/ARBadminton/internal/store"
)

const (
	defaultSessionLimit = 20
	maxSessionLimit     = 200
)

// SessionHandler serves capture sessions with their per-side hit counts.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

type sessionResponse struct {
	*store.Session
	Hits map[collision.Side]int `json:"hits"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

// ServeHTTP routes /api/sessions and /api/sessions/{id}.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/sessions"), "/")
	if id == "" {
		h.list(w, r)
		return
	}
	h.get(w, id)
}

func (h *SessionHandler) withHits(s *store.Session) (sessionResponse, error) {
	hits, err := h.store.Collisions().CountBySide(s.ID)
	if err != nil {
		return sessionResponse{}, err
	}
	return sessionResponse{Session: s, Hits: hits}, nil
}

// list handles GET /api/sessions?limit=, newest first.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, defaultSessionLimit, maxSessionLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		item, err := h.withHits(s)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to count hits")
			return
		}
		response.Sessions = append(response.Sessions, item)
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id}.
func (h *SessionHandler) get(w http.ResponseWriter, id string) {
	s, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	item, err := h.withHits(s)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count hits")
		return
	}
	writeJSON(w, http.StatusOK, item)
}
