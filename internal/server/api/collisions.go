package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/GauravRai2002/ARBadminton/internal/store"
)

const (
	defaultCollisionLimit = 100
	maxCollisionLimit     = 1000
)

// CollisionHandler serves the stored collision history.
type CollisionHandler struct {
	store *store.Store
}

// NewCollisionHandler creates a new CollisionHandler with the given store.
func NewCollisionHandler(s *store.Store) *CollisionHandler {
	return &CollisionHandler{store: s}
}

type listCollisionsResponse struct {
	Collisions []*store.Collision `json:"collisions"`
}

// ServeHTTP routes /api/collisions and /api/collisions/{id}.
func (h *CollisionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/collisions"), "/")
	if id == "" {
		h.list(w, r)
		return
	}
	h.get(w, id)
}

// list handles GET /api/collisions?session=&limit=, newest first.
func (h *CollisionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, defaultCollisionLimit, maxCollisionLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	collisions, err := h.store.Collisions().List(store.CollisionFilter{
		SessionID: r.URL.Query().Get("session"),
		Limit:     limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list collisions")
		return
	}
	if collisions == nil {
		collisions = []*store.Collision{}
	}
	writeJSON(w, http.StatusOK, listCollisionsResponse{Collisions: collisions})
}

// get handles GET /api/collisions/{id}.
func (h *CollisionHandler) get(w http.ResponseWriter, id string) {
	c, err := h.store.Collisions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Collision not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get collision")
		return
	}
	writeJSON(w, http.StatusOK, c)
}
