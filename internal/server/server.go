// Package server provides the HTTP server for the ARBadminton service.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/GauravRai2002/ARBadminton/internal/collision"
	"github.com/GauravRai2002/ARBadminton/internal/server/api"
	"github.com/GauravRai2002/ARBadminton/internal/store"
)

// EventSource delivers collision events as they happen.
type EventSource interface {
	Subscribe(fn func(collision.Event)) (unsubscribe func())
}

// FrameSource provides annotated debug frames while viewers are attached.
type FrameSource interface {
	AddViewer() (release func())
	LatestJPEG() []byte
}

// StatsSource reports capture counters for the health endpoint.
type StatsSource interface {
	DroppedFrames() uint64
}

// Config holds the server configuration. Routes are only registered for the
// dependencies that are set.
type Config struct {
	StaticDir string
	Store     *store.Store
	Placer    api.Placer
	Events    EventSource
	Frames    FrameSource
	Stats     StatsSource
}

// Server represents the HTTP server for the ARBadminton application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	hub    *EventHub
	unsub  func()
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		collisions := api.NewCollisionHandler(s.config.Store)
		s.mux.Handle("/api/collisions", collisions)
		s.mux.Handle("/api/collisions/", collisions)

		sessions := api.NewSessionHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	if s.config.Placer != nil {
		s.mux.Handle("/api/net", api.NewNetHandler(s.config.Placer))
		s.mux.Handle("/api/camera", api.NewCameraHandler(s.config.Placer))
		s.mux.Handle("/api/surfaces", api.NewSurfacesHandler(s.config.Placer))
	}

	if s.config.Events != nil {
		s.hub = NewEventHub()
		s.unsub = s.config.Events.Subscribe(s.hub.Broadcast)
		s.mux.Handle("/api/events", s.hub)
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.hub != nil {
		response["event_clients"] = s.hub.Clients()
	}
	if s.config.Stats != nil {
		response["dropped_frames"] = s.config.Stats.DroppedFrames()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Close detaches from the event source and disconnects websocket clients.
func (s *Server) Close() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	if s.hub != nil {
		s.hub.Close()
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
