package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GauravRai2002/ARBadminton/internal/collision"
	"github.com/GauravRai2002/ARBadminton/internal/depth"
	"github.com/GauravRai2002/ARBadminton/internal/geom"
	"github.com/GauravRai2002/ARBadminton/internal/store"
)

// fakeEvents is an EventSource that lets tests emit collisions.
type fakeEvents struct {
	mu  sync.Mutex
	fns map[int]func(collision.Event)
	n   int
}

func (f *fakeEvents) Subscribe(fn func(collision.Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fns == nil {
		f.fns = make(map[int]func(collision.Event))
	}
	id := f.n
	f.n++
	f.fns[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.fns, id)
	}
}

func (f *fakeEvents) emit(ev collision.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fn := range f.fns {
		fn(ev)
	}
}

func (f *fakeEvents) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fns)
}

// fakeFrames is a FrameSource serving a fixed JPEG payload.
type fakeFrames struct {
	jpeg    []byte
	viewers atomic.Int32
}

func (f *fakeFrames) AddViewer() func() {
	f.viewers.Add(1)
	var once sync.Once
	return func() { once.Do(func() { f.viewers.Add(-1) }) }
}

func (f *fakeFrames) LatestJPEG() []byte { return f.jpeg }

type fixedStats uint64

func (s fixedStats) DroppedFrames() uint64 { return uint64(s) }

type nopPlacer struct{}

func (nopPlacer) SetNet(geom.PlaneRegion) error                   { return nil }
func (nopPlacer) SetCameraPose(depth.Camera) error                { return nil }
func (nopPlacer) Placement() (*geom.PlaneRegion, *depth.Camera) { return nil, nil }
func (nopPlacer) SetSurfaces([]geom.Plane) error                  { return nil }
func (nopPlacer) Surfaces() []geom.Plane                          { return nil }

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_HealthReportsDroppedFrames(t *testing.T) {
	s := New(Config{Stats: fixedStats(7)})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var response map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["dropped_frames"] != float64(7) {
		t.Errorf("expected dropped_frames 7, got %v", response["dropped_frames"])
	}

	rec = httptest.NewRecorder()
	New(Config{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if strings.Contains(rec.Body.String(), "dropped_frames") {
		t.Error("expected no dropped_frames without a stats source")
	}
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/nonexistent", "/api/collisions", "/api/net", "/api/events", "/api/stream"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d without dependencies, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_Routes(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()

	s := New(Config{Store: st, Placer: nopPlacer{}})
	defer s.Close()

	tests := []struct {
		path string
		want int
	}{
		{"/api/collisions", http.StatusOK},
		{"/api/collisions/missing", http.StatusNotFound},
		{"/api/sessions", http.StatusOK},
		{"/api/sessions/missing", http.StatusNotFound},
		{"/api/net", http.StatusNotFound},
		{"/api/camera", http.StatusNotFound},
		{"/api/surfaces", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != tt.want {
			t.Errorf("%s: expected status %d, got %d", tt.path, tt.want, rec.Code)
		}
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	testContent := "<html><body>Net view</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	cssContent := "body { color: red; }"
	if err := os.WriteFile(filepath.Join(tmpDir, "style.css"), []byte(cssContent), 0644); err != nil {
		t.Fatalf("failed to create test CSS file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	t.Run("serves index.html at root path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		if rec.Body.String() != testContent {
			t.Errorf("expected body %q, got %q", testContent, rec.Body.String())
		}
	})

	t.Run("serves static files from configured directory", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/style.css", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Body.String() != cssContent {
			t.Errorf("expected body %q, got %q", cssContent, rec.Body.String())
		}
	})

	t.Run("returns 404 for non-existent static files", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nonexistent.html", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestServer_EventsWebSocket(t *testing.T) {
	events := &fakeEvents{}
	s := New(Config{Events: events})
	ts := httptest.NewServer(s)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	events.emit(collision.Event{ID: "hit-1", Side: collision.SideB, ImpactSpeed: 12.5})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got collision.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if got.ID != "hit-1" || got.Side != collision.SideB || got.ImpactSpeed != 12.5 {
		t.Errorf("unexpected event %+v", got)
	}

	s.Close()
	if events.subscribers() != 0 {
		t.Error("expected server to unsubscribe on close")
	}
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("expected going-away close, got %v", err)
	}
}

func TestEventHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := NewEventHub()
	ch := make(chan []byte, clientBuffer)
	hub.clients[nil] = ch

	done := make(chan struct{})
	go func() {
		for i := 0; i < clientBuffer*3; i++ {
			hub.Broadcast(collision.Event{ID: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full client")
	}
	if len(ch) != clientBuffer {
		t.Errorf("expected %d queued events, got %d", clientBuffer, len(ch))
	}
}

func TestStreamHandler(t *testing.T) {
	frames := &fakeFrames{jpeg: []byte("\xff\xd8jpeg\xff\xd9")}
	s := New(Config{Frames: frames})
	ts := httptest.NewServer(s)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("unexpected Content-Type %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read boundary: %v", err)
	}
	if line != "--frame\r\n" {
		t.Errorf("expected boundary, got %q", line)
	}
	if frames.viewers.Load() != 1 {
		t.Errorf("expected 1 viewer while streaming, got %d", frames.viewers.Load())
	}

	cancel()
	io.Copy(io.Discard, r)

	deadline := time.Now().Add(2 * time.Second)
	for frames.viewers.Load() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("viewer not released after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	h := NewStreamHandler(&fakeFrames{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stream", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestNew(t *testing.T) {
	t.Run("creates server with config", func(t *testing.T) {
		cfg := Config{StaticDir: "/some/path"}
		s := New(cfg)

		if s == nil {
			t.Fatal("expected non-nil server")
		}

		if s.config.StaticDir != cfg.StaticDir {
			t.Errorf("expected StaticDir %s, got %s", cfg.StaticDir, s.config.StaticDir)
		}
	})

	t.Run("server implements http.Handler", func(t *testing.T) {
		s := New(Config{})
		var _ http.Handler = s
	})
}
