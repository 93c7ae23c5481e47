package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/GauravRai2002/ARBadminton/internal/collision"
	"github.com/GauravRai2002/ARBadminton/internal/depth"
	"github.com/GauravRai2002/ARBadminton/internal/geom"
	"github.com/GauravRai2002/ARBadminton/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertHit(t *testing.T, s *store.Store, sessionID string, side collision.Side) collision.Event {
	t.Helper()
	ev := collision.Event{
		ID:                uuid.NewString(),
		ContactPoint:      r3.Vec{Z: 1.2},
		Side:              side,
		ImpactSpeed:       11,
		ApproachDirection: r3.Vec{X: -1},
		TimestampMillis:   1500,
	}
	if _, err := s.Collisions().Insert(sessionID, ev); err != nil {
		t.Fatalf("failed to insert collision: %v", err)
	}
	return ev
}

func TestCollisionHandler_List(t *testing.T) {
	s := newTestStore(t)
	first, err := s.Sessions().Start("frame_delta")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Sessions().Start("frame_delta")
	if err != nil {
		t.Fatal(err)
	}
	insertHit(t, s, first.ID, collision.SideA)
	insertHit(t, s, first.ID, collision.SideB)
	insertHit(t, s, second.ID, collision.SideA)

	handler := NewCollisionHandler(s)

	tests := []struct {
		name string
		url  string
		want int
	}{
		{"all", "/api/collisions", 3},
		{"by session", "/api/collisions?session=" + first.ID, 2},
		{"limited", "/api/collisions?limit=1", 1},
		{"unknown session", "/api/collisions?session=nope", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}
			var resp struct {
				Collisions []struct {
					ID        string `json:"id"`
					Side      string `json:"side"`
					SessionID string `json:"session_id"`
				} `json:"collisions"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Collisions == nil {
				t.Fatal("collisions must be an array, not null")
			}
			if len(resp.Collisions) != tt.want {
				t.Errorf("expected %d collisions, got %d", tt.want, len(resp.Collisions))
			}
		})
	}

	t.Run("invalid limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/collisions?limit=-3", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestCollisionHandler_Get(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.Sessions().Start("ml_model")
	if err != nil {
		t.Fatal(err)
	}
	ev := insertHit(t, s, sess.ID, collision.SideB)
	handler := NewCollisionHandler(s)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/collisions/"+ev.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var got store.Collision
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != ev.ID || got.Side != collision.SideB || got.SessionID != sess.ID {
		t.Errorf("unexpected collision %+v", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/collisions/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/collisions/"+ev.ID, nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
}

func TestSessionHandler(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.Sessions().Start("color_threshold")
	if err != nil {
		t.Fatal(err)
	}
	insertHit(t, s, sess.ID, collision.SideA)
	insertHit(t, s, sess.ID, collision.SideA)
	insertHit(t, s, sess.ID, collision.SideB)
	handler := NewSessionHandler(s)

	type sessionJSON struct {
		ID       string         `json:"id"`
		Detector string         `json:"detector"`
		Hits     map[string]int `json:"hits"`
	}

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var resp struct {
			Sessions []sessionJSON `json:"sessions"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Sessions) != 1 {
			t.Fatalf("expected 1 session, got %d", len(resp.Sessions))
		}
		got := resp.Sessions[0]
		if got.ID != sess.ID || got.Detector != "color_threshold" {
			t.Errorf("unexpected session %+v", got)
		}
		if got.Hits["A"] != 2 || got.Hits["B"] != 1 {
			t.Errorf("expected hits A=2 B=1, got %v", got.Hits)
		}
	})

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var got sessionJSON
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.Hits["A"] != 2 {
			t.Errorf("expected 2 side A hits, got %v", got.Hits)
		}
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}

// fakePlacer validates like the pipeline and records placements.
type fakePlacer struct {
	net      *geom.PlaneRegion
	cam      *depth.Camera
	surfaces []geom.Plane
	err      error
}

func (f *fakePlacer) SetNet(region geom.PlaneRegion) error {
	if f.err != nil {
		return f.err
	}
	if _, err := region.Frame(); err != nil {
		return err
	}
	f.net = &region
	return nil
}

func (f *fakePlacer) SetCameraPose(cam depth.Camera) error {
	if f.err != nil {
		return f.err
	}
	f.cam = &cam
	return nil
}

func (f *fakePlacer) Placement() (*geom.PlaneRegion, *depth.Camera) {
	return f.net, f.cam
}

func (f *fakePlacer) SetSurfaces(surfaces []geom.Plane) error {
	if f.err != nil {
		return f.err
	}
	planes := make([]geom.Plane, 0, len(surfaces))
	for _, s := range surfaces {
		pl, err := s.Normalized()
		if err != nil {
			return err
		}
		planes = append(planes, pl)
	}
	f.surfaces = planes
	return nil
}

func (f *fakePlacer) Surfaces() []geom.Plane {
	return f.surfaces
}

func TestNetHandler(t *testing.T) {
	placer := &fakePlacer{}
	handler := NewNetHandler(placer)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/net", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 before placement, got %d", rec.Code)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"origin":{"X":0,"Y":0,"Z":1.55},"normal":{"X":1},"width":6.1,"height":0.76,"up":{"Z":1}}`, http.StatusOK},
		{"zero normal", `{"normal":{},"width":6.1,"height":0.76,"up":{"Z":1}}`, http.StatusUnprocessableEntity},
		{"unknown field", `{"normal":{"X":1},"depth":3}`, http.StatusBadRequest},
		{"not json", `net`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/net", bytes.NewBufferString(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}

	if placer.net == nil || placer.net.Width != 6.1 || placer.net.Origin.Z != 1.55 {
		t.Fatalf("net not placed: %+v", placer.net)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/net", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	placer.err = errors.New("disk full")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/net", bytes.NewBufferString(tests[0].body)))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

func TestCameraHandler(t *testing.T) {
	placer := &fakePlacer{}
	handler := NewCameraHandler(placer)

	body := `{"position":{"Z":1.5},"forward":{"X":1},"up":{"Z":1},"hfov":90,"width":640,"height":480}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/camera", bytes.NewBufferString(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if placer.cam == nil || placer.cam.Cx != 320 || placer.cam.Width != 640 {
		t.Fatalf("camera not placed: %+v", placer.cam)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/camera", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	bad := `{"position":{},"forward":{"Z":1},"up":{"Z":1},"hfov":90,"width":640,"height":480}`
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/camera", bytes.NewBufferString(bad)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422 for forward parallel to up, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/camera", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
}

func TestSurfacesHandler(t *testing.T) {
	placer := &fakePlacer{}
	handler := NewSurfacesHandler(placer)

	type surfacesJSON struct {
		Surfaces []geom.Plane `json:"surfaces"`
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/surfaces", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"surfaces":[]`) {
		t.Errorf("expected an empty array before placement, got %s", rec.Body.String())
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"plane of play", `{"surfaces":[{"point":{"X":0,"Y":0,"Z":0},"normal":{"Y":3}}]}`, http.StatusOK},
		{"zero normal", `{"surfaces":[{"point":{},"normal":{}}]}`, http.StatusUnprocessableEntity},
		{"unknown field", `{"planes":[]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/surfaces", bytes.NewBufferString(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}

	if len(placer.surfaces) != 1 || placer.surfaces[0].Normal.Y != 1 {
		t.Fatalf("expected one unit-normal surface, got %+v", placer.surfaces)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/surfaces", nil))
	var got surfacesJSON
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got.Surfaces) != 1 {
		t.Errorf("expected 1 surface, got %d", len(got.Surfaces))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/surfaces", bytes.NewBufferString(`{"surfaces":[]}`)))
	if rec.Code != http.StatusOK || len(placer.surfaces) != 0 {
		t.Errorf("expected an empty list to clear surfaces, got %d %+v", rec.Code, placer.surfaces)
	}
}
