package api

import (
	"errors"
	"net/http"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/GauravRai2002/ARBadminton/internal/depth"
	"github.com/GauravRai2002/ARBadminton/internal/geom"
)

// Placer positions the net, the camera and the known surfaces in world
// space.
type Placer interface {
	SetNet(region geom.PlaneRegion) error
	SetCameraPose(cam depth.Camera) error
	Placement() (net *geom.PlaneRegion, cam *depth.Camera)
	SetSurfaces(surfaces []geom.Plane) error
	Surfaces() []geom.Plane
}

// NetHandler serves GET and PUT /api/net.
type NetHandler struct {
	placer Placer
}

// NewNetHandler creates a new NetHandler.
func NewNetHandler(p Placer) *NetHandler {
	return &NetHandler{placer: p}
}

// ServeHTTP implements http.Handler.
func (h *NetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		net, _ := h.placer.Placement()
		if net == nil {
			writeError(w, http.StatusNotFound, "Net not placed")
			return
		}
		writeJSON(w, http.StatusOK, net)

	case http.MethodPut:
		var region geom.PlaneRegion
		if !decodeJSON(w, r, &region) {
			return
		}
		if err := h.placer.SetNet(region); err != nil {
			if errors.Is(err, geom.ErrInvalidPlane) {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to place net")
			return
		}
		writeJSON(w, http.StatusOK, region)

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// cameraRequest is a camera pose with its horizontal field of view in
// degrees and frame size in pixels.
type cameraRequest struct {
	Position r3.Vec  `json:"position"`
	Forward  r3.Vec  `json:"forward"`
	Up       r3.Vec  `json:"up"`
	HFOV     float64 `json:"hfov"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

// CameraHandler serves GET and PUT /api/camera.
type CameraHandler struct {
	placer Placer
}

// NewCameraHandler creates a new CameraHandler.
func NewCameraHandler(p Placer) *CameraHandler {
	return &CameraHandler{placer: p}
}

// ServeHTTP implements http.Handler.
func (h *CameraHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		_, cam := h.placer.Placement()
		if cam == nil {
			writeError(w, http.StatusNotFound, "Camera not placed")
			return
		}
		writeJSON(w, http.StatusOK, cam)

	case http.MethodPut:
		var req cameraRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		cam, err := depth.NewCamera(req.Position, req.Forward, req.Up, req.HFOV, req.Width, req.Height)
		if err == nil {
			err = h.placer.SetCameraPose(cam)
		}
		if err != nil {
			if errors.Is(err, depth.ErrInvalidCamera) {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to place camera")
			return
		}
		writeJSON(w, http.StatusOK, cam)

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// surfacesBody lists the world planes detections can be lifted onto, such
// as the floor or the vertical plane of play.
type surfacesBody struct {
	Surfaces []geom.Plane `json:"surfaces"`
}

// SurfacesHandler serves GET and PUT /api/surfaces.
type SurfacesHandler struct {
	placer Placer
}

// NewSurfacesHandler creates a new SurfacesHandler.
func NewSurfacesHandler(p Placer) *SurfacesHandler {
	return &SurfacesHandler{placer: p}
}

// ServeHTTP implements http.Handler.
func (h *SurfacesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		surfaces := h.placer.Surfaces()
		if surfaces == nil {
			surfaces = []geom.Plane{}
		}
		writeJSON(w, http.StatusOK, surfacesBody{Surfaces: surfaces})

	case http.MethodPut:
		var body surfacesBody
		if !decodeJSON(w, r, &body) {
			return
		}
		if err := h.placer.SetSurfaces(body.Surfaces); err != nil {
			if errors.Is(err, geom.ErrInvalidPlane) {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to set surfaces")
			return
		}
		surfaces := h.placer.Surfaces()
		if surfaces == nil {
			surfaces = []geom.Plane{}
		}
		writeJSON(w, http.StatusOK, surfacesBody{Surfaces: surfaces})

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
