package server

import (
	"fmt"
	"net/http"
	"time"
)

// streamInterval paces the MJPEG stream at about 15 FPS.
const streamInterval = 66 * time.Millisecond

// StreamHandler serves the annotated debug frames as MJPEG.
type StreamHandler struct {
	frames FrameSource
}

// NewStreamHandler creates a new StreamHandler with the given frame source.
func NewStreamHandler(frames FrameSource) *StreamHandler {
	return &StreamHandler{frames: frames}
}

// ServeHTTP streams MJPEG frames to connected clients until they leave.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	release := h.frames.AddViewer()
	defer release()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		jpeg := h.frames.LatestJPEG()
		if len(jpeg) == 0 || sameFrame(jpeg, last) {
			continue
		}
		last = jpeg

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
		if _, err := w.Write(jpeg); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// sameFrame reports whether a and b are the same buffer. Frames are
// replaced, never modified, so identity is enough.
func sameFrame(a, b []byte) bool {
	return len(a) == len(b) && len(a) > 0 && &a[0] == &b[0]
}
