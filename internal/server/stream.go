package server

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// streamInterval paces the preview at roughly 15 frames per second.
const streamInterval = 66 * time.Millisecond

// PreviewSource supplies the latest camera frame as JPEG, or nil when there is none.
type PreviewSource interface {
	Preview() []byte
}

// StreamHandler serves the camera preview as MJPEG while tracking runs.
type StreamHandler struct {
	ctx    context.Context
	source PreviewSource
}

// NewStreamHandler creates a StreamHandler reading from source. Open streams
// end when ctx is done, so server shutdown does not wait on preview clients.
func NewStreamHandler(ctx context.Context, source PreviewSource) *StreamHandler {
	return &StreamHandler{ctx: ctx, source: source}
}

// ServeHTTP streams frames until the client goes away or the handler's context
// ends. Frames are only written when the source has a new one.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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
		case <-h.ctx.Done():
			return
		case <-ticker.C:
		}

		jpeg := h.source.Preview()
		if len(jpeg) == 0 || (len(last) > 0 && &jpeg[0] == &last[0]) {
			continue
		}
		last = jpeg

		fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg))
		if _, err := w.Write(jpeg); err != nil {
			return
		}
		fmt.Fprint(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
