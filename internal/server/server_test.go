package server

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/ayusman/gestureart/internal/capture"
	"github.com/ayusman/gestureart/internal/detector"
	"github.com/ayusman/gestureart/internal/formation"
	"github.com/ayusman/gestureart/internal/render"
	"github.com/ayusman/gestureart/internal/session"
	"github.com/ayusman/gestureart/internal/theme"
)

var quiet = log.New(io.Discard)

type fixture struct {
	server  *Server
	scene   *session.Controller
	tracker *session.Tracker
	camera  *capture.MockCamera
}

// newFixture builds a running scene with n particles and, when withTracker is
// set, a tracker over a mock camera and detector.
func newFixture(t *testing.T, n int, withTracker bool) *fixture {
	t.Helper()

	table, err := theme.NewTable()
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	engine, err := formation.New(n, table.Default(), formation.WithSeed(3), formation.WithLogger(quiet))
	if err != nil {
		t.Fatalf("formation.New() error = %v", err)
	}
	scene, err := session.NewController(session.Config{Engine: engine, Themes: table, FPS: 120, Logger: quiet})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		scene.Run(ctx)
	}()

	f := &fixture{scene: scene}
	cfg := Config{Scene: scene, Logger: quiet}

	if withTracker {
		frames := capture.BlankFrames(1)
		f.camera = capture.NewMockCamera(frames, true)
		det := detector.NewMockDetector()
		det.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})

		f.tracker, err = session.NewTracker(session.TrackerConfig{
			Camera:       f.camera,
			Detector:     det,
			Scene:        scene,
			PollInterval: 5 * time.Millisecond,
			Logger:       quiet,
		})
		if err != nil {
			t.Fatalf("NewTracker() error = %v", err)
		}
		cfg.Tracker = f.tracker

		t.Cleanup(func() {
			f.tracker.Close()
			frames[0].Close()
		})
	}

	f.server = New(cfg)
	t.Cleanup(func() {
		f.server.Close()
		cancel()
		<-done
	})
	return f
}

func do(t *testing.T, s http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s := New(Config{Logger: quiet})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/health", "")

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]any
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
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			rec := do(t, s, method, "/api/health", "")
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{Logger: quiet})

	for _, path := range []string{"/api/nonexistent", "/api/state", "/"} {
		if rec := do(t, s, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	index := "<html><body>particles</body></html>"
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	script := "console.log('hi')"
	if err := os.WriteFile(filepath.Join(dir, "main.js"), []byte(script), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	s := New(Config{StaticDir: dir, Logger: quiet})

	tests := []struct {
		path string
		code int
		body string
	}{
		{"/", http.StatusOK, index},
		{"/main.js", http.StatusOK, script},
		{"/missing.js", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.path, "")
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d", rec.Code, tt.code)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestAPI_State(t *testing.T) {
	f := newFixture(t, 100, false)

	rec := do(t, f.server, http.MethodGet, "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var state State
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Formation != formation.None || state.Theme != "romantic" || state.Particles != 100 {
		t.Errorf("state = %+v", state)
	}
	if len(state.Themes) != 5 || state.Camera || state.Gesture != "none" {
		t.Errorf("state = %+v", state)
	}
}

func TestAPI_Formation(t *testing.T) {
	f := newFixture(t, 100, false)

	tests := []struct {
		name string
		body string
		code int
		want formation.Kind
	}{
		{"press heart", `{"kind":"heart"}`, http.StatusNoContent, formation.Heart},
		{"press love", `{"kind":"love"}`, http.StatusNoContent, formation.Love},
		{"typo rejected", `{"kind":"hart"}`, http.StatusBadRequest, formation.Love},
		{"bad json", `{kind`, http.StatusBadRequest, formation.Love},
		{"release", `{"kind":"none"}`, http.StatusNoContent, formation.None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, f.server, http.MethodPut, "/api/formation", tt.body)
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.code, rec.Body.String())
			}
			if got := f.scene.Status().Formation; got != tt.want {
				t.Errorf("formation = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAPI_Theme(t *testing.T) {
	f := newFixture(t, 50, false)

	if rec := do(t, f.server, http.MethodPut, "/api/theme", `{"name":"ocean"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("PUT ocean status = %d", rec.Code)
	}
	if rec := do(t, f.server, http.MethodPut, "/api/theme", `{"name":"plaid"}`); rec.Code != http.StatusNotFound {
		t.Errorf("PUT plaid status = %d, want 404", rec.Code)
	}

	rec := do(t, f.server, http.MethodPost, "/api/theme/next", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST next status = %d", rec.Code)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["theme"] != "sunset" || body["name"] != "Sunset" {
		t.Errorf("next theme = %v, want sunset", body)
	}
	if f.scene.Status().Theme != "sunset" {
		t.Errorf("scene theme = %q", f.scene.Status().Theme)
	}
}

func TestAPI_Camera(t *testing.T) {
	t.Run("no tracker", func(t *testing.T) {
		f := newFixture(t, 10, false)
		rec := do(t, f.server, http.MethodPost, "/api/camera/start", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("camera denied", func(t *testing.T) {
		f := newFixture(t, 10, true)
		f.camera.FailOpen(errors.New("permission denied"))

		rec := do(t, f.server, http.MethodPost, "/api/camera/start", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		var body map[string]string
		json.NewDecoder(rec.Body).Decode(&body)
		if !strings.Contains(body["error"], "permission denied") {
			t.Errorf("error = %q", body["error"])
		}

		// Demo controls keep working.
		if rec := do(t, f.server, http.MethodPut, "/api/formation", `{"kind":"gather"}`); rec.Code != http.StatusNoContent {
			t.Errorf("formation after camera failure status = %d", rec.Code)
		}
	})

	t.Run("start and stop", func(t *testing.T) {
		f := newFixture(t, 10, true)

		if rec := do(t, f.server, http.MethodPost, "/api/camera/start", ""); rec.Code != http.StatusNoContent {
			t.Fatalf("start status = %d", rec.Code)
		}

		var state State
		json.NewDecoder(do(t, f.server, http.MethodGet, "/api/state", "").Body).Decode(&state)
		if !state.Camera {
			t.Error("state.camera = false after start")
		}

		if rec := do(t, f.server, http.MethodPost, "/api/camera/stop", ""); rec.Code != http.StatusNoContent {
			t.Fatalf("stop status = %d", rec.Code)
		}
		if f.camera.IsOpen() {
			t.Error("camera still open after stop")
		}
		if f.scene.Status().Formation != formation.None {
			t.Errorf("formation after stop = %v, want none", f.scene.Status().Formation)
		}
	})
}

type wsReader struct {
	t    *testing.T
	conn *websocket.Conn
}

// next returns the next message, failing the test after a timeout.
func (r wsReader) next() (int, []byte) {
	r.t.Helper()
	r.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	kind, data, err := r.conn.ReadMessage()
	if err != nil {
		r.t.Fatalf("read: %v", err)
	}
	return kind, data
}

// until reads messages until match returns true.
func (r wsReader) until(what string, match func(kind int, data []byte) bool) {
	r.t.Helper()
	for i := 0; i < 2000; i++ {
		if match(r.next()) {
			return
		}
	}
	r.t.Fatalf("never received %s", what)
}

func dial(t *testing.T, f *fixture, userAgent string) wsReader {
	t.Helper()
	ts := httptest.NewServer(f.server)
	t.Cleanup(ts.Close)

	header := http.Header{}
	if userAgent != "" {
		header.Set("User-Agent", userAgent)
	}
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/particles"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return wsReader{t: t, conn: conn}
}

func textType(data []byte) string {
	var msg struct {
		Type string `json:"type"`
	}
	json.Unmarshal(data, &msg)
	return msg.Type
}

func TestHub_Stream(t *testing.T) {
	f := newFixture(t, 200, false)
	ws := dial(t, f, "")

	var sawState, sawAttrs, sawFrame bool
	ws.until("state, attributes and frame", func(kind int, data []byte) bool {
		switch {
		case kind == websocket.TextMessage && textType(data) == "state":
			sawState = true
		case kind == websocket.BinaryMessage && data[0] == render.TagAttributes:
			sawAttrs = true
			if n := binary.LittleEndian.Uint32(data[1:]); n != 200 {
				t.Errorf("attributes count = %d, want 200", n)
			}
		case kind == websocket.BinaryMessage && data[0] == render.TagFrame:
			sawFrame = true
			var frame render.Frame
			if err := render.DecodeFrame(data, &frame); err != nil {
				t.Fatalf("DecodeFrame() error = %v", err)
			}
			if frame.Len() != 200 {
				t.Errorf("frame len = %d, want 200", frame.Len())
			}
		}
		return sawState && sawAttrs && sawFrame
	})

	ws.conn.WriteJSON(map[string]any{"type": "resize", "width": 0, "height": 600, "pixelRatio": 1})
	ws.conn.WriteJSON(map[string]any{"type": "resize", "width": 800, "height": 600, "pixelRatio": 3})
	ws.until("viewport", func(kind int, data []byte) bool {
		if kind != websocket.TextMessage || textType(data) != "viewport" {
			return false
		}
		var vp viewportMessage
		json.Unmarshal(data, &vp)
		if vp.Width != 800 || vp.PixelRatio != 2 || vp.Device != render.Desktop {
			t.Errorf("viewport = %+v", vp)
		}
		return true
	})

	ws.conn.WriteJSON(map[string]any{"type": "formation", "kind": "scatter"})
	ws.until("scatter state", func(kind int, data []byte) bool {
		if kind != websocket.TextMessage || textType(data) != "state" {
			return false
		}
		var st State
		json.Unmarshal(data, &st)
		return st.Formation == formation.Scatter
	})

	ws.conn.WriteJSON(map[string]any{"type": "formation", "kind": "sparkle"})
	ws.until("notice", func(kind int, data []byte) bool {
		return kind == websocket.TextMessage && textType(data) == "notice"
	})

	ws.conn.WriteJSON(map[string]any{"type": "theme"})
	ws.until("neon attributes", func(kind int, data []byte) bool {
		return kind == websocket.TextMessage && textType(data) == "state" && strings.Contains(string(data), `"theme":"neon"`)
	})

	if f.server.Hub().Clients() != 1 {
		t.Errorf("Clients() = %d, want 1", f.server.Hub().Clients())
	}
}

func TestHub_MobileBudget(t *testing.T) {
	f := newFixture(t, 7000, false)
	ws := dial(t, f, "Mozilla/5.0 (Linux; Android 14; Pixel 8)")

	ws.until("frame", func(kind int, data []byte) bool {
		if kind != websocket.BinaryMessage || data[0] != render.TagFrame {
			return false
		}
		if n := binary.LittleEndian.Uint32(data[5:]); n != 6000 {
			t.Errorf("mobile frame count = %d, want 6000", n)
		}
		return true
	})
}

func TestStream_MJPEG(t *testing.T) {
	f := newFixture(t, 10, true)
	if err := f.tracker.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ts := httptest.NewServer(f.server)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET /api/stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read boundary: %v", err)
	}
	if strings.TrimSpace(line) != "--frame" {
		t.Errorf("first line = %q, want --frame", line)
	}
}

type stubPreview struct {
	mu   sync.Mutex
	data []byte
}

func (s *stubPreview) Preview() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

func TestStreamHandler_SkipsRepeats(t *testing.T) {
	src := &stubPreview{data: []byte{0xff, 0xd8, 0xff, 0xd9}}
	h := NewStreamHandler(context.Background(), src)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if n := strings.Count(rec.Body.String(), "--frame"); n != 1 {
		t.Errorf("wrote %d parts for one unchanged frame, want 1", n)
	}
}

func TestStreamHandler_EndsWithServerContext(t *testing.T) {
	src := &stubPreview{data: []byte{0xff, 0xd8, 0xff, 0xd9}}
	serverCtx, stop := context.WithCancel(context.Background())
	h := NewStreamHandler(serverCtx, src)

	// The request itself never ends; only the server context does.
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(rec, req)
	}()

	time.Sleep(100 * time.Millisecond)
	stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream kept running after the server context ended")
	}
}

func TestServer_CloseEndsPreviewStream(t *testing.T) {
	src := &stubPreview{data: []byte{0xff, 0xd8, 0xff, 0xd9}}
	srv := New(Config{Logger: log.New(io.Discard)})
	h := NewStreamHandler(srv.ctx, src)

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}()

	srv.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() left the preview stream open")
	}
}
