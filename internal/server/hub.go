package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ayusman/gestureart/internal/formation"
	"github.com/ayusman/gestureart/internal/render"
	"github.com/ayusman/gestureart/internal/session"
)

const (
	sendBuffer   = 8
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local app
	},
}

type outbound struct {
	kind int
	data []byte
}

type client struct {
	id     uuid.UUID
	conn   *websocket.Conn
	send   chan outbound
	limit  int
	device render.DeviceClass

	// viewport is touched only by the client's read loop.
	viewport render.Viewport
}

// inbound is a text message from the browser.
type inbound struct {
	Type       string  `json:"type"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
	Kind       string  `json:"kind"`
	Name       string  `json:"name"`
	Enabled    bool    `json:"enabled"`
}

type viewportMessage struct {
	Type string `json:"type"`
	render.Viewport
	Device render.DeviceClass `json:"device"`
}

type noticeMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Hub streams the scene to WebSocket clients. It is a session.Renderer: frames
// arrive from the scene loop, are encoded once per particle budget and handed
// to each client without blocking. Slow clients miss frames.
type Hub struct {
	scene   *session.Controller
	tracker *session.Tracker
	logger  *log.Logger
	ctx     context.Context

	mu      sync.RWMutex
	clients map[*client]struct{}
	// attrs is the last attribute set, kept for clients that join later.
	attrs  render.Attributes
	closed bool
}

// NewHub attaches a hub to the scene and starts pushing state updates until
// ctx is done.
func NewHub(ctx context.Context, scene *session.Controller, tracker *session.Tracker, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	h := &Hub{
		scene:   scene,
		tracker: tracker,
		logger:  logger.WithPrefix("ws"),
		ctx:     ctx,
		clients: make(map[*client]struct{}),
	}

	if err := scene.AddRenderer(h); err != nil {
		h.logger.Warn("attach to scene", "err", err)
	}
	go h.watch(ctx)
	return h
}

// ServeHTTP upgrades the request and serves one client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	device := render.ClassifyUserAgent(r.UserAgent())
	c := &client{
		id:     uuid.New(),
		conn:   conn,
		send:   make(chan outbound, sendBuffer),
		limit:  device.ParticleCount(),
		device: device,
	}

	if !h.register(c) {
		return
	}
	defer h.unregister(c)

	h.logger.Info("client connected", "id", c.id, "device", device)
	go h.writeLoop(c)

	h.sendJSON(c, h.state())
	h.readLoop(c)
	h.logger.Info("client disconnected", "id", c.id)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}

	if h.attrs.Len() > 0 {
		c.send <- outbound{websocket.BinaryMessage, h.encodeAttributes(c.limit)}
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) writeLoop(c *client) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(msg.kind, msg.data); err != nil {
			h.logger.Debug("write failed", "id", c.id, "err", err)
			c.conn.Close()
			// Drain so senders never see a full buffer for a dead client.
			for range c.send {
			}
			return
		}
	}
}

func (h *Hub) readLoop(c *client) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("bad message", "id", c.id, "err", err)
			continue
		}
		h.handle(c, msg)
	}
}

func (h *Hub) handle(c *client, msg inbound) {
	switch msg.Type {
	case "resize":
		vp, ok := render.NewViewport(msg.Width, msg.Height, msg.PixelRatio)
		if !ok {
			h.logger.Debug("ignoring resize", "id", c.id, "width", msg.Width, "height", msg.Height)
			return
		}
		c.viewport = vp
		h.sendJSON(c, viewportMessage{Type: "viewport", Viewport: vp, Device: c.device})

	case "formation":
		kind, err := formation.ParseKind(msg.Kind)
		if err != nil {
			h.sendJSON(c, noticeMessage{Type: "notice", Message: err.Error()})
			return
		}
		if err := h.scene.SetFormation(kind); err != nil {
			h.logger.Warn("set formation", "err", err)
		}

	case "theme":
		var err error
		if msg.Name == "" {
			_, err = h.scene.CycleTheme()
		} else {
			_, err = h.scene.SetTheme(msg.Name)
		}
		if err != nil {
			h.sendJSON(c, noticeMessage{Type: "notice", Message: err.Error()})
		}

	case "camera":
		if h.tracker == nil {
			h.sendJSON(c, noticeMessage{Type: "notice", Message: session.ErrTrackerUnavailable.Error()})
			return
		}
		if !msg.Enabled {
			h.tracker.Stop()
			return
		}
		if err := h.tracker.Start(h.ctx); err != nil {
			h.sendJSON(c, noticeMessage{Type: "notice", Message: "Camera unavailable. Demo controls still work."})
		}

	default:
		h.logger.Debug("unknown message", "id", c.id, "type", msg.Type)
	}
}

// RenderFrame implements session.Renderer.
func (h *Hub) RenderFrame(f *render.Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	encoded := make(map[int][]byte, 2)
	for c := range h.clients {
		n := min(c.limit, f.Len())
		data, ok := encoded[n]
		if !ok {
			data = render.AppendFrame(nil, &render.Frame{Elapsed: f.Elapsed, Positions: f.Positions[:3*n]})
			encoded[n] = data
		}

		select {
		case c.send <- outbound{websocket.BinaryMessage, data}:
		default:
		}
	}
}

// RenderAttributes implements session.Renderer.
func (h *Hub) RenderAttributes(a *render.Attributes) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.attrs.Background = a.Background
	h.attrs.Colors = append(h.attrs.Colors[:0], a.Colors...)
	h.attrs.Sizes = append(h.attrs.Sizes[:0], a.Sizes...)

	for c := range h.clients {
		select {
		case c.send <- outbound{websocket.BinaryMessage, h.encodeAttributes(c.limit)}:
		default:
			h.logger.Debug("attributes dropped", "id", c.id)
		}
	}
}

// encodeAttributes must be called with mu held.
func (h *Hub) encodeAttributes(limit int) []byte {
	n := min(limit, h.attrs.Len())
	return render.AppendAttributes(nil, &render.Attributes{
		Background: h.attrs.Background,
		Colors:     h.attrs.Colors[:3*n],
		Sizes:      h.attrs.Sizes[:n],
	})
}

// Notice sends a user-facing message to every client.
func (h *Hub) Notice(message string) {
	h.broadcastJSON(noticeMessage{Type: "notice", Message: message})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close detaches from the scene and disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for c := range h.clients {
		c.conn.Close()
	}
	h.mu.Unlock()

	if err := h.scene.RemoveRenderer(h); err != nil {
		h.logger.Debug("detach from scene", "err", err)
	}
}

// watch pushes a state message whenever the scene or the tracker changes.
func (h *Hub) watch(ctx context.Context) {
	sceneCh, stopScene := h.scene.Subscribe()
	defer stopScene()

	var trackerCh <-chan session.TrackerStatus
	if h.tracker != nil {
		ch, stop := h.tracker.Subscribe()
		defer stop()
		trackerCh = ch
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-sceneCh:
		case <-trackerCh:
		}
		h.broadcastJSON(h.state())
	}
}

func (h *Hub) state() State {
	s := buildState(h.scene, h.tracker)
	s.Type = "state"
	return s
}

func (h *Hub) sendJSON(c *client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("encode message", "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- outbound{websocket.TextMessage, data}:
	default:
	}
}

func (h *Hub) broadcastJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("encode message", "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- outbound{websocket.TextMessage, data}:
		default:
		}
	}
}
