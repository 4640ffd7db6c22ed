package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/gestureart/internal/capture"
	"github.com/ayusman/gestureart/internal/detector"
	"github.com/ayusman/gestureart/internal/formation"
	"github.com/ayusman/gestureart/internal/gesture"
)

// DefaultPollInterval is the pause between the end of one detection and the
// start of the next.
const DefaultPollInterval = 80 * time.Millisecond

// ErrTrackerUnavailable is returned when tracking cannot start, usually because
// the camera could not be opened.
var ErrTrackerUnavailable = errors.New("gesture tracking unavailable")

// FormationSetter accepts formation changes.
type FormationSetter interface {
	SetFormation(k formation.Kind) error
}

// TrackerConfig wires a Tracker.
type TrackerConfig struct {
	Camera       capture.Camera
	Detector     detector.Detector
	Scene        FormationSetter
	PollInterval time.Duration
	// RequiredFrames is how many consecutive identical classifications make a
	// gesture stable.
	RequiredFrames int
	Logger         *log.Logger
}

// TrackerStatus describes the polling loop.
type TrackerStatus struct {
	Running bool            `json:"running"`
	RunID   string          `json:"runId,omitempty"`
	Gesture gesture.Gesture `json:"gesture"`
	Label   string          `json:"label"`
}

// Tracker polls the camera, classifies the first hand and submits a formation
// whenever the debounced gesture changes.
type Tracker struct {
	camera   capture.Camera
	detector detector.Detector
	scene    FormationSetter
	interval time.Duration
	logger   *log.Logger

	// debouncer is owned by the polling goroutine while it runs.
	debouncer *gesture.Debouncer

	mu      sync.Mutex
	running bool
	runID   uuid.UUID
	cancel  context.CancelFunc
	done    chan struct{}

	stateMu sync.RWMutex
	gesture gesture.Gesture
	preview []byte

	changes broadcaster[TrackerStatus]
}

// NewTracker returns a stopped tracker.
func NewTracker(config TrackerConfig) (*Tracker, error) {
	if config.Camera == nil || config.Detector == nil || config.Scene == nil {
		return nil, errors.New("session: tracker needs a camera, a detector and a scene")
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	return &Tracker{
		camera:    config.Camera,
		detector:  config.Detector,
		scene:     config.Scene,
		interval:  config.PollInterval,
		logger:    config.Logger.WithPrefix("tracker"),
		debouncer: gesture.NewDebouncer(config.RequiredFrames),
	}, nil
}

// Start opens the camera and begins polling. Starting a running tracker is a
// no-op. A camera failure is returned wrapped in ErrTrackerUnavailable and
// leaves the tracker stopped.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return nil
	}

	if err := t.camera.Open(); err != nil {
		t.logger.Warn("camera unavailable", "err", err)
		return fmt.Errorf("%w: %w", ErrTrackerUnavailable, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	t.running = true
	t.runID = uuid.New()
	t.cancel = cancel
	t.done = make(chan struct{})
	t.debouncer.Reset()

	go t.loop(ctx, t.done)

	t.logger.Info("tracking started", "run", t.runID)
	t.changes.publish(t.statusLocked())
	return nil
}

// Stop ends polling, waits for the loop to exit, releases the camera and
// returns the scene to rest. Stopping a stopped tracker is a no-op.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}

	t.running = false
	t.cancel()
	<-t.done

	if err := t.camera.Close(); err != nil {
		t.logger.Warn("camera close failed", "err", err)
	}
	t.debouncer.Reset()

	t.stateMu.Lock()
	t.gesture = gesture.None
	t.preview = nil
	t.stateMu.Unlock()

	if err := t.scene.SetFormation(formation.None); err != nil {
		t.logger.Debug("reset formation", "err", err)
	}

	t.logger.Info("tracking stopped", "run", t.runID)
	t.changes.publish(t.statusLocked())
}

// Toggle starts a stopped tracker or stops a running one and reports whether
// it is now running.
func (t *Tracker) Toggle(ctx context.Context) (bool, error) {
	if t.Running() {
		t.Stop()
		return false, nil
	}
	if err := t.Start(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Close stops tracking and shuts the detector down.
func (t *Tracker) Close() error {
	t.Stop()
	return t.detector.Close()
}

// Running reports whether the polling loop is active.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Status returns the current tracker state.
func (t *Tracker) Status() TrackerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusLocked()
}

func (t *Tracker) statusLocked() TrackerStatus {
	t.stateMu.RLock()
	g := t.gesture
	t.stateMu.RUnlock()

	s := TrackerStatus{Running: t.running, Gesture: g, Label: g.Label()}
	if t.running {
		s.RunID = t.runID.String()
	}
	return s
}

// Subscribe returns a channel receiving the tracker status whenever tracking
// starts or stops or the stable gesture changes.
func (t *Tracker) Subscribe() (<-chan TrackerStatus, func()) {
	return t.changes.subscribe()
}

// Preview returns the most recent camera frame as JPEG, or nil.
func (t *Tracker) Preview() []byte {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.preview
}

func (t *Tracker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		t.poll(ctx)
		timer.Reset(t.interval)
	}
}

// poll runs one read, detect, classify cycle.
func (t *Tracker) poll(ctx context.Context) {
	hands := t.detect()
	if ctx.Err() != nil {
		return
	}

	var (
		g       gesture.Gesture
		changed bool
	)
	if hand := detector.FirstHand(hands); hand != nil {
		g, changed = t.debouncer.Observe(gesture.Classify(hand))
	} else {
		g, changed = t.debouncer.HandLost()
	}
	if !changed {
		return
	}

	t.logger.Info("gesture", "gesture", g)
	t.stateMu.Lock()
	t.gesture = g
	t.stateMu.Unlock()

	if err := t.scene.SetFormation(formationFor(g)); err != nil {
		t.logger.Warn("submit formation", "err", err)
	}
	t.changes.publish(TrackerStatus{Running: true, RunID: t.runID.String(), Gesture: g, Label: g.Label()})
}

// detect reads one frame and returns its hands. Read and detection failures
// count as no hand.
func (t *Tracker) detect() []detector.HandLandmarks {
	frame, err := t.camera.ReadFrame()
	if err != nil {
		t.logger.Debug("read frame", "err", err)
		return nil
	}
	defer frame.Close()

	t.storePreview(frame)

	hands, err := t.detector.Detect(frame)
	if err != nil {
		t.logger.Warn("detect", "err", err)
		return nil
	}
	return hands
}

func (t *Tracker) storePreview(frame *gocv.Mat) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		t.logger.Debug("encode preview", "err", err)
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	t.stateMu.Lock()
	t.preview = data
	t.stateMu.Unlock()
}

func formationFor(g gesture.Gesture) formation.Kind {
	switch g {
	case gesture.Heart:
		return formation.Heart
	case gesture.Love:
		return formation.Love
	case gesture.Scatter:
		return formation.Scatter
	case gesture.Gather:
		return formation.Gather
	default:
		return formation.None
	}
}
