package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a scriptable Detector for tests and the demo build.
// Scripted results queued with Enqueue are returned first, in order;
// afterwards every call returns the hands set with SetHands.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	queue  [][]HandLandmarks
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect once the queue is drained.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// Enqueue appends per-call results. A nil entry means no hand for that call.
func (m *MockDetector) Enqueue(results ...[]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, results...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the next scripted result, the pre-configured hands, or the error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	return m.hands, nil
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// curledPose holds knuckle-to-tip positions for a finger folded into the palm.
var curledPose = map[Finger][4]Point3D{
	Index: {
		{X: 0.55, Y: 0.70, Z: -0.02},
		{X: 0.55, Y: 0.68, Z: -0.05},
		{X: 0.52, Y: 0.70, Z: -0.04},
		{X: 0.50, Y: 0.72, Z: -0.02},
	},
	Middle: {
		{X: 0.50, Y: 0.68, Z: -0.02},
		{X: 0.50, Y: 0.66, Z: -0.05},
		{X: 0.47, Y: 0.68, Z: -0.04},
		{X: 0.45, Y: 0.70, Z: -0.02},
	},
	Ring: {
		{X: 0.45, Y: 0.70, Z: -0.02},
		{X: 0.45, Y: 0.68, Z: -0.05},
		{X: 0.42, Y: 0.70, Z: -0.04},
		{X: 0.40, Y: 0.72, Z: -0.02},
	},
	Pinky: {
		{X: 0.40, Y: 0.72, Z: -0.02},
		{X: 0.40, Y: 0.70, Z: -0.05},
		{X: 0.37, Y: 0.72, Z: -0.04},
		{X: 0.35, Y: 0.74, Z: -0.02},
	},
}

// curl folds the given fingers; MCP, PIP, DIP and tip indices are consecutive.
func curl(lm *HandLandmarks, fingers ...Finger) {
	for _, f := range fingers {
		pose := curledPose[f]
		copy(lm.Points[f.MCP():f.Tip()+1], pose[:])
	}
}

// FingerHeartLandmarks returns a pose with thumb and index tips pinched together
// and the remaining fingers curled.
func FingerHeartLandmarks() HandLandmarks {
	lm := HandLandmarks{Handedness: "Right", Score: 0.95}

	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	lm.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.75, Z: 0.0}
	lm.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.68, Z: 0.0}
	lm.Points[ThumbIP] = Point3D{X: 0.59, Y: 0.61, Z: 0.0}
	lm.Points[ThumbTip] = Point3D{X: 0.56, Y: 0.56, Z: 0.0}

	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	lm.Points[IndexPIP] = Point3D{X: 0.53, Y: 0.62, Z: -0.03}
	lm.Points[IndexDIP] = Point3D{X: 0.54, Y: 0.58, Z: -0.02}
	lm.Points[IndexTip] = Point3D{X: 0.55, Y: 0.55, Z: -0.01}

	curl(&lm, Middle, Ring, Pinky)
	return lm
}

// PeaceLandmarks returns a V sign: index and middle extended, ring and pinky curled.
func PeaceLandmarks() HandLandmarks {
	lm := HandLandmarks{Handedness: "Right", Score: 0.95}

	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb folded over the curled ring finger
	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.76, Z: 0.0}
	lm.Points[ThumbMCP] = Point3D{X: 0.55, Y: 0.72, Z: -0.02}
	lm.Points[ThumbIP] = Point3D{X: 0.50, Y: 0.70, Z: -0.04}
	lm.Points[ThumbTip] = Point3D{X: 0.46, Y: 0.69, Z: -0.05}

	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	lm.Points[IndexPIP] = Point3D{X: 0.58, Y: 0.55, Z: 0.0}
	lm.Points[IndexDIP] = Point3D{X: 0.60, Y: 0.45, Z: 0.0}
	lm.Points[IndexTip] = Point3D{X: 0.62, Y: 0.35, Z: 0.0}

	lm.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	lm.Points[MiddlePIP] = Point3D{X: 0.49, Y: 0.52, Z: 0.0}
	lm.Points[MiddleDIP] = Point3D{X: 0.48, Y: 0.40, Z: 0.0}
	lm.Points[MiddleTip] = Point3D{X: 0.47, Y: 0.29, Z: 0.0}

	curl(&lm, Ring, Pinky)
	return lm
}

// FistLandmarks returns a closed fist with the thumb resting along the side.
func FistLandmarks() HandLandmarks {
	lm := HandLandmarks{Handedness: "Right", Score: 0.95}

	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	lm.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.76, Z: 0.0}
	lm.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.70, Z: 0.0}
	lm.Points[ThumbIP] = Point3D{X: 0.62, Y: 0.62, Z: 0.0}
	lm.Points[ThumbTip] = Point3D{X: 0.62, Y: 0.55, Z: 0.0}

	curl(&lm, Index, Middle, Ring, Pinky)
	return lm
}

// OpenPalmLandmarks returns an open palm with all fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	lm := HandLandmarks{Handedness: "Right", Score: 0.95}

	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	lm.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	lm.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	lm.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	lm.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	lm.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	lm.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	lm.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	lm.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	lm.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	lm.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	lm.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	lm.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	lm.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	lm.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	lm.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	lm.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	lm.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	lm.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return lm
}
