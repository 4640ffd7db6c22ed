// Package detector provides hand detection interfaces and the 21-point hand skeleton.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a landmark position. X and Y are normalized to [0,1] image space
// with Y growing downward; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks of one detected hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Finger identifies one of the five digits.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

var fingerJoints = [...]struct{ tip, mcp int }{
	Thumb:  {ThumbTip, ThumbMCP},
	Index:  {IndexTip, IndexMCP},
	Middle: {MiddleTip, MiddleMCP},
	Ring:   {RingTip, RingMCP},
	Pinky:  {PinkyTip, PinkyMCP},
}

// Tip returns the landmark index of the finger tip.
func (f Finger) Tip() int { return fingerJoints[f].tip }

// MCP returns the landmark index of the finger's knuckle.
func (f Finger) MCP() int { return fingerJoints[f].mcp }

// Extended reports whether the finger tip sits above its knuckle in image space
// (numerically smaller Y).
func (h *HandLandmarks) Extended(f Finger) bool {
	return h.Points[f.Tip()].Y < h.Points[f.MCP()].Y
}

// Distance2D returns the Euclidean distance between two landmarks in the image plane.
func Distance2D(a, b Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
