// Package gesture turns hand skeletons into discrete, debounced gesture labels.
package gesture

import (
	"github.com/ayusman/gestureart/internal/detector"
)

// Gesture is a discrete hand pose label.
type Gesture int

const (
	// None is an absent hand or a pose matching no rule.
	None Gesture = iota
	// Heart is the finger heart: thumb and index tips pinched, middle and ring folded.
	Heart
	// Love is the V sign: index and middle up, ring and pinky folded.
	Love
	// Scatter is the open palm.
	Scatter
	// Gather is the fist.
	Gather
)

// HeartPinchThreshold is the thumb-to-index tip distance, in normalized image
// units, below which the pinch counts. The comparison is strict.
const HeartPinchThreshold = 0.1

var gestureNames = [...]string{
	None:    "none",
	Heart:   "heart",
	Love:    "love",
	Scatter: "scatter",
	Gather:  "gather",
}

// String returns the lowercase label.
func (g Gesture) String() string {
	if g < 0 || int(g) >= len(gestureNames) {
		return "unknown"
	}
	return gestureNames[g]
}

var gestureLabels = [...]string{
	None:    "None",
	Heart:   "Heart",
	Love:    "I LOVE YOU",
	Scatter: "Scatter",
	Gather:  "Gather",
}

// Label returns the display name shown to users.
func (g Gesture) Label() string {
	if g < 0 || int(g) >= len(gestureLabels) {
		return "Unknown"
	}
	return gestureLabels[g]
}

// MarshalText implements encoding.TextMarshaler.
func (g Gesture) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// Classify labels a single hand. Rules are checked in priority order and the
// first match wins; a nil hand is None.
func Classify(hand *detector.HandLandmarks) Gesture {
	if hand == nil {
		return None
	}

	pinch := detector.Distance2D(hand.Points[detector.ThumbTip], hand.Points[detector.IndexTip])

	indexUp := hand.Extended(detector.Index)
	middleUp := hand.Extended(detector.Middle)
	ringUp := hand.Extended(detector.Ring)
	pinkyUp := hand.Extended(detector.Pinky)

	switch {
	case pinch < HeartPinchThreshold && !middleUp && !ringUp:
		return Heart
	case indexUp && middleUp && !ringUp && !pinkyUp:
		return Love
	case indexUp && middleUp && ringUp && pinkyUp:
		return Scatter
	case !indexUp && !middleUp && !ringUp && !pinkyUp:
		return Gather
	default:
		return None
	}
}
