package detector

import (
	"errors"
	"math"
	"testing"
)

func TestFinger_Joints(t *testing.T) {
	tests := []struct {
		finger  Finger
		wantTip int
		wantMCP int
	}{
		{Thumb, ThumbTip, ThumbMCP},
		{Index, IndexTip, IndexMCP},
		{Middle, MiddleTip, MiddleMCP},
		{Ring, RingTip, RingMCP},
		{Pinky, PinkyTip, PinkyMCP},
	}

	for _, tt := range tests {
		if got := tt.finger.Tip(); got != tt.wantTip {
			t.Errorf("Finger(%d).Tip() = %d, want %d", tt.finger, got, tt.wantTip)
		}
		if got := tt.finger.MCP(); got != tt.wantMCP {
			t.Errorf("Finger(%d).MCP() = %d, want %d", tt.finger, got, tt.wantMCP)
		}
	}
}

func TestHandLandmarks_Extended(t *testing.T) {
	t.Run("open palm has all fingers extended", func(t *testing.T) {
		lm := OpenPalmLandmarks()
		for _, f := range []Finger{Index, Middle, Ring, Pinky} {
			if !lm.Extended(f) {
				t.Errorf("finger %d should be extended", f)
			}
		}
	})

	t.Run("fist has no fingers extended", func(t *testing.T) {
		lm := FistLandmarks()
		for _, f := range []Finger{Index, Middle, Ring, Pinky} {
			if lm.Extended(f) {
				t.Errorf("finger %d should be curled", f)
			}
		}
	})

	t.Run("peace has index and middle up only", func(t *testing.T) {
		lm := PeaceLandmarks()
		want := map[Finger]bool{Index: true, Middle: true, Ring: false, Pinky: false}
		for f, up := range want {
			if lm.Extended(f) != up {
				t.Errorf("finger %d extended = %v, want %v", f, lm.Extended(f), up)
			}
		}
	})

	t.Run("tip level with knuckle is not extended", func(t *testing.T) {
		var lm HandLandmarks
		lm.Points[IndexMCP] = Point3D{X: 0.5, Y: 0.5}
		lm.Points[IndexTip] = Point3D{X: 0.5, Y: 0.5}
		if lm.Extended(Index) {
			t.Error("equal Y must not count as extended")
		}
	})
}

func TestDistance2D(t *testing.T) {
	a := Point3D{X: 0.1, Y: 0.2, Z: 5}
	b := Point3D{X: 0.4, Y: 0.6, Z: -5}

	if got := Distance2D(a, b); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Distance2D() = %f, want 0.5 (Z ignored)", got)
	}
}

func TestFingerHeartLandmarks_Pinch(t *testing.T) {
	lm := FingerHeartLandmarks()
	if d := Distance2D(lm.Points[ThumbTip], lm.Points[IndexTip]); d >= 0.1 {
		t.Errorf("thumb-index distance = %f, want < 0.1", d)
	}
	if lm.Extended(Middle) || lm.Extended(Ring) {
		t.Error("middle and ring should be curled")
	}
}

func TestFirstHand(t *testing.T) {
	if FirstHand(nil) != nil {
		t.Error("expected nil for no hands")
	}

	hands := []HandLandmarks{OpenPalmLandmarks(), FistLandmarks()}
	first := FirstHand(hands)
	if first == nil || first.Points[IndexTip] != hands[0].Points[IndexTip] {
		t.Error("expected the first hand")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxHands != 1 {
		t.Errorf("MaxHands = %d, want 1", cfg.MaxHands)
	}
	if cfg.MinConfidence != 0.7 {
		t.Errorf("MinConfidence = %f, want 0.7", cfg.MinConfidence)
	}
	if cfg.MinTrackingConf != 0.5 {
		t.Errorf("MinTrackingConf = %f, want 0.5", cfg.MinTrackingConf)
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns queued results before configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{OpenPalmLandmarks()})
		mock.Enqueue(nil, []HandLandmarks{FistLandmarks()})

		first, _ := mock.Detect(nil)
		if len(first) != 0 {
			t.Errorf("first call: expected no hands, got %d", len(first))
		}
		second, _ := mock.Detect(nil)
		if len(second) != 1 || second[0].Points[IndexTip] != FistLandmarks().Points[IndexTip] {
			t.Error("second call: expected fist")
		}
		third, _ := mock.Detect(nil)
		if len(third) != 1 || third[0].Points[IndexTip] != OpenPalmLandmarks().Points[IndexTip] {
			t.Error("third call: expected configured open palm")
		}
		if mock.Calls() != 3 {
			t.Errorf("Calls() = %d, want 3", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("Close marks closed", func(t *testing.T) {
		mock := NewMockDetector()

		if err := mock.Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
		if !mock.Closed() {
			t.Error("expected Closed() to be true")
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestJSONHand_ToHandLandmarks(t *testing.T) {
	h := jsonHand{
		Points:     []Point3D{{X: 0.1, Y: 0.2, Z: 0.3}, {X: 0.4, Y: 0.5, Z: 0.6}},
		Handedness: "Left",
		Score:      0.8,
	}

	lm := h.toHandLandmarks()
	if lm.Handedness != "Left" || lm.Score != 0.8 {
		t.Errorf("metadata not preserved: %+v", lm)
	}
	if lm.Points[1] != (Point3D{X: 0.4, Y: 0.5, Z: 0.6}) {
		t.Errorf("point 1 = %+v", lm.Points[1])
	}
	if lm.Points[PinkyTip] != (Point3D{}) {
		t.Error("missing points should stay zero")
	}
}
