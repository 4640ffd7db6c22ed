package glyph

import (
	"testing"
)

func newTestSampler(t *testing.T) *Sampler {
	t.Helper()
	s, err := NewSampler(DefaultOptions())
	if err != nil {
		t.Fatalf("NewSampler() error = %v", err)
	}
	return s
}

func TestSampler_Text(t *testing.T) {
	s := newTestSampler(t)

	pts := s.Sample("I LOVE YOU", 64)
	if len(pts) == 0 {
		t.Fatal("expected foreground pixels for I LOVE YOU")
	}

	var minX, maxX, sumX float64
	for i, p := range pts {
		if p.X < -3 || p.X > 3 {
			t.Fatalf("point %d X = %f outside [-3,3]", i, p.X)
		}
		if p.Y < -1 || p.Y > 1 {
			t.Fatalf("point %d Y = %f outside [-1,1]", i, p.Y)
		}
		if i == 0 || p.X < minX {
			minX = p.X
		}
		if i == 0 || p.X > maxX {
			maxX = p.X
		}
		sumX += p.X
	}

	// Centered text: the silhouette straddles the origin and spans most of the width.
	if minX > -1 || maxX < 1 {
		t.Errorf("text spans [%f, %f], expected it to cross [-1, 1]", minX, maxX)
	}
	if mean := sumX / float64(len(pts)); mean < -0.5 || mean > 0.5 {
		t.Errorf("mean X = %f, expected text centered near 0", mean)
	}
}

func TestSampler_Blank(t *testing.T) {
	s := newTestSampler(t)

	for _, text := range []string{"", "   ", "\t"} {
		if pts := s.Sample(text, 64); len(pts) != 0 {
			t.Errorf("Sample(%q) returned %d points, want 0", text, len(pts))
		}
	}
	if pts := s.Sample("A", 0); len(pts) != 0 {
		t.Errorf("zero font size returned %d points, want 0", len(pts))
	}
}

func TestSampler_Memoizes(t *testing.T) {
	s := newTestSampler(t)

	a := s.Sample("HI", 48)
	b := s.Sample("HI", 48)
	if len(a) == 0 {
		t.Fatal("expected points for HI")
	}
	if &a[0] != &b[0] {
		t.Error("expected the cached slice on the second call")
	}

	bigger := s.Sample("HI", 96)
	if len(bigger) <= len(a) {
		t.Errorf("larger font should cover more pixels: 48px=%d 96px=%d", len(a), len(bigger))
	}
}

func TestSampler_StrideDensity(t *testing.T) {
	fine := DefaultOptions()
	fine.Stride = 1
	sFine, err := NewSampler(fine)
	if err != nil {
		t.Fatalf("NewSampler() error = %v", err)
	}
	sCoarse := newTestSampler(t)

	nFine := len(sFine.Sample("LOVE", 64))
	nCoarse := len(sCoarse.Sample("LOVE", 64))

	// Stride 2 samples roughly a quarter of the pixels.
	ratio := float64(nFine) / float64(nCoarse)
	if ratio < 3 || ratio > 5 {
		t.Errorf("stride density ratio = %f (fine=%d coarse=%d), want about 4", ratio, nFine, nCoarse)
	}
}

func TestNewSampler_InvalidCanvas(t *testing.T) {
	opts := DefaultOptions()
	opts.CanvasHeight = 0
	if _, err := NewSampler(opts); err == nil {
		t.Error("expected error for zero-height canvas")
	}
}
