package gesture

// DefaultRequiredFrames is how many identical consecutive labels make a gesture stable.
const DefaultRequiredFrames = 5

// Debouncer suppresses per-frame classification noise. A label becomes the
// stable gesture only after it has been observed on RequiredFrames consecutive
// frames; losing the hand drops back to None immediately.
//
// Debouncer is not safe for concurrent use.
type Debouncer struct {
	required  int
	stable    Gesture
	candidate Gesture
	count     int
}

// NewDebouncer creates a Debouncer. Values of required below 1 use DefaultRequiredFrames.
func NewDebouncer(required int) *Debouncer {
	if required < 1 {
		required = DefaultRequiredFrames
	}
	return &Debouncer{required: required}
}

// Observe feeds one classified frame. It returns the new stable gesture and true
// when the stable gesture changes.
func (d *Debouncer) Observe(g Gesture) (Gesture, bool) {
	if g == d.candidate {
		d.count++
	} else {
		d.candidate = g
		d.count = 1
	}

	if d.count >= d.required && d.candidate != d.stable {
		d.stable = d.candidate
		return d.stable, true
	}
	return d.stable, false
}

// HandLost records a frame with no hand. It resets the run length and, if a
// gesture was stable, reports the change to None.
func (d *Debouncer) HandLost() (Gesture, bool) {
	d.count = 0
	if d.stable != None {
		d.stable = None
		return None, true
	}
	return None, false
}

// Reset returns the debouncer to its initial state.
func (d *Debouncer) Reset() {
	d.stable = None
	d.candidate = None
	d.count = 0
}

// Stable returns the current stable gesture.
func (d *Debouncer) Stable() Gesture {
	return d.stable
}

// Required returns the configured run length.
func (d *Debouncer) Required() int {
	return d.required
}
