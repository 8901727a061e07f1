package session

import "math"

// ResizeFilter ignores layout width changes at or below threshold. The
// first width seen only sets the baseline.
type ResizeFilter struct {
	threshold float64
	last      float64
	seen      bool
}

func NewResizeFilter(threshold float64) *ResizeFilter {
	return &ResizeFilter{threshold: threshold}
}

// Observe reports whether width moved materially from the last accepted
// width, and accepts it if so.
func (f *ResizeFilter) Observe(width float64) bool {
	if !f.seen {
		f.seen = true
		f.last = width
		return false
	}
	if math.Abs(width-f.last) <= f.threshold {
		return false
	}
	f.last = width
	return true
}
