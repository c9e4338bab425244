package motion

import "gonum.org/v1/gonum/floats"

const panRateWindowCapacity = 3

// PanRateWindow tracks the last few pan-rate samples so the tracking
// core can arbitrate between velocity-control and position-control mode
// based on a smoothed trend rather than a single noisy reading. It is a
// capacity-3, trend-preserving append-or-clear buffer: samples that
// continue the existing trend (same sign as the window's running
// average) are appended; a sign reversal clears the window and starts
// fresh, since a reversal means the target has changed direction and
// old samples no longer describe the current motion.
type PanRateWindow struct {
	samples []float64
}

// NewPanRateWindow creates an empty window.
func NewPanRateWindow() *PanRateWindow {
	return &PanRateWindow{samples: make([]float64, 0, panRateWindowCapacity)}
}

// Add records a new pan-rate sample (degrees/second).
func (w *PanRateWindow) Add(rate float64) {
	if len(w.samples) > 0 {
		avg := floats.Sum(w.samples) / float64(len(w.samples))
		if sign(avg) != sign(rate) && rate != 0 && avg != 0 {
			w.samples = w.samples[:0]
		}
	}

	if len(w.samples) == panRateWindowCapacity {
		w.samples = append(w.samples[1:], rate)
		return
	}
	w.samples = append(w.samples, rate)
}

// Average returns the mean of the current window, or 0 if empty.
func (w *PanRateWindow) Average() float64 {
	if len(w.samples) == 0 {
		return 0
	}
	return floats.Sum(w.samples) / float64(len(w.samples))
}

// Len reports how many samples are currently held.
func (w *PanRateWindow) Len() int {
	return len(w.samples)
}

// Reset clears the window.
func (w *PanRateWindow) Reset() {
	w.samples = w.samples[:0]
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
