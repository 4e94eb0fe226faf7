package analysis

import (
	"errors"
	"fmt"
)

// ErrInvalidWindow marks a candidate window whose bounds violate end > start.
var ErrInvalidWindow = errors.New("invalid candidate window")

// CandidateWindow is a time range flagged as possibly containing a product
// endorsement, produced by the first-pass detector.
type CandidateWindow struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Validate rejects windows with non-positive spans or negative bounds.
func (w CandidateWindow) Validate() error {
	if w.Start < 0 || w.End <= w.Start {
		return fmt.Errorf("%w: start=%.2f end=%.2f", ErrInvalidWindow, w.Start, w.End)
	}
	return nil
}

// Duration returns the window length in seconds.
func (w CandidateWindow) Duration() float64 {
	return w.End - w.Start
}

// Contains reports whether the timestamp falls inside the window.
func (w CandidateWindow) Contains(ts float64) bool {
	return ts >= w.Start && ts <= w.End
}

// OverlapSeconds returns the length of the intersection with other.
func (w CandidateWindow) OverlapSeconds(other CandidateWindow) float64 {
	start := w.Start
	if other.Start > start {
		start = other.Start
	}
	end := w.End
	if other.End < end {
		end = other.End
	}
	if end <= start {
		return 0
	}
	return end - start
}

// Label returns a short identifier used in logs and record keys.
func (w CandidateWindow) Label() string {
	return fmt.Sprintf("%.1f-%.1f", w.Start, w.End)
}
