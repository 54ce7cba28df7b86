package plan

import (
	"fmt"
	"math"
	"time"
)

// Plan holds the immutable parameters of one session.
type Plan struct {
	Window             Window  `json:"window"`
	IntervalMinutes    int     `json:"interval_minutes"`
	StartOffsetMinutes int     `json:"start_offset_minutes"` // recorded, not used for scheduling yet
	EndOffsetMinutes   int     `json:"end_offset_minutes"`   // recorded, not used for scheduling yet
	CaptureSizeMB      float64 `json:"capture_size_mb"`
}

// New validates the inputs and builds a Plan.
func New(w Window, intervalMinutes, startOffset, endOffset int, captureSizeMB float64) (Plan, error) {
	if _, err := NewWindow(w.StartHour, w.EndHour); err != nil {
		return Plan{}, err
	}
	if intervalMinutes <= 0 {
		return Plan{}, fmt.Errorf("%w: delay must be a positive number of minutes, got %d", ErrInvalid, intervalMinutes)
	}
	if startOffset < 0 {
		return Plan{}, fmt.Errorf("%w: offset must be >= 0, got %d", ErrInvalid, startOffset)
	}
	if endOffset < 0 {
		return Plan{}, fmt.Errorf("%w: reverse offset must be >= 0, got %d", ErrInvalid, endOffset)
	}
	if math.IsNaN(captureSizeMB) || math.IsInf(captureSizeMB, 0) || captureSizeMB <= 0 {
		return Plan{}, fmt.Errorf("%w: image size must be a positive number of MB, got %g", ErrInvalid, captureSizeMB)
	}
	return Plan{
		Window:             w,
		IntervalMinutes:    intervalMinutes,
		StartOffsetMinutes: startOffset,
		EndOffsetMinutes:   endOffset,
		CaptureSizeMB:      captureSizeMB,
	}, nil
}

// Interval returns the time between two captures.
func (p Plan) Interval() time.Duration {
	return time.Duration(p.IntervalMinutes) * time.Minute
}
