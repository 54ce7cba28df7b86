package plan

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned for configuration values rejected before a session starts.
var ErrInvalid = errors.New("invalid session parameter")

// Window is the capture window in whole hours of the local day.
// EndHour < StartHour means the window ends the following day.
type Window struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// ValidateHour checks that h is an hour of the day (0-23).
func ValidateHour(name string, h int) error {
	if h < 0 || h > 23 {
		return fmt.Errorf("%w: %s must be between 0 and 23, got %d", ErrInvalid, name, h)
	}
	return nil
}

// NewWindow validates both hours and returns the window.
func NewWindow(startHour, endHour int) (Window, error) {
	if err := ValidateHour("start hour", startHour); err != nil {
		return Window{}, err
	}
	if err := ValidateHour("end hour", endHour); err != nil {
		return Window{}, err
	}
	return Window{StartHour: startHour, EndHour: endHour}, nil
}

// Wraps reports whether the window crosses midnight.
func (w Window) Wraps() bool {
	return w.EndHour < w.StartHour
}

// DurationHours is the nominal active duration used for estimation.
// Wrapping: (24 - start) + end. Same day: end - start.
func (w Window) DurationHours() int {
	if w.Wraps() {
		return (24 - w.StartHour) + w.EndHour
	}
	return w.EndHour - w.StartHour
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:00-%02d:00", w.StartHour, w.EndHour)
}
