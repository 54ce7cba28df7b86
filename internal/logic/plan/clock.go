package plan

import "time"

// Clock answers the two scheduling questions of a session: how long to wait
// before the window opens and whether the window is exhausted. It is anchored
// at the session start so that a window crossing midnight closes on the
// following day.
type Clock struct {
	window Window
	open   time.Time
	close  time.Time // top of the first hour strictly after EndHour
}

// NewClock anchors w at the given instant.
func NewClock(w Window, anchor time.Time) *Clock {
	loc := anchor.Location()
	y, m, d := anchor.Date()

	openDay := d
	if w.Wraps() && anchor.Hour() <= w.EndHour {
		// Started in the morning tail of a window that opened yesterday.
		openDay--
	}
	closeDay := openDay
	if w.Wraps() {
		closeDay++
	}

	return &Clock{
		window: w,
		open:   time.Date(y, m, openDay, w.StartHour, 0, 0, 0, loc),
		close:  time.Date(y, m, closeDay, w.EndHour+1, 0, 0, 0, loc),
	}
}

// Window returns the window the clock was built for.
func (c *Clock) Window() Window { return c.window }

// Opens returns the instant the window opens.
func (c *Clock) Opens() time.Time { return c.open }

// Closes returns the instant from which the window counts as exhausted.
func (c *Clock) Closes() time.Time { return c.close }

// MinutesUntilStart returns the whole minutes left until the top of the
// start hour, or 0 when the window is already open or past.
func (c *Clock) MinutesUntilStart(now time.Time) int {
	if !now.Before(c.open) {
		return 0
	}
	return int(c.open.Sub(now.Truncate(time.Minute)) / time.Minute)
}

// IsWindowExhausted reports whether the current hour is strictly past the
// end hour of the anchored window.
func (c *Clock) IsWindowExhausted(now time.Time) bool {
	return !now.Before(c.close)
}
