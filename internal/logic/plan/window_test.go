package plan

import (
	"errors"
	"testing"
)

func TestNewWindow_Valid(t *testing.T) {
	cases := []struct {
		name       string
		start, end int
		wraps      bool
		hours      int
	}{
		{"overnight", 20, 6, true, 10},
		{"midnight_to_morning", 0, 6, false, 6},
		{"same_day", 9, 17, false, 8},
		{"single_hour", 12, 12, false, 0},
		{"late_to_first_hour", 23, 0, true, 1},
		{"bounds", 0, 23, false, 23},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, err := NewWindow(tc.start, tc.end)
			if err != nil {
				t.Fatalf("NewWindow(%d, %d): %v", tc.start, tc.end, err)
			}
			if w.Wraps() != tc.wraps {
				t.Errorf("Wraps = %v, want %v", w.Wraps(), tc.wraps)
			}
			if w.DurationHours() != tc.hours {
				t.Errorf("DurationHours = %d, want %d", w.DurationHours(), tc.hours)
			}
		})
	}
}

func TestNewWindow_OutOfRange(t *testing.T) {
	cases := []struct {
		name       string
		start, end int
	}{
		{"start_negative", -1, 6},
		{"start_24", 24, 6},
		{"end_negative", 20, -1},
		{"end_24", 20, 24},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewWindow(tc.start, tc.end)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestWindow_String(t *testing.T) {
	if got := (Window{StartHour: 20, EndHour: 6}).String(); got != "20:00-06:00" {
		t.Errorf("String = %q, want 20:00-06:00", got)
	}
}

// ---------- New ----------

func TestNew_Valid(t *testing.T) {
	p, err := New(Window{StartHour: 20, EndHour: 6}, 30, 5, 10, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Interval().Minutes() != 30 {
		t.Errorf("Interval = %v, want 30m", p.Interval())
	}
	if p.StartOffsetMinutes != 5 || p.EndOffsetMinutes != 10 {
		t.Errorf("offsets = %d/%d, want 5/10", p.StartOffsetMinutes, p.EndOffsetMinutes)
	}
}

func TestNew_Invalid(t *testing.T) {
	w := Window{StartHour: 20, EndHour: 6}
	cases := []struct {
		name     string
		w        Window
		interval int
		offset   int
		reverse  int
		size     float64
	}{
		{"zero_interval", w, 0, 0, 0, 10},
		{"negative_interval", w, -5, 0, 0, 10},
		{"negative_offset", w, 30, -1, 0, 10},
		{"negative_reverse_offset", w, 30, 0, -1, 10},
		{"zero_size", w, 30, 0, 0, 0},
		{"negative_size", w, 30, 0, 0, -3},
		{"bad_window", Window{StartHour: 25, EndHour: 6}, 30, 0, 0, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.w, tc.interval, tc.offset, tc.reverse, tc.size)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}
