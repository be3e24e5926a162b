package report

import (
	"fmt"
	"time"
)

// Window is a dashboard reporting period
type Window string

const (
	WindowToday     Window = "today"
	WindowLast7Days Window = "week"
	WindowMonth     Window = "month"
)

// Windows lists every window in display order
var Windows = []Window{WindowToday, WindowLast7Days, WindowMonth}

// ParseWindow converts a query parameter into a Window
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case WindowToday, WindowLast7Days, WindowMonth:
		return Window(s), nil
	}
	return "", fmt.Errorf("unknown window %q", s)
}

// Bounds returns the half-open interval [start, end) covered by the window at now.
// Day boundaries follow now's location.
func (w Window) Bounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	end := midnight.AddDate(0, 0, 1)

	switch w {
	case WindowLast7Days:
		return midnight.AddDate(0, 0, -6), end
	case WindowMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location()), end
	default:
		return midnight, end
	}
}

// Contains reports whether t falls inside the window at now
func (w Window) Contains(now, t time.Time) bool {
	start, end := w.Bounds(now)
	return !t.Before(start) && t.Before(end)
}
