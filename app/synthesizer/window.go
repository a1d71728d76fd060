package synthesizer

import "time"

// WindowStart truncates t to the start of its UTC day. Windows are pinned to
// UTC regardless of the process timezone so a document lands in the same
// window on every node.
func WindowStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// WindowBounds returns the [start, end) bounds of the window containing day.
func WindowBounds(day time.Time, hours int) (time.Time, time.Time) {
	start := WindowStart(day)
	return start, start.Add(time.Duration(hours) * time.Hour)
}
