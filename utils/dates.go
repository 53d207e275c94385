package utils

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DateWindow is an inclusive [Start, End] date range.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

func (w DateWindow) StartString() string {
	return w.Start.Format(DateLayout)
}

func (w DateWindow) EndString() string {
	return w.End.Format(DateLayout)
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return d, nil
}

// SplitWindows partitions the inclusive range [start, end] into consecutive
// windows of at most size days each. The final window may be shorter.
// Windows are returned in chronological order.
func SplitWindows(start, end time.Time, size int) []DateWindow {
	if size < 1 || end.Before(start) {
		return nil
	}

	var windows []DateWindow
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, size) {
		winEnd := cur.AddDate(0, 0, size-1)
		if winEnd.After(end) {
			winEnd = end
		}
		windows = append(windows, DateWindow{Start: cur, End: winEnd})
	}

	return windows
}
