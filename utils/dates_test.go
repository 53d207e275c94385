package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSplitWindows(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		end      string
		size     int
		expected []DateWindow
	}{
		{
			name:  "95 day range with 30 day windows",
			start: "2024-01-01",
			end:   "2024-04-04",
			size:  30,
			expected: []DateWindow{
				{Start: date("2024-01-01"), End: date("2024-01-30")},
				{Start: date("2024-01-31"), End: date("2024-02-29")},
				{Start: date("2024-03-01"), End: date("2024-03-30")},
				{Start: date("2024-03-31"), End: date("2024-04-04")},
			},
		},
		{
			name:  "single day range",
			start: "2024-06-15",
			end:   "2024-06-15",
			size:  30,
			expected: []DateWindow{
				{Start: date("2024-06-15"), End: date("2024-06-15")},
			},
		},
		{
			name:  "range shorter than window",
			start: "2024-06-01",
			end:   "2024-06-10",
			size:  30,
			expected: []DateWindow{
				{Start: date("2024-06-01"), End: date("2024-06-10")},
			},
		},
		{
			name:  "range exactly one window",
			start: "2024-01-01",
			end:   "2024-01-30",
			size:  30,
			expected: []DateWindow{
				{Start: date("2024-01-01"), End: date("2024-01-30")},
			},
		},
		{
			name:     "end before start",
			start:    "2024-02-01",
			end:      "2024-01-01",
			size:     30,
			expected: nil,
		},
		{
			name:     "invalid window size",
			start:    "2024-01-01",
			end:      "2024-02-01",
			size:     0,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SplitWindows(date(tt.start), date(tt.end), tt.size)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSplitWindowsBoundaries(t *testing.T) {
	// A 95-day range must produce exactly 4 sequential windows with no gaps
	// and no overlaps.
	start := date("2024-05-01")
	end := start.AddDate(0, 0, 94)

	windows := SplitWindows(start, end, 30)
	require.Len(t, windows, 4)

	assert.Equal(t, start, windows[0].Start)
	assert.Equal(t, end, windows[3].End)
	for i := 1; i < len(windows); i++ {
		assert.Equal(t, windows[i-1].End.AddDate(0, 0, 1), windows[i].Start)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	assert.NoError(t, err)
	assert.Equal(t, date("2024-03-15"), d)

	_, err = ParseDate("15/03/2024")
	assert.Error(t, err)
}
