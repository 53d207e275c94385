package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botarhythm/my-shopify-ga-app-sub001/load"
)

func TestBackfillSplitsIntoWindows(t *testing.T) {
	p := newTestPipeline(t, "2024-06-01")

	var calls [][2]string
	p.Sources = []Source{
		fakeSource("ga4_traffic", "stg_ga4", emptyBatch("stg_ga4"), nil, &calls),
	}

	// A 95-day range must become four windows, chronological and
	// contiguous.
	_, err := p.Backfill("2024-01-01", "2024-04-04")
	require.NoError(t, err)

	assert.Equal(t, [][2]string{
		{"2024-01-01", "2024-01-30"},
		{"2024-01-31", "2024-02-29"},
		{"2024-03-01", "2024-03-30"},
		{"2024-03-31", "2024-04-04"},
	}, calls)
}

func TestBackfillAbortsOnWindowFailure(t *testing.T) {
	p := newTestPipeline(t, "2024-06-01")

	var calls [][2]string
	failing := Source{
		Name:  "ga4_traffic",
		Table: "stg_ga4",
		Fetch: func(start, end string) (*load.Batch, error) {
			calls = append(calls, [2]string{start, end})
			if len(calls) == 2 {
				return nil, errors.New("upstream unavailable")
			}
			return emptyBatch("stg_ga4"), nil
		},
	}
	p.Sources = []Source{failing}

	_, err := p.Backfill("2024-01-01", "2024-04-04")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backfill window 2")
	assert.Contains(t, err.Error(), "upstream unavailable")

	// The third and fourth windows never ran.
	assert.Len(t, calls, 2)
}

func TestBackfillRejectsBadDates(t *testing.T) {
	p := newTestPipeline(t, "2024-06-01")

	_, err := p.Backfill("01/01/2024", "2024-04-04")
	assert.Error(t, err)

	_, err = p.Backfill("2024-04-04", "2024-01-01")
	assert.Error(t, err)
}
