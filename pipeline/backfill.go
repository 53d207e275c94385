package pipeline

import (
	"fmt"

	"github.com/botarhythm/my-shopify-ga-app-sub001/utils"
)

// Backfill re-pulls [start, end] in bounded windows, oldest first, so a long
// historical range never holds a multi-month payload in memory. A failing
// window aborts the remaining ones: later windows would otherwise leave a
// gap in the middle of the range that the watermark logic cannot see.
// Returns the number of rows upserted across all completed windows.
func (p *Pipeline) Backfill(start, end string) (int, error) {
	startDate, err := utils.ParseDate(start)
	if err != nil {
		return 0, fmt.Errorf("invalid backfill start date: %w", err)
	}
	endDate, err := utils.ParseDate(end)
	if err != nil {
		return 0, fmt.Errorf("invalid backfill end date: %w", err)
	}

	windowDays := p.Config.Ingest.BackfillWindowDays
	windows := utils.SplitWindows(startDate, endDate, windowDays)
	if len(windows) == 0 {
		return 0, fmt.Errorf("no backfill windows for range %s to %s", start, end)
	}

	p.Logger.Info("Starting backfill", "start", start, "end", end, "windows", len(windows))

	totalRows := 0
	for i, window := range windows {
		rows, err := p.Ingest(window.StartString(), window.EndString())
		totalRows += rows
		if err != nil {
			return totalRows, fmt.Errorf("backfill window %d (%s to %s) failed: %w",
				i+1, window.StartString(), window.EndString(), err)
		}

		p.Logger.Info("Backfilled window", "window", fmt.Sprintf("%d/%d", i+1, len(windows)),
			"start", window.StartString(), "end", window.EndString(), "rows", rows)
	}

	return totalRows, nil
}
