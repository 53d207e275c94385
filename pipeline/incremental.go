package pipeline

import (
	"errors"
	"fmt"

	"github.com/botarhythm/my-shopify-ga-app-sub001/utils"
)

// Ingest pulls every source for [start, end] and upserts the rows into the
// staging tables. Empty arguments fall back to the watermark default: start
// is the earliest max(date) across the staging tables, so a table that fell
// behind catches up, and end is today. One failing source does not stop the
// others; the per-source errors are joined and returned after the full pass.
// Returns the number of rows upserted.
func (p *Pipeline) Ingest(start, end string) (int, error) {
	if start == "" {
		start = p.defaultStart()
	}
	if end == "" {
		end = p.timeProvider.Now().Format(utils.DateLayout)
	}

	p.Logger.Info("Starting ingest", "start", start, "end", end)

	var errorList []error
	totalRows := 0
	for _, source := range p.Sources {
		batch, err := source.Fetch(start, end)
		if err != nil {
			p.Logger.Error("Source fetch failed", "source", source.Name, "error", err)
			errorList = append(errorList, fmt.Errorf("error fetching %s: %w", source.Name, err))
			continue
		}

		if batch.Len() == 0 {
			p.Logger.Info("No rows for source, skipping upsert", "source", source.Name)
			continue
		}

		rows, err := p.DuckDB.Upsert(batch)
		if err != nil {
			p.Logger.Error("Source upsert failed", "source", source.Name, "error", err)
			errorList = append(errorList, fmt.Errorf("error upserting %s: %w", source.Name, err))
			continue
		}

		totalRows += rows
		p.Logger.Info("Upserted source rows", "source", source.Name, "table", source.Table, "rows", rows)
	}

	if len(errorList) > 0 {
		return totalRows, errors.Join(errorList...)
	}

	return totalRows, nil
}

// defaultStart returns the earliest watermark across the staging tables.
// Tables that do not exist yet fall back to today minus the configured
// lookback, so a fresh database gets a full initial pull.
func (p *Pipeline) defaultStart() string {
	lookback := p.Config.Ingest.DefaultLookbackDays

	earliest := ""
	for _, source := range p.Sources {
		watermark := p.DuckDB.LatestDate(source.Table, source.WatermarkColumn, lookback, p.timeProvider)
		if earliest == "" || watermark < earliest {
			earliest = watermark
		}
	}

	return earliest
}
