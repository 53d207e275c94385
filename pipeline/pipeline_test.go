package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/botarhythm/my-shopify-ga-app-sub001/config"
	"github.com/botarhythm/my-shopify-ga-app-sub001/load"
)

type fixedTimeProvider struct {
	now time.Time
}

func (f fixedTimeProvider) Now() time.Time {
	return f.now
}

func testDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// newTestPipeline builds a pipeline on an in-memory database with no
// sources. Tests attach fake sources as needed.
func newTestPipeline(t *testing.T, now string) *Pipeline {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := &config.Config{
		DuckDB: config.DuckDBConfig{Path: ":memory:"},
		Ingest: config.IngestConfig{
			DefaultLookbackDays: 400,
			BackfillWindowDays:  30,
		},
	}

	db, err := load.NewDuckDB(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return &Pipeline{
		DuckDB:       db,
		Logger:       logger,
		Config:       cfg,
		sqlDir:       "../sql",
		timeProvider: fixedTimeProvider{now: testDate(now)},
	}
}

// fakeSource returns a Source whose fetch hands back a fixed batch and
// records the ranges it was called with.
func fakeSource(name, table string, batch *load.Batch, err error, calls *[][2]string) Source {
	return Source{
		Name:            name,
		Table:           table,
		WatermarkColumn: "date",
		Fetch: func(start, end string) (*load.Batch, error) {
			if calls != nil {
				*calls = append(*calls, [2]string{start, end})
			}
			return batch, err
		},
	}
}

func ordersBatch(t *testing.T, rows ...[]string) *load.Batch {
	t.Helper()
	batch := load.NewBatch(
		"stg_shopify_orders",
		[]string{"order_id", "lineitem_id"},
		[]load.Column{
			{Name: "date", Type: "DATE"},
			{Name: "order_id", Type: "BIGINT"},
			{Name: "lineitem_id", Type: "BIGINT"},
			{Name: "qty", Type: "INTEGER"},
			{Name: "price", Type: "DOUBLE"},
		},
	)
	for _, row := range rows {
		require.NoError(t, batch.Append(row...))
	}
	return batch
}

func emptyBatch(table string) *load.Batch {
	return load.NewBatch(table, []string{"date"}, []load.Column{{Name: "date", Type: "DATE"}})
}

func tableCount(t *testing.T, db *load.DuckDB, table string) string {
	t.Helper()
	res, err := db.GetQueryResults(fmt.Sprintf("SELECT count(*) AS n FROM %s;", table))
	require.NoError(t, err)
	return res["n"][0]
}
