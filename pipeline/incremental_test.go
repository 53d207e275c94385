package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestUpsertsAllSources(t *testing.T) {
	p := newTestPipeline(t, "2024-03-10")

	batch := ordersBatch(t,
		[]string{"2024-03-01", "1", "11", "2", "10"},
		[]string{"2024-03-02", "2", "21", "1", "40"},
	)

	var calls [][2]string
	p.Sources = []Source{
		fakeSource("shopify_orders", "stg_shopify_orders", batch, nil, &calls),
	}

	rows, err := p.Ingest("2024-03-01", "2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.Equal(t, [][2]string{{"2024-03-01", "2024-03-05"}}, calls)
	assert.Equal(t, "2", tableCount(t, p.DuckDB, "stg_shopify_orders"))
}

func TestIngestContinuesPastFailingSource(t *testing.T) {
	p := newTestPipeline(t, "2024-03-10")

	batch := ordersBatch(t, []string{"2024-03-01", "1", "11", "2", "10"})
	fetchErr := errors.New("upstream unavailable")

	p.Sources = []Source{
		fakeSource("ga4_traffic", "stg_ga4", nil, fetchErr, nil),
		fakeSource("shopify_orders", "stg_shopify_orders", batch, nil, nil),
	}

	rows, err := p.Ingest("2024-03-01", "2024-03-05")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ga4_traffic")
	assert.Contains(t, err.Error(), "upstream unavailable")

	// The healthy source still landed.
	assert.Equal(t, 1, rows)
	assert.Equal(t, "1", tableCount(t, p.DuckDB, "stg_shopify_orders"))
}

func TestIngestSkipsEmptyBatches(t *testing.T) {
	p := newTestPipeline(t, "2024-03-10")

	p.Sources = []Source{
		fakeSource("square_payments", "stg_square_payments", emptyBatch("stg_square_payments"), nil, nil),
	}

	rows, err := p.Ingest("2024-03-01", "2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, 0, rows)

	// An empty batch must not even create the table.
	_, err = p.DuckDB.GetQueryResults("SELECT count(*) FROM stg_square_payments;")
	assert.Error(t, err)
}

func TestIngestDefaultRangeUsesEarliestWatermark(t *testing.T) {
	p := newTestPipeline(t, "2024-03-10")

	// One table is further along than the other; the default start must
	// let the laggard catch up.
	require.NoError(t, p.DuckDB.RunQuery(`
		CREATE TABLE stg_shopify_orders (date DATE);
		INSERT INTO stg_shopify_orders VALUES ('2024-03-08');
		CREATE TABLE stg_ga4 (date DATE);
		INSERT INTO stg_ga4 VALUES ('2024-03-03');
	`))

	var orderCalls, ga4Calls [][2]string
	p.Sources = []Source{
		fakeSource("shopify_orders", "stg_shopify_orders", emptyBatch("stg_shopify_orders"), nil, &orderCalls),
		fakeSource("ga4_traffic", "stg_ga4", emptyBatch("stg_ga4"), nil, &ga4Calls),
	}

	_, err := p.Ingest("", "")
	require.NoError(t, err)

	// Both sources get the same range: earliest watermark through today.
	assert.Equal(t, [][2]string{{"2024-03-03", "2024-03-10"}}, orderCalls)
	assert.Equal(t, [][2]string{{"2024-03-03", "2024-03-10"}}, ga4Calls)
}

func TestIngestDefaultRangeFreshDatabase(t *testing.T) {
	p := newTestPipeline(t, "2024-03-10")

	var calls [][2]string
	p.Sources = []Source{
		fakeSource("shopify_orders", "stg_shopify_orders", emptyBatch("stg_shopify_orders"), nil, &calls),
	}

	_, err := p.Ingest("", "")
	require.NoError(t, err)

	// No staging tables yet: fall back to the configured lookback.
	assert.Equal(t, [][2]string{{"2023-02-04", "2024-03-10"}}, calls)
}
