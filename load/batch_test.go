package load

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchCSV(t *testing.T) {
	batch := NewBatch(
		"stg_square_payments",
		[]string{"payment_id"},
		[]Column{
			{Name: "date", Type: "DATE"},
			{Name: "payment_id", Type: "VARCHAR"},
			{Name: "amount", Type: "DOUBLE"},
		},
	)
	require.NoError(t, batch.Append("2024-01-01", "pay_1", "1200"))
	require.NoError(t, batch.Append("2024-01-02", "pay_2", "34.5"))

	csvData, err := batch.CSV()
	assert.NoError(t, err)
	assert.Equal(t, "date,payment_id,amount\n2024-01-01,pay_1,1200\n2024-01-02,pay_2,34.5\n", string(csvData))
}

func TestBatchCSVQuotesCommas(t *testing.T) {
	batch := NewBatch(
		"stg_shopify_orders",
		[]string{"order_id"},
		[]Column{
			{Name: "order_id", Type: "BIGINT"},
			{Name: "title", Type: "VARCHAR"},
		},
	)
	require.NoError(t, batch.Append("1", `Mug, "large"`))

	csvData, err := batch.CSV()
	assert.NoError(t, err)
	assert.Equal(t, "order_id,title\n1,\"Mug, \"\"large\"\"\"\n", string(csvData))
}

func TestBatchAppendArityMismatch(t *testing.T) {
	batch := NewBatch("t", []string{"id"}, []Column{{Name: "id", Type: "BIGINT"}})
	err := batch.Append("1", "extra")
	assert.Error(t, err)
	assert.Equal(t, 0, batch.Len())
}

func TestBatchDDL(t *testing.T) {
	batch := NewBatch(
		"stg_ads_campaign",
		[]string{"date", "campaign_id"},
		[]Column{
			{Name: "date", Type: "DATE"},
			{Name: "campaign_id", Type: "BIGINT"},
			{Name: "cost", Type: "DOUBLE"},
		},
	)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS stg_ads_campaign (date DATE, campaign_id BIGINT, cost DOUBLE);", batch.DDL())
}

func TestBatchReadCSVColumns(t *testing.T) {
	batch := NewBatch(
		"stg_ga4",
		[]string{"date"},
		[]Column{
			{Name: "date", Type: "DATE"},
			{Name: "sessions", Type: "BIGINT"},
		},
	)
	assert.Equal(t, "{'date': 'DATE', 'sessions': 'BIGINT'}", batch.ReadCSVColumns())
}
