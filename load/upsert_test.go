package load

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ordersBatch(t *testing.T, rows ...[]string) *Batch {
	t.Helper()
	batch := NewBatch(
		"stg_orders",
		[]string{"order_id"},
		[]Column{
			{Name: "date", Type: "DATE"},
			{Name: "order_id", Type: "BIGINT"},
			{Name: "amount", Type: "DOUBLE"},
		},
	)
	for _, row := range rows {
		require.NoError(t, batch.Append(row...))
	}
	return batch
}

func TestUpsertIntoEmptyTable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	batch := ordersBatch(t,
		[]string{"2024-01-01", "1", "100.5"},
		[]string{"2024-01-02", "2", "250.0"},
		[]string{"2024-01-03", "3", "75.25"},
	)

	n, err := db.Upsert(batch)
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := db.GetQueryResults("SELECT count(*) AS count FROM stg_orders;")
	assert.NoError(t, err)
	assert.Equal(t, []string{"3"}, results["count"])
}

func TestUpsertIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	batch := ordersBatch(t,
		[]string{"2024-01-01", "1", "100.5"},
		[]string{"2024-01-02", "2", "250.0"},
	)

	_, err := db.Upsert(batch)
	require.NoError(t, err)
	_, err = db.Upsert(batch)
	require.NoError(t, err)

	results, err := db.GetQueryResults("SELECT count(*) AS count FROM stg_orders;")
	assert.NoError(t, err)
	assert.Equal(t, []string{"2"}, results["count"])

	amounts, err := db.GetQueryResults("SELECT amount FROM stg_orders ORDER BY order_id;")
	assert.NoError(t, err)
	assert.Equal(t, []string{"100.5", "250"}, amounts["amount"])
}

func TestUpsertReplacesMatchingKeys(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	initial := ordersBatch(t,
		[]string{"2024-01-01", "1", "100.5"},
		[]string{"2024-01-02", "2", "250.0"},
		[]string{"2024-01-03", "3", "75.25"},
	)
	_, err := db.Upsert(initial)
	require.NoError(t, err)

	// Re-fetch of order 2 with a corrected amount must replace, not
	// duplicate, the existing row.
	update := ordersBatch(t, []string{"2024-01-02", "2", "199.99"})
	n, err := db.Upsert(update)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	counts, err := db.GetQueryResults("SELECT count(*) AS count FROM stg_orders;")
	assert.NoError(t, err)
	assert.Equal(t, []string{"3"}, counts["count"])

	amount, err := db.GetQueryResults("SELECT amount FROM stg_orders WHERE order_id = 2;")
	assert.NoError(t, err)
	assert.Equal(t, []string{"199.99"}, amount["amount"])
}

func TestUpsertCompositePrimaryKey(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	newLineItems := func(rows ...[]string) *Batch {
		b := NewBatch(
			"stg_line_items",
			[]string{"order_id", "lineitem_id"},
			[]Column{
				{Name: "order_id", Type: "BIGINT"},
				{Name: "lineitem_id", Type: "BIGINT"},
				{Name: "qty", Type: "INTEGER"},
			},
		)
		for _, row := range rows {
			require.NoError(t, b.Append(row...))
		}
		return b
	}

	_, err := db.Upsert(newLineItems(
		[]string{"1", "10", "1"},
		[]string{"1", "11", "2"},
		[]string{"2", "10", "3"},
	))
	require.NoError(t, err)

	// Same lineitem_id under a different order_id is a distinct key.
	_, err = db.Upsert(newLineItems([]string{"1", "10", "5"}))
	require.NoError(t, err)

	counts, err := db.GetQueryResults("SELECT count(*) AS count FROM stg_line_items;")
	assert.NoError(t, err)
	assert.Equal(t, []string{"3"}, counts["count"])

	qty, err := db.GetQueryResults("SELECT qty FROM stg_line_items WHERE order_id = 1 AND lineitem_id = 10;")
	assert.NoError(t, err)
	assert.Equal(t, []string{"5"}, qty["qty"])
}

func TestUpsertEmptyBatchIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	batch := ordersBatch(t)
	n, err := db.Upsert(batch)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	// No table is created for an empty batch.
	_, err = db.GetQueryResults("SELECT count(*) FROM stg_orders;")
	assert.Error(t, err)
}

func TestUpsertRollsBackOnFailure(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.Upsert(ordersBatch(t, []string{"2024-01-01", "1", "100.5"}))
	require.NoError(t, err)

	// A non-numeric amount fails the typed read_csv inside the
	// transaction; the destination must be untouched.
	bad := ordersBatch(t, []string{"2024-01-02", "2", "not-a-number"})
	_, err = db.Upsert(bad)
	assert.Error(t, err)

	counts, err := db.GetQueryResults("SELECT count(*) AS count FROM stg_orders;")
	assert.NoError(t, err)
	assert.Equal(t, []string{"1"}, counts["count"])
}

func TestUpsertNullValues(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	batch := NewBatch(
		"stg_products",
		[]string{"product_id"},
		[]Column{
			{Name: "product_id", Type: "BIGINT"},
			{Name: "sku", Type: "VARCHAR"},
		},
	)
	require.NoError(t, batch.Append("1", ""))

	_, err := db.Upsert(batch)
	assert.NoError(t, err)

	nulls, err := db.GetQueryResults("SELECT count(*) AS count FROM stg_products WHERE sku IS NULL;")
	assert.NoError(t, err)
	assert.Equal(t, []string{"1"}, nulls["count"])
}
