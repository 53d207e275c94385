package load

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedTimeProvider pins "today" so default-lookback results are stable.
type fixedTimeProvider struct {
	now time.Time
}

func (p fixedTimeProvider) Now() time.Time {
	return p.now
}

func TestLatestDate(t *testing.T) {
	today := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tp := fixedTimeProvider{now: today}

	t.Run("returns max date from populated table", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		require.NoError(t, db.RunQuery("CREATE TABLE stg_ga4 (date DATE, sessions INTEGER);"))
		require.NoError(t, db.RunQuery("INSERT INTO stg_ga4 VALUES ('2024-01-15', 10), ('2024-03-20', 20), ('2024-02-01', 5);"))

		got := db.LatestDate("stg_ga4", "date", 400, tp)
		assert.Equal(t, "2024-03-20", got)
	})

	t.Run("missing table degrades to default lookback", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		got := db.LatestDate("stg_missing", "date", 400, tp)
		assert.Equal(t, today.AddDate(0, 0, -400).Format("2006-01-02"), got)
	})

	t.Run("empty table degrades to default lookback", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		require.NoError(t, db.RunQuery("CREATE TABLE stg_empty (date DATE);"))

		got := db.LatestDate("stg_empty", "date", 30, tp)
		assert.Equal(t, today.AddDate(0, 0, -30).Format("2006-01-02"), got)
	})
}
