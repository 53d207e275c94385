package load

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/botarhythm/my-shopify-ga-app-sub001/utils"
)

// LatestDate returns the maximum value of dateCol in table, formatted as
// YYYY-MM-DD. It is the implicit watermark driving the next incremental
// pull: if the table is missing, empty, or the query fails, it degrades to
// today minus lookbackDays instead of failing the caller.
func (db *DuckDB) LatestDate(table, dateCol string, lookbackDays int, tp utils.TimeProvider) string {
	fallback := tp.Now().AddDate(0, 0, -lookbackDays).Format(utils.DateLayout)

	query := fmt.Sprintf("SELECT max(%s) FROM %s;", dateCol, table)
	row := db.DB.QueryRowContext(context.Background(), query)

	var max sql.NullTime
	if err := row.Scan(&max); err != nil {
		db.Logger.Debug("Watermark query failed, using default lookback", "table", table, "error", err)
		return fallback
	}
	if !max.Valid {
		return fallback
	}

	return max.Time.Format(utils.DateLayout)
}
