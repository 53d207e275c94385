package load

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/botarhythm/my-shopify-ga-app-sub001/constants"
)

// Upsert merges a batch into its destination table: rows whose primary-key
// tuple already exists are replaced, everything else is inserted. The
// delete-then-insert runs in one transaction; on any failure the table is
// left exactly as before the call.
//
// An empty batch is a no-op and opens no transaction. Duplicate primary keys
// within a single batch are the caller's responsibility: the last row wins
// in practice but this is not guaranteed by the contract. Concurrent writers
// to the same table are not supported (single-writer assumption).
func (db *DuckDB) Upsert(batch *Batch) (int, error) {
	if batch.Len() == 0 {
		return 0, nil
	}

	// Create the destination with the batch's shape so first-run inserts
	// succeed.
	if err := db.RunQuery(batch.DDL()); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", batch.Table, err)
	}

	csvData, err := batch.CSV()
	if err != nil {
		return 0, fmt.Errorf("failed to render batch for table %s: %w", batch.Table, err)
	}

	tmpFile, err := createTmpFile(csvData)
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmpFile.Name())

	ctx := context.Background()
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for table %s: %w", batch.Table, err)
	}

	tmpTable := "tmp_" + batch.Table
	stmts := []string{
		fmt.Sprintf(
			"CREATE OR REPLACE TEMP TABLE %s AS SELECT * FROM read_csv('%s', header=true, delim=',', quote='\"', escape='\"', columns=%s);",
			tmpTable, tmpFile.Name(), batch.ReadCSVColumns(),
		),
		fmt.Sprintf("DELETE FROM %s t USING %s s WHERE %s;", batch.Table, tmpTable, pkJoinCondition(batch.PrimaryKey)),
		fmt.Sprintf("INSERT INTO %s SELECT * FROM %s;", batch.Table, tmpTable),
		fmt.Sprintf("DROP TABLE %s;", tmpTable),
	}

	for _, stmt := range stmts {
		db.Logger.Debug("Executing upsert statement", "table", batch.Table, "query", stmt)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return 0, fmt.Errorf("upsert into %s failed: %w (rollback also failed: %v)", batch.Table, err, rbErr)
			}
			return 0, fmt.Errorf("upsert into %s failed, rolled back: %w", batch.Table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upsert into %s: %w", batch.Table, err)
	}

	return batch.Len(), nil
}

// pkJoinCondition builds the equality join on all primary-key columns
// between the destination (t) and the staging relation (s).
func pkJoinCondition(primaryKey []string) string {
	conds := make([]string, len(primaryKey))
	for i, col := range primaryKey {
		conds[i] = fmt.Sprintf("t.%s = s.%s", col, col)
	}
	return strings.Join(conds, " AND ")
}

func createTmpFile(csv []byte) (*os.File, error) {
	// Validate CSV content
	if len(csv) == 0 {
		return nil, fmt.Errorf("received empty CSV data")
	}

	// Create a temporary file
	tmpFile, err := os.CreateTemp("", constants.TmpCSVFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}

	// Write the CSV data to the temporary file
	if _, err := tmpFile.Write(csv); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("failed to write to temporary file: %w", err)
	}

	// Close the file to flush the data
	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}

	return tmpFile, nil
}
