package load

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// Column declares one column of a staging table: its name and DuckDB type.
type Column struct {
	Name string
	Type string
}

// Batch is a typed tabular batch of records destined for one staging table.
// Connectors validate and coerce vendor JSON into their record types and
// render them into a Batch; the writer side never sees vendor payloads.
//
// Rows hold values already rendered to their CSV text form; an empty string
// is loaded as NULL.
type Batch struct {
	Table      string
	PrimaryKey []string
	Columns    []Column
	rows       [][]string
}

func NewBatch(table string, primaryKey []string, columns []Column) *Batch {
	return &Batch{
		Table:      table,
		PrimaryKey: primaryKey,
		Columns:    columns,
	}
}

// Append adds one row. The number of values must match the declared columns;
// mismatches are a programming error on the connector side.
func (b *Batch) Append(values ...string) error {
	if len(values) != len(b.Columns) {
		return fmt.Errorf("batch %s: expected %d values, got %d", b.Table, len(b.Columns), len(values))
	}
	b.rows = append(b.rows, values)
	return nil
}

func (b *Batch) Len() int {
	return len(b.rows)
}

// CSV renders the batch as a CSV document with a header row.
func (b *Batch) CSV() ([]byte, error) {
	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)

	header := make([]string, len(b.Columns))
	for i, col := range b.Columns {
		header[i] = col.Name
	}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range b.rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV writer: %w", err)
	}

	return buffer.Bytes(), nil
}

// DDL returns the CREATE TABLE IF NOT EXISTS statement for the batch's shape.
func (b *Batch) DDL() string {
	defs := make([]string, len(b.Columns))
	for i, col := range b.Columns {
		defs[i] = fmt.Sprintf("%s %s", col.Name, col.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", b.Table, strings.Join(defs, ", "))
}

// ReadCSVColumns returns the columns struct literal for DuckDB's read_csv,
// so the temp relation is typed explicitly instead of relying on inference.
func (b *Batch) ReadCSVColumns() string {
	defs := make([]string, len(b.Columns))
	for i, col := range b.Columns {
		defs[i] = fmt.Sprintf("'%s': '%s'", col.Name, col.Type)
	}
	return "{" + strings.Join(defs, ", ") + "}"
}
