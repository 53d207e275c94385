package pipeline

import (
	"fmt"

	"github.com/botarhythm/my-shopify-ga-app-sub001/template"
)

// yoyLagDays is 52 full weeks, so a day is compared against the same weekday
// one year earlier.
const yoyLagDays = 364

// Transform rebuilds the core views and mart tables from the staging layer.
// Every mart is replaced wholesale; the staging tables remain the only
// incremental state.
func (p *Pipeline) Transform() error {
	if err := p.DuckDB.RunQueryFile(p.getSQLPath("transform__core.sql")); err != nil {
		return fmt.Errorf("error building core layer: %w", err)
	}

	if err := p.DuckDB.RunQueryFile(p.getSQLPath("transform__marts.sql")); err != nil {
		return fmt.Errorf("error building mart layer: %w", err)
	}

	yoySQL, err := template.ExecuteSQLTemplate(p.getSQLPath("transform__yoy.sql"), map[string]any{
		"LagDays": yoyLagDays,
	})
	if err != nil {
		return fmt.Errorf("error rendering year-over-year transform: %w", err)
	}
	if err := p.DuckDB.RunQuery(yoySQL); err != nil {
		return fmt.Errorf("error building year-over-year mart: %w", err)
	}

	p.Logger.Info("Transform completed")
	return nil
}
