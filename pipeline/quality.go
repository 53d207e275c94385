package pipeline

import (
	"fmt"
	"strconv"

	"github.com/sourcegraph/conc/iter"
)

// CheckResult is the outcome of one quality assertion. Findings are
// reported, never auto-corrected.
type CheckResult struct {
	Name   string
	Passed bool
	Detail string
}

type qualityCheck struct {
	name string
	// query must return a single row with a single column aliased v.
	query string
	eval  func(value string) (bool, string)
}

const nullRateThreshold = 0.1

func expectZero(value string) (bool, string) {
	if value == "0" {
		return true, ""
	}
	return false, fmt.Sprintf("%s offending rows", value)
}

func expectNullRateBelowThreshold(value string) (bool, string) {
	rate, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return false, fmt.Sprintf("unparseable null rate %q", value)
	}
	if rate <= nullRateThreshold {
		return true, ""
	}
	return false, fmt.Sprintf("null rate %.2f exceeds %.2f", rate, nullRateThreshold)
}

func qualityChecks() []qualityCheck {
	var checks []qualityCheck

	for _, table := range []string{
		"stg_ga4", "stg_ads_campaign", "stg_ads_adgroup", "stg_ads_keyword",
		"stg_shopify_orders", "stg_shopify_products", "stg_square_payments",
		"core_daily_revenue", "core_daily_traffic", "core_daily_ads",
		"mart_revenue_daily", "mart_traffic_daily", "mart_ads_daily",
		"mart_daily", "mart_daily_yoy",
	} {
		checks = append(checks, qualityCheck{
			name:  "table exists: " + table,
			query: fmt.Sprintf("SELECT count(*) AS v FROM information_schema.tables WHERE table_name = '%s';", table),
			eval: func(value string) (bool, string) {
				if value == "1" {
					return true, ""
				}
				return false, "table not found"
			},
		})
	}

	checks = append(checks,
		qualityCheck{
			name:  "roas non-negative",
			query: "SELECT count(*) AS v FROM mart_ads_daily WHERE roas < 0;",
			eval:  expectZero,
		},
		qualityCheck{
			name:  "sessions at least purchases",
			query: "SELECT count(*) AS v FROM mart_daily WHERE purchases > sessions;",
			eval:  expectZero,
		},
		qualityCheck{
			name: "sessions null rate",
			query: `SELECT CASE WHEN count(*) = 0 THEN 0
				ELSE sum(CASE WHEN sessions IS NULL THEN 1 ELSE 0 END) * 1.0 / count(*) END AS v
				FROM mart_daily;`,
			eval: expectNullRateBelowThreshold,
		},
		qualityCheck{
			name: "revenue null rate",
			query: `SELECT CASE WHEN count(*) = 0 THEN 0
				ELSE sum(CASE WHEN revenue IS NULL THEN 1 ELSE 0 END) * 1.0 / count(*) END AS v
				FROM mart_daily;`,
			eval: expectNullRateBelowThreshold,
		},
		qualityCheck{
			name:  "no duplicate dates in mart_daily",
			query: "SELECT count(*) AS v FROM (SELECT date FROM mart_daily GROUP BY date HAVING count(*) > 1) AS dupes;",
			eval:  expectZero,
		},
		qualityCheck{
			name:  "year-over-year comparison populated",
			query: "SELECT CASE WHEN count(*) = 0 OR count(revenue_prev) > 0 THEN 0 ELSE 1 END AS v FROM mart_daily_yoy;",
			eval:  expectZero,
		},
	)

	return checks
}

// RunQualityChecks runs every assertion against the warehouse and returns
// one result per check, in the declared order. Checks run concurrently; they
// are read-only so they cannot interfere with each other.
func (p *Pipeline) RunQualityChecks() ([]CheckResult, error) {
	mapper := iter.Mapper[qualityCheck, CheckResult]{
		MaxGoroutines: 4,
	}

	results, err := mapper.MapErr(qualityChecks(), func(check *qualityCheck) (CheckResult, error) {
		res, err := p.DuckDB.GetQueryResults(check.query)
		if err != nil {
			// A failing query is itself a finding, typically a missing table.
			return CheckResult{Name: check.name, Passed: false, Detail: err.Error()}, nil
		}

		values, ok := res["v"]
		if !ok || len(values) != 1 {
			return CheckResult{}, fmt.Errorf("check %q did not return a single value", check.name)
		}

		passed, detail := check.eval(values[0])
		return CheckResult{Name: check.name, Passed: passed, Detail: detail}, nil
	})
	if err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
			p.Logger.Warn("Quality check failed", "check", r.Name, "detail", r.Detail)
		}
	}
	p.Logger.Info("Quality checks completed", "total", len(results), "failed", failed)

	return results, nil
}
