package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/botarhythm/my-shopify-ga-app-sub001/config"
	"github.com/botarhythm/my-shopify-ga-app-sub001/load"
)

const (
	GA4Table = "stg_ga4"

	ga4Scope    = "https://www.googleapis.com/auth/analytics.readonly"
	ga4PageSize = 100000
)

// GA4Client fetches daily traffic aggregates from the GA4 Analytics Data
// API (runReport), paginated via limit/offset.
type GA4Client struct {
	HTTPClient *retryablehttp.Client
	Logger     *slog.Logger
	BaseURL    string
	propertyID string
}

func NewGA4Client(cfg *config.Config, secrets *config.Secrets, logger *slog.Logger) (*GA4Client, error) {
	if secrets.GA4PropertyID == "" {
		return nil, fmt.Errorf("GA4 property ID is not configured")
	}

	baseURL := cfg.GA4.BaseURL
	if baseURL == "" {
		baseURL = "https://analyticsdata.googleapis.com"
	}

	client := newRetryableClient(cfg, logger)
	client.HTTPClient = newGoogleOAuthClient(context.Background(), secrets, ga4Scope)

	return &GA4Client{
		HTTPClient: client,
		Logger:     logger,
		BaseURL:    baseURL,
		propertyID: secrets.GA4PropertyID,
	}, nil
}

type ga4RunReportRequest struct {
	DateRanges []ga4DateRange `json:"dateRanges"`
	Dimensions []ga4Name      `json:"dimensions"`
	Metrics    []ga4Name      `json:"metrics"`
	Limit      string         `json:"limit"`
	Offset     string         `json:"offset"`
}

type ga4DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type ga4Name struct {
	Name string `json:"name"`
}

type ga4RunReportResponse struct {
	Rows     []ga4Row `json:"rows"`
	RowCount int64    `json:"rowCount"`
}

type ga4Row struct {
	DimensionValues []ga4Value `json:"dimensionValues"`
	MetricValues    []ga4Value `json:"metricValues"`
}

type ga4Value struct {
	Value string `json:"value"`
}

// FetchDailyTraffic retrieves per-day session aggregates broken down by
// source, channel group and page path, keyed by that dimension tuple.
// GA4's response names are renamed to the warehouse column names here.
func (c *GA4Client) FetchDailyTraffic(start, end string) (*load.Batch, error) {
	batch := load.NewBatch(
		GA4Table,
		[]string{"date", "source", "channel", "page_path"},
		[]load.Column{
			{Name: "date", Type: "DATE"},
			{Name: "source", Type: "VARCHAR"},
			{Name: "channel", Type: "VARCHAR"},
			{Name: "page_path", Type: "VARCHAR"},
			{Name: "sessions", Type: "BIGINT"},
			{Name: "users", Type: "BIGINT"},
			{Name: "purchases", Type: "BIGINT"},
			{Name: "revenue", Type: "DOUBLE"},
		},
	)

	var offset int64
	for {
		page, err := c.runReport(start, end, offset)
		if err != nil {
			return nil, err
		}

		for _, row := range page.Rows {
			if len(row.DimensionValues) != 4 || len(row.MetricValues) != 4 {
				return nil, fmt.Errorf("unexpected GA4 row shape: %d dimensions, %d metrics",
					len(row.DimensionValues), len(row.MetricValues))
			}

			date, err := ga4Date(row.DimensionValues[0].Value)
			if err != nil {
				return nil, err
			}

			if err := batch.Append(
				date,
				row.DimensionValues[1].Value,
				row.DimensionValues[2].Value,
				row.DimensionValues[3].Value,
				formatCount(row.MetricValues[0].Value),
				formatCount(row.MetricValues[1].Value),
				formatCount(row.MetricValues[2].Value),
				formatFloat(parseAmount(row.MetricValues[3].Value)),
			); err != nil {
				return nil, err
			}
		}

		offset += int64(len(page.Rows))
		if offset >= page.RowCount || len(page.Rows) == 0 {
			break
		}
	}

	c.Logger.Info("Fetched GA4 daily traffic", "rows", batch.Len(), "start", start, "end", end)
	return batch, nil
}

func (c *GA4Client) runReport(start, end string, offset int64) (*ga4RunReportResponse, error) {
	reqBody := ga4RunReportRequest{
		DateRanges: []ga4DateRange{{StartDate: start, EndDate: end}},
		Dimensions: []ga4Name{
			{Name: "date"},
			{Name: "source"},
			{Name: "sessionDefaultChannelGroup"},
			{Name: "pagePath"},
		},
		Metrics: []ga4Name{
			{Name: "sessions"},
			{Name: "totalUsers"},
			{Name: "transactions"},
			{Name: "totalRevenue"},
		},
		Limit:  strconv.Itoa(ga4PageSize),
		Offset: strconv.FormatInt(offset, 10),
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode GA4 runReport request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/properties/%s:runReport", c.BaseURL, c.propertyID)
	req, err := retryablehttp.NewRequest("POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build GA4 runReport request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, _, err := doRequest(c.HTTPClient, req, "GA4 runReport")
	if err != nil {
		return nil, err
	}

	var resp ga4RunReportResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode GA4 runReport response: %w", err)
	}

	return &resp, nil
}

// ga4Date converts GA4's YYYYMMDD date dimension to YYYY-MM-DD.
func ga4Date(s string) (string, error) {
	if len(s) != 8 {
		return "", fmt.Errorf("invalid GA4 date dimension %q", s)
	}
	return s[0:4] + "-" + s[4:6] + "-" + s[6:8], nil
}

// formatCount coerces a GA4 metric value to an integer count. GA4 reports
// counts as strings and occasionally with a decimal part.
func formatCount(s string) string {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return s
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "0"
	}
	return strconv.FormatInt(int64(v), 10)
}
