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
	AdsCampaignTable = "stg_ads_campaign"
	AdsAdGroupTable  = "stg_ads_adgroup"
	AdsKeywordTable  = "stg_ads_keyword"

	adsScope = "https://www.googleapis.com/auth/adwords"
)

const gaqlCampaign = `
SELECT
    campaign.id,
    campaign.name,
    segments.date,
    metrics.cost_micros,
    metrics.clicks,
    metrics.impressions,
    metrics.conversions,
    metrics.conversions_value
FROM campaign
WHERE segments.date BETWEEN '%s' AND '%s'`

const gaqlAdGroup = `
SELECT
    campaign.id,
    campaign.name,
    ad_group.id,
    ad_group.name,
    segments.date,
    metrics.cost_micros,
    metrics.clicks,
    metrics.impressions,
    metrics.conversions,
    metrics.conversions_value
FROM ad_group
WHERE segments.date BETWEEN '%s' AND '%s'`

const gaqlKeyword = `
SELECT
    campaign.id,
    campaign.name,
    ad_group.id,
    ad_group.name,
    ad_group_criterion.keyword.text,
    segments.date,
    metrics.cost_micros,
    metrics.clicks,
    metrics.impressions,
    metrics.conversions,
    metrics.conversions_value
FROM keyword_view
WHERE segments.date BETWEEN '%s' AND '%s'`

// AdsClient fetches campaign, ad-group and keyword daily metrics from the
// Google Ads REST API via GAQL search, with pageToken pagination.
type AdsClient struct {
	HTTPClient      *retryablehttp.Client
	Logger          *slog.Logger
	BaseURL         string
	apiVersion      string
	customerID      string
	loginCustomerID string
	developerToken  string
}

func NewAdsClient(cfg *config.Config, secrets *config.Secrets, logger *slog.Logger) (*AdsClient, error) {
	if secrets.AdsDeveloperToken == "" || secrets.AdsCustomerID == "" {
		return nil, fmt.Errorf("google ads credentials are not configured")
	}

	baseURL := cfg.Ads.BaseURL
	if baseURL == "" {
		baseURL = "https://googleads.googleapis.com"
	}
	apiVersion := cfg.Ads.APIVersion
	if apiVersion == "" {
		apiVersion = "v17"
	}

	client := newRetryableClient(cfg, logger)
	client.HTTPClient = newGoogleOAuthClient(context.Background(), secrets, adsScope)

	return &AdsClient{
		HTTPClient:      client,
		Logger:          logger,
		BaseURL:         baseURL,
		apiVersion:      apiVersion,
		customerID:      secrets.AdsCustomerID,
		loginCustomerID: secrets.AdsLoginCustomerID,
		developerToken:  secrets.AdsDeveloperToken,
	}, nil
}

type adsSearchRequest struct {
	Query     string `json:"query"`
	PageToken string `json:"pageToken,omitempty"`
}

type adsSearchResponse struct {
	Results       []adsResult `json:"results"`
	NextPageToken string      `json:"nextPageToken"`
}

type adsResult struct {
	Campaign         *adsEntity    `json:"campaign"`
	AdGroup          *adsEntity    `json:"adGroup"`
	AdGroupCriterion *adsCriterion `json:"adGroupCriterion"`
	Segments         adsSegments   `json:"segments"`
	Metrics          adsMetrics    `json:"metrics"`
}

type adsEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type adsCriterion struct {
	Keyword adsKeyword `json:"keyword"`
}

type adsKeyword struct {
	Text string `json:"text"`
}

type adsSegments struct {
	Date string `json:"date"`
}

type adsMetrics struct {
	CostMicros       string  `json:"costMicros"`
	Clicks           string  `json:"clicks"`
	Impressions      string  `json:"impressions"`
	Conversions      float64 `json:"conversions"`
	ConversionsValue float64 `json:"conversionsValue"`
}

// FetchCampaignDaily retrieves per-campaign daily metrics for [start, end],
// keyed by (date, campaign_id). Micros are converted to currency units at
// this boundary.
func (c *AdsClient) FetchCampaignDaily(start, end string) (*load.Batch, error) {
	batch := load.NewBatch(
		AdsCampaignTable,
		[]string{"date", "campaign_id"},
		append(adsIdentityColumns(false, false), adsMetricColumns()...),
	)

	results, err := c.search(fmt.Sprintf(gaqlCampaign, start, end), "ads campaign daily")
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.Campaign == nil {
			return nil, fmt.Errorf("ads campaign result missing campaign entity")
		}
		row := []string{r.Segments.Date, r.Campaign.ID, r.Campaign.Name}
		if err := batch.Append(append(row, adsMetricValues(r.Metrics)...)...); err != nil {
			return nil, err
		}
	}

	c.Logger.Info("Fetched ads campaign daily", "rows", batch.Len(), "start", start, "end", end)
	return batch, nil
}

// FetchAdGroupDaily retrieves per-ad-group daily metrics, keyed by
// (date, campaign_id, ad_group_id).
func (c *AdsClient) FetchAdGroupDaily(start, end string) (*load.Batch, error) {
	batch := load.NewBatch(
		AdsAdGroupTable,
		[]string{"date", "campaign_id", "ad_group_id"},
		append(adsIdentityColumns(true, false), adsMetricColumns()...),
	)

	results, err := c.search(fmt.Sprintf(gaqlAdGroup, start, end), "ads ad group daily")
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.Campaign == nil || r.AdGroup == nil {
			return nil, fmt.Errorf("ads ad group result missing campaign or ad group entity")
		}
		row := []string{r.Segments.Date, r.Campaign.ID, r.Campaign.Name, r.AdGroup.ID, r.AdGroup.Name}
		if err := batch.Append(append(row, adsMetricValues(r.Metrics)...)...); err != nil {
			return nil, err
		}
	}

	c.Logger.Info("Fetched ads ad group daily", "rows", batch.Len(), "start", start, "end", end)
	return batch, nil
}

// FetchKeywordDaily retrieves per-keyword daily metrics, keyed by
// (date, campaign_id, ad_group_id, keyword).
func (c *AdsClient) FetchKeywordDaily(start, end string) (*load.Batch, error) {
	batch := load.NewBatch(
		AdsKeywordTable,
		[]string{"date", "campaign_id", "ad_group_id", "keyword"},
		append(adsIdentityColumns(true, true), adsMetricColumns()...),
	)

	results, err := c.search(fmt.Sprintf(gaqlKeyword, start, end), "ads keyword daily")
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.Campaign == nil || r.AdGroup == nil || r.AdGroupCriterion == nil {
			return nil, fmt.Errorf("ads keyword result missing campaign, ad group or criterion")
		}
		row := []string{
			r.Segments.Date,
			r.Campaign.ID, r.Campaign.Name,
			r.AdGroup.ID, r.AdGroup.Name,
			r.AdGroupCriterion.Keyword.Text,
		}
		if err := batch.Append(append(row, adsMetricValues(r.Metrics)...)...); err != nil {
			return nil, err
		}
	}

	c.Logger.Info("Fetched ads keyword daily", "rows", batch.Len(), "start", start, "end", end)
	return batch, nil
}

func (c *AdsClient) search(gaql, description string) ([]adsResult, error) {
	var results []adsResult

	pageToken := ""
	for {
		payload, err := json.Marshal(adsSearchRequest{Query: gaql, PageToken: pageToken})
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", description, err)
		}

		url := fmt.Sprintf("%s/%s/customers/%s/googleAds:search", c.BaseURL, c.apiVersion, c.customerID)
		req, err := retryablehttp.NewRequest("POST", url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to build %s request: %w", description, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("developer-token", c.developerToken)
		if c.loginCustomerID != "" {
			req.Header.Set("login-customer-id", c.loginCustomerID)
		}

		body, _, err := doRequest(c.HTTPClient, req, description)
		if err != nil {
			return nil, err
		}

		var page adsSearchResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode %s response: %w", description, err)
		}

		results = append(results, page.Results...)

		if page.NextPageToken == "" {
			return results, nil
		}
		pageToken = page.NextPageToken
	}
}

func adsIdentityColumns(adGroup, keyword bool) []load.Column {
	cols := []load.Column{
		{Name: "date", Type: "DATE"},
		{Name: "campaign_id", Type: "BIGINT"},
		{Name: "campaign_name", Type: "VARCHAR"},
	}
	if adGroup {
		cols = append(cols,
			load.Column{Name: "ad_group_id", Type: "BIGINT"},
			load.Column{Name: "ad_group_name", Type: "VARCHAR"},
		)
	}
	if keyword {
		cols = append(cols, load.Column{Name: "keyword", Type: "VARCHAR"})
	}
	return cols
}

func adsMetricColumns() []load.Column {
	return []load.Column{
		{Name: "cost", Type: "DOUBLE"},
		{Name: "clicks", Type: "BIGINT"},
		{Name: "impressions", Type: "BIGINT"},
		{Name: "conversions", Type: "DOUBLE"},
		{Name: "conversions_value", Type: "DOUBLE"},
	}
}

func adsMetricValues(m adsMetrics) []string {
	return []string{
		formatFloat(microsToUnits(m.CostMicros)),
		zeroIfEmpty(m.Clicks),
		zeroIfEmpty(m.Impressions),
		formatFloat(m.Conversions),
		formatFloat(m.ConversionsValue),
	}
}

// microsToUnits converts a micros string from the Ads API to currency units.
func microsToUnits(micros string) float64 {
	if micros == "" {
		return 0
	}
	v, err := strconv.ParseInt(micros, 10, 64)
	if err != nil {
		return 0
	}
	return float64(v) / 1e6
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
