package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/botarhythm/my-shopify-ga-app-sub001/config"
	"github.com/botarhythm/my-shopify-ga-app-sub001/extract"
	"github.com/botarhythm/my-shopify-ga-app-sub001/load"
	"github.com/botarhythm/my-shopify-ga-app-sub001/utils"
)

// Source is one upstream feed: a staging table and the fetch that fills it.
// Fetchers take an inclusive [start, end] date range. WatermarkColumn is the
// column whose max drives the next incremental pull.
type Source struct {
	Name            string
	Table           string
	WatermarkColumn string
	Fetch           func(start, end string) (*load.Batch, error)
}

type Pipeline struct {
	DuckDB       *load.DuckDB
	Sources      []Source
	Logger       *slog.Logger
	Config       *config.Config
	sqlDir       string
	timeProvider utils.TimeProvider
}

func NewPipeline(cfg *config.Config, secrets *config.Secrets, logger *slog.Logger, timeProvider utils.TimeProvider) (*Pipeline, error) {
	db, err := load.NewDuckDB(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating DB database: %v", err)
	}

	shopify, err := extract.NewShopifyClient(cfg, secrets, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating Shopify client: %v", err)
	}
	square, err := extract.NewSquareClient(cfg, secrets, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating Square client: %v", err)
	}
	ga4, err := extract.NewGA4Client(cfg, secrets, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating GA4 client: %v", err)
	}
	ads, err := extract.NewAdsClient(cfg, secrets, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating Google Ads client: %v", err)
	}

	// Determine SQL directory based on working directory
	sqlDir := "sql"
	if _, err := os.Stat(sqlDir); os.IsNotExist(err) {
		// If sql/ doesn't exist in current directory, try parent
		sqlDir = filepath.Join("..", "sql")
		if _, err := os.Stat(sqlDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("cannot find SQL directory in either current or parent directory")
		}
	}

	return &Pipeline{
		DuckDB:       db,
		Sources:      defaultSources(shopify, square, ga4, ads),
		Logger:       logger,
		Config:       cfg,
		sqlDir:       sqlDir,
		timeProvider: timeProvider,
	}, nil
}

// NewWarehousePipeline builds a pipeline without source connectors, for
// operations that only touch the database: transform, quality, reporting.
func NewWarehousePipeline(cfg *config.Config, logger *slog.Logger, timeProvider utils.TimeProvider) (*Pipeline, error) {
	db, err := load.NewDuckDB(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating DB database: %v", err)
	}

	sqlDir := "sql"
	if _, err := os.Stat(sqlDir); os.IsNotExist(err) {
		sqlDir = filepath.Join("..", "sql")
		if _, err := os.Stat(sqlDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("cannot find SQL directory in either current or parent directory")
		}
	}

	return &Pipeline{
		DuckDB:       db,
		Logger:       logger,
		Config:       cfg,
		sqlDir:       sqlDir,
		timeProvider: timeProvider,
	}, nil
}

// defaultSources fixes the ingestion order: traffic first, then ads, then
// commerce. The order is part of the contract so runs are comparable.
func defaultSources(shopify *extract.ShopifyClient, square *extract.SquareClient, ga4 *extract.GA4Client, ads *extract.AdsClient) []Source {
	return []Source{
		{Name: "ga4_traffic", Table: extract.GA4Table, WatermarkColumn: "date", Fetch: ga4.FetchDailyTraffic},
		{Name: "ads_campaign", Table: extract.AdsCampaignTable, WatermarkColumn: "date", Fetch: ads.FetchCampaignDaily},
		{Name: "ads_adgroup", Table: extract.AdsAdGroupTable, WatermarkColumn: "date", Fetch: ads.FetchAdGroupDaily},
		{Name: "ads_keyword", Table: extract.AdsKeywordTable, WatermarkColumn: "date", Fetch: ads.FetchKeywordDaily},
		{Name: "shopify_orders", Table: extract.ShopifyOrdersTable, WatermarkColumn: "date", Fetch: func(start, _ string) (*load.Batch, error) {
			return shopify.FetchOrders(start)
		}},
		// Products have no business date; their watermark is the update
		// timestamp.
		{Name: "shopify_products", Table: extract.ShopifyProductsTable, WatermarkColumn: "updated_at", Fetch: func(start, _ string) (*load.Batch, error) {
			return shopify.FetchProducts(start)
		}},
		{Name: "square_payments", Table: extract.SquarePaymentsTable, WatermarkColumn: "date", Fetch: square.FetchPayments},
	}
}

func (p *Pipeline) Close() {
	p.DuckDB.Close()
}

func (p *Pipeline) getSQLPath(filename string) string {
	return filepath.Join(p.sqlDir, filename)
}
