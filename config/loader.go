package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Extract  ExtractConfig
	DuckDB   DuckDBConfig
	Ingest   IngestConfig
	Shopify  ShopifyConfig
	Square   SquareConfig
	GA4      GA4Config
	Ads      AdsConfig
	Report   ReportConfig
	Schedule ScheduleConfig
	Env      string
}

type ExtractConfig struct {
	Backoff BackoffConfig
}

type BackoffConfig struct {
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	RetryMax     int           `mapstructure:"retry_max"`
}

type DuckDBConfig struct {
	Path              string   `mapstructure:"path"`
	ConnInitFnQueries []string `mapstructure:"conn_init_fn_queries"`
}

type IngestConfig struct {
	DefaultLookbackDays int `mapstructure:"default_lookback_days"`
	BackfillWindowDays  int `mapstructure:"backfill_window_days"`
}

type ShopifyConfig struct {
	APIVersion string `mapstructure:"api_version"`
	PageSize   int    `mapstructure:"page_size"`
}

type SquareConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type GA4Config struct {
	BaseURL string `mapstructure:"base_url"`
}

type AdsConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIVersion string `mapstructure:"api_version"`
}

type ReportConfig struct {
	Addr string `mapstructure:"addr"`
}

type ScheduleConfig struct {
	Daily   string `mapstructure:"daily"`
	Weekly  string `mapstructure:"weekly"`
	Monthly string `mapstructure:"monthly"`
}

// NewConfig loads the configuration from the provided base config reader
// and merges it with the environment-specific configuration.
// The DUCKDB_PATH environment variable, when set, overrides the warehouse
// path from the YAML files.
func NewConfig(baseConfigReader io.Reader, envConfigReader io.Reader, env string) (*Config, error) {
	if env == "" { // Use the provided 'env' or default to "dev"
		env = "dev"
	}

	viper.SetConfigType("yaml")

	// Read the base configuration
	if err := viper.ReadConfig(baseConfigReader); err != nil {
		return nil, fmt.Errorf("error reading base config: %w", err)
	}

	// Merge with environment-specific configuration (only if provided)
	if envConfigReader != nil {
		if err := viper.MergeConfig(envConfigReader); err != nil {
			log.Printf("Error merging environment-specific config: %s", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if path := os.Getenv("DUCKDB_PATH"); path != "" {
		config.DuckDB.Path = path
	}

	if config.Ingest.DefaultLookbackDays == 0 {
		config.Ingest.DefaultLookbackDays = 400
	}
	if config.Ingest.BackfillWindowDays == 0 {
		config.Ingest.BackfillWindowDays = 30
	}

	// Set the environment directly
	config.Env = env

	return &config, nil
}

// Secrets holds all vendor credentials and identifiers, read from the
// process environment exactly once at startup. Components receive it by
// reference instead of reading env variables ad hoc.
type Secrets struct {
	ShopifyShopURL     string
	ShopifyAccessToken string

	SquareAccessToken string
	SquareLocationID  string

	GA4PropertyID string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string

	AdsDeveloperToken  string
	AdsCustomerID      string
	AdsLoginCustomerID string
}

// NewSecretsFromEnv reads all vendor credentials from the environment.
// Missing variables are reported in a single error so a misconfigured
// deployment fails with the complete list, before any network call is made.
// GOOGLE_ADS_LOGIN_CUSTOMER_ID is optional (only needed for manager
// accounts).
func NewSecretsFromEnv() (*Secrets, error) {
	s := &Secrets{
		ShopifyShopURL:     os.Getenv("SHOPIFY_SHOP_URL"),
		ShopifyAccessToken: os.Getenv("SHOPIFY_ACCESS_TOKEN"),
		SquareAccessToken:  os.Getenv("SQUARE_ACCESS_TOKEN"),
		SquareLocationID:   os.Getenv("SQUARE_LOCATION_ID"),
		GA4PropertyID:      os.Getenv("GA4_PROPERTY_ID"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRefreshToken: os.Getenv("GOOGLE_REFRESH_TOKEN"),
		AdsDeveloperToken:  os.Getenv("GOOGLE_ADS_DEVELOPER_TOKEN"),
		AdsCustomerID:      os.Getenv("GOOGLE_ADS_CUSTOMER_ID"),
		AdsLoginCustomerID: os.Getenv("GOOGLE_ADS_LOGIN_CUSTOMER_ID"),
	}

	required := []struct {
		name  string
		value string
	}{
		{"SHOPIFY_SHOP_URL", s.ShopifyShopURL},
		{"SHOPIFY_ACCESS_TOKEN", s.ShopifyAccessToken},
		{"SQUARE_ACCESS_TOKEN", s.SquareAccessToken},
		{"SQUARE_LOCATION_ID", s.SquareLocationID},
		{"GA4_PROPERTY_ID", s.GA4PropertyID},
		{"GOOGLE_CLIENT_ID", s.GoogleClientID},
		{"GOOGLE_CLIENT_SECRET", s.GoogleClientSecret},
		{"GOOGLE_REFRESH_TOKEN", s.GoogleRefreshToken},
		{"GOOGLE_ADS_DEVELOPER_TOKEN", s.AdsDeveloperToken},
		{"GOOGLE_ADS_CUSTOMER_ID", s.AdsCustomerID},
	}

	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.New("missing required environment variables: " + strings.Join(missing, ", "))
	}

	return s, nil
}
