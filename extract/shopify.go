package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/botarhythm/my-shopify-ga-app-sub001/config"
	"github.com/botarhythm/my-shopify-ga-app-sub001/load"
)

const (
	ShopifyOrdersTable   = "stg_shopify_orders"
	ShopifyProductsTable = "stg_shopify_products"
)

// ShopifyClient fetches orders and products from the Shopify Admin REST API.
// Pagination follows the Link response header (rel="next").
type ShopifyClient struct {
	HTTPClient *retryablehttp.Client
	Logger     *slog.Logger
	BaseURL    string
	apiVersion string
	pageSize   int
	token      string
}

func NewShopifyClient(cfg *config.Config, secrets *config.Secrets, logger *slog.Logger) (*ShopifyClient, error) {
	if secrets.ShopifyShopURL == "" || secrets.ShopifyAccessToken == "" {
		return nil, fmt.Errorf("shopify credentials are not configured")
	}

	pageSize := cfg.Shopify.PageSize
	if pageSize == 0 {
		pageSize = 250
	}

	return &ShopifyClient{
		HTTPClient: newRetryableClient(cfg, logger),
		Logger:     logger,
		BaseURL:    fmt.Sprintf("https://%s", secrets.ShopifyShopURL),
		apiVersion: cfg.Shopify.APIVersion,
		pageSize:   pageSize,
		token:      secrets.ShopifyAccessToken,
	}, nil
}

type shopifyOrdersResponse struct {
	Orders []shopifyOrder `json:"orders"`
}

type shopifyOrder struct {
	ID                    int64             `json:"id"`
	CreatedAt             string            `json:"created_at"`
	CancelledAt           *string           `json:"cancelled_at"`
	Currency              string            `json:"currency"`
	FinancialStatus       string            `json:"financial_status"`
	TotalPrice            string            `json:"total_price"`
	CurrentTotalPrice     string            `json:"current_total_price"`
	SubtotalPrice         string            `json:"subtotal_price"`
	CurrentSubtotalPrice  string            `json:"current_subtotal_price"`
	TotalDiscounts        string            `json:"total_discounts"`
	CurrentTotalDiscounts string            `json:"current_total_discounts"`
	LineItems             []shopifyLineItem `json:"line_items"`
}

type shopifyLineItem struct {
	ID        int64  `json:"id"`
	ProductID *int64 `json:"product_id"`
	VariantID *int64 `json:"variant_id"`
	SKU       string `json:"sku"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// FetchOrders retrieves all orders created on or after start and flattens
// them to one row per line item, keyed by (order_id, lineitem_id).
// Cancelled orders are skipped. Post-refund (current_*) amounts are
// preferred over the original order amounts when present.
func (c *ShopifyClient) FetchOrders(start string) (*load.Batch, error) {
	batch := load.NewBatch(
		ShopifyOrdersTable,
		[]string{"order_id", "lineitem_id"},
		[]load.Column{
			{Name: "date", Type: "DATE"},
			{Name: "order_id", Type: "BIGINT"},
			{Name: "lineitem_id", Type: "BIGINT"},
			{Name: "product_id", Type: "BIGINT"},
			{Name: "variant_id", Type: "BIGINT"},
			{Name: "sku", Type: "VARCHAR"},
			{Name: "title", Type: "VARCHAR"},
			{Name: "qty", Type: "INTEGER"},
			{Name: "price", Type: "DOUBLE"},
			{Name: "currency", Type: "VARCHAR"},
			{Name: "order_total", Type: "DOUBLE"},
			{Name: "subtotal_price", Type: "DOUBLE"},
			{Name: "total_discounts", Type: "DOUBLE"},
			{Name: "financial_status", Type: "VARCHAR"},
			{Name: "created_at", Type: "TIMESTAMPTZ"},
		},
	)

	url := fmt.Sprintf("%s/admin/api/%s/orders.json?status=any&limit=%d&created_at_min=%s",
		c.BaseURL, c.apiVersion, c.pageSize, start)

	for url != "" {
		body, header, err := c.get(url, "shopify orders page")
		if err != nil {
			return nil, err
		}

		var page shopifyOrdersResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode shopify orders response: %w", err)
		}

		for _, order := range page.Orders {
			if order.CancelledAt != nil && *order.CancelledAt != "" {
				continue
			}

			orderDate, err := shopifyDate(order.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("order %d: %w", order.ID, err)
			}

			orderTotal := preferAmount(order.CurrentTotalPrice, order.TotalPrice)
			subtotal := preferAmount(order.CurrentSubtotalPrice, order.SubtotalPrice)
			discounts := preferAmount(order.CurrentTotalDiscounts, order.TotalDiscounts)

			for _, item := range order.LineItems {
				if err := batch.Append(
					orderDate,
					strconv.FormatInt(order.ID, 10),
					strconv.FormatInt(item.ID, 10),
					formatNullableID(item.ProductID),
					formatNullableID(item.VariantID),
					item.SKU,
					item.Title,
					strconv.Itoa(item.Quantity),
					formatFloat(parseAmount(item.Price)),
					order.Currency,
					formatFloat(orderTotal),
					formatFloat(subtotal),
					formatFloat(discounts),
					order.FinancialStatus,
					order.CreatedAt,
				); err != nil {
					return nil, err
				}
			}
		}

		url = extractNextURL(header.Get("Link"))
	}

	c.Logger.Info("Fetched shopify orders", "rows", batch.Len(), "since", start)
	return batch, nil
}

type shopifyProductsResponse struct {
	Products []shopifyProduct `json:"products"`
}

type shopifyProduct struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	ProductType string           `json:"product_type"`
	Vendor      string           `json:"vendor"`
	Status      string           `json:"status"`
	UpdatedAt   string           `json:"updated_at"`
	Variants    []shopifyVariant `json:"variants"`
}

type shopifyVariant struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	SKU               string `json:"sku"`
	Price             string `json:"price"`
	InventoryQuantity int    `json:"inventory_quantity"`
}

// FetchProducts retrieves products updated on or after start, one row per
// variant, keyed by (product_id, variant_id).
func (c *ShopifyClient) FetchProducts(start string) (*load.Batch, error) {
	batch := load.NewBatch(
		ShopifyProductsTable,
		[]string{"product_id", "variant_id"},
		[]load.Column{
			{Name: "product_id", Type: "BIGINT"},
			{Name: "variant_id", Type: "BIGINT"},
			{Name: "title", Type: "VARCHAR"},
			{Name: "variant_title", Type: "VARCHAR"},
			{Name: "sku", Type: "VARCHAR"},
			{Name: "price", Type: "DOUBLE"},
			{Name: "inventory_quantity", Type: "INTEGER"},
			{Name: "product_type", Type: "VARCHAR"},
			{Name: "vendor", Type: "VARCHAR"},
			{Name: "status", Type: "VARCHAR"},
			{Name: "updated_at", Type: "TIMESTAMPTZ"},
		},
	)

	url := fmt.Sprintf("%s/admin/api/%s/products.json?limit=%d&updated_at_min=%s",
		c.BaseURL, c.apiVersion, c.pageSize, start)

	for url != "" {
		body, header, err := c.get(url, "shopify products page")
		if err != nil {
			return nil, err
		}

		var page shopifyProductsResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode shopify products response: %w", err)
		}

		for _, product := range page.Products {
			for _, variant := range product.Variants {
				if err := batch.Append(
					strconv.FormatInt(product.ID, 10),
					strconv.FormatInt(variant.ID, 10),
					product.Title,
					variant.Title,
					variant.SKU,
					formatFloat(parseAmount(variant.Price)),
					strconv.Itoa(variant.InventoryQuantity),
					product.ProductType,
					product.Vendor,
					product.Status,
					product.UpdatedAt,
				); err != nil {
					return nil, err
				}
			}
		}

		url = extractNextURL(header.Get("Link"))
	}

	c.Logger.Info("Fetched shopify products", "rows", batch.Len(), "since", start)
	return batch, nil
}

func (c *ShopifyClient) get(url, description string) ([]byte, http.Header, error) {
	req, err := retryablehttp.NewRequest("GET", url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build request for %s: %w", description, err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)

	body, header, err := doRequest(c.HTTPClient, req, description)
	if err != nil {
		return nil, nil, err
	}
	return body, header, nil
}

// extractNextURL pulls the rel="next" URL out of a Shopify Link header.
// Returns "" when there is no next page.
func extractNextURL(linkHeader string) string {
	if !strings.Contains(linkHeader, `rel="next"`) {
		return ""
	}

	for _, part := range strings.Split(linkHeader, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start == -1 || end == -1 || end < start {
			return ""
		}
		return part[start+1 : end]
	}
	return ""
}

// shopifyDate extracts the local calendar date from an ISO 8601 timestamp.
func shopifyDate(createdAt string) (string, error) {
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return "", fmt.Errorf("invalid created_at timestamp %q: %w", createdAt, err)
	}
	return ts.Format("2006-01-02"), nil
}

// preferAmount parses the post-refund amount when present, falling back to
// the original field. Unparseable values coerce to 0.
func preferAmount(current, fallback string) float64 {
	if current != "" {
		return parseAmount(current)
	}
	return parseAmount(fallback)
}

func parseAmount(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNullableID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
