package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/botarhythm/my-shopify-ga-app-sub001/config"
	"github.com/botarhythm/my-shopify-ga-app-sub001/load"
)

const SquarePaymentsTable = "stg_square_payments"

// SquareClient fetches point-of-sale payments from the Square Payments API,
// using cursor pagination.
type SquareClient struct {
	HTTPClient *retryablehttp.Client
	Logger     *slog.Logger
	BaseURL    string
	token      string
	locationID string
}

func NewSquareClient(cfg *config.Config, secrets *config.Secrets, logger *slog.Logger) (*SquareClient, error) {
	if secrets.SquareAccessToken == "" || secrets.SquareLocationID == "" {
		return nil, fmt.Errorf("square credentials are not configured")
	}

	baseURL := cfg.Square.BaseURL
	if baseURL == "" {
		baseURL = "https://connect.squareup.com"
	}

	return &SquareClient{
		HTTPClient: newRetryableClient(cfg, logger),
		Logger:     logger,
		BaseURL:    baseURL,
		token:      secrets.SquareAccessToken,
		locationID: secrets.SquareLocationID,
	}, nil
}

type squarePaymentsResponse struct {
	Payments []squarePayment `json:"payments"`
	Cursor   string          `json:"cursor"`
}

type squarePayment struct {
	ID            string             `json:"id"`
	CreatedAt     string             `json:"created_at"`
	Status        string             `json:"status"`
	ReceiptNumber string             `json:"receipt_number"`
	OrderID       string             `json:"order_id"`
	LocationID    string             `json:"location_id"`
	AmountMoney   squareMoney        `json:"amount_money"`
	CardDetails   *squareCardDetails `json:"card_details"`
	ProcessingFee []squareFee        `json:"processing_fee"`
}

type squareMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type squareCardDetails struct {
	EntryMethod string     `json:"entry_method"`
	Card        squareCard `json:"card"`
}

type squareCard struct {
	CardBrand   string `json:"card_brand"`
	CardType    string `json:"card_type"`
	Fingerprint string `json:"fingerprint"`
}

type squareFee struct {
	AmountMoney squareMoney `json:"amount_money"`
}

// FetchPayments retrieves all payments in [start, end], keyed by payment_id.
// Amounts arrive in the currency's minor unit and are normalized to major
// units here, at the connector boundary, so every table in the warehouse
// carries major units.
func (c *SquareClient) FetchPayments(start, end string) (*load.Batch, error) {
	batch := load.NewBatch(
		SquarePaymentsTable,
		[]string{"payment_id"},
		[]load.Column{
			{Name: "date", Type: "DATE"},
			{Name: "payment_id", Type: "VARCHAR"},
			{Name: "amount", Type: "DOUBLE"},
			{Name: "currency", Type: "VARCHAR"},
			{Name: "status", Type: "VARCHAR"},
			{Name: "card_brand", Type: "VARCHAR"},
			{Name: "card_type", Type: "VARCHAR"},
			{Name: "entry_method", Type: "VARCHAR"},
			{Name: "receipt_number", Type: "VARCHAR"},
			{Name: "order_id", Type: "VARCHAR"},
			{Name: "location_id", Type: "VARCHAR"},
			{Name: "processing_fee", Type: "DOUBLE"},
			{Name: "created_at", Type: "TIMESTAMPTZ"},
		},
	)

	cursor := ""
	for {
		body, err := c.listPaymentsPage(start, end, cursor)
		if err != nil {
			return nil, err
		}

		var page squarePaymentsResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode square payments response: %w", err)
		}

		for _, payment := range page.Payments {
			date, err := squareDate(payment.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("payment %s: %w", payment.ID, err)
			}

			cardBrand, cardType, entryMethod := "", "", ""
			if payment.CardDetails != nil {
				cardBrand = payment.CardDetails.Card.CardBrand
				cardType = payment.CardDetails.Card.CardType
				entryMethod = payment.CardDetails.EntryMethod
			}

			var fee float64
			for _, f := range payment.ProcessingFee {
				fee += toMajorUnits(f.AmountMoney.Amount, f.AmountMoney.Currency)
			}

			if err := batch.Append(
				date,
				payment.ID,
				formatFloat(toMajorUnits(payment.AmountMoney.Amount, payment.AmountMoney.Currency)),
				payment.AmountMoney.Currency,
				payment.Status,
				cardBrand,
				cardType,
				entryMethod,
				payment.ReceiptNumber,
				payment.OrderID,
				payment.LocationID,
				formatFloat(fee),
				payment.CreatedAt,
			); err != nil {
				return nil, err
			}
		}

		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	c.Logger.Info("Fetched square payments", "rows", batch.Len(), "start", start, "end", end)
	return batch, nil
}

func (c *SquareClient) listPaymentsPage(start, end, cursor string) ([]byte, error) {
	query := url.Values{}
	query.Set("begin_time", start+"T00:00:00Z")
	query.Set("end_time", end+"T23:59:59Z")
	query.Set("location_id", c.locationID)
	query.Set("sort_order", "ASC")
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	reqURL := fmt.Sprintf("%s/v2/payments?%s", c.BaseURL, query.Encode())
	req, err := retryablehttp.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build square payments request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	body, _, err := doRequest(c.HTTPClient, req, "square payments page")
	return body, err
}

// toMajorUnits converts a Square minor-unit amount to major currency units.
// JPY has no minor unit and passes through untouched.
func toMajorUnits(amountMinor int64, currency string) float64 {
	if currency == "JPY" {
		return float64(amountMinor)
	}
	return float64(amountMinor) / 100.0
}

func squareDate(createdAt string) (string, error) {
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return "", fmt.Errorf("invalid created_at timestamp %q: %w", createdAt, err)
	}
	return ts.Format("2006-01-02"), nil
}
