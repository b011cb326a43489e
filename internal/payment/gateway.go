package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/apperr"
)

// GatewayOrder is the gateway-hosted order the checkout widget is opened
// against. Amount is in minor currency units.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Client is a minimal REST client for the gateway's orders API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
}

func NewClient(baseURL, keyID, keySecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		keyID:      keyID,
		keySecret:  keySecret,
	}
}

// Configured reports whether API credentials are present.
func (c *Client) Configured() bool {
	return c != nil && c.keyID != "" && c.keySecret != ""
}

func (c *Client) KeyID() string {
	return c.keyID
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
}

type gatewayErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder issues one gateway order. Every call creates a new remote
// resource; receipt is passed through but not deduplicated.
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (GatewayOrder, error) {
	if amountMinor <= 0 {
		return GatewayOrder{}, apperr.Validation("amount", "must be a positive integer in minor units")
	}
	if !c.Configured() {
		return GatewayOrder{}, fmt.Errorf("gateway credentials: %w", apperr.ErrMisconfigured)
	}
	if currency == "" {
		currency = "INR"
	}
	if receipt == "" {
		receipt = NewReceipt()
	}

	payload, err := json.Marshal(createOrderRequest{Amount: amountMinor, Currency: currency, Receipt: receipt})
	if err != nil {
		return GatewayOrder{}, &apperr.GatewayError{Op: "create order", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return GatewayOrder{}, &apperr.GatewayError{Op: "create order", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return GatewayOrder{}, &apperr.GatewayError{Op: "create order", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return GatewayOrder{}, &apperr.GatewayError{Op: "create order", StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody gatewayErrorBody
		description := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &errBody) == nil && errBody.Error.Description != "" {
			description = errBody.Error.Code + ": " + errBody.Error.Description
		}
		return GatewayOrder{}, &apperr.GatewayError{
			Op:         "create order",
			StatusCode: resp.StatusCode,
			Err:        errors.New(description),
		}
	}

	var order GatewayOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return GatewayOrder{}, &apperr.GatewayError{Op: "create order", StatusCode: resp.StatusCode, Err: err}
	}
	if order.ID == "" {
		return GatewayOrder{}, &apperr.GatewayError{
			Op:         "create order",
			StatusCode: resp.StatusCode,
			Err:        errors.New("response carried no order id"),
		}
	}
	if order.Amount == 0 {
		order.Amount = amountMinor
	}
	if order.Currency == "" {
		order.Currency = currency
	}
	return order, nil
}

// NewReceipt returns a fresh receipt token. The gateway caps receipts at
// 40 characters.
func NewReceipt() string {
	return "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ToMinorUnits converts a major-unit amount (rupees) to minor units (paise).
// Amounts that are not positive or carry more than two decimals are rejected.
func ToMinorUnits(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, apperr.Validation("amount", "must be greater than 0")
	}
	scaled := amount * 100
	rounded := math.Round(scaled)
	if math.Abs(scaled-rounded) > 1e-6 {
		return 0, apperr.Validation("amount", "must not have more than two decimal places")
	}
	if rounded < 1 {
		return 0, apperr.Validation("amount", "must be greater than 0")
	}
	return int64(rounded), nil
}
