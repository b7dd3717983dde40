package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"vipclub-bot/internal/models"
)

// Client talks to the Mercado Pago checkout API.
type Client struct {
	AccessToken string
	APIURL      string
	HTTPClient  *http.Client
}

func NewClient(accessToken string) *Client {
	return &Client{
		AccessToken: accessToken,
		APIURL:      "https://api.mercadopago.com",
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type checkoutItem struct {
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Currency  string `json:"currency_id"`
}

type createPreferenceRequest struct {
	Items             []checkoutItem    `json:"items"`
	ExternalReference string            `json:"external_reference"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// Checkout is the payment link handed back to the user.
type Checkout struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// CreateCheckout creates a checkout preference for one plan purchase.
// externalRef is our payment id; the gateway echoes it back on confirmation.
func (c *Client) CreateCheckout(ctx context.Context, plan models.Plan, externalRef string, metadata map[string]string) (*Checkout, error) {
	reqBody := createPreferenceRequest{
		Items: []checkoutItem{{
			Title:     plan.Description,
			Quantity:  1,
			UnitPrice: plan.Price.StringFixed(2),
			Currency:  "BRL",
		}},
		ExternalReference: externalRef,
		Metadata:          metadata,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/checkout/preferences", c.APIURL), bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Idempotency-Key", uuid.NewString())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("api error: %s (status: %d)", string(respBody), resp.StatusCode)
	}

	var checkout Checkout
	if err := json.Unmarshal(respBody, &checkout); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &checkout, nil
}
