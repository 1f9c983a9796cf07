package payments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// IntentClient creates payment intents with the card-payment provider. The
// returned client secret is handed to the storefront to complete the charge;
// the provider reports the outcome asynchronously via webhook.
type IntentClient interface {
	CreateIntent(orderID uint, amount decimal.Decimal, currency, customerEmail string) (clientSecret, intentID string, err error)
}

type httpClient struct {
	client *http.Client
}

// NewHTTPClient returns an IntentClient talking to the provider configured
// via PAYMENT_API_URL and PAYMENT_SECRET_KEY.
func NewHTTPClient() IntentClient {
	return &httpClient{client: &http.Client{}}
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Error        *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *httpClient) CreateIntent(orderID uint, amount decimal.Decimal, currency, customerEmail string) (string, string, error) {
	apiURL := os.Getenv("PAYMENT_API_URL")
	secretKey := os.Getenv("PAYMENT_SECRET_KEY")
	if apiURL == "" || secretKey == "" {
		return "", "", fmt.Errorf("payment provider configuration missing")
	}

	// Providers take the amount in minor units.
	payload := map[string]interface{}{
		"amount":   amount.Mul(decimal.NewFromInt(100)).IntPart(),
		"currency": currency,
		"receipt_email": customerEmail,
		"metadata": map[string]string{
			"order_id": strconv.FormatUint(uint64(orderID), 10),
		},
	}

	jsonData, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, apiURL+"/v1/payment_intents", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+secretKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to reach payment provider: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("payment provider error (%d): %s", resp.StatusCode, string(body))
	}

	var intent intentResponse
	if err := json.Unmarshal(body, &intent); err != nil {
		return "", "", fmt.Errorf("failed to parse provider response: %v", err)
	}
	if intent.Error != nil {
		return "", "", fmt.Errorf("payment provider error: %s", intent.Error.Message)
	}
	if intent.ClientSecret == "" {
		return "", "", fmt.Errorf("provider returned empty client secret")
	}

	return intent.ClientSecret, intent.ID, nil
}
