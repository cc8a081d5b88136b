package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"trivia-pool-bot/internal/domain"
)

const defaultGatewayTimeout = 30 * time.Second

// ChapaClient talks to a Chapa-compatible checkout gateway. It implements
// the payment gateway port: issue a hosted checkout link, then verify a
// transaction server-side before trusting any webhook.
type ChapaClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewChapaClient(baseURL, secretKey string) *ChapaClient {
	return &ChapaClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: defaultGatewayTimeout,
		},
	}
}

type initializeRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	TxRef       string `json:"tx_ref"`
	CallbackURL string `json:"callback_url"`
}

type initializeResponse struct {
	Status string `json:"status"`
	Data   struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

type verifyResponse struct {
	Status string `json:"status"`
	Data   struct {
		Status string `json:"status"`
	} `json:"data"`
}

// CreateCheckout initializes a hosted payment and returns the checkout URL.
func (c *ChapaClient) CreateCheckout(ctx context.Context, amount int64, reference, callbackURL string) (string, error) {
	body, err := json.Marshal(initializeRequest{
		Amount:      fmt.Sprintf("%d", amount),
		Currency:    "ETB",
		TxRef:       reference,
		CallbackURL: callbackURL,
	})
	if err != nil {
		return "", fmt.Errorf("encode checkout request: %w", err)
	}

	url := c.baseURL + "/v1/transaction/initialize"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send checkout request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("checkout request returned status %d", resp.StatusCode)
	}

	var payload initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode checkout response: %w", err)
	}
	if payload.Status != "success" || payload.Data.CheckoutURL == "" {
		return "", fmt.Errorf("checkout rejected: status=%s", payload.Status)
	}
	return payload.Data.CheckoutURL, nil
}

// VerifyTransaction asks the gateway for the settled status of a reference.
// A reachable gateway that reports anything but success yields (false, nil);
// transport failures are returned to the caller as errors.
func (c *ChapaClient) VerifyTransaction(ctx context.Context, reference string) (bool, error) {
	url := c.baseURL + "/v1/transaction/verify/" + reference
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("send verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, domain.ErrTransactionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verify request returned status %d", resp.StatusCode)
	}

	var payload verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, fmt.Errorf("decode verify response: %w", err)
	}
	return payload.Status == "success" && payload.Data.Status == "success", nil
}
