package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
)

const (
	defaultRequestTimeout       = 15 * time.Second
	responseBodyReadLimit int64 = 1 << 20
)

var (
	errBaseURLRequired    = errors.New("gateway base url is required")
	errMerchantIDRequired = errors.New("gateway merchant id is required")
)

// Client wraps the payment gateway's checkout and refund APIs. Webhook
// delivery from the gateway is handled separately; this client covers the
// calls the platform originates.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	merchantID    string
	webhookSecret string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds the gateway client.
func NewClient(baseURL, merchantID, webhookSecret string, opts ...Option) (*Client, error) {
	trimmedURL := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedURL == "" {
		return nil, errBaseURLRequired
	}
	trimmedMerchant := strings.TrimSpace(merchantID)
	if trimmedMerchant == "" {
		return nil, errMerchantIDRequired
	}

	client := &Client{
		httpClient:    &http.Client{Timeout: defaultRequestTimeout},
		baseURL:       trimmedURL,
		merchantID:    trimmedMerchant,
		webhookSecret: webhookSecret,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	return client, nil
}

// WebhookSecret returns the shared secret used to validate inbound events.
func (c *Client) WebhookSecret() string {
	return c.webhookSecret
}

// CheckoutRequest creates a hosted checkout for one merchant order reference.
type CheckoutRequest struct {
	MerchantOrderID string `json:"merchantOrderId"`
	AmountMinor     int64  `json:"amount"`
	RedirectURL     string `json:"redirectUrl,omitempty"`
	Note            string `json:"note,omitempty"`
}

// CheckoutResult is the gateway's checkout handle.
type CheckoutResult struct {
	GatewayOrderID string `json:"orderId"`
	RedirectURL    string `json:"redirectUrl"`
	State          string `json:"state"`
}

// CreateCheckout registers a checkout with the gateway and returns the
// reference the eventual webhook will carry.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if strings.TrimSpace(req.MerchantOrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant order id required")
	}
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout amount must be positive")
	}

	var result CheckoutResult
	if err := c.post(ctx, "/checkout/v2/pay", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RefundRequest issues a refund against one original payment.
type RefundRequest struct {
	MerchantRefundID        string `json:"merchantRefundId"`
	OriginalMerchantOrderID string `json:"originalMerchantOrderId"`
	AmountMinor             int64  `json:"amount"`
}

// RefundResult is the gateway's synchronous acknowledgment; the final state
// arrives later on the webhook.
type RefundResult struct {
	GatewayRefundID string `json:"refundId"`
	State           string `json:"state"`
}

// Refund requests a refund for part of one original payment. The gateway SDK
// timeout bounds the call; a timeout is a failure for this leg only.
func (c *Client) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if strings.TrimSpace(req.MerchantRefundID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant refund id required")
	}
	if strings.TrimSpace(req.OriginalMerchantOrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "original merchant order id required")
	}
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	var result RefundResult
	if err := c.post(ctx, "/payments/v2/refund", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode gateway request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Merchant-Id", c.merchantID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call payment gateway")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read gateway response")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway returned status %d", resp.StatusCode)).
			WithDetails(map[string]any{"body": string(raw)})
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
	}
	return nil
}
