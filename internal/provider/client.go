// Package provider is a client for an external payment-execution service.
package provider

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
)

const (
	requestTimeout = 15 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
	userAgent      = "paycheck/1.0"
)

var (
	// ErrUnauthorized indicates the API key is missing, expired or invalid.
	ErrUnauthorized = errors.New("provider: unauthorized (api key expired or invalid)")
	// ErrRateLimited indicates the provider rate limit was hit.
	ErrRateLimited = errors.New("provider: rate limited")
	// ErrDeclined indicates the provider refused the payment.
	ErrDeclined = errors.New("provider: payment declined")
	// ErrPending indicates the provider accepted the payment but has not
	// settled it; the receipt carries an action URL for the user.
	ErrPending = errors.New("provider: payment pending")
)

// Client executes payments through the provider's REST API.
type Client struct {
	baseURL  string
	apiKey   string
	currency string
	http     *http.Client
}

// NewClient creates a client for the provider at baseURL.
// Returns nil if baseURL is empty.
func NewClient(baseURL, apiKey, currency string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	if currency == "" {
		currency = "USD"
	}
	return &Client{
		baseURL:  baseURL,
		apiKey:   strings.TrimSpace(apiKey),
		currency: currency,
		http:     &http.Client{},
	}
}

// Execute submits one payment. idempotencyKey must be stable across retries
// of the same attempt so the provider never pays twice.
//
// A declined payment returns an error wrapping ErrDeclined with the
// provider's reason. A pending payment returns the receipt together with
// ErrPending.
func (c *Client) Execute(ctx context.Context, req PaymentRequest, idempotencyKey string) (*Receipt, error) {
	if req.Currency == "" {
		req.Currency = c.currency
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("provider: encoding request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/payments", payload, idempotencyKey)
	if err != nil {
		return nil, err
	}
	return parseReceipt(body)
}

// Lookup fetches the current state of a previously submitted payment.
func (c *Client) Lookup(ctx context.Context, reference string) (*Receipt, error) {
	body, err := c.do(ctx, http.MethodGet, "/payments/"+reference, nil, "")
	if err != nil {
		return nil, err
	}
	return parseReceipt(body)
}

func parseReceipt(body []byte) (*Receipt, error) {
	var raw PaymentResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("provider: parsing payment: %w", err)
	}

	r := &Receipt{Reference: raw.Reference, ActionURL: raw.ActionURL}
	if amt, ok := parseAmount(raw.Amount); ok {
		r.Settled = amt
	}

	switch normalizeStatus(raw.Status) {
	case statusSucceeded:
		if r.Reference == "" {
			return nil, errors.New("provider: succeeded payment has no reference")
		}
		return r, nil
	case statusPending:
		return r, ErrPending
	case statusDeclined, statusFailed:
		return nil, declined(raw.Reason)
	default:
		return nil, fmt.Errorf("provider: unknown payment status %q", raw.Status)
	}
}

func declined(reason string) error {
	if reason == "" {
		return ErrDeclined
	}
	return fmt.Errorf("%w: %s", ErrDeclined, reason)
}

// do performs an authenticated request and returns the response body.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, idempotencyKey string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("provider: creating request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	//nolint:gosec // URL is built from the configured provider base URL
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("provider: reading response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusPaymentRequired, http.StatusUnprocessableEntity:
		var raw PaymentResponse
		_ = json.Unmarshal(body, &raw)
		return nil, declined(raw.Reason)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider: unexpected status %d", resp.StatusCode)
	}
	return body, nil
}
