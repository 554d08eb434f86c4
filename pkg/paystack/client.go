// Package paystack is a thin REST client for the Paystack transaction and refund APIs.
package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/naijamall/naijamall-backend/pkg/config"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
)

const (
	defaultBaseURL        = "https://api.paystack.co"
	defaultTimeout        = 15 * time.Second
	responseBodyReadLimit = 1 << 20
	errorBodyReadLimit    = 1024

	// SignatureHeader carries the hex HMAC-SHA512 of a webhook body.
	SignatureHeader = "X-Paystack-Signature"
)

// Transaction statuses reported by Verify.
const (
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusAbandoned  = "abandoned"
	StatusReversed   = "reversed"
	StatusPending    = "pending"
	StatusOngoing    = "ongoing"
	StatusProcessing = "processing"
)

var errSecretKeyRequired = errors.New("paystack secret key is required")

// Client calls Paystack with the merchant secret key.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	secretKey   string
	callbackURL string
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

// WithBaseURL points the client at another API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds a Paystack client from configuration.
func NewClient(cfg config.PaystackConfig, opts ...Option) (*Client, error) {
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretKeyRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     defaultBaseURL,
		secretKey:   secret,
		callbackURL: strings.TrimSpace(cfg.CallbackURL),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		client.baseURL = base
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// InitializeRequest starts a hosted checkout for one payment reference.
type InitializeRequest struct {
	Email     string
	Amount    decimal.Decimal
	Reference string
	Metadata  map[string]string
}

// InitializeResult carries what the buyer needs to complete checkout.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyResult is the gateway's view of a transaction.
type VerifyResult struct {
	TransactionID   string
	Status          string
	Reference       string
	Amount          decimal.Decimal
	GatewayResponse string
	PaidAt          *time.Time
	Raw             json.RawMessage
}

// Succeeded reports whether the gateway captured the funds.
func (v *VerifyResult) Succeeded() bool {
	return v != nil && v.Status == StatusSuccess
}

// Settled reports whether the transaction reached a final state.
func (v *VerifyResult) Settled() bool {
	if v == nil {
		return false
	}
	switch v.Status {
	case StatusSuccess, StatusFailed, StatusAbandoned, StatusReversed:
		return true
	default:
		return false
	}
}

// RefundRequest returns captured funds for a transaction reference.
type RefundRequest struct {
	Reference string
	Amount    decimal.Decimal
	Reason    string
}

// RefundResult identifies the refund at the gateway.
type RefundResult struct {
	RefundReference string
	Status          string
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize calls POST /transaction/initialize.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	kobo, err := toKobo(req.Amount)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"email":     req.Email,
		"amount":    kobo,
		"reference": req.Reference,
	}
	if c.callbackURL != "" {
		body["callback_url"] = c.callbackURL
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if _, err := c.do(ctx, http.MethodPost, "transaction/initialize", body, &data); err != nil {
		return nil, err
	}
	return &InitializeResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

// Verify calls GET /transaction/verify/:reference.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	var data struct {
		ID              json.Number `json:"id"`
		Status          string      `json:"status"`
		Reference       string      `json:"reference"`
		Amount          int64       `json:"amount"`
		GatewayResponse string      `json:"gateway_response"`
		PaidAt          *time.Time  `json:"paid_at"`
	}
	raw, err := c.do(ctx, http.MethodGet, "transaction/verify/"+url.PathEscape(trimmed), nil, &data)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{
		TransactionID:   data.ID.String(),
		Status:          data.Status,
		Reference:       data.Reference,
		Amount:          decimal.New(data.Amount, -2),
		GatewayResponse: data.GatewayResponse,
		PaidAt:          data.PaidAt,
		Raw:             raw,
	}, nil
}

// Refund calls POST /refund for the full or partial amount.
func (c *Client) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	body := map[string]any{"transaction": req.Reference}
	if !req.Amount.IsZero() {
		kobo, err := toKobo(req.Amount)
		if err != nil {
			return nil, err
		}
		body["amount"] = kobo
	}
	if req.Reason != "" {
		body["merchant_note"] = req.Reason
	}

	var data struct {
		ID     json.Number `json:"id"`
		Status string      `json:"status"`
	}
	if _, err := c.do(ctx, http.MethodPost, "refund", body, &data); err != nil {
		return nil, err
	}
	return &RefundResult{RefundReference: data.ID.String(), Status: data.Status}, nil
}

// VerifySignature checks a webhook body against its X-Paystack-Signature header.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	if c == nil {
		return false
	}
	return VerifySignature(c.secretKey, body, signature)
}

// VerifySignature reports whether signature is the hex HMAC-SHA512 of body under secret.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// Sign computes the webhook signature for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// do sends the request and decodes the envelope's data into out. Transport failures and 5xx
// responses are GATEWAY_ERROR; anything the gateway refuses is GATEWAY_REJECTED.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal paystack request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paystack request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "paystack request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "paystack unavailable")
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "read paystack response")
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayRejected, err, fmt.Sprintf("paystack returned status %d", resp.StatusCode))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode paystack response")
	}
	if resp.StatusCode != http.StatusOK || !env.Status {
		message := env.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, pkgerrors.New(pkgerrors.CodeGatewayRejected, message).
			WithDetails(map[string]any{"status": resp.StatusCode})
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode paystack data")
		}
	}
	return env.Data, nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

// toKobo converts naira to the integer minor unit Paystack expects.
func toKobo(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	kobo := amount.Shift(2)
	if !kobo.Equal(kobo.Truncate(0)) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount has sub-kobo precision")
	}
	return kobo.IntPart(), nil
}
