package paystack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/naijamall/naijamall-backend/pkg/config"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(config.PaystackConfig{
		SecretKey:   "sk_test_secret",
		BaseURL:     server.URL,
		CallbackURL: "https://naijamall.test/payment/verify",
		Timeout:     2 * time.Second,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestInitializeSendsKoboAndBearer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transaction/initialize" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_secret" {
			t.Errorf("unexpected authorization %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if payload["amount"] != float64(1200050) {
			t.Errorf("expected kobo amount, got %v", payload["amount"])
		}
		if payload["callback_url"] != "https://naijamall.test/payment/verify" {
			t.Errorf("callback url missing: %v", payload["callback_url"])
		}
		_, _ = w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"PAY-1-0001"}}`))
	})

	result, err := client.Initialize(context.Background(), InitializeRequest{
		Email:     "buyer@naijamall.test",
		Amount:    decimal.RequireFromString("12000.50"),
		Reference: "PAY-1-0001",
		Metadata:  map[string]string{"order_number": "NM12345678001"},
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if result.AuthorizationURL != "https://checkout.paystack.com/abc" || result.AccessCode != "abc" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestVerifyParsesTransaction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/PAY-1-0001" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"id":4099260516,"status":"success","reference":"PAY-1-0001","amount":1200000,"gateway_response":"Successful","paid_at":"2026-03-02T10:00:00.000Z"}}`))
	})

	result, err := client.Verify(context.Background(), "PAY-1-0001")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Succeeded() || !result.Settled() {
		t.Fatalf("expected success, got %q", result.Status)
	}
	if result.TransactionID != "4099260516" {
		t.Fatalf("unexpected transaction id %q", result.TransactionID)
	}
	if !result.Amount.Equal(decimal.NewFromInt(12000)) {
		t.Fatalf("unexpected amount %s", result.Amount)
	}
	if result.PaidAt == nil || len(result.Raw) == 0 {
		t.Fatalf("expected paid_at and raw payload")
	}
}

func TestGatewayErrorsAreClassified(t *testing.T) {
	rejected := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
	})
	_, err := rejected.Verify(context.Background(), "PAY-missing")
	if !pkgerrors.IsCode(err, pkgerrors.CodeGatewayRejected) || pkgerrors.Retryable(err) {
		t.Fatalf("expected terminal rejection, got %v", err)
	}

	down := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err = down.Refund(context.Background(), RefundRequest{Reference: "PAY-1-0001"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeGateway) || !pkgerrors.Retryable(err) {
		t.Fatalf("expected retryable gateway error, got %v", err)
	}
}

func TestRefundPostsTransaction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/refund" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["transaction"] != "PAY-1-0001" || payload["amount"] != float64(1200000) {
			t.Errorf("unexpected refund body %v", payload)
		}
		_, _ = w.Write([]byte(`{"status":true,"message":"Refund has been queued","data":{"id":3018284,"status":"pending"}}`))
	})

	result, err := client.Refund(context.Background(), RefundRequest{Reference: "PAY-1-0001", Amount: decimal.NewFromInt(12000), Reason: "order cancelled"})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if result.RefundReference != "3018284" {
		t.Fatalf("unexpected refund reference %q", result.RefundReference)
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"PAY-1-0001"}}`)
	sig := Sign("sk_test_secret", body)

	client, err := NewClient(config.PaystackConfig{SecretKey: "sk_test_secret"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if !client.VerifySignature(body, sig) {
		t.Fatalf("expected valid signature")
	}
	if client.VerifySignature(append(body, ' '), sig) {
		t.Fatalf("tampered body accepted")
	}
	if client.VerifySignature(body, "not-hex") || client.VerifySignature(body, "") {
		t.Fatalf("malformed signature accepted")
	}
}

func TestValidationBeforeNetwork(t *testing.T) {
	if _, err := NewClient(config.PaystackConfig{}); err == nil {
		t.Fatalf("expected missing secret error")
	}
	client, _ := NewClient(config.PaystackConfig{SecretKey: "sk", BaseURL: "http://127.0.0.1:0"})
	_, err := client.Initialize(context.Background(), InitializeRequest{Reference: "PAY-1", Amount: decimal.RequireFromString("10.005")})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = client.Verify(context.Background(), " ")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
