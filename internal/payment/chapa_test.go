package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"trivia-pool-bot/internal/domain"
)

func TestCreateCheckout(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transaction/initialize" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   map[string]string{"checkout_url": "https://checkout.test/pay/xyz"},
		})
	}))
	defer server.Close()

	client := NewChapaClient(server.URL, "sk_test")
	url, err := client.CreateCheckout(context.Background(), 100, "TRV-1", "https://bot.example/webhook")
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if url != "https://checkout.test/pay/xyz" {
		t.Fatalf("unexpected checkout url %s", url)
	}
	if gotAuth != "Bearer sk_test" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["tx_ref"] != "TRV-1" || gotBody["amount"] != "100" || gotBody["currency"] != "ETB" {
		t.Fatalf("unexpected request body %v", gotBody)
	}
}

func TestCreateCheckoutRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "failed"})
	}))
	defer server.Close()

	client := NewChapaClient(server.URL, "sk_test")
	if _, err := client.CreateCheckout(context.Background(), 100, "TRV-1", "cb"); err == nil {
		t.Fatalf("expected error on rejected checkout")
	}
}

func TestVerifyTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transaction/verify/TRV-1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   map[string]string{"status": "success"},
		})
	}))
	defer server.Close()

	client := NewChapaClient(server.URL, "sk_test")
	ok, err := client.VerifyTransaction(context.Background(), "TRV-1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected verified transaction")
	}
}

func TestVerifyTransactionPendingIsNotSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   map[string]string{"status": "pending"},
		})
	}))
	defer server.Close()

	client := NewChapaClient(server.URL, "sk_test")
	ok, err := client.VerifyTransaction(context.Background(), "TRV-1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatalf("pending transaction must not verify as success")
	}
}

func TestVerifyTransactionUnknownReference(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewChapaClient(server.URL, "sk_test")
	_, err := client.VerifyTransaction(context.Background(), "TRV-404")
	if err != domain.ErrTransactionNotFound {
		t.Fatalf("expected not-found sentinel, got %v", err)
	}
}
