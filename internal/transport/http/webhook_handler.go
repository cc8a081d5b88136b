package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"trivia-pool-bot/internal/app"
	"trivia-pool-bot/internal/domain"
)

// WebhookHandler receives payment-gateway callbacks. Nothing in the payload
// is trusted: the payment service re-verifies the reference against the
// gateway before any state changes. Malformed or unverifiable payloads are
// logged and dropped; the handler never crashes the server.
type WebhookHandler struct {
	payments *app.PaymentService
}

func NewWebhookHandler(payments *app.PaymentService) *WebhookHandler {
	return &WebhookHandler{payments: payments}
}

type webhookPayload struct {
	TxRef     string `json:"tx_ref"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Printf("webhook: malformed payload: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	reference := payload.TxRef
	if reference == "" {
		reference = payload.Reference
	}
	if reference == "" {
		log.Printf("webhook: payload without reference")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	err := h.payments.HandleCallback(r.Context(), reference)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, domain.ErrTransactionNotFound):
		// Unknown reference: not ours, acknowledge so the gateway stops retrying.
		log.Printf("webhook: unknown reference %s", reference)
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, domain.ErrVerificationFailed):
		log.Printf("webhook: verification failed for %s", reference)
		w.WriteHeader(http.StatusOK)
	default:
		log.Printf("webhook: processing %s failed: %v", reference, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
