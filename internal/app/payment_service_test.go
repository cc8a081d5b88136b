package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-pool-bot/internal/app"
	"trivia-pool-bot/internal/domain"
	"trivia-pool-bot/internal/infra/memory"
)

type stubGateway struct {
	checkoutURL string
	verifyOK    bool
	verifyErr   error
	verifyCalls int
}

func (g *stubGateway) CreateCheckout(_ context.Context, _ int64, _, _ string) (string, error) {
	if g.checkoutURL == "" {
		return "", errors.New("gateway down")
	}
	return g.checkoutURL, nil
}

func (g *stubGateway) VerifyTransaction(_ context.Context, _ string) (bool, error) {
	g.verifyCalls++
	return g.verifyOK, g.verifyErr
}

func newPaymentFixture(gateway *stubGateway) (*app.PaymentService, *memory.Store, *recordingNotifier) {
	store := memory.NewStore()
	notifier := newRecordingNotifier()
	now := func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	newRef := func() string { return "TRV-TEST-1" }
	service := app.NewPaymentServiceWithClock(store, memory.Transactions{Store: store}, store, gateway, notifier, 100, "https://bot.example/payments/webhook", now, newRef)
	return service, store, notifier
}

func TestCreateCheckoutRecordsPendingTransaction(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{checkoutURL: "https://checkout.test/abc"}
	service, store, _ := newPaymentFixture(gateway)
	_ = store.Put(ctx, domain.PlayerSession{UserID: 7})

	url, err := service.CreateCheckout(ctx, 7)
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if url != "https://checkout.test/abc" {
		t.Fatalf("unexpected checkout url %s", url)
	}

	tx, err := store.GetTransaction(ctx, "TRV-TEST-1")
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if tx.Status != domain.TransactionPending || tx.UserID != 7 || tx.Amount != 100 {
		t.Fatalf("unexpected transaction %+v", tx)
	}
}

func TestConfirmationAppliedExactlyOnce(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{checkoutURL: "https://checkout.test/abc", verifyOK: true}
	service, store, notifier := newPaymentFixture(gateway)
	_ = store.Put(ctx, domain.PlayerSession{UserID: 7})

	if _, err := service.CreateCheckout(ctx, 7); err != nil {
		t.Fatalf("create checkout: %v", err)
	}

	if err := service.HandleCallback(ctx, "TRV-TEST-1"); err != nil {
		t.Fatalf("first callback: %v", err)
	}
	// Replayed webhook for the same reference.
	if err := service.HandleCallback(ctx, "TRV-TEST-1"); err != nil {
		t.Fatalf("replayed callback: %v", err)
	}

	session, _ := store.Get(ctx, 7)
	if !session.IsPremium {
		t.Fatalf("expected premium upgrade")
	}
	wantExpiry := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).Add(app.PremiumTerm)
	if !session.PremiumExpiry.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, session.PremiumExpiry)
	}

	revenue, _ := store.Revenue(ctx)
	if revenue != 100 {
		t.Fatalf("expected revenue counted once, got %d", revenue)
	}
	tx, _ := store.GetTransaction(ctx, "TRV-TEST-1")
	if tx.Status != domain.TransactionSuccess {
		t.Fatalf("expected success status, got %s", tx.Status)
	}
	if gateway.verifyCalls != 1 {
		t.Fatalf("expected replay short-circuited before verification, calls=%d", gateway.verifyCalls)
	}
	if len(notifier.messages[7]) != 1 {
		t.Fatalf("expected a single confirmation message, got %v", notifier.messages[7])
	}
}

func TestUnverifiedCallbackMutatesNothing(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{checkoutURL: "https://checkout.test/abc", verifyOK: false}
	service, store, _ := newPaymentFixture(gateway)
	_ = store.Put(ctx, domain.PlayerSession{UserID: 7})

	if _, err := service.CreateCheckout(ctx, 7); err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	err := service.HandleCallback(ctx, "TRV-TEST-1")
	if !errors.Is(err, domain.ErrVerificationFailed) {
		t.Fatalf("expected verification failure, got %v", err)
	}

	session, _ := store.Get(ctx, 7)
	if session.IsPremium {
		t.Fatalf("unverified payment must not upgrade the session")
	}
	if revenue, _ := store.Revenue(ctx); revenue != 0 {
		t.Fatalf("unverified payment must not count revenue, got %d", revenue)
	}
	tx, _ := store.GetTransaction(ctx, "TRV-TEST-1")
	if tx.Status != domain.TransactionPending {
		t.Fatalf("expected transaction still pending, got %s", tx.Status)
	}
}

func TestCallbackForUnknownReference(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{checkoutURL: "https://checkout.test/abc", verifyOK: true}
	service, _, _ := newPaymentFixture(gateway)

	err := service.HandleCallback(ctx, "TRV-UNKNOWN")
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("expected transaction-not-found, got %v", err)
	}
}
