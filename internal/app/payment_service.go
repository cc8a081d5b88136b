package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"trivia-pool-bot/internal/domain"
)

// PremiumTerm is the informational subscription window stamped on upgrade.
// Expiry is recorded but never enforced; see DESIGN.md.
const PremiumTerm = 30 * 24 * time.Hour

// TransactionStore persists payment records keyed by gateway reference.
type TransactionStore interface {
	Get(ctx context.Context, reference string) (domain.Transaction, error)
	Put(ctx context.Context, tx domain.Transaction) error
}

// PaymentGateway abstracts the checkout provider. The webhook body is never
// trusted on its own: VerifyTransaction must confirm before any state change.
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, amount int64, reference, callbackURL string) (string, error)
	VerifyTransaction(ctx context.Context, reference string) (bool, error)
}

// PaymentService issues checkout links and applies verified confirmations.
type PaymentService struct {
	sessions     SessionStore
	transactions TransactionStore
	ledger       Ledger
	gateway      PaymentGateway
	notifier     Notifier
	price        int64
	callbackURL  string
	now          func() time.Time
	newReference func() string
}

func NewPaymentService(sessions SessionStore, transactions TransactionStore, ledger Ledger, gateway PaymentGateway, notifier Notifier, price int64, callbackURL string) *PaymentService {
	return &PaymentService{
		sessions:     sessions,
		transactions: transactions,
		ledger:       ledger,
		gateway:      gateway,
		notifier:     notifier,
		price:        price,
		callbackURL:  callbackURL,
		now:          time.Now,
		newReference: func() string {
			return fmt.Sprintf("TRV-%d", time.Now().UnixNano())
		},
	}
}

// NewPaymentServiceWithClock is test-only for deterministic references and expiry.
func NewPaymentServiceWithClock(sessions SessionStore, transactions TransactionStore, ledger Ledger, gateway PaymentGateway, notifier Notifier, price int64, callbackURL string, now func() time.Time, newReference func() string) *PaymentService {
	s := NewPaymentService(sessions, transactions, ledger, gateway, notifier, price, callbackURL)
	s.now = now
	s.newReference = newReference
	return s
}

// CreateCheckout issues a checkout link for the premium upgrade and records a
// pending transaction under a fresh reference.
func (s *PaymentService) CreateCheckout(ctx context.Context, userID int64) (string, error) {
	reference := s.newReference()
	checkoutURL, err := s.gateway.CreateCheckout(ctx, s.price, reference, s.callbackURL)
	if err != nil {
		return "", fmt.Errorf("create checkout: %w", err)
	}
	tx := domain.Transaction{
		Reference: reference,
		UserID:    userID,
		Amount:    s.price,
		Status:    domain.TransactionPending,
		CreatedAt: s.now(),
	}
	if err := s.transactions.Put(ctx, tx); err != nil {
		return "", fmt.Errorf("record transaction: %w", err)
	}
	return checkoutURL, nil
}

// HandleCallback processes a gateway webhook for the given reference. The
// payload is verified against the gateway before anything is trusted.
func (s *PaymentService) HandleCallback(ctx context.Context, reference string) error {
	tx, err := s.transactions.Get(ctx, reference)
	if err != nil {
		return err
	}
	if tx.Status == domain.TransactionSuccess {
		// Replayed webhook for an already-settled payment.
		return nil
	}
	ok, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return fmt.Errorf("verify %s: %w", reference, err)
	}
	if !ok {
		return domain.ErrVerificationFailed
	}
	return s.confirm(ctx, tx)
}

// confirm applies a verified payment exactly once: premium flag and expiry on
// the session, revenue on the ledger, then the terminal status transition.
func (s *PaymentService) confirm(ctx context.Context, tx domain.Transaction) error {
	session, err := s.sessions.Get(ctx, tx.UserID)
	if err != nil {
		return err
	}
	session.IsPremium = true
	session.PremiumExpiry = s.now().Add(PremiumTerm)
	if err := s.sessions.Put(ctx, session); err != nil {
		return err
	}

	if _, err := s.ledger.AddRevenue(ctx, tx.Amount); err != nil {
		return fmt.Errorf("add revenue: %w", err)
	}

	tx.Status = domain.TransactionSuccess
	if err := s.transactions.Put(ctx, tx); err != nil {
		return err
	}

	text := fmt.Sprintf("💎 Payment received! Premium is active until %s. Correct answers now earn points toward the prize pool.", session.PremiumExpiry.UTC().Format(domain.DateLayout))
	if err := s.notifier.NotifyUser(ctx, tx.UserID, text); err != nil {
		log.Printf("payment: notify user %d failed: %v", tx.UserID, err)
	}
	return nil
}
