package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a player has never registered.
	ErrSessionNotFound = errors.New("player session not found")
	// ErrQuizComplete signals that today's quiz is exhausted.
	ErrQuizComplete = errors.New("daily quiz complete")
	// ErrNoQuestions indicates the question sources produced nothing usable.
	ErrNoQuestions = errors.New("no questions available")
	// ErrTransactionNotFound is returned for an unknown payment reference.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrVerificationFailed means the gateway did not confirm the payment.
	ErrVerificationFailed = errors.New("payment verification failed")
	// ErrUnauthorized is returned when a non-admin invokes an admin action.
	ErrUnauthorized = errors.New("unauthorized")
)
