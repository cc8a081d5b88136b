package memory

import (
	"context"
	"sync"

	"trivia-pool-bot/internal/domain"
)

// Store is an in-memory implementation of the session, transaction, and
// ledger ports. It preserves registration order so leaderboard ties resolve
// deterministically.
type Store struct {
	mu           sync.RWMutex
	sessions     map[int64]domain.PlayerSession
	order        []int64
	transactions map[string]domain.Transaction
	users        int64
	revenue      int64
}

func NewStore() *Store {
	return &Store{
		sessions:     make(map[int64]domain.PlayerSession),
		transactions: make(map[string]domain.Transaction),
	}
}

func (s *Store) Get(_ context.Context, userID int64) (domain.PlayerSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	if !ok {
		return domain.PlayerSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) Put(_ context.Context, session domain.PlayerSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.UserID]; !ok {
		s.order = append(s.order, session.UserID)
	}
	s.sessions[session.UserID] = session
	return nil
}

func (s *Store) All(_ context.Context) ([]domain.PlayerSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PlayerSession, 0, len(s.order))
	for _, userID := range s.order {
		out = append(out, s.sessions[userID])
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, reference string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[reference]
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}
	return tx, nil
}

func (s *Store) PutTransaction(_ context.Context, tx domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.Reference] = tx
	return nil
}

func (s *Store) AddRevenue(_ context.Context, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revenue += delta
	return s.revenue, nil
}

func (s *Store) Revenue(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revenue, nil
}

func (s *Store) ResetRevenue(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revenue = 0
	return nil
}

func (s *Store) AddUser(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users++
	return s.users, nil
}

func (s *Store) Users(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users, nil
}

// Transactions adapts the store to the transaction port with its own method
// names, so one Store can back all three ports.
type Transactions struct {
	*Store
}

func (t Transactions) Get(ctx context.Context, reference string) (domain.Transaction, error) {
	return t.GetTransaction(ctx, reference)
}

func (t Transactions) Put(ctx context.Context, tx domain.Transaction) error {
	return t.PutTransaction(ctx, tx)
}
