package questions

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"trivia-pool-bot/internal/domain"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches the curated regional question set from a backing store.
type BankLoader interface {
	LoadBank(ctx context.Context) ([]domain.Question, error)
}

// CachedBank caches the curated bank with TTL to avoid repeated store hits.
// Concurrent cache misses collapse into a single load.
type CachedBank struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	bank      []domain.Question
	expiresAt time.Time
}

func NewCachedBank(loader BankLoader, ttl time.Duration) *CachedBank {
	return &CachedBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *CachedBank) LoadBank(ctx context.Context) ([]domain.Question, error) {
	now := b.clock()

	b.mu.RLock()
	if b.bank != nil && b.expiresAt.After(now) {
		bank := b.bank
		b.mu.RUnlock()
		return bank, nil
	}
	b.mu.RUnlock()

	result, err, _ := b.sf.Do("bank", func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		if b.bank != nil && b.expiresAt.After(now) {
			bank := b.bank
			b.mu.RUnlock()
			return bank, nil
		}
		b.mu.RUnlock()

		bank, err := b.loader.LoadBank(ctx)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.bank = bank
		b.expiresAt = now.Add(b.ttlWithJitter())
		b.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *CachedBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

// StaticBankLoader serves a fixed curated set (tests, no-database mode).
type StaticBankLoader struct {
	bank []domain.Question
}

func NewStaticBankLoader(bank []domain.Question) *StaticBankLoader {
	return &StaticBankLoader{bank: bank}
}

func (l *StaticBankLoader) LoadBank(_ context.Context) ([]domain.Question, error) {
	if len(l.bank) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return l.bank, nil
}
