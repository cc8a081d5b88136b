package questions

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"trivia-pool-bot/internal/domain"
)

// GeneralSource supplies general-knowledge items from an external API.
type GeneralSource interface {
	Fetch(ctx context.Context, n int) ([]domain.Question, error)
}

// CompositeSource assembles a daily quiz: curated regional items drawn without
// replacement plus general-knowledge items from the API. When the API is
// unreachable the whole quiz is sampled from the curated bank instead, with
// replacement, since the bank may hold fewer distinct items than a full quiz.
type CompositeSource struct {
	bank    BankLoader
	general GeneralSource

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCompositeSource(bank BankLoader, general GeneralSource) *CompositeSource {
	return &CompositeSource{
		bank:    bank,
		general: general,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewCompositeSourceWithRand is test-only for deterministic draws.
func NewCompositeSourceWithRand(bank BankLoader, general GeneralSource, rnd *rand.Rand) *CompositeSource {
	return &CompositeSource{bank: bank, general: general, rnd: rnd}
}

func (s *CompositeSource) Draw(ctx context.Context, curated, general int) ([]domain.Question, error) {
	bank, err := s.bank.LoadBank(ctx)
	if err != nil {
		return nil, fmt.Errorf("load curated bank: %w", err)
	}
	if len(bank) == 0 {
		return nil, domain.ErrNoQuestions
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	quiz := s.sampleWithoutReplacement(bank, curated)

	generalItems, err := s.general.Fetch(ctx, general)
	if err != nil {
		log.Printf("questions: general source unavailable, falling back to curated bank: %v", err)
		quiz = s.sampleWithReplacement(bank, curated+general)
	} else {
		quiz = append(quiz, generalItems...)
	}

	s.rnd.Shuffle(len(quiz), func(i, j int) {
		quiz[i], quiz[j] = quiz[j], quiz[i]
	})
	for i := range quiz {
		quiz[i] = s.shuffleOptions(quiz[i])
	}
	return quiz, nil
}

func (s *CompositeSource) sampleWithoutReplacement(bank []domain.Question, n int) []domain.Question {
	if n > len(bank) {
		n = len(bank)
	}
	picks := s.rnd.Perm(len(bank))[:n]
	out := make([]domain.Question, 0, n)
	for _, idx := range picks {
		out = append(out, bank[idx])
	}
	return out
}

func (s *CompositeSource) sampleWithReplacement(bank []domain.Question, n int) []domain.Question {
	out := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, bank[s.rnd.Intn(len(bank))])
	}
	return out
}

// shuffleOptions permutes a question's options and remaps the correct index,
// so the API's fixed correct-first layout never leaks to players.
func (s *CompositeSource) shuffleOptions(q domain.Question) domain.Question {
	perm := s.rnd.Perm(len(q.Options))
	options := make([]string, len(q.Options))
	correct := q.CorrectOption
	for newIdx, oldIdx := range perm {
		options[newIdx] = q.Options[oldIdx]
		if oldIdx == q.CorrectOption {
			correct = newIdx
		}
	}
	return domain.Question{Text: q.Text, Options: options, CorrectOption: correct}
}
