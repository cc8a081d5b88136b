package questions

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"trivia-pool-bot/internal/domain"
)

type stubGeneral struct {
	items []domain.Question
	err   error
	calls int
}

func (s *stubGeneral) Fetch(_ context.Context, _ int) ([]domain.Question, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.Question(nil), s.items...), nil
}

func curated(n int) []domain.Question {
	bank := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		bank = append(bank, domain.Question{
			Text:          "curated",
			Options:       []string{"a", "b", "c"},
			CorrectOption: 1,
		})
	}
	return bank
}

func general(n int) []domain.Question {
	items := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, domain.Question{
			Text:          "general",
			Options:       []string{"right", "wrong1", "wrong2", "wrong3"},
			CorrectOption: 0,
		})
	}
	return items
}

func TestDrawCombinesCuratedAndGeneral(t *testing.T) {
	source := NewCompositeSourceWithRand(
		NewStaticBankLoader(curated(5)),
		&stubGeneral{items: general(7)},
		rand.New(rand.NewSource(1)),
	)

	quiz, err := source.Draw(context.Background(), 3, 7)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if len(quiz) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(quiz))
	}
	curatedCount := 0
	for _, q := range quiz {
		if q.Text == "curated" {
			curatedCount++
		}
	}
	if curatedCount != 3 {
		t.Fatalf("expected 3 curated questions, got %d", curatedCount)
	}
}

func TestDrawFallsBackToCuratedOnAPIFailure(t *testing.T) {
	source := NewCompositeSourceWithRand(
		NewStaticBankLoader(curated(4)),
		&stubGeneral{err: errors.New("api unreachable")},
		rand.New(rand.NewSource(1)),
	)

	quiz, err := source.Draw(context.Background(), 3, 7)
	if err != nil {
		t.Fatalf("draw with fallback: %v", err)
	}
	// The fallback samples the full quiz from the curated bank, with
	// replacement, since the bank has fewer than 10 distinct items.
	if len(quiz) != 10 {
		t.Fatalf("expected 10 questions from fallback, got %d", len(quiz))
	}
	for _, q := range quiz {
		if q.Text != "curated" {
			t.Fatalf("expected curated-only fallback, got %q", q.Text)
		}
	}
}

func TestDrawShufflesOptionsAndRemapsCorrectIndex(t *testing.T) {
	source := NewCompositeSourceWithRand(
		NewStaticBankLoader([]domain.Question{{
			Text:          "curated",
			Options:       []string{"wrong0", "right", "wrong2"},
			CorrectOption: 1,
		}}),
		&stubGeneral{items: general(2)},
		rand.New(rand.NewSource(7)),
	)

	quiz, err := source.Draw(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	for _, q := range quiz {
		want := "right"
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			t.Fatalf("correct option out of range: %+v", q)
		}
		if q.Options[q.CorrectOption] != want {
			t.Fatalf("correct index not remapped after shuffle: %+v", q)
		}
	}
}

func TestDrawFailsWithoutBank(t *testing.T) {
	source := NewCompositeSourceWithRand(
		NewStaticBankLoader(nil),
		&stubGeneral{items: general(2)},
		rand.New(rand.NewSource(1)),
	)
	if _, err := source.Draw(context.Background(), 3, 7); err == nil {
		t.Fatalf("expected error with empty curated bank")
	}
}

type countingLoader struct {
	BankLoader
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context) ([]domain.Question, error) {
	l.calls++
	return l.BankLoader.LoadBank(ctx)
}

func TestCachedBankServesFromCache(t *testing.T) {
	loader := &countingLoader{BankLoader: NewStaticBankLoader(curated(3))}
	bank := NewCachedBank(loader, time.Minute)

	if _, err := bank.LoadBank(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}
	if _, err := bank.LoadBank(context.Background()); err != nil {
		t.Fatalf("load 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}
