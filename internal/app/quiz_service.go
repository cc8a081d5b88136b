package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"trivia-pool-bot/internal/domain"
)

// Daily quiz tuning. A quiz is 3 curated regional items plus up to 7 from the
// general-knowledge source, capped at DailyLimit questions per UTC day.
const (
	DailyLimit   = 10
	CuratedCount = 3
	GeneralCount = 7
	CorrectAward = 10
)

// SessionStore abstracts how player sessions are persisted (in-memory, Redis, etc).
// Per-key read/write atomicity is the store's responsibility.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (domain.PlayerSession, error)
	Put(ctx context.Context, session domain.PlayerSession) error
	All(ctx context.Context) ([]domain.PlayerSession, error)
}

// QuestionSource assembles a daily quiz from the curated bank and the
// general-knowledge API, falling back to curated-only sampling on failure.
type QuestionSource interface {
	Draw(ctx context.Context, curated, general int) ([]domain.Question, error)
}

// Ledger holds the process-wide counters. Implementations must make each
// mutation an atomic read-modify-write against the backing store.
type Ledger interface {
	AddRevenue(ctx context.Context, delta int64) (int64, error)
	Revenue(ctx context.Context) (int64, error)
	ResetRevenue(ctx context.Context) error
	AddUser(ctx context.Context) (int64, error)
	Users(ctx context.Context) (int64, error)
}

// AnswerOutcome is the result of grading one poll answer.
type AnswerOutcome struct {
	// Graded is false when the answer was stale (late or duplicate) and discarded.
	Graded        bool
	Correct       bool
	CorrectOption int
	Score         int
	QuizComplete  bool
}

// QuizService drives the daily quiz lifecycle for every player.
type QuizService struct {
	sessions  SessionStore
	questions QuestionSource
	ledger    Ledger
	hub       *LeaderboardHub
	now       func() time.Time
}

func NewQuizService(sessions SessionStore, questions QuestionSource, ledger Ledger, hub *LeaderboardHub) *QuizService {
	return &QuizService{
		sessions:  sessions,
		questions: questions,
		ledger:    ledger,
		hub:       hub,
		now:       time.Now,
	}
}

// NewQuizServiceWithClock is test-only for deterministic day boundaries.
func NewQuizServiceWithClock(sessions SessionStore, questions QuestionSource, ledger Ledger, hub *LeaderboardHub, now func() time.Time) *QuizService {
	s := NewQuizService(sessions, questions, ledger, hub)
	s.now = now
	return s
}

// Register ensures a session exists for the player. The global user counter
// increments only the first time a player is seen.
func (s *QuizService) Register(ctx context.Context, userID int64, displayName string) (bool, error) {
	session, err := s.sessions.Get(ctx, userID)
	switch err {
	case nil:
		if displayName != "" && session.DisplayName != displayName {
			session.DisplayName = displayName
			if err := s.sessions.Put(ctx, session); err != nil {
				return false, err
			}
		}
		return false, nil
	case domain.ErrSessionNotFound:
		session = domain.PlayerSession{UserID: userID, DisplayName: displayName}
		if err := s.sessions.Put(ctx, session); err != nil {
			return false, err
		}
		if _, err := s.ledger.AddUser(ctx); err != nil {
			return false, fmt.Errorf("count user: %w", err)
		}
		return true, nil
	default:
		return false, err
	}
}

// NextQuestion starts or resumes today's quiz and returns the question at the
// cursor. It returns domain.ErrQuizComplete once the daily quota is exhausted;
// a fresh quiz is only drawn again after the UTC day rolls over.
func (s *QuizService) NextQuestion(ctx context.Context, userID int64) (domain.Question, int, error) {
	session, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return domain.Question{}, 0, err
	}

	today := s.today()
	switch session.StateOn(today, DailyLimit) {
	case domain.QuizCompleted:
		if len(session.CurrentQuiz) > 0 {
			session.CurrentQuiz = nil
			if err := s.sessions.Put(ctx, session); err != nil {
				return domain.Question{}, 0, err
			}
		}
		return domain.Question{}, 0, domain.ErrQuizComplete

	case domain.NoActiveQuiz:
		quiz, err := s.questions.Draw(ctx, CuratedCount, GeneralCount)
		if err != nil {
			return domain.Question{}, 0, err
		}
		if len(quiz) == 0 {
			return domain.Question{}, 0, domain.ErrNoQuestions
		}
		if len(quiz) > DailyLimit {
			quiz = quiz[:DailyLimit]
		}
		session.CurrentQuiz = quiz
		session.CurrentIndex = 0
		session.LastQuizDate = today
		if err := s.sessions.Put(ctx, session); err != nil {
			return domain.Question{}, 0, err
		}
		return quiz[0], 0, nil

	default: // in progress: resume unchanged
		return session.CurrentQuiz[session.CurrentIndex], session.CurrentIndex, nil
	}
}

// GradeAnswer grades the answer for the question at the cursor. Late or
// duplicate answers (cursor already past the quiz) are discarded without any
// mutation. The cursor always advances on a graded answer; only premium
// players accumulate score.
func (s *QuizService) GradeAnswer(ctx context.Context, userID int64, chosenOption int) (AnswerOutcome, error) {
	session, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return AnswerOutcome{}, err
	}

	if session.CurrentIndex >= len(session.CurrentQuiz) {
		return AnswerOutcome{}, nil
	}

	question := session.CurrentQuiz[session.CurrentIndex]
	correct := chosenOption == question.CorrectOption
	if correct && session.IsPremium {
		session.Score += CorrectAward
	}
	session.CurrentIndex++

	complete := session.CurrentIndex >= len(session.CurrentQuiz) || session.CurrentIndex >= DailyLimit
	if complete {
		// Clearing the quiz (not just exhausting it) marks "no active quiz".
		session.CurrentQuiz = nil
	}

	if err := s.sessions.Put(ctx, session); err != nil {
		return AnswerOutcome{}, err
	}
	s.publishLeaderboard(ctx)

	return AnswerOutcome{
		Graded:        true,
		Correct:       correct,
		CorrectOption: question.CorrectOption,
		Score:         session.Score,
		QuizComplete:  complete,
	}, nil
}

// Session returns the stored session for status displays.
func (s *QuizService) Session(ctx context.Context, userID int64) (domain.PlayerSession, error) {
	return s.sessions.Get(ctx, userID)
}

// Leaderboard snapshots all players ordered by score, highest first.
// The sort is stable so equal scores keep the store's ordering.
func (s *QuizService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	sessions, err := s.sessions.All(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LeaderboardEntry, 0, len(sessions))
	for _, session := range sessions {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      session.UserID,
			DisplayName: session.DisplayName,
			Score:       session.Score,
			IsPremium:   session.IsPremium,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries, nil
}

func (s *QuizService) publishLeaderboard(ctx context.Context) {
	if s.hub == nil {
		return
	}
	entries, err := s.Leaderboard(ctx)
	if err != nil {
		return
	}
	s.hub.Broadcast(entries)
}

func (s *QuizService) today() string {
	return s.now().UTC().Format(domain.DateLayout)
}
