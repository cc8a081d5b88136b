package domain

import "time"

// DateLayout is the calendar-day key used for daily quiz bookkeeping (UTC).
const DateLayout = "2006-01-02"

// Question is an immutable multiple-choice item.
type Question struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"` // length >= 2
	CorrectOption int      `json:"correctOption"`
}

// PlayerSession is the per-player record owned by the session store.
type PlayerSession struct {
	UserID        int64      `json:"userId"`
	DisplayName   string     `json:"displayName,omitempty"`
	IsPremium     bool       `json:"isPremium"`
	PremiumExpiry time.Time  `json:"premiumExpiry,omitempty"`
	Score         int        `json:"score"`
	LastQuizDate  string     `json:"lastQuizDate,omitempty"` // UTC day, DateLayout
	CurrentQuiz   []Question `json:"currentQuiz,omitempty"`
	CurrentIndex  int        `json:"currentIndex"`
}

// QuizState is the explicit daily-quiz state derived from a session.
type QuizState int

const (
	// NoActiveQuiz means no quiz has been drawn for today yet.
	NoActiveQuiz QuizState = iota
	// QuizInProgress means a quiz is active and the cursor points at a question.
	QuizInProgress
	// QuizCompleted means today's quiz has been exhausted.
	QuizCompleted
)

// StateOn classifies the session against a given UTC day.
// A quiz drawn on an earlier day never carries over: the day boundary wins.
// An empty CurrentQuiz alone is not enough to allow a new draw — a cleared
// quiz with an advanced cursor means today's quiz was already played out.
func (s *PlayerSession) StateOn(today string, dailyLimit int) QuizState {
	if s.LastQuizDate != today {
		return NoActiveQuiz
	}
	if len(s.CurrentQuiz) == 0 {
		if s.CurrentIndex > 0 {
			return QuizCompleted
		}
		return NoActiveQuiz
	}
	if s.CurrentIndex >= len(s.CurrentQuiz) || s.CurrentIndex >= dailyLimit {
		return QuizCompleted
	}
	return QuizInProgress
}

// TransactionStatus is the lifecycle of a payment record.
type TransactionStatus string

const (
	TransactionPending TransactionStatus = "pending"
	// TransactionSuccess is terminal; a transaction never leaves it.
	TransactionSuccess TransactionStatus = "success"
)

// Transaction is a payment record keyed by its gateway reference.
type Transaction struct {
	Reference string            `json:"reference"`
	UserID    int64             `json:"userId"`
	Amount    int64             `json:"amount"` // whole birr
	Status    TransactionStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
}

// LeaderboardEntry is a snapshot-friendly view of a ranked player.
type LeaderboardEntry struct {
	UserID      int64  `json:"userId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
	IsPremium   bool   `json:"isPremium"`
}

// Winner pairs a ranked premium player with their prize share.
type Winner struct {
	UserID      int64   `json:"userId"`
	DisplayName string  `json:"displayName"`
	Score       int     `json:"score"`
	Prize       float64 `json:"prize"`
}

// PayoutReport summarizes one payout check.
type PayoutReport struct {
	Triggered bool     `json:"triggered"`
	Revenue   int64    `json:"revenue"`
	PrizePool float64  `json:"prizePool,omitempty"`
	Winners   []Winner `json:"winners,omitempty"`
}
