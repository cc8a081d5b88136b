package app

import (
	"context"
	"fmt"
	"log"
	"sort"

	"trivia-pool-bot/internal/domain"
)

// Payout tuning. A distribution fires once accumulated revenue crosses
// PayoutThreshold; 30% of revenue funds the pool and every full threshold
// band adds one winner slot.
const (
	PayoutThreshold = 5000
	PrizePoolShare  = 0.30
)

// Notifier delivers plain-text messages to a player by their external ID.
type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, text string) error
}

// PayoutService aggregates revenue and distributes the prize pool to the
// highest-scoring premium players.
type PayoutService struct {
	sessions SessionStore
	ledger   Ledger
	notifier Notifier
	hub      *LeaderboardHub
	adminID  int64
}

func NewPayoutService(sessions SessionStore, ledger Ledger, notifier Notifier, hub *LeaderboardHub, adminID int64) *PayoutService {
	return &PayoutService{
		sessions: sessions,
		ledger:   ledger,
		notifier: notifier,
		hub:      hub,
		adminID:  adminID,
	}
}

// CheckAndTrigger runs one payout check. It is safe to call speculatively:
// below the threshold (or with no premium candidates) it mutates nothing.
//
// When a distribution fires, the top-ranked premium players split the pool in
// equal shares, each winner is notified individually (failures are logged and
// skipped), the administrator gets one aggregate summary, and afterwards the
// revenue counter and every candidate's score are reset for the next cycle.
func (p *PayoutService) CheckAndTrigger(ctx context.Context) (domain.PayoutReport, error) {
	revenue, err := p.ledger.Revenue(ctx)
	if err != nil {
		return domain.PayoutReport{}, fmt.Errorf("read revenue: %w", err)
	}

	report := domain.PayoutReport{Revenue: revenue}
	if revenue < PayoutThreshold {
		return report, nil
	}

	sessions, err := p.sessions.All(ctx)
	if err != nil {
		return report, err
	}
	var candidates []domain.PlayerSession
	for _, session := range sessions {
		if session.IsPremium {
			candidates = append(candidates, session)
		}
	}
	if len(candidates) == 0 {
		return report, nil
	}

	// Stable sort: equal scores keep the store's original ordering.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	numWinners := int(revenue / PayoutThreshold)
	if numWinners < 1 {
		numWinners = 1
	}
	if numWinners > len(candidates) {
		numWinners = len(candidates)
	}

	prizePool := float64(revenue) * PrizePoolShare
	share := prizePool / float64(numWinners)

	winners := make([]domain.Winner, 0, numWinners)
	for _, candidate := range candidates[:numWinners] {
		winner := domain.Winner{
			UserID:      candidate.UserID,
			DisplayName: candidate.DisplayName,
			Score:       candidate.Score,
			Prize:       share,
		}
		winners = append(winners, winner)
		text := fmt.Sprintf("🎉 Congratulations! You finished in the prize ranks with %d points and won %.2f birr.", winner.Score, winner.Prize)
		if err := p.notifier.NotifyUser(ctx, winner.UserID, text); err != nil {
			log.Printf("payout: notify winner %d failed: %v", winner.UserID, err)
		}
	}

	if err := p.notifier.NotifyUser(ctx, p.adminID, p.summary(revenue, prizePool, winners)); err != nil {
		log.Printf("payout: notify admin failed: %v", err)
	}

	// Post-distribution reset: revenue to zero, and every candidate's score
	// (winners and ranked losers alike) back to zero for the next cycle.
	if err := p.ledger.ResetRevenue(ctx); err != nil {
		return report, fmt.Errorf("reset revenue: %w", err)
	}
	for _, candidate := range candidates {
		candidate.Score = 0
		if err := p.sessions.Put(ctx, candidate); err != nil {
			return report, fmt.Errorf("reset score for %d: %w", candidate.UserID, err)
		}
	}

	report.Triggered = true
	report.PrizePool = prizePool
	report.Winners = winners
	p.publishLeaderboard(ctx)
	return report, nil
}

func (p *PayoutService) summary(revenue int64, pool float64, winners []domain.Winner) string {
	text := fmt.Sprintf("💰 Payout cycle complete.\nRevenue: %d birr\nPrize pool: %.2f birr\nWinners: %d\n", revenue, pool, len(winners))
	for i, w := range winners {
		name := w.DisplayName
		if name == "" {
			name = fmt.Sprintf("player %d", w.UserID)
		}
		text += fmt.Sprintf("%d. %s — %d pts — %.2f birr\n", i+1, name, w.Score, w.Prize)
	}
	return text
}

func (p *PayoutService) publishLeaderboard(ctx context.Context) {
	if p.hub == nil {
		return
	}
	sessions, err := p.sessions.All(ctx)
	if err != nil {
		return
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
	p.hub.Broadcast(entries)
}
