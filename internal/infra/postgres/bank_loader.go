package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"trivia-pool-bot/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// BankLoader reads the curated regional question bank from Postgres JSONB.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadBank(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM curated_questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load curated bank: %w", err)
	}
	defer rows.Close()

	var bank []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan curated question: %w", err)
		}
		var question domain.Question
		if err := json.Unmarshal(raw, &question); err != nil {
			return nil, fmt.Errorf("unmarshal curated question: %w", err)
		}
		bank = append(bank, question)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate curated bank: %w", err)
	}
	if len(bank) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return bank, nil
}
