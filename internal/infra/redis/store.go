package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"trivia-pool-bot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Store keeps player sessions, transactions, and the global ledger in Redis.
// Layout:
//
//	player:{userID}   JSON session
//	players           sorted set of user IDs, scored by registration time
//	tx:{reference}    JSON transaction
//	ledger:users      counter
//	ledger:revenue    counter
//
// Counters use INCRBY so every ledger mutation is a single atomic
// read-modify-write on the Redis side.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, userID int64) (domain.PlayerSession, error) {
	raw, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if err == redis.Nil {
		return domain.PlayerSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.PlayerSession{}, fmt.Errorf("get session %d: %w", userID, err)
	}
	var session domain.PlayerSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.PlayerSession{}, fmt.Errorf("decode session %d: %w", userID, err)
	}
	return session, nil
}

func (s *Store) Put(ctx context.Context, session domain.PlayerSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", session.UserID, err)
	}

	member := strconv.FormatInt(session.UserID, 10)
	_, err = s.client.ZScore(ctx, "players", member).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("check registration %d: %w", session.UserID, err)
	}
	if err == nil {
		// Already registered: an update never touches the rank.
		return s.client.Set(ctx, sessionKey(session.UserID), raw, 0).Err()
	}

	rank, err := s.client.Incr(ctx, "players:rank").Result()
	if err != nil {
		return fmt.Errorf("reserve rank %d: %w", session.UserID, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.UserID), raw, 0)
	// NX keeps the first rank if two registrations race.
	pipe.ZAddNX(ctx, "players", redis.Z{
		Score:  float64(rank),
		Member: member,
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) All(ctx context.Context) ([]domain.PlayerSession, error) {
	ids, err := s.client.ZRange(ctx, "players", 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	sessions := make([]domain.PlayerSession, 0, len(ids))
	for _, id := range ids {
		userID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		session, err := s.Get(ctx, userID)
		if err == domain.ErrSessionNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *Store) GetTransaction(ctx context.Context, reference string) (domain.Transaction, error) {
	raw, err := s.client.Get(ctx, txKey(reference)).Bytes()
	if err == redis.Nil {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("get transaction %s: %w", reference, err)
	}
	var tx domain.Transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("decode transaction %s: %w", reference, err)
	}
	return tx, nil
}

func (s *Store) PutTransaction(ctx context.Context, tx domain.Transaction) error {
	raw, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction %s: %w", tx.Reference, err)
	}
	return s.client.Set(ctx, txKey(tx.Reference), raw, 0).Err()
}

func (s *Store) AddRevenue(ctx context.Context, delta int64) (int64, error) {
	return s.client.IncrBy(ctx, "ledger:revenue", delta).Result()
}

func (s *Store) Revenue(ctx context.Context) (int64, error) {
	return readCounter(ctx, s.client, "ledger:revenue")
}

func (s *Store) ResetRevenue(ctx context.Context) error {
	return s.client.Set(ctx, "ledger:revenue", 0, 0).Err()
}

func (s *Store) AddUser(ctx context.Context) (int64, error) {
	return s.client.Incr(ctx, "ledger:users").Result()
}

func (s *Store) Users(ctx context.Context) (int64, error) {
	return readCounter(ctx, s.client, "ledger:users")
}

// Transactions adapts the store to the transaction port's method names.
type Transactions struct {
	*Store
}

func (t Transactions) Get(ctx context.Context, reference string) (domain.Transaction, error) {
	return t.GetTransaction(ctx, reference)
}

func (t Transactions) Put(ctx context.Context, tx domain.Transaction) error {
	return t.PutTransaction(ctx, tx)
}

func readCounter(ctx context.Context, client *redis.Client, key string) (int64, error) {
	val, err := client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}
	return val, nil
}

func sessionKey(userID int64) string {
	return "player:" + strconv.FormatInt(userID, 10)
}

func txKey(reference string) string {
	return "tx:" + reference
}
