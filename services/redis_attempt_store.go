package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisAttemptStore keeps attempts in Redis so step progress survives both
// client reconnects and service restarts, and so multiple instances can
// serve the same user. Advance uses WATCH-based optimistic execution — the
// same discipline as the ledger's compare-and-swap commits.
type RedisAttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAttemptStore(client *redis.Client, ttl time.Duration) *RedisAttemptStore {
	return &RedisAttemptStore{client: client, ttl: ttl}
}

func redisAttemptKey(userID, attemptID string) string {
	return fmt.Sprintf("arena:attempt:%s:%s", userID, attemptID)
}

func (s *RedisAttemptStore) Create(ctx context.Context, a *Attempt) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisAttemptKey(a.UserID, a.ID), payload, s.ttl).Err()
}

func (s *RedisAttemptStore) Get(ctx context.Context, userID, attemptID string) (*Attempt, error) {
	raw, err := s.client.Get(ctx, redisAttemptKey(userID, attemptID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}

	var a Attempt
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *RedisAttemptStore) Advance(ctx context.Context, userID, attemptID string, mutate func(*Attempt) error) (*Attempt, error) {
	key := redisAttemptKey(userID, attemptID)

	var result *Attempt
	// Retry a handful of times on watched-key races; contention on a single
	// user's attempt is rare.
	for i := 0; i < 5; i++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return ErrAttemptNotFound
			}
			if err != nil {
				return err
			}

			var a Attempt
			if err := json.Unmarshal(raw, &a); err != nil {
				return err
			}
			if err := mutate(&a); err != nil {
				return err
			}

			payload, err := json.Marshal(&a)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, s.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			result = &a
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, redis.TxFailedErr
}

func (s *RedisAttemptStore) Delete(ctx context.Context, userID, attemptID string) error {
	return s.client.Del(ctx, redisAttemptKey(userID, attemptID)).Err()
}
