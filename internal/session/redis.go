package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const choiceKeyPrefix = "support-engine:issue-choice:"

// RedisStore — ChoiceStore поверх Redis: TTL выставляет сам Redis, состояние
// переживает рестарт и делится между репликами сервиса.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func choiceKey(userID int64) string {
	return choiceKeyPrefix + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) Put(ctx context.Context, userID int64, c Choice) error {
	body, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, choiceKey(userID), body, r.ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, userID int64) (*Choice, error) {
	body, err := r.client.Get(ctx, choiceKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var c Choice
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	return r.client.Del(ctx, choiceKey(userID)).Err()
}
