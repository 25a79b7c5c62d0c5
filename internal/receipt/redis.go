package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/parcelbooking/config"
	"github.com/Domenick1991/parcelbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Key is the name of the single record kept per scope.
const Key = "lastBooking"

// RedisStore keeps one receipt per scope as a whole JSON value, so every write
// replaces the record atomically.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(cfg config.RedisConfig, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		ttl:    ttl,
	}
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Load returns nil when no receipt is stored for scope.
func (s *RedisStore) Load(ctx context.Context, scope string) (*domain.Receipt, error) {
	data, err := s.client.Get(ctx, receiptKey(scope)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load receipt: %w", err)
	}

	var r domain.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &r, nil
}

func (s *RedisStore) Save(ctx context.Context, scope string, r domain.Receipt) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, receiptKey(scope), payload, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, scope string) error {
	return s.client.Del(ctx, receiptKey(scope)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func receiptKey(scope string) string {
	return fmt.Sprintf("receipt:%s:%s", scope, Key)
}
