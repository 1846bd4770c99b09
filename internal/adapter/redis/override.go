// Package redis stores the location override record under a single Redis key
// so several hosts can share one monitoring target.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
)

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// OverrideStore implements domain.OverrideStore on a Redis string key.
type OverrideStore struct {
	client goredis.Cmdable
	key    string
}

// NewOverrideStore creates an override store holding its record at key.
func NewOverrideStore(client goredis.Cmdable, key string) *OverrideStore {
	return &OverrideStore{client: client, key: key}
}

func (s *OverrideStore) Load(ctx context.Context) (domain.Override, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Override{}, nil
	}
	if err != nil {
		return domain.Override{}, fmt.Errorf("get override: %w", err)
	}
	return decodeOverride(data)
}

func (s *OverrideStore) Save(ctx context.Context, o domain.Override) error {
	data, err := encodeOverride(o)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set override: %w", err)
	}
	return nil
}

func (s *OverrideStore) Reset(ctx context.Context) error {
	return s.Save(ctx, domain.Override{})
}

func encodeOverride(o domain.Override) ([]byte, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode override: %w", err)
	}
	return data, nil
}

func decodeOverride(data []byte) (domain.Override, error) {
	var o domain.Override
	if err := json.Unmarshal(data, &o); err != nil {
		return domain.Override{}, fmt.Errorf("decode override: %w", err)
	}
	return o, nil
}
