package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const progressKeyPrefix = "import:progress:"

// ErrProgressNotFound is returned when no snapshot exists for an import id
// (never saved, or expired).
var ErrProgressNotFound = errors.New("import progress not found")

// ProgressStore keeps the latest JSON snapshot of a running import under a
// per-import key that expires after ttl.
type ProgressStore[T any] struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProgressStore[T any](client *redis.Client, ttl time.Duration) *ProgressStore[T] {
	return &ProgressStore[T]{client: client, ttl: ttl}
}

func progressKey(importID string) string {
	return progressKeyPrefix + importID
}

func (s *ProgressStore[T]) Save(ctx context.Context, importID string, progress T) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := s.client.Set(ctx, progressKey(importID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save progress %s: %w", importID, err)
	}
	return nil
}

func (s *ProgressStore[T]) Load(ctx context.Context, importID string) (*T, error) {
	payload, err := s.client.Get(ctx, progressKey(importID)).Bytes()
	if err == redis.Nil {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load progress %s: %w", importID, err)
	}

	var progress T
	if err := json.Unmarshal(payload, &progress); err != nil {
		return nil, fmt.Errorf("decode progress %s: %w", importID, err)
	}
	return &progress, nil
}
