package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// QuotaStore keeps per-learner remaining-quiz counters in Redis so the
// allowance survives restarts and is shared across instances.
type QuotaStore struct {
	client           *redis.Client
	defaultRemaining int
}

func NewQuotaStore(client *redis.Client, defaultRemaining int) *QuotaStore {
	return &QuotaStore{client: client, defaultRemaining: defaultRemaining}
}

func (s *QuotaStore) CheckQuizQuota(ctx context.Context, userID string) (int, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Result()
	if err == redis.Nil {
		return s.defaultRemaining, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Grant sets a learner's remaining allowance.
func (s *QuotaStore) Grant(ctx context.Context, userID string, remaining int) error {
	return s.client.Set(ctx, s.key(userID), remaining, 0).Err()
}

// Consume burns one quiz from the allowance, flooring at zero.
func (s *QuotaStore) Consume(ctx context.Context, userID string) error {
	remaining, err := s.CheckQuizQuota(ctx, userID)
	if err != nil {
		return err
	}
	if remaining > 0 {
		remaining--
	}
	return s.client.Set(ctx, s.key(userID), remaining, 0).Err()
}

func (s *QuotaStore) key(userID string) string {
	return "quota:" + userID
}
