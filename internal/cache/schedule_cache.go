package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/loan-engine/internal/domain"
)

// ScheduleCache stores rendered schedules. A miss is reported as found=false with a nil error.
type ScheduleCache interface {
	Get(ctx context.Context, loanEntryID uuid.UUID) (schedule []*domain.Installment, found bool, err error)
	Set(ctx context.Context, loanEntryID uuid.UUID, schedule []*domain.Installment) error
	Invalidate(ctx context.Context, loanEntryID uuid.UUID) error
}

func scheduleKey(loanEntryID uuid.UUID) string {
	return fmt.Sprintf("loan_entry:%s:schedule", loanEntryID)
}

type redisScheduleCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisScheduleCache(client *redis.Client, ttl time.Duration) ScheduleCache {
	return &redisScheduleCache{client: client, ttl: ttl}
}

func (c *redisScheduleCache) Get(ctx context.Context, loanEntryID uuid.UUID) ([]*domain.Installment, bool, error) {
	raw, err := c.client.Get(ctx, scheduleKey(loanEntryID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var schedule []*domain.Installment
	if err := json.Unmarshal(raw, &schedule); err != nil {
		return nil, false, fmt.Errorf("corrupt cached schedule for %s: %w", loanEntryID, err)
	}
	return schedule, true, nil
}

func (c *redisScheduleCache) Set(ctx context.Context, loanEntryID uuid.UUID, schedule []*domain.Installment) error {
	raw, err := json.Marshal(schedule)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, scheduleKey(loanEntryID), raw, c.ttl).Err()
}

func (c *redisScheduleCache) Invalidate(ctx context.Context, loanEntryID uuid.UUID) error {
	return c.client.Del(ctx, scheduleKey(loanEntryID)).Err()
}

// NoopScheduleCache always misses. It is used when redis is not configured.
type NoopScheduleCache struct{}

func (NoopScheduleCache) Get(context.Context, uuid.UUID) ([]*domain.Installment, bool, error) {
	return nil, false, nil
}

func (NoopScheduleCache) Set(context.Context, uuid.UUID, []*domain.Installment) error { return nil }

func (NoopScheduleCache) Invalidate(context.Context, uuid.UUID) error { return nil }
