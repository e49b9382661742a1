package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-engine/internal/domain"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestScheduleKey(t *testing.T) {
	id := uuid.MustParse("2b0c6f7e-9a1d-4a51-9c55-0f3f3a0f7b11")
	assert.Equal(t, "loan_entry:2b0c6f7e-9a1d-4a51-9c55-0f3f3a0f7b11:schedule", scheduleKey(id))
}

func TestNoopScheduleCache(t *testing.T) {
	c := NoopScheduleCache{}
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, c.Set(ctx, id, []*domain.Installment{{Month: 1}}))
	schedule, found, err := c.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, schedule)
	assert.NoError(t, c.Invalidate(ctx, id))
}

func TestRedisScheduleCache_RoundTrip(t *testing.T) {
	client := redisClient(t)
	c := NewRedisScheduleCache(client, time.Minute)
	ctx := context.Background()
	id := uuid.New()
	t.Cleanup(func() { client.Del(context.Background(), scheduleKey(id)) })

	_, found, err := c.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)

	schedule := []*domain.Installment{
		{ID: uuid.New(), LoanEntryID: id, Month: 1, MonthlyPayment: decimal.RequireFromString("333.33")},
		{ID: uuid.New(), LoanEntryID: id, Month: 2, MonthlyPayment: decimal.RequireFromString("333.34")},
	}
	require.NoError(t, c.Set(ctx, id, schedule))

	got, found, err := c.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 2)
	assert.True(t, got[1].MonthlyPayment.Equal(decimal.RequireFromString("333.34")))

	require.NoError(t, c.Invalidate(ctx, id))
	_, found, err = c.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)
}
