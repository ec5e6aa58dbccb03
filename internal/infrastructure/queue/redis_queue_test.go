package queue

import (
	"context"
	"os"
	"testing"
	"time"

	domain "training-enrollment/internal/domain/enrollment"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedis connects to ENROLL_TEST_REDIS_ADDR or skips
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("ENROLL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ENROLL_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx).Err())

	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisQueue_RoundTrip(t *testing.T) {
	client := newTestRedis(t)
	key := "test:notifications:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), key) })

	q := NewRedisQueue(client, key, 1)
	sent := newEvent(domain.NotificationBookingCreated)

	require.NoError(t, q.Dispatch(context.Background(), sent))

	got, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sent.UserID, got.UserID)
	assert.Equal(t, sent.Type, got.Type)
	assert.Equal(t, sent.Message, got.Message)
}

func TestRedisQueue_WorkersDeliverEvents(t *testing.T) {
	client := newTestRedis(t)
	key := "test:notifications:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), key) })

	q := NewRedisQueue(client, key, 2)
	sink := &recordingSink{}
	q.SetSink(sink)
	q.StartWorkers()
	defer q.StopWorkers()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Dispatch(context.Background(), newEvent(domain.NotificationBookingCancelled)))
	}

	assert.Eventually(t, func() bool { return sink.count() == 3 }, 5*time.Second, 20*time.Millisecond)
}
