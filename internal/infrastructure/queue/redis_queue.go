package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"training-enrollment/internal/config"
	domain "training-enrollment/internal/domain/enrollment"
	interfaces "training-enrollment/internal/interfaces/infrastructure"
	"training-enrollment/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const DefaultNotificationQueueKey = "queue:notifications"

// RedisQueue keeps notification events in a redis list so they survive a
// restart of the API process
type RedisQueue struct {
	client redis.UniversalClient
	key    string

	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.RWMutex

	sink interfaces.NotificationSink
}

// NewRedisClient builds a client from the redis.* settings
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		MaxRetries:  cfg.MaxRetries,
		PoolSize:    cfg.PoolSize,
		PoolTimeout: time.Duration(cfg.PoolTimeout) * time.Second,
		IdleTimeout: time.Duration(cfg.IdleTimeout) * time.Second,
	})
}

func NewRedisQueue(client redis.UniversalClient, key string, workers int) *RedisQueue {
	ctx, cancel := context.WithCancel(context.Background())

	if key == "" {
		key = DefaultNotificationQueueKey
	}

	return &RedisQueue{
		client:  client,
		key:     key,
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (rq *RedisQueue) SetSink(sink interfaces.NotificationSink) {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	rq.sink = sink
}

func (rq *RedisQueue) StartWorkers() {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	if rq.started {
		return
	}

	if rq.sink == nil {
		logger.Warn("Notification sink not set, workers cannot process events")
		return
	}

	logger.Info("Starting %d Redis notification workers", rq.workers)

	for i := 0; i < rq.workers; i++ {
		rq.wg.Add(1)
		go rq.worker(i)
	}

	rq.started = true
}

func (rq *RedisQueue) StopWorkers() {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	if !rq.started {
		return
	}

	logger.Info("Stopping Redis notification workers...")
	rq.cancel()
	rq.wg.Wait()
	rq.started = false
	logger.Info("Redis notification workers stopped")
}

// Dispatch pushes the event onto the redis list
func (rq *RedisQueue) Dispatch(ctx context.Context, event domain.NotificationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}

	if err := rq.client.LPush(ctx, rq.key, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue notification event: %w", err)
	}

	logger.Debug("Enqueued %s notification for user %s", event.Type, event.UserID)
	return nil
}

// Dequeue waits up to DefaultDequeueTimeout and returns nil when nothing arrived
func (rq *RedisQueue) Dequeue(ctx context.Context) (*domain.NotificationEvent, error) {
	result, err := rq.client.BRPop(ctx, DefaultDequeueTimeout, rq.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue notification event: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected Redis BRPOP result format")
	}

	var event domain.NotificationEvent
	if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification event: %w", err)
	}

	return &event, nil
}

func (rq *RedisQueue) worker(workerID int) {
	defer rq.wg.Done()

	logger.Debug("Redis notification worker %d started", workerID)

	for {
		select {
		case <-rq.ctx.Done():
			logger.Debug("Redis notification worker %d stopped", workerID)
			return
		default:
			ctx, cancel := context.WithTimeout(rq.ctx, DefaultDequeueTimeout+time.Second)
			event, err := rq.Dequeue(ctx)
			cancel()

			if err != nil {
				if rq.ctx.Err() != nil {
					continue
				}
				logger.Error("Redis notification worker %d error: %v", workerID, err)
				time.Sleep(WorkerSleepDuration)
				continue
			}

			if event == nil {
				time.Sleep(WorkerSleepDuration)
				continue
			}

			jobCtx, jobCancel := context.WithTimeout(context.Background(), DefaultJobTimeout)
			if err := deliver(jobCtx, rq.sink, event); err != nil {
				logger.Error("Redis notification worker %d failed to deliver %s for user %s: %v",
					workerID, event.Type, event.UserID, err)
			}
			jobCancel()
		}
	}
}

func (rq *RedisQueue) Close() error {
	return rq.client.Close()
}

var _ interfaces.NotificationQueue = (*RedisQueue)(nil)
