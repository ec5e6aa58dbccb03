package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "training-enrollment/internal/domain/enrollment"
	interfaces "training-enrollment/internal/interfaces/infrastructure"
	"training-enrollment/pkg/logger"
)

const (
	DefaultDequeueTimeout = 2 * time.Second
	DefaultJobTimeout     = 30 * time.Second
	WorkerSleepDuration   = 50 * time.Millisecond
)

// ErrQueueFull is returned by Dispatch when the buffer has no room
var ErrQueueFull = errors.New("notification queue is full")

// Queue is an in-memory notification queue backed by a buffered channel
type Queue struct {
	notifications chan domain.NotificationEvent

	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.RWMutex

	sink interfaces.NotificationSink
}

func NewInMemoryQueue(bufferSize, workers int) *Queue {
	ctx, cancel := context.WithCancel(context.Background())

	if bufferSize <= 0 {
		bufferSize = 1
	}

	return &Queue{
		notifications: make(chan domain.NotificationEvent, bufferSize),
		workers:       workers,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (q *Queue) SetSink(sink interfaces.NotificationSink) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sink = sink
}

func (q *Queue) StartWorkers() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return
	}

	if q.sink == nil {
		logger.Warn("Notification sink not set, workers cannot process events")
		return
	}

	logger.Info("Starting %d notification workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	q.started = true
}

// StopWorkers stops the workers and delivers whatever is still buffered
func (q *Queue) StopWorkers() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.started {
		return
	}

	logger.Info("Stopping notification workers...")
	q.cancel()
	q.wg.Wait()
	q.drain()
	q.started = false
	logger.Info("Notification workers stopped")
}

// Dispatch never blocks; a full buffer is reported as ErrQueueFull
func (q *Queue) Dispatch(ctx context.Context, event domain.NotificationEvent) error {
	select {
	case q.notifications <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *Queue) Dequeue(ctx context.Context) (*domain.NotificationEvent, error) {
	select {
	case event := <-q.notifications:
		return &event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of buffered events
func (q *Queue) Len() int {
	return len(q.notifications)
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()

	logger.Debug("Notification worker %d started", workerID)

	for {
		select {
		case <-q.ctx.Done():
			logger.Debug("Notification worker %d stopped", workerID)
			return
		case event := <-q.notifications:
			q.process(workerID, &event)
		}
	}
}

func (q *Queue) drain() {
	for {
		select {
		case event := <-q.notifications:
			q.process(-1, &event)
		default:
			return
		}
	}
}

func (q *Queue) process(workerID int, event *domain.NotificationEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultJobTimeout)
	defer cancel()

	if err := deliver(ctx, q.sink, event); err != nil {
		logger.Error("Notification worker %d failed to deliver %s for user %s: %v",
			workerID, event.Type, event.UserID, err)
	}
}

func deliver(ctx context.Context, sink interfaces.NotificationSink, event *domain.NotificationEvent) error {
	if sink == nil {
		return fmt.Errorf("no notification sink configured")
	}
	return sink.Deliver(ctx, *event)
}

var _ interfaces.NotificationQueue = (*Queue)(nil)
