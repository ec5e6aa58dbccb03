package interfaces

import (
	"context"

	domain "training-enrollment/internal/domain/enrollment"
)

// NotificationDispatcher accepts booking events without blocking the caller.
// Dispatch failures are reported to the caller for logging only.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, event domain.NotificationEvent) error
}

// NotificationSink receives dequeued events, normally persisting them
type NotificationSink interface {
	Deliver(ctx context.Context, event domain.NotificationEvent) error
}

type NotificationQueue interface {
	NotificationDispatcher
	Dequeue(ctx context.Context) (*domain.NotificationEvent, error)
	SetSink(sink NotificationSink)
	StartWorkers()
	StopWorkers()
}
