package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domain "training-enrollment/internal/domain/enrollment"
	"training-enrollment/internal/infrastructure/database/dbtest"
	"training-enrollment/internal/infrastructure/repository"
	interfaces "training-enrollment/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// recordingDispatcher keeps every dispatched event
type recordingDispatcher struct {
	mu     sync.Mutex
	events []domain.NotificationEvent
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event domain.NotificationEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Events() []domain.NotificationEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.NotificationEvent(nil), d.events...)
}

type fixture struct {
	t          *testing.T
	ctx        context.Context
	db         *gorm.DB
	store      *repository.GormStore
	repos      interfaces.Repositories
	dispatcher *recordingDispatcher
	bookings   *BookingService
	prereqs    *PrerequisiteService
	catalog    *CatalogService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.NewSQLite(t)
	store := repository.NewGormStore(db)
	dispatcher := &recordingDispatcher{}

	return &fixture{
		t:          t,
		ctx:        context.Background(),
		db:         db,
		store:      store,
		repos:      store.Repos(),
		dispatcher: dispatcher,
		bookings:   NewBookingService(store, dispatcher, BookingOptions{Now: fixedClock, LockTimeout: 30 * time.Second}),
		prereqs:    NewPrerequisiteService(store),
		catalog:    NewCatalogService(store, fixedClock),
	}
}

func (f *fixture) topic(name string) *domain.Topic {
	f.t.Helper()
	topic := &domain.Topic{TopicID: uuid.New(), Name: name}
	require.NoError(f.t, f.repos.Topics.Create(f.ctx, topic))
	return topic
}

func (f *fixture) session(topic *domain.Topic, capacity, attendees int) *domain.Session {
	f.t.Helper()
	session := &domain.Session{
		SessionID:        uuid.New(),
		TopicID:          topic.TopicID,
		TrainerID:        uuid.New(),
		Title:            topic.Name + " workshop",
		StartTime:        testNow.Add(48 * time.Hour),
		DurationMinutes:  60,
		Capacity:         capacity,
		CurrentAttendees: attendees,
		Status:           domain.SessionUpcoming,
	}
	require.NoError(f.t, f.repos.Sessions.Create(f.ctx, session))
	return session
}

func (f *fixture) edge(topic, prerequisite *domain.Topic) {
	f.t.Helper()
	_, err := f.prereqs.AddPrerequisite(f.ctx, topic.TopicID, prerequisite.TopicID)
	require.NoError(f.t, err)
}

func (f *fixture) complete(studentID uuid.UUID, topic *domain.Topic) {
	f.t.Helper()
	require.NoError(f.t, f.repos.Completions.Create(f.ctx, &domain.CompletedTopic{
		StudentID:   studentID,
		TopicID:     topic.TopicID,
		CompletedAt: testNow.Add(-24 * time.Hour),
	}))
}

func (f *fixture) reload(sessionID uuid.UUID) *domain.Session {
	f.t.Helper()
	session, err := f.repos.Sessions.GetByID(f.ctx, sessionID)
	require.NoError(f.t, err)
	require.NotNil(f.t, session)
	return session
}

func (f *fixture) bookingCount(sessionID uuid.UUID) int {
	f.t.Helper()
	count, err := f.repos.Bookings.CountBySessionID(f.ctx, sessionID)
	require.NoError(f.t, err)
	return count
}

func student() domain.Requester {
	return domain.Requester{UserID: uuid.New(), Role: domain.RoleStudent}
}

func admin() domain.Requester {
	return domain.Requester{UserID: uuid.New(), Role: domain.RoleAdmin}
}

var errDispatch = errors.New("queue unavailable")
