package service

import (
	"context"

	domain "training-enrollment/internal/domain/enrollment"
	interfaces "training-enrollment/internal/interfaces/infrastructure"
	serviceInterfaces "training-enrollment/internal/interfaces/service"
	"training-enrollment/pkg/logger"

	"github.com/google/uuid"
)

var _ serviceInterfaces.AuditService = (*AuditService)(nil)

// AuditService finds and fixes sessions whose seat counter drifted from
// their booking rows
type AuditService struct {
	store  interfaces.Store
	audits interfaces.AuditRepository
}

func NewAuditService(store interfaces.Store, audits interfaces.AuditRepository) *AuditService {
	return &AuditService{store: store, audits: audits}
}

func (s *AuditService) Audit(ctx context.Context) ([]interfaces.SessionAudit, error) {
	rows, err := s.audits.FindInconsistentSessions(ctx)
	if err != nil {
		return nil, storageError("audit sessions", err)
	}
	return rows, nil
}

// Repair recomputes the counter from the booking rows under the session lock
func (s *AuditService) Repair(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	var repaired *domain.Session
	err := s.store.WithSessionLock(ctx, sessionID, func(repos interfaces.Repositories, session *domain.Session) error {
		count, err := repos.Bookings.CountBySessionID(ctx, sessionID)
		if err != nil {
			return err
		}
		if count > session.Capacity {
			return domain.NewInvalidStateError("session %s has %d bookings for %d seats", sessionID, count, session.Capacity)
		}
		if count != session.CurrentAttendees {
			logger.Warn("Repairing session %s counter: %d -> %d", sessionID, session.CurrentAttendees, count)
			if err := repos.Sessions.UpdateAttendees(ctx, sessionID, count); err != nil {
				return err
			}
			session.CurrentAttendees = count
		}
		repaired = session
		return nil
	})
	if err != nil {
		return nil, storageError("repair session", err)
	}
	return repaired, nil
}
