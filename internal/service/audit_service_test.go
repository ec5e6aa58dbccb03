package service

import (
	"testing"

	"training-enrollment/internal/infrastructure/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_AuditAndRepair(t *testing.T) {
	f := newFixture(t)
	session := f.session(f.topic("Go"), 4, 0)
	f.fillSeats(session, 2)
	require.NoError(t, f.repos.Sessions.UpdateAttendees(f.ctx, session.SessionID, 4))

	audits, err := repository.NewAuditRepository(f.db)
	require.NoError(t, err)
	auditor := NewAuditService(f.store, audits)

	rows, err := auditor.Audit(f.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].BookingCount)

	repaired, err := auditor.Repair(f.ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, repaired.CurrentAttendees)

	rows, err = auditor.Audit(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = auditor.Repair(f.ctx, uuid.New())
	assert.Error(t, err)
}
