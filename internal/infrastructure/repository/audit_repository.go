package repository

import (
	"context"
	"fmt"

	interfaces "training-enrollment/internal/interfaces/infrastructure"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

const inconsistentSessionsQuery = `
SELECT s.id AS session_id,
       s.capacity AS capacity,
       s.current_attendees AS current_attendees,
       COUNT(b.id) AS booking_count
FROM sessions s
LEFT JOIN bookings b ON b.session_id = s.id
WHERE s.deleted_at IS NULL
GROUP BY s.id, s.capacity, s.current_attendees
HAVING s.current_attendees <> COUNT(b.id) OR s.current_attendees > s.capacity
ORDER BY s.id`

// AuditRepository runs read-only consistency queries with sqlx over the
// connection pool GORM already owns.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *gorm.DB) (interfaces.AuditRepository, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	driverName := db.Dialector.Name()
	if driverName == "sqlite" {
		driverName = "sqlite3"
	}

	return &AuditRepository{db: sqlx.NewDb(sqlDB, driverName)}, nil
}

// FindInconsistentSessions lists live sessions whose counter disagrees with
// their booking rows or exceeds capacity
func (r *AuditRepository) FindInconsistentSessions(ctx context.Context) ([]interfaces.SessionAudit, error) {
	var rows []interfaces.SessionAudit
	if err := r.db.SelectContext(ctx, &rows, inconsistentSessionsQuery); err != nil {
		return nil, fmt.Errorf("failed to audit sessions: %w", err)
	}
	return rows, nil
}
