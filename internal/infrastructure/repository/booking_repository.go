package repository

import (
	"context"

	domain "training-enrollment/internal/domain/enrollment"
	interfaces "training-enrollment/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingRepository implements BookingRepository using GORM
type BookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository creates a new GORM booking repository
func NewBookingRepository(db *gorm.DB) interfaces.BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts the booking. A second booking for the same student and
// session fails on the uc_session_student constraint.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	if booking.BookingID == uuid.Nil {
		booking.BookingID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	var booking domain.Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		return nil, notFoundOrNil(err)
	}
	return &booking, nil
}

func (r *BookingRepository) GetBySessionAndStudent(ctx context.Context, sessionID, studentID uuid.UUID) (*domain.Booking, error) {
	var booking domain.Booking
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND student_id = ?", sessionID, studentID).
		First(&booking).Error
	if err != nil {
		return nil, notFoundOrNil(err)
	}
	return &booking, nil
}

func (r *BookingRepository) GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepository) CountBySessionID(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// SetAttended writes only the attended column. It reports false when the
// booking no longer exists, so a cancelled booking is never written back.
func (r *BookingRepository) SetAttended(ctx context.Context, id uuid.UUID, attended bool) (bool, error) {
	return r.updateColumns(ctx, id, map[string]interface{}{"attended": attended})
}

// SetFeedback writes only the feedback and rating columns
func (r *BookingRepository) SetFeedback(ctx context.Context, id uuid.UUID, feedback string, rating int) (bool, error) {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"feedback": feedback,
		"rating":   rating,
	})
}

func (r *BookingRepository) updateColumns(ctx context.Context, id uuid.UUID, columns map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ?", id).
		UpdateColumns(columns)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *BookingRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Booking{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
