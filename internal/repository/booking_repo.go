package repository

import (
	"context"
	"time"

	"github.com/saeid-a/VolunteerHub/internal/models"
)

type CreateBookingInput struct {
	ProjectID   int64
	VolunteerID int64
	ScheduledAt time.Time
}

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, input CreateBookingInput) (*models.BookingRow, error) {
	query := `
		INSERT INTO bookings (project_id, volunteer_id, scheduled_at, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING id, project_id, volunteer_id, status, scheduled_at, created_at
	`

	var booking models.BookingRow
	err := r.db.QueryRow(ctx, query, input.ProjectID, input.VolunteerID, input.ScheduledAt).Scan(
		&booking.ID,
		&booking.ProjectID,
		&booking.VolunteerID,
		&booking.Status,
		&booking.ScheduledAt,
		&booking.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID int64) (*models.BookingRow, error) {
	query := `
		SELECT id, project_id, volunteer_id, status, scheduled_at, created_at
		FROM bookings
		WHERE id = $1
	`

	var booking models.BookingRow
	err := r.db.QueryRow(ctx, query, bookingID).Scan(
		&booking.ID,
		&booking.ProjectID,
		&booking.VolunteerID,
		&booking.Status,
		&booking.ScheduledAt,
		&booking.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}
