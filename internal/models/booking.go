package models

import "time"

type Booking struct {
	ID int64 `json:"id"`
}

type BookingRow struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	VolunteerID int64     `json:"volunteer_id"`
	Status      string    `json:"status"`
	ScheduledAt time.Time `json:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at"`
}

const PaymentStatusVerified = "verified"

type Payment struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	BookingID *int64    `json:"booking_id,omitempty"`
	UserID    int64     `json:"user_id"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
