package models

import "time"

type ProjectType string

const (
	ProjectTypePaid ProjectType = "paid"
	ProjectTypeFree ProjectType = "free"
)

type Project struct {
	ID              int64       `json:"id"`
	Title           string      `json:"title"`
	Type            ProjectType `json:"type"`
	PaymentVerified bool        `json:"payment_verified"`
}

func (p *Project) IsPaid() bool {
	return p != nil && p.Type == ProjectTypePaid
}

// ProjectRow is the stored project, without per-pair payment state.
type ProjectRow struct {
	ID        int64       `json:"id"`
	OwnerID   int64       `json:"owner_id"`
	Title     string      `json:"title"`
	Type      ProjectType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}
