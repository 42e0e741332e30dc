package repository

import (
	"context"

	"github.com/saeid-a/VolunteerHub/internal/models"
)

type CreatePaymentInput struct {
	ProjectID int64
	BookingID *int64
	UserID    int64
	Amount    float64
	Status    string
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	query := `
		INSERT INTO payments (project_id, booking_id, user_id, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, project_id, booking_id, user_id, amount, status, created_at
	`

	var payment models.Payment
	err := r.db.QueryRow(ctx, query, input.ProjectID, input.BookingID, input.UserID, input.Amount, input.Status).Scan(
		&payment.ID,
		&payment.ProjectID,
		&payment.BookingID,
		&payment.UserID,
		&payment.Amount,
		&payment.Status,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListVerifiedPayers returns, per project, the ids of users holding a
// verified payment for it.
func (r *PaymentRepository) ListVerifiedPayers(ctx context.Context, projectIDs []int64) (map[int64][]int64, error) {
	payers := make(map[int64][]int64, len(projectIDs))
	if len(projectIDs) == 0 {
		return payers, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT project_id, user_id
		FROM payments
		WHERE project_id = ANY($1)
		  AND status = $2
		ORDER BY project_id, user_id
	`, projectIDs, models.PaymentStatusVerified)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var projectID, userID int64
		if err := rows.Scan(&projectID, &userID); err != nil {
			return nil, err
		}
		payers[projectID] = append(payers[projectID], userID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payers, nil
}
