package repository

import (
	"context"
	"database/sql"
	"errors"

	"parkmeter/backend/services/parking-service/internal/models"
)

// PaymentRepository stores card references and users' default payments.
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository returns repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	const query = `
		INSERT INTO payments (id, user_id, card_last4, exp_date, secret_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`
	return r.db.QueryRowContext(ctx, query,
		payment.ID,
		nullableString(payment.UserID),
		payment.CardLast4,
		payment.ExpDate,
		payment.SecretHash,
	).Scan(&payment.CreatedAt)
}

// SetDefaultForUser makes paymentID the user's default payment.
func (r *PaymentRepository) SetDefaultForUser(ctx context.Context, userID, paymentID string) error {
	const query = `
		INSERT INTO user_payments (user_id, payment_id, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			payment_id = EXCLUDED.payment_id,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, userID, paymentID)
	return err
}

// DefaultForUser returns the user's default payment.
func (r *PaymentRepository) DefaultForUser(ctx context.Context, userID string) (*models.Payment, error) {
	const query = `
		SELECT p.id, p.user_id, p.card_last4, p.exp_date, p.secret_hash, p.created_at
		FROM user_payments up
		JOIN payments p ON p.id = up.payment_id
		WHERE up.user_id = $1
	`
	var (
		p     models.Payment
		owner sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.ID, &owner, &p.CardLast4, &p.ExpDate, &p.SecretHash, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.UserID = stringPtr(owner)
	return &p, nil
}
