package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicworks/issue-service/internal/domain"
)

// PaymentRepository persists immutable payment records. The unique
// constraint on transaction_id is the reconciliation idempotency guard:
// check-and-insert happen in one statement.
type PaymentRepository interface {
	InsertIfAbsent(ctx context.Context, record *domain.PaymentRecord) (bool, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.PaymentRecord, error)
}

type paymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository constructs repository.
func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepository{pool: pool}
}

// InsertIfAbsent returns false when a record with the same transaction id
// already exists; exactly one of two racing inserts wins.
func (r *paymentRepository) InsertIfAbsent(ctx context.Context, record *domain.PaymentRecord) (bool, error) {
	const query = `
        INSERT INTO payment_records (transaction_id, kind, issue_id, payer_email, amount, currency, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (transaction_id) DO NOTHING
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		record.TransactionID,
		record.Kind,
		record.IssueID,
		record.PayerEmail,
		record.Amount,
		record.Currency,
		record.Status,
	).Scan(&record.ID, &record.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *paymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.PaymentRecord, error) {
	const query = `
        SELECT id, transaction_id, kind, issue_id, payer_email, amount, currency, status, created_at
        FROM payment_records WHERE transaction_id=$1`
	var record domain.PaymentRecord
	if err := r.pool.QueryRow(ctx, query, transactionID).Scan(
		&record.ID,
		&record.TransactionID,
		&record.Kind,
		&record.IssueID,
		&record.PayerEmail,
		&record.Amount,
		&record.Currency,
		&record.Status,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
