package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicworks/issue-service/internal/domain"
)

// UserRepository defines persistence access for users, keyed by email.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SetPremium(ctx context.Context, email string) error
	SetRole(ctx context.Context, email string, role domain.Role, district *string) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (email, name, password_hash, role, is_blocked, is_premium, district)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.IsBlocked,
		user.IsPremium,
		user.District,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, password_hash=$2, role=$3, is_blocked=$4, is_premium=$5, district=$6, updated_at=NOW()
        WHERE email=$7`

	cmd, err := r.pool.Exec(ctx, query,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.IsBlocked,
		user.IsPremium,
		user.District,
		user.Email,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT email, name, password_hash, role, is_blocked, is_premium, district, created_at, updated_at
        FROM users WHERE email=$1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.IsBlocked,
		&user.IsPremium,
		&user.District,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

// SetPremium is idempotent so payment reconciliation can safely retry it.
func (r *userRepository) SetPremium(ctx context.Context, email string) error {
	const query = `UPDATE users SET is_premium=TRUE, updated_at=NOW() WHERE email=$1`
	cmd, err := r.pool.Exec(ctx, query, email)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) SetRole(ctx context.Context, email string, role domain.Role, district *string) error {
	const query = `UPDATE users SET role=$1, district=$2, updated_at=NOW() WHERE email=$3`
	cmd, err := r.pool.Exec(ctx, query, role, district, email)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
