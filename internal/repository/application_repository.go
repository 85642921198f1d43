package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicworks/issue-service/internal/domain"
)

// ApplicationRepository persists staff applications and their audit events.
type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.StaffApplication) error
	GetByID(ctx context.Context, id string) (*domain.StaffApplication, error)
	List(ctx context.Context, status *domain.ApplicationStatus, limit, offset int) ([]domain.StaffApplication, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.ApplicationStatus) error
	AppendEvent(ctx context.Context, event *domain.ApplicationEvent) error
	ListEvents(ctx context.Context, applicationID string) ([]domain.ApplicationEvent, error)
}

type applicationRepository struct {
	pool *pgxpool.Pool
}

// NewApplicationRepository constructs repository.
func NewApplicationRepository(pool *pgxpool.Pool) ApplicationRepository {
	return &applicationRepository{pool: pool}
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.StaffApplication) error {
	const query = `
        INSERT INTO staff_applications (name, email, district, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		app.Name,
		app.Email,
		app.District,
		app.Status,
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*domain.StaffApplication, error) {
	const query = `
        SELECT id, name, email, district, status, created_at, updated_at
        FROM staff_applications WHERE id=$1`
	var app domain.StaffApplication
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&app.ID,
		&app.Name,
		&app.Email,
		&app.District,
		&app.Status,
		&app.CreatedAt,
		&app.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) List(ctx context.Context, status *domain.ApplicationStatus, limit, offset int) ([]domain.StaffApplication, error) {
	const query = `
        SELECT id, name, email, district, status, created_at, updated_at
        FROM staff_applications
        WHERE ($1::text IS NULL OR status=$1)
        ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, status, normalizeLimit(limit), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffApplication
	for rows.Next() {
		var app domain.StaffApplication
		if err := rows.Scan(
			&app.ID,
			&app.Name,
			&app.Email,
			&app.District,
			&app.Status,
			&app.CreatedAt,
			&app.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, app)
	}
	return result, rows.Err()
}

// UpdateStatus is a compare-and-set; accept and reject are terminal.
func (r *applicationRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ApplicationStatus) error {
	const query = `UPDATE staff_applications SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2`
	cmd, err := r.pool.Exec(ctx, query, id, from, to)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *applicationRepository) AppendEvent(ctx context.Context, event *domain.ApplicationEvent) error {
	const query = `
        INSERT INTO application_timeline (application_id, status, message, actor_email, actor_role)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		event.ApplicationID,
		event.Status,
		event.Message,
		event.ActorEmail,
		event.ActorRole,
	).Scan(&event.ID, &event.CreatedAt)
}

func (r *applicationRepository) ListEvents(ctx context.Context, applicationID string) ([]domain.ApplicationEvent, error) {
	const query = `
        SELECT id, application_id, status, message, actor_email, actor_role, created_at
        FROM application_timeline WHERE application_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ApplicationEvent
	for rows.Next() {
		var event domain.ApplicationEvent
		if err := rows.Scan(
			&event.ID,
			&event.ApplicationID,
			&event.Status,
			&event.Message,
			&event.ActorEmail,
			&event.ActorRole,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
