package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicworks/issue-service/internal/domain"
)

// IssueRepository encapsulates issue persistence. Every mutating method is
// a single conditional statement so that concurrent operations on the same
// issue serialize in the database instead of overwriting each other; a
// returned pgx.ErrNoRows means the guard did not match and the caller must
// re-read to report the precise failure.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	ListByOwner(ctx context.Context, ownerEmail string, limit, offset int) ([]domain.Issue, error)
	ListWorkQueue(ctx context.Context, staffEmail, district string, limit, offset int) ([]domain.Issue, error)
	CountByStatusForOwner(ctx context.Context, ownerEmail string) (map[domain.IssueStatus]int, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.IssueStatus) error
	Assign(ctx context.Context, id, staffEmail, staffName string) error
	AddVoter(ctx context.Context, id, voterEmail string) (int, error)
	SetPriority(ctx context.Context, id string, priority domain.IssuePriority) error
	DeletePending(ctx context.Context, id string) error
}

type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository instantiates repository.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

const issueColumns = `id, title, description, category, region, district, owner_email,
               status, priority, upvotes, voter_emails, assignee_email, assignee_name,
               created_at, updated_at`

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	const query = `
        INSERT INTO issues (title, description, category, region, district, owner_email, status, priority, upvotes, voter_emails)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0,'{}')
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		issue.Title,
		issue.Description,
		issue.Category,
		issue.Region,
		issue.District,
		issue.OwnerEmail,
		issue.Status,
		issue.Priority,
	).Scan(&issue.ID, &issue.CreatedAt, &issue.UpdatedAt)
}

func (r *issueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	const query = `SELECT ` + issueColumns + ` FROM issues WHERE id=$1`
	var issue domain.Issue
	if err := r.pool.QueryRow(ctx, query, id).Scan(scanTargets(&issue)...); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *issueRepository) ListByOwner(ctx context.Context, ownerEmail string, limit, offset int) ([]domain.Issue, error) {
	const query = `SELECT ` + issueColumns + `
        FROM issues WHERE owner_email=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ownerEmail, normalizeLimit(limit), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

// ListWorkQueue returns issues assigned to the staff member plus pending
// issues in the staff member's district (exact string equality).
func (r *issueRepository) ListWorkQueue(ctx context.Context, staffEmail, district string, limit, offset int) ([]domain.Issue, error) {
	const query = `SELECT ` + issueColumns + `
        FROM issues
        WHERE assignee_email=$1 OR (status='PENDING' AND district=$2)
        ORDER BY (priority='HIGH') DESC, created_at ASC
        LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, query, staffEmail, district, normalizeLimit(limit), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

func (r *issueRepository) CountByStatusForOwner(ctx context.Context, ownerEmail string) (map[domain.IssueStatus]int, error) {
	const query = `SELECT status, COUNT(*) FROM issues WHERE owner_email=$1 GROUP BY status`
	rows, err := r.pool.Query(ctx, query, ownerEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.IssueStatus]int)
	for rows.Next() {
		var status domain.IssueStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// UpdateStatus is a compare-and-set on the current status.
func (r *issueRepository) UpdateStatus(ctx context.Context, id string, from, to domain.IssueStatus) error {
	const query = `UPDATE issues SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2`
	cmd, err := r.pool.Exec(ctx, query, id, from, to)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Assign sets the assignment and drives PENDING -> IN_PROGRESS in one
// statement; the guard rejects issues already assigned or past PENDING.
func (r *issueRepository) Assign(ctx context.Context, id, staffEmail, staffName string) error {
	const query = `
        UPDATE issues SET assignee_email=$2, assignee_name=$3, status='IN_PROGRESS', updated_at=NOW()
        WHERE id=$1 AND status='PENDING' AND assignee_email IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id, staffEmail, staffName)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AddVoter increments the counter and appends to the voter set atomically;
// the guard keeps out the owner and repeat voters even when votes race.
func (r *issueRepository) AddVoter(ctx context.Context, id, voterEmail string) (int, error) {
	const query = `
        UPDATE issues SET upvotes = upvotes + 1, voter_emails = array_append(voter_emails, $2), updated_at=NOW()
        WHERE id=$1 AND owner_email <> $2 AND NOT ($2 = ANY(voter_emails))
        RETURNING upvotes`
	var count int
	if err := r.pool.QueryRow(ctx, query, id, voterEmail).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// SetPriority is idempotent so a boost replay cannot corrupt state.
func (r *issueRepository) SetPriority(ctx context.Context, id string, priority domain.IssuePriority) error {
	const query = `UPDATE issues SET priority=$2, updated_at=NOW() WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id, priority)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *issueRepository) DeletePending(ctx context.Context, id string) error {
	const query = `DELETE FROM issues WHERE id=$1 AND status='PENDING'`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTargets(issue *domain.Issue) []any {
	return []any{
		&issue.ID,
		&issue.Title,
		&issue.Description,
		&issue.Category,
		&issue.Region,
		&issue.District,
		&issue.OwnerEmail,
		&issue.Status,
		&issue.Priority,
		&issue.Upvotes,
		&issue.VoterEmails,
		&issue.AssigneeEmail,
		&issue.AssigneeName,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	}
}

func scanIssues(rows pgx.Rows) ([]domain.Issue, error) {
	var result []domain.Issue
	for rows.Next() {
		var issue domain.Issue
		if err := rows.Scan(scanTargets(&issue)...); err != nil {
			return nil, err
		}
		result = append(result, issue)
	}
	return result, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
