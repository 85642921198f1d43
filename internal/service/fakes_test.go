package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/civicworks/issue-service/internal/checkout"
	"github.com/civicworks/issue-service/internal/domain"
	"github.com/civicworks/issue-service/internal/repository"
)

// The fakes below mirror the guard semantics of the Postgres repositories:
// a mutation whose condition does not hold returns pgx.ErrNoRows, and each
// mutation is atomic under the store mutex.

type fakeIssueRepo struct {
	mu     sync.Mutex
	issues map[string]*domain.Issue
}

func newFakeIssueRepo() *fakeIssueRepo {
	return &fakeIssueRepo{issues: make(map[string]*domain.Issue)}
}

func (r *fakeIssueRepo) Create(_ context.Context, issue *domain.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue.ID = uuid.NewString()
	issue.CreatedAt = time.Now()
	issue.UpdatedAt = issue.CreatedAt
	if issue.VoterEmails == nil {
		issue.VoterEmails = []string{}
	}
	clone := *issue
	r.issues[issue.ID] = &clone
	return nil
}

func (r *fakeIssueRepo) GetByID(_ context.Context, id string) (*domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue, ok := r.issues[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *issue
	clone.VoterEmails = append([]string{}, issue.VoterEmails...)
	return &clone, nil
}

func (r *fakeIssueRepo) ListByOwner(_ context.Context, ownerEmail string, _, _ int) ([]domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Issue
	for _, issue := range r.issues {
		if issue.OwnerEmail == ownerEmail {
			result = append(result, *issue)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *fakeIssueRepo) ListWorkQueue(_ context.Context, staffEmail, district string, _, _ int) ([]domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Issue
	for _, issue := range r.issues {
		assigned := issue.AssigneeEmail != nil && *issue.AssigneeEmail == staffEmail
		pendingHere := issue.Status == domain.IssueStatusPending && issue.District == district
		if assigned || pendingHere {
			result = append(result, *issue)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority == domain.IssuePriorityHigh
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *fakeIssueRepo) CountByStatusForOwner(_ context.Context, ownerEmail string) (map[domain.IssueStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.IssueStatus]int)
	for _, issue := range r.issues {
		if issue.OwnerEmail == ownerEmail {
			counts[issue.Status]++
		}
	}
	return counts, nil
}

func (r *fakeIssueRepo) UpdateStatus(_ context.Context, id string, from, to domain.IssueStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue, ok := r.issues[id]
	if !ok || issue.Status != from {
		return pgx.ErrNoRows
	}
	issue.Status = to
	issue.UpdatedAt = time.Now()
	return nil
}

func (r *fakeIssueRepo) Assign(_ context.Context, id, staffEmail, staffName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue, ok := r.issues[id]
	if !ok || issue.Status != domain.IssueStatusPending || issue.AssigneeEmail != nil {
		return pgx.ErrNoRows
	}
	email, name := staffEmail, staffName
	issue.AssigneeEmail = &email
	issue.AssigneeName = &name
	issue.Status = domain.IssueStatusInProgress
	issue.UpdatedAt = time.Now()
	return nil
}

func (r *fakeIssueRepo) AddVoter(_ context.Context, id, voterEmail string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue, ok := r.issues[id]
	if !ok || issue.OwnerEmail == voterEmail {
		return 0, pgx.ErrNoRows
	}
	for _, voter := range issue.VoterEmails {
		if voter == voterEmail {
			return 0, pgx.ErrNoRows
		}
	}
	issue.VoterEmails = append(issue.VoterEmails, voterEmail)
	issue.Upvotes++
	issue.UpdatedAt = time.Now()
	return issue.Upvotes, nil
}

func (r *fakeIssueRepo) SetPriority(_ context.Context, id string, priority domain.IssuePriority) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue, ok := r.issues[id]
	if !ok {
		return pgx.ErrNoRows
	}
	issue.Priority = priority
	issue.UpdatedAt = time.Now()
	return nil
}

func (r *fakeIssueRepo) DeletePending(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue, ok := r.issues[id]
	if !ok || issue.Status != domain.IssueStatusPending {
		return pgx.ErrNoRows
	}
	delete(r.issues, id)
	return nil
}

type fakeTimelineRepo struct {
	mu      sync.Mutex
	entries map[string][]domain.TimelineEntry
}

func newFakeTimelineRepo() *fakeTimelineRepo {
	return &fakeTimelineRepo{entries: make(map[string][]domain.TimelineEntry)}
}

// Append clamps the timestamp like the SQL store: never earlier than the
// issue's latest entry.
func (r *fakeTimelineRepo) Append(_ context.Context, record *domain.TimelineEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.entries[record.IssueID]
	if n := len(existing); n > 0 && record.CreatedAt.Before(existing[n-1].CreatedAt) {
		record.CreatedAt = existing[n-1].CreatedAt
	}
	record.ID = uuid.NewString()
	r.entries[record.IssueID] = append(existing, *record)
	return nil
}

func (r *fakeTimelineRepo) ListByIssue(_ context.Context, issueID string) ([]domain.TimelineEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.TimelineEntry{}, r.entries[issueID]...), nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) put(user domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.Email] = &user
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.Email] = &clone
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Email]; !ok {
		return pgx.ErrNoRows
	}
	clone := *user
	r.users[user.Email] = &clone
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) SetPremium(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		return pgx.ErrNoRows
	}
	user.IsPremium = true
	return nil
}

func (r *fakeUserRepo) SetRole(_ context.Context, email string, role domain.Role, district *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Role = role
	user.District = district
	return nil
}

type fakePaymentRepo struct {
	mu      sync.Mutex
	records map[string]*domain.PaymentRecord
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{records: make(map[string]*domain.PaymentRecord)}
}

func (r *fakePaymentRepo) InsertIfAbsent(_ context.Context, record *domain.PaymentRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[record.TransactionID]; exists {
		return false, nil
	}
	record.ID = uuid.NewString()
	record.CreatedAt = time.Now()
	clone := *record
	r.records[record.TransactionID] = &clone
	return true, nil
}

func (r *fakePaymentRepo) GetByTransactionID(_ context.Context, transactionID string) (*domain.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[transactionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

type fakeApplicationRepo struct {
	mu     sync.Mutex
	apps   map[string]*domain.StaffApplication
	events map[string][]domain.ApplicationEvent
}

func newFakeApplicationRepo() *fakeApplicationRepo {
	return &fakeApplicationRepo{
		apps:   make(map[string]*domain.StaffApplication),
		events: make(map[string][]domain.ApplicationEvent),
	}
}

func (r *fakeApplicationRepo) Create(_ context.Context, app *domain.StaffApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app.ID = uuid.NewString()
	app.CreatedAt = time.Now()
	app.UpdatedAt = app.CreatedAt
	clone := *app
	r.apps[app.ID] = &clone
	return nil
}

func (r *fakeApplicationRepo) GetByID(_ context.Context, id string) (*domain.StaffApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *app
	return &clone, nil
}

func (r *fakeApplicationRepo) List(_ context.Context, status *domain.ApplicationStatus, _, _ int) ([]domain.StaffApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.StaffApplication
	for _, app := range r.apps {
		if status == nil || app.Status == *status {
			result = append(result, *app)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *fakeApplicationRepo) UpdateStatus(_ context.Context, id string, from, to domain.ApplicationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok || app.Status != from {
		return pgx.ErrNoRows
	}
	app.Status = to
	app.UpdatedAt = time.Now()
	return nil
}

func (r *fakeApplicationRepo) AppendEvent(_ context.Context, event *domain.ApplicationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = uuid.NewString()
	event.CreatedAt = time.Now()
	r.events[event.ApplicationID] = append(r.events[event.ApplicationID], *event)
	return nil
}

func (r *fakeApplicationRepo) ListEvents(_ context.Context, applicationID string) ([]domain.ApplicationEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ApplicationEvent{}, r.events[applicationID]...), nil
}

type fakeCheckoutProvider struct {
	mu       sync.Mutex
	sessions map[string]*checkout.Session
	created  []checkout.CreateSessionInput
}

func newFakeCheckoutProvider() *fakeCheckoutProvider {
	return &fakeCheckoutProvider{sessions: make(map[string]*checkout.Session)}
}

func (p *fakeCheckoutProvider) addSession(session checkout.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[session.ID] = &session
}

func (p *fakeCheckoutProvider) CreateSession(_ context.Context, input checkout.CreateSessionInput) (*checkout.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, input)
	session := &checkout.Session{
		ID:            uuid.NewString(),
		TransactionID: uuid.NewString(),
		URL:           "https://checkout.example/" + uuid.NewString(),
		PaymentStatus: "open",
		PayerEmail:    input.PayerEmail,
		Amount:        input.Amount,
		Currency:      input.Currency,
		Metadata:      input.Metadata,
	}
	p.sessions[session.ID] = session
	return session, nil
}

func (p *fakeCheckoutProvider) GetSession(_ context.Context, sessionID string) (*checkout.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	session, ok := p.sessions[sessionID]
	if !ok {
		return nil, checkout.ErrSessionNotFound
	}
	clone := *session
	return &clone, nil
}

var _ repository.IssueRepository = (*fakeIssueRepo)(nil)
var _ repository.TimelineRepository = (*fakeTimelineRepo)(nil)
var _ repository.UserRepository = (*fakeUserRepo)(nil)
var _ repository.PaymentRepository = (*fakePaymentRepo)(nil)
var _ repository.ApplicationRepository = (*fakeApplicationRepo)(nil)
var _ checkout.Provider = (*fakeCheckoutProvider)(nil)
