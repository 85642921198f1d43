package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/civicworks/issue-service/internal/cache"
	"github.com/civicworks/issue-service/internal/checkout"
	"github.com/civicworks/issue-service/internal/config"
	"github.com/civicworks/issue-service/internal/domain"
	"github.com/civicworks/issue-service/internal/events"
	"github.com/civicworks/issue-service/internal/repository"
	"github.com/civicworks/issue-service/internal/timeline"
	"github.com/civicworks/issue-service/pkg/util"
)

const (
	metadataKindKey  = "kind"
	metadataIssueKey = "issue_id"
)

// PaymentService opens checkout sessions and reconciles confirmed payments.
// Reconciliation is replay-safe: the payment record insert is the idempotency
// gate, and every downstream mutation it guards is itself idempotent.
type PaymentService struct {
	provider   checkout.Provider
	payments   repository.PaymentRepository
	users      repository.UserRepository
	issues     repository.IssueRepository
	recorder   *timeline.Recorder
	cache      *cache.IssueCache
	dispatcher events.Dispatcher
	cfg        config.CheckoutConfig
}

// ReconcileResult reports the reconciliation outcome. AlreadyApplied is true
// when the transaction had been reconciled before and nothing was mutated.
type ReconcileResult struct {
	Record         *domain.PaymentRecord
	AlreadyApplied bool
}

// NewPaymentService constructs the service.
func NewPaymentService(
	provider checkout.Provider,
	payments repository.PaymentRepository,
	users repository.UserRepository,
	issues repository.IssueRepository,
	recorder *timeline.Recorder,
	issueCache *cache.IssueCache,
	dispatcher events.Dispatcher,
	cfg config.CheckoutConfig,
) *PaymentService {
	return &PaymentService{
		provider:   provider,
		payments:   payments,
		users:      users,
		issues:     issues,
		recorder:   recorder,
		cache:      issueCache,
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

// CreateSubscriptionCheckout opens a checkout session for a premium
// subscription.
func (s *PaymentService) CreateSubscriptionCheckout(ctx context.Context, actor domain.Identity) (*checkout.Session, error) {
	session, err := s.provider.CreateSession(ctx, checkout.CreateSessionInput{
		PayerEmail: actor.Email,
		Amount:     s.cfg.SubscriptionAmount,
		Currency:   s.cfg.Currency,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
		Metadata:   map[string]string{metadataKindKey: string(domain.PaymentKindSubscription)},
	})
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return session, nil
}

// CreateBoostCheckout opens a checkout session to boost one issue's priority.
// Only the issue's owner may boost it.
func (s *PaymentService) CreateBoostCheckout(ctx context.Context, actor domain.Identity, issueID string) (*checkout.Session, error) {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("issue", map[string]any{"issue_id": issueID})
		}
		return nil, util.MapError(err)
	}
	if issue.OwnerEmail != actor.Email {
		return nil, util.NewForbidden("only the issue owner can boost it")
	}
	if issue.Status == domain.IssueStatusClosed {
		return nil, util.NewInvalidState("closed issues cannot be boosted",
			map[string]any{"issue_id": issueID})
	}

	session, err := s.provider.CreateSession(ctx, checkout.CreateSessionInput{
		PayerEmail: actor.Email,
		Amount:     s.cfg.BoostAmount,
		Currency:   s.cfg.Currency,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
		Metadata: map[string]string{
			metadataKindKey:  string(domain.PaymentKindBoost),
			metadataIssueKey: issueID,
		},
	})
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return session, nil
}

// Reconcile resolves a checkout session and applies the payment exactly once.
// Record first, then apply: the transaction id's unique insert decides the
// winner, and replays return the stored outcome without touching state.
func (s *PaymentService) Reconcile(ctx context.Context, actor domain.Identity, sessionID string) (*ReconcileResult, error) {
	session, err := s.provider.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, checkout.ErrSessionNotFound) {
			return nil, util.NewInvalidSession("unknown checkout session")
		}
		return nil, util.NewInternalError(err)
	}
	if session.PaymentStatus != checkout.PaymentStatusPaid {
		return nil, util.NewInvalidSession("checkout session is not paid")
	}
	if session.TransactionID == "" {
		return nil, util.NewInvalidSession("checkout session carries no transaction id")
	}

	kind := domain.PaymentKind(session.Metadata[metadataKindKey])
	if kind != domain.PaymentKindSubscription && kind != domain.PaymentKindBoost {
		return nil, util.NewInvalidSession("checkout session has an unknown payment kind")
	}
	var issueID *string
	if kind == domain.PaymentKindBoost {
		id := session.Metadata[metadataIssueKey]
		if id == "" {
			return nil, util.NewInvalidSession("boost session carries no issue id")
		}
		issueID = &id
	}

	record := &domain.PaymentRecord{
		TransactionID: session.TransactionID,
		Kind:          kind,
		IssueID:       issueID,
		PayerEmail:    session.PayerEmail,
		Amount:        session.Amount,
		Currency:      session.Currency,
		Status:        session.PaymentStatus,
	}
	inserted, err := s.payments.InsertIfAbsent(ctx, record)
	if err != nil {
		return nil, util.MapError(err)
	}
	if !inserted {
		existing, err := s.payments.GetByTransactionID(ctx, session.TransactionID)
		if err != nil {
			return nil, util.MapError(err)
		}
		return &ReconcileResult{Record: existing, AlreadyApplied: true}, nil
	}

	if err := s.apply(ctx, actor, record); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:    events.EventPaymentReconciled,
		IssueID: derefString(record.IssueID),
		Actor:   events.Actor{Email: actor.Email, Role: actor.Role},
		Payload: events.PaymentReconciledPayload{
			TransactionID: record.TransactionID,
			Kind:          record.Kind,
		},
	})
	return &ReconcileResult{Record: record}, nil
}

func (s *PaymentService) apply(ctx context.Context, actor domain.Identity, record *domain.PaymentRecord) error {
	switch record.Kind {
	case domain.PaymentKindSubscription:
		if err := s.users.SetPremium(ctx, record.PayerEmail); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return util.NewNotFound("user", map[string]any{"email": record.PayerEmail})
			}
			return util.MapError(err)
		}
		return nil

	case domain.PaymentKindBoost:
		issueID := derefString(record.IssueID)
		if err := s.issues.SetPriority(ctx, issueID, domain.IssuePriorityHigh); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return util.NewNotFound("issue", map[string]any{"issue_id": issueID})
			}
			return util.MapError(err)
		}
		s.cache.Invalidate(ctx, issueID)
		if _, err := s.recorder.Append(ctx, issueID, timeline.Entry{
			Message:    "Priority boosted",
			ActorEmail: record.PayerEmail,
			ActorRole:  actor.Role,
		}); err != nil {
			return err
		}
		s.publish(ctx, events.Event{
			Type:    events.EventIssueBoosted,
			IssueID: issueID,
			Actor:   events.Actor{Email: actor.Email, Role: actor.Role},
			Payload: events.PaymentReconciledPayload{
				TransactionID: record.TransactionID,
				Kind:          record.Kind,
			},
		})
		return nil
	}
	return util.NewInvalidSession("unsupported payment kind")
}

func (s *PaymentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
