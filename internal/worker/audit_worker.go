package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/civicworks/issue-service/internal/events"
)

// StartAuditWorker subscribes a structured-log sink to every domain event.
// Issue state already lands in the timeline; this stream is for operators.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil || logger == nil {
		return
	}

	handler := func(_ context.Context, event events.Event) error {
		logger.Info("domain event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.String("issue_id", event.IssueID),
			zap.String("actor_email", event.Actor.Email),
			zap.String("actor_role", string(event.Actor.Role)),
			zap.Time("timestamp", event.Timestamp),
			zap.Any("payload", event.Payload),
		)
		return nil
	}

	for _, eventType := range []events.EventType{
		events.EventIssueCreated,
		events.EventIssueStatusChanged,
		events.EventIssueAssigned,
		events.EventIssueUpvoted,
		events.EventIssueBoosted,
		events.EventPaymentReconciled,
	} {
		dispatcher.Subscribe(eventType, handler)
	}
}
