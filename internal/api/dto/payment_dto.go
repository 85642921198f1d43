package dto

import (
	"time"

	"github.com/civicworks/issue-service/internal/domain"
)

// CheckoutSessionResponse points the client at the provider's payment page.
type CheckoutSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// ReconcileRequest payload.
type ReconcileRequest struct {
	SessionID string `json:"session_id"`
}

// ReconcileResponse reports the reconciliation outcome.
type ReconcileResponse struct {
	TransactionID  string             `json:"transaction_id"`
	Kind           domain.PaymentKind `json:"kind"`
	IssueID        *string            `json:"issue_id,omitempty"`
	AlreadyApplied bool               `json:"already_applied"`
	CreatedAt      time.Time          `json:"created_at"`
}
