package checkout

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned when the provider does not know the
// session id.
var ErrSessionNotFound = errors.New("checkout session not found")

// PaymentStatusPaid is the provider's status for a completed payment.
const PaymentStatusPaid = "paid"

// Session is a checkout session at the external provider. TransactionID is
// the provider's unique transaction reference used as the reconciliation
// idempotency key.
type Session struct {
	ID            string            `json:"id"`
	TransactionID string            `json:"transaction_id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	PayerEmail    string            `json:"payer_email"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

// CreateSessionInput describes a session to open.
type CreateSessionInput struct {
	PayerEmail string            `json:"payer_email"`
	Amount     int64             `json:"amount"`
	Currency   string            `json:"currency"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	Metadata   map[string]string `json:"metadata"`
}

// Provider is the external checkout collaborator boundary.
type Provider interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}
