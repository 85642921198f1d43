package domain

import "time"

// PaymentKind differentiates what a confirmed payment applies to.
type PaymentKind string

const (
	PaymentKindSubscription PaymentKind = "SUBSCRIPTION"
	PaymentKindBoost        PaymentKind = "BOOST"
)

// PaymentRecord is immutable once inserted. The unique external
// TransactionID is the idempotency key: the record's existence is the proof
// that reconciliation already ran.
type PaymentRecord struct {
	ID            string
	TransactionID string
	Kind          PaymentKind
	IssueID       *string
	PayerEmail    string
	Amount        int64
	Currency      string
	Status        string
	CreatedAt     time.Time
}
