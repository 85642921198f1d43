package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicworks/issue-service/internal/api/dto"
	"github.com/civicworks/issue-service/internal/service"
	"github.com/civicworks/issue-service/pkg/util"
)

// PaymentsHandler manages checkout and reconciliation endpoints.
type PaymentsHandler struct {
	payments *service.PaymentService
}

// NewPaymentsHandler constructs handler.
func NewPaymentsHandler(payments *service.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{payments: payments}
}

// CreateSubscriptionCheckout POST /payments/subscription/checkout.
func (h *PaymentsHandler) CreateSubscriptionCheckout(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	session, err := h.payments.CreateSubscriptionCheckout(c.Context(), identity)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.CheckoutSessionResponse{
		SessionID: session.ID,
		URL:       session.URL,
		Amount:    session.Amount,
		Currency:  session.Currency,
	}})
}

// CreateBoostCheckout POST /payments/issues/:id/boost/checkout.
func (h *PaymentsHandler) CreateBoostCheckout(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	session, err := h.payments.CreateBoostCheckout(c.Context(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.CheckoutSessionResponse{
		SessionID: session.ID,
		URL:       session.URL,
		Amount:    session.Amount,
		Currency:  session.Currency,
	}})
}

// Reconcile POST /payments/reconcile.
func (h *PaymentsHandler) Reconcile(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.ReconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.SessionID == "" {
		return util.NewValidationError("session_id required", nil)
	}

	result, err := h.payments.Reconcile(c.Context(), identity, req.SessionID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ReconcileResponse{
		TransactionID:  result.Record.TransactionID,
		Kind:           result.Record.Kind,
		IssueID:        result.Record.IssueID,
		AlreadyApplied: result.AlreadyApplied,
		CreatedAt:      result.Record.CreatedAt,
	}})
}
