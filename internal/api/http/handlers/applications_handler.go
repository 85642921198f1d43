package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicworks/issue-service/internal/api/dto"
	"github.com/civicworks/issue-service/internal/domain"
	"github.com/civicworks/issue-service/internal/service"
	"github.com/civicworks/issue-service/pkg/util"
)

// ApplicationsHandler manages staff application endpoints.
type ApplicationsHandler struct {
	applications *service.ApplicationService
}

// NewApplicationsHandler constructs handler.
func NewApplicationsHandler(applications *service.ApplicationService) *ApplicationsHandler {
	return &ApplicationsHandler{applications: applications}
}

// Submit POST /applications.
func (h *ApplicationsHandler) Submit(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.SubmitApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	app, err := h.applications.Submit(c.Context(), identity, req.Name, req.District)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": applicationResponse(app)})
}

// List GET /admin/applications.
func (h *ApplicationsHandler) List(c *fiber.Ctx) error {
	var status *domain.ApplicationStatus
	if statusStr := c.Query("status"); statusStr != "" {
		parsed := domain.ApplicationStatus(statusStr)
		switch parsed {
		case domain.ApplicationStatusPending, domain.ApplicationStatusAccepted, domain.ApplicationStatusRejected:
			status = &parsed
		default:
			return util.NewValidationError("unknown application status", map[string]any{"status": statusStr})
		}
	}
	limit, offset := parsePagination(c)

	apps, err := h.applications.List(c.Context(), status, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.ApplicationResponse, 0, len(apps))
	for i := range apps {
		items = append(items, applicationResponse(&apps[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /admin/applications/:id.
func (h *ApplicationsHandler) Get(c *fiber.Ctx) error {
	app, appEvents, err := h.applications.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	eventsResp := make([]dto.ApplicationEventResponse, 0, len(appEvents))
	for _, event := range appEvents {
		eventsResp = append(eventsResp, dto.ApplicationEventResponse{
			ID:         event.ID,
			Status:     event.Status,
			Message:    event.Message,
			ActorEmail: event.ActorEmail,
			ActorRole:  event.ActorRole,
			CreatedAt:  event.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": dto.ApplicationDetailResponse{
		ApplicationResponse: applicationResponse(app),
		Events:              eventsResp,
	}})
}

// Accept POST /admin/applications/:id/accept.
func (h *ApplicationsHandler) Accept(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	app, err := h.applications.Accept(c.Context(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationResponse(app)})
}

// Reject POST /admin/applications/:id/reject.
func (h *ApplicationsHandler) Reject(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.RejectApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	app, err := h.applications.Reject(c.Context(), identity, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationResponse(app)})
}
