package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-desk/internal/api/dto"
	"github.com/spec-kit/grievance-desk/internal/auth"
	"github.com/spec-kit/grievance-desk/internal/domain"
	"github.com/spec-kit/grievance-desk/internal/events"
	"github.com/spec-kit/grievance-desk/internal/query"
	"github.com/spec-kit/grievance-desk/internal/service"
	apperrors "github.com/spec-kit/grievance-desk/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints for both submitters and admins.
type TicketsHandler struct {
	store *service.TicketStore
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(store *service.TicketStore) *TicketsHandler {
	return &TicketsHandler{store: store}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	assignee := trimmedID(req.AssigneeID)
	if (strings.TrimSpace(req.Status) != "" || assignee != nil) && !principal.IsAdmin() {
		return apperrors.NewForbidden("only admins may set status or assignee")
	}

	input := domain.NewTicket{
		Title:       req.Title,
		Description: req.Description,
		Attachment:  req.Attachment.ToDomain(),
		CreatedBy:   principal.User.ID,
		AssigneeID:  assignee,
	}
	var err error
	if strings.TrimSpace(req.Category) != "" {
		if input.Category, err = domain.ParseTicketCategory(req.Category); err != nil {
			return err
		}
	}
	if strings.TrimSpace(req.Priority) != "" {
		if input.Priority, err = domain.ParseTicketPriority(req.Priority); err != nil {
			return err
		}
	}
	if strings.TrimSpace(req.Status) != "" {
		status, err := domain.ParseTicketStatus(req.Status)
		if err != nil {
			return err
		}
		input.Status = &status
	}

	ticket, err := h.store.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	spec, err := query.ParseSpec(c.Query("search"), c.Query("category"), c.Query("status"), c.Query("sort_by"))
	if err != nil {
		return err
	}
	tickets := query.Filter(h.visible(c, principal), spec)
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

// GroupedTickets GET /tickets/grouped.
func (h *TicketsHandler) GroupedTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	groups := query.GroupByStatus(h.visible(c, principal))
	resp := make([]dto.StatusGroupResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, dto.StatusGroupResponse{
			Status:  g.Status,
			Count:   len(g.Tickets),
			Tickets: dto.NewTicketResponses(g.Tickets),
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, err := h.store.Get(c.Params("id"))
	if err != nil {
		return err
	}
	if !canView(principal, ticket) {
		// Hide other users' tickets entirely.
		return apperrors.NewNotFound("ticket", nil)
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateTicket PATCH /tickets/:id. Owners may edit the content fields; status,
// priority and assignee are reserved to admins.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	id := c.Params("id")
	current, err := h.store.Get(id)
	if err != nil {
		return err
	}
	if !canView(principal, current) {
		return apperrors.NewNotFound("ticket", nil)
	}

	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TouchesTriageFields() && !principal.IsAdmin() {
		return apperrors.NewForbidden("only admins may change status, priority or assignee")
	}

	patch, err := toPatch(req)
	if err != nil {
		return err
	}
	actor := events.Actor{UserID: principal.User.ID, Role: principal.User.Role}
	ticket, err := h.store.Update(c.UserContext(), actor, id, patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// visible returns the caller's working set: admins see everything unless
// they ask for ?mine=true, everyone else sees only what they created.
func (h *TicketsHandler) visible(c *fiber.Ctx, principal *auth.Principal) []domain.Ticket {
	tickets := h.store.List()
	mine, _ := strconv.ParseBool(c.Query("mine"))
	if principal.IsAdmin() && !mine {
		return tickets
	}
	return query.OwnedBy(tickets, principal.User.ID)
}

func canView(principal *auth.Principal, ticket domain.Ticket) bool {
	return principal.IsAdmin() || ticket.CreatedBy == principal.User.ID
}

func toPatch(req dto.UpdateTicketRequest) (domain.TicketPatch, error) {
	patch := domain.TicketPatch{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Category != nil {
		category, err := domain.ParseTicketCategory(*req.Category)
		if err != nil {
			return patch, err
		}
		patch.Category = &category
	}
	if req.Priority != nil {
		priority, err := domain.ParseTicketPriority(*req.Priority)
		if err != nil {
			return patch, err
		}
		patch.Priority = &priority
	}
	if req.Status != nil {
		status, err := domain.ParseTicketStatus(*req.Status)
		if err != nil {
			return patch, err
		}
		patch.Status = &status
	}
	if req.AssigneeID.Set {
		patch.Assignee = &domain.OptionalID{Value: trimmedID(req.AssigneeID.Value)}
	}
	if req.Attachment.Set {
		patch.Attachment = &domain.OptionalAttachment{Value: req.Attachment.Value.ToDomain()}
	}
	return patch, nil
}

// trimmedID treats a blank id as absent.
func trimmedID(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}
