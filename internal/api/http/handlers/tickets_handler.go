package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/guregu/null/v5"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketsHandler manages ticket endpoints: mutations, queries, history and
// comments.
type TicketsHandler struct {
	tickets  *service.TicketService
	queries  *service.TicketQueryService
	comments *service.CommentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, queries *service.TicketQueryService, comments *service.CommentService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, queries: queries, comments: comments}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.CreateTicketInput{
		Subject:      req.Subject,
		Description:  req.Description,
		CategoryID:   req.CategoryID,
		AssignedToID: req.AssignedToID,
		DueDate:      req.DueDate,
	}
	if req.Status != nil {
		input.Status = *req.Status
	}
	if req.Priority != nil {
		input.Priority = *req.Priority
	}
	ticket, err := h.tickets.Create(c.Context(), input, principal.User.ID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	tickets, err := h.queries.List(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	details, err := h.queries.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(details)})
}

// UpdateTicket PATCH /tickets/:id. Field presence matters: absent fields are
// left untouched, an explicit null clears nullable fields.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	patch, err := parseTicketPatch(c.Body())
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Update(c.Context(), id, patch, principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.tickets.Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AssignTicket POST /tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		AssignedToID *int64 `json:"assigned_to_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.Assign(c.Context(), id, req.AssignedToID, principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ChangeStatus POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		Status domain.TicketStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.ChangeStatus(c.Context(), id, req.Status, principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetHistory GET /tickets/:id/history.
func (h *TicketsHandler) GetHistory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	entries, err := h.queries.History(c.Context(), id, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

// RecentTickets GET /tickets/recent.
func (h *TicketsHandler) RecentTickets(c *fiber.Ctx) error {
	tickets, err := h.queries.Recent(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// TicketStats GET /tickets/stats.
func (h *TicketsHandler) TicketStats(c *fiber.Ctx) error {
	stats, err := h.queries.Stats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.comments.Create(c.Context(), id, principal.User.ID, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	comments, err := h.comments.ListByTicket(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": commentResponses(comments)})
}

// DeleteComment DELETE /comments/:id.
func (h *TicketsHandler) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.comments.Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// parseTicketPatch decodes an update body keeping track of which keys were
// present. JSON null on category_id, assigned_to_id, resolution or due_date
// clears the field.
func parseTicketPatch(body []byte) (service.TicketPatch, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return service.TicketPatch{}, apperrors.NewValidationError("invalid payload", nil)
	}
	patch := service.TicketPatch{}
	for key, raw := range fields {
		switch key {
		case "subject":
			var v *string
			if err := json.Unmarshal(raw, &v); err != nil || v == nil {
				return service.TicketPatch{}, apperrors.NewValidationError("subject must be a string", map[string]any{"field": "subject"})
			}
			patch.Subject = v
		case "description":
			var v *string
			if err := json.Unmarshal(raw, &v); err != nil || v == nil {
				return service.TicketPatch{}, apperrors.NewValidationError("description must be a string", map[string]any{"field": "description"})
			}
			patch.Description = v
		case "status":
			var v *domain.TicketStatus
			if err := json.Unmarshal(raw, &v); err != nil || v == nil {
				return service.TicketPatch{}, apperrors.NewValidationError("status must be a string", map[string]any{"field": "status"})
			}
			patch.Status = v
		case "priority":
			var v *domain.TicketPriority
			if err := json.Unmarshal(raw, &v); err != nil || v == nil {
				return service.TicketPatch{}, apperrors.NewValidationError("priority must be a string", map[string]any{"field": "priority"})
			}
			patch.Priority = v
		case "category_id":
			var v *int64
			if err := json.Unmarshal(raw, &v); err != nil {
				return service.TicketPatch{}, apperrors.NewValidationError("category_id must be a number or null", map[string]any{"field": "category_id"})
			}
			category := null.IntFromPtr(v)
			patch.Category = &category
		case "assigned_to_id":
			var v *int64
			if err := json.Unmarshal(raw, &v); err != nil {
				return service.TicketPatch{}, apperrors.NewValidationError("assigned_to_id must be a number or null", map[string]any{"field": "assigned_to_id"})
			}
			assignee := null.IntFromPtr(v)
			patch.AssignedTo = &assignee
		case "resolution":
			var v *string
			if err := json.Unmarshal(raw, &v); err != nil {
				return service.TicketPatch{}, apperrors.NewValidationError("resolution must be a string or null", map[string]any{"field": "resolution"})
			}
			if v == nil {
				empty := ""
				v = &empty
			}
			patch.Resolution = v
		case "due_date":
			var v *time.Time
			if err := json.Unmarshal(raw, &v); err != nil {
				return service.TicketPatch{}, apperrors.NewValidationError("due_date must be a timestamp or null", map[string]any{"field": "due_date"})
			}
			due := null.TimeFromPtr(v)
			patch.DueDate = &due
		}
	}
	return patch, nil
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if id := parseInt64(c.Query("category_id")); id != nil {
		filter.CategoryID = id
	}
	if id := parseInt64(c.Query("created_by")); id != nil {
		filter.CreatedByID = id
	}
	if id := parseInt64(c.Query("assigned_to")); id != nil {
		filter.AssignedToID = id
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.SearchTerm = &q
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", map[string]any{"param": name})
	}
	return id, nil
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseInt64(val string) *int64 {
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil || parsed <= 0 {
		return nil
	}
	return &parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:           ticket.ID,
		ExternalKey:  ticket.ExternalKey,
		Subject:      ticket.Subject,
		Description:  ticket.Description,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		CategoryID:   ticket.CategoryID,
		CreatedByID:  ticket.CreatedByID,
		AssignedToID: ticket.AssignedToID,
		Resolution:   ticket.Resolution,
		DueDate:      ticket.DueDate,
		ResolvedAt:   ticket.ResolvedAt,
		ClosedAt:     ticket.ClosedAt,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
}

func ticketDetail(details *service.TicketDetails) dto.TicketDetailResponse {
	resp := dto.TicketDetailResponse{
		TicketResponse: ticketResponse(&details.Ticket),
		History:        historyResponses(details.History),
		Comments:       commentResponses(details.Comments),
	}
	if details.CreatedBy != nil {
		created := userResponse(details.CreatedBy)
		resp.CreatedBy = &created
	}
	if details.AssignedTo != nil {
		assigned := userResponse(details.AssignedTo)
		resp.AssignedTo = &assigned
	}
	if details.Category != nil {
		category := categoryResponse(details.Category)
		resp.Category = &category
	}
	return resp
}

func historyResponses(entries []domain.HistoryEntry) []dto.HistoryEntryResponse {
	resp := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.HistoryEntryResponse{
			ID:        entry.ID,
			TicketID:  entry.TicketID,
			UserID:    entry.UserID,
			Action:    entry.Action,
			Field:     entry.Field,
			OldValue:  entry.OldValue,
			NewValue:  entry.NewValue,
			CreatedAt: entry.CreatedAt,
		})
	}
	return resp
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		UserID:    comment.UserID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}

func commentResponses(comments []domain.Comment) []dto.CommentResponse {
	resp := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		resp = append(resp, commentResponse(&comments[i]))
	}
	return resp
}
