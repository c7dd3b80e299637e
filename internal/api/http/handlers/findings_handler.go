package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/plantops/finding-service/internal/api/dto"
	"github.com/plantops/finding-service/internal/auth"
	"github.com/plantops/finding-service/internal/domain"
	"github.com/plantops/finding-service/internal/repository"
	"github.com/plantops/finding-service/internal/service"
	"github.com/plantops/finding-service/pkg/util"
)

// FindingsHandler serves the abnormal-finding surface: reporting, lifecycle
// actions, history, comments and evidence metadata.
type FindingsHandler struct {
	lifecycle   *service.LifecycleService
	assignments *service.AssignmentService
	comments    repository.CommentRepository
	evidence    repository.EvidenceStore
}

// NewFindingsHandler builds the handler.
func NewFindingsHandler(
	lifecycle *service.LifecycleService,
	assignments *service.AssignmentService,
	comments repository.CommentRepository,
	evidence repository.EvidenceStore,
) *FindingsHandler {
	return &FindingsHandler{
		lifecycle:   lifecycle,
		assignments: assignments,
		comments:    comments,
		evidence:    evidence,
	}
}

// Report handles POST /findings.
func (h *FindingsHandler) Report(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}

	var req dto.ReportFindingRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}

	ticket, err := h.lifecycle.ReportFinding(c.UserContext(), principal.Actor(), service.ReportFindingInput{
		Title:         req.Title,
		Description:   req.Description,
		CriticalLevel: domain.CriticalLevel(req.CriticalLevel),
		EquipmentID:   req.EquipmentID,
		LocationID:    req.LocationID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.FromTicket(ticket))
}

// ApplyAction handles POST /findings/:id/actions.
func (h *FindingsHandler) ApplyAction(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}

	var req dto.ActionRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}
	if strings.TrimSpace(req.Action) == "" {
		return util.NewValidationError("action required", nil)
	}

	ticket, err := h.lifecycle.ApplyAction(
		c.UserContext(),
		c.Params("id"),
		domain.ActionName(req.Action),
		principal.Actor(),
		req.Payload(),
	)
	if err != nil {
		return err
	}
	if domain.ActionName(req.Action) == domain.ActionDelete {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"deleted":   true,
			"ticket_no": ticket.TicketNo,
		})
	}
	return c.JSON(dto.FromTicket(ticket))
}

// Get handles GET /findings/:id.
func (h *FindingsHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.lifecycle.GetFinding(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

// List handles GET /findings.
func (h *FindingsHandler) List(c *fiber.Ctx) error {
	filter := repository.TicketFilter{
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if v := c.Query("reporter_id"); v != "" {
		filter.ReporterID = &v
	}
	if v := c.Query("assigned_to"); v != "" {
		filter.AssignedTo = &v
	}
	if v := c.Query("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(s)))
		}
	}
	if v := c.Query("critical_level"); v != "" {
		level := domain.CriticalLevel(v)
		filter.CriticalLevel = &level
	}
	if v := c.Query("equipment_id"); v != "" {
		filter.EquipmentID = &v
	}
	if v := c.Query("location_id"); v != "" {
		filter.LocationID = &v
	}
	if t, ok := parseTimeQuery(c, "created_from"); ok {
		filter.CreatedFrom = t
	}
	if t, ok := parseTimeQuery(c, "created_to"); ok {
		filter.CreatedTo = t
	}

	tickets, err := h.lifecycle.ListFindings(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"findings": dto.FromTickets(tickets)})
}

// History handles GET /findings/:id/history.
func (h *FindingsHandler) History(c *fiber.Ctx) error {
	entries, err := h.lifecycle.ListHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"history": dto.FromHistory(entries)})
}

// CreateComment handles POST /findings/:id/comments.
func (h *FindingsHandler) CreateComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}

	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return util.NewValidationError("comment body required", nil)
	}

	// Existence check keeps orphan comments out.
	if _, err := h.lifecycle.GetFinding(c.UserContext(), c.Params("id")); err != nil {
		return err
	}

	comment := &domain.Comment{
		TicketID: c.Params("id"),
		AuthorID: principal.Employee.ID,
		Body:     body,
	}
	if err := h.comments.Create(c.UserContext(), comment); err != nil {
		return util.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(dto.FromComments([]domain.Comment{*comment})[0])
}

// ListComments handles GET /findings/:id/comments.
func (h *FindingsHandler) ListComments(c *fiber.Ctx) error {
	comments, err := h.comments.ListByTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return util.MapError(err)
	}
	return c.JSON(fiber.Map{"comments": dto.FromComments(comments)})
}

// RegisterEvidence handles POST /findings/:id/evidence.
func (h *FindingsHandler) RegisterEvidence(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}

	var req dto.RegisterEvidenceRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}

	tag := domain.EvidenceTag(strings.ToUpper(strings.TrimSpace(req.Tag)))
	var violations []util.FieldViolation
	if tag != domain.EvidenceBefore && tag != domain.EvidenceAfter {
		violations = append(violations, util.FieldViolation{Field: "tag", Reason: "must be BEFORE or AFTER"})
	}
	if strings.TrimSpace(req.StorageKey) == "" {
		violations = append(violations, util.FieldViolation{Field: "storage_key", Reason: "required"})
	}
	if len(violations) > 0 {
		return util.NewValidationFailed(violations)
	}

	if _, err := h.lifecycle.GetFinding(c.UserContext(), c.Params("id")); err != nil {
		return err
	}

	artifact := &domain.EvidenceArtifact{
		TicketID:   c.Params("id"),
		UploaderID: principal.Employee.ID,
		Tag:        tag,
		StorageKey: req.StorageKey,
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
	}
	if err := h.evidence.Create(c.UserContext(), artifact); err != nil {
		return util.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(dto.FromEvidence([]domain.EvidenceArtifact{*artifact})[0])
}

// ListEvidence handles GET /findings/:id/evidence.
func (h *FindingsHandler) ListEvidence(c *fiber.Ctx) error {
	artifacts, err := h.evidence.ListByTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return util.MapError(err)
	}
	return c.JSON(fiber.Map{"evidence": dto.FromEvidence(artifacts)})
}

// ListAssignees handles GET /assignees.
func (h *FindingsHandler) ListAssignees(c *fiber.Ctx) error {
	minLevel := parseIntQuery(c, "min_level", domain.LevelEngineer)
	escalationOnly := c.Query("escalation") == "true"

	candidates, err := h.assignments.Candidates(c.UserContext(), minLevel, escalationOnly)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"assignees": dto.FromEmployees(candidates)})
}

func parseIntQuery(c *fiber.Ctx, key string, fallback int) int {
	val := c.Query(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, bool) {
	val := c.Query(key)
	if val == "" {
		return nil, false
	}
	parsed, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, false
	}
	return &parsed, true
}
