package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/plantops/finding-service/internal/domain"
	"github.com/plantops/finding-service/internal/events"
	"github.com/plantops/finding-service/internal/observability"
	"github.com/plantops/finding-service/internal/policy"
	"github.com/plantops/finding-service/internal/repository"
	"github.com/plantops/finding-service/pkg/util"
)

// LifecycleService is the ticket lifecycle engine. Every status mutation in
// the system flows through ApplyAction: one transaction per action, policy
// checked before any write, history appended atomically with the change.
type LifecycleService struct {
	store       repository.TicketStore
	history     repository.HistoryRepository
	directory   repository.Directory
	evidence    repository.EvidenceStore
	assignments *AssignmentService
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger

	// Now is the engine clock; overridable in tests.
	Now func() time.Time
}

// LifecycleDependencies bundles collaborators for the engine.
type LifecycleDependencies struct {
	Store       repository.TicketStore
	HistoryRepo repository.HistoryRepository
	Directory   repository.Directory
	Evidence    repository.EvidenceStore
	Assignments *AssignmentService
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewLifecycleService constructs the engine.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		store:       deps.Store,
		history:     deps.HistoryRepo,
		directory:   deps.Directory,
		evidence:    deps.Evidence,
		assignments: deps.Assignments,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		Now:         time.Now,
	}
}

// ReportFindingInput describes a new abnormal finding.
type ReportFindingInput struct {
	Title         string
	Description   string
	CriticalLevel domain.CriticalLevel
	EquipmentID   *string
	LocationID    *string
}

// ReportFinding creates a ticket in state open on behalf of the reporter.
func (s *LifecycleService) ReportFinding(ctx context.Context, reporter domain.ActorRef, input ReportFindingInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, util.NewValidationError("title required", nil)
	}
	ticket := &domain.Ticket{
		TicketNo:      generateTicketNo(),
		ReporterID:    reporter.ID,
		Title:         title,
		Description:   strings.TrimSpace(input.Description),
		Status:        domain.StatusOpen,
		CriticalLevel: input.CriticalLevel,
		EquipmentID:   input.EquipmentID,
		LocationID:    input.LocationID,
	}
	if ticket.CriticalLevel == "" {
		ticket.CriticalLevel = domain.CriticalMedium
	}
	if err := s.store.Create(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}
	s.publish(ctx, s.newEvent(events.EventFindingReported, ticket.ID, reporter, events.FindingReportedPayload{
		TicketNo:      ticket.TicketNo,
		Title:         ticket.Title,
		CriticalLevel: ticket.CriticalLevel,
		EquipmentID:   ticket.EquipmentID,
		LocationID:    ticket.LocationID,
	}))
	return ticket, nil
}

// ApplyAction validates and applies one lifecycle action. On success the
// returned ticket is the authoritative post-transition state; on failure the
// transaction rolls back in full and the error carries the taxonomy code.
func (s *LifecycleService) ApplyAction(ctx context.Context, ticketID string, action domain.ActionName, actor domain.ActorRef, payload domain.ActionPayload) (*domain.Ticket, error) {
	level, err := s.directory.ResolveApprovalLevel(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewUnauthorized("unknown or inactive actor")
		}
		return nil, util.MapError(err)
	}

	var (
		result  *domain.Ticket
		emitted []events.Event
	)

	err = s.store.InTx(ctx, func(ctx context.Context, tx repository.TicketTx) error {
		ticket, err := tx.GetForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return util.MapError(err)
		}

		standing := policy.StandingFor(level, actor.ID, ticket)

		rule, ok := policy.Lookup(action, ticket.Status)
		if !ok {
			return util.NewInvalidTransition(string(action), string(ticket.Status))
		}
		if err := rule.Authorize(standing, ticket); err != nil {
			return err
		}

		env := policy.Env{Now: s.Now()}
		if action == domain.ActionFinish {
			has, err := s.evidence.HasAfterEvidence(ctx, ticket.ID)
			if err != nil {
				return util.MapError(err)
			}
			env.HasAfterEvidence = has
		}
		if violations := rule.Validate(ticket, payload, env); len(violations) > 0 {
			return util.NewValidationFailed(violations)
		}

		fromStatus := ticket.Status
		prevAssignee := ticket.AssignedTo

		if p, ok := payload.(domain.DeletePayload); ok {
			return s.deleteTicket(ctx, tx, ticket, actor, p, &result, &emitted)
		}

		comment, err := s.applyPayload(ctx, ticket, standing, actor, payload, &emitted)
		if err != nil {
			return err
		}

		ticket.Status = rule.Target(standing, ticket)
		if err := tx.Update(ctx, ticket); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return util.NewConcurrentModification(ticket.ID)
			}
			return util.MapError(err)
		}

		if err := tx.AppendHistory(ctx, &domain.StatusHistoryEntry{
			TicketID:   ticket.ID,
			FromStatus: fromStatus,
			ToStatus:   ticket.Status,
			ActorID:    actor.ID,
			Comment:    comment,
		}); err != nil {
			return util.MapError(err)
		}

		if !sameAssignee(prevAssignee, ticket.AssignedTo) {
			if err := tx.AppendHistory(ctx, &domain.StatusHistoryEntry{
				TicketID:   ticket.ID,
				FromStatus: ticket.Status,
				ToStatus:   ticket.Status,
				ActorID:    actor.ID,
				ToUserID:   ticket.AssignedTo,
				Comment:    "assignment changed",
			}); err != nil {
				return util.MapError(err)
			}
			emitted = append(emitted, s.newEvent(events.EventAssignmentChanged, ticket.ID, actor, events.AssignmentChangedPayload{
				Action:       action,
				FromAssignee: prevAssignee,
				ToAssignee:   ticket.AssignedTo,
			}))
		}

		emitted = append(emitted, s.newEvent(events.EventStatusChanged, ticket.ID, actor, events.StatusChangedPayload{
			Action:     action,
			FromStatus: fromStatus,
			ToStatus:   ticket.Status,
			Comment:    comment,
		}))

		result = ticket
		return nil
	})

	if s.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = util.CodeOf(err)
		}
		s.metrics.RecordAction(string(action), outcome)
	}
	if err != nil {
		return nil, err
	}

	// Notifications run strictly after commit; dispatcher failures are the
	// dispatcher's problem, never the caller's.
	for _, event := range emitted {
		s.publish(ctx, event)
	}
	return result, nil
}

// applyPayload mutates ticket fields for the already-authorized and
// validated action, and returns the history comment.
func (s *LifecycleService) applyPayload(ctx context.Context, ticket *domain.Ticket, standing domain.RoleStanding, actor domain.ActorRef, payload domain.ActionPayload, emitted *[]events.Event) (string, error) {
	switch p := payload.(type) {
	case domain.AcceptPayload:
		if p.NewLocationID != nil {
			ticket.LocationID = p.NewLocationID
		}
		if p.NewEquipmentID != nil {
			ticket.EquipmentID = p.NewEquipmentID
		}
		if p.NewCriticalLevel != nil {
			ticket.CriticalLevel = *p.NewCriticalLevel
		}
		return p.Note, nil

	case domain.PlanPayload:
		if standing.ApprovalLevel == domain.LevelEngineer && p.AssigneeID != standing.ActorID {
			return "", util.NewSelfAssignmentNotAllowed()
		}
		assignee, err := s.assignments.ValidateAssignee(ctx, p.AssigneeID, domain.LevelEngineer)
		if err != nil {
			return "", err
		}
		ticket.AssignedTo = &assignee.ID
		ticket.ScheduleStart = p.ScheduleStart
		ticket.ScheduleFinish = p.ScheduleFinish
		return "", nil

	case domain.StartPayload:
		ticket.ActualStartAt = p.ActualStartAt
		return "", nil

	case domain.RejectPayload:
		return p.Reason, nil

	case domain.FinishPayload:
		ticket.DowntimeAvoidanceHours = p.DowntimeAvoidanceHours
		ticket.CostAvoidance = p.CostAvoidance
		ticket.FailureModeID = p.FailureModeID
		ticket.ActualFinishAt = p.ActualFinishAt
		return "", nil

	case domain.EscalatePayload:
		target, err := s.assignments.ValidateEscalationTarget(ctx, p.TargetID)
		if err != nil {
			return "", err
		}
		ticket.AssignedTo = &target.ID
		*emitted = append(*emitted, s.newEvent(events.EventEscalated, ticket.ID, actor, events.EscalatedPayload{
			Reason:   p.Reason,
			TargetID: target.ID,
		}))
		return p.Reason, nil

	case domain.ApproveReviewPayload:
		if p.SatisfactionRating != nil {
			ticket.SatisfactionRating = p.SatisfactionRating
		}
		return p.Note, nil

	case domain.ReopenPayload:
		// Work resumes: the next finish must record a fresh completion time.
		ticket.ActualFinishAt = nil
		return p.Reason, nil

	case domain.ApproveClosePayload:
		return p.Note, nil

	case domain.ReassignPayload:
		assignee, err := s.assignments.ValidateAssignee(ctx, p.AssigneeID, domain.LevelEngineer)
		if err != nil {
			return "", err
		}
		ticket.AssignedTo = &assignee.ID
		ticket.ScheduleStart = p.ScheduleStart
		ticket.ScheduleFinish = p.ScheduleFinish
		return "", nil
	}
	return "", util.NewValidationError("unsupported payload", nil)
}

// deleteTicket performs the audited destructive removal: the audit entry and
// the row removal commit together, and the history outlives the ticket.
func (s *LifecycleService) deleteTicket(ctx context.Context, tx repository.TicketTx, ticket *domain.Ticket, actor domain.ActorRef, payload domain.DeletePayload, result **domain.Ticket, emitted *[]events.Event) error {
	if err := tx.AppendHistory(ctx, &domain.StatusHistoryEntry{
		TicketID:   ticket.ID,
		FromStatus: ticket.Status,
		ToStatus:   ticket.Status,
		ActorID:    actor.ID,
		Comment:    payload.Reason,
	}); err != nil {
		return util.MapError(err)
	}
	if err := tx.Delete(ctx, ticket.ID); err != nil {
		return util.MapError(err)
	}
	*result = ticket
	*emitted = append(*emitted, s.newEvent(events.EventFindingDeleted, ticket.ID, actor, events.FindingDeletedPayload{
		TicketNo: ticket.TicketNo,
		Reason:   payload.Reason,
	}))
	return nil
}

// GetFinding loads a ticket by id.
func (s *LifecycleService) GetFinding(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.store.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, util.MapError(err)
	}
	return ticket, nil
}

// ListFindings returns tickets matching the filter.
func (s *LifecycleService) ListFindings(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.store.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}
	return tickets, nil
}

// ListHistory returns the audit trail for a ticket, oldest first.
func (s *LifecycleService) ListHistory(ctx context.Context, ticketID string) ([]domain.StatusHistoryEntry, error) {
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	return entries, nil
}

func (s *LifecycleService) newEvent(eventType events.EventType, ticketID string, actor domain.ActorRef, payload any) events.Event {
	return events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: s.Now(),
		Payload:   payload,
	}
}

func (s *LifecycleService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func generateTicketNo() string {
	return "AF-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
