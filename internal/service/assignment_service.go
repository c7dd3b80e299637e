package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/plantops/finding-service/internal/domain"
	"github.com/plantops/finding-service/internal/repository"
	"github.com/plantops/finding-service/pkg/util"
)

// AssignmentService resolves who may hold a ticket. The lifecycle engine
// consults it during plan, reassign and escalate; the HTTP layer uses it to
// offer candidate lists.
type AssignmentService struct {
	directory repository.Directory
}

// NewAssignmentService creates the service.
func NewAssignmentService(directory repository.Directory) *AssignmentService {
	return &AssignmentService{directory: directory}
}

// Candidates returns the eligible assignee pool at or above minLevel; values
// below level 1 clamp to level 1. With escalationOnly set, only exact level-3
// employees qualify.
func (s *AssignmentService) Candidates(ctx context.Context, minLevel int, escalationOnly bool) ([]domain.Employee, error) {
	if minLevel < domain.LevelOperator {
		minLevel = domain.LevelOperator
	}
	list, err := s.directory.ResolveEligibleAssignees(ctx, minLevel, escalationOnly)
	if err != nil {
		return nil, util.MapError(err)
	}
	if len(list) == 0 {
		return nil, util.NewNoEligibleAssignee(minLevel)
	}
	return list, nil
}

// ValidateAssignee resolves a named assignment target and checks that they
// are active and hold at least minLevel.
func (s *AssignmentService) ValidateAssignee(ctx context.Context, assigneeID string, minLevel int) (*domain.Employee, error) {
	employee, err := s.directory.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("assignee", map[string]any{"assignee_id": assigneeID})
		}
		return nil, util.MapError(err)
	}
	var violations []util.FieldViolation
	if !employee.Active {
		violations = append(violations, util.FieldViolation{Field: "assignee_id", Reason: "assignee is inactive"})
	}
	if employee.ApprovalLevel < minLevel {
		violations = append(violations, util.FieldViolation{Field: "assignee_id", Reason: "assignee below required approval level"})
	}
	if len(violations) > 0 {
		return nil, util.NewValidationFailed(violations)
	}
	return employee, nil
}

// ValidateEscalationTarget resolves an escalation target. Escalation hands
// the ticket one level up from day-to-day work: the target must resolve to
// exactly level 3, never lower and never a level-4 manager directly.
func (s *AssignmentService) ValidateEscalationTarget(ctx context.Context, targetID string) (*domain.Employee, error) {
	employee, err := s.directory.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("escalation target", map[string]any{"target_id": targetID})
		}
		return nil, util.MapError(err)
	}
	var violations []util.FieldViolation
	if !employee.Active {
		violations = append(violations, util.FieldViolation{Field: "target_id", Reason: "target is inactive"})
	}
	if employee.ApprovalLevel != domain.LevelSenior {
		violations = append(violations, util.FieldViolation{Field: "target_id", Reason: "escalation target must resolve to level 3"})
	}
	if len(violations) > 0 {
		return nil, util.NewValidationFailed(violations)
	}
	return employee, nil
}
