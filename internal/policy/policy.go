// Package policy encodes the lifecycle transition table: which action is
// legal from which state, the standing it requires, and the payload fields it
// demands. Everything here is pure; the engine supplies the ticket, the
// actor's standing, and external facts via Env.
package policy

import (
	"fmt"
	"time"

	"github.com/plantops/finding-service/internal/domain"
	"github.com/plantops/finding-service/pkg/util"
)

// Env carries facts resolved outside the policy table that validation
// depends on.
type Env struct {
	Now              time.Time
	HasAfterEvidence bool
}

// StandingFor computes the actor's standing for one specific ticket. The
// approval level comes from the organizational directory; the relationship is
// derived here. The same actor may be creator on one ticket and none on
// another. The label is single-valued with creator first; rules that require
// holding the ticket check assignment on the ticket itself, so a reporter who
// also holds the ticket is never locked out of assignee actions.
func StandingFor(approvalLevel int, actorID string, t *domain.Ticket) domain.RoleStanding {
	standing := domain.RoleStanding{
		ActorID:       actorID,
		ApprovalLevel: approvalLevel,
		Relationship:  domain.RelationshipNone,
	}
	switch {
	case t.ReporterID == actorID:
		standing.Relationship = domain.RelationshipCreator
	case t.IsAssignedTo(actorID):
		standing.Relationship = domain.RelationshipAssignee
	case approvalLevel >= domain.LevelSenior:
		standing.Relationship = domain.RelationshipApprover
	}
	return standing
}

// Rule is one row of the transition table.
type Rule struct {
	action    domain.ActionName
	from      map[domain.TicketStatus]struct{}
	authorize func(s domain.RoleStanding, t *domain.Ticket) string
	target    func(s domain.RoleStanding, t *domain.Ticket) domain.TicketStatus
	validate  func(t *domain.Ticket, p domain.ActionPayload, env Env) []util.FieldViolation
}

// Authorize returns nil when the standing suffices, otherwise an
// UNAUTHORIZED_ACTION error carrying the deny reason.
func (r *Rule) Authorize(s domain.RoleStanding, t *domain.Ticket) error {
	if reason := r.authorize(s, t); reason != "" {
		return util.NewUnauthorizedAction(reason)
	}
	return nil
}

// Target resolves the post-action status. Same-status actions (reassign,
// escalate) return the current status unchanged.
func (r *Rule) Target(s domain.RoleStanding, t *domain.Ticket) domain.TicketStatus {
	return r.target(s, t)
}

// Validate collects every violated field check. An empty slice means the
// payload is acceptable.
func (r *Rule) Validate(t *domain.Ticket, p domain.ActionPayload, env Env) []util.FieldViolation {
	return r.validate(t, p, env)
}

// Lookup returns the rule for (action, currentStatus), or false when the pair
// is outside the transition table.
func Lookup(action domain.ActionName, from domain.TicketStatus) (*Rule, bool) {
	rule, ok := table[action]
	if !ok {
		return nil, false
	}
	if _, ok := rule.from[from]; !ok {
		return nil, false
	}
	return rule, true
}

func fromStates(states ...domain.TicketStatus) map[domain.TicketStatus]struct{} {
	set := make(map[domain.TicketStatus]struct{}, len(states))
	for _, s := range states {
		set[s] = struct{}{}
	}
	return set
}

func fromStatesExcept(excluded ...domain.TicketStatus) map[domain.TicketStatus]struct{} {
	set := make(map[domain.TicketStatus]struct{}, len(domain.AllStatuses))
	for _, s := range domain.AllStatuses {
		set[s] = struct{}{}
	}
	for _, s := range excluded {
		delete(set, s)
	}
	return set
}

func sameStatus(_ domain.RoleStanding, t *domain.Ticket) domain.TicketStatus {
	return t.Status
}

func toStatus(status domain.TicketStatus) func(domain.RoleStanding, *domain.Ticket) domain.TicketStatus {
	return func(domain.RoleStanding, *domain.Ticket) domain.TicketStatus {
		return status
	}
}

func wrongPayload(action domain.ActionName) []util.FieldViolation {
	return []util.FieldViolation{{
		Field:  "payload",
		Reason: fmt.Sprintf("payload does not match action %q", action),
	}}
}

var table = map[domain.ActionName]*Rule{
	domain.ActionAccept: {
		action: domain.ActionAccept,
		from:   fromStates(domain.StatusOpen, domain.StatusRejectedPendingL3Review),
		authorize: func(s domain.RoleStanding, t *domain.Ticket) string {
			// Accepting over a pending-review rejection is an override.
			if t.Status == domain.StatusRejectedPendingL3Review {
				if s.ApprovalLevel < domain.LevelSenior {
					return "overriding a pending-review rejection requires level 3"
				}
				return ""
			}
			if t.IsAssignedTo(s.ActorID) {
				return ""
			}
			if t.AssignedTo == nil && s.ApprovalLevel >= domain.LevelEngineer {
				return ""
			}
			return "accept requires the assignee, or level 2 on an unassigned ticket"
		},
		target: toStatus(domain.StatusAccepted),
		validate: func(t *domain.Ticket, p domain.ActionPayload, _ Env) []util.FieldViolation {
			if _, ok := p.(domain.AcceptPayload); !ok {
				return wrongPayload(domain.ActionAccept)
			}
			return nil
		},
	},

	domain.ActionPlan: {
		action: domain.ActionPlan,
		from:   fromStates(domain.StatusAccepted),
		authorize: func(s domain.RoleStanding, _ *domain.Ticket) string {
			if s.ApprovalLevel < domain.LevelEngineer {
				return "plan requires level 2"
			}
			return ""
		},
		target: toStatus(domain.StatusPlaned),
		validate: func(t *domain.Ticket, p domain.ActionPayload, _ Env) []util.FieldViolation {
			payload, ok := p.(domain.PlanPayload)
			if !ok {
				return wrongPayload(domain.ActionPlan)
			}
			var violations []util.FieldViolation
			if payload.ScheduleStart == nil {
				violations = append(violations, util.FieldViolation{Field: "schedule_start", Reason: "required"})
			}
			if payload.ScheduleFinish == nil {
				violations = append(violations, util.FieldViolation{Field: "schedule_finish", Reason: "required"})
			}
			if payload.AssigneeID == "" {
				violations = append(violations, util.FieldViolation{Field: "assignee_id", Reason: "required"})
			}
			violations = append(violations, scheduleWindow(payload.ScheduleStart, payload.ScheduleFinish)...)
			return violations
		},
	},

	domain.ActionStart: {
		action: domain.ActionStart,
		from:   fromStates(domain.StatusPlaned),
		authorize: func(s domain.RoleStanding, t *domain.Ticket) string {
			if !t.IsAssignedTo(s.ActorID) {
				return "start requires the current assignee"
			}
			if s.ApprovalLevel < domain.LevelEngineer {
				return "start requires level 2"
			}
			return ""
		},
		target: toStatus(domain.StatusInProgress),
		validate: func(t *domain.Ticket, p domain.ActionPayload, _ Env) []util.FieldViolation {
			payload, ok := p.(domain.StartPayload)
			if !ok {
				return wrongPayload(domain.ActionStart)
			}
			if payload.ActualStartAt == nil {
				return []util.FieldViolation{{Field: "actual_start_at", Reason: "required"}}
			}
			return nil
		},
	},

	domain.ActionReject: {
		action: domain.ActionReject,
		from:   fromStates(domain.StatusOpen, domain.StatusRejectedPendingL3Review),
		authorize: func(s domain.RoleStanding, _ *domain.Ticket) string {
			if s.ApprovalLevel < domain.LevelEngineer {
				return "reject requires level 2"
			}
			return ""
		},
		// Level 2 can never finalize a rejection; the ticket parks for
		// level-3 review instead.
		target: func(s domain.RoleStanding, _ *domain.Ticket) domain.TicketStatus {
			if s.ApprovalLevel >= domain.LevelSenior {
				return domain.StatusRejectedFinal
			}
			return domain.StatusRejectedPendingL3Review
		},
		validate: func(t *domain.Ticket, p domain.ActionPayload, _ Env) []util.FieldViolation {
			payload, ok := p.(domain.RejectPayload)
			if !ok {
				return wrongPayload(domain.ActionReject)
			}
			if payload.Reason == "" {
				return []util.FieldViolation{{Field: "reason", Reason: "rejection reason required"}}
			}
			return nil
		},
	},

	domain.ActionFinish: {
		action: domain.ActionFinish,
		from:   fromStates(domain.StatusInProgress, domain.StatusReopenedInProgress),
		authorize: func(s domain.RoleStanding, t *domain.Ticket) string {
			if !t.IsAssignedTo(s.ActorID) {
				return "finish requires the current assignee"
			}
			if s.ApprovalLevel < domain.LevelEngineer {
				return "finish requires level 2"
			}
			return ""
		},
		target: toStatus(domain.StatusFinished),
		validate: func(t *domain.Ticket, p domain.ActionPayload, env Env) []util.FieldViolation {
			payload, ok := p.(domain.FinishPayload)
			if !ok {
				return wrongPayload(domain.ActionFinish)
			}
			var violations []util.FieldViolation
			if payload.DowntimeAvoidanceHours == nil {
				violations = append(violations, util.FieldViolation{Field: "downtime_avoidance_hours", Reason: "required"})
			}
			if payload.CostAvoidance == nil {
				violations = append(violations, util.FieldViolation{Field: "cost_avoidance", Reason: "required"})
			}
			if payload.FailureModeID == nil {
				violations = append(violations, util.FieldViolation{Field: "failure_mode_id", Reason: "required"})
			}
			if payload.ActualFinishAt == nil {
				violations = append(violations, util.FieldViolation{Field: "actual_finish_at", Reason: "required"})
			} else if t.ActualStartAt != nil && payload.ActualFinishAt.Before(*t.ActualStartAt) {
				violations = append(violations, util.FieldViolation{Field: "actual_finish_at", Reason: "before actual_start_at"})
			}
			if !env.HasAfterEvidence {
				violations = append(violations, util.FieldViolation{Field: "evidence", Reason: "no after-evidence attached"})
			}
			return violations
		},
	},

	domain.ActionEscalate: {
		action: domain.ActionEscalate,
		from:   fromStates(domain.StatusInProgress, domain.StatusReopenedInProgress),
		authorize: func(s domain.RoleStanding, t *domain.Ticket) string {
			if !t.IsAssignedTo(s.ActorID) {
				return "escalate requires the current assignee"
			}
			if s.ApprovalLevel < domain.LevelEngineer {
				return "escalate requires level 2"
			}
			return ""
		},
		target: sameStatus,
		validate: func(t *domain.Ticket, p domain.ActionPayload, _ Env) []util.FieldViolation {
			payload, ok := p.(domain.EscalatePayload)
			if !ok {
				return wrongPayload(domain.ActionEscalate)
			}
			var violations []util.FieldViolation
			if payload.Reason == "" {
				violations = append(violations, util.FieldViolation{Field: "reason", Reason: "escalation reason required"})
			}
			if payload.TargetID == "" {
				violations = append(violations, util.FieldViolation{Field: "target_id", Reason: "required"})
			}
			return violations
		},
	},

	domain.ActionApproveReview: {
		action: domain.ActionApproveReview,
		from:   fromStates(domain.StatusFinished),
		authorize: func(s domain.RoleStanding, _ *domain.Ticket) string {
			if !s.IsCreator() {
				return "review approval is reserved for the reporter"
			}
			return ""
		},
		target: toStatus(domain.StatusReviewed),
		validate: func(t *domain.Ticket, p domain.ActionPayload, _ Env) []util.FieldViolation {
			payload, ok := p.(domain.ApproveReviewPayload)
			if !ok {
				return wrongPayload(domain.ActionApproveReview)
			}
			if payload.SatisfactionRating != nil {
				if r := *payload.SatisfactionRating; r < 1 || r > 5 {
					return []util.FieldViolation{{Field: "satisfaction_rating", Reason: "must be between 1 and 5"}}
				}
			}
			return nil
		},
	},

	domain.ActionReopen: {
		action: domain.ActionReopen,
		from:   fromStates(domain.StatusFinished),
		authorize: func(s domain.RoleStanding, _ *domain.Ticket) string {
			if !s.IsCreator() {
				return "reopen is reserved for the reporter"
			}
			return ""
		},
		target: toStatus(domain.StatusReopenedInProgress),
		validate: func(t *domain.Ticket, p domain.ActionPayload, _ Env) []util.FieldViolation {
			payload, ok := p.(domain.ReopenPayload)
			if !ok {
				return wrongPayload(domain.ActionReopen)
			}
			if payload.Reason == "" {
				return []util.FieldViolation{{Field: "reason", Reason: "reopen reason required"}}
			}
			return nil
		},
	},

	domain.ActionApproveClose: {
		action: domain.ActionApproveClose,
		from:   fromStates(domain.StatusReviewed),
		authorize: func(s domain.RoleStanding, _ *domain.Ticket) string {
			if s.ApprovalLevel < domain.LevelManager {
				return "close approval requires level 4"
			}
			return ""
		},
		target: toStatus(domain.StatusClosed),
		validate: func(t *domain.Ticket, p domain.ActionPayload, _ Env) []util.FieldViolation {
			if _, ok := p.(domain.ApproveClosePayload); !ok {
				return wrongPayload(domain.ActionApproveClose)
			}
			return nil
		},
	},

	domain.ActionReassign: {
		action: domain.ActionReassign,
		from:   fromStatesExcept(domain.StatusRejectedFinal, domain.StatusClosed),
		authorize: func(s domain.RoleStanding, _ *domain.Ticket) string {
			if s.ApprovalLevel < domain.LevelSenior {
				return "reassign requires level 3"
			}
			return ""
		},
		target: sameStatus,
		validate: func(t *domain.Ticket, p domain.ActionPayload, _ Env) []util.FieldViolation {
			payload, ok := p.(domain.ReassignPayload)
			if !ok {
				return wrongPayload(domain.ActionReassign)
			}
			var violations []util.FieldViolation
			if payload.ScheduleStart == nil {
				violations = append(violations, util.FieldViolation{Field: "schedule_start", Reason: "required"})
			}
			if payload.ScheduleFinish == nil {
				violations = append(violations, util.FieldViolation{Field: "schedule_finish", Reason: "required"})
			}
			if payload.AssigneeID == "" {
				violations = append(violations, util.FieldViolation{Field: "assignee_id", Reason: "required"})
			}
			violations = append(violations, scheduleWindow(payload.ScheduleStart, payload.ScheduleFinish)...)
			return violations
		},
	},

	domain.ActionDelete: {
		action: domain.ActionDelete,
		from:   fromStatesExcept(),
		authorize: func(s domain.RoleStanding, _ *domain.Ticket) string {
			if s.ApprovalLevel < domain.LevelSenior {
				return "delete requires level 3"
			}
			return ""
		},
		target: sameStatus,
		validate: func(t *domain.Ticket, p domain.ActionPayload, _ Env) []util.FieldViolation {
			payload, ok := p.(domain.DeletePayload)
			if !ok {
				return wrongPayload(domain.ActionDelete)
			}
			if payload.Reason == "" {
				return []util.FieldViolation{{Field: "reason", Reason: "deletion reason required"}}
			}
			return nil
		},
	},
}

func scheduleWindow(start, finish *time.Time) []util.FieldViolation {
	if start == nil || finish == nil {
		return nil
	}
	if finish.Before(*start) {
		return []util.FieldViolation{{Field: "schedule_finish", Reason: "before schedule_start"}}
	}
	return nil
}
