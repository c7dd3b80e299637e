package domain

import "time"

// ActionName identifies a lifecycle action requested against a ticket.
type ActionName string

const (
	ActionAccept        ActionName = "accept"
	ActionPlan          ActionName = "plan"
	ActionStart         ActionName = "start"
	ActionReject        ActionName = "reject"
	ActionFinish        ActionName = "finish"
	ActionEscalate      ActionName = "escalate"
	ActionApproveReview ActionName = "approve-review"
	ActionReopen        ActionName = "reopen"
	ActionApproveClose  ActionName = "approve-close"
	ActionReassign      ActionName = "reassign"
	ActionDelete        ActionName = "delete"
)

// AllActions lists every lifecycle action.
var AllActions = []ActionName{
	ActionAccept,
	ActionPlan,
	ActionStart,
	ActionReject,
	ActionFinish,
	ActionEscalate,
	ActionApproveReview,
	ActionReopen,
	ActionApproveClose,
	ActionReassign,
	ActionDelete,
}

// ActionPayload is the tagged union of per-action request bodies. Each action
// has exactly one concrete variant; the policy table keys on the variant, so
// field presence checks live in one place.
type ActionPayload interface {
	Action() ActionName
}

// AcceptPayload accompanies "accept". All fields are optional; the
// reassignment fields correct the reporter's classification when set.
type AcceptPayload struct {
	Note             string
	NewLocationID    *string
	NewEquipmentID   *string
	NewCriticalLevel *CriticalLevel
}

// PlanPayload accompanies "plan".
type PlanPayload struct {
	ScheduleStart  *time.Time
	ScheduleFinish *time.Time
	AssigneeID     string
}

// StartPayload accompanies "start".
type StartPayload struct {
	ActualStartAt *time.Time
}

// RejectPayload accompanies "reject".
type RejectPayload struct {
	Reason string
}

// FinishPayload accompanies "finish".
type FinishPayload struct {
	DowntimeAvoidanceHours *float64
	CostAvoidance          *float64
	FailureModeID          *int64
	ActualFinishAt         *time.Time
}

// EscalatePayload accompanies "escalate". The target must resolve to an
// approval level 3 employee.
type EscalatePayload struct {
	Reason   string
	TargetID string
}

// ApproveReviewPayload accompanies "approve-review".
type ApproveReviewPayload struct {
	SatisfactionRating *int
	Note               string
}

// ReopenPayload accompanies "reopen".
type ReopenPayload struct {
	Reason string
}

// ApproveClosePayload accompanies "approve-close".
type ApproveClosePayload struct {
	Note string
}

// ReassignPayload accompanies "reassign".
type ReassignPayload struct {
	ScheduleStart  *time.Time
	ScheduleFinish *time.Time
	AssigneeID     string
}

// DeletePayload accompanies "delete". Deletion is audited, not a transition.
type DeletePayload struct {
	Reason string
}

func (AcceptPayload) Action() ActionName        { return ActionAccept }
func (PlanPayload) Action() ActionName          { return ActionPlan }
func (StartPayload) Action() ActionName         { return ActionStart }
func (RejectPayload) Action() ActionName        { return ActionReject }
func (FinishPayload) Action() ActionName        { return ActionFinish }
func (EscalatePayload) Action() ActionName      { return ActionEscalate }
func (ApproveReviewPayload) Action() ActionName { return ActionApproveReview }
func (ReopenPayload) Action() ActionName        { return ActionReopen }
func (ApproveClosePayload) Action() ActionName  { return ActionApproveClose }
func (ReassignPayload) Action() ActionName      { return ActionReassign }
func (DeletePayload) Action() ActionName        { return ActionDelete }
