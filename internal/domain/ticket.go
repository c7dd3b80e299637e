package domain

import "time"

// TicketStatus enumerates lifecycle states for abnormal findings.
type TicketStatus string

const (
	StatusOpen                    TicketStatus = "open"
	StatusAccepted                TicketStatus = "accepted"
	StatusPlaned                  TicketStatus = "planed"
	StatusInProgress              TicketStatus = "in_progress"
	StatusRejectedPendingL3Review TicketStatus = "rejected_pending_l3_review"
	StatusRejectedFinal           TicketStatus = "rejected_final"
	StatusFinished                TicketStatus = "finished"
	StatusReopenedInProgress      TicketStatus = "reopened_in_progress"
	StatusReviewed                TicketStatus = "reviewed"
	StatusClosed                  TicketStatus = "closed"
)

// AllStatuses lists every lifecycle state.
var AllStatuses = []TicketStatus{
	StatusOpen,
	StatusAccepted,
	StatusPlaned,
	StatusInProgress,
	StatusRejectedPendingL3Review,
	StatusRejectedFinal,
	StatusFinished,
	StatusReopenedInProgress,
	StatusReviewed,
	StatusClosed,
}

// IsTerminal reports whether no further transition leaves the state.
func (s TicketStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusRejectedFinal
}

// CriticalLevel ranks how severe the reported abnormality is. Descriptive
// only; it never affects transition legality.
type CriticalLevel string

const (
	CriticalLow    CriticalLevel = "LOW"
	CriticalMedium CriticalLevel = "MEDIUM"
	CriticalHigh   CriticalLevel = "HIGH"
	CriticalSevere CriticalLevel = "SEVERE"
)

// Ticket is the aggregate for an abnormal finding. Status is mutated only
// through the lifecycle engine.
type Ticket struct {
	ID            string
	TicketNo      string
	ReporterID    string
	AssignedTo    *string
	Title         string
	Description   string
	Status        TicketStatus
	CriticalLevel CriticalLevel
	EquipmentID   *string
	LocationID    *string

	ScheduleStart  *time.Time
	ScheduleFinish *time.Time
	ActualStartAt  *time.Time
	ActualFinishAt *time.Time

	DowntimeAvoidanceHours *float64
	CostAvoidance          *float64
	FailureModeID          *int64
	SatisfactionRating     *int

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAssignedTo reports whether the given employee currently holds the ticket.
func (t *Ticket) IsAssignedTo(employeeID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == employeeID
}
