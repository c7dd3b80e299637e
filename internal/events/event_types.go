package events

import (
	"time"

	"github.com/plantops/finding-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventFindingReported   EventType = "finding_reported"
	EventStatusChanged     EventType = "finding_status_changed"
	EventAssignmentChanged EventType = "finding_assignment_changed"
	EventEscalated         EventType = "finding_escalated"
	EventFindingDeleted    EventType = "finding_deleted"
)

// Event represents a lifecycle event emitted after a successful commit.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	TicketID  string          `json:"ticket_id"`
	Actor     domain.ActorRef `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   interface{}     `json:"payload"`
}

// FindingReportedPayload payload.
type FindingReportedPayload struct {
	TicketNo      string               `json:"ticket_no"`
	Title         string               `json:"title"`
	CriticalLevel domain.CriticalLevel `json:"critical_level"`
	EquipmentID   *string              `json:"equipment_id,omitempty"`
	LocationID    *string              `json:"location_id,omitempty"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	Action     domain.ActionName   `json:"action"`
	FromStatus domain.TicketStatus `json:"from_status"`
	ToStatus   domain.TicketStatus `json:"to_status"`
	Comment    string              `json:"comment,omitempty"`
}

// AssignmentChangedPayload payload.
type AssignmentChangedPayload struct {
	Action       domain.ActionName `json:"action"`
	FromAssignee *string           `json:"from_assignee,omitempty"`
	ToAssignee   *string           `json:"to_assignee,omitempty"`
}

// EscalatedPayload payload.
type EscalatedPayload struct {
	Reason   string `json:"reason"`
	TargetID string `json:"target_id"`
}

// FindingDeletedPayload payload.
type FindingDeletedPayload struct {
	TicketNo string `json:"ticket_no"`
	Reason   string `json:"reason"`
}
