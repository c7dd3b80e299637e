package domain

import "time"

// StatusHistoryEntry is an append-only audit record of lifecycle activity.
// Entries are never mutated or deleted; assignment changes record a second
// entry with ToUserID set, so the log doubles as an audit of who held the
// ticket and when.
type StatusHistoryEntry struct {
	ID         string
	TicketID   string
	FromStatus TicketStatus
	ToStatus   TicketStatus
	ActorID    string
	ToUserID   *string
	Comment    string
	CreatedAt  time.Time
}
