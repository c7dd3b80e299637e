package domain

import "time"

// Comment is a free-text note attached to a ticket by any participant.
// Comments are independent of status history and never required for a
// transition.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}
