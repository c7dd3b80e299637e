package domain

import "time"

// Approval levels rank an employee's authority over ticket actions. Higher
// levels subsume lower privileges.
const (
	LevelOperator = 1
	LevelEngineer = 2
	LevelSenior   = 3
	LevelManager  = 4
)

// Employee models a plant employee in the organizational directory.
type Employee struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	ApprovalLevel int
	Department    *string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ActorRef identifies the caller of a lifecycle action. It is threaded
// explicitly through every engine call; the engine never reads ambient
// session state.
type ActorRef struct {
	ID   string
	Name string
}

// Relationship describes how an actor relates to one specific ticket.
type Relationship string

const (
	RelationshipCreator  Relationship = "creator"
	RelationshipAssignee Relationship = "assignee"
	RelationshipApprover Relationship = "approver"
	RelationshipNone     Relationship = "none"
)

// RoleStanding is an actor's computed authority for one specific ticket.
// Derived per request, never stored.
type RoleStanding struct {
	ActorID       string
	ApprovalLevel int
	Relationship  Relationship
}

// IsAssignee reports whether the relationship label is assignee. The label is
// single-valued (creator wins); rules that need to know who holds the ticket
// use Ticket.IsAssignedTo instead.
func (s RoleStanding) IsAssignee() bool { return s.Relationship == RelationshipAssignee }

// IsCreator reports whether the actor reported the ticket.
func (s RoleStanding) IsCreator() bool { return s.Relationship == RelationshipCreator }
