package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/finding-service/internal/domain"
)

func ticketIn(status domain.TicketStatus) *domain.Ticket {
	assignee := "emp-assignee"
	return &domain.Ticket{
		ID:         "ticket-1",
		ReporterID: "emp-reporter",
		AssignedTo: &assignee,
		Status:     status,
	}
}

func timePtr(t time.Time) *time.Time { return &t }

var legalPairs = map[domain.ActionName][]domain.TicketStatus{
	domain.ActionAccept:        {domain.StatusOpen, domain.StatusRejectedPendingL3Review},
	domain.ActionPlan:          {domain.StatusAccepted},
	domain.ActionStart:         {domain.StatusPlaned},
	domain.ActionReject:        {domain.StatusOpen, domain.StatusRejectedPendingL3Review},
	domain.ActionFinish:        {domain.StatusInProgress, domain.StatusReopenedInProgress},
	domain.ActionEscalate:      {domain.StatusInProgress, domain.StatusReopenedInProgress},
	domain.ActionApproveReview: {domain.StatusFinished},
	domain.ActionReopen:        {domain.StatusFinished},
	domain.ActionApproveClose:  {domain.StatusReviewed},
	domain.ActionReassign: {
		domain.StatusOpen, domain.StatusAccepted, domain.StatusPlaned,
		domain.StatusInProgress, domain.StatusRejectedPendingL3Review,
		domain.StatusFinished, domain.StatusReopenedInProgress, domain.StatusReviewed,
	},
	domain.ActionDelete: domain.AllStatuses,
}

func TestLookupCoversExactlyTheTransitionTable(t *testing.T) {
	legal := make(map[domain.ActionName]map[domain.TicketStatus]bool)
	for action, statuses := range legalPairs {
		legal[action] = make(map[domain.TicketStatus]bool)
		for _, s := range statuses {
			legal[action][s] = true
		}
	}

	for _, action := range domain.AllActions {
		for _, status := range domain.AllStatuses {
			_, ok := Lookup(action, status)
			assert.Equalf(t, legal[action][status], ok,
				"action %q from %q", action, status)
		}
	}
}

func TestLookupRejectsUnknownAction(t *testing.T) {
	_, ok := Lookup(domain.ActionName("explode"), domain.StatusOpen)
	assert.False(t, ok)
}

func TestTerminalStatesAllowOnlyDelete(t *testing.T) {
	for _, status := range []domain.TicketStatus{domain.StatusClosed, domain.StatusRejectedFinal} {
		require.True(t, status.IsTerminal())
		for _, action := range domain.AllActions {
			_, ok := Lookup(action, status)
			assert.Equalf(t, action == domain.ActionDelete, ok,
				"action %q from terminal %q", action, status)
		}
	}
}

func TestStandingForPrecedence(t *testing.T) {
	assignee := "emp-b"
	ticket := &domain.Ticket{ReporterID: "emp-a", AssignedTo: &assignee}

	// Creator wins even when the actor also holds a high level.
	s := StandingFor(domain.LevelManager, "emp-a", ticket)
	assert.Equal(t, domain.RelationshipCreator, s.Relationship)

	s = StandingFor(domain.LevelEngineer, "emp-b", ticket)
	assert.Equal(t, domain.RelationshipAssignee, s.Relationship)
	assert.True(t, s.IsAssignee())

	s = StandingFor(domain.LevelSenior, "emp-c", ticket)
	assert.Equal(t, domain.RelationshipApprover, s.Relationship)

	s = StandingFor(domain.LevelEngineer, "emp-c", ticket)
	assert.Equal(t, domain.RelationshipNone, s.Relationship)
}

func TestAcceptAuthorization(t *testing.T) {
	ticket := ticketIn(domain.StatusOpen)
	rule, ok := Lookup(domain.ActionAccept, domain.StatusOpen)
	require.True(t, ok)

	// The current assignee may accept regardless of level.
	s := StandingFor(domain.LevelOperator, "emp-assignee", ticket)
	assert.NoError(t, rule.Authorize(s, ticket))

	// An unrelated level 2 may not accept an already assigned ticket.
	s = StandingFor(domain.LevelEngineer, "emp-other", ticket)
	assert.Error(t, rule.Authorize(s, ticket))

	// Unassigned tickets open up to any level 2.
	unassigned := ticketIn(domain.StatusOpen)
	unassigned.AssignedTo = nil
	s = StandingFor(domain.LevelEngineer, "emp-other", unassigned)
	assert.NoError(t, rule.Authorize(s, unassigned))

	s = StandingFor(domain.LevelOperator, "emp-other", unassigned)
	assert.Error(t, rule.Authorize(s, unassigned))
}

func TestAcceptOverrideOfPendingRejectionRequiresLevelThree(t *testing.T) {
	ticket := ticketIn(domain.StatusRejectedPendingL3Review)
	rule, ok := Lookup(domain.ActionAccept, domain.StatusRejectedPendingL3Review)
	require.True(t, ok)

	s := StandingFor(domain.LevelEngineer, "emp-assignee", ticket)
	assert.Error(t, rule.Authorize(s, ticket))

	s = StandingFor(domain.LevelSenior, "emp-senior", ticket)
	assert.NoError(t, rule.Authorize(s, ticket))
}

func TestAssigneeGateUsesTicketAssignmentNotLabel(t *testing.T) {
	// A reporter who also holds the ticket carries the creator label, but the
	// assignee-gated actions must still let them through.
	reporter := "emp-reporter"
	ticket := &domain.Ticket{ReporterID: reporter, AssignedTo: &reporter, Status: domain.StatusPlaned}

	s := StandingFor(domain.LevelEngineer, reporter, ticket)
	require.Equal(t, domain.RelationshipCreator, s.Relationship)

	rule, ok := Lookup(domain.ActionStart, domain.StatusPlaned)
	require.True(t, ok)
	assert.NoError(t, rule.Authorize(s, ticket))

	ticket.Status = domain.StatusInProgress
	for _, action := range []domain.ActionName{domain.ActionFinish, domain.ActionEscalate} {
		rule, ok := Lookup(action, domain.StatusInProgress)
		require.True(t, ok)
		assert.NoErrorf(t, rule.Authorize(s, ticket), "action %q", action)
	}
}

func TestRejectTargetBranchesOnLevel(t *testing.T) {
	ticket := ticketIn(domain.StatusOpen)
	rule, ok := Lookup(domain.ActionReject, domain.StatusOpen)
	require.True(t, ok)

	engineer := StandingFor(domain.LevelEngineer, "emp-other", ticket)
	assert.Equal(t, domain.StatusRejectedPendingL3Review, rule.Target(engineer, ticket))

	senior := StandingFor(domain.LevelSenior, "emp-senior", ticket)
	assert.Equal(t, domain.StatusRejectedFinal, rule.Target(senior, ticket))

	manager := StandingFor(domain.LevelManager, "emp-manager", ticket)
	assert.Equal(t, domain.StatusRejectedFinal, rule.Target(manager, ticket))
}

func TestRejectRequiresReason(t *testing.T) {
	ticket := ticketIn(domain.StatusOpen)
	rule, _ := Lookup(domain.ActionReject, domain.StatusOpen)

	violations := rule.Validate(ticket, domain.RejectPayload{}, Env{})
	require.Len(t, violations, 1)
	assert.Equal(t, "reason", violations[0].Field)

	assert.Empty(t, rule.Validate(ticket, domain.RejectPayload{Reason: "duplicate"}, Env{}))
}

func TestPlanValidation(t *testing.T) {
	ticket := ticketIn(domain.StatusAccepted)
	rule, _ := Lookup(domain.ActionPlan, domain.StatusAccepted)

	violations := rule.Validate(ticket, domain.PlanPayload{}, Env{})
	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"schedule_start", "schedule_finish", "assignee_id"}, fields)

	start := time.Date(2026, 9, 2, 8, 0, 0, 0, time.UTC)
	violations = rule.Validate(ticket, domain.PlanPayload{
		ScheduleStart:  timePtr(start),
		ScheduleFinish: timePtr(start.Add(-time.Hour)),
		AssigneeID:     "emp-assignee",
	}, Env{})
	require.Len(t, violations, 1)
	assert.Equal(t, "schedule_finish", violations[0].Field)

	assert.Empty(t, rule.Validate(ticket, domain.PlanPayload{
		ScheduleStart:  timePtr(start),
		ScheduleFinish: timePtr(start.Add(4 * time.Hour)),
		AssigneeID:     "emp-assignee",
	}, Env{}))
}

func TestFinishValidation(t *testing.T) {
	started := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	ticket := ticketIn(domain.StatusInProgress)
	ticket.ActualStartAt = timePtr(started)
	rule, _ := Lookup(domain.ActionFinish, domain.StatusInProgress)

	violations := rule.Validate(ticket, domain.FinishPayload{}, Env{})
	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, fields, []string{
		"downtime_avoidance_hours", "cost_avoidance", "failure_mode_id",
		"actual_finish_at", "evidence",
	})

	hours, cost, mode := 4.5, 1200.0, int64(7)
	full := domain.FinishPayload{
		DowntimeAvoidanceHours: &hours,
		CostAvoidance:          &cost,
		FailureModeID:          &mode,
		ActualFinishAt:         timePtr(started.Add(2 * time.Hour)),
	}

	// Complete payload still fails without after-evidence on file.
	violations = rule.Validate(ticket, full, Env{})
	require.Len(t, violations, 1)
	assert.Equal(t, "evidence", violations[0].Field)

	assert.Empty(t, rule.Validate(ticket, full, Env{HasAfterEvidence: true}))

	backwards := full
	backwards.ActualFinishAt = timePtr(started.Add(-time.Minute))
	violations = rule.Validate(ticket, backwards, Env{HasAfterEvidence: true})
	require.Len(t, violations, 1)
	assert.Equal(t, "actual_finish_at", violations[0].Field)
}

func TestApproveReviewRatingBounds(t *testing.T) {
	ticket := ticketIn(domain.StatusFinished)
	rule, _ := Lookup(domain.ActionApproveReview, domain.StatusFinished)

	for _, rating := range []int{0, 6} {
		r := rating
		violations := rule.Validate(ticket, domain.ApproveReviewPayload{SatisfactionRating: &r}, Env{})
		require.Lenf(t, violations, 1, "rating %d", rating)
		assert.Equal(t, "satisfaction_rating", violations[0].Field)
	}

	five := 5
	assert.Empty(t, rule.Validate(ticket, domain.ApproveReviewPayload{SatisfactionRating: &five}, Env{}))
	assert.Empty(t, rule.Validate(ticket, domain.ApproveReviewPayload{}, Env{}))
}

func TestMismatchedPayloadIsRejected(t *testing.T) {
	ticket := ticketIn(domain.StatusOpen)
	rule, _ := Lookup(domain.ActionAccept, domain.StatusOpen)

	violations := rule.Validate(ticket, domain.RejectPayload{Reason: "nope"}, Env{})
	require.Len(t, violations, 1)
	assert.Equal(t, "payload", violations[0].Field)
}

func TestEscalateAndReassignKeepStatus(t *testing.T) {
	ticket := ticketIn(domain.StatusInProgress)

	rule, _ := Lookup(domain.ActionEscalate, domain.StatusInProgress)
	s := StandingFor(domain.LevelEngineer, "emp-assignee", ticket)
	assert.Equal(t, domain.StatusInProgress, rule.Target(s, ticket))

	rule, _ = Lookup(domain.ActionReassign, domain.StatusInProgress)
	s = StandingFor(domain.LevelSenior, "emp-senior", ticket)
	assert.Equal(t, domain.StatusInProgress, rule.Target(s, ticket))
}

func TestApproveCloseRequiresManager(t *testing.T) {
	ticket := ticketIn(domain.StatusReviewed)
	rule, _ := Lookup(domain.ActionApproveClose, domain.StatusReviewed)

	s := StandingFor(domain.LevelSenior, "emp-senior", ticket)
	assert.Error(t, rule.Authorize(s, ticket))

	s = StandingFor(domain.LevelManager, "emp-manager", ticket)
	assert.NoError(t, rule.Authorize(s, ticket))
}

func TestReviewAndReopenReservedForReporter(t *testing.T) {
	ticket := ticketIn(domain.StatusFinished)

	for _, action := range []domain.ActionName{domain.ActionApproveReview, domain.ActionReopen} {
		rule, ok := Lookup(action, domain.StatusFinished)
		require.True(t, ok)

		s := StandingFor(domain.LevelOperator, "emp-reporter", ticket)
		assert.NoErrorf(t, rule.Authorize(s, ticket), "action %q", action)

		s = StandingFor(domain.LevelManager, "emp-manager", ticket)
		assert.Errorf(t, rule.Authorize(s, ticket), "action %q", action)
	}
}
