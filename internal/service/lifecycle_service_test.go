package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/finding-service/internal/domain"
	"github.com/plantops/finding-service/internal/events"
	"github.com/plantops/finding-service/internal/observability"
	"github.com/plantops/finding-service/internal/repository"
	"github.com/plantops/finding-service/pkg/util"
)

// fakeStore is an in-memory TicketStore with the same transaction semantics
// as the pgx implementation: version-checked updates, rollback on error.
type fakeStore struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]*domain.Ticket
	history []domain.StatusHistoryEntry

	// afterLock fires after GetForUpdate returns, before the engine writes.
	afterLock func(stored *domain.Ticket)
}

func newFakeStore() *fakeStore {
	return &fakeStore{tickets: make(map[string]*domain.Ticket)}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *fakeStore) Create(_ context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket.ID = s.nextID("ticket")
	ticket.Version = 1
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	cp := *ticket
	s.tickets[ticket.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *stored
	return &cp, nil
}

func (s *fakeStore) GetByTicketNo(_ context.Context, ticketNo string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stored := range s.tickets {
		if stored.TicketNo == ticketNo {
			cp := *stored
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeStore) ListWithFilter(_ context.Context, _ repository.TicketFilter) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Ticket
	for _, stored := range s.tickets {
		result = append(result, *stored)
	}
	return result, nil
}

func (s *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.TicketTx) error) error {
	s.mu.Lock()
	snapTickets := make(map[string]*domain.Ticket, len(s.tickets))
	for id, stored := range s.tickets {
		cp := *stored
		snapTickets[id] = &cp
	}
	snapHistory := append([]domain.StatusHistoryEntry(nil), s.history...)
	s.mu.Unlock()

	if err := fn(ctx, &fakeTx{store: s}); err != nil {
		s.mu.Lock()
		s.tickets = snapTickets
		s.history = snapHistory
		s.mu.Unlock()
		return err
	}
	return nil
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) GetForUpdate(_ context.Context, id string) (*domain.Ticket, error) {
	t.store.mu.Lock()
	stored, ok := t.store.tickets[id]
	if !ok {
		t.store.mu.Unlock()
		return nil, pgx.ErrNoRows
	}
	cp := *stored
	t.store.mu.Unlock()

	if t.store.afterLock != nil {
		t.store.afterLock(stored)
	}
	return &cp, nil
}

func (t *fakeTx) Update(_ context.Context, ticket *domain.Ticket) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	stored, ok := t.store.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	ticket.Version++
	ticket.UpdatedAt = time.Now()
	cp := *ticket
	t.store.tickets[ticket.ID] = &cp
	return nil
}

func (t *fakeTx) Delete(_ context.Context, id string) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if _, ok := t.store.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(t.store.tickets, id)
	return nil
}

func (t *fakeTx) AppendHistory(_ context.Context, entry *domain.StatusHistoryEntry) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	entry.ID = t.store.nextID("hist")
	entry.CreatedAt = time.Now()
	t.store.history = append(t.store.history, *entry)
	return nil
}

type fakeHistory struct {
	store *fakeStore
}

func (h *fakeHistory) ListByTicket(_ context.Context, ticketID string) ([]domain.StatusHistoryEntry, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	var result []domain.StatusHistoryEntry
	for _, entry := range h.store.history {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (h *fakeHistory) CountByTicket(ctx context.Context, ticketID string) (int, error) {
	entries, _ := h.ListByTicket(ctx, ticketID)
	return len(entries), nil
}

type fakeDirectory struct {
	employees map[string]*domain.Employee
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{employees: make(map[string]*domain.Employee)}
}

func (d *fakeDirectory) add(id string, level int, active bool) *domain.Employee {
	employee := &domain.Employee{
		ID:            id,
		Name:          id,
		Email:         id + "@plant.example",
		ApprovalLevel: level,
		Active:        active,
	}
	d.employees[id] = employee
	return employee
}

func (d *fakeDirectory) Create(_ context.Context, employee *domain.Employee) error {
	if employee.ID == "" {
		employee.ID = fmt.Sprintf("emp-%d", len(d.employees)+1)
	}
	d.employees[employee.ID] = employee
	return nil
}

func (d *fakeDirectory) Update(_ context.Context, employee *domain.Employee) error {
	if _, ok := d.employees[employee.ID]; !ok {
		return pgx.ErrNoRows
	}
	d.employees[employee.ID] = employee
	return nil
}

func (d *fakeDirectory) GetByID(_ context.Context, id string) (*domain.Employee, error) {
	employee, ok := d.employees[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *employee
	return &cp, nil
}

func (d *fakeDirectory) GetByEmail(_ context.Context, email string) (*domain.Employee, error) {
	for _, employee := range d.employees {
		if employee.Email == email {
			cp := *employee
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (d *fakeDirectory) ResolveApprovalLevel(_ context.Context, employeeID string) (int, error) {
	employee, ok := d.employees[employeeID]
	if !ok || !employee.Active {
		return 0, pgx.ErrNoRows
	}
	return employee.ApprovalLevel, nil
}

func (d *fakeDirectory) ResolveEligibleAssignees(_ context.Context, minLevel int, escalationOnly bool) ([]domain.Employee, error) {
	var result []domain.Employee
	for _, employee := range d.employees {
		if !employee.Active {
			continue
		}
		if escalationOnly {
			if employee.ApprovalLevel == domain.LevelSenior {
				result = append(result, *employee)
			}
			continue
		}
		if employee.ApprovalLevel >= minLevel {
			result = append(result, *employee)
		}
	}
	return result, nil
}

type fakeEvidence struct {
	after map[string]bool
}

func newFakeEvidence() *fakeEvidence {
	return &fakeEvidence{after: make(map[string]bool)}
}

func (e *fakeEvidence) Create(_ context.Context, artifact *domain.EvidenceArtifact) error {
	if artifact.Tag == domain.EvidenceAfter {
		e.after[artifact.TicketID] = true
	}
	return nil
}

func (e *fakeEvidence) ListByTicket(_ context.Context, _ string) ([]domain.EvidenceArtifact, error) {
	return nil, nil
}

func (e *fakeEvidence) HasAfterEvidence(_ context.Context, ticketID string) (bool, error) {
	return e.after[ticketID], nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(_ events.EventType, _ events.EventHandler) {}

func (d *recordingDispatcher) ofType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

type engineFixture struct {
	store      *fakeStore
	directory  *fakeDirectory
	evidence   *fakeEvidence
	dispatcher *recordingDispatcher
	metrics    *observability.Metrics
	engine     *LifecycleService

	reporter domain.ActorRef
	engineer domain.ActorRef
	senior   domain.ActorRef
	manager  domain.ActorRef
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	store := newFakeStore()
	directory := newFakeDirectory()
	evidence := newFakeEvidence()
	dispatcher := &recordingDispatcher{}
	metrics := observability.NewMetrics()

	directory.add("op-1", domain.LevelOperator, true)
	directory.add("eng-2", domain.LevelEngineer, true)
	directory.add("sen-3", domain.LevelSenior, true)
	directory.add("mgr-4", domain.LevelManager, true)

	engine := NewLifecycleService(LifecycleDependencies{
		Store:       store,
		HistoryRepo: &fakeHistory{store: store},
		Directory:   directory,
		Evidence:    evidence,
		Assignments: NewAssignmentService(directory),
		Dispatcher:  dispatcher,
		Metrics:     metrics,
	})

	return &engineFixture{
		store:      store,
		directory:  directory,
		evidence:   evidence,
		dispatcher: dispatcher,
		metrics:    metrics,
		engine:     engine,
		reporter:   domain.ActorRef{ID: "op-1", Name: "op-1"},
		engineer:   domain.ActorRef{ID: "eng-2", Name: "eng-2"},
		senior:     domain.ActorRef{ID: "sen-3", Name: "sen-3"},
		manager:    domain.ActorRef{ID: "mgr-4", Name: "mgr-4"},
	}
}

func (f *engineFixture) report(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.engine.ReportFinding(context.Background(), f.reporter, ReportFindingInput{
		Title:       "bearing vibration on pump 3",
		Description: "audible knocking near the drive end",
	})
	require.NoError(t, err)
	return ticket
}

func (f *engineFixture) apply(t *testing.T, ticketID string, action domain.ActionName, actor domain.ActorRef, payload domain.ActionPayload) *domain.Ticket {
	t.Helper()
	ticket, err := f.engine.ApplyAction(context.Background(), ticketID, action, actor, payload)
	require.NoErrorf(t, err, "action %q", action)
	return ticket
}

func timePtr(t time.Time) *time.Time { return &t }

func schedule() (start, finish *time.Time) {
	s := time.Date(2026, 9, 2, 8, 0, 0, 0, time.UTC)
	return timePtr(s), timePtr(s.Add(8 * time.Hour))
}

func TestReportFindingCreatesOpenTicket(t *testing.T) {
	f := newEngineFixture(t)

	ticket := f.report(t)
	assert.Equal(t, domain.StatusOpen, ticket.Status)
	assert.Equal(t, domain.CriticalMedium, ticket.CriticalLevel)
	assert.True(t, strings.HasPrefix(ticket.TicketNo, "AF-"))
	assert.Equal(t, "op-1", ticket.ReporterID)
	assert.Nil(t, ticket.AssignedTo)
	assert.EqualValues(t, 1, ticket.Version)

	reported := f.dispatcher.ofType(events.EventFindingReported)
	require.Len(t, reported, 1)
	assert.Equal(t, ticket.ID, reported[0].TicketID)
}

func TestReportFindingRequiresTitle(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.ReportFinding(context.Background(), f.reporter, ReportFindingInput{Title: "   "})
	require.Error(t, err)
	assert.Equal(t, util.CodeValidationFailed, util.CodeOf(err))
}

func TestFullLifecycleToClosed(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.report(t)
	start, finish := schedule()

	ticket = f.apply(t, ticket.ID, domain.ActionAccept, f.engineer, domain.AcceptPayload{Note: "confirmed on site"})
	assert.Equal(t, domain.StatusAccepted, ticket.Status)

	ticket = f.apply(t, ticket.ID, domain.ActionPlan, f.engineer, domain.PlanPayload{
		ScheduleStart:  start,
		ScheduleFinish: finish,
		AssigneeID:     "eng-2",
	})
	assert.Equal(t, domain.StatusPlaned, ticket.Status)
	require.NotNil(t, ticket.AssignedTo)
	assert.Equal(t, "eng-2", *ticket.AssignedTo)

	ticket = f.apply(t, ticket.ID, domain.ActionStart, f.engineer, domain.StartPayload{ActualStartAt: start})
	assert.Equal(t, domain.StatusInProgress, ticket.Status)

	require.NoError(t, f.evidence.Create(context.Background(), &domain.EvidenceArtifact{
		TicketID: ticket.ID,
		Tag:      domain.EvidenceAfter,
	}))

	hours, cost, mode := 3.5, 900.0, int64(12)
	ticket = f.apply(t, ticket.ID, domain.ActionFinish, f.engineer, domain.FinishPayload{
		DowntimeAvoidanceHours: &hours,
		CostAvoidance:          &cost,
		FailureModeID:          &mode,
		ActualFinishAt:         finish,
	})
	assert.Equal(t, domain.StatusFinished, ticket.Status)

	rating := 5
	ticket = f.apply(t, ticket.ID, domain.ActionApproveReview, f.reporter, domain.ApproveReviewPayload{SatisfactionRating: &rating})
	assert.Equal(t, domain.StatusReviewed, ticket.Status)
	require.NotNil(t, ticket.SatisfactionRating)
	assert.Equal(t, 5, *ticket.SatisfactionRating)

	ticket = f.apply(t, ticket.ID, domain.ActionApproveClose, f.manager, domain.ApproveClosePayload{Note: "well handled"})
	assert.Equal(t, domain.StatusClosed, ticket.Status)
	assert.True(t, ticket.Status.IsTerminal())

	// Six transitions, plus one assignment entry from plan.
	entries, err := f.engine.ListHistory(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 7)
	assert.Equal(t, domain.StatusOpen, entries[0].FromStatus)

	assert.EqualValues(t, 1, f.metrics.ActionCount(string(domain.ActionAccept), "ok"))
	assert.EqualValues(t, 1, f.metrics.ActionCount(string(domain.ActionApproveClose), "ok"))
	assert.Len(t, f.dispatcher.ofType(events.EventStatusChanged), 6)
	assert.Len(t, f.dispatcher.ofType(events.EventAssignmentChanged), 1)
}

func TestRejectionEscalatesToFinal(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.report(t)

	ticket = f.apply(t, ticket.ID, domain.ActionReject, f.engineer, domain.RejectPayload{Reason: "not reproducible"})
	assert.Equal(t, domain.StatusRejectedPendingL3Review, ticket.Status)

	ticket = f.apply(t, ticket.ID, domain.ActionReject, f.senior, domain.RejectPayload{Reason: "confirmed, duplicate of AF-00000001"})
	assert.Equal(t, domain.StatusRejectedFinal, ticket.Status)
	assert.True(t, ticket.Status.IsTerminal())

	_, err := f.engine.ApplyAction(context.Background(), ticket.ID, domain.ActionAccept, f.senior, domain.AcceptPayload{})
	require.Error(t, err)
	assert.Equal(t, util.CodeInvalidTransition, util.CodeOf(err))
}

func TestSeniorOverridesPendingRejection(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.report(t)

	ticket = f.apply(t, ticket.ID, domain.ActionReject, f.engineer, domain.RejectPayload{Reason: "looks cosmetic"})
	require.Equal(t, domain.StatusRejectedPendingL3Review, ticket.Status)

	_, err := f.engine.ApplyAction(context.Background(), ticket.ID, domain.ActionAccept, f.engineer, domain.AcceptPayload{})
	require.Error(t, err)
	assert.Equal(t, util.CodeUnauthorizedAction, util.CodeOf(err))

	ticket = f.apply(t, ticket.ID, domain.ActionAccept, f.senior, domain.AcceptPayload{Note: "valid finding"})
	assert.Equal(t, domain.StatusAccepted, ticket.Status)
}

func TestFinishGatedOnAfterEvidence(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.report(t)
	start, finish := schedule()

	f.apply(t, ticket.ID, domain.ActionAccept, f.engineer, domain.AcceptPayload{})
	f.apply(t, ticket.ID, domain.ActionPlan, f.engineer, domain.PlanPayload{ScheduleStart: start, ScheduleFinish: finish, AssigneeID: "eng-2"})
	f.apply(t, ticket.ID, domain.ActionStart, f.engineer, domain.StartPayload{ActualStartAt: start})

	hours, cost, mode := 1.0, 100.0, int64(1)
	payload := domain.FinishPayload{
		DowntimeAvoidanceHours: &hours,
		CostAvoidance:          &cost,
		FailureModeID:          &mode,
		ActualFinishAt:         finish,
	}

	_, err := f.engine.ApplyAction(context.Background(), ticket.ID, domain.ActionFinish, f.engineer, payload)
	require.Error(t, err)
	assert.Equal(t, util.CodeValidationFailed, util.CodeOf(err))

	require.NoError(t, f.evidence.Create(context.Background(), &domain.EvidenceArtifact{TicketID: ticket.ID, Tag: domain.EvidenceAfter}))
	updated := f.apply(t, ticket.ID, domain.ActionFinish, f.engineer, payload)
	assert.Equal(t, domain.StatusFinished, updated.Status)
}

func TestSelfAssignmentRuleForEngineers(t *testing.T) {
	f := newEngineFixture(t)
	f.directory.add("eng-5", domain.LevelEngineer, true)
	ticket := f.report(t)
	start, finish := schedule()

	f.apply(t, ticket.ID, domain.ActionAccept, f.engineer, domain.AcceptPayload{})

	_, err := f.engine.ApplyAction(context.Background(), ticket.ID, domain.ActionPlan, f.engineer, domain.PlanPayload{
		ScheduleStart:  start,
		ScheduleFinish: finish,
		AssigneeID:     "eng-5",
	})
	require.Error(t, err)
	assert.Equal(t, util.CodeSelfAssignmentNotAllowed, util.CodeOf(err))

	// Level 3 assigns freely.
	updated := f.apply(t, ticket.ID, domain.ActionPlan, f.senior, domain.PlanPayload{
		ScheduleStart:  start,
		ScheduleFinish: finish,
		AssigneeID:     "eng-5",
	})
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, "eng-5", *updated.AssignedTo)
}

func TestReporterWhoHoldsTheTicketCanWorkIt(t *testing.T) {
	f := newEngineFixture(t)
	start, finish := schedule()

	// A level-2 engineer reports their own finding; the self-assignment rule
	// then forces them to plan the ticket onto themselves.
	ticket, err := f.engine.ReportFinding(context.Background(), f.engineer, ReportFindingInput{
		Title: "coupling guard missing on conveyor 7",
	})
	require.NoError(t, err)

	f.apply(t, ticket.ID, domain.ActionAccept, f.engineer, domain.AcceptPayload{})
	updated := f.apply(t, ticket.ID, domain.ActionPlan, f.engineer, domain.PlanPayload{
		ScheduleStart:  start,
		ScheduleFinish: finish,
		AssigneeID:     "eng-2",
	})
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, ticket.ReporterID, *updated.AssignedTo)

	updated = f.apply(t, ticket.ID, domain.ActionStart, f.engineer, domain.StartPayload{ActualStartAt: start})
	assert.Equal(t, domain.StatusInProgress, updated.Status)

	require.NoError(t, f.evidence.Create(context.Background(), &domain.EvidenceArtifact{TicketID: ticket.ID, Tag: domain.EvidenceAfter}))
	hours, cost, mode := 2.0, 300.0, int64(4)
	updated = f.apply(t, ticket.ID, domain.ActionFinish, f.engineer, domain.FinishPayload{
		DowntimeAvoidanceHours: &hours,
		CostAvoidance:          &cost,
		FailureModeID:          &mode,
		ActualFinishAt:         finish,
	})
	assert.Equal(t, domain.StatusFinished, updated.Status)
}

func TestEscalateKeepsStatusAndHandsOff(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.report(t)
	start, finish := schedule()

	f.apply(t, ticket.ID, domain.ActionAccept, f.engineer, domain.AcceptPayload{})
	f.apply(t, ticket.ID, domain.ActionPlan, f.engineer, domain.PlanPayload{ScheduleStart: start, ScheduleFinish: finish, AssigneeID: "eng-2"})
	f.apply(t, ticket.ID, domain.ActionStart, f.engineer, domain.StartPayload{ActualStartAt: start})

	updated := f.apply(t, ticket.ID, domain.ActionEscalate, f.engineer, domain.EscalatePayload{
		Reason:   "needs a crane crew",
		TargetID: "sen-3",
	})
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, "sen-3", *updated.AssignedTo)
	assert.Len(t, f.dispatcher.ofType(events.EventEscalated), 1)

	// Escalating to a manager is not allowed; the chain goes through level 3.
	_, err := f.engine.ApplyAction(context.Background(), ticket.ID, domain.ActionEscalate, f.senior, domain.EscalatePayload{
		Reason:   "one more level",
		TargetID: "mgr-4",
	})
	require.Error(t, err)
	assert.Equal(t, util.CodeValidationFailed, util.CodeOf(err))
}

func TestReopenResetsCompletionAndIsReporterOnly(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.report(t)
	start, finish := schedule()

	f.apply(t, ticket.ID, domain.ActionAccept, f.engineer, domain.AcceptPayload{})
	f.apply(t, ticket.ID, domain.ActionPlan, f.engineer, domain.PlanPayload{ScheduleStart: start, ScheduleFinish: finish, AssigneeID: "eng-2"})
	f.apply(t, ticket.ID, domain.ActionStart, f.engineer, domain.StartPayload{ActualStartAt: start})
	require.NoError(t, f.evidence.Create(context.Background(), &domain.EvidenceArtifact{TicketID: ticket.ID, Tag: domain.EvidenceAfter}))

	hours, cost, mode := 1.0, 100.0, int64(1)
	f.apply(t, ticket.ID, domain.ActionFinish, f.engineer, domain.FinishPayload{
		DowntimeAvoidanceHours: &hours,
		CostAvoidance:          &cost,
		FailureModeID:          &mode,
		ActualFinishAt:         finish,
	})

	_, err := f.engine.ApplyAction(context.Background(), ticket.ID, domain.ActionReopen, f.engineer, domain.ReopenPayload{Reason: "still knocking"})
	require.Error(t, err)
	assert.Equal(t, util.CodeUnauthorizedAction, util.CodeOf(err))

	updated := f.apply(t, ticket.ID, domain.ActionReopen, f.reporter, domain.ReopenPayload{Reason: "still knocking"})
	assert.Equal(t, domain.StatusReopenedInProgress, updated.Status)
	assert.Nil(t, updated.ActualFinishAt)
}

func TestConcurrentModificationRollsBack(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.report(t)

	f.store.afterLock = func(stored *domain.Ticket) {
		stored.Version++
	}

	_, err := f.engine.ApplyAction(context.Background(), ticket.ID, domain.ActionAccept, f.engineer, domain.AcceptPayload{})
	require.Error(t, err)
	assert.Equal(t, util.CodeConcurrentModification, util.CodeOf(err))

	entries, listErr := f.engine.ListHistory(context.Background(), ticket.ID)
	require.NoError(t, listErr)
	assert.Empty(t, entries)
	assert.Empty(t, f.dispatcher.ofType(events.EventStatusChanged))
	assert.EqualValues(t, 1, f.metrics.ActionCount(string(domain.ActionAccept), util.CodeConcurrentModification))
}

func TestDeleteIsAuditedAndHistorySurvives(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.report(t)

	f.apply(t, ticket.ID, domain.ActionDelete, f.senior, domain.DeletePayload{Reason: "test entry, filed against the wrong plant"})

	_, err := f.engine.GetFinding(context.Background(), ticket.ID)
	require.Error(t, err)
	assert.Equal(t, util.CodeNotFound, util.CodeOf(err))

	entries, listErr := f.engine.ListHistory(context.Background(), ticket.ID)
	require.NoError(t, listErr)
	require.Len(t, entries, 1)
	assert.Equal(t, "test entry, filed against the wrong plant", entries[0].Comment)
	assert.Len(t, f.dispatcher.ofType(events.EventFindingDeleted), 1)
}

func TestDeleteRequiresSeniorLevel(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.report(t)

	_, err := f.engine.ApplyAction(context.Background(), ticket.ID, domain.ActionDelete, f.engineer, domain.DeletePayload{Reason: "cleanup"})
	require.Error(t, err)
	assert.Equal(t, util.CodeUnauthorizedAction, util.CodeOf(err))
}

func TestUnknownActorIsUnauthorized(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.report(t)

	ghost := domain.ActorRef{ID: "ghost-9", Name: "ghost"}
	_, err := f.engine.ApplyAction(context.Background(), ticket.ID, domain.ActionAccept, ghost, domain.AcceptPayload{})
	require.Error(t, err)
	assert.Equal(t, util.CodeUnauthorized, util.CodeOf(err))

	f.directory.add("off-1", domain.LevelSenior, false)
	_, err = f.engine.ApplyAction(context.Background(), ticket.ID, domain.ActionAccept,
		domain.ActorRef{ID: "off-1"}, domain.AcceptPayload{})
	require.Error(t, err)
	assert.Equal(t, util.CodeUnauthorized, util.CodeOf(err))
}

func TestUnknownActionIsInvalidTransition(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.report(t)

	_, err := f.engine.ApplyAction(context.Background(), ticket.ID, domain.ActionName("explode"), f.senior, nil)
	require.Error(t, err)
	assert.Equal(t, util.CodeInvalidTransition, util.CodeOf(err))
}

func TestMissingTicketIsNotFound(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.ApplyAction(context.Background(), "ticket-404", domain.ActionAccept, f.engineer, domain.AcceptPayload{})
	require.Error(t, err)
	assert.Equal(t, util.CodeNotFound, util.CodeOf(err))
}

func TestFailedActionEmitsNothing(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.report(t)
	before := len(f.dispatcher.ofType(events.EventStatusChanged))

	_, err := f.engine.ApplyAction(context.Background(), ticket.ID, domain.ActionPlan, f.reporter, domain.PlanPayload{})
	require.Error(t, err)

	assert.Len(t, f.dispatcher.ofType(events.EventStatusChanged), before)
	stored, getErr := f.engine.GetFinding(context.Background(), ticket.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusOpen, stored.Status)
}
