package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plantops/finding-service/internal/domain"
)

// ErrVersionConflict signals that a ticket row changed between the locked
// read and the write. The engine maps it to CONCURRENT_MODIFICATION.
var ErrVersionConflict = errors.New("ticket version conflict")

// TicketFilter captures listing parameters.
type TicketFilter struct {
	ReporterID    *string
	AssignedTo    *string
	Statuses      []domain.TicketStatus
	CriticalLevel *domain.CriticalLevel
	EquipmentID   *string
	LocationID    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// TicketTx is the transactional view the lifecycle engine works against.
// Every check-then-apply sequence runs entirely inside one TicketTx.
type TicketTx interface {
	// GetForUpdate loads the ticket under a row lock held until commit.
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	// Update writes the ticket, bumping its version. Returns
	// ErrVersionConflict when the stored version no longer matches.
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	AppendHistory(ctx context.Context, entry *domain.StatusHistoryEntry) error
}

// TicketStore encapsulates ticket persistence and the transaction boundary.
type TicketStore interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByTicketNo(ctx context.Context, ticketNo string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// InTx runs fn inside one transaction; a non-nil error rolls back every
	// effect, including appended history.
	InTx(ctx context.Context, fn func(ctx context.Context, tx TicketTx) error) error
}

type ticketStore struct {
	pool *pgxpool.Pool
}

// NewTicketStore instantiates the store.
func NewTicketStore(pool *pgxpool.Pool) TicketStore {
	return &ticketStore{pool: pool}
}

const ticketColumns = `id, ticket_no, reporter_id, assigned_to, title, description, status,
               critical_level, equipment_id, location_id,
               schedule_start, schedule_finish, actual_start_at, actual_finish_at,
               downtime_avoidance_hours, cost_avoidance, failure_mode_id, satisfaction_rating,
               version, created_at, updated_at`

func (s *ticketStore) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_no, reporter_id, assigned_to, title, description, status,
            critical_level, equipment_id, location_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, version, created_at, updated_at`
	return s.pool.QueryRow(ctx, query,
		ticket.TicketNo,
		ticket.ReporterID,
		ticket.AssignedTo,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.CriticalLevel,
		ticket.EquipmentID,
		ticket.LocationID,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (s *ticketStore) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(s.pool.QueryRow(ctx, query, id))
}

func (s *ticketStore) GetByTicketNo(ctx context.Context, ticketNo string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_no=$1`
	return scanTicket(s.pool.QueryRow(ctx, query, ticketNo))
}

func (s *ticketStore) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		clauses = append(clauses, fmt.Sprintf("reporter_id=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CriticalLevel != nil {
		args = append(args, *filter.CriticalLevel)
		clauses = append(clauses, fmt.Sprintf("critical_level=$%d", len(args)))
	}
	if filter.EquipmentID != nil {
		args = append(args, *filter.EquipmentID)
		clauses = append(clauses, fmt.Sprintf("equipment_id=$%d", len(args)))
	}
	if filter.LocationID != nil {
		args = append(args, *filter.LocationID)
		clauses = append(clauses, fmt.Sprintf("location_id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (s *ticketStore) InTx(ctx context.Context, fn func(ctx context.Context, tx TicketTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, &ticketTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type ticketTx struct {
	tx pgx.Tx
}

func (t *ticketTx) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	return scanTicket(t.tx.QueryRow(ctx, query, id))
}

func (t *ticketTx) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET assigned_to=$1, title=$2, description=$3, status=$4,
            critical_level=$5, equipment_id=$6, location_id=$7,
            schedule_start=$8, schedule_finish=$9, actual_start_at=$10, actual_finish_at=$11,
            downtime_avoidance_hours=$12, cost_avoidance=$13, failure_mode_id=$14, satisfaction_rating=$15,
            version=version+1, updated_at=NOW()
        WHERE id=$16 AND version=$17`
	cmd, err := t.tx.Exec(ctx, query,
		ticket.AssignedTo,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.CriticalLevel,
		ticket.EquipmentID,
		ticket.LocationID,
		ticket.ScheduleStart,
		ticket.ScheduleFinish,
		ticket.ActualStartAt,
		ticket.ActualFinishAt,
		ticket.DowntimeAvoidanceHours,
		ticket.CostAvoidance,
		ticket.FailureModeID,
		ticket.SatisfactionRating,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	ticket.Version++
	return nil
}

func (t *ticketTx) Delete(ctx context.Context, id string) error {
	cmd, err := t.tx.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (t *ticketTx) AppendHistory(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	const query = `
        INSERT INTO ticket_status_history (ticket_id, from_status, to_status, actor_id, to_user_id, comment)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return t.tx.QueryRow(ctx, query,
		entry.TicketID,
		entry.FromStatus,
		entry.ToStatus,
		entry.ActorID,
		entry.ToUserID,
		entry.Comment,
	).Scan(&entry.ID, &entry.CreatedAt)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNo,
		&ticket.ReporterID,
		&ticket.AssignedTo,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.CriticalLevel,
		&ticket.EquipmentID,
		&ticket.LocationID,
		&ticket.ScheduleStart,
		&ticket.ScheduleFinish,
		&ticket.ActualStartAt,
		&ticket.ActualFinishAt,
		&ticket.DowntimeAvoidanceHours,
		&ticket.CostAvoidance,
		&ticket.FailureModeID,
		&ticket.SatisfactionRating,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
