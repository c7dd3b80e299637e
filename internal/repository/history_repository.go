package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plantops/finding-service/internal/domain"
)

// HistoryRepository reads the append-only status history. Writes happen only
// through TicketTx so they commit atomically with the transition.
type HistoryRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusHistoryEntry, error)
	CountByTicket(ctx context.Context, ticketID string) (int, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds the repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusHistoryEntry, error) {
	const query = `
        SELECT id, ticket_id, from_status, to_status, actor_id, to_user_id, comment, created_at
        FROM ticket_status_history WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusHistoryEntry
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.ActorID,
			&entry.ToUserID,
			&entry.Comment,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *historyRepository) CountByTicket(ctx context.Context, ticketID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ticket_status_history WHERE ticket_id=$1`, ticketID,
	).Scan(&count)
	return count, err
}
