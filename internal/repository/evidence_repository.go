package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plantops/finding-service/internal/domain"
)

// EvidenceStore persists evidence artifact metadata. The finish guard
// consults HasAfterEvidence; actual image bytes live outside this service.
type EvidenceStore interface {
	Create(ctx context.Context, artifact *domain.EvidenceArtifact) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.EvidenceArtifact, error)
	HasAfterEvidence(ctx context.Context, ticketID string) (bool, error)
}

type evidenceStore struct {
	pool *pgxpool.Pool
}

// NewEvidenceStore builds the store.
func NewEvidenceStore(pool *pgxpool.Pool) EvidenceStore {
	return &evidenceStore{pool: pool}
}

func (s *evidenceStore) Create(ctx context.Context, artifact *domain.EvidenceArtifact) error {
	const query = `
        INSERT INTO evidence_artifacts (ticket_id, uploader_id, tag, storage_key, file_name, mime_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return s.pool.QueryRow(ctx, query,
		artifact.TicketID,
		artifact.UploaderID,
		artifact.Tag,
		artifact.StorageKey,
		artifact.FileName,
		artifact.MimeType,
		artifact.SizeBytes,
	).Scan(&artifact.ID, &artifact.CreatedAt)
}

func (s *evidenceStore) ListByTicket(ctx context.Context, ticketID string) ([]domain.EvidenceArtifact, error) {
	const query = `
        SELECT id, ticket_id, uploader_id, tag, storage_key, file_name, mime_type, size_bytes, created_at
        FROM evidence_artifacts WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EvidenceArtifact
	for rows.Next() {
		var artifact domain.EvidenceArtifact
		if err := rows.Scan(
			&artifact.ID,
			&artifact.TicketID,
			&artifact.UploaderID,
			&artifact.Tag,
			&artifact.StorageKey,
			&artifact.FileName,
			&artifact.MimeType,
			&artifact.SizeBytes,
			&artifact.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, artifact)
	}
	return result, rows.Err()
}

func (s *evidenceStore) HasAfterEvidence(ctx context.Context, ticketID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM evidence_artifacts WHERE ticket_id=$1 AND tag=$2)`,
		ticketID, domain.EvidenceAfter,
	).Scan(&exists)
	return exists, err
}
