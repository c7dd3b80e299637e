package domain

import "time"

// EvidenceTag marks whether an artifact documents the state before or after
// the repair. At least one AFTER artifact gates the finish transition.
type EvidenceTag string

const (
	EvidenceBefore EvidenceTag = "BEFORE"
	EvidenceAfter  EvidenceTag = "AFTER"
)

// EvidenceArtifact is the metadata record of an uploaded image. Byte storage
// and compression live outside this service.
type EvidenceArtifact struct {
	ID         string
	TicketID   string
	UploaderID string
	Tag        EvidenceTag
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
