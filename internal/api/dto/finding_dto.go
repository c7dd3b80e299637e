package dto

import (
	"time"

	"github.com/plantops/finding-service/internal/domain"
)

// ReportFindingRequest is the body for reporting a new abnormal finding.
type ReportFindingRequest struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	CriticalLevel string  `json:"critical_level"`
	EquipmentID   *string `json:"equipment_id"`
	LocationID    *string `json:"location_id"`
}

// ActionRequest is the body for POST /findings/:id/actions. It is the flat
// superset of all per-action fields; Payload picks the variant for the named
// action and drops everything the action does not use.
type ActionRequest struct {
	Action string `json:"action"`

	Note   string `json:"note"`
	Reason string `json:"reason"`

	ScheduleStart  *time.Time `json:"schedule_start"`
	ScheduleFinish *time.Time `json:"schedule_finish"`
	AssigneeID     string     `json:"assignee_id"`

	ActualStartAt  *time.Time `json:"actual_start_at"`
	ActualFinishAt *time.Time `json:"actual_finish_at"`

	DowntimeAvoidanceHours *float64 `json:"downtime_avoidance_hours"`
	CostAvoidance          *float64 `json:"cost_avoidance"`
	FailureModeID          *int64   `json:"failure_mode_id"`

	TargetID           string `json:"target_id"`
	SatisfactionRating *int   `json:"satisfaction_rating"`

	NewLocationID    *string `json:"new_location_id"`
	NewEquipmentID   *string `json:"new_equipment_id"`
	NewCriticalLevel *string `json:"new_critical_level"`
}

// Payload maps the request onto the typed payload for its action. Unknown
// action names return a nil payload; the engine rejects them against the
// transition table.
func (r ActionRequest) Payload() domain.ActionPayload {
	switch domain.ActionName(r.Action) {
	case domain.ActionAccept:
		var level *domain.CriticalLevel
		if r.NewCriticalLevel != nil {
			l := domain.CriticalLevel(*r.NewCriticalLevel)
			level = &l
		}
		return domain.AcceptPayload{
			Note:             r.Note,
			NewLocationID:    r.NewLocationID,
			NewEquipmentID:   r.NewEquipmentID,
			NewCriticalLevel: level,
		}
	case domain.ActionPlan:
		return domain.PlanPayload{
			ScheduleStart:  r.ScheduleStart,
			ScheduleFinish: r.ScheduleFinish,
			AssigneeID:     r.AssigneeID,
		}
	case domain.ActionStart:
		return domain.StartPayload{ActualStartAt: r.ActualStartAt}
	case domain.ActionReject:
		return domain.RejectPayload{Reason: r.Reason}
	case domain.ActionFinish:
		return domain.FinishPayload{
			DowntimeAvoidanceHours: r.DowntimeAvoidanceHours,
			CostAvoidance:          r.CostAvoidance,
			FailureModeID:          r.FailureModeID,
			ActualFinishAt:         r.ActualFinishAt,
		}
	case domain.ActionEscalate:
		return domain.EscalatePayload{Reason: r.Reason, TargetID: r.TargetID}
	case domain.ActionApproveReview:
		return domain.ApproveReviewPayload{SatisfactionRating: r.SatisfactionRating, Note: r.Note}
	case domain.ActionReopen:
		return domain.ReopenPayload{Reason: r.Reason}
	case domain.ActionApproveClose:
		return domain.ApproveClosePayload{Note: r.Note}
	case domain.ActionReassign:
		return domain.ReassignPayload{
			ScheduleStart:  r.ScheduleStart,
			ScheduleFinish: r.ScheduleFinish,
			AssigneeID:     r.AssigneeID,
		}
	case domain.ActionDelete:
		return domain.DeletePayload{Reason: r.Reason}
	}
	return nil
}

// TicketResponse is the JSON shape of a finding.
type TicketResponse struct {
	ID            string  `json:"id"`
	TicketNo      string  `json:"ticket_no"`
	ReporterID    string  `json:"reporter_id"`
	AssignedTo    *string `json:"assigned_to,omitempty"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	CriticalLevel string  `json:"critical_level"`
	EquipmentID   *string `json:"equipment_id,omitempty"`
	LocationID    *string `json:"location_id,omitempty"`

	ScheduleStart  *time.Time `json:"schedule_start,omitempty"`
	ScheduleFinish *time.Time `json:"schedule_finish,omitempty"`
	ActualStartAt  *time.Time `json:"actual_start_at,omitempty"`
	ActualFinishAt *time.Time `json:"actual_finish_at,omitempty"`

	DowntimeAvoidanceHours *float64 `json:"downtime_avoidance_hours,omitempty"`
	CostAvoidance          *float64 `json:"cost_avoidance,omitempty"`
	FailureModeID          *int64   `json:"failure_mode_id,omitempty"`
	SatisfactionRating     *int     `json:"satisfaction_rating,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromTicket converts the domain aggregate.
func FromTicket(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                     t.ID,
		TicketNo:               t.TicketNo,
		ReporterID:             t.ReporterID,
		AssignedTo:             t.AssignedTo,
		Title:                  t.Title,
		Description:            t.Description,
		Status:                 string(t.Status),
		CriticalLevel:          string(t.CriticalLevel),
		EquipmentID:            t.EquipmentID,
		LocationID:             t.LocationID,
		ScheduleStart:          t.ScheduleStart,
		ScheduleFinish:         t.ScheduleFinish,
		ActualStartAt:          t.ActualStartAt,
		ActualFinishAt:         t.ActualFinishAt,
		DowntimeAvoidanceHours: t.DowntimeAvoidanceHours,
		CostAvoidance:          t.CostAvoidance,
		FailureModeID:          t.FailureModeID,
		SatisfactionRating:     t.SatisfactionRating,
		Version:                t.Version,
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
	}
}

// FromTickets converts a list.
func FromTickets(tickets []domain.Ticket) []TicketResponse {
	result := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		result = append(result, FromTicket(&tickets[i]))
	}
	return result
}

// HistoryEntryResponse is one audit trail row.
type HistoryEntryResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    string    `json:"actor_id"`
	ToUserID   *string   `json:"to_user_id,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// FromHistory converts history entries.
func FromHistory(entries []domain.StatusHistoryEntry) []HistoryEntryResponse {
	result := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, HistoryEntryResponse{
			ID:         e.ID,
			TicketID:   e.TicketID,
			FromStatus: string(e.FromStatus),
			ToStatus:   string(e.ToStatus),
			ActorID:    e.ActorID,
			ToUserID:   e.ToUserID,
			Comment:    e.Comment,
			CreatedAt:  e.CreatedAt,
		})
	}
	return result
}

// CreateCommentRequest is the body for adding a comment.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// CommentResponse is the JSON shape of a comment.
type CommentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// FromComments converts comments.
func FromComments(comments []domain.Comment) []CommentResponse {
	result := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		result = append(result, CommentResponse{
			ID:        c.ID,
			TicketID:  c.TicketID,
			AuthorID:  c.AuthorID,
			Body:      c.Body,
			CreatedAt: c.CreatedAt,
		})
	}
	return result
}

// RegisterEvidenceRequest is the body for registering evidence metadata.
type RegisterEvidenceRequest struct {
	Tag        string `json:"tag"`
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// EvidenceResponse is the JSON shape of an evidence artifact.
type EvidenceResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	UploaderID string    `json:"uploader_id"`
	Tag        string    `json:"tag"`
	StorageKey string    `json:"storage_key"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// FromEvidence converts artifacts.
func FromEvidence(artifacts []domain.EvidenceArtifact) []EvidenceResponse {
	result := make([]EvidenceResponse, 0, len(artifacts))
	for _, a := range artifacts {
		result = append(result, EvidenceResponse{
			ID:         a.ID,
			TicketID:   a.TicketID,
			UploaderID: a.UploaderID,
			Tag:        string(a.Tag),
			StorageKey: a.StorageKey,
			FileName:   a.FileName,
			MimeType:   a.MimeType,
			SizeBytes:  a.SizeBytes,
			CreatedAt:  a.CreatedAt,
		})
	}
	return result
}
