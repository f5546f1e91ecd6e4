package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/grievance-desk/internal/analytics"
	"github.com/spec-kit/grievance-desk/internal/domain"
)

// Optional distinguishes an absent JSON field from an explicit null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON marks the field as present; null leaves Value nil.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// AttachmentDTO is attachment metadata as sent and returned by the API.
type AttachmentDTO struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Priority    string         `json:"priority"`
	Status      string         `json:"status"`
	AssigneeID  *string        `json:"assignee_id"`
	Attachment  *AttachmentDTO `json:"attachment"`
}

// UpdateTicketRequest payload. Absent fields are left unchanged; an explicit
// null clears assignee_id or attachment.
type UpdateTicketRequest struct {
	Title       *string                 `json:"title"`
	Description *string                 `json:"description"`
	Category    *string                 `json:"category"`
	Priority    *string                 `json:"priority"`
	Status      *string                 `json:"status"`
	AssigneeID  Optional[string]        `json:"assignee_id"`
	Attachment  Optional[AttachmentDTO] `json:"attachment"`
}

// TouchesTriageFields reports whether the request changes fields reserved to admins.
func (r UpdateTicketRequest) TouchesTriageFields() bool {
	return r.Priority != nil || r.Status != nil || r.AssigneeID.Set
}

// CommentDTO is a ticket comment.
type CommentDTO struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	CreatedBy   string                `json:"created_by"`
	AssigneeID  *string               `json:"assignee_id"`
	Attachment  *AttachmentDTO        `json:"attachment"`
	Comments    []CommentDTO          `json:"comments"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// StatusGroupResponse is one column of the grouped view.
type StatusGroupResponse struct {
	Status  domain.TicketStatus `json:"status"`
	Count   int                 `json:"count"`
	Tickets []TicketResponse    `json:"tickets"`
}

// StatsResponse backs the admin dashboard.
type StatsResponse struct {
	Total                 int                           `json:"total"`
	Resolved              int                           `json:"resolved"`
	HighPriorityOpen      int                           `json:"high_priority_open"`
	AverageResolutionTime analytics.ResolutionTime      `json:"average_resolution_time"`
	ByStatus              map[domain.TicketStatus]int   `json:"by_status"`
	ByCategory            map[domain.TicketCategory]int `json:"by_category"`
	Recent                []TicketResponse              `json:"recent"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t domain.Ticket) TicketResponse {
	comments := make([]CommentDTO, 0, len(t.Comments))
	for _, c := range t.Comments {
		comments = append(comments, CommentDTO{ID: c.ID, AuthorID: c.AuthorID, Body: c.Body, CreatedAt: c.CreatedAt})
	}
	var attachment *AttachmentDTO
	if t.Attachment != nil {
		attachment = &AttachmentDTO{
			Name: t.Attachment.Name,
			URL:  t.Attachment.URL,
			Size: t.Attachment.Size,
			Type: t.Attachment.Type,
		}
	}
	return TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Priority:    t.Priority,
		Status:      t.Status,
		CreatedBy:   t.CreatedBy,
		AssigneeID:  t.AssigneeID,
		Attachment:  attachment,
		Comments:    comments,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// NewTicketResponses maps a slice, never returning nil.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, NewTicketResponse(t))
	}
	return out
}

// ToDomain converts the attachment payload.
func (a *AttachmentDTO) ToDomain() *domain.Attachment {
	if a == nil {
		return nil
	}
	return &domain.Attachment{Name: a.Name, URL: a.URL, Size: a.Size, Type: a.Type}
}
