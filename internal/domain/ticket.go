package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every status in workflow order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketPriorities lists every priority from lowest to highest rank.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// TicketCategory enumerates the areas a ticket can be filed under.
type TicketCategory string

const (
	TicketCategoryGeneral    TicketCategory = "general"
	TicketCategoryAcademic   TicketCategory = "academic"
	TicketCategoryFacilities TicketCategory = "facilities"
	TicketCategoryTechnical  TicketCategory = "technical"
	TicketCategoryHR         TicketCategory = "hr"
	TicketCategoryFinance    TicketCategory = "finance"
)

// TicketCategories lists every category in display order.
var TicketCategories = []TicketCategory{
	TicketCategoryGeneral,
	TicketCategoryAcademic,
	TicketCategoryFacilities,
	TicketCategoryTechnical,
	TicketCategoryHR,
	TicketCategoryFinance,
}

// Attachment is an opaque client-side file reference stored verbatim.
type Attachment struct {
	Name string
	URL  string
	Size int64
	Type string
}

// Comment is a note on a ticket thread.
type Comment struct {
	ID        string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

// Ticket is the aggregate for submitted grievances.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Category    TicketCategory
	Priority    TicketPriority
	Status      TicketStatus
	CreatedBy   string
	AssigneeID  *string
	Attachment  *Attachment
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Comments    []Comment
}

// Clone returns a deep copy so callers can mutate it without touching the original.
func (t Ticket) Clone() Ticket {
	out := t
	if t.AssigneeID != nil {
		id := *t.AssigneeID
		out.AssigneeID = &id
	}
	if t.Attachment != nil {
		att := *t.Attachment
		out.Attachment = &att
	}
	out.Comments = make([]Comment, len(t.Comments))
	copy(out.Comments, t.Comments)
	return out
}

// IsActive reports whether the ticket still awaits work.
func (t Ticket) IsActive() bool {
	return t.Status == TicketStatusOpen || t.Status == TicketStatusInProgress
}

// IsSettled reports whether the ticket reached resolved or closed.
func (t Ticket) IsSettled() bool {
	return t.Status == TicketStatusResolved || t.Status == TicketStatusClosed
}

// Validate checks enum membership of the stored fields.
func (t Ticket) Validate() error {
	if !t.Status.Valid() {
		return NewValidationError("status", "unknown status "+string(t.Status))
	}
	if !t.Priority.Valid() {
		return NewValidationError("priority", "unknown priority "+string(t.Priority))
	}
	if !t.Category.Valid() {
		return NewValidationError("category", "unknown category "+string(t.Category))
	}
	return nil
}

// NewTicket holds the caller-supplied fields for ticket creation.
type NewTicket struct {
	Title       string
	Description string
	Category    TicketCategory
	Priority    TicketPriority
	Attachment  *Attachment
	CreatedBy   string
	Status      *TicketStatus
	AssigneeID  *string
}

// TicketPatch is a shallow overwrite; nil fields are left untouched.
type TicketPatch struct {
	Title       *string
	Description *string
	Category    *TicketCategory
	Priority    *TicketPriority
	Status      *TicketStatus
	Assignee    *OptionalID
	Attachment  *OptionalAttachment
}

// OptionalID sets a nullable id; a nil Value clears it.
type OptionalID struct {
	Value *string
}

// OptionalAttachment sets a nullable attachment; a nil Value clears it.
type OptionalAttachment struct {
	Value *Attachment
}

// IsEmpty reports whether the patch carries no field changes.
func (p TicketPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Priority == nil && p.Status == nil && p.Assignee == nil && p.Attachment == nil
}

// Validate checks enum membership and non-empty text of the patch fields.
func (p TicketPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return NewValidationError("title", "must not be empty")
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return NewValidationError("description", "must not be empty")
	}
	if p.Category != nil && !p.Category.Valid() {
		return NewValidationError("category", "unknown category "+string(*p.Category))
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return NewValidationError("priority", "unknown priority "+string(*p.Priority))
	}
	if p.Status != nil && !p.Status.Valid() {
		return NewValidationError("status", "unknown status "+string(*p.Status))
	}
	return nil
}

// Apply overwrites the fields present in the patch.
func (p TicketPatch) Apply(t *Ticket) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Assignee != nil {
		if p.Assignee.Value == nil {
			t.AssigneeID = nil
		} else {
			id := *p.Assignee.Value
			t.AssigneeID = &id
		}
	}
	if p.Attachment != nil {
		if p.Attachment.Value == nil {
			t.Attachment = nil
		} else {
			att := *p.Attachment.Value
			t.Attachment = &att
		}
	}
}

// Valid reports membership in the status enumeration.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Valid reports membership in the priority enumeration.
func (p TicketPriority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities: low=1 < medium=2 < high=3 < urgent=4. Unknown values rank 0.
func (p TicketPriority) Rank() int {
	for i, candidate := range TicketPriorities {
		if candidate == p {
			return i + 1
		}
	}
	return 0
}

// IsHigh reports whether the priority is high or urgent.
func (p TicketPriority) IsHigh() bool {
	return p == TicketPriorityHigh || p == TicketPriorityUrgent
}

// Valid reports membership in the category enumeration.
func (c TicketCategory) Valid() bool {
	for _, candidate := range TicketCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseTicketStatus converts a raw identifier into a status.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	s := TicketStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", NewValidationError("status", "unknown status "+raw)
	}
	return s, nil
}

// ParseTicketPriority converts a raw identifier into a priority.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	p := TicketPriority(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", NewValidationError("priority", "unknown priority "+raw)
	}
	return p, nil
}

// ParseTicketCategory converts a raw identifier into a category.
func ParseTicketCategory(raw string) (TicketCategory, error) {
	c := TicketCategory(strings.ToLower(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", NewValidationError("category", "unknown category "+raw)
	}
	return c, nil
}
