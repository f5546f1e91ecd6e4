package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/grievance-desk/internal/domain"
	"github.com/spec-kit/grievance-desk/internal/events"
	"github.com/spec-kit/grievance-desk/internal/repository"
)

// TicketStore owns the canonical ticket collection and is its only mutation
// point. Mutations are serialised and reach the collection only after the
// persistence adapter accepted them.
type TicketStore struct {
	mu         sync.RWMutex
	tickets    []domain.Ticket // newest insertion first
	repo       repository.TicketRepository
	dispatcher events.Dispatcher
	now        func() time.Time
	newID      func() string
}

// TicketStoreDependencies bundles collaborators for the store.
type TicketStoreDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Now        func() time.Time
	NewID      func() string
}

// NewTicketStore constructs an empty store. Call Reload to hydrate it from the adapter.
func NewTicketStore(deps TicketStoreDependencies) *TicketStore {
	s := &TicketStore{
		tickets:    []domain.Ticket{},
		repo:       deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		now:        deps.Now,
		newID:      deps.NewID,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Reload replaces the collection with the adapter's current contents. The
// write lock is held across the load so no committed mutation is overwritten
// by an older snapshot.
func (s *TicketStore) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.repo.LoadAll(ctx)
	if err != nil {
		return domain.NewAdapterError("load tickets", err)
	}
	slices.SortStableFunc(loaded, func(a, b domain.Ticket) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	s.tickets = loaded
	return nil
}

// List returns a snapshot of every ticket, newest insertion first.
func (s *TicketStore) List() []domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Ticket, len(s.tickets))
	for i := range s.tickets {
		out[i] = s.tickets[i].Clone()
	}
	return out
}

// Get returns a copy of the ticket with the given id.
func (s *TicketStore) Get(id string) (domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.tickets[i].Clone(), nil
	}
	return domain.Ticket{}, domain.ErrTicketNotFound
}

// Create builds the defaults first, merges the caller payload over them and
// prepends the result. Payload status and assignee override the defaults.
func (s *TicketStore) Create(ctx context.Context, input domain.NewTicket) (domain.Ticket, error) {
	if err := validateNewTicket(&input); err != nil {
		return domain.Ticket{}, err
	}

	now := s.now()
	ticket := domain.Ticket{
		ID:        s.newID(),
		Status:    domain.TicketStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
		Comments:  []domain.Comment{},
	}
	ticket.Title = strings.TrimSpace(input.Title)
	ticket.Description = strings.TrimSpace(input.Description)
	ticket.Category = input.Category
	ticket.Priority = input.Priority
	ticket.CreatedBy = input.CreatedBy
	if input.Attachment != nil {
		att := *input.Attachment
		ticket.Attachment = &att
	}
	if input.Status != nil {
		ticket.Status = *input.Status
	}
	if input.AssigneeID != nil {
		assignee := *input.AssigneeID
		ticket.AssigneeID = &assignee
	}

	s.mu.Lock()
	if err := s.repo.Insert(ctx, &ticket); err != nil {
		s.mu.Unlock()
		return domain.Ticket{}, domain.NewAdapterError("insert ticket", err)
	}
	s.tickets = append([]domain.Ticket{ticket.Clone()}, s.tickets...)
	s.mu.Unlock()

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: ticket.CreatedBy},
		Payload: events.TicketCreatedPayload{
			Category: ticket.Category,
			Priority: ticket.Priority,
			Title:    ticket.Title,
		},
	})
	return ticket, nil
}

// Update shallow-overwrites the patch fields and always refreshes updated_at,
// even for an empty patch. Unknown ids yield domain.ErrTicketNotFound and
// leave the collection untouched. Concurrent updates are last-write-wins.
func (s *TicketStore) Update(ctx context.Context, actor events.Actor, id string, patch domain.TicketPatch) (domain.Ticket, error) {
	if err := patch.Validate(); err != nil {
		return domain.Ticket{}, err
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	previous := s.tickets[i]
	updated := previous.Clone()
	patch.Apply(&updated)
	updated.UpdatedAt = s.nextUpdatedAt(previous)

	if err := s.repo.Update(ctx, &updated); err != nil {
		s.mu.Unlock()
		return domain.Ticket{}, domain.NewAdapterError("update ticket", err)
	}
	// Replace the element rather than mutating it; snapshots stay intact.
	next := make([]domain.Ticket, len(s.tickets))
	copy(next, s.tickets)
	next[i] = updated.Clone()
	s.tickets = next
	s.mu.Unlock()

	if patch.IsEmpty() {
		s.publishEvent(ctx, events.Event{Type: events.EventTicketUpdated, TicketID: updated.ID, Actor: actor})
	} else {
		s.publishChanges(ctx, actor, previous, updated)
	}
	return updated, nil
}

func (s *TicketStore) indexOf(id string) int {
	for i := range s.tickets {
		if s.tickets[i].ID == id {
			return i
		}
	}
	return -1
}

// nextUpdatedAt never moves backwards past the previous updated_at or created_at.
func (s *TicketStore) nextUpdatedAt(previous domain.Ticket) time.Time {
	now := s.now()
	if now.Before(previous.UpdatedAt) {
		now = previous.UpdatedAt
	}
	if now.Before(previous.CreatedAt) {
		now = previous.CreatedAt
	}
	return now
}

func validateNewTicket(input *domain.NewTicket) error {
	if strings.TrimSpace(input.Title) == "" {
		return domain.NewValidationError("title", "must not be empty")
	}
	if strings.TrimSpace(input.Description) == "" {
		return domain.NewValidationError("description", "must not be empty")
	}
	if strings.TrimSpace(input.CreatedBy) == "" {
		return domain.NewValidationError("created_by", "must not be empty")
	}
	if input.Category == "" {
		input.Category = domain.TicketCategoryGeneral
	}
	if !input.Category.Valid() {
		return domain.NewValidationError("category", "unknown category "+string(input.Category))
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if !input.Priority.Valid() {
		return domain.NewValidationError("priority", "unknown priority "+string(input.Priority))
	}
	if input.Status != nil && !input.Status.Valid() {
		return domain.NewValidationError("status", "unknown status "+string(*input.Status))
	}
	return nil
}

func (s *TicketStore) publishChanges(ctx context.Context, actor events.Actor, previous, updated domain.Ticket) {
	s.publishEvent(ctx, events.Event{Type: events.EventTicketUpdated, TicketID: updated.ID, Actor: actor})

	if previous.Status != updated.Status {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: updated.ID,
			Actor:    actor,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: previous.Status,
				NewStatus: updated.Status,
			},
		})
	}
	if previous.Priority != updated.Priority {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketPriorityChanged,
			TicketID: updated.ID,
			Actor:    actor,
			Payload: events.TicketPriorityChangedPayload{
				OldPriority: previous.Priority,
				NewPriority: updated.Priority,
			},
		})
	}
	if !sameID(previous.AssigneeID, updated.AssigneeID) {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: updated.ID,
			Actor:    actor,
			Payload: events.TicketAssignedPayload{
				OldAssigneeID: previous.AssigneeID,
				NewAssigneeID: updated.AssigneeID,
			},
		})
	}
}

func (s *TicketStore) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
