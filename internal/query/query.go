// Package query derives filtered, sorted and grouped views of a ticket
// collection. Every function is pure: inputs are never mutated and the
// result is always a fresh slice.
package query

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/spec-kit/grievance-desk/internal/domain"
)

// All disables a category or status predicate.
const All = "all"

// SortOrder selects the ordering applied after filtering.
type SortOrder string

const (
	SortNone     SortOrder = ""
	SortNewest   SortOrder = "newest"
	SortOldest   SortOrder = "oldest"
	SortPriority SortOrder = "priority"
	SortTitle    SortOrder = "title"
)

// Spec describes a desired view. Empty Category/Status behave like All.
type Spec struct {
	Search   string
	Category string
	Status   string
	SortBy   SortOrder
}

// ParseSpec builds a Spec from raw request values, rejecting unknown enum tags.
func ParseSpec(search, category, status, sortBy string) (Spec, error) {
	spec := Spec{Search: search, Category: All, Status: All}

	if category = strings.TrimSpace(category); category != "" && !strings.EqualFold(category, All) {
		parsed, err := domain.ParseTicketCategory(category)
		if err != nil {
			return Spec{}, err
		}
		spec.Category = string(parsed)
	}
	if status = strings.TrimSpace(status); status != "" && !strings.EqualFold(status, All) {
		parsed, err := domain.ParseTicketStatus(status)
		if err != nil {
			return Spec{}, err
		}
		spec.Status = string(parsed)
	}

	switch order := SortOrder(strings.ToLower(strings.TrimSpace(sortBy))); order {
	case SortNone, SortNewest, SortOldest, SortPriority, SortTitle:
		spec.SortBy = order
	default:
		return Spec{}, domain.NewValidationError("sort_by", "unknown sort order "+sortBy)
	}
	return spec, nil
}

// Matches reports whether a single ticket satisfies every predicate in s.
func (s Spec) Matches(t domain.Ticket) bool {
	if s.Search != "" {
		haystack := strings.ToLower(t.Title + " " + t.Description)
		if !strings.Contains(haystack, strings.ToLower(s.Search)) {
			return false
		}
	}
	if s.Category != "" && s.Category != All && string(t.Category) != s.Category {
		return false
	}
	if s.Status != "" && s.Status != All && string(t.Status) != s.Status {
		return false
	}
	return true
}

// Filter returns the tickets matching spec, ordered by spec.SortBy.
func Filter(tickets []domain.Ticket, spec Spec) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if spec.Matches(t) {
			out = append(out, t)
		}
	}
	sortInPlace(out, spec.SortBy)
	return out
}

// Sort returns a stably sorted copy of tickets.
func Sort(tickets []domain.Ticket, order SortOrder) []domain.Ticket {
	out := slices.Clone(tickets)
	if out == nil {
		out = []domain.Ticket{}
	}
	sortInPlace(out, order)
	return out
}

func sortInPlace(tickets []domain.Ticket, order SortOrder) {
	switch order {
	case SortNewest:
		slices.SortStableFunc(tickets, func(a, b domain.Ticket) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	case SortOldest:
		slices.SortStableFunc(tickets, func(a, b domain.Ticket) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
	case SortPriority:
		slices.SortStableFunc(tickets, func(a, b domain.Ticket) int {
			return b.Priority.Rank() - a.Priority.Rank()
		})
	case SortTitle:
		// Collators keep internal buffers and are not safe to share.
		collator := collate.New(language.English)
		slices.SortStableFunc(tickets, func(a, b domain.Ticket) int {
			return collator.CompareString(a.Title, b.Title)
		})
	}
}

// StatusGroup is one bucket of GroupByStatus.
type StatusGroup struct {
	Status  domain.TicketStatus
	Tickets []domain.Ticket
}

// GroupByStatus buckets tickets by status in workflow order. Every status is
// present, possibly empty, and each bucket keeps the input order.
func GroupByStatus(tickets []domain.Ticket) []StatusGroup {
	groups := make([]StatusGroup, len(domain.TicketStatuses))
	index := make(map[domain.TicketStatus]int, len(domain.TicketStatuses))
	for i, status := range domain.TicketStatuses {
		groups[i] = StatusGroup{Status: status, Tickets: []domain.Ticket{}}
		index[status] = i
	}
	for _, t := range tickets {
		if i, ok := index[t.Status]; ok {
			groups[i].Tickets = append(groups[i].Tickets, t)
		}
	}
	return groups
}

// Recent returns at most n tickets, newest created first.
func Recent(tickets []domain.Ticket, n int) []domain.Ticket {
	out := Sort(tickets, SortNewest)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// OwnedBy returns the tickets created by userID, preserving order.
func OwnedBy(tickets []domain.Ticket, userID string) []domain.Ticket {
	out := make([]domain.Ticket, 0)
	for _, t := range tickets {
		if t.CreatedBy == userID {
			out = append(out, t)
		}
	}
	return out
}
