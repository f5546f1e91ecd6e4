// Package analytics computes dashboard statistics over a ticket collection.
// Results are recomputed from scratch on every call.
package analytics

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/spec-kit/grievance-desk/internal/domain"
)

// NotAvailable is rendered when no ticket has been resolved or closed.
const NotAvailable = "N/A"

// CountByStatus returns one entry per status, zero-filled.
func CountByStatus(tickets []domain.Ticket) map[domain.TicketStatus]int {
	counts := make(map[domain.TicketStatus]int, len(domain.TicketStatuses))
	for _, status := range domain.TicketStatuses {
		counts[status] = 0
	}
	for _, t := range tickets {
		counts[t.Status]++
	}
	return counts
}

// CountByCategory returns one entry per category, zero-filled.
func CountByCategory(tickets []domain.Ticket) map[domain.TicketCategory]int {
	counts := make(map[domain.TicketCategory]int, len(domain.TicketCategories))
	for _, category := range domain.TicketCategories {
		counts[category] = 0
	}
	for _, t := range tickets {
		counts[t.Category]++
	}
	return counts
}

// HighPriorityOpenCount counts high or urgent tickets that are open or in progress.
func HighPriorityOpenCount(tickets []domain.Ticket) int {
	n := 0
	for _, t := range tickets {
		if t.Priority.IsHigh() && t.IsActive() {
			n++
		}
	}
	return n
}

// ResolutionTime is the mean hours from creation to last update over
// resolved and closed tickets. Valid is false when there were none.
type ResolutionTime struct {
	Hours float64
	Valid bool
}

// String renders whole hours under a day and whole days otherwise, rounding
// half away from zero. Without data it renders NotAvailable.
func (r ResolutionTime) String() string {
	if !r.Valid {
		return NotAvailable
	}
	if r.Hours < 24 {
		return strconv.FormatFloat(math.Round(r.Hours), 'f', 0, 64) + "h"
	}
	return strconv.FormatFloat(math.Round(r.Hours/24), 'f', 0, 64) + "d"
}

// MarshalJSON encodes the display form.
func (r ResolutionTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// AverageResolutionTime averages updated_at - created_at over settled tickets.
func AverageResolutionTime(tickets []domain.Ticket) ResolutionTime {
	var total float64
	n := 0
	for _, t := range tickets {
		if !t.IsSettled() {
			continue
		}
		total += t.UpdatedAt.Sub(t.CreatedAt).Hours()
		n++
	}
	if n == 0 {
		return ResolutionTime{}
	}
	return ResolutionTime{Hours: total / float64(n), Valid: true}
}

// Summary bundles the dashboard figures.
type Summary struct {
	Total                 int
	Resolved              int
	ByStatus              map[domain.TicketStatus]int
	ByCategory            map[domain.TicketCategory]int
	HighPriorityOpen      int
	AverageResolutionTime ResolutionTime
}

// Summarize computes every statistic in one pass over the aggregators.
func Summarize(tickets []domain.Ticket) Summary {
	byStatus := CountByStatus(tickets)
	return Summary{
		Total:                 len(tickets),
		Resolved:              byStatus[domain.TicketStatusResolved],
		ByStatus:              byStatus,
		ByCategory:            CountByCategory(tickets),
		HighPriorityOpen:      HighPriorityOpenCount(tickets),
		AverageResolutionTime: AverageResolutionTime(tickets),
	}
}
