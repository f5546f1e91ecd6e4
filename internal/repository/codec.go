package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spec-kit/grievance-desk/internal/domain"
)

// attachmentRecord is the persisted JSON shape of domain.Attachment.
type attachmentRecord struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// commentRecord is the persisted JSON shape of domain.Comment.
type commentRecord struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// encodeExtras serialises the nested ticket fields. A nil attachment encodes
// as a nil pointer so drivers store NULL.
func encodeExtras(ticket *domain.Ticket) (*string, string, error) {
	var attachment *string
	if ticket.Attachment != nil {
		raw, err := json.Marshal(attachmentRecord{
			Name: ticket.Attachment.Name,
			URL:  ticket.Attachment.URL,
			Size: ticket.Attachment.Size,
			Type: ticket.Attachment.Type,
		})
		if err != nil {
			return nil, "", fmt.Errorf("encode attachment: %w", err)
		}
		s := string(raw)
		attachment = &s
	}

	comments := make([]commentRecord, 0, len(ticket.Comments))
	for _, c := range ticket.Comments {
		comments = append(comments, commentRecord{ID: c.ID, AuthorID: c.AuthorID, Body: c.Body, CreatedAt: c.CreatedAt})
	}
	raw, err := json.Marshal(comments)
	if err != nil {
		return nil, "", fmt.Errorf("encode comments: %w", err)
	}
	return attachment, string(raw), nil
}

func decodeExtras(ticket *domain.Ticket, attachmentJSON, commentsJSON []byte) error {
	ticket.Attachment = nil
	if len(attachmentJSON) > 0 && string(attachmentJSON) != "null" {
		var rec attachmentRecord
		if err := json.Unmarshal(attachmentJSON, &rec); err != nil {
			return fmt.Errorf("decode attachment for ticket %s: %w", ticket.ID, err)
		}
		ticket.Attachment = &domain.Attachment{Name: rec.Name, URL: rec.URL, Size: rec.Size, Type: rec.Type}
	}

	ticket.Comments = []domain.Comment{}
	if len(commentsJSON) > 0 {
		var recs []commentRecord
		if err := json.Unmarshal(commentsJSON, &recs); err != nil {
			return fmt.Errorf("decode comments for ticket %s: %w", ticket.ID, err)
		}
		for _, rec := range recs {
			ticket.Comments = append(ticket.Comments, domain.Comment{
				ID:        rec.ID,
				AuthorID:  rec.AuthorID,
				Body:      rec.Body,
				CreatedAt: rec.CreatedAt,
			})
		}
	}
	return nil
}
