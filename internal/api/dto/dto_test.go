package dto

import (
	"encoding/json"
	"testing"
)

func TestUpdateTicketRequestTriState(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		set     bool
		cleared bool
	}{
		{"absent", `{"title":"x"}`, false, false},
		{"null", `{"assignee_id":null}`, true, true},
		{"value", `{"assignee_id":"u-2"}`, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req UpdateTicketRequest
			if err := json.Unmarshal([]byte(tc.body), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if req.AssigneeID.Set != tc.set {
				t.Fatalf("set = %v", req.AssigneeID.Set)
			}
			if tc.set && (req.AssigneeID.Value == nil) != tc.cleared {
				t.Fatalf("value = %v", req.AssigneeID.Value)
			}
			if req.TouchesTriageFields() != tc.set {
				t.Fatalf("triage = %v", req.TouchesTriageFields())
			}
		})
	}
}

func TestAttachmentOptional(t *testing.T) {
	var req UpdateTicketRequest
	body := `{"attachment":{"name":"a.pdf","url":"https://x/a.pdf","size":12,"type":"application/pdf"}}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !req.Attachment.Set || req.Attachment.Value == nil || req.Attachment.Value.Size != 12 {
		t.Fatalf("attachment = %+v", req.Attachment)
	}
	if req.TouchesTriageFields() {
		t.Fatal("attachment is an owner field")
	}
}
