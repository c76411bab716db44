package types

import (
	"encoding/json"
	"testing"
)

func TestOptionalDistinguishesNullFromMissing(t *testing.T) {
	var body struct {
		AssignedToID Optional[uint]   `json:"assignedToId"`
		Deadline     Optional[string] `json:"deadline"`
	}

	if err := json.Unmarshal([]byte(`{"assignedToId": null}`), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !body.AssignedToID.Set || body.AssignedToID.Value != nil {
		t.Fatalf("expected explicit null, got %+v", body.AssignedToID)
	}
	if body.Deadline.Set {
		t.Fatalf("expected deadline to be unset")
	}

	if err := json.Unmarshal([]byte(`{"assignedToId": 5}`), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.AssignedToID.Value == nil || *body.AssignedToID.Value != 5 {
		t.Fatalf("expected 5, got %+v", body.AssignedToID)
	}
}

func TestStatusVocabulary(t *testing.T) {
	for _, s := range []string{"todo", "inProgress", "testing", "completed", "archived"} {
		if !IsValidStatus(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []string{"planning", "active", "on-hold", "in-progress", "review", "Completed", ""} {
		if IsValidStatus(s) {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}
