package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/civicai/civicai/internal/classify"
	"github.com/civicai/civicai/internal/issues"
	"github.com/google/uuid"
)

func TestEventRoundTrip(t *testing.T) {
	issue := &issues.Issue{
		ID:       uuid.New(),
		Title:    "Streetlight out",
		Category: classify.CategoryElectricity,
		Priority: issues.PriorityMedium,
		Status:   issues.StatusPending,
	}
	event := Event{
		Type:      EventIssueCreated,
		Issue:     issue,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Type != EventIssueCreated {
		t.Errorf("Type = %q, want %q", decoded.Type, EventIssueCreated)
	}
	if decoded.Issue == nil || decoded.Issue.ID != issue.ID {
		t.Errorf("Issue did not survive the round trip: %+v", decoded.Issue)
	}
	if decoded.Issue.Category != classify.CategoryElectricity {
		t.Errorf("Category = %q", decoded.Issue.Category)
	}
	if !decoded.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", decoded.Timestamp, event.Timestamp)
	}
}
