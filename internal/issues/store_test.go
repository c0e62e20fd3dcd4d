package issues

import (
	"strings"
	"testing"

	"github.com/civicai/civicai/internal/classify"
	"github.com/google/uuid"
)

func TestBuildListQuery_NoFilters(t *testing.T) {
	query, args := buildListQuery(Filter{})

	if strings.Contains(query, "WHERE") {
		t.Errorf("unfiltered query should have no WHERE clause: %s", query)
	}
	if !strings.Contains(query, "ORDER BY created_at DESC") {
		t.Errorf("query must order newest first: %s", query)
	}
	if len(args) != 0 {
		t.Errorf("got %d args, want 0", len(args))
	}
}

func TestBuildListQuery_AllFilters(t *testing.T) {
	cat := classify.CategoryRoads
	pri := PriorityHigh
	st := StatusPending

	query, args := buildListQuery(Filter{
		Category: &cat,
		Priority: &pri,
		Status:   &st,
		Limit:    20,
		Offset:   40,
	})

	for _, want := range []string{
		"category = $1",
		"priority = $2",
		"status = $3",
		"LIMIT 20",
		"OFFSET 40",
	} {
		if !strings.Contains(query, want) {
			t.Errorf("query missing %q: %s", want, query)
		}
	}
	if len(args) != 3 {
		t.Fatalf("got %d args, want 3", len(args))
	}
	if args[0] != "Roads" || args[1] != "High" || args[2] != "Pending" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildListQuery_SingleFilter(t *testing.T) {
	st := StatusResolved
	query, args := buildListQuery(Filter{Status: &st})

	if !strings.Contains(query, "WHERE status = $1") {
		t.Errorf("query = %s", query)
	}
	if strings.Contains(query, "AND") {
		t.Errorf("single filter should not emit AND: %s", query)
	}
	if len(args) != 1 || args[0] != "Resolved" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildUpdateQuery(t *testing.T) {
	id := uuid.New()
	title := "New title"
	st := StatusInProgress

	query, args := buildUpdateQuery(id, Update{Title: &title, Status: &st})

	if !strings.Contains(query, "title = $1") || !strings.Contains(query, "status = $2") {
		t.Errorf("query = %s", query)
	}
	if !strings.Contains(query, "updated_at = now()") {
		t.Errorf("update must touch updated_at: %s", query)
	}
	if !strings.Contains(query, "WHERE id = $3") {
		t.Errorf("query = %s", query)
	}
	if len(args) != 3 {
		t.Fatalf("got %d args, want 3", len(args))
	}
	if args[0] != "New title" || args[1] != "In Progress" || args[2] != id {
		t.Errorf("args = %v", args)
	}
}

func TestBuildUpdateQuery_Empty(t *testing.T) {
	query, args := buildUpdateQuery(uuid.New(), Update{})
	if query != "" || args != nil {
		t.Errorf("empty update should produce no query, got %q / %v", query, args)
	}
}

func TestPriorityFromUrgency(t *testing.T) {
	tests := []struct {
		urgency classify.Urgency
		want    Priority
	}{
		{classify.UrgencyLow, PriorityLow},
		{classify.UrgencyMedium, PriorityMedium},
		{classify.UrgencyHigh, PriorityHigh},
		{classify.Urgency("weird"), PriorityMedium},
	}

	for _, tt := range tests {
		if got := PriorityFromUrgency(tt.urgency); got != tt.want {
			t.Errorf("PriorityFromUrgency(%q) = %q, want %q", tt.urgency, got, tt.want)
		}
	}
}

func TestNewStats_AllBucketsPresent(t *testing.T) {
	stats := NewStats()

	if stats.Total != 0 {
		t.Errorf("Total = %d, want 0", stats.Total)
	}
	if len(stats.ByStatus) != len(Statuses()) {
		t.Errorf("ByStatus has %d keys, want %d", len(stats.ByStatus), len(Statuses()))
	}
	if len(stats.ByCategory) != len(classify.Categories()) {
		t.Errorf("ByCategory has %d keys, want %d", len(stats.ByCategory), len(classify.Categories()))
	}
	if len(stats.ByPriority) != len(Priorities()) {
		t.Errorf("ByPriority has %d keys, want %d", len(stats.ByPriority), len(Priorities()))
	}
}

func TestStatusAndPriorityValidity(t *testing.T) {
	if !StatusInProgress.IsValid() {
		t.Error("In Progress should be valid")
	}
	if Status("Closed").IsValid() {
		t.Error("Closed should not be valid")
	}
	if !PriorityHigh.IsValid() {
		t.Error("High should be valid")
	}
	if Priority("Urgent").IsValid() {
		t.Error("Urgent should not be valid")
	}
}
