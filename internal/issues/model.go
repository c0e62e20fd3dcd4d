// Package issues provides the PostgreSQL-backed store for citizen-reported
// civic issues.
package issues

import (
	"time"

	"github.com/civicai/civicai/internal/classify"
	"github.com/google/uuid"
)

// Status is the lifecycle state of a reported issue.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
)

// Statuses returns the fixed status set.
func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusResolved}
}

// IsValid reports whether s is a member of the fixed status set.
func (s Status) IsValid() bool {
	for _, v := range Statuses() {
		if s == v {
			return true
		}
	}
	return false
}

// Priority is the citizen- or AI-assigned severity of an issue.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities returns the fixed priority set.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

// IsValid reports whether p is a member of the fixed priority set.
func (p Priority) IsValid() bool {
	for _, v := range Priorities() {
		if p == v {
			return true
		}
	}
	return false
}

// PriorityFromUrgency maps a classification urgency onto an issue priority.
func PriorityFromUrgency(u classify.Urgency) Priority {
	switch u {
	case classify.UrgencyLow:
		return PriorityLow
	case classify.UrgencyHigh:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// Issue is one citizen-reported civic issue.
type Issue struct {
	ID          uuid.UUID         `json:"id"`
	ReporterID  *uuid.UUID        `json:"reporterId,omitempty"`
	Anonymous   bool              `json:"anonymous"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    classify.Category `json:"category"`
	Priority    Priority          `json:"priority"`
	Status      Status            `json:"status"`
	Latitude    float64           `json:"latitude"`
	Longitude   float64           `json:"longitude"`
	Address     string            `json:"address"`
	PhotoURLs   []string          `json:"photoUrls"`

	// AICategory and AIConfidence preserve the raw classification verdict
	// the issue was created with; Category holds the mapped value.
	AICategory   string `json:"aiCategory,omitempty"`
	AIConfidence int    `json:"aiConfidence,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Input carries the fields a caller supplies when creating an issue.
type Input struct {
	ReporterID   *uuid.UUID
	Anonymous    bool
	Title        string
	Description  string
	Category     classify.Category
	Priority     Priority
	Latitude     float64
	Longitude    float64
	Address      string
	PhotoURLs    []string
	AICategory   string
	AIConfidence int
}

// Update carries optional field updates; nil fields are left unchanged.
type Update struct {
	Title       *string
	Description *string
	Category    *classify.Category
	Priority    *Priority
	Status      *Status
	PhotoURLs   *[]string
}

// Filter narrows a List call.
type Filter struct {
	Category *classify.Category
	Priority *Priority
	Status   *Status
	Limit    int
	Offset   int
}

// Stats summarizes the issue table for the dashboard.
type Stats struct {
	Total      int                       `json:"total"`
	ByStatus   map[Status]int            `json:"byStatus"`
	ByCategory map[classify.Category]int `json:"byCategory"`
	ByPriority map[Priority]int          `json:"byPriority"`
}

// NewStats returns a Stats with every bucket of each fixed set present,
// zeroed. Dashboards rely on all keys existing even when the table is empty.
func NewStats() *Stats {
	s := &Stats{
		ByStatus:   make(map[Status]int, len(Statuses())),
		ByCategory: make(map[classify.Category]int, len(classify.Categories())),
		ByPriority: make(map[Priority]int, len(Priorities())),
	}
	for _, v := range Statuses() {
		s.ByStatus[v] = 0
	}
	for _, v := range classify.Categories() {
		s.ByCategory[v] = 0
	}
	for _, v := range Priorities() {
		s.ByPriority[v] = 0
	}
	return s
}
