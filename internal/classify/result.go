// Package classify implements the resilient Gemini classification client used
// to triage citizen-reported civic issues. A classification call flows
// through a process-wide rate limiter, a retrying transport selector (SDK
// first, raw REST fallback), and a response interpreter that projects the
// model's free-form verdict onto the application's closed category set.
package classify

import "strings"

// Category is the application's closed set of issue categories. Every
// classification maps onto exactly one of these values; filtering and
// display depend on the set being stable.
type Category string

const (
	CategoryRoads        Category = "Roads"
	CategorySanitation   Category = "Sanitation"
	CategoryElectricity  Category = "Electricity"
	CategoryWaterSupply  Category = "Water Supply"
	CategoryPublicSafety Category = "Public Safety"
	CategoryOthers       Category = "Others"
)

// Categories returns the fixed category set in enumeration order. The order
// matters: substring fallback mapping returns the first match.
func Categories() []Category {
	return []Category{
		CategoryRoads,
		CategorySanitation,
		CategoryElectricity,
		CategoryWaterSupply,
		CategoryPublicSafety,
		CategoryOthers,
	}
}

// IsValid reports whether c is a member of the fixed category set.
func (c Category) IsValid() bool {
	for _, v := range Categories() {
		if c == v {
			return true
		}
	}
	return false
}

// Urgency is the model's judgement of how quickly an issue needs attention.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// normalizeUrgency maps arbitrary model output onto the urgency set,
// defaulting to medium.
func normalizeUrgency(s string) Urgency {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return UrgencyLow
	case "high":
		return UrgencyHigh
	default:
		return UrgencyMedium
	}
}

// Result is the outcome of one classification call.
//
// Category preserves the model's raw label for audit and debugging;
// MappedCategory is what the rest of the application consumes. Confidence is
// only meaningful for image classification and stays 0 on the text path.
type Result struct {
	Category       string   `json:"category"`
	MappedCategory Category `json:"mappedCategory"`
	Description    string   `json:"description"`
	Urgency        Urgency  `json:"urgency"`
	Confidence     int      `json:"confidence,omitempty"`

	// Fallback is true when the facade absorbed a failure and filled the
	// result with safe defaults instead of a model verdict.
	Fallback bool `json:"fallback,omitempty"`
}

// ProgressFunc receives user-facing progress messages while a classification
// call retries. It is never invoked before the first attempt.
type ProgressFunc func(message string, attempt, maxAttempts int)
