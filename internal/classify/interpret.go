package classify

import (
	"fmt"

	"github.com/civicai/civicai/internal/jsonutil"
	"github.com/rs/zerolog/log"
)

// modelVerdict is the JSON schema the prompts instruct the model to emit.
// Confidence is declared loosely: the model occasionally returns it as a
// string or omits it, and either must degrade to 0 rather than fail.
type modelVerdict struct {
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Urgency     string      `json:"urgency"`
	Confidence  interface{} `json:"confidence"`
}

// interpret converts raw model text into a validated Result. withConfidence
// selects the image path (confidence extracted and clamped); the text path
// leaves it 0. fallbackDescription fills in when the model omits one.
//
// A response with no parseable JSON object is a hard failure: it happens
// after a successful transport call, so the retry loop never sees it and
// the facade's fail-soft fallback absorbs it instead.
func interpret(raw string, withConfidence bool, fallbackDescription string) (*Result, error) {
	verdict, err := jsonutil.ParseObject[modelVerdict](raw)
	if err != nil {
		log.Error().Err(err).Int("response_length", len(raw)).Msg("Failed to parse model response")
		return nil, fmt.Errorf("parse model response: %w", err)
	}

	result := &Result{
		Category:    verdict.Category,
		Description: verdict.Description,
		Urgency:     normalizeUrgency(verdict.Urgency),
	}

	if result.Category == "" {
		result.Category = "Other"
	}
	if result.Description == "" {
		result.Description = fallbackDescription
	}
	if withConfidence {
		result.Confidence = clampConfidence(verdict.Confidence)
	}

	result.MappedCategory = MapCategory(result.Category)

	log.Debug().
		Str("category", result.Category).
		Str("mapped", string(result.MappedCategory)).
		Str("urgency", string(result.Urgency)).
		Int("confidence", result.Confidence).
		Msg("Model response interpreted")

	return result, nil
}

// clampConfidence coerces the model's confidence field to an int in [0,100].
// Non-numeric values default to 0.
func clampConfidence(v interface{}) int {
	f, ok := v.(float64) // encoding/json decodes all numbers to float64
	if !ok {
		return 0
	}
	switch {
	case f < 0:
		return 0
	case f > 100:
		return 100
	default:
		return int(f)
	}
}
