// Package jsonutil provides utilities for extracting and parsing a JSON
// object from model responses that may be wrapped in markdown code fences or
// embedded in prose.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripMarkdownFences removes ```json ... ``` or ``` ... ``` wrapping from text.
// Returns the content between the fences, or the original text if no fences are found.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	startIdx := 1 // skip the opening ``` line
	endIdx := len(lines) - 1

	// Find the closing ```
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}

	return strings.Join(lines[startIdx:endIdx], "\n")
}

// ExtractObject returns the JSON object span from text that may contain
// surrounding non-JSON content: the substring from the first { to the last }.
// Models sometimes prefix the object with prose ("Here is the analysis:") or
// trail it with commentary; both are discarded.
func ExtractObject(text string) (string, error) {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON object found")
	}

	text = text[start:]
	end := strings.LastIndex(text, "}")
	if end == -1 {
		return "", fmt.Errorf("no closing } found")
	}

	return text[:end+1], nil
}

// ParseObject strips markdown fences from raw model response text, extracts
// the JSON object span, and unmarshals it into the provided type T.
//
// This consolidates the common pattern of parsing JSON from Gemini responses
// that may be wrapped in markdown code fences or embedded in prose.
func ParseObject[T any](raw string) (T, error) {
	text := StripMarkdownFences(raw)
	jsonStr, err := ExtractObject(text)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w (raw length: %d)", err, len(raw))
	}

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		var zero T
		// Include a truncated preview in the error for debugging
		preview := jsonStr
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return zero, fmt.Errorf("invalid JSON: %w (text: %s)", err, preview)
	}
	return result, nil
}
