package classify

// rest.go provides a raw REST fallback client for the Gemini generateContent
// endpoint. The SDK transport has been observed to fail in some network and
// runtime environments; this transport builds the request body directly and
// posts it with a plain HTTP client against the same versioned endpoint.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// geminiBaseURL is the Gemini REST API base URL.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// RESTTransport posts generateContent requests directly over HTTP,
// authenticating with an API key query parameter.
type RESTTransport struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewRESTTransport creates the secondary transport for the given key and model.
func NewRESTTransport(apiKey, model string) *RESTTransport {
	return newRESTTransport(apiKey, model, geminiBaseURL)
}

func newRESTTransport(apiKey, model, baseURL string) *RESTTransport {
	if model == "" {
		model = DefaultModelName
	}
	return &RESTTransport{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// --- REST API request/response types ---

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobData `json:"inlineData,omitempty"`
}

type geminiBlobData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Name identifies this transport in logs.
func (t *RESTTransport) Name() string { return "rest" }

// GenerateText sends a text-only prompt via the REST endpoint.
func (t *RESTTransport) GenerateText(ctx context.Context, prompt string) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: prompt}},
		}},
	}
	return t.post(ctx, req)
}

// GenerateVision sends a prompt plus one inlined JPEG via the REST endpoint.
// Any data-URI wrapper is stripped since the body is built directly.
func (t *RESTTransport) GenerateVision(ctx context.Context, prompt, imageBase64 string) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: prompt},
				{InlineData: &geminiBlobData{
					MIMEType: "image/jpeg",
					Data:     stripDataURIPrefix(imageBase64),
				}},
			},
		}},
	}
	return t.post(ctx, req)
}

// post marshals the request, executes the HTTP call, and extracts the
// model's text from the response envelope.
func (t *RESTTransport) post(ctx context.Context, req geminiRequest) (string, error) {
	startTime := time.Now()

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", t.baseURL, t.model, t.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("body", truncateString(string(respBody), 500)).
			Msg("Gemini REST API returned error")
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncateString(string(respBody), 200))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if geminiResp.Error != nil {
		return "", fmt.Errorf("API error: %s (code: %d)", geminiResp.Error.Message, geminiResp.Error.Code)
	}

	var text string
	for _, candidate := range geminiResp.Candidates {
		for _, part := range candidate.Content.Parts {
			text += part.Text
		}
	}

	if text == "" {
		return "", fmt.Errorf("received empty response from Gemini API")
	}

	log.Debug().
		Int("response_length", len(text)).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini REST response received")

	return text, nil
}

// truncateString truncates a string to maxLen, appending "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
