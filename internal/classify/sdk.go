package classify

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used for classification unless
// overridden by configuration.
const DefaultModelName = "gemini-2.5-flash"

// SDKTransport sends generation requests through the official Gemini Go SDK.
// This is the primary transport.
type SDKTransport struct {
	client *genai.Client
	model  string
}

// NewSDKTransport wraps an existing Gemini client as a Transport.
func NewSDKTransport(client *genai.Client, model string) *SDKTransport {
	if model == "" {
		model = DefaultModelName
	}
	return &SDKTransport{client: client, model: model}
}

// NewGeminiClient creates a Gemini API client authenticated with an API key.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return client, nil
}

// Name identifies this transport in logs.
func (t *SDKTransport) Name() string { return "sdk" }

// GenerateText sends a text-only prompt via the SDK.
func (t *SDKTransport) GenerateText(ctx context.Context, prompt string) (string, error) {
	log.Debug().Str("model", t.model).Int("prompt_length", len(prompt)).Msg("SDK text generation")

	resp, err := t.client.Models.GenerateContent(ctx, t.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return extractText(resp)
}

// GenerateVision sends a prompt plus one inlined JPEG via the SDK. The
// payload arrives base64-encoded from the caller; the SDK wants raw bytes.
func (t *SDKTransport) GenerateVision(ctx context.Context, prompt, imageBase64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(stripDataURIPrefix(imageBase64))
	if err != nil {
		return "", fmt.Errorf("decode image payload: %w", err)
	}

	log.Debug().
		Str("model", t.model).
		Int("image_bytes", len(data)).
		Msg("SDK vision generation")

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: data}},
		},
	}}

	resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return extractText(resp)
}

// extractText pulls the concatenated text out of an SDK response.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || resp.Text() == "" {
		log.Warn().Msg("Received empty response from Gemini")
		return "", fmt.Errorf("received empty response from Gemini API")
	}
	return resp.Text(), nil
}
