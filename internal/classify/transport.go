package classify

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// Transport is one concrete way of sending a generation request to the
// model. Both implementations return the raw model text; neither inspects
// or validates the payload embedded in it.
type Transport interface {
	// Name identifies the transport in logs ("sdk", "rest").
	Name() string

	// GenerateText sends a text-only prompt and returns the model's text.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// GenerateVision sends a prompt plus one inlined base64 JPEG and
	// returns the model's text.
	GenerateVision(ctx context.Context, prompt, imageBase64 string) (string, error)
}

// generate runs send against each transport in order, falling back to the
// next on failure. The SDK transport fails unpredictably in some runtime
// environments; the raw REST transport hits the same endpoint through a
// plain HTTP POST. If every transport fails, the last transport's error is
// propagated and left to the retry policy to judge.
func generate(transports []Transport, send func(Transport) (string, error)) (string, error) {
	var lastErr error
	for i, t := range transports {
		text, err := send(t)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if i < len(transports)-1 {
			log.Warn().
				Err(err).
				Str("transport", t.Name()).
				Str("fallback", transports[i+1].Name()).
				Msg("Transport failed, falling back")
		}
	}
	return "", lastErr
}

// stripDataURIPrefix removes a leading data:<mime>;base64, wrapper from a
// base64 payload. Mobile clients sometimes submit the full data URI.
func stripDataURIPrefix(b64 string) string {
	if !strings.HasPrefix(b64, "data:") {
		return b64
	}
	if idx := strings.Index(b64, ";base64,"); idx != -1 {
		return b64[idx+len(";base64,"):]
	}
	return b64
}
