package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/civicai/civicai/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Config tunes the classifier. Zero values select the defaults.
type Config struct {
	// MaxAttempts bounds the retry loop per classification call.
	MaxAttempts int
	// BaseDelay is the first backoff delay; later delays double it.
	BaseDelay time.Duration
	// MinInterval is the process-wide spacing between remote calls.
	MinInterval time.Duration
}

// Classifier is the single entry point for issue classification. It never
// surfaces an error to its callers: when the model is unreachable after all
// retries, both classify operations return a safe fallback result the UI can
// still render, and the user fills in the form manually.
type Classifier struct {
	transports  []Transport
	limiter     *Limiter
	maxAttempts int
	baseDelay   time.Duration
}

// New creates a Classifier over the given transports, tried in order.
// Typically the SDK transport first and the REST transport second.
func New(cfg Config, transports ...Transport) *Classifier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MinInterval == 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	return &Classifier{
		transports:  transports,
		limiter:     NewLimiter(cfg.MinInterval),
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
	}
}

// ClassifyImage analyzes a base64-encoded JPEG and returns a populated
// classification result. onProgress, when non-nil, receives retry updates
// for UI feedback.
func (c *Classifier) ClassifyImage(ctx context.Context, imageBase64 string, onProgress ProgressFunc) *Result {
	start := time.Now()

	raw, err := c.generateWithRetry(ctx, onProgress, "AI service busy, retrying... (%d/%d)", func(ctx context.Context, t Transport) (string, error) {
		return t.GenerateVision(ctx, visionPrompt, imageBase64)
	})
	c.emit("classify_image", start, err)
	if err != nil {
		log.Error().Err(err).Msg("Image classification failed, returning fallback")
		return imageFallback(err)
	}

	result, err := interpret(raw, true, "Unable to analyze image")
	if err != nil {
		log.Error().Err(err).Str("response", truncateString(raw, 200)).Msg("Unparseable classification response")
		return imageFallback(err)
	}
	return result
}

// ClassifyText structures a citizen's free-form issue description. The
// fallback echoes the original text back as the description so nothing the
// user typed is lost.
func (c *Classifier) ClassifyText(ctx context.Context, text string, onProgress ProgressFunc) *Result {
	start := time.Now()

	raw, err := c.generateWithRetry(ctx, onProgress, "AI service busy, retrying text analysis... (%d/%d)", func(ctx context.Context, t Transport) (string, error) {
		return t.GenerateText(ctx, textPrompt(text))
	})
	c.emit("classify_text", start, err)
	if err != nil {
		log.Error().Err(err).Msg("Text classification failed, returning fallback")
		return textFallback(text)
	}

	result, err := interpret(raw, false, text)
	if err != nil {
		log.Error().Err(err).Str("response", truncateString(raw, 200)).Msg("Unparseable description response")
		return textFallback(text)
	}
	return result
}

// TestConnection sends a trivial prompt through the full retry/transport
// machinery and reports whether the model acknowledged it. Used as a
// liveness probe at startup.
func (c *Classifier) TestConnection(ctx context.Context) bool {
	raw, err := c.generateWithRetry(ctx, nil, "", func(ctx context.Context, t Transport) (string, error) {
		return t.GenerateText(ctx, connectionTestPrompt)
	})
	if err != nil {
		log.Error().Err(err).Msg("Gemini connection test failed")
		return false
	}

	log.Debug().Str("response", truncateString(raw, 100)).Msg("Gemini connection test response")
	return strings.Contains(strings.ToLower(raw), connectionTestExpected)
}

// generateWithRetry wraps one transport-selector call in the retry loop and
// translates retry notifications into progress messages.
func (c *Classifier) generateWithRetry(ctx context.Context, onProgress ProgressFunc, progressFormat string, send func(context.Context, Transport) (string, error)) (string, error) {
	var onRetry func(attempt, maxAttempts int)
	if onProgress != nil {
		onRetry = func(attempt, maxAttempts int) {
			onProgress(fmt.Sprintf(progressFormat, attempt, maxAttempts), attempt, maxAttempts)
		}
	}

	return withRetry(ctx, c.limiter, c.maxAttempts, c.baseDelay, onRetry, func(ctx context.Context) (string, error) {
		return generate(c.transports, func(t Transport) (string, error) {
			return send(ctx, t)
		})
	})
}

// emit records one classification call's latency and outcome.
func (c *Classifier) emit(operation string, start time.Time, err error) {
	m := metrics.New().
		Dimension("Operation", operation).
		Metric("GeminiApiLatencyMs", float64(time.Since(start).Milliseconds()), metrics.UnitMilliseconds).
		Count("GeminiApiCalls")
	if err != nil {
		m.Count("GeminiApiFallbacks")
	}
	m.Flush()
}

// imageFallback builds the fail-soft result for image classification. The
// description summarizes the failure class in user-facing language.
func imageFallback(err error) *Result {
	description := "Unable to analyze image - please try again"
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "503") || strings.Contains(msg, "overloaded"):
		description = "AI service is currently busy. Please try again in a few minutes."
	case strings.Contains(msg, "429"):
		description = "Too many requests. Please wait a moment before trying again."
	case strings.Contains(msg, "network") || strings.Contains(msg, "fetch"):
		description = "Network error. Please check your connection and try again."
	}
	return fallbackResult(description)
}

// textFallback returns the user's own words untouched when structuring fails.
func textFallback(text string) *Result {
	return fallbackResult(text)
}

func fallbackResult(description string) *Result {
	return &Result{
		Category:       "Other",
		MappedCategory: CategoryOthers,
		Description:    description,
		Urgency:        UrgencyMedium,
		Confidence:     0,
		Fallback:       true,
	}
}
