package classify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// stubTransport scripts transport behavior for facade tests.
type stubTransport struct {
	name     string
	response string
	err      error
	calls    int
}

func (s *stubTransport) Name() string { return s.name }

func (s *stubTransport) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.response, s.err
}

func (s *stubTransport) GenerateVision(ctx context.Context, prompt, imageBase64 string) (string, error) {
	s.calls++
	return s.response, s.err
}

// newTestClassifier disables rate limiting and shrinks backoff so facade
// tests run in milliseconds.
func newTestClassifier(transports ...Transport) *Classifier {
	c := New(Config{MaxAttempts: 3, BaseDelay: time.Millisecond}, transports...)
	c.limiter = NewLimiter(0)
	return c
}

func TestClassifyImage_Success(t *testing.T) {
	primary := &stubTransport{
		name:     "sdk",
		response: `{"category": "Pothole", "description": "Deep pothole", "urgency": "high", "confidence": 88}`,
	}
	c := newTestClassifier(primary)

	got := c.ClassifyImage(context.Background(), "aGVsbG8=", nil)
	if got.Fallback {
		t.Fatal("Fallback = true on a successful classification")
	}
	if got.MappedCategory != CategoryRoads {
		t.Errorf("MappedCategory = %q, want %q", got.MappedCategory, CategoryRoads)
	}
	if got.Confidence != 88 {
		t.Errorf("Confidence = %d, want 88", got.Confidence)
	}
	if primary.calls != 1 {
		t.Errorf("primary transport called %d times, want 1", primary.calls)
	}
}

func TestClassifyImage_FallsBackToSecondaryTransport(t *testing.T) {
	primary := &stubTransport{name: "sdk", err: errors.New("invalid api key")}
	secondary := &stubTransport{
		name:     "rest",
		response: `{"category": "Garbage", "description": "Overflowing bin", "urgency": "low", "confidence": 70}`,
	}
	c := newTestClassifier(primary, secondary)

	got := c.ClassifyImage(context.Background(), "aGVsbG8=", nil)
	if got.Fallback {
		t.Fatal("Fallback = true, expected the secondary transport to serve")
	}
	if got.MappedCategory != CategorySanitation {
		t.Errorf("MappedCategory = %q, want %q", got.MappedCategory, CategorySanitation)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("calls = primary %d, secondary %d; want 1 and 1", primary.calls, secondary.calls)
	}
}

func TestClassifyImage_SecondaryErrorDrivesRetryPolicy(t *testing.T) {
	// Primary fails fatally, secondary fails transiently. The propagated
	// error is the secondary's, so the loop retries all three attempts.
	primary := &stubTransport{name: "sdk", err: errors.New("invalid api key")}
	secondary := &stubTransport{name: "rest", err: errors.New("503 service unavailable")}
	c := newTestClassifier(primary, secondary)

	got := c.ClassifyImage(context.Background(), "aGVsbG8=", nil)
	if !got.Fallback {
		t.Fatal("Fallback = false, expected a fallback result")
	}
	if primary.calls != 3 || secondary.calls != 3 {
		t.Errorf("calls = primary %d, secondary %d; want 3 and 3", primary.calls, secondary.calls)
	}
}

func TestClassifyImage_NeverReturnsNil(t *testing.T) {
	cases := []error{
		errors.New("503 service unavailable"),
		errors.New("invalid api key"),
		errors.New("network request failed"),
	}
	for _, cause := range cases {
		c := newTestClassifier(&stubTransport{name: "sdk", err: cause})
		got := c.ClassifyImage(context.Background(), "aGVsbG8=", nil)
		if got == nil {
			t.Fatalf("ClassifyImage returned nil for cause %v", cause)
		}
		if !got.Fallback {
			t.Errorf("Fallback = false for cause %v", cause)
		}
		if got.MappedCategory != CategoryOthers {
			t.Errorf("MappedCategory = %q for cause %v, want %q", got.MappedCategory, cause, CategoryOthers)
		}
		if got.Urgency != UrgencyMedium {
			t.Errorf("Urgency = %q for cause %v, want medium", got.Urgency, cause)
		}
		if got.Confidence != 0 {
			t.Errorf("Confidence = %d for cause %v, want 0", got.Confidence, cause)
		}
	}
}

func TestClassifyImage_FallbackDescriptionByFailureClass(t *testing.T) {
	tests := []struct {
		cause string
		want  string
	}{
		{"HTTP 503 from upstream", "AI service is currently busy. Please try again in a few minutes."},
		{"the model is overloaded", "AI service is currently busy. Please try again in a few minutes."},
		{"429 resource exhausted", "Too many requests. Please wait a moment before trying again."},
		{"network request failed", "Network error. Please check your connection and try again."},
		{"failed to fetch", "Network error. Please check your connection and try again."},
		{"invalid api key", "Unable to analyze image - please try again"},
	}

	for _, tt := range tests {
		c := newTestClassifier(&stubTransport{name: "sdk", err: errors.New(tt.cause)})
		got := c.ClassifyImage(context.Background(), "aGVsbG8=", nil)
		if got.Description != tt.want {
			t.Errorf("cause %q: Description = %q, want %q", tt.cause, got.Description, tt.want)
		}
	}
}

func TestClassifyImage_UnparseableResponseFallsBack(t *testing.T) {
	c := newTestClassifier(&stubTransport{name: "sdk", response: "I see a road."})

	got := c.ClassifyImage(context.Background(), "aGVsbG8=", nil)
	if !got.Fallback {
		t.Fatal("Fallback = false for an unparseable response")
	}
	if got.Description != "Unable to analyze image - please try again" {
		t.Errorf("Description = %q", got.Description)
	}
}

func TestClassifyImage_ProgressMessages(t *testing.T) {
	c := newTestClassifier(&stubTransport{name: "sdk", err: errors.New("503 service unavailable")})

	var messages []string
	c.ClassifyImage(context.Background(), "aGVsbG8=", func(message string, attempt, maxAttempts int) {
		messages = append(messages, message)
	})

	want := []string{
		"AI service busy, retrying... (2/3)",
		"AI service busy, retrying... (3/3)",
	}
	if len(messages) != len(want) {
		t.Fatalf("got %d progress messages %v, want %d", len(messages), messages, len(want))
	}
	for i := range want {
		if messages[i] != want[i] {
			t.Errorf("message[%d] = %q, want %q", i, messages[i], want[i])
		}
	}
}

func TestClassifyText_Success(t *testing.T) {
	c := newTestClassifier(&stubTransport{
		name:     "sdk",
		response: `{"category": "Water", "description": "Burst pipe flooding the street", "urgency": "high"}`,
	})

	got := c.ClassifyText(context.Background(), "water everywhere on my street", nil)
	if got.Fallback {
		t.Fatal("Fallback = true on a successful classification")
	}
	if got.MappedCategory != CategoryWaterSupply {
		t.Errorf("MappedCategory = %q, want %q", got.MappedCategory, CategoryWaterSupply)
	}
	if got.Confidence != 0 {
		t.Errorf("Confidence = %d, want 0 on the text path", got.Confidence)
	}
}

func TestClassifyText_FallbackEchoesUserText(t *testing.T) {
	c := newTestClassifier(&stubTransport{name: "sdk", err: errors.New("503 service unavailable")})

	userText := "streetlight flickering at night on Oak Ave"
	got := c.ClassifyText(context.Background(), userText, nil)
	if !got.Fallback {
		t.Fatal("Fallback = false, expected a fallback result")
	}
	if got.Description != userText {
		t.Errorf("Description = %q, want the user's own text", got.Description)
	}
	if got.MappedCategory != CategoryOthers {
		t.Errorf("MappedCategory = %q, want %q", got.MappedCategory, CategoryOthers)
	}
}

func TestTestConnection(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		want     bool
	}{
		{"acknowledged", "API working", nil, true},
		{"acknowledged with prose", "Sure thing: API WORKING, loud and clear.", nil, true},
		{"wrong answer", "I don't understand the question.", nil, false},
		{"transport failure", "", errors.New("invalid api key"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClassifier(&stubTransport{name: "sdk", response: tt.response, err: tt.err})
			if got := c.TestConnection(context.Background()); got != tt.want {
				t.Errorf("TestConnection() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})
	if c.maxAttempts != DefaultMaxAttempts {
		t.Errorf("maxAttempts = %d, want %d", c.maxAttempts, DefaultMaxAttempts)
	}
	if c.baseDelay != DefaultBaseDelay {
		t.Errorf("baseDelay = %v, want %v", c.baseDelay, DefaultBaseDelay)
	}
	if c.limiter.interval != DefaultMinInterval {
		t.Errorf("limiter interval = %v, want %v", c.limiter.interval, DefaultMinInterval)
	}
}

func TestGenerate_OrderedFallback(t *testing.T) {
	a := &stubTransport{name: "a", err: errors.New("boom a")}
	b := &stubTransport{name: "b", response: "from b"}
	cStub := &stubTransport{name: "c", response: "from c"}

	got, err := generate([]Transport{a, b, cStub}, func(tr Transport) (string, error) {
		return tr.GenerateText(context.Background(), "p")
	})
	if err != nil {
		t.Fatalf("generate returned error: %v", err)
	}
	if got != "from b" {
		t.Errorf("got %q, want the second transport's response", got)
	}
	if cStub.calls != 0 {
		t.Errorf("third transport called %d times, want 0", cStub.calls)
	}
}

func TestGenerate_AllFailPropagatesLastError(t *testing.T) {
	a := &stubTransport{name: "a", err: errors.New("fatal primary")}
	b := &stubTransport{name: "b", err: errors.New("503 secondary down")}

	_, err := generate([]Transport{a, b}, func(tr Transport) (string, error) {
		return tr.GenerateText(context.Background(), "p")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "503 secondary down") {
		t.Errorf("err = %v, want the last transport's error", err)
	}
}

func TestStripDataURIPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"data:image/jpeg;base64,AAAA", "AAAA"},
		{"AAAA", "AAAA"},
		{"data:weird-no-marker", "data:weird-no-marker"},
	}
	for _, tt := range tests {
		if got := stripDataURIPrefix(tt.in); got != tt.want {
			t.Errorf("stripDataURIPrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
