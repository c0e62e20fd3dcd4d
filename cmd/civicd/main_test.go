package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/civicai/civicai/internal/classify"
	"github.com/civicai/civicai/internal/issues"
)

type stubTransport struct {
	response string
	err      error
}

func (s *stubTransport) Name() string { return "stub" }

func (s *stubTransport) GenerateText(ctx context.Context, prompt string) (string, error) {
	return s.response, s.err
}

func (s *stubTransport) GenerateVision(ctx context.Context, prompt, imageBase64 string) (string, error) {
	return s.response, s.err
}

func newTestServer(response string) *server {
	return &server{
		classifier: classify.New(
			classify.Config{MaxAttempts: 1, BaseDelay: time.Millisecond, MinInterval: -1},
			&stubTransport{response: response},
		),
	}
}

func TestHandleClassifyImage(t *testing.T) {
	srv := newTestServer(`{"category": "Pothole", "description": "Deep pothole", "urgency": "high", "confidence": 90}`)

	req := httptest.NewRequest(http.MethodPost, "/api/classify/image",
		strings.NewReader(`{"imageBase64": "aGVsbG8="}`))
	rec := httptest.NewRecorder()
	srv.handleClassifyImage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	for _, want := range []string{`"mappedCategory":"Roads"`, `"confidence":90`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %s: %s", want, body)
		}
	}
}

func TestHandleClassifyImage_MissingPayload(t *testing.T) {
	srv := newTestServer("")

	req := httptest.NewRequest(http.MethodPost, "/api/classify/image", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.handleClassifyImage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleClassifyText(t *testing.T) {
	srv := newTestServer(`{"category": "Garbage", "description": "Overflowing bin", "urgency": "low"}`)

	req := httptest.NewRequest(http.MethodPost, "/api/classify/text",
		strings.NewReader(`{"text": "trash everywhere"}`))
	rec := httptest.NewRecorder()
	srv.handleClassifyText(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"mappedCategory":"Sanitation"`) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := &server{}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestParseFilter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/api/issues?category=Roads&priority=High&status=Pending&limit=5&offset=10", nil)

	filter, err := parseFilter(req)
	if err != nil {
		t.Fatalf("parseFilter returned error: %v", err)
	}
	if filter.Category == nil || *filter.Category != classify.CategoryRoads {
		t.Errorf("Category = %v", filter.Category)
	}
	if filter.Priority == nil || *filter.Priority != issues.PriorityHigh {
		t.Errorf("Priority = %v", filter.Priority)
	}
	if filter.Status == nil || *filter.Status != issues.StatusPending {
		t.Errorf("Status = %v", filter.Status)
	}
	if filter.Limit != 5 || filter.Offset != 10 {
		t.Errorf("Limit/Offset = %d/%d", filter.Limit, filter.Offset)
	}
}

func TestParseFilter_Invalid(t *testing.T) {
	for _, query := range []string{
		"category=Nonsense",
		"priority=Urgent",
		"status=Closed",
		"limit=-1",
		"offset=abc",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/issues?"+query, nil)
		if _, err := parseFilter(req); err == nil {
			t.Errorf("expected error for query %q", query)
		}
	}
}

func TestNormalizeAddr(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{":8080", ":8080"},
		{"0.0.0.0:9090", ":9090"},
		{"8080", ":8080"},
	}
	for _, tt := range tests {
		if got := normalizeAddr(tt.in); got != tt.want {
			t.Errorf("normalizeAddr(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWithCORS(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := withCORS(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/issues", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Error("localhost origin should be allowed")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/issues", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("non-localhost origin should not be allowed")
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/issues", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
}
