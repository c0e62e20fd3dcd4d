package metrics

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNew_ServiceDimension(t *testing.T) {
	initOnce.Do(func() {})
	serviceName = "civicd"

	r := New()
	if r.namespace != Namespace {
		t.Errorf("expected namespace %s, got %s", Namespace, r.namespace)
	}
	if r.dimensions["Service"] != "civicd" {
		t.Errorf("expected Service dimension civicd, got %s", r.dimensions["Service"])
	}
}

func TestRecorder_FlushOutput(t *testing.T) {
	var buf bytes.Buffer
	oldOut := out
	out = &buf
	defer func() { out = oldOut }()

	serviceName = "" // Clear for test isolation

	rec := New()
	rec.Dimension("Operation", "classify_image")
	rec.Metric("GeminiApiLatencyMs", 1234.5, UnitMilliseconds)
	rec.Count("GeminiApiCalls")
	rec.Property("issueId", "abc-123")
	rec.Flush()

	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, buf.String())
	}

	awsDir, ok := doc["_aws"].(map[string]interface{})
	if !ok {
		t.Fatal("missing _aws directive in EMF output")
	}
	if _, ok := awsDir["Timestamp"]; !ok {
		t.Error("missing Timestamp in _aws directive")
	}

	cwArr, ok := awsDir["CloudWatchMetrics"].([]interface{})
	if !ok || len(cwArr) == 0 {
		t.Fatal("CloudWatchMetrics should be a non-empty array")
	}
	cw := cwArr[0].(map[string]interface{})
	if cw["Namespace"] != Namespace {
		t.Errorf("expected namespace %s, got %v", Namespace, cw["Namespace"])
	}

	if doc["Operation"] != "classify_image" {
		t.Errorf("expected Operation dimension value, got %v", doc["Operation"])
	}
	if doc["GeminiApiLatencyMs"] != 1234.5 {
		t.Errorf("expected metric value 1234.5, got %v", doc["GeminiApiLatencyMs"])
	}
	if doc["issueId"] != "abc-123" {
		t.Errorf("expected property issueId, got %v", doc["issueId"])
	}
}

func TestRecorder_EmptyFlush(t *testing.T) {
	var buf bytes.Buffer
	oldOut := out
	out = &buf
	defer func() { out = oldOut }()

	New().Property("onlyProperty", true).Flush()

	if buf.Len() != 0 {
		t.Errorf("flush with no metrics should emit nothing, got %q", buf.String())
	}
}
