package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestWriteEmitsJSONLine(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Warn("run.item_failed", map[string]any{
		"kind":  "download_timeout",
		"error": errors.New("deadline exceeded"),
		"msg":   "ignored",
	})

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected warn level, got %v", payload["level"])
	}
	if payload["msg"] != "run.item_failed" {
		t.Fatalf("reserved msg key overwritten: %v", payload["msg"])
	}
	if payload["error"] != "deadline exceeded" {
		t.Fatalf("expected error string, got %v", payload["error"])
	}
	if payload["kind"] != "download_timeout" {
		t.Fatalf("unexpected kind: %v", payload["kind"])
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-7")
	if got := RequestID(ctx); got != "req-7" {
		t.Fatalf("expected req-7, got %q", got)
	}
	if got := RequestID(WithRequestID(context.Background(), "")); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}
