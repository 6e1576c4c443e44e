package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-123")
	ctx = logg.WithOrderID(ctx, "order-9")
	logg.Info(ctx, "payment confirmed")

	line := buf.String()
	for _, want := range []string{`"request_id":"req-123"`, `"order_id":"order-9"`, `"service":"test"`, "payment confirmed"} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line missing %s: %s", want, line)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if got := ParseLevel("debug"); got != zerolog.DebugLevel {
		t.Fatalf("expected debug, got %s", got)
	}
	if got := ParseLevel("  WARN "); got != zerolog.WarnLevel {
		t.Fatalf("expected warn, got %s", got)
	}
	if got := ParseLevel("nonsense"); got != zerolog.InfoLevel {
		t.Fatalf("bad input should default to info, got %s", got)
	}
}

func TestErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	logg.Error(context.Background(), "fulfillment item failed", context.DeadlineExceeded)

	line := buf.String()
	if !strings.Contains(line, `"stack":`) {
		t.Fatalf("error logs should carry a stack: %s", line)
	}
	if !strings.Contains(line, "context deadline exceeded") {
		t.Fatalf("error cause missing: %s", line)
	}
}
