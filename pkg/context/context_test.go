package context_test

import (
	"context"
	"strings"
	"testing"
	"time"

	pcontext "github.com/moneypot/moneypot/pkg/context"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	if got := pcontext.GetRequestID(ctx); got != "unknown-request" {
		t.Errorf("expected unknown-request, got %s", got)
	}

	ctx = pcontext.WithRequestID(ctx, "")
	id, ok := pcontext.RequestID(ctx)
	if !ok || !strings.HasPrefix(id, "req_") {
		t.Errorf("expected generated request id, got %q", id)
	}

	ctx = pcontext.WithRequestID(ctx, "req_fixed")
	if got := pcontext.GetRequestID(ctx); got != "req_fixed" {
		t.Errorf("expected req_fixed, got %s", got)
	}
}

func TestEnrichContext(t *testing.T) {
	base := pcontext.WithRequestID(context.Background(), "req_keep")
	ctx := pcontext.EnrichContext(base)

	if got := pcontext.GetRequestID(ctx); got != "req_keep" {
		t.Errorf("expected existing request id to be kept, got %s", got)
	}
	if id, ok := pcontext.CorrelationID(ctx); !ok || !strings.HasPrefix(id, "cor_") {
		t.Errorf("expected generated correlation id, got %q", id)
	}
	if _, ok := pcontext.StartTime(ctx); !ok {
		t.Error("expected start time to be set")
	}
}

func TestGetDuration(t *testing.T) {
	if d := pcontext.GetDuration(context.Background()); d != 0 {
		t.Errorf("expected zero duration without start time, got %s", d)
	}

	ctx := pcontext.WithStartTime(context.Background(), time.Now().Add(-time.Second))
	if d := pcontext.GetDuration(ctx); d < time.Second {
		t.Errorf("expected at least 1s, got %s", d)
	}
}

func TestUserAndOperation(t *testing.T) {
	ctx := pcontext.WithUserID(context.Background(), "")
	if _, ok := pcontext.UserID(ctx); ok {
		t.Error("empty user id should not count as set")
	}

	ctx = pcontext.WithOperation(pcontext.WithUserID(ctx, "u1"), "create")
	if id, _ := pcontext.UserID(ctx); id != "u1" {
		t.Errorf("expected u1, got %s", id)
	}
	if op, _ := pcontext.Operation(ctx); op != "create" {
		t.Errorf("expected create, got %s", op)
	}
}
