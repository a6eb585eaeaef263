package policy

import (
	"context"
	"strings"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngineFromPath(context.Background(), "testdata/anchor.rego")
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	return engine
}

func TestEvaluateAllows(t *testing.T) {
	engine := newTestEngine(t)
	result, err := engine.Evaluate(context.Background(), Input{
		Actor:         "did:test:collaborator-0001",
		OwnerIdentity: "did:test:owner-00000001",
		Fingerprint:   strings.Repeat("a", 64),
		MetadataSize:  100,
		Fee:           5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Allow {
		t.Fatalf("expected allow, got deny: %v", result.Deny)
	}
	if len(result.Deny) != 0 {
		t.Fatalf("unexpected deny entries: %v", result.Deny)
	}
}

func TestEvaluateDenies(t *testing.T) {
	engine := newTestEngine(t)
	result, err := engine.Evaluate(context.Background(), Input{
		Actor:        "did:blocked:mallory-001",
		Fee:          -1,
		MetadataSize: 100,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Allow {
		t.Fatal("expected deny")
	}
	if len(result.Deny) != 2 {
		t.Fatalf("got %d deny entries, want 2: %v", len(result.Deny), result.Deny)
	}
	// Deny entries come back sorted by code.
	if result.Deny[0].Code != "BLOCKED_ACTOR" || result.Deny[1].Code != "NEGATIVE_FEE" {
		t.Fatalf("unexpected deny order: %v", result.Deny)
	}
}

func TestNewEngineErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := NewEngineFromPath(ctx, ""); err == nil {
		t.Fatal("empty path accepted")
	}
	if _, err := NewEngineFromPath(ctx, "testdata/does-not-exist.rego"); err == nil {
		t.Fatal("missing policy accepted")
	}
}
