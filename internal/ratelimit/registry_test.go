package ratelimit

import (
	"testing"
)

func TestNewRegistry_LoadsEmbeddedRules(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	for _, name := range []string{"search", "write"} {
		if _, ok := r.rules[name]; !ok {
			t.Errorf("expected rule %q to be loaded", name)
		}
	}
}

func TestAllow_ExhaustsBurst(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	rule := r.rules["write"]
	for i := 0; i < rule.Burst; i++ {
		if !r.Allow("write", "user:alice") {
			t.Fatalf("request %d should be within the burst", i+1)
		}
	}
	if r.Allow("write", "user:alice") {
		t.Error("request past the burst should be rejected")
	}

	// A different key gets its own bucket
	if !r.Allow("write", "user:bob") {
		t.Error("separate key should not share the exhausted bucket")
	}
}

func TestAllow_UnknownRulePasses(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	for i := 0; i < 100; i++ {
		if !r.Allow("nonexistent", "user:alice") {
			t.Fatal("unknown rules must not limit")
		}
	}
}
