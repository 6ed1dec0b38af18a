package core

import (
	"context"
	"testing"
)

type testFlow struct {
	key string
}

func (f testFlow) Key() string { return f.key }

func (f testFlow) Handle(context.Context, InboundEvent) error { return nil }

func TestFlowRegistry_CaseInsensitiveLookup(t *testing.T) {
	registry := NewFlowRegistry()
	if err := registry.Register(testFlow{key: "Agency"}); err != nil {
		t.Fatalf("register flow: %v", err)
	}

	for _, key := range []string{"agency", "AGENCY", " Agency "} {
		if _, ok := registry.Get(key); !ok {
			t.Fatalf("expected lookup %q to match", key)
		}
	}
	if _, ok := registry.Get("retail"); ok {
		t.Fatalf("unexpected match for unregistered key")
	}
}

func TestFlowRegistry_DuplicateKeyRejected(t *testing.T) {
	registry := NewFlowRegistry()
	if err := registry.Register(testFlow{key: "agency"}); err != nil {
		t.Fatalf("register flow: %v", err)
	}
	if err := registry.Register(testFlow{key: "AGENCY"}); err == nil {
		t.Fatalf("expected case-insensitive duplicate registration to fail")
	}
}

func TestFlowRegistry_ListDeterministicOrder(t *testing.T) {
	registry := NewFlowRegistry()
	for _, key := range []string{"zeta", "alpha", "beta"} {
		if err := registry.Register(testFlow{key: key}); err != nil {
			t.Fatalf("register flow %q: %v", key, err)
		}
	}

	listed := registry.List()
	if len(listed) != 3 {
		t.Fatalf("expected 3 flows, got %d", len(listed))
	}
	want := []string{"alpha", "beta", "zeta"}
	for idx := range want {
		if listed[idx].Key() != want[idx] {
			t.Fatalf("unexpected ordering at index %d: got %q want %q", idx, listed[idx].Key(), want[idx])
		}
	}
}
