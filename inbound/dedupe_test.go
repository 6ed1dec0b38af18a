package inbound

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-botflow/core"
	"github.com/goliatone/go-botflow/flow"
	"github.com/goliatone/go-botflow/tenant"
)

func TestDedupeCache_ClaimWindow(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	now := start
	cache := NewDedupeCache(DedupeOptions{
		Window: time.Minute,
		Now:    func() time.Time { return now },
	})

	if !cache.Claim("wamid.1") {
		t.Fatalf("expected first sighting to claim")
	}
	if cache.Claim("wamid.1") {
		t.Fatalf("expected redelivery inside the window to be rejected")
	}
	if !cache.Claim("wamid.2") {
		t.Fatalf("expected distinct message id to claim")
	}
	if !cache.Claim("") {
		t.Fatalf("expected blank id to always claim")
	}

	now = start.Add(2 * time.Minute)
	if !cache.Claim("wamid.1") {
		t.Fatalf("expected claim after the window expires")
	}
}

func TestDedupeCache_CleanupBoundsEntries(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	now := start
	cache := NewDedupeCache(DedupeOptions{
		Window:     time.Minute,
		MaxEntries: 4,
		Now:        func() time.Time { return now },
	})

	for _, id := range []string{"a", "b", "c", "d"} {
		cache.Claim(id)
	}
	now = start.Add(2 * time.Minute)
	for _, id := range []string{"e", "f", "g"} {
		cache.Claim(id)
	}
	if cache.Len() > 4 {
		t.Fatalf("expected expired entries to be evicted, got %d", cache.Len())
	}
}

func TestDispatcher_DropsDuplicateDelivery(t *testing.T) {
	integrations := core.NewMemoryIntegrationStore(core.Integration{
		TenantID: 4,
		LineID:   "line-777",
		IsActive: true,
	})
	resolver := tenant.NewResolver(integrations, core.NewMemoryUserStore())

	registry := core.NewFlowRegistry()
	handler := &capturingFlow{}
	if err := registry.Register(handler); err != nil {
		t.Fatalf("register flow: %v", err)
	}
	tenantFlows := core.NewMemoryTenantFlowStore()
	tenantFlows.Put(4, "agency")

	dispatcher := NewDispatcher(
		resolver,
		core.NewMemoryConversationResolver(),
		flow.NewRouter(tenantFlows, registry),
		WithDedupe(NewDedupeCache(DedupeOptions{Window: time.Minute})),
	)

	ctx := context.Background()
	if _, err := dispatcher.Dispatch(ctx, deliveryRequest(deliveryBody)); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	result, err := dispatcher.Dispatch(ctx, deliveryRequest(deliveryBody))
	if err != nil {
		t.Fatalf("redelivery dispatch: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("expected redelivery to be acknowledged")
	}
	if result.Metadata["processed"] != 0 || result.Metadata["dropped"] != 1 {
		t.Fatalf("expected duplicate to be dropped, got %+v", result.Metadata)
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.events) != 1 {
		t.Fatalf("expected a single routed event, got %d", len(handler.events))
	}
}
