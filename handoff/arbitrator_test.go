package handoff

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-botflow/core"
)

func TestArbitrator_ActiveRequiresOpenStatusAndStamp(t *testing.T) {
	ctx := context.Background()
	stamp := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		snapshot core.ConversationSnapshot
		want     bool
	}{
		{"open and stamped", core.ConversationSnapshot{Status: "open", AgentRequestedAt: &stamp}, true},
		{"case-insensitive status", core.ConversationSnapshot{Status: "OPEN", AgentRequestedAt: &stamp}, true},
		{"blank status defaults to open", core.ConversationSnapshot{AgentRequestedAt: &stamp}, true},
		{"open without stamp", core.ConversationSnapshot{Status: "open"}, false},
		{"closed with stamp", core.ConversationSnapshot{Status: "closed", AgentRequestedAt: &stamp}, false},
	}

	for _, tc := range cases {
		store := core.NewMemoryConversationStore()
		store.Put(1, tc.snapshot)
		arbitrator := NewArbitrator(store)
		if got := arbitrator.Active(ctx, 1); got != tc.want {
			t.Fatalf("%s: Active = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestArbitrator_MissingConversationIsInactive(t *testing.T) {
	arbitrator := NewArbitrator(core.NewMemoryConversationStore())
	if arbitrator.Active(context.Background(), 404) {
		t.Fatalf("expected unknown conversation to read as inactive")
	}
}

type erroringStore struct{}

func (erroringStore) Find(context.Context, int64) (core.ConversationSnapshot, bool, error) {
	return core.ConversationSnapshot{}, false, fmt.Errorf("store: connection refused")
}

func (erroringStore) MarkAgentRequested(context.Context, int64) error {
	return fmt.Errorf("store: connection refused")
}

func TestArbitrator_LookupFailureFailsOpen(t *testing.T) {
	arbitrator := NewArbitrator(erroringStore{})
	if arbitrator.Active(context.Background(), 1) {
		t.Fatalf("expected lookup failure to read as inactive")
	}
}

func TestArbitrator_StatusSurfacesErrors(t *testing.T) {
	arbitrator := NewArbitrator(erroringStore{})
	if _, err := arbitrator.Status(context.Background(), 1); err == nil {
		t.Fatalf("expected status to surface lookup errors")
	}
}

func TestArbitrator_StatusForMissingConversation(t *testing.T) {
	arbitrator := NewArbitrator(core.NewMemoryConversationStore())
	status, err := arbitrator.Status(context.Background(), 404)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Active || status.Status != StatusOpen || status.AgentRequestedAt != nil {
		t.Fatalf("unexpected status for missing conversation: %+v", status)
	}
}
