package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-botflow/core"
)

type stubHandoffReader struct {
	status core.HandoffStatus
	err    error
}

func (s stubHandoffReader) Status(context.Context, int64) (core.HandoffStatus, error) {
	return s.status, s.err
}

type stubFlowStore struct {
	keys map[int64]string
}

func (s stubFlowStore) FlowKey(_ context.Context, tenantID int64) (string, error) {
	return s.keys[tenantID], nil
}

type stubTemplateStore struct {
	templates map[string]core.Template
	err       error
}

func (s stubTemplateStore) FindActive(_ context.Context, tenantID int64, name string) (core.Template, bool, error) {
	if s.err != nil {
		return core.Template{}, false, s.err
	}
	template, ok := s.templates[fmt.Sprintf("%d:%s", tenantID, name)]
	return template, ok, nil
}

func TestHandoffStatusQuery_ReturnsReaderState(t *testing.T) {
	stamp := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	reader := stubHandoffReader{status: core.HandoffStatus{
		Active:           true,
		Status:           "open",
		AgentRequestedAt: &stamp,
	}}

	q := NewHandoffStatusQuery(reader)
	status, err := q.Query(context.Background(), HandoffStatusMessage{ConversationID: 7})
	if err != nil {
		t.Fatalf("query handoff status: %v", err)
	}
	if !status.Active {
		t.Fatalf("expected active handoff")
	}
	if status.AgentRequestedAt == nil || !status.AgentRequestedAt.Equal(stamp) {
		t.Fatalf("expected agent stamp %v, got %v", stamp, status.AgentRequestedAt)
	}
}

func TestHandoffStatusQuery_SurfacesReaderErrors(t *testing.T) {
	readerErr := fmt.Errorf("store offline")
	q := NewHandoffStatusQuery(stubHandoffReader{err: readerErr})

	_, err := q.Query(context.Background(), HandoffStatusMessage{ConversationID: 7})
	if err != readerErr {
		t.Fatalf("expected reader error passthrough, got %v", err)
	}
}

func TestResolveFlowKeyQuery_ReturnsConfiguredKey(t *testing.T) {
	q := NewResolveFlowKeyQuery(stubFlowStore{keys: map[int64]string{4: "agency"}})

	key, err := q.Query(context.Background(), ResolveFlowKeyMessage{TenantID: 4})
	if err != nil {
		t.Fatalf("query flow key: %v", err)
	}
	if key != "agency" {
		t.Fatalf("expected agency, got %q", key)
	}

	key, err = q.Query(context.Background(), ResolveFlowKeyMessage{TenantID: 9})
	if err != nil {
		t.Fatalf("query unconfigured tenant: %v", err)
	}
	if key != "" {
		t.Fatalf("expected blank key for unconfigured tenant, got %q", key)
	}
}

func TestFindTemplateQuery_ReportsFoundAndMissing(t *testing.T) {
	q := NewFindTemplateQuery(stubTemplateStore{templates: map[string]core.Template{
		"4:bienvenida_general": {Name: "bienvenida_general", Language: "es"},
	}})

	lookup, err := q.Query(context.Background(), FindTemplateMessage{TenantID: 4, Name: "bienvenida_general"})
	if err != nil {
		t.Fatalf("query template: %v", err)
	}
	if !lookup.Found {
		t.Fatalf("expected template hit")
	}
	if lookup.Template.Language != "es" {
		t.Fatalf("expected language es, got %q", lookup.Template.Language)
	}

	lookup, err = q.Query(context.Background(), FindTemplateMessage{TenantID: 4, Name: "missing"})
	if err != nil {
		t.Fatalf("query missing template: %v", err)
	}
	if lookup.Found {
		t.Fatalf("expected miss for unknown template")
	}
}

func TestMessageValidation(t *testing.T) {
	if err := (HandoffStatusMessage{}).Validate(); err == nil {
		t.Fatalf("expected conversation id validation error")
	}
	if err := (ResolveFlowKeyMessage{}).Validate(); err == nil {
		t.Fatalf("expected tenant id validation error")
	}
	if err := (FindTemplateMessage{TenantID: 4}).Validate(); err == nil {
		t.Fatalf("expected template name validation error")
	}
	if err := (FindTemplateMessage{TenantID: 4, Name: "bienvenida_general"}).Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}
