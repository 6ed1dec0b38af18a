package query

import (
	"context"

	"github.com/goliatone/go-botflow/core"
)

// HandoffReader reports a conversation's handoff state, surfacing lookup
// errors instead of failing open. handoff.Arbitrator is the default
// implementation.
type HandoffReader interface {
	Status(ctx context.Context, conversationID int64) (core.HandoffStatus, error)
}

type HandoffStatusQuery struct {
	reader HandoffReader
}

func NewHandoffStatusQuery(reader HandoffReader) *HandoffStatusQuery {
	return &HandoffStatusQuery{reader: reader}
}

func (q *HandoffStatusQuery) Query(ctx context.Context, msg HandoffStatusMessage) (core.HandoffStatus, error) {
	if q == nil || q.reader == nil {
		return core.HandoffStatus{}, queryDependencyError("query: handoff reader is required")
	}
	return q.reader.Status(ctx, msg.ConversationID)
}

type ResolveFlowKeyQuery struct {
	flows core.TenantFlowStore
}

func NewResolveFlowKeyQuery(flows core.TenantFlowStore) *ResolveFlowKeyQuery {
	return &ResolveFlowKeyQuery{flows: flows}
}

func (q *ResolveFlowKeyQuery) Query(ctx context.Context, msg ResolveFlowKeyMessage) (string, error) {
	if q == nil || q.flows == nil {
		return "", queryDependencyError("query: tenant flow store is required")
	}
	return q.flows.FlowKey(ctx, msg.TenantID)
}

type FindTemplateQuery struct {
	templates core.TemplateStore
}

func NewFindTemplateQuery(templates core.TemplateStore) *FindTemplateQuery {
	return &FindTemplateQuery{templates: templates}
}

func (q *FindTemplateQuery) Query(ctx context.Context, msg FindTemplateMessage) (TemplateLookup, error) {
	if q == nil || q.templates == nil {
		return TemplateLookup{}, queryDependencyError("query: template store is required")
	}
	template, found, err := q.templates.FindActive(ctx, msg.TenantID, msg.Name)
	if err != nil {
		return TemplateLookup{}, err
	}
	return TemplateLookup{Template: template, Found: found}, nil
}
