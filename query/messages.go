package query

import (
	"strings"

	"github.com/goliatone/go-botflow/core"
)

const (
	TypeHandoffStatus  = "botflow.query.handoff.status"
	TypeResolveFlowKey = "botflow.query.flows.key"
	TypeFindTemplate   = "botflow.query.templates.find"
)

type HandoffStatusMessage struct {
	ConversationID int64
}

func (HandoffStatusMessage) Type() string { return TypeHandoffStatus }

func (m HandoffStatusMessage) Validate() error {
	if m.ConversationID <= 0 {
		return queryValidationError("conversation_id", "conversation id is required")
	}
	return nil
}

type ResolveFlowKeyMessage struct {
	TenantID int64
}

func (ResolveFlowKeyMessage) Type() string { return TypeResolveFlowKey }

func (m ResolveFlowKeyMessage) Validate() error {
	if m.TenantID <= 0 {
		return queryValidationError("tenant_id", "tenant id is required")
	}
	return nil
}

type FindTemplateMessage struct {
	TenantID int64
	Name     string
}

func (FindTemplateMessage) Type() string { return TypeFindTemplate }

func (m FindTemplateMessage) Validate() error {
	if m.TenantID <= 0 {
		return queryValidationError("tenant_id", "tenant id is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		return queryValidationError("name", "template name is required")
	}
	return nil
}

// TemplateLookup is the FindTemplate result. Found=false is a valid answer,
// not an error.
type TemplateLookup struct {
	Template core.Template
	Found    bool
}
