package command

import (
	"strings"

	"github.com/goliatone/go-botflow/core"
	"github.com/goliatone/go-botflow/tenant"
)

const (
	TypeProcessDelivery       = "botflow.command.inbound.process"
	TypeRouteInbound          = "botflow.command.inbound.route"
	TypeMarkAgentRequested    = "botflow.command.handoff.mark_agent_requested"
	TypeAssignTenantFlow      = "botflow.command.flows.assign"
	TypeUpsertTemplate        = "botflow.command.templates.upsert"
	TypeDeactivateIntegration = "botflow.command.integrations.deactivate"
)

// ProcessDeliveryMessage carries one raw webhook delivery through tenant
// resolution and routing.
type ProcessDeliveryMessage struct {
	Request *tenant.Request
}

func (ProcessDeliveryMessage) Type() string { return TypeProcessDelivery }

func (m ProcessDeliveryMessage) Validate() error {
	if m.Request == nil {
		return commandValidationError("request", "delivery request is required")
	}
	return nil
}

// RouteInboundMessage dispatches one already-resolved inbound event to the
// tenant's flow.
type RouteInboundMessage struct {
	Event core.InboundEvent
}

func (RouteInboundMessage) Type() string { return TypeRouteInbound }

func (m RouteInboundMessage) Validate() error {
	if m.Event.TenantID <= 0 {
		return commandValidationError("tenant_id", "tenant id is required")
	}
	if m.Event.ConversationID <= 0 {
		return commandValidationError("conversation_id", "conversation id is required")
	}
	if strings.TrimSpace(m.Event.Phone) == "" {
		return commandValidationError("phone", "phone is required")
	}
	return nil
}

type MarkAgentRequestedMessage struct {
	ConversationID int64
}

func (MarkAgentRequestedMessage) Type() string { return TypeMarkAgentRequested }

func (m MarkAgentRequestedMessage) Validate() error {
	if m.ConversationID <= 0 {
		return commandValidationError("conversation_id", "conversation id is required")
	}
	return nil
}

type AssignTenantFlowMessage struct {
	TenantID int64
	FlowKey  string
}

func (AssignTenantFlowMessage) Type() string { return TypeAssignTenantFlow }

func (m AssignTenantFlowMessage) Validate() error {
	if m.TenantID <= 0 {
		return commandValidationError("tenant_id", "tenant id is required")
	}
	if core.NormalizeFlowKey(m.FlowKey) == "" {
		return commandValidationError("flow_key", "flow key is required")
	}
	return nil
}

type UpsertTemplateMessage struct {
	TenantID int64
	Template core.Template
}

func (UpsertTemplateMessage) Type() string { return TypeUpsertTemplate }

func (m UpsertTemplateMessage) Validate() error {
	if m.TenantID <= 0 {
		return commandValidationError("tenant_id", "tenant id is required")
	}
	if strings.TrimSpace(m.Template.Name) == "" {
		return commandValidationError("name", "template name is required")
	}
	return nil
}

type DeactivateIntegrationMessage struct {
	IntegrationID string
}

func (DeactivateIntegrationMessage) Type() string { return TypeDeactivateIntegration }

func (m DeactivateIntegrationMessage) Validate() error {
	if strings.TrimSpace(m.IntegrationID) == "" {
		return commandValidationError("integration_id", "integration id is required")
	}
	return nil
}
