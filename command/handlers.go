package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-botflow/core"
	"github.com/goliatone/go-botflow/inbound"
	"github.com/goliatone/go-botflow/tenant"
)

// DeliveryService accepts one raw webhook delivery. inbound.Dispatcher is
// the default implementation.
type DeliveryService interface {
	Dispatch(ctx context.Context, req *tenant.Request) (inbound.Result, error)
}

// RoutingService routes a resolved inbound event to its tenant flow.
type RoutingService interface {
	Route(ctx context.Context, event core.InboundEvent) error
}

// FlowAssignmentService binds a tenant to a flow key.
type FlowAssignmentService interface {
	Assign(ctx context.Context, tenantID int64, flowKey string) error
}

// TemplateMutatingService writes tenant template rows.
type TemplateMutatingService interface {
	Upsert(ctx context.Context, tenantID int64, template core.Template) error
}

// IntegrationMutatingService disables provider line bindings.
type IntegrationMutatingService interface {
	Deactivate(ctx context.Context, id string) error
}

type ProcessDeliveryCommand struct {
	service DeliveryService
}

func NewProcessDeliveryCommand(service DeliveryService) *ProcessDeliveryCommand {
	return &ProcessDeliveryCommand{service: service}
}

func (c *ProcessDeliveryCommand) Execute(ctx context.Context, msg ProcessDeliveryMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: delivery service is required")
	}
	out, err := c.service.Dispatch(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RouteInboundCommand struct {
	service RoutingService
}

func NewRouteInboundCommand(service RoutingService) *RouteInboundCommand {
	return &RouteInboundCommand{service: service}
}

func (c *RouteInboundCommand) Execute(ctx context.Context, msg RouteInboundMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: routing service is required")
	}
	return c.service.Route(ctx, msg.Event)
}

type MarkAgentRequestedCommand struct {
	conversations core.ConversationStore
}

func NewMarkAgentRequestedCommand(conversations core.ConversationStore) *MarkAgentRequestedCommand {
	return &MarkAgentRequestedCommand{conversations: conversations}
}

func (c *MarkAgentRequestedCommand) Execute(ctx context.Context, msg MarkAgentRequestedMessage) error {
	if c == nil || c.conversations == nil {
		return commandDependencyError("command: conversation store is required")
	}
	return c.conversations.MarkAgentRequested(ctx, msg.ConversationID)
}

type AssignTenantFlowCommand struct {
	service FlowAssignmentService
}

func NewAssignTenantFlowCommand(service FlowAssignmentService) *AssignTenantFlowCommand {
	return &AssignTenantFlowCommand{service: service}
}

func (c *AssignTenantFlowCommand) Execute(ctx context.Context, msg AssignTenantFlowMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: flow assignment service is required")
	}
	return c.service.Assign(ctx, msg.TenantID, msg.FlowKey)
}

type UpsertTemplateCommand struct {
	service TemplateMutatingService
}

func NewUpsertTemplateCommand(service TemplateMutatingService) *UpsertTemplateCommand {
	return &UpsertTemplateCommand{service: service}
}

func (c *UpsertTemplateCommand) Execute(ctx context.Context, msg UpsertTemplateMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: template service is required")
	}
	return c.service.Upsert(ctx, msg.TenantID, msg.Template)
}

type DeactivateIntegrationCommand struct {
	service IntegrationMutatingService
}

func NewDeactivateIntegrationCommand(service IntegrationMutatingService) *DeactivateIntegrationCommand {
	return &DeactivateIntegrationCommand{service: service}
}

func (c *DeactivateIntegrationCommand) Execute(ctx context.Context, msg DeactivateIntegrationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: integration service is required")
	}
	return c.service.Deactivate(ctx, msg.IntegrationID)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
