package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ProcessDeliveryMessage]       = (*ProcessDeliveryCommand)(nil)
	_ gocmd.Commander[RouteInboundMessage]          = (*RouteInboundCommand)(nil)
	_ gocmd.Commander[MarkAgentRequestedMessage]    = (*MarkAgentRequestedCommand)(nil)
	_ gocmd.Commander[AssignTenantFlowMessage]      = (*AssignTenantFlowCommand)(nil)
	_ gocmd.Commander[UpsertTemplateMessage]        = (*UpsertTemplateCommand)(nil)
	_ gocmd.Commander[DeactivateIntegrationMessage] = (*DeactivateIntegrationCommand)(nil)
)
