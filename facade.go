package botflow

import (
	"fmt"

	"github.com/goliatone/go-botflow/adapters/gocommand"
	botflowcommand "github.com/goliatone/go-botflow/command"
	"github.com/goliatone/go-botflow/core"
	"github.com/goliatone/go-botflow/handoff"
	botflowquery "github.com/goliatone/go-botflow/query"
)

// CommandQueryService is what the facade needs from the assembled service:
// every mutating operation the command handlers delegate to.
type CommandQueryService interface {
	botflowcommand.DeliveryService
	botflowcommand.RoutingService
	botflowcommand.FlowAssignmentService
	botflowcommand.TemplateMutatingService
	botflowcommand.IntegrationMutatingService
}

type Commands struct {
	ProcessDelivery       *botflowcommand.ProcessDeliveryCommand
	RouteInbound          *botflowcommand.RouteInboundCommand
	MarkAgentRequested    *botflowcommand.MarkAgentRequestedCommand
	AssignTenantFlow      *botflowcommand.AssignTenantFlowCommand
	UpsertTemplate        *botflowcommand.UpsertTemplateCommand
	DeactivateIntegration *botflowcommand.DeactivateIntegrationCommand
}

type Queries struct {
	HandoffStatus  *botflowquery.HandoffStatusQuery
	ResolveFlowKey *botflowquery.ResolveFlowKeyQuery
	FindTemplate   *botflowquery.FindTemplateQuery
}

// Facade exposes the service as ready-made command and query handlers for
// dispatcher or queue registration.
type Facade struct {
	service  *Service
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	handoffReader botflowquery.HandoffReader
}

// WithHandoffReader overrides the handoff status source, which defaults to
// the service's own arbitrator.
func WithHandoffReader(reader botflowquery.HandoffReader) FacadeOption {
	return func(options *facadeOptions) {
		options.handoffReader = reader
	}
}

func NewFacade(service *Service, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("botflow: service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.handoffReader
	if reader == nil {
		reader = service.statusReader
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		ProcessDelivery:       botflowcommand.NewProcessDeliveryCommand(service),
		RouteInbound:          botflowcommand.NewRouteInboundCommand(service),
		MarkAgentRequested:    botflowcommand.NewMarkAgentRequestedCommand(service.conversations),
		AssignTenantFlow:      botflowcommand.NewAssignTenantFlowCommand(service),
		UpsertTemplate:        botflowcommand.NewUpsertTemplateCommand(service),
		DeactivateIntegration: botflowcommand.NewDeactivateIntegrationCommand(service),
	}
	facade.queries = Queries{
		HandoffStatus:  botflowquery.NewHandoffStatusQuery(reader),
		ResolveFlowKey: botflowquery.NewResolveFlowKeyQuery(service.tenantFlows),
		FindTemplate:   botflowquery.NewFindTemplateQuery(service.templates),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

// Register binds every facade handler to the shared go-command dispatcher
// and records it in the adapter's registry, so dispatched messages and
// queue resolvers reach the same handlers. When any binding fails the ones
// already made are detached before the error is returned.
func (f *Facade) Register(adapter *gocommand.RegistryAdapter) ([]gocommand.Subscription, error) {
	if f == nil || f.service == nil {
		return nil, fmt.Errorf("botflow: facade is not initialized")
	}
	if adapter == nil {
		return nil, fmt.Errorf("botflow: registry adapter is required")
	}

	bindings := []func() (gocommand.Subscription, error){
		func() (gocommand.Subscription, error) {
			return gocommand.RegisterAndSubscribe[botflowcommand.ProcessDeliveryMessage](adapter, f.commands.ProcessDelivery)
		},
		func() (gocommand.Subscription, error) {
			return gocommand.RegisterAndSubscribe[botflowcommand.RouteInboundMessage](adapter, f.commands.RouteInbound)
		},
		func() (gocommand.Subscription, error) {
			return gocommand.RegisterAndSubscribe[botflowcommand.MarkAgentRequestedMessage](adapter, f.commands.MarkAgentRequested)
		},
		func() (gocommand.Subscription, error) {
			return gocommand.RegisterAndSubscribe[botflowcommand.AssignTenantFlowMessage](adapter, f.commands.AssignTenantFlow)
		},
		func() (gocommand.Subscription, error) {
			return gocommand.RegisterAndSubscribe[botflowcommand.UpsertTemplateMessage](adapter, f.commands.UpsertTemplate)
		},
		func() (gocommand.Subscription, error) {
			return gocommand.RegisterAndSubscribe[botflowcommand.DeactivateIntegrationMessage](adapter, f.commands.DeactivateIntegration)
		},
		func() (gocommand.Subscription, error) {
			return gocommand.RegisterAndSubscribeQuery[botflowquery.HandoffStatusMessage, core.HandoffStatus](adapter, f.queries.HandoffStatus)
		},
		func() (gocommand.Subscription, error) {
			return gocommand.RegisterAndSubscribeQuery[botflowquery.ResolveFlowKeyMessage, string](adapter, f.queries.ResolveFlowKey)
		},
		func() (gocommand.Subscription, error) {
			return gocommand.RegisterAndSubscribeQuery[botflowquery.FindTemplateMessage, botflowquery.TemplateLookup](adapter, f.queries.FindTemplate)
		},
	}

	subscriptions := make([]gocommand.Subscription, 0, len(bindings))
	for _, bind := range bindings {
		subscription, err := bind()
		if err != nil {
			gocommand.Unsubscribe(subscriptions...)
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}
	return subscriptions, nil
}

func (f *Facade) Service() *Service {
	if f == nil {
		return nil
	}
	return f.service
}

var (
	_ CommandQueryService        = (*Service)(nil)
	_ botflowquery.HandoffReader = (*handoff.Arbitrator)(nil)
)
