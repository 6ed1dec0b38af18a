package botflow

import (
	"context"
	"fmt"
	"net/http"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-botflow/core"
	"github.com/goliatone/go-botflow/flow"
	"github.com/goliatone/go-botflow/handoff"
	"github.com/goliatone/go-botflow/inbound"
	"github.com/goliatone/go-botflow/tenant"
)

type Config = core.Config

type FlowsConfig = core.FlowsConfig

type ConversationsConfig = core.ConversationsConfig

type InboundConfig = core.InboundConfig

type Option = core.Option

type Dependencies = core.Dependencies

type Logger = core.Logger

type InboundEvent = core.InboundEvent

type Integration = core.Integration

type Template = core.Template

type HandoffStatus = core.HandoffStatus

type ConversationFlow = core.ConversationFlow

type MessageGateway = core.MessageGateway

var (
	WithRuntimeConfig        = core.WithRuntimeConfig
	WithLogger               = core.WithLogger
	WithLoggerProvider       = core.WithLoggerProvider
	WithMetricsRecorder      = core.WithMetricsRecorder
	WithErrorMapper          = core.WithErrorMapper
	WithConfigProvider       = core.WithConfigProvider
	WithOptionsResolver      = core.WithOptionsResolver
	WithRegistry             = core.WithRegistry
	WithFlows                = core.WithFlows
	WithGateway              = core.WithGateway
	WithTemplateStore        = core.WithTemplateStore
	WithConversationStore    = core.WithConversationStore
	WithIntegrationStore     = core.WithIntegrationStore
	WithUserStore            = core.WithUserStore
	WithTenantFlowStore      = core.WithTenantFlowStore
	WithConversationResolver = core.WithConversationResolver
	WithArbitrator           = core.WithArbitrator
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// Service is the assembled inbound routing runtime: tenant resolution,
// conversation identity, the flow registry and router, handoff arbitration
// and the webhook dispatcher, sharing one conversation state table.
type Service struct {
	config        Config
	deps          *core.Dependencies
	states        *flow.StateTable
	registry      *core.FlowRegistry
	router        *flow.Router
	resolver      *tenant.Resolver
	dispatcher    *inbound.Dispatcher
	statusReader  *handoff.Arbitrator
	gateway       core.MessageGateway
	templates     core.TemplateStore
	conversations core.ConversationStore
	integrations  core.IntegrationStore
	users         core.UserStore
	tenantFlows   core.TenantFlowStore
	contacts      core.ConversationResolver
	logger        core.Logger
}

// New assembles a Service from the resolved configuration. Stores left unset
// fall back to the in-memory implementations, which makes a bare New usable
// for tests and single-node setups.
func New(cfg Config, options ...Option) (*Service, error) {
	return Setup(context.Background(), cfg, options...)
}

// Setup is New with an explicit context for configuration loading.
func Setup(ctx context.Context, cfg Config, options ...Option) (*Service, error) {
	deps := core.NewDependencies(append([]core.Option{core.WithRuntimeConfig(cfg)}, options...)...)

	resolved, err := deps.ResolveConfig(ctx)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		config:   resolved,
		deps:     deps,
		gateway:  deps.Gateway(),
		registry: deps.Registry(),
	}
	_, svc.logger = glog.Resolve("botflow", deps.LoggerProvider(), deps.Logger())

	svc.templates = deps.TemplateStore()
	if svc.templates == nil {
		svc.templates = core.NewMemoryTemplateStore()
	}
	svc.conversations = deps.ConversationStore()
	if svc.conversations == nil {
		svc.conversations = core.NewMemoryConversationStore()
	}
	svc.integrations = deps.IntegrationStore()
	if svc.integrations == nil {
		svc.integrations = core.NewMemoryIntegrationStore()
	}
	svc.users = deps.UserStore()
	if svc.users == nil {
		svc.users = core.NewMemoryUserStore()
	}
	svc.contacts = deps.ConversationResolver()
	if svc.contacts == nil {
		svc.contacts = core.NewMemoryConversationResolver()
	}
	svc.tenantFlows = deps.TenantFlowStore()
	if svc.tenantFlows == nil {
		svc.tenantFlows = core.NewMemoryTenantFlowStoreFromConfig(resolved.Flows)
	}

	svc.states = flow.NewStateTable(resolved.Conversations.StateTTL)
	svc.statusReader = handoff.NewArbitrator(svc.conversations, handoffOptions(deps)...)

	arbitrator := deps.Arbitrator()
	if arbitrator == nil {
		arbitrator = svc.statusReader
	}

	for _, registered := range deps.Flows() {
		if err := svc.registry.Register(registered); err != nil {
			return nil, err
		}
	}
	if err := svc.registerAgencyFlow(deps, arbitrator); err != nil {
		return nil, err
	}

	svc.router = flow.NewRouter(svc.tenantFlows, svc.registry, routerOptions(deps)...)
	svc.resolver = tenant.NewResolver(svc.integrations, svc.users, tenantOptions(deps)...)
	svc.dispatcher = inbound.NewDispatcher(svc.resolver, svc.contacts, svc.router, inboundOptions(deps, resolved.Inbound)...)

	return svc, nil
}

// registerAgencyFlow installs the built-in digital agency flow unless a flow
// already claims its key. Without an outbound gateway the flow cannot reply,
// so it is left unregistered and the router drops its traffic.
func (s *Service) registerAgencyFlow(deps *core.Dependencies, arbitrator core.HandoffArbitrator) error {
	if _, exists := s.registry.Get(flow.FlowKeyAgency); exists {
		return nil
	}
	if s.gateway == nil {
		s.logger.Debug("no message gateway configured, built-in agency flow not registered")
		return nil
	}
	agency := flow.NewAgencyFlow(
		s.states,
		s.gateway,
		s.templates,
		s.conversations,
		arbitrator,
		agencyOptions(deps)...,
	)
	return s.registry.Register(agency)
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() *core.Dependencies {
	if s == nil {
		return nil
	}
	return s.deps
}

func (s *Service) Registry() *core.FlowRegistry {
	if s == nil {
		return nil
	}
	return s.registry
}

func (s *Service) Router() *flow.Router {
	if s == nil {
		return nil
	}
	return s.router
}

func (s *Service) Dispatcher() *inbound.Dispatcher {
	if s == nil {
		return nil
	}
	return s.dispatcher
}

// States exposes the shared conversation state table, mainly so schedulers
// can wire its Sweep into a periodic job.
func (s *Service) States() *flow.StateTable {
	if s == nil {
		return nil
	}
	return s.states
}

// Dispatch handles one raw webhook delivery end to end.
func (s *Service) Dispatch(ctx context.Context, req *tenant.Request) (inbound.Result, error) {
	if s == nil || s.dispatcher == nil {
		return inbound.Result{}, fmt.Errorf("botflow: service is not initialized")
	}
	return s.dispatcher.Dispatch(ctx, req)
}

// DispatchHTTP adapts a raw http request into Dispatch.
func (s *Service) DispatchHTTP(r *http.Request) (inbound.Result, error) {
	if s == nil || s.dispatcher == nil {
		return inbound.Result{}, fmt.Errorf("botflow: service is not initialized")
	}
	return s.dispatcher.DispatchHTTP(r)
}

// Route sends an already resolved event through the tenant's flow.
func (s *Service) Route(ctx context.Context, event core.InboundEvent) error {
	if s == nil || s.router == nil {
		return fmt.Errorf("botflow: service is not initialized")
	}
	return s.router.Route(ctx, event)
}

// Assign binds a tenant to a flow key. The SQL-backed store persists the
// assignment; the in-memory store mutates its map.
func (s *Service) Assign(ctx context.Context, tenantID int64, flowKey string) error {
	if s == nil || s.tenantFlows == nil {
		return fmt.Errorf("botflow: service is not initialized")
	}
	if tenantID <= 0 {
		return fmt.Errorf("botflow: tenant id is required")
	}
	switch store := s.tenantFlows.(type) {
	case interface {
		Assign(ctx context.Context, tenantID int64, flowKey string) error
	}:
		return store.Assign(ctx, tenantID, flowKey)
	case interface {
		Put(tenantID int64, flowKey string)
	}:
		store.Put(tenantID, flowKey)
		return nil
	}
	return fmt.Errorf("botflow: tenant flow store does not support assignment")
}

// FlowKey reports the flow key configured for a tenant, blank when none.
func (s *Service) FlowKey(ctx context.Context, tenantID int64) (string, error) {
	if s == nil || s.tenantFlows == nil {
		return "", fmt.Errorf("botflow: service is not initialized")
	}
	return s.tenantFlows.FlowKey(ctx, tenantID)
}

// Upsert writes a tenant template row.
func (s *Service) Upsert(ctx context.Context, tenantID int64, template core.Template) error {
	if s == nil || s.templates == nil {
		return fmt.Errorf("botflow: service is not initialized")
	}
	switch store := s.templates.(type) {
	case interface {
		Upsert(ctx context.Context, tenantID int64, template core.Template) error
	}:
		return store.Upsert(ctx, tenantID, template)
	case interface {
		Put(tenantID int64, template core.Template)
	}:
		store.Put(tenantID, template)
		return nil
	}
	return fmt.Errorf("botflow: template store does not support writes")
}

// Deactivate disables a provider line binding.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	if s == nil || s.integrations == nil {
		return fmt.Errorf("botflow: service is not initialized")
	}
	store, ok := s.integrations.(interface {
		Deactivate(ctx context.Context, id string) error
	})
	if !ok {
		return fmt.Errorf("botflow: integration store does not support deactivation")
	}
	return store.Deactivate(ctx, id)
}

// MarkAgentRequested stamps the conversation's agent request once.
func (s *Service) MarkAgentRequested(ctx context.Context, conversationID int64) error {
	if s == nil || s.conversations == nil {
		return fmt.Errorf("botflow: service is not initialized")
	}
	return s.conversations.MarkAgentRequested(ctx, conversationID)
}

// HandoffStatus returns the full handoff view for one conversation.
func (s *Service) HandoffStatus(ctx context.Context, conversationID int64) (core.HandoffStatus, error) {
	if s == nil || s.statusReader == nil {
		return core.HandoffStatus{}, fmt.Errorf("botflow: service is not initialized")
	}
	return s.statusReader.Status(ctx, conversationID)
}

func handoffOptions(deps *core.Dependencies) []handoff.Option {
	options := []handoff.Option{}
	if logger := deps.Logger(); logger != nil {
		options = append(options, handoff.WithLogger(logger))
	}
	if provider := deps.LoggerProvider(); provider != nil {
		options = append(options, handoff.WithLoggerProvider(provider))
	}
	return options
}

func routerOptions(deps *core.Dependencies) []flow.RouterOption {
	options := []flow.RouterOption{flow.WithRouterMetrics(deps.MetricsRecorder())}
	if logger := deps.Logger(); logger != nil {
		options = append(options, flow.WithRouterLogger(logger))
	}
	if provider := deps.LoggerProvider(); provider != nil {
		options = append(options, flow.WithRouterLoggerProvider(provider))
	}
	return options
}

func agencyOptions(deps *core.Dependencies) []flow.AgencyOption {
	options := []flow.AgencyOption{flow.WithAgencyMetrics(deps.MetricsRecorder())}
	if logger := deps.Logger(); logger != nil {
		options = append(options, flow.WithAgencyLogger(logger))
	}
	if provider := deps.LoggerProvider(); provider != nil {
		options = append(options, flow.WithAgencyLoggerProvider(provider))
	}
	return options
}

func tenantOptions(deps *core.Dependencies) []tenant.Option {
	options := []tenant.Option{}
	if logger := deps.Logger(); logger != nil {
		options = append(options, tenant.WithLogger(logger))
	}
	if provider := deps.LoggerProvider(); provider != nil {
		options = append(options, tenant.WithLoggerProvider(provider))
	}
	return options
}

func inboundOptions(deps *core.Dependencies, cfg core.InboundConfig) []inbound.Option {
	options := []inbound.Option{inbound.WithMetrics(deps.MetricsRecorder())}
	if cfg.DedupeWindow > 0 {
		options = append(options, inbound.WithDedupe(inbound.NewDedupeCache(inbound.DedupeOptions{
			Window:     cfg.DedupeWindow,
			MaxEntries: cfg.DedupeEntries,
		})))
	}
	if logger := deps.Logger(); logger != nil {
		options = append(options, inbound.WithLogger(logger))
	}
	if provider := deps.LoggerProvider(); provider != nil {
		options = append(options, inbound.WithLoggerProvider(provider))
	}
	return options
}
