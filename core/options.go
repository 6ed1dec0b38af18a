package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// Dependencies collects everything the facade can be built from. Unset
// fields fall back to the memory implementations.
type Dependencies struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	registry        *FlowRegistry
	flows           []ConversationFlow
	gateway         MessageGateway
	templateStore   TemplateStore
	conversations   ConversationStore
	integrations    IntegrationStore
	users           UserStore
	tenantFlows     TenantFlowStore
	contacts        ConversationResolver
	arbitrator      HandoffArbitrator
}

type Option func(*Dependencies)

func WithRuntimeConfig(cfg Config) Option {
	return func(d *Dependencies) { d.runtimeConfig = cfg }
}

func WithLogger(logger Logger) Option {
	return func(d *Dependencies) { d.logger = logger }
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(d *Dependencies) { d.loggerProvider = provider }
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(d *Dependencies) { d.metricsRecorder = recorder }
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(d *Dependencies) { d.errorMapper = mapper }
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(d *Dependencies) { d.configProvider = provider }
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(d *Dependencies) { d.optionsResolver = resolver }
}

func WithRegistry(registry *FlowRegistry) Option {
	return func(d *Dependencies) { d.registry = registry }
}

func WithFlows(flows ...ConversationFlow) Option {
	return func(d *Dependencies) { d.flows = append(d.flows, flows...) }
}

func WithGateway(gateway MessageGateway) Option {
	return func(d *Dependencies) { d.gateway = gateway }
}

func WithTemplateStore(store TemplateStore) Option {
	return func(d *Dependencies) { d.templateStore = store }
}

func WithConversationStore(store ConversationStore) Option {
	return func(d *Dependencies) { d.conversations = store }
}

func WithIntegrationStore(store IntegrationStore) Option {
	return func(d *Dependencies) { d.integrations = store }
}

func WithUserStore(store UserStore) Option {
	return func(d *Dependencies) { d.users = store }
}

func WithTenantFlowStore(store TenantFlowStore) Option {
	return func(d *Dependencies) { d.tenantFlows = store }
}

func WithConversationResolver(resolver ConversationResolver) Option {
	return func(d *Dependencies) { d.contacts = resolver }
}

func WithArbitrator(arbitrator HandoffArbitrator) Option {
	return func(d *Dependencies) { d.arbitrator = arbitrator }
}

func (d *Dependencies) RuntimeConfig() Config            { return d.runtimeConfig }
func (d *Dependencies) Logger() Logger                   { return d.logger }
func (d *Dependencies) LoggerProvider() LoggerProvider   { return d.loggerProvider }
func (d *Dependencies) MetricsRecorder() MetricsRecorder { return d.metricsRecorder }
func (d *Dependencies) ErrorMapper() ErrorMapper         { return d.errorMapper }
func (d *Dependencies) ConfigProvider() ConfigProvider   { return d.configProvider }
func (d *Dependencies) OptionsResolver() OptionsResolver { return d.optionsResolver }
func (d *Dependencies) Registry() *FlowRegistry          { return d.registry }
func (d *Dependencies) Flows() []ConversationFlow        { return d.flows }
func (d *Dependencies) Gateway() MessageGateway          { return d.gateway }
func (d *Dependencies) TemplateStore() TemplateStore     { return d.templateStore }
func (d *Dependencies) ConversationStore() ConversationStore {
	return d.conversations
}
func (d *Dependencies) IntegrationStore() IntegrationStore { return d.integrations }
func (d *Dependencies) UserStore() UserStore               { return d.users }
func (d *Dependencies) TenantFlowStore() TenantFlowStore   { return d.tenantFlows }
func (d *Dependencies) ConversationResolver() ConversationResolver {
	return d.contacts
}
func (d *Dependencies) Arbitrator() HandoffArbitrator { return d.arbitrator }

func NewDependencies(options ...Option) *Dependencies {
	deps := &Dependencies{
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     DefaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(deps)
	}
	if deps.metricsRecorder == nil {
		deps.metricsRecorder = NopMetricsRecorder{}
	}
	if deps.errorMapper == nil {
		deps.errorMapper = DefaultErrorMapper
	}
	if deps.configProvider == nil {
		deps.configProvider = NewCfgxConfigProvider(nil)
	}
	if deps.optionsResolver == nil {
		deps.optionsResolver = GoOptionsResolver{}
	}
	if deps.registry == nil {
		deps.registry = NewFlowRegistry()
	}
	return deps
}

// ResolveConfig layers defaults, loaded configuration and runtime overrides
// into the final Config.
func (d *Dependencies) ResolveConfig(ctx context.Context) (Config, error) {
	defaults := DefaultConfig()
	loaded, err := d.configProvider.Load(ctx, defaults)
	if err != nil {
		return Config{}, mapDependencyError(d.errorMapper, err)
	}
	resolved, err := d.optionsResolver.Resolve(defaults, loaded, d.runtimeConfig)
	if err != nil {
		return Config{}, mapDependencyError(d.errorMapper, err)
	}
	return resolved, nil
}

func DefaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return flowErrorMapper(err)
}

func mapDependencyError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	if mapped := mapper(err); mapped != nil {
		return mapped
	}
	return err
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || len(cfg.Flows.TenantKeys) > 0 {
		keys := make(map[string]string, len(cfg.Flows.TenantKeys))
		for tenant, key := range cfg.Flows.TenantKeys {
			keys[tenant] = key
		}
		layer["flows"] = map[string]any{
			"tenant_keys": keys,
		}
	}
	// Each duration is layered on its own so a layer that sets only one of
	// them does not zero out the other.
	conversations := map[string]any{}
	if includeZero || cfg.Conversations.StateTTL > 0 {
		conversations["state_ttl"] = cfg.Conversations.StateTTL
	}
	if includeZero || cfg.Conversations.SweepInterval > 0 {
		conversations["sweep_interval"] = cfg.Conversations.SweepInterval
	}
	if len(conversations) > 0 {
		layer["conversations"] = conversations
	}
	inboundLayer := map[string]any{}
	if includeZero || cfg.Inbound.DedupeWindow > 0 {
		inboundLayer["dedupe_window"] = cfg.Inbound.DedupeWindow
	}
	if includeZero || cfg.Inbound.DedupeEntries > 0 {
		inboundLayer["dedupe_entries"] = cfg.Inbound.DedupeEntries
	}
	if len(inboundLayer) > 0 {
		layer["inbound"] = inboundLayer
	}
	return layer
}
