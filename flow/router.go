package flow

import (
	"context"
	"fmt"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-botflow/core"
)

// Router dispatches inbound events to the flow configured for their tenant.
// Unconfigured tenants and unknown flow keys drop the event with a log line;
// only handler errors propagate.
type Router struct {
	tenantFlows core.TenantFlowStore
	registry    *core.FlowRegistry
	logger      core.Logger
	metrics     core.MetricsRecorder
}

type RouterOption func(*Router)

func WithRouterLogger(logger core.Logger) RouterOption {
	return func(r *Router) { r.logger = logger }
}

func WithRouterLoggerProvider(provider core.LoggerProvider) RouterOption {
	return func(r *Router) { _, r.logger = glog.Resolve("botflow.router", provider, r.logger) }
}

func WithRouterMetrics(recorder core.MetricsRecorder) RouterOption {
	return func(r *Router) { r.metrics = recorder }
}

func NewRouter(tenantFlows core.TenantFlowStore, registry *core.FlowRegistry, options ...RouterOption) *Router {
	router := &Router{
		tenantFlows: tenantFlows,
		registry:    registry,
		metrics:     core.NopMetricsRecorder{},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(router)
	}
	_, router.logger = glog.Resolve("botflow.router", nil, router.logger)
	if router.metrics == nil {
		router.metrics = core.NopMetricsRecorder{}
	}
	return router
}

// Route resolves the tenant's flow key and hands the event to the matching
// flow. Store failures degrade to a dropped event.
func (r *Router) Route(ctx context.Context, event core.InboundEvent) error {
	if r == nil {
		return fmt.Errorf("flow: router is nil")
	}
	if r.tenantFlows == nil || r.registry == nil {
		return fmt.Errorf("flow: router requires a tenant flow store and a registry")
	}

	key, err := r.tenantFlows.FlowKey(ctx, event.TenantID)
	if err != nil {
		r.logger.Error("flow key lookup failed, dropping event",
			"tenant_id", event.TenantID,
			"conversation_id", event.ConversationID,
			"error", err,
		)
		r.count(ctx, "botflow_router_dropped", "lookup_failed")
		return nil
	}
	if core.NormalizeFlowKey(key) == "" {
		r.logger.Debug("tenant has no flow configured, dropping event",
			"tenant_id", event.TenantID,
			"conversation_id", event.ConversationID,
		)
		r.count(ctx, "botflow_router_dropped", "unconfigured")
		return nil
	}

	handler, ok := r.registry.Get(key)
	if !ok {
		r.logger.Error("flow not registered, dropping event",
			"tenant_id", event.TenantID,
			"flow_key", key,
		)
		r.count(ctx, "botflow_router_dropped", "unregistered")
		return nil
	}

	r.count(ctx, "botflow_router_dispatched", core.NormalizeFlowKey(key))
	return handler.Handle(ctx, event)
}

func (r *Router) count(ctx context.Context, name string, reason string) {
	r.metrics.Counter(ctx, name, 1, map[string]string{"reason": reason})
}
