package inbound

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-botflow/core"
	"github.com/goliatone/go-botflow/flow"
	"github.com/goliatone/go-botflow/tenant"
)

// Result is what the transport edge reports back to the provider. Webhook
// deliveries are acknowledged even when every message inside them dropped.
type Result struct {
	Accepted   bool
	StatusCode int
	Metadata   map[string]any
}

// Dispatcher is the webhook entry point: it resolves the tenant, fans the
// delivery out into per-message events and routes each one. A delivery for
// an unresolved tenant is accepted and ignored.
type Dispatcher struct {
	resolver *tenant.Resolver
	contacts core.ConversationResolver
	router   *flow.Router
	dedupe   *DedupeCache
	logger   core.Logger
	metrics  core.MetricsRecorder
	Now      func() time.Time
}

type Option func(*Dispatcher)

func WithLogger(logger core.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(d *Dispatcher) { _, d.logger = glog.Resolve("botflow.inbound", provider, d.logger) }
}

func WithMetrics(recorder core.MetricsRecorder) Option {
	return func(d *Dispatcher) { d.metrics = recorder }
}

// WithDedupe suppresses provider redeliveries of already-seen message ids.
func WithDedupe(cache *DedupeCache) Option {
	return func(d *Dispatcher) { d.dedupe = cache }
}

func NewDispatcher(
	resolver *tenant.Resolver,
	contacts core.ConversationResolver,
	router *flow.Router,
	options ...Option,
) *Dispatcher {
	dispatcher := &Dispatcher{
		resolver: resolver,
		contacts: contacts,
		router:   router,
		metrics:  core.NopMetricsRecorder{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(dispatcher)
	}
	_, dispatcher.logger = glog.Resolve("botflow.inbound", nil, dispatcher.logger)
	if dispatcher.metrics == nil {
		dispatcher.metrics = core.NopMetricsRecorder{}
	}
	return dispatcher
}

// Dispatch handles one webhook delivery end to end. Malformed payloads and
// routing failures degrade to logged drops; only wiring problems error.
func (d *Dispatcher) Dispatch(ctx context.Context, req *tenant.Request) (Result, error) {
	if d == nil || d.resolver == nil || d.contacts == nil || d.router == nil {
		return Result{}, inboundInternal("inbound: dispatcher requires resolver, contacts and router", nil)
	}
	if req == nil {
		req = &tenant.Request{}
	}

	ctx, tenantID := d.resolver.Resolve(ctx, req)
	if tenantID == 0 {
		d.logger.Debug("delivery for unresolved tenant accepted and dropped")
		d.count(ctx, "botflow_inbound_dropped", "unresolved_tenant")
		return accepted(tenantID, 0, 0), nil
	}

	messages, ok := d.decode(req)
	if !ok {
		d.count(ctx, "botflow_inbound_dropped", "malformed_payload")
		return accepted(tenantID, 0, 0), nil
	}

	processed, dropped := 0, 0
	for _, message := range messages {
		if d.dedupe != nil && !d.dedupe.Claim(message.ID) {
			d.logger.Debug("duplicate delivery dropped",
				"tenant_id", tenantID,
				"message_id", message.ID,
			)
			d.count(ctx, "botflow_inbound_dropped", "duplicate")
			dropped++
			continue
		}
		event, err := d.buildEvent(ctx, tenantID, message)
		if err != nil {
			d.logger.Error("conversation resolution failed, dropping message",
				"tenant_id", tenantID,
				"phone", message.From,
				"error", err,
			)
			d.count(ctx, "botflow_inbound_dropped", "resolve_failed")
			dropped++
			continue
		}
		if err := d.router.Route(ctx, event); err != nil {
			d.logger.Error("flow handler failed",
				"tenant_id", tenantID,
				"conversation_id", event.ConversationID,
				"error", inboundWrapError(
					err,
					goerrors.CategoryOperation,
					"inbound: flow handler failed",
					http.StatusBadGateway,
					core.FlowErrorInternal,
					map[string]any{"tenant_id": tenantID, "conversation_id": event.ConversationID},
				),
			)
			d.count(ctx, "botflow_inbound_dropped", "handler_failed")
			dropped++
			continue
		}
		processed++
	}
	d.metrics.Counter(ctx, "botflow_inbound_processed", int64(processed), map[string]string{
		"tenant_id": strconv.FormatInt(tenantID, 10),
	})
	return accepted(tenantID, processed, dropped), nil
}

// DispatchHTTP adapts a raw http request, keeping its body readable for any
// downstream middleware.
func (d *Dispatcher) DispatchHTTP(r *http.Request) (Result, error) {
	if r == nil {
		return Result{}, inboundInternal("inbound: http request is nil", nil)
	}
	return d.Dispatch(r.Context(), tenant.FromHTTP(r))
}

type inboundMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text"`
}

type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (d *Dispatcher) decode(req *tenant.Request) ([]inboundMessage, bool) {
	if req.Body == nil {
		return nil, false
	}
	raw, err := io.ReadAll(req.Body)
	if err != nil || len(raw) == 0 {
		return nil, false
	}

	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		d.logger.Error("malformed webhook payload dropped", "error", err)
		return nil, false
	}

	var messages []inboundMessage
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, message := range change.Value.Messages {
				if strings.TrimSpace(message.From) == "" {
					continue
				}
				messages = append(messages, message)
			}
		}
	}
	return messages, true
}

func (d *Dispatcher) buildEvent(ctx context.Context, tenantID int64, message inboundMessage) (core.InboundEvent, error) {
	phone := normalizePhone(message.From)
	ref, err := d.contacts.Resolve(ctx, tenantID, phone)
	if err != nil {
		return core.InboundEvent{}, err
	}

	messageType := strings.TrimSpace(strings.ToLower(message.Type))
	if messageType == "" {
		messageType = core.MessageTypeText
	}
	return core.InboundEvent{
		TenantID:       tenantID,
		ContactID:      ref.ContactID,
		ConversationID: ref.ConversationID,
		Phone:          phone,
		MessageType:    messageType,
		MessageText:    message.Text.Body,
		ReceivedAt:     d.receivedAt(message.Timestamp),
		JustCreated:    ref.JustCreated,
	}, nil
}

// receivedAt parses the provider's unix-seconds timestamp, falling back to
// the wall clock.
func (d *Dispatcher) receivedAt(timestamp string) time.Time {
	if seconds, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64); err == nil && seconds > 0 {
		return time.Unix(seconds, 0).UTC()
	}
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func normalizePhone(from string) string {
	trimmed := strings.TrimSpace(from)
	if trimmed == "" || strings.HasPrefix(trimmed, "+") {
		return trimmed
	}
	return "+" + trimmed
}

func (d *Dispatcher) count(ctx context.Context, name string, reason string) {
	d.metrics.Counter(ctx, name, 1, map[string]string{"reason": reason})
}

func accepted(tenantID int64, processed int, dropped int) Result {
	return Result{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Metadata: map[string]any{
			"tenant_id": tenantID,
			"processed": processed,
			"dropped":   dropped,
		},
	}
}
