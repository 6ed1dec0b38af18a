package inbound

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-botflow/core"
	"github.com/goliatone/go-botflow/flow"
	"github.com/goliatone/go-botflow/tenant"
)

const deliveryBody = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"id": "100200300",
		"changes": [{
			"field": "messages",
			"value": {
				"metadata": {"phone_number_id": "line-777"},
				"messages": [{
					"from": "5215598765432",
					"id": "wamid.abc",
					"timestamp": "1767225600",
					"type": "text",
					"text": {"body": "hola"}
				}]
			}
		}]
	}]
}`

type capturingFlow struct {
	mu     sync.Mutex
	events []core.InboundEvent
	err    error
}

func (f *capturingFlow) Key() string { return "agency" }

func (f *capturingFlow) Handle(_ context.Context, event core.InboundEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

type dispatcherFixture struct {
	dispatcher *Dispatcher
	handler    *capturingFlow
}

func newDispatcherFixture(t *testing.T) dispatcherFixture {
	t.Helper()

	integrations := core.NewMemoryIntegrationStore(core.Integration{
		TenantID: 4,
		LineID:   "line-777",
		IsActive: true,
	})
	resolver := tenant.NewResolver(integrations, core.NewMemoryUserStore())

	registry := core.NewFlowRegistry()
	handler := &capturingFlow{}
	if err := registry.Register(handler); err != nil {
		t.Fatalf("register flow: %v", err)
	}
	tenantFlows := core.NewMemoryTenantFlowStore()
	tenantFlows.Put(4, "agency")

	router := flow.NewRouter(tenantFlows, registry)
	return dispatcherFixture{
		dispatcher: NewDispatcher(resolver, core.NewMemoryConversationResolver(), router),
		handler:    handler,
	}
}

func deliveryRequest(body string) *tenant.Request {
	return &tenant.Request{
		Path: "/webhooks/whatsapp",
		Body: io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func TestDispatcher_RoutesWebhookMessage(t *testing.T) {
	fx := newDispatcherFixture(t)

	result, err := fx.dispatcher.Dispatch(context.Background(), deliveryRequest(deliveryBody))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !result.Accepted || result.Metadata["processed"] != 1 {
		t.Fatalf("expected one processed message, got %+v", result)
	}

	fx.handler.mu.Lock()
	defer fx.handler.mu.Unlock()
	if len(fx.handler.events) != 1 {
		t.Fatalf("expected one routed event, got %d", len(fx.handler.events))
	}
	event := fx.handler.events[0]
	if event.TenantID != 4 {
		t.Fatalf("expected tenant 4, got %d", event.TenantID)
	}
	if event.Phone != "+5215598765432" {
		t.Fatalf("expected normalized phone, got %q", event.Phone)
	}
	if event.MessageText != "hola" || event.MessageType != core.MessageTypeText {
		t.Fatalf("unexpected message content: %+v", event)
	}
	if !event.JustCreated {
		t.Fatalf("expected first message to create the conversation")
	}
	if !event.ReceivedAt.Equal(time.Unix(1767225600, 0).UTC()) {
		t.Fatalf("expected provider timestamp, got %v", event.ReceivedAt)
	}
}

func TestDispatcher_SecondMessageReusesConversation(t *testing.T) {
	fx := newDispatcherFixture(t)
	ctx := context.Background()

	if _, err := fx.dispatcher.Dispatch(ctx, deliveryRequest(deliveryBody)); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if _, err := fx.dispatcher.Dispatch(ctx, deliveryRequest(deliveryBody)); err != nil {
		t.Fatalf("second dispatch: %v", err)
	}

	fx.handler.mu.Lock()
	defer fx.handler.mu.Unlock()
	if len(fx.handler.events) != 2 {
		t.Fatalf("expected two routed events, got %d", len(fx.handler.events))
	}
	if fx.handler.events[1].JustCreated {
		t.Fatalf("expected repeat message to reuse the conversation")
	}
	if fx.handler.events[0].ConversationID != fx.handler.events[1].ConversationID {
		t.Fatalf("expected stable conversation id")
	}
}

func TestDispatcher_UnresolvedTenantAcceptedAndDropped(t *testing.T) {
	fx := newDispatcherFixture(t)

	body := `{"entry": [{"changes": [{"value": {"metadata": {"phone_number_id": "unknown-line"}, "messages": [{"from": "5215598765432", "type": "text", "text": {"body": "hola"}}]}}]}]}`
	result, err := fx.dispatcher.Dispatch(context.Background(), deliveryRequest(body))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !result.Accepted || result.Metadata["tenant_id"] != int64(0) {
		t.Fatalf("expected accepted no-op for unresolved tenant, got %+v", result)
	}

	fx.handler.mu.Lock()
	defer fx.handler.mu.Unlock()
	if len(fx.handler.events) != 0 {
		t.Fatalf("expected no routed events, got %d", len(fx.handler.events))
	}
}

func TestDispatcher_MalformedPayloadAccepted(t *testing.T) {
	fx := newDispatcherFixture(t)

	req := deliveryRequest(`{"entry": [`)
	req.Headers = map[string]string{"X-Botflow-Tenant": "4"}
	result, err := fx.dispatcher.Dispatch(context.Background(), req)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !result.Accepted || result.Metadata["processed"] != 0 {
		t.Fatalf("expected accepted drop, got %+v", result)
	}
}

func TestDispatcher_HandlerFailureCountsAsDropped(t *testing.T) {
	fx := newDispatcherFixture(t)
	fx.handler.err = fmt.Errorf("flow: handler exploded")

	result, err := fx.dispatcher.Dispatch(context.Background(), deliveryRequest(deliveryBody))
	if err != nil {
		t.Fatalf("expected delivery to stay accepted, got %v", err)
	}
	if result.Metadata["dropped"] != 1 || result.Metadata["processed"] != 0 {
		t.Fatalf("expected one dropped message, got %+v", result)
	}
}
