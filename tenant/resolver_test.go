package tenant

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-botflow/core"
)

const webhookBody = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"id": "100200300",
		"changes": [{
			"field": "messages",
			"value": {
				"metadata": {"display_phone_number": "5215512345678", "phone_number_id": "line-777"},
				"messages": [{"from": "5215598765432", "type": "text", "text": {"body": "hola"}}]
			}
		}]
	}]
}`

func newTestResolver() (*Resolver, *core.MemoryIntegrationStore, *core.MemoryUserStore) {
	integrations := core.NewMemoryIntegrationStore(core.Integration{
		ID:       "int-1",
		TenantID: 4,
		LineID:   "line-777",
		IsActive: true,
	})
	users := core.NewMemoryUserStore()
	users.Put(11, 9)
	return NewResolver(integrations, users), integrations, users
}

func webhookRequest(body string) *Request {
	return &Request{
		Path: "/webhooks/whatsapp",
		Body: io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func TestResolver_OverrideHeaderWins(t *testing.T) {
	resolver, _, _ := newTestResolver()

	req := webhookRequest(webhookBody)
	req.Headers = map[string]string{"x-botflow-tenant": "42"}

	ctx, tenantID := resolver.Resolve(context.Background(), req)
	if tenantID != 42 {
		t.Fatalf("expected override header to win, got %d", tenantID)
	}
	if fromCtx, ok := TenantID(ctx); !ok || fromCtx != 42 {
		t.Fatalf("expected context to carry 42, got %d ok=%v", fromCtx, ok)
	}
	if req.Locals[LocalsKey] != int64(42) {
		t.Fatalf("expected locals to carry 42, got %v", req.Locals[LocalsKey])
	}
}

func TestResolver_WebhookNestedLineID(t *testing.T) {
	resolver, _, _ := newTestResolver()

	req := webhookRequest(webhookBody)
	_, tenantID := resolver.Resolve(context.Background(), req)
	if tenantID != 4 {
		t.Fatalf("expected integration tenant, got %d", tenantID)
	}

	restored, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read restored body: %v", err)
	}
	if string(restored) != webhookBody {
		t.Fatalf("expected body to be readable after resolution")
	}
}

func TestResolver_WebhookFlatLineIDFallback(t *testing.T) {
	resolver, _, _ := newTestResolver()

	req := webhookRequest(`{"event": "message", "payload": {"phone_number_id": "line-777"}}`)
	_, tenantID := resolver.Resolve(context.Background(), req)
	if tenantID != 4 {
		t.Fatalf("expected depth-first fallback to find the line id, got %d", tenantID)
	}
}

func TestResolver_WebhookInactiveIntegrationUnresolved(t *testing.T) {
	integrations := core.NewMemoryIntegrationStore(core.Integration{
		TenantID: 4,
		LineID:   "line-777",
		IsActive: false,
	})
	resolver := NewResolver(integrations, core.NewMemoryUserStore())

	_, tenantID := resolver.Resolve(context.Background(), webhookRequest(webhookBody))
	if tenantID != 0 {
		t.Fatalf("expected inactive integration to stay unresolved, got %d", tenantID)
	}
}

func TestResolver_MalformedWebhookBodyUnresolved(t *testing.T) {
	resolver, _, _ := newTestResolver()

	req := webhookRequest(`{"entry": [`)
	_, tenantID := resolver.Resolve(context.Background(), req)
	if tenantID != 0 {
		t.Fatalf("expected malformed body to stay unresolved, got %d", tenantID)
	}
	if req.Locals[LocalsKey] != int64(0) {
		t.Fatalf("expected unresolved id to still be published, got %v", req.Locals[LocalsKey])
	}
}

func TestResolver_ClaimsTenantID(t *testing.T) {
	resolver, _, _ := newTestResolver()

	_, tenantID := resolver.Resolve(context.Background(), &Request{
		Path:   "/api/conversations",
		Claims: map[string]any{"tenant_id": float64(6), "sub": float64(11)},
	})
	if tenantID != 6 {
		t.Fatalf("expected tenant claim to win, got %d", tenantID)
	}
}

func TestResolver_ClaimsUserLookupFallback(t *testing.T) {
	resolver, _, _ := newTestResolver()

	_, tenantID := resolver.Resolve(context.Background(), &Request{
		Path:   "/api/conversations",
		Claims: map[string]any{"sub": "11"},
	})
	if tenantID != 9 {
		t.Fatalf("expected user record tenant, got %d", tenantID)
	}
}

func TestResolver_UnknownUserUnresolved(t *testing.T) {
	resolver, _, _ := newTestResolver()

	_, tenantID := resolver.Resolve(context.Background(), &Request{
		Path:   "/api/conversations",
		Claims: map[string]any{"sub": "999"},
	})
	if tenantID != 0 {
		t.Fatalf("expected unknown user to stay unresolved, got %d", tenantID)
	}
}

func TestResolver_FromHTTPRestoresRequestBody(t *testing.T) {
	resolver, _, _ := newTestResolver()

	httpReq := httptest.NewRequest("POST", "/webhooks/whatsapp", bytes.NewReader([]byte(webhookBody)))
	req := FromHTTP(httpReq)

	_, tenantID := resolver.Resolve(context.Background(), req)
	if tenantID != 4 {
		t.Fatalf("expected webhook resolution via http request, got %d", tenantID)
	}

	restored, err := io.ReadAll(httpReq.Body)
	if err != nil {
		t.Fatalf("read http body: %v", err)
	}
	if string(restored) != webhookBody {
		t.Fatalf("expected the http request body to be restored")
	}
}

func TestResolver_OversizedWebhookBodyStaysIntact(t *testing.T) {
	integrations := core.NewMemoryIntegrationStore(core.Integration{
		TenantID: 4,
		LineID:   "line-777",
		IsActive: true,
	})
	resolver := NewResolver(integrations, core.NewMemoryUserStore(), WithMaxBodyBytes(64))

	req := webhookRequest(webhookBody)
	_, tenantID := resolver.Resolve(context.Background(), req)
	if tenantID != 0 {
		t.Fatalf("expected body over the parse limit to stay unresolved, got %d", tenantID)
	}

	restored, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read restored body: %v", err)
	}
	if string(restored) != webhookBody {
		t.Fatalf("expected the full body downstream, got %d of %d bytes", len(restored), len(webhookBody))
	}
}

func TestResolver_LoggerProviderSupplied(t *testing.T) {
	logger := &recordingLogger{}
	resolver := NewResolver(
		core.NewMemoryIntegrationStore(),
		core.NewMemoryUserStore(),
		WithLoggerProvider(recordingProvider{logger: logger}),
	)

	resolver.Resolve(context.Background(), &Request{
		Path:    "/api/conversations",
		Headers: map[string]string{DefaultOverrideHeader: "not-a-number"},
	})
	if len(logger.debugs) == 0 {
		t.Fatalf("expected the provider supplied logger to receive the debug line")
	}
}

type recordingProvider struct {
	logger core.Logger
}

func (p recordingProvider) GetLogger(string) core.Logger { return p.logger }

type recordingLogger struct {
	debugs []string
}

func (l *recordingLogger) Trace(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Warn(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Fatal(string, ...any) {}

func (l *recordingLogger) Debug(msg string, _ ...any) {
	l.debugs = append(l.debugs, msg)
}

func (l *recordingLogger) WithContext(context.Context) core.Logger { return l }

func TestResolver_WebhookPathNeverConsultsClaims(t *testing.T) {
	resolver, _, _ := newTestResolver()

	req := webhookRequest(`{}`)
	req.Claims = map[string]any{"tenant_id": float64(6)}
	_, tenantID := resolver.Resolve(context.Background(), req)
	if tenantID != 0 {
		t.Fatalf("expected webhook path to ignore claims, got %d", tenantID)
	}
}
