// Package tenant derives the owning tenant for inbound requests from one of
// three signal sources: a trusted override header, a webhook body's line
// identifier, or the caller's credential claims.
package tenant

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-botflow/core"
)

const (
	// DefaultOverrideHeader short-circuits resolution with an explicit
	// tenant id. Only trusted edges may set it.
	DefaultOverrideHeader = "X-Botflow-Tenant"

	// DefaultWebhookPathPrefix marks inbound provider deliveries.
	DefaultWebhookPathPrefix = "/webhooks"

	// DefaultMaxBodyBytes bounds how large a webhook body resolution will
	// parse. Larger bodies stay intact for downstream readers but resolve
	// to tenant 0.
	DefaultMaxBodyBytes = 1 << 20

	lineIDField   = "phone_number_id"
	claimTenantID = "tenant_id"
	claimSubject  = "sub"
)

// Request is the transport-agnostic view of one inbound request. Body is
// replaced with a buffered equivalent after resolution so downstream
// consumers can still read it.
type Request struct {
	Path    string
	Headers map[string]string
	Body    io.ReadCloser
	Claims  map[string]any
	Locals  map[string]any

	restore func(io.ReadCloser)
}

// FromHTTP wraps an http request. Resolution buffers and restores the
// request body in place.
func FromHTTP(r *http.Request) *Request {
	if r == nil {
		return &Request{}
	}
	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}
	return &Request{
		Path:    r.URL.Path,
		Headers: headers,
		Body:    r.Body,
		restore: func(body io.ReadCloser) { r.Body = body },
	}
}

// Resolver assigns tenant ids. It never fails: malformed bodies and lookup
// misses yield the inert tenant id 0.
type Resolver struct {
	integrations core.IntegrationStore
	users        core.UserStore
	logger       core.Logger

	overrideHeader    string
	webhookPathPrefix string
	maxBodyBytes      int64
}

type Option func(*Resolver)

func WithLogger(logger core.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(r *Resolver) { _, r.logger = glog.Resolve("botflow.tenant", provider, r.logger) }
}

func WithOverrideHeader(name string) Option {
	return func(r *Resolver) { r.overrideHeader = name }
}

func WithWebhookPathPrefix(prefix string) Option {
	return func(r *Resolver) { r.webhookPathPrefix = prefix }
}

func WithMaxBodyBytes(limit int64) Option {
	return func(r *Resolver) { r.maxBodyBytes = limit }
}

func NewResolver(integrations core.IntegrationStore, users core.UserStore, options ...Option) *Resolver {
	resolver := &Resolver{
		integrations:      integrations,
		users:             users,
		overrideHeader:    DefaultOverrideHeader,
		webhookPathPrefix: DefaultWebhookPathPrefix,
		maxBodyBytes:      DefaultMaxBodyBytes,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(resolver)
	}
	_, resolver.logger = glog.Resolve("botflow.tenant", nil, resolver.logger)
	if strings.TrimSpace(resolver.overrideHeader) == "" {
		resolver.overrideHeader = DefaultOverrideHeader
	}
	if strings.TrimSpace(resolver.webhookPathPrefix) == "" {
		resolver.webhookPathPrefix = DefaultWebhookPathPrefix
	}
	if resolver.maxBodyBytes <= 0 {
		resolver.maxBodyBytes = DefaultMaxBodyBytes
	}
	return resolver
}

// Resolve derives the tenant id and publishes it to both the returned
// context and the request's Locals bag, including the unresolved value 0.
func (r *Resolver) Resolve(ctx context.Context, req *Request) (context.Context, int64) {
	tenantID := r.derive(ctx, req)

	ctx = WithTenantID(ctx, tenantID)
	if req != nil {
		if req.Locals == nil {
			req.Locals = map[string]any{}
		}
		req.Locals[LocalsKey] = tenantID
	}
	return ctx, tenantID
}

func (r *Resolver) derive(ctx context.Context, req *Request) int64 {
	if r == nil || req == nil {
		return 0
	}
	if tenantID, ok := r.fromOverrideHeader(req); ok {
		return tenantID
	}
	if strings.HasPrefix(req.Path, r.webhookPathPrefix) {
		return r.fromWebhookBody(ctx, req)
	}
	return r.fromClaims(ctx, req)
}

func (r *Resolver) fromOverrideHeader(req *Request) (int64, bool) {
	raw := headerValue(req.Headers, r.overrideHeader)
	if raw == "" {
		return 0, false
	}
	tenantID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || tenantID < 0 {
		r.logger.Debug("ignoring malformed tenant override header", "value", raw)
		return 0, false
	}
	return tenantID, true
}

// fromWebhookBody buffers the whole delivery body, restores it for
// downstream readers and walks the JSON document for the provider line
// identifier. Only the parse is bounded by maxBodyBytes.
func (r *Resolver) fromWebhookBody(ctx context.Context, req *Request) int64 {
	if req.Body == nil || r.integrations == nil {
		return 0
	}

	raw, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if req.restore != nil {
		req.restore(io.NopCloser(bytes.NewReader(raw)))
	}
	if err != nil || len(raw) == 0 {
		return 0
	}
	if int64(len(raw)) > r.maxBodyBytes {
		r.logger.Debug("webhook body exceeds parse limit, tenant unresolved", "bytes", len(raw))
		return 0
	}

	var document any
	if err := json.Unmarshal(raw, &document); err != nil {
		r.logger.Debug("malformed webhook body, tenant unresolved", "error", err)
		return 0
	}

	lineID, ok := nestedLineID(document)
	if !ok {
		lineID, ok = findField(document, lineIDField)
	}
	if !ok || lineID == "" {
		return 0
	}

	integration, found, err := r.integrations.FindByLineID(ctx, lineID)
	if err != nil {
		r.logger.Error("integration lookup failed, tenant unresolved",
			"line_id", lineID,
			"error", err,
		)
		return 0
	}
	if !found || !integration.IsActive {
		return 0
	}
	return integration.TenantID
}

func (r *Resolver) fromClaims(ctx context.Context, req *Request) int64 {
	if len(req.Claims) == 0 {
		return 0
	}
	if tenantID, ok := claimInt64(req.Claims[claimTenantID]); ok && tenantID > 0 {
		return tenantID
	}
	userID, ok := claimInt64(req.Claims[claimSubject])
	if !ok || userID <= 0 || r.users == nil {
		return 0
	}
	tenantID, err := r.users.TenantIDByUserID(ctx, userID)
	if err != nil {
		r.logger.Debug("user tenant lookup failed, tenant unresolved",
			"user_id", userID,
			"error", err,
		)
		return 0
	}
	return tenantID
}

// nestedLineID reads the expected provider location first:
// entry[0].changes[0].value.metadata.phone_number_id.
func nestedLineID(document any) (string, bool) {
	root, ok := document.(map[string]any)
	if !ok {
		return "", false
	}
	entries, ok := root["entry"].([]any)
	if !ok || len(entries) == 0 {
		return "", false
	}
	entry, ok := entries[0].(map[string]any)
	if !ok {
		return "", false
	}
	changes, ok := entry["changes"].([]any)
	if !ok || len(changes) == 0 {
		return "", false
	}
	change, ok := changes[0].(map[string]any)
	if !ok {
		return "", false
	}
	value, ok := change["value"].(map[string]any)
	if !ok {
		return "", false
	}
	metadata, ok := value["metadata"].(map[string]any)
	if !ok {
		return "", false
	}
	lineID := stringValue(metadata[lineIDField])
	return lineID, lineID != ""
}

// findField is the unordered depth-first fallback for documents that do not
// match the expected shape.
func findField(node any, name string) (string, bool) {
	switch value := node.(type) {
	case map[string]any:
		if raw, ok := value[name]; ok {
			if s := stringValue(raw); s != "" {
				return s, true
			}
		}
		for _, child := range value {
			if s, ok := findField(child, name); ok {
				return s, true
			}
		}
	case []any:
		for _, child := range value {
			if s, ok := findField(child, name); ok {
				return s, true
			}
		}
	}
	return "", false
}

func stringValue(raw any) string {
	switch value := raw.(type) {
	case string:
		return strings.TrimSpace(value)
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	return ""
}

func claimInt64(raw any) (int64, bool) {
	switch value := raw.(type) {
	case int64:
		return value, true
	case int:
		return int64(value), true
	case int32:
		return int64(value), true
	case float64:
		return int64(value), true
	case json.Number:
		parsed, err := value.Int64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
