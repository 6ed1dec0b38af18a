package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// MessageGateway is the outbound transport for tenant replies. Both calls
// block until the provider answers; failures surface either as a transport
// error or as SendResult.Success=false with the provider text in Message.
type MessageGateway interface {
	SendText(ctx context.Context, phone string, body string) (SendResult, error)
	SendTemplate(ctx context.Context, phone string, send TemplateSend) (SendResult, error)
}

// TemplateStore looks up the active template registered for a tenant under a
// given name. found=false is not an error.
type TemplateStore interface {
	FindActive(ctx context.Context, tenantID int64, name string) (Template, bool, error)
}

// ConversationStore exposes the conversation rows this core reads and the
// single mutation it performs.
type ConversationStore interface {
	Find(ctx context.Context, conversationID int64) (ConversationSnapshot, bool, error)
	MarkAgentRequested(ctx context.Context, conversationID int64) error
}

// IntegrationStore resolves provider line identifiers to owning tenants.
type IntegrationStore interface {
	FindByLineID(ctx context.Context, lineID string) (Integration, bool, error)
}

// UserStore resolves an authenticated user's tenant when the credential
// carries no tenant claim.
type UserStore interface {
	TenantIDByUserID(ctx context.Context, userID int64) (int64, error)
}

// TenantFlowStore yields the flow key configured for a tenant. A blank key
// means the tenant has no bot flow and routing becomes a no-op.
type TenantFlowStore interface {
	FlowKey(ctx context.Context, tenantID int64) (string, error)
}

// ConversationResolver maps an inbound phone number to the tenant-scoped
// contact/conversation pair, creating both on first sight.
type ConversationResolver interface {
	Resolve(ctx context.Context, tenantID int64, phone string) (ConversationRef, error)
}

// ConversationFlow is one tenant behavior: a deterministic script mapping
// normalized text to stage transitions and outbound sends. Handle absorbs
// its own recoverable failures; only unrecoverable errors escape.
type ConversationFlow interface {
	Key() string
	Handle(ctx context.Context, event InboundEvent) error
}

// HandoffArbitrator reports whether a human agent currently owns the
// conversation. Implementations fail open: a lookup error reads as false.
type HandoffArbitrator interface {
	Active(ctx context.Context, conversationID int64) bool
}

type MetricsRecorder interface {
	Counter(ctx context.Context, name string, value int64, tags map[string]string)
	Histogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) Counter(context.Context, string, int64, map[string]string)     {}
func (NopMetricsRecorder) Histogram(context.Context, string, float64, map[string]string) {}
