package core

import (
	"strings"
	"time"
)

// Stage is the position of one conversation inside its flow's state machine.
type Stage string

const (
	StageMenu         Stage = "menu"
	StageServicesMenu Stage = "services_menu"
	StageAwaitYesNo   Stage = "await_yes_no"
)

// MessageTypeText is the only message type the built-in flows act on.
// Other types pass through and land in the unrecognized branches.
const MessageTypeText = "text"

// InboundEvent is one inbound message after tenant resolution. Constructed
// once per delivery and never mutated afterwards.
type InboundEvent struct {
	TenantID       int64
	ContactID      int64
	ConversationID int64
	Phone          string
	MessageType    string
	MessageText    string
	ReceivedAt     time.Time
	JustCreated    bool
}

// ConversationSnapshot is the read-only view of a conversation row used by
// handoff arbitration. A blank Status is treated as "open".
type ConversationSnapshot struct {
	Status           string
	AgentRequestedAt *time.Time
}

// ConversationRef identifies the contact/conversation pair an inbound phone
// number maps to. JustCreated is true only on the delivery that created the
// conversation.
type ConversationRef struct {
	ContactID      int64
	ConversationID int64
	JustCreated    bool
}

// Integration binds a provider line identifier (e.g. a WhatsApp phone number
// id) to the tenant that owns it.
type Integration struct {
	ID       string
	TenantID int64
	LineID   string
	IsActive bool
}

// Template names an approved outbound message template for a tenant.
type Template struct {
	Name     string
	Language string
}

// LocationPayload is the optional location header attached to a template
// send.
type LocationPayload struct {
	Latitude  float64
	Longitude float64
	Name      string
	Address   string
}

// TemplateSend carries everything the gateway needs for one template send.
type TemplateSend struct {
	Name     string
	Language string
	BodyVars []string
	Location *LocationPayload
}

// SendResult reports the outcome of one outbound send. Message carries the
// provider message id on success and the upstream error text on failure.
type SendResult struct {
	Success bool
	Message string
}

// HandoffStatus is the query-facing view of a conversation's handoff state.
type HandoffStatus struct {
	Active           bool
	Status           string
	AgentRequestedAt *time.Time
}

// NormalizeFlowKey is the canonical form used for registry and router
// lookups: flow keys compare case-insensitively.
func NormalizeFlowKey(key string) string {
	return strings.TrimSpace(strings.ToLower(key))
}
