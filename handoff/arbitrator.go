// Package handoff decides whether a human agent currently owns a
// conversation, which suppresses most automated replies.
package handoff

import (
	"context"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-botflow/core"
)

// StatusOpen is the conversation status under which a stamped agent request
// keeps the bot silent. A blank stored status reads as open.
const StatusOpen = "open"

// Arbitrator reads conversation snapshots to answer the handoff question.
// Lookup failures read as not active: the bot keeps responding on transient
// storage errors rather than going dark.
type Arbitrator struct {
	conversations core.ConversationStore
	logger        core.Logger
}

type Option func(*Arbitrator)

func WithLogger(logger core.Logger) Option {
	return func(a *Arbitrator) { a.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(a *Arbitrator) { _, a.logger = glog.Resolve("botflow.handoff", provider, a.logger) }
}

func NewArbitrator(conversations core.ConversationStore, options ...Option) *Arbitrator {
	arbitrator := &Arbitrator{conversations: conversations}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(arbitrator)
	}
	_, arbitrator.logger = glog.Resolve("botflow.handoff", nil, arbitrator.logger)
	return arbitrator
}

// Active reports whether a handoff holds the conversation: status open and
// agent_requested_at stamped.
func (a *Arbitrator) Active(ctx context.Context, conversationID int64) bool {
	if a == nil || a.conversations == nil {
		return false
	}

	snapshot, found, err := a.conversations.Find(ctx, conversationID)
	if err != nil {
		a.logger.Error("conversation lookup failed, treating handoff as inactive",
			"conversation_id", conversationID,
			"error", err,
		)
		return false
	}
	if !found {
		return false
	}
	return snapshotActive(snapshot)
}

// Status returns the full handoff view for one conversation. Unlike Active
// it surfaces lookup errors so read paths can report them.
func (a *Arbitrator) Status(ctx context.Context, conversationID int64) (core.HandoffStatus, error) {
	if a == nil || a.conversations == nil {
		return core.HandoffStatus{}, nil
	}

	snapshot, found, err := a.conversations.Find(ctx, conversationID)
	if err != nil {
		return core.HandoffStatus{}, err
	}
	if !found {
		return core.HandoffStatus{Status: StatusOpen}, nil
	}
	return core.HandoffStatus{
		Active:           snapshotActive(snapshot),
		Status:           normalizeStatus(snapshot.Status),
		AgentRequestedAt: snapshot.AgentRequestedAt,
	}, nil
}

func snapshotActive(snapshot core.ConversationSnapshot) bool {
	return normalizeStatus(snapshot.Status) == StatusOpen && snapshot.AgentRequestedAt != nil
}

func normalizeStatus(status string) string {
	normalized := strings.ToLower(strings.TrimSpace(status))
	if normalized == "" {
		return StatusOpen
	}
	return normalized
}
