package flow

import (
	"sync"
	"time"

	"github.com/goliatone/go-botflow/core"
)

// State is the mutable per-conversation position inside a flow. It is only
// ever touched from inside StateTable.Do.
type State struct {
	Stage          core.Stage
	CurrentService string
}

type stateEntry struct {
	state    State
	tail     chan struct{}
	pending  int
	lastSeen time.Time
}

// StateTable holds one State per conversation id and serializes access to
// it. Turns for the same conversation run strictly one at a time, in the
// order Do was called; turns for different conversations run concurrently.
type StateTable struct {
	mu      sync.Mutex
	entries map[int64]*stateEntry
	ttl     time.Duration
	Now     func() time.Time
}

// NewStateTable builds a table with the given retention. A zero ttl keeps
// state for the process lifetime and makes Sweep a no-op.
func NewStateTable(ttl time.Duration) *StateTable {
	return &StateTable{
		entries: map[int64]*stateEntry{},
		ttl:     ttl,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Do runs fn against the conversation's state, creating it at StageMenu on
// first sight. Do blocks until every earlier turn queued for the same
// conversation has finished, then until fn returns.
func (t *StateTable) Do(conversationID int64, fn func(state *State)) {
	if t == nil || fn == nil {
		return
	}

	t.mu.Lock()
	entry, ok := t.entries[conversationID]
	if !ok {
		entry = &stateEntry{state: State{Stage: core.StageMenu}}
		t.entries[conversationID] = entry
	}
	previous := entry.tail
	ticket := make(chan struct{})
	entry.tail = ticket
	entry.pending++
	t.mu.Unlock()

	if previous != nil {
		<-previous
	}
	fn(&entry.state)

	t.mu.Lock()
	entry.pending--
	entry.lastSeen = t.now()
	t.mu.Unlock()
	close(ticket)
}

// Peek returns a copy of the conversation's state without queueing a turn.
func (t *StateTable) Peek(conversationID int64) (State, bool) {
	if t == nil {
		return State{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[conversationID]
	if !ok {
		return State{}, false
	}
	return entry.state, true
}

// Len reports the number of tracked conversations.
func (t *StateTable) Len() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Sweep evicts idle conversations whose last turn finished more than ttl ago
// and reports how many were dropped. Conversations with queued or running
// turns are never evicted.
func (t *StateTable) Sweep(now time.Time) int {
	if t == nil || t.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-t.ttl)

	t.mu.Lock()
	defer t.mu.Unlock()
	evicted := 0
	for conversationID, entry := range t.entries {
		if entry.pending > 0 || entry.lastSeen.IsZero() {
			continue
		}
		if entry.lastSeen.Before(cutoff) {
			delete(t.entries, conversationID)
			evicted++
		}
	}
	return evicted
}

func (t *StateTable) now() time.Time {
	if t != nil && t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}
