package core

import (
	"fmt"
	"sort"
	"sync"
)

// FlowRegistry maps flow keys to conversation flows. Keys are unique
// case-insensitively; the registry is populated during startup and read-only
// afterwards.
type FlowRegistry struct {
	mu    sync.RWMutex
	flows map[string]ConversationFlow
}

func NewFlowRegistry() *FlowRegistry {
	return &FlowRegistry{flows: make(map[string]ConversationFlow)}
}

func (r *FlowRegistry) Register(flow ConversationFlow) error {
	if flow == nil {
		return fmt.Errorf("core: flow is nil")
	}
	key := NormalizeFlowKey(flow.Key())
	if key == "" {
		return fmt.Errorf("core: flow key is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.flows[key]; exists {
		return fmt.Errorf("core: flow already registered: %s", key)
	}
	r.flows[key] = flow
	return nil
}

func (r *FlowRegistry) Get(key string) (ConversationFlow, bool) {
	normalized := NormalizeFlowKey(key)
	if normalized == "" {
		return nil, false
	}
	r.mu.RLock()
	flow, ok := r.flows[normalized]
	r.mu.RUnlock()
	return flow, ok
}

func (r *FlowRegistry) List() []ConversationFlow {
	r.mu.RLock()
	keys := make([]string, 0, len(r.flows))
	for key := range r.flows {
		keys = append(keys, key)
	}
	r.mu.RUnlock()
	sort.Strings(keys)

	flows := make([]ConversationFlow, 0, len(keys))
	r.mu.RLock()
	for _, key := range keys {
		flows = append(flows, r.flows[key])
	}
	r.mu.RUnlock()
	return flows
}
