package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryIntegrationStore holds line-id bindings in process memory. Useful
// for tests and single-node setups without a SQL backend.
type MemoryIntegrationStore struct {
	mu           sync.RWMutex
	integrations map[string]Integration
}

func NewMemoryIntegrationStore(integrations ...Integration) *MemoryIntegrationStore {
	store := &MemoryIntegrationStore{integrations: map[string]Integration{}}
	for _, integration := range integrations {
		store.Put(integration)
	}
	return store
}

func (s *MemoryIntegrationStore) Put(integration Integration) {
	lineID := strings.TrimSpace(integration.LineID)
	if lineID == "" {
		return
	}
	s.mu.Lock()
	s.integrations[lineID] = integration
	s.mu.Unlock()
}

func (s *MemoryIntegrationStore) FindByLineID(_ context.Context, lineID string) (Integration, bool, error) {
	if s == nil {
		return Integration{}, false, fmt.Errorf("core: integration store is nil")
	}
	s.mu.RLock()
	integration, ok := s.integrations[strings.TrimSpace(lineID)]
	s.mu.RUnlock()
	return integration, ok, nil
}

// MemoryConversationStore keeps conversation snapshots keyed by
// conversation id.
type MemoryConversationStore struct {
	mu            sync.RWMutex
	conversations map[int64]ConversationSnapshot
	Now           func() time.Time
}

func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{
		conversations: map[int64]ConversationSnapshot{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *MemoryConversationStore) Put(conversationID int64, snapshot ConversationSnapshot) {
	s.mu.Lock()
	s.conversations[conversationID] = snapshot
	s.mu.Unlock()
}

func (s *MemoryConversationStore) Find(_ context.Context, conversationID int64) (ConversationSnapshot, bool, error) {
	if s == nil {
		return ConversationSnapshot{}, false, fmt.Errorf("core: conversation store is nil")
	}
	s.mu.RLock()
	snapshot, ok := s.conversations[conversationID]
	s.mu.RUnlock()
	return snapshot, ok, nil
}

// MarkAgentRequested stamps agent_requested_at once; repeat calls keep the
// original timestamp.
func (s *MemoryConversationStore) MarkAgentRequested(_ context.Context, conversationID int64) error {
	if s == nil {
		return fmt.Errorf("core: conversation store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.conversations[conversationID]
	if snapshot.AgentRequestedAt == nil {
		now := s.now()
		snapshot.AgentRequestedAt = &now
	}
	if strings.TrimSpace(snapshot.Status) == "" {
		snapshot.Status = "open"
	}
	s.conversations[conversationID] = snapshot
	return nil
}

func (s *MemoryConversationStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// MemoryTemplateStore keys templates by tenant id and normalized name.
type MemoryTemplateStore struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewMemoryTemplateStore() *MemoryTemplateStore {
	return &MemoryTemplateStore{templates: map[string]Template{}}
}

func (s *MemoryTemplateStore) Put(tenantID int64, template Template) {
	name := strings.TrimSpace(strings.ToLower(template.Name))
	if name == "" {
		return
	}
	s.mu.Lock()
	s.templates[templateKey(tenantID, name)] = template
	s.mu.Unlock()
}

func (s *MemoryTemplateStore) FindActive(_ context.Context, tenantID int64, name string) (Template, bool, error) {
	if s == nil {
		return Template{}, false, fmt.Errorf("core: template store is nil")
	}
	normalized := strings.TrimSpace(strings.ToLower(name))
	s.mu.RLock()
	template, ok := s.templates[templateKey(tenantID, normalized)]
	s.mu.RUnlock()
	return template, ok, nil
}

func templateKey(tenantID int64, name string) string {
	return strconv.FormatInt(tenantID, 10) + "::" + name
}

// MemoryUserStore maps user ids to tenant ids.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[int64]int64
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: map[int64]int64{}}
}

func (s *MemoryUserStore) Put(userID int64, tenantID int64) {
	s.mu.Lock()
	s.users[userID] = tenantID
	s.mu.Unlock()
}

func (s *MemoryUserStore) TenantIDByUserID(_ context.Context, userID int64) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("core: user store is nil")
	}
	s.mu.RLock()
	tenantID, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("core: user not found: %d", userID)
	}
	return tenantID, nil
}

// MemoryTenantFlowStore resolves flow keys from an in-memory map, typically
// seeded from Config.Flows.TenantKeys.
type MemoryTenantFlowStore struct {
	mu   sync.RWMutex
	keys map[int64]string
}

func NewMemoryTenantFlowStore() *MemoryTenantFlowStore {
	return &MemoryTenantFlowStore{keys: map[int64]string{}}
}

// NewMemoryTenantFlowStoreFromConfig parses the tenant_keys config map.
// Entries with non-numeric tenant ids are skipped.
func NewMemoryTenantFlowStoreFromConfig(cfg FlowsConfig) *MemoryTenantFlowStore {
	store := NewMemoryTenantFlowStore()
	for tenant, key := range cfg.TenantKeys {
		tenantID, err := strconv.ParseInt(strings.TrimSpace(tenant), 10, 64)
		if err != nil || tenantID <= 0 {
			continue
		}
		store.Put(tenantID, key)
	}
	return store
}

func (s *MemoryTenantFlowStore) Put(tenantID int64, flowKey string) {
	if tenantID <= 0 {
		return
	}
	s.mu.Lock()
	s.keys[tenantID] = NormalizeFlowKey(flowKey)
	s.mu.Unlock()
}

func (s *MemoryTenantFlowStore) FlowKey(_ context.Context, tenantID int64) (string, error) {
	if s == nil {
		return "", fmt.Errorf("core: tenant flow store is nil")
	}
	s.mu.RLock()
	key := s.keys[tenantID]
	s.mu.RUnlock()
	return key, nil
}

// MemoryConversationResolver assigns sequential contact/conversation ids per
// tenant+phone pair. The first resolution of a pair reports JustCreated.
type MemoryConversationResolver struct {
	mu     sync.Mutex
	refs   map[string]ConversationRef
	nextID int64
}

func NewMemoryConversationResolver() *MemoryConversationResolver {
	return &MemoryConversationResolver{refs: map[string]ConversationRef{}}
}

func (r *MemoryConversationResolver) Resolve(_ context.Context, tenantID int64, phone string) (ConversationRef, error) {
	if r == nil {
		return ConversationRef{}, fmt.Errorf("core: conversation resolver is nil")
	}
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return ConversationRef{}, fmt.Errorf("core: phone is required")
	}
	key := strconv.FormatInt(tenantID, 10) + "::" + trimmed

	r.mu.Lock()
	defer r.mu.Unlock()
	if ref, ok := r.refs[key]; ok {
		ref.JustCreated = false
		return ref, nil
	}
	r.nextID++
	ref := ConversationRef{
		ContactID:      r.nextID,
		ConversationID: r.nextID,
		JustCreated:    true,
	}
	r.refs[key] = ref
	return ref, nil
}
