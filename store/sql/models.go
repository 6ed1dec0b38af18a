package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type integrationRecord struct {
	bun.BaseModel `bun:"table:bf_integrations,alias:bfi"`

	ID        string     `bun:"id,pk"`
	TenantID  int64      `bun:"tenant_id,notnull"`
	Provider  string     `bun:"provider,notnull"`
	LineID    string     `bun:"line_id,notnull"`
	IsActive  bool       `bun:"is_active,notnull"`
	CreatedAt time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete"`
}

type templateRecord struct {
	bun.BaseModel `bun:"table:bf_templates,alias:bft"`

	ID        string    `bun:"id,pk"`
	TenantID  int64     `bun:"tenant_id,notnull"`
	Name      string    `bun:"name,notnull"`
	Language  string    `bun:"language,notnull"`
	IsActive  bool      `bun:"is_active,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type contactRecord struct {
	bun.BaseModel `bun:"table:bf_contacts,alias:bfc"`

	ID        int64     `bun:"id,pk,autoincrement"`
	TenantID  int64     `bun:"tenant_id,notnull"`
	Phone     string    `bun:"phone,notnull"`
	Name      string    `bun:"name"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type conversationRecord struct {
	bun.BaseModel `bun:"table:bf_conversations,alias:bfcv"`

	ID               int64      `bun:"id,pk,autoincrement"`
	TenantID         int64      `bun:"tenant_id,notnull"`
	ContactID        int64      `bun:"contact_id,notnull"`
	Status           string     `bun:"status,notnull"`
	AgentRequestedAt *time.Time `bun:"agent_requested_at,nullzero"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type userRecord struct {
	bun.BaseModel `bun:"table:bf_users,alias:bfu"`

	ID        int64     `bun:"id,pk,autoincrement"`
	TenantID  int64     `bun:"tenant_id,notnull"`
	Email     string    `bun:"email,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type tenantFlowRecord struct {
	bun.BaseModel `bun:"table:bf_tenant_flows,alias:bftf"`

	TenantID  int64     `bun:"tenant_id,pk"`
	FlowKey   string    `bun:"flow_key,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
