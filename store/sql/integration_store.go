package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-botflow/core"
)

// IntegrationStore persists provider line bindings. Lookups only consider
// non-deleted rows; the caller decides what an inactive binding means.
type IntegrationStore struct {
	db   *bun.DB
	repo repository.Repository[*integrationRecord]
}

func (s *IntegrationStore) Create(ctx context.Context, integration core.Integration) (core.Integration, error) {
	if s == nil || s.repo == nil {
		return core.Integration{}, fmt.Errorf("sqlstore: integration store is not configured")
	}
	lineID := strings.TrimSpace(integration.LineID)
	if lineID == "" {
		return core.Integration{}, fmt.Errorf("sqlstore: line id is required")
	}
	if integration.TenantID <= 0 {
		return core.Integration{}, fmt.Errorf("sqlstore: tenant id is required")
	}

	id := strings.TrimSpace(integration.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	record := &integrationRecord{
		ID:        id,
		TenantID:  integration.TenantID,
		Provider:  "whatsapp",
		LineID:    lineID,
		IsActive:  integration.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Integration{}, err
	}
	return created.toDomain(), nil
}

func (s *IntegrationStore) FindByLineID(ctx context.Context, lineID string) (core.Integration, bool, error) {
	if s == nil || s.repo == nil {
		return core.Integration{}, false, fmt.Errorf("sqlstore: integration store is not configured")
	}
	trimmed := strings.TrimSpace(lineID)
	if trimmed == "" {
		return core.Integration{}, false, nil
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("line_id", "=", trimmed),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.deleted_at IS NULL")
		}),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return core.Integration{}, false, err
	}
	if len(records) == 0 {
		return core.Integration{}, false, nil
	}
	return records[0].toDomain(), true, nil
}

// Deactivate soft-disables the binding so new deliveries stop resolving to
// its tenant.
func (s *IntegrationStore) Deactivate(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: integration store is not configured")
	}
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return fmt.Errorf("sqlstore: integration id is required")
	}
	_, err := s.db.NewUpdate().
		Model((*integrationRecord)(nil)).
		Set("is_active = ?", false).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", trimmed).
		Exec(ctx)
	return err
}

func (r *integrationRecord) toDomain() core.Integration {
	if r == nil {
		return core.Integration{}
	}
	return core.Integration{
		ID:       r.ID,
		TenantID: r.TenantID,
		LineID:   r.LineID,
		IsActive: r.IsActive,
	}
}
