package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-botflow/core"
)

// TenantFlowStore binds tenants to flow keys. A missing row reads as a
// blank key, which makes routing a no-op for that tenant.
type TenantFlowStore struct {
	db *bun.DB
}

func NewTenantFlowStore(db *bun.DB) (*TenantFlowStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &TenantFlowStore{db: db}, nil
}

func (s *TenantFlowStore) Assign(ctx context.Context, tenantID int64, flowKey string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: tenant flow store is not configured")
	}
	if tenantID <= 0 {
		return fmt.Errorf("sqlstore: tenant id is required")
	}
	normalized := core.NormalizeFlowKey(flowKey)
	if normalized == "" {
		return fmt.Errorf("sqlstore: flow key is required")
	}

	now := time.Now().UTC()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := &tenantFlowRecord{}
		err := tx.NewSelect().
			Model(existing).
			Where("tenant_id = ?", tenantID).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			record := &tenantFlowRecord{
				TenantID:  tenantID,
				FlowKey:   normalized,
				CreatedAt: now,
				UpdatedAt: now,
			}
			_, insertErr := tx.NewInsert().Model(record).Exec(ctx)
			return insertErr
		}

		existing.FlowKey = normalized
		existing.UpdatedAt = now
		_, updateErr := tx.NewUpdate().
			Model(existing).
			Where("tenant_id = ?", tenantID).
			Exec(ctx)
		return updateErr
	})
}

func (s *TenantFlowStore) FlowKey(ctx context.Context, tenantID int64) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("sqlstore: tenant flow store is not configured")
	}
	if tenantID <= 0 {
		return "", nil
	}
	record := &tenantFlowRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return core.NormalizeFlowKey(record.FlowKey), nil
}
