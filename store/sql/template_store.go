package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-botflow/core"
)

// TemplateStore persists the approved outbound templates per tenant.
// Template names compare case-insensitively.
type TemplateStore struct {
	db   *bun.DB
	repo repository.Repository[*templateRecord]
}

func (s *TemplateStore) Upsert(ctx context.Context, tenantID int64, template core.Template) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: template store is not configured")
	}
	name := strings.TrimSpace(strings.ToLower(template.Name))
	if name == "" {
		return fmt.Errorf("sqlstore: template name is required")
	}
	if tenantID <= 0 {
		return fmt.Errorf("sqlstore: tenant id is required")
	}

	now := time.Now().UTC()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := &templateRecord{}
		err := tx.NewSelect().
			Model(existing).
			Where("tenant_id = ?", tenantID).
			Where("LOWER(name) = ?", name).
			Limit(1).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if errors.Is(err, sql.ErrNoRows) {
			record := &templateRecord{
				ID:        uuid.NewString(),
				TenantID:  tenantID,
				Name:      name,
				Language:  strings.TrimSpace(template.Language),
				IsActive:  true,
				CreatedAt: now,
				UpdatedAt: now,
			}
			_, insertErr := tx.NewInsert().Model(record).Exec(ctx)
			return insertErr
		}

		existing.Language = strings.TrimSpace(template.Language)
		existing.IsActive = true
		existing.UpdatedAt = now
		_, updateErr := tx.NewUpdate().
			Model(existing).
			Where("id = ?", existing.ID).
			Exec(ctx)
		return updateErr
	})
}

func (s *TemplateStore) FindActive(ctx context.Context, tenantID int64, name string) (core.Template, bool, error) {
	if s == nil || s.repo == nil {
		return core.Template{}, false, fmt.Errorf("sqlstore: template store is not configured")
	}
	normalized := strings.TrimSpace(strings.ToLower(name))
	if normalized == "" || tenantID <= 0 {
		return core.Template{}, false, nil
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("tenant_id", "=", strconv.FormatInt(tenantID, 10)),
		repository.SelectBy("is_active", "=", "true"),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(?TableAlias.name) = ?", normalized)
		}),
	)
	if err != nil {
		return core.Template{}, false, err
	}
	if len(records) == 0 {
		return core.Template{}, false, nil
	}
	record := records[0]
	return core.Template{Name: record.Name, Language: record.Language}, true, nil
}
