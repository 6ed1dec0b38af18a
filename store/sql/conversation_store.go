package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-botflow/core"
)

const conversationStatusOpen = "open"

// ConversationStore reads conversation snapshots and performs the single
// mutation the routing core needs: stamping agent_requested_at.
type ConversationStore struct {
	db  *bun.DB
	Now func() time.Time
}

func NewConversationStore(db *bun.DB) (*ConversationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &ConversationStore{
		db: db,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (s *ConversationStore) Find(ctx context.Context, conversationID int64) (core.ConversationSnapshot, bool, error) {
	if s == nil || s.db == nil {
		return core.ConversationSnapshot{}, false, fmt.Errorf("sqlstore: conversation store is not configured")
	}
	record := &conversationRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("id = ?", conversationID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.ConversationSnapshot{}, false, nil
		}
		return core.ConversationSnapshot{}, false, err
	}

	status := strings.TrimSpace(record.Status)
	if status == "" {
		status = conversationStatusOpen
	}
	return core.ConversationSnapshot{
		Status:           status,
		AgentRequestedAt: record.AgentRequestedAt,
	}, true, nil
}

// MarkAgentRequested stamps the conversation once. The guard lives in the
// WHERE clause so concurrent stamps keep the first timestamp.
func (s *ConversationStore) MarkAgentRequested(ctx context.Context, conversationID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: conversation store is not configured")
	}
	now := s.now()
	_, err := s.db.NewUpdate().
		Model((*conversationRecord)(nil)).
		Set("agent_requested_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", conversationID).
		Where("agent_requested_at IS NULL").
		Exec(ctx)
	return err
}

func (s *ConversationStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// ConversationResolver maps tenant-scoped phone numbers to contact and
// conversation rows, creating both inside one transaction on first sight.
type ConversationResolver struct {
	db *bun.DB
}

func NewConversationResolver(db *bun.DB) (*ConversationResolver, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &ConversationResolver{db: db}, nil
}

func (r *ConversationResolver) Resolve(ctx context.Context, tenantID int64, phone string) (core.ConversationRef, error) {
	if r == nil || r.db == nil {
		return core.ConversationRef{}, fmt.Errorf("sqlstore: conversation resolver is not configured")
	}
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return core.ConversationRef{}, fmt.Errorf("sqlstore: phone is required")
	}
	if tenantID <= 0 {
		return core.ConversationRef{}, fmt.Errorf("sqlstore: tenant id is required")
	}

	var ref core.ConversationRef
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now().UTC()

		contact := &contactRecord{}
		err := tx.NewSelect().
			Model(contact).
			Where("tenant_id = ?", tenantID).
			Where("phone = ?", trimmed).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			contact = &contactRecord{
				TenantID:  tenantID,
				Phone:     trimmed,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, insertErr := tx.NewInsert().Model(contact).Exec(ctx); insertErr != nil {
				return insertErr
			}
		}

		conversation := &conversationRecord{}
		err = tx.NewSelect().
			Model(conversation).
			Where("tenant_id = ?", tenantID).
			Where("contact_id = ?", contact.ID).
			Order("created_at DESC").
			Limit(1).
			Scan(ctx)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			conversation = &conversationRecord{
				TenantID:  tenantID,
				ContactID: contact.ID,
				Status:    conversationStatusOpen,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, insertErr := tx.NewInsert().Model(conversation).Exec(ctx); insertErr != nil {
				return insertErr
			}
			ref = core.ConversationRef{
				ContactID:      contact.ID,
				ConversationID: conversation.ID,
				JustCreated:    true,
			}
			return nil
		}

		ref = core.ConversationRef{
			ContactID:      contact.ID,
			ConversationID: conversation.ID,
		}
		return nil
	})
	if err != nil {
		return core.ConversationRef{}, err
	}
	return ref, nil
}
