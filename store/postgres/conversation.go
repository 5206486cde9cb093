package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/luis-bzk/llm-agent/domain"
	"github.com/luis-bzk/llm-agent/store"
)

type conversationRepo struct {
	db *bun.DB
}

func (r *conversationRepo) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	c := new(domain.Conversation)
	err := r.db.NewSelect().Model(c).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return c, nil
}

func (r *conversationRepo) Latest(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	c := new(domain.Conversation)
	err := r.db.NewSelect().Model(c).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return c, nil
}

func (r *conversationRepo) Create(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	c := &domain.Conversation{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.db.NewInsert().Model(c).Exec(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *conversationRepo) UpdateSummary(ctx context.Context, id, summary string) error {
	res, err := r.db.NewUpdate().Model((*domain.Conversation)(nil)).
		Set("summary = ?", summary).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type messageRepo struct {
	db *bun.DB
}

// Append inserts the message and keeps the conversation's message_count and
// last_message_at consistent with it inside one transaction.
func (r *messageRepo) Append(ctx context.Context, conversationID string, role domain.Role, content string) (*domain.Message, error) {
	m := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		res, err := tx.NewUpdate().Model((*domain.Conversation)(nil)).
			Set("message_count = message_count + 1").
			Set("last_message_at = ?", m.CreatedAt).
			Where("id = ?", conversationID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("bump conversation: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *messageRepo) Recent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	q := r.db.NewSelect().Model(&messages).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	// Reverse into creation order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *messageRepo) CountByConversation(ctx context.Context, conversationID string) (int, error) {
	return r.db.NewSelect().Model((*domain.Message)(nil)).
		Where("conversation_id = ?", conversationID).
		Count(ctx)
}

var _ store.ConversationRepository = (*conversationRepo)(nil)
var _ store.MessageRepository = (*messageRepo)(nil)
