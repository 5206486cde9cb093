package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/luis-bzk/llm-agent/domain"
	"github.com/luis-bzk/llm-agent/store"
)

type userRepo struct {
	db *bun.DB
}

func (r *userRepo) Get(ctx context.Context, id string) (*domain.User, error) {
	u := new(domain.User)
	err := r.db.NewSelect().Model(u).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return u, nil
}

func (r *userRepo) GetByPhone(ctx context.Context, clientID, phone string) (*domain.User, error) {
	u := new(domain.User)
	err := r.db.NewSelect().Model(u).
		Where("client_id = ?", clientID).
		Where("phone_number = ?", phone).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return u, nil
}

func (r *userRepo) GetByIdentification(ctx context.Context, clientID, identification string) (*domain.User, error) {
	u := new(domain.User)
	err := r.db.NewSelect().Model(u).
		Where("client_id = ?", clientID).
		Where("identification_number = ?", identification).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return u, nil
}

func (r *userRepo) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := r.db.NewInsert().Model(u).Exec(ctx)
	return err
}

type sessionRepo struct {
	db *bun.DB
}

// GetOrCreate is idempotent on (client, phone): the unique index makes a
// racing insert lose, in which case the winner's row is re-read.
func (r *sessionRepo) GetOrCreate(ctx context.Context, clientID, phone string) (*domain.Session, error) {
	s := new(domain.Session)
	err := r.db.NewSelect().Model(s).
		Where("client_id = ?", clientID).
		Where("phone_number = ?", phone).
		Scan(ctx)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	s = &domain.Session{
		ID:             uuid.NewString(),
		ClientID:       clientID,
		PhoneNumber:    phone,
		LastActivityAt: time.Now().UTC(),
	}
	_, err = r.db.NewInsert().Model(s).
		On("CONFLICT (client_id, phone_number) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	err = r.db.NewSelect().Model(s).
		Where("client_id = ?", clientID).
		Where("phone_number = ?", phone).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return s, nil
}

func (r *sessionRepo) LinkUser(ctx context.Context, sessionID, userID string) error {
	_, err := r.db.NewUpdate().Model((*domain.Session)(nil)).
		Set("user_id = ?", userID).
		Where("id = ?", sessionID).
		Exec(ctx)
	return err
}

func (r *sessionRepo) Touch(ctx context.Context, sessionID string, at time.Time) error {
	_, err := r.db.NewUpdate().Model((*domain.Session)(nil)).
		Set("last_activity_at = ?", at.UTC()).
		Where("id = ?", sessionID).
		Exec(ctx)
	return err
}

var _ store.UserRepository = (*userRepo)(nil)
var _ store.SessionRepository = (*sessionRepo)(nil)
