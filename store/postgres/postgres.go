// Package postgres implements the store contracts on PostgreSQL via bun.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/luis-bzk/llm-agent/domain"
	"github.com/luis-bzk/llm-agent/store"
)

type Config struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"10s"`
}

// Connect opens a bun DB over pgdriver and verifies the connection.
func Connect(ctx context.Context, cfg Config) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithDialTimeout(cfg.DialTimeout),
	))
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)

	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewStore builds the repository bundle on top of one bun DB.
func NewStore(db *bun.DB) *store.Store {
	return &store.Store{
		Clients:       &clientRepo{db: db},
		Branches:      &branchRepo{db: db},
		Categories:    &categoryRepo{db: db},
		Services:      &serviceRepo{db: db},
		Calendars:     &calendarRepo{db: db},
		Users:         &userRepo{db: db},
		Sessions:      &sessionRepo{db: db},
		Conversations: &conversationRepo{db: db},
		Messages:      &messageRepo{db: db},
		Appointments:  &appointmentRepo{db: db},
		Config:        &configRepo{db: db},
	}
}

// CreateSchema creates all tables if they do not exist. Intended for local
// setup and tests; production deployments manage schema out of band.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*domain.Client)(nil),
		(*domain.Branch)(nil),
		(*domain.Category)(nil),
		(*domain.Service)(nil),
		(*domain.Calendar)(nil),
		(*domain.CalendarService)(nil),
		(*domain.User)(nil),
		(*domain.Session)(nil),
		(*domain.Conversation)(nil),
		(*domain.Message)(nil),
		(*domain.Appointment)(nil),
		(*domain.SystemConfig)(nil),
	}
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_client_phone ON sessions (client_id, phone_number)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_calendar ON appointments (calendar_id, start_at)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_session ON conversations (session_id, created_at)`,
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
