package domain

import (
	"time"

	"github.com/uptrace/bun"
)

// User is an end customer of a client, identified by national ID within the
// tenant. Created lazily the first time the caller shares name and ID.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID                   string    `bun:"id,pk"`
	ClientID             string    `bun:"client_id,notnull"`
	PhoneNumber          string    `bun:"phone_number,notnull"`
	IdentificationNumber string    `bun:"identification_number,notnull"`
	FullName             string    `bun:"full_name,notnull"`
	CreatedAt            time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// Session ties a (client, phone) pair together across conversations. It is
// created on first contact and never deleted.
type Session struct {
	bun.BaseModel `bun:"table:sessions"`

	ID             string    `bun:"id,pk"`
	ClientID       string    `bun:"client_id,notnull"`
	PhoneNumber    string    `bun:"phone_number,notnull"`
	UserID         string    `bun:"user_id,nullzero"`
	MemoryProfile  string    `bun:"memory_profile,nullzero"`
	CreatedAt      time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	LastActivityAt time.Time `bun:"last_activity_at,nullzero"`
}

// Conversation is one bounded dialogue within a session. A conversation is
// closed implicitly once its last message is older than the configured
// inactivity timeout; the next turn then starts a fresh one.
type Conversation struct {
	bun.BaseModel `bun:"table:conversations"`

	ID            string    `bun:"id,pk"`
	SessionID     string    `bun:"session_id,notnull"`
	Summary       string    `bun:"summary"`
	MessageCount  int       `bun:"message_count,default:0"`
	LastMessageAt time.Time `bun:"last_message_at,nullzero"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// Role of a persisted message. Only human and assistant messages are ever
// durable; tool exchanges live inside a single turn and are discarded.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

type Message struct {
	bun.BaseModel `bun:"table:messages"`

	ID             string    `bun:"id,pk"`
	ConversationID string    `bun:"conversation_id,notnull"`
	Role           Role      `bun:"role,notnull"`
	Content        string    `bun:"content,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}
