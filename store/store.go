// Package store defines the persistence contracts the agent depends on.
// Implementations live in subpackages; tests substitute fakes.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/luis-bzk/llm-agent/domain"
)

// ErrNotFound is returned by every lookup that misses. Callers distinguish
// it from infrastructure failures with errors.Is.
var ErrNotFound = errors.New("not found")

// ErrSlotTaken is returned by CreateIfFree when the requested interval
// overlaps an existing non-cancelled appointment on the same calendar.
var ErrSlotTaken = errors.New("slot already taken")

type ClientRepository interface {
	Get(ctx context.Context, id string) (*domain.Client, error)
	GetByContactNumber(ctx context.Context, number string) (*domain.Client, error)
}

type BranchRepository interface {
	Get(ctx context.Context, id string) (*domain.Branch, error)
	ListByClient(ctx context.Context, clientID string) ([]domain.Branch, error)
}

type CategoryRepository interface {
	ListByBranch(ctx context.Context, branchID string) ([]domain.Category, error)
}

type ServiceRepository interface {
	Get(ctx context.Context, id string) (*domain.Service, error)
	ListByBranch(ctx context.Context, branchID string) ([]domain.Service, error)
	ListByCategory(ctx context.Context, categoryID string) ([]domain.Service, error)
	// FindByName matches active services by partial, case-insensitive name.
	FindByName(ctx context.Context, branchID, name string) (*domain.Service, error)
}

type CalendarRepository interface {
	Get(ctx context.Context, id string) (*domain.Calendar, error)
	ListByBranch(ctx context.Context, branchID string) ([]domain.Calendar, error)
	ListForService(ctx context.Context, serviceID string) ([]domain.Calendar, error)
	FindByName(ctx context.Context, branchID, name string) (*domain.Calendar, error)
}

type UserRepository interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByPhone(ctx context.Context, clientID, phone string) (*domain.User, error)
	GetByIdentification(ctx context.Context, clientID, identification string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}

type SessionRepository interface {
	GetOrCreate(ctx context.Context, clientID, phone string) (*domain.Session, error)
	LinkUser(ctx context.Context, sessionID, userID string) error
	Touch(ctx context.Context, sessionID string, at time.Time) error
}

type ConversationRepository interface {
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	// Latest returns the most recent conversation for the session, or
	// ErrNotFound when the session has none yet.
	Latest(ctx context.Context, sessionID string) (*domain.Conversation, error)
	Create(ctx context.Context, sessionID string) (*domain.Conversation, error)
	UpdateSummary(ctx context.Context, id, summary string) error
}

type MessageRepository interface {
	// Append persists a message and bumps the conversation's message count
	// and last-message timestamp in the same transaction.
	Append(ctx context.Context, conversationID string, role domain.Role, content string) (*domain.Message, error)
	// Recent returns up to limit messages in creation order (oldest first).
	// limit <= 0 means no bound.
	Recent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	CountByConversation(ctx context.Context, conversationID string) (int, error)
}

type AppointmentRepository interface {
	Get(ctx context.Context, id string) (*domain.Appointment, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Appointment, error)
	ListUpcomingByUser(ctx context.Context, userID string, from time.Time) ([]domain.Appointment, error)
	ListByCalendarAndDate(ctx context.Context, calendarID string, date time.Time) ([]domain.Appointment, error)
	// CreateIfFree commits the appointment only if its [StartAt, EndAt)
	// interval overlaps no non-cancelled appointment on the same calendar.
	// The check and the insert run under a per-calendar lock so concurrent
	// bookings cannot both succeed; the loser gets ErrSlotTaken.
	CreateIfFree(ctx context.Context, a *domain.Appointment) error
	Cancel(ctx context.Context, id, reason, by string, at time.Time) error
}

type ConfigRepository interface {
	// Get returns the stored value for key, or def when the row is absent.
	Get(ctx context.Context, key, def string) (string, error)
}

// Store bundles every repository. One bundle is built at process start and
// passed explicitly into the turn scheduler and its collaborators.
type Store struct {
	Clients       ClientRepository
	Branches      BranchRepository
	Categories    CategoryRepository
	Services      ServiceRepository
	Calendars     CalendarRepository
	Users         UserRepository
	Sessions      SessionRepository
	Conversations ConversationRepository
	Messages      MessageRepository
	Appointments  AppointmentRepository
	Config        ConfigRepository
}
