package domain

import (
	"time"

	"github.com/uptrace/bun"
)

// Client is a tenant: the business whose appointments the agent books.
// ContactNumber is the channel identifier inbound messages are addressed to.
type Client struct {
	bun.BaseModel `bun:"table:clients"`

	ID                string    `bun:"id,pk"`
	BusinessName      string    `bun:"business_name,notnull"`
	BotName           string    `bun:"bot_name"`
	GreetingMessage   string    `bun:"greeting_message"`
	ContactNumber     string    `bun:"contact_number,notnull,unique"`
	BookingWindowDays int       `bun:"booking_window_days,default:30"`
	Active            bool      `bun:"active,default:true"`
	CreatedAt         time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

type Branch struct {
	bun.BaseModel `bun:"table:branches"`

	ID       string `bun:"id,pk"`
	ClientID string `bun:"client_id,notnull"`
	Name     string `bun:"name,notnull"`
	Address  string `bun:"address"`
	Timezone string `bun:"timezone"`
}

type Category struct {
	bun.BaseModel `bun:"table:categories"`

	ID          string `bun:"id,pk"`
	BranchID    string `bun:"branch_id,notnull"`
	Name        string `bun:"name,notnull"`
	Description string `bun:"description"`
}

type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID              string `bun:"id,pk"`
	BranchID        string `bun:"branch_id,notnull"`
	CategoryID      string `bun:"category_id"`
	Name            string `bun:"name,notnull"`
	Description     string `bun:"description"`
	Price           string `bun:"price,notnull"`
	DurationMinutes int    `bun:"duration_minutes,notnull"`
	Active          bool   `bun:"active,default:true"`
}

// Calendar is a bookable resource (an employee, a room). ExternalID is the
// resource identifier on the calendar gateway side; availability is declared
// there, never inferred from business hours.
type Calendar struct {
	bun.BaseModel `bun:"table:calendars"`

	ID         string `bun:"id,pk"`
	BranchID   string `bun:"branch_id,notnull"`
	Name       string `bun:"name,notnull"`
	ExternalID string `bun:"external_id"`
	Active     bool   `bun:"active,default:true"`
}

// CalendarService assigns a service to a calendar that can perform it.
type CalendarService struct {
	bun.BaseModel `bun:"table:calendar_services"`

	CalendarID string `bun:"calendar_id,pk"`
	ServiceID  string `bun:"service_id,pk"`
}
