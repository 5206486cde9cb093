package domain

import (
	"time"

	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentNoShow    AppointmentStatus = "no_show"
)

// Appointment is a committed booking. StartAt/EndAt form a half-open
// interval [StartAt, EndAt); no two non-cancelled appointments on the same
// calendar may overlap. Service and calendar fields are snapshotted at
// booking time so later catalog edits don't rewrite history.
type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID                 string            `bun:"id,pk"`
	UserID             string            `bun:"user_id,notnull"`
	CalendarID         string            `bun:"calendar_id,notnull"`
	ServiceID          string            `bun:"service_id,notnull"`
	BranchID           string            `bun:"branch_id,notnull"`
	ServiceName        string            `bun:"service_name,notnull"`
	ServicePrice       string            `bun:"service_price,notnull"`
	DurationMinutes    int               `bun:"duration_minutes,notnull"`
	CalendarName       string            `bun:"calendar_name,notnull"`
	StartAt            time.Time         `bun:"start_at,notnull"`
	EndAt              time.Time         `bun:"end_at,notnull"`
	ExternalEventID    string            `bun:"external_event_id,nullzero"`
	Status             AppointmentStatus `bun:"status,notnull,default:'scheduled'"`
	CancellationReason string            `bun:"cancellation_reason,nullzero"`
	CancelledBy        string            `bun:"cancelled_by,nullzero"`
	CancelledAt        time.Time         `bun:"cancelled_at,nullzero"`
	CreatedAt          time.Time         `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt          time.Time         `bun:"updated_at,nullzero"`
}

// Date returns the calendar day the appointment starts on.
func (a *Appointment) Date() time.Time {
	y, m, d := a.StartAt.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, a.StartAt.Location())
}
