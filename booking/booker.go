package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/luis-bzk/llm-agent/domain"
	"github.com/luis-bzk/llm-agent/store"
)

// Booker commits, cancels, and reschedules appointments under the
// no-double-booking guarantee. It never trusts a slot list computed earlier:
// calendars are externally mutable between computation and commit, so every
// mutation re-derives slots first and the store re-checks overlap under a
// per-calendar lock.
type Booker struct {
	engine       *Engine
	appointments store.AppointmentRepository
	calendars    store.CalendarRepository
	gateway      CalendarGateway
	now          func() time.Time
}

func NewBooker(engine *Engine, appointments store.AppointmentRepository, calendars store.CalendarRepository, gateway CalendarGateway) *Booker {
	return &Booker{
		engine:       engine,
		appointments: appointments,
		calendars:    calendars,
		gateway:      gateway,
		now:          time.Now,
	}
}

// BookRequest carries everything the transaction needs; lookups happen
// before it so a failed lookup never reaches the commit path.
type BookRequest struct {
	User               *domain.User
	Calendar           *domain.Calendar
	Service            *domain.Service
	Start              time.Time
	GranularityMinutes int
}

// Book validates the requested start against freshly computed slots and
// commits the appointment. A gateway outage or a lost race both surface as
// ErrSlotUnavailable wrapped with detail.
func (b *Booker) Book(ctx context.Context, req BookRequest) (*domain.Appointment, error) {
	slots, err := b.engine.ComputeSlots(ctx, req.Calendar, req.Start, req.Service.DurationMinutes, req.GranularityMinutes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSlotUnavailable, err)
	}
	if !containsSlot(slots, req.Start) {
		return nil, ErrSlotUnavailable
	}

	end := req.Start.Add(time.Duration(req.Service.DurationMinutes) * time.Minute)
	appt := &domain.Appointment{
		UserID:          req.User.ID,
		CalendarID:      req.Calendar.ID,
		ServiceID:       req.Service.ID,
		BranchID:        req.Service.BranchID,
		ServiceName:     req.Service.Name,
		ServicePrice:    req.Service.Price,
		DurationMinutes: req.Service.DurationMinutes,
		CalendarName:    req.Calendar.Name,
		StartAt:         req.Start.UTC(),
		EndAt:           end.UTC(),
		Status:          domain.AppointmentScheduled,
		CreatedAt:       b.now().UTC(),
	}

	// Mirror to the external calendar first so its busy set blocks other
	// computations as early as possible. Best effort: the durable record is
	// the database row.
	eventID, err := b.gateway.CreateEvent(ctx, req.Calendar.ExternalID, Event{
		Summary:     fmt.Sprintf("%s - %s (%s)", req.Service.Name, req.User.FullName, req.User.IdentificationNumber),
		Description: fmt.Sprintf("Booked via assistant\nCustomer: %s\nPhone: %s", req.User.FullName, req.User.PhoneNumber),
		Start:       req.Start,
		End:         end,
	})
	if err != nil {
		log.Warn().Err(err).Str("calendar", req.Calendar.ID).Msg("calendar event mirror failed")
	} else {
		appt.ExternalEventID = eventID
	}

	if err := b.appointments.CreateIfFree(ctx, appt); err != nil {
		if appt.ExternalEventID != "" {
			if delErr := b.gateway.DeleteEvent(ctx, req.Calendar.ExternalID, appt.ExternalEventID); delErr != nil {
				log.Warn().Err(delErr).Str("event", appt.ExternalEventID).Msg("orphan event cleanup failed")
			}
		}
		if errors.Is(err, store.ErrSlotTaken) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}
	return appt, nil
}

// Cancel marks a scheduled appointment cancelled and removes its mirrored
// event. Cancelling twice reports the appointment as not found because the
// status filter no longer matches.
func (b *Booker) Cancel(ctx context.Context, appointmentID, reason, by string) (*domain.Appointment, error) {
	appt, err := b.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status != domain.AppointmentScheduled {
		return nil, fmt.Errorf("appointment %s is %s, only scheduled appointments can be cancelled", appointmentID, appt.Status)
	}

	if err := b.appointments.Cancel(ctx, appointmentID, reason, by, b.now()); err != nil {
		return nil, err
	}

	if appt.ExternalEventID != "" {
		cal, calErr := b.calendars.Get(ctx, appt.CalendarID)
		if calErr == nil {
			if err := b.gateway.DeleteEvent(ctx, cal.ExternalID, appt.ExternalEventID); err != nil {
				log.Warn().Err(err).Str("event", appt.ExternalEventID).Msg("event delete failed")
			}
		} else {
			log.Warn().Err(calErr).Str("calendar", appt.CalendarID).Msg("calendar lookup for event delete failed")
		}
	}

	appt.Status = domain.AppointmentCancelled
	appt.CancellationReason = reason
	return appt, nil
}

// Reschedule is cancel-then-book, not an in-place interval mutation: the new
// interval goes through the same validate-and-commit path as a fresh
// booking, so the race-safety guarantee is identical. If the new slot cannot
// be committed the original appointment stays untouched.
func (b *Booker) Reschedule(ctx context.Context, appointmentID string, req BookRequest) (*domain.Appointment, error) {
	current, err := b.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.AppointmentScheduled {
		return nil, fmt.Errorf("appointment %s is %s, only scheduled appointments can be rescheduled", appointmentID, current.Status)
	}

	replacement, err := b.Book(ctx, req)
	if err != nil {
		return nil, err
	}

	if _, err := b.Cancel(ctx, appointmentID, "rescheduled", "user"); err != nil {
		log.Error().Err(err).
			Str("appointment", appointmentID).
			Str("replacement", replacement.ID).
			Msg("cancel of rescheduled appointment failed")
	}
	return replacement, nil
}

func containsSlot(slots []time.Time, start time.Time) bool {
	for _, s := range slots {
		if s.Equal(start) {
			return true
		}
	}
	return false
}
