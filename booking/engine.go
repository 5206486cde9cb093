package booking

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/luis-bzk/llm-agent/domain"
	"github.com/luis-bzk/llm-agent/store"
)

var (
	// ErrCalendarUnavailable signals the calendar gateway could not be
	// reached. Callers treat it as "no availability data", not a hard
	// failure.
	ErrCalendarUnavailable = errors.New("calendar gateway unavailable")

	// ErrSlotUnavailable signals the requested start time is not among the
	// currently free slots, or the commit lost a race to a concurrent
	// booking.
	ErrSlotUnavailable = errors.New("slot unavailable")
)

// CalendarGateway is the external calendar the engine reads interval data
// from. Declared availability is opt-in: when a resource has no declared
// blocks for a date, it is unavailable that day.
type CalendarGateway interface {
	DeclaredAvailability(ctx context.Context, resourceExternalID string, date time.Time) ([]Interval, error)
	BusyIntervals(ctx context.Context, resourceExternalID string, date time.Time) ([]Interval, error)
	CreateEvent(ctx context.Context, resourceExternalID string, ev Event) (string, error)
	DeleteEvent(ctx context.Context, resourceExternalID, eventID string) error
}

// Event is a calendar entry mirroring a committed appointment.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Engine derives bookable slots from raw interval data. It holds no state
// across calls; every computation reads the gateway and the store fresh.
type Engine struct {
	gateway      CalendarGateway
	appointments store.AppointmentRepository
}

func NewEngine(gateway CalendarGateway, appointments store.AppointmentRepository) *Engine {
	return &Engine{gateway: gateway, appointments: appointments}
}

// ComputeSlots returns the chronologically ordered start times at which a
// service of the given duration can begin on the calendar's date. An empty
// result means the calendar is not bookable that day; there is no fallback
// to a default schedule.
func (e *Engine) ComputeSlots(ctx context.Context, cal *domain.Calendar, date time.Time, durationMinutes, granularityMinutes int) ([]time.Time, error) {
	blocks, err := e.gateway.DeclaredAvailability(ctx, cal.ExternalID, date)
	if err != nil {
		log.Warn().Err(err).
			Str("resource", cal.ExternalID).
			Time("date", date).
			Msg("declared availability fetch failed")
		return nil, ErrCalendarUnavailable
	}
	if len(blocks) == 0 {
		return nil, nil
	}

	busy, err := e.gateway.BusyIntervals(ctx, cal.ExternalID, date)
	if err != nil {
		log.Warn().Err(err).
			Str("resource", cal.ExternalID).
			Time("date", date).
			Msg("busy intervals fetch failed")
		return nil, ErrCalendarUnavailable
	}

	// Stored appointments also block slots. Their mirrored events usually
	// appear in the gateway's busy set, but a row whose mirror write failed
	// must still make its interval unavailable.
	appts, err := e.appointments.ListByCalendarAndDate(ctx, cal.ID, date)
	if err != nil {
		return nil, err
	}
	for _, a := range appts {
		busy = append(busy, Interval{Start: a.StartAt, End: a.EndAt})
	}

	free := subtract(merge(blocks), busy)
	duration := time.Duration(durationMinutes) * time.Minute
	step := time.Duration(granularityMinutes) * time.Minute
	return slotStarts(free, duration, step), nil
}

// DayAvailability returns the merged declared blocks and the count of busy
// intervals, for "when does this employee work" style queries.
func (e *Engine) DayAvailability(ctx context.Context, resourceExternalID string, date time.Time) ([]Interval, int, error) {
	blocks, err := e.gateway.DeclaredAvailability(ctx, resourceExternalID, date)
	if err != nil {
		return nil, 0, ErrCalendarUnavailable
	}
	busy, err := e.gateway.BusyIntervals(ctx, resourceExternalID, date)
	if err != nil {
		return nil, 0, ErrCalendarUnavailable
	}
	return merge(blocks), len(busy), nil
}
