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

type appointmentRepo struct {
	db *bun.DB
}

func (r *appointmentRepo) Get(ctx context.Context, id string) (*domain.Appointment, error) {
	a := new(domain.Appointment)
	err := r.db.NewSelect().Model(a).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return a, nil
}

func (r *appointmentRepo) ListByUser(ctx context.Context, userID string) ([]domain.Appointment, error) {
	var appointments []domain.Appointment
	err := r.db.NewSelect().Model(&appointments).
		Where("user_id = ?", userID).
		Order("start_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepo) ListUpcomingByUser(ctx context.Context, userID string, from time.Time) ([]domain.Appointment, error) {
	var appointments []domain.Appointment
	err := r.db.NewSelect().Model(&appointments).
		Where("user_id = ?", userID).
		Where("start_at >= ?", from.UTC()).
		Where("status = ?", domain.AppointmentScheduled).
		Order("start_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepo) ListByCalendarAndDate(ctx context.Context, calendarID string, date time.Time) ([]domain.Appointment, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	var appointments []domain.Appointment
	err := r.db.NewSelect().Model(&appointments).
		Where("calendar_id = ?", calendarID).
		Where("start_at >= ? AND start_at < ?", dayStart, dayEnd).
		Where("status != ?", domain.AppointmentCancelled).
		Order("start_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// CreateIfFree takes a row lock on the calendar so two concurrent bookings
// for the same resource serialize; the overlap check then sees any interval
// a competing transaction committed first.
func (r *appointmentRepo) CreateIfFree(ctx context.Context, a *domain.Appointment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = domain.AppointmentScheduled
	}

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		cal := new(domain.Calendar)
		err := tx.NewSelect().Model(cal).
			Where("id = ?", a.CalendarID).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			return wrapNotFound(err)
		}

		overlapping, err := tx.NewSelect().Model((*domain.Appointment)(nil)).
			Where("calendar_id = ?", a.CalendarID).
			Where("status != ?", domain.AppointmentCancelled).
			Where("start_at < ? AND end_at > ?", a.EndAt.UTC(), a.StartAt.UTC()).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if overlapping > 0 {
			return store.ErrSlotTaken
		}

		if _, err := tx.NewInsert().Model(a).Exec(ctx); err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		return nil
	})
}

func (r *appointmentRepo) Cancel(ctx context.Context, id, reason, by string, at time.Time) error {
	res, err := r.db.NewUpdate().Model((*domain.Appointment)(nil)).
		Set("status = ?", domain.AppointmentCancelled).
		Set("cancellation_reason = ?", reason).
		Set("cancelled_by = ?", by).
		Set("cancelled_at = ?", at.UTC()).
		Set("updated_at = ?", at.UTC()).
		Where("id = ?", id).
		Where("status = ?", domain.AppointmentScheduled).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type configRepo struct {
	db *bun.DB
}

func (r *configRepo) Get(ctx context.Context, key, def string) (string, error) {
	c := new(domain.SystemConfig)
	err := r.db.NewSelect().Model(c).Where("key = ?", key).Scan(ctx)
	if err != nil {
		if wrapNotFound(err) == store.ErrNotFound {
			return def, nil
		}
		return "", err
	}
	return c.Value, nil
}

var _ store.AppointmentRepository = (*appointmentRepo)(nil)
var _ store.ConfigRepository = (*configRepo)(nil)
