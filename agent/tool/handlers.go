package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/luis-bzk/llm-agent/agent/contract"
	"github.com/luis-bzk/llm-agent/booking"
	"github.com/luis-bzk/llm-agent/domain"
	"github.com/luis-bzk/llm-agent/store"
)

func (e *Executor) getServices(ctx context.Context, args map[string]any, env contractx.OpEnv) (any, error) {
	branch, err := branchID(args, env)
	if err != nil {
		return nil, err
	}
	services, err := e.store.Services.ListByBranch(ctx, branch)
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return "No services found for this branch.", nil
	}

	categories, err := e.store.Categories.ListByBranch(ctx, branch)
	if err != nil {
		return nil, err
	}
	categoryNames := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	out := make([]map[string]any, 0, len(services))
	for _, s := range services {
		category := categoryNames[s.CategoryID]
		if category == "" {
			category = "Uncategorized"
		}
		out = append(out, map[string]any{
			"service_id":         s.ID,
			"name":               s.Name,
			"category":           category,
			"price":              s.Price,
			"duration_minutes":   s.DurationMinutes,
			"duration_formatted": fmt.Sprintf("%d min", s.DurationMinutes),
			"description":        s.Description,
		})
	}
	return out, nil
}

func (e *Executor) getCategories(ctx context.Context, args map[string]any, env contractx.OpEnv) (any, error) {
	branch, err := branchID(args, env)
	if err != nil {
		return nil, err
	}
	categories, err := e.store.Categories.ListByBranch(ctx, branch)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return "No categories found for this branch.", nil
	}

	out := make([]map[string]any, 0, len(categories))
	for _, c := range categories {
		services, err := e.store.Services.ListByCategory(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		items := make([]map[string]any, 0, len(services))
		for _, s := range services {
			items = append(items, map[string]any{
				"service_id":       s.ID,
				"name":             s.Name,
				"price":            s.Price,
				"duration_minutes": s.DurationMinutes,
			})
		}
		out = append(out, map[string]any{
			"category_id":    c.ID,
			"category_name":  c.Name,
			"description":    c.Description,
			"services_count": len(items),
			"services":       items,
		})
	}
	return out, nil
}

// findService resolves a partial name, listing the available names when the
// lookup misses so the assistant can offer alternatives.
func (e *Executor) findService(ctx context.Context, branch, name string) (*domain.Service, error) {
	svc, err := e.store.Services.FindByName(ctx, branch, name)
	if err == nil {
		return svc, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	all, listErr := e.store.Services.ListByBranch(ctx, branch)
	if listErr == nil && len(all) > 0 {
		names := make([]string, 0, len(all))
		for _, s := range all {
			names = append(names, s.Name)
		}
		return nil, fmt.Errorf("no service named %q, available services: %s", name, strings.Join(names, ", "))
	}
	return nil, fmt.Errorf("no service named %q", name)
}

func (e *Executor) findCalendar(ctx context.Context, branch, name string) (*domain.Calendar, error) {
	cal, err := e.store.Calendars.FindByName(ctx, branch, name)
	if err == nil {
		return cal, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	all, listErr := e.store.Calendars.ListByBranch(ctx, branch)
	if listErr == nil && len(all) > 0 {
		names := make([]string, 0, len(all))
		for _, c := range all {
			names = append(names, c.Name)
		}
		return nil, fmt.Errorf("no employee named %q, available: %s", name, strings.Join(names, ", "))
	}
	return nil, fmt.Errorf("no employee named %q", name)
}

func (e *Executor) getServiceDetails(ctx context.Context, args map[string]any, env contractx.OpEnv) (any, error) {
	branch, err := branchID(args, env)
	if err != nil {
		return nil, err
	}
	name := argString(args, "service_name")
	if name == "" {
		return nil, fmt.Errorf("service_name is required")
	}
	svc, err := e.findService(ctx, branch, name)
	if err != nil {
		return nil, err
	}
	calendars, err := e.store.Calendars.ListForService(ctx, svc.ID)
	if err != nil {
		return nil, err
	}
	available := make([]map[string]any, 0, len(calendars))
	for _, c := range calendars {
		available = append(available, map[string]any{"calendar_id": c.ID, "name": c.Name})
	}
	return map[string]any{
		"service_id":         svc.ID,
		"name":               svc.Name,
		"description":        svc.Description,
		"price":              svc.Price,
		"duration_minutes":   svc.DurationMinutes,
		"duration_formatted": fmt.Sprintf("%d min", svc.DurationMinutes),
		"available_with":     available,
	}, nil
}

func (e *Executor) getAvailableSlots(ctx context.Context, args map[string]any, env contractx.OpEnv) (any, error) {
	branch, err := branchID(args, env)
	if err != nil {
		return nil, err
	}
	name := argString(args, "service_name")
	if name == "" {
		return nil, fmt.Errorf("service_name is required")
	}
	svc, err := e.findService(ctx, branch, name)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(argString(args, "date"), env)
	if err != nil {
		return nil, err
	}

	calendars, err := e.store.Calendars.ListForService(ctx, svc.ID)
	if err != nil {
		return nil, err
	}
	if len(calendars) == 0 {
		return nil, fmt.Errorf("no employees assigned to %q", svc.Name)
	}
	if filter := argString(args, "calendar_name"); filter != "" {
		matched := calendars[:0]
		for _, c := range calendars {
			if strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter)) {
				matched = append(matched, c)
			}
		}
		if len(matched) == 0 {
			return nil, fmt.Errorf("no employee named %q performs this service", filter)
		}
		calendars = matched
	}

	availability := make([]map[string]any, 0, len(calendars))
	degraded := false
	for _, cal := range calendars {
		slots, err := e.engine.ComputeSlots(ctx, &cal, date, svc.DurationMinutes, env.Config.SlotGranularityMinutes)
		if err != nil {
			if errors.Is(err, booking.ErrCalendarUnavailable) {
				degraded = true
				continue
			}
			return nil, err
		}
		if len(slots) == 0 {
			continue
		}
		times := make([]string, 0, len(slots))
		for _, s := range slots {
			times = append(times, s.Format("15:04"))
		}
		availability = append(availability, map[string]any{
			"calendar_id":     cal.ID,
			"calendar_name":   cal.Name,
			"available_times": times,
		})
	}
	if len(availability) == 0 {
		if degraded {
			return nil, fmt.Errorf("could not check availability for %q right now, try again shortly", svc.Name)
		}
		return fmt.Sprintf("No open slots for %q on %s.", svc.Name, date.Format("2006-01-02")), nil
	}
	result := map[string]any{
		"service":          svc.Name,
		"date":             date.Format("2006-01-02"),
		"duration_minutes": svc.DurationMinutes,
		"price":            svc.Price,
		"availability":     availability,
	}
	if degraded {
		result["partial"] = true
	}
	return result, nil
}

func (e *Executor) getCalendarAvailability(ctx context.Context, args map[string]any, env contractx.OpEnv) (any, error) {
	branch, err := branchID(args, env)
	if err != nil {
		return nil, err
	}
	name := argString(args, "calendar_name")
	if name == "" {
		return nil, fmt.Errorf("calendar_name is required")
	}
	cal, err := e.findCalendar(ctx, branch, name)
	if err != nil {
		return nil, err
	}
	date, err := time.ParseInLocation("2006-01-02", argString(args, "date"), time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, use YYYY-MM-DD", argString(args, "date"))
	}

	blocks, bookedCount, err := e.engine.DayAvailability(ctx, cal.ExternalID, date)
	if err != nil {
		if errors.Is(err, booking.ErrCalendarUnavailable) {
			return nil, fmt.Errorf("could not reach %s's calendar, try again shortly", cal.Name)
		}
		return nil, err
	}
	hours := make([]map[string]string, 0, len(blocks))
	for _, b := range blocks {
		hours = append(hours, map[string]string{
			"from": b.Start.Format("15:04"),
			"to":   b.End.Format("15:04"),
		})
	}
	return map[string]any{
		"calendar_name":      cal.Name,
		"date":               date.Format("2006-01-02"),
		"working_hours":      hours,
		"booked_slots_count": bookedCount,
		"is_available":       len(blocks) > 0,
	}, nil
}

func (e *Executor) findOrCreateUser(ctx context.Context, args map[string]any, env contractx.OpEnv) (any, error) {
	if env.System.Client == nil {
		return nil, fmt.Errorf("no business context for this turn")
	}
	ident := argString(args, "identification_number")
	fullName := argString(args, "full_name")
	if ident == "" || fullName == "" {
		return nil, fmt.Errorf("identification_number and full_name are required")
	}

	clientID := env.System.Client.ID
	user, err := e.store.Users.GetByIdentification(ctx, clientID, ident)
	isNew := false
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		user = &domain.User{
			ClientID:             clientID,
			PhoneNumber:          env.System.CallerPhone,
			IdentificationNumber: ident,
			FullName:             fullName,
		}
		if err := e.store.Users.Create(ctx, user); err != nil {
			return nil, err
		}
		isNew = true
	default:
		return nil, err
	}

	if env.SessionID != "" {
		if err := e.store.Sessions.LinkUser(ctx, env.SessionID, user.ID); err != nil {
			log.Warn().Err(err).Str("session", env.SessionID).Msg("session user link failed")
		}
	}

	return map[string]any{
		"user_id":               user.ID,
		"full_name":             user.FullName,
		"identification_number": user.IdentificationNumber,
		"phone_number":          user.PhoneNumber,
		"is_new":                isNew,
		"note":                  fmt.Sprintf("Use user_id=%q for create_appointment.", user.ID),
	}, nil
}

func (e *Executor) getUserInfo(ctx context.Context, args map[string]any, env contractx.OpEnv) (any, error) {
	if env.System.Client == nil {
		return nil, fmt.Errorf("no business context for this turn")
	}
	ident := argString(args, "identification_number")
	if ident == "" {
		return nil, fmt.Errorf("identification_number is required")
	}
	user, err := e.store.Users.GetByIdentification(ctx, env.System.Client.ID, ident)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("no user registered with identification %s", ident)
		}
		return nil, err
	}

	appointments, err := e.store.Appointments.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	var upcoming, past []map[string]any
	for _, a := range appointments {
		info := appointmentSummary(&a)
		if a.Status == domain.AppointmentScheduled && !a.StartAt.Before(now) {
			upcoming = append(upcoming, info)
		} else {
			past = append(past, info)
		}
	}
	if len(past) > 5 {
		past = past[:5]
	}
	return map[string]any{
		"user_id":               user.ID,
		"full_name":             user.FullName,
		"identification_number": user.IdentificationNumber,
		"phone_number":          user.PhoneNumber,
		"upcoming_appointments": upcoming,
		"past_appointments":     past,
		"total_appointments":    len(appointments),
	}, nil
}

func (e *Executor) getUserAppointments(ctx context.Context, args map[string]any, _ contractx.OpEnv) (any, error) {
	userID := argString(args, "user_id")
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	upcoming, err := e.store.Appointments.ListUpcomingByUser(ctx, userID, e.now())
	if err != nil {
		return nil, err
	}
	if len(upcoming) == 0 {
		return "No upcoming appointments.", nil
	}
	out := make([]map[string]any, 0, len(upcoming))
	for _, a := range upcoming {
		out = append(out, appointmentSummary(&a))
	}
	return map[string]any{"upcoming_appointments": out, "count": len(out)}, nil
}

func (e *Executor) createAppointment(ctx context.Context, args map[string]any, env contractx.OpEnv) (any, error) {
	userID := argString(args, "user_id")
	if userID == "" {
		return nil, fmt.Errorf("user_id is required, call find_or_create_user first")
	}
	user, err := e.store.Users.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		// A common model mistake is passing the business id here.
		if _, clientErr := e.store.Clients.Get(ctx, userID); clientErr == nil {
			return nil, fmt.Errorf("%q is a business id, not a user id; use the user_id returned by find_or_create_user", userID)
		}
		return nil, fmt.Errorf("no user with id %q, call find_or_create_user first", userID)
	}

	branch, err := branchID(args, env)
	if err != nil {
		return nil, err
	}
	svc, err := e.findService(ctx, branch, argString(args, "service_name"))
	if err != nil {
		return nil, err
	}
	cal, err := e.findCalendar(ctx, branch, argString(args, "calendar_name"))
	if err != nil {
		return nil, err
	}
	start, err := e.parseStart(args, "date", "time", env)
	if err != nil {
		return nil, err
	}

	appt, err := e.booker.Book(ctx, booking.BookRequest{
		User:               user,
		Calendar:           cal,
		Service:            svc,
		Start:              start,
		GranularityMinutes: env.Config.SlotGranularityMinutes,
	})
	if err != nil {
		if errors.Is(err, booking.ErrSlotUnavailable) {
			return nil, e.slotTakenError(ctx, cal, svc, start, env)
		}
		return nil, err
	}

	location := ""
	if b, err := e.store.Branches.Get(ctx, branch); err == nil {
		location = fmt.Sprintf("%s - %s", b.Name, b.Address)
	}
	return map[string]any{
		"success":        true,
		"appointment_id": appt.ID,
		"message":        "Appointment confirmed.",
		"details": map[string]any{
			"service":  appt.ServiceName,
			"employee": appt.CalendarName,
			"date":     appt.StartAt.Format("Monday, January 2"),
			"time":     appt.StartAt.Format("15:04"),
			"duration": fmt.Sprintf("%d minutes", appt.DurationMinutes),
			"price":    appt.ServicePrice,
			"location": location,
		},
	}, nil
}

func (e *Executor) cancelAppointment(ctx context.Context, args map[string]any, _ contractx.OpEnv) (any, error) {
	id := argString(args, "appointment_id")
	if id == "" {
		return nil, fmt.Errorf("appointment_id is required")
	}
	reason := argString(args, "reason")
	appt, err := e.booker.Cancel(ctx, id, reason, "user")
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("no appointment %s", id)
		}
		return nil, err
	}
	return map[string]any{
		"success": true,
		"message": "Appointment cancelled.",
		"cancelled_appointment": map[string]any{
			"service": appt.ServiceName,
			"date":    appt.StartAt.Format("2006-01-02"),
			"time":    appt.StartAt.Format("15:04"),
			"reason":  reason,
		},
	}, nil
}

func (e *Executor) rescheduleAppointment(ctx context.Context, args map[string]any, env contractx.OpEnv) (any, error) {
	id := argString(args, "appointment_id")
	if id == "" {
		return nil, fmt.Errorf("appointment_id is required")
	}
	current, err := e.store.Appointments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("no appointment %s", id)
		}
		return nil, err
	}
	if current.Status != domain.AppointmentScheduled {
		return nil, fmt.Errorf("only scheduled appointments can be rescheduled")
	}

	user, err := e.store.Users.Get(ctx, current.UserID)
	if err != nil {
		return nil, err
	}
	cal, err := e.store.Calendars.Get(ctx, current.CalendarID)
	if err != nil {
		return nil, err
	}
	svc, err := e.store.Services.Get(ctx, current.ServiceID)
	if err != nil {
		return nil, err
	}
	start, err := e.parseStart(args, "new_date", "new_time", env)
	if err != nil {
		return nil, err
	}

	replacement, err := e.booker.Reschedule(ctx, id, booking.BookRequest{
		User:               user,
		Calendar:           cal,
		Service:            svc,
		Start:              start,
		GranularityMinutes: env.Config.SlotGranularityMinutes,
	})
	if err != nil {
		if errors.Is(err, booking.ErrSlotUnavailable) {
			return nil, e.slotTakenError(ctx, cal, svc, start, env)
		}
		return nil, err
	}
	return map[string]any{
		"success":        true,
		"message":        "Appointment rescheduled.",
		"appointment_id": replacement.ID,
		"new_appointment": map[string]any{
			"service":  replacement.ServiceName,
			"employee": replacement.CalendarName,
			"date":     replacement.StartAt.Format("2006-01-02"),
			"time":     replacement.StartAt.Format("15:04"),
		},
		"previous": map[string]any{
			"date": current.StartAt.Format("2006-01-02"),
			"time": current.StartAt.Format("15:04"),
		},
	}, nil
}

func (e *Executor) parseStart(args map[string]any, dateKey, timeKey string, env contractx.OpEnv) (time.Time, error) {
	date, err := parseDate(argString(args, dateKey), env)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := parseClock(argString(args, timeKey))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC), nil
}

// slotTakenError recomputes slots to offer alternatives in the failure text.
func (e *Executor) slotTakenError(ctx context.Context, cal *domain.Calendar, svc *domain.Service, start time.Time, env contractx.OpEnv) error {
	slots, err := e.engine.ComputeSlots(ctx, cal, start, svc.DurationMinutes, env.Config.SlotGranularityMinutes)
	if err != nil || len(slots) == 0 {
		return fmt.Errorf("no open slots on %s with %s", start.Format("2006-01-02"), cal.Name)
	}
	if len(slots) > 5 {
		slots = slots[:5]
	}
	alternatives := make([]string, 0, len(slots))
	for _, s := range slots {
		alternatives = append(alternatives, s.Format("15:04"))
	}
	return fmt.Errorf("%s is not available, open times: %s", start.Format("15:04"), strings.Join(alternatives, ", "))
}

func appointmentSummary(a *domain.Appointment) map[string]any {
	return map[string]any{
		"appointment_id": a.ID,
		"service":        a.ServiceName,
		"employee":       a.CalendarName,
		"date":           a.StartAt.Format("2006-01-02"),
		"time":           a.StartAt.Format("15:04"),
		"status":         string(a.Status),
	}
}
