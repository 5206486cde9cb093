package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/luis-bzk/llm-agent/domain"
	"github.com/luis-bzk/llm-agent/store"
)

type fakeGateway struct {
	mu        sync.Mutex
	declared  []Interval
	busy      []Interval
	availErr  error
	busyErr   error
	created   []Event
	deleted   []string
	createErr error
}

func (f *fakeGateway) DeclaredAvailability(ctx context.Context, id string, date time.Time) ([]Interval, error) {
	if f.availErr != nil {
		return nil, f.availErr
	}
	return f.declared, nil
}

func (f *fakeGateway) BusyIntervals(ctx context.Context, id string, date time.Time) ([]Interval, error) {
	if f.busyErr != nil {
		return nil, f.busyErr
	}
	return f.busy, nil
}

func (f *fakeGateway) CreateEvent(ctx context.Context, id string, ev Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, ev)
	return "evt-" + uuid.NewString(), nil
}

func (f *fakeGateway) DeleteEvent(ctx context.Context, id, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, eventID)
	return nil
}

// fakeAppointments enforces the same single-winner overlap rule the postgres
// repository enforces under its row lock.
type fakeAppointments struct {
	mu    sync.Mutex
	rows  map[string]*domain.Appointment
	calls int
}

func newFakeAppointments() *fakeAppointments {
	return &fakeAppointments{rows: map[string]*domain.Appointment{}}
}

func (f *fakeAppointments) Get(ctx context.Context, id string) (*domain.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAppointments) ListByUser(ctx context.Context, userID string) ([]domain.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointments) ListUpcomingByUser(ctx context.Context, userID string, from time.Time) ([]domain.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointments) ListByCalendarAndDate(ctx context.Context, calendarID string, date time.Time) ([]domain.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	var out []domain.Appointment
	for _, a := range f.rows {
		if a.CalendarID != calendarID || a.Status == domain.AppointmentCancelled {
			continue
		}
		if a.StartAt.Before(dayStart) || !a.StartAt.Before(dayEnd) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeAppointments) CreateIfFree(ctx context.Context, a *domain.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, existing := range f.rows {
		if existing.CalendarID != a.CalendarID || existing.Status == domain.AppointmentCancelled {
			continue
		}
		if a.StartAt.Before(existing.EndAt) && existing.StartAt.Before(a.EndAt) {
			return store.ErrSlotTaken
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeAppointments) Cancel(ctx context.Context, id, reason, by string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok || a.Status != domain.AppointmentScheduled {
		return store.ErrNotFound
	}
	a.Status = domain.AppointmentCancelled
	a.CancellationReason = reason
	return nil
}

type fakeCalendars struct {
	cal *domain.Calendar
}

func (f *fakeCalendars) Get(ctx context.Context, id string) (*domain.Calendar, error) {
	if f.cal == nil {
		return nil, store.ErrNotFound
	}
	return f.cal, nil
}

func (f *fakeCalendars) ListByBranch(ctx context.Context, branchID string) ([]domain.Calendar, error) {
	return nil, nil
}

func (f *fakeCalendars) ListForService(ctx context.Context, serviceID string) ([]domain.Calendar, error) {
	return nil, nil
}

func (f *fakeCalendars) FindByName(ctx context.Context, branchID, name string) (*domain.Calendar, error) {
	return nil, store.ErrNotFound
}

func bookingFixture(t *testing.T) (*Booker, *fakeGateway, *fakeAppointments, BookRequest) {
	t.Helper()

	cal := &domain.Calendar{ID: "cal-1", BranchID: "br-1", Name: "Ana", ExternalID: "ext-1"}
	gw := &fakeGateway{
		declared: []Interval{iv(t, "08:00", "16:00")},
	}
	appointments := newFakeAppointments()
	booker := NewBooker(NewEngine(gw, appointments), appointments, &fakeCalendars{cal: cal}, gw)

	req := BookRequest{
		User:               &domain.User{ID: "usr-1", FullName: "Luis Perez", PhoneNumber: "+5930000001", IdentificationNumber: "1700000001"},
		Calendar:           cal,
		Service:            &domain.Service{ID: "svc-1", BranchID: "br-1", Name: "Haircut", Price: "12.50", DurationMinutes: 30},
		Start:              at(t, "09:00"),
		GranularityMinutes: 30,
	}
	return booker, gw, appointments, req
}

func TestBookCommitsValidSlot(t *testing.T) {
	t.Parallel()

	booker, gw, appointments, req := bookingFixture(t)

	appt, err := booker.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.Status != domain.AppointmentScheduled {
		t.Fatalf("unexpected status: %s", appt.Status)
	}
	if !appt.EndAt.Equal(at(t, "09:30").UTC()) {
		t.Fatalf("unexpected end: %v", appt.EndAt)
	}
	if appt.ExternalEventID == "" {
		t.Fatal("expected mirrored event id")
	}
	if len(gw.created) != 1 {
		t.Fatalf("expected 1 mirrored event, got %d", len(gw.created))
	}
	if appointments.calls != 1 {
		t.Fatalf("expected 1 commit attempt, got %d", appointments.calls)
	}
}

func TestBookRejectsStartOffTheSlotGrid(t *testing.T) {
	t.Parallel()

	booker, _, _, req := bookingFixture(t)
	req.Start = at(t, "09:10")

	_, err := booker.Book(context.Background(), req)
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestBookNoDeclaredAvailabilityMeansNoSlots(t *testing.T) {
	t.Parallel()

	booker, gw, _, req := bookingFixture(t)
	gw.declared = nil

	_, err := booker.Book(context.Background(), req)
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestBookGatewayOutageIsSlotUnavailable(t *testing.T) {
	t.Parallel()

	booker, gw, _, req := bookingFixture(t)
	gw.availErr = errors.New("503")

	_, err := booker.Book(context.Background(), req)
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestConcurrentBookingSameSlotSingleWinner(t *testing.T) {
	t.Parallel()

	booker, _, _, req := bookingFixture(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = booker.Book(context.Background(), req)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, ErrSlotUnavailable) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", wins)
	}
}

func TestBookLostRaceCleansUpMirroredEvent(t *testing.T) {
	t.Parallel()

	booker, gw, appointments, req := bookingFixture(t)

	if _, err := booker.Book(context.Background(), req); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	// The second caller sees the same gateway state (the mirrored event is
	// not reflected in busy intervals here) so it reaches the commit and
	// loses there.
	_, err := booker.Book(context.Background(), req)
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	if len(gw.deleted) != 1 {
		t.Fatalf("expected orphan event cleanup, got %d deletes", len(gw.deleted))
	}
	if appointments.calls != 2 {
		t.Fatalf("expected 2 commit attempts, got %d", appointments.calls)
	}
}

func TestCancelThenCancelAgainFails(t *testing.T) {
	t.Parallel()

	booker, gw, _, req := bookingFixture(t)

	appt, err := booker.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	cancelled, err := booker.Cancel(context.Background(), appt.ID, "cannot make it", "user")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != domain.AppointmentCancelled {
		t.Fatalf("unexpected status: %s", cancelled.Status)
	}
	if len(gw.deleted) != 1 {
		t.Fatalf("expected mirrored event delete, got %d", len(gw.deleted))
	}

	if _, err := booker.Cancel(context.Background(), appt.ID, "again", "user"); err == nil {
		t.Fatal("expected second cancel to fail")
	}
}

func TestCancelFreesTheSlot(t *testing.T) {
	t.Parallel()

	booker, _, _, req := bookingFixture(t)

	appt, err := booker.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if _, err := booker.Cancel(context.Background(), appt.ID, "conflict", "user"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if _, err := booker.Book(context.Background(), req); err != nil {
		t.Fatalf("rebooking cancelled slot failed: %v", err)
	}
}

func TestRescheduleMovesAppointment(t *testing.T) {
	t.Parallel()

	booker, _, appointments, req := bookingFixture(t)

	appt, err := booker.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	moved := req
	moved.Start = at(t, "11:00")
	replacement, err := booker.Reschedule(context.Background(), appt.ID, moved)
	if err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}
	if !replacement.StartAt.Equal(at(t, "11:00").UTC()) {
		t.Fatalf("unexpected new start: %v", replacement.StartAt)
	}

	original, err := appointments.Get(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("original lookup failed: %v", err)
	}
	if original.Status != domain.AppointmentCancelled {
		t.Fatalf("original should be cancelled, got %s", original.Status)
	}
}

func TestRescheduleToTakenSlotKeepsOriginal(t *testing.T) {
	t.Parallel()

	booker, _, appointments, req := bookingFixture(t)

	appt, err := booker.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	other := req
	other.Start = at(t, "11:00")
	if _, err := booker.Book(context.Background(), other); err != nil {
		t.Fatalf("second booking failed: %v", err)
	}

	moved := req
	moved.Start = at(t, "11:00")
	if _, err := booker.Reschedule(context.Background(), appt.ID, moved); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}

	original, err := appointments.Get(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("original lookup failed: %v", err)
	}
	if original.Status != domain.AppointmentScheduled {
		t.Fatalf("original should stay scheduled, got %s", original.Status)
	}
}

func TestComputeSlotsEmptyWhenNothingDeclared(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	engine := NewEngine(gw, newFakeAppointments())
	cal := &domain.Calendar{ID: "cal-1", ExternalID: "ext-1"}

	slots, err := engine.ComputeSlots(context.Background(), cal, at(t, "00:00"), 30, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots without declared availability, got %v", slots)
	}
}

func TestComputeSlotsGatewayFailure(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{availErr: errors.New("timeout")}
	engine := NewEngine(gw, newFakeAppointments())
	cal := &domain.Calendar{ID: "cal-1", ExternalID: "ext-1"}

	_, err := engine.ComputeSlots(context.Background(), cal, at(t, "00:00"), 30, 30)
	if !errors.Is(err, ErrCalendarUnavailable) {
		t.Fatalf("expected ErrCalendarUnavailable, got %v", err)
	}
}

func TestComputeSlotsExcludesUnmirroredAppointments(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{declared: []Interval{iv(t, "08:00", "12:00")}}
	appointments := newFakeAppointments()
	appointments.rows["appt-1"] = &domain.Appointment{
		ID:         "appt-1",
		CalendarID: "cal-1",
		Status:     domain.AppointmentScheduled,
		StartAt:    at(t, "09:00").UTC(),
		EndAt:      at(t, "10:00").UTC(),
	}
	engine := NewEngine(gw, appointments)
	cal := &domain.Calendar{ID: "cal-1", ExternalID: "ext-1"}

	slots, err := engine.ComputeSlots(context.Background(), cal, at(t, "00:00"), 60, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range slots {
		if s.Equal(at(t, "09:00")) {
			t.Fatal("slot overlapping a stored appointment should be excluded")
		}
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 remaining slots, got %v", slots)
	}
}

func TestBookRejectsSlotHeldByUnmirroredAppointment(t *testing.T) {
	t.Parallel()

	booker, gw, _, req := bookingFixture(t)
	gw.createErr = errors.New("calendar down")

	first, err := booker.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	if first.ExternalEventID != "" {
		t.Fatalf("expected no mirrored event, got %q", first.ExternalEventID)
	}

	_, err = booker.Book(context.Background(), req)
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}
