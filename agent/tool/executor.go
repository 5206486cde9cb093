package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	contractx "github.com/luis-bzk/llm-agent/agent/contract"
	"github.com/luis-bzk/llm-agent/booking"
	"github.com/luis-bzk/llm-agent/store"
)

// Executor dispatches operation requests against the store and the booking
// layer. Failures are reported inside the result, never raised: the
// assistant reads them and explains to the caller.
type Executor struct {
	store  *store.Store
	engine *booking.Engine
	booker *booking.Booker
	now    func() time.Time
}

var _ contractx.OpExecutor = (*Executor)(nil)

func NewExecutor(st *store.Store, engine *booking.Engine, booker *booking.Booker) *Executor {
	return &Executor{store: st, engine: engine, booker: booker, now: time.Now}
}

// Execute runs a batch and returns one result per request, in request order.
// Read-only lookups fan out concurrently; mutating operations run one at a
// time in the order the assistant asked for them.
func (e *Executor) Execute(ctx context.Context, reqs []contractx.OpRequest, env contractx.OpEnv) []contractx.OpResult {
	results := make([]contractx.OpResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		if !readOnlyOps[req.Op] {
			continue
		}
		i, req := i, req
		g.Go(func() error {
			results[i] = e.runOne(gctx, req, env)
			return nil
		})
	}
	_ = g.Wait()

	for i, req := range reqs {
		if readOnlyOps[req.Op] {
			continue
		}
		results[i] = e.runOne(ctx, req, env)
	}
	return results
}

func (e *Executor) runOne(ctx context.Context, req contractx.OpRequest, env contractx.OpEnv) contractx.OpResult {
	started := time.Now()
	result, err := e.dispatch(ctx, req, env)

	out := contractx.OpResult{ID: req.ID, Op: req.Op}
	if err != nil {
		out.Error = err.Error()
		log.Warn().Str("op", req.Op).Err(err).Dur("elapsed", time.Since(started)).Msg("operation failed")
	} else {
		out.Result = result
		log.Debug().Str("op", req.Op).Dur("elapsed", time.Since(started)).Msg("operation done")
	}
	return out
}

func (e *Executor) dispatch(ctx context.Context, req contractx.OpRequest, env contractx.OpEnv) (any, error) {
	switch req.Op {
	case OpGetServices:
		return e.getServices(ctx, req.Args, env)
	case OpGetCategories:
		return e.getCategories(ctx, req.Args, env)
	case OpGetServiceDetails:
		return e.getServiceDetails(ctx, req.Args, env)
	case OpGetAvailableSlots:
		return e.getAvailableSlots(ctx, req.Args, env)
	case OpGetCalendarAvailability:
		return e.getCalendarAvailability(ctx, req.Args, env)
	case OpFindOrCreateUser:
		return e.findOrCreateUser(ctx, req.Args, env)
	case OpGetUserInfo:
		return e.getUserInfo(ctx, req.Args, env)
	case OpGetUserAppointments:
		return e.getUserAppointments(ctx, req.Args, env)
	case OpCreateAppointment:
		return e.createAppointment(ctx, req.Args, env)
	case OpCancelAppointment:
		return e.cancelAppointment(ctx, req.Args, env)
	case OpRescheduleAppointment:
		return e.rescheduleAppointment(ctx, req.Args, env)
	default:
		return nil, fmt.Errorf("unknown operation %q", req.Op)
	}
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// branchID prefers the assistant-supplied argument and falls back to the
// turn's resolved branch.
func branchID(args map[string]any, env contractx.OpEnv) (string, error) {
	if id := argString(args, "branch_id"); id != "" {
		return id, nil
	}
	if env.System.Branch != nil {
		return env.System.Branch.ID, nil
	}
	return "", fmt.Errorf("branch_id is required")
}

// parseDate validates a YYYY-MM-DD argument against the booking window. The
// window is inclusive of today and of the last day inside it.
func parseDate(raw string, env contractx.OpEnv) (time.Time, error) {
	parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", raw)
	}
	now := env.System.Now
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if parsed.Before(today) {
		return time.Time{}, fmt.Errorf("cannot schedule on past dates, pick a future date")
	}
	window := env.Config.BookingWindowDays
	if window > 0 && parsed.After(today.AddDate(0, 0, window)) {
		return time.Time{}, fmt.Errorf("can only schedule within the next %d days", window)
	}
	return parsed, nil
}

func parseClock(raw string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, use HH:MM", raw)
	}
	return t.Hour(), t.Minute(), nil
}
