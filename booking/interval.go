package booking

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End). An interval with
// End <= Start is empty and ignored everywhere.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Empty() bool {
	return !iv.End.After(iv.Start)
}

// Overlaps reports whether two half-open intervals share any instant.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// merge sorts intervals by start and coalesces overlapping or touching
// ranges into disjoint ones. Declared availability blocks may overlap; the
// subtraction below requires disjoint input.
func merge(intervals []Interval) []Interval {
	in := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if !iv.Empty() {
			in = append(in, iv)
		}
	}
	if len(in) == 0 {
		return nil
	}

	sort.Slice(in, func(i, j int) bool { return in[i].Start.Before(in[j].Start) })

	out := []Interval{in[0]}
	for _, iv := range in[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// subtract removes every busy interval from the given disjoint, sorted
// blocks. A busy interval outside all blocks is a no-op; one overlapping a
// block truncates or splits it, never discards the whole block.
func subtract(blocks, busy []Interval) []Interval {
	free := blocks
	for _, b := range busy {
		if b.Empty() {
			continue
		}
		var next []Interval
		for _, f := range free {
			if !f.Overlaps(b) {
				next = append(next, f)
				continue
			}
			if b.Start.After(f.Start) {
				next = append(next, Interval{Start: f.Start, End: b.Start})
			}
			if b.End.Before(f.End) {
				next = append(next, Interval{Start: b.End, End: f.End})
			}
		}
		free = next
	}
	return free
}

// slotStarts generates candidate start times at step intervals inside each
// free range such that [start, start+duration) fits entirely within it.
// Steps are anchored at each range's own start.
func slotStarts(free []Interval, duration, step time.Duration) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	var starts []time.Time
	for _, f := range free {
		for s := f.Start; !s.Add(duration).After(f.End); s = s.Add(step) {
			starts = append(starts, s)
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	return starts
}
