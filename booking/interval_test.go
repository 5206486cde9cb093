package booking

import (
	"testing"
	"time"
)

func at(t *testing.T, hhmm string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", "2026-03-02 "+hhmm)
	if err != nil {
		t.Fatalf("parse %q: %v", hhmm, err)
	}
	return parsed
}

func iv(t *testing.T, from, to string) Interval {
	t.Helper()
	return Interval{Start: at(t, from), End: at(t, to)}
}

func TestMergeCoalescesOverlappingBlocks(t *testing.T) {
	t.Parallel()

	out := merge([]Interval{
		iv(t, "13:00", "16:00"),
		iv(t, "08:00", "12:00"),
		iv(t, "11:00", "14:00"),
	})
	if len(out) != 1 {
		t.Fatalf("expected 1 merged block, got %d", len(out))
	}
	if !out[0].Start.Equal(at(t, "08:00")) || !out[0].End.Equal(at(t, "16:00")) {
		t.Fatalf("unexpected merged block: %v", out[0])
	}
}

func TestMergeKeepsDisjointBlocks(t *testing.T) {
	t.Parallel()

	out := merge([]Interval{
		iv(t, "14:00", "18:00"),
		iv(t, "08:00", "12:00"),
	})
	if len(out) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(out))
	}
	if !out[0].Start.Equal(at(t, "08:00")) {
		t.Fatalf("blocks not sorted: %v", out)
	}
}

func TestMergeDropsEmptyIntervals(t *testing.T) {
	t.Parallel()

	out := merge([]Interval{
		iv(t, "10:00", "10:00"),
		iv(t, "12:00", "11:00"),
	})
	if len(out) != 0 {
		t.Fatalf("expected no blocks, got %v", out)
	}
}

func TestSubtractBusyOutsideBlocksIsIgnored(t *testing.T) {
	t.Parallel()

	free := subtract(
		[]Interval{iv(t, "08:00", "12:00")},
		[]Interval{iv(t, "13:00", "14:00")},
	)
	if len(free) != 1 || !free[0].Start.Equal(at(t, "08:00")) || !free[0].End.Equal(at(t, "12:00")) {
		t.Fatalf("block should be untouched, got %v", free)
	}
}

func TestSubtractPartialOverlapTruncates(t *testing.T) {
	t.Parallel()

	free := subtract(
		[]Interval{iv(t, "08:00", "12:00")},
		[]Interval{iv(t, "11:00", "13:00")},
	)
	if len(free) != 1 || !free[0].End.Equal(at(t, "11:00")) {
		t.Fatalf("expected truncation to 11:00, got %v", free)
	}
}

func TestSubtractSplitsBlockAroundBusy(t *testing.T) {
	t.Parallel()

	free := subtract(
		[]Interval{iv(t, "08:00", "16:00")},
		[]Interval{iv(t, "12:00", "13:00")},
	)
	if len(free) != 2 {
		t.Fatalf("expected split into 2 ranges, got %v", free)
	}
	if !free[0].End.Equal(at(t, "12:00")) || !free[1].Start.Equal(at(t, "13:00")) {
		t.Fatalf("unexpected split: %v", free)
	}
}

func TestSlotStartsFitEntirelyInsideRange(t *testing.T) {
	t.Parallel()

	starts := slotStarts(
		[]Interval{iv(t, "08:00", "09:15")},
		30*time.Minute,
		30*time.Minute,
	)
	// 08:45+30m would extend past 09:15.
	if len(starts) != 2 {
		t.Fatalf("expected 2 starts, got %v", starts)
	}
	if !starts[0].Equal(at(t, "08:00")) || !starts[1].Equal(at(t, "08:30")) {
		t.Fatalf("unexpected starts: %v", starts)
	}
}

func TestSlotScenarioBusyMidday(t *testing.T) {
	t.Parallel()

	free := subtract(
		merge([]Interval{iv(t, "08:00", "16:00")}),
		[]Interval{iv(t, "12:00", "13:00")},
	)
	starts := slotStarts(free, 30*time.Minute, 30*time.Minute)

	var got []string
	for _, s := range starts {
		got = append(got, s.Format("15:04"))
	}

	want := []string{
		"08:00", "08:30", "09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
		"13:00", "13:30", "14:00", "14:30", "15:00", "15:30",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d slots, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
