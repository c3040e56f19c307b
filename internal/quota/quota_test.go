package quota

import (
	"testing"
	"time"
)

func TestSwapLimit(t *testing.T) {
	cases := []struct {
		mode Mode
		want int
	}{
		{ModeConservador, 5},
		{ModeModerado, 7},
		{ModeAgresivo, 10},
		{Mode(""), 5},
		{Mode("turbo"), 5},
	}
	for _, tc := range cases {
		if got := SwapLimit(tc.mode); got != tc.want {
			t.Errorf("SwapLimit(%q) = %d, want %d", tc.mode, got, tc.want)
		}
	}
}

func TestWeekNumber(t *testing.T) {
	anchor := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		now  time.Time
		want int
	}{
		{anchor, 1},
		{anchor.Add(6*24*time.Hour + 23*time.Hour), 1},
		{anchor.Add(7 * 24 * time.Hour), 2},
		{anchor.Add(13 * 24 * time.Hour), 2},
		{anchor.Add(14 * 24 * time.Hour), 3},
		{anchor.Add(-time.Hour), 1},
	}
	for _, tc := range cases {
		if got := WeekNumber(tc.now, anchor); got != tc.want {
			t.Errorf("WeekNumber(%v) = %d, want %d", tc.now, got, tc.want)
		}
	}
}

func TestPlanLimit(t *testing.T) {
	if got := PlanLimit(PlanStarter, ResourceUsers); got != 3 {
		t.Errorf("starter users limit = %d, want 3", got)
	}
	if got := PlanLimit(PlanEnterprise, ResourceLeads); got != Unlimited {
		t.Errorf("enterprise leads limit = %d, want unlimited", got)
	}
	if got := PlanLimit(Plan("unknown"), ResourceUsers); got != 3 {
		t.Errorf("unknown plan should fall back to starter, got %d", got)
	}
}

func TestMonthStart(t *testing.T) {
	now := time.Date(2026, 3, 17, 15, 4, 5, 0, time.FixedZone("X", 3600))
	got := MonthStart(now)
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("MonthStart = %v, want %v", got, want)
	}
}

func TestEvaluate(t *testing.T) {
	st := Evaluate(5, 4)
	if !st.Allowed || st.Remaining != 1 {
		t.Errorf("Evaluate(5, 4) = %+v, want allowed with 1 remaining", st)
	}
	st = Evaluate(5, 5)
	if st.Allowed || st.Remaining != 0 {
		t.Errorf("Evaluate(5, 5) = %+v, want denied with 0 remaining", st)
	}
	st = Evaluate(5, 9)
	if st.Allowed || st.Remaining != 0 {
		t.Errorf("Evaluate(5, 9) = %+v, want denied with 0 remaining", st)
	}
	st = Evaluate(Unlimited, 100000)
	if !st.Allowed || st.Remaining != Unlimited {
		t.Errorf("Evaluate(unlimited) = %+v, want always allowed", st)
	}
}
