// Package quota implements the two limit systems: per-user weekly swap
// allowances driven by the swap mode, and per-organization monthly plan
// limits.
package quota

import "time"

// Mode is a user's swap appetite. The names are product-facing and
// stored verbatim in the database.
type Mode string

const (
	ModeConservador Mode = "conservador"
	ModeModerado    Mode = "moderado"
	ModeAgresivo    Mode = "agresivo"
)

// SwapLimit returns the number of task swaps a user with the given mode
// may confirm per week. Unknown modes fall back to the conservative
// limit rather than failing open.
func SwapLimit(mode Mode) int {
	switch mode {
	case ModeAgresivo:
		return 10
	case ModeModerado:
		return 7
	default:
		return 5
	}
}

func ValidMode(mode Mode) bool {
	switch mode {
	case ModeConservador, ModeModerado, ModeAgresivo:
		return true
	}
	return false
}

// WeekNumber computes the 1-based program week containing now, counted
// from the shared week anchor. Times before the anchor clamp to week 1.
func WeekNumber(now, weekStart time.Time) int {
	if now.Before(weekStart) {
		return 1
	}
	days := int(now.Sub(weekStart).Hours() / 24)
	return days/7 + 1
}

type Plan string

const (
	PlanStarter    Plan = "starter"
	PlanGrowth     Plan = "growth"
	PlanEnterprise Plan = "enterprise"
)

type Resource string

const (
	ResourceUsers         Resource = "users"
	ResourceLeads         Resource = "leads"
	ResourceObjectives    Resource = "objectives"
	ResourceAIGenerations Resource = "ai_generations"
)

// Unlimited marks a resource with no cap on the plan.
const Unlimited = -1

var planLimits = map[Plan]map[Resource]int{
	PlanStarter: {
		ResourceUsers:         3,
		ResourceLeads:         100,
		ResourceObjectives:    5,
		ResourceAIGenerations: 10,
	},
	PlanGrowth: {
		ResourceUsers:         15,
		ResourceLeads:         2000,
		ResourceObjectives:    25,
		ResourceAIGenerations: 100,
	},
	PlanEnterprise: {
		ResourceUsers:         Unlimited,
		ResourceLeads:         Unlimited,
		ResourceObjectives:    Unlimited,
		ResourceAIGenerations: Unlimited,
	},
}

// PlanLimit returns the cap for a resource on a plan. Unknown plans get
// starter limits.
func PlanLimit(plan Plan, resource Resource) int {
	limits, ok := planLimits[plan]
	if !ok {
		limits = planLimits[PlanStarter]
	}
	limit, ok := limits[resource]
	if !ok {
		return 0
	}
	return limit
}

// MonthStart returns midnight UTC on the first day of now's calendar
// month. Monthly counters reset on this boundary, not on a rolling
// 30-day window.
func MonthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Status is the outcome of checking a counter against a limit.
type Status struct {
	Allowed   bool `json:"allowed"`
	Limit     int  `json:"limit"`
	Current   int  `json:"current"`
	Remaining int  `json:"remaining"`
}

// Evaluate compares a current usage count against a limit. A limit of
// Unlimited always allows and reports Remaining as Unlimited.
func Evaluate(limit, current int) Status {
	if limit == Unlimited {
		return Status{Allowed: true, Limit: Unlimited, Current: current, Remaining: Unlimited}
	}
	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Allowed:   current < limit,
		Limit:     limit,
		Current:   current,
		Remaining: remaining,
	}
}
