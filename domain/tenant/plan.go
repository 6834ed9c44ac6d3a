package tenant

import (
	"fmt"
	"maps"
	"slices"
)

// Unlimited marks a plan without a host limit.
const Unlimited = -1

// Default plan names.
const (
	PlanFree       = "free"
	PlanStarter    = "starter"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Limits maps plan names to the maximum number of distinct hosts.
type Limits struct {
	byPlan      map[string]int
	defaultPlan string
}

// NewLimits creates a plan table. defaultPlan must be present in byPlan.
func NewLimits(byPlan map[string]int, defaultPlan string) (Limits, error) {
	if len(byPlan) == 0 {
		return Limits{}, fmt.Errorf("NewLimits: no plans")
	}
	if _, ok := byPlan[defaultPlan]; !ok {
		return Limits{}, fmt.Errorf("NewLimits: default plan %q not in table", defaultPlan)
	}
	for name, limit := range byPlan {
		if limit < Unlimited {
			return Limits{}, fmt.Errorf("NewLimits: plan %q has invalid limit %d", name, limit)
		}
	}
	return Limits{byPlan: maps.Clone(byPlan), defaultPlan: defaultPlan}, nil
}

// DefaultLimits returns the built-in plan table.
func DefaultLimits() Limits {
	l, _ := NewLimits(map[string]int{
		PlanFree:       1,
		PlanStarter:    3,
		PlanPro:        10,
		PlanEnterprise: Unlimited,
	}, PlanFree)
	return l
}

// Limit returns the host limit for a plan and whether the plan is known.
func (l Limits) Limit(plan string) (int, bool) {
	v, ok := l.byPlan[plan]
	return v, ok
}

// Resolve maps an empty or unknown plan to the default plan.
func (l Limits) Resolve(plan string) string {
	if _, ok := l.byPlan[plan]; ok {
		return plan
	}
	return l.defaultPlan
}

// DefaultPlan returns the plan assigned to tenants without one.
func (l Limits) DefaultPlan() string { return l.defaultPlan }

// Plans returns the known plan names, sorted.
func (l Limits) Plans() []string {
	return slices.Sorted(maps.Keys(l.byPlan))
}

// WithDefault returns a copy of the table with a different default plan.
func (l Limits) WithDefault(plan string) (Limits, error) {
	return NewLimits(l.byPlan, plan)
}
