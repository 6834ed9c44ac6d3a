// Package tenant models the plan and quota view of a tenant.
package tenant

import "fmt"

// Decision is the result of a quota check. It is never persisted.
type Decision struct {
	ok      bool
	reason  string
	host    string
	current int
	limit   int
	plan    string
}

// Allow returns a positive decision.
func Allow(host, plan string, current, limit int) Decision {
	return Decision{ok: true, host: host, plan: plan, current: current, limit: limit}
}

// Deny returns a negative decision for a tenant at its plan limit.
func Deny(host, plan string, current, limit int) Decision {
	return Decision{
		ok:      false,
		reason:  fmt.Sprintf("site limit reached for plan %s (%d/%d)", plan, current, limit),
		host:    host,
		current: current,
		limit:   limit,
		plan:    plan,
	}
}

// OK reports whether the tenant may add the host.
func (d Decision) OK() bool { return d.ok }

// Reason explains a denial. Empty when OK.
func (d Decision) Reason() string { return d.reason }

// Host is the host the decision was made for.
func (d Decision) Host() string { return d.host }

// Current is the number of distinct hosts the tenant already has.
func (d Decision) Current() int { return d.current }

// Limit is the plan's host limit; negative means unlimited.
func (d Decision) Limit() int { return d.limit }

// Plan is the tenant's plan name.
func (d Decision) Plan() string { return d.plan }
