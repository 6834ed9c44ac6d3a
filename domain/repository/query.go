// Package repository holds the query options shared by the domain stores.
package repository

// Option modifies a Query.
type Option func(Query) Query

// Query is an equality filter with ordering and a page window.
type Query struct {
	conditions []Condition
	orders     []Order
	limit      int
	offset     int
}

// Build folds options into a Query.
func Build(options ...Option) Query {
	q := Query{}
	for _, opt := range options {
		q = opt(q)
	}
	return q
}

// Conditions returns a copy of the filters.
func (q Query) Conditions() []Condition {
	return append([]Condition(nil), q.conditions...)
}

// Orders returns a copy of the sort keys.
func (q Query) Orders() []Order {
	return append([]Order(nil), q.orders...)
}

// LimitValue is the page size; 0 means unbounded.
func (q Query) LimitValue() int { return q.limit }

// OffsetValue is the number of rows skipped.
func (q Query) OffsetValue() int { return q.offset }

// Condition matches a column against one value.
type Condition struct {
	field string
	value any
}

func (c Condition) Field() string { return c.field }
func (c Condition) Value() any    { return c.value }

// Order sorts by one column.
type Order struct {
	field     string
	ascending bool
}

func (o Order) Field() string   { return o.field }
func (o Order) Ascending() bool { return o.ascending }

// WithCondition filters on field = value. Typed options in the domain
// packages wrap it.
func WithCondition(field string, value any) Option {
	return func(q Query) Query {
		q.conditions = append(q.conditions, Condition{field: field, value: value})
		return q
	}
}

// WithID filters by primary key.
func WithID(id string) Option { return WithCondition("id", id) }

// WithTenantID scopes a lookup to one tenant.
func WithTenantID(tenantID string) Option { return WithCondition("tenant_id", tenantID) }

// WithOrderAsc sorts ascending on field.
func WithOrderAsc(field string) Option { return withOrder(field, true) }

// WithOrderDesc sorts descending on field.
func WithOrderDesc(field string) Option { return withOrder(field, false) }

func withOrder(field string, ascending bool) Option {
	return func(q Query) Query {
		q.orders = append(q.orders, Order{field: field, ascending: ascending})
		return q
	}
}

// WithPagination limits the result to one page.
func WithPagination(limit, offset int) []Option {
	return []Option{func(q Query) Query {
		q.limit, q.offset = limit, offset
		return q
	}}
}
