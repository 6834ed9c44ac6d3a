package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild_CollectsOptionsInOrder(t *testing.T) {
	q := Build(
		WithTenantID("t1"),
		WithID("d1"),
		WithOrderDesc("created_at"),
		WithOrderAsc("position"),
	)

	conds := q.Conditions()
	assert.Len(t, conds, 2)
	assert.Equal(t, "tenant_id", conds[0].Field())
	assert.Equal(t, "t1", conds[0].Value())
	assert.Equal(t, "id", conds[1].Field())

	orders := q.Orders()
	assert.Len(t, orders, 2)
	assert.Equal(t, "created_at", orders[0].Field())
	assert.False(t, orders[0].Ascending())
	assert.True(t, orders[1].Ascending())
	assert.Zero(t, q.LimitValue())
}

func TestConditions_ReturnsCopy(t *testing.T) {
	q := Build(WithID("x"))
	conds := q.Conditions()
	conds[0] = Condition{field: "other"}
	assert.Equal(t, "id", q.Conditions()[0].Field())
}

func TestWithPagination(t *testing.T) {
	q := Build(WithPagination(5, 15)...)
	assert.Equal(t, 5, q.LimitValue())
	assert.Equal(t, 15, q.OffsetValue())
}
