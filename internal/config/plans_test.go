package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/harvest/domain/tenant"
)

func TestParsePlans(t *testing.T) {
	data := []byte(`
default: Basic
plans:
  basic: 2
  Team: 5
  unlimited: -1
`)
	limits, err := ParsePlans(data, "")
	require.NoError(t, err)

	assert.Equal(t, "basic", limits.DefaultPlan())
	n, ok := limits.Limit("team")
	assert.True(t, ok)
	assert.Equal(t, 5, n)
	n, _ = limits.Limit("unlimited")
	assert.Equal(t, tenant.Unlimited, n)
	assert.Equal(t, []string{"basic", "team", "unlimited"}, limits.Plans())
}

func TestParsePlans_DefaultOverride(t *testing.T) {
	limits, err := ParsePlans([]byte("default: a\nplans:\n  a: 1\n  b: 2\n"), "b")
	require.NoError(t, err)
	assert.Equal(t, "b", limits.DefaultPlan())
}

func TestParsePlans_Invalid(t *testing.T) {
	_, err := ParsePlans([]byte("plans: [1, 2"), "")
	assert.Error(t, err)

	_, err = ParsePlans([]byte("default: gold\nplans:\n  free: 1\n"), "")
	assert.Error(t, err, "default must be a known plan")

	_, err = ParsePlans([]byte("default: free\nplans:\n  free: -5\n"), "")
	assert.Error(t, err)
}

func TestLoadPlans(t *testing.T) {
	limits, err := LoadPlans(NewAppConfig())
	require.NoError(t, err)
	assert.Equal(t, tenant.PlanFree, limits.DefaultPlan())

	limits, err = LoadPlans(NewAppConfigWithOptions(WithDefaultPlan(tenant.PlanStarter)))
	require.NoError(t, err)
	assert.Equal(t, tenant.PlanStarter, limits.DefaultPlan())

	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default: solo\nplans:\n  solo: 1\n"), 0o600))
	limits, err = LoadPlans(NewAppConfigWithOptions(WithPlansFile(path)))
	require.NoError(t, err)
	assert.Equal(t, []string{"solo"}, limits.Plans())

	_, err = LoadPlans(NewAppConfigWithOptions(WithPlansFile(filepath.Join(t.TempDir(), "missing.yaml"))))
	assert.Error(t, err)
}
