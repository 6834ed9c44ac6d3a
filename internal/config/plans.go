package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/helixml/harvest/domain/tenant"
)

// plansFile is the on-disk shape of the plan limit table:
//
//	default: free
//	plans:
//	  free: 1
//	  starter: 3
//	  enterprise: -1
type plansFile struct {
	Default string         `yaml:"default"`
	Plans   map[string]int `yaml:"plans"`
}

// ParsePlans decodes a YAML plan table. defaultPlan, when non-empty,
// overrides the file's default.
func ParsePlans(data []byte, defaultPlan string) (tenant.Limits, error) {
	var f plansFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return tenant.Limits{}, fmt.Errorf("parse plans: %w", err)
	}

	byPlan := make(map[string]int, len(f.Plans))
	for name, limit := range f.Plans {
		byPlan[strings.ToLower(strings.TrimSpace(name))] = limit
	}

	def := f.Default
	if defaultPlan != "" {
		def = defaultPlan
	}
	limits, err := tenant.NewLimits(byPlan, strings.ToLower(def))
	if err != nil {
		return tenant.Limits{}, fmt.Errorf("parse plans: %w", err)
	}
	return limits, nil
}

// LoadPlans returns the plan limit table for cfg: the plans file when one
// is configured, otherwise the built-in table.
func LoadPlans(cfg AppConfig) (tenant.Limits, error) {
	if cfg.PlansFile() == "" {
		if cfg.DefaultPlan() == "" {
			return tenant.DefaultLimits(), nil
		}
		return tenant.DefaultLimits().WithDefault(cfg.DefaultPlan())
	}

	data, err := os.ReadFile(cfg.PlansFile())
	if err != nil {
		return tenant.Limits{}, fmt.Errorf("read plans file: %w", err)
	}
	return ParsePlans(data, cfg.DefaultPlan())
}
