// Package alerting provides the FleetWatch alert rule engine. Three fixed
// rules watch a bus's recent inspection history: repeated dirty events,
// a single high-confidence very-dirty event, and recurring uncertain
// classifications. Thresholds and the evaluation window are configuration,
// not constants, and can be reloaded at runtime.
package alerting

import (
	"fmt"
	"time"
)

// Defaults for the rule configuration.
const (
	DefaultWindow             = 72 * time.Hour
	DefaultDirtyThreshold     = 2
	DefaultUncertainThreshold = 3
	DefaultHighConfidence     = 0.65
	DefaultMinIssues          = 2
)

// Config holds the tunable inputs of the rule engine.
type Config struct {
	// Window is the trailing interval bounding "recent" event counts.
	Window time.Duration `yaml:"window"`
	// DirtyThreshold is the dirty-event count that triggers repeated_dirty.
	DirtyThreshold int `yaml:"dirty_threshold"`
	// UncertainThreshold is the uncertain-event count that triggers
	// recurrent_uncertain.
	UncertainThreshold int `yaml:"uncertain_threshold"`
	// HighConfidence is the minimum classifier confidence for very_dirty.
	HighConfidence float64 `yaml:"high_confidence"`
	// MinIssues is the minimum detected-issue count for very_dirty.
	MinIssues int `yaml:"min_issues"`
}

// DefaultConfig returns the default rule configuration.
func DefaultConfig() Config {
	return Config{
		Window:             DefaultWindow,
		DirtyThreshold:     DefaultDirtyThreshold,
		UncertainThreshold: DefaultUncertainThreshold,
		HighConfidence:     DefaultHighConfidence,
		MinIssues:          DefaultMinIssues,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", c.Window)
	}
	if c.DirtyThreshold < 1 {
		return fmt.Errorf("dirty_threshold must be at least 1, got %d", c.DirtyThreshold)
	}
	if c.UncertainThreshold < 1 {
		return fmt.Errorf("uncertain_threshold must be at least 1, got %d", c.UncertainThreshold)
	}
	if c.HighConfidence < 0 || c.HighConfidence > 1 {
		return fmt.Errorf("high_confidence must be in [0,1], got %g", c.HighConfidence)
	}
	if c.MinIssues < 0 {
		return fmt.Errorf("min_issues must not be negative, got %d", c.MinIssues)
	}
	return nil
}
