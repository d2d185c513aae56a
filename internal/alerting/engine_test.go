package alerting

import (
	"testing"
	"time"

	"github.com/good-yellow-bee/fleetwatch/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

// mkEvent builds a minimal event for rule evaluation.
func mkEvent(busID string, state models.CleanState, createdAt time.Time) *models.InspectionEvent {
	return &models.InspectionEvent{
		BusID:     busID,
		State:     state,
		CreatedAt: createdAt,
	}
}

// TestEngine_RepeatedDirty tests the repeated-dirty rule against various
// histories.
func TestEngine_RepeatedDirty(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := DefaultConfig() // window 72h, dirty threshold 2

	tests := []struct {
		name       string
		history    []*models.InspectionEvent
		unresolved map[models.AlertKind]bool
		expectKind bool
	}{
		{
			name: "single dirty event - below threshold",
			history: []*models.InspectionEvent{
				mkEvent("bus-1", models.StateDirty, now),
			},
			expectKind: false,
		},
		{
			name: "two dirty events in window - triggers",
			history: []*models.InspectionEvent{
				mkEvent("bus-1", models.StateDirty, now.Add(-24*time.Hour)),
				mkEvent("bus-1", models.StateDirty, now),
			},
			expectKind: true,
		},
		{
			name: "two dirty but one outside window - below threshold",
			history: []*models.InspectionEvent{
				mkEvent("bus-1", models.StateDirty, now.Add(-80*time.Hour)),
				mkEvent("bus-1", models.StateDirty, now),
			},
			expectKind: false,
		},
		{
			name: "clean events between dirty ones do not count",
			history: []*models.InspectionEvent{
				mkEvent("bus-1", models.StateDirty, now.Add(-10*time.Hour)),
				mkEvent("bus-1", models.StateClean, now.Add(-5*time.Hour)),
				mkEvent("bus-1", models.StateDirty, now),
			},
			expectKind: true,
		},
		{
			name: "third dirty suppressed by unresolved alert",
			history: []*models.InspectionEvent{
				mkEvent("bus-1", models.StateDirty, now.Add(-10*time.Hour)),
				mkEvent("bus-1", models.StateDirty, now.Add(-5*time.Hour)),
				mkEvent("bus-1", models.StateDirty, now),
			},
			unresolved: map[models.AlertKind]bool{models.AlertRepeatedDirty: true},
			expectKind: false,
		},
	}

	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			latest := tt.history[len(tt.history)-1]
			proposals := engine.Evaluate(tt.history, latest, tt.unresolved, now)

			found := false
			for _, p := range proposals {
				if p.Kind == models.AlertRepeatedDirty {
					found = true
					if p.Severity != models.SeverityWarn {
						t.Errorf("expected severity %s, got %s", models.SeverityWarn, p.Severity)
					}
					if p.BusID != "bus-1" {
						t.Errorf("expected bus-1, got %s", p.BusID)
					}
				}
			}
			if found != tt.expectKind {
				t.Errorf("repeated_dirty proposal = %t, want %t (proposals: %v)", found, tt.expectKind, proposals)
			}
		})
	}
}

// TestEngine_VeryDirty tests the high-confidence very-dirty rule.
func TestEngine_VeryDirty(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := DefaultConfig() // high confidence 0.65, min issues 2

	tests := []struct {
		name       string
		confidence *float64
		issues     []string
		unresolved map[models.AlertKind]bool
		expectKind bool
	}{
		{
			name:       "high confidence with enough issues - triggers",
			confidence: floatPtr(0.80),
			issues:     []string{"trash", "spill", "graffiti"},
			expectKind: true,
		},
		{
			name:       "confidence exactly at threshold - triggers",
			confidence: floatPtr(0.65),
			issues:     []string{"trash", "spill"},
			expectKind: true,
		},
		{
			name:       "low confidence - no alert",
			confidence: floatPtr(0.50),
			issues:     []string{"trash", "spill", "graffiti"},
			expectKind: false,
		},
		{
			name:       "too few issues - no alert",
			confidence: floatPtr(0.90),
			issues:     []string{"trash"},
			expectKind: false,
		},
		{
			name:       "missing confidence - no alert",
			confidence: nil,
			issues:     []string{"trash", "spill"},
			expectKind: false,
		},
		{
			name:       "suppressed by unresolved very_dirty",
			confidence: floatPtr(0.90),
			issues:     []string{"trash", "spill", "graffiti"},
			unresolved: map[models.AlertKind]bool{models.AlertVeryDirty: true},
			expectKind: false,
		},
	}

	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			latest := mkEvent("bus-1", models.StateDirty, now)
			latest.Confidence = tt.confidence
			latest.Issues = tt.issues

			proposals := engine.Evaluate([]*models.InspectionEvent{latest}, latest, tt.unresolved, now)

			found := false
			for _, p := range proposals {
				if p.Kind == models.AlertVeryDirty {
					found = true
					if p.Severity != models.SeverityCritical {
						t.Errorf("expected severity %s, got %s", models.SeverityCritical, p.Severity)
					}
				}
			}
			if found != tt.expectKind {
				t.Errorf("very_dirty proposal = %t, want %t", found, tt.expectKind)
			}
		})
	}
}

// TestEngine_RecurrentUncertain tests the recurrent-uncertain rule.
func TestEngine_RecurrentUncertain(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := DefaultConfig() // uncertain threshold 3

	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	t.Run("two uncertain events - below threshold", func(t *testing.T) {
		history := []*models.InspectionEvent{
			mkEvent("bus-1", models.StateUncertain, now.Add(-2*time.Hour)),
			mkEvent("bus-1", models.StateUncertain, now),
		}
		proposals := engine.Evaluate(history, history[1], nil, now)
		if len(proposals) != 0 {
			t.Errorf("expected no proposals, got %v", proposals)
		}
	})

	t.Run("three uncertain events - triggers info alert", func(t *testing.T) {
		history := []*models.InspectionEvent{
			mkEvent("bus-1", models.StateUncertain, now.Add(-4*time.Hour)),
			mkEvent("bus-1", models.StateUncertain, now.Add(-2*time.Hour)),
			mkEvent("bus-1", models.StateUncertain, now),
		}
		proposals := engine.Evaluate(history, history[2], nil, now)
		if len(proposals) != 1 {
			t.Fatalf("expected 1 proposal, got %d", len(proposals))
		}
		if proposals[0].Kind != models.AlertRecurrentUncertain {
			t.Errorf("expected kind %s, got %s", models.AlertRecurrentUncertain, proposals[0].Kind)
		}
		if proposals[0].Severity != models.SeverityInfo {
			t.Errorf("expected severity %s, got %s", models.SeverityInfo, proposals[0].Severity)
		}
	})
}

// TestEngine_WindowBoundary tests that the evaluation window is half-open:
// an event exactly at now-window is excluded, one just inside counts.
func TestEngine_WindowBoundary(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := DefaultConfig()
	cutoff := now.Add(-cfg.Window)

	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	t.Run("event exactly at cutoff excluded", func(t *testing.T) {
		history := []*models.InspectionEvent{
			mkEvent("bus-1", models.StateDirty, cutoff),
			mkEvent("bus-1", models.StateDirty, now),
		}
		proposals := engine.Evaluate(history, history[1], nil, now)
		if len(proposals) != 0 {
			t.Errorf("event at cutoff should not count, got %v", proposals)
		}
	})

	t.Run("event just inside cutoff counts", func(t *testing.T) {
		history := []*models.InspectionEvent{
			mkEvent("bus-1", models.StateDirty, cutoff.Add(time.Millisecond)),
			mkEvent("bus-1", models.StateDirty, now),
		}
		proposals := engine.Evaluate(history, history[1], nil, now)
		if len(proposals) != 1 {
			t.Fatalf("expected 1 proposal, got %d", len(proposals))
		}
		if proposals[0].Kind != models.AlertRepeatedDirty {
			t.Errorf("expected kind %s, got %s", models.AlertRepeatedDirty, proposals[0].Kind)
		}
	})
}

// TestEngine_MultipleProposals tests that one event can satisfy more than one
// rule at once.
func TestEngine_MultipleProposals(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	engine, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	latest := mkEvent("bus-1", models.StateDirty, now)
	latest.Confidence = floatPtr(0.90)
	latest.Issues = []string{"trash", "spill"}

	history := []*models.InspectionEvent{
		mkEvent("bus-1", models.StateDirty, now.Add(-time.Hour)),
		latest,
	}

	proposals := engine.Evaluate(history, latest, nil, now)
	if len(proposals) != 2 {
		t.Fatalf("expected 2 proposals, got %d: %v", len(proposals), proposals)
	}

	kinds := map[models.AlertKind]bool{}
	for _, p := range proposals {
		kinds[p.Kind] = true
	}
	if !kinds[models.AlertRepeatedDirty] || !kinds[models.AlertVeryDirty] {
		t.Errorf("expected repeated_dirty and very_dirty, got %v", kinds)
	}
}

// TestEngine_UpdateConfig tests hot configuration swaps.
func TestEngine_UpdateConfig(t *testing.T) {
	engine, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	newCfg := DefaultConfig()
	newCfg.DirtyThreshold = 5
	if err := engine.UpdateConfig(newCfg); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if got := engine.Config().DirtyThreshold; got != 5 {
		t.Errorf("expected dirty threshold 5, got %d", got)
	}

	bad := DefaultConfig()
	bad.Window = -time.Hour
	if err := engine.UpdateConfig(bad); err == nil {
		t.Error("expected error for negative window")
	}
	// Rejected config must not replace the active one
	if got := engine.Config().DirtyThreshold; got != 5 {
		t.Errorf("config changed after rejected update, threshold = %d", got)
	}
}

// TestConfig_Validate tests the rule configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}, expectError: false},
		{name: "zero window", mutate: func(c *Config) { c.Window = 0 }, expectError: true},
		{name: "zero dirty threshold", mutate: func(c *Config) { c.DirtyThreshold = 0 }, expectError: true},
		{name: "zero uncertain threshold", mutate: func(c *Config) { c.UncertainThreshold = 0 }, expectError: true},
		{name: "confidence above one", mutate: func(c *Config) { c.HighConfidence = 1.5 }, expectError: true},
		{name: "negative confidence", mutate: func(c *Config) { c.HighConfidence = -0.1 }, expectError: true},
		{name: "negative min issues", mutate: func(c *Config) { c.MinIssues = -1 }, expectError: true},
		{name: "zero min issues allowed", mutate: func(c *Config) { c.MinIssues = 0 }, expectError: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
