package alerting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestLoadConfig tests parsing rule configuration from YAML.
func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		expectError bool
		check       func(t *testing.T, cfg Config)
	}{
		{
			name: "full config",
			yaml: `
window: 48h
dirty_threshold: 3
uncertain_threshold: 5
high_confidence: 0.8
min_issues: 4
`,
			check: func(t *testing.T, cfg Config) {
				if cfg.Window != 48*time.Hour {
					t.Errorf("window = %s, want 48h", cfg.Window)
				}
				if cfg.DirtyThreshold != 3 {
					t.Errorf("dirty_threshold = %d, want 3", cfg.DirtyThreshold)
				}
				if cfg.UncertainThreshold != 5 {
					t.Errorf("uncertain_threshold = %d, want 5", cfg.UncertainThreshold)
				}
				if cfg.HighConfidence != 0.8 {
					t.Errorf("high_confidence = %g, want 0.8", cfg.HighConfidence)
				}
				if cfg.MinIssues != 4 {
					t.Errorf("min_issues = %d, want 4", cfg.MinIssues)
				}
			},
		},
		{
			name: "partial config keeps defaults",
			yaml: `dirty_threshold: 4`,
			check: func(t *testing.T, cfg Config) {
				if cfg.DirtyThreshold != 4 {
					t.Errorf("dirty_threshold = %d, want 4", cfg.DirtyThreshold)
				}
				if cfg.Window != DefaultWindow {
					t.Errorf("window = %s, want default %s", cfg.Window, DefaultWindow)
				}
				if cfg.HighConfidence != DefaultHighConfidence {
					t.Errorf("high_confidence = %g, want default %g", cfg.HighConfidence, DefaultHighConfidence)
				}
			},
		},
		{
			name: "empty file yields defaults",
			yaml: "",
			check: func(t *testing.T, cfg Config) {
				if cfg != DefaultConfig() {
					t.Errorf("cfg = %+v, want defaults", cfg)
				}
			},
		},
		{
			name:        "bad window duration",
			yaml:        `window: three days`,
			expectError: true,
		},
		{
			name:        "invalid yaml",
			yaml:        `window: [unterminated`,
			expectError: true,
		},
		{
			name: "window with minutes",
			yaml: `window: 90m`,
			check: func(t *testing.T, cfg Config) {
				if cfg.Window != 90*time.Minute {
					t.Errorf("window = %s, want 90m", cfg.Window)
				}
			},
		},
		{
			name:        "confidence out of range fails validation",
			yaml:        `high_confidence: 1.5`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(strings.NewReader(tt.yaml))
			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

// TestLoadConfigFromFile tests loading from a file on disk.
func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")

	content := "window: 24h\ndirty_threshold: 2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules file: %v", err)
	}

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile failed: %v", err)
	}
	if cfg.Window != 24*time.Hour {
		t.Errorf("window = %s, want 24h", cfg.Window)
	}

	if _, err := LoadConfigFromFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
