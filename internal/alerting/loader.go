package alerting

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of the rules file. Durations are strings
// ("72h") so the file stays hand-editable.
type fileConfig struct {
	Window             string  `yaml:"window"`
	DirtyThreshold     int     `yaml:"dirty_threshold"`
	UncertainThreshold int     `yaml:"uncertain_threshold"`
	HighConfidence     float64 `yaml:"high_confidence"`
	MinIssues          int     `yaml:"min_issues"`
}

// LoadConfigFromFile loads the rule configuration from a YAML file.
// Missing fields keep their defaults.
func LoadConfigFromFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()

	return LoadConfig(f)
}

// LoadConfig loads the rule configuration from a reader.
func LoadConfig(r io.Reader) (Config, error) {
	var fc fileConfig
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&fc); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("parse rules YAML: %w", err)
	}

	cfg := DefaultConfig()
	if fc.Window != "" {
		w, err := time.ParseDuration(fc.Window)
		if err != nil {
			return Config{}, fmt.Errorf("invalid window %q: %w", fc.Window, err)
		}
		cfg.Window = w
	}
	if fc.DirtyThreshold > 0 {
		cfg.DirtyThreshold = fc.DirtyThreshold
	}
	if fc.UncertainThreshold > 0 {
		cfg.UncertainThreshold = fc.UncertainThreshold
	}
	if fc.HighConfidence > 0 {
		cfg.HighConfidence = fc.HighConfidence
	}
	if fc.MinIssues > 0 {
		cfg.MinIssues = fc.MinIssues
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Watcher reloads the rules file into the engine when it changes, so
// thresholds can be tuned without a restart.
type Watcher struct {
	path    string
	engine  *Engine
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given rules file. The file's directory
// is watched so editor rename-and-replace saves are caught too.
func NewWatcher(path string, engine *Engine) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve rules path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(absPath)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch rules dir: %w", err)
	}

	return &Watcher{
		path:    absPath,
		engine:  engine,
		watcher: fw,
	}, nil
}

// Run processes filesystem events until the context is canceled. A reload
// failure keeps the previous configuration and is logged.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := LoadConfigFromFile(w.path)
			if err != nil {
				log.Printf("alerting: reload %s failed, keeping current config: %v", w.path, err)
				continue
			}
			if err := w.engine.UpdateConfig(cfg); err != nil {
				log.Printf("alerting: rejected config from %s: %v", w.path, err)
				continue
			}
			log.Printf("alerting: reloaded rule config from %s", w.path)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("alerting: watcher error: %v", err)
		}
	}
}
