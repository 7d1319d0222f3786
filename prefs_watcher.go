// prefs_watcher.go: external preference file watching
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/argus"
	"gopkg.in/yaml.v3"
)

// prefsPollInterval is how often the watched preference file is polled.
// Selection changes are user-driven and rare, so a relaxed interval is
// enough.
const prefsPollInterval = 2 * time.Second

// searchPrefs is the externally editable selection state. Empty names
// mean "use the build default".
type searchPrefs struct {
	DefaultEngineName string `json:"default_engine_name" yaml:"default_engine_name"`
	CurrentEngineName string `json:"current_engine_name" yaml:"current_engine_name"`
}

// PrefsWatcher applies external edits of the preference file to the
// live registry. Another process (or the user with an editor) changes
// the default or current engine name and the registry follows without a
// restart.
type PrefsWatcher struct {
	registry *Registry
	logger   Logger
	watcher  *argus.Watcher
	path     string

	mutex    sync.Mutex
	enabled  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once
}

// NewPrefsWatcher starts watching the registry's configured preference
// file. The returned watcher is already running.
func NewPrefsWatcher(registry *Registry) (*PrefsWatcher, error) {
	pw := &PrefsWatcher{
		registry: registry,
		logger:   registry.config.Logger,
		path:     registry.config.PrefsFile,
	}
	pw.watcher = argus.New(argus.Config{
		PollInterval:         prefsPollInterval,
		CacheTTL:             prefsPollInterval / 2,
		MaxWatchedFiles:      2,
		OptimizationStrategy: argus.OptimizationSingleEvent,
		ErrorHandler: func(err error, filepath string) {
			pw.logger.Error("preference file watching error",
				"error", err, "file", filepath)
		},
	})

	if err := pw.watcher.Watch(pw.path, pw.handleChange); err != nil {
		return nil, NewWatcherError("failed to watch preference file", err)
	}
	if err := pw.watcher.Start(); err != nil {
		return nil, NewWatcherError("failed to start preference watcher", err)
	}
	pw.enabled.Store(true)
	pw.logger.Info("preference watcher started",
		"path", pw.path, "poll_interval", prefsPollInterval)
	return pw, nil
}

// IsRunning reports whether the watcher is active.
func (pw *PrefsWatcher) IsRunning() bool {
	return pw.enabled.Load() && !pw.stopped.Load()
}

// Stop permanently stops the watcher.
func (pw *PrefsWatcher) Stop() error {
	if pw.stopped.Load() {
		return NewWatcherError("preference watcher already stopped", nil)
	}
	var stopErr error
	pw.stopOnce.Do(func() {
		pw.mutex.Lock()
		defer pw.mutex.Unlock()
		if !pw.enabled.CompareAndSwap(true, false) {
			stopErr = NewWatcherError("preference watcher is not running", nil)
			return
		}
		pw.stopped.Store(true)
		if err := pw.watcher.Stop(); err != nil {
			stopErr = NewWatcherError("failed to stop preference watcher", err)
			return
		}
		pw.logger.Info("preference watcher stopped")
	})
	return stopErr
}

// handleChange reloads and applies the preference file after a change.
func (pw *PrefsWatcher) handleChange(event argus.ChangeEvent) {
	if event.IsDelete {
		pw.logger.Warn("preference file deleted, keeping current selections",
			"path", event.Path)
		return
	}
	prefs, err := loadPrefsFile(event.Path)
	if err != nil {
		pw.logger.Error("preference file reload failed",
			"path", event.Path, "error", err)
		return
	}
	pw.apply(prefs)
}

// apply moves the registry selections to the file's state. Unknown
// engine names are logged and ignored, keeping the previous selection.
func (pw *PrefsWatcher) apply(prefs searchPrefs) {
	r := pw.registry

	if name := prefs.DefaultEngineName; name == "" {
		r.resetDefaultEngine()
	} else if e := r.GetEngineByName(name); e == nil {
		pw.logger.Warn("preferred default engine not found", "name", name)
	} else if r.DefaultEngine() != e {
		if err := r.SetDefaultEngine(e); err != nil {
			pw.logger.Warn("could not apply default engine preference",
				"name", name, "error", err)
		}
	}

	if name := prefs.CurrentEngineName; name == "" {
		r.resetCurrentEngine()
	} else if e := r.GetEngineByName(name); e == nil {
		pw.logger.Warn("preferred current engine not found", "name", name)
	} else if r.CurrentEngine() != e {
		if err := r.SetCurrentEngine(e); err != nil {
			pw.logger.Warn("could not apply current engine preference",
				"name", name, "error", err)
		}
	}
}

// loadPrefsFile reads and parses the preference file, format detected
// from the file extension.
func loadPrefsFile(path string) (searchPrefs, error) {
	var prefs searchPrefs
	data, err := os.ReadFile(path)
	if err != nil {
		return prefs, err
	}

	switch format := argus.DetectFormat(path); format {
	case argus.FormatJSON:
		err = json.Unmarshal(data, &prefs)
	case argus.FormatYAML:
		err = yaml.Unmarshal(data, &prefs)
	default:
		return prefs, NewWatcherError("unsupported preference file format: "+format.String(), nil)
	}
	return prefs, err
}
