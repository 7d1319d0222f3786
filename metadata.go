// metadata.go: per-engine attribute persistence
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// Metadata init states. Initialization can be entered from two sides,
// an asynchronous default path and a synchronous fallback, and moves
// NOT_STARTED -> FINISHED exactly once regardless of who gets there
// first. The loser must observe the transition and discard its own
// result.
const (
	metaInitNotStarted int32 = iota
	metaInitFinished
)

// MetadataChange is one attribute mutation for SetAttrs batches.
type MetadataChange struct {
	EngineID string
	Key      string
	Value    any
}

// MetadataStore persists per-engine mutable attributes (alias, hidden,
// order, update expiry) as a JSON map of engine id to attribute map.
// Attribute names are case-insensitive and stored lowercase. Writes are
// debounced and atomic; the in-memory map stays authoritative even when
// persistence fails.
type MetadataStore struct {
	mu    sync.RWMutex
	path  string
	store map[string]map[string]any

	initState atomic.Int32
	initDone  chan struct{}

	committer *DeferredTask
	notify    *Notifier
	logger    Logger
}

// NewMetadataStore creates a store backed by the metadata file in
// profileDir. Nothing is read until one of the init paths runs.
func NewMetadataStore(profileDir string, config *Config, notify *Notifier) *MetadataStore {
	m := &MetadataStore{
		path:     filepath.Join(profileDir, metadataFileName),
		initDone: make(chan struct{}),
		notify:   notify,
		logger:   config.Logger,
	}
	m.committer = NewDeferredTask(config.MetadataCommitDelay, m.writeCommit)
	return m
}

// InitAsync starts the default initialization path in a goroutine. The
// returned channel resolves once attributes are available, whether this
// path or a concurrent SyncInit supplied them.
func (m *MetadataStore) InitAsync(ctx context.Context) <-chan error {
	ch := make(chan error, 1)
	go func() {
		store := m.readStore()
		select {
		case <-ctx.Done():
			// Abandon without installing a result; a fallback caller
			// can still initialize later.
			ch <- ctx.Err()
			return
		default:
		}
		if !m.installStore(store) {
			m.logger.Debug("metadata init: synchronous fallback finished first, discarding")
		}
		ch <- nil
	}()
	return ch
}

// SyncInit is the blocking fallback for callers that need attributes
// before the asynchronous path lands. It no-ops when initialization has
// already finished.
func (m *MetadataStore) SyncInit() {
	if m.initState.Load() == metaInitFinished {
		return
	}
	store := m.readStore()
	if !m.installStore(store) {
		m.logger.Debug("metadata syncInit: already initialized, discarding")
	}
}

// Done is closed once either init path has completed.
func (m *MetadataStore) Done() <-chan struct{} {
	return m.initDone
}

// Initialized reports whether an init path has completed.
func (m *MetadataStore) Initialized() bool {
	return m.initState.Load() == metaInitFinished
}

// readStore loads the metadata file. A missing or corrupt file is not
// an error: it degrades to an empty store.
func (m *MetadataStore) readStore() map[string]map[string]any {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("metadata read failed, starting empty",
				"path", m.path, "error", err)
		}
		return make(map[string]map[string]any)
	}
	var store map[string]map[string]any
	if err := json.Unmarshal(data, &store); err != nil {
		m.logger.Warn("metadata file corrupt, starting empty",
			"path", m.path, "error", err)
		return make(map[string]map[string]any)
	}
	if store == nil {
		store = make(map[string]map[string]any)
	}
	return store
}

// installStore is the single-assignment point of the init state
// machine. Exactly one caller ever succeeds.
func (m *MetadataStore) installStore(store map[string]map[string]any) bool {
	if !m.initState.CompareAndSwap(metaInitNotStarted, metaInitFinished) {
		return false
	}
	m.mu.Lock()
	m.store = store
	m.mu.Unlock()
	close(m.initDone)
	return true
}

// GetAttr returns the named attribute for an engine, or nil when unset.
// Values read back from disk carry JSON types: numbers are float64.
func (m *MetadataStore) GetAttr(engineID, name string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.store[engineID]
	if !ok {
		return nil
	}
	return record[lowerASCII(name)]
}

// GetAttrInt returns an integer attribute regardless of whether it was
// set this session (int) or reloaded from disk (float64).
func (m *MetadataStore) GetAttrInt(engineID, name string) (int, bool) {
	switch v := m.GetAttr(engineID, name).(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// GetAttrInt64 is GetAttrInt for timestamp-sized values.
func (m *MetadataStore) GetAttrInt64(engineID, name string) (int64, bool) {
	switch v := m.GetAttr(engineID, name).(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// setAttrLocked merges one attribute and reports whether it changed.
// Writes are accepted before init; the map is allocated on first use
// and replaced wholesale when an init path lands.
func (m *MetadataStore) setAttrLocked(engineID, name string, value any) bool {
	if m.store == nil {
		m.store = make(map[string]map[string]any)
	}
	record, ok := m.store[engineID]
	if !ok {
		record = make(map[string]any)
		m.store[engineID] = record
	}
	name = lowerASCII(name)
	if existing, ok := record[name]; ok && existing == value {
		return false
	}
	record[name] = value
	return true
}

// SetAttr stores one attribute and schedules a debounced commit when
// the value actually changed.
func (m *MetadataStore) SetAttr(engineID, name string, value any) {
	m.mu.Lock()
	changed := m.setAttrLocked(engineID, name, value)
	m.mu.Unlock()
	if changed {
		m.committer.Start()
	}
}

// SetAttrs applies a batch of changes with a single commit trigger.
func (m *MetadataStore) SetAttrs(changes []MetadataChange) {
	m.mu.Lock()
	changed := false
	for _, c := range changes {
		if m.setAttrLocked(c.EngineID, c.Key, c.Value) {
			changed = true
		}
	}
	m.mu.Unlock()
	if changed {
		m.committer.Start()
	}
}

// RemoveEngine drops every attribute recorded for an engine.
func (m *MetadataStore) RemoveEngine(engineID string) {
	m.mu.Lock()
	_, existed := m.store[engineID]
	delete(m.store, engineID)
	m.mu.Unlock()
	if existed {
		m.committer.Start()
	}
}

// Flush forces any pending commit to complete before returning. Called
// at shutdown.
func (m *MetadataStore) Flush() {
	m.committer.Flush()
}

// writeCommit serializes the store to disk atomically. Failures are
// logged only: memory stays authoritative and the next trigger retries.
func (m *MetadataStore) writeCommit() {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.store, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		m.logger.Error("metadata serialization failed", "error", err)
		return
	}
	if err := atomicWriteFile(m.path, data); err != nil {
		m.logger.Warn("metadata write failed",
			"path", m.path, "error", NewMetadataWriteError(m.path, err))
		return
	}
	m.logger.Debug("metadata written", "path", m.path)
	if m.notify != nil {
		m.notify.NotifyTopic(TopicMetadataWritten)
	}
}

func lowerASCII(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
