// registry.go: the search engine registry service
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/argus"
	"github.com/agilira/go-timecache"
)

// InstallOptions controls AddEngine behavior for downloaded engines.
type InstallOptions struct {
	// Format overrides descriptor format sniffing. Zero means sniff.
	Format SourceFormat

	// Confirm, when non-nil, is consulted with the parsed engine before
	// installation. Returning false declines the install.
	Confirm func(engine *Engine) bool

	// UseNow selects the engine as current once installed.
	UseNow bool
}

// Registry is the search service: it discovers, loads, orders and
// persists engines, tracks the default and current selections, and owns
// the update scheduler. A Registry must be initialized with Init or
// InitAsync before use and released with Close.
type Registry struct {
	config    *Config
	logger    Logger
	meta      *MetadataStore
	notify    *Notifier
	discovery *DiscoveryEngine
	cache     *engineCache
	fetcher   *Fetcher
	updater   *updateService
	prefs     *PrefsWatcher
	audit     *argus.AuditLogger

	mu              sync.RWMutex
	engines         map[string]*Engine // lowercased name -> engine
	sortedEngines   []*Engine
	defaultEngine   *Engine
	currentEngine   *Engine
	originalDefault *Engine
	loading         bool

	cacheWriter *DeferredTask

	initStarted atomic.Bool
	initDone    chan struct{}
	initErr     error
	initialized atomic.Bool
	closed      atomic.Bool
}

// NewRegistry assembles an uninitialized registry from config. The
// config is defaulted in place; the same pointer must not be shared
// between registries.
func NewRegistry(config *Config) (*Registry, error) {
	setConfigDefaults(config)

	notify := NewNotifier(config.Logger)
	r := &Registry{
		config:    config,
		logger:    config.Logger,
		meta:      NewMetadataStore(config.ProfileDir, config, notify),
		notify:    notify,
		discovery: NewDiscoveryEngine(config),
		cache:     newEngineCache(config, notify),
		fetcher:   NewFetcher(config),
		engines:   make(map[string]*Engine),
		initDone:  make(chan struct{}),
	}
	r.cacheWriter = NewDeferredTask(config.CacheWriteDelay, r.writeCacheNow)
	r.updater = newUpdateService(r)

	if config.Audit.Enabled {
		auditor, err := argus.NewAuditLogger(config.Audit)
		if err != nil {
			return nil, NewWatcherError("audit logger setup failed", err)
		}
		r.audit = auditor
	}
	return r, nil
}

// Notifier exposes the registry's notification hub for subscriptions.
func (r *Registry) Notifier() *Notifier {
	return r.notify
}

// Initialized reports whether Init has completed successfully.
func (r *Registry) Initialized() bool {
	return r.initialized.Load()
}

// Init loads the registry synchronously: metadata, then engines from
// the cache or a directory scan, then the default and current engine
// resolution. Initialization runs at most once no matter how many
// callers race here; the losers block until the winner finishes and
// return its result, so a synchronous caller arriving mid-async-load
// still observes a fully loaded registry.
func (r *Registry) Init(ctx context.Context) error {
	if !r.initStarted.CompareAndSwap(false, true) {
		// A finished initialization always wins over the waiter's own
		// cancellation.
		select {
		case <-r.initDone:
			return r.initErr
		default:
		}
		select {
		case <-r.initDone:
			return r.initErr
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.initErr = r.doInit(ctx)
	close(r.initDone)
	return r.initErr
}

func (r *Registry) doInit(ctx context.Context) error {
	r.meta.SyncInit()
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := r.loadEngines(ctx); err != nil {
		return err
	}

	if r.config.PrefsFile != "" {
		watcher, err := NewPrefsWatcher(r)
		if err != nil {
			r.logger.Warn("prefs watcher unavailable", "error", err)
		} else {
			r.prefs = watcher
		}
	}
	if r.config.UpdatesEnabled {
		r.updater.start()
	}

	r.initialized.Store(true)
	r.logger.Info("search service initialized",
		"engines", len(r.engines), "updates", r.config.UpdatesEnabled)
	r.notify.NotifyTopic(TopicInitComplete)
	return nil
}

// InitAsync runs Init on a goroutine and reports completion on the
// returned channel.
func (r *Registry) InitAsync(ctx context.Context) <-chan error {
	ch := make(chan error, 1)
	go func() {
		ch <- r.Init(ctx)
	}()
	return ch
}

// Close flushes pending writes and stops the background machinery. The
// registry is unusable afterwards.
func (r *Registry) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return NewServiceClosedError()
	}
	if r.updater != nil {
		r.updater.stop()
	}
	if r.prefs != nil {
		r.prefs.Stop()
	}

	r.mu.RLock()
	engines := make([]*Engine, len(r.sortedEngines))
	copy(engines, r.sortedEngines)
	r.mu.RUnlock()
	for _, e := range engines {
		e.mu.Lock()
		task := e.lazySerialize
		e.mu.Unlock()
		if task != nil {
			task.Flush()
		}
	}

	r.cacheWriter.Flush()
	r.meta.Flush()

	if r.audit != nil {
		if err := r.audit.Close(); err != nil {
			r.logger.Warn("audit logger close failed", "error", err)
		}
	}
	r.logger.Info("search service closed")
	return nil
}

// loadEngines populates the engine store from the cache when it is
// fresh, otherwise from a full directory scan, and always appends the
// packaged engines. Runs once, from Init.
func (r *Registry) loadEngines(ctx context.Context) error {
	r.mu.Lock()
	r.loading = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.loading = false
		r.mu.Unlock()
	}()

	dirs := r.discovery.scanDirs()
	doc := r.cache.read()
	fromCache := r.cache.isFresh(doc, dirs)

	if fromCache {
		r.logger.Debug("loading engines from cache", "dirs", len(dirs))
		for _, dir := range dirs {
			for _, j := range doc.Directories[dir].Engines {
				engine, err := engineFromJSON(j)
				if err != nil {
					r.logger.Warn("cached engine rejected",
						"dir", dir, "error", err)
					continue
				}
				if err := r.addEngineToStore(engine); err != nil {
					r.logger.Debug("cached engine skipped",
						"engine", engine.Name(), "error", err)
				}
			}
		}
	} else {
		r.logger.Debug("scanning engine directories", "dirs", len(dirs))
		for _, dir := range dirs {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, disc := range r.discovery.ScanDirectory(dir) {
				if err := r.addEngineToStore(disc.Engine); err != nil {
					r.logger.Debug("discovered engine skipped",
						"path", disc.SourcePath, "error", err)
				}
			}
		}
	}

	for _, disc := range r.discovery.ScanPackaged() {
		if err := r.addEngineToStore(disc.Engine); err != nil {
			r.logger.Debug("packaged engine skipped",
				"engine", disc.Engine.Name(), "error", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.buildSortedListLocked()
	r.resolveSelectionsLocked()
	r.mu.Unlock()

	if !fromCache {
		r.writeCacheNow()
	}
	return nil
}

// resolveSelectionsLocked pins the original default engine and applies
// the persisted default/current names. Caller holds r.mu.
func (r *Registry) resolveSelectionsLocked() {
	for _, e := range r.sortedEngines {
		if e.IsDefault() {
			r.originalDefault = e
			break
		}
	}
	r.defaultEngine = r.originalDefault
	if name := r.config.DefaultEngineName; name != "" {
		if e := r.engines[lowerASCII(name)]; e != nil {
			r.defaultEngine = e
		}
	}
	if name := r.config.CurrentEngineName; name != "" {
		if e := r.engines[lowerASCII(name)]; e != nil {
			r.currentEngine = e
		}
	}
}

// addEngineToStore installs a parsed engine into the live store. A name
// collision is an error unless the incoming engine is a marked update
// for the existing one, in which case the existing engine's contents
// are replaced in place and external references stay valid.
func (r *Registry) addEngineToStore(engine *Engine) error {
	name := engine.Name()
	key := lowerASCII(name)

	r.mu.Lock()
	existing := r.engines[key]
	if existing != nil {
		isUpdate := func() bool {
			engine.mu.RLock()
			defer engine.mu.RUnlock()
			return engine.engineToUpdate == existing
		}()
		r.mu.Unlock()
		if !isUpdate {
			return NewDuplicateEngineError(name)
		}
		existing.replaceContents(engine)
		r.notify.NotifyEngine(existing, EngineChanged)
		r.scheduleNextUpdate(existing)
		r.scheduleCacheWrite()
		return nil
	}

	engine.setRegistry(r)
	r.engines[key] = engine
	loading := r.loading
	if !loading {
		r.sortedEngines = append(r.sortedEngines, engine)
	}
	r.mu.Unlock()

	id := engine.ID()
	r.meta.SetAttr(id, "updatedatatype", string(engine.Format()))
	if r.config.UpdatesEnabled && engine.HasUpdates() {
		if _, ok := r.meta.GetAttrInt64(id, "updateexpir"); !ok {
			r.scheduleNextUpdate(engine)
		}
	}

	verb := EngineAdded
	if loading {
		verb = EngineLoaded
	}
	r.notify.NotifyEngine(engine, verb)
	if !loading {
		r.scheduleCacheWrite()
	}
	return nil
}

// buildSortedListLocked orders the full engine list. Saved per-engine
// order attributes win; they are compacted and re-saved when hidden or
// removed engines left gaps. Without saved attributes the legacy
// configured name order applies. Engines covered by neither sort
// alphabetically at the tail. Caller holds r.mu.
func (r *Registry) buildSortedListLocked() {
	all := make([]*Engine, 0, len(r.engines))
	for _, e := range r.engines {
		all = append(all, e)
	}

	var ordered []*Engine
	placed := make(map[*Engine]bool, len(all))

	if r.config.OrderSaved {
		type ranked struct {
			engine *Engine
			order  int
		}
		var withOrder []ranked
		for _, e := range all {
			if o, ok := r.meta.GetAttrInt(e.ID(), "order"); ok && o > 0 {
				withOrder = append(withOrder, ranked{e, o})
			}
		}
		sort.SliceStable(withOrder, func(i, j int) bool {
			return withOrder[i].order < withOrder[j].order
		})
		gaps := false
		for i, rk := range withOrder {
			if rk.order != i+1 {
				gaps = true
			}
			ordered = append(ordered, rk.engine)
			placed[rk.engine] = true
		}
		if gaps {
			r.saveOrderAttrs(ordered)
		}
	} else {
		for _, name := range r.config.EngineOrder {
			if e := r.engines[lowerASCII(name)]; e != nil && !placed[e] {
				ordered = append(ordered, e)
				placed[e] = true
			}
		}
	}

	var rest []*Engine
	for _, e := range all {
		if !placed[e] {
			rest = append(rest, e)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		return lowerASCII(rest[i].Name()) < lowerASCII(rest[j].Name())
	})
	r.sortedEngines = append(ordered, rest...)
}

// saveOrderAttrs persists 1-based order attributes for the given
// engines and marks the saved order authoritative.
func (r *Registry) saveOrderAttrs(engines []*Engine) {
	changes := make([]MetadataChange, 0, len(engines))
	for i, e := range engines {
		changes = append(changes, MetadataChange{
			EngineID: e.ID(), Key: "order", Value: i + 1,
		})
	}
	r.meta.SetAttrs(changes)
	r.config.OrderSaved = true
}

// GetEngines returns every engine, hidden included, in sort order.
func (r *Registry) GetEngines() []*Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Engine, len(r.sortedEngines))
	copy(out, r.sortedEngines)
	return out
}

// GetVisibleEngines returns the non-hidden engines in sort order.
func (r *Registry) GetVisibleEngines() []*Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.visibleLocked()
}

func (r *Registry) visibleLocked() []*Engine {
	var out []*Engine
	for _, e := range r.sortedEngines {
		if !e.Hidden() {
			out = append(out, e)
		}
	}
	return out
}

// GetDefaultEngines returns the build-default engines, hidden included.
// These are the engines RestoreDefaultEngines brings back. They come in
// the build's own order (the configured order list, then alphabetical),
// not the user's current arrangement.
func (r *Registry) GetDefaultEngines() []*Engine {
	r.mu.RLock()
	var out []*Engine
	for _, e := range r.sortedEngines {
		if e.IsDefault() {
			out = append(out, e)
		}
	}
	r.mu.RUnlock()

	rank := make(map[string]int, len(r.config.EngineOrder))
	for i, name := range r.config.EngineOrder {
		rank[lowerASCII(name)] = i + 1
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank[lowerASCII(out[i].Name())], rank[lowerASCII(out[j].Name())]
		switch {
		case ri != 0 && rj != 0:
			return ri < rj
		case ri != rj:
			return ri != 0
		}
		return lowerASCII(out[i].Name()) < lowerASCII(out[j].Name())
	})
	return out
}

// GetEngineByName looks an engine up by display name, case-insensitive.
func (r *Registry) GetEngineByName(name string) *Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engines[lowerASCII(name)]
}

// GetEngineByAlias looks an engine up by keyword alias.
func (r *Registry) GetEngineByAlias(alias string) *Engine {
	if alias == "" {
		return nil
	}
	r.mu.RLock()
	engines := make([]*Engine, len(r.sortedEngines))
	copy(engines, r.sortedEngines)
	r.mu.RUnlock()
	for _, e := range engines {
		if equalFold(e.Alias(), alias) {
			return e
		}
	}
	return nil
}

// AddEngineWithDetails creates and installs a writable profile engine
// from explicit fields instead of a descriptor document.
func (r *Registry) AddEngineWithDetails(name, iconURL, alias, description, method, template string) (*Engine, error) {
	if !r.initialized.Load() {
		return nil, NewNotInitializedError()
	}
	if name == "" {
		return nil, NewInvalidEngineSpecError("name")
	}
	if template == "" {
		return nil, NewInvalidEngineSpecError("template")
	}
	if method == "" {
		method = "GET"
	}
	method = strings.ToUpper(method)
	if method != "GET" && method != "POST" {
		return nil, NewInvalidMethodError(method)
	}
	if r.GetEngineByName(name) != nil {
		return nil, NewDuplicateEngineError(name)
	}

	engine := &Engine{
		name:        name,
		description: description,
		urls: []*EngineURL{{
			Type:     URLTypeSearch,
			Method:   method,
			Template: template,
		}},
		location: LocationProfile,
		format:   FormatXML,
		filePath: filepath.Join(r.profileEngineDir(), sanitizeName(name)+".xml"),
	}
	if err := r.installProfileEngine(engine); err != nil {
		return nil, err
	}
	if alias != "" {
		engine.SetAlias(alias)
	}
	if iconURL != "" {
		engine.setIconURI(iconURL, 16, 16)
	}
	return engine, nil
}

// AddEngine downloads, confirms and installs an engine descriptor from
// a URL. The returned engine is already live in the registry.
func (r *Registry) AddEngine(ctx context.Context, sourceURL string, opts InstallOptions) (*Engine, error) {
	if !r.initialized.Load() {
		return nil, NewNotInitializedError()
	}

	data, err := r.fetcher.FetchDescriptor(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	format := opts.Format
	if format == "" {
		format = sniffFormat(data)
	}
	engine, err := ParseEngine(data, format, LocationProfile, false)
	if err != nil {
		return nil, err
	}
	engine.mu.Lock()
	engine.sourceURL = sourceURL
	engine.mu.Unlock()

	if existing := r.GetEngineByName(engine.Name()); existing != nil {
		return nil, NewDuplicateEngineError(engine.Name())
	}
	if opts.Confirm != nil && !opts.Confirm(engine) {
		r.auditEvent("engine_install_declined", map[string]interface{}{
			"engine": engine.Name(), "source": sourceURL,
		})
		return nil, NewInstallDeclinedError(engine.Name())
	}

	engine.mu.Lock()
	engine.filePath = filepath.Join(r.profileEngineDir(), sanitizeName(engine.name)+".xml")
	engine.mu.Unlock()
	if err := r.installProfileEngine(engine); err != nil {
		return nil, err
	}
	r.auditEvent("engine_installed", map[string]interface{}{
		"engine": engine.Name(), "source": sourceURL,
	})

	if icon := engine.IconURI(); icon != "" && !strings.HasPrefix(icon, "data:") {
		if dataURI, iconErr := r.fetcher.FetchIcon(ctx, icon); iconErr != nil {
			r.logger.Warn("engine icon fetch failed",
				"engine", engine.Name(), "error", iconErr)
		} else {
			engine.setIconURI(dataURI, 16, 16)
		}
	}

	if opts.UseNow {
		if err := r.SetCurrentEngine(engine); err != nil {
			r.logger.Warn("could not select installed engine",
				"engine", engine.Name(), "error", err)
		}
	}
	return engine, nil
}

// installProfileEngine writes the engine's descriptor file and enters
// it into the store.
func (r *Registry) installProfileEngine(engine *Engine) error {
	dir := r.profileEngineDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return NewEngineFileError(dir, "create engine directory", err)
	}
	if err := engine.serializeToFile(); err != nil {
		return err
	}
	if err := r.addEngineToStore(engine); err != nil {
		os.Remove(engine.FilePath())
		return err
	}
	return nil
}

// profileEngineDir is where profile-installed descriptor files live.
func (r *Registry) profileEngineDir() string {
	return r.config.profileEngineDir()
}

// RemoveEngine removes an engine. Build-default and read-only engines
// cannot lose their files, so they are hidden and their alias cleared;
// profile engines are deleted outright, file and metadata included.
func (r *Registry) RemoveEngine(engine *Engine) error {
	if !r.initialized.Load() {
		return NewNotInitializedError()
	}
	key := lowerASCII(engine.Name())

	r.mu.Lock()
	stored := r.engines[key]
	if stored != engine {
		r.mu.Unlock()
		return NewEngineNotFoundError(engine.Name())
	}

	if engine.ReadOnly() || engine.IsDefault() {
		r.mu.Unlock()
		engine.SetAlias("")
		engine.SetHidden(true)
		r.clearSelectionsOf(engine)
		r.notify.NotifyEngine(engine, EngineRemoved)
		return nil
	}

	delete(r.engines, key)
	for i, e := range r.sortedEngines {
		if e == engine {
			r.sortedEngines = append(r.sortedEngines[:i], r.sortedEngines[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	engine.mu.Lock()
	task := engine.lazySerialize
	path := engine.filePath
	engine.mu.Unlock()
	if task != nil {
		task.Cancel()
	}
	if path != "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("engine file delete failed", "path", path, "error", err)
		}
	}

	r.meta.RemoveEngine(engine.ID())
	r.clearSelectionsOf(engine)
	engine.setRegistry(nil)
	r.notify.NotifyEngine(engine, EngineRemoved)
	r.scheduleCacheWrite()
	return nil
}

// clearSelectionsOf drops the default/current pointers when they
// reference the removed or hidden engine, letting the getters fall back.
func (r *Registry) clearSelectionsOf(engine *Engine) {
	r.mu.Lock()
	if r.defaultEngine == engine {
		r.defaultEngine = nil
		r.config.DefaultEngineName = ""
	}
	if r.currentEngine == engine {
		r.currentEngine = nil
		r.config.CurrentEngineName = ""
	}
	r.mu.Unlock()
}

// MoveEngine moves an engine to newIndex within the visible list. The
// full list position is derived by skipping hidden engines, so hidden
// neighbors keep their relative placement. The resulting order is
// saved.
func (r *Registry) MoveEngine(engine *Engine, newIndex int) error {
	if !r.initialized.Load() {
		return NewNotInitializedError()
	}
	if engine.Hidden() {
		return NewHiddenEngineMoveError(engine.Name())
	}

	r.mu.Lock()
	visible := r.visibleLocked()
	if newIndex < 0 || newIndex >= len(visible) {
		r.mu.Unlock()
		return NewIndexOutOfRangeError(newIndex, len(visible))
	}

	currentIdx := -1
	for i, e := range r.sortedEngines {
		if e == engine {
			currentIdx = i
			break
		}
	}
	if currentIdx < 0 {
		r.mu.Unlock()
		return NewEngineNotFoundError(engine.Name())
	}

	target := visible[newIndex]
	if target == engine {
		// Moving to the current position is a no-op: no order rewrite,
		// no notification.
		r.mu.Unlock()
		return nil
	}
	targetIdx := 0
	for i, e := range r.sortedEngines {
		if e == target {
			targetIdx = i
			break
		}
	}

	r.sortedEngines = append(r.sortedEngines[:currentIdx], r.sortedEngines[currentIdx+1:]...)
	if targetIdx > currentIdx {
		targetIdx--
	}
	r.sortedEngines = append(r.sortedEngines[:targetIdx],
		append([]*Engine{engine}, r.sortedEngines[targetIdx:]...)...)

	ordered := make([]*Engine, len(r.sortedEngines))
	copy(ordered, r.sortedEngines)
	r.mu.Unlock()

	r.saveOrderAttrs(ordered)
	r.notify.NotifyEngine(engine, EngineChanged)
	return nil
}

// RestoreDefaultEngines un-hides every build-default engine.
func (r *Registry) RestoreDefaultEngines() {
	for _, e := range r.GetDefaultEngines() {
		if e.Hidden() {
			e.SetHidden(false)
		}
	}
}

// DefaultEngine returns the default engine, falling back to the first
// visible engine when the selection is hidden or gone. Returns nil only
// when every engine is hidden.
func (r *Registry) DefaultEngine() *Engine {
	r.mu.RLock()
	selected := r.defaultEngine
	if selected == nil {
		selected = r.originalDefault
	}
	r.mu.RUnlock()
	if selected != nil && !selected.Hidden() {
		return selected
	}
	return r.firstVisible()
}

// SetDefaultEngine makes engine the default. Selecting the original
// build default clears the persisted override instead of recording it.
func (r *Registry) SetDefaultEngine(engine *Engine) error {
	if err := r.checkSelectable(engine); err != nil {
		return err
	}
	r.mu.Lock()
	r.defaultEngine = engine
	if engine == r.originalDefault {
		r.config.DefaultEngineName = ""
	} else {
		r.config.DefaultEngineName = engine.Name()
	}
	r.mu.Unlock()
	r.notify.NotifyEngine(engine, EngineDefault)
	return nil
}

// CurrentEngine returns the engine searches go to right now: the user
// selection, then the default engine, then the first visible engine.
func (r *Registry) CurrentEngine() *Engine {
	r.mu.RLock()
	selected := r.currentEngine
	r.mu.RUnlock()
	if selected != nil && !selected.Hidden() {
		return selected
	}
	return r.DefaultEngine()
}

// SetCurrentEngine selects the engine searches go to. Selecting the
// default engine clears the persisted override.
func (r *Registry) SetCurrentEngine(engine *Engine) error {
	if err := r.checkSelectable(engine); err != nil {
		return err
	}
	r.mu.Lock()
	r.currentEngine = engine
	isDefault := engine == r.defaultEngine ||
		(r.defaultEngine == nil && engine == r.originalDefault)
	if isDefault {
		r.config.CurrentEngineName = ""
	} else {
		r.config.CurrentEngineName = engine.Name()
	}
	r.mu.Unlock()
	r.notify.NotifyEngine(engine, EngineCurrent)
	return nil
}

// resetDefaultEngine clears the default override, reverting to the
// original build default.
func (r *Registry) resetDefaultEngine() {
	r.mu.Lock()
	changed := r.defaultEngine != r.originalDefault
	r.defaultEngine = r.originalDefault
	r.config.DefaultEngineName = ""
	engine := r.defaultEngine
	r.mu.Unlock()
	if changed && engine != nil {
		r.notify.NotifyEngine(engine, EngineDefault)
	}
}

// resetCurrentEngine clears the current override, reverting to the
// default engine.
func (r *Registry) resetCurrentEngine() {
	r.mu.Lock()
	changed := r.currentEngine != nil
	r.currentEngine = nil
	r.config.CurrentEngineName = ""
	r.mu.Unlock()
	if changed {
		if engine := r.CurrentEngine(); engine != nil {
			r.notify.NotifyEngine(engine, EngineCurrent)
		}
	}
}

// checkSelectable verifies an engine may become default or current.
func (r *Registry) checkSelectable(engine *Engine) error {
	if !r.initialized.Load() {
		return NewNotInitializedError()
	}
	if engine == nil || r.GetEngineByName(engine.Name()) != engine {
		name := ""
		if engine != nil {
			name = engine.Name()
		}
		return NewEngineNotFoundError(name)
	}
	return nil
}

func (r *Registry) firstVisible() *Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.sortedEngines {
		if !e.Hidden() {
			return e
		}
	}
	return nil
}

// isBuildDefault reports whether engine is the resolved default engine,
// for descriptor parameters conditioned on default status.
func (r *Registry) isBuildDefault(engine *Engine) bool {
	return r.DefaultEngine() == engine
}

// visibleRank returns engine's 1-based position among visible engines,
// 0 when hidden or absent.
func (r *Registry) visibleRank(engine *Engine) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rank := 0
	for _, e := range r.sortedEngines {
		if e.Hidden() {
			continue
		}
		rank++
		if e == engine {
			return rank
		}
	}
	return 0
}

// applyEngineUpdate replaces the contents of existing with a freshly
// fetched descriptor, rekeying the name index when the update renamed
// the engine. External references to existing stay valid throughout.
func (r *Registry) applyEngineUpdate(existing, parsed *Engine) {
	oldKey := lowerASCII(existing.Name())
	existing.replaceContents(parsed)
	newKey := lowerASCII(existing.Name())
	if newKey != oldKey {
		r.mu.Lock()
		if r.engines[oldKey] == existing {
			delete(r.engines, oldKey)
			r.engines[newKey] = existing
		}
		r.mu.Unlock()
	}
	r.notify.NotifyEngine(existing, EngineChanged)
	r.scheduleNextUpdate(existing)
	r.scheduleCacheWrite()
	if !existing.ReadOnly() {
		existing.scheduleLazySerialize()
	}
}

// CheckForUpdates inspects every engine's update expiry immediately
// instead of waiting for the next scheduler tick.
func (r *Registry) CheckForUpdates(ctx context.Context) {
	if !r.initialized.Load() {
		return
	}
	r.updater.checkForUpdates(ctx)
}

// scheduleNextUpdate records the engine's next update expiry from now
// plus its declared interval.
func (r *Registry) scheduleNextUpdate(engine *Engine) {
	expiry := timecache.CachedTime().UnixMilli() +
		int64(engine.UpdateInterval())*int64(24*time.Hour/time.Millisecond)
	r.meta.SetAttr(engine.ID(), "updateexpir", expiry)
}

// scheduleCacheWrite arms the debounced cache rebuild. A burst of
// engine changes collapses into one write.
func (r *Registry) scheduleCacheWrite() {
	r.cacheWriter.Start()
}

// writeCacheNow rebuilds and writes the cache from the current store.
func (r *Registry) writeCacheNow() {
	r.mu.RLock()
	engines := make([]*Engine, len(r.sortedEngines))
	copy(engines, r.sortedEngines)
	r.mu.RUnlock()
	dirs := r.discovery.scanDirs()
	r.cache.write(r.cache.build(engines, dirs))
}

// auditEvent records a security-relevant event when auditing is on.
func (r *Registry) auditEvent(event string, context map[string]interface{}) {
	if r.audit == nil {
		return
	}
	r.audit.LogSecurityEvent(event, "Search engine registry event", context)
}

// sanitizeName derives a file-system safe descriptor base name from an
// engine display name: lowercased, whitespace collapsed to dashes,
// everything outside [-a-z0-9] dropped, capped at 60 bytes. Names that
// sanitize to nothing get a random hex name.
func sanitizeName(name string) string {
	var b strings.Builder
	lastDash := false
	for _, c := range strings.ToLower(name) {
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		case c == '-' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9'):
			b.WriteRune(c)
			lastDash = false
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > 60 {
		out = out[:60]
	}
	if out == "" {
		raw := make([]byte, 3)
		if _, err := rand.Read(raw); err == nil {
			out = hex.EncodeToString(raw)
		} else {
			out = "engine"
		}
	}
	return out
}
