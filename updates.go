// updates.go: periodic engine descriptor and icon updates
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
)

// updateService drives the update scheduler: a slow tick that compares
// each engine's recorded expiry against the clock and refreshes the
// ones that are due. Expiries are persisted in the metadata store, so
// schedules survive restarts.
type updateService struct {
	registry *Registry
	logger   Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

func newUpdateService(registry *Registry) *updateService {
	return &updateService{
		registry: registry,
		logger:   registry.config.Logger,
	}
}

func (u *updateService) start() {
	if !u.running.CompareAndSwap(false, true) {
		return
	}
	u.mu.Lock()
	u.stopCh = make(chan struct{})
	stopCh := u.stopCh
	u.mu.Unlock()

	u.wg.Add(1)
	go u.loop(stopCh)
	u.logger.Debug("update scheduler started",
		"tick", u.registry.config.UpdateTick)
}

func (u *updateService) stop() {
	if !u.running.CompareAndSwap(true, false) {
		return
	}
	u.mu.Lock()
	close(u.stopCh)
	u.mu.Unlock()
	u.wg.Wait()
}

func (u *updateService) loop(stopCh chan struct{}) {
	defer u.wg.Done()
	ticker := time.NewTicker(u.registry.config.UpdateTick)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			u.checkForUpdates(context.Background())
		}
	}
}

// checkForUpdates refreshes every engine whose recorded expiry has
// passed. Engines that never had an expiry recorded are left alone;
// they opted out of updates or declare no update source. Expiries left
// over from a session when updates were enabled stay recorded but do
// not fire while the global toggle is off.
func (u *updateService) checkForUpdates(ctx context.Context) {
	if !u.registry.config.UpdatesEnabled {
		return
	}
	now := timecache.CachedTime().UnixMilli()
	for _, engine := range u.registry.GetEngines() {
		if ctx.Err() != nil {
			return
		}
		if !engine.HasUpdates() {
			continue
		}
		expiry, ok := u.registry.meta.GetAttrInt64(engine.ID(), "updateexpir")
		if !ok || now < expiry {
			continue
		}
		u.updateEngine(ctx, engine)
	}
}

// updateEngine refreshes one engine: descriptor first, icon second.
// The two are independent; a failed descriptor fetch does not block an
// icon refresh, and either failure still reschedules so a transient
// outage retries on the next interval.
func (u *updateService) updateEngine(ctx context.Context, engine *Engine) {
	u.logger.Debug("engine update due", "engine", engine.Name())

	if err := u.updateDescriptor(ctx, engine); err != nil {
		u.logger.Warn("engine descriptor update failed",
			"engine", engine.Name(), "error", err)
		u.registry.scheduleNextUpdate(engine)
	}
	u.updateIcon(ctx, engine)
}

// updateDescriptor fetches and applies a new descriptor document. On
// success applyEngineUpdate reschedules; the caller reschedules on
// failure.
func (u *updateService) updateDescriptor(ctx context.Context, engine *Engine) error {
	updateURL := u.descriptorURL(engine)
	if updateURL == "" {
		u.registry.scheduleNextUpdate(engine)
		return nil
	}

	if engine.IsDefault() && !strings.HasPrefix(updateURL, "https://") {
		u.registry.auditEvent("insecure_update_refused", map[string]interface{}{
			"engine": engine.Name(), "url": updateURL,
		})
		return NewInsecureUpdateURLError(engine.Name(), updateURL)
	}

	format, ok := u.registry.meta.GetAttr(engine.ID(), "updatedatatype").(string)
	if !ok || format == "" {
		return NewMissingUpdateStateError(engine.Name())
	}

	data, err := u.registry.fetcher.FetchDescriptor(ctx, updateURL)
	if err != nil {
		return err
	}
	parsed, err := ParseEngine(data, SourceFormat(format), engine.Location(), engine.ReadOnly())
	if err != nil {
		return err
	}
	parsed.mu.Lock()
	parsed.engineToUpdate = engine
	parsed.mu.Unlock()

	u.registry.applyEngineUpdate(engine, parsed)
	u.logger.Info("engine updated",
		"engine", engine.Name(), "url", updateURL)
	return nil
}

// descriptorURL picks where to fetch the new descriptor from: a
// self-referencing OpenSearch endpoint wins over the declared update
// URL.
func (u *updateService) descriptorURL(engine *Engine) string {
	if selfURL := engine.URLOf(URLTypeOpenSearch); selfURL != nil && selfURL.HasRelation("self") {
		if sub, err := engine.Submission("", URLTypeOpenSearch, ""); err == nil {
			return sub.URL
		}
	}
	return engine.UpdateURL()
}

// updateIcon refreshes the engine icon from its declared icon update
// URL, independently of the descriptor.
func (u *updateService) updateIcon(ctx context.Context, engine *Engine) {
	iconURL := engine.IconUpdateURL()
	if iconURL == "" {
		return
	}
	dataURI, err := u.registry.fetcher.FetchIcon(ctx, iconURL)
	if err != nil {
		u.logger.Warn("engine icon update failed",
			"engine", engine.Name(), "error", err)
		return
	}
	engine.setIconURI(dataURI, 16, 16)
	u.logger.Debug("engine icon updated", "engine", engine.Name())
}
