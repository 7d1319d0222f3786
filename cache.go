// cache.go: engine descriptor cache build, read and validation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// cacheDirectory is one scanned directory's snapshot: its modification
// time at build and the engines it contributed.
type cacheDirectory struct {
	LastModifiedTime int64        `json:"lastModifiedTime"`
	Engines          []engineJSON `json:"engines"`
}

// cacheDocument is the on-disk cache: a build fingerprint plus a map of
// scanned directory path to snapshot. Any fingerprint mismatch, any
// change to the directory set, or any directory mtime drift invalidates
// the whole document.
type cacheDocument struct {
	Version     int                       `json:"version"`
	BuildID     string                    `json:"buildID"`
	Locale      string                    `json:"locale"`
	Directories map[string]cacheDirectory `json:"directories"`
}

// engineCache reads, validates and rebuilds the cache file that lets
// startup skip re-parsing descriptor files.
type engineCache struct {
	path   string
	config *Config
	notify *Notifier
	logger Logger
}

func newEngineCache(config *Config, notify *Notifier) *engineCache {
	return &engineCache{
		path:   filepath.Join(config.ProfileDir, cacheFileName),
		config: config,
		notify: notify,
		logger: config.Logger,
	}
}

// read loads the cache document. Missing or corrupt files return nil,
// which callers treat as "rescan everything".
func (c *engineCache) read() *cacheDocument {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("cache read failed", "path", c.path, "error", err)
		}
		return nil
	}
	var doc cacheDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		c.logger.Warn("cache file corrupt, ignoring", "path", c.path, "error", err)
		return nil
	}
	return &doc
}

// isFresh decides whether the cached snapshot can stand in for a scan
// of dirs. Any single mismatch makes the whole cache stale; there is no
// per-directory partial reuse.
func (c *engineCache) isFresh(doc *cacheDocument, dirs []string) bool {
	if doc == nil {
		return false
	}
	if doc.Version != cacheFormatVersion {
		c.logger.Info("cache stale: version mismatch",
			"cached", doc.Version, "current", cacheFormatVersion)
		return false
	}
	if doc.Locale != c.config.Locale {
		c.logger.Info("cache stale: locale mismatch",
			"cached", doc.Locale, "current", c.config.Locale)
		return false
	}
	if doc.BuildID != c.config.BuildID {
		c.logger.Info("cache stale: build mismatch",
			"cached", doc.BuildID, "current", c.config.BuildID)
		return false
	}
	if len(doc.Directories) != len(dirs) {
		c.logger.Info("cache stale: directory set changed")
		return false
	}
	for _, dir := range dirs {
		cached, ok := doc.Directories[dir]
		if !ok {
			c.logger.Info("cache stale: directory not in cache", "dir", dir)
			return false
		}
		if cached.LastModifiedTime != dirModTime(dir) {
			c.logger.Info("cache stale: directory modified", "dir", dir)
			return false
		}
	}
	return true
}

// build snapshots the given engines. Engines whose backing file's
// parent is not one of the scanned directories (packaged engines,
// not-yet-installed downloads) are left out of the cache but stay in
// the live registry.
func (c *engineCache) build(engines []*Engine, dirs []string) *cacheDocument {
	doc := &cacheDocument{
		Version:     cacheFormatVersion,
		BuildID:     c.config.BuildID,
		Locale:      c.config.Locale,
		Directories: make(map[string]cacheDirectory, len(dirs)),
	}
	for _, dir := range dirs {
		doc.Directories[dir] = cacheDirectory{
			LastModifiedTime: dirModTime(dir),
		}
	}
	for _, e := range engines {
		path := e.FilePath()
		if path == "" {
			continue
		}
		dir := filepath.Dir(path)
		bucket, ok := doc.Directories[dir]
		if !ok {
			continue
		}
		bucket.Engines = append(bucket.Engines, e.serializeJSON())
		doc.Directories[dir] = bucket
	}
	return doc
}

// write persists the document when caching is enabled. Failures are
// logged only; the cache regenerates on the next rebuild trigger.
func (c *engineCache) write(doc *cacheDocument) {
	if !c.config.CacheEnabled {
		c.logger.Debug("cache disabled, skipping write")
		return
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		c.logger.Error("cache serialization failed", "error", err)
		return
	}
	if err := atomicWriteFile(c.path, data); err != nil {
		c.logger.Warn("cache write failed",
			"path", c.path, "error", NewCacheWriteError(c.path, err))
		return
	}
	c.logger.Debug("cache written", "path", c.path)
	if c.notify != nil {
		c.notify.NotifyTopic(TopicCacheWritten)
	}
}
