// config.go: service configuration for the go-search registry
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"path/filepath"
	"time"

	"github.com/agilira/argus"
)

// Default timings. The debounce delays mirror the persistence behavior
// the registry is expected to keep: metadata commits and per-engine
// re-serialization coalesce quickly, cache invalidation waits longer so
// a burst of engine changes produces a single rebuild.
const (
	// DefaultMetadataCommitDelay coalesces metadata attribute writes.
	DefaultMetadataCommitDelay = 100 * time.Millisecond

	// DefaultCacheWriteDelay coalesces engine-cache rebuilds.
	DefaultCacheWriteDelay = 1000 * time.Millisecond

	// DefaultLazySerializeDelay coalesces per-engine file rewrites.
	DefaultLazySerializeDelay = 100 * time.Millisecond

	// DefaultUpdateIntervalDays applies to engines that declare an
	// update URL but no explicit interval.
	DefaultUpdateIntervalDays = 7

	// DefaultUpdateTick is how often the update loop inspects expiry
	// timestamps.
	DefaultUpdateTick = 6 * time.Hour

	// DefaultFetchTimeout bounds a single descriptor or icon download.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxFetchSize bounds a downloaded descriptor document.
	DefaultMaxFetchSize = 1 << 20 // 1 MiB

	// DefaultMaxIconSize bounds a downloaded (non-data:) icon.
	DefaultMaxIconSize = 10 << 10 // 10 KiB
)

// cacheFormatVersion is bumped whenever the serialized engine shape
// changes; a mismatch invalidates the whole cache.
const cacheFormatVersion = 7

// Fixed file names inside the profile directory.
const (
	cacheFileName    = "search.json"
	metadataFileName = "search-metadata.json"
)

// Config carries everything the search service needs: scan locations,
// build identity, persistence toggles and tuning, and the preference
// values the descriptor parser and submission builder consult.
type Config struct {
	// ProfileDir is the user profile directory. The cache and metadata
	// files live here, and its searchplugins subdirectory (if listed in
	// EngineDirs) is the only writable engine location.
	ProfileDir string `json:"profile_dir" yaml:"profile_dir"`

	// EngineDirs are the directories scanned for .xml plugin files, in
	// priority order. Directories that do not exist or contain no files
	// are skipped.
	EngineDirs []string `json:"engine_dirs" yaml:"engine_dirs"`

	// ProfileEngineDir names which entry of EngineDirs is the profile's
	// own searchplugins directory. Engines found there are writable and
	// are not build defaults.
	ProfileEngineDir string `json:"profile_engine_dir" yaml:"profile_engine_dir"`

	// PackagedDir and PackagedEngines describe engines shipped inside
	// the application's resources: PackagedDir holds the descriptor
	// files, PackagedEngines lists the descriptor base names to load.
	// Only consulted when LoadPackagedEngines is set.
	PackagedDir         string   `json:"packaged_dir" yaml:"packaged_dir"`
	PackagedEngines     []string `json:"packaged_engines" yaml:"packaged_engines"`
	LoadPackagedEngines bool     `json:"load_packaged_engines" yaml:"load_packaged_engines"`

	// CacheEnabled controls whether the engine cache file is written.
	// The cache is always read if present and fresh.
	CacheEnabled bool `json:"cache_enabled" yaml:"cache_enabled"`

	// UpdatesEnabled gates the whole update subsystem.
	UpdatesEnabled bool `json:"updates_enabled" yaml:"updates_enabled"`

	// Build identity baked into the cache fingerprint and exposed to
	// URL templates of default engines.
	BuildID        string `json:"build_id" yaml:"build_id"`
	Locale         string `json:"locale" yaml:"locale"`
	DistributionID string `json:"distribution_id" yaml:"distribution_id"`
	OfficialBuild  bool   `json:"official_build" yaml:"official_build"`

	// DefaultEngineName and CurrentEngineName are the persisted user
	// selections; empty means "use the build default". The registry
	// writes them back into this Config when the user changes engines,
	// so the embedding application can persist them with the rest of
	// its settings.
	DefaultEngineName string `json:"default_engine_name" yaml:"default_engine_name"`
	CurrentEngineName string `json:"current_engine_name" yaml:"current_engine_name"`

	// PrefsFile, when set, is watched for external changes to the
	// default and current engine selections. Its format is detected by
	// extension (JSON, YAML, TOML and the other argus-supported
	// formats).
	PrefsFile string `json:"prefs_file" yaml:"prefs_file"`

	// EngineOrder is the legacy ordered name list used to sort engines
	// until an explicit order has been saved to the metadata store.
	EngineOrder []string `json:"engine_order" yaml:"engine_order"`

	// OrderSaved indicates that per-engine order attributes in the
	// metadata store are authoritative and EngineOrder is ignored.
	OrderSaved bool `json:"order_saved" yaml:"order_saved"`

	// Prefs backs conditional descriptor parameters that read a named
	// preference at submission time.
	Prefs map[string]string `json:"prefs,omitempty" yaml:"prefs,omitempty"`

	// Timing knobs; zero values take the package defaults.
	MetadataCommitDelay time.Duration `json:"metadata_commit_delay" yaml:"metadata_commit_delay"`
	CacheWriteDelay     time.Duration `json:"cache_write_delay" yaml:"cache_write_delay"`
	LazySerializeDelay  time.Duration `json:"lazy_serialize_delay" yaml:"lazy_serialize_delay"`
	UpdateTick          time.Duration `json:"update_tick" yaml:"update_tick"`
	FetchTimeout        time.Duration `json:"fetch_timeout" yaml:"fetch_timeout"`

	// Download size caps.
	MaxFetchSize int64 `json:"max_fetch_size" yaml:"max_fetch_size"`
	MaxIconSize  int64 `json:"max_icon_size" yaml:"max_icon_size"`

	// Audit configures argus security-event logging for engine installs
	// and refused updates. Disabled unless Enabled is set.
	Audit argus.AuditConfig `json:"audit" yaml:"audit"`

	// Logger receives all diagnostics. Nil means silent.
	Logger Logger `json:"-" yaml:"-"`
}

// setConfigDefaults fills zero-valued tuning fields with the package
// defaults and guarantees a usable logger.
func setConfigDefaults(config *Config) {
	if config.MetadataCommitDelay <= 0 {
		config.MetadataCommitDelay = DefaultMetadataCommitDelay
	}
	if config.CacheWriteDelay <= 0 {
		config.CacheWriteDelay = DefaultCacheWriteDelay
	}
	if config.LazySerializeDelay <= 0 {
		config.LazySerializeDelay = DefaultLazySerializeDelay
	}
	if config.UpdateTick <= 0 {
		config.UpdateTick = DefaultUpdateTick
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}
	if config.MaxFetchSize <= 0 {
		config.MaxFetchSize = DefaultMaxFetchSize
	}
	if config.MaxIconSize <= 0 {
		config.MaxIconSize = DefaultMaxIconSize
	}
	if config.Logger == nil {
		config.Logger = DefaultLogger()
	}
}

// profileEngineDir resolves the profile's writable engine directory:
// the configured one, or the searchplugins subdirectory of the profile.
// Discovery and installation must agree on this, or profile engines
// would scan as read-only defaults.
func (c *Config) profileEngineDir() string {
	if c.ProfileEngineDir != "" {
		return c.ProfileEngineDir
	}
	return filepath.Join(c.ProfileDir, "searchplugins")
}

// Pref returns the named preference value, or empty when unset.
func (c *Config) Pref(name string) string {
	if c.Prefs == nil {
		return ""
	}
	return c.Prefs[name]
}
