// discovery.go: search plugin file discovery
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/agilira/go-timecache"
)

// DiscoveredEngine is one engine found during a directory scan,
// together with where it came from.
type DiscoveredEngine struct {
	Engine       *Engine
	SourcePath   string
	SourceDir    string
	DiscoveredAt int64 // Unix milliseconds
}

// DiscoveryEngine scans plugin directories for .xml descriptor files
// and parses them. Parse failures skip the file, never the scan: a
// single broken descriptor must not take down the load.
type DiscoveryEngine struct {
	config *Config
	logger Logger
}

// NewDiscoveryEngine creates a scanner over the configured directories.
func NewDiscoveryEngine(config *Config) *DiscoveryEngine {
	return &DiscoveryEngine{
		config: config,
		logger: config.Logger,
	}
}

// scanDirs returns the configured engine directories that exist and
// contain at least one entry. Empty directories are excluded from both
// scanning and cache-validity comparison.
func (d *DiscoveryEngine) scanDirs() []string {
	var dirs []string
	for _, dir := range d.config.EngineDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		if len(entries) == 0 {
			continue
		}
		dirs = append(dirs, dir)
	}
	return dirs
}

// locationOf maps a scanned directory to its install-location tag.
func (d *DiscoveryEngine) locationOf(dir string) InstallLocation {
	if dir == d.config.profileEngineDir() {
		return LocationProfile
	}
	return LocationAppDir
}

// ScanDirectory parses every descriptor file in one directory. Hidden
// files, empty files, subdirectories and non-.xml files are skipped.
// Files outside the profile directory produce read-only engines.
func (d *DiscoveryEngine) ScanDirectory(dir string) []DiscoveredEngine {
	entries, err := os.ReadDir(dir)
	if err != nil {
		d.logger.Warn("engine directory scan failed", "dir", dir, "error", err)
		return nil
	}

	location := d.locationOf(dir)
	writable := location == LocationProfile

	var found []DiscoveredEngine
	for _, entry := range entries {
		if entry.IsDir() || isHiddenFile(entry.Name()) {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() == 0 {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		engine, err := d.loadFile(path, location, !writable)
		if err != nil {
			d.logger.Warn("failed to load engine file",
				"path", path, "error", err)
			continue
		}
		found = append(found, DiscoveredEngine{
			Engine:       engine,
			SourcePath:   path,
			SourceDir:    dir,
			DiscoveredAt: timecache.CachedTime().UnixMilli(),
		})
	}
	return found
}

// ScanPackaged loads the engines shipped inside the application's
// packaged resources: a configured directory plus an explicit name
// list. Packaged engines are always read-only and have no parent scan
// directory, so they live outside the cache.
func (d *DiscoveryEngine) ScanPackaged() []DiscoveredEngine {
	if !d.config.LoadPackagedEngines || d.config.PackagedDir == "" {
		return nil
	}
	var found []DiscoveredEngine
	for _, name := range d.config.PackagedEngines {
		if name == "" {
			continue
		}
		path := filepath.Join(d.config.PackagedDir, name+".xml")
		engine, err := d.loadFile(path, LocationPackaged, true)
		if err != nil {
			d.logger.Warn("failed to load packaged engine",
				"path", path, "error", err)
			continue
		}
		found = append(found, DiscoveredEngine{
			Engine:       engine,
			SourcePath:   path,
			DiscoveredAt: timecache.CachedTime().UnixMilli(),
		})
	}
	return found
}

// loadFile reads and parses one descriptor file. The format is chosen
// by sniffing: files opening with an XML prolog or element parse as
// OpenSearch, everything else takes the Sherlock path.
func (d *DiscoveryEngine) loadFile(path string, location InstallLocation, readOnly bool) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewEngineFileError(path, "read failed", err)
	}
	format := sniffFormat(data)
	engine, err := ParseEngine(data, format, location, readOnly)
	if err != nil {
		return nil, err
	}
	engine.filePath = path
	return engine, nil
}

// sniffFormat picks the parser for a raw descriptor buffer.
func sniffFormat(data []byte) SourceFormat {
	trimmed := strings.TrimLeft(string(data[:min(len(data), 64)]), " \t\r\n")
	if strings.HasPrefix(trimmed, "<?xml") || strings.HasPrefix(trimmed, "<OpenSearch") ||
		strings.HasPrefix(trimmed, "<SearchPlugin") {
		return FormatXML
	}
	return FormatText
}
