// engine.go: search engine descriptor and submission building
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"path/filepath"
	"strings"
	"sync"
)

// Engine is one search engine definition. Descriptor fields are set by
// the parsers and only mutated afterwards through the update-replace
// path and icon downloads; user-mutable attributes (alias, hidden,
// order, update expiry) live in the metadata store, keyed by the
// engine's stable ID, so they survive descriptor replacement.
type Engine struct {
	mu sync.RWMutex

	name           string
	description    string
	queryCharset   string
	searchForm     string
	urls           []*EngineURL
	icons          []EngineIcon
	iconURI        string
	updateURL      string
	iconUpdateURL  string
	updateInterval int // days, 0 means not declared

	location InstallLocation
	readOnly bool
	format   SourceFormat

	// filePath is the backing descriptor file; empty for engines loaded
	// from a URI that have not been installed yet.
	filePath string

	// sourceURL records where a downloaded engine came from.
	sourceURL string

	// svc is set when the engine enters a registry; metadata-backed
	// accessors and conditional parameters resolve through it.
	svc *Registry

	// lazySerialize rewrites the backing file of writable engines after
	// a mutation. Created on first use, cancelled on removal.
	lazySerialize *DeferredTask

	// engineToUpdate marks this instance as a freshly fetched
	// replacement for an existing registry member.
	engineToUpdate *Engine

	// useNow asks the registry to select the engine once installed.
	useNow bool
}

// Name returns the engine's display name.
func (e *Engine) Name() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.name
}

// Description returns the engine's description, possibly empty.
func (e *Engine) Description() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.description
}

// QueryCharset returns the charset search terms are escaped in.
func (e *Engine) QueryCharset() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.queryCharset == "" {
		return defaultQueryCharset
	}
	return e.queryCharset
}

// SearchForm returns the engine's plain search page URL, if declared.
func (e *Engine) SearchForm() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.searchForm
}

// IconURI returns the engine's preferred icon reference.
func (e *Engine) IconURI() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.iconURI
}

// Icons returns all declared icons.
func (e *Engine) Icons() []EngineIcon {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]EngineIcon, len(e.icons))
	copy(out, e.icons)
	return out
}

// URLs returns the engine's submission endpoints.
func (e *Engine) URLs() []*EngineURL {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*EngineURL, len(e.urls))
	copy(out, e.urls)
	return out
}

// Location returns where the engine was installed from.
func (e *Engine) Location() InstallLocation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.location
}

// ReadOnly reports whether the engine's backing file may not be
// modified or removed.
func (e *Engine) ReadOnly() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.readOnly
}

// Format returns the source format the engine was parsed from.
func (e *Engine) Format() SourceFormat {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.format
}

// FilePath returns the backing descriptor file, empty if none.
func (e *Engine) FilePath() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.filePath
}

// UpdateURL returns the declared descriptor update URL, if any.
func (e *Engine) UpdateURL() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.updateURL
}

// IconUpdateURL returns the declared icon update URL, if any.
func (e *Engine) IconUpdateURL() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.iconUpdateURL
}

// UpdateInterval returns the declared update interval in days, falling
// back to the package default when the descriptor omits it.
func (e *Engine) UpdateInterval() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.updateInterval <= 0 {
		return DefaultUpdateIntervalDays
	}
	return e.updateInterval
}

// IsDefault reports whether this is a build-default engine. Everything
// installed outside the user profile counts.
func (e *Engine) IsDefault() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.location != LocationProfile
}

// HasUpdates reports whether the engine declares any update source.
func (e *Engine) HasUpdates() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.updateURL != "" || e.iconUpdateURL != "" {
		return true
	}
	for _, u := range e.urls {
		if u.Type == URLTypeOpenSearch && u.HasRelation("self") {
			return true
		}
	}
	return false
}

// ID returns the engine's stable identity: the install-location tag plus
// the file leaf for application and profile engines, the full path for
// extension engines, and the source URL for engines that have no backing
// file yet. The ID must not change across restarts for the same file.
func (e *Engine) ID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch {
	case e.filePath == "":
		return e.sourceURL
	case e.location == LocationExtension:
		return e.filePath
	case e.location == LocationProfile:
		return "[profile]/" + filepath.Base(e.filePath)
	default:
		return "[app]/" + filepath.Base(e.filePath)
	}
}

// Alias returns the engine's keyword alias, empty when unset.
func (e *Engine) Alias() string {
	if svc := e.registry(); svc != nil {
		if v, ok := svc.meta.GetAttr(e.ID(), "alias").(string); ok {
			return v
		}
	}
	return ""
}

// SetAlias stores the alias and emits an engine-changed notification.
func (e *Engine) SetAlias(alias string) {
	svc := e.registry()
	if svc == nil {
		return
	}
	svc.meta.SetAttr(e.ID(), "alias", alias)
	svc.notify.NotifyEngine(e, EngineChanged)
}

// Hidden reports whether the engine is excluded from the visible list.
func (e *Engine) Hidden() bool {
	if svc := e.registry(); svc != nil {
		if v, ok := svc.meta.GetAttr(e.ID(), "hidden").(bool); ok {
			return v
		}
	}
	return false
}

// SetHidden stores the hidden flag and emits an engine-changed
// notification when the value actually changed.
func (e *Engine) SetHidden(hidden bool) {
	svc := e.registry()
	if svc == nil {
		return
	}
	if e.Hidden() == hidden {
		return
	}
	svc.meta.SetAttr(e.ID(), "hidden", hidden)
	svc.notify.NotifyEngine(e, EngineChanged)
}

func (e *Engine) registry() *Registry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.svc
}

func (e *Engine) setRegistry(svc *Registry) {
	e.mu.Lock()
	e.svc = svc
	e.mu.Unlock()
}

// URLOf returns the first submission endpoint with the given response
// type, or nil.
func (e *Engine) URLOf(responseType string) *EngineURL {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, u := range e.urls {
		if u.Type == responseType {
			return u
		}
	}
	return nil
}

// SupportsResponseType reports whether the engine declares an endpoint
// producing the given MIME type.
func (e *Engine) SupportsResponseType(responseType string) bool {
	return e.URLOf(responseType) != nil
}

// Submission expands the endpoint of the given response type (empty
// means text/html) into a loadable request. Terms are escaped in the
// engine's query charset before substitution. Conditional parameters
// are resolved here, against the current registry state, never cached.
func (e *Engine) Submission(terms, responseType, purpose string) (*Submission, error) {
	if responseType == "" {
		responseType = URLTypeSearch
	}
	u := e.URLOf(responseType)
	if u == nil {
		return nil, NewMissingSearchURLError(e.Name()).
			WithContext("response_type", responseType)
	}

	escaped := escapeSearchTerms(terms, e.QueryCharset())
	sub := e.substitutionContext(escaped)

	target := ParamSubstitution(u.Template, sub)

	var pairs []string
	for _, p := range u.Params {
		value, ok := e.resolveParam(p, purpose, sub)
		if !ok {
			continue
		}
		pairs = append(pairs, p.Name+"="+value)
	}
	data := strings.Join(pairs, "&")

	if u.Method == "POST" {
		return &Submission{
			URL:         target,
			PostData:    []byte(data),
			ContentType: "application/x-www-form-urlencoded",
		}, nil
	}

	if data != "" {
		if strings.Contains(target, "?") {
			target += "&" + data
		} else {
			target += "?" + data
		}
	}
	return &Submission{URL: target}, nil
}

// substitutionContext assembles the build/engine state template
// expansion needs. Engines not yet in a registry get an empty build
// identity, which disables the identity tokens.
func (e *Engine) substitutionContext(escapedTerms string) SubstitutionContext {
	sub := SubstitutionContext{
		Terms:        escapedTerms,
		QueryCharset: e.QueryCharset(),
		IsDefault:    e.IsDefault(),
	}
	if svc := e.registry(); svc != nil {
		sub.Locale = svc.config.Locale
		sub.DistributionID = svc.config.DistributionID
		sub.Official = svc.config.OfficialBuild
	}
	return sub
}

// resolveParam evaluates one query parameter for a submission. The
// second return is false when the parameter must be omitted. Conditional
// parameters are only honored on default engines.
func (e *Engine) resolveParam(p QueryParameter, purpose string, sub SubstitutionContext) (string, bool) {
	if p.Purpose != "" && p.Purpose != purpose {
		return "", false
	}
	if p.Condition == ConditionNone {
		return ParamSubstitution(p.Value, sub), true
	}
	if !e.IsDefault() {
		return "", false
	}

	svc := e.registry()
	switch p.Condition {
	case ConditionPurpose:
		return ParamSubstitution(p.Value, sub), true
	case ConditionDefaultEngine:
		value := p.FalseValue
		if svc != nil && svc.isBuildDefault(e) {
			value = p.TrueValue
		}
		if value == "" {
			return "", false
		}
		return ParamSubstitution(value, sub), true
	case ConditionPref:
		if svc == nil {
			return "", false
		}
		value := svc.config.Pref("param." + p.Pref)
		if value == "" {
			return "", false
		}
		return ParamSubstitution(value, sub), true
	case ConditionTopN:
		if svc == nil {
			return "", false
		}
		rank := svc.visibleRank(e)
		if rank <= 0 || rank > p.TopN {
			return "", false
		}
		return ParamSubstitution(p.Value, sub), true
	}
	return "", false
}

// engineJSON is the serialized descriptor shape stored in the engine
// cache. The field set is fixed: adding or renaming fields requires a
// cacheFormatVersion bump.
type engineJSON struct {
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	QueryCharset   string          `json:"queryCharset,omitempty"`
	SearchForm     string          `json:"searchForm,omitempty"`
	URLs           []*EngineURL    `json:"urls"`
	Icons          []EngineIcon    `json:"icons,omitempty"`
	IconURI        string          `json:"iconURI,omitempty"`
	UpdateURL      string          `json:"updateURL,omitempty"`
	IconUpdateURL  string          `json:"iconUpdateURL,omitempty"`
	UpdateInterval int             `json:"updateInterval,omitempty"`
	Location       InstallLocation `json:"installLocation"`
	ReadOnly       bool            `json:"readOnly"`
	Format         SourceFormat    `json:"format"`
	FilePath       string          `json:"filePath,omitempty"`
	SourceURL      string          `json:"sourceURL,omitempty"`
}

func (e *Engine) serializeJSON() engineJSON {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return engineJSON{
		Name:           e.name,
		Description:    e.description,
		QueryCharset:   e.queryCharset,
		SearchForm:     e.searchForm,
		URLs:           e.urls,
		Icons:          e.icons,
		IconURI:        e.iconURI,
		UpdateURL:      e.updateURL,
		IconUpdateURL:  e.iconUpdateURL,
		UpdateInterval: e.updateInterval,
		Location:       e.location,
		ReadOnly:       e.readOnly,
		Format:         e.format,
		FilePath:       e.filePath,
		SourceURL:      e.sourceURL,
	}
}

// engineFromJSON rehydrates a cached descriptor.
func engineFromJSON(j engineJSON) (*Engine, error) {
	if j.Name == "" {
		return nil, NewMissingNameError()
	}
	e := &Engine{
		name:           j.Name,
		description:    j.Description,
		queryCharset:   j.QueryCharset,
		searchForm:     j.SearchForm,
		urls:           j.URLs,
		icons:          j.Icons,
		iconURI:        j.IconURI,
		updateURL:      j.UpdateURL,
		iconUpdateURL:  j.IconUpdateURL,
		updateInterval: j.UpdateInterval,
		location:       j.Location,
		readOnly:       j.ReadOnly,
		format:         j.Format,
		filePath:       j.FilePath,
		sourceURL:      j.SourceURL,
	}
	if e.format == "" {
		e.format = FormatXML
	}
	return e, nil
}

// replaceContents overwrites the descriptor fields of e with those of
// src, preserving e's identity (backing file, install location,
// read-only flag and registry membership). This is how updates replace
// an engine while external references stay valid.
func (e *Engine) replaceContents(src *Engine) {
	src.mu.RLock()
	name := src.name
	description := src.description
	queryCharset := src.queryCharset
	searchForm := src.searchForm
	urls := src.urls
	icons := src.icons
	iconURI := src.iconURI
	updateURL := src.updateURL
	iconUpdateURL := src.iconUpdateURL
	updateInterval := src.updateInterval
	src.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.name = name
	e.description = description
	e.queryCharset = queryCharset
	e.searchForm = searchForm
	e.urls = urls
	e.icons = icons
	if iconURI != "" {
		e.iconURI = iconURI
	}
	e.updateURL = updateURL
	e.iconUpdateURL = iconUpdateURL
	e.updateInterval = updateInterval
}

// setIconURI installs a downloaded or inline icon. Remote downloads run
// through the registry's fetcher and land here asynchronously.
func (e *Engine) setIconURI(uri string, width, height int) {
	e.mu.Lock()
	preferred := width == 16 && height == 16 || e.iconURI == ""
	if preferred {
		e.iconURI = uri
	}
	if width > 0 && height > 0 {
		e.icons = append(e.icons, EngineIcon{Width: width, Height: height, URL: uri})
	}
	svc := e.svc
	readOnly := e.readOnly
	e.mu.Unlock()

	if svc != nil {
		svc.notify.NotifyEngine(e, EngineChanged)
		if !readOnly {
			e.scheduleLazySerialize()
		}
	}
}

// scheduleLazySerialize arms the engine's own file rewrite. Writable
// engines re-serialize after alias and icon mutations so the descriptor
// file keeps up with the live object.
func (e *Engine) scheduleLazySerialize() {
	svc := e.registry()
	if svc == nil {
		return
	}
	e.mu.Lock()
	if e.lazySerialize == nil {
		e.lazySerialize = NewDeferredTask(svc.config.LazySerializeDelay, func() {
			if err := e.serializeToFile(); err != nil {
				svc.config.Logger.Warn("engine file write failed",
					"engine", e.Name(), "error", err)
			}
		})
	}
	task := e.lazySerialize
	e.mu.Unlock()
	task.Start()
}

// serializeToFile writes the engine's OpenSearch XML document to its
// backing file atomically. Only writable profile engines do this.
func (e *Engine) serializeToFile() error {
	e.mu.RLock()
	path := e.filePath
	readOnly := e.readOnly
	e.mu.RUnlock()
	if path == "" || readOnly {
		return nil
	}
	data, err := e.serializeToXML()
	if err != nil {
		return err
	}
	return atomicWriteFile(path, data)
}
