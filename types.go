// types.go: core data model for the go-search engine registry
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

// SourceFormat identifies the on-disk format a search engine descriptor
// was parsed from. The format is recorded in the metadata store at first
// add so that later update fetches use the right parser even after a
// text engine has been re-serialized as XML.
type SourceFormat string

const (
	// FormatXML covers OpenSearch and MozSearch descriptor documents.
	FormatXML SourceFormat = "xml"

	// FormatText covers legacy Sherlock plain-text plugin files.
	FormatText SourceFormat = "text"
)

// InstallLocation identifies where an engine's backing file lives.
// It determines the engine's stable identity and whether the engine is
// treated as a build default (everything outside the profile is).
type InstallLocation string

const (
	// LocationAppDir is the application-shipped plugin directory.
	LocationAppDir InstallLocation = "app"

	// LocationProfile is the user profile's searchplugins directory.
	// Profile engines are the only writable, fully removable ones.
	LocationProfile InstallLocation = "profile"

	// LocationExtension is a plugin directory contributed by an extension.
	LocationExtension InstallLocation = "extension"

	// LocationPackaged is an engine loaded from the application's
	// packaged resources rather than a scanned directory.
	LocationPackaged InstallLocation = "packaged"
)

// Submission URL response types recognized by the parser. At least one
// URL of type URLTypeSearch must be present for a descriptor to be valid.
const (
	// URLTypeSearch is the HTML search results endpoint.
	URLTypeSearch = "text/html"

	// URLTypeSuggestJSON is the JSON search-suggestions endpoint.
	URLTypeSuggestJSON = "application/x-suggestions+json"

	// URLTypeOpenSearch is a self-referencing descriptor endpoint,
	// used as the update source when it carries rel="self".
	URLTypeOpenSearch = "application/opensearchdescription+xml"
)

// ParamCondition selects how a conditional query parameter resolves its
// value. Conditional parameters are only honored on default engines.
type ParamCondition string

const (
	// ConditionNone marks an ordinary fixed name/value parameter.
	ConditionNone ParamCondition = ""

	// ConditionPurpose includes the parameter only when the submission
	// purpose matches the parameter's purpose tag.
	ConditionPurpose ParamCondition = "purpose"

	// ConditionDefaultEngine picks TrueValue or FalseValue depending on
	// whether the owning engine is a build-default engine.
	ConditionDefaultEngine ParamCondition = "defaultEngine"

	// ConditionPref reads the value from the configured preference map
	// at submission time.
	ConditionPref ParamCondition = "pref"

	// ConditionTopN includes the value only while the owning engine
	// ranks within the first N visible engines. The rank is computed at
	// submission time, never cached.
	ConditionTopN ParamCondition = "topN"
)

// QueryParameter is one name/value pair attached to an EngineURL.
// Conditional parameters (Condition != ConditionNone) are re-evaluated
// on every submission.
type QueryParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`

	// Purpose restricts the parameter to submissions sharing the same
	// purpose tag ("searchbar", "contextmenu", ...). Empty matches all.
	Purpose string `json:"purpose,omitempty"`

	Condition ParamCondition `json:"condition,omitempty"`

	// Pref names the preference consulted for ConditionPref values.
	Pref string `json:"pref,omitempty"`

	// TrueValue/FalseValue are the ConditionDefaultEngine alternatives.
	TrueValue  string `json:"trueValue,omitempty"`
	FalseValue string `json:"falseValue,omitempty"`

	// TopN is the rank threshold for ConditionTopN parameters.
	TopN int `json:"topN,omitempty"`
}

// EngineURL is one submission endpoint of an engine: a response type,
// an HTTP method, a URL template and its ordered parameters.
type EngineURL struct {
	// Type is the MIME type of the response this endpoint produces.
	Type string `json:"type"`

	// Method is "GET" or "POST". Nothing else is accepted.
	Method string `json:"method"`

	// Template is the OpenSearch URL template, possibly containing
	// {searchTerms}-style substitution tokens.
	Template string `json:"template"`

	// Params are appended as query string (GET) or body (POST) pairs,
	// in declaration order.
	Params []QueryParameter `json:"params,omitempty"`

	// Rels carries the space-split rel attribute ("self", ...).
	Rels []string `json:"rels,omitempty"`
}

// HasRelation reports whether the URL declares the given rel tag.
// Matching is case-insensitive per the OpenSearch attribute convention.
func (u *EngineURL) HasRelation(rel string) bool {
	for _, r := range u.Rels {
		if equalFold(r, rel) {
			return true
		}
	}
	return false
}

// Submission is a fully expanded search request: the URL to load and,
// for POST endpoints, the encoded body and its content type.
type Submission struct {
	// URL is the expanded submission URL.
	URL string

	// PostData is the urlencoded body for POST submissions, nil for GET.
	PostData []byte

	// ContentType is set alongside PostData
	// ("application/x-www-form-urlencoded").
	ContentType string
}

// EngineIcon is one icon resource declared by a descriptor, keyed by its
// declared pixel dimensions.
type EngineIcon struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// NotificationVerb identifies what happened to an engine in a change
// notification.
type NotificationVerb string

const (
	EngineAdded   NotificationVerb = "engine-added"
	EngineRemoved NotificationVerb = "engine-removed"
	EngineChanged NotificationVerb = "engine-changed"
	EngineLoaded  NotificationVerb = "engine-loaded"
	EngineCurrent NotificationVerb = "engine-current"
	EngineDefault NotificationVerb = "engine-default"
)

// Lifecycle notification topics emitted by the service itself rather
// than about a particular engine.
const (
	TopicInitComplete    = "init-complete"
	TopicCacheWritten    = "cache-written"
	TopicMetadataWritten = "metadata-written"
)

// equalFold is ASCII-only case-insensitive equality. Descriptor keywords
// are all ASCII, so Unicode folding is unnecessary.
func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
