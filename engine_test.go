// engine_test.go: engine descriptor and submission tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGetEngine(name, template string, params ...QueryParameter) *Engine {
	return &Engine{
		name: name,
		urls: []*EngineURL{{
			Type:     URLTypeSearch,
			Method:   "GET",
			Template: template,
			Params:   params,
		}},
		location: LocationProfile,
		format:   FormatXML,
	}
}

func TestEngine_Submission_GetTemplate(t *testing.T) {
	e := newGetEngine("Get", "https://e.example/search?q={searchTerms}")

	sub, err := e.Submission("hello world", "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://e.example/search?q=hello+world", sub.URL)
	assert.Nil(t, sub.PostData)
}

func TestEngine_Submission_GetParams(t *testing.T) {
	e := newGetEngine("Get", "https://e.example/search",
		QueryParameter{Name: "q", Value: "{searchTerms}"},
		QueryParameter{Name: "src", Value: "app"},
	)

	sub, err := e.Submission("terms", "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://e.example/search?q=terms&src=app", sub.URL)
}

func TestEngine_Submission_GetParamsAppendToExistingQuery(t *testing.T) {
	e := newGetEngine("Get", "https://e.example/search?hl=en",
		QueryParameter{Name: "q", Value: "{searchTerms}"},
	)

	sub, err := e.Submission("x", "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://e.example/search?hl=en&q=x", sub.URL)
}

func TestEngine_Submission_Post(t *testing.T) {
	e := &Engine{
		name: "Post",
		urls: []*EngineURL{{
			Type:     URLTypeSearch,
			Method:   "POST",
			Template: "https://e.example/search",
			Params: []QueryParameter{
				{Name: "query", Value: "{searchTerms}"},
				{Name: "mode", Value: "all"},
			},
		}},
	}

	sub, err := e.Submission("foo", "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://e.example/search", sub.URL)
	assert.Equal(t, "query=foo&mode=all", string(sub.PostData))
	assert.Equal(t, "application/x-www-form-urlencoded", sub.ContentType)
}

func TestEngine_Submission_LegacyCharsetEscaping(t *testing.T) {
	e := newGetEngine("Legacy", "https://e.example/s?q={searchTerms}")
	e.queryCharset = "ISO-8859-1"

	sub, err := e.Submission("café", "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://e.example/s?q=caf%E9", sub.URL,
		"terms are escaped in the engine's query charset")
}

func TestEngine_Submission_PurposeFiltering(t *testing.T) {
	e := newGetEngine("Purposeful", "https://e.example/s?q={searchTerms}")
	e.urls[0].Params = []QueryParameter{
		{Name: "channel", Value: "ctx", Purpose: "contextmenu"},
		{Name: "always", Value: "1"},
	}

	sub, err := e.Submission("x", "", "searchbar")
	require.NoError(t, err)
	assert.Equal(t, "https://e.example/s?q=x&always=1", sub.URL,
		"parameters tagged with another purpose are omitted")

	sub, err = e.Submission("x", "", "contextmenu")
	require.NoError(t, err)
	assert.Equal(t, "https://e.example/s?q=x&channel=ctx&always=1", sub.URL)
}

func TestEngine_Submission_UnsupportedResponseType(t *testing.T) {
	e := newGetEngine("NoSuggest", "https://e.example/s?q={searchTerms}")
	_, err := e.Submission("x", URLTypeSuggestJSON, "")
	assert.Error(t, err)
}

func TestEngine_Submission_ConditionalParamsNeedDefaultEngine(t *testing.T) {
	e := newGetEngine("Profile", "https://e.example/s?q={searchTerms}")
	e.urls[0].Params = []QueryParameter{
		{Name: "pref", Condition: ConditionPref, Pref: "channel"},
	}
	// A profile engine outside any registry: conditional params drop out.
	sub, err := e.Submission("x", "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://e.example/s?q=x", sub.URL)
}

func TestEngine_ID_Stability(t *testing.T) {
	cases := []struct {
		name     string
		engine   *Engine
		expected string
	}{
		{"app", &Engine{filePath: "/opt/app/searchplugins/web.xml", location: LocationAppDir}, "[app]/web.xml"},
		{"profile", &Engine{filePath: "/home/u/p/searchplugins/web.xml", location: LocationProfile}, "[profile]/web.xml"},
		{"extension", &Engine{filePath: "/ext/plugins/web.xml", location: LocationExtension}, "/ext/plugins/web.xml"},
		{"no_file", &Engine{sourceURL: "https://e.example/web.xml"}, "https://e.example/web.xml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.engine.ID())
		})
	}
}

func TestEngine_IsDefault(t *testing.T) {
	assert.True(t, (&Engine{location: LocationAppDir}).IsDefault())
	assert.True(t, (&Engine{location: LocationPackaged}).IsDefault())
	assert.False(t, (&Engine{location: LocationProfile}).IsDefault())
}

func TestEngine_UpdateIntervalFallback(t *testing.T) {
	assert.Equal(t, DefaultUpdateIntervalDays, (&Engine{}).UpdateInterval())
	assert.Equal(t, 2, (&Engine{updateInterval: 2}).UpdateInterval())
}

func TestEngine_QueryCharsetFallback(t *testing.T) {
	assert.Equal(t, defaultQueryCharset, (&Engine{}).QueryCharset())
}

func TestEngine_ReplaceContentsPreservesIdentity(t *testing.T) {
	existing := newGetEngine("Old Name", "https://old.example/?q={searchTerms}")
	existing.filePath = "/profile/searchplugins/old.xml"
	existing.description = "old"

	update := newGetEngine("New Name", "https://new.example/?q={searchTerms}")
	update.description = "new"

	existing.replaceContents(update)

	assert.Equal(t, "New Name", existing.Name())
	assert.Equal(t, "new", existing.Description())
	assert.Equal(t, "https://new.example/?q={searchTerms}",
		existing.URLOf(URLTypeSearch).Template)
	assert.Equal(t, "/profile/searchplugins/old.xml", existing.FilePath(),
		"the backing file must survive a content replacement")
	assert.Equal(t, LocationProfile, existing.Location())
}

func TestEngineFromJSON_RoundTrip(t *testing.T) {
	original := newGetEngine("Round Trip", "https://e.example/?q={searchTerms}")
	original.description = "desc"
	original.iconURI = "data:image/png;base64,AA=="
	original.updateURL = "https://e.example/engine.xml"

	restored, err := engineFromJSON(original.serializeJSON())
	require.NoError(t, err)

	assert.Equal(t, original.Name(), restored.Name())
	assert.Equal(t, original.Description(), restored.Description())
	assert.Equal(t, original.IconURI(), restored.IconURI())
	assert.Equal(t, original.UpdateURL(), restored.UpdateURL())
	assert.Equal(t, original.URLOf(URLTypeSearch).Template,
		restored.URLOf(URLTypeSearch).Template)
}

func TestEngineFromJSON_RejectsMissingName(t *testing.T) {
	_, err := engineFromJSON(engineJSON{})
	assert.Error(t, err)
}
