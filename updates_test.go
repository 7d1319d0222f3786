// updates_test.go: update scheduler and descriptor refresh tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agilira/go-timecache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func updatableEngineDoc(name, template, updateURL, iconUpdateURL string) string {
	var extra strings.Builder
	if updateURL != "" {
		fmt.Fprintf(&extra, "  <UpdateUrl>%s</UpdateUrl>\n", updateURL)
	}
	if iconUpdateURL != "" {
		fmt.Fprintf(&extra, "  <IconUpdateUrl>%s</IconUpdateUrl>\n", iconUpdateURL)
	}
	return fmt.Sprintf(`<OpenSearchDescription xmlns="http://a9.com/-/spec/opensearch/1.1/">
  <ShortName>%s</ShortName>
  <Url type="text/html" method="GET" template="%s"/>
%s</OpenSearchDescription>`, name, template, extra.String())
}

// newUpdatesRegistry initializes a registry with the update subsystem
// enabled over the given descriptor documents, keyed by file base name.
func newUpdatesRegistry(t *testing.T, appDocs, profDocs map[string]string) *Registry {
	t.Helper()
	profileDir := t.TempDir()
	appDir := filepath.Join(t.TempDir(), "searchplugins")
	profEngines := filepath.Join(profileDir, "searchplugins")

	writeDocs := func(dir string, docs map[string]string) {
		if len(docs) == 0 {
			return
		}
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for base, doc := range docs {
			path := filepath.Join(dir, base+".xml")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
		}
	}
	writeDocs(appDir, appDocs)
	writeDocs(profEngines, profDocs)

	config := &Config{
		ProfileDir:          profileDir,
		EngineDirs:          []string{appDir, profEngines},
		ProfileEngineDir:    profEngines,
		UpdatesEnabled:      true,
		MetadataCommitDelay: 10 * time.Millisecond,
		CacheWriteDelay:     10 * time.Millisecond,
		LazySerializeDelay:  10 * time.Millisecond,
		Logger:              NewNoOpLogger(),
	}
	r, err := NewRegistry(config)
	require.NoError(t, err)
	require.NoError(t, r.Init(context.Background()))
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func markUpdateDue(r *Registry, engine *Engine) {
	r.meta.SetAttr(engine.ID(), "updateexpir", int64(1))
}

func TestUpdates_InstallRecordsExpiry(t *testing.T) {
	r := newUpdatesRegistry(t, nil, map[string]string{
		"upd": updatableEngineDoc("Updatable",
			"https://u.example/?q={searchTerms}",
			"https://u.example/engine.xml", ""),
	})

	engine := r.GetEngineByName("Updatable")
	require.NotNil(t, engine)

	expiry, ok := r.meta.GetAttrInt64(engine.ID(), "updateexpir")
	require.True(t, ok, "loading an updatable engine schedules its first check")
	assert.Greater(t, expiry, timecache.CachedTime().UnixMilli(),
		"first expiry lies a full interval in the future")
	assert.Equal(t, "xml", r.meta.GetAttr(engine.ID(), "updatedatatype"))
}

func TestUpdates_NoExpiryForPlainEngines(t *testing.T) {
	r := newUpdatesRegistry(t, nil, map[string]string{
		"plain": updatableEngineDoc("Plain",
			"https://p.example/?q={searchTerms}", "", ""),
	})

	engine := r.GetEngineByName("Plain")
	require.NotNil(t, engine)
	assert.False(t, engine.HasUpdates())

	_, ok := r.meta.GetAttrInt64(engine.ID(), "updateexpir")
	assert.False(t, ok)
}

func TestUpdates_NotDueEngineLeftAlone(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	r := newUpdatesRegistry(t, nil, map[string]string{
		"upd": updatableEngineDoc("Updatable",
			"https://u.example/?q={searchTerms}",
			server.URL+"/engine.xml", ""),
	})

	r.CheckForUpdates(context.Background())
	assert.Equal(t, int32(0), hits.Load(),
		"a freshly scheduled engine is not due yet")
}

func TestUpdates_DisabledTogglePreventsRefresh(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	profileDir := t.TempDir()
	profEngines := filepath.Join(profileDir, "searchplugins")
	require.NoError(t, os.MkdirAll(profEngines, 0o755))
	doc := updatableEngineDoc("Stale",
		"https://s.example/?q={searchTerms}", server.URL+"/engine.xml", "")
	require.NoError(t, os.WriteFile(filepath.Join(profEngines, "stale.xml"), []byte(doc), 0o644))

	config := &Config{
		ProfileDir:       profileDir,
		EngineDirs:       []string{profEngines},
		ProfileEngineDir: profEngines,
		Logger:           NewNoOpLogger(),
	}
	r, err := NewRegistry(config)
	require.NoError(t, err)
	require.NoError(t, r.Init(context.Background()))
	t.Cleanup(func() { _ = r.Close() })

	// An expiry recorded while updates were enabled must not fire once
	// the global toggle is off.
	engine := r.GetEngineByName("Stale")
	require.NotNil(t, engine)
	markUpdateDue(r, engine)

	r.CheckForUpdates(context.Background())
	assert.Equal(t, int32(0), hits.Load())
}

func TestUpdates_DueEngineRefreshed(t *testing.T) {
	var served atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(served.Load().(string)))
	}))
	defer server.Close()

	r := newUpdatesRegistry(t, nil, map[string]string{
		"upd": updatableEngineDoc("Updatable",
			"https://old.example/?q={searchTerms}",
			server.URL+"/engine.xml", ""),
	})
	served.Store(updatableEngineDoc("Updatable",
		"https://new.example/?q={searchTerms}",
		server.URL+"/engine.xml", ""))

	engine := r.GetEngineByName("Updatable")
	require.NotNil(t, engine)
	markUpdateDue(r, engine)

	r.CheckForUpdates(context.Background())

	sub, err := engine.Submission("foo", URLTypeSearch, "")
	require.NoError(t, err)
	assert.Equal(t, "https://new.example/?q=foo", sub.URL,
		"descriptor contents are replaced in place")
	assert.Same(t, engine, r.GetEngineByName("Updatable"),
		"the engine object survives the update")

	expiry, ok := r.meta.GetAttrInt64(engine.ID(), "updateexpir")
	require.True(t, ok)
	assert.Greater(t, expiry, timecache.CachedTime().UnixMilli(),
		"a successful update schedules the next one")
}

func TestUpdates_RenamedEngineStaysResolvable(t *testing.T) {
	var served atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(served.Load().(string)))
	}))
	defer server.Close()

	r := newUpdatesRegistry(t, nil, map[string]string{
		"upd": updatableEngineDoc("Oldname",
			"https://old.example/?q={searchTerms}",
			server.URL+"/engine.xml", ""),
	})
	served.Store(updatableEngineDoc("Newname",
		"https://new.example/?q={searchTerms}",
		server.URL+"/engine.xml", ""))

	engine := r.GetEngineByName("Oldname")
	require.NotNil(t, engine)
	markUpdateDue(r, engine)

	r.CheckForUpdates(context.Background())

	assert.Nil(t, r.GetEngineByName("Oldname"))
	assert.Same(t, engine, r.GetEngineByName("Newname"))
	assert.Equal(t, "Newname", engine.Name())
}

func TestUpdates_InsecureDefaultEngineRefused(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	// App-dir engines are build defaults, and defaults only update over
	// https. The plain-http test server must never be contacted.
	r := newUpdatesRegistry(t, map[string]string{
		"def": updatableEngineDoc("Default",
			"https://d.example/?q={searchTerms}",
			server.URL+"/engine.xml", ""),
	}, nil)

	engine := r.GetEngineByName("Default")
	require.NotNil(t, engine)
	require.True(t, engine.IsDefault())
	markUpdateDue(r, engine)

	r.CheckForUpdates(context.Background())
	assert.Equal(t, int32(0), hits.Load())

	expiry, ok := r.meta.GetAttrInt64(engine.ID(), "updateexpir")
	require.True(t, ok)
	assert.Greater(t, expiry, timecache.CachedTime().UnixMilli(),
		"a refused update still reschedules")
}

func TestUpdates_SelfURLPreferredOverUpdateURL(t *testing.T) {
	doc := `<OpenSearchDescription xmlns="http://a9.com/-/spec/opensearch/1.1/">
  <ShortName>Selfish</ShortName>
  <Url type="text/html" method="GET" template="https://s.example/?q={searchTerms}"/>
  <Url type="application/opensearchdescription+xml" rel="self" template="https://s.example/descriptor.xml"/>
  <UpdateUrl>https://s.example/legacy.xml</UpdateUrl>
</OpenSearchDescription>`
	r := newUpdatesRegistry(t, nil, map[string]string{"selfish": doc})

	engine := r.GetEngineByName("Selfish")
	require.NotNil(t, engine)
	assert.Equal(t, "https://s.example/descriptor.xml",
		r.updater.descriptorURL(engine))
}

func TestUpdates_IconRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer server.Close()

	r := newUpdatesRegistry(t, nil, map[string]string{
		"icon": updatableEngineDoc("Iconic",
			"https://i.example/?q={searchTerms}",
			"", server.URL+"/icon.png"),
	})

	engine := r.GetEngineByName("Iconic")
	require.NotNil(t, engine)
	require.True(t, engine.HasUpdates(),
		"an icon update URL alone makes the engine updatable")
	markUpdateDue(r, engine)

	r.CheckForUpdates(context.Background())
	assert.True(t, strings.HasPrefix(engine.IconURI(), "data:image/png;base64,"))
}

func TestUpdateService_StartStopIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	u := newUpdateService(r)

	u.start()
	u.start()
	assert.True(t, u.running.Load())

	u.stop()
	u.stop()
	assert.False(t, u.running.Load())
}
