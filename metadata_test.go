// metadata_test.go: engine metadata store tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetadataStore(t *testing.T) (*MetadataStore, string) {
	t.Helper()
	dir := t.TempDir()
	config := &Config{
		ProfileDir:          dir,
		MetadataCommitDelay: 10 * time.Millisecond,
		Logger:              NewNoOpLogger(),
	}
	setConfigDefaults(config)
	return NewMetadataStore(dir, config, NewNotifier(config.Logger)), dir
}

func TestMetadataStore_SetGetAttr(t *testing.T) {
	m, _ := newTestMetadataStore(t)
	m.SyncInit()

	m.SetAttr("[app]/engine.xml", "alias", "ex")
	m.SetAttr("[app]/engine.xml", "hidden", true)

	assert.Equal(t, "ex", m.GetAttr("[app]/engine.xml", "alias"))
	assert.Equal(t, true, m.GetAttr("[app]/engine.xml", "hidden"))
	assert.Nil(t, m.GetAttr("[app]/engine.xml", "missing"))
	assert.Nil(t, m.GetAttr("[app]/other.xml", "alias"))
}

func TestMetadataStore_SetAttrBeforeInit(t *testing.T) {
	m, _ := newTestMetadataStore(t)

	require.NotPanics(t, func() {
		m.SetAttr("[app]/engine.xml", "alias", "g")
		m.SetAttrs([]MetadataChange{{EngineID: "[app]/engine.xml", Key: "order", Value: 1}})
	}, "writes must degrade gracefully before an init path runs")
	assert.Equal(t, "g", m.GetAttr("[app]/engine.xml", "alias"))

	// Init still installs the (empty) disk store afterwards.
	m.SyncInit()
	assert.True(t, m.Initialized())
}

func TestMetadataStore_AttrNamesAreCaseInsensitive(t *testing.T) {
	m, _ := newTestMetadataStore(t)
	m.SyncInit()

	m.SetAttr("id", "Alias", "kw")
	assert.Equal(t, "kw", m.GetAttr("id", "alias"))
	assert.Equal(t, "kw", m.GetAttr("id", "ALIAS"))
}

func TestMetadataStore_PersistsAcrossInstances(t *testing.T) {
	m, dir := newTestMetadataStore(t)
	m.SyncInit()

	m.SetAttr("[profile]/custom.xml", "order", 3)
	m.SetAttr("[profile]/custom.xml", "updateexpir", int64(1700000000000))
	m.Flush()

	_, err := os.Stat(filepath.Join(dir, metadataFileName))
	require.NoError(t, err, "flush must write the metadata file")

	config := &Config{ProfileDir: dir, Logger: NewNoOpLogger()}
	setConfigDefaults(config)
	reloaded := NewMetadataStore(dir, config, NewNotifier(config.Logger))
	reloaded.SyncInit()

	order, ok := reloaded.GetAttrInt("[profile]/custom.xml", "order")
	require.True(t, ok)
	assert.Equal(t, 3, order, "ints survive the JSON round trip")

	expiry, ok := reloaded.GetAttrInt64("[profile]/custom.xml", "updateexpir")
	require.True(t, ok)
	assert.Equal(t, int64(1700000000000), expiry)
}

func TestMetadataStore_RemoveEngine(t *testing.T) {
	m, _ := newTestMetadataStore(t)
	m.SyncInit()

	m.SetAttr("doomed", "alias", "d")
	m.RemoveEngine("doomed")
	assert.Nil(t, m.GetAttr("doomed", "alias"))
}

func TestMetadataStore_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, metadataFileName),
		[]byte("{ not json"), 0o644))

	config := &Config{ProfileDir: dir, Logger: NewTestLogger()}
	setConfigDefaults(config)
	m := NewMetadataStore(dir, config, NewNotifier(config.Logger))
	m.SyncInit()

	assert.True(t, m.Initialized())
	assert.Nil(t, m.GetAttr("anything", "alias"))
}

func TestMetadataStore_SyncInitWinsOverAsync(t *testing.T) {
	m, _ := newTestMetadataStore(t)

	ch := m.InitAsync(context.Background())
	m.SyncInit()
	assert.True(t, m.Initialized(),
		"the synchronous path must not wait for the async one")

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("async init did not settle")
	}
	assert.True(t, m.Initialized())
}

func TestMetadataStore_CommitDebounces(t *testing.T) {
	m, dir := newTestMetadataStore(t)
	m.SyncInit()

	for i := 0; i < 5; i++ {
		m.SetAttr("id", "order", i)
	}
	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, metadataFileName))
		return err == nil
	}, 2*time.Second, 5*time.Millisecond, "debounced commit must land on disk")
}

func TestMetadataStore_SetAttrs(t *testing.T) {
	m, _ := newTestMetadataStore(t)
	m.SyncInit()

	m.SetAttrs([]MetadataChange{
		{EngineID: "a", Key: "order", Value: 1},
		{EngineID: "b", Key: "order", Value: 2},
	})
	orderA, okA := m.GetAttrInt("a", "order")
	orderB, okB := m.GetAttrInt("b", "order")
	require.True(t, okA)
	require.True(t, okB)
	assert.Equal(t, 1, orderA)
	assert.Equal(t, 2, orderB)
}
