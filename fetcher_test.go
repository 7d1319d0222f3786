// fetcher_test.go: descriptor and icon download tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(maxFetch, maxIcon int64) *Fetcher {
	config := &Config{
		ProfileDir:   "/tmp",
		MaxFetchSize: maxFetch,
		MaxIconSize:  maxIcon,
		Logger:       NewNoOpLogger(),
	}
	setConfigDefaults(config)
	return NewFetcher(config)
}

func TestFetcher_FetchDescriptor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleOpenSearchXML))
	}))
	defer server.Close()

	f := newTestFetcher(0, 0)
	data, err := f.FetchDescriptor(context.Background(), server.URL+"/engine.xml")
	require.NoError(t, err)
	assert.Equal(t, sampleOpenSearchXML, string(data))
}

func TestFetcher_FetchDescriptor_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := newTestFetcher(0, 0)
	_, err := f.FetchDescriptor(context.Background(), server.URL+"/missing.xml")
	assert.Error(t, err)
}

func TestFetcher_FetchDescriptor_SizeCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer server.Close()

	f := newTestFetcher(1024, 0)
	_, err := f.FetchDescriptor(context.Background(), server.URL+"/big.xml")
	assert.Error(t, err, "oversize descriptors are refused, not truncated")
}

func TestFetcher_FetchIcon_DataURIPassthrough(t *testing.T) {
	f := newTestFetcher(0, 0)

	uri := "data:image/png;base64,iVBORw0KGgo="
	out, err := f.FetchIcon(context.Background(), uri)
	require.NoError(t, err)
	assert.Equal(t, uri, out)
}

func TestFetcher_FetchIcon_MalformedDataURI(t *testing.T) {
	f := newTestFetcher(0, 0)
	_, err := f.FetchIcon(context.Background(), "data:image/png;base64---nope")
	assert.Error(t, err)
}

func TestFetcher_FetchIcon_RemoteBecomesDataURI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer server.Close()

	f := newTestFetcher(0, 0)
	out, err := f.FetchIcon(context.Background(), server.URL+"/icon.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "data:image/png;base64,"),
		"remote icons are inlined so no live remote reference remains")

	payload, err := decodeDataURI(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, payload)
}

func TestFetcher_FetchIcon_SizeCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	f := newTestFetcher(0, 1024)
	_, err := f.FetchIcon(context.Background(), server.URL+"/big.ico")
	assert.Error(t, err)
}

func TestDecodeDataURI(t *testing.T) {
	payload, err := decodeDataURI("data:text/plain,hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(payload))

	payload, err = decodeDataURI("data:text/plain;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(payload))

	_, err = decodeDataURI("data:no-comma")
	assert.Error(t, err)
}
