// fetcher.go: descriptor and icon downloads
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Fetcher downloads engine descriptors and icons over HTTP. All
// downloads are size-capped: descriptor documents by MaxFetchSize,
// icons by MaxIconSize. Anything larger is refused, not truncated.
type Fetcher struct {
	client *resty.Client
	config *Config
	logger Logger
}

// NewFetcher builds a fetcher from the service configuration.
func NewFetcher(config *Config) *Fetcher {
	client := resty.New().
		SetTimeout(config.FetchTimeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)).
		SetHeader("Accept", "application/opensearchdescription+xml, application/xml, text/xml, */*")
	return &Fetcher{
		client: client,
		config: config,
		logger: config.Logger,
	}
}

// FetchDescriptor downloads an engine descriptor document.
func (f *Fetcher) FetchDescriptor(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, NewEngineFetchFailedError(url, err)
	}
	if resp.IsError() {
		return nil, NewEngineFetchFailedError(url, nil).
			WithContext("status", resp.StatusCode())
	}
	body := resp.Body()
	if int64(len(body)) > f.config.MaxFetchSize {
		return nil, NewResponseTooLargeError(url, int64(len(body)), f.config.MaxFetchSize)
	}
	f.logger.Debug("descriptor fetched", "url", url, "bytes", len(body))
	return body, nil
}

// FetchIcon resolves an icon reference to a data: URI. Inline data:
// URIs pass through after a syntax check; remote icons are downloaded,
// size-capped and re-encoded so callers never hold a live remote
// reference.
func (f *Fetcher) FetchIcon(ctx context.Context, rawURL string) (string, error) {
	if strings.HasPrefix(rawURL, "data:") {
		if _, err := decodeDataURI(rawURL); err != nil {
			return "", NewIconFetchFailedError(rawURL, err)
		}
		return rawURL, nil
	}

	resp, err := f.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return "", NewIconFetchFailedError(rawURL, err)
	}
	if resp.IsError() {
		return "", NewIconFetchFailedError(rawURL, nil).
			WithContext("status", resp.StatusCode())
	}
	body := resp.Body()
	if int64(len(body)) > f.config.MaxIconSize {
		return "", NewResponseTooLargeError(rawURL, int64(len(body)), f.config.MaxIconSize)
	}

	contentType := resp.Header().Get("Content-Type")
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		contentType = contentType[:idx]
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = "image/x-icon"
	}
	return "data:" + contentType + ";base64," +
		base64.StdEncoding.EncodeToString(body), nil
}

// decodeDataURI extracts the payload of a data: URI, handling both
// base64 and percent-free plain payloads.
func decodeDataURI(uri string) ([]byte, error) {
	rest := strings.TrimPrefix(uri, "data:")
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return nil, NewInvalidEngineURLError(uri, nil)
	}
	meta, payload := rest[:comma], rest[comma+1:]
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	return []byte(payload), nil
}
