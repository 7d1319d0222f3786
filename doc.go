// Package gosearch provides a production-ready search engine registry
// for Go applications. It discovers OpenSearch and Sherlock search
// plugin descriptors, builds search submissions from user terms, and
// manages the default and current engine selections with persistent
// user customizations.
//
// Key Features:
//   - OpenSearch 1.0/1.1 and Sherlock (.src) descriptor parsing
//   - Template parameter substitution including conditional parameters
//   - Legacy charset handling for Sherlock plugins
//   - Startup cache keyed to build identity and directory timestamps
//   - Persistent per-engine metadata (alias, hidden, order, update state)
//   - Periodic descriptor and icon updates with https enforcement
//   - Hot-reloading of engine selections from a watched preference file
//   - Synchronous and asynchronous initialization
//
// Basic Usage:
//
//	config := &gosearch.Config{
//		ProfileDir: "/home/user/.profile",
//		EngineDirs: []string{
//			"/usr/lib/app/searchplugins",
//			"/home/user/.profile/searchplugins",
//		},
//		ProfileEngineDir: "/home/user/.profile/searchplugins",
//		CacheEnabled:     true,
//	}
//
//	registry, err := gosearch.NewRegistry(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := registry.Init(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer registry.Close()
//
//	// Build a search request for the current engine
//	engine := registry.CurrentEngine()
//	sub, err := engine.Submission("rust tutorials", "", "")
//
// Persistence:
// Engine mutations debounce into three writers: the metadata store, the
// engine cache, and per-engine descriptor files. All writes are atomic
// (temp file plus rename), so a crash never leaves a torn file behind.
//
// Security:
// Downloaded descriptors and icons are size-capped, default engine
// updates require https, and installs and refused updates can be
// recorded through the argus audit trail.
//
// Copyright (c) 2025 AGILira - A. Giordano
// SPDX-License-Identifier: MPL-2.0
package gosearch
