// parser.go: descriptor parse dispatch
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

// ParseEngine parses a raw descriptor buffer into an engine. Both
// formats yield the same descriptor shape: one or more submission
// endpoints, of which exactly one must produce HTML results.
func ParseEngine(data []byte, format SourceFormat, location InstallLocation, readOnly bool) (*Engine, error) {
	switch format {
	case FormatText:
		return parseSherlock(data, location, readOnly)
	default:
		return parseOpenSearch(data, location, readOnly)
	}
}
