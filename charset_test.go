// charset_test.go: legacy charset table and escaping tests
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

func TestQueryCharsetFromCode_KnownCodes(t *testing.T) {
	cases := []struct {
		code     int
		expected string
	}{
		{0, "macintosh"},
		{513, "ISO-8859-1"},
		{514, "ISO-8859-2"},
		{1280, "windows-1250"},
		{1536, "us-ascii"},
		{2561, "Shift_JIS"},
		{2562, "KOI8-R"},
		{2563, "Big5"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, queryCharsetFromCode(tc.code),
			"query charset for code %d", tc.code)
	}
}

func TestQueryCharsetFromCode_UnknownCodeFallsBack(t *testing.T) {
	assert.Equal(t, "windows-1252", queryCharsetFromCode(9999))
	assert.Equal(t, "windows-1252", queryCharsetFromCode(-1))
}

func TestFileCharsetFromCode_Defaults(t *testing.T) {
	assert.Equal(t, "macintosh", fileCharsetFromCode(0))
	assert.Equal(t, "macintosh", fileCharsetFromCode(9999),
		"unknown file charset codes fall back to the Mac default")
}

func TestDecodeBytes_Windows1252(t *testing.T) {
	// 0xE9 is e-acute in windows-1252.
	out, err := decodeBytes([]byte{'c', 'a', 'f', 0xE9}, "windows-1252")
	require.NoError(t, err)
	assert.Equal(t, "café", out)
}

func TestDecodeBytes_UnknownLabel(t *testing.T) {
	_, err := decodeBytes([]byte("x"), "no-such-charset")
	assert.Error(t, err)
}

func TestEncodingForLabel_MacScriptFallback(t *testing.T) {
	enc, err := encodingForLabel("X-MAC-GREEK")
	require.NoError(t, err, "Mac script labels must resolve through the fallback")
	assert.NotNil(t, enc)
}

func TestEscapeSearchTerms_UTF8(t *testing.T) {
	assert.Equal(t, "foo+bar", escapeSearchTerms("foo bar", "UTF-8"))
	assert.Equal(t, "caf%C3%A9", escapeSearchTerms("café", "UTF-8"))
}

func TestEscapeSearchTerms_Legacy(t *testing.T) {
	// e-acute is a single 0xE9 byte in ISO-8859-1.
	assert.Equal(t, "caf%E9", escapeSearchTerms("café", "ISO-8859-1"))
}

func TestEscapeSearchTerms_UnrepresentableFallsBackToUTF8(t *testing.T) {
	// Kanji cannot be encoded in ISO-8859-1.
	out := escapeSearchTerms("日本", "ISO-8859-1")
	assert.Equal(t, "%E6%97%A5%E6%9C%AC", out)
}

func TestAsciiFilter(t *testing.T) {
	out := asciiFilter([]byte{'a', 0xFF, 'b', 0x80, 'c'})
	assert.Equal(t, "abc", out)
}
