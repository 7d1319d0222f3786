// charset.go: legacy character set handling for Sherlock plugins and
// query escaping
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// defaultQueryCharset matches the historical behavior for engines that
// never declare a query encoding.
const defaultQueryCharset = "ISO-8859-1"

// queryCharsetFromCode maps the numeric queryEncoding codes found in
// Sherlock files to charset labels. Unknown codes fall back to
// windows-1252.
func queryCharsetFromCode(code int) string {
	codes := map[int]string{
		0:    "macintosh",
		6:    "x-mac-greek",
		35:   "x-mac-turkish",
		513:  "ISO-8859-1",
		514:  "ISO-8859-2",
		517:  "ISO-8859-5",
		518:  "ISO-8859-6",
		519:  "ISO-8859-7",
		520:  "ISO-8859-8",
		521:  "ISO-8859-9",
		1280: "windows-1252",
		1281: "windows-1250",
		1282: "windows-1251",
		1283: "windows-1253",
		1284: "windows-1254",
		1285: "windows-1255",
		1286: "windows-1256",
		1536: "us-ascii",
		1584: "GB2312",
		1585: "gbk",
		1600: "EUC-KR",
		2080: "ISO-2022-JP",
		2096: "ISO-2022-CN",
		2112: "ISO-2022-KR",
		2336: "EUC-JP",
		2352: "GB2312",
		2353: "x-euc-tw",
		2368: "EUC-KR",
		2561: "Shift_JIS",
		2562: "KOI8-R",
		2563: "Big5",
		2565: "HZ-GB-2312",
	}
	if charset, ok := codes[code]; ok {
		return charset
	}
	return "windows-1252"
}

// fileCharsetFromCode maps the numeric sourceTextEncoding codes found in
// Sherlock files to charset labels. Sherlock files have always defaulted
// to macintosh, so unknown codes do too.
func fileCharsetFromCode(code int) string {
	codes := []string{
		"macintosh",             // 0
		"Shift_JIS",             // 1
		"Big5",                  // 2
		"EUC-KR",                // 3
		"X-MAC-ARABIC",          // 4
		"X-MAC-HEBREW",          // 5
		"X-MAC-GREEK",           // 6
		"X-MAC-CYRILLIC",        // 7
		"X-MAC-DEVANAGARI",      // 9
		"X-MAC-GURMUKHI",        // 10
		"X-MAC-GUJARATI",        // 11
		"X-MAC-ORIYA",           // 12
		"X-MAC-BENGALI",         // 13
		"X-MAC-TAMIL",           // 14
		"X-MAC-TELUGU",          // 15
		"X-MAC-KANNADA",         // 16
		"X-MAC-MALAYALAM",       // 17
		"X-MAC-SINHALESE",       // 18
		"X-MAC-BURMESE",         // 19
		"X-MAC-KHMER",           // 20
		"X-MAC-THAI",            // 21
		"X-MAC-LAOTIAN",         // 22
		"X-MAC-GEORGIAN",        // 23
		"X-MAC-ARMENIAN",        // 24
		"GB2312",                // 25
		"X-MAC-TIBETAN",         // 26
		"X-MAC-MONGOLIAN",       // 27
		"X-MAC-ETHIOPIC",        // 28
		"X-MAC-CENTRALEURROMAN", // 29
		"X-MAC-VIETNAMESE",      // 30
		"X-MAC-EXTARABIC",       // 31
	}
	if code >= 0 && code < len(codes) {
		return codes[code]
	}
	return codes[0]
}

// encodingForLabel resolves a charset label to an encoding. Labels are
// looked up through the WHATWG index first; the Mac script encodings it
// does not know collapse to the Macintosh roman map, which is the best
// single-byte approximation available for the ASCII-compatible parts a
// Sherlock grammar actually depends on.
func encodingForLabel(label string) (encoding.Encoding, error) {
	if enc, err := htmlindex.Get(label); err == nil {
		return enc, nil
	}
	if strings.HasPrefix(strings.ToUpper(label), "X-MAC-") {
		return charmap.Macintosh, nil
	}
	if equalFold(label, "us-ascii") {
		return charmap.Windows1252, nil
	}
	return htmlindex.Get(label) // returns the original lookup error
}

// decodeBytes decodes raw into UTF-8 using the given charset label.
func decodeBytes(raw []byte, label string) (string, error) {
	enc, err := encodingForLabel(label)
	if err != nil {
		return "", NewInvalidEncodingError(label, err)
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", NewInvalidEncodingError(label, err)
	}
	return string(decoded), nil
}

// detectCharset runs statistical charset detection over raw and returns
// the best-guess label, or empty when detection fails. Used as a rescue
// for Sherlock files whose declared charset produces mojibake.
func detectCharset(raw []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil || result == nil {
		return ""
	}
	return result.Charset
}

// asciiFilter strips every non-ASCII byte. Last-resort decoding for
// Sherlock files: the grammar's markers and attribute names are all
// ASCII, so the structure survives even when the text does not.
func asciiFilter(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		if c < utf8.RuneSelf {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// hasReplacementRunes reports whether a decode produced U+FFFD, the
// signal that the chosen charset was wrong.
func hasReplacementRunes(s string) bool {
	return strings.ContainsRune(s, utf8.RuneError)
}

// escapeSearchTerms converts terms into the engine's query charset and
// percent-escapes the resulting bytes for URL embedding. Terms the
// charset cannot represent fall back to UTF-8 encoding before escaping.
func escapeSearchTerms(terms, charset string) string {
	if charset != "" && !equalFold(charset, "UTF-8") {
		if enc, err := encodingForLabel(charset); err == nil {
			if converted, err := enc.NewEncoder().String(terms); err == nil {
				return url.QueryEscape(converted)
			}
		}
	}
	return url.QueryEscape(terms)
}
