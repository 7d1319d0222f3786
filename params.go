// params.go: OpenSearch URL template token substitution
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"regexp"
)

// Defaults for tokens the registry supports syntactically but has no
// meaningful value for. They satisfy templates that mark these tokens
// as required.
const (
	paramLanguageDefault   = "*"
	paramOutputEncoding    = "UTF-8"
	paramCountDefault      = "20"
	paramStartIndexDefault = "1"
	paramStartPageDefault  = "1"
)

// Build-identity tokens, only honored on default engines so that
// user-installed engines cannot probe build details.
var (
	reMozLocale   = regexp.MustCompile(`\{moz:locale\}`)
	reMozDistID   = regexp.MustCompile(`\{moz:distributionID\}`)
	reMozOfficial = regexp.MustCompile(`\{moz:official\}`)
)

// OpenSearch 1.0/1.1 tokens, each accepted in required and optional form.
var (
	reSearchTerms    = regexp.MustCompile(`\{searchTerms\??\}`)
	reInputEncoding  = regexp.MustCompile(`\{inputEncoding\??\}`)
	reLanguage       = regexp.MustCompile(`\{language\??\}`)
	reOutputEncoding = regexp.MustCompile(`\{outputEncoding\??\}`)
)

// Tokens with no backing feature: required forms get fixed defaults,
// any other optional token collapses to the empty string.
var (
	reCount      = regexp.MustCompile(`\{count\??\}`)
	reStartIndex = regexp.MustCompile(`\{startIndex\??\}`)
	reStartPage  = regexp.MustCompile(`\{startPage\??\}`)
	reOptional   = regexp.MustCompile(`\{(?:\w+:)?\w+\?\}`)
)

// SubstitutionContext carries the engine and build state a template
// expansion depends on. Terms must already be escaped in the engine's
// query charset.
type SubstitutionContext struct {
	// Terms is the escaped user search string.
	Terms string

	// QueryCharset fills {inputEncoding}.
	QueryCharset string

	// IsDefault enables the build-identity tokens.
	IsDefault bool

	// Build identity values.
	Locale         string
	DistributionID string
	Official       bool
}

// ParamSubstitution expands every supported token in value. The pass
// order matters: build-identity tokens go first so later passes never
// re-match text they produce, the OpenSearch tokens follow, then all
// remaining optional tokens are stripped, and finally the unsupported
// required tokens receive fixed defaults. The function is pure and a
// token-free string passes through unchanged.
func ParamSubstitution(value string, sub SubstitutionContext) string {
	if sub.IsDefault {
		official := "unofficial"
		if sub.Official {
			official = "official"
		}
		value = reMozLocale.ReplaceAllLiteralString(value, sub.Locale)
		value = reMozDistID.ReplaceAllLiteralString(value, sub.DistributionID)
		value = reMozOfficial.ReplaceAllLiteralString(value, official)
	}

	value = reSearchTerms.ReplaceAllLiteralString(value, sub.Terms)
	value = reInputEncoding.ReplaceAllLiteralString(value, sub.QueryCharset)

	language := sub.Locale
	if language == "" {
		language = paramLanguageDefault
	}
	value = reLanguage.ReplaceAllLiteralString(value, language)
	value = reOutputEncoding.ReplaceAllLiteralString(value, paramOutputEncoding)

	// Strip all remaining optional tokens before filling the required
	// unsupported ones, matching how templates expect "may be omitted"
	// tokens to vanish.
	value = reOptional.ReplaceAllLiteralString(value, "")
	value = reCount.ReplaceAllLiteralString(value, paramCountDefault)
	value = reStartIndex.ReplaceAllLiteralString(value, paramStartIndexDefault)
	value = reStartPage.ReplaceAllLiteralString(value, paramStartPageDefault)

	return value
}
