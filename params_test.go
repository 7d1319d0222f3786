// params_test.go: URL template token substitution tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamSubstitution_SearchTerms(t *testing.T) {
	sub := SubstitutionContext{Terms: "golang", QueryCharset: "UTF-8"}

	out := ParamSubstitution("https://example.com/search?q={searchTerms}", sub)
	assert.Equal(t, "https://example.com/search?q=golang", out)

	out = ParamSubstitution("https://example.com/search?q={searchTerms?}", sub)
	assert.Equal(t, "https://example.com/search?q=golang", out,
		"optional searchTerms should substitute like the required form")
}

func TestParamSubstitution_Encodings(t *testing.T) {
	sub := SubstitutionContext{Terms: "x", QueryCharset: "ISO-8859-1"}

	out := ParamSubstitution("ie={inputEncoding}&oe={outputEncoding}", sub)
	assert.Equal(t, "ie=ISO-8859-1&oe=UTF-8", out)
}

func TestParamSubstitution_FixedDefaults(t *testing.T) {
	sub := SubstitutionContext{Terms: "x"}

	out := ParamSubstitution("n={count}&i={startIndex}&p={startPage}&l={language}", sub)
	assert.Equal(t, "n=20&i=1&p=1&l=*", out)
}

func TestParamSubstitution_OptionalTokensStripped(t *testing.T) {
	sub := SubstitutionContext{Terms: "x"}

	out := ParamSubstitution("q={searchTerms}&extra={unknownToken?}", sub)
	assert.Equal(t, "q=x&extra=", out,
		"unsupported optional tokens collapse to nothing")
}

func TestParamSubstitution_BuildIdentityTokens(t *testing.T) {
	template := "q={searchTerms}&l={moz:locale}&d={moz:distributionID}&o={moz:official}"

	t.Run("default_engine", func(t *testing.T) {
		sub := SubstitutionContext{
			Terms:          "x",
			IsDefault:      true,
			Locale:         "en-US",
			DistributionID: "acme",
			Official:       true,
		}
		out := ParamSubstitution(template, sub)
		assert.Equal(t, "q=x&l=en-US&d=acme&o=official", out)
	})

	t.Run("unofficial_build", func(t *testing.T) {
		sub := SubstitutionContext{Terms: "x", IsDefault: true, Locale: "de"}
		out := ParamSubstitution(template, sub)
		assert.Equal(t, "q=x&l=de&d=&o=unofficial", out)
	})

	t.Run("non_default_engine", func(t *testing.T) {
		sub := SubstitutionContext{Terms: "x", Locale: "en-US", Official: true}
		out := ParamSubstitution(template, sub)
		assert.Contains(t, out, "{moz:locale}",
			"identity tokens must stay inert on non-default engines")
	})
}

func TestParamSubstitution_PlainStringPassthrough(t *testing.T) {
	sub := SubstitutionContext{Terms: "x"}
	assert.Equal(t, "hl=en&safe=off", ParamSubstitution("hl=en&safe=off", sub))
}
