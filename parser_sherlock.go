// parser_sherlock.go: legacy Sherlock plugin text parsing
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"regexp"
	"strconv"
	"strings"
)

// userDefinedToken marks the user-search-terms slot in templates built
// from Sherlock inputs.
const userDefinedToken = "{searchTerms}"

var (
	reUsefulLine       = regexp.MustCompile(`^\s*($|#)`)
	reSherlockEndMark  = regexp.MustCompile(`\s*>\s*$`)
	reSherlockInput    = regexp.MustCompile(`(?i)^\s*<input`)
	reDirectionalInput = regexp.MustCompile(`(?i)^(prev|next)`)
	reInputNameAttr    = regexp.MustCompile(`(?i)name\s*=`)

	// reUserInput detects the bare "user" attribute that stands for the
	// user-defined value slot.
	reUserInput = regexp.MustCompile(`(?i)(\s|["'=])user(\s|[>="'/\\+]|$)`)

	reValueQuoteStrip = regexp.MustCompile(`["']\s*[\\/]?>?\s*$`)
)

// sherlockLines decodes raw with the given charset and returns the
// useful lines: whitespace-only and comment lines are dropped.
func sherlockLines(raw []byte, charset string) ([]string, error) {
	text, err := decodeBytes(raw, charset)
	if err != nil {
		return nil, err
	}
	return splitUsefulLines(text), nil
}

func splitUsefulLines(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	var lines []string
	for _, line := range strings.Split(normalized, "\n") {
		if !reUsefulLine.MatchString(line) {
			lines = append(lines, line)
		}
	}
	return lines
}

// sherlockSection extracts one "<name ...>" section: an element whose
// attributes sit one per line. Markers are matched case-insensitively;
// within the section each line is split at its first "=", quotes and
// trailing markup are stripped from the value, and the first occurrence
// of an attribute wins.
func sherlockSection(lines []string, name string) map[string]string {
	startMark := regexp.MustCompile(`(?i)^\s*<` + name + `\s*`)

	var body []string
	found := false
	for _, line := range lines {
		if !found {
			if startMark.MatchString(line) {
				found = true
				rest := startMark.ReplaceAllString(line, "")
				if rest != "" {
					body = append(body, rest)
				}
			}
			continue
		}
		if reSherlockEndMark.MatchString(line) {
			rest := reSherlockEndMark.ReplaceAllString(line, "")
			if rest != "" {
				body = append(body, rest)
			}
			break
		}
		body = append(body, line)
	}

	section := make(map[string]string)
	for _, line := range body {
		line = strings.TrimSpace(line)
		eq := strings.Index(line, "=")
		if eq < 0 {
			continue
		}
		attr := strings.ToLower(strings.TrimSpace(line[:eq]))
		value := strings.TrimSpace(line[eq+1:])
		if attr == "" || value == "" {
			continue
		}
		value = strings.TrimPrefix(value, `"`)
		value = strings.TrimPrefix(value, `'`)
		value = reValueQuoteStrip.ReplaceAllString(value, "")
		value = strings.TrimSpace(value)
		if _, exists := section[attr]; !exists {
			section[attr] = value
		}
	}
	return section
}

// sherlockInput is one name/value pair from an <input> tag, in source
// order. A bare "user" attribute yields the user-defined token as value.
type sherlockInput struct {
	name  string
	value string
}

// sherlockInputs collects the <input> tags. Directional inputs
// (<inputprev>/<inputnext>) are normalized to plain inputs with a dummy
// value when they carry a name, and dropped otherwise.
func sherlockInputs(lines []string) []sherlockInput {
	var inputs []sherlockInput
	for _, line := range lines {
		if !reSherlockInput.MatchString(line) {
			continue
		}
		line = strings.TrimSpace(line)
		line = regexp.MustCompile(`(?i)^<input`).ReplaceAllString(line, "")
		line = strings.TrimSuffix(line, ">")

		if reDirectionalInput.MatchString(line) {
			line = reDirectionalInput.ReplaceAllString(line, "")
			if !reInputNameAttr.MatchString(line) {
				continue
			}
			line += ` value="0"`
		}

		name := sherlockAttr(line, "name")
		value := sherlockAttr(line, "value")
		if value != "" {
			inputs = append(inputs, sherlockInput{name: name, value: value})
		}
	}
	return inputs
}

// sherlockAttr extracts one attribute value from an input line.
// Attributes may be quoted or unquoted; an unquoted value ends at the
// first whitespace. Lookup is case-insensitive but the value is
// returned in its original case. A missing "value" attribute on a line
// carrying the bare "user" flag returns the user-defined token.
func sherlockAttr(line, attr string) string {
	lower := strings.ToLower(line)
	attr = strings.ToLower(attr)

	idx := regexp.MustCompile(`(?i)\s` + attr).FindStringIndex(lower)
	if idx == nil {
		if attr == "value" && reUserInput.MatchString(lower) {
			return userDefinedToken
		}
		return ""
	}

	eq := strings.Index(lower[idx[0]:], "=")
	if eq < 0 {
		return ""
	}
	valueStart := idx[0] + eq + 1

	quote := strings.Index(lower[valueStart:], `"`)
	if quote < 0 {
		return firstField(lower[valueStart:])
	}

	// Anything but whitespace between the "=" and the quote means the
	// quote belongs to a later attribute; treat this one as unquoted.
	between := lower[valueStart : valueStart+quote]
	if strings.TrimSpace(between) != "" {
		return firstField(lower[valueStart:])
	}

	valueStart += quote + 1
	end := strings.Index(lower[valueStart:], `"`)
	if end < 0 {
		return line[valueStart:]
	}
	return line[valueStart : valueStart+end]
}

func firstField(s string) string {
	if i := strings.IndexFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t'
	}); i >= 0 {
		return s[:i]
	}
	return s
}

// parseSherlock parses a legacy Sherlock plugin file. The byte buffer
// is first decoded with the historical Macintosh default; when the
// search section declares a sourceTextEncoding code the buffer is
// re-decoded with that charset. If the default decode fails outright,
// the parser rescans an ASCII-filtered copy to recover the encoding
// declaration, with statistical detection as a further hint.
func parseSherlock(data []byte, location InstallLocation, readOnly bool) (*Engine, error) {
	lines, searchSection, browserSection, err := decodeSherlock(data)
	if err != nil {
		return nil, err
	}

	name := searchSection["name"]
	if name == "" {
		return nil, NewMissingNameError()
	}
	template := searchSection["action"]
	if template == "" {
		return nil, NewInvalidTemplateError("", nil)
	}

	e := &Engine{
		name:        name,
		description: searchSection["description"],
		searchForm:  searchSection["searchform"],
		location:    location,
		readOnly:    readOnly,
		format:      FormatText,
	}

	if charset := searchSection["querycharset"]; charset != "" {
		e.queryCharset = charset
	} else {
		code, _ := strconv.Atoi(searchSection["queryencoding"])
		e.queryCharset = queryCharsetFromCode(code)
	}

	e.updateURL = browserSection["update"]
	e.iconUpdateURL = browserSection["updateicon"]
	if days, err := strconv.Atoi(browserSection["updatecheckdays"]); err == nil {
		e.updateInterval = days
	}

	method := strings.ToUpper(searchSection["method"])
	if method == "" {
		method = "GET"
	}

	inputs := sherlockInputs(lines)

	switch method {
	case "GET":
		// Inputs concatenate into the template's query string: a first
		// input with an empty name appends the raw user terms, a first
		// named input opens the query string, and every later named
		// input extends it. Nameless inputs after the first are dropped.
		for i, input := range inputs {
			if i == 0 {
				if input.name == "" {
					template += input.value
				} else {
					template += "?" + input.name + "=" + input.value
				}
			} else if input.name != "" {
				template += "&" + input.name + "=" + input.value
			}
		}
		e.urls = append(e.urls, &EngineURL{
			Type:     URLTypeSearch,
			Method:   "GET",
			Template: template,
		})
	case "POST":
		u := &EngineURL{
			Type:     URLTypeSearch,
			Method:   "POST",
			Template: template,
		}
		for _, input := range inputs {
			if input.name != "" {
				u.Params = append(u.Params, QueryParameter{
					Name:  input.name,
					Value: input.value,
				})
			}
		}
		e.urls = append(e.urls, u)
	default:
		return nil, NewInvalidMethodError(method)
	}

	return e, nil
}

// decodeSherlock resolves the file's charset and returns its useful
// lines together with the search and browser sections.
func decodeSherlock(data []byte) ([]string, map[string]string, map[string]string, error) {
	lines, err := sherlockLines(data, fileCharsetFromCode(0))
	if err == nil && hasReplacementRunes(strings.Join(lines, "\n")) {
		// The Mac default decoded but produced mojibake; a detector
		// guess beats garbage when it names a decodable charset.
		if guess := detectCharset(data); guess != "" {
			if relines, reErr := sherlockLines(data, guess); reErr == nil {
				lines = relines
			}
		}
	}
	if err == nil {
		search := sherlockSection(lines, "search")
		browser := sherlockSection(lines, "browser")
		if code, convErr := strconv.Atoi(search["sourcetextencoding"]); convErr == nil && code > 0 {
			if relines, reErr := sherlockLines(data, fileCharsetFromCode(code)); reErr == nil {
				lines = relines
				search = sherlockSection(lines, "search")
				browser = sherlockSection(lines, "browser")
			}
		}
		return lines, search, browser, nil
	}

	// Default decode failed. Rescan an ASCII-only copy for an encoding
	// declaration; without one the file is unreadable.
	lines = splitUsefulLines(asciiFilter(data))
	search := sherlockSection(lines, "search")
	code, convErr := strconv.Atoi(search["sourcetextencoding"])
	if convErr != nil || code <= 0 {
		return nil, nil, nil, NewInvalidEncodingError(fileCharsetFromCode(0), err)
	}
	lines, err = sherlockLines(data, fileCharsetFromCode(code))
	if err != nil {
		return nil, nil, nil, err
	}
	search = sherlockSection(lines, "search")
	browser := sherlockSection(lines, "browser")
	return lines, search, browser, nil
}
