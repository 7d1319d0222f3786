// parser_xml.go: OpenSearch and MozSearch descriptor parsing
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"encoding/xml"
	"net/url"
	"strconv"
	"strings"
)

// Accepted descriptor namespaces. The opensearchdescription variants
// exist in the wild from early OpenSearch drafts and are treated as
// aliases of the official namespaces.
const (
	nsOpenSearch11     = "http://a9.com/-/spec/opensearch/1.1/"
	nsOpenSearch10     = "http://a9.com/-/spec/opensearch/1.0/"
	nsOpenSearchDesc11 = "http://a9.com/-/spec/opensearchdescription/1.1/"
	nsOpenSearchDesc10 = "http://a9.com/-/spec/opensearchdescription/1.0/"
	nsMozSearch        = "http://www.mozilla.org/2006/browser/search/"
)

const (
	localOpenSearch = "OpenSearchDescription"
	localMozSearch  = "SearchPlugin"
)

// xmlDescriptor is the lenient unmarshal target for both dialects.
// Child elements are matched by local name only, so documents that
// sloppily mix namespaces still parse; unknown elements fall through
// unmatched, which keeps the format forward compatible.
type xmlDescriptor struct {
	XMLName        xml.Name
	ShortName      string     `xml:"ShortName"`
	Description    string     `xml:"Description"`
	InputEncoding  string     `xml:"InputEncoding"`
	SearchForm     string     `xml:"SearchForm"`
	UpdateURL      string     `xml:"UpdateUrl"`
	IconUpdateURL  string     `xml:"IconUpdateUrl"`
	UpdateInterval string     `xml:"UpdateInterval"`
	Images         []xmlImage `xml:"Image"`
	URLs           []xmlURL   `xml:"Url"`
}

type xmlImage struct {
	Width  int    `xml:"width,attr"`
	Height int    `xml:"height,attr"`
	Value  string `xml:",chardata"`
}

type xmlURL struct {
	Type      string        `xml:"type,attr"`
	Method    string        `xml:"method,attr"`
	Template  string        `xml:"template,attr"`
	Rel       string        `xml:"rel,attr"`
	Params    []xmlParam    `xml:"Param"`
	MozParams []xmlMozParam `xml:"MozParam"`
}

type xmlParam struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xmlMozParam struct {
	Name       string `xml:"name,attr"`
	Condition  string `xml:"condition,attr"`
	Value      string `xml:"value,attr"`
	Pref       string `xml:"pref,attr"`
	TrueValue  string `xml:"trueValue,attr"`
	FalseValue string `xml:"falseValue,attr"`
	Purpose    string `xml:"purpose,attr"`
	TopN       int    `xml:"topN,attr"`
}

// parseOpenSearch parses an OpenSearch or MozSearch document into an
// engine descriptor. The two dialects are semantic aliases and share
// one code path; only the root element distinguishes them.
func parseOpenSearch(data []byte, location InstallLocation, readOnly bool) (*Engine, error) {
	var doc xmlDescriptor
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, NewMalformedDescriptorError("xml", err)
	}
	if !isSearchPluginRoot(doc.XMLName) {
		return nil, NewNotSearchPluginError(doc.XMLName.Space, doc.XMLName.Local)
	}
	if doc.ShortName == "" {
		return nil, NewMissingNameError()
	}

	e := &Engine{
		name:          doc.ShortName,
		description:   doc.Description,
		searchForm:    strings.TrimSpace(doc.SearchForm),
		updateURL:     strings.TrimSpace(doc.UpdateURL),
		iconUpdateURL: strings.TrimSpace(doc.IconUpdateURL),
		queryCharset:  "UTF-8",
		location:      location,
		readOnly:      readOnly,
		format:        FormatXML,
	}
	if doc.InputEncoding != "" {
		e.queryCharset = strings.TrimSpace(doc.InputEncoding)
	}
	if doc.UpdateInterval != "" {
		if days, err := strconv.Atoi(strings.TrimSpace(doc.UpdateInterval)); err == nil {
			e.updateInterval = days
		}
	}

	for _, img := range doc.Images {
		uri := strings.TrimSpace(img.Value)
		if uri == "" {
			continue
		}
		icon := EngineIcon{Width: img.Width, Height: img.Height, URL: uri}
		e.icons = append(e.icons, icon)
		// A 16x16 image is the preferred icon; otherwise the first one
		// seen stands in until a preferred one shows up.
		if (img.Width == 16 && img.Height == 16) || e.iconURI == "" {
			e.iconURI = uri
		}
	}

	for _, u := range doc.URLs {
		parsed, err := parseEngineURL(u)
		if err != nil {
			return nil, err
		}
		e.urls = append(e.urls, parsed)
	}

	if e.URLOf(URLTypeSearch) == nil {
		return nil, NewMissingSearchURLError(e.name)
	}
	return e, nil
}

func isSearchPluginRoot(name xml.Name) bool {
	switch name.Space {
	case nsOpenSearch11, nsOpenSearch10, nsOpenSearchDesc11, nsOpenSearchDesc10:
		return name.Local == localOpenSearch
	case nsMozSearch:
		return name.Local == localMozSearch
	}
	return false
}

// parseEngineURL validates one Url element. Type and template are
// required, method defaults to GET; only GET and POST over http(s) are
// accepted.
func parseEngineURL(u xmlURL) (*EngineURL, error) {
	method := strings.ToUpper(strings.TrimSpace(u.Method))
	if method == "" {
		method = "GET"
	}
	if method != "GET" && method != "POST" {
		return nil, NewInvalidMethodError(u.Method)
	}
	if u.Type == "" || u.Template == "" {
		return nil, NewInvalidTemplateError(u.Template, nil)
	}
	parsed, err := url.Parse(u.Template)
	if err != nil {
		return nil, NewInvalidTemplateError(u.Template, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, NewInvalidTemplateError(u.Template, nil)
	}

	out := &EngineURL{
		Type:     u.Type,
		Method:   method,
		Template: u.Template,
	}
	if rel := strings.TrimSpace(u.Rel); rel != "" {
		out.Rels = strings.Fields(rel)
	}
	for _, p := range u.Params {
		out.Params = append(out.Params, QueryParameter{Name: p.Name, Value: p.Value})
	}
	for _, p := range u.MozParams {
		qp, ok := parseMozParam(p)
		if !ok {
			continue
		}
		out.Params = append(out.Params, qp)
	}
	return out, nil
}

// parseMozParam maps a MozParam element to a conditional parameter.
// Unknown conditions are dropped rather than failing the whole
// descriptor.
func parseMozParam(p xmlMozParam) (QueryParameter, bool) {
	qp := QueryParameter{Name: p.Name, Value: p.Value}
	switch ParamCondition(p.Condition) {
	case ConditionPurpose:
		qp.Condition = ConditionPurpose
		qp.Purpose = p.Purpose
	case ConditionDefaultEngine:
		qp.Condition = ConditionDefaultEngine
		qp.TrueValue = p.TrueValue
		qp.FalseValue = p.FalseValue
	case ConditionPref:
		qp.Condition = ConditionPref
		qp.Pref = p.Pref
	case ConditionTopN:
		if p.TopN <= 0 {
			return qp, false
		}
		qp.Condition = ConditionTopN
		qp.TopN = p.TopN
	default:
		return qp, false
	}
	return qp, true
}

// Serialization of a live engine back to an OpenSearch 1.1 document,
// used when writable profile engines rewrite their backing file.

type osdDocument struct {
	XMLName        xml.Name   `xml:"OpenSearchDescription"`
	Xmlns          string     `xml:"xmlns,attr"`
	ShortName      string     `xml:"ShortName"`
	Description    string     `xml:"Description,omitempty"`
	InputEncoding  string     `xml:"InputEncoding,omitempty"`
	SearchForm     string     `xml:"SearchForm,omitempty"`
	UpdateURL      string     `xml:"UpdateUrl,omitempty"`
	IconUpdateURL  string     `xml:"IconUpdateUrl,omitempty"`
	UpdateInterval string     `xml:"UpdateInterval,omitempty"`
	Images         []osdImage `xml:"Image,omitempty"`
	URLs           []osdURL   `xml:"Url"`
}

type osdImage struct {
	Width  int    `xml:"width,attr"`
	Height int    `xml:"height,attr"`
	Value  string `xml:",chardata"`
}

type osdURL struct {
	Type      string        `xml:"type,attr"`
	Method    string        `xml:"method,attr"`
	Template  string        `xml:"template,attr"`
	Rel       string        `xml:"rel,attr,omitempty"`
	Params    []xmlParam    `xml:"Param,omitempty"`
	MozParams []xmlMozParam `xml:"MozParam,omitempty"`
}

func (e *Engine) serializeToXML() ([]byte, error) {
	e.mu.RLock()
	doc := osdDocument{
		Xmlns:         nsOpenSearch11,
		ShortName:     e.name,
		Description:   e.description,
		SearchForm:    e.searchForm,
		UpdateURL:     e.updateURL,
		IconUpdateURL: e.iconUpdateURL,
	}
	if e.queryCharset != "" && e.queryCharset != "UTF-8" {
		doc.InputEncoding = e.queryCharset
	}
	if e.updateInterval > 0 {
		doc.UpdateInterval = strconv.Itoa(e.updateInterval)
	}
	for _, icon := range e.icons {
		doc.Images = append(doc.Images, osdImage{
			Width:  icon.Width,
			Height: icon.Height,
			Value:  icon.URL,
		})
	}
	if len(e.icons) == 0 && e.iconURI != "" {
		doc.Images = append(doc.Images, osdImage{Width: 16, Height: 16, Value: e.iconURI})
	}
	for _, u := range e.urls {
		out := osdURL{
			Type:     u.Type,
			Method:   u.Method,
			Template: u.Template,
			Rel:      strings.Join(u.Rels, " "),
		}
		for _, p := range u.Params {
			if p.Condition == ConditionNone {
				out.Params = append(out.Params, xmlParam{Name: p.Name, Value: p.Value})
				continue
			}
			out.MozParams = append(out.MozParams, xmlMozParam{
				Name:       p.Name,
				Condition:  string(p.Condition),
				Value:      p.Value,
				Pref:       p.Pref,
				TrueValue:  p.TrueValue,
				FalseValue: p.FalseValue,
				Purpose:    p.Purpose,
				TopN:       p.TopN,
			})
		}
		doc.URLs = append(doc.URLs, out)
	}
	e.mu.RUnlock()

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, NewMalformedDescriptorError("serialize", err)
	}
	return append([]byte(xml.Header), body...), nil
}
