// Package pagination splits an authored document body into page fragments.
//
// Split is a small parser with a fixed rule priority:
//
//  1. explicit page-break markers (<hr class="page-break"> or a
//     <!-- pagebreak --> comment) divide the body, dropping empty segments;
//  2. otherwise every element styled "page-break-after: always" (or
//     "break-after: page") ends a page after its closing tag;
//  3. otherwise the whole body is one page;
//  4. an empty result becomes a single blank page.
//
// No height-based reflow is attempted.
package pagination

import (
	"strings"

	"golang.org/x/net/html"
)

// BlankPage is the only page produced for an empty body.
const BlankPage = "&nbsp;"

var markerClasses = []string{"page-break", "pagebreak"}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

type token struct {
	typ     html.TokenType
	name    string
	class   string
	style   string
	comment string
	start   int
	end     int
}

// Split returns the page fragments of body in order. The result always has at
// least one element.
func Split(body string) []string {
	if strings.TrimSpace(body) == "" {
		return []string{BlankPage}
	}
	tokens := scan(body)

	pages, matched := splitOnMarkers(body, tokens)
	if !matched {
		pages, matched = splitAfterBreaks(body, tokens)
	}
	if !matched {
		pages = appendPage(nil, body)
	}
	if len(pages) == 0 {
		return []string{BlankPage}
	}
	return pages
}

// scan tokenizes body keeping the byte range each token occupies.
func scan(body string) []token {
	z := html.NewTokenizer(strings.NewReader(body))
	tokens := make([]token, 0, 64)
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return tokens
		}
		size := len(z.Raw())
		tok := token{typ: tt, start: offset, end: offset + size}
		offset += size

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, hasAttr := z.TagName()
			tok.name = string(name)
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				switch string(key) {
				case "class":
					tok.class = string(val)
				case "style":
					tok.style = string(val)
				}
			}
		case html.CommentToken:
			tok.comment = string(z.Text())
		}
		tokens = append(tokens, tok)
	}
}

func splitOnMarkers(body string, tokens []token) ([]string, bool) {
	var pages []string
	matched := false
	pageStart := 0
	for _, tok := range tokens {
		if !isMarker(tok) {
			continue
		}
		matched = true
		pages = appendPage(pages, body[pageStart:tok.start])
		pageStart = tok.end
	}
	if !matched {
		return nil, false
	}
	return appendPage(pages, body[pageStart:]), true
}

func splitAfterBreaks(body string, tokens []token) ([]string, bool) {
	var pages []string
	matched := false
	pageStart := 0
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.typ != html.StartTagToken && tok.typ != html.SelfClosingTagToken {
			continue
		}
		if !breaksAfter(tok.style) {
			continue
		}
		matched = true
		pageEnd := tok.end
		if tok.typ == html.StartTagToken && !voidElements[tok.name] {
			i, pageEnd = closingTag(tokens, i, len(body))
		}
		pages = appendPage(pages, body[pageStart:pageEnd])
		pageStart = pageEnd
	}
	if !matched {
		return nil, false
	}
	return appendPage(pages, body[pageStart:]), true
}

// closingTag finds the end tag matching tokens[open]. An element that is
// never closed runs to the end of the body.
func closingTag(tokens []token, open, bodyLen int) (int, int) {
	name := tokens[open].name
	depth := 1
	for j := open + 1; j < len(tokens); j++ {
		if tokens[j].name != name {
			continue
		}
		switch tokens[j].typ {
		case html.StartTagToken:
			depth++
		case html.EndTagToken:
			depth--
			if depth == 0 {
				return j, tokens[j].end
			}
		}
	}
	return len(tokens) - 1, bodyLen
}

func isMarker(tok token) bool {
	switch tok.typ {
	case html.StartTagToken, html.SelfClosingTagToken:
		if tok.name != "hr" {
			return false
		}
		for _, class := range strings.Fields(strings.ToLower(tok.class)) {
			for _, marker := range markerClasses {
				if class == marker {
					return true
				}
			}
		}
	case html.CommentToken:
		return strings.EqualFold(strings.TrimSpace(tok.comment), "pagebreak")
	}
	return false
}

func breaksAfter(style string) bool {
	if style == "" {
		return false
	}
	for _, decl := range strings.Split(strings.ToLower(style), ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important"))
		switch strings.TrimSpace(prop) {
		case "page-break-after":
			if value == "always" {
				return true
			}
		case "break-after":
			if value == "page" || value == "always" {
				return true
			}
		}
	}
	return false
}

func appendPage(pages []string, segment string) []string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return pages
	}
	return append(pages, segment)
}
