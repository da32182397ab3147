// Package sanitize cleans document bodies saved from the HTML editor before
// they are stored as render content.
package sanitize

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// bluemonday drops comments, so the comment form of a page break is turned
// into the equivalent marker element before sanitizing.
var pageBreakComment = regexp.MustCompile(`(?i)<!--\s*pagebreak\s*-->`)

const pageBreakMarker = `<hr class="page-break">`

// Policy wraps a bluemonday policy. It is safe for concurrent use once built.
type Policy struct {
	policy *bluemonday.Policy
}

// NewPolicy starts from bluemonday's UGC policy and additionally keeps the
// class attribute and the page-break declarations the paginator relies on.
func NewPolicy() *Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowStyles("page-break-after", "page-break-before").
		MatchingEnum("always", "auto", "avoid").
		Globally()
	p.AllowStyles("break-after", "break-before").
		MatchingEnum("page", "always", "auto", "avoid").
		Globally()
	p.AllowStyles("text-align").
		MatchingEnum("left", "right", "center", "justify").
		Globally()
	p.AllowStyles("font-weight").
		MatchingEnum("normal", "bold").
		Globally()
	return &Policy{policy: p}
}

func (p *Policy) Sanitize(body string) string {
	return p.policy.Sanitize(pageBreakComment.ReplaceAllString(body, pageBreakMarker))
}
