// Package placeholder substitutes template tokens in header and footer
// markup. Resolution runs in two phases: Resolve consumes every field token
// and turns page tokens into markers, and ApplyPageNumbers replaces those
// markers once the page count is known.
package placeholder

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/domain"
)

const (
	CurrentPageMarker = `<span data-nexio-page="current"></span>`
	TotalPagesMarker  = `<span data-nexio-page="total"></span>`

	dateLayout = "02/01/2006"
)

var tokenPattern = regexp.MustCompile(
	`(?i)\{\{\s*([a-z_]+(?:\.[a-z_]+)?)\s*\}\}` +
		`|\{(pagina_corrente|totale_pagine|page|numpages)\}` +
		`|<span\b[^>]*?\sclass\s*=\s*["']([^"']*)["'][^>]*>(?:\s|&nbsp;)*</span>`,
)

var braceEscaper = strings.NewReplacer("{", "&#123;", "}", "&#125;")

type resolver func(Context) string

var fields = map[string]resolver{
	"azienda.nome":                func(c Context) string { return text(c.Tenant.Name) },
	"azienda.indirizzo":           func(c Context) string { return text(c.Tenant.Address) },
	"azienda.telefono":            func(c Context) string { return text(c.Tenant.Phone) },
	"azienda.email":               func(c Context) string { return text(c.Tenant.Email) },
	"azienda.partita_iva":         func(c Context) string { return text(c.Tenant.TaxID) },
	"azienda.logo":                logo,
	"documento.titolo":            func(c Context) string { return text(c.Document.Title) },
	"documento.codice":            func(c Context) string { return text(c.Document.Code) },
	"documento.versione":          func(c Context) string { return number(c.Document.Version) },
	"documento.data_creazione":    func(c Context) string { return date(c.Document.CreatedAt) },
	"classificazione.codice":      func(c Context) string { return text(c.Classification.Code) },
	"classificazione.descrizione": func(c Context) string { return text(c.Classification.Description) },
	"data_corrente":               func(c Context) string { return date(c.Now) },
	"pagina_corrente":             func(Context) string { return CurrentPageMarker },
	"totale_pagine":               func(Context) string { return TotalPagesMarker },
}

var legacyPageTokens = map[string]string{
	"pagina_corrente": CurrentPageMarker,
	"page":            CurrentPageMarker,
	"page-number":     CurrentPageMarker,
	"totale_pagine":   TotalPagesMarker,
	"numpages":        TotalPagesMarker,
	"total-pages":     TotalPagesMarker,
}

// Resolve substitutes every recognised token in template. Unknown double-curly
// tokens are left as they are, and missing context fields resolve to "".
// Substituted values are never scanned again, so Resolve is idempotent.
func Resolve(template string, ctx Context) string {
	if template == "" {
		return ""
	}
	return tokenPattern.ReplaceAllStringFunc(template, func(match string) string {
		groups := tokenPattern.FindStringSubmatch(match)
		switch {
		case groups[1] != "":
			if field, ok := fields[strings.ToLower(groups[1])]; ok {
				return field(ctx)
			}
			return match
		case groups[2] != "":
			return legacyPageTokens[strings.ToLower(groups[2])]
		case groups[3] != "":
			return legacySpan(groups[3], match)
		}
		return match
	})
}

// legacySpan maps an empty span whose class list names page-number or
// total-pages to its marker. Other spans are kept.
func legacySpan(classList, match string) string {
	for _, class := range strings.Fields(strings.ToLower(classList)) {
		if class == "page-number" || class == "total-pages" {
			return legacyPageTokens[class]
		}
	}
	return match
}

// ApplyPageNumbers replaces the page markers left by Resolve with page and
// total.
func ApplyPageNumbers(resolved string, page, total int) (string, error) {
	if total < 1 {
		return "", domain.Invalid("total", "must be at least 1")
	}
	if page < 1 || page > total {
		return "", domain.Invalid("page", "must be between 1 and "+strconv.Itoa(total))
	}
	if !strings.Contains(resolved, "data-nexio-page") {
		return resolved, nil
	}
	return strings.NewReplacer(
		CurrentPageMarker, strconv.Itoa(page),
		TotalPagesMarker, strconv.Itoa(total),
	).Replace(resolved), nil
}

// text escapes a user-supplied value. Braces are encoded too so the value can
// never form a token.
func text(value string) string {
	if value == "" {
		return ""
	}
	return braceEscaper.Replace(html.EscapeString(value))
}

func number(value int) string {
	if value <= 0 {
		return ""
	}
	return strconv.Itoa(value)
}

func date(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Format(dateLayout)
}

func logo(c Context) string {
	if c.Tenant.LogoURL == "" {
		return ""
	}
	return `<img class="tenant-logo" src="` + text(c.Tenant.LogoURL) + `" alt="` + text(c.Tenant.Name) + `">`
}
