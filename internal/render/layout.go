package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

// safeHTML marks already sanitized markup as trusted.
func safeHTML(s string) template.HTML {
	return template.HTML(s)
}

//go:embed templates/*.html
var templateFS embed.FS

var pagesTemplate = template.Must(
	template.New("pages.html").
		Funcs(template.FuncMap{"safeHTML": safeHTML}).
		ParseFS(templateFS, "templates/pages.html"),
)

// LayoutOptions carries the page geometry used by the print modes.
type LayoutOptions struct {
	PaperWidth   float64
	PaperHeight  float64
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64
}

type layoutData struct {
	Title     string
	Mode      string
	Paged     bool
	AutoPrint bool
	PageSize  string
	Margins   string
	Pages     []Page
}

// RenderHTML writes rendering as a standalone HTML document with one div
// per page.
func RenderHTML(rendering Rendering, opts LayoutOptions) (string, error) {
	data := layoutData{
		Title:     rendering.Document.Title,
		Mode:      string(rendering.Mode),
		Paged:     rendering.Mode == ModePrint || rendering.Mode == ModePDFExport,
		AutoPrint: rendering.Mode == ModePrint,
		Pages:     rendering.Pages,
	}
	if opts.PaperWidth > 0 && opts.PaperHeight > 0 {
		data.PageSize = fmt.Sprintf("%.2fin %.2fin", opts.PaperWidth, opts.PaperHeight)
		data.Margins = fmt.Sprintf("%.2fin %.2fin %.2fin %.2fin", opts.MarginTop, opts.MarginRight, opts.MarginBottom, opts.MarginLeft)
	} else {
		data.PageSize = "A4"
		data.Margins = "2cm"
	}

	var buf bytes.Buffer
	if err := pagesTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render pages: %w", err)
	}
	return buf.String(), nil
}
