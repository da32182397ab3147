package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/pagination"
)

func TestSanitizeStripsScripts(t *testing.T) {
	p := NewPolicy()
	got := p.Sanitize(`<p onclick="steal()">Ciao</p><script>alert(1)</script>`)
	assert.Equal(t, "<p>Ciao</p>", got)
}

func TestSanitizeKeepsPageBreakMarkers(t *testing.T) {
	p := NewPolicy()
	got := p.Sanitize(`<p>A</p><hr class="page-break"><p>B</p>`)
	assert.Contains(t, got, `class="page-break"`)
	assert.Len(t, pagination.Split(got), 2)
}

func TestSanitizeKeepsBreakAfterStyle(t *testing.T) {
	p := NewPolicy()
	got := p.Sanitize(`<div style="page-break-after: always; position: fixed">A</div><div>B</div>`)
	assert.Contains(t, got, "page-break-after")
	assert.NotContains(t, got, "position")
	assert.Len(t, pagination.Split(got), 2)
}

func TestSanitizeDropsJavascriptLinks(t *testing.T) {
	p := NewPolicy()
	got := p.Sanitize(`<a href="javascript:alert(1)">x</a>`)
	assert.False(t, strings.Contains(got, "javascript"), got)
}

func TestSanitizeKeepsCommentPageBreaks(t *testing.T) {
	p := NewPolicy()
	for _, body := range []string{
		"<p>A</p><!-- pagebreak --><p>B</p>",
		"<p>A</p><!--PAGEBREAK--><p>B</p>",
	} {
		got := p.Sanitize(body)
		assert.Contains(t, got, `class="page-break"`, body)
		assert.Equal(t, []string{"<p>A</p>", "<p>B</p>"}, pagination.Split(got), body)
	}
}

func TestSanitizeDropsOtherComments(t *testing.T) {
	p := NewPolicy()
	assert.Equal(t, "<p>A</p><p>B</p>", p.Sanitize("<p>A</p><!-- note --><p>B</p>"))
}
