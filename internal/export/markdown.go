package export

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/render"
)

var markdownConverter = md.NewConverter("", true, nil)

// convertMarkdown writes the page bodies as markdown, separated by thematic
// breaks. Headers and footers are layout and are left out.
func convertMarkdown(rendering render.Rendering) ([]byte, error) {
	var out strings.Builder
	if title := strings.TrimSpace(rendering.Document.Title); title != "" {
		out.WriteString("# ")
		out.WriteString(title)
		out.WriteString("\n\n")
	}
	for i, page := range rendering.Pages {
		if i > 0 {
			out.WriteString("\n\n---\n\n")
		}
		converted, err := markdownConverter.ConvertString(page.Body)
		if err != nil {
			return nil, fmt.Errorf("convert page %d to markdown: %w", page.Number, err)
		}
		out.WriteString(strings.TrimSpace(converted))
	}
	out.WriteString("\n")
	return []byte(out.String()), nil
}
