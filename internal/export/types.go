// Package export turns a rendered document version into a downloadable file
// and optionally archives it in object storage.
package export

import (
	"errors"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/domain"
)

type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

var mimeTypes = map[Format]string{
	FormatPDF:      "application/pdf",
	FormatDOCX:     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FormatMarkdown: "text/markdown; charset=utf-8",
	FormatHTML:     "text/html; charset=utf-8",
}

// ParseFormat maps a query value to a Format.
func ParseFormat(value string) (Format, error) {
	format := Format(value)
	if _, ok := mimeTypes[format]; !ok {
		return "", domain.Invalid("format", "must be pdf, docx, md or html")
	}
	return format, nil
}

type Result struct {
	Data     []byte
	Filename string
	MimeType string
	// ArchiveKey is set when the file was stored in the archive.
	ArchiveKey string
}

var (
	// ErrPDFDependencyMissing indicates no Chrome binary is available.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates pandoc is not installed.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
