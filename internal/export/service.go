package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/config"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/domain"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/rbac"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/render"
)

// Renderer is the subset of render.Renderer the export path needs.
type Renderer interface {
	Render(ctx context.Context, id domain.Identity, documentID int64, mode render.Mode) (render.Rendering, error)
}

type Recorder interface {
	ObserveExport(format string, err error)
}

type Service struct {
	renderer Renderer
	profile  config.ExportProfile
	archive  Archiver
	metrics  Recorder
	logger   *slog.Logger

	pdf  func(ctx context.Context, profile config.ExportProfile, html string) ([]byte, error)
	docx func(ctx context.Context, profile config.ExportProfile, html string) ([]byte, error)
}

type Option func(*Service)

func WithArchive(archive Archiver) Option {
	return func(s *Service) { s.archive = archive }
}

func WithMetrics(metrics Recorder) Option {
	return func(s *Service) { s.metrics = metrics }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(renderer Renderer, profile config.ExportProfile, opts ...Option) *Service {
	s := &Service{
		renderer: renderer,
		profile:  profile,
		logger:   slog.Default(),
		pdf:      printPDF,
		docx:     convertDOCX,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export renders documentID and converts it to format. Archiving is
// best-effort: a failed upload is logged and the file is still returned.
func (s *Service) Export(ctx context.Context, id domain.Identity, documentID int64, format Format) (result *Result, err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveExport(string(format), err)
		}
	}()

	if id.TenantID == 0 || !rbac.Can(rbac.Normalize(id.Role), rbac.ActionExport) {
		return nil, domain.Forbidden("export", "document")
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}

	mode := render.ModePDFExport
	if format == FormatDOCX || format == FormatMarkdown {
		mode = render.ModeScreen
	}
	rendering, err := s.renderer.Render(ctx, id, documentID, mode)
	if err != nil {
		return nil, err
	}

	data, err := s.convert(ctx, rendering, format)
	if err != nil {
		return nil, err
	}

	doc := rendering.Document
	result = &Result{
		Data:     data,
		Filename: fmt.Sprintf("%s-v%d.%s", sanitizeFilename(firstNonEmpty(doc.Code, doc.Title)), doc.VersionNumber, format),
		MimeType: mimeTypes[format],
	}
	if s.archive != nil {
		key := archiveKey(doc.TenantID, doc.RootID, doc.VersionNumber, format)
		if err := s.archive.Put(ctx, key, data, result.MimeType); err != nil {
			s.logger.WarnContext(ctx, "export archive failed", "key", key, "error", err)
		} else {
			result.ArchiveKey = key
		}
	}
	s.logger.InfoContext(ctx, "document exported",
		"document_id", doc.ID,
		"version", doc.VersionNumber,
		"format", format,
		"bytes", len(data),
	)
	return result, nil
}

func (s *Service) convert(ctx context.Context, rendering render.Rendering, format Format) ([]byte, error) {
	if format == FormatMarkdown {
		return convertMarkdown(rendering)
	}

	html, err := render.RenderHTML(rendering, s.layout())
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatHTML:
		return []byte(html), nil
	case FormatPDF:
		ctx, cancel := context.WithTimeout(ctx, s.timeout())
		defer cancel()
		return s.pdf(ctx, s.profile, html)
	case FormatDOCX:
		ctx, cancel := context.WithTimeout(ctx, s.timeout())
		defer cancel()
		return s.docx(ctx, s.profile, html)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func (s *Service) layout() render.LayoutOptions {
	return render.LayoutOptions{
		PaperWidth:   s.profile.PaperWidth,
		PaperHeight:  s.profile.PaperHeight,
		MarginTop:    s.profile.MarginTop,
		MarginBottom: s.profile.MarginBottom,
		MarginLeft:   s.profile.MarginLeft,
		MarginRight:  s.profile.MarginRight,
	}
}

func (s *Service) timeout() time.Duration {
	if s.profile.TimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.profile.TimeoutSecs) * time.Second
}

// sanitizeFilename keeps letters, digits, dashes and underscores. Spaces
// become dashes.
func sanitizeFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
		if b.Len() >= 50 {
			break
		}
	}
	if b.Len() == 0 {
		return "document"
	}
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
