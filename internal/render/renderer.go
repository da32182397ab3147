package render

import (
	"context"
	"log/slog"
	"time"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/domain"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/pagination"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/placeholder"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/store"
)

type Mode string

const (
	ModeScreen    Mode = "screen"
	ModePrint     Mode = "print"
	ModePDFExport Mode = "pdfExport"
)

// ParseMode maps a query value to a Mode. An empty value means screen.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case "", ModeScreen:
		return ModeScreen, nil
	case ModePrint, ModePDFExport:
		return Mode(value), nil
	default:
		return "", domain.Invalid("mode", "must be screen, print or pdfExport")
	}
}

type Page struct {
	Number int    `json:"number"`
	Header string `json:"header"`
	Body   string `json:"body"`
	Footer string `json:"footer"`
}

type Rendering struct {
	Document store.Document `json:"-"`
	Mode     Mode           `json:"mode"`
	Pages    []Page         `json:"pages"`
}

func (r Rendering) TotalPages() int { return len(r.Pages) }

type Recorder interface {
	ObserveRender(mode string, pages int)
}

type Renderer struct {
	store     Store
	templates *TemplateResolver
	metrics   Recorder
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Renderer)

func WithMetrics(metrics Recorder) Option {
	return func(r *Renderer) { r.metrics = metrics }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) { r.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

func NewRenderer(store Store, opts ...Option) *Renderer {
	r := &Renderer{
		store:     store,
		templates: NewTemplateResolver(store),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render paginates the current version of the lineage containing documentID
// and frames every page with the resolved header and footer. Nothing is
// returned on error.
func (r *Renderer) Render(ctx context.Context, id domain.Identity, documentID int64, mode Mode) (Rendering, error) {
	return r.RenderVersion(ctx, id, documentID, CurrentVersion, mode)
}

// RenderVersion is Render for an explicit version number of the lineage.
func (r *Renderer) RenderVersion(ctx context.Context, id domain.Identity, documentID int64, version int, mode Mode) (Rendering, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return Rendering{}, err
	}
	doc, err := loadDocument(ctx, r.store, id, documentID, version)
	if err != nil {
		return Rendering{}, err
	}
	pctx, err := r.context(ctx, doc)
	if err != nil {
		return Rendering{}, err
	}
	tmpl, err := r.templates.templateFor(ctx, doc)
	if err != nil {
		return Rendering{}, err
	}

	header := placeholder.Resolve(tmpl.Header, pctx)
	footer := placeholder.Resolve(tmpl.Footer, pctx)
	bodies := pagination.Split(doc.Content)
	total := len(bodies)

	pages := make([]Page, 0, total)
	for i, body := range bodies {
		number := i + 1
		pageHeader, err := placeholder.ApplyPageNumbers(header, number, total)
		if err != nil {
			return Rendering{}, err
		}
		pageFooter, err := placeholder.ApplyPageNumbers(footer, number, total)
		if err != nil {
			return Rendering{}, err
		}
		pages = append(pages, Page{Number: number, Header: pageHeader, Body: body, Footer: pageFooter})
	}

	if r.metrics != nil {
		r.metrics.ObserveRender(string(mode), total)
	}
	r.logger.DebugContext(ctx, "document rendered", "document_id", doc.ID, "mode", mode, "pages", total)
	return Rendering{Document: doc, Mode: mode, Pages: pages}, nil
}

func (r *Renderer) context(ctx context.Context, doc store.Document) (placeholder.Context, error) {
	tenant, err := r.store.GetTenant(ctx, doc.TenantID)
	if err != nil {
		return placeholder.Context{}, domain.Storage("load tenant", err)
	}
	pctx := placeholder.Context{
		Tenant: placeholder.Tenant{
			Name:    tenant.Name,
			Address: tenant.Address,
			Phone:   tenant.Phone,
			Email:   tenant.Email,
			TaxID:   tenant.TaxID,
			LogoURL: tenant.LogoPath,
		},
		Document: placeholder.Document{
			Title:     doc.Title,
			Code:      doc.Code,
			Version:   doc.VersionNumber,
			CreatedAt: doc.CreatedAt,
		},
		Now: r.now(),
	}
	if doc.ClassificationID != nil {
		classification, err := r.store.GetClassification(ctx, *doc.ClassificationID)
		if err != nil {
			return placeholder.Context{}, domain.Storage("load classification", err)
		}
		pctx.Classification = placeholder.Classification{
			Code:        classification.Code,
			Description: classification.Description,
		}
	}
	return pctx, nil
}

// Preview resolves an unsaved header or footer template against documentID
// as it would appear on page of total.
func (r *Renderer) Preview(ctx context.Context, id domain.Identity, documentID int64, template string, page, total int) (string, error) {
	doc, err := loadDocument(ctx, r.store, id, documentID, CurrentVersion)
	if err != nil {
		return "", err
	}
	pctx, err := r.context(ctx, doc)
	if err != nil {
		return "", err
	}
	return placeholder.ApplyPageNumbers(placeholder.Resolve(template, pctx), page, total)
}
