package render

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/domain"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/store"
)

type fakeStore struct {
	docs            map[int64]store.Document
	tenants         map[int64]store.Tenant
	classifications map[int64]store.Classification
	templates       map[int64][]store.ModuleTemplate
	templateErr     error
}

func (f *fakeStore) GetDocument(_ context.Context, id int64) (store.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return store.Document{}, domain.NotFound("document", id)
	}
	return doc, nil
}

func (f *fakeStore) GetCurrentVersion(_ context.Context, rootID int64) (store.Document, error) {
	for _, doc := range f.docs {
		if doc.RootID == rootID && doc.IsCurrent {
			return doc, nil
		}
	}
	return store.Document{}, domain.NotFound("document", rootID)
}

func (f *fakeStore) GetVersionByNumber(_ context.Context, rootID int64, number int) (store.Document, error) {
	for _, doc := range f.docs {
		if doc.RootID == rootID && doc.VersionNumber == number {
			return doc, nil
		}
	}
	return store.Document{}, domain.NotFound("version", rootID)
}

func (f *fakeStore) GetTenant(_ context.Context, id int64) (store.Tenant, error) {
	tenant, ok := f.tenants[id]
	if !ok {
		return store.Tenant{}, domain.NotFound("tenant", id)
	}
	return tenant, nil
}

func (f *fakeStore) GetClassification(_ context.Context, id int64) (store.Classification, error) {
	item, ok := f.classifications[id]
	if !ok {
		return store.Classification{}, domain.NotFound("classification", id)
	}
	return item, nil
}

func (f *fakeStore) GetModuleTemplate(_ context.Context, moduleID int64, documentType string) (store.ModuleTemplate, bool, error) {
	if f.templateErr != nil {
		return store.ModuleTemplate{}, false, f.templateErr
	}
	var fallback *store.ModuleTemplate
	for _, row := range f.templates[moduleID] {
		if row.DocumentType == documentType && documentType != "" {
			return row, true, nil
		}
		if row.DocumentType == "" {
			row := row
			fallback = &row
		}
	}
	if fallback != nil {
		return *fallback, true, nil
	}
	return store.ModuleTemplate{}, false, nil
}

type renderCounter struct {
	mode  string
	pages int
}

func (r *renderCounter) ObserveRender(mode string, pages int) {
	r.mode = mode
	r.pages = pages
}

var reader = domain.Identity{UserID: 3, TenantID: 1, Role: "viewer"}

func int64Ptr(v int64) *int64 { return &v }

func newFixture() *fakeStore {
	return &fakeStore{
		docs: map[int64]store.Document{
			10: {
				ID: 10, RootID: 10, TenantID: 1, ModuleID: int64Ptr(5), ClassificationID: int64Ptr(2),
				DocumentType: "procedura", Code: "PG-01", Title: "Gestione", VersionNumber: 2, IsCurrent: true,
				Content:   `<p>A</p><hr class="page-break"><p>B</p><hr class="page-break"><p>C</p>`,
				CreatedAt: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
			},
			11: {ID: 11, RootID: 11, TenantID: 1, Title: "Senza modulo", VersionNumber: 1, IsCurrent: true, Content: "<p>solo</p>"},
			12: {ID: 12, RootID: 12, TenantID: 2, Title: "Altro", VersionNumber: 1, IsCurrent: true},
		},
		tenants: map[int64]store.Tenant{
			1: {ID: 1, Name: "Acme"},
			2: {ID: 2, Name: "Other"},
		},
		classifications: map[int64]store.Classification{2: {ID: 2, TenantID: 1, Code: "Q.4", Description: "Qualita"}},
		templates: map[int64][]store.ModuleTemplate{
			5: {
				{ID: 1, ModuleID: 5, Header: "generic", Footer: "generic"},
				{ID: 2, ModuleID: 5, DocumentType: "procedura", Header: "{{documento.codice}} rev. {{documento.versione}} [{{classificazione.codice}}]", Footer: "{{azienda.nome}} - Pagina {{pagina_corrente}} di {{totale_pagine}}"},
			},
		},
	}
}

func quietRenderer(st Store, opts ...Option) *Renderer {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewRenderer(st, opts...)
}

func TestResolveTemplatePrefersDocumentType(t *testing.T) {
	resolver := NewTemplateResolver(newFixture())
	tmpl, err := resolver.ResolveTemplate(context.Background(), reader, 10)
	require.NoError(t, err)
	assert.Contains(t, tmpl.Header, "{{documento.codice}}")
}

func TestResolveTemplateFallsBackToGeneric(t *testing.T) {
	st := newFixture()
	doc := st.docs[10]
	doc.DocumentType = "istruzione"
	st.docs[10] = doc

	tmpl, err := NewTemplateResolver(st).ResolveTemplate(context.Background(), reader, 10)
	require.NoError(t, err)
	assert.Equal(t, Template{Header: "generic", Footer: "generic"}, tmpl)
}

func TestResolveTemplateWithoutModuleIsEmpty(t *testing.T) {
	tmpl, err := NewTemplateResolver(newFixture()).ResolveTemplate(context.Background(), reader, 11)
	require.NoError(t, err)
	assert.Equal(t, Template{}, tmpl)
}

func TestResolveTemplateErrors(t *testing.T) {
	resolver := NewTemplateResolver(newFixture())
	_, err := resolver.ResolveTemplate(context.Background(), reader, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = resolver.ResolveTemplate(context.Background(), reader, 12)
	assert.ErrorIs(t, err, domain.ErrPermission)

	st := newFixture()
	st.templateErr = errors.New("connection refused")
	_, err = NewTemplateResolver(st).ResolveTemplate(context.Background(), reader, 10)
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestRenderNumbersEveryPage(t *testing.T) {
	counter := &renderCounter{}
	renderer := quietRenderer(newFixture(), WithMetrics(counter))

	rendering, err := renderer.Render(context.Background(), reader, 10, ModePrint)
	require.NoError(t, err)
	require.Equal(t, 3, rendering.TotalPages())

	for i, page := range rendering.Pages {
		assert.Equal(t, i+1, page.Number)
		assert.Equal(t, "PG-01 rev. 2 [Q.4]", page.Header)
	}
	assert.Equal(t, "<p>B</p>", rendering.Pages[1].Body)
	assert.Equal(t, "Acme - Pagina 2 di 3", rendering.Pages[1].Footer)
	assert.Equal(t, "Acme - Pagina 3 di 3", rendering.Pages[2].Footer)
	assert.Equal(t, "print", counter.mode)
	assert.Equal(t, 3, counter.pages)
}

func TestRenderWithoutTemplate(t *testing.T) {
	rendering, err := quietRenderer(newFixture()).Render(context.Background(), reader, 11, ModeScreen)
	require.NoError(t, err)
	require.Len(t, rendering.Pages, 1)
	assert.Equal(t, Page{Number: 1, Body: "<p>solo</p>"}, rendering.Pages[0])
}

func TestRenderEmptyContentIsOneBlankPage(t *testing.T) {
	st := newFixture()
	doc := st.docs[11]
	doc.Content = "   "
	st.docs[11] = doc

	rendering, err := quietRenderer(st).Render(context.Background(), reader, 11, ModeScreen)
	require.NoError(t, err)
	require.Len(t, rendering.Pages, 1)
	assert.Equal(t, "&nbsp;", rendering.Pages[0].Body)
}

func TestRenderErrors(t *testing.T) {
	renderer := quietRenderer(newFixture())
	ctx := context.Background()

	_, err := renderer.Render(ctx, reader, 10, Mode("fax"))
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = renderer.Render(ctx, reader, 12, ModeScreen)
	assert.ErrorIs(t, err, domain.ErrPermission)
	_, err = renderer.Render(ctx, reader, 99, ModeScreen)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = renderer.Render(ctx, domain.Identity{UserID: 1, TenantID: 1, Role: "viewer"}, 10, ModeScreen)
	assert.NoError(t, err)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeScreen, mode)
	mode, err = ParseMode("pdfExport")
	require.NoError(t, err)
	assert.Equal(t, ModePDFExport, mode)
	_, err = ParseMode("PRINT")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRenderHTMLModes(t *testing.T) {
	renderer := quietRenderer(newFixture())
	ctx := context.Background()

	screen, err := renderer.Render(ctx, reader, 10, ModeScreen)
	require.NoError(t, err)
	out, err := RenderHTML(screen, LayoutOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, `<div class="page" `))
	assert.NotContains(t, out, "@page")
	assert.NotContains(t, out, "window.print")
	assert.Contains(t, out, "Acme - Pagina 1 di 3")

	printed, err := renderer.Render(ctx, reader, 10, ModePrint)
	require.NoError(t, err)
	out, err = RenderHTML(printed, LayoutOptions{PaperWidth: 8.27, PaperHeight: 11.69, MarginTop: 0.79, MarginRight: 0.79, MarginBottom: 0.79, MarginLeft: 0.79})
	require.NoError(t, err)
	assert.Contains(t, out, "@page { size: 8.27in 11.69in;")
	assert.Contains(t, out, "window.print")

	exported, err := renderer.Render(ctx, reader, 10, ModePDFExport)
	require.NoError(t, err)
	out, err = RenderHTML(exported, LayoutOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "@page { size: A4;")
	assert.NotContains(t, out, "window.print")
}

func TestPreviewResolvesAgainstDocument(t *testing.T) {
	renderer := quietRenderer(newFixture())
	got, err := renderer.Preview(context.Background(), reader, 10, "{{azienda.nome}} {{documento.codice}} {PAGE}/{NUMPAGES}", 2, 5)
	require.NoError(t, err)
	assert.Equal(t, "Acme PG-01 2/5", got)

	_, err = renderer.Preview(context.Background(), reader, 10, "{PAGE}", 6, 5)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func supersededFixture() *fakeStore {
	st := newFixture()
	root := st.docs[11]
	root.IsCurrent = false
	root.Content = "<p>old v1</p>"
	st.docs[11] = root
	st.docs[13] = store.Document{ID: 13, RootID: 11, TenantID: 1, Title: "Senza modulo", VersionNumber: 2, IsCurrent: true, Content: "<p>new v2</p>"}
	return st
}

func TestRenderFollowsLineageToCurrentVersion(t *testing.T) {
	renderer := quietRenderer(supersededFixture())

	for _, documentID := range []int64{11, 13} {
		rendering, err := renderer.Render(context.Background(), reader, documentID, ModeScreen)
		require.NoError(t, err)
		assert.Equal(t, int64(13), rendering.Document.ID)
		assert.Equal(t, 2, rendering.Document.VersionNumber)
		require.Len(t, rendering.Pages, 1)
		assert.Equal(t, "<p>new v2</p>", rendering.Pages[0].Body)
	}
}

func TestRenderVersionSelectsOlderVersion(t *testing.T) {
	renderer := quietRenderer(supersededFixture())

	rendering, err := renderer.RenderVersion(context.Background(), reader, 13, 1, ModeScreen)
	require.NoError(t, err)
	assert.Equal(t, int64(11), rendering.Document.ID)
	assert.Equal(t, "<p>old v1</p>", rendering.Pages[0].Body)

	_, err = renderer.RenderVersion(context.Background(), reader, 11, 9, ModeScreen)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = renderer.RenderVersion(context.Background(), reader, 11, -1, ModeScreen)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPreviewUsesCurrentVersion(t *testing.T) {
	st := supersededFixture()
	doc := st.docs[13]
	doc.Code = "NEW-02"
	st.docs[13] = doc

	got, err := quietRenderer(st).Preview(context.Background(), reader, 11, "{{documento.codice}} v{{documento.versione}}", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "NEW-02 v2", got)
}
