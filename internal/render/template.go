// Package render turns a stored document version into a sequence of pages,
// each framed by the module's resolved header and footer.
package render

import (
	"context"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/domain"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/rbac"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/store"
)

type Store interface {
	GetDocument(ctx context.Context, id int64) (store.Document, error)
	GetCurrentVersion(ctx context.Context, rootID int64) (store.Document, error)
	GetVersionByNumber(ctx context.Context, rootID int64, number int) (store.Document, error)
	GetTenant(ctx context.Context, id int64) (store.Tenant, error)
	GetClassification(ctx context.Context, id int64) (store.Classification, error)
	GetModuleTemplate(ctx context.Context, moduleID int64, documentType string) (store.ModuleTemplate, bool, error)
}

// Template is the raw, unresolved header and footer of a document.
type Template struct {
	Header string `json:"header"`
	Footer string `json:"footer"`
}

type TemplateResolver struct {
	store Store
}

func NewTemplateResolver(store Store) *TemplateResolver {
	return &TemplateResolver{store: store}
}

// ResolveTemplate returns the header and footer that apply to documentID.
// Documents without a module, or modules without a template, get an empty
// Template.
func (r *TemplateResolver) ResolveTemplate(ctx context.Context, id domain.Identity, documentID int64) (Template, error) {
	doc, err := loadDocument(ctx, r.store, id, documentID, CurrentVersion)
	if err != nil {
		return Template{}, err
	}
	return r.templateFor(ctx, doc)
}

func (r *TemplateResolver) templateFor(ctx context.Context, doc store.Document) (Template, error) {
	if doc.ModuleID == nil {
		return Template{}, nil
	}
	row, found, err := r.store.GetModuleTemplate(ctx, *doc.ModuleID, doc.DocumentType)
	if err != nil {
		return Template{}, domain.Storage("load module template", err)
	}
	if !found {
		return Template{}, nil
	}
	return Template{Header: row.Header, Footer: row.Footer}, nil
}

// CurrentVersion selects the current version of a lineage.
const CurrentVersion = 0

// loadDocument resolves documentID, which may be any row of a lineage, to
// the requested version of that lineage: the current one when version is
// CurrentVersion, otherwise the version with that number.
func loadDocument(ctx context.Context, st Store, id domain.Identity, documentID int64, version int) (store.Document, error) {
	if id.TenantID == 0 || !rbac.Can(rbac.Normalize(id.Role), rbac.ActionRead) {
		return store.Document{}, domain.Forbidden("read", "document")
	}
	if documentID < 1 {
		return store.Document{}, domain.Invalid("documentId", "must be a positive id")
	}
	if version < CurrentVersion {
		return store.Document{}, domain.Invalid("version", "must be a positive version number")
	}
	doc, err := st.GetDocument(ctx, documentID)
	if err != nil {
		return store.Document{}, domain.Storage("load document", err)
	}
	if !id.Owns(doc.TenantID) {
		return store.Document{}, domain.Forbidden("read", "document")
	}

	switch {
	case version == CurrentVersion && doc.IsCurrent:
		return doc, nil
	case version == CurrentVersion:
		doc, err = st.GetCurrentVersion(ctx, doc.RootID)
	case version == doc.VersionNumber:
		return doc, nil
	default:
		doc, err = st.GetVersionByNumber(ctx, doc.RootID, version)
	}
	if err != nil {
		return store.Document{}, domain.Storage("load document version", err)
	}
	return doc, nil
}
