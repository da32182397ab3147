// Package versions implements the append-only version history of documents.
// Every edit or restore appends a new row and moves the current flag to it in
// one transaction; existing versions are never rewritten.
package versions

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/domain"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/gitrepo"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/rbac"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/store"
)

type Store interface {
	GetDocument(ctx context.Context, id int64) (store.Document, error)
	GetCurrentVersion(ctx context.Context, rootID int64) (store.Document, error)
	GetVersionByNumber(ctx context.Context, rootID int64, number int) (store.Document, error)
	ListVersions(ctx context.Context, rootID int64) ([]store.VersionSummary, error)
	InsertDocument(ctx context.Context, item store.NewDocument) (store.Document, error)
	AppendVersion(ctx context.Context, draft store.VersionDraft) (store.Document, error)
	GetModule(ctx context.Context, id int64) (store.Module, error)
	GetClassification(ctx context.Context, id int64) (store.Classification, error)
}

type Sanitizer interface {
	Sanitize(body string) string
}

type Mirror interface {
	Record(snapshot gitrepo.Snapshot) (gitrepo.CommitInfo, error)
}

type Recorder interface {
	ObserveVersion(kind string)
}

type Service struct {
	store     Store
	sanitizer Sanitizer
	mirror    Mirror
	metrics   Recorder
	logger    *slog.Logger
}

type Option func(*Service)

func WithMirror(mirror Mirror) Option {
	return func(s *Service) { s.mirror = mirror }
}

func WithMetrics(metrics Recorder) Option {
	return func(s *Service) { s.metrics = metrics }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, sanitizer Sanitizer, opts ...Option) *Service {
	s := &Service{store: store, sanitizer: sanitizer, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDocument stores version 1 of a new lineage.
func (s *Service) CreateDocument(ctx context.Context, id domain.Identity, input NewDocumentInput) (store.Document, error) {
	if err := authorize(id, rbac.ActionWrite, "document"); err != nil {
		return store.Document{}, err
	}
	if input.Status == "" {
		input.Status = "draft"
	}
	if err := invalid(input.Validate()); err != nil {
		return store.Document{}, err
	}
	if input.ModuleID != nil {
		module, err := s.store.GetModule(ctx, *input.ModuleID)
		if err != nil {
			return store.Document{}, err
		}
		if !id.Owns(module.TenantID) {
			return store.Document{}, domain.Forbidden("use", "module")
		}
	}
	if input.ClassificationID != nil {
		classification, err := s.store.GetClassification(ctx, *input.ClassificationID)
		if err != nil {
			return store.Document{}, err
		}
		if !id.Owns(classification.TenantID) {
			return store.Document{}, domain.Forbidden("use", "classification")
		}
	}

	created, err := s.store.InsertDocument(ctx, store.NewDocument{
		TenantID:         id.TenantID,
		ModuleID:         input.ModuleID,
		ClassificationID: input.ClassificationID,
		DocumentType:     input.DocumentType,
		Code:             input.Code,
		Title:            input.Title,
		Body:             input.Body,
		Content:          s.sanitizer.Sanitize(input.Body),
		Status:           input.Status,
		AuthorID:         id.UserID,
	})
	if err != nil {
		return store.Document{}, domain.Storage("create document", err)
	}
	s.recorded(ctx, id, "create", created)
	return created, nil
}

// CreateVersion appends an edit to the lineage of input.RootID and makes it
// current.
func (s *Service) CreateVersion(ctx context.Context, id domain.Identity, input CreateVersionInput) (store.Document, error) {
	if err := authorize(id, rbac.ActionWrite, "document"); err != nil {
		return store.Document{}, err
	}
	if err := invalid(input.Validate()); err != nil {
		return store.Document{}, err
	}
	lineage, err := s.lineage(ctx, id, input.RootID)
	if err != nil {
		return store.Document{}, err
	}

	created, err := s.store.AppendVersion(ctx, store.VersionDraft{
		RootID:            lineage.RootID,
		Title:             input.Title,
		Body:              input.Body,
		Content:           s.sanitizer.Sanitize(input.Body),
		ChangeDescription: input.ChangeDescription,
		AuthorID:          id.UserID,
	})
	if err != nil {
		return store.Document{}, domain.Storage("create version", err)
	}
	s.recorded(ctx, id, "edit", created)
	return created, nil
}

// RestoreVersion appends a verbatim copy of versionID as the new current
// version. History is never rewritten.
func (s *Service) RestoreVersion(ctx context.Context, id domain.Identity, versionID int64) (store.Document, error) {
	if err := authorize(id, rbac.ActionRestore, "version"); err != nil {
		return store.Document{}, err
	}
	if versionID < 1 {
		return store.Document{}, domain.Invalid("versionId", "must be a positive id")
	}
	target, err := s.store.GetDocument(ctx, versionID)
	if err != nil {
		return store.Document{}, domain.Storage("load version", err)
	}
	if !id.Owns(target.TenantID) {
		return store.Document{}, domain.Forbidden("restore", "version")
	}

	created, err := s.store.AppendVersion(ctx, store.VersionDraft{
		RootID:            target.RootID,
		Title:             target.Title,
		Body:              target.Body,
		Content:           target.Content,
		ChangeDescription: fmt.Sprintf("Restored version %d", target.VersionNumber),
		AuthorID:          id.UserID,
	})
	if err != nil {
		return store.Document{}, domain.Storage("restore version", err)
	}
	s.recorded(ctx, id, "restore", created)
	return created, nil
}

// ListVersions returns the lineage newest version first.
func (s *Service) ListVersions(ctx context.Context, id domain.Identity, rootID int64) ([]store.VersionSummary, error) {
	if err := authorize(id, rbac.ActionRead, "document"); err != nil {
		return nil, err
	}
	lineage, err := s.lineage(ctx, id, rootID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListVersions(ctx, lineage.RootID)
	if err != nil {
		return nil, domain.Storage("list versions", err)
	}
	return items, nil
}

func (s *Service) GetCurrent(ctx context.Context, id domain.Identity, rootID int64) (store.Document, error) {
	if err := authorize(id, rbac.ActionRead, "document"); err != nil {
		return store.Document{}, err
	}
	lineage, err := s.lineage(ctx, id, rootID)
	if err != nil {
		return store.Document{}, err
	}
	current, err := s.store.GetCurrentVersion(ctx, lineage.RootID)
	if err != nil {
		return store.Document{}, domain.Storage("get current version", err)
	}
	return current, nil
}

// GetVersion returns version number of the lineage of rootID.
func (s *Service) GetVersion(ctx context.Context, id domain.Identity, rootID int64, number int) (store.Document, error) {
	if err := authorize(id, rbac.ActionRead, "document"); err != nil {
		return store.Document{}, err
	}
	if number < 1 {
		return store.Document{}, domain.Invalid("versionNumber", "must be at least 1")
	}
	lineage, err := s.lineage(ctx, id, rootID)
	if err != nil {
		return store.Document{}, err
	}
	version, err := s.store.GetVersionByNumber(ctx, lineage.RootID, number)
	if err != nil {
		return store.Document{}, domain.Storage("get version", err)
	}
	return version, nil
}

// lineage loads any row of a lineage and checks it belongs to the caller.
func (s *Service) lineage(ctx context.Context, id domain.Identity, documentID int64) (store.Document, error) {
	if documentID < 1 {
		return store.Document{}, domain.Invalid("documentId", "must be a positive id")
	}
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return store.Document{}, domain.Storage("load document", err)
	}
	if !id.Owns(doc.TenantID) {
		return store.Document{}, domain.Forbidden("access", "document")
	}
	return doc, nil
}

func (s *Service) recorded(ctx context.Context, id domain.Identity, kind string, created store.Document) {
	if s.metrics != nil {
		s.metrics.ObserveVersion(kind)
	}
	s.logger.InfoContext(ctx, "document version stored",
		"kind", kind,
		"tenant_id", id.TenantID,
		"user_id", id.UserID,
		"root_id", created.RootID,
		"version_id", created.ID,
		"version", created.VersionNumber,
	)
	if s.mirror == nil {
		return
	}
	_, err := s.mirror.Record(gitrepo.Snapshot{
		TenantID:          created.TenantID,
		RootID:            created.RootID,
		VersionID:         created.ID,
		VersionNumber:     created.VersionNumber,
		Title:             created.Title,
		ChangeDescription: created.ChangeDescription,
		Author:            "user-" + strconv.FormatInt(id.UserID, 10),
		CreatedAt:         created.CreatedAt,
		Content:           created.Content,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "version mirror failed", "root_id", created.RootID, "version", created.VersionNumber, "error", err)
	}
}

func authorize(id domain.Identity, action rbac.Action, resource string) error {
	if id.TenantID == 0 || !rbac.Can(rbac.Normalize(id.Role), action) {
		return domain.Forbidden(string(action), resource)
	}
	return nil
}
