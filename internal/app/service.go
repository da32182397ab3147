package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/auth"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/authpw"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/config"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/domain"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/export"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/gitrepo"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/render"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/store"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/versions"
)

type Session struct {
	Token        string
	RefreshToken string
	Identity     domain.Identity
	UserName     string
	ExpiresAt    time.Time
}

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id int64) (store.User, error)
}

// SessionStore keeps refresh sessions. Redis and Postgres both implement it.
type SessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (int64, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type VersionService interface {
	CreateDocument(ctx context.Context, id domain.Identity, input versions.NewDocumentInput) (store.Document, error)
	CreateVersion(ctx context.Context, id domain.Identity, input versions.CreateVersionInput) (store.Document, error)
	RestoreVersion(ctx context.Context, id domain.Identity, versionID int64) (store.Document, error)
	ListVersions(ctx context.Context, id domain.Identity, rootID int64) ([]store.VersionSummary, error)
	GetCurrent(ctx context.Context, id domain.Identity, rootID int64) (store.Document, error)
	GetVersion(ctx context.Context, id domain.Identity, rootID int64, number int) (store.Document, error)
}

type Renderer interface {
	Render(ctx context.Context, id domain.Identity, documentID int64, mode render.Mode) (render.Rendering, error)
	RenderVersion(ctx context.Context, id domain.Identity, documentID int64, version int, mode render.Mode) (render.Rendering, error)
	Preview(ctx context.Context, id domain.Identity, documentID int64, template string, page, total int) (string, error)
}

type TemplateResolver interface {
	ResolveTemplate(ctx context.Context, id domain.Identity, documentID int64) (render.Template, error)
}

type Exporter interface {
	Export(ctx context.Context, id domain.Identity, documentID int64, format export.Format) (*export.Result, error)
}

type HistoryReader interface {
	History(tenantID, rootID int64, limit int) ([]gitrepo.CommitInfo, error)
	ContentAt(tenantID, rootID int64, hash string) (string, error)
}

type Sanitizer interface {
	Sanitize(body string) string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Bootstrapper interface {
	BootstrapAdmin(ctx context.Context, admin store.BootstrapAdmin) (bool, error)
}

// Deps wires the collaborators of Service. History is optional.
type Deps struct {
	Users     UserStore
	Sessions  SessionStore
	Versions  VersionService
	Renderer  Renderer
	Templates TemplateResolver
	Exporter  Exporter
	History   HistoryReader
	Sanitizer Sanitizer
	Pinger    Pinger
	Bootstrap Bootstrapper
	Logger    *slog.Logger
}

type Service struct {
	cfg       config.Config
	users     UserStore
	sessions  SessionStore
	signIn    *authpw.Service
	versions  VersionService
	renderer  Renderer
	templates TemplateResolver
	exporter  Exporter
	history   HistoryReader
	sanitizer Sanitizer
	pinger    Pinger
	bootstrap Bootstrapper
	layout    render.LayoutOptions
	logger    *slog.Logger
}

func New(cfg config.Config, profile config.ExportProfile, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		users:     deps.Users,
		sessions:  deps.Sessions,
		signIn:    authpw.NewService(deps.Users),
		versions:  deps.Versions,
		renderer:  deps.Renderer,
		templates: deps.Templates,
		exporter:  deps.Exporter,
		history:   deps.History,
		sanitizer: deps.Sanitizer,
		pinger:    deps.Pinger,
		bootstrap: deps.Bootstrap,
		layout: render.LayoutOptions{
			PaperWidth:   profile.PaperWidth,
			PaperHeight:  profile.PaperHeight,
			MarginTop:    profile.MarginTop,
			MarginBottom: profile.MarginBottom,
			MarginLeft:   profile.MarginLeft,
			MarginRight:  profile.MarginRight,
		},
		logger: logger,
	}
}

func (s *Service) Login(ctx context.Context, req authpw.SignInRequest) (Session, error) {
	user, err := s.signIn.SignIn(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates a refresh token: the old one is revoked before a new pair
// is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Session{}, auth.ErrInvalidToken
	}
	tokenHash := auth.HashToken(refreshToken)
	userID, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	token, claims, err := auth.IssueToken([]byte(s.cfg.JWTSecret), user.ID, user.TenantID, user.DisplayName, user.Role, s.cfg.AccessTTL)
	if err != nil {
		return Session{}, err
	}

	refresh := auth.NewRefreshToken()
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, time.Now().Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		Identity:     domain.Identity{UserID: user.ID, TenantID: user.TenantID, Role: user.Role},
		UserName:     user.DisplayName,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

// SessionFromToken validates an access token and reloads the user so role
// and tenant changes apply without waiting for expiry.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return Session{}, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	if user.TenantID != claims.TenantID {
		return Session{}, auth.ErrInvalidToken
	}
	return Session{
		Token:     token,
		Identity:  domain.Identity{UserID: user.ID, TenantID: user.TenantID, Role: user.Role},
		UserName:  user.DisplayName,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	return s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
}

// History lists the mirrored commits of the lineage containing documentID.
func (s *Service) History(ctx context.Context, id domain.Identity, documentID int64, limit int) ([]gitrepo.CommitInfo, error) {
	doc, err := s.versions.GetCurrent(ctx, id, documentID)
	if err != nil {
		return nil, err
	}
	if s.history == nil {
		return []gitrepo.CommitInfo{}, nil
	}
	items, err := s.history.History(doc.TenantID, doc.RootID, limit)
	if err != nil {
		return nil, domain.Storage("read mirror history", err)
	}
	return items, nil
}

func (s *Service) HistoryContent(ctx context.Context, id domain.Identity, documentID int64, hash string) (string, error) {
	doc, err := s.versions.GetCurrent(ctx, id, documentID)
	if err != nil {
		return "", err
	}
	if s.history == nil {
		return "", domain.NotFound("snapshot", hash)
	}
	content, err := s.history.ContentAt(doc.TenantID, doc.RootID, hash)
	if err != nil {
		return "", domain.NotFound("snapshot", hash)
	}
	return content, nil
}

func (s *Service) Ping(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	return s.pinger.Ping(ctx)
}

// Bootstrap seeds the configured administrator on an empty install.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.bootstrap == nil || !s.cfg.Bootstrap.Enabled() {
		return nil
	}
	hash, err := authpw.HashPassword(s.cfg.Bootstrap.Password)
	if err != nil {
		return err
	}
	created, err := s.bootstrap.BootstrapAdmin(ctx, store.BootstrapAdmin{
		TenantName:   s.cfg.Bootstrap.Tenant,
		Email:        strings.ToLower(strings.TrimSpace(s.cfg.Bootstrap.Email)),
		DisplayName:  "Administrator",
		PasswordHash: hash,
	})
	if err != nil {
		return err
	}
	if created {
		s.logger.InfoContext(ctx, "bootstrap admin created", "email", s.cfg.Bootstrap.Email, "tenant", s.cfg.Bootstrap.Tenant)
	}
	return nil
}
