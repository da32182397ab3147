package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
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

const testSecret = "test-secret"

type fakeUsers struct {
	users []store.User
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return store.User{}, domain.NotFound("user", email)
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64) (store.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return store.User{}, domain.NotFound("user", id)
}

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]int64
}

func (m *memorySessions) SaveRefreshSession(_ context.Context, tokenHash string, userID int64, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		m.sessions = make(map[string]int64)
	}
	m.sessions[tokenHash] = userID
	return nil
}

func (m *memorySessions) LookupRefreshSession(_ context.Context, tokenHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.sessions[tokenHash]
	if !ok {
		return 0, domain.NotFound("refresh session", "")
	}
	return userID, nil
}

func (m *memorySessions) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tokenHash)
	return nil
}

type fakeVersions struct {
	createDocumentFn func(context.Context, domain.Identity, versions.NewDocumentInput) (store.Document, error)
	createVersionFn  func(context.Context, domain.Identity, versions.CreateVersionInput) (store.Document, error)
	restoreFn        func(context.Context, domain.Identity, int64) (store.Document, error)
	listFn           func(context.Context, domain.Identity, int64) ([]store.VersionSummary, error)
	currentFn        func(context.Context, domain.Identity, int64) (store.Document, error)
	versionFn        func(context.Context, domain.Identity, int64, int) (store.Document, error)
}

func (f *fakeVersions) CreateDocument(ctx context.Context, id domain.Identity, input versions.NewDocumentInput) (store.Document, error) {
	if f.createDocumentFn != nil {
		return f.createDocumentFn(ctx, id, input)
	}
	return store.Document{}, nil
}

func (f *fakeVersions) CreateVersion(ctx context.Context, id domain.Identity, input versions.CreateVersionInput) (store.Document, error) {
	if f.createVersionFn != nil {
		return f.createVersionFn(ctx, id, input)
	}
	return store.Document{}, nil
}

func (f *fakeVersions) RestoreVersion(ctx context.Context, id domain.Identity, versionID int64) (store.Document, error) {
	if f.restoreFn != nil {
		return f.restoreFn(ctx, id, versionID)
	}
	return store.Document{}, nil
}

func (f *fakeVersions) ListVersions(ctx context.Context, id domain.Identity, rootID int64) ([]store.VersionSummary, error) {
	if f.listFn != nil {
		return f.listFn(ctx, id, rootID)
	}
	return nil, nil
}

func (f *fakeVersions) GetCurrent(ctx context.Context, id domain.Identity, rootID int64) (store.Document, error) {
	if f.currentFn != nil {
		return f.currentFn(ctx, id, rootID)
	}
	return store.Document{ID: rootID, RootID: rootID, TenantID: id.TenantID, VersionNumber: 1, IsCurrent: true}, nil
}

func (f *fakeVersions) GetVersion(ctx context.Context, id domain.Identity, rootID int64, number int) (store.Document, error) {
	if f.versionFn != nil {
		return f.versionFn(ctx, id, rootID, number)
	}
	return store.Document{}, nil
}

type fakeRenderer struct {
	renderFn  func(context.Context, domain.Identity, int64, render.Mode) (render.Rendering, error)
	previewFn func(context.Context, domain.Identity, int64, string, int, int) (string, error)
	versions  []int
}

func (f *fakeRenderer) Render(ctx context.Context, id domain.Identity, documentID int64, mode render.Mode) (render.Rendering, error) {
	if f.renderFn != nil {
		return f.renderFn(ctx, id, documentID, mode)
	}
	return render.Rendering{Mode: mode, Pages: []render.Page{{Number: 1, Body: "&nbsp;"}}}, nil
}

func (f *fakeRenderer) RenderVersion(ctx context.Context, id domain.Identity, documentID int64, version int, mode render.Mode) (render.Rendering, error) {
	f.versions = append(f.versions, version)
	return f.Render(ctx, id, documentID, mode)
}

func (f *fakeRenderer) Preview(ctx context.Context, id domain.Identity, documentID int64, template string, page, total int) (string, error) {
	if f.previewFn != nil {
		return f.previewFn(ctx, id, documentID, template, page, total)
	}
	return template, nil
}

type fakeTemplates struct {
	template render.Template
	err      error
}

func (f *fakeTemplates) ResolveTemplate(context.Context, domain.Identity, int64) (render.Template, error) {
	return f.template, f.err
}

type fakeExporter struct {
	exportFn func(context.Context, domain.Identity, int64, export.Format) (*export.Result, error)
}

func (f *fakeExporter) Export(ctx context.Context, id domain.Identity, documentID int64, format export.Format) (*export.Result, error) {
	if f.exportFn != nil {
		return f.exportFn(ctx, id, documentID, format)
	}
	return &export.Result{Data: []byte("data"), Filename: "document-v1." + string(format), MimeType: "application/octet-stream"}, nil
}

type fakeHistory struct {
	commits []gitrepo.CommitInfo
	content map[string]string
}

func (f *fakeHistory) History(int64, int64, int) ([]gitrepo.CommitInfo, error) {
	return f.commits, nil
}

func (f *fakeHistory) ContentAt(_ int64, _ int64, hash string) (string, error) {
	content, ok := f.content[hash]
	if !ok {
		return "", io.EOF
	}
	return content, nil
}

type stripSanitizer struct{}

func (stripSanitizer) Sanitize(body string) string { return strings.ReplaceAll(body, "<script>x</script>", "") }

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeMetrics struct {
	mu       sync.Mutex
	requests int
}

func (f *fakeMetrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# HELP nexio_requests\n"))
	})
}

func (f *fakeMetrics) ObserveRequest(string, int, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
}

type testEnv struct {
	service   *Service
	server    *HTTPServer
	users     *fakeUsers
	sessions  *memorySessions
	versions  *fakeVersions
	renderer  *fakeRenderer
	templates *fakeTemplates
	exporter  *fakeExporter
	history   *fakeHistory
	pinger    *fakePinger
	metrics   *fakeMetrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	hash, err := authpw.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	env := &testEnv{
		users: &fakeUsers{users: []store.User{
			{ID: 1, TenantID: 10, Email: "editor@acme.it", DisplayName: "Avery", PasswordHash: hash, Role: "editor"},
			{ID: 2, TenantID: 10, Email: "viewer@acme.it", DisplayName: "Robin", PasswordHash: hash, Role: "viewer"},
		}},
		sessions:  &memorySessions{},
		versions:  &fakeVersions{},
		renderer:  &fakeRenderer{},
		templates: &fakeTemplates{},
		exporter:  &fakeExporter{},
		history:   &fakeHistory{},
		pinger:    &fakePinger{},
		metrics:   &fakeMetrics{},
	}
	cfg := config.Config{JWTSecret: testSecret, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}
	env.service = New(cfg, config.DefaultExportProfile(), Deps{
		Users:     env.users,
		Sessions:  env.sessions,
		Versions:  env.versions,
		Renderer:  env.renderer,
		Templates: env.templates,
		Exporter:  env.exporter,
		History:   env.history,
		Sanitizer: stripSanitizer{},
		Pinger:    env.pinger,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	env.server = NewHTTPServer(env.service, env.metrics, "*")
	return env
}

// token issues an access token for the fake user with userID.
func (e *testEnv) token(t *testing.T, userID int64) string {
	t.Helper()
	user, err := e.users.GetUserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("unknown user %d", userID)
	}
	token, _, err := auth.IssueToken([]byte(testSecret), user.ID, user.TenantID, user.DisplayName, user.Role, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}
