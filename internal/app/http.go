package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/auth"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/authpw"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/export"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/pagination"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/render"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/versions"
)

const maxBodyBytes = 8 << 20

type Metrics interface {
	Handler() http.Handler
	ObserveRequest(method string, status int, elapsed time.Duration)
}

type HTTPServer struct {
	service    *Service
	metrics    Metrics
	logger     *slog.Logger
	corsOrigin string
}

func NewHTTPServer(service *Service, metrics Metrics, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, metrics: metrics, logger: service.logger, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: strings.Split(s.corsOrigin, ","),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition", "X-Archive-Key"},
	})
	return s.withMiddleware(c.Handler(http.HandlerFunc(s.handle)))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	readOnly := r.Method == http.MethodGet || r.Method == http.MethodHead

	switch {
	case readOnly && r.URL.Path == "/api/health":
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	case readOnly && r.URL.Path == "/api/ready":
		s.handleReady(w, r)
		return
	case readOnly && r.URL.Path == "/metrics" && s.metrics != nil:
		s.metrics.Handler().ServeHTTP(w, r)
		return
	case r.Method == http.MethodPost && r.URL.Path == "/api/session/login":
		s.handleLogin(w, r)
		return
	case r.Method == http.MethodPost && r.URL.Path == "/api/session/refresh":
		s.handleRefresh(w, r)
		return
	case r.Method == http.MethodPost && r.URL.Path == "/api/session/logout":
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		if err := s.service.Logout(r.Context(), body.RefreshToken); err != nil {
			s.logger.WarnContext(r.Context(), "logout failed", "request_id", requestID(r.Context()), "error", err)
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	case r.Method == http.MethodGet && r.URL.Path == "/api/session":
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userName":      session.UserName,
			"userId":        session.Identity.UserID,
			"tenantId":      session.Identity.TenantID,
			"role":          session.Identity.Role,
		})
		return
	}

	if !strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	parts := splitPath(r.URL.Path)
	switch {
	case len(parts) >= 2 && parts[1] == "documents":
		s.handleDocuments(w, r, session, parts[2:])
	case len(parts) == 4 && parts[1] == "versions" && parts[3] == "restore" && r.Method == http.MethodPost:
		versionID, err := parseID(parts[2], "versionId")
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		restored, err := s.service.versions.RestoreVersion(r.Context(), session.Identity, versionID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, documentPayload(restored))
	case r.Method == http.MethodPost && r.URL.Path == "/api/pagination/preview":
		var body struct {
			Body string `json:"body"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		pages := pagination.Split(s.service.sanitizer.Sanitize(body.Body))
		writeJSON(w, http.StatusOK, map[string]any{"pages": pages, "total": len(pages)})
	case r.Method == http.MethodPost && r.URL.Path == "/api/placeholders/preview":
		s.handlePlaceholderPreview(w, r, session)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}
	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}
	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body authpw.SignInRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.Login(r.Context(), body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

// handleDocuments serves everything below /api/documents. parts excludes
// the "api" and "documents" segments.
func (s *HTTPServer) handleDocuments(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	ctx := r.Context()
	id := session.Identity

	if len(parts) == 0 {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var input versions.NewDocumentInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		created, err := s.service.versions.CreateDocument(ctx, id, input)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, documentPayload(created))
		return
	}

	documentID, err := parseID(parts[0], "documentId")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	rest := parts[1:]

	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		current, err := s.service.versions.GetCurrent(ctx, id, documentID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, documentPayload(current))

	case len(rest) == 1 && rest[0] == "versions" && r.Method == http.MethodGet:
		items, err := s.service.versions.ListVersions(ctx, id, documentID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		payload := make([]map[string]any, 0, len(items))
		for _, item := range items {
			payload = append(payload, map[string]any{
				"id":                item.ID,
				"rootId":            item.RootID,
				"versionNumber":     item.VersionNumber,
				"isCurrent":         item.IsCurrent,
				"title":             item.Title,
				"changeDescription": item.ChangeDescription,
				"authorId":          item.AuthorID,
				"authorName":        item.AuthorName,
				"createdAt":         item.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": payload})

	case len(rest) == 1 && rest[0] == "versions" && r.Method == http.MethodPost:
		var input versions.CreateVersionInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		input.RootID = documentID
		created, err := s.service.versions.CreateVersion(ctx, id, input)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, documentPayload(created))

	case len(rest) == 2 && rest[0] == "versions" && r.Method == http.MethodGet:
		number, err := strconv.Atoi(rest[1])
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "versionNumber must be a number", nil)
			return
		}
		version, err := s.service.versions.GetVersion(ctx, id, documentID, number)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, documentPayload(version))

	case len(rest) == 1 && rest[0] == "template" && r.Method == http.MethodGet:
		tmpl, err := s.service.templates.ResolveTemplate(ctx, id, documentID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tmpl)

	case len(rest) == 1 && (rest[0] == "pages" || rest[0] == "render") && r.Method == http.MethodGet:
		mode, err := render.ParseMode(r.URL.Query().Get("mode"))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		version, err := parseVersionQuery(r.URL.Query().Get("version"))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		rendering, err := s.service.renderer.RenderVersion(ctx, id, documentID, version, mode)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if rest[0] == "pages" {
			writeJSON(w, http.StatusOK, map[string]any{
				"documentId":    rendering.Document.ID,
				"versionNumber": rendering.Document.VersionNumber,
				"mode":          rendering.Mode,
				"totalPages":    rendering.TotalPages(),
				"pages":         rendering.Pages,
			})
			return
		}
		html, err := render.RenderHTML(rendering, s.service.layout)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(html))

	case len(rest) == 1 && rest[0] == "export" && r.Method == http.MethodGet:
		format, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		result, err := s.service.exporter.Export(ctx, id, documentID, format)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", result.MimeType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.Filename}))
		if result.ArchiveKey != "" {
			w.Header().Set("X-Archive-Key", result.ArchiveKey)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)

	case len(rest) == 1 && rest[0] == "history" && r.Method == http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		items, err := s.service.History(ctx, id, documentID, limit)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})

	case len(rest) == 2 && rest[0] == "history" && r.Method == http.MethodGet:
		content, err := s.service.HistoryContent(ctx, id, documentID, rest[1])
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"hash": rest[1], "content": content})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handlePlaceholderPreview(w http.ResponseWriter, r *http.Request, session Session) {
	var body struct {
		DocumentID int64  `json:"documentId"`
		Template   string `json:"template"`
		Page       int    `json:"page"`
		Total      int    `json:"total"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if body.Page == 0 && body.Total == 0 {
		body.Page, body.Total = 1, 1
	}
	resolved, err := s.service.renderer.Preview(r.Context(), session.Identity, body.DocumentID, body.Template, body.Page, body.Total)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resolved": resolved})
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		s.writeServiceError(w, r, err)
		return Session{}, false
	}
	return session, true
}

// writeServiceError maps err to a response. Server errors are logged with
// full detail; the client only sees a generic message.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.ErrorContext(r.Context(), "request failed",
			"request_id", requestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, status, code, message, details)
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		writer.Header().Set("X-Request-ID", id)

		next.ServeHTTP(writer, r)

		elapsed := time.Since(started)
		if s.metrics != nil {
			s.metrics.ObserveRequest(r.Method, writer.status, elapsed)
		}
		s.logger.InfoContext(r.Context(), "request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// parseVersionQuery reads an optional ?version=; empty selects the current
// version.
func parseVersionQuery(raw string) (int, error) {
	if raw == "" {
		return render.CurrentVersion, nil
	}
	version, err := strconv.Atoi(raw)
	if err != nil || version < 1 {
		return 0, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "version must be a positive integer", map[string]string{"version": "must be a positive integer"})
	}
	return version, nil
}

func parseID(raw, field string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", field+" must be a positive integer", map[string]string{field: "must be a positive integer"})
	}
	return id, nil
}
