package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/domain"
)

const documentColumns = `id, tenant_id, module_id, classification_id, COALESCE(document_type, ''),
	code, title, body, content, status, version_number, root_id, is_current,
	change_description, author_id, created_at, updated_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		item             Document
		moduleID         sql.NullInt64
		classificationID sql.NullInt64
		authorID         sql.NullInt64
	)
	err := row.Scan(
		&item.ID,
		&item.TenantID,
		&moduleID,
		&classificationID,
		&item.DocumentType,
		&item.Code,
		&item.Title,
		&item.Body,
		&item.Content,
		&item.Status,
		&item.VersionNumber,
		&item.RootID,
		&item.IsCurrent,
		&item.ChangeDescription,
		&authorID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	item.ModuleID = nullableInt64(moduleID)
	item.ClassificationID = nullableInt64(classificationID)
	item.AuthorID = nullableInt64(authorID)
	return item, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id int64) (Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	item, err := scanDocument(row)
	if isNoRows(err) {
		return Document{}, domain.NotFound("document", id)
	}
	if err != nil {
		return Document{}, domain.Storage("get document", err)
	}
	return item, nil
}

func (s *PostgresStore) GetCurrentVersion(ctx context.Context, rootID int64) (Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE root_id = $1 AND is_current`, rootID)
	item, err := scanDocument(row)
	if isNoRows(err) {
		return Document{}, domain.NotFound("document", rootID)
	}
	if err != nil {
		return Document{}, domain.Storage("get current version", err)
	}
	return item, nil
}

func (s *PostgresStore) GetVersionByNumber(ctx context.Context, rootID int64, number int) (Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE root_id = $1 AND version_number = $2`,
		rootID, number,
	)
	item, err := scanDocument(row)
	if isNoRows(err) {
		return Document{}, domain.NotFound("version", fmt.Sprintf("%d/%d", rootID, number))
	}
	if err != nil {
		return Document{}, domain.Storage("get version", err)
	}
	return item, nil
}

func (s *PostgresStore) ListVersions(ctx context.Context, rootID int64) ([]VersionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.root_id, d.version_number, d.is_current, d.title, d.change_description,
		       d.author_id, COALESCE(u.display_name, ''), d.created_at
		FROM documents d
		LEFT JOIN users u ON u.id = d.author_id
		WHERE d.root_id = $1
		ORDER BY d.version_number DESC
	`, rootID)
	if err != nil {
		return nil, domain.Storage("list versions", err)
	}
	defer rows.Close()

	items := make([]VersionSummary, 0)
	for rows.Next() {
		var (
			item     VersionSummary
			authorID sql.NullInt64
		)
		if err := rows.Scan(
			&item.ID,
			&item.RootID,
			&item.VersionNumber,
			&item.IsCurrent,
			&item.Title,
			&item.ChangeDescription,
			&authorID,
			&item.AuthorName,
			&item.CreatedAt,
		); err != nil {
			return nil, domain.Storage("scan version", err)
		}
		item.AuthorID = nullableInt64(authorID)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("iterate versions", err)
	}
	return items, nil
}

func (s *PostgresStore) GetTenant(ctx context.Context, id int64) (Tenant, error) {
	var item Tenant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, address, phone, email, tax_id, logo_path, created_at
		FROM tenants WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.Address, &item.Phone, &item.Email, &item.TaxID, &item.LogoPath, &item.CreatedAt)
	if isNoRows(err) {
		return Tenant{}, domain.NotFound("tenant", id)
	}
	if err != nil {
		return Tenant{}, domain.Storage("get tenant", err)
	}
	return item, nil
}

func (s *PostgresStore) GetClassification(ctx context.Context, id int64) (Classification, error) {
	var item Classification
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, code, description FROM classifications WHERE id = $1`, id,
	).Scan(&item.ID, &item.TenantID, &item.Code, &item.Description)
	if isNoRows(err) {
		return Classification{}, domain.NotFound("classification", id)
	}
	if err != nil {
		return Classification{}, domain.Storage("get classification", err)
	}
	return item, nil
}

func (s *PostgresStore) GetModule(ctx context.Context, id int64) (Module, error) {
	var item Module
	err := s.db.QueryRowContext(ctx, `SELECT id, tenant_id, name FROM modules WHERE id = $1`, id).
		Scan(&item.ID, &item.TenantID, &item.Name)
	if isNoRows(err) {
		return Module{}, domain.NotFound("module", id)
	}
	if err != nil {
		return Module{}, domain.Storage("get module", err)
	}
	return item, nil
}

// GetModuleTemplate returns the template of moduleID, preferring a row typed
// for documentType over the module's untyped row. found is false when the
// module has no matching row.
func (s *PostgresStore) GetModuleTemplate(ctx context.Context, moduleID int64, documentType string) (item ModuleTemplate, found bool, err error) {
	var header, footer sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT id, module_id, COALESCE(document_type, ''), header, footer, updated_at
		FROM module_templates
		WHERE module_id = $1 AND (document_type = $2 OR document_type IS NULL)
		ORDER BY document_type NULLS LAST
		LIMIT 1
	`, moduleID, documentType).Scan(&item.ID, &item.ModuleID, &item.DocumentType, &header, &footer, &item.UpdatedAt)
	if isNoRows(err) {
		return ModuleTemplate{}, false, nil
	}
	if err != nil {
		return ModuleTemplate{}, false, domain.Storage("get module template", err)
	}
	item.Header = header.String
	item.Footer = footer.String
	return item, true, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg any) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, email, display_name, password_hash, role, created_at
		FROM users `+where, arg,
	).Scan(&user.ID, &user.TenantID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if isNoRows(err) {
		return User{}, domain.NotFound("user", arg)
	}
	if err != nil {
		return User{}, domain.Storage("get user", err)
	}
	return user, nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return domain.Storage("save refresh session", err)
	}
	return nil
}

// LookupRefreshSession returns the user id owning an unexpired, unrevoked
// refresh token.
func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (int64, error) {
	var userID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM refresh_sessions
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > NOW()
	`, tokenHash).Scan(&userID)
	if isNoRows(err) {
		return 0, domain.NotFound("refresh session", "")
	}
	if err != nil {
		return 0, domain.Storage("lookup refresh session", err)
	}
	return userID, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE refresh_sessions SET revoked_at = NOW() WHERE token_hash = $1 AND revoked_at IS NULL`,
		tokenHash,
	)
	if err != nil {
		return domain.Storage("revoke refresh session", err)
	}
	return nil
}
