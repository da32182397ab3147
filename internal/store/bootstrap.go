package store

import (
	"context"
	"database/sql"
	"fmt"
)

// BootstrapAdmin creates a tenant and its admin user when the users table
// is empty. It reports whether anything was created.
func (s *PostgresStore) BootstrapAdmin(ctx context.Context, admin BootstrapAdmin) (bool, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return false, fmt.Errorf("begin bootstrap: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("check users: %w", err)
	}
	if exists {
		return false, nil
	}

	var tenantID int64
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO tenants (name) VALUES ($1) RETURNING id`, admin.TenantName,
	).Scan(&tenantID); err != nil {
		return false, fmt.Errorf("insert tenant: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (tenant_id, email, display_name, password_hash, role)
		VALUES ($1, $2, $3, $4, 'admin')
	`, tenantID, admin.Email, admin.DisplayName, admin.PasswordHash); err != nil {
		return false, fmt.Errorf("insert admin: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit bootstrap: %w", err)
	}
	return true, nil
}
