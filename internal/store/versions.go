package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/domain"
)

const maxVersionAttempts = 3

// InsertDocument creates version 1 of a new lineage. The row is its own root.
func (s *PostgresStore) InsertDocument(ctx context.Context, item NewDocument) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		WITH next AS (SELECT nextval(pg_get_serial_sequence('documents', 'id')) AS id)
		INSERT INTO documents (
			id, root_id, tenant_id, module_id, classification_id, document_type,
			code, title, body, content, status, version_number, is_current,
			change_description, author_id
		)
		SELECT next.id, next.id, $1, $2, $3, $4, $5, $6, $7, $8, $9, 1, TRUE, $10, $11
		FROM next
		RETURNING `+documentColumns,
		item.TenantID,
		nullInt64(item.ModuleID),
		nullInt64(item.ClassificationID),
		nullString(item.DocumentType),
		item.Code,
		item.Title,
		item.Body,
		item.Content,
		item.Status,
		"Initial version",
		authorParam(item.AuthorID),
	)
	created, err := scanDocument(row)
	if err != nil {
		return Document{}, domain.Storage("insert document", err)
	}
	return created, nil
}

// AppendVersion adds draft as the new current version of its lineage. The
// lineage root is locked for the whole transaction, so concurrent appends
// serialize; a lost race on the unique constraints is retried.
func (s *PostgresStore) AppendVersion(ctx context.Context, draft VersionDraft) (Document, error) {
	var lastErr error
	for attempt := 1; attempt <= maxVersionAttempts; attempt++ {
		created, err := s.appendVersion(ctx, draft)
		if err == nil {
			return created, nil
		}
		if !isRetryable(err) || ctx.Err() != nil {
			return Document{}, domain.Storage("append version", err)
		}
		lastErr = err
	}
	return Document{}, domain.Storage("append version", fmt.Errorf("gave up after %d attempts: %w", maxVersionAttempts, lastErr))
}

func (s *PostgresStore) appendVersion(ctx context.Context, draft VersionDraft) (Document, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return Document{}, fmt.Errorf("begin version tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var rootID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM documents WHERE id = $1 AND root_id = id FOR UPDATE`,
		draft.RootID,
	).Scan(&rootID)
	if isNoRows(err) {
		return Document{}, domain.NotFound("document", draft.RootID)
	}
	if err != nil {
		return Document{}, fmt.Errorf("lock lineage: %w", err)
	}

	current, err := scanDocument(tx.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE root_id = $1 AND is_current`,
		rootID,
	))
	if isNoRows(err) {
		return Document{}, domain.NotFound("current version", rootID)
	}
	if err != nil {
		return Document{}, fmt.Errorf("load current version: %w", err)
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_number), 0) + 1 FROM documents WHERE root_id = $1`,
		rootID,
	).Scan(&next); err != nil {
		return Document{}, fmt.Errorf("next version number: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET is_current = FALSE, updated_at = NOW() WHERE root_id = $1 AND is_current`,
		rootID,
	); err != nil {
		return Document{}, fmt.Errorf("clear current flag: %w", err)
	}

	title := draft.Title
	if title == "" {
		title = current.Title
	}
	created, err := scanDocument(tx.QueryRowContext(ctx, `
		INSERT INTO documents (
			tenant_id, module_id, classification_id, document_type, code, title,
			body, content, status, version_number, root_id, is_current,
			change_description, author_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE, $12, $13)
		RETURNING `+documentColumns,
		current.TenantID,
		nullInt64(current.ModuleID),
		nullInt64(current.ClassificationID),
		nullString(current.DocumentType),
		current.Code,
		title,
		draft.Body,
		draft.Content,
		current.Status,
		next,
		rootID,
		draft.ChangeDescription,
		authorParam(draft.AuthorID),
	))
	if err != nil {
		return Document{}, fmt.Errorf("insert version %d: %w", next, err)
	}

	if err := tx.Commit(); err != nil {
		return Document{}, fmt.Errorf("commit version %d: %w", next, err)
	}
	return created, nil
}

func authorParam(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}
