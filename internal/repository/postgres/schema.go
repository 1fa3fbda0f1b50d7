package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the documents table and its indexes if they don't exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS "pgcrypto"`); err != nil {
		return fmt.Errorf("enable pgcrypto: %w", err)
	}

	createDocuments := `
		CREATE TABLE IF NOT EXISTS ` + tables.Documents + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id TEXT NOT NULL,
			title VARCHAR(255) NOT NULL,
			icon TEXT,
			cover_image TEXT,
			content TEXT,
			parent_document UUID REFERENCES ` + tables.Documents + `(id) ON DELETE CASCADE,
			is_archived BOOLEAN NOT NULL DEFAULT FALSE,
			is_published BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createDocuments); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tables.Prefix + `documents_user ON ` + tables.Documents + `(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tables.Prefix + `documents_user_parent ON ` + tables.Documents + `(user_id, parent_document)`,
	}
	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}

// DropSchema drops the documents table.
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+tables.Documents+" CASCADE"); err != nil {
		return fmt.Errorf("drop %s: %w", tables.Documents, err)
	}
	return nil
}

// ClearUserData removes every document owned by userID.
func ClearUserData(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, userID string) error {
	if _, err := pool.Exec(ctx, "DELETE FROM "+tables.Documents+" WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	return nil
}
