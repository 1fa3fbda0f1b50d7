package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"zotion/internal/domain"
	"zotion/internal/domain/models"
	"zotion/internal/domain/repositories"
)

const documentColumns = `id, user_id, title, icon, cover_image, content, parent_document,
	is_archived, is_published, created_at, updated_at`

// PostgresDocumentRepository implements repositories.DocumentRepository
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create creates a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, title, icon, cover_image, content, parent_document, is_archived, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.UserID,
		doc.Title,
		doc.Icon,
		doc.CoverImage,
		doc.Content,
		doc.ParentDocument,
		doc.IsArchived,
		doc.IsPublished,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return &domain.NotFoundError{Message: "parent document not found"}
		}
		if IsPgInvalidTextError(err) {
			return &domain.ValidationError{Message: "invalid parent document id"}
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, userID, id string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, documentColumns, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id, userID))
	if err != nil {
		if IsPgNoRowsError(err) || IsPgInvalidTextError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return doc, nil
}

// Update updates an existing document
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, icon = $2, cover_image = $3, content = $4, parent_document = $5,
		    is_archived = $6, is_published = $7, updated_at = NOW()
		WHERE id = $8 AND user_id = $9
		RETURNING updated_at
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.Title,
		doc.Icon,
		doc.CoverImage,
		doc.Content,
		doc.ParentDocument,
		doc.IsArchived,
		doc.IsPublished,
		doc.ID,
		doc.UserID,
	).Scan(&doc.UpdatedAt)

	if err != nil {
		if IsPgNoRowsError(err) {
			return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("update document: %w", err)
	}

	return nil
}

// SetArchived flips the archived flag on a single document
func (r *PostgresDocumentRepository) SetArchived(ctx context.Context, userID, id string, archived bool) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_archived = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, archived, id, userID)
	if err != nil {
		return fmt.Errorf("set archived: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListDescendantIDs walks the parent graph below id with a recursive CTE.
// UNION (not UNION ALL) stops the walk if the graph ever contains a cycle.
func (r *PostgresDocumentRepository) ListDescendantIDs(ctx context.Context, userID, id string) ([]string, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE descendants AS (
			SELECT id FROM %s WHERE parent_document = $1 AND user_id = $2
			UNION
			SELECT d.id FROM %s d
			JOIN descendants p ON d.parent_document = p.id
			WHERE d.user_id = $2
		)
		SELECT id FROM descendants
	`, r.tables.Documents, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, id, userID)
	if err != nil {
		return nil, fmt.Errorf("list descendants: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan descendants: %w", err)
	}

	return ids, nil
}

// ListChildren lists non-archived children of parentID
func (r *PostgresDocumentRepository) ListChildren(ctx context.Context, userID string, parentID *string) ([]models.Document, error) {
	var query string
	var args []interface{}

	if parentID == nil {
		query = fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE user_id = $1 AND parent_document IS NULL AND is_archived = FALSE
			ORDER BY created_at DESC
		`, documentColumns, r.tables.Documents)
		args = append(args, userID)
	} else {
		query = fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE user_id = $1 AND parent_document = $2 AND is_archived = FALSE
			ORDER BY created_at DESC
		`, documentColumns, r.tables.Documents)
		args = append(args, userID, *parentID)
	}

	return r.queryDocuments(ctx, query, args...)
}

// ListSearchable lists all non-archived documents of the user
func (r *PostgresDocumentRepository) ListSearchable(ctx context.Context, userID string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1 AND is_archived = FALSE
		ORDER BY created_at DESC
	`, documentColumns, r.tables.Documents)

	return r.queryDocuments(ctx, query, userID)
}

func (r *PostgresDocumentRepository) queryDocuments(ctx context.Context, query string, args ...interface{}) ([]models.Document, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		if IsPgInvalidTextError(err) {
			return []models.Document{}, nil
		}
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	documents := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return documents, nil
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Title,
		&doc.Icon,
		&doc.CoverImage,
		&doc.Content,
		&doc.ParentDocument,
		&doc.IsArchived,
		&doc.IsPublished,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
