package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
	"github.com/cvstudio/cvstudio-backend/pkg/database"
	"github.com/cvstudio/cvstudio-backend/pkg/errors"
)

const documentColumns = `id, file_name, file_type, original_content, processed_content,
	formatted_content, status, processing_logs, metadata, creator, created_at, updated_at`

// PostgresBackend persists CV documents in a Postgres table with jsonb
// columns for the structured content, logs and metadata.
type PostgresBackend struct {
	db *database.DB
}

// NewPostgresBackend creates a Postgres-backed document store
func NewPostgresBackend(db *database.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Get fetches a single document by id
func (b *PostgresBackend) Get(ctx context.Context, id string) (*domain.CVDocument, error) {
	var doc domain.CVDocument
	query := `SELECT ` + documentColumns + ` FROM cv_documents WHERE id = $1`

	err := b.db.GetContext(ctx, &doc, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("CV document")
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Find fetches documents matching the filter
func (b *PostgresBackend) Find(ctx context.Context, filter Filter) ([]*domain.CVDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM cv_documents WHERE 1=1`
	var args []interface{}

	if filter.ID != "" {
		args = append(args, filter.ID)
		query += ` AND id = $1`
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.Creator != "" {
		args = append(args, filter.Creator)
		query += ` AND creator = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	var docs []*domain.CVDocument
	if err := b.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, err
	}
	return docs, nil
}

// List fetches all documents, newest first
func (b *PostgresBackend) List(ctx context.Context) ([]*domain.CVDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM cv_documents ORDER BY created_at DESC`

	var docs []*domain.CVDocument
	if err := b.db.SelectContext(ctx, &docs, query); err != nil {
		return nil, err
	}
	return docs, nil
}

// Create inserts a new document. The store assigns the id.
func (b *PostgresBackend) Create(ctx context.Context, doc *domain.CVDocument) (*domain.CVDocument, error) {
	created := *doc
	if created.ID == "" {
		created.ID = uuid.New().String()
	}

	query := `
		INSERT INTO cv_documents (
			id, file_name, file_type, original_content, processed_content,
			formatted_content, status, processing_logs, metadata, creator,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := b.db.QueryRowxContext(ctx, query,
		created.ID, created.FileName, created.FileType, created.OriginalContent,
		created.ProcessedContent, created.FormattedContent, string(created.Status),
		created.ProcessingLogs, created.Metadata, created.Creator,
		created.CreatedAt, created.UpdatedAt,
	).Scan(&created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

// Update applies a partial update against the stored row inside a
// transaction, so untouched fields survive concurrent writers.
func (b *PostgresBackend) Update(ctx context.Context, id string, upd domain.DocumentUpdate, updatedAt time.Time) (*domain.CVDocument, error) {
	var doc domain.CVDocument

	err := b.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		query := `SELECT ` + documentColumns + ` FROM cv_documents WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &doc, query, id); err != nil {
			if err == sql.ErrNoRows {
				return errors.NotFound("CV document")
			}
			return err
		}

		upd.Apply(&doc, updatedAt)

		update := `
			UPDATE cv_documents SET
				original_content = $2, processed_content = $3, formatted_content = $4,
				status = $5, processing_logs = $6, metadata = $7, updated_at = $8
			WHERE id = $1
		`
		_, err := tx.ExecContext(ctx, update,
			doc.ID, doc.OriginalContent, doc.ProcessedContent, doc.FormattedContent,
			string(doc.Status), doc.ProcessingLogs, doc.Metadata, doc.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

// Delete removes a document by id
func (b *PostgresBackend) Delete(ctx context.Context, id string) error {
	result, err := b.db.ExecContext(ctx, `DELETE FROM cv_documents WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("CV document")
	}
	return nil
}
