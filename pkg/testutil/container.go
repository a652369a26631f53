// Package testutil provides testing utilities for CV Studio backend
// services. It includes testcontainers for PostgreSQL, mock database
// factories, and common test fixtures.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "cvstudio_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    // Run tests
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "cvstudio_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreateDocumentsSchema creates the cv_documents table used by the
// document store. It mirrors migrations/cv/001_create_cv_documents.sql.
func (c *PostgresContainer) CreateDocumentsSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS cv_documents (
			id UUID PRIMARY KEY,
			file_name VARCHAR(255) NOT NULL,
			file_type VARCHAR(16) NOT NULL,
			status VARCHAR(32) NOT NULL,
			original_content TEXT NOT NULL DEFAULT '',
			processed_content JSONB NOT NULL DEFAULT '{}',
			formatted_content TEXT NOT NULL DEFAULT '',
			processing_logs JSONB NOT NULL DEFAULT '[]',
			metadata JSONB NOT NULL DEFAULT '{}',
			creator VARCHAR(255) NOT NULL DEFAULT 'unknown',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_cv_documents_status ON cv_documents(status);
		CREATE INDEX IF NOT EXISTS idx_cv_documents_creator ON cv_documents(creator);
		CREATE INDEX IF NOT EXISTS idx_cv_documents_created_at ON cv_documents(created_at DESC);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create documents schema: %w", err)
	}
	return nil
}

// TruncateDocuments empties the cv_documents table between tests
func (c *PostgresContainer) TruncateDocuments(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, "TRUNCATE TABLE cv_documents"); err != nil {
		return fmt.Errorf("failed to truncate cv_documents: %w", err)
	}
	return nil
}
