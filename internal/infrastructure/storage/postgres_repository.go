package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"StoryBuilder/internal/ports"
)

// PostgresRepository persists finished story runs for dedup and audit.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.StoryRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Open connects to Postgres with the provided DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// AlreadyBuilt reports whether a run with this slug exists in storage.
func (r *PostgresRepository) AlreadyBuilt(ctx context.Context, slug string) (bool, error) {
	if r.db == nil || slug == "" {
		return false, nil
	}

	query, args, err := r.builder.
		Select("1").
		From("story_runs").
		Where(sq.Eq{"slug": slug}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query story run: %w", err)
	}
	return true, nil
}

// SaveRun upserts the finished run snapshot.
func (r *PostgresRepository) SaveRun(ctx context.Context, run ports.StoryRun) error {
	if r.db == nil {
		return nil
	}

	query, args, err := r.builder.
		Insert("story_runs").
		Columns("slug", "title", "language", "document", "degraded_slides").
		Values(run.Slug, run.Title, run.LanguageCode, run.Document, run.DegradedSlides).
		Suffix(`ON CONFLICT (slug) DO UPDATE
                SET title = EXCLUDED.title,
                    language = EXCLUDED.language,
                    document = EXCLUDED.document,
                    degraded_slides = EXCLUDED.degraded_slides,
                    updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert story run: %w", err)
	}
	return nil
}
