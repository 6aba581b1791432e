package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/unipublish/backend/internal/db"
	"github.com/unipublish/backend/internal/models"
)

// PostgresPublicationRepository provides PostgreSQL-backed persistence for
// publications.
type PostgresPublicationRepository struct {
	pool db.Pool
}

// NewPostgresPublicationRepository constructs a publication repository backed by PostgreSQL.
func NewPostgresPublicationRepository(pool db.Pool) *PostgresPublicationRepository {
	return &PostgresPublicationRepository{pool: pool}
}

// RecordPublication persists a published platform's metadata.
func (r *PostgresPublicationRepository) RecordPublication(ctx context.Context, publication models.Publication) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tags := publication.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO publications (id, session_id, platform, title, description, tags, published_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, publication.ID, publication.SessionID, publication.Platform, publication.Title, publication.Description, tags, publication.PublishedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert publication: %w", err)
	}

	return nil
}

// FindByID fetches a single publication. Identifiers that are not UUIDs are
// reported as ErrNotFound.
func (r *PostgresPublicationRepository) FindByID(ctx context.Context, id string) (models.Publication, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Publication{}, ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Publication{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, session_id, platform, title, description, tags, published_at
        FROM publications
        WHERE id = $1
    `, id)

	publication, err := scanPublication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Publication{}, ErrNotFound
		}
		return models.Publication{}, fmt.Errorf("select publication: %w", err)
	}
	return publication, nil
}

// ListRecent returns the most recently published entries, newest first.
func (r *PostgresPublicationRepository) ListRecent(ctx context.Context, limit int) ([]models.Publication, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, session_id, platform, title, description, tags, published_at
        FROM publications
        ORDER BY published_at DESC, id
        LIMIT $1
    `, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query publications: %w", err)
	}
	defer rows.Close()

	publications := []models.Publication{}
	for rows.Next() {
		publication, err := scanPublication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan publication: %w", err)
		}
		publications = append(publications, publication)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate publications: %w", err)
	}

	return publications, nil
}

func scanPublication(row pgx.Row) (models.Publication, error) {
	var p models.Publication
	if err := row.Scan(&p.ID, &p.SessionID, &p.Platform, &p.Title, &p.Description, &p.Tags, &p.PublishedAt); err != nil {
		return models.Publication{}, err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.PublishedAt = p.PublishedAt.UTC()
	return p, nil
}
