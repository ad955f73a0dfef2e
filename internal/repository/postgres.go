package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/glizzus/sound-clips/internal/generator"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClipRepository struct {
	db  *pgxpool.Pool
	ids generator.Generator[string]
}

func NewPostgresClipRepository(db *pgxpool.Pool, ids generator.Generator[string]) *PostgresClipRepository {
	if ids == nil {
		ids = &generator.UUIDV4Generator{}
	}
	return &PostgresClipRepository{db: db, ids: ids}
}

var _ ClipCatalog = (*PostgresClipRepository)(nil)

const clipColumns = `id, name, owner_id, digest, filename`

func scanClip(row pgx.Row) (*Clip, error) {
	var clip Clip
	err := row.Scan(&clip.ID, &clip.Name, &clip.OwnerID, &clip.Digest, &clip.Filename)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &clip, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (r *PostgresClipRepository) FindByName(ctx context.Context, ownerID, name string) (*Clip, error) {
	const query = `SELECT ` + clipColumns + ` FROM clips WHERE owner_id = $1 AND name = $2`

	clip, err := scanClip(r.db.QueryRow(ctx, query, ownerID, name))
	if err != nil {
		return nil, fmt.Errorf("failed to find clip by name: %w", err)
	}
	return clip, nil
}

func (r *PostgresClipRepository) FindByDigest(ctx context.Context, digest string) (*Clip, error) {
	const query = `SELECT ` + clipColumns + ` FROM clips WHERE digest = $1 LIMIT 1`

	clip, err := scanClip(r.db.QueryRow(ctx, query, digest))
	if err != nil {
		return nil, fmt.Errorf("failed to find clip by digest: %w", err)
	}
	return clip, nil
}

func (r *PostgresClipRepository) ListForOwner(ctx context.Context, ownerID string) ([]Clip, error) {
	const query = `SELECT ` + clipColumns + ` FROM clips WHERE owner_id = $1 ORDER BY name COLLATE "C"`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clips: %w", err)
	}
	defer rows.Close()

	clips := []Clip{}
	for rows.Next() {
		var clip Clip
		if err := rows.Scan(&clip.ID, &clip.Name, &clip.OwnerID, &clip.Digest, &clip.Filename); err != nil {
			return nil, fmt.Errorf("failed to scan clip: %w", err)
		}
		clips = append(clips, clip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clips: %w", err)
	}
	return clips, nil
}

func (r *PostgresClipRepository) Create(ctx context.Context, name, ownerID, digest, filename string) (Clip, error) {
	const query = `
	INSERT INTO clips (id, name, owner_id, digest, filename)
	VALUES ($1, $2, $3, $4, $5)
	`

	id, err := r.ids.Next()
	if err != nil {
		return Clip{}, fmt.Errorf("failed to generate clip ID: %w", err)
	}

	clip := Clip{ID: id, Name: name, OwnerID: ownerID, Digest: digest, Filename: filename}
	_, err = r.db.Exec(ctx, query, clip.ID, clip.Name, clip.OwnerID, clip.Digest, clip.Filename)
	if isUniqueViolation(err) {
		return Clip{}, &NameConflictError{OwnerID: ownerID, Name: name}
	}
	if err != nil {
		return Clip{}, fmt.Errorf("failed to insert clip: %w", err)
	}
	return clip, nil
}

func (r *PostgresClipRepository) Rename(ctx context.Context, clip Clip, newName string) (Clip, error) {
	const query = `UPDATE clips SET name = $1 WHERE id = $2`

	tag, err := r.db.Exec(ctx, query, newName, clip.ID)
	if isUniqueViolation(err) {
		return Clip{}, &NameConflictError{OwnerID: clip.OwnerID, Name: newName}
	}
	if err != nil {
		return Clip{}, fmt.Errorf("failed to rename clip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Clip{}, ErrClipNotFound
	}

	clip.Name = newName
	return clip, nil
}

func (r *PostgresClipRepository) Delete(ctx context.Context, clip Clip) error {
	const query = `DELETE FROM clips WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, clip.ID)
	if err != nil {
		return fmt.Errorf("failed to delete clip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClipNotFound
	}
	return nil
}
