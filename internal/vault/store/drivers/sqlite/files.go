package sqlite

import (
	"context"

	"github.com/opencustody/strongroom/internal/vault/domain"
	"github.com/opencustody/strongroom/internal/vault/store"
)

type filesRepo struct {
	q querier
}

const fileColumns = `id, owner_id, name, mime_type, size, created_at, updated_at`

func scanFile(row interface{ Scan(...any) error }) (domain.File, error) {
	var f domain.File
	err := row.Scan(&f.ID, &f.OwnerID, &f.Name, &f.MimeType, &f.Size, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return domain.File{}, mapNotFound(err)
	}
	return f, nil
}

func (r *filesRepo) GetFileByID(ctx context.Context, id string) (domain.File, error) {
	return scanFile(r.q.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = ?`, id))
}

func (r *filesRepo) CreateFile(ctx context.Context, f domain.File) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO files (id, owner_id, name, mime_type, size, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.OwnerID, f.Name, f.MimeType, f.Size, f.CreatedAt, f.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *filesRepo) ListFilesByOwner(ctx context.Context, ownerID string) ([]domain.File, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE owner_id = ? ORDER BY created_at DESC, id DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []domain.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *filesRepo) ListFileIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id FROM files WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *filesRepo) DeleteFile(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
