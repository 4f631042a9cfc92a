package sqlite

import (
	"context"
	"time"

	"github.com/opencustody/strongroom/internal/vault/domain"
	"github.com/opencustody/strongroom/internal/vault/store"
)

type keysRepo struct {
	q querier
}

func (r *keysRepo) GetKeyEntry(ctx context.Context, resourceID string) (domain.KeyEntry, error) {
	var e domain.KeyEntry
	err := r.q.QueryRowContext(ctx, `
		SELECT resource_id, wrapped_key, nonce, created_at, last_accessed_at
		FROM encryption_keys WHERE resource_id = ?`, resourceID,
	).Scan(&e.ResourceID, &e.WrappedKey, &e.Nonce, &e.CreatedAt, &e.LastAccessedAt)
	if err != nil {
		return domain.KeyEntry{}, mapNotFound(err)
	}
	return e, nil
}

func (r *keysRepo) CreateKeyEntry(ctx context.Context, e domain.KeyEntry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO encryption_keys (resource_id, wrapped_key, nonce, created_at, last_accessed_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ResourceID, e.WrappedKey, e.Nonce, e.CreatedAt, e.LastAccessedAt,
	)
	return mapConstraint(err)
}

func (r *keysRepo) TouchKeyEntry(ctx context.Context, resourceID string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE encryption_keys SET last_accessed_at = ? WHERE resource_id = ?`,
		time.Now().UTC(), resourceID)
	return err
}

func (r *keysRepo) DeleteKeyEntry(ctx context.Context, resourceID string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM encryption_keys WHERE resource_id = ?`, resourceID)
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
