package sqlite

import (
	"context"
	"time"

	"github.com/opencustody/strongroom/internal/vault/domain"
	"github.com/opencustody/strongroom/internal/vault/store"
)

type shareGrantsRepo struct {
	q querier
}

func (r *shareGrantsRepo) CreateShareGrant(ctx context.Context, g domain.ShareGrant) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO share_grants (id, file_id, user_id, created_at)
		VALUES (?, ?, ?, ?)`,
		g.ID, g.FileID, g.UserID, g.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *shareGrantsRepo) HasShareGrant(ctx context.Context, fileID, userID string) (bool, error) {
	var n int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM share_grants WHERE file_id = ? AND user_id = ?`,
		fileID, userID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *shareGrantsRepo) DeleteShareGrant(ctx context.Context, fileID, userID string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM share_grants WHERE file_id = ? AND user_id = ?`,
		fileID, userID)
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

type shareLinksRepo struct {
	q querier
}

func (r *shareLinksRepo) CreateShareLink(ctx context.Context, l domain.ShareLink) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO share_links (id, file_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.FileID, l.TokenHash, l.ExpiresAt, l.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *shareLinksRepo) GetShareLinkByTokenHash(ctx context.Context, hash string) (domain.ShareLink, error) {
	var l domain.ShareLink
	err := r.q.QueryRowContext(ctx, `
		SELECT id, file_id, token_hash, expires_at, created_at
		FROM share_links WHERE token_hash = ?`, hash,
	).Scan(&l.ID, &l.FileID, &l.TokenHash, &l.ExpiresAt, &l.CreatedAt)
	if err != nil {
		return domain.ShareLink{}, mapNotFound(err)
	}
	return l, nil
}

func (r *shareLinksRepo) DeleteExpiredShareLinks(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM share_links WHERE expires_at < ?`, time.Now().UTC())
	return err
}
