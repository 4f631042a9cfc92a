package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/opencustody/strongroom/internal/vault/domain"
	"github.com/opencustody/strongroom/internal/vault/store"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, email, password_hash, role, totp_secret, totp_enabled, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u      domain.User
		role   string
		secret sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &secret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Role, err = domain.ParseRole(role)
	if err != nil {
		return domain.User{}, err
	}
	u.TOTPSecret = mapNullStringPtr(secret)

	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, role, totp_secret, totp_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, string(u.Role),
		mapOptionalString(u.TOTPSecret), u.TOTPEnabled, u.CreatedAt, u.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	return r.execOne(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), time.Now().UTC(), userID)
}

func (r *usersRepo) UpdateTOTPSecret(ctx context.Context, userID string, secret string) error {
	return r.execOne(ctx,
		`UPDATE users SET totp_secret = ?, updated_at = ? WHERE id = ?`,
		secret, time.Now().UTC(), userID)
}

func (r *usersRepo) EnableTOTP(ctx context.Context, userID string) error {
	return r.execOne(ctx,
		`UPDATE users SET totp_enabled = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id = ?`, userID)
}

func (r *usersRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// execOne runs a statement that must affect exactly one row, mapping a
// zero-row result to ErrNotFound.
func (r *usersRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapConstraint(err)
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
