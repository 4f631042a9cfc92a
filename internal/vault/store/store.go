package store

import (
	"context"
	"errors"

	"github.com/opencustody/strongroom/internal/vault/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrTxUnsupported is returned by Tx-scoped stores for operations
	// that only make sense at the connection level.
	ErrTxUnsupported = errors.New("store: operation not supported inside a transaction")
)

// Store is the root data access interface. Concrete drivers (sqlite) expose
// sub-repositories per aggregate to keep concerns tidy and testable.
type Store interface {
	Users() Users
	Files() Files
	Keys() Keys
	ShareGrants() ShareGrants
	ShareLinks() ShareLinks

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST Commit() or Rollback() the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing on nil and
	// rolling back on error. Prefer this over Tx for multi-step writes
	// that must be atomic (signup, cascading deletes).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up a user by normalized email (login path).
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user; ErrAlreadyExists on a duplicate email.
	CreateUser(ctx context.Context, u domain.User) error

	// ListUsers returns all users ordered by creation (oldest first).
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdateRole sets the user's role and bumps updated_at.
	UpdateRole(ctx context.Context, userID string, role domain.Role) error

	// UpdateTOTPSecret replaces the TOTP secret. Only valid while the
	// user has not completed verification; the service enforces that.
	UpdateTOTPSecret(ctx context.Context, userID string, secret string) error

	// EnableTOTP marks the secret as verified.
	EnableTOTP(ctx context.Context, userID string) error

	// DeleteUser removes the user; files, grants and links cascade.
	DeleteUser(ctx context.Context, userID string) error

	// Count returns the number of users (first-user role assignment).
	Count(ctx context.Context) (int64, error)
}

type Files interface {
	GetFileByID(ctx context.Context, id string) (domain.File, error)
	CreateFile(ctx context.Context, f domain.File) error

	// ListFilesByOwner returns the owner's files, newest first.
	ListFilesByOwner(ctx context.Context, ownerID string) ([]domain.File, error)

	// ListFileIDsByOwner returns just the ids, for cascade deletes.
	ListFileIDsByOwner(ctx context.Context, ownerID string) ([]string, error)

	DeleteFile(ctx context.Context, id string) error
}

type Keys interface {
	// GetKeyEntry returns the wrapped key record for a resource.
	GetKeyEntry(ctx context.Context, resourceID string) (domain.KeyEntry, error)

	// CreateKeyEntry inserts a wrapped key; ErrAlreadyExists when the
	// resource already has one (wrap-once is enforced here, not upsert).
	CreateKeyEntry(ctx context.Context, e domain.KeyEntry) error

	// TouchKeyEntry bumps last_accessed_at.
	TouchKeyEntry(ctx context.Context, resourceID string) error

	DeleteKeyEntry(ctx context.Context, resourceID string) error
}

type ShareGrants interface {
	CreateShareGrant(ctx context.Context, g domain.ShareGrant) error

	// HasShareGrant reports whether (file, user) has an explicit grant.
	HasShareGrant(ctx context.Context, fileID, userID string) (bool, error)

	DeleteShareGrant(ctx context.Context, fileID, userID string) error
}

type ShareLinks interface {
	CreateShareLink(ctx context.Context, l domain.ShareLink) error

	// GetShareLinkByTokenHash returns a link by its token fingerprint,
	// expired or not; expiry is the caller's decision.
	GetShareLinkByTokenHash(ctx context.Context, hash string) (domain.ShareLink, error)

	// DeleteExpiredShareLinks is housekeeping.
	DeleteExpiredShareLinks(ctx context.Context) error
}
