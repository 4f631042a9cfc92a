package sqlite

import (
	"context"
	"database/sql"

	"github.com/opencustody/strongroom/internal/vault/store"
)

// txStore implements store.Tx: the full Store surface scoped to one
// open transaction.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Users() store.Users             { return &usersRepo{q: t.tx} }
func (t *txStore) Files() store.Files             { return &filesRepo{q: t.tx} }
func (t *txStore) Keys() store.Keys               { return &keysRepo{q: t.tx} }
func (t *txStore) ShareGrants() store.ShareGrants { return &shareGrantsRepo{q: t.tx} }
func (t *txStore) ShareLinks() store.ShareLinks   { return &shareLinksRepo{q: t.tx} }

func (t *txStore) ApplyMigrations() error { return store.ErrTxUnsupported }
func (t *txStore) Close() error           { return store.ErrTxUnsupported }

func (t *txStore) Ping(ctx context.Context) error { return store.ErrTxUnsupported }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, store.ErrTxUnsupported
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	// Already inside a transaction; run fn against it directly.
	return fn(t)
}
