package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/opencustody/strongroom/internal/vault/domain"
	"github.com/opencustody/strongroom/internal/vault/store"
	"github.com/opencustody/strongroom/pkg/cryptox"

	"github.com/stretchr/testify/require"
)

func newVaultService(t *testing.T, st store.Store) *VaultService {
	t.Helper()

	masterKey := make([]byte, cryptox.MasterKeySize)
	_, err := rand.Read(masterKey)
	require.NoError(t, err)

	wrapper, err := cryptox.NewKeyWrapper(masterKey)
	require.NoError(t, err)

	return &VaultService{Store: st, Wrapper: wrapper}
}

func randomDataKey(t *testing.T) []byte {
	t.Helper()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestVaultStoreAndFetch(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newVaultService(t, st)

	dataKey := randomDataKey(t)
	require.NoError(t, svc.StoreKey(ctx, "file-1", dataKey))

	t.Run("round trips the data key", func(t *testing.T) {
		got, err := svc.FetchKey(ctx, "file-1")
		require.NoError(t, err)
		require.Equal(t, dataKey, got)
	})

	t.Run("plaintext never hits storage", func(t *testing.T) {
		entry, err := st.Keys().GetKeyEntry(ctx, "file-1")
		require.NoError(t, err)
		require.NotEqual(t, dataKey, entry.WrappedKey)
		require.False(t, bytes.Contains(entry.WrappedKey, dataKey))
	})

	t.Run("second store for the same resource conflicts", func(t *testing.T) {
		err := svc.StoreKey(ctx, "file-1", randomDataKey(t))
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		// The original key must be untouched.
		got, err := svc.FetchKey(ctx, "file-1")
		require.NoError(t, err)
		require.Equal(t, dataKey, got)
	})

	t.Run("unknown resource is not found", func(t *testing.T) {
		_, err := svc.FetchKey(ctx, "no-such-file")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("fetch bumps the access timestamp", func(t *testing.T) {
		before, err := st.Keys().GetKeyEntry(ctx, "file-1")
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)
		_, err = svc.FetchKey(ctx, "file-1")
		require.NoError(t, err)

		after, err := st.Keys().GetKeyEntry(ctx, "file-1")
		require.NoError(t, err)
		require.True(t, after.LastAccessedAt.After(before.LastAccessedAt))
	})
}

func TestVaultCopyKey(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newVaultService(t, st)

	dataKey := randomDataKey(t)
	require.NoError(t, svc.StoreKey(ctx, "source", dataKey))

	t.Run("copy duplicates the wrapping verbatim", func(t *testing.T) {
		require.NoError(t, svc.CopyKey(ctx, "source", "copy"))

		src, err := st.Keys().GetKeyEntry(ctx, "source")
		require.NoError(t, err)
		dst, err := st.Keys().GetKeyEntry(ctx, "copy")
		require.NoError(t, err)
		require.Equal(t, src.WrappedKey, dst.WrappedKey)
		require.Equal(t, src.Nonce, dst.Nonce)

		got, err := svc.FetchKey(ctx, "copy")
		require.NoError(t, err)
		require.Equal(t, dataKey, got)
	})

	t.Run("copy from unknown source is not found", func(t *testing.T) {
		err := svc.CopyKey(ctx, "no-such-source", "whatever")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("copy onto an existing resource conflicts", func(t *testing.T) {
		err := svc.CopyKey(ctx, "source", "copy")
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("copy outlives deletion of the source", func(t *testing.T) {
		require.NoError(t, svc.DeleteKey(ctx, "source"))

		got, err := svc.FetchKey(ctx, "copy")
		require.NoError(t, err)
		require.Equal(t, dataKey, got)
	})
}

func TestVaultCorruptEntry(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newVaultService(t, st)

	now := time.Now().UTC()
	require.NoError(t, st.Keys().CreateKeyEntry(ctx, domain.KeyEntry{
		ResourceID:     "mangled",
		WrappedKey:     []byte("not a real ciphertext"),
		Nonce:          make([]byte, cryptox.NonceSize),
		CreatedAt:      now,
		LastAccessedAt: now,
	}))

	_, err := svc.FetchKey(ctx, "mangled")
	require.ErrorIs(t, err, cryptox.ErrCryptoFailure)
}

func TestVaultDeleteKey(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newVaultService(t, st)

	require.NoError(t, svc.StoreKey(ctx, "doomed", randomDataKey(t)))
	require.NoError(t, svc.DeleteKey(ctx, "doomed"))

	_, err := svc.FetchKey(ctx, "doomed")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.ErrorIs(t, svc.DeleteKey(ctx, "doomed"), store.ErrNotFound)
}
