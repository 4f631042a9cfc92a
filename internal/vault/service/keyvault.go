package service

import (
	"context"
	"fmt"
	"time"

	"github.com/opencustody/strongroom/internal/vault/domain"
	"github.com/opencustody/strongroom/internal/vault/store"
	"github.com/opencustody/strongroom/pkg/cryptox"
	"github.com/opencustody/strongroom/pkg/slogx"
)

// VaultService is the key-custody core: it keeps per-resource data keys
// wrapped under the master key. Plaintext keys exist only in the request
// path; nothing here ever writes one to storage or a log.
type VaultService struct {
	Store   store.Store
	Wrapper *cryptox.KeyWrapper
}

// StoreKey wraps dataKey and persists it under resourceID. A resource gets
// exactly one key for its lifetime; a second store attempt is a conflict,
// never an overwrite.
func (s *VaultService) StoreKey(ctx context.Context, resourceID string, dataKey []byte) error {
	wrapped, nonce, err := s.Wrapper.Wrap(dataKey)
	if err != nil {
		return fmt.Errorf("failed to wrap key: %w", err)
	}

	now := time.Now().UTC()
	return s.Store.Keys().CreateKeyEntry(ctx, domain.KeyEntry{
		ResourceID:     resourceID,
		WrappedKey:     wrapped,
		Nonce:          nonce,
		CreatedAt:      now,
		LastAccessedAt: now,
	})
}

// FetchKey unwraps and returns the data key for resourceID, bumping
// last_accessed_at. Unknown ids surface as store.ErrNotFound; a corrupt
// entry surfaces as the opaque cryptox.ErrCryptoFailure.
func (s *VaultService) FetchKey(ctx context.Context, resourceID string) ([]byte, error) {
	entry, err := s.Store.Keys().GetKeyEntry(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	dataKey, err := s.Wrapper.Unwrap(entry.WrappedKey, entry.Nonce)
	if err != nil {
		return nil, err
	}

	// The access timestamp is bookkeeping; a failed bump must not turn a
	// good fetch into an error.
	if err := s.Store.Keys().TouchKeyEntry(ctx, resourceID); err != nil {
		slogx.FromContext(ctx).Warn("failed to bump key access time",
			"resource_id", resourceID, "error", err)
	}

	return dataKey, nil
}

// CopyKey duplicates the stored wrapped key of fromID under toID, byte for
// byte. The data key is never decrypted; both resources end up sharing the
// same underlying key without it ever leaving its wrapping.
func (s *VaultService) CopyKey(ctx context.Context, fromID, toID string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		entry, err := tx.Keys().GetKeyEntry(ctx, fromID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		return tx.Keys().CreateKeyEntry(ctx, domain.KeyEntry{
			ResourceID:     toID,
			WrappedKey:     entry.WrappedKey,
			Nonce:          entry.Nonce,
			CreatedAt:      now,
			LastAccessedAt: now,
		})
	})
}

// DeleteKey removes the key entry for resourceID. Used by resource deletion
// cascades; once gone, the resource's ciphertext is unrecoverable.
func (s *VaultService) DeleteKey(ctx context.Context, resourceID string) error {
	return s.Store.Keys().DeleteKeyEntry(ctx, resourceID)
}
