package domain

import "time"

// KeyEntry is a per-resource data key wrapped under the master key. The
// plaintext key never touches storage; wrapped_key and nonce are produced
// only by the vault's wrap operation and consumed only by its unwrap.
type KeyEntry struct {
	ResourceID     string
	WrappedKey     []byte
	Nonce          []byte
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
