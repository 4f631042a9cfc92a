package cryptox_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/opencustody/strongroom/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func newTestWrapper(t *testing.T) *cryptox.KeyWrapper {
	t.Helper()

	master := make([]byte, cryptox.MasterKeySize)
	_, err := rand.Read(master)
	require.NoError(t, err)

	wrapper, err := cryptox.NewKeyWrapper(master)
	require.NoError(t, err)
	return wrapper
}

func TestNewKeyWrapperRejectsBadKeySizes(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, 16, 31, 33, 64} {
		_, err := cryptox.NewKeyWrapper(make([]byte, size))
		require.Error(t, err, "key size %d should be rejected", size)
	}
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	t.Parallel()
	wrapper := newTestWrapper(t)

	dataKey := make([]byte, 32)
	_, err := rand.Read(dataKey)
	require.NoError(t, err)

	ciphertext, nonce, err := wrapper.Wrap(dataKey)
	require.NoError(t, err)
	require.Len(t, nonce, cryptox.NonceSize)
	require.NotEqual(t, dataKey, ciphertext)

	got, err := wrapper.Unwrap(ciphertext, nonce)
	require.NoError(t, err)
	require.Equal(t, dataKey, got)
}

func TestWrapUsesFreshNonces(t *testing.T) {
	t.Parallel()
	wrapper := newTestWrapper(t)

	dataKey := []byte("0123456789abcdef0123456789abcdef")

	ct1, nonce1, err := wrapper.Wrap(dataKey)
	require.NoError(t, err)
	ct2, nonce2, err := wrapper.Wrap(dataKey)
	require.NoError(t, err)

	require.False(t, bytes.Equal(nonce1, nonce2), "two wraps must not share a nonce")
	require.False(t, bytes.Equal(ct1, ct2), "two wraps of the same key must differ")
}

func TestUnwrapFailsOnSingleBitFlip(t *testing.T) {
	t.Parallel()
	wrapper := newTestWrapper(t)

	dataKey := []byte("0123456789abcdef0123456789abcdef")
	ciphertext, nonce, err := wrapper.Wrap(dataKey)
	require.NoError(t, err)

	t.Run("ciphertext", func(t *testing.T) {
		for i := range ciphertext {
			corrupted := bytes.Clone(ciphertext)
			corrupted[i] ^= 0x01
			_, err := wrapper.Unwrap(corrupted, nonce)
			require.ErrorIs(t, err, cryptox.ErrCryptoFailure, "flipped bit at byte %d", i)
		}
	})

	t.Run("nonce", func(t *testing.T) {
		for i := range nonce {
			corrupted := bytes.Clone(nonce)
			corrupted[i] ^= 0x01
			_, err := wrapper.Unwrap(ciphertext, corrupted)
			require.ErrorIs(t, err, cryptox.ErrCryptoFailure, "flipped bit at byte %d", i)
		}
	})
}

func TestUnwrapFailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()
	wrapper := newTestWrapper(t)

	ciphertext, nonce, err := wrapper.Wrap([]byte("0123456789abcdef"))
	require.NoError(t, err)

	corrupt := bytes.Clone(ciphertext)
	corrupt[0] ^= 0xFF

	_, errCorrupt := wrapper.Unwrap(corrupt, nonce)
	_, errShort := wrapper.Unwrap(ciphertext[:4], nonce)
	_, errNonce := wrapper.Unwrap(ciphertext, nonce[:4])

	require.Equal(t, errCorrupt, errShort)
	require.Equal(t, errCorrupt, errNonce)
}

func TestUnwrapWithDifferentMasterKeyFails(t *testing.T) {
	t.Parallel()

	a := newTestWrapper(t)
	b := newTestWrapper(t)

	ciphertext, nonce, err := a.Wrap([]byte("0123456789abcdef"))
	require.NoError(t, err)

	_, err = b.Unwrap(ciphertext, nonce)
	require.ErrorIs(t, err, cryptox.ErrCryptoFailure)
}
