package tokenx_test

import (
	"testing"
	"time"

	"github.com/opencustody/strongroom/pkg/tokenx"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *tokenx.Codec {
	t.Helper()
	codec, err := tokenx.New([]byte("unit-test-signing-secret"), "strongroom-test")
	require.NoError(t, err)
	return codec
}

func TestNewRejectsEmptySecret(t *testing.T) {
	t.Parallel()

	_, err := tokenx.New(nil, "issuer")
	require.Error(t, err)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	t.Parallel()
	codec := newTestCodec(t)

	kinds := []tokenx.Kind{tokenx.KindVerification, tokenx.KindAccess, tokenx.KindRefresh}
	for _, kind := range kinds {
		raw, err := codec.Issue("user-123", kind, time.Minute)
		require.NoError(t, err)

		subject, err := codec.Verify(raw, kind)
		require.NoError(t, err)
		require.Equal(t, "user-123", subject)
	}
}

func TestVerifyRejectsEveryOtherKind(t *testing.T) {
	t.Parallel()
	codec := newTestCodec(t)

	kinds := []tokenx.Kind{tokenx.KindVerification, tokenx.KindAccess, tokenx.KindRefresh}
	for _, actual := range kinds {
		raw, err := codec.Issue("user-123", actual, time.Minute)
		require.NoError(t, err)

		for _, expected := range kinds {
			if expected == actual {
				continue
			}
			_, err := codec.Verify(raw, expected)
			require.ErrorIs(t, err, tokenx.ErrWrongKind,
				"a %s token must not satisfy a %s check", actual, expected)
		}
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()
	codec := newTestCodec(t)

	raw, err := codec.IssueAt("user-123", tokenx.KindAccess, time.Minute, time.Now().Add(-2*time.Minute))
	require.NoError(t, err)

	_, err = codec.Verify(raw, tokenx.KindAccess)
	require.ErrorIs(t, err, tokenx.ErrExpired)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	t.Parallel()
	codec := newTestCodec(t)

	raw, err := codec.Issue("user-123", tokenx.KindAccess, time.Minute)
	require.NoError(t, err)

	// Flip a character in the signature segment.
	tampered := raw[:len(raw)-1]
	if raw[len(raw)-1] == 'A' {
		tampered += "B"
	} else {
		tampered += "A"
	}

	_, err = codec.Verify(tampered, tokenx.KindAccess)
	require.Error(t, err)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	t.Parallel()
	codec := newTestCodec(t)

	other, err := tokenx.New([]byte("a-completely-different-secret"), "strongroom-test")
	require.NoError(t, err)

	raw, err := other.Issue("user-123", tokenx.KindAccess, time.Minute)
	require.NoError(t, err)

	_, err = codec.Verify(raw, tokenx.KindAccess)
	require.ErrorIs(t, err, tokenx.ErrBadSignature)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()
	codec := newTestCodec(t)

	for _, raw := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		_, err := codec.Verify(raw, tokenx.KindAccess)
		require.ErrorIs(t, err, tokenx.ErrMalformed)
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	minted, err := tokenx.New([]byte("unit-test-signing-secret"), "someone-else")
	require.NoError(t, err)
	raw, err := minted.Issue("user-123", tokenx.KindAccess, time.Minute)
	require.NoError(t, err)

	codec := newTestCodec(t)
	_, err = codec.Verify(raw, tokenx.KindAccess)
	require.ErrorIs(t, err, tokenx.ErrMalformed)
}
