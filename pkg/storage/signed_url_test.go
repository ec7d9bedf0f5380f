package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndVerify(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("sha3-abc")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsedExpiry, err := signer.Verify("sha3-abc", token)
	require.NoError(t, err)
	assert.True(t, expiresAt.Equal(parsedExpiry))

	_, err = signer.Verify("sha3-other", token)
	assert.ErrorIs(t, err, ErrTokenSignature)

	_, err = NewSignedURLSigner("other-secret", time.Hour).Verify("sha3-abc", token)
	assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestSignedURLSignerExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer := NewSignedURLSigner("secret", time.Minute)
	signer.now = func() time.Time { return now }

	token, _, err := signer.Generate("sha3-abc")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = signer.Verify("sha3-abc", token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestSignedURLSignerMalformed(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	for _, token := range []string{"", "abc", "123.", "notanumber.sig"} {
		_, err := signer.Verify("sha3-abc", token)
		assert.ErrorIs(t, err, ErrTokenMalformed, token)
	}

	_, _, err := NewSignedURLSigner("", time.Minute).Generate("sha3-abc")
	assert.Error(t, err)
}
