package wallet

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	addr, err := Normalize("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	require.NoError(t, err)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", addr)

	_, err = Normalize("0x123")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = Normalize("0x0000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestEqualIgnoresCase(t *testing.T) {
	assert.True(t, Equal("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED"))
	assert.False(t, Equal("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", "not-an-address"))
}

func TestRecoverPersonalSign(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	expected := crypto.PubkeyToAddress(key.PublicKey).Hex()

	message := "Sign in to scholarship portal\nnonce: abc"
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	signer, err := RecoverPersonalSign(message, hexutil.Encode(sig))
	require.NoError(t, err)
	assert.Equal(t, expected, signer)

	ok, err := VerifyPersonalSign(strings.ToLower(expected), message, hexutil.Encode(sig))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPersonalSign(expected, message+"tampered", hexutil.Encode(sig))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecoverPersonalSignRejectsMalformed(t *testing.T) {
	_, err := RecoverPersonalSign("msg", "0x1234")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = RecoverPersonalSign("msg", "zz")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
