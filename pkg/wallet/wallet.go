package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrInvalidAddress is returned for strings that are not 20-byte hex addresses.
	ErrInvalidAddress = errors.New("invalid wallet address")
	// ErrInvalidSignature is returned for malformed or non-recoverable signatures.
	ErrInvalidSignature = errors.New("invalid wallet signature")
)

// Normalize validates a hex address and returns its checksummed form.
func Normalize(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", ErrInvalidAddress
	}
	addr := common.HexToAddress(address)
	if addr == (common.Address{}) {
		return "", ErrInvalidAddress
	}
	return addr.Hex(), nil
}

// Equal compares two addresses ignoring checksum casing.
func Equal(a, b string) bool {
	if !common.IsHexAddress(a) || !common.IsHexAddress(b) {
		return false
	}
	return common.HexToAddress(a) == common.HexToAddress(b)
}

// RecoverPersonalSign returns the checksummed address that produced an EIP-191 personal_sign signature over message.
func RecoverPersonalSign(message string, signatureHex string) (string, error) {
	sig, err := hexutil.Decode(strings.TrimSpace(signatureHex))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(sig))
	}

	// wallets emit v as 27/28
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return "", fmt.Errorf("%w: bad recovery id", ErrInvalidSignature)
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// VerifyPersonalSign reports whether signatureHex over message was produced by address.
func VerifyPersonalSign(address, message, signatureHex string) (bool, error) {
	signer, err := RecoverPersonalSign(message, signatureHex)
	if err != nil {
		return false, err
	}
	return Equal(signer, address), nil
}
