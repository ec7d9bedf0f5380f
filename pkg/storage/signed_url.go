package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenMalformed = errors.New("malformed download token")
	ErrTokenSignature = errors.New("download token signature mismatch")
	ErrTokenExpired   = errors.New("download token expired")
)

// SignedURLSigner issues short-lived download tokens for locally stored documents.
// A token is "<unix expiry>.<base64url HMAC-SHA256(contentID|expiry)>".
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer. A non-positive ttl defaults to 30 minutes.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token bound to contentID and its expiry.
func (s *SignedURLSigner) Generate(contentID string) (string, time.Time, error) {
	if contentID == "" {
		return "", time.Time{}, errors.New("content id required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	expiry := strconv.FormatInt(expiresAt.Unix(), 10)
	return expiry + "." + s.sign(contentID, expiry), expiresAt, nil
}

// Verify checks token against contentID and returns its expiry.
func (s *SignedURLSigner) Verify(contentID, token string) (time.Time, error) {
	expiry, signature, ok := strings.Cut(token, ".")
	if !ok || signature == "" {
		return time.Time{}, ErrTokenMalformed
	}
	unix, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return time.Time{}, ErrTokenMalformed
	}
	if !hmac.Equal([]byte(s.sign(contentID, expiry)), []byte(signature)) {
		return time.Time{}, ErrTokenSignature
	}
	expiresAt := time.Unix(unix, 0)
	if s.now().After(expiresAt) {
		return time.Time{}, ErrTokenExpired
	}
	return expiresAt, nil
}

func (s *SignedURLSigner) sign(contentID, expiry string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(contentID))
	mac.Write([]byte{'|'})
	mac.Write([]byte(expiry))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
