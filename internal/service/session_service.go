package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/wallet"
)

type identityReader interface {
	Get(ctx context.Context, address string) (*models.Identity, error)
	Owner(ctx context.Context) (*models.Ownership, error)
}

type nonceStore interface {
	Put(ctx context.Context, address, message string, ttl time.Duration) error
	Consume(ctx context.Context, address string) (string, bool, error)
}

type keyValueCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// SessionConfig defines wallet session behaviour.
type SessionConfig struct {
	Secret        string
	Expiration    time.Duration
	Issuer        string
	ChainID       int64
	NetworkName   string
	NonceTTL      time.Duration
	CapabilityTTL time.Duration
}

// SessionService is the wallet session provider: sign-in challenges, session tokens and the
// per-address capability snapshot shared by every gated action.
type SessionService struct {
	identities identityReader
	nonces     nonceStore
	cache      keyValueCache
	audit      auditLogger
	validator  *validator.Validate
	logger     *zap.Logger
	config     SessionConfig
	now        func() time.Time
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(identities identityReader, nonces nonceStore, cache keyValueCache, audit auditLogger, validate *validator.Validate, logger *zap.Logger, config SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Expiration <= 0 {
		config.Expiration = 12 * time.Hour
	}
	if config.NonceTTL <= 0 {
		config.NonceTTL = 5 * time.Minute
	}
	if config.CapabilityTTL <= 0 {
		config.CapabilityTTL = 10 * time.Minute
	}
	return &SessionService{
		identities: identities,
		nonces:     nonces,
		cache:      cache,
		audit:      audit,
		validator:  validate,
		logger:     logger,
		config:     config,
		now:        time.Now,
	}
}

// Challenge issues a single-use sign-in message for the wallet.
func (s *SessionService) Challenge(ctx context.Context, req models.ChallengeRequest) (*models.Challenge, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	address, err := wallet.Normalize(req.Address)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid wallet address")
	}
	if err := s.checkChain(req.ChainID); err != nil {
		return nil, err
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate nonce")
	}
	nonce := hex.EncodeToString(buf)
	issuedAt := s.now().UTC()
	message := fmt.Sprintf("Sign in to the scholarship portal\n\nAddress: %s\nChain ID: %d\nNonce: %s\nIssued At: %s",
		address, s.config.ChainID, nonce, issuedAt.Format(time.RFC3339))

	if err := s.nonces.Put(ctx, address, message, s.config.NonceTTL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamDown.Code, appErrors.ErrUpstreamDown.Status, "failed to store sign-in challenge")
	}
	return &models.Challenge{Address: address, Nonce: nonce, Message: message, ExpiresAt: issuedAt.Add(s.config.NonceTTL)}, nil
}

// Login verifies the signed challenge and returns a session token with the capability computed once.
func (s *SessionService) Login(ctx context.Context, req models.LoginRequest, ip, userAgent string) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	address, err := wallet.Normalize(req.Address)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid wallet address")
	}
	if err := s.checkChain(req.ChainID); err != nil {
		return nil, err
	}

	message, ok, err := s.nonces.Consume(ctx, address)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamDown.Code, appErrors.ErrUpstreamDown.Status, "failed to read sign-in challenge")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "sign-in challenge expired or not requested")
	}
	valid, err := wallet.VerifyPersonalSign(address, message, req.Signature)
	if err != nil || !valid {
		return nil, appErrors.Clone(appErrors.ErrInvalidSignature, "")
	}

	capability, err := s.Refresh(ctx, address)
	if err != nil {
		return nil, err
	}

	issuedAt := s.now().UTC()
	token, expiresAt, err := s.issueToken(address, issuedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session")
	}

	s.emitAudit(ctx, &models.AuditLog{
		ActorAddress: &address,
		Action:       models.AuditActionLogin,
		Resource:     "session",
		ResourceID:   &address,
		IPAddress:    ip,
		UserAgent:    userAgent,
	})

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(expiresAt.Sub(issuedAt).Seconds()),
		Capability:  capability,
		IssuedAt:    issuedAt,
	}, nil
}

// ValidateToken parses a session token and checks it belongs to the configured network.
func (s *SessionService) ValidateToken(tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid session token")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session claims")
	}
	if err := s.checkChain(claims.ChainID); err != nil {
		return nil, err
	}
	return claims, nil
}

// Capability returns the cached capability of address, recomputing it on a miss.
func (s *SessionService) Capability(ctx context.Context, address string) (models.Capability, error) {
	var cached models.Capability
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, capabilityKey(address), &cached)
		if err == nil && hit {
			return cached, nil
		}
	}
	return s.Refresh(ctx, address)
}

// Refresh recomputes the capability of address from the identity records and caches it.
func (s *SessionService) Refresh(ctx context.Context, address string) (models.Capability, error) {
	capability := models.Capability{Address: address, Role: models.RoleNone}

	identity, err := s.identities.Get(ctx, address)
	switch {
	case err == nil:
		capability.Role = identity.Role
		capability.IsActive = identity.IsActive
	case errors.Is(err, sql.ErrNoRows):
	default:
		return models.Capability{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}

	owner, err := s.identities.Owner(ctx)
	switch {
	case err == nil:
		capability.IsOwner = wallet.Equal(owner.OwnerAddress, address)
	case errors.Is(err, sql.ErrNoRows):
	default:
		return models.Capability{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load owner")
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, capabilityKey(address), capability, s.config.CapabilityTTL)
	}
	return capability, nil
}

// Invalidate evicts the cached capability of the given addresses.
func (s *SessionService) Invalidate(ctx context.Context, addresses ...string) {
	if s.cache == nil || len(addresses) == 0 {
		return
	}
	keys := make([]string, 0, len(addresses))
	for _, address := range addresses {
		keys = append(keys, capabilityKey(address))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("failed to evict capability", zap.Strings("addresses", addresses), zap.Error(err))
	}
}

// Logout drops the cached capability; the token itself is discarded client side.
func (s *SessionService) Logout(ctx context.Context, address, ip, userAgent string) error {
	s.Invalidate(ctx, address)
	s.emitAudit(ctx, &models.AuditLog{
		ActorAddress: &address,
		Action:       models.AuditActionLogout,
		Resource:     "session",
		ResourceID:   &address,
		IPAddress:    ip,
		UserAgent:    userAgent,
	})
	return nil
}

func (s *SessionService) checkChain(chainID int64) error {
	if s.config.ChainID != 0 && chainID != s.config.ChainID {
		msg := fmt.Sprintf("wallet is on chain %d, expected %d", chainID, s.config.ChainID)
		if s.config.NetworkName != "" {
			msg = fmt.Sprintf("%s (%s)", msg, s.config.NetworkName)
		}
		return appErrors.Clone(appErrors.ErrWrongNetwork, msg)
	}
	return nil
}

func (s *SessionService) issueToken(address string, issuedAt time.Time) (string, time.Time, error) {
	expiresAt := issuedAt.Add(s.config.Expiration)
	claims := &models.SessionClaims{
		Address: address,
		ChainID: s.config.ChainID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   address,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *SessionService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func capabilityKey(address string) string {
	return "capability:" + strings.ToLower(address)
}
