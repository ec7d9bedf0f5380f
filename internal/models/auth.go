package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ChallengeRequest asks for a sign-in nonce for a wallet address.
type ChallengeRequest struct {
	Address string `json:"address" validate:"required"`
	ChainID int64  `json:"chainId" validate:"required"`
}

// Challenge is the message the wallet must personal_sign.
type Challenge struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoginRequest exchanges a signed challenge for a session token.
type LoginRequest struct {
	Address   string `json:"address" validate:"required"`
	Signature string `json:"signature" validate:"required"`
	ChainID   int64  `json:"chainId" validate:"required"`
}

// LoginResponse returns the issued session and the capability computed at connection time.
type LoginResponse struct {
	AccessToken string     `json:"accessToken"`
	ExpiresIn   int64      `json:"expiresIn"`
	Capability  Capability `json:"capability"`
	IssuedAt    time.Time  `json:"issuedAt"`
}

// SessionClaims represents the JWT payload of a wallet session.
type SessionClaims struct {
	Address string `json:"address"`
	ChainID int64  `json:"chainId"`
	jwt.RegisteredClaims
}
