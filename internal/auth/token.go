// Package auth issues and validates the access and refresh JWTs.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Type distinguishes access from refresh tokens.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

const issuerName = "uniprep"

// ErrInvalidToken is returned for any token that fails validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims carried by both token kinds.
type Claims struct {
	jwt.RegisteredClaims
	Type Type `json:"typ"`
}

// Config holds the signing secrets and lifetimes.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Pair is an issued access and refresh token.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Issuer signs and validates tokens with HS256.
type Issuer struct {
	cfg Config
	now func() time.Time
}

// NewIssuer creates an Issuer. Both secrets are required.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("jwt access and refresh secrets are required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Issuer{cfg: cfg, now: time.Now}, nil
}

// Issue creates a new token pair for userID.
func (i *Issuer) Issue(userID string) (Pair, error) {
	access, err := i.sign(userID, TypeAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.sign(userID, TypeRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (i *Issuer) sign(userID string, typ Type) (string, error) {
	secret, ttl := i.keyFor(typ)
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    issuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type: typ,
	}
	tk, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return tk, nil
}

// ParseAccess validates an access token and returns its user ID.
func (i *Issuer) ParseAccess(raw string) (string, error) {
	return i.parse(raw, TypeAccess)
}

// ParseRefresh validates a refresh token and returns its user ID.
func (i *Issuer) ParseRefresh(raw string) (string, error) {
	return i.parse(raw, TypeRefresh)
}

func (i *Issuer) parse(raw string, typ Type) (string, error) {
	secret, _ := i.keyFor(typ)
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Type != typ || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (i *Issuer) keyFor(typ Type) (string, time.Duration) {
	if typ == TypeRefresh {
		return i.cfg.RefreshSecret, i.cfg.RefreshTTL
	}
	return i.cfg.AccessSecret, i.cfg.AccessTTL
}
