package auth

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/chatmate/internal/core/identity"
)

// LoginMessage is the exact text a wallet signs to log in as id at unix time ts.
func LoginMessage(id identity.ID, ts int64) []byte {
	return []byte(fmt.Sprintf("chatmate login %s %d", id.String(), ts))
}

// SignLogin produces the login signature for the key's public identity.
func SignLogin(key ed25519.PrivateKey, ts int64) (identity.ID, []byte, error) {
	id, err := identity.FromBytes(key.Public().(ed25519.PublicKey))
	if err != nil {
		return identity.Zero, nil, err
	}
	return id, ed25519.Sign(key, LoginMessage(id, ts)), nil
}

// VerifyLogin checks sig against the identity interpreted as an ed25519 public key.
func VerifyLogin(id identity.ID, ts int64, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(id.Bytes()), LoginMessage(id, ts), sig)
}

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenGenerator creates tokens and expiration times.
type TokenGenerator interface {
	GenerateAccessToken(subject identity.ID) (token string, err error)
	GenerateRefreshToken(subject identity.ID) (token string, err error)
	ValidateToken(tokenString string, want TokenType) (*Claims, error)
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Identity     string `json:"identity"`
}

// Claims represents JWT token claims
type Claims struct {
	Type TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() (identity.ID, error) {
	return identity.Parse(c.Subject)
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}
