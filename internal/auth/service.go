package auth

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/golang-jwt/jwt/v5"

	errors "github.com/frahmantamala/chatmate/internal"
	"github.com/frahmantamala/chatmate/internal/core/clock"
	"github.com/frahmantamala/chatmate/internal/core/identity"
)

const DefaultLoginWindow = 5 * time.Minute

// Service is the main auth service with dependencies
type Service struct {
	tokenGenerator TokenGenerator
	clock          clock.Clock
	loginWindow    int64
	logger         *slog.Logger
}

// NewService creates a new auth service. Login signatures older or newer
// than loginWindow relative to clk are refused.
func NewService(tokenGen TokenGenerator, clk clock.Clock, loginWindow time.Duration, logger *slog.Logger) *Service {
	if loginWindow <= 0 {
		loginWindow = DefaultLoginWindow
	}
	return &Service{
		tokenGenerator: tokenGen,
		clock:          clk,
		loginWindow:    int64(loginWindow / time.Second),
		logger:         logger,
	}
}

// NewJWTTokenGenerator creates a new JWT token generator
func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 24 * 7 * time.Hour
	}
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

// Authenticate verifies a signed login message and returns tokens for its identity.
func (s *Service) Authenticate(dto LoginDTO) (AuthTokens, error) {
	if appErr := dto.Validate(); appErr != nil {
		return AuthTokens{}, appErr
	}

	id := identity.MustParse(dto.Identity)
	now := s.clock.Now()
	if dto.Timestamp < now-s.loginWindow || dto.Timestamp > now+s.loginWindow {
		s.logger.Info("login signature outside window", "identity", dto.Identity, "timestamp", dto.Timestamp, "now", now)
		return AuthTokens{}, errors.ErrSignatureExpired
	}

	if !VerifyLogin(id, dto.Timestamp, base58.Decode(dto.Signature)) {
		s.logger.Info("login signature rejected", "identity", dto.Identity)
		return AuthTokens{}, errors.ErrInvalidCredentials
	}

	return s.issue(id)
}

// RefreshTokens validates refresh token and returns new tokens
func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return AuthTokens{}, err
	}
	id, err := claims.Identity()
	if err != nil {
		return AuthTokens{}, errors.ErrInvalidToken
	}
	return s.issue(id)
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString, TokenTypeAccess)
}

func (s *Service) issue(id identity.ID) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(id)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to issue access token", err)
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(id)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to issue refresh token", err)
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Identity:     id.String(),
	}, nil
}

func (j *JWTTokenGenerator) generate(subject identity.ID, tokenType TokenType, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   subject.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// GenerateAccessToken creates a new access token
func (j *JWTTokenGenerator) GenerateAccessToken(subject identity.ID) (string, error) {
	return j.generate(subject, TokenTypeAccess, j.AccessTokenSecret, j.AccessTokenTTL)
}

// GenerateRefreshToken creates a new refresh token
func (j *JWTTokenGenerator) GenerateRefreshToken(subject identity.ID) (string, error) {
	return j.generate(subject, TokenTypeRefresh, j.RefreshTokenSecret, j.RefreshTokenTTL)
}

// ValidateToken validates a JWT token of the wanted type and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString string, want TokenType) (*Claims, error) {
	secret := j.AccessTokenSecret
	if want == TokenTypeRefresh {
		secret = j.RefreshTokenSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type != want {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}
