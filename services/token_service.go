package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenConfig carries everything the token service needs. It is built from
// configuration at startup; nothing here reads the environment.
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenPair holds the generated access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// RefreshID is the jti of RefreshToken, stored server side for revocation.
	RefreshID        string
	RefreshExpiresAt time.Time
}

// TokenClaims is the validated content of a token.
type TokenClaims struct {
	UserID  uint
	Email   string
	Type    string
	TokenID string
}

// TokenService is responsible for creating and validating JWTs.
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &TokenService{cfg: cfg, now: time.Now}, nil
}

// GenerateTokenPair creates a new access and refresh token pair.
func (s *TokenService) GenerateTokenPair(userID uint, email string) (*TokenPair, error) {
	now := s.now()
	accessToken, err := s.sign(userID, email, tokenTypeAccess, now, now.Add(s.cfg.AccessTTL), "")
	if err != nil {
		return nil, err
	}

	tokenID := uuid.NewString()
	refreshExp := now.Add(s.cfg.RefreshTTL)
	refreshToken, err := s.sign(userID, email, tokenTypeRefresh, now, refreshExp, tokenID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshID:        tokenID,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// ValidateToken parses a token and checks signature, expiry, issuer and type.
func (s *TokenService) ValidateToken(tokenStr, expectedType string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if s.cfg.Issuer != "" && !claims.VerifyIssuer(s.cfg.Issuer, true) {
		return nil, ErrInvalidToken
	}
	typ, _ := claims["typ"].(string)
	if expectedType != "" && typ != expectedType {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	jti, _ := claims["jti"].(string)
	if typ == tokenTypeRefresh && jti == "" {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{UserID: uint(id), Email: email, Type: typ, TokenID: jti}, nil
}

func (s *TokenService) sign(userID uint, email, tokenType string, issuedAt, expiresAt time.Time, tokenID string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(userID), 10),
		"email": email,
		"typ":   tokenType,
		"iat":   issuedAt.Unix(),
		"exp":   expiresAt.Unix(),
	}
	if s.cfg.Issuer != "" {
		claims["iss"] = s.cfg.Issuer
	}
	if tokenID != "" {
		claims["jti"] = tokenID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}
