package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenPair holds the generated access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// IssuedTokens is a TokenPair plus what the caller needs to persist the refresh token.
type IssuedTokens struct {
	TokenPair
	RefreshTokenID   string
	RefreshExpiresAt time.Time
}

// TokenService creates and validates HS256 JWTs.
type TokenService struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenService{
		secretKey:  []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// GenerateTokenPair creates a new access and refresh token pair. Only the refresh
// token carries a jti.
func (s *TokenService) GenerateTokenPair(userID, email, role string) (*IssuedTokens, error) {
	accessToken, err := s.generateToken(userID, email, role, TokenTypeAccess, s.accessTTL, "")
	if err != nil {
		return nil, err
	}

	tokenID := uuid.NewString()
	refreshToken, err := s.generateToken(userID, email, role, TokenTypeRefresh, s.refreshTTL, tokenID)
	if err != nil {
		return nil, err
	}

	return &IssuedTokens{
		TokenPair: TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		},
		RefreshTokenID:   tokenID,
		RefreshExpiresAt: s.now().Add(s.refreshTTL),
	}, nil
}

// ValidateToken parses a token and checks its signature, expiry and, when
// expectedType is set, its typ claim.
func (s *TokenService) ValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if expectedType != "" {
		if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
			return nil, fmt.Errorf("invalid token type")
		}
	}
	return claims, nil
}

func (s *TokenService) generateToken(userID, email, role, tokenType string, ttl time.Duration, tokenID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  role,
		"typ":   tokenType,
		"exp":   now.Add(ttl).Unix(),
		"iat":   now.Unix(),
	}
	if tokenID != "" {
		claims["jti"] = tokenID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}
