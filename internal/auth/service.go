package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	customerrors "github.com/bavix/avwatch/internal/errors"
)

// DefaultTokenTTL is the lifetime of tokens issued without an explicit ttl.
const DefaultTokenTTL = 24 * time.Hour

const issuer = "avwatch"

// Service issues and validates HMAC signed bearer tokens.
type Service struct {
	secret []byte
	now    func() time.Time
}

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims

	Role string `json:"role"`
}

// NewService creates a token service for secret.
func NewService(secret string) (*Service, error) {
	if secret == "" {
		return nil, customerrors.ErrAuthSecretNotConfigured
	}

	return &Service{secret: []byte(secret), now: time.Now}, nil
}

// IssueToken signs a token for subject with role. A non-positive ttl selects
// DefaultTokenTTL.
func (s *Service) IssueToken(subject, role string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := s.now()

	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   subject,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", customerrors.ErrUnexpectedSigningMethod, token.Header["alg"])
		}

		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", customerrors.ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, customerrors.ErrInvalidToken
}
