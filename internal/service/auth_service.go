package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

// AuthConfig defines token verification settings.
type AuthConfig struct {
	AccessTokenSecret string
	Issuer            string
}

// AuthService verifies HS256 bearer tokens issued by the identity provider. It also mints tokens for
// operator tooling.
type AuthService struct {
	logger *zap.Logger
	config AuthConfig
	now    func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{logger: logger, config: config, now: func() time.Time { return time.Now().UTC() }}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unknown role")
	}
	return claims, nil
}

// IssueToken signs a token for the given subject and role.
func (s *AuthService) IssueToken(userID, email string, role models.UserRole, ttl time.Duration) (string, error) {
	if !role.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role %q", role))
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	issuedAt := s.now()
	claims := &models.JWTClaims{
		UserID: userID,
		Role:   role,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", err
	}
	s.logger.Info("token issued", zap.String("user_id", userID), zap.String("role", string(role)))
	return signed, nil
}
