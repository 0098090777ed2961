package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldset/cmms-api/internal/models"
	appErrors "github.com/fieldset/cmms-api/pkg/errors"
)

func signTestToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret"}, zap.NewNop())

	signed := signTestToken(t, "secret", &models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleSupervisor,
		Email:  "sup@plant.io",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, models.RoleSupervisor, claims.Role)
	require.True(t, claims.Role.CanGenerateReports())
}

func TestAuthServiceValidateTokenWrongSecret(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret"}, zap.NewNop())

	signed := signTestToken(t, "other", &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin})
	_, err := svc.ValidateToken(signed)
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceValidateTokenExpired(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret"}, zap.NewNop())

	signed := signTestToken(t, "secret", &models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	_, err := svc.ValidateToken(signed)
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceValidateTokenWrongAlgorithm(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret"}, zap.NewNop())

	token := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{UserID: "user-1"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestUserRoleCanGenerateReports(t *testing.T) {
	require.True(t, models.RoleAdmin.CanGenerateReports())
	require.True(t, models.RoleSiteManager.CanGenerateReports())
	require.True(t, models.RoleSupervisor.CanGenerateReports())
	require.False(t, models.RoleTechnician.CanGenerateReports())
	require.False(t, models.UserRole("GUEST").CanGenerateReports())
}
