package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repik/lavanderia/internal/auth"
	"github.com/repik/lavanderia/internal/domain"
)

func TestJWT_IssueAndValidateRoundTrip(t *testing.T) {
	t.Parallel()

	secret := "test-secret-key-very-long-and-secure"
	tenantID := uuid.New()
	userID := uuid.New()

	t.Run("access token round-trip", func(t *testing.T) {
		t.Parallel()

		token, err := auth.IssueAccessToken(secret, tenantID, userID, domain.RoleOwner, 5*time.Minute)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := auth.ValidateToken(secret, token)
		require.NoError(t, err)
		require.NotNil(t, claims)

		assert.Equal(t, tenantID.String(), claims.TenantID)
		assert.Equal(t, userID.String(), claims.UserID)
		assert.Equal(t, domain.RoleOwner, claims.Role)
		assert.Equal(t, auth.TokenTypeAccess, claims.TokenType)
		assert.Equal(t, "lavanderia", claims.Issuer)

		gotTenant, gotUser, err := claims.IDs()
		require.NoError(t, err)
		assert.Equal(t, tenantID, gotTenant)
		assert.Equal(t, userID, gotUser)
	})

	t.Run("refresh token round-trip", func(t *testing.T) {
		t.Parallel()

		token, err := auth.IssueRefreshToken(secret, tenantID, userID, domain.RoleEmployee, 24*time.Hour)
		require.NoError(t, err)

		claims, err := auth.ValidateToken(secret, token)
		require.NoError(t, err)

		assert.Equal(t, domain.RoleEmployee, claims.Role)
		assert.Equal(t, auth.TokenTypeRefresh, claims.TokenType)
	})
}

func TestJWT_ExpiredTokenRejected(t *testing.T) {
	t.Parallel()

	secret := "test-secret-key"

	token, err := auth.IssueAccessToken(secret, uuid.New(), uuid.New(), domain.RoleEmployee, -1*time.Second)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(secret, token)
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestJWT_InvalidSecretRejected(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken("correct-secret", uuid.New(), uuid.New(), domain.RoleOwner, 5*time.Minute)
	require.NoError(t, err)

	claims, err := auth.ValidateToken("wrong-secret", token)
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWT_ForeignIssuerRejected(t *testing.T) {
	t.Parallel()

	secret := "shared-secret"
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		TenantID:  uuid.NewString(),
		UserID:    uuid.NewString(),
		Role:      domain.RoleOwner,
		TokenType: auth.TokenTypeAccess,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = auth.ValidateToken(secret, token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWT_MalformedTokenRejected(t *testing.T) {
	t.Parallel()

	claims, err := auth.ValidateToken("secret", "not.a.valid.jwt.token")
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestClaims_IDsRejectsGarbage(t *testing.T) {
	t.Parallel()

	c := &auth.Claims{TenantID: "nope", UserID: uuid.NewString()}
	_, _, err := c.IDs()
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	c = &auth.Claims{TenantID: uuid.NewString(), UserID: ""}
	_, _, err = c.IDs()
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
