package jwt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const secret = "test_secret"

func TestIssueParseRoundTrip(t *testing.T) {
	token, err := Issue(secret, Claims{UserID: 42, Email: "pat@example.com", Role: "PATRON"}, 1)
	require.NoError(t, err)

	claims, err := ParseAuth("Bearer "+token, secret)
	require.NoError(t, err)
	require.EqualValues(t, 42, claims.UserID)
	require.Equal(t, "pat@example.com", claims.Email)
	require.Equal(t, "PATRON", claims.Role)
}

func TestParseAuth_BareToken(t *testing.T) {
	token, err := Issue(secret, Claims{UserID: 1, Email: "a@b.c", Role: "ADMIN"}, 1)
	require.NoError(t, err)

	claims, err := ParseAuth(token, secret)
	require.NoError(t, err)
	require.Equal(t, "ADMIN", claims.Role)
}

func TestParseAuth_WrongSecret(t *testing.T) {
	token, err := Issue(secret, Claims{UserID: 1, Email: "a@b.c", Role: "ADMIN"}, 1)
	require.NoError(t, err)

	_, err = ParseAuth("Bearer "+token, "other_secret")
	require.Error(t, err)
}

func TestParseAuth_Missing(t *testing.T) {
	_, err := ParseAuth("", secret)
	require.Error(t, err)
}
