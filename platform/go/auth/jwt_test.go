package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	t.Parallel()

	secret := []byte("test-secret")
	accountID := uuid.New()

	token, err := IssueSessionToken(secret, accountID, "ada@example.com", "client_applicant", time.Hour, time.Now().UTC())
	require.NoError(t, err)

	creds, err := SessionTokenVerifier(secret)(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, accountID, creds.AccountID)
	require.Equal(t, "ada@example.com", creds.Email)
	require.Equal(t, "client_applicant", creds.Role)
	require.False(t, creds.IsAdmin())
}

func TestSessionTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := IssueSessionToken([]byte("secret-a"), uuid.New(), "x@example.com", "admin", time.Hour, time.Now().UTC())
	require.NoError(t, err)

	_, err = SessionTokenVerifier([]byte("secret-b"))(context.Background(), token)
	require.Error(t, err)
}

func TestSessionTokenRejectsExpired(t *testing.T) {
	t.Parallel()

	issuedAt := time.Now().UTC().Add(-2 * time.Hour)
	token, err := IssueSessionToken([]byte("secret"), uuid.New(), "x@example.com", "admin", time.Hour, issuedAt)
	require.NoError(t, err)

	_, err = SessionTokenVerifier([]byte("secret"))(context.Background(), token)
	require.Error(t, err)
}

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple", 4)
	require.NoError(t, err)
	require.True(t, VerifyPassword(hash, "correct horse battery staple"))
	require.False(t, VerifyPassword(hash, "wrong"))
}
