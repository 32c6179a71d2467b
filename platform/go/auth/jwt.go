package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionIssuer = "registration-portal"

// SessionClaims is the JWT payload minted at login.
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// IssueSessionToken mints an HMAC-signed session token for the account.
func IssueSessionToken(secret []byte, accountID uuid.UUID, email, role string, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret is required")
	}
	if accountID == uuid.Nil {
		return "", errors.New("account id is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	claims := SessionClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// SessionTokenVerifier returns a VerifyFunc that validates HMAC session tokens.
func SessionTokenVerifier(secret []byte) VerifyFunc {
	return func(_ context.Context, token string) (*Credentials, error) {
		parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
			}
			return secret, nil
		}, jwt.WithIssuer(sessionIssuer), jwt.WithExpirationRequired())
		if err != nil {
			return nil, err
		}

		claims, ok := parsed.Claims.(*SessionClaims)
		if !ok || !parsed.Valid {
			return nil, errors.New("invalid session claims")
		}

		accountID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return nil, fmt.Errorf("parse subject: %w", err)
		}

		return &Credentials{
			AccountID: accountID,
			Email:     claims.Email,
			Role:      claims.Role,
		}, nil
	}
}
