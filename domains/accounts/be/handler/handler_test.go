package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sciencegate/registration-portal/domains/accounts/be/service"
)

type mockService struct {
	loginFn       func(ctx context.Context, input service.LoginInput) (service.Session, error)
	createAdminFn func(ctx context.Context, input service.CreateAdminInput) (service.Account, error)
	setActiveFn   func(ctx context.Context, id uuid.UUID, active bool) (service.Account, error)
}

func (m *mockService) Login(ctx context.Context, input service.LoginInput) (service.Session, error) {
	if m.loginFn == nil {
		panic("loginFn not configured")
	}
	return m.loginFn(ctx, input)
}

func (m *mockService) CreateAdmin(ctx context.Context, input service.CreateAdminInput) (service.Account, error) {
	if m.createAdminFn == nil {
		panic("createAdminFn not configured")
	}
	return m.createAdminFn(ctx, input)
}

func (m *mockService) SetActive(ctx context.Context, id uuid.UUID, active bool) (service.Account, error) {
	if m.setActiveFn == nil {
		panic("setActiveFn not configured")
	}
	return m.setActiveFn(ctx, id, active)
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &mockService{}
	svc.loginFn = func(ctx context.Context, input service.LoginInput) (service.Session, error) {
		require.Equal(t, "admin@example.com", input.Email)
		return service.Session{
			Token:     "signed-token",
			ExpiresAt: time.Now().UTC().Add(time.Hour),
			Account: service.Account{
				ID:    id,
				Email: "admin@example.com",
				Role:  "admin",
			},
		}, nil
	}

	h := New(svc, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"admin@example.com","password":"correct horse"}`))
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "signed-token", resp.Token)
	require.Equal(t, id.String(), resp.AccountID)
	require.Equal(t, "admin", resp.Role)
}

func TestLoginInvalidCredentials(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	svc.loginFn = func(ctx context.Context, input service.LoginInput) (service.Session, error) {
		return service.Session{}, service.ErrInvalidCredentials
	}

	h := New(svc, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"admin@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestLoginMalformedBody(t *testing.T) {
	t.Parallel()

	h := New(&mockService{}, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
