package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sciencegate/registration-portal/platform/go/orcid"
	"github.com/sciencegate/registration-portal/platform/go/prefill"
)

type mockProvider struct {
	authorizeURLFn func() string
	exchangeFn     func(ctx context.Context, code string) (*orcid.Token, error)
	fetchPersonFn  func(ctx context.Context, orcidID string) (orcid.Profile, error)
}

func (m *mockProvider) AuthorizeURL() string {
	if m.authorizeURLFn == nil {
		panic("authorizeURLFn not configured")
	}
	return m.authorizeURLFn()
}

func (m *mockProvider) ExchangeCode(ctx context.Context, code string) (*orcid.Token, error) {
	if m.exchangeFn == nil {
		panic("exchangeFn not configured")
	}
	return m.exchangeFn(ctx, code)
}

func (m *mockProvider) FetchPerson(ctx context.Context, orcidID string) (orcid.Profile, error) {
	if m.fetchPersonFn == nil {
		panic("fetchPersonFn not configured")
	}
	return m.fetchPersonFn(ctx, orcidID)
}

func TestAuthorizeURL(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{authorizeURLFn: func() string {
		return "https://orcid.org/oauth/authorize?client_id=app"
	}}

	h := New(provider, prefill.NewMemoryCache(time.Minute), zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/orcid/url", nil)
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp authorizeURLResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.URL, "oauth/authorize")
}

func TestCallbackStoresPrefill(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{}
	provider.exchangeFn = func(ctx context.Context, code string) (*orcid.Token, error) {
		require.Equal(t, "one-time-code", code)
		return &orcid.Token{ORCID: "0000-0002-1825-0097", AccessToken: "token"}, nil
	}
	provider.fetchPersonFn = func(ctx context.Context, orcidID string) (orcid.Profile, error) {
		require.Equal(t, "0000-0002-1825-0097", orcidID)
		return orcid.Profile{ORCID: orcidID, Name: "Josiah Carberry", Email: "jc@example.com"}, nil
	}

	cache := prefill.NewMemoryCache(time.Minute)
	h := New(provider, cache, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/orcid/callback?code=one-time-code", nil)
	req.Header.Set(SessionHeader, "sess-1")
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	stored, found, err := cache.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Josiah Carberry", stored.Name)
}

func TestCallbackMissingSession(t *testing.T) {
	t.Parallel()

	h := New(&mockProvider{}, prefill.NewMemoryCache(time.Minute), zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/orcid/callback?code=one-time-code", nil)
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackProviderFailure(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{}
	provider.exchangeFn = func(ctx context.Context, code string) (*orcid.Token, error) {
		return nil, orcid.ErrAuthorizationFailed
	}

	h := New(provider, prefill.NewMemoryCache(time.Minute), zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/orcid/callback?code=bad", nil)
	req.Header.Set(SessionHeader, "sess-1")
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPrefillRoundTrip(t *testing.T) {
	t.Parallel()

	cache := prefill.NewMemoryCache(time.Minute)
	require.NoError(t, cache.Put(context.Background(), "sess-1", prefill.Identity{
		ORCID: "0000-0002-1825-0097",
		Name:  "Josiah Carberry",
	}))

	h := New(&mockProvider{}, cache, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/prefill", nil)
	req.Header.Set(SessionHeader, "sess-1")
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp identityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Josiah Carberry", resp.Name)

	del := httptest.NewRequest(http.MethodDelete, "/prefill", nil)
	del.Header.Set(SessionHeader, "sess-1")
	rec = httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, del)
	require.Equal(t, http.StatusNoContent, rec.Code)

	miss := httptest.NewRequest(http.MethodGet, "/prefill", nil)
	miss.Header.Set(SessionHeader, "sess-1")
	rec = httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, miss)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
