package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sciencegate/registration-portal/domains/registrations/be/service"
	"github.com/sciencegate/registration-portal/platform/go/actor"
)

type mockService struct {
	registerFn       func(ctx context.Context, input service.RegisterInput) (service.Registration, error)
	getFn            func(ctx context.Context, who actor.Actor, id uuid.UUID) (service.Registration, error)
	listFn           func(ctx context.Context, who actor.Actor, opts service.ListOptions) (service.ListResult, error)
	transitionFn     func(ctx context.Context, who actor.Actor, id uuid.UUID, action string) (service.Registration, error)
	updateCommentsFn func(ctx context.Context, who actor.Actor, id uuid.UUID, comments service.Comments) (service.Registration, error)
	submitEditsFn    func(ctx context.Context, who actor.Actor, id uuid.UUID, fields service.Fields) (service.Registration, error)
}

func (m *mockService) Register(ctx context.Context, input service.RegisterInput) (service.Registration, error) {
	if m.registerFn == nil {
		panic("registerFn not configured")
	}
	return m.registerFn(ctx, input)
}

func (m *mockService) Get(ctx context.Context, who actor.Actor, id uuid.UUID) (service.Registration, error) {
	if m.getFn == nil {
		panic("getFn not configured")
	}
	return m.getFn(ctx, who, id)
}

func (m *mockService) List(ctx context.Context, who actor.Actor, opts service.ListOptions) (service.ListResult, error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx, who, opts)
}

func (m *mockService) Transition(ctx context.Context, who actor.Actor, id uuid.UUID, action string) (service.Registration, error) {
	if m.transitionFn == nil {
		panic("transitionFn not configured")
	}
	return m.transitionFn(ctx, who, id, action)
}

func (m *mockService) UpdateComments(ctx context.Context, who actor.Actor, id uuid.UUID, comments service.Comments) (service.Registration, error) {
	if m.updateCommentsFn == nil {
		panic("updateCommentsFn not configured")
	}
	return m.updateCommentsFn(ctx, who, id, comments)
}

func (m *mockService) SubmitEdits(ctx context.Context, who actor.Actor, id uuid.UUID, fields service.Fields) (service.Registration, error) {
	if m.submitEditsFn == nil {
		panic("submitEditsFn not configured")
	}
	return m.submitEditsFn(ctx, who, id, fields)
}

func sampleRegistration(id uuid.UUID) service.Registration {
	now := time.Now().UTC()
	return service.Registration{
		AccountID: id,
		Email:     "ada@example.com",
		Category:  service.CategoryVisitor,
		State:     service.StateInitial,
		Fields: service.Fields{
			Name:        "Ada Lovelace",
			PhoneNumber: "+44 20 7946 0000",
			IdentityID:  "0000-0002-1825-0097",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Mount("/api/v1/auth", h.PublicRoutes())
	r.Mount("/api/v1/profile", h.ProfileRoutes())
	r.Mount("/api/v1/admin/registrations", h.AdminRoutes())
	return r
}

func withActor(req *http.Request, who actor.Actor) *http.Request {
	return req.WithContext(actor.IntoContext(req.Context(), who))
}

func TestRegisterSuccess(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	id := uuid.New()

	svc.registerFn = func(ctx context.Context, input service.RegisterInput) (service.Registration, error) {
		require.Equal(t, "ada@example.com", input.Email)
		require.Equal(t, service.CategoryVisitor, input.Category)
		require.Equal(t, "sess-1", input.SessionID)
		return sampleRegistration(id), nil
	}

	h := New(svc, zaptest.NewLogger(t))

	payload := `{"email":"ada@example.com","password":"correct horse","category":"visitor","name":"Ada Lovelace","phoneNumber":"+44 20 7946 0000"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(payload))
	req.Header.Set(SessionHeader, "sess-1")
	rec := httptest.NewRecorder()

	testRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "/api/v1/admin/registrations/"+id.String(), rec.Header().Get("Location"))

	var resp registrationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "initial", resp.State)
	require.Equal(t, "ada@example.com", resp.Email)
}

func TestRegisterValidationProblem(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	svc.registerFn = func(ctx context.Context, input service.RegisterInput) (service.Registration, error) {
		return service.Registration{}, &service.ValidationError{Fields: service.FieldErrors{
			"name": {"name is required"},
		}}
	}

	h := New(svc, zaptest.NewLogger(t))

	payload := `{"email":"ada@example.com","password":"correct horse","category":"visitor"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	testRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem problemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Contains(t, problem.Errors, "name")
}

func TestRegisterMalformedBody(t *testing.T) {
	t.Parallel()

	h := New(&mockService{}, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader("{"))
	rec := httptest.NewRecorder()

	testRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileUsesActorIdentity(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &mockService{}
	svc.getFn = func(ctx context.Context, who actor.Actor, got uuid.UUID) (service.Registration, error) {
		require.Equal(t, id, got)
		return sampleRegistration(id), nil
	}

	h := New(svc, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile/", nil)
	req = withActor(req, actor.Actor{Kind: actor.KindApplicant, AccountID: id})
	rec := httptest.NewRecorder()

	testRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateProfilePermissionDeniedProblem(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &mockService{}
	svc.submitEditsFn = func(ctx context.Context, who actor.Actor, got uuid.UUID, fields service.Fields) (service.Registration, error) {
		return service.Registration{}, &service.PermissionDeniedError{
			Message:  "registration is not editable in state initial",
			Redirect: "/registration",
		}
	}

	h := New(svc, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile/", strings.NewReader(`{"name":"Ada"}`))
	req = withActor(req, actor.Actor{Kind: actor.KindApplicant, AccountID: id})
	rec := httptest.NewRecorder()

	testRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)

	var problem problemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "/registration", problem.Redirect)
}

func TestListPassesFilters(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	svc.listFn = func(ctx context.Context, who actor.Actor, opts service.ListOptions) (service.ListResult, error) {
		require.NotNil(t, opts.State)
		require.Equal(t, "waiting_for_approval", *opts.State)
		require.Equal(t, 2, opts.Page)
		require.Equal(t, 10, opts.PageSize)
		return service.ListResult{
			Registrations: []service.Registration{sampleRegistration(uuid.New())},
			Page:          2,
			PageSize:      10,
			TotalItems:    11,
			TotalPages:    2,
		}, nil
	}

	h := New(svc, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/registrations/?state=waiting_for_approval&page=2&pageSize=10", nil)
	req = withActor(req, actor.Actor{Kind: actor.KindAdmin, AccountID: uuid.New()})
	rec := httptest.NewRecorder()

	testRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.Equal(t, 11, resp.TotalItems)
}

func TestTransitionInvalidStateProblem(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &mockService{}
	svc.transitionFn = func(ctx context.Context, who actor.Actor, got uuid.UUID, action string) (service.Registration, error) {
		require.Equal(t, "approve", action)
		return service.Registration{}, &service.InvalidTransitionError{From: service.StateApproved, Action: action}
	}

	h := New(svc, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/registrations/"+id.String()+"/transition", strings.NewReader(`{"action":"approve"}`))
	req = withActor(req, actor.Actor{Kind: actor.KindAdmin, AccountID: uuid.New()})
	rec := httptest.NewRecorder()

	testRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestTransitionMalformedActionProblem(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &mockService{}
	svc.transitionFn = func(ctx context.Context, who actor.Actor, got uuid.UUID, action string) (service.Registration, error) {
		return service.Registration{}, &service.MalformedActionError{Action: action}
	}

	h := New(svc, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/registrations/"+id.String()+"/transition", strings.NewReader(`{"action":"escalate"}`))
	req = withActor(req, actor.Actor{Kind: actor.KindAdmin, AccountID: uuid.New()})
	rec := httptest.NewRecorder()

	testRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransitionBadPathID(t *testing.T) {
	t.Parallel()

	h := New(&mockService{}, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/registrations/not-a-uuid/transition", strings.NewReader(`{"action":"approve"}`))
	req = withActor(req, actor.Actor{Kind: actor.KindAdmin, AccountID: uuid.New()})
	rec := httptest.NewRecorder()

	testRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCommentsSuccess(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &mockService{}
	svc.updateCommentsFn = func(ctx context.Context, who actor.Actor, got uuid.UUID, comments service.Comments) (service.Registration, error) {
		require.Equal(t, id, got)
		require.Equal(t, "please use your legal name", comments.NameComment)
		record := sampleRegistration(id)
		record.Comments.NameComment = comments.NameComment
		return record, nil
	}

	h := New(svc, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/registrations/"+id.String()+"/comments", strings.NewReader(`{"nameComment":"please use your legal name"}`))
	req = withActor(req, actor.Actor{Kind: actor.KindAdmin, AccountID: uuid.New()})
	rec := httptest.NewRecorder()

	testRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp registrationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "please use your legal name", resp.Comments.NameComment)
}

func TestGetNotFoundProblem(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &mockService{}
	svc.getFn = func(ctx context.Context, who actor.Actor, got uuid.UUID) (service.Registration, error) {
		return service.Registration{}, service.ErrNotFound
	}

	h := New(svc, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/registrations/"+id.String(), nil)
	req = withActor(req, actor.Actor{Kind: actor.KindAdmin, AccountID: uuid.New()})
	rec := httptest.NewRecorder()

	testRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
