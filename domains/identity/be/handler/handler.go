package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformlogging "github.com/sciencegate/registration-portal/platform/go/logging"
	"github.com/sciencegate/registration-portal/platform/go/orcid"
	"github.com/sciencegate/registration-portal/platform/go/prefill"
)

const (
	problemTypeValidation = "https://sciencegate.org/problems/validation-error"
	problemTypeNotFound   = "https://sciencegate.org/problems/not-found"
	problemTypeProvider   = "https://sciencegate.org/problems/identity-provider-failure"
	problemTypeInternal   = "https://sciencegate.org/problems/internal-error"
)

// SessionHeader carries the anonymous browser session id the pre-fill entry
// is keyed by.
const SessionHeader = "X-Session-ID"

// Provider is the slice of the ORCID client the handler depends on.
type Provider interface {
	AuthorizeURL() string
	ExchangeCode(ctx context.Context, code string) (*orcid.Token, error)
	FetchPerson(ctx context.Context, orcidID string) (orcid.Profile, error)
}

// Handler wires the identity provider flow to the HTTP surface.
type Handler struct {
	provider Provider
	cache    prefill.Cache
	logger   *zap.Logger
}

// New constructs a Handler instance.
func New(provider Provider, cache prefill.Cache, logger *zap.Logger) *Handler {
	if provider == nil {
		panic("identity provider is required")
	}
	if cache == nil {
		panic("prefill cache is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{provider: provider, cache: cache, logger: logger}
}

// Routes returns the identity provider endpoints. They are reachable without
// authentication: the flow runs before the applicant has an account.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/orcid/url", h.AuthorizeURL)
	r.Get("/orcid/callback", h.Callback)
	r.Get("/prefill", h.Prefill)
	r.Delete("/prefill", h.ClearPrefill)
	return r
}

type authorizeURLResponse struct {
	URL string `json:"url"`
}

type identityResponse struct {
	ORCID string `json:"orcid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *Handler) AuthorizeURL(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, authorizeURLResponse{URL: h.provider.AuthorizeURL()})
}

func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		h.writeProblem(w, problemDetails{
			Type:   problemTypeValidation,
			Title:  "Missing authorization code",
			Status: http.StatusBadRequest,
			Detail: "code query parameter is required",
		})
		return
	}

	token, err := h.provider.ExchangeCode(r.Context(), code)
	if err != nil {
		h.writeProblem(w, h.problemForError(r.Context(), err))
		return
	}

	profile, err := h.provider.FetchPerson(r.Context(), token.ORCID)
	if err != nil {
		h.writeProblem(w, h.problemForError(r.Context(), err))
		return
	}

	identity := prefill.Identity{
		ORCID: profile.ORCID,
		Name:  profile.Name,
		Email: profile.Email,
	}
	if err := h.cache.Put(r.Context(), sessionID, identity); err != nil {
		h.writeProblem(w, h.problemForError(r.Context(), err))
		return
	}

	h.writeJSON(w, http.StatusOK, identityResponse(identity))
}

func (h *Handler) Prefill(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	identity, found, err := h.cache.Get(r.Context(), sessionID)
	if err != nil {
		h.writeProblem(w, h.problemForError(r.Context(), err))
		return
	}
	if !found {
		h.writeProblem(w, problemDetails{
			Type:   problemTypeNotFound,
			Title:  "No pre-fill data",
			Status: http.StatusNotFound,
			Detail: "no identity is stored for this session",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, identityResponse(identity))
}

func (h *Handler) ClearPrefill(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.cache.Clear(r.Context(), sessionID); err != nil {
		h.writeProblem(w, h.problemForError(r.Context(), err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
	if sessionID == "" {
		h.writeProblem(w, problemDetails{
			Type:   problemTypeValidation,
			Title:  "Missing session id",
			Status: http.StatusBadRequest,
			Detail: SessionHeader + " header is required",
		})
		return "", false
	}
	return sessionID, true
}

type problemDetails struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (h *Handler) problemForError(ctx context.Context, err error) problemDetails {
	var problem problemDetails

	if errors.Is(err, orcid.ErrAuthorizationFailed) {
		problem = problemDetails{
			Type:   problemTypeProvider,
			Title:  "Identity provider failure",
			Status: http.StatusBadGateway,
			Detail: "the identity provider rejected the request",
		}
	} else {
		problem = problemDetails{
			Type:   problemTypeInternal,
			Title:  "Internal server error",
			Status: http.StatusInternalServerError,
			Detail: "an unexpected error occurred",
		}
	}

	logger := h.loggerFrom(ctx)
	if problem.Status >= http.StatusInternalServerError && problem.Status != http.StatusBadGateway {
		logger.Error("identity operation failed", zap.Int("status", problem.Status), zap.Error(err))
	} else {
		logger.Warn("identity request rejected", zap.Int("status", problem.Status), zap.Error(err))
	}

	return problem
}

func (h *Handler) writeProblem(w http.ResponseWriter, problem problemDetails) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	if err := json.NewEncoder(w).Encode(problem); err != nil {
		h.logger.Error("encode problem response", zap.Error(err))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
