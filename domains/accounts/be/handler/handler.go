package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sciencegate/registration-portal/domains/accounts/be/service"
	platformlogging "github.com/sciencegate/registration-portal/platform/go/logging"
)

const (
	problemTypeValidation   = "https://sciencegate.org/problems/validation-error"
	problemTypeUnauthorized = "https://sciencegate.org/problems/invalid-credentials"
	problemTypeInternal     = "https://sciencegate.org/problems/internal-error"
)

// Handler wires the accounts service to the HTTP surface.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("accounts service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes returns the authentication endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	return r
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	AccountID string    `json:"accountId"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, problemDetails{
			Type:   problemTypeValidation,
			Title:  "Invalid request body",
			Status: http.StatusBadRequest,
			Detail: "request body must be valid JSON",
		})
		return
	}

	session, err := h.svc.Login(r.Context(), service.LoginInput{
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		h.writeProblem(w, h.problemForError(r.Context(), err))
		return
	}

	h.writeJSON(w, http.StatusOK, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		AccountID: session.Account.ID.String(),
		Email:     session.Account.Email,
		Role:      session.Account.Role,
	})
}

type problemDetails struct {
	Type   string              `json:"type,omitempty"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

func (h *Handler) problemForError(ctx context.Context, err error) problemDetails {
	var problem problemDetails

	var validationErr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		problem = problemDetails{
			Type:   problemTypeUnauthorized,
			Title:  "Invalid credentials",
			Status: http.StatusUnauthorized,
			Detail: "email or password is incorrect",
		}
	case errors.As(err, &validationErr):
		problem = problemDetails{
			Type:   problemTypeValidation,
			Title:  "Validation failed",
			Status: http.StatusUnprocessableEntity,
			Detail: "one or more fields are invalid",
			Errors: validationErr.Fields,
		}
	default:
		problem = problemDetails{
			Type:   problemTypeInternal,
			Title:  "Internal server error",
			Status: http.StatusInternalServerError,
			Detail: "an unexpected error occurred",
		}
	}

	logger := h.loggerFrom(ctx)
	if problem.Status >= http.StatusInternalServerError {
		logger.Error("accounts operation failed", zap.Int("status", problem.Status), zap.Error(err))
	} else {
		logger.Warn("accounts request rejected", zap.Int("status", problem.Status), zap.Error(err))
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
