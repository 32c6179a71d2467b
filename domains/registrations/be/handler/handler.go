package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sciencegate/registration-portal/domains/registrations/be/service"
	"github.com/sciencegate/registration-portal/platform/go/actor"
	platformlogging "github.com/sciencegate/registration-portal/platform/go/logging"
)

const (
	problemTypeValidation = "https://sciencegate.org/problems/validation-error"
	problemTypeForbidden  = "https://sciencegate.org/problems/permission-denied"
	problemTypeTransition = "https://sciencegate.org/problems/invalid-transition"
	problemTypeMalformed  = "https://sciencegate.org/problems/malformed-action"
	problemTypeNotFound   = "https://sciencegate.org/problems/not-found"
	problemTypeConflict   = "https://sciencegate.org/problems/conflict"
	problemTypeInternal   = "https://sciencegate.org/problems/internal-error"
)

// SessionHeader carries the anonymous browser session id used to look up
// provider pre-fill data during registration.
const SessionHeader = "X-Session-ID"

type operation string

const (
	registerOperation   operation = "registrationsRegister"
	profileGetOperation operation = "registrationsProfileGet"
	profilePutOperation operation = "registrationsProfileUpdate"
	listOperation       operation = "registrationsList"
	getOperation        operation = "registrationsGet"
	transitionOperation operation = "registrationsTransition"
	commentsOperation   operation = "registrationsComments"
)

// Handler wires the registrations service to the HTTP surface.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("registrations service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// PublicRoutes returns the unauthenticated registration endpoint.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	return r
}

// ProfileRoutes returns the applicant self-service endpoints.
func (h *Handler) ProfileRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Profile)
	r.Put("/", h.UpdateProfile)
	return r
}

// AdminRoutes returns the review queue endpoints.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{registrationId}", h.Get)
	r.Post("/{registrationId}/transition", h.Transition)
	r.Put("/{registrationId}/comments", h.UpdateComments)
	return r
}

type fieldsPayload struct {
	IdentityID    string `json:"identityId"`
	Name          string `json:"name"`
	PhoneNumber   string `json:"phoneNumber"`
	Organization  string `json:"organization"`
	OriginCountry string `json:"originCountry"`
}

type commentsPayload struct {
	IdentityIDComment    string `json:"identityIdComment"`
	NameComment          string `json:"nameComment"`
	EmailComment         string `json:"emailComment"`
	PhoneNumberComment   string `json:"phoneNumberComment"`
	OrganizationComment  string `json:"organizationComment"`
	OriginCountryComment string `json:"originCountryComment"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Category string `json:"category"`
	fieldsPayload
}

type transitionRequest struct {
	Action string `json:"action"`
}

type registrationResponse struct {
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
	Category  string `json:"category"`
	State     string `json:"state"`
	fieldsPayload
	Comments  commentsPayload `json:"comments"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type listResponse struct {
	Items      []registrationResponse `json:"items"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"pageSize"`
	TotalItems int                    `json:"totalItems"`
	TotalPages int                    `json:"totalPages"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, h.buildProblem("Invalid request body", "request body must be valid JSON", problemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	created, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:     body.Email,
		Password:  body.Password,
		Category:  service.Category(body.Category),
		Fields:    toServiceFields(body.fieldsPayload),
		SessionID: strings.TrimSpace(r.Header.Get(SessionHeader)),
	})
	if err != nil {
		h.writeProblem(w, h.problemForError(r.Context(), err, registerOperation))
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/admin/registrations/%s", created.AccountID.String()))
	h.writeJSON(w, http.StatusCreated, toAPIRegistration(created))
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	who := actor.FromContextOrAnonymous(r.Context())

	record, err := h.svc.Get(r.Context(), who, who.AccountID)
	if err != nil {
		h.writeProblem(w, h.problemForError(r.Context(), err, profileGetOperation))
		return
	}

	h.writeJSON(w, http.StatusOK, toAPIRegistration(record))
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	who := actor.FromContextOrAnonymous(r.Context())

	var body fieldsPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, h.buildProblem("Invalid request body", "request body must be valid JSON", problemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	record, err := h.svc.SubmitEdits(r.Context(), who, who.AccountID, toServiceFields(body))
	if err != nil {
		h.writeProblem(w, h.problemForError(r.Context(), err, profilePutOperation))
		return
	}

	h.writeJSON(w, http.StatusOK, toAPIRegistration(record))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	who := actor.FromContextOrAnonymous(r.Context())

	opts := service.ListOptions{}
	query := r.URL.Query()
	if v := strings.TrimSpace(query.Get("state")); v != "" {
		opts.State = &v
	}
	if v := strings.TrimSpace(query.Get("category")); v != "" {
		opts.Category = &v
	}
	if v := query.Get("page"); v != "" {
		fmt.Sscanf(v, "%d", &opts.Page) // nolint:errcheck
	}
	if v := query.Get("pageSize"); v != "" {
		fmt.Sscanf(v, "%d", &opts.PageSize) // nolint:errcheck
	}

	result, err := h.svc.List(r.Context(), who, opts)
	if err != nil {
		h.writeProblem(w, h.problemForError(r.Context(), err, listOperation))
		return
	}

	items := make([]registrationResponse, 0, len(result.Registrations))
	for _, record := range result.Registrations {
		items = append(items, toAPIRegistration(record))
	}

	h.writeJSON(w, http.StatusOK, listResponse{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	who := actor.FromContextOrAnonymous(r.Context())

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	record, err := h.svc.Get(r.Context(), who, id)
	if err != nil {
		h.writeProblem(w, h.problemForError(r.Context(), err, getOperation))
		return
	}

	h.writeJSON(w, http.StatusOK, toAPIRegistration(record))
}

func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	who := actor.FromContextOrAnonymous(r.Context())

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var body transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, h.buildProblem("Invalid request body", "request body must be valid JSON", problemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	record, err := h.svc.Transition(r.Context(), who, id, body.Action)
	if err != nil {
		h.writeProblem(w, h.problemForError(r.Context(), err, transitionOperation))
		return
	}

	h.writeJSON(w, http.StatusOK, toAPIRegistration(record))
}

func (h *Handler) UpdateComments(w http.ResponseWriter, r *http.Request) {
	who := actor.FromContextOrAnonymous(r.Context())

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var body commentsPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, h.buildProblem("Invalid request body", "request body must be valid JSON", problemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	record, err := h.svc.UpdateComments(r.Context(), who, id, service.Comments{
		IdentityIDComment:    body.IdentityIDComment,
		NameComment:          body.NameComment,
		EmailComment:         body.EmailComment,
		PhoneNumberComment:   body.PhoneNumberComment,
		OrganizationComment:  body.OrganizationComment,
		OriginCountryComment: body.OriginCountryComment,
	})
	if err != nil {
		h.writeProblem(w, h.problemForError(r.Context(), err, commentsOperation))
		return
	}

	h.writeJSON(w, http.StatusOK, toAPIRegistration(record))
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "registrationId")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.writeProblem(w, h.buildProblem("Invalid identifier", "registrationId must be a UUID", problemTypeValidation, http.StatusBadRequest, nil))
		return uuid.Nil, false
	}
	return id, true
}

func toServiceFields(p fieldsPayload) service.Fields {
	return service.Fields{
		IdentityID:    p.IdentityID,
		Name:          p.Name,
		PhoneNumber:   p.PhoneNumber,
		Organization:  p.Organization,
		OriginCountry: p.OriginCountry,
	}
}

func toAPIRegistration(record service.Registration) registrationResponse {
	return registrationResponse{
		AccountID: record.AccountID.String(),
		Email:     record.Email,
		Category:  string(record.Category),
		State:     string(record.State),
		fieldsPayload: fieldsPayload{
			IdentityID:    record.Fields.IdentityID,
			Name:          record.Fields.Name,
			PhoneNumber:   record.Fields.PhoneNumber,
			Organization:  record.Fields.Organization,
			OriginCountry: record.Fields.OriginCountry,
		},
		Comments: commentsPayload{
			IdentityIDComment:    record.Comments.IdentityIDComment,
			NameComment:          record.Comments.NameComment,
			EmailComment:         record.Comments.EmailComment,
			PhoneNumberComment:   record.Comments.PhoneNumberComment,
			OrganizationComment:  record.Comments.OrganizationComment,
			OriginCountryComment: record.Comments.OriginCountryComment,
		},
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

type problemDetails struct {
	Type     string              `json:"type,omitempty"`
	Title    string              `json:"title"`
	Status   int                 `json:"status"`
	Detail   string              `json:"detail,omitempty"`
	Redirect string              `json:"redirect,omitempty"`
	Errors   map[string][]string `json:"errors,omitempty"`
}

func (h *Handler) problemForError(ctx context.Context, err error, op operation) problemDetails {
	problem := h.classifyError(err)

	logger := h.loggerFrom(ctx)
	logFields := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", problem.Status),
	}

	switch {
	case problem.Status >= http.StatusInternalServerError:
		logger.Error("registrations operation failed", append(logFields, zap.Error(err))...)
	case problem.Status == http.StatusNotFound:
		logger.Info("registration not found", append(logFields, zap.Error(err))...)
	default:
		logger.Warn("registrations request rejected", append(logFields, zap.Error(err))...)
	}

	return problem
}

func (h *Handler) classifyError(err error) problemDetails {
	var validationErr *service.ValidationError
	var denied *service.PermissionDeniedError
	var invalidTransition *service.InvalidTransitionError
	var malformed *service.MalformedActionError

	switch {
	case errors.As(err, &validationErr):
		problem := h.buildProblem("Validation failed", "one or more fields are invalid", problemTypeValidation, http.StatusUnprocessableEntity, validationErr.Fields)
		return problem
	case errors.As(err, &denied):
		problem := h.buildProblem("Permission denied", denied.Error(), problemTypeForbidden, http.StatusForbidden, nil)
		problem.Redirect = denied.Redirect
		return problem
	case errors.As(err, &invalidTransition):
		return h.buildProblem("Invalid transition", invalidTransition.Error(), problemTypeTransition, http.StatusConflict, nil)
	case errors.As(err, &malformed):
		return h.buildProblem("Malformed action", malformed.Error(), problemTypeMalformed, http.StatusBadRequest, nil)
	case errors.Is(err, service.ErrNotFound):
		return h.buildProblem("Resource not found", "registration not found", problemTypeNotFound, http.StatusNotFound, nil)
	case errors.Is(err, service.ErrConflict):
		return h.buildProblem("Conflict", "an account with this email already exists", problemTypeConflict, http.StatusConflict, nil)
	default:
		return h.buildProblem("Internal server error", "an unexpected error occurred", problemTypeInternal, http.StatusInternalServerError, nil)
	}
}

func (h *Handler) buildProblem(title, detail, problemType string, status int, fieldErrors service.FieldErrors) problemDetails {
	problem := problemDetails{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
	}

	if len(fieldErrors) > 0 {
		copied := make(map[string][]string, len(fieldErrors))
		for field, messages := range fieldErrors {
			copied[field] = append([]string(nil), messages...)
		}
		problem.Errors = copied
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
