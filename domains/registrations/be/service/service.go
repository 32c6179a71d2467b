package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sciencegate/registration-portal/domains/registrations/be/repo"
	"github.com/sciencegate/registration-portal/platform/go/actor"
	"github.com/sciencegate/registration-portal/platform/go/auth"
	"github.com/sciencegate/registration-portal/platform/go/notify"
	"github.com/sciencegate/registration-portal/platform/go/persistence"
	"github.com/sciencegate/registration-portal/platform/go/prefill"
)

// Registration is the domain view of a registration record.
type Registration struct {
	AccountID uuid.UUID
	Email     string
	Category  Category
	State     State
	Fields    Fields
	Comments  Comments
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegisterInput is the payload of a self-registration request. SessionID
// optionally names the browser session whose pre-fill entry should be
// cleared once the record exists.
type RegisterInput struct {
	Email     string
	Password  string
	Category  Category
	Fields    Fields
	SessionID string
}

// ListOptions controls filtering and pagination of the admin review queue.
type ListOptions struct {
	State    *string
	Category *string
	Page     int
	PageSize int
}

// ListResult wraps a page of registrations with pagination metadata.
type ListResult struct {
	Registrations []Registration
	Page          int
	PageSize      int
	TotalItems    int
	TotalPages    int
}

// Service defines the business operations for the registrations domain.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (Registration, error)
	Get(ctx context.Context, who actor.Actor, id uuid.UUID) (Registration, error)
	List(ctx context.Context, who actor.Actor, opts ListOptions) (ListResult, error)
	Transition(ctx context.Context, who actor.Actor, id uuid.UUID, action string) (Registration, error)
	UpdateComments(ctx context.Context, who actor.Actor, id uuid.UUID, comments Comments) (Registration, error)
	SubmitEdits(ctx context.Context, who actor.Actor, id uuid.UUID, fields Fields) (Registration, error)
}

type service struct {
	repo     repo.Repository
	notifier notify.Notifier
	prefill  prefill.Cache
	logger   *zap.Logger
	hashCost int
}

// New constructs a registrations Service instance.
func New(r repo.Repository, notifier notify.Notifier, cache prefill.Cache, logger *zap.Logger) Service {
	if r == nil {
		panic("registrations repository is required")
	}
	if notifier == nil {
		panic("notifier is required")
	}
	if cache == nil {
		panic("prefill cache is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{repo: r, notifier: notifier, prefill: cache, logger: logger}
}

func (s *service) Register(ctx context.Context, input RegisterInput) (Registration, error) {
	fieldErrors := FieldErrors{}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		fieldErrors.add("email", "email is required")
	} else if !strings.Contains(email, "@") {
		fieldErrors.add("email", "email must contain '@'")
	}

	if len(input.Password) < 8 {
		fieldErrors.add("password", "password must be at least 8 characters")
	}

	if !input.Category.Valid() {
		fieldErrors.add("category", "category must be visitor or client")
	}

	if len(fieldErrors) > 0 {
		return Registration{}, &ValidationError{Fields: fieldErrors}
	}

	if verr := ValidateFields(input.Category, input.Fields); verr != nil {
		return Registration{}, verr
	}

	hash, err := auth.HashPassword(input.Password, s.hashCost)
	if err != nil {
		return Registration{}, err
	}

	role := persistence.RoleVisitorApplicant
	if input.Category == CategoryClient {
		role = persistence.RoleClientApplicant
	}

	record, err := s.repo.Create(ctx, persistence.CreateApplicantParams{
		AccountID:    uuid.New(),
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		Role:         role,
		Category:     string(input.Category),
		State:        string(StateInitial),
		Fields:       fieldsToPersistence(input.Fields),
	})
	if err != nil {
		return Registration{}, mapPersistenceError(err)
	}

	if sessionID := strings.TrimSpace(input.SessionID); sessionID != "" {
		if clearErr := s.prefill.Clear(ctx, sessionID); clearErr != nil {
			s.logger.Warn("prefill clear failed",
				zap.String("sessionId", sessionID),
				zap.Error(clearErr))
		}
	}

	s.dispatch(ctx, record, s.notifier.RegistrationInitiated)

	return mapRegistration(record), nil
}

func (s *service) Get(ctx context.Context, who actor.Actor, id uuid.UUID) (Registration, error) {
	if id == uuid.Nil {
		return Registration{}, ErrNotFound
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return Registration{}, mapPersistenceError(err)
	}

	if err := guardRead(who, record.AccountID); err != nil {
		return Registration{}, err
	}

	return mapRegistration(record), nil
}

func (s *service) List(ctx context.Context, who actor.Actor, opts ListOptions) (ListResult, error) {
	if !who.IsAdmin() {
		return ListResult{}, &PermissionDeniedError{Message: "admin role required"}
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	fieldErrors := FieldErrors{}
	if opts.State != nil && strings.TrimSpace(*opts.State) != "" {
		if !State(strings.TrimSpace(*opts.State)).Valid() {
			fieldErrors.add("state", "unknown state filter")
		}
	}
	if opts.Category != nil && strings.TrimSpace(*opts.Category) != "" {
		if !Category(strings.TrimSpace(*opts.Category)).Valid() {
			fieldErrors.add("category", "unknown category filter")
		}
	}
	if len(fieldErrors) > 0 {
		return ListResult{}, &ValidationError{Fields: fieldErrors}
	}

	result, err := s.repo.List(ctx, persistence.ListRegistrationsParams{
		Page:     page,
		PageSize: pageSize,
		State:    opts.State,
		Category: opts.Category,
	})
	if err != nil {
		return ListResult{}, err
	}

	records := make([]Registration, 0, len(result.Registrations))
	for _, record := range result.Registrations {
		records = append(records, mapRegistration(record))
	}

	totalPages := 0
	if result.TotalItems > 0 {
		totalPages = (result.TotalItems + pageSize - 1) / pageSize
	}

	return ListResult{
		Registrations: records,
		Page:          page,
		PageSize:      pageSize,
		TotalItems:    result.TotalItems,
		TotalPages:    totalPages,
	}, nil
}

func (s *service) Transition(ctx context.Context, who actor.Actor, id uuid.UUID, rawAction string) (Registration, error) {
	if id == uuid.Nil {
		return Registration{}, ErrNotFound
	}
	if !who.IsAdmin() {
		return Registration{}, &PermissionDeniedError{Message: "admin role required"}
	}

	action, err := ParseAdminAction(rawAction)
	if err != nil {
		return Registration{}, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Registration{}, mapPersistenceError(err)
	}

	newState, err := adminTransition(State(current.State), action)
	if err != nil {
		return Registration{}, err
	}

	record, err := s.repo.TransitionState(ctx, id, string(newState), statesToStrings(AdminEditableStates()))
	if err != nil {
		if errors.Is(err, persistence.ErrStateNotAllowed) {
			// Lost a race against another transition; report against the
			// state the record actually holds now.
			return Registration{}, s.transitionConflict(ctx, id, string(action))
		}
		return Registration{}, mapPersistenceError(err)
	}

	s.dispatch(ctx, record, s.notifier.RegistrationStateChanged)

	return mapRegistration(record), nil
}

func (s *service) UpdateComments(ctx context.Context, who actor.Actor, id uuid.UUID, comments Comments) (Registration, error) {
	if id == uuid.Nil {
		return Registration{}, ErrNotFound
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Registration{}, mapPersistenceError(err)
	}

	if err := guardAdminEdit(who, State(current.State)); err != nil {
		return Registration{}, err
	}

	if verr := ValidateComments(Category(current.Category), comments); verr != nil {
		return Registration{}, verr
	}

	record, err := s.repo.UpdateComments(ctx, id, persistence.UpdateCommentsParams{
		Comments:      commentsToPersistence(comments),
		AllowedStates: statesToStrings(AdminEditableStates()),
	})
	if err != nil {
		if errors.Is(err, persistence.ErrStateNotAllowed) {
			return Registration{}, s.editConflict(ctx, id)
		}
		return Registration{}, mapPersistenceError(err)
	}

	return mapRegistration(record), nil
}

func (s *service) SubmitEdits(ctx context.Context, who actor.Actor, id uuid.UUID, fields Fields) (Registration, error) {
	if id == uuid.Nil {
		return Registration{}, ErrNotFound
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Registration{}, mapPersistenceError(err)
	}

	if err := guardApplicantEdit(who, current.AccountID, State(current.State)); err != nil {
		return Registration{}, err
	}

	if verr := ValidateFields(Category(current.Category), fields); verr != nil {
		return Registration{}, verr
	}

	newState, err := applicantResubmit(State(current.State))
	if err != nil {
		return Registration{}, err
	}

	record, err := s.repo.UpdateProfile(ctx, id, persistence.UpdateProfileParams{
		Fields:        fieldsToPersistence(fields),
		NewState:      string(newState),
		AllowedStates: statesToStrings(ApplicantEditableStates()),
	})
	if err != nil {
		if errors.Is(err, persistence.ErrStateNotAllowed) {
			return Registration{}, s.editConflict(ctx, id)
		}
		return Registration{}, mapPersistenceError(err)
	}

	s.dispatch(ctx, record, s.notifier.RegistrationStateChanged)

	return mapRegistration(record), nil
}

// dispatch sends one notification for the record and logs a failed
// delivery. The caller's operation already succeeded; a transport failure
// never surfaces to the user.
func (s *service) dispatch(ctx context.Context, record persistence.Registration, send func(context.Context, notify.RegistrationInfo) notify.Delivery) {
	delivery := send(ctx, notify.RegistrationInfo{
		Email:    record.Email,
		Name:     record.Name,
		Category: record.Category,
		State:    record.State,
	})
	if !delivery.Delivered {
		s.logger.Warn("notification delivery failed",
			zap.String("accountId", record.AccountID.String()),
			zap.String("state", record.State),
			zap.Error(delivery.Err))
	}
}

// transitionConflict resolves a guarded-update miss into the transition error
// the caller should see, using the record's freshest state.
func (s *service) transitionConflict(ctx context.Context, id uuid.UUID, action string) error {
	latest, err := s.repo.Get(ctx, id)
	if err != nil {
		return mapPersistenceError(err)
	}
	return &InvalidTransitionError{From: State(latest.State), Action: action}
}

// editConflict resolves a guarded-update miss on a field or comment edit:
// the record moved to a state that no longer allows the edit.
func (s *service) editConflict(ctx context.Context, id uuid.UUID) error {
	latest, err := s.repo.Get(ctx, id)
	if err != nil {
		return mapPersistenceError(err)
	}
	state := State(latest.State)
	return &PermissionDeniedError{
		Message:  "registration is no longer editable in state " + string(state),
		Redirect: redirectFor(state),
	}
}

func fieldsToPersistence(f Fields) persistence.RegistrationFields {
	return persistence.RegistrationFields{
		IdentityID:    strings.TrimSpace(f.IdentityID),
		Name:          strings.TrimSpace(f.Name),
		PhoneNumber:   strings.TrimSpace(f.PhoneNumber),
		Organization:  strings.TrimSpace(f.Organization),
		OriginCountry: strings.TrimSpace(f.OriginCountry),
	}
}

func commentsToPersistence(c Comments) persistence.RegistrationComments {
	return persistence.RegistrationComments{
		IdentityIDComment:    strings.TrimSpace(c.IdentityIDComment),
		NameComment:          strings.TrimSpace(c.NameComment),
		EmailComment:         strings.TrimSpace(c.EmailComment),
		PhoneNumberComment:   strings.TrimSpace(c.PhoneNumberComment),
		OrganizationComment:  strings.TrimSpace(c.OrganizationComment),
		OriginCountryComment: strings.TrimSpace(c.OriginCountryComment),
	}
}

func mapRegistration(record persistence.Registration) Registration {
	return Registration{
		AccountID: record.AccountID,
		Email:     record.Email,
		Category:  Category(record.Category),
		State:     State(record.State),
		Fields: Fields{
			IdentityID:    record.IdentityID,
			Name:          record.Name,
			PhoneNumber:   record.PhoneNumber,
			Organization:  record.Organization,
			OriginCountry: record.OriginCountry,
		},
		Comments: Comments{
			IdentityIDComment:    record.IdentityIDComment,
			NameComment:          record.NameComment,
			EmailComment:         record.EmailComment,
			PhoneNumberComment:   record.PhoneNumberComment,
			OrganizationComment:  record.OrganizationComment,
			OriginCountryComment: record.OriginCountryComment,
		},
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrRegistrationNotFound), errors.Is(err, persistence.ErrAccountNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrAccountConflict):
		return ErrConflict
	case errors.Is(err, persistence.ErrCheckViolation):
		return newValidationError(map[string]string{"payload": "field values violate the category policy"})
	default:
		return err
	}
}
