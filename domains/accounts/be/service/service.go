package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sciencegate/registration-portal/domains/accounts/be/repo"
	"github.com/sciencegate/registration-portal/platform/go/auth"
	"github.com/sciencegate/registration-portal/platform/go/persistence"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

func (f FieldErrors) add(field, message string) {
	f[field] = append(f[field], message)
}

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain sentinel errors. ErrInvalidCredentials deliberately covers unknown
// email, wrong password and disabled accounts alike.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("account not found")
	ErrConflict           = errors.New("account conflict")
)

// Account is the domain view of an account record.
type Account struct {
	ID        uuid.UUID
	Email     string
	Role      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session is the outcome of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   Account
}

// LoginInput is the payload of a login request.
type LoginInput struct {
	Email    string
	Password string
}

// CreateAdminInput is the payload of the admin bootstrap operation.
type CreateAdminInput struct {
	Email    string
	Password string
}

// Service defines the business operations for the accounts domain.
type Service interface {
	Login(ctx context.Context, input LoginInput) (Session, error)
	CreateAdmin(ctx context.Context, input CreateAdminInput) (Account, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (Account, error)
}

type service struct {
	repo     repo.Repository
	secret   []byte
	ttl      time.Duration
	logger   *zap.Logger
	hashCost int
	now      func() time.Time
}

// New constructs an accounts Service instance.
func New(r repo.Repository, secret []byte, ttl time.Duration, logger *zap.Logger) Service {
	if r == nil {
		panic("accounts repository is required")
	}
	if len(secret) == 0 {
		panic("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		repo:   r,
		secret: secret,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func (s *service) Login(ctx context.Context, input LoginInput) (Session, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return Session{}, ErrInvalidCredentials
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrAccountNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	if !account.Active || !auth.VerifyPassword(account.PasswordHash, input.Password) {
		return Session{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	token, err := auth.IssueSessionToken(s.secret, account.AccountID, account.Email, account.Role, s.ttl, now)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		ExpiresAt: now.Add(s.ttl),
		Account:   mapAccount(account),
	}, nil
}

func (s *service) CreateAdmin(ctx context.Context, input CreateAdminInput) (Account, error) {
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

	if len(fieldErrors) > 0 {
		return Account{}, &ValidationError{Fields: fieldErrors}
	}

	hash, err := auth.HashPassword(input.Password, s.hashCost)
	if err != nil {
		return Account{}, err
	}

	record, err := s.repo.Create(ctx, persistence.CreateAccountParams{
		AccountID:    uuid.New(),
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		Role:         persistence.RoleAdmin,
	})
	if err != nil {
		return Account{}, mapPersistenceError(err)
	}

	return mapAccount(record), nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (Account, error) {
	if id == uuid.Nil {
		return Account{}, ErrNotFound
	}

	record, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return Account{}, mapPersistenceError(err)
	}

	return mapAccount(record), nil
}

func mapAccount(record persistence.Account) Account {
	return Account{
		ID:        record.AccountID,
		Email:     record.Email,
		Role:      record.Role,
		Active:    record.Active,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrAccountNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrAccountConflict):
		return ErrConflict
	default:
		return err
	}
}
