package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const AccountsTable = "accounts"

// Account roles. The allowed set is mirrored by the accounts_role_check
// constraint in database/schema/portal/accounts.sql.
const (
	RoleAdmin            = "admin"
	RoleVisitorApplicant = "visitor_applicant"
	RoleClientApplicant  = "client_applicant"
)

// Account represents a row in the accounts table.
type Account struct {
	AccountID    uuid.UUID `db:"account_id" json:"accountId"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// AccountStore exposes persistence helpers for the accounts table.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore returns a store instance bound to the shared pool.
func NewAccountStore(pool *pgxpool.Pool) (*AccountStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &AccountStore{pool: pool}, nil
}

// CreateAccountParams captures the fields required to insert a new account.
type CreateAccountParams struct {
	AccountID    uuid.UUID
	Email        string
	PasswordHash string
	Role         string
}

// CreateAccount inserts a standalone account (admin bootstrap). Applicant
// accounts are created together with their registration record through
// RegistrationStore.CreateWithAccount.
func (s *AccountStore) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	if params.AccountID == uuid.Nil {
		return Account{}, errors.New("account id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (account_id, email, password_hash, role)
        VALUES ($1, $2, $3, $4)
        RETURNING account_id, email, password_hash, role, active, created_at, updated_at
    `, AccountsTable),
		params.AccountID,
		strings.ToLower(strings.TrimSpace(params.Email)),
		params.PasswordHash,
		params.Role,
	)

	account, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrAccountConflict
		}
		if isCheckViolation(err) {
			return Account{}, ErrCheckViolation
		}
		return Account{}, err
	}

	return account, nil
}

// GetAccount returns a single account by identifier.
func (s *AccountStore) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT account_id, email, password_hash, role, active, created_at, updated_at
        FROM %s WHERE account_id = $1
    `, AccountsTable), id)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}

	return account, nil
}

// GetAccountByEmail returns a single account by its unique email (lower-cased).
func (s *AccountStore) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT account_id, email, password_hash, role, active, created_at, updated_at
        FROM %s WHERE email = $1
    `, AccountsTable), strings.ToLower(strings.TrimSpace(email)))

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}

	return account, nil
}

// SetAccountActive flips the soft-disable flag. Accounts are never deleted.
func (s *AccountStore) SetAccountActive(ctx context.Context, id uuid.UUID, active bool) (Account, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET active = $1, updated_at = NOW()
        WHERE account_id = $2
        RETURNING account_id, email, password_hash, role, active, created_at, updated_at
    `, AccountsTable), active, id)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}

	return account, nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var account Account

	if err := row.Scan(
		&account.AccountID,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return Account{}, err
	}

	return account, nil
}
