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

const RegistrationsTable = "registrations"

// Registration represents a row in the registrations table joined with the
// owning account's email. The record shares its identity with the account
// (composition over inheritance: primary key equals the foreign key).
type Registration struct {
	AccountID            uuid.UUID `db:"account_id" json:"accountId"`
	Email                string    `db:"email" json:"email"`
	Category             string    `db:"category" json:"category"`
	State                string    `db:"state" json:"state"`
	IdentityID           string    `db:"identity_id" json:"identityId"`
	IdentityIDComment    string    `db:"identity_id_comment" json:"identityIdComment"`
	Name                 string    `db:"name" json:"name"`
	NameComment          string    `db:"name_comment" json:"nameComment"`
	EmailComment         string    `db:"email_comment" json:"emailComment"`
	PhoneNumber          string    `db:"phone_number" json:"phoneNumber"`
	PhoneNumberComment   string    `db:"phone_number_comment" json:"phoneNumberComment"`
	Organization         string    `db:"organization" json:"organization"`
	OrganizationComment  string    `db:"organization_comment" json:"organizationComment"`
	OriginCountry        string    `db:"origin_country" json:"originCountry"`
	OriginCountryComment string    `db:"origin_country_comment" json:"originCountryComment"`
	CreatedAt            time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time `db:"updated_at" json:"updatedAt"`
}

// RegistrationStore exposes persistence helpers for the registrations table.
type RegistrationStore struct {
	pool *pgxpool.Pool
}

// NewRegistrationStore returns a store instance bound to the shared pool.
func NewRegistrationStore(pool *pgxpool.Pool) (*RegistrationStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &RegistrationStore{pool: pool}, nil
}

const registrationColumns = `
    r.account_id, a.email, r.category, r.state,
    r.identity_id, r.identity_id_comment,
    r.name, r.name_comment, r.email_comment,
    r.phone_number, r.phone_number_comment,
    r.organization, r.organization_comment,
    r.origin_country, r.origin_country_comment,
    r.created_at, r.updated_at`

// RegistrationFields carries the user-facing data columns of a registration.
type RegistrationFields struct {
	IdentityID    string
	Name          string
	PhoneNumber   string
	Organization  string
	OriginCountry string
}

// CreateApplicantParams spans the account row and its registration row.
type CreateApplicantParams struct {
	AccountID    uuid.UUID
	Email        string
	PasswordHash string
	Role         string
	Category     string
	State        string
	Fields       RegistrationFields
}

// CreateWithAccount inserts the account and its registration record in one
// transaction so the pair is never observable half-created.
func (s *RegistrationStore) CreateWithAccount(ctx context.Context, params CreateApplicantParams) (Registration, error) {
	if params.AccountID == uuid.Nil {
		return Registration{}, errors.New("account id is required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Registration{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, fmt.Sprintf(`
        INSERT INTO %s (account_id, email, password_hash, role)
        VALUES ($1, $2, $3, $4)
    `, AccountsTable),
		params.AccountID,
		strings.ToLower(strings.TrimSpace(params.Email)),
		params.PasswordHash,
		params.Role,
	); err != nil {
		if isUniqueViolation(err) {
			return Registration{}, ErrAccountConflict
		}
		if isCheckViolation(err) {
			return Registration{}, ErrCheckViolation
		}
		return Registration{}, fmt.Errorf("insert account: %w", err)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(`
        INSERT INTO %s (
            account_id, category, state,
            identity_id, name, phone_number, organization, origin_country
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, RegistrationsTable),
		params.AccountID,
		params.Category,
		params.State,
		strings.TrimSpace(params.Fields.IdentityID),
		strings.TrimSpace(params.Fields.Name),
		strings.TrimSpace(params.Fields.PhoneNumber),
		strings.TrimSpace(params.Fields.Organization),
		strings.TrimSpace(params.Fields.OriginCountry),
	); err != nil {
		if isCheckViolation(err) {
			return Registration{}, ErrCheckViolation
		}
		return Registration{}, fmt.Errorf("insert registration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Registration{}, fmt.Errorf("commit tx: %w", err)
	}

	return s.GetRegistration(ctx, params.AccountID)
}

// GetRegistration returns a single registration by the owning account id.
func (s *RegistrationStore) GetRegistration(ctx context.Context, id uuid.UUID) (Registration, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s
        FROM %s r
        JOIN %s a ON a.account_id = r.account_id
        WHERE r.account_id = $1
    `, registrationColumns, RegistrationsTable, AccountsTable), id)

	record, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Registration{}, ErrRegistrationNotFound
		}
		return Registration{}, err
	}

	return record, nil
}

// ListRegistrationsParams captures filters and pagination for ListRegistrations.
type ListRegistrationsParams struct {
	Page     int
	PageSize int
	State    *string
	Category *string
}

// ListRegistrationsResult includes the rows and the total count for pagination metadata.
type ListRegistrationsResult struct {
	Registrations []Registration
	TotalItems    int
}

// ListRegistrations returns registrations matching the filters with pagination applied.
func (s *RegistrationStore) ListRegistrations(ctx context.Context, params ListRegistrationsParams) (ListRegistrationsResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 20
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}

	whereParts := []string{"1=1"}
	var args []any

	if params.State != nil && strings.TrimSpace(*params.State) != "" {
		args = append(args, strings.TrimSpace(*params.State))
		whereParts = append(whereParts, fmt.Sprintf("r.state = $%d", len(args)))
	}
	if params.Category != nil && strings.TrimSpace(*params.Category) != "" {
		args = append(args, strings.TrimSpace(*params.Category))
		whereParts = append(whereParts, fmt.Sprintf("r.category = $%d", len(args)))
	}

	whereSQL := strings.Join(whereParts, " AND ")

	countQuery := fmt.Sprintf(`
        SELECT COUNT(*) FROM %s r WHERE %s
    `, RegistrationsTable, whereSQL)
	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return ListRegistrationsResult{}, fmt.Errorf("count registrations: %w", err)
	}

	result := ListRegistrationsResult{Registrations: []Registration{}, TotalItems: total}
	if total == 0 {
		return result, nil
	}

	limit := params.PageSize
	offset := (params.Page - 1) * params.PageSize

	dataArgs := append([]any{}, args...)
	dataArgs = append(dataArgs, limit, offset)

	query := fmt.Sprintf(`
        SELECT %s
        FROM %s r
        JOIN %s a ON a.account_id = r.account_id
        WHERE %s
        ORDER BY r.created_at DESC
        LIMIT $%d OFFSET $%d
    `, registrationColumns, RegistrationsTable, AccountsTable, whereSQL, len(dataArgs)-1, len(dataArgs))

	rows, err := s.pool.Query(ctx, query, dataArgs...)
	if err != nil {
		return ListRegistrationsResult{}, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	records := make([]Registration, 0)
	for rows.Next() {
		record, scanErr := scanRegistration(rows)
		if scanErr != nil {
			return ListRegistrationsResult{}, fmt.Errorf("scan registration: %w", scanErr)
		}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return ListRegistrationsResult{}, fmt.Errorf("iterate registrations: %w", err)
	}

	result.Registrations = records
	return result, nil
}

// UpdateProfileParams carries an applicant resubmission: the editable data
// fields plus the resulting state. AllowedStates guards the write so a
// concurrent transition cannot race it.
type UpdateProfileParams struct {
	Fields        RegistrationFields
	NewState      string
	AllowedStates []string
}

// UpdateProfile applies an applicant's resubmitted fields and moves the
// record to NewState in one guarded statement. ErrStateNotAllowed is
// returned when the record exists outside AllowedStates.
func (s *RegistrationStore) UpdateProfile(ctx context.Context, id uuid.UUID, params UpdateProfileParams) (Registration, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s r
        SET identity_id = $1,
            name = $2,
            phone_number = $3,
            organization = $4,
            origin_country = $5,
            state = $6,
            updated_at = NOW()
        FROM %s a
        WHERE r.account_id = $7
          AND a.account_id = r.account_id
          AND r.state = ANY($8)
        RETURNING %s
    `, RegistrationsTable, AccountsTable, registrationColumns),
		strings.TrimSpace(params.Fields.IdentityID),
		strings.TrimSpace(params.Fields.Name),
		strings.TrimSpace(params.Fields.PhoneNumber),
		strings.TrimSpace(params.Fields.Organization),
		strings.TrimSpace(params.Fields.OriginCountry),
		params.NewState,
		id,
		params.AllowedStates,
	)

	return s.guardedResult(ctx, id, row)
}

// RegistrationComments carries the admin-editable per-field correction notes.
type RegistrationComments struct {
	IdentityIDComment    string
	NameComment          string
	EmailComment         string
	PhoneNumberComment   string
	OrganizationComment  string
	OriginCountryComment string
}

// UpdateCommentsParams guards an admin comment edit to the admin-editable states.
type UpdateCommentsParams struct {
	Comments      RegistrationComments
	AllowedStates []string
}

// UpdateComments stores the admin's correction requests without touching the
// applicant's data fields or the state.
func (s *RegistrationStore) UpdateComments(ctx context.Context, id uuid.UUID, params UpdateCommentsParams) (Registration, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s r
        SET identity_id_comment = $1,
            name_comment = $2,
            email_comment = $3,
            phone_number_comment = $4,
            organization_comment = $5,
            origin_country_comment = $6,
            updated_at = NOW()
        FROM %s a
        WHERE r.account_id = $7
          AND a.account_id = r.account_id
          AND r.state = ANY($8)
        RETURNING %s
    `, RegistrationsTable, AccountsTable, registrationColumns),
		params.Comments.IdentityIDComment,
		params.Comments.NameComment,
		params.Comments.EmailComment,
		params.Comments.PhoneNumberComment,
		params.Comments.OrganizationComment,
		params.Comments.OriginCountryComment,
		id,
		params.AllowedStates,
	)

	return s.guardedResult(ctx, id, row)
}

// TransitionState moves the record to newState when its current state is one
// of allowedFrom. The guard makes the transition atomic under concurrent
// admin actions: the loser of a race sees ErrStateNotAllowed.
func (s *RegistrationStore) TransitionState(ctx context.Context, id uuid.UUID, newState string, allowedFrom []string) (Registration, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s r
        SET state = $1, updated_at = NOW()
        FROM %s a
        WHERE r.account_id = $2
          AND a.account_id = r.account_id
          AND r.state = ANY($3)
        RETURNING %s
    `, RegistrationsTable, AccountsTable, registrationColumns),
		newState,
		id,
		allowedFrom,
	)

	return s.guardedResult(ctx, id, row)
}

// guardedResult interprets a zero-row guarded UPDATE: a missing record maps
// to ErrRegistrationNotFound, an existing record outside the allowed states
// maps to ErrStateNotAllowed.
func (s *RegistrationStore) guardedResult(ctx context.Context, id uuid.UUID, row pgx.Row) (Registration, error) {
	record, err := scanRegistration(row)
	if err == nil {
		return record, nil
	}

	if isCheckViolation(err) {
		return Registration{}, ErrCheckViolation
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Registration{}, err
	}

	if _, getErr := s.GetRegistration(ctx, id); getErr != nil {
		return Registration{}, getErr
	}
	return Registration{}, ErrStateNotAllowed
}

func scanRegistration(row pgx.Row) (Registration, error) {
	var r Registration

	if err := row.Scan(
		&r.AccountID,
		&r.Email,
		&r.Category,
		&r.State,
		&r.IdentityID,
		&r.IdentityIDComment,
		&r.Name,
		&r.NameComment,
		&r.EmailComment,
		&r.PhoneNumber,
		&r.PhoneNumberComment,
		&r.Organization,
		&r.OrganizationComment,
		&r.OriginCountry,
		&r.OriginCountryComment,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return Registration{}, err
	}

	return r, nil
}
