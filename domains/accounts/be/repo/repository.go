package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/sciencegate/registration-portal/platform/go/persistence"
)

// Repository defines the persistence operations required by the accounts service.
type Repository interface {
	Create(ctx context.Context, params persistence.CreateAccountParams) (persistence.Account, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.Account, error)
	GetByEmail(ctx context.Context, email string) (persistence.Account, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (persistence.Account, error)
}

type postgresRepository struct {
	store *persistence.AccountStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.AccountStore) Repository {
	if store == nil {
		panic("account store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, params persistence.CreateAccountParams) (persistence.Account, error) {
	return r.store.CreateAccount(ctx, params)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Account, error) {
	return r.store.GetAccount(ctx, id)
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (persistence.Account, error) {
	return r.store.GetAccountByEmail(ctx, email)
}

func (r *postgresRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (persistence.Account, error) {
	return r.store.SetAccountActive(ctx, id, active)
}
