package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/sciencegate/registration-portal/platform/go/persistence"
)

// Repository defines the persistence operations required by the registrations service.
type Repository interface {
	Create(ctx context.Context, params persistence.CreateApplicantParams) (persistence.Registration, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.Registration, error)
	List(ctx context.Context, params persistence.ListRegistrationsParams) (persistence.ListRegistrationsResult, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, params persistence.UpdateProfileParams) (persistence.Registration, error)
	UpdateComments(ctx context.Context, id uuid.UUID, params persistence.UpdateCommentsParams) (persistence.Registration, error)
	TransitionState(ctx context.Context, id uuid.UUID, newState string, allowedFrom []string) (persistence.Registration, error)
}

type postgresRepository struct {
	store *persistence.RegistrationStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.RegistrationStore) Repository {
	if store == nil {
		panic("registration store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, params persistence.CreateApplicantParams) (persistence.Registration, error) {
	return r.store.CreateWithAccount(ctx, params)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Registration, error) {
	return r.store.GetRegistration(ctx, id)
}

func (r *postgresRepository) List(ctx context.Context, params persistence.ListRegistrationsParams) (persistence.ListRegistrationsResult, error) {
	return r.store.ListRegistrations(ctx, params)
}

func (r *postgresRepository) UpdateProfile(ctx context.Context, id uuid.UUID, params persistence.UpdateProfileParams) (persistence.Registration, error) {
	return r.store.UpdateProfile(ctx, id, params)
}

func (r *postgresRepository) UpdateComments(ctx context.Context, id uuid.UUID, params persistence.UpdateCommentsParams) (persistence.Registration, error) {
	return r.store.UpdateComments(ctx, id, params)
}

func (r *postgresRepository) TransitionState(ctx context.Context, id uuid.UUID, newState string, allowedFrom []string) (persistence.Registration, error) {
	return r.store.TransitionState(ctx, id, newState, allowedFrom)
}
