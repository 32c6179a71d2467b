package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPortalPool runs a disposable Postgres, applies the embedded DDL and
// returns a ready pool. Tests share one container per test function to keep
// constraint failures isolated.
func startPortalPool(t *testing.T) (context.Context, *RegistrationStore, *AccountStore) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping persistence integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("portal"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, PoolConfig{ConnString: connString})
	require.NoError(t, err)
	t.Cleanup(func() { ClosePool(pool) })

	require.NoError(t, BootstrapSchema(ctx, pool))

	regStore, err := NewRegistrationStore(pool)
	require.NoError(t, err)
	accStore, err := NewAccountStore(pool)
	require.NoError(t, err)

	return ctx, regStore, accStore
}

func newClientParams(email string) CreateApplicantParams {
	return CreateApplicantParams{
		AccountID:    uuid.New(),
		Email:        email,
		PasswordHash: "$2a$10$notarealhashnotarealhashnotarealhash",
		Role:         RoleClientApplicant,
		Category:     "client",
		State:        "initial",
		Fields: RegistrationFields{
			Name:          "Ada Lovelace",
			PhoneNumber:   "+31 20 123 4567",
			Organization:  "Acme",
			OriginCountry: "US",
		},
	}
}

func TestCreateWithAccountRoundTrip(t *testing.T) {
	t.Parallel()

	ctx, regStore, accStore := startPortalPool(t)

	created, err := regStore.CreateWithAccount(ctx, newClientParams("ada@example.com"))
	require.NoError(t, err)

	got, err := regStore.GetRegistration(ctx, created.AccountID)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", got.Email)
	require.Equal(t, "client", got.Category)
	require.Equal(t, "initial", got.State)
	require.Equal(t, "Acme", got.Organization)
	require.Equal(t, "US", got.OriginCountry)
	require.Empty(t, got.IdentityID)

	account, err := accStore.GetAccountByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, created.AccountID, account.AccountID)
	require.True(t, account.Active)
}

func TestCreateWithAccountDuplicateEmail(t *testing.T) {
	t.Parallel()

	ctx, regStore, _ := startPortalPool(t)

	_, err := regStore.CreateWithAccount(ctx, newClientParams("dup@example.com"))
	require.NoError(t, err)

	_, err = regStore.CreateWithAccount(ctx, newClientParams("dup@example.com"))
	require.ErrorIs(t, err, ErrAccountConflict)
}

func TestCheckConstraintsMirrorFieldPolicy(t *testing.T) {
	t.Parallel()

	ctx, regStore, _ := startPortalPool(t)

	visitor := CreateApplicantParams{
		AccountID:    uuid.New(),
		Email:        "visitor@example.com",
		PasswordHash: "x",
		Role:         RoleVisitorApplicant,
		Category:     "visitor",
		State:        "initial",
		Fields: RegistrationFields{
			Name:         "Grace Hopper",
			PhoneNumber:  "+1 555 0100",
			Organization: "Navy", // visitors must not carry an organization
		},
	}
	_, err := regStore.CreateWithAccount(ctx, visitor)
	require.ErrorIs(t, err, ErrCheckViolation)

	clientWithIdentity := newClientParams("client-id@example.com")
	clientWithIdentity.Fields.IdentityID = "0000-0001-2345-6789"
	_, err = regStore.CreateWithAccount(ctx, clientWithIdentity)
	require.ErrorIs(t, err, ErrCheckViolation)

	clientMissingOrg := newClientParams("client-noorg@example.com")
	clientMissingOrg.Fields.Organization = ""
	_, err = regStore.CreateWithAccount(ctx, clientMissingOrg)
	require.ErrorIs(t, err, ErrCheckViolation)

	badState := newClientParams("badstate@example.com")
	badState.State = "limbo"
	_, err = regStore.CreateWithAccount(ctx, badState)
	require.ErrorIs(t, err, ErrCheckViolation)
}

func TestTransitionStateGuards(t *testing.T) {
	t.Parallel()

	ctx, regStore, _ := startPortalPool(t)

	created, err := regStore.CreateWithAccount(ctx, newClientParams("flow@example.com"))
	require.NoError(t, err)

	adminEditable := []string{"initial", "waiting_for_approval"}

	approved, err := regStore.TransitionState(ctx, created.AccountID, "approved", adminEditable)
	require.NoError(t, err)
	require.Equal(t, "approved", approved.State)

	// Approving an already approved record loses the guard.
	_, err = regStore.TransitionState(ctx, created.AccountID, "approved", adminEditable)
	require.ErrorIs(t, err, ErrStateNotAllowed)

	// Unknown record maps to not-found, not to a state conflict.
	_, err = regStore.TransitionState(ctx, uuid.New(), "approved", adminEditable)
	require.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestUpdateCommentsGuardedByState(t *testing.T) {
	t.Parallel()

	ctx, regStore, _ := startPortalPool(t)

	created, err := regStore.CreateWithAccount(ctx, newClientParams("comments@example.com"))
	require.NoError(t, err)

	adminEditable := []string{"initial", "waiting_for_approval"}

	updated, err := regStore.UpdateComments(ctx, created.AccountID, UpdateCommentsParams{
		Comments:      RegistrationComments{NameComment: "please use your passport name"},
		AllowedStates: adminEditable,
	})
	require.NoError(t, err)
	require.Equal(t, "please use your passport name", updated.NameComment)
	require.Equal(t, "initial", updated.State)

	_, err = regStore.TransitionState(ctx, created.AccountID, "rejected", adminEditable)
	require.NoError(t, err)

	_, err = regStore.UpdateComments(ctx, created.AccountID, UpdateCommentsParams{
		Comments:      RegistrationComments{NameComment: "too late"},
		AllowedStates: adminEditable,
	})
	require.ErrorIs(t, err, ErrStateNotAllowed)
}

func TestUpdateProfileResubmission(t *testing.T) {
	t.Parallel()

	ctx, regStore, _ := startPortalPool(t)

	created, err := regStore.CreateWithAccount(ctx, newClientParams("resubmit@example.com"))
	require.NoError(t, err)

	_, err = regStore.TransitionState(ctx, created.AccountID, "admin_requested_modify", []string{"initial"})
	require.NoError(t, err)

	updated, err := regStore.UpdateProfile(ctx, created.AccountID, UpdateProfileParams{
		Fields: RegistrationFields{
			Name:          "Ada King",
			PhoneNumber:   "+31 20 765 4321",
			Organization:  "Acme B.V.",
			OriginCountry: "NL",
		},
		NewState:      "waiting_for_approval",
		AllowedStates: []string{"admin_requested_modify", "approved"},
	})
	require.NoError(t, err)
	require.Equal(t, "waiting_for_approval", updated.State)
	require.Equal(t, "Ada King", updated.Name)
	require.Equal(t, "Acme B.V.", updated.Organization)

	// A record sitting in initial is not applicant-editable.
	fresh, err := regStore.CreateWithAccount(ctx, newClientParams("fresh@example.com"))
	require.NoError(t, err)
	_, err = regStore.UpdateProfile(ctx, fresh.AccountID, UpdateProfileParams{
		Fields: RegistrationFields{
			Name:          fresh.Name,
			PhoneNumber:   fresh.PhoneNumber,
			Organization:  fresh.Organization,
			OriginCountry: fresh.OriginCountry,
		},
		NewState:      "waiting_for_approval",
		AllowedStates: []string{"admin_requested_modify", "approved"},
	})
	require.ErrorIs(t, err, ErrStateNotAllowed)
}
