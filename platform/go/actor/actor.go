package actor

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

type contextKey string

const ctxActor contextKey = "PORTAL_ACTOR"

// Kind classifies who initiated a request. The access policy reasons about
// these three classes plus system for CLI/background work.
type Kind string

const (
	KindAnonymous Kind = "anonymous"
	KindApplicant Kind = "applicant"
	KindAdmin     Kind = "admin"
	KindSystem    Kind = "system"
)

// Actor captures request-scoped caller identity used by access checks and
// audit logging. AccountID is zero for anonymous callers.
type Actor struct {
	Kind      Kind
	AccountID uuid.UUID
	Email     string
	RequestID string
}

// IsAdmin reports whether the caller holds admin privileges.
func (a Actor) IsAdmin() bool {
	return a.Kind == KindAdmin
}

// Owns reports whether the caller is the applicant owning the given record id.
func (a Actor) Owns(accountID uuid.UUID) bool {
	return a.Kind == KindApplicant && a.AccountID != uuid.Nil && a.AccountID == accountID
}

// IntoContext stores the Actor in the provided context.
func IntoContext(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxActor, a)
}

// FromContext extracts the Actor from context, returning false when not present.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	v := ctx.Value(ctxActor)
	if v == nil {
		return Actor{}, false
	}

	a, ok := v.(Actor)
	return a, ok
}

// FromContextOrAnonymous returns the Actor stored on the context, or an anonymous one when absent.
func FromContextOrAnonymous(ctx context.Context) Actor {
	if a, ok := FromContext(ctx); ok {
		return a
	}
	return Anonymous("")
}

// FromCredentials builds an Actor from an authenticated account.
// Returns an error when the account id is missing.
func FromCredentials(accountID uuid.UUID, email string, admin bool, requestID string) (Actor, error) {
	if accountID == uuid.Nil {
		return Actor{}, errors.New("account id is required to build an actor")
	}

	kind := KindApplicant
	if admin {
		kind = KindAdmin
	}

	return Actor{
		Kind:      kind,
		AccountID: accountID,
		Email:     email,
		RequestID: requestID,
	}, nil
}

// Anonymous builds an Actor for unauthenticated requests (e.g., self-registration).
func Anonymous(requestID string) Actor {
	return Actor{Kind: KindAnonymous, RequestID: requestID}
}

// System builds an Actor for CLI and background operations.
func System(requestID string) Actor {
	return Actor{Kind: KindSystem, RequestID: requestID}
}
