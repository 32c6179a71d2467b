package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sciencegate/registration-portal/platform/go/actor"
	platformauth "github.com/sciencegate/registration-portal/platform/go/auth"
	platformlogging "github.com/sciencegate/registration-portal/platform/go/logging"
)

// RequestActor populates the context with a request-scoped Actor so services
// can run access checks and stamp audit fields. It must run after the JWT
// middleware so credentials are available when present.
func RequestActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := platformlogging.FromRequest(r, nil)
		requestID, _ := r.Context().Value(middleware.RequestIDKey).(string)

		var a actor.Actor
		if creds, ok := platformauth.UserFromContext(r.Context()); ok && creds != nil {
			var err error
			a, err = actor.FromCredentials(creds.AccountID, creds.Email, creds.IsAdmin(), requestID)
			if err != nil {
				if logger != nil {
					logger.Error("build actor from credentials", zap.Error(err))
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		} else {
			a = actor.Anonymous(requestID)
		}

		ctx := actor.IntoContext(r.Context(), a)
		if logger != nil {
			fields := []zap.Field{zap.String("actor_kind", string(a.Kind))}
			if a.AccountID != uuid.Nil {
				fields = append(fields, zap.String("account_id", a.AccountID.String()))
			}
			logger = logger.With(fields...)
			ctx = platformlogging.WithLogger(ctx, logger)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
