// Package gate guards HTTP handlers with Authlander session checks.
package gate

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/skybi/gatekeeper/internal/api/schema"
	"github.com/skybi/gatekeeper/internal/audit"
	"github.com/skybi/gatekeeper/internal/verification"
)

type contextKey struct{}

var contextValueCheck = contextKey{}

// Gate verifies the sessions of incoming requests
type Gate struct {
	Verifier *verification.Verifier
	Writer   *schema.Writer

	// Audit records every session check if set
	Audit audit.Repository
}

// SessionCheckFromContext extracts the session check injected by MiddlewareVerifySession
func SessionCheckFromContext(ctx context.Context) (*verification.SessionCheck, bool) {
	check, ok := ctx.Value(contextValueCheck).(*verification.SessionCheck)
	return check, ok
}

// MiddlewareLogger attaches a request-scoped logger carrying the request ID to the request context
func MiddlewareLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		logger := log.With().
			Str("request_id", middleware.GetReqID(request.Context())).
			Str("method", request.Method).
			Str("path", request.URL.Path).
			Logger()
		next.ServeHTTP(writer, request.WithContext(logger.WithContext(request.Context())))
	})
}

// MiddlewareVerifySession makes sure that the requesting client presents a valid session whose user holds all the
// given scopes.
// Additionally, it injects the session check into the request context.
func (gate *Gate) MiddlewareVerifySession(scopes ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()

			// Verify the session of the request and record the outcome
			check, err := gate.Verifier.CheckSession(ctx, request.Header, scopes...)
			gate.record(ctx, request, scopes, check, err)
			if err != nil {
				gate.writeFailure(writer, request, scopes, err)
				return
			}

			// Delegate to the next handler
			next(writer, request.WithContext(context.WithValue(ctx, contextValueCheck, check)))
		}
	}
}

func (gate *Gate) writeFailure(writer http.ResponseWriter, request *http.Request, scopes []string, err error) {
	switch verification.KindOf(err) {
	case verification.KindMissingAuthHeader:
		gate.Writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrMissingAuthorization)
	case verification.KindAuthHeaderNonASCII:
		gate.Writer.WriteErrors(writer, http.StatusBadRequest, schema.ErrMalformedAuthorization)
	case verification.KindInvalidSession:
		gate.Writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrInvalidSession)
	case verification.KindMissingScopes:
		gate.Writer.WriteErrors(writer, http.StatusForbidden, schema.ErrForbidden(scopes))
	default:
		log.Ctx(request.Context()).Error().Err(errors.Unwrap(err)).Msg("could not verify session")
		gate.Writer.WriteErrors(writer, http.StatusServiceUnavailable, schema.ErrVerificationUnavailable)
	}
}

func (gate *Gate) record(ctx context.Context, request *http.Request, scopes []string, check *verification.SessionCheck, err error) {
	if gate.Audit == nil {
		return
	}

	entry := audit.NewEntry(request.Method, request.URL.Path, outcomeOf(err), scopes)
	if check != nil {
		userID := check.User.ID
		entry.UserID = &userID
	}
	if cause := errors.Unwrap(err); cause != nil {
		entry.Cause = cause.Error()
	}

	if err := gate.Audit.Create(ctx, entry); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("could not record session check")
	}
}

func outcomeOf(err error) audit.Outcome {
	if err == nil {
		return audit.OutcomeGranted
	}
	switch verification.KindOf(err) {
	case verification.KindMissingAuthHeader:
		return audit.OutcomeMissingAuthorization
	case verification.KindAuthHeaderNonASCII:
		return audit.OutcomeMalformedAuthorization
	case verification.KindInvalidSession:
		return audit.OutcomeInvalidSession
	case verification.KindMissingScopes:
		return audit.OutcomeForbidden
	default:
		return audit.OutcomeUnavailable
	}
}
