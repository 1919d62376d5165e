// Package verification implements the session check gating privileged operations.
//
// A check runs strictly sequentially and stops at the first failure:
//
//	Authorization header -> session check -> user resolution -> scope lookup -> scope enforcement
//
// Remote failures collapse into KindInternal; their cause stays attached to the returned *Error for logging.
package verification

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/skybi/gatekeeper/internal/authlander"
)

const headerAuthorization = "Authorization"

var errNoClient = errors.New("no Authlander client configured")

// Headers provides case-insensitive access to request headers.
// http.Header implements it.
type Headers interface {
	Values(key string) []string
}

// SessionCheck is the result of a successful session check
type SessionCheck struct {
	Session authlander.Session
	User    authlander.User
}

// Verifier checks sessions against an Authlander server.
// It holds no per-check state and is safe for concurrent use.
type Verifier struct {
	Client    *authlander.Client
	ServerURI string

	// RequireActiveUser additionally rejects users whose account is flagged inactive with KindInvalidSession
	RequireActiveUser bool
}

// CheckSession checks the session of a request using a one-off Verifier
func CheckSession(ctx context.Context, client *authlander.Client, headers Headers, serverURI string, scopes []string) (*SessionCheck, error) {
	verifier := &Verifier{
		Client:    client,
		ServerURI: serverURI,
	}
	return verifier.CheckSession(ctx, headers, scopes...)
}

// CheckSession verifies that the Authorization header carries the identifier of a valid and active session whose
// user holds every one of the given scopes.
// Failures are returned as *Error.
func (verifier *Verifier) CheckSession(ctx context.Context, headers Headers, scopes ...string) (*SessionCheck, error) {
	logger := log.Ctx(ctx)

	// Extract the session identifier out of the 'Authorization' header.
	// The header value is the identifier itself, no authentication scheme is expected
	id, err := extractCredential(headers)
	if err != nil {
		return nil, err
	}
	if verifier.Client == nil {
		return nil, internalError(errNoClient)
	}

	// Check whether the session is valid and active
	session := authlander.NewSession(verifier.Client, id, verifier.ServerURI)
	check, err := session.Check(ctx)
	if err != nil {
		logger.Debug().Err(err).Msg("could not check session")
		return nil, internalError(err)
	}
	if !check.SessionValid || !check.Active {
		return nil, ErrInvalidSession
	}

	// Resolve the user the session belongs to
	user, err := session.User(ctx)
	if err != nil {
		logger.Debug().Err(err).Msg("could not resolve session user")
		return nil, internalError(err)
	}
	if user == nil {
		logger.Debug().Msg("valid session is not linked to a user")
		return nil, internalError(ErrNoLinkedUser)
	}

	// Fetch the scopes granted to the user
	granted, err := user.Scopes(ctx)
	if err != nil {
		logger.Debug().Err(err).Str("user_id", user.ID).Msg("could not fetch user scopes")
		return nil, internalError(err)
	}
	if verifier.RequireActiveUser && !granted.IsActive {
		logger.Debug().Str("user_id", user.ID).Msg("user account is inactive")
		return nil, ErrInvalidSession
	}
	// Verify that every required scope is granted
	if !granted.Has(scopes...) {
		return nil, ErrMissingScopes
	}

	return &SessionCheck{
		Session: session,
		User:    *user,
	}, nil
}

func extractCredential(headers Headers) (string, error) {
	if headers == nil {
		return "", ErrMissingAuthHeader
	}
	values := headers.Values(headerAuthorization)
	if len(values) == 0 {
		return "", ErrMissingAuthHeader
	}
	value := values[0]
	if !isVisibleASCII(value) {
		return "", ErrAuthHeaderNonASCII
	}
	return value, nil
}

// isVisibleASCII reports whether value consists of visible ASCII characters and tabs only
func isVisibleASCII(value string) bool {
	for i := 0; i < len(value); i++ {
		char := value[i]
		if char != '\t' && (char < 0x20 || char > 0x7e) {
			return false
		}
	}
	return true
}
