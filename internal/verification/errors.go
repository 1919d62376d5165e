package verification

import "errors"

// Kind classifies why a session check failed
type Kind uint8

// The kinds of verification failures
const (
	// KindMissingAuthHeader means that the request does not carry an Authorization header
	KindMissingAuthHeader Kind = iota + 1
	// KindAuthHeaderNonASCII means that the Authorization header contains bytes other than visible ASCII
	KindAuthHeaderNonASCII
	// KindInvalidSession means that the session does not exist, has expired or is not active
	KindInvalidSession
	// KindMissingScopes means that the user lacks at least one of the required scopes
	KindMissingScopes
	// KindInternal means that the verification could not be completed
	KindInternal
)

// String returns the opaque, caller-facing description of the kind
func (kind Kind) String() string {
	switch kind {
	case KindMissingAuthHeader:
		return "missing authorization header"
	case KindAuthHeaderNonASCII:
		return "authorization header contains non-ASCII characters"
	case KindInvalidSession:
		return "invalid session"
	case KindMissingScopes:
		return "missing scopes"
	case KindInternal:
		return "internal error"
	default:
		return "unknown verification error"
	}
}

// Error is the error returned by a failed session check.
// Its message is limited to the Kind; the underlying cause is only reachable via errors.Unwrap and must not be
// exposed to the requesting client.
type Error struct {
	Kind  Kind
	cause error
}

// The sentinel errors to compare verification errors against using errors.Is
var (
	ErrMissingAuthHeader  = &Error{Kind: KindMissingAuthHeader}
	ErrAuthHeaderNonASCII = &Error{Kind: KindAuthHeaderNonASCII}
	ErrInvalidSession     = &Error{Kind: KindInvalidSession}
	ErrMissingScopes      = &Error{Kind: KindMissingScopes}
	ErrInternal           = &Error{Kind: KindInternal}
)

// ErrNoLinkedUser is the cause of an internal error raised for valid sessions without a user
var ErrNoLinkedUser = errors.New("session is not linked to a user")

func internalError(cause error) *Error {
	return &Error{Kind: KindInternal, cause: cause}
}

// Error implements the error interface
func (err *Error) Error() string {
	return err.Kind.String()
}

// Unwrap returns the underlying cause, if any
func (err *Error) Unwrap() error {
	return err.cause
}

// Is reports whether target is a verification error of the same kind
func (err *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Kind == err.Kind
}

// KindOf returns the kind of the verification error in err's chain or 0 if there is none
func KindOf(err error) Kind {
	var verificationErr *Error
	if errors.As(err, &verificationErr) {
		return verificationErr.Kind
	}
	return 0
}
