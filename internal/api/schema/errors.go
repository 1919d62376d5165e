package schema

var emptyMap = map[string]interface{}{}

var (
	ErrInternal = &Error{
		Type:    "generic.internal",
		Message: "An internal error occurred.",
		Details: emptyMap,
	}
	ErrNotFound = &Error{
		Type:    "generic.notFound",
		Message: "Resource not found.",
		Details: emptyMap,
	}
	ErrMethodNotAllowed = &Error{
		Type:    "generic.methodNotAllowed",
		Message: "Method not allowed.",
		Details: emptyMap,
	}
	ErrUpstreamUnavailable = &Error{
		Type:    "generic.upstreamUnavailable",
		Message: "The authentication server could not be reached or answered unexpectedly.",
		Details: emptyMap,
	}
	ErrMissingAuthorization = &Error{
		Type:    "access.missingAuthorization",
		Message: "The 'Authorization' header is required but was not present in the request.",
		Details: emptyMap,
	}
	ErrMalformedAuthorization = &Error{
		Type:    "access.malformedAuthorization",
		Message: "The 'Authorization' header may only contain visible ASCII characters.",
		Details: emptyMap,
	}
	ErrInvalidSession = &Error{
		Type:    "access.invalidSession",
		Message: "The session is invalid, expired or inactive.",
		Details: emptyMap,
	}
	ErrVerificationUnavailable = &Error{
		Type:    "access.verificationUnavailable",
		Message: "The session could not be verified. Please try again later.",
		Details: emptyMap,
	}
)

// ErrForbidden builds the error sent whenever the requesting user lacks at least one of the required scopes
func ErrForbidden(required []string) *Error {
	if required == nil {
		required = []string{}
	}
	return &Error{
		Type:    "access.forbidden",
		Message: "You are not authorized to access this resource.",
		Details: map[string]interface{}{
			"required": required,
		},
	}
}

// ErrorResponse represents the response structure sent by the API whenever errors occurred
type ErrorResponse struct {
	Status int      `json:"status"`
	Errors []*Error `json:"errors"`
}

// Error represents a single error present in the ErrorResponse
type Error struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
}
