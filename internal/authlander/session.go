package authlander

import "context"

const (
	endpointSessionCheck    = "/session/check/"
	endpointSessionDescribe = "/session/describe/"
)

// Session represents a session identifier bound to an Authlander server.
// Creating one does not check whether the session exists.
type Session struct {
	ID  string `json:"id"`
	URI string `json:"-"`

	client *Client
}

// Check represents the result of a session check
type Check struct {
	SessionValid bool `json:"session_valid"`
	Active       bool `json:"active"`
}

// Usable returns whether the session exists, has not expired and is active
func (check *Check) Usable() bool {
	return check.SessionValid && check.Active
}

// SessionDescription represents the extended metadata of a session.
// UserID is nil if the session is not linked to any user.
type SessionDescription struct {
	Active  bool    `json:"active"`
	UserID  *string `json:"user_id,omitempty"`
	Expiry  *int64  `json:"expiry,omitempty"`
	Name    *string `json:"name,omitempty"`
	Picture *string `json:"picture,omitempty"`
	Email   *string `json:"email,omitempty"`
}

// NewSession binds the session identifier id to the Authlander server at serverURI
func NewSession(client *Client, id, serverURI string) Session {
	return Session{
		ID:     id,
		URI:    serverURI,
		client: client,
	}
}

// Equal reports whether both sessions refer to the same identifier on the same server
func (session Session) Equal(other Session) bool {
	return session.ID == other.ID && session.URI == other.URI
}

// Check asks the server whether the session is valid and active
func (session Session) Check(ctx context.Context) (*Check, error) {
	check := new(Check)
	if err := session.client.Get(ctx, session.URI, endpointSessionCheck, session.ID, check); err != nil {
		return nil, err
	}
	return check, nil
}

// Describe retrieves the session metadata
func (session Session) Describe(ctx context.Context) (*SessionDescription, error) {
	description := new(SessionDescription)
	if err := session.client.Get(ctx, session.URI, endpointSessionDescribe, session.ID, description); err != nil {
		return nil, err
	}
	return description, nil
}

// User resolves the user the session belongs to using a single Describe call.
// It returns nil without an error if the session is not linked to a user.
func (session Session) User(ctx context.Context) (*User, error) {
	description, err := session.Describe(ctx)
	if err != nil {
		return nil, err
	}
	if description.UserID == nil {
		return nil, nil
	}
	user := NewUser(session.client, *description.UserID, session.URI)
	return &user, nil
}
