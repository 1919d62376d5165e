package authlander

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedResponse is matched by every error raised for a response body that does not carry the expected object
var ErrMalformedResponse = errors.New("malformed response")

var jsonNull = []byte("null")

type missingFieldError struct {
	field string
}

func (err *missingFieldError) Error() string {
	return fmt.Sprintf("required field '%s' is missing or null", err.field)
}

func (err *missingFieldError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// decodeObject decodes a JSON object into value and rejects a bare null
func decodeObject(data []byte, value any) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		return fmt.Errorf("%w: expected an object, got null", ErrMalformedResponse)
	}
	return json.Unmarshal(data, value)
}

// UnmarshalJSON decodes a session check; both flags are required
func (check *Check) UnmarshalJSON(data []byte) error {
	var raw struct {
		SessionValid *bool `json:"session_valid"`
		Active       *bool `json:"active"`
	}
	if err := decodeObject(data, &raw); err != nil {
		return err
	}
	if raw.SessionValid == nil {
		return &missingFieldError{field: "session_valid"}
	}
	if raw.Active == nil {
		return &missingFieldError{field: "active"}
	}
	check.SessionValid = *raw.SessionValid
	check.Active = *raw.Active
	return nil
}

type sessionDescription SessionDescription

// UnmarshalJSON decodes a session description; active is required
func (description *SessionDescription) UnmarshalJSON(data []byte) error {
	var raw struct {
		sessionDescription
		Active *bool `json:"active"`
	}
	if err := decodeObject(data, &raw); err != nil {
		return err
	}
	if raw.Active == nil {
		return &missingFieldError{field: "active"}
	}
	*description = SessionDescription(raw.sessionDescription)
	description.Active = *raw.Active
	return nil
}

// UnmarshalJSON decodes the granted scopes; an absent or null scope list is rejected
func (scopes *Scopes) UnmarshalJSON(data []byte) error {
	var raw struct {
		Scopes   *[]string `json:"scopes"`
		IsActive *bool     `json:"is_active"`
	}
	if err := decodeObject(data, &raw); err != nil {
		return err
	}
	if raw.Scopes == nil {
		return &missingFieldError{field: "scopes"}
	}
	if raw.IsActive == nil {
		return &missingFieldError{field: "is_active"}
	}
	scopes.Scopes = *raw.Scopes
	scopes.IsActive = *raw.IsActive
	return nil
}

type userDescription UserDescription

// UnmarshalJSON decodes a user description; active is required
func (description *UserDescription) UnmarshalJSON(data []byte) error {
	var raw struct {
		userDescription
		Active *bool `json:"active"`
	}
	if err := decodeObject(data, &raw); err != nil {
		return err
	}
	if raw.Active == nil {
		return &missingFieldError{field: "active"}
	}
	*description = UserDescription(raw.userDescription)
	description.Active = *raw.Active
	return nil
}

type accessToken AccessToken

// UnmarshalJSON decodes an access token response; active is required
func (token *AccessToken) UnmarshalJSON(data []byte) error {
	var raw struct {
		accessToken
		Active *bool `json:"active"`
	}
	if err := decodeObject(data, &raw); err != nil {
		return err
	}
	if raw.Active == nil {
		return &missingFieldError{field: "active"}
	}
	*token = AccessToken(raw.accessToken)
	token.Active = *raw.Active
	return nil
}
