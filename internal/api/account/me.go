package account

import (
	"errors"
	"net/http"

	"github.com/skybi/gatekeeper/internal/api/gate"
	"github.com/skybi/gatekeeper/internal/api/schema"
	"github.com/skybi/gatekeeper/internal/authlander"
)

var errTokenNotIssued = &schema.Error{
	Type:    "account.token.notIssued",
	Message: "The authentication server has currently no access token issued for you.",
	Details: map[string]interface{}{},
}

type meResponse struct {
	UserID  string                         `json:"user_id"`
	Session *authlander.SessionDescription `json:"session"`
	User    *authlander.UserDescription    `json:"user"`
}

// EndpointGetMe handles the 'GET /v1/me' endpoint
func (service *Service) EndpointGetMe(writer http.ResponseWriter, request *http.Request) {
	check, ok := gate.SessionCheckFromContext(request.Context())
	if !ok {
		service.writer.WriteInternalError(writer, errors.New("caller information requested without session verification"))
		return
	}

	session, err := check.Session.Describe(request.Context())
	if err != nil {
		service.writeUpstreamError(writer, request, err)
		return
	}
	user, err := check.User.Describe(request.Context())
	if err != nil {
		service.writeUpstreamError(writer, request, err)
		return
	}

	service.writer.WriteJSON(writer, &meResponse{
		UserID:  check.User.ID,
		Session: session,
		User:    user,
	})
}

// EndpointGetScopes handles the 'GET /v1/me/scopes' endpoint
func (service *Service) EndpointGetScopes(writer http.ResponseWriter, request *http.Request) {
	check, ok := gate.SessionCheckFromContext(request.Context())
	if !ok {
		service.writer.WriteInternalError(writer, errors.New("scopes requested without session verification"))
		return
	}

	scopes, err := check.User.Scopes(request.Context())
	if err != nil {
		service.writeUpstreamError(writer, request, err)
		return
	}
	if scopes.Scopes == nil {
		scopes.Scopes = []string{}
	}
	service.writer.WriteJSON(writer, scopes)
}

// EndpointGetToken handles the 'GET /v1/me/token' endpoint.
// The caller's own credential is forwarded to the Authlander server to mint the token.
func (service *Service) EndpointGetToken(writer http.ResponseWriter, request *http.Request) {
	check, ok := gate.SessionCheckFromContext(request.Context())
	if !ok {
		service.writer.WriteInternalError(writer, errors.New("token requested without session verification"))
		return
	}

	token, err := check.User.TokenSource(request.Context(), check.Session.ID).Token()
	if err != nil {
		if errors.Is(err, authlander.ErrNoAccessToken) {
			service.writer.WriteErrors(writer, http.StatusNotFound, errTokenNotIssued)
			return
		}
		service.writeUpstreamError(writer, request, err)
		return
	}
	writer.Header().Set("Cache-Control", "no-store")
	service.writer.WriteJSON(writer, token)
}
