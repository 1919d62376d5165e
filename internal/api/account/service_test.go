package account

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skybi/gatekeeper/internal/api/schema"
	"github.com/skybi/gatekeeper/internal/audit"
	"github.com/skybi/gatekeeper/internal/authlander"
	"github.com/skybi/gatekeeper/internal/authlander/authlandertest"
	"github.com/skybi/gatekeeper/internal/config"
	"github.com/skybi/gatekeeper/internal/storage/inmem"
	"github.com/skybi/gatekeeper/internal/verification"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	authlander *authlandertest.Server
	handler    http.Handler
}

func putSession(server *authlandertest.Server, id, userID string, record authlandertest.UserRecord) {
	server.PutSession(id, authlandertest.SessionRecord{
		Check: authlander.Check{SessionValid: true, Active: true},
		Description: authlander.SessionDescription{
			Active: true,
			UserID: authlandertest.String(userID),
			Expiry: authlandertest.Int64(1700000000),
		},
	})
	server.PutUser(userID, record)
}

func newFixture(t *testing.T, withAudit bool) *fixture {
	server := authlandertest.NewServer(t)
	putSession(server, "sess-admin", "u-admin", authlandertest.UserRecord{
		Scopes:      authlander.Scopes{Scopes: []string{ScopeMintToken, ScopeReadAudit}, IsActive: true},
		Description: authlander.UserDescription{Active: true, Name: authlandertest.String("Ada")},
		Token: authlander.AccessToken{
			AccessToken: authlandertest.String("ya29.minted"),
			Expiry:      authlandertest.Int64(1700003600),
			Active:      true,
		},
	})
	putSession(server, "sess-minter", "u-minter", authlandertest.UserRecord{
		Scopes: authlander.Scopes{Scopes: []string{ScopeMintToken}, IsActive: true},
		Token:  authlander.AccessToken{Active: true},
	})
	putSession(server, "sess-basic", "u-basic", authlandertest.UserRecord{
		Scopes: authlander.Scopes{IsActive: true},
	})

	service := &Service{
		Config: &config.Config{AllowedOrigins: []string{"https://*"}},
		Verifier: &verification.Verifier{
			Client:    authlander.NewClient(),
			ServerURI: server.URI(),
		},
	}
	if withAudit {
		driver := inmem.New()
		require.NoError(t, driver.Initialize(context.Background()))
		t.Cleanup(driver.Close)
		service.Audit = driver.Audit()
	}

	return &fixture{
		authlander: server,
		handler:    service.Handler(),
	}
}

func (fixture *fixture) get(target, authorization string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodGet, target, nil)
	if authorization != "" {
		request.Header.Set("Authorization", authorization)
	}
	recorder := httptest.NewRecorder()
	fixture.handler.ServeHTTP(recorder, request)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) *T {
	value := new(T)
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), value))
	return value
}

func requireError(t *testing.T, recorder *httptest.ResponseRecorder, status int, errType string) {
	require.Equal(t, status, recorder.Code)
	response := decode[schema.ErrorResponse](t, recorder)
	require.Equal(t, status, response.Status)
	require.NotEmpty(t, response.Errors)
	require.Equal(t, errType, response.Errors[0].Type)
}

func TestEndpointGetMe(t *testing.T) {
	fixture := newFixture(t, false)

	t.Run("describes the caller", func(t *testing.T) {
		recorder := fixture.get("/v1/me", "sess-admin")
		require.Equal(t, http.StatusOK, recorder.Code)

		response := decode[meResponse](t, recorder)
		require.Equal(t, "u-admin", response.UserID)
		require.Equal(t, int64(1700000000), *response.Session.Expiry)
		require.Equal(t, "Ada", *response.User.Name)
		require.NotContains(t, recorder.Body.String(), "sess-admin")
	})

	t.Run("requires a session", func(t *testing.T) {
		requireError(t, fixture.get("/v1/me", ""), http.StatusUnauthorized, "access.missingAuthorization")
		requireError(t, fixture.get("/v1/me", "sess-unknown"), http.StatusServiceUnavailable, "access.verificationUnavailable")
	})

	t.Run("upstream failure after verification", func(t *testing.T) {
		fixture := newFixture(t, false)
		fixture.authlander.Fail(authlandertest.EndpointUserDescribe, http.StatusInternalServerError, "", -1)
		requireError(t, fixture.get("/v1/me", "sess-admin"), http.StatusBadGateway, "generic.upstreamUnavailable")
	})

	t.Run("malformed verification responses fail closed", func(t *testing.T) {
		for _, body := range []string{`null`, `{}`, `{"is_active":true}`} {
			fixture := newFixture(t, false)
			fixture.authlander.Fail(authlandertest.EndpointUserScopes, 0, body, -1)
			requireError(t, fixture.get("/v1/me", "sess-basic"), http.StatusServiceUnavailable, "access.verificationUnavailable")
		}
	})
}

func TestEndpointGetScopes(t *testing.T) {
	fixture := newFixture(t, false)

	recorder := fixture.get("/v1/me/scopes", "sess-admin")
	require.Equal(t, http.StatusOK, recorder.Code)
	scopes := decode[authlander.Scopes](t, recorder)
	require.ElementsMatch(t, []string{ScopeMintToken, ScopeReadAudit}, scopes.Scopes)
	require.True(t, scopes.IsActive)

	recorder = fixture.get("/v1/me/scopes", "sess-basic")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"scopes":[],"is_active":true}`, recorder.Body.String())
}

func TestEndpointGetToken(t *testing.T) {
	fixture := newFixture(t, false)

	t.Run("mints a token with the caller's credential", func(t *testing.T) {
		recorder := fixture.get("/v1/me/token", "sess-admin")
		require.Equal(t, http.StatusOK, recorder.Code)
		require.Equal(t, "no-store", recorder.Header().Get("Cache-Control"))

		var token struct {
			AccessToken string `json:"access_token"`
			TokenType   string `json:"token_type"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &token))
		require.Equal(t, "ya29.minted", token.AccessToken)
		require.Equal(t, "Bearer", token.TokenType)
		require.Equal(t, []string{"sess-admin"}, fixture.authlander.TokenAuthorizations())
	})

	t.Run("no token issued", func(t *testing.T) {
		requireError(t, fixture.get("/v1/me/token", "sess-minter"), http.StatusNotFound, "account.token.notIssued")
	})

	t.Run("requires the mint scope", func(t *testing.T) {
		before := fixture.authlander.Requests(authlandertest.EndpointTokenGet)
		requireError(t, fixture.get("/v1/me/token", "sess-basic"), http.StatusForbidden, "access.forbidden")
		require.Equal(t, before, fixture.authlander.Requests(authlandertest.EndpointTokenGet))
	})
}

func TestEndpointGetAudit(t *testing.T) {
	t.Run("lists recorded checks", func(t *testing.T) {
		fixture := newFixture(t, true)
		fixture.get("/v1/me", "sess-basic")
		fixture.get("/v1/me/token", "sess-basic")
		fixture.get("/v1/me", "")

		recorder := fixture.get("/v1/audit?limit=2", "sess-admin")
		require.Equal(t, http.StatusOK, recorder.Code)
		response := decode[schema.PaginatedResponse[*audit.Entry]](t, recorder)
		require.Equal(t, uint64(4), response.Pagination.TotalCount)
		require.Equal(t, 2, response.Pagination.IncludedCount)
		require.True(t, response.Pagination.HasMore)

		recorder = fixture.get("/v1/audit?outcome=forbidden", "sess-admin")
		require.Equal(t, http.StatusOK, recorder.Code)
		response = decode[schema.PaginatedResponse[*audit.Entry]](t, recorder)
		require.Len(t, response.Data, 1)
		require.Equal(t, "/v1/me/token", response.Data[0].Path)
		require.Equal(t, []string{ScopeMintToken}, response.Data[0].RequiredScopes)
		require.Nil(t, response.Data[0].UserID)

		recorder = fixture.get("/v1/audit?user_id=u-basic", "sess-admin")
		require.Equal(t, http.StatusOK, recorder.Code)
		response = decode[schema.PaginatedResponse[*audit.Entry]](t, recorder)
		require.Len(t, response.Data, 1)
		require.Equal(t, audit.OutcomeGranted, response.Data[0].Outcome)
	})

	t.Run("validates the query", func(t *testing.T) {
		fixture := newFixture(t, true)
		recorder := fixture.get("/v1/audit?outcome=nope&limit=1000", "sess-admin")
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		response := decode[schema.ErrorResponse](t, recorder)
		require.Len(t, response.Errors, 2)
	})

	t.Run("requires the audit scope", func(t *testing.T) {
		fixture := newFixture(t, true)
		requireError(t, fixture.get("/v1/audit", "sess-minter"), http.StatusForbidden, "access.forbidden")
	})

	t.Run("not served without an audit repository", func(t *testing.T) {
		fixture := newFixture(t, false)
		requireError(t, fixture.get("/v1/audit", "sess-admin"), http.StatusNotFound, "generic.notFound")
	})
}

func TestService_Routing(t *testing.T) {
	fixture := newFixture(t, false)

	requireError(t, fixture.get("/v2/unknown", "sess-admin"), http.StatusNotFound, "generic.notFound")

	request := httptest.NewRequest(http.MethodPost, "/v1/me", nil)
	recorder := httptest.NewRecorder()
	fixture.handler.ServeHTTP(recorder, request)
	requireError(t, recorder, http.StatusMethodNotAllowed, "generic.methodNotAllowed")
}

func TestService_Startup(t *testing.T) {
	newService := func(address string) *Service {
		return &Service{
			Config: &config.Config{ListenAddress: address},
			Verifier: &verification.Verifier{
				Client:    authlander.NewClient(),
				ServerURI: "http://127.0.0.1:1",
			},
		}
	}

	t.Run("server is set up before startup returns", func(t *testing.T) {
		service := newService("127.0.0.1:0")
		errs := make(chan error, 1)

		service.Startup(errs)
		require.NotNil(t, service.server)

		service.Shutdown()
		require.Nil(t, service.server)

		select {
		case err := <-errs:
			t.Fatalf("unexpected serving error: %v", err)
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("serving errors are reported", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer listener.Close()

		service := newService(listener.Addr().String())
		errs := make(chan error, 1)
		service.Startup(errs)
		defer service.Shutdown()

		select {
		case err := <-errs:
			require.Error(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("expected the occupied address to be reported")
		}
	})
}
