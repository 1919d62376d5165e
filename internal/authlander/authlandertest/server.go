// Package authlandertest provides an in-memory Authlander server for tests.
package authlandertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/skybi/gatekeeper/internal/authlander"
)

// The endpoints served by Server
const (
	EndpointSessionCheck    = "/session/check/"
	EndpointSessionDescribe = "/session/describe/"
	EndpointUserScopes      = "/user/scopes/"
	EndpointUserDescribe    = "/user/describe/"
	EndpointTokenGet        = "/token/get/"
)

// SessionRecord holds the responses served for a session
type SessionRecord struct {
	Check       authlander.Check
	Description authlander.SessionDescription
}

// UserRecord holds the responses served for a user.
// A nil scope list is served as an empty one.
type UserRecord struct {
	Scopes      authlander.Scopes
	Description authlander.UserDescription
	Token       authlander.AccessToken
}

type fault struct {
	status    int
	body      string
	remaining int
}

// Server is a fake Authlander server.
// Unknown identifiers are answered with 404.
type Server struct {
	*httptest.Server

	mtx                 sync.Mutex
	sessions            map[string]SessionRecord
	users               map[string]UserRecord
	faults              map[string]*fault
	requests            map[string]int
	tokenAuthorizations []string
}

// NewServer starts a new fake Authlander server; it is closed when the test finishes
func NewServer(t interface{ Cleanup(func()) }) *Server {
	server := &Server{
		sessions: make(map[string]SessionRecord),
		users:    make(map[string]UserRecord),
		faults:   make(map[string]*fault),
		requests: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(EndpointSessionCheck, server.handle(EndpointSessionCheck, func(id string) (any, bool) {
		record, ok := server.sessions[id]
		return record.Check, ok
	}))
	mux.HandleFunc(EndpointSessionDescribe, server.handle(EndpointSessionDescribe, func(id string) (any, bool) {
		record, ok := server.sessions[id]
		return record.Description, ok
	}))
	mux.HandleFunc(EndpointUserScopes, server.handle(EndpointUserScopes, func(id string) (any, bool) {
		record, ok := server.users[id]
		scopes := record.Scopes
		if scopes.Scopes == nil {
			scopes.Scopes = []string{}
		}
		return scopes, ok
	}))
	mux.HandleFunc(EndpointUserDescribe, server.handle(EndpointUserDescribe, func(id string) (any, bool) {
		record, ok := server.users[id]
		return record.Description, ok
	}))
	mux.HandleFunc(EndpointTokenGet, server.handle(EndpointTokenGet, func(id string) (any, bool) {
		record, ok := server.users[id]
		return record.Token, ok
	}))

	server.Server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// URI returns the base URI of the server
func (server *Server) URI() string {
	return server.URL
}

// PutSession registers or replaces a session
func (server *Server) PutSession(id string, record SessionRecord) {
	server.mtx.Lock()
	defer server.mtx.Unlock()
	server.sessions[id] = record
}

// PutUser registers or replaces a user
func (server *Server) PutUser(id string, record UserRecord) {
	server.mtx.Lock()
	defer server.mtx.Unlock()
	server.users[id] = record
}

// Fail makes the given endpoint respond with status and body for the next n requests (n < 0 means forever).
// A zero status responds with 200, which is useful to serve malformed bodies.
func (server *Server) Fail(endpoint string, status int, body string, n int) {
	server.mtx.Lock()
	defer server.mtx.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	server.faults[endpoint] = &fault{status: status, body: body, remaining: n}
}

// Requests returns how many requests the given endpoint received
func (server *Server) Requests(endpoint string) int {
	server.mtx.Lock()
	defer server.mtx.Unlock()
	return server.requests[endpoint]
}

// TotalRequests returns how many requests the server received over all endpoints
func (server *Server) TotalRequests() int {
	server.mtx.Lock()
	defer server.mtx.Unlock()
	total := 0
	for _, n := range server.requests {
		total += n
	}
	return total
}

// TokenAuthorizations returns the Authorization header values received by the token endpoint
func (server *Server) TokenAuthorizations() []string {
	server.mtx.Lock()
	defer server.mtx.Unlock()
	return append([]string(nil), server.tokenAuthorizations...)
}

func (server *Server) handle(endpoint string, lookup func(id string) (any, bool)) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		server.mtx.Lock()
		defer server.mtx.Unlock()

		server.requests[endpoint]++
		if endpoint == EndpointTokenGet {
			server.tokenAuthorizations = append(server.tokenAuthorizations, request.Header.Get("Authorization"))
		}
		if request.Method != http.MethodGet {
			writer.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		if fault, ok := server.faults[endpoint]; ok && fault.remaining != 0 {
			if fault.remaining > 0 {
				fault.remaining--
			}
			writer.WriteHeader(fault.status)
			writer.Write([]byte(fault.body))
			return
		}

		value, ok := lookup(strings.TrimPrefix(request.URL.Path, endpoint))
		if !ok {
			writer.WriteHeader(http.StatusNotFound)
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		json.NewEncoder(writer).Encode(value)
	}
}

// String returns a pointer to the given string
func String(value string) *string {
	return &value
}

// Int64 returns a pointer to the given integer
func Int64(value int64) *int64 {
	return &value
}
