package authlander

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

const (
	endpointUserScopes   = "/user/scopes/"
	endpointUserDescribe = "/user/describe/"
	endpointTokenGet     = "/token/get/"
)

// ErrNoAccessToken is returned by a TokenSource if the server currently has no access token issued for the user
var ErrNoAccessToken = errors.New("no access token issued")

// User represents a user identifier bound to an Authlander server.
// Creating one does not check whether the user exists; a missing user surfaces as a failed request.
type User struct {
	ID  string `json:"id"`
	URI string `json:"-"`

	client *Client
}

// Scopes represents the scopes granted to a user
type Scopes struct {
	Scopes   []string `json:"scopes"`
	IsActive bool     `json:"is_active"`
}

// UserDescription represents the profile of a user
type UserDescription struct {
	Active  bool    `json:"active"`
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Picture *string `json:"picture,omitempty"`
}

// AccessToken represents a third-party OAuth2 access token minted by the server on behalf of a user.
// An active token without AccessToken means that no token is currently issued.
type AccessToken struct {
	AccessToken *string `json:"access_token,omitempty"`
	Expiry      *int64  `json:"expiry,omitempty"`
	Active      bool    `json:"active"`
}

// NewUser binds the user identifier id to the Authlander server at serverURI
func NewUser(client *Client, id, serverURI string) User {
	return User{
		ID:     id,
		URI:    serverURI,
		client: client,
	}
}

// Equal reports whether both users refer to the same identifier on the same server
func (user User) Equal(other User) bool {
	return user.ID == other.ID && user.URI == other.URI
}

// Scopes retrieves the scopes granted to the user
func (user User) Scopes(ctx context.Context) (*Scopes, error) {
	scopes := new(Scopes)
	if err := user.client.Get(ctx, user.URI, endpointUserScopes, user.ID, scopes); err != nil {
		return nil, err
	}
	return scopes, nil
}

// Describe retrieves the user profile
func (user User) Describe(ctx context.Context) (*UserDescription, error) {
	description := new(UserDescription)
	if err := user.client.Get(ctx, user.URI, endpointUserDescribe, user.ID, description); err != nil {
		return nil, err
	}
	return description, nil
}

// Token asks the server for an OAuth2 access token of the user, forwarding credential as the Authorization header.
// The server may mint a new token for this call, so it is never retried.
func (user User) Token(ctx context.Context, credential string) (*AccessToken, error) {
	token := new(AccessToken)
	err := user.client.Get(ctx, user.URI, endpointTokenGet, user.ID, token,
		WithHeader("Authorization", credential),
		WithoutRetry(),
	)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// TokenSource returns an oauth2.TokenSource minting tokens through Token.
// Every call reaches the server; wrap it using oauth2.ReuseTokenSource to reuse valid tokens.
func (user User) TokenSource(ctx context.Context, credential string) oauth2.TokenSource {
	return &tokenSource{
		ctx:        ctx,
		user:       user,
		credential: credential,
	}
}

type tokenSource struct {
	ctx        context.Context
	user       User
	credential string
}

func (source *tokenSource) Token() (*oauth2.Token, error) {
	token, err := source.user.Token(source.ctx, source.credential)
	if err != nil {
		return nil, err
	}
	converted := token.OAuth2Token()
	if converted == nil {
		return nil, ErrNoAccessToken
	}
	return converted, nil
}

// Has returns whether every one of the required scopes is granted.
// An empty requirement is always satisfied.
func (scopes *Scopes) Has(required ...string) bool {
	granted := make(map[string]struct{}, len(scopes.Scopes))
	for _, scope := range scopes.Scopes {
		granted[scope] = struct{}{}
	}
	for _, scope := range required {
		if _, ok := granted[scope]; !ok {
			return false
		}
	}
	return true
}

// Issued returns whether the token is active and carries an access token
func (token *AccessToken) Issued() bool {
	return token.Active && token.AccessToken != nil && *token.AccessToken != ""
}

// OAuth2Token converts the token into its golang.org/x/oauth2 representation.
// It returns nil if no token is issued.
func (token *AccessToken) OAuth2Token() *oauth2.Token {
	if !token.Issued() {
		return nil
	}
	converted := &oauth2.Token{
		AccessToken: *token.AccessToken,
		TokenType:   "Bearer",
	}
	if token.Expiry != nil {
		converted.Expiry = time.Unix(*token.Expiry, 0)
	}
	return converted
}
