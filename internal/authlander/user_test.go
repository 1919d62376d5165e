package authlander_test

import (
	"context"
	"testing"
	"time"

	"github.com/skybi/gatekeeper/internal/authlander"
	"github.com/skybi/gatekeeper/internal/authlander/authlandertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser(t *testing.T) {
	server := authlandertest.NewServer(t)
	server.PutUser("u-1", authlandertest.UserRecord{
		Scopes:      authlander.Scopes{Scopes: []string{"read", "write"}, IsActive: true},
		Description: authlander.UserDescription{Active: true, Name: authlandertest.String("Jane")},
		Token: authlander.AccessToken{
			AccessToken: authlandertest.String("ya29.token"),
			Expiry:      authlandertest.Int64(1700000000),
			Active:      true,
		},
	})
	server.PutUser("u-2", authlandertest.UserRecord{
		Scopes: authlander.Scopes{IsActive: false},
		Token:  authlander.AccessToken{Active: true},
	})
	client := authlander.NewClient()

	t.Run("scopes", func(t *testing.T) {
		scopes, err := authlander.NewUser(client, "u-1", server.URI()).Scopes(context.Background())
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"write", "read"}, scopes.Scopes)
		require.True(t, scopes.IsActive)
	})

	t.Run("describe", func(t *testing.T) {
		description, err := authlander.NewUser(client, "u-1", server.URI()).Describe(context.Background())
		require.NoError(t, err)
		require.True(t, description.Active)
		require.Equal(t, "Jane", *description.Name)
		require.Nil(t, description.Email)
	})

	t.Run("token forwards the credential", func(t *testing.T) {
		token, err := authlander.NewUser(client, "u-1", server.URI()).Token(context.Background(), "sess-abc")
		require.NoError(t, err)
		require.True(t, token.Issued())
		require.Equal(t, "ya29.token", *token.AccessToken)
		require.Contains(t, server.TokenAuthorizations(), "sess-abc")
	})

	t.Run("no token issued", func(t *testing.T) {
		token, err := authlander.NewUser(client, "u-2", server.URI()).Token(context.Background(), "sess-abc")
		require.NoError(t, err)
		require.True(t, token.Active)
		require.False(t, token.Issued())
		require.Nil(t, token.OAuth2Token())
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := authlander.NewUser(client, "ghost", server.URI()).Scopes(context.Background())
		require.ErrorIs(t, err, authlander.ErrRequestFailed)
	})

	t.Run("token source", func(t *testing.T) {
		token, err := authlander.NewUser(client, "u-1", server.URI()).TokenSource(context.Background(), "sess-abc").Token()
		require.NoError(t, err)
		require.Equal(t, "ya29.token", token.AccessToken)
		require.Equal(t, "Bearer", token.TokenType)
		require.Equal(t, time.Unix(1700000000, 0), token.Expiry)

		_, err = authlander.NewUser(client, "u-2", server.URI()).TokenSource(context.Background(), "sess-abc").Token()
		require.ErrorIs(t, err, authlander.ErrNoAccessToken)
	})
}

func TestScopes_Has(t *testing.T) {
	scopes := &authlander.Scopes{Scopes: []string{"a", "b", "b"}}

	assert.True(t, scopes.Has())
	assert.True(t, scopes.Has("a"))
	assert.True(t, scopes.Has("b", "a", "a"))
	assert.False(t, scopes.Has("a", "c"))
	assert.False(t, (&authlander.Scopes{}).Has("a"))
	assert.True(t, (&authlander.Scopes{}).Has())
}

func TestAccessToken_OAuth2Token(t *testing.T) {
	t.Run("without expiry", func(t *testing.T) {
		token := (&authlander.AccessToken{AccessToken: authlandertest.String("tok"), Active: true}).OAuth2Token()
		require.NotNil(t, token)
		require.True(t, token.Expiry.IsZero())
		require.True(t, token.Valid())
	})

	t.Run("inactive", func(t *testing.T) {
		token := &authlander.AccessToken{AccessToken: authlandertest.String("tok"), Active: false}
		require.False(t, token.Issued())
		require.Nil(t, token.OAuth2Token())
	})
}
