package webfinger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrehbiel/fedlace/connector/data"
)

func TestParseAccount(t *testing.T) {
	for _, s := range []string{"bob@Example.com", "@bob@example.com", "acct:bob@example.com", " bob@example.com "} {
		a, err := ParseAccount(s)
		require.NoError(t, err, s)
		assert.Equal(t, Account{User: "bob", Host: "example.com"}, a, s)
	}
	for _, s := range []string{"bob", "https://example.com/users/bob", "a@b@c", ""} {
		_, err := ParseAccount(s)
		assert.Error(t, err, s)
	}
}

func TestAccountURI(t *testing.T) {
	a := Account{User: "bob", Host: "example.com"}
	assert.Equal(t, "acct:bob@example.com", a.String())
	assert.Equal(t, "https://example.com/.well-known/webfinger?resource=acct%3Abob%40example.com", a.URI())
}

func TestParseResource(t *testing.T) {
	n, err := data.ParseNode([]byte(`{
		"subject": "acct:bob@example.com",
		"aliases": ["https://example.com/@bob", "https://example.com/users/bob"],
		"links": [
			{"rel": "http://webfinger.net/rel/profile-page", "type": "text/html", "href": "https://example.com/@bob"},
			{"rel": "self", "type": "application/ld+json", "href": "https://example.com/ld/bob"},
			{"rel": "self", "type": "application/activity+json", "href": "https://example.com/users/bob"},
			{"rel": "http://ostatus.org/schema/1.0/subscribe", "template": "https://example.com/authorize_interaction?uri={uri}"}
		]}`))
	require.NoError(t, err)
	r, err := ParseResource(n)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/users/bob", r.Self)
	assert.Equal(t, "https://example.com/@bob", r.ProfilePage)
	assert.Len(t, r.Aliases, 2)

	_, err = ParseResource(data.Node{"subject": "acct:x@y"})
	assert.Error(t, err)
}
