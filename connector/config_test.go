package connector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	const config = `{
		"trace": true,
		"requests_per_second": 2.5,
		"accounts": [
			{"name": "home", "protocol": "activitypub", "actor": "https://example.com/users/alice", "access_token": "abc"},
			{"name": "pump", "protocol": "pumpio", "actor": "acct:evan@e14n.com", "origin": "https://e14n.com"}
		],
		"feeds": [
			{"url": "https://blog.example.com/index.xml", "account": "home", "period_seconds": 60}
		]
	}`
	cfg, err := ReadConfig([]byte(config))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, "fedlace", cfg.AppName)
	assert.Equal(t, "urn:ietf:wg:oauth:2.0:oob", cfg.RedirectURI)
	assert.Equal(t, "fedlace.db", cfg.Database)
	assert.Equal(t, int64(1000), cfg.ActorCacheSize)
	assert.Equal(t, time.Hour, cfg.ActorCacheTTL())
	assert.True(t, cfg.Trace)
	assert.Equal(t, 2.5, cfg.RequestsPerSecond)

	home, ok := cfg.Account("home")
	require.True(t, ok)
	assert.Equal(t, "abc", home.AccessToken)
	origin, err := home.OriginURL()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", origin.String())

	pump, ok := cfg.Account("pump")
	require.True(t, ok)
	origin, err = pump.OriginURL()
	require.NoError(t, err)
	assert.Equal(t, "https://e14n.com", origin.String())

	_, ok = cfg.Account("nobody")
	assert.False(t, ok)

	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, time.Minute, cfg.Feeds[0].Period())
	assert.Equal(t, 5*time.Minute, FeedConfig{}.Period())
}

func TestReadConfig_Invalid(t *testing.T) {
	_, err := ReadConfig([]byte(`{"accounts": [}`))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{
		Accounts: []AccountConfig{
			{Name: "a", Protocol: "gopher", Actor: "https://example.com/users/a"},
			{Name: "a", Protocol: "activitypub", Actor: "https://example.com/users/b", PrivateKey: "key.pem"},
			{Protocol: "pumpio", Actor: "acct:evan@e14n.com"},
		},
		Feeds: []FeedConfig{{Account: "z"}},
	}
	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown protocol "gopher"`)
	assert.Contains(t, msg, "duplicate name")
	assert.Contains(t, msg, "private_key and public_key_id go together")
	assert.Contains(t, msg, "missing name")
	assert.Contains(t, msg, "not an absolute url")
	assert.Contains(t, msg, "missing url")
	assert.Contains(t, msg, `unknown account "z"`)
}
