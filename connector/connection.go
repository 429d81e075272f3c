package connector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/api"
)

// Connection talks for one account to one host. The account's home
// connection hands out clones for foreign hosts; a clone has its own
// origin and client keys and never shares them with other hosts.
// A Connection runs one request at a time.
type Connection struct {
	client   *Client
	account  AccountConfig
	protocol Protocol
	origin   *url.URL
	keys     api.ClientKeys
	http     *http.Client
	signer   *requestSigner

	// Actor is the account's own actor.
	Actor activity.Actor

	home  *Connection // nil on the home connection
	lock  sync.Mutex
	hosts map[string]*Connection
}

// Connect creates the home connection of a configured account.
func (c *Client) Connect(name string) (*Connection, error) {
	acct, ok := c.Config.Account(name)
	if !ok {
		return nil, fmt.Errorf("no account named %q", name)
	}
	protocol, err := NewProtocol(acct.Protocol, acct.Name)
	if err != nil {
		return nil, err
	}
	origin, err := acct.OriginURL()
	if err != nil {
		return nil, err
	}
	conn := &Connection{
		client:   c,
		account:  acct,
		protocol: protocol,
		origin:   origin,
		keys: api.ClientKeys{
			ClientID:      acct.ClientID,
			ClientSecret:  acct.ClientSecret,
			TokenEndpoint: acct.TokenURL,
		},
		http:  c.userClient(acct),
		Actor: activity.NewActor(acct.Name, acct.Actor),
		hosts: make(map[string]*Connection),
	}
	if acct.PrivateKey != "" {
		pemBytes, err := os.ReadFile(acct.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("reading private key of account %s: %w", acct.Name, err)
		}
		conn.signer, err = newRequestSigner(pemBytes, acct.PublicKeyID)
		if err != nil {
			return nil, fmt.Errorf("private key of account %s: %w", acct.Name, err)
		}
	}
	return conn, nil
}

func (c *Connection) Protocol() Protocol {
	return c.protocol
}

// Host is the host this connection is configured for.
func (c *Connection) Host() string {
	return c.origin.Host
}

// hasCredentials is true when requests to the origin can be authorized:
// the account's token on its home server, registered client keys elsewhere.
func (c *Connection) hasCredentials() bool {
	if c.home == nil && c.account.AccessToken != "" {
		return true
	}
	return c.keys.AreValid()
}

func (c *Connection) homeConnection() *Connection {
	if c.home != nil {
		return c.home
	}
	return c
}

func sameHost(a, b *url.URL) bool {
	return strings.EqualFold(a.Host, b.Host)
}

// forHost returns the connection configured for the host of u, cloning
// the home configuration on first contact. The clone drops the home
// client keys and gets its own, from storage or by registering.
func (c *Connection) forHost(ctx context.Context, u *url.URL) (*Connection, error) {
	if sameHost(c.origin, u) {
		if err := c.ensureCredentials(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
	home := c.homeConnection()
	if sameHost(home.origin, u) {
		return home.forHost(ctx, u)
	}

	host := strings.ToLower(u.Host)
	home.lock.Lock()
	defer home.lock.Unlock()
	if conn, ok := home.hosts[host]; ok {
		return conn, nil
	}
	clone := &Connection{
		client:   c.client,
		account:  c.account,
		protocol: c.protocol,
		origin:   &url.URL{Scheme: u.Scheme, Host: u.Host},
		http:     c.client.HTTP,
		signer:   c.signer,
		Actor:    home.Actor,
		home:     home,
	}
	if err := clone.ensureCredentials(ctx); err != nil {
		return nil, err
	}
	home.hosts[host] = clone
	return clone, nil
}
