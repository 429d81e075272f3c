package connector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"
	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/api"
	"github.com/tkrehbiel/fedlace/connector/storage"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

// Client holds what every connection in the process shares: the throttle
// deadlines, per host politeness limiters, the actor cache and storage.
type Client struct {
	Config Config
	HTTP   *http.Client // base transport, never carries credentials

	store     storage.Database
	throttler *Throttler
	limiter   *hostLimiter
	actors    *ccache.Cache[activity.Actor]
}

// NewClient opens the database. A nil throttle store gets an in-memory one.
func NewClient(cfg Config, store storage.Database, throttles ThrottleStore) (*Client, error) {
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	telemetry.SetTrace(cfg.Trace)
	return &Client{
		Config: cfg,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
		store:     store,
		throttler: NewThrottler(throttles),
		limiter:   newHostLimiter(cfg.RequestsPerSecond),
		actors:    ccache.New(ccache.Configure[activity.Actor]().MaxSize(cfg.ActorCacheSize)),
	}, nil
}

// Close releases the database and reports counters.
func (c *Client) Close() {
	c.actors.Stop()
	c.store.Close()
	telemetry.LogCounters()
}

// oauthContext makes token requests go through the base transport.
func (c *Client) oauthContext() context.Context {
	return context.WithValue(context.Background(), oauth2.HTTPClient, c.HTTP)
}

// userClient carries the account's own bearer token to its home server,
// refreshing it when a token endpoint is known.
func (c *Client) userClient(acct AccountConfig) *http.Client {
	if acct.AccessToken == "" {
		return c.HTTP
	}
	cfg := oauth2.Config{
		ClientID:     acct.ClientID,
		ClientSecret: acct.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: acct.TokenURL},
	}
	token := &oauth2.Token{
		AccessToken:  acct.AccessToken,
		RefreshToken: acct.RefreshToken,
		TokenType:    "Bearer",
	}
	if acct.TokenURL == "" {
		return oauth2.NewClient(c.oauthContext(), oauth2.StaticTokenSource(token))
	}
	return cfg.Client(c.oauthContext(), token)
}

// appClient authenticates as the registered application on a foreign host.
func (c *Client) appClient(keys api.ClientKeys) *http.Client {
	if keys.TokenEndpoint == "" {
		return c.HTTP
	}
	cfg := clientcredentials.Config{
		ClientID:     keys.ClientID,
		ClientSecret: keys.ClientSecret,
		TokenURL:     keys.TokenEndpoint,
		Scopes:       []string{"read"},
	}
	return cfg.Client(c.oauthContext())
}

// hostLimiter spaces requests to each host; servers ban clients that burst.
type hostLimiter struct {
	lock  sync.Mutex
	limit rate.Limit
	hosts map[string]*rate.Limiter
}

func newHostLimiter(perSecond float64) *hostLimiter {
	if perSecond <= 0 {
		return nil
	}
	return &hostLimiter{limit: rate.Limit(perSecond), hosts: make(map[string]*rate.Limiter)}
}

func (h *hostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil {
		return nil
	}
	host = strings.ToLower(host)
	h.lock.Lock()
	l, ok := h.hosts[host]
	if !ok {
		l = rate.NewLimiter(h.limit, 1)
		h.hosts[host] = l
	}
	h.lock.Unlock()
	return l.Wait(ctx)
}
