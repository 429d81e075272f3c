package connector

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/tkrehbiel/fedlace/connector/activitypub"
	"github.com/tkrehbiel/fedlace/connector/pumpio"
)

// AccountConfig is one identity on its home server.
type AccountConfig struct {
	Name         string `json:"name"`
	Protocol     string `json:"protocol"`
	Actor        string `json:"actor"`            // actor id
	Origin       string `json:"origin,omitempty"` // home server url, defaults to the actor's host
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	TokenURL     string `json:"token_url,omitempty"`
	PrivateKey   string `json:"private_key,omitempty"` // pem file for signed fetch
	PublicKeyID  string `json:"public_key_id,omitempty"`
}

// OriginURL is where the account's server lives.
func (a AccountConfig) OriginURL() (*url.URL, error) {
	s := a.Origin
	if s == "" {
		s = a.Actor
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("origin of account %s: %w", a.Name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("origin of account %s: %q is not an absolute url", a.Name, s)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host}, nil
}

type FeedConfig struct {
	URL           string `json:"url"`
	Account       string `json:"account"`
	PeriodSeconds int    `json:"period_seconds,omitempty"`
}

func (f FeedConfig) Period() time.Duration {
	if f.PeriodSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(f.PeriodSeconds) * time.Second
}

type Config struct {
	AppName              string          `json:"app_name"`
	RedirectURI          string          `json:"redirect_uri"`
	Database             string          `json:"database"`
	Trace                bool            `json:"trace"`
	RequestsPerSecond    float64         `json:"requests_per_second"`
	ActorCacheSize       int64           `json:"actor_cache_size"`
	ActorCacheTTLSeconds int             `json:"actor_cache_ttl_seconds"`
	Accounts             []AccountConfig `json:"accounts"`
	Feeds                []FeedConfig    `json:"feeds"`
}

func (c Config) ActorCacheTTL() time.Duration {
	return time.Duration(c.ActorCacheTTLSeconds) * time.Second
}

// Account finds an account by name.
func (c Config) Account(name string) (AccountConfig, bool) {
	for _, a := range c.Accounts {
		if a.Name == name {
			return a, true
		}
	}
	return AccountConfig{}, false
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	names := make(map[string]bool)
	for i, a := range c.Accounts {
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("account %d: missing name", i))
		} else if names[a.Name] {
			errs = append(errs, fmt.Errorf("account %s: duplicate name", a.Name))
		}
		names[a.Name] = true
		switch a.Protocol {
		case activitypub.Name, pumpio.Name:
		default:
			errs = append(errs, fmt.Errorf("account %s: unknown protocol %q", a.Name, a.Protocol))
		}
		if a.Actor == "" {
			errs = append(errs, fmt.Errorf("account %s: missing actor", a.Name))
		} else if _, err := a.OriginURL(); err != nil {
			errs = append(errs, err)
		}
		if (a.PrivateKey == "") != (a.PublicKeyID == "") {
			errs = append(errs, fmt.Errorf("account %s: private_key and public_key_id go together", a.Name))
		}
	}
	for i, f := range c.Feeds {
		if f.URL == "" {
			errs = append(errs, fmt.Errorf("feed %d: missing url", i))
		}
		if !names[f.Account] {
			errs = append(errs, fmt.Errorf("feed %d: unknown account %q", i, f.Account))
		}
	}
	return errors.Join(errs...)
}

func ReadConfig(b []byte) (config Config, err error) {
	if uErr := json.Unmarshal(b, &config); uErr != nil {
		return config, uErr
	}
	if config.AppName == "" {
		config.AppName = "fedlace"
	}
	if config.RedirectURI == "" {
		config.RedirectURI = "urn:ietf:wg:oauth:2.0:oob"
	}
	if config.Database == "" {
		config.Database = "fedlace.db"
	}
	if config.ActorCacheSize <= 0 {
		config.ActorCacheSize = 1000
	}
	if config.ActorCacheTTLSeconds <= 0 {
		config.ActorCacheTTLSeconds = 3600
	}
	return config, nil
}
