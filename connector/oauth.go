package connector

import (
	"context"
	"errors"
	"fmt"

	"github.com/tkrehbiel/fedlace/connector/api"
	"github.com/tkrehbiel/fedlace/connector/storage"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
)

// ensureCredentials makes sure the connection can authorize requests to
// its host. Client keys come from storage or, on first contact with a
// host, from discovering its authorization server and registering.
func (c *Connection) ensureCredentials(ctx context.Context) error {
	if c.hasCredentials() {
		return nil
	}
	host := c.origin.Host
	stored, err := c.client.store.FindClientKeys(host, c.protocol.Name())
	if err != nil {
		return fmt.Errorf("loading client keys for %s: %w", host, err)
	}
	var bootErr error
	if stored != nil {
		c.keys = api.ClientKeys{
			ClientID:              stored.ClientID,
			ClientSecret:          stored.ClientSecret,
			RegistrationEndpoint:  stored.RegistrationEndpoint,
			AuthorizationEndpoint: stored.AuthorizationEndpoint,
			TokenEndpoint:         stored.TokenEndpoint,
		}
	} else {
		bootErr = c.bootstrap(ctx)
		if IsDelayed(bootErr) {
			return bootErr
		}
		if bootErr != nil {
			telemetry.Error(bootErr, "oauth bootstrap of %s", host)
		}
	}
	if !c.keys.AreValid() {
		return &ConnectionError{
			Status:  StatusNoCredentialsForHost,
			Message: "no client keys for host " + host,
			URI:     c.origin.String(),
			Err:     bootErr,
		}
	}
	c.http = c.client.appClient(c.keys)
	return nil
}

// bootstrap discovers the host's authorization server and registers this
// application with it. The keys are saved for the next run.
func (c *Connection) bootstrap(ctx context.Context) error {
	host := c.origin.Host
	discover := c.protocol.Request(api.OAuthDiscover, c.protocol.MetadataURI(c.origin)).
		WithHeader("Accept", "application/json")
	discover.Anonymous = true
	res, err := c.execute(ctx, discover)
	if err != nil {
		return fmt.Errorf("discovering authorization server of %s: %w", host, err)
	}
	if res.Object == nil {
		return newError(StatusEmptyResponse, discover.URI, "no authorization server metadata")
	}
	server, err := c.protocol.ParseMetadata(res.Object)
	if err != nil {
		return err
	}

	body := c.protocol.RegistrationBody(c.client.Config.AppName, c.client.Config.RedirectURI)
	register := c.protocol.PostRequest(api.OAuthRegisterClient, server.RegistrationEndpoint, body)
	register.Anonymous = true
	res, err = c.execute(ctx, register)
	if err != nil {
		return fmt.Errorf("registering client with %s: %w", host, err)
	}
	if res.Object == nil {
		return newError(StatusEmptyResponse, register.URI, "no client registration")
	}
	keys, err := c.protocol.ParseRegistration(res.Object)
	if err != nil {
		return err
	}
	keys.RegistrationEndpoint = server.RegistrationEndpoint
	keys.AuthorizationEndpoint = server.AuthorizationEndpoint
	keys.TokenEndpoint = server.TokenEndpoint
	c.keys = keys

	telemetry.Increment("oauth_registrations", 1)
	telemetry.Log("registered %s client %s with %s", c.protocol.Name(), keys.ClientID, host)

	err = c.client.store.SaveClientKeys(&storage.ClientKeys{
		Host:                  host,
		Protocol:              c.protocol.Name(),
		ClientID:              keys.ClientID,
		ClientSecret:          keys.ClientSecret,
		RegistrationEndpoint:  keys.RegistrationEndpoint,
		AuthorizationEndpoint: keys.AuthorizationEndpoint,
		TokenEndpoint:         keys.TokenEndpoint,
	})
	if err != nil {
		// the keys still work for this run
		telemetry.Error(err, "saving client keys of %s", host)
	}
	return nil
}

var errNoEndpoint = errors.New("no endpoint")
