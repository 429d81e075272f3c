package connector

import (
	"context"
	"strings"
	"time"

	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/api"
	"github.com/tkrehbiel/fedlace/connector/data"
	"github.com/tkrehbiel/fedlace/connector/storage"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
	"github.com/tkrehbiel/fedlace/connector/webfinger"
)

func (c *Connection) actorCacheKey(oid string) string {
	return c.protocol.Name() + "|" + oid
}

// GetActor fetches an actor by id. Actors are cached in memory and in the
// database for the configured ttl. An acct:user@host id is looked up
// through WebFinger first.
func (c *Connection) GetActor(ctx context.Context, oid string) (activity.Actor, error) {
	oid = strings.TrimSpace(oid)
	if strings.HasPrefix(oid, "acct:") {
		return c.ActorByWebFinger(ctx, oid)
	}
	key := c.actorCacheKey(oid)
	if item := c.client.actors.Get(key); item != nil && !item.Expired() {
		telemetry.Increment("actor_cache_hits", 1)
		return item.Value(), nil
	}

	ttl := c.client.Config.ActorCacheTTL()
	if actor, ok := c.storedActor(oid, ttl); ok {
		c.client.actors.Set(key, actor, ttl)
		return actor, nil
	}

	uri, conn, err := c.resolve(ctx, api.GetActor, activity.EmptyPosition, activity.NewActor(c.account.Name, oid))
	if err != nil {
		return activity.EmptyActor, err
	}
	res, err := conn.execute(ctx, conn.protocol.Request(api.GetActor, uri))
	if err != nil {
		return activity.EmptyActor, err
	}
	if res.Object == nil {
		return activity.EmptyActor, newError(StatusEmptyResponse, uri, "no actor in response")
	}
	actor, err := conn.protocol.ActorFromJSON(res.Object)
	if err == nil && actor.IsEmpty() {
		err = data.Malformed("actor without id", res.Object)
	}
	if err != nil {
		telemetry.Log("malformed actor from [%s]: %s", uri, telemetry.Fragment(res.Body))
		return activity.EmptyActor, &ConnectionError{Status: StatusMalformedWireData, URI: uri, Err: err}
	}

	c.client.actors.Set(key, actor, ttl)
	if actor.OID != oid {
		c.client.actors.Set(c.actorCacheKey(actor.OID), actor, ttl)
	}
	err = c.client.store.SaveActor(&storage.Actor{
		ID:        actor.OID,
		Protocol:  c.protocol.Name(),
		Username:  actor.Username,
		Host:      actor.Host(),
		Source:    string(res.Object.JSON()),
		FetchedAt: time.Now().UTC(),
	})
	if err != nil {
		telemetry.Error(err, "saving actor [%s]", actor.OID)
	}
	return actor, nil
}

func (c *Connection) storedActor(oid string, ttl time.Duration) (activity.Actor, bool) {
	stored, err := c.client.store.FindActor(oid)
	if err != nil {
		telemetry.Error(err, "loading actor [%s]", oid)
		return activity.EmptyActor, false
	}
	if !stored.Fresh(ttl) || stored.Protocol != c.protocol.Name() {
		return activity.EmptyActor, false
	}
	n, err := data.ParseNode([]byte(stored.Source))
	if err != nil {
		return activity.EmptyActor, false
	}
	actor, err := c.protocol.ActorFromJSON(n)
	if err != nil || actor.IsEmpty() {
		return activity.EmptyActor, false
	}
	return actor, true
}

// ActorByWebFinger finds an actor by handle, user@host or acct:user@host.
func (c *Connection) ActorByWebFinger(ctx context.Context, handle string) (activity.Actor, error) {
	acct, err := webfinger.ParseAccount(handle)
	if err != nil {
		return activity.EmptyActor, &ConnectionError{Status: StatusBadRequest, Message: "webfinger", Err: err}
	}
	req := api.NewRequest(api.WebFinger, acct.URI()).
		WithHeader("Accept", "application/jrd+json, application/json")
	req.Anonymous = true
	res, err := c.execute(ctx, req)
	if err != nil {
		return activity.EmptyActor, err
	}
	if res.Object == nil {
		return activity.EmptyActor, newError(StatusEmptyResponse, req.URI, "no webfinger resource for %s", acct)
	}
	resource, err := webfinger.ParseResource(res.Object)
	if err != nil {
		return activity.EmptyActor, &ConnectionError{Status: StatusNotFound, URI: req.URI, Err: err}
	}
	return c.GetActor(ctx, resource.Self)
}

// GetNote fetches a single note or activity by id.
func (c *Connection) GetNote(ctx context.Context, oid string) (activity.Activity, error) {
	uri, conn, err := c.resolve(ctx, api.GetNote, activity.URIPosition(oid), activity.EmptyActor)
	if err != nil {
		return activity.EmptyActivity, err
	}
	res, err := conn.execute(ctx, conn.protocol.Request(api.GetNote, uri))
	if err != nil {
		return activity.EmptyActivity, err
	}
	if res.Object == nil {
		return activity.EmptyActivity, newError(StatusEmptyResponse, uri, "no note in response")
	}
	act, err := conn.protocol.ActivityFromJSON(res.Object)
	if err == nil && act.IsEmpty() {
		err = data.Malformed("note without id", res.Object)
	}
	if err != nil {
		telemetry.Log("malformed note from [%s]: %s", uri, telemetry.Fragment(res.Body))
		return activity.EmptyActivity, &ConnectionError{Status: StatusMalformedWireData, URI: uri, Err: err}
	}
	return act, nil
}
