package connector

import (
	"context"
	"net/url"

	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/api"
)

// resolve picks the uri a routine must call and the connection that must
// call it. A page uri from an earlier result wins over the actor's
// endpoint. An actor known only by id is looked up first.
func (c *Connection) resolve(ctx context.Context, routine api.Routine, pos activity.Position, actor activity.Actor) (string, *Connection, error) {
	uri := ""
	if pos.IsURI() {
		uri = pos.String()
	}
	if uri == "" {
		var err error
		if uri, err = c.endpointOf(ctx, routine, actor); err != nil {
			return "", nil, err
		}
	}
	if uri == "" {
		return "", nil, &ConnectionError{
			Status:  StatusBadRequest,
			Message: "no " + routine.String() + " endpoint for actor " + actor.String(),
			Err:     errNoEndpoint,
		}
	}
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return "", nil, newError(StatusBadRequest, uri, "%s endpoint of %s is not an absolute uri", routine, actor)
	}
	conn, err := c.forHost(ctx, u)
	if err != nil {
		return "", nil, err
	}
	return uri, conn, nil
}

func (c *Connection) endpointOf(ctx context.Context, routine api.Routine, actor activity.Actor) (string, error) {
	if actor.IsEmpty() {
		return "", nil
	}
	t := c.protocol.EndpointType(routine)
	if uri, ok := actor.Endpoint(t); ok {
		return uri, nil
	}
	if actor.HasEndpoints() || routine == api.GetActor {
		return "", nil
	}
	found, err := c.GetActor(ctx, actor.OID)
	if err != nil {
		return "", err
	}
	uri, _ := found.Endpoint(t)
	return uri, nil
}
