// Package connector talks to remote social network servers on behalf of
// configured accounts, in either ActivityPub or pump.io dialect, and maps
// what they say into the canonical model of package activity.
package connector

import (
	"fmt"
	"net/url"

	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/activitypub"
	"github.com/tkrehbiel/fedlace/connector/api"
	"github.com/tkrehbiel/fedlace/connector/data"
	"github.com/tkrehbiel/fedlace/connector/pumpio"
)

// Protocol is one wire dialect: how to address, request, parse and build.
type Protocol interface {
	Name() string

	EndpointType(r api.Routine) activity.EndpointType
	PageLimit(r api.Routine, requested int) int
	PageRequest(r api.Routine, uri string, pos activity.Position, limit int, dir api.Direction) (api.Request, error)
	Request(r api.Routine, uri string) api.Request
	PostRequest(r api.Routine, uri string, body data.Node) api.Request
	ParsePage(r api.Routine, res api.Result) (api.Page, error)

	ActivityFromJSON(n data.Node) (activity.Activity, error)
	ActorFromJSON(n data.Node) (activity.Actor, error)
	AudienceBuilder(actor activity.Actor) activity.AudienceBuilder
	ActivityBody(act activity.Activity, recipients []activity.Recipient) (data.Node, error)

	UploadRequest(uri string, att activity.Attachment, content []byte) api.Request
	ParseUploaded(res api.Result) (activity.Attachment, error)

	MetadataURI(origin *url.URL) string
	ParseMetadata(n data.Node) (api.OAuthServer, error)
	RegistrationBody(appName, redirectURI string) data.Node
	ParseRegistration(n data.Node) (api.ClientKeys, error)
}

// NewProtocol returns the dialect by name for an origin.
func NewProtocol(name, origin string) (Protocol, error) {
	switch name {
	case activitypub.Name:
		return activitypub.New(origin), nil
	case pumpio.Name:
		return pumpio.New(origin), nil
	}
	return nil, fmt.Errorf("unknown protocol %q", name)
}
