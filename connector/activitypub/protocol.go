// Package activitypub speaks the ActivityPub client-to-server dialect of
// ActivityStreams 2.0 json.
package activitypub

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/api"
	"github.com/tkrehbiel/fedlace/connector/data"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
)

const Name = "activitypub"

const (
	maxTimelineLimit = 40
	maxFriendsLimit  = 80
)

// Protocol is the ActivityPub wire format for one origin.
type Protocol struct {
	Mapper
}

func New(origin string) Protocol {
	return Protocol{Mapper: Mapper{Origin: origin}}
}

func (p Protocol) Name() string {
	return Name
}

// EndpointType maps a routine to the endpoint of the actor that serves it.
// All posting goes to the acting actor's outbox.
func (p Protocol) EndpointType(r api.Routine) activity.EndpointType {
	switch r {
	case api.HomeTimeline, api.NotificationsTimeline:
		return activity.EndpointInbox
	case api.ActorTimeline:
		return activity.EndpointOutbox
	case api.LikedTimeline:
		return activity.EndpointLiked
	case api.GetFriends:
		return activity.EndpointFollowing
	case api.GetFollowers:
		return activity.EndpointFollowers
	case api.GetActor:
		return activity.EndpointProfile
	case api.UploadMedia:
		return activity.EndpointUploadMedia
	case api.UpdateNote, api.UpdatePrivateNote, api.DeleteNote, api.Like, api.UndoLike,
		api.Announce, api.UndoAnnounce, api.Follow, api.UndoFollow:
		return activity.EndpointOutbox
	}
	return activity.EndpointEmpty
}

func (p Protocol) PageLimit(r api.Routine, requested int) int {
	max := maxTimelineLimit
	if r.IsFriendsListing() {
		max = maxFriendsLimit
	}
	if requested <= 0 || requested > max {
		return max
	}
	return requested
}

// PageRequest asks for a collection page. Paging is driven entirely by the
// prev/next uris the server returns, so tokens and limits are not sent.
func (p Protocol) PageRequest(r api.Routine, uri string, pos activity.Position, limit int, dir api.Direction) (api.Request, error) {
	return p.Request(r, uri), nil
}

// Request is a GET asking for activity json.
func (p Protocol) Request(r api.Routine, uri string) api.Request {
	return api.NewRequest(r, uri).WithHeader("Accept", Accept)
}

// PostRequest posts a json body as activity json.
func (p Protocol) PostRequest(r api.Routine, uri string, body data.Node) api.Request {
	return p.Request(r, uri).WithPost(body).WithHeader("Content-Type", ContentType)
}

// ParsePage maps a collection or collection page. Ordered collections are
// newest first on the wire and are reversed. The page's prev/next uris are
// attached to every item.
func (p Protocol) ParsePage(r api.Routine, res api.Result) (api.Page, error) {
	var page api.Page
	c := res.Object
	if c == nil {
		return page, data.Malformed("no collection in response", nil)
	}
	prev := c.URL("prev")
	next := c.URL("next")
	key := itemsKey(c)
	if key == "" {
		if first, ok := c.Object("first"); ok {
			c = first
			key = itemsKey(c)
			prev, next = c.URL("prev"), c.URL("next")
		} else if next == "" {
			// a collection root that only links to its first page
			next = c.URL("first")
		}
	}
	if key != "" {
		items, err := data.MapAll(c, key,
			p.ActivityFromJSON,
			func(id string) (activity.Activity, error) { return p.itemFromID(r, id), nil },
		)
		if err != nil {
			// one bad item must not lose the page
			telemetry.Increment("malformed_items", 1)
			telemetry.Log("skipped items of page [%s]: %s", c.ID(), err)
		}
		page.Items = withoutEmpty(items)
		if key == OrderedItemsProperty {
			reverse(page.Items)
		}
	}
	page.Prev = activity.URIPosition(prev)
	page.Next = activity.URIPosition(next)
	for i := range page.Items {
		page.Items[i].Prev = page.Prev
		page.Items[i].Next = page.Next
	}
	return page, nil
}

func (p Protocol) itemFromID(r api.Routine, id string) activity.Activity {
	act := activity.NewActivity(p.Origin, "", activity.TypeUpdate, activity.EmptyActor)
	if r.IsFriendsListing() || ClassifyID(id) == KindPerson {
		actor := p.actorFor(id)
		act.Actor = actor
		act.SetObjActor(actor)
		return act
	}
	act.SetNote(activity.NewNote(id))
	return act
}

func reverse(items []activity.Activity) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

// UploadRequest posts media as multipart form data: the file plus a json
// description of the object to create.
func (p Protocol) UploadRequest(uri string, att activity.Attachment, content []byte) api.Request {
	desc, _ := json.Marshal(map[string]string{
		TypeProperty: DocumentType,
		"mediaType":  att.MediaType,
		"name":       att.Name,
	})
	return p.Request(api.UploadMedia, uri).WithMedia(&api.MediaPart{
		FormField:   "file",
		FileName:    fileName(att),
		ContentType: att.MediaType,
		Data:        content,
		Fields:      map[string]string{"object": string(desc)},
	})
}

func fileName(att activity.Attachment) string {
	name := att.LocalFile
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = "media"
	}
	return name
}

// ParseUploaded reads the remote descriptor of uploaded media, either the
// created object itself or a Create activity wrapping it.
func (p Protocol) ParseUploaded(res api.Result) (activity.Attachment, error) {
	n := res.Object
	if n == nil {
		return activity.Attachment{}, data.Malformed("no uploaded object in response", nil)
	}
	if obj, ok := n.Object(ObjectProperty); ok {
		n = obj
	}
	return attachmentFromNode(n)
}

// MetadataURI is the RFC 8414 authorization server metadata document of a host.
func (p Protocol) MetadataURI(origin *url.URL) string {
	u := url.URL{Scheme: origin.Scheme, Host: origin.Host, Path: "/.well-known/oauth-authorization-server"}
	return u.String()
}

func (p Protocol) ParseMetadata(n data.Node) (api.OAuthServer, error) {
	s := api.OAuthServer{
		RegistrationEndpoint:  n.String("registration_endpoint"),
		AuthorizationEndpoint: n.String("authorization_endpoint"),
		TokenEndpoint:         n.String("token_endpoint"),
	}
	if s.RegistrationEndpoint == "" {
		return s, data.Malformed("no registration_endpoint in oauth metadata", n)
	}
	return s, nil
}

// RegistrationBody is an RFC 7591 dynamic client registration request.
func (p Protocol) RegistrationBody(appName, redirectURI string) data.Node {
	return data.Node{
		"client_name":                appName,
		"redirect_uris":              []interface{}{redirectURI},
		"grant_types":                []interface{}{"authorization_code", "client_credentials", "refresh_token"},
		"scope":                      "read write follow",
		"token_endpoint_auth_method": "client_secret_basic",
	}
}

func (p Protocol) ParseRegistration(n data.Node) (api.ClientKeys, error) {
	keys := api.ClientKeys{
		ClientID:     n.String("client_id"),
		ClientSecret: n.String("client_secret"),
	}
	if !keys.AreValid() {
		return keys, fmt.Errorf("no client_id in registration response")
	}
	return keys, nil
}
