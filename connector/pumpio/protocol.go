// Package pumpio speaks the pump.io client API: activity streams 1.0 json
// with verbs, newest-first feeds and since/before cursors.
package pumpio

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/api"
	"github.com/tkrehbiel/fedlace/connector/data"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
)

const Name = "pumpio"

const (
	maxTimelineLimit = 20
	maxFriendsLimit  = 200
)

type Protocol struct {
	Mapper
}

func New(origin string) Protocol {
	return Protocol{Mapper: Mapper{Origin: origin}}
}

func (p Protocol) Name() string {
	return Name
}

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

// PageRequest adds count and a since (younger) or before (older) cursor to
// the feed uri. A uri position is a complete page link and is used as is.
func (p Protocol) PageRequest(r api.Routine, uri string, pos activity.Position, limit int, dir api.Direction) (api.Request, error) {
	if pos.IsURI() {
		return p.Request(r, pos.String()), nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return api.Request{}, fmt.Errorf("feed uri %q: %w", uri, err)
	}
	q := u.Query()
	q.Set("count", strconv.Itoa(p.PageLimit(r, limit)))
	if !pos.IsEmpty() {
		if dir == api.Younger {
			q.Set("since", pos.String())
		} else {
			q.Set("before", pos.String())
		}
	}
	u.RawQuery = q.Encode()
	return p.Request(r, u.String()), nil
}

func (p Protocol) Request(r api.Routine, uri string) api.Request {
	return api.NewRequest(r, uri).WithHeader("Accept", ContentType)
}

func (p Protocol) PostRequest(r api.Routine, uri string, body data.Node) api.Request {
	return p.Request(r, uri).WithPost(body).WithHeader("Content-Type", ContentType)
}

// ParsePage maps a feed. Items arrive newest first and are returned oldest
// first. Every item carries its own id as the cursor in both directions;
// the page cursors are the ids of its youngest and oldest items.
func (p Protocol) ParsePage(r api.Routine, res api.Result) (api.Page, error) {
	var page api.Page
	c := res.Object
	if c == nil {
		return page, data.Malformed("no feed in response", nil)
	}
	items, err := data.MapAll(c, itemsProperty,
		p.ActivityFromJSON,
		func(id string) (activity.Activity, error) { return p.itemFromID(r, id), nil },
	)
	if err != nil {
		telemetry.Increment("malformed_items", 1)
		telemetry.Log("skipped items of feed [%s]: %s", c.ID(), err)
	}
	page.Items = withoutEmpty(items)
	reverse(page.Items)

	for i := range page.Items {
		token := activity.TokenPosition(itemCursor(page.Items[i]))
		page.Items[i].Prev = token
		page.Items[i].Next = token
	}
	if n := len(page.Items); n > 0 {
		page.Prev = page.Items[n-1].Prev
		page.Next = page.Items[0].Next
	}
	return page, nil
}

// itemCursor is the id pump.io accepts in since/before: the activity id for
// feeds, the person id for friends listings.
func itemCursor(act activity.Activity) string {
	if act.OID != "" {
		return act.OID
	}
	if act.ObjectType() == activity.ObjectActor {
		return act.ObjActor().OID
	}
	return act.Note().OID
}

func (p Protocol) itemFromID(r api.Routine, id string) activity.Activity {
	act := activity.NewActivity(p.Origin, "", activity.TypeUpdate, activity.EmptyActor)
	if r.IsFriendsListing() || ClassifyID(id) == KindPerson {
		actor := activity.NewActor(p.Origin, id)
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

// UploadRequest posts the raw bytes to the uploads endpoint.
func (p Protocol) UploadRequest(uri string, att activity.Attachment, content []byte) api.Request {
	u, err := url.Parse(uri)
	if err == nil && att.Name != "" {
		q := u.Query()
		q.Set("qqfile", att.Name)
		u.RawQuery = q.Encode()
		uri = u.String()
	}
	return p.Request(api.UploadMedia, uri).WithMedia(&api.MediaPart{
		ContentType: att.MediaType,
		Data:        content,
	})
}

func (p Protocol) ParseUploaded(res api.Result) (activity.Attachment, error) {
	if res.Object == nil {
		return activity.Attachment{}, data.Malformed("no uploaded object in response", nil)
	}
	return attachmentFromNode(res.Object)
}

// MetadataURI is the host-meta document, which lists the registration endpoint.
// Its token endpoints speak OAuth 1.0a and are not used.
func (p Protocol) MetadataURI(origin *url.URL) string {
	u := url.URL{Scheme: origin.Scheme, Host: origin.Host, Path: "/.well-known/host-meta.json"}
	return u.String()
}

func (p Protocol) ParseMetadata(n data.Node) (api.OAuthServer, error) {
	var s api.OAuthServer
	links, _ := data.Refs(n, "links")
	for _, l := range links {
		if !l.IsObject() {
			continue
		}
		href := l.Object().String("href")
		switch l.Object().String("rel") {
		case registrationRel:
			s.RegistrationEndpoint = href
		case authorizeRel:
			s.AuthorizationEndpoint = href
		}
	}
	if s.RegistrationEndpoint == "" {
		return s, data.Malformed("no registration_endpoint in host-meta", n)
	}
	return s, nil
}

// RegistrationBody is a pump.io dynamic client association request.
func (p Protocol) RegistrationBody(appName, redirectURI string) data.Node {
	return data.Node{
		"type":             "client_associate",
		"application_type": "native",
		"application_name": appName,
		"redirect_uris":    redirectURI,
	}
}

func (p Protocol) ParseRegistration(n data.Node) (api.ClientKeys, error) {
	keys := api.ClientKeys{
		ClientID:     n.String("client_id"),
		ClientSecret: n.String("client_secret"),
	}
	if !keys.AreValid() {
		return keys, fmt.Errorf("no client_id in client_associate response")
	}
	return keys, nil
}
