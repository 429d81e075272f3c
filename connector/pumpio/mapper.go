package pumpio

import (
	"fmt"
	"strings"

	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/data"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
)

// Mapper converts pump.io json into the canonical model of one origin.
type Mapper struct {
	Origin string
}

var publicIDs = []string{PublicCollection}

func (m Mapper) AudienceBuilder(actor activity.Actor) activity.AudienceBuilder {
	followers, _ := actor.Endpoint(activity.EndpointFollowers)
	return activity.AudienceBuilder{
		Origin:    m.Origin,
		PublicIDs: publicIDs,
		Followers: followers,
	}
}

func activityType(verb string) activity.ActivityType {
	switch strings.ToLower(verb) {
	case PostVerb:
		return activity.TypeCreate
	case UpdateVerb:
		return activity.TypeUpdate
	case DeleteVerb:
		return activity.TypeDelete
	case FollowVerb:
		return activity.TypeFollow
	case StopFollowingVerb:
		return activity.TypeUndoFollow
	case FavoriteVerb, LikeVerb:
		return activity.TypeLike
	case UnfavoriteVerb, UnlikeVerb:
		return activity.TypeUndoLike
	case ShareVerb:
		return activity.TypeAnnounce
	case UnshareVerb:
		return activity.TypeUndoAnnounce
	}
	return activity.TypeUnknown
}

// ActivityFromJSON maps a top-level node. Nodes without an id map to EMPTY.
func (m Mapper) ActivityFromJSON(n data.Node) (activity.Activity, error) {
	return m.activityFromNode(n, false)
}

func (m Mapper) activityFromNode(n data.Node, strict bool) (activity.Activity, error) {
	kind := Classify(n)
	if kind == KindUnknown || n.ID() == "" {
		err := data.Malformed(fmt.Sprintf("%s without id", kind), n)
		if strict {
			return activity.EmptyActivity, err
		}
		telemetry.Increment("malformed_items", 1)
		telemetry.Trace("skipping: %s %s", err, err.Fragment())
		return activity.EmptyActivity, nil
	}
	switch {
	case kind == KindActivity:
		return m.activityFromActivityNode(n, strict)
	case kind == KindPerson:
		actor, err := m.ActorFromJSON(n)
		if err != nil {
			return activity.EmptyActivity, err
		}
		act := activity.NewActivity(m.Origin, "", activity.TypeUpdate, actor)
		act.Updated = actor.UpdatedAt
		act.SetObjActor(actor)
		return act, nil
	case kind.IsNote():
		note, author, err := m.noteFromNode(n)
		if err != nil {
			return activity.EmptyActivity, err
		}
		act := activity.NewActivity(m.Origin, "", activity.TypeUpdate, author)
		act.Author = author
		act.Updated = note.Updated
		act.SetNote(note)
		return act, nil
	}
	telemetry.Trace("skipping %s [%s]", kind, n.ID())
	return activity.EmptyActivity, nil
}

func (m Mapper) activityFromActivityNode(n data.Node, strict bool) (activity.Activity, error) {
	act := activity.NewActivity(m.Origin, n.ID(), activityType(n.String(verbProperty)), activity.EmptyActor)
	act.Updated = n.Time("updated", "published")

	actor, _, err := data.MapOne(n, actorProperty, m.actorFromObject, m.actorFromID)
	if err != nil {
		telemetry.Trace("actor of [%s]: %s", act.OID, err)
	}
	act.Actor = actor

	_, _, err = data.MapOne(n, objectProperty,
		func(o data.Node) (bool, error) { return true, m.setInlineObject(&act, o, strict) },
		func(id string) (bool, error) { m.setObjectID(&act, id); return true, nil },
	)
	if err != nil {
		return activity.EmptyActivity, fmt.Errorf("object of %s [%s]: %w", act.Type, act.OID, err)
	}

	if act.ObjectType() == activity.ObjectNote {
		note := act.Note()
		if gen, ok := n.Object("generator"); ok && note.Via == "" {
			note.Via = gen.String("displayName")
		}
		if note.Audience.NoRecipients() {
			b := m.AudienceBuilder(act.Actor)
			note.Audience = b.Build(m.recipients(n, toProperty), m.recipients(n, ccProperty))
		}
		act.SetNote(note)
	}
	if act.Author.IsEmpty() {
		act.Author = act.Actor
	}
	return act, nil
}

func (m Mapper) setObjectID(act *activity.Activity, id string) {
	switch {
	case act.Type == activity.TypeFollow || act.Type == activity.TypeUndoFollow:
		act.SetObjActor(activity.NewActor(m.Origin, id))
	case ClassifyID(id) == KindPerson:
		act.SetObjActor(activity.NewActor(m.Origin, id))
	case ClassifyID(id) == KindActivity:
		act.SetInner(activity.NewActivity(m.Origin, id, activity.TypeUnknown, activity.EmptyActor))
	default:
		act.SetNote(activity.NewNote(id))
	}
}

func (m Mapper) setInlineObject(act *activity.Activity, o data.Node, strict bool) error {
	kind := Classify(o)
	if o.ID() == "" {
		if strict {
			return data.Malformed(fmt.Sprintf("%s object without id", kind), o)
		}
		telemetry.Increment("malformed_items", 1)
		return nil
	}
	switch {
	case kind == KindPerson:
		actor, err := m.ActorFromJSON(o)
		if err != nil {
			return err
		}
		act.SetObjActor(actor)
	case kind == KindActivity:
		inner, err := m.activityFromNode(o, strict)
		if err != nil {
			return err
		}
		act.SetInner(inner)
	case kind.IsNote():
		note, author, err := m.noteFromNode(o)
		if err != nil {
			return err
		}
		act.SetNote(note)
		act.Author = author
	default:
		m.setObjectID(act, o.ID())
	}
	return nil
}

func (m Mapper) recipients(n data.Node, key string) []activity.Actor {
	actors, err := data.MapAll(n, key, m.actorFromObject, m.actorFromID)
	if err != nil {
		telemetry.Increment("malformed_items", 1)
		telemetry.Trace("recipients %s of [%s]: %s", key, n.ID(), err)
	}
	return actors
}

func (m Mapper) actorFromID(id string) (activity.Actor, error) {
	return activity.NewActor(m.Origin, id), nil
}

// actorFromObject accepts recipient collections as well as people: pump.io
// addresses {"id": ..., "objectType": "collection"}.
func (m Mapper) actorFromObject(n data.Node) (activity.Actor, error) {
	if Classify(n) == KindCollection {
		if id := n.ID(); id != "" {
			a := activity.NewActor(m.Origin, id)
			a.Group = activity.GroupCollection
			return a, nil
		}
	}
	return m.ActorFromJSON(n)
}

// ActorFromJSON maps a pump.io person, discovering its endpoints from
// links and the collection properties.
func (m Mapper) ActorFromJSON(n data.Node) (activity.Actor, error) {
	oid := n.ID()
	if oid == "" {
		return activity.EmptyActor, data.Malformed("person without id", n)
	}
	a := activity.NewActor(m.Origin, oid)
	a.Username = n.String("preferredUsername")
	a.RealName = n.String("displayName")
	a.Summary = n.String("summary")
	a.ProfileURL = n.URL("url")
	a.AvatarURL = n.URL("image")
	a.CreatedAt = n.Time("published")
	a.UpdatedAt = n.Time("updated", "published")
	if loc, ok := n.Object("location"); ok {
		a.Location = loc.String("displayName")
	}
	if p, ok := n.Object("pump_io"); ok && p.Has("followed") {
		followed := p.Bool("followed")
		a.Followed = &followed
	}
	if n.String(objectTypeProperty) == GroupType {
		a.Group = activity.GroupGeneric
	}

	if links, ok := n.Object("links"); ok {
		a.AddEndpoint(activity.EndpointProfile, links.URL("self"))
		a.AddEndpoint(activity.EndpointInbox, links.URL("activity-inbox"))
		outbox := links.URL("activity-outbox")
		a.AddEndpoint(activity.EndpointOutbox, outbox)
		if strings.HasSuffix(outbox, "/feed") {
			a.AddEndpoint(activity.EndpointUploadMedia, strings.TrimSuffix(outbox, "/feed")+"/uploads")
		}
	}
	a.FollowingCount = collection(&a, n, "following", activity.EndpointFollowing)
	a.FollowersCount = collection(&a, n, "followers", activity.EndpointFollowers)
	a.LikesCount = collection(&a, n, "favorites", activity.EndpointLiked)
	return a, nil
}

func collection(a *activity.Actor, n data.Node, key string, t activity.EndpointType) int64 {
	c, ok := n.Object(key)
	if !ok {
		return 0
	}
	a.AddEndpoint(t, c.URL("url"))
	return c.Int("totalItems")
}

// noteFromNode maps a note-like object. A reply-to object that cannot be
// parsed fails the whole note.
func (m Mapper) noteFromNode(o data.Node) (activity.Note, activity.Actor, error) {
	note := activity.NewNote(o.ID())
	note.Name = o.String("displayName")
	note.Summary = o.String("summary")
	note.Content = o.String("content")
	note.ContentType = "text/html"
	note.URL = o.URL("url")
	note.Published = o.Time("published")
	note.Updated = o.Time("updated", "published")

	author, _, err := data.MapOne(o, authorProperty, m.actorFromObject, m.actorFromID)
	if err != nil {
		telemetry.Trace("author of [%s]: %s", note.OID, err)
	}

	reply, ok, err := data.MapOne(o, inReplyToProperty,
		func(r data.Node) (activity.Activity, error) { return m.activityFromNode(r, true) },
		func(id string) (activity.Activity, error) { return m.noteRef(id), nil },
	)
	if err != nil {
		return note, author, fmt.Errorf("in reply to, note [%s]: %w", note.OID, err)
	}
	if ok {
		note.InReplyTo = &reply
	}

	if replies, ok := o.Object("replies"); ok {
		items, err := data.MapAll(replies, itemsProperty,
			func(n data.Node) (activity.Activity, error) { return m.activityFromNode(n, false) },
			func(id string) (activity.Activity, error) { return m.noteRef(id), nil },
		)
		if err != nil {
			telemetry.Increment("malformed_items", 1)
			telemetry.Trace("replies of [%s]: %s", note.OID, err)
		}
		note.Replies = withoutEmpty(items)
		note.RepliesCount = replies.Int("totalItems")
	}
	if likes, ok := o.Object("likes"); ok {
		note.LikesCount = likes.Int("totalItems")
	}
	if shares, ok := o.Object("shares"); ok {
		note.ReblogsCount = shares.Int("totalItems")
	}

	note.Attachments = mediaOf(o)
	attachments, err := data.MapAll(o, attachmentsProp, attachmentFromNode, attachmentFromID)
	if err != nil {
		telemetry.Increment("malformed_items", 1)
		telemetry.Trace("attachments of [%s]: %s", note.OID, err)
	}
	note.Attachments = append(note.Attachments, attachments...)

	note.Audience = m.AudienceBuilder(author).Build(m.recipients(o, toProperty), m.recipients(o, ccProperty))
	return note, author, nil
}

func (m Mapper) noteRef(id string) activity.Activity {
	act := activity.NewActivity(m.Origin, "", activity.TypeUpdate, activity.EmptyActor)
	act.SetNote(activity.NewNote(id))
	return act
}

// mediaOf reads the media of an image or video object itself: the full
// size image is preferred, the stream for video.
func mediaOf(o data.Node) []activity.Attachment {
	var out []activity.Attachment
	switch Classify(o) {
	case KindImage:
		uri := firstURL(o, "fullImage", "image")
		if uri != "" {
			out = append(out, activity.Attachment{URI: uri, MediaType: "image/*", Name: o.String("displayName")})
		}
	case KindVideo:
		if uri := firstURL(o, "stream"); uri != "" {
			out = append(out, activity.Attachment{URI: uri, MediaType: "video/*", Name: o.String("displayName")})
		}
	}
	return out
}

func firstURL(o data.Node, keys ...string) string {
	for _, k := range keys {
		if u := o.URL(k); u != "" {
			return u
		}
	}
	return ""
}

func attachmentFromNode(n data.Node) (activity.Attachment, error) {
	if media := mediaOf(n); len(media) > 0 {
		return media[0], nil
	}
	if uri := n.URL("url"); uri != "" {
		return activity.Attachment{URI: uri, Name: n.String("displayName")}, nil
	}
	return activity.Attachment{}, data.Malformed("attachment without url", n)
}

func attachmentFromID(id string) (activity.Attachment, error) {
	return activity.Attachment{URI: id}, nil
}

func withoutEmpty(items []activity.Activity) []activity.Activity {
	out := items[:0]
	for _, a := range items {
		if !a.IsEmpty() {
			out = append(out, a)
		}
	}
	return out
}
