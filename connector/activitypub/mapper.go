package activitypub

import (
	"fmt"
	"strings"

	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/data"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
)

// Mapper converts ActivityPub json into the canonical model of one origin.
type Mapper struct {
	Origin string
}

var publicIDs = []string{PublicCollection, "as:Public", "Public"}

// AudienceBuilder returns the builder for activities performed by the actor.
func (m Mapper) AudienceBuilder(actor activity.Actor) activity.AudienceBuilder {
	followers, ok := actor.Endpoint(activity.EndpointFollowers)
	if !ok && strings.HasPrefix(actor.OID, "http") {
		followers = strings.TrimSuffix(actor.OID, "/") + "/followers"
	}
	return activity.AudienceBuilder{
		Origin:    m.Origin,
		PublicIDs: publicIDs,
		Followers: followers,
	}
}

// ActivityFromJSON maps a top-level node. A node without an id maps to the
// EMPTY activity. A bare note or actor is wrapped in a synthesized UPDATE.
func (m Mapper) ActivityFromJSON(n data.Node) (activity.Activity, error) {
	return m.activityFromNode(n, false)
}

// strict parsing reports a node without an id as an error instead of
// mapping it to EMPTY; it is used where the caller needs the object, as for
// the note being replied to.
func (m Mapper) activityFromNode(n data.Node, strict bool) (activity.Activity, error) {
	kind := Classify(n)
	if kind == KindUnknown {
		return m.invalid(n, strict, "unknown object kind")
	}
	if n.ID() == "" {
		return m.invalid(n, strict, fmt.Sprintf("%s without id", kind))
	}
	switch {
	case kind == KindActivity:
		return m.activityFromActivityNode(n, strict)
	case kind.CompatibleWith(KindPerson):
		actor, err := m.ActorFromJSON(n)
		if err != nil {
			return activity.EmptyActivity, err
		}
		act := activity.NewActivity(m.Origin, "", activity.TypeUpdate, actor)
		act.Updated = actor.UpdatedAt
		act.SetObjActor(actor)
		return act, nil
	case kind.CompatibleWith(KindNote):
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
	return m.invalid(n, strict, fmt.Sprintf("%s is not an activity", kind))
}

func (m Mapper) invalid(n data.Node, strict bool, reason string) (activity.Activity, error) {
	err := data.Malformed(reason, n)
	if strict {
		return activity.EmptyActivity, err
	}
	telemetry.Increment("malformed_items", 1)
	telemetry.Trace("skipping %s: %s", reason, err.Fragment())
	return activity.EmptyActivity, nil
}

func activityType(tag string) activity.ActivityType {
	switch tag {
	case CreateType:
		return activity.TypeCreate
	case UpdateType:
		return activity.TypeUpdate
	case DeleteType:
		return activity.TypeDelete
	case FollowType:
		return activity.TypeFollow
	case LikeType:
		return activity.TypeLike
	case AnnounceType:
		return activity.TypeAnnounce
	}
	return activity.TypeUnknown
}

func (m Mapper) activityFromActivityNode(n data.Node, strict bool) (activity.Activity, error) {
	tag := n.String(TypeProperty)
	act := activity.NewActivity(m.Origin, n.ID(), activityType(tag), activity.EmptyActor)
	act.Updated = n.Time("updated", "published")

	actor, _, err := data.MapOne(n, ActorProperty, m.actorFromObject, m.actorFromID)
	if err != nil {
		telemetry.Trace("actor of [%s]: %s", act.OID, err)
	}
	act.Actor = actor

	_, _, err = data.MapOne(n, ObjectProperty,
		func(o data.Node) (bool, error) { return true, m.setInlineObject(&act, o, strict) },
		func(id string) (bool, error) { m.setObjectID(&act, id); return true, nil },
	)
	if err != nil {
		return activity.EmptyActivity, fmt.Errorf("object of %s [%s]: %w", tag, act.OID, err)
	}

	if tag == UndoType {
		liftUndo(&act)
	}

	builder := m.AudienceBuilder(act.Actor)
	aud := builder.Build(m.recipients(n, ToProperty), m.recipients(n, CCProperty))
	if act.ObjectType() == activity.ObjectNote {
		note := act.Note()
		if note.Audience.NoRecipients() {
			note.Audience = aud
			act.SetNote(note)
		}
	}
	if act.Author.IsEmpty() {
		act.Author = act.Actor
	}
	return act, nil
}

// liftUndo turns Undo{Follow{bob}} into UNDO_FOLLOW of bob.
func liftUndo(act *activity.Activity) {
	inner := act.Inner()
	undo := inner.Type.Undo()
	if undo == activity.TypeUnknown {
		act.Type = activity.TypeUnknown
		return
	}
	act.Type = undo
	switch inner.ObjectType() {
	case activity.ObjectNote:
		act.SetNote(inner.Note())
	case activity.ObjectActor:
		act.SetObjActor(inner.ObjActor())
	}
}

func (m Mapper) setObjectID(act *activity.Activity, id string) {
	if act.Type == activity.TypeFollow {
		act.SetObjActor(m.actorFor(id))
		return
	}
	switch ClassifyID(id) {
	case KindPerson:
		act.SetObjActor(m.actorFor(id))
	case KindActivity:
		act.SetInner(activity.NewActivity(m.Origin, id, activity.TypeUnknown, activity.EmptyActor))
	default:
		act.SetNote(activity.NewNote(id))
	}
}

func (m Mapper) setInlineObject(act *activity.Activity, o data.Node, strict bool) error {
	kind := Classify(o)
	if o.ID() == "" && kind != KindActivity {
		if strict {
			return data.Malformed(fmt.Sprintf("%s object without id", kind), o)
		}
		telemetry.Increment("malformed_items", 1)
		return nil
	}
	switch {
	case kind.CompatibleWith(KindPerson):
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
	case kind.CompatibleWith(KindNote):
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

func (m Mapper) actorFor(id string) activity.Actor {
	actor := activity.NewActor(m.Origin, id)
	if ClassifyID(id) == KindCollection {
		actor.Group = activity.GroupCollection
	}
	return actor
}

func (m Mapper) actorFromID(id string) (activity.Actor, error) {
	return m.actorFor(id), nil
}

func (m Mapper) actorFromObject(n data.Node) (activity.Actor, error) {
	if kind := Classify(n); !kind.CompatibleWith(KindPerson) {
		if id := n.ID(); id != "" {
			return m.actorFor(id), nil
		}
	}
	return m.ActorFromJSON(n)
}

// ActorFromJSON maps an actor document, discovering its endpoints.
func (m Mapper) ActorFromJSON(n data.Node) (activity.Actor, error) {
	oid := n.ID()
	if oid == "" {
		return activity.EmptyActor, data.Malformed("actor without id", n)
	}
	a := activity.NewActor(m.Origin, oid)
	a.Username = n.String("preferredUsername")
	a.RealName = n.String("name")
	a.Summary = n.String("summary")
	a.ProfileURL = n.URL("url")
	a.AvatarURL = n.URL("icon")
	a.CreatedAt = n.Time("published")
	a.UpdatedAt = n.Time("updated", "published")
	if loc, ok := n.Object("location"); ok {
		a.Location = loc.String("name")
	}
	switch n.String(TypeProperty) {
	case GroupType, OrganizationType:
		a.Group = activity.GroupGeneric
	case CollectionType, OrderedCollectionType:
		a.Group = activity.GroupCollection
	}

	a.AddEndpoint(activity.EndpointProfile, oid)
	a.AddEndpoint(activity.EndpointBanner, n.URL("image"))
	a.NotesCount = endpoint(&a, n, "outbox", activity.EndpointOutbox)
	a.FollowingCount = endpoint(&a, n, "following", activity.EndpointFollowing)
	a.FollowersCount = endpoint(&a, n, "followers", activity.EndpointFollowers)
	a.LikesCount = endpoint(&a, n, "liked", activity.EndpointLiked)
	endpoint(&a, n, "inbox", activity.EndpointInbox)
	if ep, ok := n.Object("endpoints"); ok {
		a.AddEndpoint(activity.EndpointSharedInbox, ep.String("sharedInbox"))
		a.AddEndpoint(activity.EndpointUploadMedia, ep.String("uploadMedia"))
	}
	return a, nil
}

// endpoint registers an endpoint given as a uri or as an inline collection,
// returning the collection's size when it is inline.
func endpoint(a *activity.Actor, n data.Node, key string, t activity.EndpointType) int64 {
	refs, _ := data.Refs(n, key)
	if len(refs) == 0 {
		return 0
	}
	a.AddEndpoint(t, refs[0].ID())
	if refs[0].IsObject() {
		return refs[0].Object().Int("totalItems")
	}
	return 0
}

// noteFromNode maps a note-compatible node with an id, returning its author.
// A reply-to object that cannot be parsed fails the whole note.
func (m Mapper) noteFromNode(o data.Node) (activity.Note, activity.Actor, error) {
	note := activity.NewNote(o.ID())
	note.Name = o.String("name")
	note.Summary = o.String("summary")
	note.Sensitive = o.Bool("sensitive")
	note.Content = o.String("content")
	note.ContentType = o.String("mediaType")
	if src, ok := o.Object("source"); ok && note.Content == "" {
		note.Content = src.String("content")
		note.ContentType = src.String("mediaType")
	}
	if note.ContentType == "" {
		note.ContentType = "text/html"
	}
	note.URL = o.URL("url")
	note.ConversationOID = o.FirstString("conversation", "context")
	note.Published = o.Time("published")
	note.Updated = o.Time("updated", "published")
	if gen, ok := o.Object("generator"); ok {
		note.Via = gen.String("name")
	}

	author, _, err := data.MapOne(o, AttributedToProperty, m.actorFromObject, m.actorFromID)
	if err != nil {
		telemetry.Trace("author of [%s]: %s", note.OID, err)
	}

	reply, ok, err := data.MapOne(o, InReplyToProperty,
		func(r data.Node) (activity.Activity, error) { return m.activityFromNode(r, true) },
		func(id string) (activity.Activity, error) {
			act := activity.NewActivity(m.Origin, "", activity.TypeUpdate, activity.EmptyActor)
			act.SetNote(activity.NewNote(id))
			return act, nil
		},
	)
	if err != nil {
		return note, author, fmt.Errorf("in reply to, note [%s]: %w", note.OID, err)
	}
	if ok {
		note.InReplyTo = &reply
	}

	if replies, ok := o.Object(RepliesProperty); ok {
		note.Replies = m.collectionItems(replies)
		note.RepliesCount = replies.Int("totalItems")
	}

	attachments, err := data.MapAll(o, AttachmentProperty, attachmentFromNode, attachmentFromID)
	if err != nil {
		telemetry.Increment("malformed_items", 1)
		telemetry.Trace("attachments of [%s]: %s", note.OID, err)
	}
	note.Attachments = attachments

	if likes, ok := o.Object("likes"); ok {
		note.LikesCount = likes.Int("totalItems")
	}
	if shares, ok := o.Object("shares"); ok {
		note.ReblogsCount = shares.Int("totalItems")
	}

	note.Audience = m.AudienceBuilder(author).Build(m.recipients(o, ToProperty), m.recipients(o, CCProperty))
	return note, author, nil
}

// collectionItems maps the items of an inline collection, looking into an
// inline first page when the collection itself has none.
func (m Mapper) collectionItems(c data.Node) []activity.Activity {
	key := itemsKey(c)
	if key == "" {
		if first, ok := c.Object("first"); ok {
			return m.collectionItems(first)
		}
		return nil
	}
	items, err := data.MapAll(c, key,
		func(n data.Node) (activity.Activity, error) { return m.activityFromNode(n, false) },
		func(id string) (activity.Activity, error) {
			act := activity.NewActivity(m.Origin, "", activity.TypeUpdate, activity.EmptyActor)
			act.SetNote(activity.NewNote(id))
			return act, nil
		},
	)
	if err != nil {
		telemetry.Increment("malformed_items", 1)
		telemetry.Trace("items of [%s]: %s", c.ID(), err)
	}
	return withoutEmpty(items)
}

func itemsKey(c data.Node) string {
	if c.Has(OrderedItemsProperty) {
		return OrderedItemsProperty
	}
	if c.Has(ItemsProperty) {
		return ItemsProperty
	}
	return ""
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

func attachmentFromNode(n data.Node) (activity.Attachment, error) {
	uri := n.URL("url")
	if uri == "" {
		uri = n.String("href")
	}
	if uri == "" {
		return activity.Attachment{}, data.Malformed("attachment without url", n)
	}
	att := activity.Attachment{
		URI:       uri,
		MediaType: n.String("mediaType"),
		Name:      n.String("name"),
	}
	if att.MediaType == "" {
		switch n.String(TypeProperty) {
		case ImageType:
			att.MediaType = "image/*"
		case VideoType:
			att.MediaType = "video/*"
		case AudioType:
			att.MediaType = "audio/*"
		}
	}
	return att, nil
}

func attachmentFromID(id string) (activity.Attachment, error) {
	return activity.Attachment{URI: id}, nil
}
