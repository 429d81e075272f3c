package connector

import (
	"context"
	"fmt"
	"os"

	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/api"
	"github.com/tkrehbiel/fedlace/connector/data"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
)

// Send posts an activity of the account and returns it as the server
// stored it. A note with a server assigned id is sent as an update,
// any other note as a create.
func (c *Connection) Send(ctx context.Context, act activity.Activity) (activity.Activity, error) {
	isNote := act.ObjectType() == activity.ObjectNote && (act.Type == activity.TypeCreate || act.Type == activity.TypeUpdate)
	if isNote {
		note := act.Note()
		if activity.IsRealOID(note.OID) {
			act.Type = activity.TypeUpdate
		} else {
			act.Type = activity.TypeCreate
		}
		if !note.HasBody() {
			return activity.EmptyActivity, newError(StatusBadRequest, "", "%s of a note without content or attachments", act.Type)
		}
	}
	if act.Actor.IsEmpty() || act.Actor.Same(c.Actor) {
		act.Actor = c.self(ctx)
	}
	routine := sendRoutine(act)
	description := fmt.Sprintf("%s %s", act.Type, describeObject(act))

	body, err := c.body(act, description)
	if err != nil {
		return activity.EmptyActivity, err
	}
	uri, conn, err := c.resolve(ctx, routine, activity.EmptyPosition, act.Actor)
	if err != nil {
		return activity.EmptyActivity, err
	}
	if isNote && hasLocalMedia(act.Note()) {
		note, err := c.uploadAttachments(ctx, act.Actor, act.Note())
		if err != nil {
			return activity.EmptyActivity, err
		}
		act.SetNote(note)
		if body, err = c.body(act, description); err != nil {
			return activity.EmptyActivity, err
		}
	}
	sent, err := conn.submit(ctx, routine, uri, body, description)
	if err != nil {
		return activity.EmptyActivity, err
	}

	// Some servers drop the content of a created note and keep an empty
	// shell. Sending the same note again as an update fixes it.
	if act.Type == activity.TypeCreate && act.ObjectType() == activity.ObjectNote {
		note := act.Note()
		echoed := sent.NoteOrInnerNote()
		if note.HasText() && activity.IsRealOID(echoed.OID) && contentDropped(note, echoed) {
			telemetry.Increment("content_drop_resubmits", 1)
			telemetry.Log("content of [%s] was dropped, resubmitting as update", echoed.OID)
			note.OID = echoed.OID
			act.Type = activity.TypeUpdate
			act.SetNote(note)
			if body, err = c.body(act, description); err != nil {
				return activity.EmptyActivity, err
			}
			return conn.submit(ctx, routine, uri, body, "resubmitted "+description)
		}
	}
	return sent, nil
}

func (c *Connection) body(act activity.Activity, description string) (data.Node, error) {
	builder := c.protocol.AudienceBuilder(act.Actor)
	body, err := c.protocol.ActivityBody(act, builder.RecipientList(sendAudience(act)))
	if err != nil {
		return nil, &ConnectionError{Status: StatusBadRequest, Message: description, Err: err}
	}
	return body, nil
}

func (c *Connection) submit(ctx context.Context, routine api.Routine, uri string, body data.Node, description string) (activity.Activity, error) {
	res, err := c.execute(ctx, c.protocol.PostRequest(routine, uri, body))
	if err != nil {
		return activity.EmptyActivity, err
	}
	if res.Object == nil {
		return activity.EmptyActivity, newError(StatusEmptyResponse, uri, "no json in response to %s", description)
	}
	sent, err := c.protocol.ActivityFromJSON(res.Object)
	if err != nil {
		telemetry.Log("malformed response to %s: %s", description, telemetry.Fragment(res.Body))
		return activity.EmptyActivity, &ConnectionError{Status: StatusMalformedWireData, Message: description, URI: uri, Err: err}
	}
	if sent.IsEmpty() {
		return activity.EmptyActivity, newError(StatusEmptyResponse, uri, "no activity in response to %s", description)
	}
	return sent, nil
}

func contentDropped(sent, echoed activity.Note) bool {
	return (sent.Content != "" && echoed.Content == "") ||
		(sent.Name != "" && echoed.Name == "") ||
		(sent.Summary != "" && echoed.Summary == "")
}

func describeObject(act activity.Activity) string {
	switch act.ObjectType() {
	case activity.ObjectNote:
		return "note [" + act.Note().OID + "]"
	case activity.ObjectActor:
		return "actor [" + act.ObjActor().OID + "]"
	case activity.ObjectActivity:
		return "activity [" + act.Inner().OID + "]"
	}
	return "nothing"
}

func sendRoutine(act activity.Activity) api.Routine {
	switch act.Type {
	case activity.TypeDelete:
		return api.DeleteNote
	case activity.TypeLike:
		return api.Like
	case activity.TypeUndoLike:
		return api.UndoLike
	case activity.TypeAnnounce:
		return api.Announce
	case activity.TypeUndoAnnounce:
		return api.UndoAnnounce
	case activity.TypeFollow:
		return api.Follow
	case activity.TypeUndoFollow:
		return api.UndoFollow
	}
	if act.Note().Audience.Visibility() == activity.VisibilityPrivate {
		return api.UpdatePrivateNote
	}
	return api.UpdateNote
}

// sendAudience is who hears about an activity: a note's own audience, the
// followed actor for a follow, the note's author for a like.
func sendAudience(act activity.Activity) activity.Audience {
	aud := activity.NewAudience(act.Origin)
	switch act.Type {
	case activity.TypeCreate, activity.TypeUpdate:
		return act.Note().Audience
	case activity.TypeFollow, activity.TypeUndoFollow:
		aud.Add(act.ObjActor())
	case activity.TypeAnnounce, activity.TypeUndoAnnounce:
		aud.SetPublic(true)
		aud.SetFollowers(true)
		aud.Add(act.Author)
	case activity.TypeLike, activity.TypeUndoLike:
		aud.Add(act.Author)
	}
	return aud
}

func hasLocalMedia(note activity.Note) bool {
	for _, att := range note.Attachments {
		if !att.IsRemote() {
			return true
		}
	}
	return false
}

// uploadAttachments uploads local media and replaces it with the remote
// descriptors. Remote attachments are kept as they are.
func (c *Connection) uploadAttachments(ctx context.Context, actor activity.Actor, note activity.Note) (activity.Note, error) {
	attachments := make([]activity.Attachment, len(note.Attachments))
	copy(attachments, note.Attachments)
	for i, att := range attachments {
		if att.IsRemote() {
			continue
		}
		if att.LocalFile == "" {
			return note, newError(StatusBadRequest, att.URI, "attachment %d of note has no media", i)
		}
		content, err := os.ReadFile(att.LocalFile)
		if err != nil {
			return note, &ConnectionError{Status: StatusBadRequest, Message: "reading attachment", Err: err}
		}
		uri, conn, err := c.resolve(ctx, api.UploadMedia, activity.EmptyPosition, actor)
		if err != nil {
			return note, err
		}
		res, err := conn.execute(ctx, conn.protocol.UploadRequest(uri, att, content))
		if err != nil {
			return note, err
		}
		uploaded, err := conn.protocol.ParseUploaded(res)
		if err != nil {
			return note, &ConnectionError{Status: StatusMalformedWireData, Message: "uploaded media", URI: uri, Err: err}
		}
		if uploaded.MediaType == "" {
			uploaded.MediaType = att.MediaType
		}
		if uploaded.Name == "" {
			uploaded.Name = att.Name
		}
		attachments[i] = uploaded
	}
	note.Attachments = attachments
	return note, nil
}

// self is the account's actor with its endpoints, looked up once.
func (c *Connection) self(ctx context.Context) activity.Actor {
	home := c.homeConnection()
	if home.Actor.HasEndpoints() {
		return home.Actor
	}
	actor, err := home.GetActor(ctx, home.Actor.OID)
	if err != nil {
		telemetry.Error(err, "looking up own actor [%s]", home.Actor.OID)
		return home.Actor
	}
	home.Actor = actor
	return actor
}

func (c *Connection) newActivity(t activity.ActivityType) activity.Activity {
	return activity.NewActivity(c.account.Name, "", t, c.Actor)
}

// Post creates a note, or updates it when it already has a remote id.
func (c *Connection) Post(ctx context.Context, note activity.Note) (activity.Activity, error) {
	act := c.newActivity(activity.TypeCreate)
	act.SetNote(note)
	return c.Send(ctx, act)
}

// Delete removes a note of the account.
func (c *Connection) Delete(ctx context.Context, note activity.Note) (activity.Activity, error) {
	act := c.newActivity(activity.TypeDelete)
	act.SetNote(note)
	return c.Send(ctx, act)
}

// Like, UndoLike, Announce and UndoAnnounce act on the note of a timeline
// item, addressing its author.
func (c *Connection) Like(ctx context.Context, item activity.Activity) (activity.Activity, error) {
	return c.sendOnNote(ctx, activity.TypeLike, item)
}

func (c *Connection) UndoLike(ctx context.Context, item activity.Activity) (activity.Activity, error) {
	return c.sendOnNote(ctx, activity.TypeUndoLike, item)
}

func (c *Connection) Announce(ctx context.Context, item activity.Activity) (activity.Activity, error) {
	return c.sendOnNote(ctx, activity.TypeAnnounce, item)
}

func (c *Connection) UndoAnnounce(ctx context.Context, item activity.Activity) (activity.Activity, error) {
	return c.sendOnNote(ctx, activity.TypeUndoAnnounce, item)
}

func (c *Connection) sendOnNote(ctx context.Context, t activity.ActivityType, item activity.Activity) (activity.Activity, error) {
	note := item.NoteOrInnerNote()
	if note.IsEmpty() {
		return activity.EmptyActivity, newError(StatusBadRequest, "", "%s of %s, which has no note", t, item)
	}
	act := c.newActivity(t)
	act.Author = item.AuthorOrActor()
	if item.ObjectType() == activity.ObjectActivity {
		act.Author = item.Inner().AuthorOrActor()
	}
	act.SetNote(note)
	return c.Send(ctx, act)
}

func (c *Connection) Follow(ctx context.Context, actor activity.Actor) (activity.Activity, error) {
	act := c.newActivity(activity.TypeFollow)
	act.SetObjActor(actor)
	return c.Send(ctx, act)
}

func (c *Connection) UndoFollow(ctx context.Context, actor activity.Actor) (activity.Activity, error) {
	act := c.newActivity(activity.TypeUndoFollow)
	act.SetObjActor(actor)
	return c.Send(ctx, act)
}
