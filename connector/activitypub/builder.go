package activitypub

import (
	"fmt"

	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/data"
)

func typeTag(t activity.ActivityType) (string, error) {
	switch t {
	case activity.TypeCreate:
		return CreateType, nil
	case activity.TypeUpdate:
		return UpdateType, nil
	case activity.TypeDelete:
		return DeleteType, nil
	case activity.TypeFollow:
		return FollowType, nil
	case activity.TypeLike:
		return LikeType, nil
	case activity.TypeAnnounce:
		return AnnounceType, nil
	case activity.TypeUndoFollow, activity.TypeUndoLike, activity.TypeUndoAnnounce:
		return UndoType, nil
	}
	return "", fmt.Errorf("cannot send activity type %s", t)
}

// addressing splits recipients the way Mastodon does: the public collection
// and explicit actors in "to", the followers collection in "cc".
func addressing(body data.Node, recipients []activity.Recipient) {
	to := make([]interface{}, 0)
	cc := make([]interface{}, 0)
	for _, r := range recipients {
		if r.ID == "" {
			continue
		}
		if r.Kind == activity.RecipientFollowers {
			cc = append(cc, r.ID)
		} else {
			to = append(to, r.ID)
		}
	}
	body[ToProperty] = to
	body[CCProperty] = cc
}

// ActivityBody builds the json envelope for posting an activity to an outbox.
func (m Mapper) ActivityBody(act activity.Activity, recipients []activity.Recipient) (data.Node, error) {
	tag, err := typeTag(act.Type)
	if err != nil {
		return nil, err
	}
	if act.Actor.IsEmpty() {
		return nil, fmt.Errorf("%s activity without actor", tag)
	}
	body := data.Node{
		"@context":    Context,
		TypeProperty:  tag,
		ActorProperty: act.Actor.OID,
	}
	addressing(body, recipients)

	target, err := objectID(act)
	if err != nil {
		return nil, err
	}

	switch act.Type {
	case activity.TypeCreate, activity.TypeUpdate:
		body[ObjectProperty] = m.noteBody(act, recipients)
	case activity.TypeUndoFollow, activity.TypeUndoLike, activity.TypeUndoAnnounce:
		undone, _ := typeTag(act.Type.Undone())
		body[ObjectProperty] = data.Node{
			TypeProperty:   undone,
			ActorProperty:  act.Actor.OID,
			ObjectProperty: target,
		}
	default:
		body[ObjectProperty] = target
	}
	return body, nil
}

func objectID(act activity.Activity) (string, error) {
	var id string
	switch act.ObjectType() {
	case activity.ObjectNote:
		id = act.Note().OID
	case activity.ObjectActor:
		id = act.ObjActor().OID
	case activity.ObjectActivity:
		id = act.Inner().OID
	}
	if act.Type == activity.TypeCreate {
		return id, nil
	}
	if !activity.IsRealOID(id) {
		return "", fmt.Errorf("%s of an object without a remote id", act.Type)
	}
	return id, nil
}

func (m Mapper) noteBody(act activity.Activity, recipients []activity.Recipient) data.Node {
	note := act.Note()
	obj := data.Node{
		TypeProperty:         NoteType,
		AttributedToProperty: act.Actor.OID,
		"content":            note.Content,
	}
	if activity.IsRealOID(note.OID) {
		obj["id"] = note.OID
	}
	if note.Name != "" {
		obj["name"] = note.Name
	}
	if note.Summary != "" {
		obj["summary"] = note.Summary
	}
	if note.Sensitive {
		obj["sensitive"] = true
	}
	if reply := note.InReplyToNote(); activity.IsRealOID(reply.OID) {
		obj[InReplyToProperty] = reply.OID
	}
	if note.ConversationOID != "" {
		obj["context"] = note.ConversationOID
	}
	if len(note.Attachments) > 0 {
		list := make([]interface{}, 0, len(note.Attachments))
		for _, a := range note.Attachments {
			att := data.Node{
				TypeProperty: DocumentType,
				"url":        a.URI,
			}
			if a.MediaType != "" {
				att["mediaType"] = a.MediaType
			}
			if a.Name != "" {
				att["name"] = a.Name
			}
			list = append(list, att)
		}
		obj[AttachmentProperty] = list
	}
	addressing(obj, recipients)
	return obj
}
