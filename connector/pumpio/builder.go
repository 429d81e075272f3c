package pumpio

import (
	"fmt"

	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/data"
)

func verb(t activity.ActivityType) (string, error) {
	switch t {
	case activity.TypeCreate:
		return PostVerb, nil
	case activity.TypeUpdate:
		return UpdateVerb, nil
	case activity.TypeDelete:
		return DeleteVerb, nil
	case activity.TypeFollow:
		return FollowVerb, nil
	case activity.TypeUndoFollow:
		return StopFollowingVerb, nil
	case activity.TypeLike:
		return FavoriteVerb, nil
	case activity.TypeUndoLike:
		return UnfavoriteVerb, nil
	case activity.TypeAnnounce:
		return ShareVerb, nil
	case activity.TypeUndoAnnounce:
		return UnshareVerb, nil
	}
	return "", fmt.Errorf("cannot send activity type %s", t)
}

// pump.io recipients are objects, not bare ids
func addressing(body data.Node, recipients []activity.Recipient) {
	to := make([]interface{}, 0)
	cc := make([]interface{}, 0)
	for _, r := range recipients {
		if r.ID == "" {
			continue
		}
		switch r.Kind {
		case activity.RecipientFollowers:
			cc = append(cc, data.Node{"id": r.ID, objectTypeProperty: CollectionType})
		case activity.RecipientPublic:
			to = append(to, data.Node{"id": r.ID, objectTypeProperty: CollectionType})
		default:
			to = append(to, data.Node{"id": r.ID, objectTypeProperty: PersonType})
		}
	}
	body[toProperty] = to
	body[ccProperty] = cc
}

// ActivityBody builds the json posted to the actor's feed.
func (m Mapper) ActivityBody(act activity.Activity, recipients []activity.Recipient) (data.Node, error) {
	v, err := verb(act.Type)
	if err != nil {
		return nil, err
	}
	if act.Actor.IsEmpty() {
		return nil, fmt.Errorf("%s activity without actor", v)
	}
	body := data.Node{verbProperty: v}
	addressing(body, recipients)

	switch act.ObjectType() {
	case activity.ObjectNote:
		note := act.Note()
		if act.Type != activity.TypeCreate && !activity.IsRealOID(note.OID) {
			return nil, fmt.Errorf("%s of a note without a remote id", v)
		}
		if act.Type == activity.TypeCreate || act.Type == activity.TypeUpdate {
			body[objectProperty] = noteBody(note)
		} else {
			body[objectProperty] = data.Node{"id": note.OID, objectTypeProperty: noteType(note)}
		}
	case activity.ObjectActor:
		body[objectProperty] = data.Node{"id": act.ObjActor().OID, objectTypeProperty: PersonType}
	case activity.ObjectActivity:
		if !activity.IsRealOID(act.Inner().OID) {
			return nil, fmt.Errorf("%s of an activity without a remote id", v)
		}
		body[objectProperty] = data.Node{"id": act.Inner().OID, objectTypeProperty: ActivityType}
	default:
		return nil, fmt.Errorf("%s activity without object", v)
	}
	return body, nil
}

// replies are comments in pump.io
func noteType(note activity.Note) string {
	if note.InReplyTo != nil {
		return CommentType
	}
	return NoteType
}

func noteBody(note activity.Note) data.Node {
	obj := data.Node{
		objectTypeProperty: noteType(note),
		"content":          note.Content,
	}
	if activity.IsRealOID(note.OID) {
		obj["id"] = note.OID
	}
	if note.Name != "" {
		obj["displayName"] = note.Name
	}
	if note.Summary != "" {
		obj["summary"] = note.Summary
	}
	if reply := note.InReplyToNote(); activity.IsRealOID(reply.OID) {
		obj[inReplyToProperty] = data.Node{"id": reply.OID, objectTypeProperty: NoteType}
	}
	if len(note.Attachments) > 0 {
		list := make([]interface{}, 0, len(note.Attachments))
		for _, a := range note.Attachments {
			list = append(list, data.Node{
				objectTypeProperty: ImageType,
				"url":              a.URI,
				"displayName":      a.Name,
				"image":            data.Node{"url": a.URI},
			})
		}
		obj[attachmentsProp] = list
	}
	return obj
}
