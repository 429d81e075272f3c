package activity

import (
	"fmt"
	"time"
)

type ActivityType int

const (
	TypeEmpty ActivityType = iota
	TypeCreate
	TypeUpdate
	TypeDelete
	TypeFollow
	TypeUndoFollow
	TypeLike
	TypeUndoLike
	TypeAnnounce
	TypeUndoAnnounce
	TypeUnknown
)

var activityTypeNames = map[ActivityType]string{
	TypeEmpty:        "EMPTY",
	TypeCreate:       "CREATE",
	TypeUpdate:       "UPDATE",
	TypeDelete:       "DELETE",
	TypeFollow:       "FOLLOW",
	TypeUndoFollow:   "UNDO_FOLLOW",
	TypeLike:         "LIKE",
	TypeUndoLike:     "UNDO_LIKE",
	TypeAnnounce:     "ANNOUNCE",
	TypeUndoAnnounce: "UNDO_ANNOUNCE",
	TypeUnknown:      "UNKNOWN",
}

func (t ActivityType) String() string {
	if s, ok := activityTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ActivityType(%d)", int(t))
}

// Undo returns the undoing counterpart of a type, or TypeUnknown.
func (t ActivityType) Undo() ActivityType {
	switch t {
	case TypeFollow:
		return TypeUndoFollow
	case TypeLike:
		return TypeUndoLike
	case TypeAnnounce:
		return TypeUndoAnnounce
	}
	return TypeUnknown
}

// Undone is the inverse of Undo.
func (t ActivityType) Undone() ActivityType {
	switch t {
	case TypeUndoFollow:
		return TypeFollow
	case TypeUndoLike:
		return TypeLike
	case TypeUndoAnnounce:
		return TypeAnnounce
	}
	return TypeUnknown
}

func (t ActivityType) IsUndo() bool {
	return t.Undone() != TypeUnknown
}

// ObjectType names which object slot of an Activity is filled.
type ObjectType int

const (
	ObjectNone ObjectType = iota
	ObjectNote
	ObjectActor
	ObjectActivity
)

// Activity is an envelope describing an action of an actor on an object.
// The object is a note, an actor or an embedded activity, never more than one.
type Activity struct {
	Origin   string
	OID      string
	Type     ActivityType
	Actor    Actor
	Author   Actor // may differ from Actor, e.g. for an announce
	Updated  time.Time
	Prev     Position // towards younger items
	Next     Position // towards older items
	object   ObjectType
	note     Note
	objActor Actor
	inner    *Activity
}

// EmptyActivity is returned for input that cannot form an activity.
var EmptyActivity = Activity{}

func NewActivity(origin, oid string, t ActivityType, actor Actor) Activity {
	return Activity{Origin: origin, OID: oid, Type: t, Actor: actor}
}

func (a Activity) IsEmpty() bool {
	return a.Type == TypeEmpty
}

func (a Activity) ObjectType() ObjectType {
	return a.object
}

func (a Activity) Note() Note {
	if a.object == ObjectNote {
		return a.note
	}
	return Note{}
}

func (a Activity) ObjActor() Actor {
	if a.object == ObjectActor {
		return a.objActor
	}
	return EmptyActor
}

// Inner is the embedded activity, or the empty activity.
func (a Activity) Inner() Activity {
	if a.object == ObjectActivity && a.inner != nil {
		return *a.inner
	}
	return EmptyActivity
}

func (a *Activity) SetNote(n Note) {
	a.clearObject()
	a.object = ObjectNote
	a.note = n
}

func (a *Activity) SetObjActor(actor Actor) {
	a.clearObject()
	if actor.IsEmpty() {
		return
	}
	a.object = ObjectActor
	a.objActor = actor
}

func (a *Activity) SetInner(inner Activity) {
	a.clearObject()
	if inner.IsEmpty() {
		return
	}
	a.object = ObjectActivity
	a.inner = &inner
}

func (a *Activity) clearObject() {
	a.object = ObjectNone
	a.note = Note{}
	a.objActor = EmptyActor
	a.inner = nil
}

// AuthorOrActor is who wrote the object, defaulting to who acted.
func (a Activity) AuthorOrActor() Actor {
	if a.Author.NonEmpty() {
		return a.Author
	}
	return a.Actor
}

// NoteOrInnerNote digs one level into an embedded activity, as for an
// announce of a create.
func (a Activity) NoteOrInnerNote() Note {
	switch a.object {
	case ObjectNote:
		return a.note
	case ObjectActivity:
		return a.Inner().Note()
	}
	return Note{}
}

func (a Activity) String() string {
	if a.IsEmpty() {
		return "EMPTY"
	}
	s := fmt.Sprintf("%s by %s", a.Type, a.Actor)
	switch a.object {
	case ObjectNote:
		s += fmt.Sprintf(" note [%s]", a.note.OID)
	case ObjectActor:
		s += fmt.Sprintf(" actor [%s]", a.objActor.OID)
	case ObjectActivity:
		s += fmt.Sprintf(" activity {%s}", a.inner)
	}
	return s
}
