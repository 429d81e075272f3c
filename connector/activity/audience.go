package activity

import "fmt"

type Visibility int

const (
	VisibilityUnknown Visibility = iota
	VisibilityPublic
	VisibilityPublicAndToFollowers
	VisibilityPrivate
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "PUBLIC"
	case VisibilityPublicAndToFollowers:
		return "PUBLIC_AND_TO_FOLLOWERS"
	case VisibilityPrivate:
		return "PRIVATE"
	}
	return "UNKNOWN"
}

// Audience is the set of recipients of a note. The public collection and the
// followers collection are kept as markers, never as recipients.
type Audience struct {
	Origin    string
	actors    []Actor
	public    bool
	followers bool
}

func NewAudience(origin string) Audience {
	return Audience{Origin: origin}
}

// Add appends a recipient, skipping empty and already present actors.
func (a *Audience) Add(actor Actor) {
	if actor.IsEmpty() || a.Contains(actor) {
		return
	}
	a.actors = append(a.actors, actor)
}

func (a Audience) Contains(actor Actor) bool {
	for _, x := range a.actors {
		if x.Same(actor) {
			return true
		}
	}
	return false
}

func (a *Audience) SetPublic(on bool) {
	a.public = on
}

func (a *Audience) SetFollowers(on bool) {
	a.followers = on
}

func (a Audience) IsPublic() bool {
	return a.public
}

func (a Audience) IsFollowers() bool {
	return a.followers
}

// Recipients are the explicit recipients, without the markers.
func (a Audience) Recipients() []Actor {
	out := make([]Actor, len(a.actors))
	copy(out, a.actors)
	return out
}

// NoRecipients is true when nothing at all was addressed.
func (a Audience) NoRecipients() bool {
	return len(a.actors) == 0 && !a.public && !a.followers
}

// Visibility derives from the markers. A followers-only audience reads as
// PRIVATE: one wire format cannot tell it apart from a direct message, so it
// only shows up as PUBLIC_AND_TO_FOLLOWERS together with the public marker.
func (a Audience) Visibility() Visibility {
	v := VisibilityUnknown
	if len(a.actors) > 0 || a.followers {
		v = VisibilityPrivate
	}
	if a.public {
		if a.followers {
			v = VisibilityPublicAndToFollowers
		} else {
			v = VisibilityPublic
		}
	}
	return v
}

func (a Audience) String() string {
	return fmt.Sprintf("%s, %d recipients", a.Visibility(), len(a.actors))
}

type RecipientKind int

const (
	RecipientActor RecipientKind = iota
	RecipientPublic
	RecipientFollowers
)

// Recipient is one wire-level addressee.
type Recipient struct {
	ID   string
	Kind RecipientKind
}

// AudienceBuilder converts between wire recipient lists and an Audience for
// one origin and one acting actor.
type AudienceBuilder struct {
	Origin    string
	PublicIDs []string // ids of the public collection; the first is used when sending
	Followers string   // the acting actor's followers collection
}

func (b AudienceBuilder) isPublic(id string) bool {
	for _, p := range b.PublicIDs {
		if p == id {
			return true
		}
	}
	return false
}

// Build folds the to and cc recipients into an Audience.
func (b AudienceBuilder) Build(to, cc []Actor) Audience {
	aud := NewAudience(b.Origin)
	for _, list := range [][]Actor{to, cc} {
		for _, actor := range list {
			switch {
			case actor.IsEmpty():
			case b.isPublic(actor.OID):
				aud.public = true
			case b.Followers != "" && actor.OID == b.Followers:
				aud.followers = true
			default:
				aud.Add(actor)
			}
		}
	}
	return aud
}

// RecipientList is the wire form of an Audience. An audience without any
// recipients is sent to the public collection, because some servers only
// forward activities addressed to at least one of their known fields.
func (b AudienceBuilder) RecipientList(aud Audience) []Recipient {
	out := make([]Recipient, 0, len(aud.actors)+2)
	publicID := ""
	if len(b.PublicIDs) > 0 {
		publicID = b.PublicIDs[0]
	}
	if aud.public || aud.NoRecipients() {
		out = append(out, Recipient{ID: publicID, Kind: RecipientPublic})
	}
	if aud.followers && b.Followers != "" {
		out = append(out, Recipient{ID: b.Followers, Kind: RecipientFollowers})
	}
	for _, actor := range aud.actors {
		out = append(out, Recipient{ID: actor.OID, Kind: RecipientActor})
	}
	return out
}
