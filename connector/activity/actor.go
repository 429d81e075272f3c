// Package activity holds the canonical, protocol-independent model of actors,
// notes, activities and audiences.
package activity

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type EndpointType int

const (
	EndpointEmpty EndpointType = iota
	EndpointInbox
	EndpointOutbox
	EndpointFollowing
	EndpointFollowers
	EndpointLiked
	EndpointSharedInbox
	EndpointUploadMedia
	EndpointProfile
	EndpointBanner
)

var endpointNames = map[EndpointType]string{
	EndpointEmpty:       "empty",
	EndpointInbox:       "inbox",
	EndpointOutbox:      "outbox",
	EndpointFollowing:   "following",
	EndpointFollowers:   "followers",
	EndpointLiked:       "liked",
	EndpointSharedInbox: "sharedInbox",
	EndpointUploadMedia: "uploadMedia",
	EndpointProfile:     "profile",
	EndpointBanner:      "banner",
}

func (t EndpointType) String() string {
	if s, ok := endpointNames[t]; ok {
		return s
	}
	return fmt.Sprintf("endpoint(%d)", int(t))
}

// maxEndpointsPerType bounds the list kept for one endpoint type.
const maxEndpointsPerType = 3

// Endpoints is an ordered list of uris per endpoint type.
type Endpoints map[EndpointType][]string

// GroupType tells an ordinary actor from a collection or group.
type GroupType int

const (
	GroupNone GroupType = iota
	GroupGeneric
	GroupCollection // e.g. a followers collection addressed as a recipient
)

// Actor is a federated identity. An Actor with an empty OID is the EMPTY
// sentinel and never stands for a real actor.
type Actor struct {
	Origin      string
	OID         string
	ID          int64 // local id, 0 if unknown
	Username    string
	RealName    string
	Summary     string
	ProfileURL  string
	HomepageURL string
	AvatarURL   string
	Location    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Group       GroupType
	Endpoints   Endpoints

	// Followed is set when the server reports whether the account follows this actor.
	Followed *bool

	NotesCount     int64
	LikesCount     int64
	FollowingCount int64
	FollowersCount int64
}

// EmptyActor is the absent actor.
var EmptyActor = Actor{}

func NewActor(origin, oid string) Actor {
	return Actor{Origin: origin, OID: strings.TrimSpace(oid)}
}

func (a Actor) IsEmpty() bool {
	return a.OID == ""
}

func (a Actor) NonEmpty() bool {
	return !a.IsEmpty()
}

// AddEndpoint appends a uri for the type, ignoring blanks and duplicates.
func (a *Actor) AddEndpoint(t EndpointType, uri string) {
	uri = strings.TrimSpace(uri)
	if uri == "" || t == EndpointEmpty {
		return
	}
	if a.Endpoints == nil {
		a.Endpoints = make(Endpoints)
	}
	list := a.Endpoints[t]
	for _, u := range list {
		if u == uri {
			return
		}
	}
	if len(list) >= maxEndpointsPerType {
		return
	}
	a.Endpoints[t] = append(list, uri)
}

// Endpoint returns the first uri registered for the type. The profile
// endpoint falls back to the actor's own id.
func (a Actor) Endpoint(t EndpointType) (string, bool) {
	if list := a.Endpoints[t]; len(list) > 0 {
		return list[0], true
	}
	if t == EndpointProfile && strings.HasPrefix(a.OID, "http") {
		return a.OID, true
	}
	return "", false
}

// HasEndpoints is false for an actor known only by id.
func (a Actor) HasEndpoints() bool {
	return len(a.Endpoints) > 0
}

// Host returns the host part of the actor's id, understanding both
// url ids and acct:user@host ids.
func (a Actor) Host() string {
	if strings.HasPrefix(a.OID, "acct:") {
		if i := strings.LastIndex(a.OID, "@"); i >= 0 {
			return a.OID[i+1:]
		}
		return ""
	}
	u, err := url.Parse(a.OID)
	if err != nil {
		return ""
	}
	return u.Host
}

// WebFingerID is user@host when both parts are known.
func (a Actor) WebFingerID() string {
	if strings.HasPrefix(a.OID, "acct:") {
		return strings.TrimPrefix(a.OID, "acct:")
	}
	host := a.Host()
	if a.Username == "" || host == "" {
		return ""
	}
	return a.Username + "@" + host
}

// Same compares two actors by id. Empty actors are never the same as anything.
func (a Actor) Same(b Actor) bool {
	return a.NonEmpty() && a.OID == b.OID
}

func (a Actor) String() string {
	if a.IsEmpty() {
		return "EMPTY"
	}
	if wf := a.WebFingerID(); wf != "" {
		return fmt.Sprintf("%s (%s)", wf, a.OID)
	}
	return a.OID
}
