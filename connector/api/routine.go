// Package api holds the types exchanged with the http transport.
package api

import "fmt"

// Routine identifies the remote operation a request performs.
type Routine int

const (
	RoutineUnknown Routine = iota
	GetActor
	GetNote
	GetConversation
	HomeTimeline
	NotificationsTimeline
	ActorTimeline
	LikedTimeline
	GetFriends
	GetFollowers
	UpdateNote
	UpdatePrivateNote
	DeleteNote
	Like
	UndoLike
	Announce
	UndoAnnounce
	Follow
	UndoFollow
	UploadMedia
	DownloadFile
	WebFinger
	OAuthDiscover
	OAuthRegisterClient
)

var routineNames = map[Routine]string{
	RoutineUnknown:        "unknown",
	GetActor:              "get_actor",
	GetNote:               "get_note",
	GetConversation:       "get_conversation",
	HomeTimeline:          "home_timeline",
	NotificationsTimeline: "notifications_timeline",
	ActorTimeline:         "actor_timeline",
	LikedTimeline:         "liked_timeline",
	GetFriends:            "get_friends",
	GetFollowers:          "get_followers",
	UpdateNote:            "update_note",
	UpdatePrivateNote:     "update_private_note",
	DeleteNote:            "delete_note",
	Like:                  "like",
	UndoLike:              "undo_like",
	Announce:              "announce",
	UndoAnnounce:          "undo_announce",
	Follow:                "follow",
	UndoFollow:            "undo_follow",
	UploadMedia:           "upload_media",
	DownloadFile:          "download_file",
	WebFinger:             "webfinger",
	OAuthDiscover:         "oauth_discover",
	OAuthRegisterClient:   "oauth_register_client",
}

func (r Routine) String() string {
	if s, ok := routineNames[r]; ok {
		return s
	}
	return fmt.Sprintf("routine(%d)", int(r))
}

// ParseRoutine is the inverse of String.
func ParseRoutine(s string) (Routine, bool) {
	for r, name := range routineNames {
		if name == s {
			return r, true
		}
	}
	return RoutineUnknown, false
}

// Budget names the rate limit budget a routine draws from on a host.
// Downloads of any kind share one budget.
func (r Routine) Budget() string {
	switch r {
	case DownloadFile, GetActor, GetNote, GetConversation, WebFinger:
		return "download"
	}
	return r.String()
}

// IsTimeline is true for routines that return a page of items.
func (r Routine) IsTimeline() bool {
	switch r {
	case HomeTimeline, NotificationsTimeline, ActorTimeline, LikedTimeline, GetFriends, GetFollowers, GetConversation:
		return true
	}
	return false
}

// IsFriendsListing is true for routines that list actors rather than activities.
func (r Routine) IsFriendsListing() bool {
	return r == GetFriends || r == GetFollowers
}

// IsPost is true for routines that post an activity.
func (r Routine) IsPost() bool {
	switch r {
	case UpdateNote, UpdatePrivateNote, DeleteNote, Like, UndoLike, Announce, UndoAnnounce, Follow, UndoFollow, UploadMedia, OAuthRegisterClient:
		return true
	}
	return false
}
