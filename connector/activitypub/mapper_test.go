package activitypub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/data"
)

func node(t *testing.T, s string) data.Node {
	n, err := data.ParseNode([]byte(s))
	require.NoError(t, err)
	return n
}

const createNote = `{
	"@context": "https://www.w3.org/ns/activitystreams",
	"id": "https://example.com/users/alice/statuses/1/activity",
	"type": "Create",
	"actor": "https://example.com/users/alice",
	"published": "2022-11-22T07:43:00Z",
	"to": ["https://www.w3.org/ns/activitystreams#Public"],
	"cc": ["https://example.com/users/alice/followers", "https://other.example/users/bob"],
	"object": {
		"id": "https://example.com/users/alice/statuses/1",
		"type": "Note",
		"attributedTo": "https://example.com/users/alice",
		"summary": "cw",
		"sensitive": true,
		"content": "<p>hello</p>",
		"conversation": "tag:example.com,2022:objectId=1:objectType=Conversation",
		"inReplyTo": "https://other.example/users/bob/statuses/7",
		"url": "https://example.com/@alice/1",
		"to": ["https://www.w3.org/ns/activitystreams#Public"],
		"cc": ["https://example.com/users/alice/followers", "https://other.example/users/bob"],
		"attachment": [
			{"type": "Document", "mediaType": "image/png", "url": "https://example.com/media/1.png", "name": "alt"},
			{"type": "Document"},
			"https://example.com/media/2.png"
		],
		"replies": {
			"id": "https://example.com/users/alice/statuses/1/replies",
			"type": "Collection",
			"first": {
				"type": "CollectionPage",
				"items": [
					"https://other.example/users/bob/statuses/8",
					{"id": "https://other.example/users/carol/statuses/9", "type": "Note", "content": "re", "attributedTo": "https://other.example/users/carol"}
				]
			}
		}
	}
}`

func TestActivityFromJSON_CreateNote(t *testing.T) {
	m := Mapper{Origin: "example"}
	act, err := m.ActivityFromJSON(node(t, createNote))
	require.NoError(t, err)

	assert.Equal(t, activity.TypeCreate, act.Type)
	assert.Equal(t, "https://example.com/users/alice/statuses/1/activity", act.OID)
	assert.Equal(t, "https://example.com/users/alice", act.Actor.OID)
	assert.Equal(t, "https://example.com/users/alice", act.Author.OID)
	assert.Equal(t, time.Date(2022, 11, 22, 7, 43, 0, 0, time.UTC), act.Updated)
	require.Equal(t, activity.ObjectNote, act.ObjectType())

	note := act.Note()
	assert.Equal(t, "https://example.com/users/alice/statuses/1", note.OID)
	assert.Equal(t, "<p>hello</p>", note.Content)
	assert.Equal(t, "text/html", note.ContentType)
	assert.Equal(t, "cw", note.Summary)
	assert.True(t, note.Sensitive)
	assert.Equal(t, "https://example.com/@alice/1", note.URL)
	assert.Contains(t, note.ConversationOID, "Conversation")
	assert.Equal(t, "https://other.example/users/bob/statuses/7", note.InReplyToNote().OID)

	require.Len(t, note.Attachments, 2)
	assert.Equal(t, "image/png", note.Attachments[0].MediaType)
	assert.Equal(t, "alt", note.Attachments[0].Name)
	assert.Equal(t, "https://example.com/media/2.png", note.Attachments[1].URI)

	require.Len(t, note.Replies, 2)
	assert.Equal(t, "https://other.example/users/bob/statuses/8", note.Replies[0].Note().OID)
	assert.Equal(t, "re", note.Replies[1].Note().Content)
	assert.Equal(t, "https://other.example/users/carol", note.Replies[1].Actor.OID)

	assert.Equal(t, activity.VisibilityPublicAndToFollowers, note.Audience.Visibility())
	require.Len(t, note.Audience.Recipients(), 1)
	assert.Equal(t, "https://other.example/users/bob", note.Audience.Recipients()[0].OID)
}

func TestActivityFromJSON_BareObjectIDs(t *testing.T) {
	m := Mapper{Origin: "example"}

	like, err := m.ActivityFromJSON(node(t, `{"id": "https://example.com/l/1", "type": "Like",
		"actor": "https://example.com/users/alice", "object": "https://other.example/users/bob/statuses/7"}`))
	require.NoError(t, err)
	assert.Equal(t, activity.TypeLike, like.Type)
	assert.Equal(t, "https://other.example/users/bob/statuses/7", like.Note().OID)

	follow, err := m.ActivityFromJSON(node(t, `{"id": "https://example.com/f/1", "type": "Follow",
		"actor": "https://example.com/users/alice", "object": "https://other.example/x/bob"}`))
	require.NoError(t, err)
	assert.Equal(t, activity.TypeFollow, follow.Type)
	assert.Equal(t, "https://other.example/x/bob", follow.ObjActor().OID)

	person, err := m.ActivityFromJSON(node(t, `{"id": "https://example.com/b/1", "type": "Block",
		"actor": "https://example.com/users/alice", "object": "https://example.com/users/bob"}`))
	require.NoError(t, err)
	assert.Equal(t, activity.ObjectActor, person.ObjectType())

	inner, err := m.ActivityFromJSON(node(t, `{"id": "https://example.com/a/1", "type": "Announce",
		"actor": "https://example.com/users/alice", "object": "https://example.com/activities/123"}`))
	require.NoError(t, err)
	assert.Equal(t, activity.ObjectActivity, inner.ObjectType())
	assert.Equal(t, "https://example.com/activities/123", inner.Inner().OID)
}

func TestActivityFromJSON_UndoFollow(t *testing.T) {
	m := Mapper{Origin: "example"}
	act, err := m.ActivityFromJSON(node(t, `{
		"id": "https://example.com/u/1", "type": "Undo", "actor": "https://example.com/users/alice",
		"object": {"id": "https://example.com/f/1", "type": "Follow", "actor": "https://example.com/users/alice",
			"object": "https://other.example/users/bob"}}`))
	require.NoError(t, err)
	assert.Equal(t, activity.TypeUndoFollow, act.Type)
	assert.Equal(t, "https://other.example/users/bob", act.ObjActor().OID)
}

func TestActivityFromJSON_AnnounceAuthor(t *testing.T) {
	m := Mapper{Origin: "example"}
	act, err := m.ActivityFromJSON(node(t, `{
		"id": "https://example.com/a/2", "type": "Announce", "actor": "https://example.com/users/alice",
		"object": {"id": "https://other.example/users/bob/statuses/7", "type": "Note",
			"content": "boosted", "attributedTo": {"id": "https://other.example/users/bob", "type": "Person", "preferredUsername": "bob"}}}`))
	require.NoError(t, err)
	assert.Equal(t, activity.TypeAnnounce, act.Type)
	assert.Equal(t, "https://example.com/users/alice", act.Actor.OID)
	assert.Equal(t, "https://other.example/users/bob", act.Author.OID)
	assert.Equal(t, "bob", act.Author.Username)
}

func TestActivityFromJSON_BareNoteAndPerson(t *testing.T) {
	m := Mapper{Origin: "example"}

	act, err := m.ActivityFromJSON(node(t, `{"id": "https://example.com/notes/1", "type": "Note",
		"content": "plain", "attributedTo": "https://example.com/users/alice"}`))
	require.NoError(t, err)
	assert.Equal(t, activity.TypeUpdate, act.Type)
	assert.Equal(t, "https://example.com/users/alice", act.Actor.OID)
	assert.Equal(t, "plain", act.Note().Content)

	act, err = m.ActivityFromJSON(node(t, `{"id": "https://example.com/users/bob", "type": "Person", "preferredUsername": "bob"}`))
	require.NoError(t, err)
	assert.Equal(t, activity.TypeUpdate, act.Type)
	assert.Equal(t, "bob", act.ObjActor().Username)
	assert.Equal(t, "bob", act.Actor.Username)
}

func TestActivityFromJSON_VideoIsNote(t *testing.T) {
	m := Mapper{Origin: "example"}
	act, err := m.ActivityFromJSON(node(t, `{"id": "https://tube.example/v/1", "type": "Video", "name": "clip",
		"attributedTo": "https://tube.example/accounts/bob"}`))
	require.NoError(t, err)
	assert.Equal(t, "clip", act.Note().Name)
}

func TestActivityFromJSON_WithoutIDIsEmpty(t *testing.T) {
	m := Mapper{Origin: "example"}
	for _, s := range []string{
		`{"type": "Create", "object": {"id": "x", "type": "Note"}}`,
		`{"type": "Note", "content": "no id"}`,
		`{"type": "Emoji", "id": "e"}`,
	} {
		act, err := m.ActivityFromJSON(node(t, s))
		assert.NoError(t, err, s)
		assert.True(t, act.IsEmpty(), s)
	}
}

func TestActivityFromJSON_BadReplyToPropagates(t *testing.T) {
	m := Mapper{Origin: "example"}
	_, err := m.ActivityFromJSON(node(t, `{"id": "https://example.com/notes/2", "type": "Note",
		"content": "reply", "inReplyTo": {"type": "Note", "content": "parent without id"}}`))
	require.Error(t, err)
	var malformed *data.MalformedError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "parent without id", malformed.Node.String("content"))
}

func TestActorFromJSON(t *testing.T) {
	m := Mapper{Origin: "example"}
	actor, err := m.ActorFromJSON(node(t, `{
		"id": "https://example.com/users/alice",
		"type": "Person",
		"preferredUsername": "alice",
		"name": "Alice",
		"summary": "bio",
		"url": "https://example.com/@alice",
		"icon": {"type": "Image", "url": "https://example.com/a.png"},
		"image": {"type": "Image", "url": "https://example.com/banner.png"},
		"inbox": "https://example.com/users/alice/inbox",
		"outbox": {"id": "https://example.com/users/alice/outbox", "type": "OrderedCollection", "totalItems": 12},
		"following": "https://example.com/users/alice/following",
		"followers": "https://example.com/users/alice/followers",
		"liked": "https://example.com/users/alice/liked",
		"published": "2020-01-02T03:04:05Z",
		"endpoints": {"sharedInbox": "https://example.com/inbox", "uploadMedia": "https://example.com/upload"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "alice", actor.Username)
	assert.Equal(t, "Alice", actor.RealName)
	assert.Equal(t, "https://example.com/a.png", actor.AvatarURL)
	assert.Equal(t, "alice@example.com", actor.WebFingerID())
	assert.Equal(t, int64(12), actor.NotesCount)
	for typ, expected := range map[activity.EndpointType]string{
		activity.EndpointInbox:       "https://example.com/users/alice/inbox",
		activity.EndpointOutbox:      "https://example.com/users/alice/outbox",
		activity.EndpointFollowers:   "https://example.com/users/alice/followers",
		activity.EndpointSharedInbox: "https://example.com/inbox",
		activity.EndpointUploadMedia: "https://example.com/upload",
		activity.EndpointBanner:      "https://example.com/banner.png",
		activity.EndpointProfile:     "https://example.com/users/alice",
	} {
		uri, ok := actor.Endpoint(typ)
		assert.True(t, ok, typ.String())
		assert.Equal(t, expected, uri, typ.String())
	}
}

func TestActorFromJSON_NoID(t *testing.T) {
	m := Mapper{Origin: "example"}
	_, err := m.ActorFromJSON(node(t, `{"type": "Person"}`))
	assert.Error(t, err)
}
