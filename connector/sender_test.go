package connector

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
)

func publicNote(content string) activity.Note {
	note := activity.NewNote(activity.NewTempOID())
	note.Content = content
	note.Audience.SetPublic(true)
	return note
}

func TestSend_ContentDropResubmitsOnce(t *testing.T) {
	f := newFakeServer(t)
	_, conn := connectHome(t, f, "alice")
	alice := f.URL + "/users/alice"
	echoed := noteID(f, 7)
	f.handle(http.MethodPost, "/users/alice/outbox", func(w http.ResponseWriter, r *http.Request) {
		if f.count(http.MethodPost, "/users/alice/outbox") == 1 {
			// the note was created, its content was lost
			writeJSON(w, http.StatusCreated, createNote(alice, echoed, ""))
			return
		}
		act := createNote(alice, echoed, "hello")
		act["type"] = "Update"
		writeJSON(w, http.StatusOK, act)
	})
	before := telemetry.GetCounter("content_drop_resubmits")

	sent, err := conn.Post(context.Background(), publicNote("hello"))
	require.NoError(t, err)
	assert.Equal(t, 2, f.count(http.MethodPost, "/users/alice/outbox"))
	assert.Equal(t, activity.TypeUpdate, sent.Type)
	assert.Equal(t, "hello", sent.Note().Content)
	assert.Equal(t, before+1, telemetry.GetCounter("content_drop_resubmits"))

	first := f.body(http.MethodPost, "/users/alice/outbox", 0)
	assert.Equal(t, "Create", first["type"])
	second := f.body(http.MethodPost, "/users/alice/outbox", 1)
	assert.Equal(t, "Update", second["type"])
	obj := second["object"].(map[string]interface{})
	assert.Equal(t, echoed, obj["id"])
	assert.Equal(t, "hello", obj["content"])
}

func TestSend_PersistentDropStopsAfterTwoCalls(t *testing.T) {
	f := newFakeServer(t)
	_, conn := connectHome(t, f, "alice")
	alice := f.URL + "/users/alice"
	f.handle(http.MethodPost, "/users/alice/outbox", replyJSON(createNote(alice, noteID(f, 7), "")))

	_, err := conn.Post(context.Background(), publicNote("hello"))
	require.NoError(t, err)
	assert.Equal(t, 2, f.count(http.MethodPost, "/users/alice/outbox"))
}

func TestSend_CreateKeptWhenContentArrives(t *testing.T) {
	f := newFakeServer(t)
	_, conn := connectHome(t, f, "alice")
	alice := f.URL + "/users/alice"
	f.handle(http.MethodPost, "/users/alice/outbox", replyJSON(createNote(alice, noteID(f, 7), "hello")))

	sent, err := conn.Post(context.Background(), publicNote("hello"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.count(http.MethodPost, "/users/alice/outbox"))
	assert.Equal(t, activity.TypeCreate, sent.Type)
	assert.Equal(t, noteID(f, 7), sent.Note().OID)

	body := f.body(http.MethodPost, "/users/alice/outbox", 0)
	assert.Equal(t, alice, body["actor"])
	assert.Equal(t, []interface{}{"https://www.w3.org/ns/activitystreams#Public"}, body["to"])
}

func TestSend_RemoteIDMeansUpdate(t *testing.T) {
	f := newFakeServer(t)
	_, conn := connectHome(t, f, "alice")
	alice := f.URL + "/users/alice"
	act := createNote(alice, noteID(f, 3), "edited")
	act["type"] = "Update"
	f.handle(http.MethodPost, "/users/alice/outbox", replyJSON(act))

	note := publicNote("edited")
	note.OID = noteID(f, 3)
	sent, err := conn.Post(context.Background(), note)
	require.NoError(t, err)
	assert.Equal(t, activity.TypeUpdate, sent.Type)
	assert.Equal(t, "Update", f.body(http.MethodPost, "/users/alice/outbox", 0)["type"])
}

func TestSend_EmptyNoteNeverSent(t *testing.T) {
	f := newFakeServer(t)
	_, conn := connectHome(t, f, "alice")
	f.handle(http.MethodPost, "/users/alice/outbox", replyJSON(map[string]interface{}{}))

	requests := telemetry.GetCounter("http_requests")

	_, err := conn.Post(context.Background(), publicNote("  "))
	require.Error(t, err)
	assert.Equal(t, StatusBadRequest, StatusOf(err))
	assert.Equal(t, 0, f.count(http.MethodPost, "/users/alice/outbox"))
	assert.Equal(t, 0, f.count(http.MethodGet, "/users/alice"), "own actor is not looked up")
	assert.Equal(t, requests, telemetry.GetCounter("http_requests"))
}

func TestSend_NoOutboxUploadsNothing(t *testing.T) {
	f := newFakeServer(t)
	id := f.URL + "/users/alice"
	f.handle(http.MethodGet, "/users/alice", replyJSON(map[string]interface{}{
		"id":                id,
		"type":              "Person",
		"preferredUsername": "alice",
		"inbox":             id + "/inbox",
		"endpoints": map[string]interface{}{
			"uploadMedia": f.URL + "/api/media",
		},
	}))
	f.handle(http.MethodPost, "/api/media", replyJSON(map[string]interface{}{
		"id":   f.URL + "/media/1",
		"type": "Image",
		"url":  f.URL + "/media/1.png",
	}))
	client := newTestClient(t, newTestConfig(AccountConfig{
		Name:        "home",
		Protocol:    "activitypub",
		Actor:       id,
		AccessToken: "token-alice",
	}))
	client.HTTP = f.Client()
	conn, err := client.Connect("home")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(file, []byte("PNGDATA"), 0o600))
	note := publicNote("look")
	note.Attachments = []activity.Attachment{{LocalFile: file, MediaType: "image/png"}}

	_, err = conn.Post(context.Background(), note)
	require.Error(t, err)
	assert.Equal(t, StatusBadRequest, StatusOf(err))
	assert.Contains(t, err.Error(), "endpoint for actor")
	assert.Equal(t, 0, f.count(http.MethodPost, "/api/media"))
}

func TestSend_EmptyResponse(t *testing.T) {
	f := newFakeServer(t)
	_, conn := connectHome(t, f, "alice")
	f.handle(http.MethodPost, "/users/alice/outbox", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	_, err := conn.Post(context.Background(), publicNote("hello"))
	require.Error(t, err)
	assert.Equal(t, StatusEmptyResponse, StatusOf(err))
	assert.Contains(t, err.Error(), "CREATE note")
}

func TestSend_UploadsLocalAttachments(t *testing.T) {
	f := newFakeServer(t)
	_, conn := connectHome(t, f, "alice")
	alice := f.URL + "/users/alice"
	f.handle(http.MethodPost, "/api/media", func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("file"); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"id":        f.URL + "/media/1",
			"type":      "Image",
			"url":       f.URL + "/media/1.png",
			"mediaType": "image/png",
		})
	})
	f.handle(http.MethodPost, "/users/alice/outbox", replyJSON(createNote(alice, noteID(f, 1), "look")))

	file := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(file, []byte("PNGDATA"), 0o600))
	note := publicNote("look")
	note.Attachments = []activity.Attachment{
		{LocalFile: file, MediaType: "image/png", Name: "a cat"},
		{URI: "https://elsewhere.example/dog.jpg", MediaType: "image/jpeg"},
	}

	_, err := conn.Post(context.Background(), note)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count(http.MethodPost, "/api/media"))

	obj := f.body(http.MethodPost, "/users/alice/outbox", 0)["object"].(map[string]interface{})
	attachments := obj["attachment"].([]interface{})
	require.Len(t, attachments, 2)
	assert.Equal(t, f.URL+"/media/1.png", attachments[0].(map[string]interface{})["url"])
	assert.Equal(t, "a cat", attachments[0].(map[string]interface{})["name"])
	assert.Equal(t, "https://elsewhere.example/dog.jpg", attachments[1].(map[string]interface{})["url"])
	assert.Equal(t, file, note.Attachments[0].LocalFile, "the caller's note is not changed")
}

func TestFollow_AddressesFollowedActor(t *testing.T) {
	f := newFakeServer(t)
	_, conn := connectHome(t, f, "alice")
	alice := f.URL + "/users/alice"
	bob := f.URL + "/users/bob"
	f.handle(http.MethodPost, "/users/alice/outbox", replyJSON(map[string]interface{}{
		"id": alice + "/follows/1", "type": "Follow", "actor": alice, "object": bob,
	}))

	sent, err := conn.Follow(context.Background(), activity.NewActor("home", bob))
	require.NoError(t, err)
	assert.Equal(t, activity.TypeFollow, sent.Type)
	assert.Equal(t, bob, sent.ObjActor().OID)

	body := f.body(http.MethodPost, "/users/alice/outbox", 0)
	assert.Equal(t, "Follow", body["type"])
	assert.Equal(t, bob, body["object"])
	assert.Equal(t, []interface{}{bob}, body["to"])
}

func TestFollow_EmptyActorRejected(t *testing.T) {
	f := newFakeServer(t)
	_, conn := connectHome(t, f, "alice")

	_, err := conn.Follow(context.Background(), activity.EmptyActor)
	assert.Equal(t, StatusBadRequest, StatusOf(err))
	assert.Equal(t, 0, f.count(http.MethodPost, "/users/alice/outbox"))
}

func TestLike_AddressesAuthor(t *testing.T) {
	f := newFakeServer(t)
	_, conn := connectHome(t, f, "alice")
	alice := f.URL + "/users/alice"
	bob := f.URL + "/users/bob"
	f.handle(http.MethodPost, "/users/alice/outbox", replyJSON(map[string]interface{}{
		"id": alice + "/likes/1", "type": "Like", "actor": alice, "object": noteID(f, 9),
	}))
	item := activity.NewActivity("home", "", activity.TypeCreate, activity.NewActor("home", bob))
	item.SetNote(activity.NewNote(noteID(f, 9)))

	_, err := conn.Like(context.Background(), item)
	require.NoError(t, err)
	body := f.body(http.MethodPost, "/users/alice/outbox", 0)
	assert.Equal(t, "Like", body["type"])
	assert.Equal(t, noteID(f, 9), body["object"])
	assert.Equal(t, []interface{}{bob}, body["to"])
}
