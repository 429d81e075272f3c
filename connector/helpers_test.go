package connector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"github.com/tkrehbiel/fedlace/connector/storage"
)

// fakeServer is a remote host. It counts calls per route.
type fakeServer struct {
	*httptest.Server
	router *mux.Router

	lock   sync.Mutex
	calls  map[string]int
	bodies map[string][]string
}

func newFakeServer(t *testing.T) *fakeServer {
	f := &fakeServer{
		router: mux.NewRouter(),
		calls:  make(map[string]int),
		bodies: make(map[string][]string),
	}
	f.Server = httptest.NewServer(f.router)
	t.Cleanup(f.Close)
	return f
}

// newFakeTLSServer is a remote host for code that insists on https.
func newFakeTLSServer(t *testing.T) *fakeServer {
	f := &fakeServer{
		router: mux.NewRouter(),
		calls:  make(map[string]int),
		bodies: make(map[string][]string),
	}
	f.Server = httptest.NewTLSServer(f.router)
	t.Cleanup(f.Close)
	return f
}

// handle routes method and path to h, recording each call and its body.
func (f *fakeServer) handle(method, path string, h http.HandlerFunc) {
	key := method + " " + path
	f.router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.lock.Lock()
		f.calls[key]++
		f.bodies[key] = append(f.bodies[key], string(body))
		f.lock.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(body))
		h(w, r)
	}).Methods(method)
}

func (f *fakeServer) count(method, path string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[method+" "+path]
}

func (f *fakeServer) body(method, path string, i int) map[string]interface{} {
	f.lock.Lock()
	defer f.lock.Unlock()
	var m map[string]interface{}
	list := f.bodies[method+" "+path]
	if i < len(list) {
		_ = json.Unmarshal([]byte(list[i]), &m)
	}
	return m
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/activity+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// replyJSON serves a fixed document.
func replyJSON(v interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, v)
	}
}

// serveActor serves an ActivityPub actor named user with the usual endpoints.
func (f *fakeServer) serveActor(user string) string {
	id := f.URL + "/users/" + user
	f.handle(http.MethodGet, "/users/"+user, replyJSON(map[string]interface{}{
		"@context":          "https://www.w3.org/ns/activitystreams",
		"id":                id,
		"type":              "Person",
		"preferredUsername": user,
		"inbox":             id + "/inbox",
		"outbox":            id + "/outbox",
		"followers":         id + "/followers",
		"following":         id + "/following",
		"endpoints": map[string]interface{}{
			"uploadMedia": f.URL + "/api/media",
		},
	}))
	return id
}

func newTestConfig(accounts ...AccountConfig) Config {
	cfg, _ := ReadConfig([]byte(`{"database": "file::memory:?cache=shared"}`))
	cfg.Accounts = accounts
	return cfg
}

func newTestClient(t *testing.T, cfg Config) *Client {
	client, err := NewClient(cfg, storage.NewDatabase(cfg.Database), nil)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

// connectHome connects an ActivityPub account of user on f, authorized by a token.
func connectHome(t *testing.T, f *fakeServer, user string) (*Client, *Connection) {
	id := f.serveActor(user)
	client := newTestClient(t, newTestConfig(AccountConfig{
		Name:        "home",
		Protocol:    "activitypub",
		Actor:       id,
		AccessToken: "token-" + user,
	}))
	// trusts the certificate of a tls server
	client.HTTP = f.Client()
	conn, err := client.Connect("home")
	require.NoError(t, err)
	return client, conn
}

func bearer(r *http.Request) string {
	return r.Header.Get("Authorization")
}

func ordered(id string, items ...interface{}) map[string]interface{} {
	return map[string]interface{}{
		"id":           id,
		"type":         "OrderedCollectionPage",
		"orderedItems": items,
	}
}

func createNote(actor, id, content string) map[string]interface{} {
	return map[string]interface{}{
		"id":    id + "/activity",
		"type":  "Create",
		"actor": actor,
		"to":    []interface{}{"https://www.w3.org/ns/activitystreams#Public"},
		"object": map[string]interface{}{
			"id":           id,
			"type":         "Note",
			"attributedTo": actor,
			"content":      content,
		},
	}
}

func noteID(f *fakeServer, n int) string {
	return fmt.Sprintf("%s/notes/%d", f.URL, n)
}
