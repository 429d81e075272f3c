package connector

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrehbiel/fedlace/connector/rss"
	"github.com/tkrehbiel/fedlace/connector/storage"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
)

const testFeed = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>
<rss version="2.0">
  <channel>
    <title>Blog</title>
    <link>https://blog.example.com/</link>
    <item>
      <title>Hello &amp; welcome</title>
      <link>https://blog.example.com/posts/hello/</link>
      <guid>https://blog.example.com/posts/hello/</guid>
      <pubDate>Tue, 20 Dec 2022 10:00:00 +0000</pubDate>
      <category>Go Lang</category>
      <enclosure url="https://blog.example.com/posts/hello/cover.png" length="10" type="image/png" />
    </item>
  </channel>
</rss>`

func serveFeed(f *fakeServer) string {
	f.handle(http.MethodGet, "/index.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(testFeed))
	})
	return f.URL + "/index.xml"
}

func TestCrossPoster_PostsNewItemsOnce(t *testing.T) {
	f := newFakeServer(t)
	client, conn := connectHome(t, f, "alice")
	alice := f.URL + "/users/alice"
	f.handle(http.MethodPost, "/users/alice/outbox", replyJSON(createNote(alice, noteID(f, 1), "posted")))
	feed := FeedConfig{URL: serveFeed(f), Account: "home"}
	before := telemetry.GetCounter("crossposted_items")

	watcher := rss.NewFeedWatcher(feed.URL, client.HTTP, conn.NewCrossPoster(feed))
	require.NoError(t, watcher.Check(context.Background()))
	assert.Equal(t, 1, f.count(http.MethodPost, "/users/alice/outbox"))
	assert.Equal(t, before+1, telemetry.GetCounter("crossposted_items"))

	body := f.body(http.MethodPost, "/users/alice/outbox", 0)
	assert.Equal(t, "Create", body["type"])
	obj := body["object"].(map[string]interface{})
	assert.Equal(t, `<p><a href="https://blog.example.com/posts/hello/">Hello &amp; welcome</a></p><p>#GoLang</p>`, obj["content"])
	attachments := obj["attachment"].([]interface{})
	require.Len(t, attachments, 1)
	att := attachments[0].(map[string]interface{})
	assert.Equal(t, "https://blog.example.com/posts/hello/cover.png", att["url"])
	assert.Equal(t, "image/png", att["mediaType"])
	assert.Contains(t, body["to"], "https://www.w3.org/ns/activitystreams#Public")
	assert.Contains(t, body["cc"], alice+"/followers")

	post, err := client.store.FindCrossPost(feed.URL, "https://blog.example.com/posts/hello/")
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, noteID(f, 1), post.NoteOID)
	assert.Equal(t, "home", post.Account)

	// a new watcher still knows the item from the database
	again := rss.NewFeedWatcher(feed.URL, client.HTTP, conn.NewCrossPoster(feed))
	require.NoError(t, again.Check(context.Background()))
	assert.Equal(t, 1, f.count(http.MethodPost, "/users/alice/outbox"))
}

func TestCrossPoster_FailedPostIsRetried(t *testing.T) {
	f := newFakeServer(t)
	client, conn := connectHome(t, f, "alice")
	f.handle(http.MethodPost, "/users/alice/outbox", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	feed := FeedConfig{URL: serveFeed(f), Account: "home"}

	watcher := rss.NewFeedWatcher(feed.URL, client.HTTP, conn.NewCrossPoster(feed))
	require.NoError(t, watcher.Check(context.Background()))
	require.NoError(t, watcher.Check(context.Background()))
	assert.Equal(t, 2, f.count(http.MethodPost, "/users/alice/outbox"))

	post, err := client.store.FindCrossPost(feed.URL, "https://blog.example.com/posts/hello/")
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestCrossPost_SkipsItemsPostedEarlier(t *testing.T) {
	f := newFakeServer(t)
	client, conn := connectHome(t, f, "alice")
	feed := FeedConfig{URL: serveFeed(f), Account: "home"}
	require.NoError(t, client.store.SaveCrossPost(&storage.CrossPost{
		ItemID:    "https://blog.example.com/posts/hello/",
		FeedURL:   feed.URL,
		Account:   "home",
		NoteOID:   noteID(f, 1),
		Published: time.Date(2022, 12, 20, 10, 0, 0, 0, time.UTC),
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, conn.CrossPost(ctx, feed))
	assert.Equal(t, 1, f.count(http.MethodGet, "/index.xml"))
	assert.Equal(t, 0, f.count(http.MethodPost, "/users/alice/outbox"))
}
