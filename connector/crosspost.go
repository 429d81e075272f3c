package connector

import (
	"context"
	"fmt"
	"html"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/rss"
	"github.com/tkrehbiel/fedlace/connector/storage"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
)

// CrossPoster posts new feed items as public notes of an account.
type CrossPoster struct {
	conn *Connection
	feed FeedConfig
}

func (c *Connection) NewCrossPoster(feed FeedConfig) *CrossPoster {
	return &CrossPoster{conn: c, feed: feed}
}

func (p *CrossPoster) StatusCode(code int) {
	telemetry.Trace("feed %s returned %d", p.feed.URL, code)
}

// NewItem posts an item unless it was posted before.
func (p *CrossPoster) NewItem(ctx context.Context, item rss.Item) error {
	store := p.conn.client.store
	done, err := store.FindCrossPost(p.feed.URL, item.ID)
	if err != nil {
		return fmt.Errorf("looking up feed item [%s]: %w", item.ID, err)
	}
	if done != nil {
		return nil
	}

	sent, err := p.conn.Post(ctx, itemNote(p.conn.account.Name, item))
	if err != nil {
		return fmt.Errorf("posting feed item [%s]: %w", item.ID, err)
	}
	telemetry.Increment("crossposted_items", 1)
	telemetry.Log("posted feed item [%s] as [%s]", item.ID, sent.NoteOrInnerNote().OID)

	err = store.SaveCrossPost(&storage.CrossPost{
		ItemID:    item.ID,
		FeedURL:   p.feed.URL,
		Account:   p.feed.Account,
		NoteOID:   sent.NoteOrInnerNote().OID,
		Published: item.Published,
		PostedAt:  time.Now().UTC(),
	})
	if err != nil {
		// the note exists, so the item must not be offered again this run
		telemetry.Error(err, "saving feed item [%s]", item.ID)
	}
	return nil
}

// itemNote is the public note announcing a feed item: its title linked
// to the item, followed by its hashtags.
func itemNote(origin string, item rss.Item) activity.Note {
	note := activity.NewNote(activity.NewTempOID())
	var sb strings.Builder
	sb.WriteString("<p>")
	title := html.EscapeString(item.Title)
	if title == "" {
		title = html.EscapeString(item.URL)
	}
	if item.URL != "" {
		fmt.Fprintf(&sb, `<a href="%s">%s</a>`, html.EscapeString(item.URL), title)
	} else {
		sb.WriteString(title)
	}
	sb.WriteString("</p>")
	if len(item.Hashtags) > 0 {
		sb.WriteString("<p>")
		sb.WriteString(html.EscapeString(strings.Join(item.Hashtags, " ")))
		sb.WriteString("</p>")
	}
	note.Content = sb.String()
	note.ContentType = "text/html"
	note.URL = item.URL
	note.Published = item.Published

	note.Audience = activity.NewAudience(origin)
	note.Audience.SetPublic(true)
	note.Audience.SetFollowers(true)

	if item.ImageURL != "" {
		note.Attachments = []activity.Attachment{{
			URI:       item.ImageURL,
			MediaType: imageType(item.ImageURL),
			Name:      item.Title,
		}}
	}
	return note
}

func imageType(uri string) string {
	ext := path.Ext(strings.SplitN(uri, "?", 2)[0])
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/jpeg"
}

// CrossPost watches a feed until ctx ends, posting what is new. Items
// posted in earlier runs are known from the database.
func (c *Connection) CrossPost(ctx context.Context, feed FeedConfig) error {
	posted, err := c.client.store.GetCrossPosts(feed.URL)
	if err != nil {
		return fmt.Errorf("loading posted items of %s: %w", feed.URL, err)
	}
	watcher := rss.NewFeedWatcher(feed.URL, c.client.HTTP, c.NewCrossPoster(feed))
	for _, p := range posted {
		watcher.AddKnown(rss.Item{ID: p.ItemID, Updated: p.Published})
	}
	telemetry.Log("watching %s for %s, %d items already posted", feed.URL, feed.Account, len(posted))
	watcher.Watch(ctx, feed.Period())
	return nil
}
