package rss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
)

// Item is a minimal representation of a feed entry to cross-post
type Item struct {
	ID        string
	Title     string
	Published time.Time
	Updated   time.Time
	Content   string
	URL       string
	Hashtags  []string
	ImageURL  string
}

// ItemHandler decides what to do with new feed items.
// An item whose handler fails is offered again on the next check.
type ItemHandler interface {
	StatusCode(code int) // called after any fetch, normally either 200 (OK) or 304 (NotModified)
	NewItem(ctx context.Context, item Item) error
}

// FeedWatcher polls an RSS, Atom or JSON feed and reports items it has not seen before
type FeedWatcher struct {
	URL     string
	Client  *http.Client
	Handler ItemHandler

	itemParser   ItemParser
	etag         string
	lastModified string
	known        map[string]time.Time // known guids to track new and updated items
}

type ItemParser interface {
	Parse(r io.Reader) ([]Item, error)
}

type gofeedParser struct {
	parser *gofeed.Parser
}

func (p gofeedParser) Parse(reader io.Reader) ([]Item, error) {
	feed, err := p.parser.Parse(reader)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		parsed := Item{
			ID:       item.GUID,
			Title:    item.Title,
			Content:  item.Description,
			URL:      item.Link,
			Hashtags: hashtags(item.Categories),
		}
		if parsed.ID == "" {
			parsed.ID = item.Link
		}
		if parsed.Content == "" {
			parsed.Content = item.Content
		}
		if item.Image != nil {
			parsed.ImageURL = item.Image.URL
		}
		for _, enc := range item.Enclosures {
			if parsed.ImageURL == "" && strings.HasPrefix(enc.Type, "image/") {
				parsed.ImageURL = enc.URL
			}
		}
		if item.PublishedParsed != nil {
			parsed.Published = *item.PublishedParsed
		} else {
			// some feeds have dates gofeed cannot parse
			parsed.Published = time.Now().UTC()
		}
		if item.UpdatedParsed != nil {
			parsed.Updated = *item.UpdatedParsed
		} else {
			parsed.Updated = parsed.Published
		}
		items = append(items, parsed)
	}
	return items, nil
}

func hashtags(categories []string) []string {
	tags := make([]string, 0, len(categories))
	for _, c := range categories {
		tag := strings.Join(strings.Fields(c), "")
		if tag != "" {
			tags = append(tags, "#"+tag)
		}
	}
	return tags
}

// Check fetches the feed once and hands new items to the handler, oldest first.
func (c *FeedWatcher) Check(ctx context.Context) error {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return err
	}
	if c.lastModified != "" {
		r.Header.Set("If-Modified-Since", c.lastModified)
		r.Header.Set("If-None-Match", c.etag)
	}

	resp, err := c.Client.Do(r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.Handler.StatusCode(resp.StatusCode)
	if resp.StatusCode == http.StatusNotModified {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed %s: response code %d", c.URL, resp.StatusCode)
	}

	newItems, err := c.parseItems(resp.Body)
	if err != nil {
		return fmt.Errorf("feed %s: %w", c.URL, err)
	}

	failed := 0
	for _, item := range newItems {
		if err := c.Handler.NewItem(ctx, item); err != nil {
			telemetry.Error(err, "handling feed item [%s]", item.ID)
			failed++
			continue
		}
		c.AddKnown(item)
	}

	// a failed item must be fetched again, so keep the validators only when all succeeded
	if failed == 0 && resp.Header.Get("ETag") != "" {
		c.etag = resp.Header.Get("ETag")
		c.lastModified = resp.Header.Get("Last-Modified")
	}
	return nil
}

// AddKnown marks an item as already handled.
func (c *FeedWatcher) AddKnown(item Item) {
	c.known[item.ID] = item.Updated
}

func (c *FeedWatcher) parseItems(body io.Reader) ([]Item, error) {
	allItems, err := c.itemParser.Parse(body)
	if err != nil {
		return nil, err
	}

	newItems := make([]Item, 0)
	for _, item := range allItems {
		if _, ok := c.known[item.ID]; !ok {
			newItems = append(newItems, item)
		}
	}

	sort.Slice(newItems, func(i int, j int) bool {
		return newItems[i].Published.Before(newItems[j].Published)
	})
	return newItems, nil
}

// Watch checks the feed every period until the context ends.
func (c *FeedWatcher) Watch(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	if err := c.Check(ctx); err != nil {
		telemetry.Error(err, "checking feed")
	}
	for {
		select {
		case <-ctx.Done():
			telemetry.Log("stopped watching %s: %s", c.URL, ctx.Err())
			return
		case <-ticker.C:
			if err := c.Check(ctx); err != nil {
				telemetry.Error(err, "checking feed")
			}
		}
	}
}

func NewFeedWatcher(url string, client *http.Client, handler ItemHandler) *FeedWatcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &FeedWatcher{
		URL:     url,
		Client:  client,
		Handler: handler,
		itemParser: gofeedParser{
			parser: gofeed.NewParser(),
		},
		known: make(map[string]time.Time),
	}
}
