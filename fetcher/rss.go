package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/scipunch/xmonitor/fetcher/types"
	"github.com/scipunch/xmonitor/parser"
)

// accountPlaceholder is replaced with the account handle in feed URL templates
const accountPlaceholder = "{account}"

// RSSFetcher fetches account feeds (RSS-Bridge Atom, Nitter RSS) using gofeed.
// Every template is tried in turn until one yields posts.
type RSSFetcher struct {
	name      string
	parser    *gofeed.Parser
	templates []string
	content   parser.Parser
}

// NewRSSFetcher creates a new RSS fetcher over the given URL templates.
// A template contains {account}; a bare base URL gets "/{account}/rss" appended.
func NewRSSFetcher(name string, templates []string, client *http.Client) *RSSFetcher {
	p := gofeed.NewParser()
	p.UserAgent = userAgent
	if client != nil {
		p.Client = client
	}

	normalized := make([]string, 0, len(templates))
	for _, t := range templates {
		if !strings.Contains(t, accountPlaceholder) {
			t = strings.TrimSuffix(t, "/") + "/" + accountPlaceholder + "/rss"
		}
		normalized = append(normalized, t)
	}

	return &RSSFetcher{
		name:      name,
		parser:    p,
		templates: normalized,
		content:   parser.HTMLParser{},
	}
}

func (f *RSSFetcher) Name() string {
	return f.name
}

// Fetch retrieves and parses the feed of the given account
func (f *RSSFetcher) Fetch(ctx context.Context, account string) ([]types.Post, error) {
	var errs []error
	for _, tmpl := range f.templates {
		feedURL := strings.ReplaceAll(tmpl, accountPlaceholder, url.QueryEscape(account))

		feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to parse feed %s: %w", feedURL, err))
			continue
		}

		posts := f.convert(account, feed)
		if len(posts) > 0 {
			return posts, nil
		}
		slog.Debug("feed has no usable entries", "url", feedURL, "entries", len(feed.Items))
	}
	return nil, errors.Join(errs...)
}

// convert maps feed entries to posts, dropping entries without a status ID
func (f *RSSFetcher) convert(account string, feed *gofeed.Feed) []types.Post {
	posts := make([]types.Post, 0, maxEntries)
	for _, item := range feed.Items {
		if len(posts) == maxEntries {
			break
		}

		id, ok := StatusID(item.Link, item.GUID)
		if !ok {
			slog.Debug("skipping feed entry without status id", "account", account, "link", item.Link)
			continue
		}

		raw := item.Content
		if strings.TrimSpace(raw) == "" {
			raw = item.Description
		}
		text, err := f.content.Parse(raw)
		if err != nil || text == "" {
			text = parser.Truncate(strings.TrimSpace(item.Title), parser.MaxTextLength)
		}

		post := types.Post{
			Account: account,
			ID:      id,
			Text:    text,
			Link:    item.Link,
		}
		if item.PublishedParsed != nil {
			post.Published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			post.Published = *item.UpdatedParsed
		} else {
			post.Published = time.Time{}
		}

		posts = append(posts, post)
	}
	return posts
}
