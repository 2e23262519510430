package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/scipunch/xmonitor/fetcher/types"
	"github.com/scipunch/xmonitor/parser"
)

// ancestorDepth bounds the walk from a tweet body up to the element holding its status link
const ancestorDepth = 5

// ScrapeFetcher reads posts from an HTML profile viewer page
type ScrapeFetcher struct {
	baseURL string
	client  *http.Client
	content parser.Parser
}

// NewScrapeFetcher creates a fetcher for pages at baseURL/<account>
func NewScrapeFetcher(baseURL string, client *http.Client) *ScrapeFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &ScrapeFetcher{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		content: parser.HTMLParser{},
	}
}

func (f *ScrapeFetcher) Name() string {
	return "scrape"
}

func (f *ScrapeFetcher) Fetch(ctx context.Context, account string) ([]types.Post, error) {
	pageURL := f.baseURL + "/" + url.PathEscape(account)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", pageURL, err)
	}

	var posts []types.Post
	seen := make(map[int64]bool)
	doc.Find(".tweet-content").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link, id, ok := statusLink(s)
		if !ok || seen[id] {
			return true
		}
		seen[id] = true

		inner, err := s.Html()
		if err != nil {
			return true
		}
		text, err := f.content.Parse(inner)
		if err != nil || text == "" {
			return true
		}

		posts = append(posts, types.Post{
			Account: account,
			ID:      id,
			Text:    text,
			Link:    absolute(pageURL, link),
		})
		return len(posts) < maxEntries
	})

	return posts, nil
}

// statusLink walks up from a tweet body to the nearest status link
func statusLink(s *goquery.Selection) (string, int64, bool) {
	node := s
	for depth := 0; depth <= ancestorDepth && node.Length() > 0; depth++ {
		var (
			href string
			id   int64
		)
		node.Find("a[href*='/status']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			candidate, _ := a.Attr("href")
			if n, ok := StatusID(candidate); ok {
				href, id = candidate, n
				return false
			}
			return true
		})
		if href != "" {
			return href, id, true
		}
		node = node.Parent()
	}
	return "", 0, false
}

func absolute(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
