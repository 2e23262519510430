package types

import (
	"context"
	"time"
)

// Post represents a single post fetched from a monitored account
type Post struct {
	Account   string
	ID        int64 // Monotonic per account (X status ID, Telegram message ID)
	Text      string
	Link      string
	Published time.Time
}

// PostFetcher is an interface for fetching recent posts of an account
type PostFetcher interface {
	Fetch(ctx context.Context, account string) ([]Post, error)
}

// Latest returns the highest post ID in posts, or 0 when posts is empty
func Latest(posts []Post) int64 {
	var latest int64
	for _, p := range posts {
		if p.ID > latest {
			latest = p.ID
		}
	}
	return latest
}

// Newer returns the posts with an ID strictly greater than cursor
func Newer(posts []Post, cursor int64) []Post {
	var out []Post
	for _, p := range posts {
		if p.ID > cursor {
			out = append(out, p)
		}
	}
	return out
}
