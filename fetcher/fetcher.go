package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/scipunch/xmonitor/fetcher/types"
)

// userAgent is sent by every HTTP based fetcher
const userAgent = "Mozilla/5.0 (compatible; xmonitor/1.0)"

// maxEntries caps the posts kept from a single feed or page
const maxEntries = 10

// ErrNoSources is returned by a chain without fetchers
var ErrNoSources = errors.New("no fetchers configured")

var statusIDRe = regexp.MustCompile(`/status(?:es)?/(\d+)`)

// StatusID extracts the numeric X status ID from a post link or GUID.
// Returns false when no ID is present.
func StatusID(candidates ...string) (int64, bool) {
	for _, c := range candidates {
		m := statusIDRe.FindStringSubmatch(c)
		if m == nil {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		return id, true
	}
	return 0, false
}

// NamedFetcher is a fetcher with a name used in logs
type NamedFetcher interface {
	types.PostFetcher
	Name() string
}

// Chain tries each fetcher in order and returns the first non-empty result
type Chain struct {
	fetchers []NamedFetcher
}

// NewChain creates a fallback chain over the given fetchers
func NewChain(fetchers ...NamedFetcher) *Chain {
	return &Chain{fetchers: fetchers}
}

func (c *Chain) Fetch(ctx context.Context, account string) ([]types.Post, error) {
	if len(c.fetchers) == 0 {
		return nil, ErrNoSources
	}

	var errs []error
	for _, f := range c.fetchers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		posts, err := f.Fetch(ctx, account)
		if err != nil {
			slog.Debug("fetch method failed", "method", f.Name(), "account", account, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", f.Name(), err))
			continue
		}
		if len(posts) > 0 {
			slog.Info("fetched posts", "account", account, "method", f.Name(), "count", len(posts))
			return posts, nil
		}
	}

	// Every method failing is an error; an empty but healthy source is not
	if len(errs) == len(c.fetchers) {
		return nil, fmt.Errorf("all fetch methods failed for @%s: %w", account, errors.Join(errs...))
	}
	return nil, nil
}

// Spaced delays each fetch so that outbound requests are at least a fixed interval apart
type Spaced struct {
	next    types.PostFetcher
	limiter *rate.Limiter
}

// NewSpaced wraps next with a limiter shared by every wrapped fetcher
func NewSpaced(next types.PostFetcher, limiter *rate.Limiter) *Spaced {
	return &Spaced{next: next, limiter: limiter}
}

func (s *Spaced) Fetch(ctx context.Context, account string) ([]types.Post, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("request spacing: %w", err)
	}
	return s.next.Fetch(ctx, account)
}
