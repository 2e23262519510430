package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"

	"github.com/scipunch/xmonitor/fetcher/types"
)

const (
	// MinContentLength is the shortest formatted batch, in runes, worth a model call
	MinContentLength = 100

	// NoHighlights is the sentinel the model answers with when nothing is notable
	NoHighlights = "No major highlights"
)

// FormatPosts renders posts as "@account: text" blocks, oldest first.
// Only the newest maxPosts posts are kept.
func FormatPosts(posts []types.Post, maxPosts int) string {
	sorted := make([]types.Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	if maxPosts > 0 && len(sorted) > maxPosts {
		sorted = sorted[len(sorted)-maxPosts:]
	}

	blocks := make([]string, 0, len(sorted))
	for _, p := range sorted {
		blocks = append(blocks, fmt.Sprintf("@%s: %s", p.Account, p.Text))
	}
	return strings.Join(blocks, "\n\n")
}

// Highlights asks the agent for the notable points of posts.
// Returns no highlights, without calling the agent, when the posts carry too little text.
func Highlights(ctx context.Context, a Agent, posts []types.Post, maxPosts int) ([]string, error) {
	content := FormatPosts(posts, maxPosts)
	if utf8.RuneCountInString(content) < MinContentLength {
		return nil, nil
	}

	reply, err := a.Process(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("agent '%s' failed: %w", a.Name(), err)
	}
	if strings.TrimSpace(reply) == "" {
		return nil, fmt.Errorf("agent '%s': %w", a.Name(), ErrEmptyResponse)
	}

	return ParseHighlights(reply), nil
}

var (
	fenceRe  = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	bulletRe = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)
)

// minFreeformLength is the shortest non-bulleted reply forwarded as a single highlight
const minFreeformLength = 50

type highlightsReply struct {
	Highlights []string `json:"highlights"`
}

// ParseHighlights extracts highlight strings from a model reply.
// JSON replies (possibly malformed or fenced) are preferred; otherwise bullet lines are used.
func ParseHighlights(reply string) []string {
	reply = strings.TrimSpace(reply)
	if m := fenceRe.FindStringSubmatch(reply); m != nil {
		reply = strings.TrimSpace(m[1])
	}

	if strings.HasPrefix(reply, "{") || strings.HasPrefix(reply, "[") {
		if list, ok := parseJSON(reply); ok {
			return clean(list)
		}
	}

	if strings.Contains(strings.ToLower(reply), strings.ToLower(NoHighlights)) {
		return nil
	}

	var bullets []string
	for _, line := range strings.Split(reply, "\n") {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			bullets = append(bullets, m[1])
		}
	}
	if len(bullets) > 0 {
		return clean(bullets)
	}

	if len(reply) > minFreeformLength {
		return []string{reply}
	}
	return nil
}

func parseJSON(reply string) ([]string, bool) {
	repaired, err := jsonrepair.JSONRepair(reply)
	if err != nil {
		return nil, false
	}

	var obj highlightsReply
	if err := json.Unmarshal([]byte(repaired), &obj); err == nil {
		return obj.Highlights, true
	}

	var list []string
	if err := json.Unmarshal([]byte(repaired), &list); err == nil {
		return list, true
	}
	return nil, false
}

func clean(list []string) []string {
	var out []string
	for _, h := range list {
		h = strings.TrimSpace(h)
		if h == "" || strings.Contains(strings.ToLower(h), strings.ToLower(NoHighlights)) {
			continue
		}
		out = append(out, h)
	}
	return out
}
