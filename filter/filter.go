package filter

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/scipunch/xmonitor/config"
	"github.com/scipunch/xmonitor/fetcher/types"
)

// MinPostLength is applied to every post regardless of configured filters.
// Shorter posts are link-only or reaction posts with nothing to summarize.
const MinPostLength = 21

// FilterPipeline applies a series of named filters to posts
type FilterPipeline struct {
	filters map[string]*CompiledFilter
}

// CompiledFilter contains compiled regex patterns for efficient matching
type CompiledFilter struct {
	config          config.Filter
	excludePatterns []*regexp.Regexp
}

// NewFilterPipeline creates a new filter pipeline from config
func NewFilterPipeline(filtersConfig map[string]config.Filter) (*FilterPipeline, error) {
	compiled := make(map[string]*CompiledFilter)

	for name, filterCfg := range filtersConfig {
		cf := &CompiledFilter{
			config:          filterCfg,
			excludePatterns: make([]*regexp.Regexp, 0, len(filterCfg.ExcludePatterns)),
		}

		for _, pattern := range filterCfg.ExcludePatterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				slog.Warn("invalid regex pattern in filter", "filter", name, "pattern", pattern, "error", err)
				continue
			}
			cf.excludePatterns = append(cf.excludePatterns, re)
		}

		compiled[name] = cf
	}

	return &FilterPipeline{filters: compiled}, nil
}

// Apply returns the posts passing the baseline check and every named filter, in order
func (fp *FilterPipeline) Apply(posts []types.Post, filterNames []string) []types.Post {
	kept := make([]types.Post, 0, len(posts))
	for _, post := range posts {
		if ok, reason := fp.ShouldInclude(post, filterNames); !ok {
			slog.Debug("post filtered out", "account", post.Account, "id", post.ID, "reason", reason)
			continue
		}
		kept = append(kept, post)
	}
	return kept
}

// ShouldInclude returns true if the post passes all filters in the pipeline
// filterNames is a list of filter names to apply in order
func (fp *FilterPipeline) ShouldInclude(post types.Post, filterNames []string) (bool, string) {
	if utf8.RuneCountInString(strings.TrimSpace(post.Text)) < MinPostLength {
		return false, "baseline:min_length"
	}

	for _, filterName := range filterNames {
		filter, exists := fp.filters[filterName]
		if !exists {
			slog.Warn("filter not found, skipping", "filter_name", filterName)
			continue
		}

		if shouldInclude, reason := fp.applyFilter(post, filter, filterName); !shouldInclude {
			return false, reason
		}
	}

	return true, ""
}

// applyFilter applies a single filter to a post
func (fp *FilterPipeline) applyFilter(post types.Post, filter *CompiledFilter, filterName string) (bool, string) {
	text := post.Text

	if filter.config.MinLength > 0 && utf8.RuneCountInString(text) < filter.config.MinLength {
		return false, filterName + ":min_length"
	}

	if filter.config.MinWords > 0 {
		wordCount := countWords(text)
		if wordCount < filter.config.MinWords {
			return false, filterName + ":min_words"
		}
	}

	for i, pattern := range filter.excludePatterns {
		if pattern.MatchString(text) {
			return false, filterName + ":exclude_pattern[" + filter.config.ExcludePatterns[i] + "]"
		}
	}

	if filter.config.RequireParagraphs {
		if !hasMultipleParagraphs(text) {
			return false, filterName + ":require_paragraphs"
		}
	}

	return true, ""
}

// countWords counts the number of words in text
func countWords(text string) int {
	words := 0
	inWord := false

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if !inWord {
				words++
				inWord = true
			}
		} else {
			inWord = false
		}
	}

	return words
}

// hasMultipleParagraphs checks if text has at least two non-empty lines
func hasMultipleParagraphs(text string) bool {
	lines := strings.Split(text, "\n")
	nonEmptyLines := 0

	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			nonEmptyLines++
		}
	}

	return nonEmptyLines >= 2
}
