// Package trending derives hashtag statistics from an in-memory window of
// posts. Pure functions, no I/O.
package trending

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/aidansussillo24/fitspowithaifunctionality/internal/models"
)

const (
	// Window is the trailing period a post must fall in to count.
	Window = 7 * 24 * time.Hour
	// TopN is how many tags TopTags returns.
	TopN = 12
)

var hashtagPattern = regexp.MustCompile(`(?:^|\s)#(\w+)`)

// TopTags counts hashtag occurrences across posts created within the
// trailing window before now and returns the TopN tags ordered by frequency
// descending, ties broken by lexical order of the tag.
func TopTags(posts []models.Post, now time.Time) []string {
	start := now.Add(-Window)
	recent := lo.Filter(posts, func(p models.Post, _ int) bool {
		return p.CreatedAt.After(start) && !p.CreatedAt.After(now)
	})

	freq := make(map[string]int)
	for _, p := range recent {
		for _, tag := range p.Hashtags {
			freq[tag]++
		}
	}

	tags := lo.Keys(freq)
	sort.Slice(tags, func(i, j int) bool {
		if freq[tags[i]] != freq[tags[j]] {
			return freq[tags[i]] > freq[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > TopN {
		tags = tags[:TopN]
	}
	return tags
}

// ExtractHashtags pulls the hashtag set out of a caption: lowercased,
// deduplicated, without the leading "#", sorted for determinism. Used when a
// post is created.
func ExtractHashtags(caption string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(caption, -1)
	tags := lo.Map(matches, func(m []string, _ int) string {
		return strings.ToLower(m[1])
	})
	tags = lo.Uniq(tags)
	sort.Strings(tags)
	return tags
}
