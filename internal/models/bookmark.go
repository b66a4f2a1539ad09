package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultSyncTag marks every bookmark mirrored from Pocket into Pinboard.
const DefaultSyncTag = "via:pocket"

// Bookmark is the service-neutral shape shared by the Pocket reader and the
// Pinboard writer. Treat it as a value: copy, don't mutate.
type Bookmark struct {
	URL     string
	Title   string
	Tags    []string
	Created time.Time
	// SourceID is the Pocket item id. Empty for bookmarks read back from Pinboard.
	SourceID string
}

// NewTags returns the sorted, de-duplicated union of tags and extra.
// Empty strings are dropped.
func NewTags(tags []string, extra ...string) []string {
	set := make([]string, 0, len(tags)+len(extra))
	for _, t := range slices.Concat(tags, extra) {
		if t != "" {
			set = append(set, t)
		}
	}
	slices.Sort(set)
	return slices.Compact(set)
}

// HasTag reports whether tag is in b.Tags.
func (b Bookmark) HasTag(tag string) bool {
	return slices.Contains(b.Tags, tag)
}

func (b Bookmark) String() string {
	return fmt.Sprintf("Bookmark(url=%q, title=%q, tags=[%s], created=%s)",
		b.URL, b.Title, strings.Join(b.Tags, ", "), b.Created.UTC().Format(time.RFC3339))
}
