package pipeline

import (
	"path"
	"strings"

	"github.com/iecho-platform/iecho/backend/internal/model/chat"
)

// CitationCollector deduplicates source references produced by one
// specialist's retrieval calls. A specialist may retrieve more than once
// before answering; Reset is called at the start of each retrieval so only
// the most recent call's citations survive.
type CitationCollector struct {
	seen  map[string]struct{}
	items []chat.Citation
}

// NewCitationCollector returns an empty collector.
func NewCitationCollector() *CitationCollector {
	return &CitationCollector{seen: make(map[string]struct{})}
}

// Reset drops all collected citations.
func (c *CitationCollector) Reset() {
	c.seen = make(map[string]struct{})
	c.items = c.items[:0]
}

// Add records a reference unless its source URI is empty or already present.
func (c *CitationCollector) Add(sourceURI, rawText string) {
	if sourceURI == "" {
		return
	}
	if _, dup := c.seen[sourceURI]; dup {
		return
	}
	c.seen[sourceURI] = struct{}{}
	c.items = append(c.items, chat.Citation{
		Title:   TitleFromSource(sourceURI),
		Source:  sourceURI,
		Excerpt: rawText,
	})
}

// Snapshot returns the collected citations in insertion order.
func (c *CitationCollector) Snapshot() []chat.Citation {
	out := make([]chat.Citation, len(c.items))
	copy(out, c.items)
	return out
}

// TitleFromSource derives a display title from a source URI: the final path
// segment with its file extension removed, or "Document" for an empty URI.
func TitleFromSource(sourceURI string) string {
	if sourceURI == "" {
		return "Document"
	}
	base := path.Base(sourceURI)
	return strings.TrimSuffix(base, path.Ext(base))
}
