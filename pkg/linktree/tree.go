// Package linktree builds and maintains a hierarchical view of a site's
// discovered pages.
//
// A tree mirrors the path structure of the root URL: every path segment
// becomes a node, subdomains of the root become virtual top-level folders,
// and every node is identified by its normalized URL. Trees are built once
// from a flat link list (Build) and afterwards grown incrementally (Merge)
// without duplicating or dropping existing nodes. Cached per-URL crawl data
// (metadata, cleaned HTML, extracted links, visit timestamps) is attached
// to nodes as it becomes available.
package linktree

import (
	"slices"
	"time"
)

// Tree is a single node of a link tree. The root node additionally carries
// RootURL, TotalURLs and, when known, ExecutionTime and SkippedURLs.
type Tree struct {
	URL            string          `json:"url" yaml:"url"`
	RootURL        string          `json:"rootUrl,omitempty" yaml:"rootUrl,omitempty"`
	Name           string          `json:"name,omitempty" yaml:"name,omitempty"`
	TotalURLs      int             `json:"totalUrls,omitempty" yaml:"totalUrls,omitempty"`
	ExecutionTime  string          `json:"executionTime,omitempty" yaml:"executionTime,omitempty"`
	LastUpdated    string          `json:"lastUpdated" yaml:"lastUpdated"`
	LastVisited    *string         `json:"lastVisited,omitempty" yaml:"lastVisited,omitempty"`
	Children       []*Tree         `json:"children,omitempty" yaml:"children,omitempty"`
	Error          string          `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata       *PageMetadata   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CleanedHTML    string          `json:"cleanedHtml,omitempty" yaml:"cleanedHtml,omitempty"`
	ExtractedLinks *ExtractedLinks `json:"extractedLinks,omitempty" yaml:"extractedLinks,omitempty"`
	SkippedURLs    *SkippedLinks   `json:"skippedUrls,omitempty" yaml:"skippedUrls,omitempty"`
}

// PageMetadata is the per-page metadata produced by the crawl worker.
type PageMetadata struct {
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Canonical   string   `json:"canonical,omitempty" yaml:"canonical,omitempty"`
	Language    string   `json:"language,omitempty" yaml:"language,omitempty"`
	Author      string   `json:"author,omitempty" yaml:"author,omitempty"`
	OGImage     string   `json:"ogImage,omitempty" yaml:"ogImage,omitempty"`
	StatusCode  int      `json:"statusCode,omitempty" yaml:"statusCode,omitempty"`
	ContentType string   `json:"contentType,omitempty" yaml:"contentType,omitempty"`
}

// ExtractedLinks groups the links found on a page.
type ExtractedLinks struct {
	Internal []string    `json:"internal,omitempty" yaml:"internal,omitempty"`
	External []string    `json:"external,omitempty" yaml:"external,omitempty"`
	Media    *MediaLinks `json:"media,omitempty" yaml:"media,omitempty"`
}

// MediaLinks groups media references found on a page.
type MediaLinks struct {
	Images    []string `json:"images,omitempty" yaml:"images,omitempty"`
	Videos    []string `json:"videos,omitempty" yaml:"videos,omitempty"`
	Documents []string `json:"documents,omitempty" yaml:"documents,omitempty"`
}

// SkippedURL is a discovered URL that was deliberately left out of the tree.
type SkippedURL struct {
	URL    string `json:"url" yaml:"url"`
	Reason string `json:"reason" yaml:"reason"`
}

// SkippedLinks groups skipped URLs by category. Empty buckets are omitted.
type SkippedLinks struct {
	Internal []SkippedURL  `json:"internal,omitempty" yaml:"internal,omitempty"`
	External []SkippedURL  `json:"external,omitempty" yaml:"external,omitempty"`
	Media    *SkippedMedia `json:"media,omitempty" yaml:"media,omitempty"`
	Other    []SkippedURL  `json:"other,omitempty" yaml:"other,omitempty"`
}

// SkippedMedia groups skipped media URLs.
type SkippedMedia struct {
	Images    []SkippedURL `json:"images,omitempty" yaml:"images,omitempty"`
	Videos    []SkippedURL `json:"videos,omitempty" yaml:"videos,omitempty"`
	Documents []SkippedURL `json:"documents,omitempty" yaml:"documents,omitempty"`
}

// VisitedURL records when a URL was last fetched.
type VisitedURL struct {
	URL         string `json:"url" yaml:"url"`
	LastVisited string `json:"lastVisited" yaml:"lastVisited"`
}

// LinkOptions narrows the link categories kept by ProcessExtractedLinks.
// Internal links are always kept.
type LinkOptions struct {
	IncludeExternal bool `json:"includeExternal" yaml:"includeExternal"`
	IncludeMedia    bool `json:"includeMedia" yaml:"includeMedia"`
}

// IsEmpty reports whether no links of any category are present.
func (e *ExtractedLinks) IsEmpty() bool {
	if e == nil {
		return true
	}
	return len(e.Internal) == 0 && len(e.External) == 0 && e.Media.IsEmpty()
}

// IsEmpty reports whether no media links are present.
func (m *MediaLinks) IsEmpty() bool {
	return m == nil || (len(m.Images) == 0 && len(m.Videos) == 0 && len(m.Documents) == 0)
}

// IsEmpty reports whether no skipped URLs are present.
func (s *SkippedLinks) IsEmpty() bool {
	if s == nil {
		return true
	}
	return len(s.Internal) == 0 && len(s.External) == 0 && len(s.Other) == 0 && s.Media.IsEmpty()
}

// IsEmpty reports whether no skipped media URLs are present.
func (m *SkippedMedia) IsEmpty() bool {
	return m == nil || (len(m.Images) == 0 && len(m.Videos) == 0 && len(m.Documents) == 0)
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	root := t.shallowCopy()
	type pair struct{ src, dst *Tree }
	stack := []pair{{t, root}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.src.Children == nil {
			continue
		}
		p.dst.Children = make([]*Tree, len(p.src.Children))
		for i, child := range p.src.Children {
			c := child.shallowCopy()
			p.dst.Children[i] = c
			stack = append(stack, pair{child, c})
		}
	}
	return root
}

func (t *Tree) shallowCopy() *Tree {
	c := *t
	c.Children = nil
	if t.LastVisited != nil {
		v := *t.LastVisited
		c.LastVisited = &v
	}
	if t.Metadata != nil {
		m := *t.Metadata
		m.Keywords = slices.Clone(t.Metadata.Keywords)
		c.Metadata = &m
	}
	c.ExtractedLinks = t.ExtractedLinks.clone()
	c.SkippedURLs = t.SkippedURLs.clone()
	return &c
}

func (e *ExtractedLinks) clone() *ExtractedLinks {
	if e == nil {
		return nil
	}
	c := &ExtractedLinks{
		Internal: slices.Clone(e.Internal),
		External: slices.Clone(e.External),
	}
	if e.Media != nil {
		c.Media = &MediaLinks{
			Images:    slices.Clone(e.Media.Images),
			Videos:    slices.Clone(e.Media.Videos),
			Documents: slices.Clone(e.Media.Documents),
		}
	}
	return c
}

func (s *SkippedLinks) clone() *SkippedLinks {
	if s == nil {
		return nil
	}
	c := &SkippedLinks{
		Internal: slices.Clone(s.Internal),
		External: slices.Clone(s.External),
		Other:    slices.Clone(s.Other),
	}
	if s.Media != nil {
		c.Media = &SkippedMedia{
			Images:    slices.Clone(s.Media.Images),
			Videos:    slices.Clone(s.Media.Videos),
			Documents: slices.Clone(s.Media.Documents),
		}
	}
	return c
}

// Walk visits the tree breadth-first, stopping early when fn returns false.
func Walk(tree *Tree, fn func(node *Tree) bool) {
	if tree == nil {
		return
	}
	queue := []*Tree{tree}
	for i := 0; i < len(queue); i++ {
		node := queue[i]
		if !fn(node) {
			return
		}
		queue = append(queue, node.Children...)
	}
}

// CountNodes returns the number of nodes reachable from tree, inclusive.
func CountNodes(tree *Tree) int {
	count := 0
	Walk(tree, func(*Tree) bool {
		count++
		return true
	})
	return count
}

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

// timestamp formats the current time the way crawl workers record it.
func timestamp() string {
	return now().Format("2006-01-02T15:04:05.000Z")
}
