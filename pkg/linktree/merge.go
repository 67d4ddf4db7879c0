package linktree

import (
	"github.com/jmylchreest/sitetree/internal/logger"
)

// Merge folds newLinks into existing and returns it. Links whose normalized
// form is already in the tree are ignored, which makes repeated merges of
// the same links a no-op. Existing nodes are never replaced: their derived
// fields are refreshed from the caches (see Options) and new nodes are
// attached beneath them.
//
// When newLinks is empty but caches are supplied, Merge only back-fills
// missing metadata, cleaned HTML, extracted links and errors across the
// whole tree.
//
// A nil existing tree is built from scratch.
func Merge(existing *Tree, newLinks []string, rootURL string, n Normalizer, opts ...Option) *Tree {
	if existing == nil {
		return Build(newLinks, rootURL, n, opts...)
	}

	o := resolveOptions(opts)
	stamp := timestamp()

	base, err := n.NormalizeURL(rootURL, rootURL, true)
	if err != nil {
		logger.Warn("root url could not be normalized, using tree url",
			"root_url", rootURL, "tree_url", existing.URL, "error", err)
		base = existing.URL
	}

	if existing.Name == "" {
		existing.Name = hostname(existing.URL)
	}
	if existing.RootURL == "" {
		existing.RootURL = base
	}
	existing.LastUpdated = stamp

	backfill(existing, &o)

	if len(newLinks) == 0 {
		if o.hasCaches() {
			Walk(existing, func(node *Tree) bool {
				backfill(node, &o)
				return true
			})
			logger.Debug("link tree back-filled from caches", "root_url", existing.URL)
		}
		existing.TotalURLs = CountNodes(existing)
		return existing
	}

	known := make(map[string]bool)
	Walk(existing, func(node *Tree) bool {
		known[node.URL] = true
		return true
	})

	fresh := make([]string, 0, len(newLinks))
	for _, link := range newLinks {
		normalized, err := n.NormalizeURL(link, base, true)
		if err != nil {
			logger.Warn("skipping link", "url", link, "error", err)
			continue
		}
		if known[normalized] {
			continue
		}
		known[normalized] = true
		fresh = append(fresh, normalized)
	}

	if len(fresh) == 0 {
		existing.TotalURLs = CountNodes(existing)
		return existing
	}

	a := newAssembler(existing, base, n, &o, stamp)
	Walk(existing, func(node *Tree) bool {
		a.index[node.URL] = node
		a.refresh(node)
		return true
	})

	for _, link := range fresh {
		a.add(link)
	}
	a.finish()

	logger.Debug("link tree merged",
		"root_url", existing.URL,
		"new_links", len(fresh),
		"total_urls", existing.TotalURLs)

	return existing
}
