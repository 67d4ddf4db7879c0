package linktree

import (
	"strings"

	"github.com/jmylchreest/sitetree/internal/logger"
)

// Build constructs a fresh tree for rootURL from a flat list of internal
// links. Links that cannot be normalized or that belong to another domain
// are logged and skipped; Build never fails as a whole.
//
// Links on subdomains of the root are placed under virtual folders named
// after the differing host labels, so blog.example.com/post ends up at
// root → blog → post.
func Build(internalLinks []string, rootURL string, n Normalizer, opts ...Option) *Tree {
	o := resolveOptions(opts)
	stamp := timestamp()

	normalizedRoot, err := n.NormalizeURL(rootURL, rootURL, true)
	if err != nil {
		logger.Warn("root url could not be normalized", "root_url", rootURL, "error", err)
		normalizedRoot = strings.TrimSpace(rootURL)
	}

	root := &Tree{
		URL:         normalizedRoot,
		RootURL:     normalizedRoot,
		Name:        hostname(normalizedRoot),
		LastUpdated: stamp,
	}

	a := newAssembler(root, normalizedRoot, n, &o, stamp)
	a.attach(root)

	if len(internalLinks) == 0 {
		root.TotalURLs = 1
		return root
	}

	for _, link := range internalLinks {
		a.add(link)
	}
	a.finish()

	logger.Debug("link tree built",
		"root_url", normalizedRoot,
		"links", len(internalLinks),
		"total_urls", root.TotalURLs)

	return root
}
