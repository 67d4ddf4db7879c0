package linktree

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jmylchreest/sitetree/internal/logger"
)

// errOutsideRoot marks links whose registrable domain differs from the root.
var errOutsideRoot = errors.New("link outside root domain")

// assembler inserts links into a tree rooted at root, keeping a url→node
// index so that every URL maps to exactly one node.
type assembler struct {
	root       *Tree
	rootURL    string
	rootScheme string
	rootHost   string // hostname without port
	rootDomain string

	normalizer Normalizer
	opts       *Options
	index      map[string]*Tree
	visited    map[string]string
	stamp      string
}

func newAssembler(root *Tree, rootURL string, n Normalizer, opts *Options, stamp string) *assembler {
	a := &assembler{
		root:       root,
		rootURL:    rootURL,
		normalizer: n,
		opts:       opts,
		index:      map[string]*Tree{root.URL: root},
		visited:    opts.visitedIndex(),
		stamp:      stamp,
	}
	if parsed, err := url.Parse(rootURL); err == nil {
		a.rootScheme = parsed.Scheme
		a.rootHost = strings.ToLower(parsed.Hostname())
		a.rootDomain = n.ExtractRootDomain(a.rootHost)
	}
	return a
}

// step is one level of the walk from the root to a link.
type step struct {
	name string
	url  string
}

// add inserts link, logging instead of failing when it cannot be placed.
func (a *assembler) add(link string) {
	err := a.insert(link)
	switch {
	case err == nil:
	case errors.Is(err, errOutsideRoot):
		logger.Warn("skipping link outside root domain", "url", link, "root_url", a.rootURL)
	default:
		logger.Warn("skipping link", "url", link, "error", err)
	}
}

func (a *assembler) insert(link string) error {
	normalized, err := a.normalizer.NormalizeURL(link, a.rootURL, true)
	if err != nil {
		return err
	}
	if _, ok := a.index[normalized]; ok {
		return nil
	}

	target, err := url.Parse(normalized)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	steps, err := a.steps(target)
	if err != nil {
		return err
	}

	parent := a.root
	for _, st := range steps {
		key, err := a.normalizer.NormalizeURL(st.url, a.rootURL, true)
		if err != nil {
			return err
		}

		node, ok := a.index[key]
		if !ok {
			node = a.newNode(key, st.name)
			parent.Children = append(parent.Children, node)
			if len(parent.Children) > 1 {
				parent.Children = SortChildren(parent.Children, a.opts.FolderFirst, a.opts.LinksOrder)
			}
			a.index[key] = node
		}
		parent = node
	}
	return nil
}

// steps decomposes target into the chain of nodes leading to it: one
// virtual node per differing subdomain label, outermost label first, then
// one node per path segment.
func (a *assembler) steps(target *url.URL) ([]step, error) {
	if a.rootHost == "" {
		return nil, errOutsideRoot
	}

	hostname := strings.ToLower(target.Hostname())
	port := ""
	if p := target.Port(); p != "" {
		port = ":" + p
	}
	scheme := a.rootScheme
	if scheme == "" {
		scheme = target.Scheme
	}

	var out []step
	if hostname != a.rootHost {
		if a.normalizer.ExtractRootDomain(hostname) != a.rootDomain {
			return nil, errOutsideRoot
		}
		labels, suffix := subdomainLabels(hostname, a.rootHost)
		for i := len(labels) - 1; i >= 0; i-- {
			host := strings.Join(labels[i:], ".") + "." + suffix
			out = append(out, step{name: labels[i], url: scheme + "://" + host + port})
		}
	}

	origin := scheme + "://" + hostname + port
	segments := pathSegments(target.Path)
	for i, segment := range segments {
		escaped := make([]string, i+1)
		for j, s := range segments[:i+1] {
			escaped[j] = url.PathEscape(s)
		}
		out = append(out, step{name: segment, url: origin + "/" + strings.Join(escaped, "/")})
	}
	return out, nil
}

// subdomainLabels returns the leading labels of host that are not shared
// with rootHost, together with the shared suffix.
func subdomainLabels(host, rootHost string) ([]string, string) {
	hostLabels := strings.Split(host, ".")
	rootLabels := strings.Split(rootHost, ".")

	common := 0
	for common < len(hostLabels) && common < len(rootLabels) &&
		hostLabels[len(hostLabels)-1-common] == rootLabels[len(rootLabels)-1-common] {
		common++
	}

	split := len(hostLabels) - common
	return hostLabels[:split], strings.Join(hostLabels[split:], ".")
}

func (a *assembler) newNode(key, name string) *Tree {
	node := &Tree{
		URL:         key,
		Name:        name,
		LastUpdated: a.stamp,
	}
	a.attach(node)
	return node
}

// attach copies cached data for node.URL onto a freshly created node.
func (a *assembler) attach(node *Tree) {
	if m, ok := a.opts.Metadata[node.URL]; ok && m != nil {
		node.Metadata = m
	}
	if a.opts.IncludeExtractedLinks {
		if links, ok := a.opts.ExtractedLinks[node.URL]; ok && links != nil {
			node.ExtractedLinks = links
		}
	}
	if v, ok := a.visited[node.URL]; ok {
		node.LastVisited = &v
	}
	if msg, ok := a.opts.Errors[node.URL]; ok && msg != "" {
		node.Error = msg
	}
}

// refresh updates an already-present node from the caches. Metadata,
// extracted links and errors are only filled when absent; the visit time
// and cleaned HTML follow the caches whenever they have an entry.
func (a *assembler) refresh(node *Tree) {
	if v, ok := a.visited[node.URL]; ok {
		node.LastVisited = &v
	}
	if html, ok := a.opts.CleanedHTML[node.URL]; ok {
		node.CleanedHTML = html
	}
	backfill(node, a.opts)
}

// backfill fills absent derived fields of node from the caches.
func backfill(node *Tree, opts *Options) {
	if node.Metadata == nil {
		if m, ok := opts.Metadata[node.URL]; ok && m != nil {
			node.Metadata = m
		}
	}
	if node.CleanedHTML == "" {
		if html, ok := opts.CleanedHTML[node.URL]; ok {
			node.CleanedHTML = html
		}
	}
	if opts.IncludeExtractedLinks && node.ExtractedLinks == nil {
		if links, ok := opts.ExtractedLinks[node.URL]; ok && links != nil {
			node.ExtractedLinks = links
		}
	}
	if node.Error == "" {
		if msg, ok := opts.Errors[node.URL]; ok {
			node.Error = msg
		}
	}
}

// finish prunes empty child lists, re-sorts every level and records the
// node count on the root.
func (a *assembler) finish() {
	pruneEmptyChildren(a.root)
	sortAll(a.root, a.opts.FolderFirst, a.opts.LinksOrder)
	a.root.TotalURLs = CountNodes(a.root)
}

// hostname returns the lowercased host of rawURL, or "" when it does not parse.
func hostname(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
