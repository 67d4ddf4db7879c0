package linktree

// LinksOrder selects how siblings are ordered.
type LinksOrder string

const (
	// OrderPage keeps siblings in discovery order.
	OrderPage LinksOrder = "page"
	// OrderAlphabetical sorts siblings by their last path segment.
	OrderAlphabetical LinksOrder = "alphabetical"
)

// Options holds the caches and ordering policy used by Build and Merge.
// All cache maps are keyed by normalized URL.
type Options struct {
	Visited        []VisitedURL
	Metadata       map[string]*PageMetadata
	CleanedHTML    map[string]string
	ExtractedLinks map[string]*ExtractedLinks
	Errors         map[string]string

	// IncludeExtractedLinks controls whether ExtractedLinks entries are
	// attached to nodes at all.
	IncludeExtractedLinks bool

	FolderFirst bool
	LinksOrder  LinksOrder
}

// DefaultOptions returns folder-first, page-ordered options with no caches.
func DefaultOptions() Options {
	return Options{
		FolderFirst: true,
		LinksOrder:  OrderPage,
	}
}

// Option configures Build and Merge.
type Option func(*Options)

// WithVisited supplies visit timestamps.
func WithVisited(visited []VisitedURL) Option {
	return func(o *Options) {
		o.Visited = visited
	}
}

// WithMetadata supplies cached page metadata.
func WithMetadata(metadata map[string]*PageMetadata) Option {
	return func(o *Options) {
		o.Metadata = metadata
	}
}

// WithCleanedHTML supplies cached cleaned HTML. Only Merge uses it.
func WithCleanedHTML(html map[string]string) Option {
	return func(o *Options) {
		o.CleanedHTML = html
	}
}

// WithExtractedLinks supplies cached extracted links.
func WithExtractedLinks(links map[string]*ExtractedLinks) Option {
	return func(o *Options) {
		o.ExtractedLinks = links
	}
}

// WithErrors supplies per-URL fetch errors.
func WithErrors(errs map[string]string) Option {
	return func(o *Options) {
		o.Errors = errs
	}
}

// WithIncludeExtractedLinks enables attaching extracted links.
func WithIncludeExtractedLinks(enabled bool) Option {
	return func(o *Options) {
		o.IncludeExtractedLinks = enabled
	}
}

// WithFolderFirst places nodes with children before leaves.
func WithFolderFirst(enabled bool) Option {
	return func(o *Options) {
		o.FolderFirst = enabled
	}
}

// WithLinksOrder sets the sibling order.
func WithLinksOrder(order LinksOrder) Option {
	return func(o *Options) {
		o.LinksOrder = order
	}
}

func resolveOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// hasCaches reports whether any derived-data cache was supplied.
func (o *Options) hasCaches() bool {
	return len(o.Metadata) > 0 ||
		len(o.CleanedHTML) > 0 ||
		len(o.Errors) > 0 ||
		(o.IncludeExtractedLinks && len(o.ExtractedLinks) > 0)
}

func (o *Options) visitedIndex() map[string]string {
	index := make(map[string]string, len(o.Visited))
	for _, v := range o.Visited {
		if v.URL != "" && v.LastVisited != "" {
			index[v.URL] = v.LastVisited
		}
	}
	return index
}
