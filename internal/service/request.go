package service

import (
	"github.com/jmylchreest/sitetree/internal/snapshot"
	"github.com/jmylchreest/sitetree/pkg/linktree"
)

// Request carries one crawl result for a root URL: the links discovered,
// the per-URL caches and the skipped-URL map. Nil ordering fields fall back
// to the service defaults.
type Request struct {
	RootURL        string                              `json:"rootUrl" validate:"required,http_url"`
	Links          []string                            `json:"links,omitempty"`
	Visited        []linktree.VisitedURL               `json:"visited,omitempty"`
	Metadata       map[string]*linktree.PageMetadata   `json:"metadata,omitempty"`
	CleanedHTML    map[string]string                   `json:"cleanedHtml,omitempty"`
	ExtractedLinks map[string]*linktree.ExtractedLinks `json:"extractedLinks,omitempty"`
	Errors         map[string]string                   `json:"errors,omitempty"`
	Skipped        map[string]string                   `json:"skipped,omitempty"`

	FolderFirst           *bool               `json:"folderFirst,omitempty"`
	LinksOrder            linktree.LinksOrder `json:"linksOrder,omitempty" validate:"omitempty,oneof=page alphabetical"`
	IncludeExtractedLinks *bool               `json:"includeExtractedLinks,omitempty"`
}

// RequestFromSnapshot converts a loaded snapshot into a Request.
func RequestFromSnapshot(s *snapshot.Snapshot) Request {
	return Request{
		RootURL:        s.RootURL,
		Links:          s.Links,
		Visited:        s.Visited,
		Metadata:       s.Metadata,
		CleanedHTML:    s.CleanedHTML,
		ExtractedLinks: s.ExtractedLinks,
		Errors:         s.Errors,
		Skipped:        s.Skipped,
	}
}

// CategorizeRequest asks for a skipped-URL map to be categorized.
type CategorizeRequest struct {
	RootURL string            `json:"rootUrl" validate:"required,http_url"`
	Skipped map[string]string `json:"skipped"`
}
