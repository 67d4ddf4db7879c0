// Package service maintains persisted link trees for crawl workers: it
// loads the stored tree for a root URL, builds or merges the latest crawl
// results into it, categorizes skipped URLs and saves the result.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jmylchreest/sitetree/internal/config"
	"github.com/jmylchreest/sitetree/internal/logger"
	"github.com/jmylchreest/sitetree/internal/metrics"
	"github.com/jmylchreest/sitetree/internal/store"
	"github.com/jmylchreest/sitetree/internal/validation"
	"github.com/jmylchreest/sitetree/pkg/linktree"
)

// ErrInvalidRequest marks requests rejected before any work was done.
var ErrInvalidRequest = errors.New("invalid request")

// Service coordinates tree construction and persistence. Writes for the
// same root URL are serialized; different roots proceed in parallel.
type Service struct {
	store      store.Store
	normalizer linktree.Normalizer
	defaults   config.TreeConfig
	metrics    *metrics.Metrics
	locks      *keyedMutex
	validate   *validator.Validate
}

// New creates a service backed by st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:      st,
		normalizer: linktree.NewNormalizer(),
		defaults:   config.Default().Tree,
		locks:      newKeyedMutex(),
		validate:   validation.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Build constructs a fresh tree from req, replacing whatever was stored for
// the root URL.
func (s *Service) Build(ctx context.Context, req Request) (*linktree.Tree, error) {
	root, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, root)
	if err != nil {
		return nil, err
	}
	defer unlock()

	start := time.Now()
	tree := linktree.Build(req.Links, root, s.normalizer, s.treeOptions(req)...)
	s.attachSkipped(tree, root, req.Skipped)
	elapsed := time.Since(start)
	tree.ExecutionTime = elapsed.String()

	if err := s.save(ctx, root, tree); err != nil {
		return nil, err
	}

	s.metrics.ObserveBuild(elapsed, tree.TotalURLs)
	logger.InfoContext(ctx, "tree built",
		"root_url", root,
		"links", len(req.Links),
		"total_urls", tree.TotalURLs,
		"duration", elapsed)

	return tree, nil
}

// Merge folds req into the stored tree for its root URL, building one when
// none exists yet.
func (s *Service) Merge(ctx context.Context, req Request) (*linktree.Tree, error) {
	root, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, root)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.store.Get(ctx, root)
	switch {
	case errors.Is(err, store.ErrNotFound):
		existing = nil
	case err != nil:
		s.metrics.StoreError(metrics.OpGet)
		return nil, fmt.Errorf("loading tree for %s: %w", root, err)
	}

	before := 0
	if existing != nil {
		before = linktree.CountNodes(existing)
	}

	start := time.Now()
	tree := linktree.Merge(existing, req.Links, root, s.normalizer, s.treeOptions(req)...)
	s.attachSkipped(tree, root, req.Skipped)
	elapsed := time.Since(start)
	tree.ExecutionTime = elapsed.String()

	if err := s.save(ctx, root, tree); err != nil {
		return nil, err
	}

	added := tree.TotalURLs - before
	s.metrics.ObserveMerge(elapsed, added, tree.TotalURLs)
	logger.InfoContext(ctx, "tree merged",
		"root_url", root,
		"links", len(req.Links),
		"added", added,
		"total_urls", tree.TotalURLs,
		"created", existing == nil,
		"duration", elapsed)

	return tree, nil
}

// Get returns the stored tree for rootURL.
func (s *Service) Get(ctx context.Context, rootURL string) (*linktree.Tree, error) {
	root, err := s.normalizeRoot(rootURL)
	if err != nil {
		return nil, err
	}

	tree, err := s.store.Get(ctx, root)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.metrics.StoreError(metrics.OpGet)
		}
		return nil, err
	}
	return tree, nil
}

// Delete removes the stored tree for rootURL.
func (s *Service) Delete(ctx context.Context, rootURL string) error {
	root, err := s.normalizeRoot(rootURL)
	if err != nil {
		return err
	}

	unlock, err := s.locks.Lock(ctx, root)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.Delete(ctx, root); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.metrics.StoreError(metrics.OpDelete)
		}
		return err
	}

	logger.InfoContext(ctx, "tree deleted", "root_url", root)
	return nil
}

// List returns the root URLs of all stored trees.
func (s *Service) List(ctx context.Context) ([]string, error) {
	roots, err := s.store.List(ctx)
	if err != nil {
		s.metrics.StoreError(metrics.OpList)
		return nil, err
	}
	return roots, nil
}

// Visited returns the visit times recorded in the stored tree.
func (s *Service) Visited(ctx context.Context, rootURL string) ([]linktree.VisitedURL, error) {
	tree, err := s.Get(ctx, rootURL)
	if err != nil {
		return nil, err
	}
	return linktree.ExtractVisitedURLs(tree), nil
}

// View returns the stored tree with its extracted links narrowed. The
// persisted tree is not modified.
func (s *Service) View(ctx context.Context, rootURL string, includeExtractedLinks bool, linkOptions *linktree.LinkOptions) (*linktree.Tree, error) {
	tree, err := s.Get(ctx, rootURL)
	if err != nil {
		return nil, err
	}
	return linktree.ProcessExtractedLinks(tree.Clone(), includeExtractedLinks, linkOptions), nil
}

// Categorize sorts a skipped-URL map into buckets. URLs that appear as
// error nodes in the stored tree for the root, if any, are left out.
func (s *Service) Categorize(ctx context.Context, req CategorizeRequest) (*linktree.SkippedLinks, error) {
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	root, err := s.normalizeRoot(req.RootURL)
	if err != nil {
		return nil, err
	}

	var children []*linktree.Tree
	tree, err := s.store.Get(ctx, root)
	switch {
	case err == nil:
		children = tree.Children
	case errors.Is(err, store.ErrNotFound):
	default:
		s.metrics.StoreError(metrics.OpGet)
		return nil, fmt.Errorf("loading tree for %s: %w", root, err)
	}

	return linktree.CategorizeSkippedURLs(req.Skipped, root, children), nil
}

// prepare validates req and returns its normalized root URL.
func (s *Service) prepare(req Request) (string, error) {
	if err := validation.Struct(s.validate, req); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return s.normalizeRoot(req.RootURL)
}

func (s *Service) normalizeRoot(rootURL string) (string, error) {
	if rootURL == "" {
		return "", fmt.Errorf("%w: root url is required", ErrInvalidRequest)
	}
	root, err := s.normalizer.NormalizeURL(rootURL, rootURL, true)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return root, nil
}

// treeOptions merges the request caches with the configured defaults.
func (s *Service) treeOptions(req Request) []linktree.Option {
	folderFirst := s.defaults.FolderFirst
	if req.FolderFirst != nil {
		folderFirst = *req.FolderFirst
	}
	order := linktree.LinksOrder(s.defaults.LinksOrder)
	if req.LinksOrder != "" {
		order = req.LinksOrder
	}
	include := s.defaults.IncludeExtractedLinks
	if req.IncludeExtractedLinks != nil {
		include = *req.IncludeExtractedLinks
	}

	return []linktree.Option{
		linktree.WithVisited(req.Visited),
		linktree.WithMetadata(req.Metadata),
		linktree.WithCleanedHTML(req.CleanedHTML),
		linktree.WithExtractedLinks(req.ExtractedLinks),
		linktree.WithErrors(req.Errors),
		linktree.WithIncludeExtractedLinks(include),
		linktree.WithFolderFirst(folderFirst),
		linktree.WithLinksOrder(order),
	}
}

// attachSkipped replaces the root's skipped URLs when the request carries
// a skipped map; otherwise the stored value is kept.
func (s *Service) attachSkipped(tree *linktree.Tree, root string, skipped map[string]string) {
	if len(skipped) == 0 {
		return
	}
	categorized := linktree.CategorizeSkippedURLs(skipped, root, tree.Children)
	if categorized.IsEmpty() {
		tree.SkippedURLs = nil
		return
	}
	tree.SkippedURLs = categorized
}

func (s *Service) save(ctx context.Context, root string, tree *linktree.Tree) error {
	if err := s.store.Save(ctx, root, tree); err != nil {
		s.metrics.StoreError(metrics.OpSave)
		return fmt.Errorf("saving tree for %s: %w", root, err)
	}
	return nil
}
