package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/sitetree/internal/config"
	"github.com/jmylchreest/sitetree/internal/metrics"
	"github.com/jmylchreest/sitetree/internal/snapshot"
	"github.com/jmylchreest/sitetree/internal/store"
	"github.com/jmylchreest/sitetree/pkg/linktree"
)

func newService(t *testing.T, opts ...Option) (*Service, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	return New(st, opts...), st
}

func scenarioRequest() Request {
	return Request{
		RootURL: "https://example.com/",
		Links: []string{
			"https://example.com/a",
			"https://example.com/a/b",
			"https://example.com/c",
		},
	}
}

func childNames(tree *linktree.Tree) []string {
	names := make([]string, len(tree.Children))
	for i, c := range tree.Children {
		names[i] = c.Name
	}
	return names
}

// failingStore fails every operation.
type failingStore struct{}

var errBackend = errors.New("backend down")

func (failingStore) Get(context.Context, string) (*linktree.Tree, error) { return nil, errBackend }
func (failingStore) Save(context.Context, string, *linktree.Tree) error { return errBackend }
func (failingStore) Delete(context.Context, string) error { return errBackend }
func (failingStore) List(context.Context) ([]string, error) { return nil, errBackend }
func (failingStore) Close() error { return nil }

// --- Build Tests ---

func TestBuild_PersistsTree(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	tree, err := svc.Build(ctx, scenarioRequest())
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", tree.URL)
	assert.Equal(t, 4, tree.TotalURLs)
	assert.Equal(t, []string{"a", "c"}, childNames(tree))
	assert.NotEmpty(t, tree.ExecutionTime)

	stored, err := st.Get(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, 4, stored.TotalURLs)
}

func TestBuild_ReplacesExisting(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Build(ctx, scenarioRequest())
	require.NoError(t, err)

	tree, err := svc.Build(ctx, Request{RootURL: "https://example.com", Links: []string{"https://example.com/z"}})
	require.NoError(t, err)
	assert.Equal(t, 2, tree.TotalURLs)
}

func TestBuild_CategorizesSkipped(t *testing.T) {
	svc, _ := newService(t)

	req := scenarioRequest()
	req.Errors = map[string]string{"https://example.com/c": "500 Internal Server Error"}
	req.Skipped = map[string]string{
		"https://example.com/logo.png": "Media URL (image)",
		"https://example.com/c":        "Fetch failed",
		"https://other.com/x":          "External",
	}

	tree, err := svc.Build(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, tree.SkippedURLs)
	require.NotNil(t, tree.SkippedURLs.Media)
	assert.Len(t, tree.SkippedURLs.Media.Images, 1)
	assert.Len(t, tree.SkippedURLs.External, 1)
	assert.Empty(t, tree.SkippedURLs.Internal, "errored node must not be listed as skipped")
}

func TestBuild_RequestOverridesDefaults(t *testing.T) {
	svc, _ := newService(t, WithTreeConfig(config.TreeConfig{FolderFirst: true, LinksOrder: "page"}))

	folderFirst := false
	req := Request{
		RootURL:     "https://example.com",
		Links:       []string{"https://example.com/z", "https://example.com/a/b", "https://example.com/m"},
		FolderFirst: &folderFirst,
		LinksOrder:  linktree.OrderAlphabetical,
	}

	tree, err := svc.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "z"}, childNames(tree))
}

func TestBuild_IncludeExtractedLinksDefault(t *testing.T) {
	req := scenarioRequest()
	req.ExtractedLinks = map[string]*linktree.ExtractedLinks{
		"https://example.com/c": {External: []string{"https://other.com"}},
	}

	svc, _ := newService(t)
	tree, err := svc.Build(context.Background(), req)
	require.NoError(t, err)
	assert.NotNil(t, tree.Children[1].ExtractedLinks, "configured default includes extracted links")

	off := false
	req.IncludeExtractedLinks = &off
	tree, err = svc.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, tree.Children[1].ExtractedLinks)
}

func TestBuild_InvalidRequest(t *testing.T) {
	svc, _ := newService(t)

	tests := []struct {
		name string
		req  Request
	}{
		{"missing root", Request{}},
		{"no scheme", Request{RootURL: "example.com"}},
		{"ftp scheme", Request{RootURL: "ftp://example.com"}},
		{"unknown order", Request{RootURL: "https://example.com", LinksOrder: "random"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Build(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestBuild_StoreFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := New(failingStore{}, WithMetrics(m))

	_, err := svc.Build(context.Background(), scenarioRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBackend)
	assert.InDelta(t, 1, testutil.ToFloat64(m.StoreErrors.WithLabelValues(metrics.OpSave)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.TreesBuilt), 0)
}

// --- Merge Tests ---

func TestMerge_CreatesWhenMissing(t *testing.T) {
	svc, st := newService(t)

	tree, err := svc.Merge(context.Background(), scenarioRequest())
	require.NoError(t, err)
	assert.Equal(t, 4, tree.TotalURLs)

	_, err = st.Get(context.Background(), "https://example.com")
	assert.NoError(t, err)
}

func TestMerge_AddsToStoredTree(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc, _ := newService(t, WithMetrics(m))
	ctx := context.Background()

	_, err := svc.Build(ctx, scenarioRequest())
	require.NoError(t, err)

	tree, err := svc.Merge(ctx, Request{
		RootURL: "https://example.com",
		Links:   []string{"https://example.com/c/d", "https://example.com/e"},
	})
	require.NoError(t, err)

	assert.Equal(t, 6, tree.TotalURLs)
	assert.Equal(t, []string{"a", "c", "e"}, childNames(tree))
	assert.InDelta(t, 1, testutil.ToFloat64(m.TreesMerged), 0)
	assert.InDelta(t, 4+2, testutil.ToFloat64(m.LinksAdded), 0)

	again, err := svc.Merge(ctx, Request{RootURL: "https://example.com", Links: []string{"https://example.com/e"}})
	require.NoError(t, err)
	assert.Equal(t, 6, again.TotalURLs, "known links are a no-op")
}

func TestMerge_KeepsSkippedWithoutNewMap(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	req := scenarioRequest()
	req.Skipped = map[string]string{"https://other.com": "External"}
	_, err := svc.Build(ctx, req)
	require.NoError(t, err)

	tree, err := svc.Merge(ctx, Request{RootURL: "https://example.com", Links: []string{"https://example.com/x"}})
	require.NoError(t, err)
	require.NotNil(t, tree.SkippedURLs)
	assert.Len(t, tree.SkippedURLs.External, 1)

	tree, err = svc.Merge(ctx, Request{
		RootURL: "https://example.com",
		Skipped: map[string]string{"https://example.com/private": "robots"},
	})
	require.NoError(t, err)
	assert.Empty(t, tree.SkippedURLs.External)
	assert.Len(t, tree.SkippedURLs.Internal, 1)
}

func TestMerge_ConcurrentSameRootLosesNothing(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	const workers = 25
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Merge(ctx, Request{
				RootURL: "https://example.com",
				Links:   []string{fmt.Sprintf("https://example.com/page-%02d", i)},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	tree, err := svc.Get(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, workers+1, tree.TotalURLs)
	assert.Zero(t, svc.locks.size(), "locks are released after use")
}

func TestMerge_StoreLoadFailure(t *testing.T) {
	svc := New(failingStore{})

	_, err := svc.Merge(context.Background(), scenarioRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBackend)
	assert.Contains(t, err.Error(), "loading tree")
}

// --- Read Operation Tests ---

func TestGetAndDelete(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "https://example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Build(ctx, scenarioRequest())
	require.NoError(t, err)

	tree, err := svc.Get(ctx, "HTTPS://Example.com:443/")
	require.NoError(t, err, "root URL is normalized before lookup")
	assert.Equal(t, 4, tree.TotalURLs)

	roots, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com"}, roots)

	require.NoError(t, svc.Delete(ctx, "https://example.com"))
	assert.ErrorIs(t, svc.Delete(ctx, "https://example.com"), store.ErrNotFound)

	_, err = svc.Get(ctx, "mailto:someone@example.com")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestVisited(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	req := scenarioRequest()
	req.Visited = []linktree.VisitedURL{
		{URL: "https://example.com/a", LastVisited: "2026-01-01T00:00:00.000Z"},
		{URL: "https://example.com/unknown", LastVisited: "2026-01-02T00:00:00.000Z"},
	}
	_, err := svc.Build(ctx, req)
	require.NoError(t, err)

	visited, err := svc.Visited(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, []linktree.VisitedURL{{URL: "https://example.com/a", LastVisited: "2026-01-01T00:00:00.000Z"}}, visited)
}

func TestView_DoesNotModifyStoredTree(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	req := scenarioRequest()
	req.ExtractedLinks = map[string]*linktree.ExtractedLinks{
		"https://example.com/c": {
			Internal: []string{"https://example.com/a"},
			External: []string{"https://other.com"},
		},
	}
	_, err := svc.Build(ctx, req)
	require.NoError(t, err)

	view, err := svc.View(ctx, "https://example.com", true, &linktree.LinkOptions{})
	require.NoError(t, err)
	c := view.Children[1]
	assert.Equal(t, []string{"https://example.com/a"}, c.ExtractedLinks.Internal)
	assert.Empty(t, c.ExtractedLinks.External)

	hidden, err := svc.View(ctx, "https://example.com", false, nil)
	require.NoError(t, err)
	assert.Nil(t, hidden.Children[1].ExtractedLinks)

	stored, err := svc.Get(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Len(t, stored.Children[1].ExtractedLinks.External, 1)
}

func TestCategorize(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	req := scenarioRequest()
	req.Errors = map[string]string{"https://example.com/a/b": "404 Not Found"}
	_, err := svc.Build(ctx, req)
	require.NoError(t, err)

	result, err := svc.Categorize(ctx, CategorizeRequest{
		RootURL: "https://example.com",
		Skipped: map[string]string{
			"https://example.com/a/b":      "Fetch failed",
			"https://docs.example.com/x":   "Max depth",
			"https://example.com/logo.svg": "Excluded",
		},
	})
	require.NoError(t, err)
	assert.Len(t, result.Internal, 1)
	assert.Equal(t, "https://docs.example.com/x", result.Internal[0].URL)
	require.NotNil(t, result.Media)
	assert.Len(t, result.Media.Images, 1)

	fresh, err := svc.Categorize(ctx, CategorizeRequest{
		RootURL: "https://unknown.example.net",
		Skipped: map[string]string{"https://unknown.example.net/p": "robots"},
	})
	require.NoError(t, err, "a root without a stored tree is still categorized")
	assert.Len(t, fresh.Internal, 1)

	_, err = svc.Categorize(ctx, CategorizeRequest{RootURL: "nope"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

// --- RequestFromSnapshot Tests ---

func TestRequestFromSnapshot(t *testing.T) {
	snap := &snapshot.Snapshot{
		RootURL: "https://example.com",
		Links:   []string{"https://example.com/a"},
		Errors:  map[string]string{"https://example.com/a": "boom"},
		Skipped: map[string]string{"https://x.com": "External"},
	}

	req := RequestFromSnapshot(snap)

	assert.Equal(t, snap.RootURL, req.RootURL)
	assert.Equal(t, snap.Links, req.Links)
	assert.Equal(t, snap.Errors, req.Errors)
	assert.Equal(t, snap.Skipped, req.Skipped)
	assert.Nil(t, req.FolderFirst)
}
