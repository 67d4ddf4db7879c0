package linktree

import (
	"slices"
	"testing"
	"time"
)

// freezeTime pins timestamps for the duration of a test.
func freezeTime(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

// nodeURLs returns every node URL in the tree, sorted.
func nodeURLs(tree *Tree) []string {
	var urls []string
	Walk(tree, func(node *Tree) bool {
		urls = append(urls, node.URL)
		return true
	})
	slices.Sort(urls)
	return urls
}

// childNames returns the names of a node's direct children in order.
func childNames(node *Tree) []string {
	names := make([]string, 0, len(node.Children))
	for _, child := range node.Children {
		names = append(names, child.Name)
	}
	return names
}

// findNode returns the node with the given URL, or nil.
func findNode(tree *Tree, u string) *Tree {
	var found *Tree
	Walk(tree, func(node *Tree) bool {
		if node.URL == u {
			found = node
			return false
		}
		return true
	})
	return found
}

// assertFolderFirst checks that no folder follows a leaf anywhere in the tree.
func assertFolderFirst(t *testing.T, tree *Tree) {
	t.Helper()
	Walk(tree, func(node *Tree) bool {
		seenLeaf := false
		for _, child := range node.Children {
			isFolder := len(child.Children) > 0
			if isFolder && seenLeaf {
				t.Errorf("folder %q follows a leaf under %q", child.URL, node.URL)
			}
			if !isFolder {
				seenLeaf = true
			}
		}
		return true
	})
}

// assertNoEmptyChildren checks that pruning left no empty child slices.
func assertNoEmptyChildren(t *testing.T, tree *Tree) {
	t.Helper()
	Walk(tree, func(node *Tree) bool {
		if node.Children != nil && len(node.Children) == 0 {
			t.Errorf("node %q has an empty, non-nil children slice", node.URL)
		}
		return true
	})
}

func strPtr(s string) *string {
	return &s
}
