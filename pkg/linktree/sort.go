package linktree

import (
	"slices"
	"strings"
)

// SortChildren orders siblings. With folderFirst, nodes that have children
// come before leaves and each group is ordered independently. OrderPage
// keeps the incoming order; OrderAlphabetical sorts by the last non-empty
// path segment of each URL. The input slice is not reordered.
func SortChildren(children []*Tree, folderFirst bool, order LinksOrder) []*Tree {
	if len(children) <= 1 {
		return children
	}

	if !folderFirst {
		if order != OrderAlphabetical {
			return children
		}
		return orderNodes(children, order)
	}

	folders := make([]*Tree, 0, len(children))
	leaves := make([]*Tree, 0, len(children))
	for _, child := range children {
		if len(child.Children) > 0 {
			folders = append(folders, child)
		} else {
			leaves = append(leaves, child)
		}
	}

	return append(orderNodes(folders, order), orderNodes(leaves, order)...)
}

func orderNodes(nodes []*Tree, order LinksOrder) []*Tree {
	out := slices.Clone(nodes)
	if order == OrderAlphabetical {
		slices.SortStableFunc(out, func(a, b *Tree) int {
			return compareSegments(lastSegment(a.URL), lastSegment(b.URL))
		})
	}
	return out
}

// lastSegment returns the last non-empty slash-separated part of a URL.
// For a bare origin that is the host.
func lastSegment(rawURL string) string {
	parts := pathSegments(rawURL)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

func compareSegments(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// sortAll re-sorts the children of every node in the tree.
func sortAll(tree *Tree, folderFirst bool, order LinksOrder) {
	Walk(tree, func(node *Tree) bool {
		if len(node.Children) > 1 {
			node.Children = SortChildren(node.Children, folderFirst, order)
		}
		return true
	})
}

// pruneEmptyChildren replaces empty child slices with nil.
func pruneEmptyChildren(tree *Tree) {
	Walk(tree, func(node *Tree) bool {
		if node.Children != nil && len(node.Children) == 0 {
			node.Children = nil
		}
		return true
	})
}
