package linktree

// ExtractVisitedURLs returns one entry per node that has a visit time, in
// breadth-first order. Node URLs are unique, so the result is a set.
func ExtractVisitedURLs(tree *Tree) []VisitedURL {
	var visited []VisitedURL
	Walk(tree, func(node *Tree) bool {
		if node.LastVisited != nil && *node.LastVisited != "" {
			visited = append(visited, VisitedURL{URL: node.URL, LastVisited: *node.LastVisited})
		}
		return true
	})
	return visited
}
