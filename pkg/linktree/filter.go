package linktree

// ProcessExtractedLinks narrows the extracted links stored on every node and
// returns the same tree. When includeExtractedLinks is false they are
// removed entirely; otherwise, with linkOptions set, internal links are kept
// and external and media links only when requested. A node left with no
// links ends up with nil ExtractedLinks.
func ProcessExtractedLinks(tree *Tree, includeExtractedLinks bool, linkOptions *LinkOptions) *Tree {
	Walk(tree, func(node *Tree) bool {
		if node.ExtractedLinks.IsEmpty() {
			return true
		}
		if !includeExtractedLinks {
			node.ExtractedLinks = nil
			return true
		}
		if linkOptions == nil {
			return true
		}

		filtered := &ExtractedLinks{Internal: node.ExtractedLinks.Internal}
		if linkOptions.IncludeExternal {
			filtered.External = node.ExtractedLinks.External
		}
		if linkOptions.IncludeMedia {
			filtered.Media = node.ExtractedLinks.Media
		}
		if filtered.IsEmpty() {
			filtered = nil
		}
		node.ExtractedLinks = filtered
		return true
	})
	return tree
}
