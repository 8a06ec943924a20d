package store

import "sort"

// LineageNode is one transcript in a reconstructed variant tree
type LineageNode struct {
	Transcript *Transcript
	Children   []*LineageNode
	Dangling   bool // parent id set but parent no longer exists
}

// BuildLineage rebuilds the variant forest of one group from its records.
// Records whose parent was removed become roots flagged as dangling.
// Roots and children are ordered by creation.
func BuildLineage(records []*Transcript) []*LineageNode {
	sorted := make([]*Transcript, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	nodes := make(map[int64]*LineageNode, len(sorted))
	for _, t := range sorted {
		nodes[t.ID] = &LineageNode{Transcript: t}
	}

	var roots []*LineageNode
	for _, t := range sorted {
		node := nodes[t.ID]
		if t.VariantOfID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*t.VariantOfID]
		if !ok || parent == node {
			node.Dangling = true
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	return roots
}

// Walk visits every node depth first with its depth
func Walk(roots []*LineageNode, fn func(node *LineageNode, depth int)) {
	var visit func(n *LineageNode, depth int)
	visit = func(n *LineageNode, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, r := range roots {
		visit(r, 0)
	}
}
