package notetree

import (
	"sort"

	"notetree/internal/domain/models"
)

// BuildOptions controls BuildTree
type BuildOptions struct {
	// IncludeDeleted keeps soft-deleted nodes in the forest
	IncludeDeleted bool
}

// BuildTree turns the flat node set into a sorted forest.
//
// A node is attached under its parent only when the parent is present, is a folder,
// and the parent chain does not lead back to the node. Anything else is rendered as
// a root, so every input node appears exactly once and the output is always acyclic.
// The result depends only on the input set, never on its order.
func BuildTree(nodes []models.Node, opts BuildOptions) []*models.TreeNode {
	// First pass: index candidate nodes
	byID := make(map[string]*models.TreeNode, len(nodes))
	for _, n := range nodes {
		if n.Deleted && !opts.IncludeDeleted {
			continue
		}
		byID[n.ID] = &models.TreeNode{Node: n, Children: []*models.TreeNode{}}
	}

	// Second pass: resolve effective parents
	var roots []*models.TreeNode
	for _, tn := range byID {
		if parent := effectiveParent(tn, byID); parent != nil {
			parent.Children = append(parent.Children, tn)
		} else {
			roots = append(roots, tn)
		}
	}

	// Third pass: sort siblings and count documents bottom-up
	sortTreeNodes(roots)
	for _, r := range roots {
		finalize(r)
	}
	if roots == nil {
		roots = []*models.TreeNode{}
	}
	return roots
}

func effectiveParent(tn *models.TreeNode, byID map[string]*models.TreeNode) *models.TreeNode {
	if tn.ParentID == models.RootID {
		return nil
	}
	parent, ok := byID[tn.ParentID]
	if !ok || !parent.IsFolder {
		return nil
	}

	// Walk up; reaching tn again means tn sits on a cycle
	visited := map[string]bool{tn.ID: true}
	for cur := parent; cur != nil; {
		if visited[cur.ID] {
			if cur.ID == tn.ID {
				return nil
			}
			break
		}
		visited[cur.ID] = true
		if cur.ParentID == models.RootID {
			break
		}
		cur = byID[cur.ParentID]
	}
	return parent
}

func finalize(tn *models.TreeNode) int {
	sortTreeNodes(tn.Children)
	if !tn.IsFolder {
		return 1
	}
	count := 0
	for _, child := range tn.Children {
		count += finalize(child)
	}
	tn.DescendantDocuments = count
	return count
}

// Flatten returns the ids visible in the rendered tree, top to bottom. A folder's
// children are included only while isExpanded reports true for it.
func Flatten(forest []*models.TreeNode, isExpanded func(id string) bool) []string {
	var out []string
	var visit func([]*models.TreeNode)
	visit = func(level []*models.TreeNode) {
		for _, tn := range level {
			out = append(out, tn.ID)
			if tn.IsFolder && isExpanded != nil && isExpanded(tn.ID) {
				visit(tn.Children)
			}
		}
	}
	visit(forest)
	return out
}

// FindTreeNode locates id anywhere in the forest
func FindTreeNode(forest []*models.TreeNode, id string) *models.TreeNode {
	var found *models.TreeNode
	for _, root := range forest {
		root.Walk(func(tn *models.TreeNode) bool {
			if tn.ID == id {
				found = tn
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// FirstDocument returns the first document in pre-order, or nil
func FirstDocument(forest []*models.TreeNode) *models.TreeNode {
	var found *models.TreeNode
	for _, root := range forest {
		root.Walk(func(tn *models.TreeNode) bool {
			if !tn.IsFolder && !tn.Deleted {
				found = tn
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// Sibling order: SortOrder descending (newest on top), ties broken by id ascending.
func lessSibling(a, b models.Node) bool {
	if a.SortOrder != b.SortOrder {
		return a.SortOrder > b.SortOrder
	}
	return a.ID < b.ID
}

func sortSiblings(nodes []models.Node) {
	sort.Slice(nodes, func(i, j int) bool { return lessSibling(nodes[i], nodes[j]) })
}

func sortTreeNodes(nodes []*models.TreeNode) {
	sort.Slice(nodes, func(i, j int) bool { return lessSibling(nodes[i].Node, nodes[j].Node) })
}
