package notetree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notetree/internal/domain/models"
)

func TestBuildTree_SortsAndCounts(t *testing.T) {
	nodes := []models.Node{
		folder("f", "", 10),
		folder("sub", "f", 5),
		doc("a", "f", 7),
		doc("b", "sub", 1),
		doc("c", "sub", 1), // ties break on id
		doc("top", "", 20),
	}

	forest := BuildTree(nodes, BuildOptions{})

	require.Equal(t, []string{"top", "f"}, rootIDs(forest))
	f := forest[1]
	assert.Equal(t, []string{"a", "sub"}, childIDs(f))
	assert.Equal(t, 3, f.DescendantDocuments)

	sub := FindTreeNode(forest, "sub")
	require.NotNil(t, sub)
	assert.Equal(t, []string{"b", "c"}, childIDs(sub))
	assert.Equal(t, 2, sub.DescendantDocuments)
	assert.Equal(t, []string{"a", "b", "c"}, f.DocumentIDs())
}

func TestBuildTree_ReRootsBrokenParents(t *testing.T) {
	tests := []struct {
		name  string
		nodes []models.Node
		roots []string
	}{
		{
			name:  "missing parent",
			nodes: []models.Node{doc("orphan", "gone", 1), folder("f", "", 2)},
			roots: []string{"f", "orphan"},
		},
		{
			name:  "self parent",
			nodes: []models.Node{folder("self", "self", 1)},
			roots: []string{"self"},
		},
		{
			name:  "two node cycle",
			nodes: []models.Node{folder("x", "y", 2), folder("y", "x", 1)},
			roots: []string{"x", "y"},
		},
		{
			name:  "document parent",
			nodes: []models.Node{doc("d", "", 2), doc("child", "d", 1)},
			roots: []string{"d", "child"},
		},
		{
			name: "deleted parent",
			nodes: []models.Node{
				{ID: "dead", Title: "dead", IsFolder: true, Deleted: true, SortOrder: 3},
				doc("survivor", "dead", 1),
			},
			roots: []string{"survivor"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forest := BuildTree(tt.nodes, BuildOptions{})
			assert.Equal(t, tt.roots, rootIDs(forest))
		})
	}
}

func TestBuildTree_CycleMemberKeepsOutsideChild(t *testing.T) {
	nodes := []models.Node{
		folder("x", "y", 2),
		folder("y", "x", 1),
		doc("leaf", "x", 1),
	}

	forest := BuildTree(nodes, BuildOptions{})

	seen := map[string]int{}
	for _, r := range forest {
		r.Walk(func(tn *models.TreeNode) bool {
			seen[tn.ID]++
			return true
		})
	}
	assert.Equal(t, map[string]int{"x": 1, "y": 1, "leaf": 1}, seen)
	assert.Equal(t, []string{"leaf"}, childIDs(FindTreeNode(forest, "x")))
}

func TestBuildTree_IsOrderIndependent(t *testing.T) {
	nodes := []models.Node{
		folder("f1", "", 3), folder("f2", "f1", 2), doc("d1", "f2", 1),
		doc("d2", "f1", 1), doc("d3", "", 3), doc("d4", "missing", 9),
	}
	want := Flatten(BuildTree(nodes, BuildOptions{}), func(string) bool { return true })

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.Node(nil), nodes...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Flatten(BuildTree(shuffled, BuildOptions{}), func(string) bool { return true })
		require.Equal(t, want, got)
	}
}

func TestBuildTree_IncludeDeleted(t *testing.T) {
	nodes := []models.Node{
		folder("f", "", 1),
		{ID: "gone", Title: "gone", ParentID: "f", Deleted: true},
	}

	assert.Empty(t, BuildTree(nodes, BuildOptions{})[0].Children)
	assert.Len(t, BuildTree(nodes, BuildOptions{IncludeDeleted: true})[0].Children, 1)
}

func TestFlatten_RespectsExpansion(t *testing.T) {
	forest := BuildTree([]models.Node{
		folder("f", "", 2), doc("in", "f", 1), doc("out", "", 1),
	}, BuildOptions{})

	collapsed := Flatten(forest, func(string) bool { return false })
	assert.Equal(t, []string{"f", "out"}, collapsed)

	expanded := Flatten(forest, func(id string) bool { return id == "f" })
	assert.Equal(t, []string{"f", "in", "out"}, expanded)
}

func TestFirstDocument(t *testing.T) {
	forest := BuildTree([]models.Node{
		folder("f", "", 2), doc("inner", "f", 1), doc("outer", "", 1),
	}, BuildOptions{})
	assert.Equal(t, "inner", FirstDocument(forest).ID)
	assert.Nil(t, FirstDocument(BuildTree([]models.Node{folder("f", "", 1)}, BuildOptions{})))
}
