package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interiorEdge(g *Geometry) int {
	for ei := range g.Mesh.Edges() {
		if !g.Mesh.IsBoundaryEdge(ei) {
			return ei
		}
	}
	return -1
}

func TestFlipEdgePreservesCounts(t *testing.T) {
	g := Icosphere(1, 1)
	nv, ne, nf := g.Mesh.NVertices(), g.Mesh.NEdges(), g.Mesh.NFaces()

	flipped := false
	var ed Edge
	for ei := range g.Mesh.Edges() {
		ed = g.Mesh.Edge(ei)
		if g.FlipEdge(ei) {
			flipped = true
			break
		}
	}
	require.True(t, flipped, "no flippable edge on the icosphere")
	g.Refresh()

	assert.Equal(t, nv, g.Mesh.NVertices())
	assert.Equal(t, ne, g.Mesh.NEdges())
	assert.Equal(t, nf, g.Mesh.NFaces())
	// old edge replaced by the opposite diagonal
	assert.Equal(t, -1, g.Mesh.EdgeBetween(ed.V0, ed.V1))
	assert.NotEqual(t, -1, g.Mesh.EdgeBetween(ed.O0, ed.O1))
}

func TestFlipBoundaryEdgeRejected(t *testing.T) {
	g := HexagonPatch(2, 1)
	for ei := range g.Mesh.Edges() {
		if g.Mesh.IsBoundaryEdge(ei) {
			assert.False(t, g.FlipEdge(ei))
			return
		}
	}
	t.Fatal("no boundary edge found")
}

func TestSplitEdgeInterior(t *testing.T) {
	g := Icosphere(1, 1)
	nv, ne, nf := g.Mesh.NVertices(), g.Mesh.NEdges(), g.Mesh.NFaces()

	e := interiorEdge(g)
	newV := g.SplitEdge(e)
	g.Refresh()

	assert.Equal(t, nv, newV)
	assert.Equal(t, nv+1, g.Mesh.NVertices())
	assert.Equal(t, ne+3, g.Mesh.NEdges())
	assert.Equal(t, nf+2, g.Mesh.NFaces())
	assert.Equal(t, 2, g.Mesh.NVertices()-g.Mesh.NEdges()+g.Mesh.NFaces())
}

func TestSplitEdgeBoundary(t *testing.T) {
	g := HexagonPatch(2, 1)
	nv, ne, nf := g.Mesh.NVertices(), g.Mesh.NEdges(), g.Mesh.NFaces()

	be := -1
	for ei := range g.Mesh.Edges() {
		if g.Mesh.IsBoundaryEdge(ei) {
			be = ei
			break
		}
	}
	require.NotEqual(t, -1, be)
	g.SplitEdge(be)
	g.Refresh()

	assert.Equal(t, nv+1, g.Mesh.NVertices())
	assert.Equal(t, ne+2, g.Mesh.NEdges())
	assert.Equal(t, nf+1, g.Mesh.NFaces())
}

func TestCollapseEdge(t *testing.T) {
	g := Icosphere(2, 1)
	nv, ne, nf := g.Mesh.NVertices(), g.Mesh.NEdges(), g.Mesh.NFaces()

	collapsed := false
	for ei := 0; ei < g.Mesh.NEdges(); ei++ {
		if _, _, _, ok := g.CollapseEdge(ei); ok {
			collapsed = true
			break
		}
	}
	require.True(t, collapsed, "no collapsible edge on the icosphere")
	g.Refresh()

	assert.Equal(t, nv-1, g.Mesh.NVertices())
	assert.Equal(t, ne-3, g.Mesh.NEdges())
	assert.Equal(t, nf-2, g.Mesh.NFaces())
	assert.Equal(t, 2, g.Mesh.NVertices()-g.Mesh.NEdges()+g.Mesh.NFaces())
	assert.Equal(t, g.Mesh.NVertices(), len(g.Positions))
}

func TestCollapseBoundaryRejected(t *testing.T) {
	g := HexagonPatch(2, 1)
	for ei := range g.Mesh.Edges() {
		e := g.Mesh.Edge(ei)
		if g.Mesh.IsBoundaryVertex(e.V0) || g.Mesh.IsBoundaryVertex(e.V1) {
			_, _, _, ok := g.CollapseEdge(ei)
			assert.False(t, ok)
			return
		}
	}
	t.Fatal("no boundary-touching edge found")
}
