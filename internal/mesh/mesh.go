package mesh

import (
	"fmt"
)

// Edge is an undirected mesh edge. F1 and O1 are -1 on the boundary.
type Edge struct {
	V0, V1 int // endpoints
	F0, F1 int // incident faces
	O0, O1 int // vertices opposite the edge in F0 and F1
}

// Mesh holds the connectivity of a manifold triangle mesh. Positions and
// derived geometric quantities live in Geometry; Mesh is topology only.
type Mesh struct {
	nVertices int
	faces     [][3]int

	edges       []Edge
	edgeIndex   map[[2]int]int
	neighbors   [][]int
	vertexEdges [][]int
	vertexFaces [][]int
	boundary    []bool
	hasBoundary bool
}

// New builds connectivity from a face list. Each face references vertices by
// index and is oriented counterclockwise seen from outside. An edge shared by
// more than two faces is a manifoldness error.
func New(nVertices int, faces [][3]int) (*Mesh, error) {
	m := &Mesh{nVertices: nVertices, faces: faces}
	if err := m.rebuild(); err != nil {
		return nil, err
	}
	return m, nil
}

func edgeKey(a, b int) [2]int {
	if a < b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}

func (m *Mesh) rebuild() error {
	m.edges = m.edges[:0]
	m.edgeIndex = make(map[[2]int]int, 3*len(m.faces)/2+1)
	m.neighbors = make([][]int, m.nVertices)
	m.vertexEdges = make([][]int, m.nVertices)
	m.vertexFaces = make([][]int, m.nVertices)
	m.boundary = make([]bool, m.nVertices)
	m.hasBoundary = false

	for fi, f := range m.faces {
		for c := 0; c < 3; c++ {
			a, b, o := f[c], f[(c+1)%3], f[(c+2)%3]
			if a < 0 || a >= m.nVertices || b < 0 || b >= m.nVertices {
				return fmt.Errorf("face %d references vertex out of range", fi)
			}
			if a == b {
				return fmt.Errorf("face %d is degenerate", fi)
			}
			key := edgeKey(a, b)
			ei, ok := m.edgeIndex[key]
			if !ok {
				m.edgeIndex[key] = len(m.edges)
				m.edges = append(m.edges, Edge{V0: key[0], V1: key[1], F0: fi, F1: -1, O0: o, O1: -1})
				continue
			}
			e := &m.edges[ei]
			if e.F1 != -1 {
				return fmt.Errorf("edge (%d,%d) shared by more than two faces", a, b)
			}
			e.F1 = fi
			e.O1 = o
		}
		m.vertexFaces[f[0]] = append(m.vertexFaces[f[0]], fi)
		m.vertexFaces[f[1]] = append(m.vertexFaces[f[1]], fi)
		m.vertexFaces[f[2]] = append(m.vertexFaces[f[2]], fi)
	}

	for ei, e := range m.edges {
		m.neighbors[e.V0] = append(m.neighbors[e.V0], e.V1)
		m.neighbors[e.V1] = append(m.neighbors[e.V1], e.V0)
		m.vertexEdges[e.V0] = append(m.vertexEdges[e.V0], ei)
		m.vertexEdges[e.V1] = append(m.vertexEdges[e.V1], ei)
		if e.F1 == -1 {
			m.boundary[e.V0] = true
			m.boundary[e.V1] = true
			m.hasBoundary = true
		}
	}
	return nil
}

func (m *Mesh) NVertices() int { return m.nVertices }
func (m *Mesh) NEdges() int    { return len(m.edges) }
func (m *Mesh) NFaces() int    { return len(m.faces) }

func (m *Mesh) Face(f int) [3]int { return m.faces[f] }
func (m *Mesh) Faces() [][3]int   { return m.faces }
func (m *Mesh) Edge(e int) Edge   { return m.edges[e] }
func (m *Mesh) Edges() []Edge     { return m.edges }
func (m *Mesh) HasBoundary() bool { return m.hasBoundary }

// Neighbors returns the 1-ring vertices of v.
func (m *Mesh) Neighbors(v int) []int { return m.neighbors[v] }

// VertexEdges returns the edges incident to v.
func (m *Mesh) VertexEdges(v int) []int { return m.vertexEdges[v] }

// VertexFaces returns the faces incident to v.
func (m *Mesh) VertexFaces(v int) []int { return m.vertexFaces[v] }

func (m *Mesh) IsBoundaryVertex(v int) bool { return m.boundary[v] }

func (m *Mesh) IsBoundaryEdge(e int) bool { return m.edges[e].F1 == -1 }

// EdgeBetween returns the edge index joining a and b, or -1.
func (m *Mesh) EdgeBetween(a, b int) int {
	if ei, ok := m.edgeIndex[edgeKey(a, b)]; ok {
		return ei
	}
	return -1
}

// Ring collects all vertices within n topological hops of v, including v.
func (m *Mesh) Ring(v, n int) map[int]bool {
	visited := map[int]bool{v: true}
	frontier := []int{v}
	for hop := 0; hop < n; hop++ {
		var next []int
		for _, u := range frontier {
			for _, w := range m.neighbors[u] {
				if !visited[w] {
					visited[w] = true
					next = append(next, w)
				}
			}
		}
		frontier = next
	}
	return visited
}

// Clone deep-copies the connectivity.
func (m *Mesh) Clone() *Mesh {
	faces := make([][3]int, len(m.faces))
	copy(faces, m.faces)
	clone, err := New(m.nVertices, faces)
	if err != nil {
		// the source was already validated
		panic(err)
	}
	return clone
}
