package mesh

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Local topology operations. Each mutates connectivity (and positions for
// split/collapse) and rebuilds adjacency; geometric caches are stale until
// the caller runs Refresh. Per-vertex fields owned by callers must be
// reconciled using the returned indices.

// directedIn returns the edge endpoints ordered so that a->b is a directed
// edge of face f.
func directedIn(f [3]int, v0, v1 int) (a, b int) {
	for c := 0; c < 3; c++ {
		if f[c] == v0 && f[(c+1)%3] == v1 {
			return v0, v1
		}
		if f[c] == v1 && f[(c+1)%3] == v0 {
			return v1, v0
		}
	}
	return v0, v1
}

// FlipEdge replaces interior edge e by the opposite diagonal of its two
// incident triangles. Returns false for boundary edges and flips that would
// create an edge that already exists.
func (g *Geometry) FlipEdge(e int) bool {
	m := g.Mesh
	ed := m.Edge(e)
	if ed.F1 < 0 {
		return false
	}
	if m.EdgeBetween(ed.O0, ed.O1) != -1 {
		return false
	}
	a, b := directedIn(m.faces[ed.F0], ed.V0, ed.V1)
	l, k := ed.O0, ed.O1
	m.faces[ed.F0] = [3]int{a, k, l}
	m.faces[ed.F1] = [3]int{k, b, l}
	if err := m.rebuild(); err != nil {
		panic(err)
	}
	return true
}

// SplitEdge inserts the edge midpoint as a new vertex, splitting each
// incident triangle in two. Returns the new vertex index.
func (g *Geometry) SplitEdge(e int) int {
	m := g.Mesh
	ed := m.Edge(e)
	mid := r3.Scale(0.5, r3.Add(g.Positions[ed.V0], g.Positions[ed.V1]))
	nv := m.nVertices
	m.nVertices++
	g.Positions = append(g.Positions, mid)

	a, b := directedIn(m.faces[ed.F0], ed.V0, ed.V1)
	m.faces[ed.F0] = [3]int{a, nv, ed.O0}
	m.faces = append(m.faces, [3]int{nv, b, ed.O0})
	if ed.F1 >= 0 {
		m.faces[ed.F1] = [3]int{b, nv, ed.O1}
		m.faces = append(m.faces, [3]int{nv, a, ed.O1})
	}
	if err := m.rebuild(); err != nil {
		panic(err)
	}
	return nv
}

// CollapseEdge merges V1 into V0 at the edge midpoint, removing the edge and
// its incident faces. The last vertex index is renamed into the freed slot.
// Caller-owned per-vertex fields are never touched here, so after a
// successful collapse the pre-call V0/V1 indices are still valid: fold
// fields[V1] into fields[V0], then copy fields[last] into fields[removed]
// (when they differ) and truncate by one. Returns ok=false when the collapse
// would break manifoldness (link condition) or touch the boundary.
func (g *Geometry) CollapseEdge(e int) (kept, removed, last int, ok bool) {
	m := g.Mesh
	ed := m.Edge(e)
	if ed.F1 < 0 || m.IsBoundaryVertex(ed.V0) || m.IsBoundaryVertex(ed.V1) {
		return 0, 0, 0, false
	}

	// link condition: the only common neighbors of the endpoints must be the
	// two opposite vertices
	common := 0
	for _, n := range m.Neighbors(ed.V0) {
		if n == ed.V1 {
			continue
		}
		if m.EdgeBetween(n, ed.V1) != -1 {
			if n != ed.O0 && n != ed.O1 {
				return 0, 0, 0, false
			}
			common++
		}
	}
	if common != 2 {
		return 0, 0, 0, false
	}

	kept, removed = ed.V0, ed.V1
	last = m.nVertices - 1
	g.Positions[kept] = r3.Scale(0.5, r3.Add(g.Positions[kept], g.Positions[removed]))

	faces := m.faces[:0]
	for fi, f := range m.faces {
		if fi == ed.F0 || fi == ed.F1 {
			continue
		}
		for c := 0; c < 3; c++ {
			if f[c] == removed {
				f[c] = kept
			}
		}
		faces = append(faces, f)
	}
	m.faces = faces

	if removed != last {
		for i, f := range m.faces {
			for c := 0; c < 3; c++ {
				if f[c] == last {
					m.faces[i][c] = removed
				}
			}
		}
		g.Positions[removed] = g.Positions[last]
		if kept == last {
			kept = removed
		}
	}
	g.Positions = g.Positions[:last]
	m.nVertices--

	if err := m.rebuild(); err != nil {
		panic(err)
	}
	return kept, removed, last, true
}
