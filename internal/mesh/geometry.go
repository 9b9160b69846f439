package mesh

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Geometry couples a Mesh with vertex positions and caches the discrete
// differential quantities every force computation reads. Positions are the
// single source of truth: after any change to them or to the topology the
// caches are stale until Refresh is called.
type Geometry struct {
	Mesh      *Mesh
	Positions []r3.Vec

	EdgeLengths    []float64
	CotanWeights   []float64 // per edge, (cot a + cot b)/2
	DihedralAngles []float64 // per edge, signed
	FaceAreas      []float64
	FaceNormals    []r3.Vec
	VertexNormals  []r3.Vec  // angle-weighted
	VertexDualAreas []float64 // mixed Voronoi lumped mass matrix diagonal
	MeanCurvatures  []float64 // pointwise signed H
	GaussCurvatures []float64 // pointwise K, angle defect over dual area

	SurfaceArea float64
	Volume      float64

	version uint64
}

// NewGeometry allocates caches and performs the initial Refresh.
func NewGeometry(m *Mesh, positions []r3.Vec) *Geometry {
	g := &Geometry{Mesh: m, Positions: positions}
	g.alloc()
	g.Refresh()
	return g
}

func (g *Geometry) alloc() {
	nv, ne, nf := g.Mesh.NVertices(), g.Mesh.NEdges(), g.Mesh.NFaces()
	g.EdgeLengths = make([]float64, ne)
	g.CotanWeights = make([]float64, ne)
	g.DihedralAngles = make([]float64, ne)
	g.FaceAreas = make([]float64, nf)
	g.FaceNormals = make([]r3.Vec, nf)
	g.VertexNormals = make([]r3.Vec, nv)
	g.VertexDualAreas = make([]float64, nv)
	g.MeanCurvatures = make([]float64, nv)
	g.GaussCurvatures = make([]float64, nv)
}

// Version increments on every Refresh; callers holding derived state compare
// versions to detect staleness.
func (g *Geometry) Version() uint64 { return g.version }

func cotan(a, b r3.Vec) float64 {
	cross := r3.Norm(r3.Cross(a, b))
	if cross < 1e-300 {
		return 0
	}
	return r3.Dot(a, b) / cross
}

// Refresh recomputes every cached quantity from current positions. It is the
// only place caches are written.
func (g *Geometry) Refresh() {
	m := g.Mesh
	if len(g.FaceAreas) != m.NFaces() || len(g.VertexNormals) != m.NVertices() || len(g.EdgeLengths) != m.NEdges() {
		g.alloc()
	}
	pos := g.Positions

	g.SurfaceArea = 0
	g.Volume = 0
	for i := range g.VertexNormals {
		g.VertexNormals[i] = r3.Vec{}
		g.VertexDualAreas[i] = 0
	}

	angleSums := make([]float64, m.NVertices())
	for fi, f := range m.Faces() {
		p0, p1, p2 := pos[f[0]], pos[f[1]], pos[f[2]]
		n := r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0))
		nn := r3.Norm(n)
		area := 0.5 * nn
		g.FaceAreas[fi] = area
		if nn > 0 {
			g.FaceNormals[fi] = r3.Scale(1/nn, n)
		} else {
			g.FaceNormals[fi] = r3.Vec{}
		}
		g.SurfaceArea += area
		g.Volume += r3.Dot(p0, r3.Cross(p1, p2)) / 6

		var angles, sq [3]float64
		obtuse := -1
		for c := 0; c < 3; c++ {
			v := f[c]
			a := r3.Sub(pos[f[(c+1)%3]], pos[v])
			b := r3.Sub(pos[f[(c+2)%3]], pos[v])
			na, nb := r3.Norm(a), r3.Norm(b)
			sq[c] = na * na
			if na == 0 || nb == 0 {
				continue
			}
			angle := math.Acos(clamp(r3.Dot(a, b)/(na*nb), -1, 1))
			angles[c] = angle
			if angle > math.Pi/2 {
				obtuse = c
			}
			angleSums[v] += angle
			g.VertexNormals[v] = r3.Add(g.VertexNormals[v], r3.Scale(angle, g.FaceNormals[fi]))
		}

		// mixed Voronoi dual areas: circumcentric shares on well-shaped
		// triangles, the area/2 : area/4 : area/4 split when a corner is
		// obtuse. Both cases partition the face area exactly.
		if area > 0 {
			if obtuse < 0 {
				for c := 0; c < 3; c++ {
					g.VertexDualAreas[f[c]] += (sq[c]/math.Tan(angles[(c+2)%3]) +
						sq[(c+2)%3]/math.Tan(angles[(c+1)%3])) / 8
				}
			} else {
				for c := 0; c < 3; c++ {
					share := area / 4
					if c == obtuse {
						share = area / 2
					}
					g.VertexDualAreas[f[c]] += share
				}
			}
		}
	}
	for i, n := range g.VertexNormals {
		if nn := r3.Norm(n); nn > 0 {
			g.VertexNormals[i] = r3.Scale(1/nn, n)
		}
	}

	for ei := range m.Edges() {
		e := m.Edge(ei)
		g.EdgeLengths[ei] = r3.Norm(r3.Sub(pos[e.V1], pos[e.V0]))

		w := 0.0
		if e.O0 >= 0 {
			w += cotan(r3.Sub(pos[e.V0], pos[e.O0]), r3.Sub(pos[e.V1], pos[e.O0]))
		}
		if e.O1 >= 0 {
			w += cotan(r3.Sub(pos[e.V0], pos[e.O1]), r3.Sub(pos[e.V1], pos[e.O1]))
		}
		g.CotanWeights[ei] = 0.5 * w

		if e.F1 >= 0 {
			n0, n1 := g.FaceNormals[e.F0], g.FaceNormals[e.F1]
			dir := r3.Sub(pos[e.V1], pos[e.V0])
			if l := r3.Norm(dir); l > 0 {
				dir = r3.Scale(1/l, dir)
			}
			g.DihedralAngles[ei] = math.Atan2(r3.Dot(r3.Cross(n0, n1), dir), r3.Dot(n0, n1))
		} else {
			g.DihedralAngles[ei] = 0
		}
	}

	// pointwise curvatures from the weak-form operators
	for v := 0; v < m.NVertices(); v++ {
		area := g.VertexDualAreas[v]
		if area <= 0 {
			g.MeanCurvatures[v] = 0
			g.GaussCurvatures[v] = 0
			continue
		}
		var lx r3.Vec
		for _, ei := range m.VertexEdges(v) {
			e := m.Edge(ei)
			other := e.V0
			if other == v {
				other = e.V1
			}
			lx = r3.Add(lx, r3.Scale(g.CotanWeights[ei], r3.Sub(pos[v], pos[other])))
		}
		// M^-1 L x = 2 H n for outward normals
		g.MeanCurvatures[v] = 0.5 * r3.Dot(lx, g.VertexNormals[v]) / area

		defect := 2 * math.Pi
		if m.IsBoundaryVertex(v) {
			defect = math.Pi
		}
		g.GaussCurvatures[v] = (defect - angleSums[v]) / area
	}

	g.version++
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// MinEdgeLength returns the shortest edge of the current mesh.
func (g *Geometry) MinEdgeLength() float64 {
	return floats.Min(g.EdgeLengths)
}

// MeanEdgeLength returns the average edge length.
func (g *Geometry) MeanEdgeLength() float64 {
	return floats.Sum(g.EdgeLengths) / float64(len(g.EdgeLengths))
}

// AreaGradient returns d(SurfaceArea)/d(position of each face corner) for
// face f; entries are ordered like the face's vertices.
func (g *Geometry) AreaGradient(f int) [3]r3.Vec {
	face := g.Mesh.Face(f)
	p0, p1, p2 := g.Positions[face[0]], g.Positions[face[1]], g.Positions[face[2]]
	n := g.FaceNormals[f]
	return [3]r3.Vec{
		r3.Scale(0.5, r3.Cross(n, r3.Sub(p2, p1))),
		r3.Scale(0.5, r3.Cross(n, r3.Sub(p0, p2))),
		r3.Scale(0.5, r3.Cross(n, r3.Sub(p1, p0))),
	}
}

// VolumeGradient accumulates d(Volume)/d(position) into out, which must have
// vertex length. The gradient is exact for the signed volume sum.
func (g *Geometry) VolumeGradient(out []r3.Vec) {
	for i := range out {
		out[i] = r3.Vec{}
	}
	for _, f := range g.Mesh.Faces() {
		p0, p1, p2 := g.Positions[f[0]], g.Positions[f[1]], g.Positions[f[2]]
		out[f[0]] = r3.Add(out[f[0]], r3.Scale(1.0/6, r3.Cross(p1, p2)))
		out[f[1]] = r3.Add(out[f[1]], r3.Scale(1.0/6, r3.Cross(p2, p0)))
		out[f[2]] = r3.Add(out[f[2]], r3.Scale(1.0/6, r3.Cross(p0, p1)))
	}
}

// LengthCrossRatio returns the conformal length cross-ratio of interior edge
// e: |il|·|jk| / (|ki|·|lj|) for edge (i,j) flanked by l (in F0) and k (in
// F1). Boundary edges return 1.
func (g *Geometry) LengthCrossRatio(e int) float64 {
	ed := g.Mesh.Edge(e)
	if ed.F1 < 0 {
		return 1
	}
	i, j, l, k := ed.V0, ed.V1, ed.O0, ed.O1
	pos := g.Positions
	il := r3.Norm(r3.Sub(pos[l], pos[i]))
	jk := r3.Norm(r3.Sub(pos[k], pos[j]))
	ki := r3.Norm(r3.Sub(pos[i], pos[k]))
	lj := r3.Norm(r3.Sub(pos[j], pos[l]))
	if ki == 0 || lj == 0 {
		return 1
	}
	return il * jk / (ki * lj)
}
