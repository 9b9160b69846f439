package mesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestIcosphereCounts(t *testing.T) {
	for n := 0; n <= 3; n++ {
		g := Icosphere(n, 1)
		wantV := 10*pow4(n) + 2
		assert.Equal(t, wantV, g.Mesh.NVertices(), "subdivision %d", n)
		assert.Equal(t, 20*pow4(n), g.Mesh.NFaces())
		// Euler characteristic of the sphere
		assert.Equal(t, 2, g.Mesh.NVertices()-g.Mesh.NEdges()+g.Mesh.NFaces())
		assert.False(t, g.Mesh.HasBoundary())
	}
}

func pow4(n int) int {
	out := 1
	for i := 0; i < n; i++ {
		out *= 4
	}
	return out
}

func TestIcosphereGeometry(t *testing.T) {
	const r = 2.0
	g := Icosphere(3, r)

	assert.InEpsilon(t, 4*math.Pi*r*r, g.SurfaceArea, 0.02)
	assert.InEpsilon(t, 4.0/3*math.Pi*r*r*r, g.Volume, 0.03)

	// pointwise mean curvature of a sphere is 1/r, outward normals positive
	for v := 0; v < g.Mesh.NVertices(); v++ {
		assert.InEpsilon(t, 1/r, g.MeanCurvatures[v], 0.05, "vertex %d", v)
	}

	// Gauss-Bonnet: integrated Gaussian curvature of a closed genus-0
	// surface is exactly 4 pi
	total := 0.0
	for v := 0; v < g.Mesh.NVertices(); v++ {
		total += g.GaussCurvatures[v] * g.VertexDualAreas[v]
	}
	assert.InDelta(t, 4*math.Pi, total, 1e-9)

	// dual areas partition the surface
	sum := 0.0
	for _, a := range g.VertexDualAreas {
		sum += a
	}
	assert.InDelta(t, g.SurfaceArea, sum, 1e-9)
}

func TestDualAreasOnEquilateralFaces(t *testing.T) {
	// every icosahedron face is equilateral, so the circumcentric share of
	// each corner is exactly a third of the face area and all twelve dual
	// areas coincide
	g := Icosphere(0, 1)
	for v := 0; v < g.Mesh.NVertices(); v++ {
		assert.InDelta(t, g.SurfaceArea/12, g.VertexDualAreas[v], 1e-12, "vertex %d", v)
	}
}

func TestDualAreasObtuseSplit(t *testing.T) {
	// a single flat triangle, obtuse at vertex 2: the obtuse corner takes
	// half the face area and the sharp corners a quarter each
	m, err := New(3, [][3]int{{0, 1, 2}})
	require.NoError(t, err)
	g := NewGeometry(m, []r3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0.5, Y: 0.1, Z: 0},
	})

	area := g.FaceAreas[0]
	assert.InDelta(t, area/4, g.VertexDualAreas[0], 1e-12)
	assert.InDelta(t, area/4, g.VertexDualAreas[1], 1e-12)
	assert.InDelta(t, area/2, g.VertexDualAreas[2], 1e-12)
}

func TestLaplacianProperties(t *testing.T) {
	g := Icosphere(2, 1)
	nv := g.Mesh.NVertices()

	constant := make([]float64, nv)
	for i := range constant {
		constant[i] = 3.7
	}
	out := make([]float64, nv)
	g.LaplacianApply(constant, out)
	for i, v := range out {
		assert.InDelta(t, 0, v, 1e-12, "vertex %d", i)
	}
	assert.InDelta(t, 0, g.DirichletEnergy(constant), 1e-12)

	// PSD: Dirichlet energy of any field is non-negative
	f := make([]float64, nv)
	for i := range f {
		f[i] = g.Positions[i].X * g.Positions[i].Y
	}
	assert.GreaterOrEqual(t, g.DirichletEnergy(f), 0.0)
}

func TestAreaGradientMatchesLaplacian(t *testing.T) {
	g := Icosphere(1, 1)
	nv := g.Mesh.NVertices()

	lx := make([]r3.Vec, nv)
	g.LaplacianApplyVec(g.Positions, lx)

	accum := make([]r3.Vec, nv)
	for fi, f := range g.Mesh.Faces() {
		grad := g.AreaGradient(fi)
		for c := 0; c < 3; c++ {
			accum[f[c]] = r3.Add(accum[f[c]], grad[c])
		}
	}
	for v := 0; v < nv; v++ {
		assert.InDelta(t, lx[v].X, accum[v].X, 1e-9)
		assert.InDelta(t, lx[v].Y, accum[v].Y, 1e-9)
		assert.InDelta(t, lx[v].Z, accum[v].Z, 1e-9)
	}
}

func TestVolumeGradientOnSphere(t *testing.T) {
	g := Icosphere(2, 1)
	grad := make([]r3.Vec, g.Mesh.NVertices())
	g.VolumeGradient(grad)

	// V is homogeneous of degree 3 in positions: sum x.grad = 3V
	sum := 0.0
	for v, gr := range grad {
		sum += r3.Dot(g.Positions[v], gr)
	}
	assert.InDelta(t, 3*g.Volume, sum, 1e-9)
}

func TestHexagonPatchBoundary(t *testing.T) {
	g := HexagonPatch(3, 0.5)
	require.True(t, g.Mesh.HasBoundary())

	boundary := 0
	for v := 0; v < g.Mesh.NVertices(); v++ {
		if g.Mesh.IsBoundaryVertex(v) {
			boundary++
		}
	}
	// hexagon with n rings has 6n rim vertices
	assert.Equal(t, 18, boundary)
	// disk topology
	assert.Equal(t, 1, g.Mesh.NVertices()-g.Mesh.NEdges()+g.Mesh.NFaces())
	// flat patch has zero dihedral angles everywhere
	for ei := range g.Mesh.Edges() {
		assert.InDelta(t, 0, g.DihedralAngles[ei], 1e-12)
	}
}

func TestGeodesicDistance(t *testing.T) {
	g := Icosphere(2, 1)
	src := 0
	dist := make([]float64, g.Mesh.NVertices())
	g.GeodesicDistance(src, dist)

	assert.Equal(t, 0.0, dist[src])
	for v := 1; v < g.Mesh.NVertices(); v++ {
		require.False(t, math.IsInf(dist[v], 1), "vertex %d unreachable", v)
		// graph distance is bounded below by chord length
		chord := r3.Norm(r3.Sub(g.Positions[v], g.Positions[src]))
		assert.GreaterOrEqual(t, dist[v]+1e-12, chord)
	}
}

func TestRing(t *testing.T) {
	g := Icosphere(1, 1)
	ring1 := g.Mesh.Ring(0, 1)
	assert.Equal(t, len(g.Mesh.Neighbors(0))+1, len(ring1))
	assert.True(t, ring1[0])

	ring0 := g.Mesh.Ring(0, 0)
	assert.Len(t, ring0, 1)
}

func TestNonManifoldRejected(t *testing.T) {
	// three faces sharing one edge
	faces := [][3]int{{0, 1, 2}, {0, 1, 3}, {0, 1, 4}}
	_, err := New(5, faces)
	require.Error(t, err)
}

func TestRefreshVersion(t *testing.T) {
	g := Icosphere(0, 1)
	v0 := g.Version()
	g.Refresh()
	assert.Equal(t, v0+1, g.Version())
}
