package membrane

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/membrane/internal/remesh"
)

// Mesh mutation. Topology operations invalidate every per-vertex field and
// every geometric cache, so MutateMesh reconciles the fields it owns around
// each operation and finishes with a full globalUpdateAfterMutation. Forces
// must not be evaluated between a mutation and that update.

// MutateMesh applies up to n local topology operations chosen by the
// remesher, then runs the enabled post-processing passes (outlier smoothing,
// tangential vertex shift) and refreshes all derived state. The topology
// operations need IsEdgeMutation; the vertex shift runs whenever
// IsVertexShift is set, with or without edge mutation. Returns the number of
// topology operations applied. A call with n == 0, or with neither flag set,
// is a no-op.
func (s *System) MutateMesh(proc remesh.Processor, n int) int {
	if n == 0 || (!s.Opts.IsEdgeMutation && !s.Opts.IsVertexShift) {
		return 0
	}

	applied := 0
	if s.Opts.IsEdgeMutation {
		for applied < n {
			if !s.applyOneMutation(proc) {
				break
			}
			applied++
		}
	}

	if applied > 0 {
		s.globalUpdateAfterMutation()
		if proc.Smoothen {
			s.SmoothenMesh(proc.SmoothenStep, proc.SmoothenIters)
		}
	}
	if s.Opts.IsVertexShift {
		s.vertexShift()
		s.UpdateConfigurations()
	}
	return applied
}

// applyOneMutation scans the edge list for the first applicable operation and
// performs it, reconciling the per-vertex fields. The geometry is refreshed
// after every operation so the next predicate sees current quantities.
func (s *System) applyOneMutation(proc remesh.Processor) bool {
	g := s.Geo
	ne := g.Mesh.NEdges()

	for e := 0; e < ne; e++ {
		if proc.ShouldFlip(g, e) && g.FlipEdge(e) {
			g.Refresh()
			return true
		}
	}
	for e := 0; e < ne; e++ {
		if proc.ShouldSplit(g, e) {
			ed := g.Mesh.Edge(e)
			g.SplitEdge(e)
			s.growFields(ed.V0, ed.V1)
			g.Refresh()
			return true
		}
	}
	for e := 0; e < ne; e++ {
		if !proc.ShouldCollapse(g, e) {
			continue
		}
		ed := g.Mesh.Edge(e)
		_, removed, last, ok := g.CollapseEdge(e)
		if !ok {
			continue
		}
		// the collapse does not touch the field arrays, so the pre-call
		// indices are still valid for the merge
		s.mergeFields(ed.V0, ed.V1)
		s.shrinkFields(removed, last)
		g.Refresh()
		return true
	}
	return false
}

// growFields extends the per-vertex fields for a split vertex with the
// average of the parent endpoints. Slots not averaged here are rebuilt by
// globalUpdateAfterMutation.
func (s *System) growFields(v0, v1 int) {
	s.ProteinDensity = append(s.ProteinDensity, 0.5*(s.ProteinDensity[v0]+s.ProteinDensity[v1]))
	s.Velocities = append(s.Velocities, r3.Scale(0.5, r3.Add(s.Velocities[v0], s.Velocities[v1])))
}

// mergeFields folds the fields of the vertex about to be removed into the
// kept endpoint, matching the midpoint position merge.
func (s *System) mergeFields(kept, removed int) {
	s.ProteinDensity[kept] = 0.5 * (s.ProteinDensity[kept] + s.ProteinDensity[removed])
	s.Velocities[kept] = r3.Scale(0.5, r3.Add(s.Velocities[kept], s.Velocities[removed]))
}

// shrinkFields applies the swap-last index renaming after a collapse.
func (s *System) shrinkFields(removed, last int) {
	if removed != last {
		s.ProteinDensity[removed] = s.ProteinDensity[last]
		s.Velocities[removed] = s.Velocities[last]
	}
	s.ProteinDensity = s.ProteinDensity[:last]
	s.Velocities = s.Velocities[:last]
}

// vertexShift relaxes interior vertices toward the barycenter of their
// neighbors, tangentially so the shape itself is not smoothed away.
func (s *System) vertexShift() {
	g := s.Geo
	m := g.Mesh
	shifted := make([]r3.Vec, len(g.Positions))
	copy(shifted, g.Positions)
	for v := range g.Positions {
		if m.IsBoundaryVertex(v) || s.ForceMask[v] == (r3.Vec{}) {
			continue
		}
		neighbors := m.Neighbors(v)
		if len(neighbors) == 0 {
			continue
		}
		var bary r3.Vec
		for _, nb := range neighbors {
			bary = r3.Add(bary, g.Positions[nb])
		}
		bary = r3.Scale(1/float64(len(neighbors)), bary)
		d := r3.Sub(bary, g.Positions[v])
		n := g.VertexNormals[v]
		d = r3.Sub(d, r3.Scale(r3.Dot(d, n), n))
		shifted[v] = r3.Add(g.Positions[v], d)
	}
	copy(g.Positions, shifted)
	g.Refresh()
}

// SmoothenMesh damps the curvature spikes topology operations leave behind:
// vertices whose bending force magnitude is an outlier are pulled toward the
// barycenter of their neighbors, damped by step, until no outliers remain or
// maxIter passes have run. Reports whether the mesh came out clean. The
// outlier threshold needs both a spread and a multiple-of-mean margin so the
// regular valence pattern of a healthy mesh is never touched.
func (s *System) SmoothenMesh(step float64, maxIter int) bool {
	g := s.Geo
	m := g.Mesh
	norms := make([]float64, len(g.Positions))

	for it := 0; it < maxIter; it++ {
		s.computeBendingForce()
		for v, f := range s.Forces.Bending {
			norms[v] = r3.Norm(f)
		}
		mean, sd := stat.MeanStdDev(norms, nil)
		threshold := math.Max(mean+2*sd, 2*mean)

		moved := false
		for v := range g.Positions {
			if norms[v] <= threshold || m.IsBoundaryVertex(v) || s.ForceMask[v] == (r3.Vec{}) {
				continue
			}
			neighbors := m.Neighbors(v)
			if len(neighbors) == 0 {
				continue
			}
			var bary r3.Vec
			for _, nb := range neighbors {
				bary = r3.Add(bary, g.Positions[nb])
			}
			bary = r3.Scale(1/float64(len(neighbors)), bary)
			g.Positions[v] = r3.Add(g.Positions[v], r3.Scale(step, r3.Sub(bary, g.Positions[v])))
			moved = true
		}
		if !moved {
			return true
		}
		s.UpdateConfigurations()
	}
	return false
}

// globalUpdateAfterMutation resizes every slot the mutation may have
// invalidated, then rebuilds geodesics, masks, and derived fields.
func (s *System) globalUpdateAfterMutation() {
	s.alloc()
	s.RefreshGeodesics()
	s.UpdateConfigurations()
}
