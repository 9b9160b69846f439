// Package remesh decides which local topology operations keep a deforming
// triangulation usable: flips toward the intrinsic Delaunay condition, splits
// of overstretched edges, collapses of shrunken ones, and the policy for
// smoothing afterwards. It only judges; applying the operations and
// reconciling per-vertex fields is the caller's business.
package remesh

import (
	"math"

	"github.com/san-kum/membrane/internal/mesh"
)

// Processor holds the edge-quality thresholds, all relative to a target edge
// length captured from the initial mesh.
type Processor struct {
	TargetEdgeLength float64

	// split when length > SplitRatio * target, collapse when below
	// CollapseRatio * target
	SplitRatio    float64
	CollapseRatio float64

	// flips are suppressed across sharp creases where the Delaunay
	// criterion stops being meaningful
	FlipDihedralLimit float64

	// post-mutation smoothing of curvature outliers
	Smoothen      bool
	SmoothenStep  float64
	SmoothenIters int
}

// New returns a Processor with the conventional thresholds for the given
// target edge length.
func New(targetEdgeLength float64) Processor {
	return Processor{
		TargetEdgeLength:  targetEdgeLength,
		SplitRatio:        1.5,
		CollapseRatio:     0.5,
		FlipDihedralLimit: math.Pi / 6,
		Smoothen:          true,
		SmoothenStep:      0.1,
		SmoothenIters:     10,
	}
}

// ShouldFlip reports whether interior edge e violates the intrinsic Delaunay
// condition (negative cotangent weight) on a locally flat patch.
func (p Processor) ShouldFlip(g *mesh.Geometry, e int) bool {
	if g.Mesh.IsBoundaryEdge(e) {
		return false
	}
	if math.Abs(g.DihedralAngles[e]) > p.FlipDihedralLimit {
		return false
	}
	return g.CotanWeights[e] < 0
}

// ShouldSplit reports whether edge e is long enough to split.
func (p Processor) ShouldSplit(g *mesh.Geometry, e int) bool {
	return g.EdgeLengths[e] > p.SplitRatio*p.TargetEdgeLength
}

// ShouldCollapse reports whether interior edge e is short enough to collapse.
// Boundary edges are never collapsed.
func (p Processor) ShouldCollapse(g *mesh.Geometry, e int) bool {
	if g.Mesh.IsBoundaryEdge(e) {
		return false
	}
	return g.EdgeLengths[e] < p.CollapseRatio*p.TargetEdgeLength
}
