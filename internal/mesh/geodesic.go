package mesh

import (
	"container/heap"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Geodesic distances are computed with Dijkstra over the edge graph. The heat
// method would be smoother on coarse meshes but needs a sparse factorization;
// graph distances are within a few percent on the near-uniform meshes the
// remesher maintains, which is enough for masks and protein patterning.

type distItem struct {
	v    int
	dist float64
}

type distQueue []distItem

func (q distQueue) Len() int            { return len(q) }
func (q distQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q distQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *distQueue) Push(x interface{}) { *q = append(*q, x.(distItem)) }
func (q *distQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// GeodesicDistance fills out with the distance from src to every vertex.
func (g *Geometry) GeodesicDistance(src int, out []float64) {
	for i := range out {
		out[i] = math.Inf(1)
	}
	out[src] = 0
	q := &distQueue{{v: src, dist: 0}}
	for q.Len() > 0 {
		item := heap.Pop(q).(distItem)
		if item.dist > out[item.v] {
			continue
		}
		for _, ei := range g.Mesh.VertexEdges(item.v) {
			e := g.Mesh.Edge(ei)
			other := e.V0
			if other == item.v {
				other = e.V1
			}
			d := item.dist + g.EdgeLengths[ei]
			if d < out[other] {
				out[other] = d
				heap.Push(q, distItem{v: other, dist: d})
			}
		}
	}
}

// NearestVertex returns the vertex closest to p in Euclidean distance.
func (g *Geometry) NearestVertex(p r3.Vec) int {
	best, bestD := 0, math.Inf(1)
	for v, pos := range g.Positions {
		if d := r3.Norm(r3.Sub(pos, p)); d < bestD {
			best, bestD = v, d
		}
	}
	return best
}
