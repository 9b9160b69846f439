package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Icosphere builds a subdivided icosahedron projected onto a sphere of the
// given radius, centered at the origin. Subdivision n has 10*4^n+2 vertices.
func Icosphere(subdivisions int, radius float64) *Geometry {
	phi := (1 + math.Sqrt(5)) / 2
	verts := []r3.Vec{
		{X: -1, Y: phi}, {X: 1, Y: phi}, {X: -1, Y: -phi}, {X: 1, Y: -phi},
		{Y: -1, Z: phi}, {Y: 1, Z: phi}, {Y: -1, Z: -phi}, {Y: 1, Z: -phi},
		{X: phi, Z: -1}, {X: phi, Z: 1}, {X: -phi, Z: -1}, {X: -phi, Z: 1},
	}
	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	for s := 0; s < subdivisions; s++ {
		midpoints := make(map[[2]int]int)
		mid := func(a, b int) int {
			key := edgeKey(a, b)
			if v, ok := midpoints[key]; ok {
				return v
			}
			verts = append(verts, r3.Scale(0.5, r3.Add(verts[a], verts[b])))
			midpoints[key] = len(verts) - 1
			return len(verts) - 1
		}
		next := make([][3]int, 0, 4*len(faces))
		for _, f := range faces {
			a, b, c := mid(f[0], f[1]), mid(f[1], f[2]), mid(f[2], f[0])
			next = append(next,
				[3]int{f[0], a, c}, [3]int{f[1], b, a},
				[3]int{f[2], c, b}, [3]int{a, b, c})
		}
		faces = next
	}

	for i, v := range verts {
		verts[i] = r3.Scale(radius/r3.Norm(v), v)
	}

	m, err := New(len(verts), faces)
	if err != nil {
		panic(err) // generated connectivity is always manifold
	}
	return NewGeometry(m, verts)
}

// HexagonPatch builds a flat open patch: a hexagonal fan of equilateral
// triangles with the given number of rings around a center vertex, edge
// length h, lying in the z=0 plane.
func HexagonPatch(rings int, h float64) *Geometry {
	var verts []r3.Vec
	index := make(map[[2]int]int)
	at := func(q, r int) int {
		key := [2]int{q, r}
		if v, ok := index[key]; ok {
			return v
		}
		x := h * (float64(q) + float64(r)/2)
		y := h * math.Sqrt(3) / 2 * float64(r)
		verts = append(verts, r3.Vec{X: x, Y: y})
		index[key] = len(verts) - 1
		return len(verts) - 1
	}

	inHex := func(q, r int) bool {
		return abs(q) <= rings && abs(r) <= rings && abs(q+r) <= rings
	}
	var faces [][3]int
	for q := -rings; q <= rings; q++ {
		for r := -rings; r <= rings; r++ {
			if inHex(q, r) && inHex(q+1, r) && inHex(q, r+1) {
				faces = append(faces, [3]int{at(q, r), at(q+1, r), at(q, r+1)})
			}
			if inHex(q+1, r) && inHex(q+1, r+1) && inHex(q, r+1) {
				faces = append(faces, [3]int{at(q+1, r), at(q+1, r+1), at(q, r+1)})
			}
		}
	}

	m, err := New(len(verts), faces)
	if err != nil {
		panic(err)
	}
	return NewGeometry(m, verts)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
