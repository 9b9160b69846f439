// Package meshio reads and writes triangle meshes as ASCII PLY, with
// optional per-vertex scalar fields carried as extra vertex properties.
package meshio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/membrane/internal/mesh"
)

// Write emits g as ASCII PLY. Extra per-vertex scalar fields are written as
// additional double properties in sorted name order; each must have vertex
// length.
func Write(w io.Writer, g *mesh.Geometry, scalars map[string][]float64) error {
	nv := g.Mesh.NVertices()
	names := make([]string, 0, len(scalars))
	for name, field := range scalars {
		if len(field) != nv {
			return fmt.Errorf("meshio: field %q has length %d, want %d", name, len(field), nv)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "ply")
	fmt.Fprintln(bw, "format ascii 1.0")
	fmt.Fprintf(bw, "element vertex %d\n", nv)
	fmt.Fprintln(bw, "property double x")
	fmt.Fprintln(bw, "property double y")
	fmt.Fprintln(bw, "property double z")
	for _, name := range names {
		fmt.Fprintf(bw, "property double %s\n", name)
	}
	fmt.Fprintf(bw, "element face %d\n", g.Mesh.NFaces())
	fmt.Fprintln(bw, "property list uchar int vertex_indices")
	fmt.Fprintln(bw, "end_header")

	for v := 0; v < nv; v++ {
		p := g.Positions[v]
		fmt.Fprintf(bw, "%.17g %.17g %.17g", p.X, p.Y, p.Z)
		for _, name := range names {
			fmt.Fprintf(bw, " %.17g", scalars[name][v])
		}
		fmt.Fprintln(bw)
	}
	for _, f := range g.Mesh.Faces() {
		fmt.Fprintf(bw, "3 %d %d %d\n", f[0], f[1], f[2])
	}
	return bw.Flush()
}

// Read parses an ASCII PLY written by Write (or any ASCII PLY whose vertex
// element starts with double x/y/z). Extra vertex properties come back as
// named scalar fields.
func Read(r io.Reader) (*mesh.Geometry, map[string][]float64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)

	var nv, nf int
	var props []string
	inVertex := false
	if !sc.Scan() || strings.TrimSpace(sc.Text()) != "ply" {
		return nil, nil, fmt.Errorf("meshio: not a PLY file")
	}
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			if len(fields) < 2 || fields[1] != "ascii" {
				return nil, nil, fmt.Errorf("meshio: only ascii PLY is supported")
			}
		case "element":
			if len(fields) < 3 {
				return nil, nil, fmt.Errorf("meshio: malformed element line")
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, nil, err
			}
			switch fields[1] {
			case "vertex":
				nv = n
				inVertex = true
			case "face":
				nf = n
				inVertex = false
			default:
				inVertex = false
			}
		case "property":
			if inVertex && len(fields) == 3 {
				props = append(props, fields[2])
			}
		case "end_header":
			goto body
		}
	}
	return nil, nil, fmt.Errorf("meshio: missing end_header")

body:
	if len(props) < 3 || props[0] != "x" || props[1] != "y" || props[2] != "z" {
		return nil, nil, fmt.Errorf("meshio: vertex element must start with x y z")
	}
	positions := make([]r3.Vec, nv)
	scalars := make(map[string][]float64, len(props)-3)
	for _, name := range props[3:] {
		scalars[name] = make([]float64, nv)
	}

	for v := 0; v < nv; v++ {
		if !sc.Scan() {
			return nil, nil, fmt.Errorf("meshio: truncated vertex list at %d", v)
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < len(props) {
			return nil, nil, fmt.Errorf("meshio: vertex %d has %d values, want %d", v, len(fields), len(props))
		}
		vals := make([]float64, len(props))
		for i := range props {
			f, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, nil, err
			}
			vals[i] = f
		}
		positions[v] = r3.Vec{X: vals[0], Y: vals[1], Z: vals[2]}
		for i, name := range props[3:] {
			scalars[name][v] = vals[3+i]
		}
	}

	faces := make([][3]int, nf)
	for f := 0; f < nf; f++ {
		if !sc.Scan() {
			return nil, nil, fmt.Errorf("meshio: truncated face list at %d", f)
		}
		fields := strings.Fields(sc.Text())
		if len(fields) != 4 || fields[0] != "3" {
			return nil, nil, fmt.Errorf("meshio: face %d is not a triangle", f)
		}
		for c := 0; c < 3; c++ {
			idx, err := strconv.Atoi(fields[1+c])
			if err != nil {
				return nil, nil, err
			}
			faces[f][c] = idx
		}
	}

	m, err := mesh.New(nv, faces)
	if err != nil {
		return nil, nil, err
	}
	return mesh.NewGeometry(m, positions), scalars, nil
}

// WriteFile writes g to path, creating or truncating it.
func WriteFile(path string, g *mesh.Geometry, scalars map[string][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Write(f, g, scalars)
}

// ReadFile reads a mesh from path.
func ReadFile(path string) (*mesh.Geometry, map[string][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return Read(f)
}
