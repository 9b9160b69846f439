package meshio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/membrane/internal/mesh"
)

func TestRoundTrip(t *testing.T) {
	g := mesh.Icosphere(1, 1.5)
	nv := g.Mesh.NVertices()
	phi := make([]float64, nv)
	for i := range phi {
		phi[i] = float64(i) / float64(nv)
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, g, map[string][]float64{"phi": phi}))

	got, scalars, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, nv, got.Mesh.NVertices())
	assert.Equal(t, g.Mesh.NFaces(), got.Mesh.NFaces())
	for v := 0; v < nv; v++ {
		assert.Equal(t, g.Positions[v], got.Positions[v], "vertex %d", v)
	}
	require.Contains(t, scalars, "phi")
	assert.Equal(t, phi, scalars["phi"])
	assert.InDelta(t, g.SurfaceArea, got.SurfaceArea, 1e-12)
}

func TestFieldLengthMismatch(t *testing.T) {
	g := mesh.Icosphere(0, 1)
	var buf bytes.Buffer
	err := Write(&buf, g, map[string][]float64{"phi": {1, 2, 3}})
	require.Error(t, err)
}

func TestScalarOrderIsSorted(t *testing.T) {
	g := mesh.Icosphere(0, 1)
	nv := g.Mesh.NVertices()
	zeros := make([]float64, nv)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, g, map[string][]float64{
		"vz": zeros, "phi": zeros, "vx": zeros,
	}))
	header := buf.String()[:strings.Index(buf.String(), "end_header")]
	assert.Less(t, strings.Index(header, "property double phi"), strings.Index(header, "property double vx"))
	assert.Less(t, strings.Index(header, "property double vx"), strings.Index(header, "property double vz"))
}

func TestReadRejectsGarbage(t *testing.T) {
	_, _, err := Read(strings.NewReader("obj nonsense\n"))
	require.Error(t, err)

	_, _, err = Read(strings.NewReader("ply\nformat binary_little_endian 1.0\nend_header\n"))
	require.Error(t, err)
}
