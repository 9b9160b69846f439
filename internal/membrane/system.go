package membrane

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/membrane/internal/mesh"
)

// System is the force and energy engine. It owns the evolving state of one
// simulation run: vertex positions (through the geometry), protein density,
// velocities, the density-derived material fields, and the per-term force and
// potential slots the integrators consume.
//
// Call order matters: after any change to positions, protein density, or
// topology, UpdateConfigurations must run before any force or energy routine.
// Skipping it yields stale results, not an error.
type System struct {
	Geo    *mesh.Geometry
	Params Parameters
	Opts   Options

	Time float64

	ProteinDensity []float64
	Velocities     []r3.Vec

	// material fields derived from protein density
	SpontaneousCurvature []float64
	BendingRigidity      []float64
	DeviatoricRigidity   []float64

	Forces     Forces
	Potentials Potentials
	Energy     Energy

	// global scalars shared by all vertices
	SurfaceTension  float64
	OsmoticPressure float64

	// per-component force mask: 1 where the DOF is free, 0 where frozen
	ForceMask   []r3.Vec
	ProteinMask []float64

	GeodesicDistances []float64
	CenterVertex      int

	// reference quantities for the regularization springs
	TargetEdgeLength float64
	TargetFaceArea   float64
	TargetArea       float64
	TargetVolume     float64
	RefVolume        float64 // enclosed volume at construction

	noise distuv.Normal

	// version of Geo the cached fields were last derived from
	geoVersion uint64

	warnings []string
}

// Forces holds one per-vertex slot per force term. Every slot is overwritten
// on each evaluation; inactive terms are zeroed so a configuration change
// cannot leak a stale contribution.
type Forces struct {
	Bending       []r3.Vec
	Deviatoric    []r3.Vec
	Capillary     []r3.Vec
	Osmotic       []r3.Vec
	LineCapillary []r3.Vec
	Adsorption    []r3.Vec
	Aggregation   []r3.Vec
	Entropy       []r3.Vec
	SelfAvoidance []r3.Vec
	External      []r3.Vec

	EdgeSpring []r3.Vec
	FaceSpring []r3.Vec
	LcrSpring  []r3.Vec

	Damping    []r3.Vec
	Stochastic []r3.Vec

	// Mechanical is the masked sum of the conservative physical terms plus
	// the external force. Regularization is the masked sum of the spring
	// terms and never enters the physical energy balance.
	Mechanical     []r3.Vec
	Regularization []r3.Vec
}

// Potentials holds the per-vertex chemical potential slots, the functional
// derivatives of the density-coupled energy terms.
type Potentials struct {
	Bending         []float64
	Adsorption      []float64
	Aggregation     []float64
	Entropy         []float64
	Dirichlet       []float64
	InteriorPenalty []float64

	Total []float64 // masked sum
}

// NewSystem validates parameters, captures reference quantities from the
// initial geometry, initializes the protein field and masks, and performs the
// first UpdateConfigurations.
func NewSystem(geo *mesh.Geometry, params Parameters, opts Options, seed uint64) (*System, error) {
	warnings, err := params.CheckParameters(opts, geo.Mesh.HasBoundary(), geo.Mesh.NVertices())
	if err != nil {
		return nil, err
	}

	s := &System{
		Geo:      geo,
		Params:   params,
		Opts:     opts,
		warnings: warnings,
		noise: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.NewSource(seed),
		},
	}
	s.alloc()

	s.TargetEdgeLength = geo.MeanEdgeLength()
	s.TargetFaceArea = geo.SurfaceArea / float64(geo.Mesh.NFaces())
	s.TargetArea = params.Tension.At
	if s.TargetArea == -1 {
		s.TargetArea = geo.SurfaceArea + params.Tension.Ares
	}
	s.TargetVolume = params.Osmotic.Vt
	s.RefVolume = geo.Volume

	s.CenterVertex = geo.NearestVertex(r3.Vec{
		X: params.Point[0], Y: params.Point[1], Z: params.Point[2],
	})
	s.RefreshGeodesics()

	if err := s.initProteinDensity(); err != nil {
		return nil, err
	}
	s.refreshMasks()
	s.UpdateConfigurations()
	return s, nil
}

// Warnings reports the soft parameter diagnostics collected at construction.
func (s *System) Warnings() []string { return s.warnings }

func (s *System) alloc() {
	nv := s.Geo.Mesh.NVertices()
	vecSlots := []*[]r3.Vec{
		&s.Velocities,
		&s.Forces.Bending, &s.Forces.Deviatoric, &s.Forces.Capillary,
		&s.Forces.Osmotic, &s.Forces.LineCapillary, &s.Forces.Adsorption,
		&s.Forces.Aggregation, &s.Forces.Entropy, &s.Forces.SelfAvoidance,
		&s.Forces.External, &s.Forces.EdgeSpring, &s.Forces.FaceSpring,
		&s.Forces.LcrSpring, &s.Forces.Damping, &s.Forces.Stochastic,
		&s.Forces.Mechanical, &s.Forces.Regularization,
		&s.ForceMask,
	}
	for _, slot := range vecSlots {
		*slot = resizeVec(*slot, nv)
	}
	scalarSlots := []*[]float64{
		&s.ProteinDensity, &s.SpontaneousCurvature, &s.BendingRigidity,
		&s.DeviatoricRigidity, &s.Potentials.Bending, &s.Potentials.Adsorption,
		&s.Potentials.Aggregation, &s.Potentials.Entropy,
		&s.Potentials.Dirichlet, &s.Potentials.InteriorPenalty,
		&s.Potentials.Total, &s.ProteinMask, &s.GeodesicDistances,
	}
	for _, slot := range scalarSlots {
		*slot = resizeScalar(*slot, nv)
	}
}

func resizeVec(s []r3.Vec, n int) []r3.Vec {
	if cap(s) >= n {
		return s[:n]
	}
	out := make([]r3.Vec, n)
	copy(out, s)
	return out
}

func resizeScalar(s []float64, n int) []float64 {
	if cap(s) >= n {
		return s[:n]
	}
	out := make([]float64, n)
	copy(out, s)
	return out
}

func (s *System) initProteinDensity() error {
	switch len(s.Params.Protein0) {
	case 1:
		for i := range s.ProteinDensity {
			s.ProteinDensity[i] = s.Params.Protein0[0]
		}
	case 4:
		in, out := s.Params.Protein0[0], s.Params.Protein0[1]
		r, sharp := s.Params.Protein0[2], s.Params.Protein0[3]
		s.prescribeGeodesicDisk(in, out, r, sharp)
	case s.Geo.Mesh.NVertices():
		copy(s.ProteinDensity, s.Params.Protein0)
	default:
		return configErrorf("protein0 length %d does not match mesh with %d vertices",
			len(s.Params.Protein0), s.Geo.Mesh.NVertices())
	}
	return nil
}

// prescribeGeodesicDisk paints a smooth disk of density in, fading to out,
// with a tanh transition of the given sharpness at geodesic radius r from the
// center vertex.
func (s *System) prescribeGeodesicDisk(in, out, r, sharpness float64) {
	for i, d := range s.GeodesicDistances {
		t := 0.5 * (1 - math.Tanh(sharpness*(d-r)))
		s.ProteinDensity[i] = out + (in-out)*t
	}
}

// RefreshGeodesics recomputes the geodesic-distance field from the center
// vertex. The center tracks the vertex nearest the reference point, which may
// drift as the mesh deforms or mutates.
func (s *System) RefreshGeodesics() {
	p := r3.Vec{X: s.Params.Point[0], Y: s.Params.Point[1], Z: s.Params.Point[2]}
	s.CenterVertex = s.Geo.NearestVertex(p)
	s.GeodesicDistances = resizeScalar(s.GeodesicDistances, s.Geo.Mesh.NVertices())
	s.Geo.GeodesicDistance(s.CenterVertex, s.GeodesicDistances)
	s.refreshMasks()
}

// refreshMasks rebuilds the force and protein masks from boundary conditions
// and the geodesic integration radius.
func (s *System) refreshMasks() {
	m := s.Geo.Mesh
	for v := range s.ForceMask {
		s.ForceMask[v] = r3.Vec{X: 1, Y: 1, Z: 1}
		s.ProteinMask[v] = 1

		if s.Params.Radius > 0 && s.GeodesicDistances[v] > s.Params.Radius {
			s.ForceMask[v] = r3.Vec{}
			s.ProteinMask[v] = 0
			continue
		}

		onBoundary := m.IsBoundaryVertex(v)
		nextToBoundary := false
		if !onBoundary && s.Opts.ShapeBoundary == "fixed" {
			for _, n := range m.Neighbors(v) {
				if m.IsBoundaryVertex(n) {
					nextToBoundary = true
					break
				}
			}
		}
		switch {
		case onBoundary && s.Opts.ShapeBoundary == "roller":
			s.ForceMask[v] = r3.Vec{X: 1, Y: 1, Z: 0}
		case onBoundary && (s.Opts.ShapeBoundary == "pin" || s.Opts.ShapeBoundary == "fixed"):
			s.ForceMask[v] = r3.Vec{}
		case nextToBoundary:
			s.ForceMask[v] = r3.Vec{}
		}
		if onBoundary && s.Opts.ProteinBoundary == "pin" {
			s.ProteinMask[v] = 0
		}
	}
}

// UpdateConfigurations is the single place the density-derived material
// fields and the global tension/pressure scalars are refreshed. It must run
// after every position, density, or topology change and before any force or
// energy evaluation.
func (s *System) UpdateConfigurations() {
	s.Geo.Refresh()
	s.geoVersion = s.Geo.Version()

	for i, phi := range s.ProteinDensity {
		c := phi
		if s.Params.Bending.Relation == "hill" {
			c = phi * phi / (1 + phi*phi)
		}
		s.SpontaneousCurvature[i] = s.Params.Bending.H0c * c
		s.BendingRigidity[i] = s.Params.Bending.Kb + s.Params.Bending.Kbc*c
		s.DeviatoricRigidity[i] = s.Params.Bending.Kdc * c
	}

	s.SurfaceTension = s.computeSurfaceTension()
	s.OsmoticPressure = s.computeOsmoticPressure()
}

func (s *System) computeSurfaceTension() float64 {
	t := s.Params.Tension
	if t.Ksg == 0 {
		return 0
	}
	if t.IsConstant || s.Geo.Mesh.HasBoundary() {
		return t.Ksg
	}
	return t.Ksg*(s.Geo.SurfaceArea-s.TargetArea)/s.TargetArea + s.Params.LambdaSG
}

func (s *System) computeOsmoticPressure() float64 {
	o := s.Params.Osmotic
	if o.Kv == 0 {
		return 0
	}
	switch {
	case o.IsPreferredVolume:
		return -(o.Kv*(s.Geo.Volume-s.TargetVolume)/s.TargetVolume + s.Params.LambdaV)
	case o.IsConstantPressure:
		return o.Kv
	default:
		v := s.Geo.Volume + o.Vres
		return s.Params.Temp * (o.N/v - o.Cam)
	}
}

// checkStale panics when a force routine runs against a refreshed geometry
// without an intervening UpdateConfigurations. This is the one guarded edge
// of the stale-cache contract; position changes without a Refresh remain
// undetectable.
func (s *System) checkStale() {
	if s.geoVersion != s.Geo.Version() {
		panic("membrane: geometry changed since last UpdateConfigurations")
	}
}

// CheckFiniteness scans state and force slots and reports the first field
// holding a non-finite value. Integrators treat any error as fatal.
func (s *System) CheckFiniteness() error {
	if v, i := firstNonFiniteVec(s.Geo.Positions); v {
		return fmt.Errorf("non-finite position at vertex %d", i)
	}
	if v, i := firstNonFiniteVec(s.Velocities); v {
		return fmt.Errorf("non-finite velocity at vertex %d", i)
	}
	if v, i := firstNonFinite(s.ProteinDensity); v {
		return fmt.Errorf("non-finite protein density at vertex %d", i)
	}
	if v, i := firstNonFiniteVec(s.Forces.Mechanical); v {
		return fmt.Errorf("non-finite mechanical force at vertex %d: %s", i, s.forceBacktrace(i))
	}
	if v, i := firstNonFinite(s.Potentials.Total); v {
		return fmt.Errorf("non-finite chemical potential at vertex %d: %s", i, s.potentialBacktrace(i))
	}
	return nil
}

// forceBacktrace names the per-term slots that are non-finite at vertex i.
func (s *System) forceBacktrace(i int) string {
	bad := ""
	for _, t := range []struct {
		name string
		f    []r3.Vec
	}{
		{"bending", s.Forces.Bending},
		{"deviatoric", s.Forces.Deviatoric},
		{"capillary", s.Forces.Capillary},
		{"osmotic", s.Forces.Osmotic},
		{"lineCapillary", s.Forces.LineCapillary},
		{"adsorption", s.Forces.Adsorption},
		{"aggregation", s.Forces.Aggregation},
		{"entropy", s.Forces.Entropy},
		{"selfAvoidance", s.Forces.SelfAvoidance},
		{"external", s.Forces.External},
	} {
		if !finiteVec(t.f[i]) {
			if bad != "" {
				bad += ","
			}
			bad += t.name
		}
	}
	if bad == "" {
		return "all per-term slots finite"
	}
	return "non-finite terms: " + bad
}

func (s *System) potentialBacktrace(i int) string {
	bad := ""
	for _, t := range []struct {
		name string
		f    []float64
	}{
		{"bending", s.Potentials.Bending},
		{"adsorption", s.Potentials.Adsorption},
		{"aggregation", s.Potentials.Aggregation},
		{"entropy", s.Potentials.Entropy},
		{"dirichlet", s.Potentials.Dirichlet},
		{"interiorPenalty", s.Potentials.InteriorPenalty},
	} {
		if math.IsNaN(t.f[i]) || math.IsInf(t.f[i], 0) {
			if bad != "" {
				bad += ","
			}
			bad += t.name
		}
	}
	if bad == "" {
		return "all per-term slots finite"
	}
	return "non-finite terms: " + bad
}

func finiteVec(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

func firstNonFiniteVec(vs []r3.Vec) (bool, int) {
	for i, v := range vs {
		if !finiteVec(v) {
			return true, i
		}
	}
	return false, 0
}

func firstNonFinite(fs []float64) (bool, int) {
	for i, f := range fs {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return true, i
		}
	}
	return false, 0
}

func maskVec(mask, v r3.Vec) r3.Vec {
	return r3.Vec{X: mask.X * v.X, Y: mask.Y * v.Y, Z: mask.Z * v.Z}
}
