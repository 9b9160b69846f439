// Package trajectory persists simulation runs: one directory per run holding
// metadata.json, an energy.csv time series, and numbered PLY frames carrying
// positions, protein density, and velocities. A saved frame is enough to
// continue a run.
package trajectory

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/membrane/internal/membrane"
	"github.com/san-kum/membrane/internal/mesh"
	"github.com/san-kum/membrane/internal/meshio"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Integrator string    `json:"integrator"`
	Seed       uint64    `json:"seed"`
	NVertices  int       `json:"n_vertices"`
	NFaces     int       `json:"n_faces"`
	Frames     int       `json:"frames"`
	Status     string    `json:"status"` // running, finished, failed
	Reason     string    `json:"reason"`
	FinalTime  float64   `json:"final_time"`
	Iterations int       `json:"iterations"`
}

var energyHeader = []string{
	"time", "iteration",
	"kinetic", "potential", "total",
	"bending", "deviatoric", "surface", "pressure",
	"adsorption", "aggregation", "entropy", "dirichlet",
	"self_avoidance", "interior_penalty", "external_work",
	"mech_error", "chem_error", "area", "volume",
}

// Run is an open run being written. It is not safe for concurrent use.
type Run struct {
	store  *Store
	meta   RunMetadata
	dir    string
	energy *csv.Writer
	closer *os.File
}

// Begin creates the run directory and the energy series.
func (s *Store) Begin(name, integrator string, seed uint64, sys *membrane.System) (*Run, error) {
	runID := fmt.Sprintf("%s_%d", name, time.Now().Unix())
	dir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	r := &Run{
		store: s,
		dir:   dir,
		meta: RunMetadata{
			ID:         runID,
			Timestamp:  time.Now(),
			Integrator: integrator,
			Seed:       seed,
			NVertices:  sys.Geo.Mesh.NVertices(),
			NFaces:     sys.Geo.Mesh.NFaces(),
			Status:     "running",
		},
	}

	f, err := os.Create(filepath.Join(dir, "energy.csv"))
	if err != nil {
		return nil, err
	}
	r.closer = f
	r.energy = csv.NewWriter(f)
	if err := r.energy.Write(energyHeader); err != nil {
		return nil, err
	}
	return r, r.writeMetadata()
}

func (r *Run) writeMetadata() error {
	f, err := os.Create(filepath.Join(r.dir, "metadata.json"))
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(r.meta)
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.meta.ID }

// SaveFrame writes one PLY snapshot and one energy row.
func (r *Run) SaveFrame(sys *membrane.System, iteration int) error {
	nv := sys.Geo.Mesh.NVertices()
	vx := make([]float64, nv)
	vy := make([]float64, nv)
	vz := make([]float64, nv)
	for i, v := range sys.Velocities {
		vx[i], vy[i], vz[i] = v.X, v.Y, v.Z
	}
	scalars := map[string][]float64{
		"phi": sys.ProteinDensity,
		"vx":  vx, "vy": vy, "vz": vz,
	}
	path := filepath.Join(r.dir, fmt.Sprintf("frame_%05d.ply", r.meta.Frames))
	if err := meshio.WriteFile(path, sys.Geo, scalars); err != nil {
		return err
	}

	e := sys.Energy
	row := make([]string, 0, len(energyHeader))
	for _, v := range []float64{
		sys.Time, float64(iteration),
		e.Kinetic, e.Potential, e.Total,
		e.Bending, e.Deviatoric, e.Surface, e.Pressure,
		e.Adsorption, e.Aggregation, e.Entropy, e.Dirichlet,
		e.SelfAvoidance, e.InteriorPenalty, e.ExternalWork,
		sys.MechanicalErrorNorm(), sys.ChemicalErrorNorm(),
		sys.Geo.SurfaceArea, sys.Geo.Volume,
	} {
		row = append(row, strconv.FormatFloat(v, 'g', 10, 64))
	}
	if err := r.energy.Write(row); err != nil {
		return err
	}
	r.energy.Flush()

	r.meta.Frames++
	r.meta.NVertices = nv
	r.meta.NFaces = sys.Geo.Mesh.NFaces()
	return r.writeMetadata()
}

// Finish records the terminal state and closes the run.
func (r *Run) Finish(success bool, reason string, iterations int, finalTime float64) error {
	if success {
		r.meta.Status = "finished"
	} else {
		r.meta.Status = "failed"
	}
	r.meta.Reason = reason
	r.meta.Iterations = iterations
	r.meta.FinalTime = finalTime
	r.energy.Flush()
	if err := r.closer.Close(); err != nil {
		return err
	}
	return r.writeMetadata()
}

// List returns the metadata of every run under the store, newest last.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

// Load returns one run's metadata.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadFrame reads frame index of a run; index -1 means the last frame.
// Returns the geometry and the stored per-vertex fields.
func (s *Store) LoadFrame(runID string, index int) (*mesh.Geometry, map[string][]float64, error) {
	if index < 0 {
		meta, err := s.Load(runID)
		if err != nil {
			return nil, nil, err
		}
		if meta.Frames == 0 {
			return nil, nil, fmt.Errorf("trajectory: run %s has no frames", runID)
		}
		index = meta.Frames - 1
	}
	path := filepath.Join(s.baseDir, runID, fmt.Sprintf("frame_%05d.ply", index))
	return meshio.ReadFile(path)
}

// LoadEnergy reads the energy series of a run as column name to values.
func (s *Store) LoadEnergy(runID string) (map[string][]float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "energy.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return map[string][]float64{}, nil
	}
	header := records[0]
	out := make(map[string][]float64, len(header))
	for _, name := range header {
		out[name] = make([]float64, 0, len(records)-1)
	}
	for _, rec := range records[1:] {
		for i, cell := range rec {
			if i >= len(header) {
				break
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				continue
			}
			out[header[i]] = append(out[header[i]], v)
		}
	}
	return out, nil
}
