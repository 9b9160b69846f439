package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/membrane/internal/config"
	"github.com/san-kum/membrane/internal/integrate"
	"github.com/san-kum/membrane/internal/membrane"
	"github.com/san-kum/membrane/internal/trajectory"
	"github.com/san-kum/membrane/internal/viz"
)

var (
	dataDir      string
	configFile   string
	preset       string
	live         bool
	seed         uint64
	continueFrom string
	column       string
	plotWidth    int
	plotHeight   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "membrane",
		Short: "lipid membrane mechanics on triangulated surfaces",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".membrane", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation",
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "preset name")
	runCmd.Flags().BoolVar(&live, "live", false, "live terminal monitor")
	runCmd.Flags().Uint64Var(&seed, "seed", 0, "override noise seed")
	runCmd.Flags().StringVar(&continueFrom, "continue", "", "continue from the last frame of a stored run")

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets, or write one to a yaml file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}
	presetsCmd.Flags().StringVar(&configFile, "out", "", "write the preset config to this path")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "summarize one run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot <run-id>",
		Short: "plot an energy column of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "total", "energy.csv column")
	plotCmd.Flags().IntVar(&plotWidth, "width", 72, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")

	rootCmd.AddCommand(runCmd, presetsCmd, listCmd, showCmd, plotCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	switch {
	case configFile != "" && preset != "":
		return nil, fmt.Errorf("--config and --preset are mutually exclusive")
	case configFile != "":
		return config.Load(configFile)
	case preset != "":
		cfg := config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q (try: membrane presets)", preset)
		}
		return cfg, nil
	default:
		return config.DefaultConfig(), nil
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if seed != 0 {
		cfg.Seed = seed
	}

	store := trajectory.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}

	var sys *membrane.System
	if continueFrom != "" {
		sys, err = continueSystem(store, cfg)
	} else {
		sys, err = cfg.BuildSystem()
	}
	if err != nil {
		return err
	}
	for _, w := range sys.Warnings() {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	run, err := store.Begin(cfg.Name, cfg.Integrator, cfg.Seed, sys)
	if err != nil {
		return err
	}

	var updates chan tea.Msg
	if live {
		updates = make(chan tea.Msg, 64)
	}
	save := func(s *membrane.System, iteration int) error {
		if updates != nil {
			updates <- viz.Progress{
				Time:      s.Time,
				Iteration: iteration,
				Total:     s.Energy.Total,
				Potential: s.Energy.Potential,
				Kinetic:   s.Energy.Kinetic,
				MechError: s.MechanicalErrorNorm(),
				ChemError: s.ChemicalErrorNorm(),
				Area:      s.Geo.SurfaceArea,
				Volume:    s.Geo.Volume,
				NVertices: s.Geo.Mesh.NVertices(),
			}
		}
		return run.SaveFrame(s, iteration)
	}

	opts := cfg.Run.IntegratorOptions()
	execute := func() integrate.Result {
		switch cfg.Integrator {
		case "euler":
			return integrate.NewEuler(sys, opts, save).Run()
		case "verlet":
			return integrate.NewVelocityVerlet(sys, opts, save).Run()
		case "cg":
			cg := integrate.NewConjugateGradient(sys, opts, save)
			cg.RestartPeriod = cfg.Run.RestartPeriod
			cg.ConstraintTolerance = cfg.Run.ConstraintTolerance
			cg.AugmentedLagrangian = cfg.Run.AugmentedLagrangian
			return cg.Run()
		default:
			return integrate.Result{Reason: "unknown integrator", Err: fmt.Errorf("unknown integrator %q", cfg.Integrator)}
		}
	}

	var result integrate.Result
	if live {
		done := make(chan struct{})
		go func() {
			result = execute()
			updates <- viz.Done{Success: result.Success, Reason: result.Reason}
			close(updates)
			close(done)
		}()
		if _, err := tea.NewProgram(viz.NewLive(cfg.Name, updates)).Run(); err != nil {
			return err
		}
		<-done
	} else {
		result = execute()
	}

	if err := run.Finish(result.Success, result.Reason, result.Iterations, result.FinalTime); err != nil {
		return err
	}
	if result.Err != nil {
		return fmt.Errorf("run %s: %s: %w", run.ID(), result.Reason, result.Err)
	}

	meta, err := store.Load(run.ID())
	if err != nil {
		return err
	}
	fmt.Println(viz.Summary(meta))
	if !result.Success {
		os.Exit(1)
	}
	return nil
}

// continueSystem rebuilds a system from the last stored frame of an earlier
// run, keeping the physical configuration of cfg but taking mesh, protein
// density, velocities, and simulated time from the trajectory.
func continueSystem(store *trajectory.Store, cfg *config.Config) (*membrane.System, error) {
	meta, err := store.Load(continueFrom)
	if err != nil {
		return nil, err
	}
	g, fields, err := store.LoadFrame(continueFrom, -1)
	if err != nil {
		return nil, err
	}

	sys, err := membrane.NewSystem(g, cfg.Parameters, cfg.Options, cfg.Seed)
	if err != nil {
		return nil, err
	}
	if phi, ok := fields["phi"]; ok {
		copy(sys.ProteinDensity, phi)
	}
	vx, vy, vz := fields["vx"], fields["vy"], fields["vz"]
	if vx != nil && vy != nil && vz != nil {
		for i := range sys.Velocities {
			sys.Velocities[i] = r3.Vec{X: vx[i], Y: vy[i], Z: vz[i]}
		}
	}
	sys.Time = meta.FinalTime
	sys.UpdateConfigurations()
	return sys, nil
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		names := config.ListPresets()
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}
	cfg := config.GetPreset(args[0])
	if cfg == nil {
		return fmt.Errorf("unknown preset %q", args[0])
	}
	if configFile == "" {
		configFile = args[0] + ".yaml"
	}
	if err := config.Save(configFile, cfg); err != nil {
		return err
	}
	fmt.Println("wrote", configFile)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := trajectory.New(dataDir)
	runs, err := store.List()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tINTEGRATOR\tSTATUS\tFRAMES\tTIME\tREASON")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.3f\t%s\n",
			r.ID, r.Integrator, r.Status, r.Frames, r.FinalTime, r.Reason)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	store := trajectory.New(dataDir)
	meta, err := store.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Println(viz.Summary(meta))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	store := trajectory.New(dataDir)
	series, err := store.LoadEnergy(args[0])
	if err != nil {
		return err
	}
	plot, err := viz.EnergyPlot(series, column, plotWidth, plotHeight)
	if err != nil {
		return err
	}
	fmt.Println(plot)
	return nil
}
