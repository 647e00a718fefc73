package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/awaistahir/pvsizer/internal/codetables"
	"github.com/awaistahir/pvsizer/internal/engine"
	"github.com/awaistahir/pvsizer/internal/equipment"
	"github.com/awaistahir/pvsizer/internal/scenario"
	"github.com/awaistahir/pvsizer/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// designFlags are the project parameters shared by design-style commands
type designFlags struct {
	panelID, inverterID string
	inputFile           string

	targetW, ratio float64
	tMin, ambient  float64
	splitRoof      bool

	safetyFactor float64
	ccc          int
	noDerate     bool

	dcLength, dcVD       float64
	trunkLength, trunkVD float64
	acLength, acVD       float64
	dcMaterial           string
	acMaterial           string
}

func (f *designFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.panelID, "panel", "p", "", "panel id (catalog or saved)")
	fl.StringVarP(&f.inverterID, "inverter", "i", "", "inverter id (catalog or saved)")
	fl.StringVarP(&f.inputFile, "input", "f", "", "JSON file with a full design input")
	fl.Float64Var(&f.targetW, "target-w", 0, "target DC power in W")
	fl.Float64Var(&f.ratio, "ratio", 0, "target DC/AC ratio (used when --target-w is 0)")
	fl.Float64Var(&f.tMin, "t-min", 0, "minimum site temperature °C (default from config)")
	fl.Float64Var(&f.ambient, "ambient", 0, "design ambient temperature °C (default from config)")
	fl.BoolVar(&f.splitRoof, "split-roof", false, "array split over two roof faces")
	fl.Float64Var(&f.safetyFactor, "sf", 0, "continuous-duty safety factor (default from config)")
	fl.IntVar(&f.ccc, "ccc", 0, "current-carrying conductors per raceway (default from config)")
	fl.BoolVar(&f.noDerate, "no-derate", false, "skip temperature and grouping derating")
	fl.Float64Var(&f.dcLength, "dc-length", 0, "DC string run length, one way, m")
	fl.Float64Var(&f.dcVD, "dc-vd", 0, "DC string voltage drop target %")
	fl.Float64Var(&f.trunkLength, "trunk-length", 0, "DC trunk run length, one way, m (0 = no trunk)")
	fl.Float64Var(&f.trunkVD, "trunk-vd", 0, "DC trunk voltage drop target %")
	fl.Float64Var(&f.acLength, "ac-length", 0, "AC output run length, one way, m")
	fl.Float64Var(&f.acVD, "ac-vd", 0, "AC voltage drop target %")
	fl.StringVar(&f.dcMaterial, "dc-material", "", "DC conductor material (cu or al)")
	fl.StringVar(&f.acMaterial, "ac-material", "", "AC conductor material (cu or al)")
}

// input builds a design input from the optional file, the resolved equipment and
// the flags the user set, then fills the remaining gaps from the config defaults.
func (f *designFlags) input(cmd *cobra.Command, eq equipment.Resolver) (engine.DesignInput, error) {
	var in engine.DesignInput
	fromFile := f.inputFile != ""
	if fromFile {
		data, err := os.ReadFile(f.inputFile)
		if err != nil {
			return in, fmt.Errorf("reading design input: %w", err)
		}
		if err := json.Unmarshal(data, &in); err != nil {
			return in, fmt.Errorf("decoding design input: %w", err)
		}
	}

	if f.panelID != "" {
		p, err := eq.Panel(f.panelID)
		if err != nil {
			return in, err
		}
		in.Panel = p
	}
	if f.inverterID != "" {
		inv, err := eq.Inverter(f.inverterID)
		if err != nil {
			return in, err
		}
		in.Inverter = inv
	}
	if in.Panel.Model == "" && in.Panel.PowerW == 0 {
		return in, fmt.Errorf("no panel given (use --panel or --input)")
	}
	if in.Inverter.Model == "" && in.Inverter.ACPowerKW == 0 {
		return in, fmt.Errorf("no inverter given (use --inverter or --input)")
	}

	changed := cmd.Flags().Changed
	if changed("t-min") {
		in.TMinC = f.tMin
	} else if !fromFile {
		in.TMinC = cfg.Design.TMinC
	}
	if changed("ambient") {
		in.AmbientC = f.ambient
		in.Derate = true
	}
	if changed("target-w") {
		in.TargetDCPowerW = f.targetW
	}
	if changed("ratio") {
		in.DCACRatio = f.ratio
	}
	if changed("split-roof") {
		in.SplitRoof = f.splitRoof
	}
	if changed("sf") {
		in.SafetyFactor = f.safetyFactor
	}
	if changed("ccc") {
		in.CurrentCarrying = f.ccc
	}
	setRun(&in.DCString, changed("dc-length"), f.dcLength, changed("dc-vd"), f.dcVD, f.dcMaterial)
	setRun(&in.DCTrunk, changed("trunk-length"), f.trunkLength, changed("trunk-vd"), f.trunkVD, f.dcMaterial)
	setRun(&in.AC, changed("ac-length"), f.acLength, changed("ac-vd"), f.acVD, f.acMaterial)

	in = cfg.Design.Apply(in)
	if f.noDerate {
		in.Derate = false
	}
	return in, nil
}

func setRun(r *engine.Run, lengthSet bool, length float64, vdSet bool, vd float64, material string) {
	if lengthSet {
		r.LengthM = length
	}
	if vdSet {
		r.TargetDropPct = vd
	}
	if material != "" {
		r.Material = codetables.Material(material)
	}
}

func designCmd() *cobra.Command {
	var flags designFlags
	var save, strict bool
	var name string

	cmd := &cobra.Command{
		Use:   "design",
		Short: "Size strings, conductors and protection for one installation",
		Example: `  pvsize design -p mono-540 -i string-8k-1p --target-w 8640 --t-min -5 --dc-length 25 --ac-length 20
  pvsize design -f site.json --save --name "north roof"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			eq, st, err := openEquipment()
			if err != nil {
				return err
			}
			defer st.Close()

			in, err := flags.input(cmd, eq)
			if err != nil {
				return err
			}

			pkg := engine.Design(in)
			logger.Debug("design assembled",
				zap.Bool("ok", pkg.OK),
				zap.Bool("all_green", pkg.AllGreen),
				zap.Int("warnings", len(pkg.Warnings)))

			out := struct {
				RunID   string         `json:"run_id,omitempty"`
				Package engine.Package `json:"package"`
			}{Package: pkg}

			if save {
				run := &store.Run{Name: name, Input: in, Package: pkg}
				if err := st.SaveRun(run); err != nil {
					return fmt.Errorf("saving run: %w", err)
				}
				out.RunID = run.ID
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Saved run %s\n", run.ID)
			}

			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if strict && !pkg.AllGreen {
				return fmt.Errorf("design is not compliant: %d errors, %d warnings", len(pkg.Errors), len(pkg.Warnings))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "save the run to the database")
	cmd.Flags().StringVar(&name, "name", "", "name for the saved run")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero unless every check passes")

	return cmd
}

func stringsCmd() *cobra.Command {
	var flags designFlags

	cmd := &cobra.Command{
		Use:   "strings",
		Short: "Resolve modules per string, string count and MPPT distribution",
		RunE: func(cmd *cobra.Command, args []string) error {
			eq, st, err := openEquipment()
			if err != nil {
				return err
			}
			defer st.Close()

			in, err := flags.input(cmd, eq)
			if err != nil {
				return err
			}

			res := engine.ResolveStrings(engine.StringInput{
				Panel:          in.Panel,
				Inverter:       in.Inverter,
				TMinC:          in.TMinC,
				TargetDCPowerW: in.TargetDCPowerW,
				DCACRatio:      in.DCACRatio,
				SplitRoof:      in.SplitRoof,
			})
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	flags.register(cmd)
	return cmd
}

func conductorCmd() *cobra.Command {
	var in engine.ConductorInput
	var segment, material string
	var rating int
	var noDerate bool

	cmd := &cobra.Command{
		Use:   "conductor",
		Short: "Size one conductor for ampacity and voltage drop",
		Example: `  pvsize conductor --current 41.7 --voltage 240 --length 20 --vd 2
  pvsize conductor --current 86.9 --voltage 328 --length 15 --vd 1.5 --rating 90 --segment dc_trunk`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Segment = engine.Segment(segment)
			in.Material = codetables.Material(material)
			in.Rating = codetables.Rating(rating)
			if !cmd.Flags().Changed("ambient") {
				in.AmbientC = cfg.Design.AmbientC
			}
			if !cmd.Flags().Changed("ccc") {
				in.CurrentCarrying = cfg.Design.CurrentCarrying
			}
			in.Derate = !noDerate

			res := engine.SizeConductor(in)
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if res.Err != nil {
				return res.Err
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&segment, "segment", string(engine.SegmentAC), "circuit segment (dc_string, dc_trunk, ac_output)")
	fl.Float64Var(&in.DesignCurrentA, "current", 0, "design current in A (already scaled by the safety factor)")
	fl.Float64Var(&in.ReferenceV, "voltage", 0, "reference voltage in V")
	fl.Float64Var(&in.LengthM, "length", 0, "one-way run length in m")
	fl.Float64Var(&in.TargetDropPct, "vd", 0, "voltage drop target %")
	fl.StringVar(&material, "material", string(codetables.Copper), "conductor material (cu or al)")
	fl.IntVar(&rating, "rating", int(codetables.Rating75C), "insulation temperature rating (75 or 90)")
	fl.IntVar(&in.Phases, "phases", 1, "1 for DC or single-phase, 3 for three-phase")
	fl.Float64Var(&in.AmbientC, "ambient", 0, "ambient temperature °C (default from config)")
	fl.IntVar(&in.CurrentCarrying, "ccc", 0, "current-carrying conductors per raceway (default from config)")
	fl.BoolVar(&noDerate, "no-derate", false, "skip temperature and grouping derating")

	return cmd
}

func compareCmd() *cobra.Command {
	var file string
	var target float64
	var noDerate bool

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Size several candidate designs and rank the compliant ones",
		Long: `compare reads a JSON array of {"name": ..., "input": {...}} scenarios, sizes them
concurrently and ranks the all-green designs by closeness to the target DC/AC ratio.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading scenarios: %w", err)
			}
			var scenarios []scenario.Scenario
			if err := json.Unmarshal(data, &scenarios); err != nil {
				return fmt.Errorf("decoding scenarios: %w", err)
			}
			for i := range scenarios {
				scenarios[i].Input = cfg.Design.Apply(scenarios[i].Input)
				if noDerate {
					scenarios[i].Input.Derate = false
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			runner := scenario.Runner{Workers: cfg.Server.ScenarioWorkers}
			outcomes, err := runner.Run(ctx, scenarios)
			if err != nil {
				return err
			}
			logger.Debug("scenarios sized", zap.Int("count", len(outcomes)))
			return printJSON(cmd.OutOrStdout(), scenario.Rank(outcomes, target))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "scenario file (JSON)")
	cmd.Flags().Float64Var(&target, "target-ratio", 1.2, "preferred DC/AC ratio")
	cmd.Flags().BoolVar(&noDerate, "no-derate", false, "skip temperature and grouping derating in every scenario")
	cmd.MarkFlagRequired("file")

	return cmd
}
