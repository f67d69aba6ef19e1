package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"

	"pv-curve/internal/log"
	"pv-curve/internal/store"
	"pv-curve/pkg/analysis"
	"pv-curve/pkg/calibrate"
	"pv-curve/pkg/deck"
	"pv-curve/pkg/pv"
	"pv-curve/pkg/report"
	"pv-curve/pkg/solver"
	"pv-curve/pkg/util"
)

func main() {
	var (
		chartPath = flag.String("chart", "", "Write an HTML chart page to this path")
		serveAddr = flag.String("serve", "", "Serve charts and curve data on this address (e.g. :8080)")
		dbPath    = flag.String("db", "", "SQLite database for persisting adopted calibrations")
		table     = flag.Bool("table", false, "Print the full sampled curve, not just the summary")
		debug     = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: pvcurve [flags] <deck file>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	content, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("reading deck file: %v", err)
	}
	d, err := deck.Parse(string(content))
	if err != nil {
		log.Fatalf("parsing deck: %v", err)
	}
	log.Infow("deck loaded",
		"title", d.Title,
		"points", d.Options.Points,
		"g", d.Condition.Irradiance,
		"t", d.Condition.Temperature,
	)

	var archive *store.Store
	if *dbPath != "" {
		archive, err = store.Open(*dbPath)
		if err != nil {
			log.Fatalf("opening calibration store: %v", err)
		}
		defer archive.Close()

		if params, score, ok, err := archive.Last(d.Title); err != nil {
			log.Fatalf("loading calibration: %v", err)
		} else if ok {
			log.Infow("using stored calibration",
				"n", params.N, "rs", params.Rs, "rsh", params.Rsh, "score", score)
			d.Params = params
		}
	}

	if d.Options.Calibrate {
		d.Params = runCalibration(d, archive)
	}

	slv := solver.New(d.Spec, d.Params, d.Options.Points)
	curve := slv.ComputeCurve(d.Condition.Irradiance, d.Condition.Temperature)
	rep := analysis.Analyze(curve, d.Spec, d.Condition)

	set := report.CurveSet{
		Title:  d.Title,
		Labels: []string{label(d.Condition.Irradiance)},
		Curves: []pv.Curve{curve},
	}
	reports := []analysis.Report{rep}
	if d.Sweep != nil {
		set, reports = computeSweep(d)
	}

	report.WriteSummary(os.Stdout, d.Condition, rep)
	if *table {
		report.WriteCurveTable(os.Stdout, curve)
	}

	if *chartPath != "" {
		if err := writeChart(*chartPath, set); err != nil {
			log.Fatalf("writing chart: %v", err)
		}
		log.Infof("chart written to %s", *chartPath)
	}

	if *serveAddr != "" {
		srv := report.NewServer(set, reports)
		log.Infof("serving curves on %s", *serveAddr)
		if err := http.ListenAndServe(*serveAddr, srv.Router()); err != nil {
			log.Fatalf("serving: %v", err)
		}
	}
}

// runCalibration fits (n, Rs, Rsh) to the nameplate MPP. Calibration is
// meaningful only near STC, where the nameplate applies.
func runCalibration(d *deck.Deck, archive *store.Store) pv.DiodeParams {
	if !d.Condition.NearSTC() {
		log.Warnf("condition (G=%g, Tc=%g) is not near STC; skipping calibration",
			d.Condition.Irradiance, d.Condition.Temperature)
		return d.Params
	}

	result := calibrate.Calibrate(d.Spec, d.Params)
	if !result.Adopted {
		log.Infow("calibration kept existing parameters",
			"score", result.PreScore, "evaluations", result.Evaluations)
		return d.Params
	}

	log.Infow("calibration adopted",
		"n", result.Params.N,
		"rs", result.Params.Rs,
		"rsh", result.Params.Rsh,
		"score", result.Score,
		"preScore", result.PreScore,
		"evaluations", result.Evaluations,
	)
	if archive != nil {
		if err := archive.Save(d.Title, result.Params, result.Score); err != nil {
			log.Errorf("saving calibration: %v", err)
		}
	}
	return result.Params
}

// computeSweep solves one curve per swept irradiance level. Each solve is
// pure, so the levels run in parallel with no coordination.
func computeSweep(d *deck.Deck) (report.CurveSet, []analysis.Report) {
	levels := d.Sweep.Levels()
	set := report.CurveSet{
		Title:  d.Title,
		Labels: make([]string, len(levels)),
		Curves: make([]pv.Curve, len(levels)),
	}
	reports := make([]analysis.Report, len(levels))

	var wg sync.WaitGroup
	for i, g := range levels {
		wg.Add(1)
		go func(i int, g float64) {
			defer wg.Done()
			slv := solver.New(d.Spec, d.Params, d.Options.Points)
			curve := slv.ComputeCurve(g, d.Condition.Temperature)
			cond := pv.Condition{Irradiance: g, Temperature: d.Condition.Temperature}
			set.Labels[i] = label(g)
			set.Curves[i] = curve
			reports[i] = analysis.Analyze(curve, d.Spec, cond)
		}(i, g)
	}
	wg.Wait()
	return set, reports
}

func writeChart(path string, set report.CurveSet) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return set.RenderPage(f)
}

func label(g float64) string {
	return util.FormatValueFactor(g, "W/m2")
}
