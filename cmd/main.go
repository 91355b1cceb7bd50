package main // import "github.com/edp1096/anysim/cmd"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/edp1096/anysim/pkg/array"
	"github.com/edp1096/anysim/pkg/deck"
	"github.com/edp1096/anysim/pkg/diffusion"
	"github.com/edp1096/anysim/pkg/state"
	"github.com/edp1096/anysim/pkg/util"
)

var (
	verbose  = flag.Bool("v", false, "print the deck, the medium analysis and every iteration")
	plotFile = flag.String("plot", "", "write the output profiles to a PNG file")
	csvFile  = flag.String("csv", "", "write the output fields to a CSV file")
)

func getKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// collect extracts the requested outputs from a finalized field.
func collect(sim *diffusion.DiffuseSim, u *array.Field, outputs []string) (map[string][]float64, error) {
	results := make(map[string][]float64, len(outputs))
	for _, name := range outputs {
		if name == "intensity" {
			results[name] = sim.Intensity(u)
			continue
		}
		axis, err := strconv.Atoi(strings.TrimPrefix(name, "flux"))
		if err != nil {
			return nil, fmt.Errorf("bad output name %q", name)
		}
		flux, err := sim.Flux(u, axis)
		if err != nil {
			return nil, err
		}
		results[name] = flux
	}
	return results, nil
}

// profile returns the samples of values along axis 0 through the voxel at.
func profile(values []float64, roi []int, at []int) []float64 {
	stride := array.Voxels(roi[1:])
	offset := 0
	for ax := 1; ax < len(roi); ax++ {
		offset = offset*roi[ax] + at[ax]
	}
	line := make([]float64, roi[0])
	for i := range line {
		line[i] = values[i*stride+offset]
	}
	return line
}

func printResults(w io.Writer, d *deck.Deck, dx float64, st *state.State, elapsed time.Duration, results map[string][]float64) {
	fmt.Fprintln(w, "\nSimulation Results:")
	fmt.Fprintln(w, "===================")
	fmt.Fprintf(w, "Iterations: %d\n", st.Iterations())
	fmt.Fprintf(w, "Residual:   %s\n", util.FormatResidual(st.Residual()))
	fmt.Fprintf(w, "Run time:   %s\n", util.FormatDuration(elapsed))

	roi := d.ROI()
	at := make([]int, len(roi))
	if len(d.Sources) > 0 {
		copy(at, d.Sources[0].Index)
	}
	if len(roi) > 1 {
		fmt.Fprintf(w, "\nProfiles along axis 0 through %v (%d points):\n", at[1:], roi[0])
	} else {
		fmt.Fprintf(w, "\nProfiles (%d points):\n", roi[0])
	}

	names := getKeys(results)
	fmt.Fprintf(w, "%-12s", "x")
	for _, name := range names {
		fmt.Fprintf(w, "%-14s", name)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 12+14*len(names)))

	lines := make([][]float64, len(names))
	for j, name := range names {
		lines[j] = profile(results[name], roi, at)
	}
	for i := 0; i < roi[0]; i++ {
		fmt.Fprintf(w, "%-12s", util.FormatValueFactor(float64(i)*dx, "m"))
		for j := range names {
			fmt.Fprintf(w, "%-14.6e", lines[j][i])
		}
		fmt.Fprintln(w)
	}
}

func readDeck(path string) *deck.Deck {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Error reading deck file: %v", err)
	}
	d, err := deck.Parse(string(content))
	if err != nil {
		log.Fatalf("Error parsing deck: %v", err)
	}
	return d
}

// run solves the deck and prints the results to w. Non-empty plotPath and
// csvPath also export the outputs.
func run(d *deck.Deck, w io.Writer, plotPath, csvPath string) error {
	sim, err := diffusion.New(d.Diffusion, d.Absorption, d.Options)
	if err != nil {
		return fmt.Errorf("simulation setup failed: %w", err)
	}

	start := time.Now()
	u, st, err := sim.Exec(d.Source())
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	elapsed := time.Since(start)

	results, err := collect(sim, u, d.Outputs)
	if err != nil {
		return fmt.Errorf("output extraction failed: %w", err)
	}
	dx := sim.Grid.PixelSize[0]
	printResults(w, d, dx, st, elapsed, results)

	if plotPath != "" {
		if err := savePlot(plotPath, d, dx, results); err != nil {
			return fmt.Errorf("plot failed: %w", err)
		}
		fmt.Fprintf(w, "\nPlot written to %s\n", plotPath)
	}
	if csvPath != "" {
		if err := saveCSV(csvPath, d, results); err != nil {
			return fmt.Errorf("CSV export failed: %w", err)
		}
		fmt.Fprintf(w, "CSV written to %s\n", csvPath)
	}
	return nil
}

func procWithPrint() {
	fmt.Println("\n[1] Reading deck")
	d := readDeck(flag.Arg(0))

	fmt.Println("\n[2] Deck contents")
	o := d.Options
	fmt.Printf("Title: %s\n", d.Title)
	fmt.Printf("Grid: %v  pixel: %v  boundaries: %v  periodic: %v\n", o.Shape, o.PixelSize, o.Boundaries, o.Periodic)
	if o.TimeSteps > 0 {
		fmt.Printf("Time axis: %d steps of %s\n", o.TimeSteps, util.FormatValueFactor(o.TimeStep, "s"))
	}
	fmt.Printf("Potential type: %v  homogeneous diffusion: %v  homogeneous absorption: %v\n",
		o.PotentialType, d.Diffusion.Homogeneous(), d.Absorption.Homogeneous())
	for i, s := range d.Sources {
		fmt.Printf("Source %d: %g at %v\n", i, s.Value, s.Index)
	}

	fmt.Println("\n[3] Medium analysis")
	report, err := diffusion.Analyze(d.Diffusion, d.Absorption, o)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	fmt.Printf("Diffusion range:     %g .. %g\n", report.DiffusionMin, report.DiffusionMax)
	fmt.Printf("Absorption range:    %g .. %g\n", report.AbsorptionMin, report.AbsorptionMax)
	fmt.Printf("Boundary absorption: %g\n", report.BoundaryAbsorption)
	fmt.Printf("Feature size:        %s\n", util.FormatValueFactor(report.FeatureSize, "m"))

	fmt.Println("\n[4] Running simulation")
	if err := run(d, os.Stdout, *plotFile, *csvFile); err != nil {
		log.Fatal(err)
	}
}

func procWithoutPrint() {
	d := readDeck(flag.Arg(0))
	d.Options.Logger = log.New(io.Discard, "", 0)
	if err := run(d, os.Stdout, *plotFile, *csvFile); err != nil {
		log.Fatal(err)
	}
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("Usage: anysim [-v] [-plot out.png] [-csv out.csv] <deck_file>")
	}

	if *verbose {
		procWithPrint()
		return
	}
	procWithoutPrint()
}
