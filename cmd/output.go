package main

import (
	"encoding/csv"
	"fmt"
	"image/color"
	"os"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/edp1096/anysim/pkg/deck"
)

// savePlot draws the profile of every output along axis 0.
func savePlot(filename string, d *deck.Deck, dx float64, results map[string][]float64) error {
	p := plot.New()
	p.Title.Text = d.Title
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "value"
	p.Add(plotter.NewGrid())

	roi := d.ROI()
	at := make([]int, len(roi))
	if len(d.Sources) > 0 {
		copy(at, d.Sources[0].Index)
	}
	for i, name := range getKeys(results) {
		line := profile(results[name], roi, at)
		pts := make(plotter.XYs, len(line))
		for j, y := range line {
			pts[j].X = float64(j) * dx
			pts[j].Y = y
		}

		l, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("cannot create line for %s: %w", name, err)
		}
		l.LineStyle.Width = vg.Points(1.5)
		l.LineStyle.Color = plotutil.Color(i)
		p.Add(l)
		p.Legend.Add(name, l)
	}
	p.Legend.Top = true
	p.BackgroundColor = color.White

	return p.Save(8*vg.Inch, 5*vg.Inch, filename)
}

// saveCSV writes one row per ROI voxel: its index followed by every output.
func saveCSV(filename string, d *deck.Deck, results map[string][]float64) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	roi := d.ROI()
	names := getKeys(results)

	header := make([]string, 0, len(roi)+len(names))
	for ax := range roi {
		header = append(header, "i"+strconv.Itoa(ax))
	}
	header = append(header, names...)
	if err := w.Write(header); err != nil {
		return err
	}

	idx := make([]int, len(roi))
	record := make([]string, len(header))
	voxels := len(results[names[0]])
	for v := 0; v < voxels; v++ {
		rem := v
		for ax := len(roi) - 1; ax >= 0; ax-- {
			idx[ax] = rem % roi[ax]
			rem /= roi[ax]
		}
		for ax, i := range idx {
			record[ax] = strconv.Itoa(i)
		}
		for j, name := range names {
			record[len(roi)+j] = strconv.FormatFloat(results[name][v], 'e', 9, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
