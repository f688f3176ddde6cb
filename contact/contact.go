/*
 * contact.go, part of oxdna
 *
 * Copyright 2023 The oxdna developers
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

// Package contact computes the mean distance between every pair of
// particles over a trajectory, under the minimum image convention, as a
// symmetric matrix in nanometers. The per-frame sums are accumulated
// concurrently, one chunk of frames per goroutine.
package contact

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	oxdna "github.com/tilibit/oxdna"
	"github.com/tilibit/oxdna/mproc"
	"github.com/tilibit/oxdna/traj/dat"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

//the oxDNA length unit, in nanometers.
const lengthUnitNM = 0.8518

type Options struct {
	cpus   int
	logger *slog.Logger
}

//Returns an Options with the default options: all logical CPUs and the
//default slog logger.
func DefaultOptions() *Options {
	ret := new(Options)
	ret.cpus = runtime.NumCPU()
	ret.logger = slog.Default()
	return ret
}

//Returns the current value of the Cpus option (the number of goroutines
//used for the concurrent part of the calculation) and sets it, if a valid
//value is given.
func (r *Options) Cpus(cpus ...int) int {
	ret := r.cpus
	if len(cpus) > 0 && cpus[0] > 0 {
		r.cpus = cpus[0]
	}
	return ret
}

//Returns the logger used for progress reports and sets it, if a non-nil
//one is given.
func (r *Options) Logger(logger ...*slog.Logger) *slog.Logger {
	ret := r.logger
	if len(logger) > 0 && logger[0] != nil {
		r.logger = logger[0]
	}
	return ret
}

type mapCtx struct {
	top  *dat.TopInfo
	traj *dat.TrajInfo
}

// Map returns the mean minimum-image distance between every pair of
// particles over the whole trajectory, in nanometers, as an NxN symmetric
// matrix with a zero diagonal. The box of each configuration is taken as
// cubic with the side given in its header. The result does not depend on
// the number of goroutines used.
func Map(topfile, trajfile string, options ...*Options) (*mat.Dense, error) {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	top, tr, err := dat.Describe(topfile, trajfile)
	if err != nil {
		return nil, err
	}
	total := mat.NewDense(top.NBases, top.NBases, nil)
	cctx := &mapCtx{top: top, traj: tr}
	compute := func(cctx *mapCtx, chunkSize, chunkID int) (*mat.Dense, error) {
		start := chunkID * chunkSize
		count := chunkSize
		if start+count > cctx.traj.NConfs {
			count = cctx.traj.NConfs - start
		}
		confs, err := dat.GetConfs(cctx.top, cctx.traj, start, count)
		if err != nil {
			return nil, err
		}
		sum := mat.NewDense(cctx.top.NBases, cctx.top.NBases, nil)
		for _, c := range confs {
			d, err := oxdna.MinImageDistances(c.Positions, c.Positions, c.Box[0])
			if err != nil {
				return nil, err
			}
			sum.Add(sum, d)
		}
		return sum, nil
	}
	reduce := func(chunkID int, partial *mat.Dense) error {
		total.Add(total, partial)
		return nil
	}
	if err := mproc.Run(tr.NConfs, o.cpus, compute, reduce, cctx); err != nil {
		return nil, err
	}
	total.Scale(lengthUnitNM/float64(tr.NConfs), total)
	o.logger.Info("computed mean distance map", "frames", tr.NConfs, "particles", top.NBases)
	return total, nil
}

// WriteData writes the matrix as plain text, one row per line, entries
// space-separated, in the shortest decimal form that parses back to the
// same float64.
func WriteData(name string, m *mat.Dense) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("contact: can't create data file: %v", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if j > 0 {
				w.WriteByte(' ')
			}
			w.WriteString(strconv.FormatFloat(m.At(i, j), 'g', -1, 64))
		}
		w.WriteByte('\n')
	}
	return w.Flush()
}

// ReadData reads a matrix written by WriteData.
func ReadData(name string) (*mat.Dense, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("contact: can't open data file: %v", err)
	}
	defer f.Close()
	var rows [][]float64
	scan := bufio.NewScanner(f)
	scan.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scan.Scan() {
		fields := strings.Fields(scan.Text())
		if len(fields) == 0 {
			continue
		}
		row := make([]float64, len(fields))
		for i, v := range fields {
			row[i], err = strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("contact: data file %s, row %d: %v", name, len(rows), err)
			}
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, fmt.Errorf("contact: data file %s: row %d has %d entries, expected %d", name, len(rows), len(row), len(rows[0]))
		}
		rows = append(rows, row)
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("contact: can't read data file %s: %v", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("contact: data file %s is empty", name)
	}
	ret := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		ret.SetRow(i, row)
	}
	return ret, nil
}

// Plot writes a heat map of the distance matrix to a file, the format
// given by the extension (png, pdf, svg...).
func Plot(name string, m *mat.Dense) error {
	p := plot.New()
	p.Title.Text = "interaction network"
	p.X.Label.Text = "nucleotide id"
	p.Y.Label.Text = "nucleotide id"
	h := plotter.NewHeatMap(unitGrid{m}, palette.Heat(12, 1))
	p.Add(h)
	return p.Save(5*vg.Inch, 5*vg.Inch, name)
}

//a matrix as a heat map grid with unit spacing, rows along Y.
type unitGrid struct{ mat.Matrix }

func (g unitGrid) Dims() (c, r int) {
	r, c = g.Matrix.Dims()
	return c, r
}

func (g unitGrid) Z(c, r int) float64 { return g.Matrix.At(r, c) }

func (g unitGrid) X(c int) float64 {
	_, n := g.Matrix.Dims()
	if c < 0 || c >= n {
		panic("contact: column index out of range")
	}
	return float64(c)
}

func (g unitGrid) Y(r int) float64 {
	n, _ := g.Matrix.Dims()
	if r < 0 || r >= n {
		panic("contact: row index out of range")
	}
	return float64(r)
}
