/*
 * cluster.go, part of oxdna
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

// Package cluster post-processes a clustered trajectory: it splits the
// trajectory into one file per cluster, picks a centroid configuration for
// each cluster, and plots the clustering in order-parameter space.
//
// The clustering itself is not performed here. The package reads and writes
// a small JSON document holding, for every configuration, a point in some
// order-parameter space and the cluster label an external clusterer (DBSCAN,
// typically) assigned to it, with -1 marking noise.
package cluster

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/tilibit/oxdna/mproc"
	"github.com/tilibit/oxdna/traj/dat"
	"gonum.org/v1/gonum/mat"
)

// Data ties a trajectory to the result of clustering it. Points holds one
// point per configuration: its coordinates in order-parameter space when
// Metric is "euclidean", or its row of a precomputed distance matrix when
// Metric is "precomputed". Labels holds the cluster of each configuration,
// -1 for noise, and is filled in by the external clusterer.
type Data struct {
	Points [][]float64 `json:"data"`
	Traj   string      `json:"traj"`
	Metric string      `json:"metric"`
	Labels []int       `json:"labels"`
}

// ReadData reads a Data from a JSON file.
func ReadData(name string) (*Data, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("cluster: can't read data file: %v", err)
	}
	d := new(Data)
	if err := json.Unmarshal(b, d); err != nil {
		return nil, fmt.Errorf("cluster: can't parse data file %s: %v", name, err)
	}
	return d, nil
}

// Write writes the Data to a JSON file.
func (d *Data) Write(name string) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("cluster: can't serialize data: %v", err)
	}
	if err := os.WriteFile(name, b, 0644); err != nil {
		return fmt.Errorf("cluster: can't write data file: %v", err)
	}
	return nil
}

func (d *Data) check() error {
	if len(d.Points) == 0 {
		return fmt.Errorf("cluster: data contains no points")
	}
	w := len(d.Points[0])
	if w == 0 {
		return fmt.Errorf("cluster: data points have no components")
	}
	for i, row := range d.Points {
		if len(row) != w {
			return fmt.Errorf("cluster: point %d has %d components, expected %d", i, len(row), w)
		}
	}
	if len(d.Labels) == 0 {
		return fmt.Errorf("cluster: data has no labels, cluster it first")
	}
	if len(d.Labels) != len(d.Points) {
		return fmt.Errorf("cluster: %d labels for %d points", len(d.Labels), len(d.Points))
	}
	return nil
}

type Options struct {
	cpus   int
	outdir string
	noTraj bool
	logger *slog.Logger
}

//Returns an Options with the default options: all logical CPUs, output to
//the working directory, trajectory processing on, and the default slog
//logger.
func DefaultOptions() *Options {
	ret := new(Options)
	ret.cpus = runtime.NumCPU()
	ret.outdir = "."
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

//Returns the directory where the per-cluster files are written and sets
//it, if a non-empty one is given.
func (r *Options) Outdir(outdir ...string) string {
	ret := r.outdir
	if len(outdir) > 0 && outdir[0] != "" {
		r.outdir = outdir[0]
	}
	return ret
}

//Returns whether the trajectory itself is left alone (no splitting, no
//centroids, only the plot) and sets it, if given.
func (r *Options) NoTraj(noTraj ...bool) bool {
	ret := r.noTraj
	if len(noTraj) > 0 {
		r.noTraj = noTraj[0]
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

// Process runs the whole post-clustering pipeline: a summary of the
// clustering, the per-cluster trajectory files, the centroid of each
// cluster, and the cluster_plot.png scatter plot, all in the output
// directory.
func Process(d *Data, options ...*Options) error {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	if err := d.check(); err != nil {
		return err
	}
	sizes := make(map[int]int, 8)
	for _, l := range d.Labels {
		sizes[l]++
	}
	nclusters := len(sizes)
	if sizes[-1] > 0 {
		nclusters--
	}
	o.logger.Info("clustering summary", "clusters", nclusters, "configurations", len(d.Labels), "noise", sizes[-1])
	for _, l := range uniqueLabels(d.Labels) {
		o.logger.Info("cluster members", "cluster", l, "members", sizes[l])
	}
	var centroids map[int]int
	if !o.noTraj {
		if err := Split(d, o); err != nil {
			return err
		}
		var err error
		centroids, err = Centroids(d, o)
		if err != nil {
			return err
		}
	}
	return Plot(d, centroids, filepath.Join(o.outdir, "cluster_plot.png"), o)
}

type splitCtx struct {
	top  *dat.TopInfo
	traj *dat.TrajInfo
}

// Split writes each cluster of d to its own trajectory file,
// cluster_<label>.dat in the output directory, with the noise going to
// cluster_-1.dat. Within each file the configurations keep their original
// order. Frames are serialized concurrently but routed to their files in
// trajectory order, so the output does not depend on the number of
// goroutines used.
func Split(d *Data, options ...*Options) error {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	if len(d.Labels) == 0 {
		return fmt.Errorf("cluster: data has no labels, cluster it first")
	}
	top, tr, err := dat.Describe("", d.Traj)
	if err != nil {
		return err
	}
	if tr.NConfs != len(d.Labels) {
		return fmt.Errorf("cluster: trajectory %s has %d configurations, data has %d labels", d.Traj, tr.NConfs, len(d.Labels))
	}
	labels := uniqueLabels(d.Labels)
	writers := make(map[int]*dat.Writer, len(labels))
	closeAll := func() error {
		var first error
		for _, l := range labels {
			if w, ok := writers[l]; ok {
				if err := w.Close(); err != nil && first == nil {
					first = err
				}
			}
		}
		return first
	}
	for _, l := range labels {
		w, err := dat.NewWriter(filepath.Join(o.outdir, fmt.Sprintf("cluster_%d.dat", l)), top.NBases, tr.InclV)
		if err != nil {
			closeAll()
			return err
		}
		writers[l] = w
	}
	size, _ := mproc.Chunks(tr.NConfs, o.cpus)
	cctx := &splitCtx{top: top, traj: tr}
	compute := func(cctx *splitCtx, chunkSize, chunkID int) ([]string, error) {
		start := chunkID * chunkSize
		count := chunkSize
		if start+count > cctx.traj.NConfs {
			count = cctx.traj.NConfs - start
		}
		confs, err := dat.GetConfs(cctx.top, cctx.traj, start, count)
		if err != nil {
			return nil, err
		}
		ret := make([]string, len(confs))
		for i, c := range confs {
			ret[i] = dat.ConfToString(c, cctx.traj.InclV)
		}
		return ret, nil
	}
	reduce := func(chunkID int, blobs []string) error {
		for k, blob := range blobs {
			w := writers[d.Labels[chunkID*size+k]]
			if _, err := io.WriteString(w, blob); err != nil {
				return err
			}
		}
		return nil
	}
	if err := mproc.Run(tr.NConfs, o.cpus, compute, reduce, cctx); err != nil {
		closeAll()
		return err
	}
	if err := closeAll(); err != nil {
		return err
	}
	o.logger.Info("split trajectory by cluster", "files", len(labels), "outdir", o.outdir)
	return nil
}

// Centroids picks, for each cluster of d, the member configuration with the
// smallest summed distance to the other members, writes it to
// centroid_<label>.dat in the output directory, and returns the chosen
// configuration ids by cluster label. With the "euclidean" metric the
// summed quantity is the squared distance between order-parameter points;
// with "precomputed" the points are taken as the rows of a distance matrix
// and summed as given. Ties go to the lowest configuration id.
func Centroids(d *Data, options ...*Options) (map[int]int, error) {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	if err := d.check(); err != nil {
		return nil, err
	}
	top, tr, err := dat.Describe("", d.Traj)
	if err != nil {
		return nil, err
	}
	if tr.NConfs != len(d.Labels) {
		return nil, fmt.Errorf("cluster: trajectory %s has %d configurations, data has %d labels", d.Traj, tr.NConfs, len(d.Labels))
	}
	n := len(d.Points)
	var dist *mat.Dense
	switch d.Metric {
	case "euclidean", "":
		dist = sqDistances(d.Points)
	case "precomputed":
		if len(d.Points[0]) != n {
			return nil, fmt.Errorf("cluster: precomputed distance matrix is %dx%d, expected %dx%d", n, len(d.Points[0]), n, n)
		}
		dist = mat.NewDense(n, n, nil)
		for i, row := range d.Points {
			dist.SetRow(i, row)
		}
	default:
		return nil, fmt.Errorf("cluster: unknown metric %q", d.Metric)
	}
	ret := make(map[int]int, 8)
	for _, l := range uniqueLabels(d.Labels) {
		members := make([]int, 0, n)
		for i, lab := range d.Labels {
			if lab == l {
				members = append(members, i)
			}
		}
		best := members[0]
		bestSum := -1.0
		for _, i := range members {
			sum := 0.0
			for _, j := range members {
				sum += dist.At(i, j)
			}
			if bestSum < 0 || sum < bestSum {
				bestSum = sum
				best = i
			}
		}
		confs, err := dat.GetConfs(top, tr, best, 1)
		if err != nil {
			return nil, err
		}
		name := filepath.Join(o.outdir, fmt.Sprintf("centroid_%d.dat", l))
		if err := dat.WriteConf(name, confs[0], tr.InclV); err != nil {
			return nil, err
		}
		ret[l] = best
		o.logger.Info("wrote cluster centroid", "cluster", l, "configuration", best, "file", name)
	}
	return ret, nil
}

//the full matrix of squared euclidean distances between the points.
func sqDistances(points [][]float64) *mat.Dense {
	n := len(points)
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var s float64
			for k := range points[i] {
				v := points[i][k] - points[j][k]
				s += v * v
			}
			d.Set(i, j, s)
			d.Set(j, i, s)
		}
	}
	return d
}

//the sorted distinct labels, noise (-1) included.
func uniqueLabels(labels []int) []int {
	seen := make(map[int]bool, 8)
	ret := make([]int, 0, 8)
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			ret = append(ret, l)
		}
	}
	sort.Ints(ret)
	return ret
}
