/*
 * align.go, part of oxdna
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

// Package align superimposes every configuration of a trajectory on a
// reference configuration, minimizing the RMSD over a selection of
// particles, and writes the result as a new trajectory. Frames are processed
// concurrently but written in their original order, so the output does not
// depend on the number of goroutines used.
package align

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	oxdna "github.com/tilibit/oxdna"
	"github.com/tilibit/oxdna/mproc"
	"github.com/tilibit/oxdna/traj/dat"
	"github.com/tilibit/oxdna/vec"
)

type Options struct {
	cpus    int
	indexes []int
	ref     *oxdna.Configuration
	center  bool
	logger  *slog.Logger
}

//Returns an Options with the default options: all logical CPUs, the whole
//first frame of the trajectory as the reference, centering on, and the
//default slog logger.
func DefaultOptions() *Options {
	ret := new(Options)
	ret.cpus = runtime.NumCPU()
	ret.center = true
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

//Returns the indexes of the particles on which the superposition is
//performed, and sets them, if given. A nil value means all particles.
func (r *Options) Indexes(indexes ...[]int) []int {
	ret := r.indexes
	if len(indexes) > 0 {
		r.indexes = indexes[0]
	}
	return ret
}

//Returns the reference configuration and sets it, if given. A nil value
//means the first frame of the trajectory being aligned.
func (r *Options) Ref(ref ...*oxdna.Configuration) *oxdna.Configuration {
	ret := r.ref
	if len(ref) > 0 {
		r.ref = ref[0]
	}
	return ret
}

//Returns whether each aligned configuration is centered in the periodic
//box before the superposition, and sets it, if given.
func (r *Options) Center(center ...bool) bool {
	ret := r.center
	if len(center) > 0 {
		r.center = center[0]
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

//the read-only data every chunk of the alignment needs.
type alignCtx struct {
	top     *dat.TopInfo
	traj    *dat.TrajInfo
	ref     *vec.Matrix //coordinates of the reference selection, centered on their centroid
	indexes []int
	center  bool
}

// Trajectory reads the trajectory in trajfile, superimposes every
// configuration on the reference over the selected particles, and writes
// the aligned trajectory to outfile. The reference is inboxed and its
// selected coordinates centered before any comparison, so aligning a
// trajectory to its own first frame leaves that frame in place (up to
// floating point). Orientation versors are rotated along with the
// positions.
func Trajectory(trajfile, outfile string, options ...*Options) error {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	top, tr, err := dat.Describe("", trajfile)
	if err != nil {
		return err
	}
	ref := o.ref
	if ref == nil {
		confs, err := dat.GetConfs(top, tr, 0, 1)
		if err != nil {
			return err
		}
		ref = confs[0]
	}
	if ref.Len() != top.NBases {
		return fmt.Errorf("align: reference has %d particles, trajectory has %d", ref.Len(), top.NBases)
	}
	indexes := o.indexes
	if indexes == nil {
		indexes = make([]int, top.NBases)
		for i := range indexes {
			indexes[i] = i
		}
	}
	if err := oxdna.CheckSelection(indexes, top.NBases); err != nil {
		return err
	}
	ref = oxdna.Inbox(ref, o.center)
	sub := vec.Zeros(len(indexes))
	sub.SomeVecs(ref.Positions, indexes)
	refCms, err := oxdna.Centroid(sub)
	if err != nil {
		return err
	}
	sub.SubVec(sub, refCms)
	w, err := dat.NewWriter(outfile, top.NBases, tr.InclV)
	if err != nil {
		return err
	}
	cctx := &alignCtx{top: top, traj: tr, ref: sub, indexes: indexes, center: o.center}
	compute := func(cctx *alignCtx, chunkSize, chunkID int) (string, error) {
		start := chunkID * chunkSize
		count := chunkSize
		if start+count > cctx.traj.NConfs {
			count = cctx.traj.NConfs - start
		}
		confs, err := dat.GetConfs(cctx.top, cctx.traj, start, count)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		origin := vec.Zeros(1)
		for _, c := range confs {
			c = oxdna.Inbox(c, cctx.center)
			al, err := oxdna.SVDAlign(cctx.ref, c, cctx.indexes, origin)
			if err != nil {
				return "", err
			}
			b.WriteString(dat.ConfToString(al, cctx.traj.InclV))
		}
		return b.String(), nil
	}
	reduce := func(chunkID int, blob string) error {
		_, err := io.WriteString(w, blob)
		return err
	}
	if err := mproc.Run(tr.NConfs, o.cpus, compute, reduce, cctx); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	o.logger.Info("wrote aligned trajectory", "file", outfile, "frames", tr.NConfs)
	return nil
}

// ReadIndex reads a selection from an index file: a single line of
// whitespace-separated particle ids, 0-based. Lines after the first are
// ignored.
func ReadIndex(name string) ([]int, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("align: can't open index file: %v", err)
	}
	defer f.Close()
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("align: can't read index file %s: %v", name, err)
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("align: index file %s: expected a line of whitespace-separated particle ids", name)
	}
	ret := make([]int, 0, len(fields))
	for _, v := range fields {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("align: index file %s: %q is not a particle id", name, v)
		}
		ret = append(ret, n)
	}
	return ret, nil
}
