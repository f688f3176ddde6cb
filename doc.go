/*
 * doc.go, part of oxdna
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

/*Package oxdna is the main package of the oxdna analysis library. It provides
the configuration structure for coarse-grained DNA/RNA trajectories, periodic
boundary handling, and the SVD-based superposition kernel used by the analysis
subpackages.


	**Capabilities**

    Reads/writes oxDNA configuration and trajectory files, both random-access
	and sequentially (see the traj/dat subpackage). Plain, gzip, zstd and
	lzw-compressed trajectories are supported for sequential reading and
	writing.

    Superimposes configurations. The user specifies what particles to use for
	the superposition transformation calculation; then all particles are
	rotated accordingly, orientation versors included.

    Wraps configurations back into the periodic box around their center of
	mass (computed on the circle, so particles split across an image boundary
	do not displace it).

    Computes minimum-image pairwise distance matrices.

    Runs per-frame computations over a trajectory in parallel while keeping
	the output deterministic (see the mproc subpackage and the align, contact
	and cluster subpackages built on it).


The library implements its own matrix type for coordinates, vec.Matrix, based
on gonum.org/v1/gonum/mat. Each row of a vec.Matrix represents one point in
space.*/
package oxdna
