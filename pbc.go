/*
 * pbc.go, part of oxdna
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

package oxdna

import (
	"fmt"
	"math"

	"github.com/tilibit/oxdna/vec"
	"gonum.org/v1/gonum/mat"
)

// realMod returns n mod m with the sign of m, so coordinates end up in
// [0, m) also for negative n.
func realMod(n, m float64) float64 {
	return math.Mod(math.Mod(n, m)+m, m)
}

// pbcCenterOfMass finds the center of mass of the configuration under
// periodic boundary conditions. Each coordinate is mapped to an angle on a
// circle of circumference box, so a cluster of particles split across an
// image boundary still averages to a point inside the cluster.
func pbcCenterOfMass(c *Configuration) [3]float64 {
	var cm [3][2]float64
	n := c.Len()
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			angle := c.Positions.At(i, j) * 2 * math.Pi / c.Box[j]
			cm[j][0] += math.Cos(angle)
			cm[j][1] += math.Sin(angle)
		}
	}
	var com [3]float64
	for j := 0; j < 3; j++ {
		cm[j][0] /= float64(n)
		cm[j][1] /= float64(n)
		com[j] = c.Box[j] / (2 * math.Pi) * (math.Atan2(-cm[j][1], -cm[j][0]) + math.Pi)
	}
	return com
}

// Inbox moves the center of mass of the configuration to the middle of the
// box and wraps every position back into the principal periodic image. If
// center is given and true, the wrapped positions are then translated so
// their mean sits at the origin instead of near box/2. The a1 and a3 versors
// are left untouched and are shared with the input configuration; a new
// Configuration with fresh positions is returned.
func Inbox(c *Configuration, center ...bool) *Configuration {
	cen := false
	if len(center) > 0 {
		cen = center[0]
	}
	n := c.Len()
	com := pbcCenterOfMass(c)
	pos := vec.Zeros(n)
	var mean [3]float64
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			v := c.Positions.At(i, j) + c.Box[j]/2 - com[j]
			v = realMod(v, c.Box[j])
			pos.Set(i, j, v)
			mean[j] += v / float64(n)
		}
	}
	if cen {
		for i := 0; i < n; i++ {
			for j := 0; j < 3; j++ {
				pos.Set(i, j, pos.At(i, j)-mean[j])
			}
		}
	}
	return &Configuration{
		Time:      c.Time,
		Box:       c.Box,
		Energy:    c.Energy,
		Positions: pos,
		A1s:       c.A1s,
		A3s:       c.A3s,
	}
}

// MinImageDistances returns the matrix of pairwise euclidean distances
// between the vectors of p1 and those of p2, each distance computed between
// the nearest periodic images in a cubic box of the given side. Rounding to
// the nearest image uses round-half-to-even, so a displacement of exactly
// half a box does not depend on its sign.
func MinImageDistances(p1, p2 *vec.Matrix, box float64) (*mat.Dense, error) {
	if box <= 0 {
		return nil, CError{msg: fmt.Sprintf("MinImageDistances: non-positive box side %v", box)}
	}
	n1 := p1.NVecs()
	n2 := p2.NVecs()
	ret := mat.NewDense(n1, n2, nil)
	for i := 0; i < n1; i++ {
		for j := 0; j < n2; j++ {
			var d2 float64
			for k := 0; k < 3; k++ {
				d := p1.At(i, k) - p2.At(j, k)
				d -= box * math.RoundToEven(d/box)
				d2 += d * d
			}
			ret.Set(i, j, math.Sqrt(d2))
		}
	}
	return ret, nil
}
