/*
 * oxdna.go, part of oxdna
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
	"github.com/tilibit/oxdna/vec"
)

// Configuration is one frame of an oxDNA trajectory: the positions of all
// particles plus, for each particle, the base-to-backbone versor (a1) and the
// stacking versor (a3). Velocities, when present in a file, are discarded on
// reading.
type Configuration struct {
	//Time is the simulation step at which the configuration was written.
	Time int64
	//Box holds the dimensions of the periodic box.
	Box [3]float64
	//Energy holds the total, potential and kinetic energy of the frame.
	Energy [3]float64
	//Positions, A1s and A3s have one row per particle.
	Positions *vec.Matrix
	A1s       *vec.Matrix
	A3s       *vec.Matrix
}

// Len returns the number of particles in the configuration.
func (C *Configuration) Len() int {
	if C.Positions == nil {
		return 0
	}
	return C.Positions.NVecs()
}

// Copy returns a deep copy of the configuration.
func (C *Configuration) Copy() *Configuration {
	n := C.Len()
	ret := &Configuration{
		Time:      C.Time,
		Box:       C.Box,
		Energy:    C.Energy,
		Positions: vec.Zeros(n),
		A1s:       vec.Zeros(n),
		A3s:       vec.Zeros(n),
	}
	ret.Positions.Copy(C.Positions)
	ret.A1s.Copy(C.A1s)
	ret.A3s.Copy(C.A3s)
	return ret
}

// Frames reads the trajectory to its end, discarding the configurations, and
// returns how many were left to read. Each frame is still parsed and checked.
// This is the way to count the configurations of a compressed trajectory,
// which can not be indexed.
func Frames(t Traj) (int, error) {
	n := 0
	for {
		err := t.Next(nil)
		if err != nil {
			if _, ok := err.(LastFrameError); ok {
				return n, nil
			}
			return n, err
		}
		n++
	}
}
