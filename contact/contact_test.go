/*
 * contact_test.go, part of oxdna
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

package contact

import (
	"math"
	"os"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const (
	pentatop  = "../test/pentamer.top"
	pentatraj = "../test/pentamer.dat"
)

// The pentamer particles sit on the x axis, so the expected mean distances
// can be worked out by hand. The whole strand drifts rigidly from frame to
// frame, which leaves the pair distances unchanged; particles 0 and 4 are
// close only through the periodic boundary.
func TestMap(Te *testing.T) {
	o := DefaultOptions()
	o.Cpus(1)
	m, err := Map(pentatop, pentatraj, o)
	if err != nil {
		Te.Fatal(err)
	}
	//pair separations in box units, minimum image, box 10
	want := [][]float64{
		{0, 2, 4, 4, 1},
		{2, 0, 2, 4, 3},
		{4, 2, 0, 2, 5},
		{4, 4, 2, 0, 3},
		{1, 3, 5, 3, 0},
	}
	r, c := m.Dims()
	if r != 5 || c != 5 {
		Te.Fatalf("map is %dx%d", r, c)
	}
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			if math.Abs(m.At(i, j)-want[i][j]*0.8518) > 1e-9 {
				Te.Errorf("mean distance %d,%d: got %v want %v", i, j, m.At(i, j), want[i][j]*0.8518)
			}
			if m.At(i, j) != m.At(j, i) {
				Te.Errorf("map not symmetric at %d,%d", i, j)
			}
		}
	}
}

func TestMapDeterminism(Te *testing.T) {
	o1 := DefaultOptions()
	o1.Cpus(1)
	m1, err := Map(pentatop, pentatraj, o1)
	if err != nil {
		Te.Fatal(err)
	}
	o4 := DefaultOptions()
	o4.Cpus(4)
	m4, err := Map(pentatop, pentatraj, o4)
	if err != nil {
		Te.Fatal(err)
	}
	r, c := m1.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.Abs(m1.At(i, j)-m4.At(i, j)) > 1e-9 {
				Te.Errorf("distance %d,%d differs between 1 and 4 goroutines: %v vs %v",
					i, j, m1.At(i, j), m4.At(i, j))
			}
		}
	}
}

func TestDataRoundTrip(Te *testing.T) {
	o := DefaultOptions()
	o.Cpus(2)
	m, err := Map(pentatop, pentatraj, o)
	if err != nil {
		Te.Fatal(err)
	}
	name := "../test/contact_map.txt"
	if err := WriteData(name, m); err != nil {
		Te.Fatal(err)
	}
	back, err := ReadData(name)
	if err != nil {
		Te.Fatal(err)
	}
	if !mat.Equal(m, back) {
		Te.Error("matrix changed in the text round trip")
	}
	if _, err := ReadData("../test/no_such_file.txt"); err == nil {
		Te.Error("no error for a missing data file")
	}
}

func TestPlot(Te *testing.T) {
	o := DefaultOptions()
	o.Cpus(2)
	m, err := Map(pentatop, pentatraj, o)
	if err != nil {
		Te.Fatal(err)
	}
	name := "../test/contact_map.png"
	if err := Plot(name, m); err != nil {
		Te.Fatal(err)
	}
	fi, err := os.Stat(name)
	if err != nil {
		Te.Fatal(err)
	}
	if fi.Size() == 0 {
		Te.Error("empty plot file")
	}
}
