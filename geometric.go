/*
 * geometric.go, part of oxdna
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

	"github.com/tilibit/oxdna/vec"
	"gonum.org/v1/gonum/mat"
)

// Centroid returns the geometric center of the vectors in m as a 1x3 matrix.
func Centroid(m *vec.Matrix) (*vec.Matrix, error) {
	n := m.NVecs()
	if n == 0 {
		return nil, CError{msg: "Centroid: given an empty matrix"}
	}
	ret := vec.Zeros(1)
	for i := 0; i < n; i++ {
		ret.Dense.Add(ret.Dense, m.VecView(i).Dense)
	}
	ret.Scale(1.0/float64(n), ret)
	return ret, nil
}

// CheckSelection returns an InvalidSelectionError if indexes is empty or any
// of its elements does not fit a configuration of n particles.
func CheckSelection(indexes []int, n int) error {
	if len(indexes) == 0 {
		return newInvalidSelection("empty particle selection")
	}
	for _, v := range indexes {
		if v < 0 || v >= n {
			return newInvalidSelection("selection index %d out of range (configuration has %d particles)", v, n)
		}
	}
	return nil
}

// SVDAlign superposes the configuration c onto the reference coordinates ref,
// using only the particles in indexes to compute the transformation. The
// rotation found is applied to all positions and to the a1 and a3 versors;
// the translation moves the selected particles' center onto the center of
// ref. ref must hold one row per element of indexes, i.e. it must be indexed
// before calling this function. If the center of ref is already known it can
// be passed as refCenter to save its computation; pass a zero vector for a
// reference that was centered at the origin beforehand.
//
// The rotation returned by the bare SVD may be improper (a rotoinversion);
// in that case the sign of the last right-singular vector is flipped so that
// the result is always a proper rotation, determinant +1. Selections with
// fewer than 3 non-collinear particles are accepted, but then the optimal
// rotation is not unique and the function just returns one of the optima.
//
// c is not modified; a new Configuration is returned.
func SVDAlign(ref *vec.Matrix, c *Configuration, indexes []int, refCenter ...*vec.Matrix) (*Configuration, error) {
	n := c.Len()
	if err := CheckSelection(indexes, n); err != nil {
		return nil, err
	}
	if ref.NVecs() != len(indexes) {
		return nil, CError{msg: fmt.Sprintf("SVDAlign: reference has %d rows for a %d-particle selection", ref.NVecs(), len(indexes))}
	}
	//Center the ref
	var av1 *vec.Matrix
	if len(refCenter) > 0 && refCenter[0] != nil {
		av1 = refCenter[0]
	} else {
		var err error
		av1, err = Centroid(ref)
		if err != nil {
			return nil, err
		}
	}
	cref := vec.Zeros(ref.NVecs())
	cref.SubVec(ref, av1)

	//Center the candidate on the mean of its selected particles
	sub := vec.Zeros(len(indexes))
	sub.SomeVecs(c.Positions, indexes)
	av2, err := Centroid(sub)
	if err != nil {
		return nil, err
	}
	pos := vec.Zeros(n)
	pos.SubVec(c.Positions, av2)
	sub.SomeVecs(pos, indexes)

	//Correlation matrix
	var a mat.Dense
	a.Mul(sub.T(), cref.Dense)
	var svd mat.SVD
	if ok := svd.Factorize(&a, mat.SVDFull); !ok {
		return nil, CError{msg: "SVDAlign: SVD factorization failed"}
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	var rot mat.Dense
	rot.Mul(&u, v.T())

	//Check if we have found a reflection
	if mat.Det(&rot) < 0 {
		for i := 0; i < 3; i++ {
			v.Set(i, 2, -v.At(i, 2))
		}
		rot.Mul(&u, v.T())
	}

	//Apply transformation
	ret := &Configuration{Time: c.Time, Box: c.Box, Energy: c.Energy}
	ret.Positions = vec.Zeros(n)
	ret.Positions.Mul(pos, &rot)
	ret.Positions.AddVec(ret.Positions, av1)
	ret.A1s = vec.Zeros(n)
	ret.A1s.Mul(c.A1s, &rot)
	ret.A3s = vec.Zeros(n)
	ret.A3s.Mul(c.A3s, &rot)
	return ret, nil
}
