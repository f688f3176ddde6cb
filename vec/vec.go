/*
 * vec.go, part of oxdna
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

// Package vec implements a container for sets of vectors in 3D space,
// i.e. the positions and orientation versors of the particles in a
// configuration. It is a thin wrapper over gonum's Dense matrix with the
// column number fixed to 3, so every gonum facility remains available.
// Within the package a "vector" is a row vector, the cartesian
// coordinates of one particle.
package vec

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a set of vectors in 3D space. It must be able to implement
// any gonum interface.
type Matrix struct {
	*mat.Dense
}

// New returns a Matrix with 3 columns built from data, which is parsed
// in row-major order. The Matrix shares backing storage with data.
func New(data []float64) (*Matrix, error) {
	const cols int = 3
	l := len(data)
	rows := l / cols
	if l%cols != 0 {
		return nil, Error(fmt.Sprintf("vec: input slice length %d not divisible by %d", l, cols))
	}
	r := mat.NewDense(rows, cols, data)
	return &Matrix{r}, nil
}

// Zeros returns a zero-filled Matrix with vecs vectors and 3 in the
// other dimension.
func Zeros(vecs int) *Matrix {
	const cols int = 3
	f := make([]float64, cols*vecs)
	return &Matrix{mat.NewDense(vecs, cols, f)}
}

// Dense2Matrix wraps a 3-column gonum Dense into a Matrix. It panics if
// the matrix given does not have 3 columns.
func Dense2Matrix(A *mat.Dense) *Matrix {
	_, c := A.Dims()
	if c != 3 {
		panic(ErrNotXx3Matrix)
	}
	return &Matrix{A}
}

// VecView returns a view of the ith vector of the matrix. Changes in
// the view are reflected in the receiver and vice-versa.
func (F *Matrix) VecView(i int) *Matrix {
	r := F.Dense.Slice(i, i+1, 0, 3).(*mat.Dense)
	return &Matrix{r}
}

// NVecs returns the number of vectors in F.
func (F *Matrix) NVecs() int {
	r, c := F.Dims()
	if c != 3 {
		panic(ErrNotXx3Matrix)
	}
	return r
}

// SomeVecs puts in the receiver all the ith vectors of matrix A, where
// i are the numbers in clist, in the same order as in clist. It panics
// if the shapes are mismatched or an index is out of range.
func (F *Matrix) SomeVecs(A *Matrix, clist []int) {
	ar, ac := A.Dims()
	fr, fc := F.Dims()
	if ac != fc || fr != len(clist) || ar < len(clist) {
		panic(mat.ErrShape)
	}
	for key, val := range clist {
		for j := 0; j < ac; j++ {
			F.Set(key, j, A.At(val, j))
		}
	}
}

// AddVec adds the 1x3 vector vec to each vector of the matrix A,
// putting the result on the receiver, which may be A itself. It panics
// if the shapes are mismatched. The sum goes element by element, so no
// combination of shared storage between the arguments is a problem.
func (F *Matrix) AddVec(A, vec *Matrix) {
	ar, ac := A.Dims()
	rr, rc := vec.Dims()
	fr, fc := F.Dims()
	if ac != rc || rr != 1 || ac != fc || ar != fr {
		panic(mat.ErrShape)
	}
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			F.Set(i, j, A.At(i, j)+vec.At(0, j))
		}
	}
}

// SubVec subtracts the 1x3 vector vec from each vector of the matrix A,
// putting the result on the receiver. It panics if the shapes are
// mismatched. It will not work if A and vec reference the same Matrix.
func (F *Matrix) SubVec(A, vec *Matrix) {
	vec.Scale(-1, vec)
	F.AddVec(A, vec)
	vec.Scale(-1, vec)
}

// Scale multiplies every element of A by f, putting the result on the
// receiver. Like Mul, it unwraps a Matrix argument before handing it to
// gonum: passed the wrapper, gonum would compare it against the embedded
// Dense, take them for two different objects over the same data, and
// panic.
func (F *Matrix) Scale(f float64, A mat.Matrix) {
	if A, ok := A.(*Matrix); ok {
		F.Dense.Scale(f, A.Dense)
		return
	}
	F.Dense.Scale(f, A)
}

// Mul wraps mat.Mul to take care of the case when one of the arguments
// is also the receiver. Since the receiver is a Matrix, the gonum
// function could check A (mat.Dense) vs F (Matrix) and it would not
// know that internally F.Dense==A.Dense, hence the need for this
// function.
func (F *Matrix) Mul(A, B mat.Matrix) {
	if F == A {
		A := A.(*Matrix)
		F.Dense.Mul(A.Dense, B)
	} else if F == B {
		B := B.(*Matrix)
		F.Dense.Mul(A, B.Dense)
	} else {
		F.Dense.Mul(A, B)
	}
}

// String returns a neat string representation of a Matrix.
func (F *Matrix) String() string {
	r, c := F.Dims()
	v := make([]string, r+2)
	v[0] = "\n["
	v[len(v)-1] = " ]"
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, F.Dense)
		if i == 0 {
			v[i+1] = fmt.Sprintf("%6.2f %6.2f %6.2f\n", row[0], row[1], row[2])
		} else if i == r-1 {
			v[i+1] = fmt.Sprintf(" %6.2f %6.2f %6.2f", row[0], row[1], row[2])
		} else {
			v[i+1] = fmt.Sprintf(" %6.2f %6.2f %6.2f\n", row[0], row[1], row[2])
		}
	}
	v[len(v)-2] = strings.Replace(v[len(v)-2], "\n", "", 1)
	return strings.Join(v, "")
}

// Error implements the error interface for matrix handling errors.
type Error string

func (err Error) Error() string { return string(err) }

// Decorate adds the dec string to the decoration slice of strings of
// the error, and returns the resulting slice.
func (err Error) Decorate(dec string) []string {
	if dec == "" {
		return []string{string(err)}
	}
	return []string{string(err), dec}
}

// PanicMsg is a message used for panics, even though it does satisfy
// the error interface. For errors use Error.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrNotXx3Matrix = PanicMsg("oxdna/vec: A vector Matrix must have 3 columns")
)
