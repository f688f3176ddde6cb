/*
 * write.go, part of oxdna
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

package dat

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	oxdna "github.com/tilibit/oxdna"
)

// fstr formats a float as the shortest decimal string that parses back to
// exactly the same value, so serializing is deterministic and round trips
// are bit-stable.
func fstr(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ConfToString serializes a configuration in the oxDNA text format. If
// includeVel is true, zero velocities and angular velocities are appended to
// every particle line, as velocities are not kept when reading. The same
// configuration always serializes to the same bytes.
func ConfToString(c *oxdna.Configuration, includeVel bool) string {
	var b strings.Builder
	b.WriteString("t = ")
	b.WriteString(strconv.FormatInt(c.Time, 10))
	b.WriteString("\nb = ")
	b.WriteString(fstr(c.Box[0]))
	b.WriteByte(' ')
	b.WriteString(fstr(c.Box[1]))
	b.WriteByte(' ')
	b.WriteString(fstr(c.Box[2]))
	b.WriteString("\nE = ")
	b.WriteString(fstr(c.Energy[0]))
	b.WriteByte(' ')
	b.WriteString(fstr(c.Energy[1]))
	b.WriteByte(' ')
	b.WriteString(fstr(c.Energy[2]))
	b.WriteByte('\n')
	n := c.Len()
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(fstr(c.Positions.At(i, j)))
		}
		for j := 0; j < 3; j++ {
			b.WriteByte(' ')
			b.WriteString(fstr(c.A1s.At(i, j)))
		}
		for j := 0; j < 3; j++ {
			b.WriteByte(' ')
			b.WriteString(fstr(c.A3s.At(i, j)))
		}
		if includeVel {
			b.WriteString(" 0 0 0 0 0 0")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

//Write!

// Writer writes configurations to a trajectory file, compressing on the fly
// if the file name carries a .gz, .zst/.zstd or .lzw extension.
type Writer struct {
	f         *os.File
	h         io.Writer
	c         io.WriteCloser //compression layer, nil for a plain file
	natoms    int
	inclV     bool
	filename  string
	writeable bool
}

// NewWriter creates the named trajectory file, truncating it if it already
// exists. Every configuration written must have natoms particles. If
// includeVel is true, particle lines are padded with zero velocities.
func NewWriter(name string, natoms int, includeVel bool) (*Writer, error) {
	W := new(Writer)
	var err error
	W.f, err = os.Create(name)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"NewWriter"}, true}
	}
	W.h, W.c, err = prepSink(W.f, name)
	if err != nil {
		W.f.Close()
		return nil, errDecorate(err, "NewWriter")
	}
	W.natoms = natoms
	W.inclV = includeVel
	W.filename = name
	W.writeable = true
	return W, nil
}

// WConf serializes the given configuration and appends it to the trajectory.
func (W *Writer) WConf(c *oxdna.Configuration) error {
	if !W.writeable {
		return Error{TrajUnIniWrite, W.filename, []string{"WConf"}, true}
	}
	if c == nil || c.Positions == nil {
		return Error{NilCoordinates, W.filename, []string{"WConf"}, true}
	}
	if v := c.Len(); v != W.natoms {
		return Error{fmt.Sprintf("%d particles given, but %d expected", v, W.natoms), W.filename, []string{"WConf"}, true}
	}
	if _, err := io.WriteString(W.h, ConfToString(c, W.inclV)); err != nil {
		return Error{err.Error(), W.filename, []string{"WConf"}, true}
	}
	return nil
}

// Write appends raw, already serialized configurations to the trajectory,
// so the Writer can be used as an io.Writer for pre-rendered chunks.
func (W *Writer) Write(b []byte) (int, error) {
	if !W.writeable {
		return 0, Error{TrajUnIniWrite, W.filename, []string{"Write"}, true}
	}
	return W.h.Write(b)
}

// Len returns the number of particles expected in each written frame.
func (W *Writer) Len() int {
	return W.natoms
}

// Close flushes the compression layer, if any, and closes the file. The
// error matters: for compressed output, buffered data is only written out
// here.
func (W *Writer) Close() error {
	if !W.writeable {
		return nil
	}
	W.writeable = false
	if W.c != nil {
		if err := W.c.Close(); err != nil {
			W.f.Close()
			return Error{err.Error(), W.filename, []string{"Close"}, true}
		}
	}
	if err := W.f.Close(); err != nil {
		return Error{err.Error(), W.filename, []string{"Close"}, true}
	}
	return nil
}

// WriteConf writes a single configuration to the named file.
func WriteConf(name string, c *oxdna.Configuration, includeVel bool) error {
	W, err := NewWriter(name, c.Len(), includeVel)
	if err != nil {
		return errDecorate(err, "WriteConf")
	}
	if err := W.WConf(c); err != nil {
		W.Close()
		return errDecorate(err, "WriteConf")
	}
	return W.Close()
}
