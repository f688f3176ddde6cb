/*
 * reader.go, part of oxdna
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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	oxdna "github.com/tilibit/oxdna"
)

//Read!

// Reader walks a trajectory file one configuration at a time. Unlike the
// Describe/GetConfs pair it does not need to seek, so it also reads gzip,
// zstd and lzw-compressed trajectories, picked by file extension. It
// implements oxdna.Traj.
type Reader struct {
	f        *os.File
	zr       io.ReadCloser //decompression layer, nil for a plain file
	h        *bufio.Reader
	natoms   int
	inclV    bool
	filename string
	readable bool
	offset   int64 //bytes consumed from the (decompressed) stream
	//the first frame is read at New time to learn the particle count,
	//and replayed on the first call to Next.
	pending    []byte
	pendingOff int64
}

// New opens a trajectory for sequential reading and returns a pointer to the
// handle. The first configuration is read immediately, so the particle count
// is available from Len right away.
func New(name string) (*Reader, error) {
	R := new(Reader)
	R.natoms = -1 //just so we know if things don't work
	R.filename = name
	var err error
	R.f, err = os.Open(name)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"New"}, true}
	}
	src, zr, err := prepSource(R.f, name)
	if err != nil {
		R.f.Close()
		return nil, errDecorate(err, "New")
	}
	R.zr = zr
	R.h = bufio.NewReader(src)
	b, off, err := R.readFrame()
	if err != nil {
		R.closeHandles()
		if _, ok := err.(*lastFrameError); ok {
			return nil, Error{"no configurations found", name, []string{"New"}, true}
		}
		return nil, errDecorate(err, "New")
	}
	R.natoms, R.inclV, err = frameShape(b, off, name)
	if err != nil {
		R.closeHandles()
		return nil, errDecorate(err, "New")
	}
	R.pending = b
	R.pendingOff = off
	R.readable = true
	return R, nil
}

// readFrame reads the raw bytes of the next configuration, up to but not
// including the time line of the following one. It returns the offset of the
// frame in the decompressed stream, or an oxdna.LastFrameError if the
// trajectory ended cleanly before the frame.
func (R *Reader) readFrame() ([]byte, int64, error) {
	var buf bytes.Buffer
	start := R.offset
	first := true
	for {
		if !first {
			p, perr := R.h.Peek(1)
			if perr == io.EOF {
				break
			}
			if perr != nil {
				return nil, 0, Error{ReadError + ": " + perr.Error(), R.filename, []string{"readFrame"}, true}
			}
			if p[0] == 't' {
				break
			}
		}
		line, err := R.h.ReadBytes('\n')
		if len(line) > 0 {
			R.offset += int64(len(line))
			if first {
				if len(bytes.TrimSpace(line)) == 0 {
					//ignore blank lines between frames
				} else if line[0] != 't' {
					return nil, 0, FormatError{message: "expected a time line", filename: R.filename, offset: R.offset - int64(len(line))}
				} else {
					start = R.offset - int64(len(line))
					first = false
					buf.Write(line)
				}
			} else {
				buf.Write(line)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, Error{ReadError + ": " + err.Error(), R.filename, []string{"readFrame"}, true}
		}
	}
	if buf.Len() == 0 {
		return nil, 0, newlastFrameError(R.filename, "readFrame")
	}
	return buf.Bytes(), start, nil
}

// frameShape counts the particle lines of a raw frame and tells whether they
// carry velocities.
func frameShape(b []byte, base int64, fname string) (int, bool, error) {
	natoms := 0
	inclV := false
	off := base
	for _, line := range bytes.Split(b, []byte{'\n'}) {
		lineOff := off
		off += int64(len(line) + 1)
		trim := bytes.TrimSpace(line)
		if len(trim) == 0 || trim[0] == 't' || trim[0] == 'b' || trim[0] == 'E' {
			continue
		}
		if natoms == 0 {
			switch nf := len(bytes.Fields(trim)); nf {
			case 9:
			case 15:
				inclV = true
			default:
				return 0, false, FormatError{message: fmt.Sprintf("particle line has %d fields, want 9 or 15", nf), filename: fname, offset: lineOff}
			}
		}
		natoms++
	}
	if natoms == 0 {
		return 0, false, FormatError{message: "frame without particle lines", filename: fname, offset: base}
	}
	return natoms, inclV, nil
}

// Next reads the next configuration of the trajectory into c, or discards it
// if c is nil (the frame is still checked for correctness). If the error is
// an oxdna.LastFrameError, the end of the trajectory was reached cleanly,
// not an actual error, and the Reader has been closed.
func (R *Reader) Next(c *oxdna.Configuration) error {
	if !R.readable {
		return Error{TrajUnIniRead, R.filename, []string{"Next"}, true}
	}
	var b []byte
	var off int64
	if R.pending != nil {
		b, off = R.pending, R.pendingOff
		R.pending = nil
	} else {
		var err error
		b, off, err = R.readFrame()
		if err != nil {
			if lfe, ok := err.(*lastFrameError); ok {
				//nothing bad happened here, the trajectory just ended.
				R.Close()
				return lfe
			}
			return errDecorate(err, "Next")
		}
	}
	parsed, err := parseConf(R.natoms, b, off, R.filename)
	if err != nil {
		return errDecorate(err, "Next")
	}
	if c != nil {
		*c = *parsed
	}
	return nil
}

// Readable returns true if the handle is readable (if it is possible to call
// Next on it)
func (R *Reader) Readable() bool {
	return R.readable
}

// Len returns the number of particles in each frame of the trajectory.
func (R *Reader) Len() int {
	return R.natoms
}

// InclV tells whether the particle lines of the trajectory carry velocities.
func (R *Reader) InclV() bool {
	return R.inclV
}

// Close closes the object, and marks it as unreadable
func (R *Reader) Close() {
	if !R.readable {
		return
	}
	R.closeHandles()
	R.readable = false
}

func (R *Reader) closeHandles() {
	if R.zr != nil {
		R.zr.Close()
	}
	R.f.Close()
}
