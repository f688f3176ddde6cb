/*
 * dat.go, part of oxdna
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

/*Package dat reads and writes oxDNA configuration and trajectory files.

A trajectory is a concatenation of configurations. Each configuration is a
three-line header,

	t = 3000
	b = 20 20 20
	E = -1.4 -1.6 0

followed by one line per particle with either 9 whitespace-separated fields
(position, a1 versor, a3 versor) or 15 (the same plus velocity and angular
velocity, which are discarded on reading).

Describe indexes a trajectory by byte offset so that any range of
configurations can be read directly with GetConfs, also from several
goroutines at once. Reader walks a trajectory sequentially instead, which is
slower for random access but also works on gzip, zstd and lzw-compressed
files.*/
package dat

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	oxdna "github.com/tilibit/oxdna"
	"github.com/tilibit/oxdna/vec"
)

// TopInfo holds the metadata of a topology file.
type TopInfo struct {
	//Path to the topology file, or the empty string if the particle count
	//was taken from the trajectory itself.
	Path string
	//NBases is the number of particles in the system.
	NBases int
}

// ConfInfo locates one configuration inside a trajectory file.
type ConfInfo struct {
	//Offset of the configuration's "t" line from the start of the file.
	Offset int64
	//Size of the configuration in bytes.
	Size int64
	//ID of the configuration within the trajectory, starting from 0.
	ID int
}

// TrajInfo holds the metadata of an indexed trajectory file.
type TrajInfo struct {
	Path   string
	NConfs int
	//Idxs has one entry per configuration, in file order, so offsets are
	//strictly increasing.
	Idxs []ConfInfo
	//InclV tells whether the particle lines carry velocities.
	InclV bool
}

// ReadTopology reads the particle count from the header of a topology file.
// Both the old-style "nbases nstrands" header and the newer one with a
// trailing 5->3 marker are accepted, as only the first field is used.
func ReadTopology(name string) (*TopInfo, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"ReadTopology"}, true}
	}
	defer f.Close()
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, Error{ReadError + ": " + err.Error(), name, []string{"ReadTopology"}, true}
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, FormatError{message: "empty topology header", filename: name}
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 1 {
		return nil, FormatError{message: fmt.Sprintf("can not read a particle count from %q", fields[0]), filename: name}
	}
	return &TopInfo{Path: name, NBases: n}, nil
}

// Describe indexes the trajectory in trajfile so its configurations can be
// read in any order with GetConfs. If topfile is the empty string the
// particle count is taken from the first configuration of the trajectory
// instead of from a topology. Compressed trajectories can not be indexed;
// read those sequentially with a Reader.
func Describe(topfile, trajfile string) (*TopInfo, *TrajInfo, error) {
	top := &TopInfo{}
	if topfile != "" {
		var err error
		top, err = ReadTopology(topfile)
		if err != nil {
			return nil, nil, errDecorate(err, "Describe")
		}
	}
	if ext := lastExtension(trajfile); ext == "gz" || ext == "zst" || ext == "zstd" || ext == "lzw" {
		return nil, nil, Error{CompressedTraj, trajfile, []string{"Describe"}, true}
	}
	traj, err := indexTrajectory(top, trajfile)
	if err != nil {
		return nil, nil, errDecorate(err, "Describe")
	}
	return top, traj, nil
}

// indexTrajectory scans trajfile once, recording the byte offset and size of
// every configuration. It fills in top.NBases when the count is not known
// beforehand, and checks every frame against it.
func indexTrajectory(top *TopInfo, trajfile string) (*TrajInfo, error) {
	f, err := os.Open(trajfile)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), trajfile, []string{"indexTrajectory"}, true}
	}
	defer f.Close()
	r := bufio.NewReader(f)
	tr := &TrajInfo{Path: trajfile}
	var offset int64
	nlines := 0 //particle lines seen in the current frame
	sawParticle := false
	closeFrame := func(end int64) error {
		if len(tr.Idxs) == 0 {
			return nil
		}
		last := &tr.Idxs[len(tr.Idxs)-1]
		last.Size = end - last.Offset
		if top.NBases == 0 {
			//no topology: the first frame defines the particle count
			if nlines == 0 {
				return FormatError{message: "frame without particle lines", filename: trajfile, offset: last.Offset}
			}
			top.NBases = nlines
		}
		if nlines != top.NBases {
			return FormatError{message: fmt.Sprintf("frame has %d particle lines, expected %d", nlines, top.NBases), filename: trajfile, offset: last.Offset}
		}
		return nil
	}
	for {
		line, rerr := r.ReadBytes('\n')
		if len(line) > 0 {
			switch line[0] {
			case 't':
				if err := closeFrame(offset); err != nil {
					return nil, err
				}
				tr.Idxs = append(tr.Idxs, ConfInfo{Offset: offset, ID: len(tr.Idxs)})
				nlines = 0
			case 'b', 'E':
				if len(tr.Idxs) == 0 {
					return nil, FormatError{message: fmt.Sprintf("%q line before the first time line", line[0]), filename: trajfile, offset: offset}
				}
			default:
				if trim := bytes.TrimSpace(line); len(trim) > 0 {
					if len(tr.Idxs) == 0 {
						return nil, FormatError{message: "particle line before the first time line", filename: trajfile, offset: offset}
					}
					if !sawParticle {
						switch nf := len(bytes.Fields(trim)); nf {
						case 9:
						case 15:
							tr.InclV = true
						default:
							return nil, FormatError{message: fmt.Sprintf("particle line has %d fields, want 9 or 15", nf), filename: trajfile, offset: offset}
						}
						sawParticle = true
					}
					nlines++
				}
			}
			offset += int64(len(line))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, Error{ReadError + ": " + rerr.Error(), trajfile, []string{"indexTrajectory"}, true}
		}
	}
	if err := closeFrame(offset); err != nil {
		return nil, err
	}
	if len(tr.Idxs) == 0 {
		return nil, FormatError{message: "no configurations found", filename: trajfile}
	}
	tr.NConfs = len(tr.Idxs)
	return tr, nil
}

// GetConfs reads n configurations from the indexed trajectory tr, starting
// with configuration number start. The range is read with a single read call,
// so it is safe and efficient to call GetConfs on the same TrajInfo from
// several goroutines. Requests past the end of the trajectory return an
// OutOfRangeError.
func GetConfs(top *TopInfo, tr *TrajInfo, start, n int) ([]*oxdna.Configuration, error) {
	if start < 0 || n < 0 || start+n > tr.NConfs {
		return nil, OutOfRangeError{filename: tr.Path, start: start, n: n, nconfs: tr.NConfs}
	}
	if n == 0 {
		return nil, nil
	}
	f, err := os.Open(tr.Path)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), tr.Path, []string{"GetConfs"}, true}
	}
	defer f.Close()
	first := tr.Idxs[start]
	last := tr.Idxs[start+n-1]
	buf := make([]byte, last.Offset+last.Size-first.Offset)
	nread, err := f.ReadAt(buf, first.Offset)
	if err == io.EOF && nread == len(buf) {
		err = nil
	}
	if err != nil {
		return nil, Error{ReadError + ": " + err.Error(), tr.Path, []string{"GetConfs"}, true}
	}
	confs := make([]*oxdna.Configuration, 0, n)
	for i := start; i < start+n; i++ {
		ci := tr.Idxs[i]
		rel := ci.Offset - first.Offset
		c, err := parseConf(top.NBases, buf[rel:rel+ci.Size], ci.Offset, tr.Path)
		if err != nil {
			return nil, errDecorate(err, "GetConfs")
		}
		confs = append(confs, c)
	}
	return confs, nil
}

// parseConf parses the bytes of a single configuration. base is the offset
// of b within the trajectory file, used for error reporting only.
func parseConf(nbases int, b []byte, base int64, fname string) (*oxdna.Configuration, error) {
	c := new(oxdna.Configuration)
	pos := make([]float64, 0, 3*nbases)
	a1 := make([]float64, 0, 3*nbases)
	a3 := make([]float64, 0, 3*nbases)
	found := 0
	off := base
	for len(b) > 0 {
		var line []byte
		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			line, b = b[:i], b[i+1:]
		} else {
			line, b = b, nil
		}
		lineOff := off
		off += int64(len(line) + 1)
		fields := bytes.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch {
		case line[0] == 't':
			eq := bytes.IndexByte(line, '=')
			if eq < 0 {
				return nil, FormatError{message: "time line without '='", filename: fname, offset: lineOff}
			}
			ft, err := strconv.ParseFloat(strings.TrimSpace(string(line[eq+1:])), 64)
			if err != nil {
				return nil, FormatError{message: "can not parse time: " + err.Error(), filename: fname, offset: lineOff}
			}
			c.Time = int64(ft)
		case line[0] == 'b':
			if err := parseHeaderVector(fields, &c.Box); err != nil {
				return nil, FormatError{message: "box line: " + err.Error(), filename: fname, offset: lineOff}
			}
		case line[0] == 'E':
			if err := parseHeaderVector(fields, &c.Energy); err != nil {
				return nil, FormatError{message: "energy line: " + err.Error(), filename: fname, offset: lineOff}
			}
		default:
			if len(fields) != 9 && len(fields) != 15 {
				return nil, FormatError{message: fmt.Sprintf("particle line has %d fields, want 9 or 15", len(fields)), filename: fname, offset: lineOff}
			}
			var v [9]float64
			for i := 0; i < 9; i++ {
				var err error
				v[i], err = strconv.ParseFloat(string(fields[i]), 64)
				if err != nil {
					return nil, FormatError{message: "can not parse coordinate: " + err.Error(), filename: fname, offset: lineOff}
				}
			}
			pos = append(pos, v[0], v[1], v[2])
			a1 = append(a1, v[3], v[4], v[5])
			a3 = append(a3, v[6], v[7], v[8])
			found++
		}
	}
	if found != nbases {
		return nil, FormatError{message: fmt.Sprintf("frame has %d particle lines, expected %d", found, nbases), filename: fname, offset: base}
	}
	var err error
	if c.Positions, err = vec.New(pos); err != nil {
		return nil, FormatError{message: err.Error(), filename: fname, offset: base}
	}
	if c.A1s, err = vec.New(a1); err != nil {
		return nil, FormatError{message: err.Error(), filename: fname, offset: base}
	}
	if c.A3s, err = vec.New(a3); err != nil {
		return nil, FormatError{message: err.Error(), filename: fname, offset: base}
	}
	return c, nil
}

// parseHeaderVector parses the 3 values of a "b = x y z" or "E = x y z" line.
func parseHeaderVector(fields [][]byte, out *[3]float64) error {
	if len(fields) != 5 || string(fields[1]) != "=" {
		return fmt.Errorf("has %d components, want 3", len(fields)-2)
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(string(fields[i+2]), 64)
		if err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

// lastExtension returns the lowercased text after the last dot of a
// file name.
func lastExtension(fname string) string {
	temp := strings.Split(fname, ".")
	return strings.ToLower(temp[len(temp)-1])
}

//Errors

// errDecorate is a helper function that asserts that the error
// implements oxdna.Error and decorates the error with the caller's name
// before returning it. If used with a non-oxdna.Error error, it will cause a
// panic.
func errDecorate(err error, caller string) error {
	err2 := err.(oxdna.Error)
	err2.Decorate(caller)
	return err2
}

// Error is the general structure for DAT trajectory errors. It fulfills
// oxdna.Error and oxdna.TrajError.
type Error struct {
	message  string
	filename string //the input file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("dat file %s error: %s", err.filename, err.message)
}

// Decorate adds new information to the error
func (err Error) Decorate(deco string) []string {
	//Even though this method does not use a pointer as a receiver, and tries to alter the receiver,
	//it should work, since err.deco is a slice, and hence a pointer itself.
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

// FileName returns the file to which the failing trajectory was associated
func (err Error) FileName() string { return err.filename }

// Format returns the format of the file (always "dat") associated to the error
func (err Error) Format() string { return "dat" }

// Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

// FormatError reports malformed text in a configuration, trajectory or
// topology file. It fulfills oxdna.Error and oxdna.TrajError, and can be
// recovered from a decorated error with errors.As.
type FormatError struct {
	message  string
	filename string
	offset   int64
	deco     []string
}

func (err FormatError) Error() string {
	return fmt.Sprintf("dat file %s: byte %d: %s", err.filename, err.offset, err.message)
}

// Offset returns the position of the offending bytes in the file. For
// compressed trajectories it refers to the decompressed stream.
func (err FormatError) Offset() int64 { return err.offset }

// Decorate adds new information to the error
func (err FormatError) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

func (err FormatError) FileName() string { return err.filename }

func (err FormatError) Format() string { return "dat" }

func (err FormatError) Critical() bool { return true }

// OutOfRangeError reports a request for configurations that a trajectory
// does not contain.
type OutOfRangeError struct {
	filename string
	start, n int
	nconfs   int
	deco     []string
}

func (err OutOfRangeError) Error() string {
	return fmt.Sprintf("dat file %s: requested configurations %d to %d of a trajectory with %d", err.filename, err.start, err.start+err.n-1, err.nconfs)
}

// Decorate adds new information to the error
func (err OutOfRangeError) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

func (err OutOfRangeError) FileName() string { return err.filename }

func (err OutOfRangeError) Format() string { return "dat" }

func (err OutOfRangeError) Critical() bool { return true }

const (
	TrajUnIniRead  = "Traj object uninitialized to read"
	TrajUnIniWrite = "Traj object uninitialized to write"
	ReadError      = "Error reading frame"
	UnableToOpen   = "Unable to open file"
	NilCoordinates = "Given nil coordinates"
	WrongFormat    = "Wrong format in the DAT file or frame"
	CompressedTraj = "Can not index a compressed trajectory, read it sequentially instead"
	EOF            = "EOF"
)

// lastFrameError implements oxdna.LastFrameError
type lastFrameError struct {
	deco     []string
	fileName string
}

// NormalLastFrameTermination does nothing
func (E lastFrameError) NormalLastFrameTermination() {}

func (E lastFrameError) FileName() string { return E.fileName }

func (E lastFrameError) Error() string { return "EOF" }

func (E lastFrameError) Critical() bool { return false }

func (E lastFrameError) Format() string { return "dat" }

func (E lastFrameError) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

func newlastFrameError(filename string, caller string) *lastFrameError {
	e := new(lastFrameError)
	e.fileName = filename
	e.deco = []string{caller}
	return e
}
