/*
 * compressed.go, part of oxdna
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
	"compress/gzip"
	"compress/lzw"
	"io"
	"log"
	"os"

	"github.com/klauspost/compress/zstd"
)

const (
	lzwOrder        = lzw.MSB
	lzwLitwidth int = 8
)

//This will cause an additional indirection, but each Read call takes enough
//time to make the delay irrelevant.
//Also, why couldn't *zstd.Decoder implement io.ReadCloser? :-(
type stdql struct {
	closeql func()
	*zstd.Decoder
}

// Close closes the object. It can not be used after this call
func (s stdql) Close() error {
	s.closeql()
	return nil
}

// prepSource takes an open trajectory file and returns an object that will
// read data from it, either 'as is' or decompressing first, depending on the
// file extension. Extensions supported are .gz (gzip), .zst/.zstd and .lzw;
// anything else is taken to be a plain text trajectory, with a message
// logged if the extension is not a usual one for that. The second return is
// the decompression layer to be closed after use, or nil for a plain file.
func prepSource(f *os.File, fname string) (io.Reader, io.ReadCloser, error) {
	switch fk := lastExtension(fname); fk {
	case "dat", "conf", "oxdna":
		return f, nil, nil
	case "lzw":
		r := lzw.NewReader(bufio.NewReader(f), lzwOrder, lzwLitwidth)
		return r, r, nil
	case "gz":
		r, err := gzip.NewReader(bufio.NewReader(f))
		if err != nil {
			return nil, nil, Error{"Can't read header " + err.Error(), fname, []string{"prepSource"}, true}
		}
		return r, r, nil
	case "zst", "zstd":
		r, err := zstd.NewReader(bufio.NewReader(f))
		if err != nil {
			return nil, nil, Error{"Can't read header " + err.Error(), fname, []string{"prepSource"}, true}
		}
		ql := stdql{r.Close, r}
		return ql, ql, nil
	default:
		log.Printf("Extension %s not recognized. %s will be assumed to be a plain oxDNA trajectory", fk, fname)
		return f, nil, nil
	}
}

// prepSink is the writing counterpart of prepSource: it wraps an open target
// file in the compression layer matching its extension. The second return is
// the layer that must be closed to flush it, or nil for a plain file.
func prepSink(f *os.File, fname string) (io.Writer, io.WriteCloser, error) {
	switch fk := lastExtension(fname); fk {
	case "dat", "conf", "oxdna":
		return f, nil, nil
	case "lzw":
		w := lzw.NewWriter(f, lzwOrder, lzwLitwidth)
		return w, w, nil
	case "gz":
		w := gzip.NewWriter(f)
		return w, w, nil
	case "zst", "zstd":
		w, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return nil, nil, Error{"Can't prepare compressor " + err.Error(), fname, []string{"prepSink"}, true}
		}
		return w, w, nil
	default:
		log.Printf("Extension %s not recognized. %s will be written as a plain oxDNA trajectory", fk, fname)
		return f, nil, nil
	}
}
