// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dataset stores generated value sequences on disk.
//
// A dataset file is a 24 byte header followed by the little-endian values:
//
//	magic    [4]byte  "MODS"
//	version  uint8
//	width    uint8    4 or 8
//	flags    uint8    bit 0: payload is an lz4 frame
//	reserved uint8
//	count    uint64
//	checksum uint64   xxhash64 of the uncompressed payload
package dataset

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/pierrec/lz4/v4"

	"github.com/matrixorigin/benchdata/pkg/common/moerr"
)

const (
	Magic   = "MODS"
	Version = 1

	HeaderSize = 24

	FlagLZ4 uint8 = 1 << 0
)

// chunk is the number of payload bytes encoded or decoded per batch.
const chunk = 64 << 10

type Word interface {
	~uint32 | ~uint64
}

type Header struct {
	Version  uint8
	Width    uint8
	Flags    uint8
	Count    uint64
	Checksum uint64
}

func (h Header) Compressed() bool {
	return h.Flags&FlagLZ4 != 0
}

func (h Header) encode(buf []byte) {
	copy(buf, Magic)
	buf[4] = h.Version
	buf[5] = h.Width
	buf[6] = h.Flags
	buf[7] = 0
	binary.LittleEndian.PutUint64(buf[8:], h.Count)
	binary.LittleEndian.PutUint64(buf[16:], h.Checksum)
}

func decodeHeader(ctx context.Context, name string, buf []byte) (Header, error) {
	if string(buf[:4]) != Magic {
		return Header{}, moerr.NewBadMagic(ctx, name)
	}
	h := Header{
		Version:  buf[4],
		Width:    buf[5],
		Flags:    buf[6],
		Count:    binary.LittleEndian.Uint64(buf[8:]),
		Checksum: binary.LittleEndian.Uint64(buf[16:]),
	}
	if h.Version != Version {
		return Header{}, moerr.NewNotSupported(ctx, "dataset version %d", h.Version)
	}
	if h.Width != 4 && h.Width != 8 {
		return Header{}, moerr.NewInvalidInput(ctx, "dataset element width %d", h.Width)
	}
	// the payload length and the decoded slice must both be addressable
	if h.Count > uint64(math.MaxInt)/uint64(h.Width) {
		return Header{}, moerr.NewInvalidInput(ctx, "dataset count %d", h.Count)
	}
	return h, nil
}

// File is a decoded dataset. Exactly one of U32 and U64 is set, matching
// Header.Width.
type File struct {
	Header
	U32 []uint32
	U64 []uint64
}

func (f *File) Len() int {
	if f.Width == 4 {
		return len(f.U32)
	}
	return len(f.U64)
}

func widthOf[T Word]() uint8 {
	var zero T
	if uint64(^zero) == uint64(^uint32(0)) {
		return 4
	}
	return 8
}

func appendValues[T Word](dst []byte, values []T, width uint8) []byte {
	for _, v := range values {
		if width == 4 {
			dst = binary.LittleEndian.AppendUint32(dst, uint32(v))
		} else {
			dst = binary.LittleEndian.AppendUint64(dst, uint64(v))
		}
	}
	return dst
}

// Checksum returns the xxhash64 of the encoded payload of values, the same
// value Write stores in the header.
func Checksum[T Word](values []T) uint64 {
	width := widthOf[T]()
	per := chunk / int(width)
	d := xxhash.New()
	buf := make([]byte, 0, chunk)
	for len(values) > 0 {
		n := min(per, len(values))
		buf = appendValues(buf[:0], values[:n], width)
		_, _ = d.Write(buf)
		values = values[n:]
	}
	return d.Sum64()
}

// Write encodes values to w. The payload is lz4 framed when compress is set.
func Write[T Word](w io.Writer, values []T, compress bool) (Header, error) {
	h := Header{
		Version:  Version,
		Width:    widthOf[T](),
		Count:    uint64(len(values)),
		Checksum: Checksum(values),
	}
	if compress {
		h.Flags |= FlagLZ4
	}

	var hdr [HeaderSize]byte
	h.encode(hdr[:])
	if _, err := w.Write(hdr[:]); err != nil {
		return Header{}, err
	}

	payload := w
	var zw *lz4.Writer
	if compress {
		zw = lz4.NewWriter(w)
		payload = zw
	}
	per := chunk / int(h.Width)
	buf := make([]byte, 0, chunk)
	for rest := values; len(rest) > 0; {
		n := min(per, len(rest))
		buf = appendValues(buf[:0], rest[:n], h.Width)
		if _, err := payload.Write(buf); err != nil {
			return Header{}, err
		}
		rest = rest[n:]
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return Header{}, err
		}
	}
	return h, nil
}

// Read decodes a dataset from r and verifies its checksum.
func Read(ctx context.Context, r io.Reader) (*File, error) {
	return read(ctx, "dataset", r)
}

func read(ctx context.Context, name string, r io.Reader) (*File, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, eofError(ctx, name, err)
	}
	h, err := decodeHeader(ctx, name, hdr[:])
	if err != nil {
		return nil, err
	}

	payload := r
	if h.Compressed() {
		payload = lz4.NewReader(r)
	}

	f := &File{Header: h}
	// grow with the data rather than trusting count for the allocation
	hint := int(min(h.Count, 1<<20))
	if h.Width == 4 {
		f.U32 = make([]uint32, 0, hint)
	} else {
		f.U64 = make([]uint64, 0, hint)
	}

	d := xxhash.New()
	buf := make([]byte, chunk)
	width := uint64(h.Width)
	for left := h.Count * width; left > 0; {
		n := min(left, uint64(len(buf)))
		if _, err := io.ReadFull(payload, buf[:n]); err != nil {
			return nil, eofError(ctx, name, err)
		}
		_, _ = d.Write(buf[:n])
		for i := uint64(0); i < n; i += width {
			if width == 4 {
				f.U32 = append(f.U32, binary.LittleEndian.Uint32(buf[i:]))
			} else {
				f.U64 = append(f.U64, binary.LittleEndian.Uint64(buf[i:]))
			}
		}
		left -= n
	}

	if sum := d.Sum64(); sum != h.Checksum {
		return nil, moerr.NewChecksumMismatch(ctx, "%s: stored %016x, computed %016x", name, h.Checksum, sum)
	}
	return f, nil
}

func eofError(ctx context.Context, name string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return moerr.NewUnexpectedEOF(ctx, name)
	}
	return moerr.ConvertGoError(ctx, err)
}

// WriteFile writes values to a new file at path. An existing file is an
// error.
func WriteFile[T Word](ctx context.Context, path string, values []T, compress bool) (Header, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return Header{}, moerr.NewFileAlreadyExists(ctx, path)
		}
		return Header{}, moerr.ConvertGoError(ctx, err)
	}
	bw := bufio.NewWriterSize(f, chunk)
	h, err := Write(bw, values, compress)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return Header{}, moerr.ConvertGoError(ctx, err)
	}
	return h, nil
}

func ReadFile(ctx context.Context, path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, moerr.ConvertGoError(ctx, err)
	}
	defer f.Close()
	return read(ctx, path, bufio.NewReaderSize(f, chunk))
}
