// Package compression detects and unwraps compressed dump streams.
package compression

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/dump-analysis/pkg/errors"
)

// Type represents the compression algorithm of a stream.
type Type uint8

const (
	// TypeNone is uncompressed text.
	TypeNone Type = iota
	// TypeGzip uses gzip compression.
	TypeGzip
	// TypeZstd uses zstd compression.
	TypeZstd
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// String returns the string representation of Type.
func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeGzip:
		return "gzip"
	case TypeZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Detect returns the compression type indicated by the magic bytes at the
// start of header. Anything unrecognised is treated as plain text.
func Detect(header []byte) Type {
	switch {
	case bytes.HasPrefix(header, zstdMagic):
		return TypeZstd
	case bytes.HasPrefix(header, gzipMagic):
		return TypeGzip
	default:
		return TypeNone
	}
}

// NewReader returns a reader yielding the decompressed content of r.
// Plain input is passed through unchanged. Closing the returned reader
// does not close r.
func NewReader(r io.Reader) (io.ReadCloser, Type, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, TypeNone, errors.Wrap(errors.CodeParseError, "failed to read stream header", err)
	}

	switch t := Detect(header); t {
	case TypeGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, t, errors.Wrap(errors.CodeParseError, "invalid gzip stream", err)
		}
		return gz, t, nil
	case TypeZstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, t, errors.Wrap(errors.CodeParseError, "invalid zstd stream", err)
		}
		return dec.IOReadCloser(), t, nil
	default:
		return io.NopCloser(br), t, nil
	}
}
