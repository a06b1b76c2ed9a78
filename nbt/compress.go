package nbt

import (
	"bufio"
	"errors"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Compression identifies how a tag tree is wrapped on disk.
type Compression byte

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZlib
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZlib:
		return "zlib"
	default:
		return "none"
	}
}

var ErrInvalidCompression = errors.New("nbt: invalid compression header")

// SniffCompression inspects the first two bytes without consuming them.
func SniffCompression(r *bufio.Reader) (Compression, error) {
	magic, err := r.Peek(2)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, bufio.ErrBufferFull) {
			return CompressionNone, nil
		}
		return CompressionNone, err
	}
	switch {
	case magic[0] == 0x1f && magic[1] == 0x8b:
		return CompressionGzip, nil
	case magic[0] == 0x78 && (uint16(magic[0])<<8|uint16(magic[1]))%31 == 0:
		// A raw tag tree never starts with 0x78: that is not a valid tag type.
		return CompressionZlib, nil
	}
	return CompressionNone, nil
}

// Decompress returns a reader over the uncompressed tag tree. The returned closer must be
// closed by the caller once decoding finished; it does not close source.
func Decompress(source io.Reader) (io.Reader, io.Closer, Compression, error) {
	buffered := bufio.NewReader(source)
	comp, err := SniffCompression(buffered)
	if err != nil {
		return nil, nil, comp, err
	}

	switch comp {
	case CompressionGzip:
		zr, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, nil, comp, errors.Join(ErrInvalidCompression, err)
		}
		return zr, zr, comp, nil
	case CompressionZlib:
		zr, err := zlib.NewReader(buffered)
		if err != nil {
			return nil, nil, comp, errors.Join(ErrInvalidCompression, err)
		}
		return zr, zr, comp, nil
	default:
		return buffered, io.NopCloser(nil), comp, nil
	}
}
