package persistence

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type Compression int

const (
	NoCompression Compression = iota
	Gzip
	Zstd
	// Brotli streams have no header to detect; they are recognized by the
	// ".br" file extension.
	Brotli
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case Brotli:
		return "brotli"
	default:
		return "unknown"
	}
}

// Sniff detects the compression of the data buffered in br without consuming it.
func Sniff(br *bufio.Reader) Compression {
	magic, _ := br.Peek(len(zstdMagic))
	switch {
	case bytes.HasPrefix(magic, zstdMagic):
		return Zstd
	case bytes.HasPrefix(magic, gzipMagic):
		return Gzip
	default:
		return NoCompression
	}
}

// StreamReader is a forward-only Source.
type StreamReader struct {
	*bufio.Reader
	closers []func() error
}

// A compile time check to ensure that StreamReader fully implements the Source interface.
var _ Source = (*StreamReader)(nil)

// Wrap returns a Source reading rc, decompressing it when its content starts
// with a gzip or zstd header. Closing the Source closes rc.
func Wrap(rc io.ReadCloser) (*StreamReader, error) {
	br := bufio.NewReader(rc)
	return decompress(br, Sniff(br), rc.Close)
}

func decompress(br *bufio.Reader, c Compression, closeSource func() error) (*StreamReader, error) {
	switch c {
	case Gzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to open gzip stream: %w", err), closeSource())
		}
		return &StreamReader{
			Reader:  bufio.NewReader(zr),
			closers: []func() error{zr.Close, closeSource},
		}, nil
	case Zstd:
		dec, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to open zstd stream: %w", err), closeSource())
		}
		return &StreamReader{
			Reader: bufio.NewReader(dec),
			closers: []func() error{
				func() error { dec.Close(); return nil },
				closeSource,
			},
		}, nil
	case Brotli:
		return &StreamReader{
			Reader:  bufio.NewReader(brotli.NewReader(br)),
			closers: []func() error{closeSource},
		}, nil
	default:
		return &StreamReader{
			Reader:  br,
			closers: []func() error{closeSource},
		}, nil
	}
}

func (r *StreamReader) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
