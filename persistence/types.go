package persistence

import "io"

// Source is a byte source units are read from.
type Source interface {
	io.Reader
	io.ByteReader
	io.Closer
}

// SeekSource is a Source with random access and a known size.
type SeekSource interface {
	Source
	io.Seeker
	Size() (int64, error)
}
