package persistence

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// FileReader is a buffered, seekable reader of a plain file.
type FileReader struct {
	file *os.File
	buf  *bufio.Reader
}

// A compile time check to ensure that FileReader fully implements the SeekSource interface.
var _ SeekSource = (*FileReader)(nil)

func NewFileReader(name string) (*FileReader, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open file for reading: %w", err)
	}
	return &FileReader{
		file: file,
		buf:  bufio.NewReader(file),
	}, nil
}

func (r *FileReader) Read(p []byte) (int, error) {
	return r.buf.Read(p)
}

func (r *FileReader) ReadByte() (byte, error) {
	return r.buf.ReadByte()
}

// Seek sets the offset of the next read. Offsets relative to io.SeekCurrent
// are relative to the next unread byte, not to the underlying file offset.
func (r *FileReader) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekCurrent {
		if offset >= 0 && offset <= int64(r.buf.Buffered()) {
			if _, err := r.buf.Discard(int(offset)); err != nil {
				return 0, err
			}
			pos, err := r.file.Seek(0, io.SeekCurrent)
			if err != nil {
				return 0, fmt.Errorf("failed to seek in %s: %w", r.file.Name(), err)
			}
			return pos - int64(r.buf.Buffered()), nil
		}
		offset -= int64(r.buf.Buffered())
	}

	pos, err := r.file.Seek(offset, whence)
	if err != nil {
		return 0, fmt.Errorf("failed to seek in %s: %w", r.file.Name(), err)
	}
	r.buf.Reset(r.file)
	return pos, nil
}

func (r *FileReader) Size() (int64, error) {
	info, err := r.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to get stats for %s: %w", r.file.Name(), err)
	}
	return info.Size(), nil
}

func (r *FileReader) Name() string {
	return r.file.Name()
}

func (r *FileReader) Close() error {
	return r.file.Close()
}
