package persistence

import (
	"errors"
	"fmt"
	"io"
)

// ErrNotSeekable matches errors.ErrUnsupported.
var ErrNotSeekable = fmt.Errorf("source is not seekable: %w", errors.ErrUnsupported)

// GroupReader concatenates several sources into one continuous Source.
type GroupReader struct {
	readers           []Source
	activeReaderIndex int
	// offset is the logical offset of the next byte, valid when sizes is set.
	offset int64
	// sizes holds the size of every reader, if all of them are SeekSources.
	sizes []int64
}

// A compile time check to ensure that GroupReader fully implements the SeekSource interface.
var _ SeekSource = (*GroupReader)(nil)

// Group groups a slice of sources into one continuous GroupReader.
func Group(readers []Source) (*GroupReader, error) {
	if len(readers) < 2 {
		return nil, errors.New("number of readers must be at least 2")
	}

	sizes := make([]int64, 0, len(readers))
	seekable := true
	for _, r := range readers {
		if r == nil {
			return nil, errors.New("nil readers are not allowed")
		}
		s, ok := r.(SeekSource)
		if !ok {
			seekable = false
			continue
		}
		size, err := s.Size()
		if err != nil {
			return nil, err
		}
		sizes = append(sizes, size)
	}

	g := &GroupReader{readers: readers}
	if seekable {
		g.sizes = sizes
	}
	return g, nil
}

func (g *GroupReader) ReadByte() (byte, error) {
	for {
		b, err := g.readers[g.activeReaderIndex].ReadByte()
		if err == io.EOF && g.activeReaderIndex < len(g.readers)-1 {
			g.activeReaderIndex++
			continue
		}
		if err != nil {
			return 0, err
		}
		g.offset++
		return b, nil
	}
}

func (g *GroupReader) Read(p []byte) (int, error) {
	n, err := g.readers[g.activeReaderIndex].Read(p)
	g.offset += int64(n)
	if err == io.EOF && g.activeReaderIndex < len(g.readers)-1 {
		g.activeReaderIndex++
		if n > 0 {
			return n, nil
		}
		return g.Read(p)
	}
	return n, err
}

// Seek moves to a logical offset of the concatenated data. It fails with
// ErrNotSeekable unless every grouped reader is a SeekSource.
func (g *GroupReader) Seek(offset int64, whence int) (int64, error) {
	if g.sizes == nil {
		return 0, ErrNotSeekable
	}

	total, _ := g.Size()
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = g.offset + offset
	case io.SeekEnd:
		target = total + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}
	if target < 0 {
		return 0, fmt.Errorf("negative position: %d", target)
	}

	// Position the reader holding target, rewind the ones after it.
	var base int64
	active := len(g.readers) - 1
	for i, size := range g.sizes {
		if target < base+size || i == len(g.sizes)-1 {
			active = i
			break
		}
		base += size
	}
	for i := active; i < len(g.readers); i++ {
		pos := int64(0)
		if i == active {
			pos = target - base
		}
		if _, err := g.readers[i].(io.Seeker).Seek(pos, io.SeekStart); err != nil {
			return 0, err
		}
	}

	g.activeReaderIndex = active
	g.offset = target
	return target, nil
}

// Size returns the total size of the grouped readers.
func (g *GroupReader) Size() (int64, error) {
	if g.sizes == nil {
		return 0, ErrNotSeekable
	}
	var total int64
	for _, size := range g.sizes {
		total += size
	}
	return total, nil
}

func (g *GroupReader) Close() error {
	var errs []error
	for _, r := range g.readers {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}
