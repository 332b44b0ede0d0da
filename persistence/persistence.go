// Package persistence provides the byte sources units are read from.
package persistence

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Open returns a Source for name. Directories are opened with NewDirReader.
// Files with a gzip or zstd header and files named *.br are decompressed on
// the fly and are not seekable; other files are returned as a *FileReader.
func Open(name string) (Source, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	if info.IsDir() {
		return NewDirReader(name)
	}
	return openFile(name)
}

func openFile(name string) (Source, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open file for reading: %w", err)
	}

	buf := bufio.NewReader(file)
	c := Sniff(buf)
	if c == NoCompression && filepath.Ext(name) == ".br" {
		c = Brotli
	}
	if c != NoCompression {
		r, err := decompress(buf, c, file.Close)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return &FileReader{
		file: file,
		buf:  buf,
	}, nil
}

// NewDirReader returns a Source of the regular files in dir, concatenated
// in NumericalSorter order. Hidden files are ignored.
func NewDirReader(dir string) (Source, error) {
	readers, err := GetReaders(dir)
	if err != nil {
		return nil, err
	}
	if len(readers) == 1 {
		return readers[0], nil
	}

	g, err := Group(readers)
	if err != nil {
		for _, r := range readers {
			r.Close()
		}
		return nil, err
	}
	return g, nil
}

func GetReaders(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("source directory not found: %w", err)
	}

	// Filter.
	var files []os.FileInfo
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, info)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("source directory (%v) is empty", dir)
	}

	// Sort.
	sort.Sort(NumericalSorter(files))

	// Initialize readers.
	readers := make([]Source, 0, len(files))
	for _, file := range files {
		reader, err := openFile(filepath.Join(dir, file.Name()))
		if err != nil {
			for _, r := range readers {
				r.Close()
			}
			return nil, err
		}
		readers = append(readers, reader)
	}
	return readers, nil
}
