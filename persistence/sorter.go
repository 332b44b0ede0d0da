package persistence

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// NumericalSorter orders chunk files by the number following the last '-'
// of their names, ignoring the extension.
type NumericalSorter []os.FileInfo

// A compile time check to ensure that NumericalSorter fully implements sort.Interface.
var _ sort.Interface = (*NumericalSorter)(nil)

func (s NumericalSorter) Len() int      { return len(s) }
func (s NumericalSorter) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s NumericalSorter) Less(i, j int) bool {
	pathA := s[i].Name()
	pathB := s[j].Name()

	// Get the integer values of each filename, placed after the delimiter.
	a, err1 := strconv.ParseInt(chunkIndex(pathA), 10, 64)
	b, err2 := strconv.ParseInt(chunkIndex(pathB), 10, 64)

	// If any were not numbers, sort lexicographically.
	if err1 != nil || err2 != nil {
		return pathA < pathB
	}

	return a < b
}

func chunkIndex(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return name[strings.LastIndex(name, "-")+1:]
}
