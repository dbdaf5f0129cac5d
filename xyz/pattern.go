// Package xyz provides API for reading and writing tiles in XYZ directory format,
// where tiles are stored as individual files with paths like "/z/x/y.ext".
package xyz

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/geofabrik/split-vectortiles-by-region/tile"
)

var ErrInvalidPattern = errors.New("invalid file pattern")

// MetadataFile is the name of the optional metadata document in the tree root.
const MetadataFile = "metadata.json"

// Pattern returns the file pattern for a tile tree rooted at rootDir,
// e.g. Pattern("/tiles", ".pbf") == "/tiles/{z}/{x}/{y}.pbf".
func Pattern(rootDir, suffix string) string {
	return filepath.Join(rootDir, "{z}", "{x}", "{y}"+suffix)
}

func validatePattern(pattern string) error {
	for _, p := range []string{"{x}", "{y}", "{z}"} {
		if !strings.Contains(pattern, p) {
			return fmt.Errorf("%w: placeholder %v not found", ErrInvalidPattern, p)
		}
	}
	return nil
}

func formatPattern(pattern string, tileID tile.ID) string {
	return strings.NewReplacer(
		"{x}", strconv.FormatUint(uint64(tileID.X), 10),
		"{y}", strconv.FormatUint(uint64(tileID.Y), 10),
		"{z}", strconv.FormatUint(uint64(tileID.Z), 10),
	).Replace(pattern)
}

// patternRoot returns the longest directory shared by all paths of the pattern.
func patternRoot(pattern string) string {
	path0 := formatPattern(pattern, tile.ID{X: 0, Y: 0, Z: 0})
	path1 := formatPattern(pattern, tile.ID{X: 1, Y: 1, Z: 1})
	for path0 != path1 {
		path0 = filepath.Dir(path0)
		path1 = filepath.Dir(path1)
	}
	return path0
}
