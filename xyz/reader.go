package xyz

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/geofabrik/split-vectortiles-by-region/tile"
)

// Reader implements tile.Reader and tile.Visitor interfaces for tiles in XYZ format.
// Reader holds no mutable state and is safe for concurrent use.
type Reader struct {
	filePattern string
	rootDir     string
	pathRegexp  *regexp.Regexp
}

// NewReader creates a new Reader for the given file pattern (e.g. "/home/user/tiles/{z}/{x}/{y}.png").
func NewReader(filePattern string) (*Reader, error) {
	if err := validatePattern(filePattern); err != nil {
		return nil, err
	}

	regexPattern := regexp.QuoteMeta(filePattern)
	regexPattern = strings.ReplaceAll(regexPattern, regexp.QuoteMeta("{x}"), "(?P<x>\\d+)")
	regexPattern = strings.ReplaceAll(regexPattern, regexp.QuoteMeta("{y}"), "(?P<y>\\d+)")
	regexPattern = strings.ReplaceAll(regexPattern, regexp.QuoteMeta("{z}"), "(?P<z>\\d+)")
	pathRegex, err := regexp.Compile("^" + regexPattern + "$")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}

	return &Reader{filePattern, patternRoot(filePattern), pathRegex}, nil
}

// RootDir returns the directory all tiles of the pattern live under.
func (r *Reader) RootDir() string {
	return r.rootDir
}

func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	tileData, err := os.ReadFile(formatPattern(r.filePattern, tileID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, tile.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tileData, nil
}

// ReadMetadata decodes metadata.json from the root directory.
// A tree without metadata.json yields an empty map.
func (r *Reader) ReadMetadata() (map[string]any, error) {
	metadata := make(map[string]any)
	data, err := os.ReadFile(filepath.Join(r.rootDir, MetadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return metadata, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("%v: %w", MetadataFile, err)
	}
	return metadata, nil
}

func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	return filepath.WalkDir(r.rootDir, func(filePath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		matches := r.pathRegexp.FindStringSubmatch(filePath)
		if matches == nil {
			return nil
		}

		x, _ := strconv.ParseUint(matches[r.pathRegexp.SubexpIndex("x")], 10, 32)
		y, _ := strconv.ParseUint(matches[r.pathRegexp.SubexpIndex("y")], 10, 32)
		z, _ := strconv.ParseUint(matches[r.pathRegexp.SubexpIndex("z")], 10, 32)
		tileID := tile.ID{X: uint32(x), Y: uint32(y), Z: uint32(z)}
		if !tileID.Valid() {
			return nil
		}

		tileData, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}

		return visitor(tileID, tileData)
	})
}
