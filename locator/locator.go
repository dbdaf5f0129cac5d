// Package locator computes the tiles a region polygon covers.
package locator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/geofabrik/split-vectortiles-by-region/tile"
	"github.com/paulmach/orb/geojson"
)

var ErrLocator = errors.New("tile locator failed")

// Locator lists the tiles within zooms intersecting the feature's geometry.
// The result is sorted by tile.Compare and free of duplicates.
// Implementations must be safe for concurrent use.
type Locator interface {
	ListTiles(ctx context.Context, feature *geojson.Feature, zooms tile.ZoomRange) ([]tile.ID, error)
}

// ParseTileList reads one "z/x/y" tile per line. Blank lines are ignored.
// Tiles outside zooms are an error.
func ParseTileList(r io.Reader, zooms tile.ZoomRange) ([]tile.ID, error) {
	tiles := make([]tile.ID, 0)

	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		tileID, err := tile.ParseID(text)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrLocator, line, err)
		}
		if !zooms.Contains(tileID.Z) {
			return nil, fmt.Errorf("%w: line %d: tile %v outside of zoom range %v", ErrLocator, line, tileID, zooms)
		}
		tiles = append(tiles, tileID)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLocator, err)
	}

	return sortTiles(tiles), nil
}

func sortTiles(tiles []tile.ID) []tile.ID {
	slices.SortFunc(tiles, tile.Compare)
	return slices.Compact(tiles)
}
