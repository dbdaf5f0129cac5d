package locator

import (
	"context"
	"fmt"

	"github.com/geofabrik/split-vectortiles-by-region/tile"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/maptile/tilecover"
)

// Cover computes covering tiles in process. A tile is listed when the
// polygon touches it; no external program is needed.
type Cover struct{}

func (Cover) ListTiles(ctx context.Context, feature *geojson.Feature, zooms tile.ZoomRange) ([]tile.ID, error) {
	tiles := make([]tile.ID, 0)
	for z := zooms.Min; z <= zooms.Max; z++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLocator, err)
		}
		set, err := tilecover.Geometry(feature.Geometry, maptile.Zoom(z))
		if err != nil {
			return nil, fmt.Errorf("%w: zoom %d: %w", ErrLocator, z, err)
		}
		for t := range set {
			tiles = append(tiles, tile.ID{X: t.X, Y: t.Y, Z: uint32(t.Z)})
		}
	}
	return sortTiles(tiles), nil
}
