package spec

import (
	"fmt"
	"math/bits"

	"github.com/geofabrik/split-vectortiles-by-region/tile"
	"github.com/google/hilbert"
)

// tileCodeLimit is the number of tiles on zooms 0 to 31.
const tileCodeLimit = (1<<64 - 1) / 3

// zoomFirstCode is the number of tiles on all zooms below z.
func zoomFirstCode(z uint32) uint64 {
	return (1<<(2*z) - 1) / 3
}

// EncodeTileID returns the PMTiles tile id: tiles of lower zooms come first,
// tiles of one zoom are ordered along a Hilbert curve.
func EncodeTileID(tileID tile.ID) (uint64, error) {
	if !tileID.Valid() {
		return 0, fmt.Errorf("%w: %v", tile.ErrInvalidID, tileID)
	}
	curve, err := hilbert.NewHilbert(1 << tileID.Z)
	if err != nil {
		return 0, err
	}
	position, err := curve.MapInverse(int(tileID.X), int(tileID.Y))
	if err != nil {
		return 0, fmt.Errorf("%w: %v: %w", tile.ErrInvalidID, tileID, err)
	}
	return zoomFirstCode(tileID.Z) + uint64(position), nil
}

// DecodeTileID is the inverse of EncodeTileID.
func DecodeTileID(tileCode uint64) (tile.ID, error) {
	if tileCode >= tileCodeLimit {
		return tile.ID{}, fmt.Errorf("%w: tile code %d", tile.ErrInvalidID, tileCode)
	}
	z := uint32(bits.Len64(3*tileCode+1)-1) / 2
	curve, err := hilbert.NewHilbert(1 << z)
	if err != nil {
		return tile.ID{}, err
	}
	x, y, err := curve.Map(int(tileCode - zoomFirstCode(z)))
	if err != nil {
		return tile.ID{}, fmt.Errorf("%w: tile code %d: %w", tile.ErrInvalidID, tileCode, err)
	}
	return tile.ID{X: uint32(x), Y: uint32(y), Z: z}, nil
}
