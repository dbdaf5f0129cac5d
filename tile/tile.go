// Package tile provides common tile interfaces and types.
package tile

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is returned by Reader.ReadTile when the tileset has no such tile.
	ErrNotFound = errors.New("tile not found")

	ErrInvalidID = errors.New("invalid tile id")

	// ErrEmptyTile is returned by Writer.WriteTile of formats that can not
	// store tiles without data. Nothing is written for such a tile.
	ErrEmptyTile = errors.New("empty tile")
)

// ID represents tile coordinates in the XYZ scheme (Tiled web map).
type ID struct {
	X uint32
	Y uint32
	Z uint32
}

func (t ID) Valid() bool {
	return t.Z < 32 && t.X < (1<<t.Z) && t.Y < (1<<t.Z)
}

// String formats the tile as "z/x/y".
func (t ID) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// FlipY converts the row between XYZ and TMS schemes (the conversion is symmetric).
func (t ID) FlipY() uint32 {
	return (1 << t.Z) - 1 - t.Y
}

// Compare orders tiles by zoom, then column, then row.
func Compare(a, b ID) int {
	return cmp.Or(
		cmp.Compare(a.Z, b.Z),
		cmp.Compare(a.X, b.X),
		cmp.Compare(a.Y, b.Y),
	)
}

// ParseID parses a "z/x/y" string. The result is guaranteed to be Valid.
func ParseID(s string) (ID, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	var values [3]uint32
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return ID{}, fmt.Errorf("%w: %q: %w", ErrInvalidID, s, err)
		}
		values[i] = uint32(v)
	}
	id := ID{X: values[1], Y: values[2], Z: values[0]}
	if !id.Valid() {
		return ID{}, fmt.Errorf("%w: %q out of range", ErrInvalidID, s)
	}
	return id, nil
}

// ZoomRange is an inclusive range of zoom levels.
type ZoomRange struct {
	Min uint32
	Max uint32
}

func (r ZoomRange) Contains(z uint32) bool {
	return r.Min <= z && z <= r.Max
}

func (r ZoomRange) String() string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// Writer defines an interface for writing tiles to a tileset.
type Writer interface {
	// WriteTile writes a single tile to the tileset.
	WriteTile(tileID ID, tileData []byte) error

	// Finalize completes the writing process: flushes buffers, writes header and indices.
	// It must be called before closing the Writer.
	Finalize() error
}

type Reader interface {
	// ReadTile reads a single tile from the tileset.
	// If the tile does not exist, it returns ErrNotFound.
	// Implementations must be safe for concurrent use.
	ReadTile(tileID ID) ([]byte, error)
}

type Visitor interface {
	// VisitTiles visits all tiles in the tileset, calling the visitor for each.
	// It returns an error if visiting fails.
	// Order of tiles, upfront cpu and memory consumption are implementation-defined.
	VisitTiles(visitor func(ID, []byte) error) error
}
