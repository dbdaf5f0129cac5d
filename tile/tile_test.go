package tile_test

import (
	"errors"
	"testing"

	"github.com/geofabrik/split-vectortiles-by-region/tile"
	"github.com/google/go-cmp/cmp"
)

func TestParseID(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want tile.ID
	}{
		{"0/0/0", tile.ID{X: 0, Y: 0, Z: 0}},
		{"5/10/11", tile.ID{X: 10, Y: 11, Z: 5}},
		{" 14/8800/5373\r", tile.ID{X: 8800, Y: 5373, Z: 14}},
	} {
		got, err := tile.ParseID(tc.in)
		if err != nil {
			t.Errorf("ParseID(%q) failed: %v", tc.in, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("ParseID(%q) mismatch (-want+got):\n%v", tc.in, diff)
		}
		if got.String() != tc.want.String() {
			t.Errorf("String() = %q, want %q", got.String(), tc.want.String())
		}
	}
}

func TestParseIDErrors(t *testing.T) {
	for _, in := range []string{"", "1/2", "1/2/3/4", "a/0/0", "1/2/0", "-1/0/0", "40/0/0"} {
		if _, err := tile.ParseID(in); !errors.Is(err, tile.ErrInvalidID) {
			t.Errorf("ParseID(%q) error = %v, want ErrInvalidID", in, err)
		}
	}
}

func TestFlipY(t *testing.T) {
	id := tile.ID{X: 3, Y: 1, Z: 3}
	if got, want := id.FlipY(), uint32(6); got != want {
		t.Errorf("FlipY() = %v, want %v", got, want)
	}
	flipped := tile.ID{X: id.X, Y: id.FlipY(), Z: id.Z}
	if got := flipped.FlipY(); got != id.Y {
		t.Errorf("FlipY(FlipY()) = %v, want %v", got, id.Y)
	}
}

func TestZoomRange(t *testing.T) {
	r := tile.ZoomRange{Min: 2, Max: 4}
	for z, want := range map[uint32]bool{1: false, 2: true, 3: true, 4: true, 5: false} {
		if got := r.Contains(z); got != want {
			t.Errorf("Contains(%d) = %v, want %v", z, got, want)
		}
	}
}

func TestCompare(t *testing.T) {
	a := tile.ID{X: 9, Y: 9, Z: 1}
	b := tile.ID{X: 0, Y: 0, Z: 2}
	c := tile.ID{X: 0, Y: 1, Z: 2}
	if tile.Compare(a, b) >= 0 || tile.Compare(b, c) >= 0 || tile.Compare(c, c) != 0 || tile.Compare(c, a) <= 0 {
		t.Errorf("Compare ordering is not zoom, column, row")
	}
}
