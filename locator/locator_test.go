package locator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/geofabrik/split-vectortiles-by-region/locator"
	"github.com/geofabrik/split-vectortiles-by-region/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/require"
)

func square(minLon, minLat, maxLon, maxLat float64) *geojson.Feature {
	feature := geojson.NewFeature(orb.Polygon{{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}})
	feature.Properties["id"] = "test"
	return feature
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tiles.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestParseTileList(t *testing.T) {
	input := "1/1/0\n\n0/0/0\r\n1/0/1\n1/1/0\n  \n"
	got, err := locator.ParseTileList(strings.NewReader(input), tile.ZoomRange{Min: 0, Max: 1})
	require.NoError(t, err)

	want := []tile.ID{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 1}, {X: 1, Y: 0, Z: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseTileList mismatch (-want+got):\n%v", diff)
	}
}

func TestParseTileListEmpty(t *testing.T) {
	got, err := locator.ParseTileList(strings.NewReader("\n\n"), tile.ZoomRange{Min: 0, Max: 14})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestParseTileListErrors(t *testing.T) {
	for _, input := range []string{"0/0/0\ngarbage\n", "3/0/0\n", "1/2/0\n"} {
		_, err := locator.ParseTileList(strings.NewReader(input), tile.ZoomRange{Min: 0, Max: 2})
		if !errors.Is(err, locator.ErrLocator) {
			t.Errorf("ParseTileList(%q) error = %v, want ErrLocator", input, err)
		}
	}
}

func TestExec(t *testing.T) {
	// Fails with a distinct code for each violated expectation on arguments and environment.
	script := writeScript(t, `
[ "$1" = "-g" ] || exit 3
[ -s "$2" ] || exit 4
grep -q '"FeatureCollection"' "$2" || exit 5
[ "$3" = "-z" ] && [ "$4" = "0" ] || exit 6
[ "$5" = "-Z" ] && [ "$6" = "1" ] || exit 7
[ "$OGR_ENABLE_PARTIAL_REPROJECTION" = "TRUE" ] || exit 8
[ -f marker ] || exit 9
echo 1/1/1
echo
echo 0/0/0
echo 1/1/1
`)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), nil, 0o644))

	l, err := locator.NewExec(script, locator.WithDir(dir))
	require.NoError(t, err)

	got, err := l.ListTiles(context.Background(), square(0, 0, 1, 1), tile.ZoomRange{Min: 0, Max: 1})
	require.NoError(t, err)

	want := []tile.ID{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListTiles mismatch (-want+got):\n%v", diff)
	}
}

func TestExecRemovesGeoJSON(t *testing.T) {
	record := filepath.Join(t.TempDir(), "record")
	script := writeScript(t, `echo "$2" > '`+record+"'\n")

	l, err := locator.NewExec(script)
	require.NoError(t, err)
	_, err = l.ListTiles(context.Background(), square(0, 0, 1, 1), tile.ZoomRange{Min: 0, Max: 0})
	require.NoError(t, err)

	data, err := os.ReadFile(record)
	require.NoError(t, err)
	_, err = os.Stat(strings.TrimSpace(string(data)))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestExecFailure(t *testing.T) {
	script := writeScript(t, "echo 'cannot open polygon' >&2\nexit 2\n")

	l, err := locator.NewExec(script)
	require.NoError(t, err)

	_, err = l.ListTiles(context.Background(), square(0, 0, 1, 1), tile.ZoomRange{Min: 0, Max: 1})
	require.ErrorIs(t, err, locator.ErrLocator)
	require.ErrorContains(t, err, "cannot open polygon")
	require.ErrorContains(t, err, "code 2")
}

func TestExecInvalidOutput(t *testing.T) {
	script := writeScript(t, "echo 20/0/0\n")

	l, err := locator.NewExec(script)
	require.NoError(t, err)

	_, err = l.ListTiles(context.Background(), square(0, 0, 1, 1), tile.ZoomRange{Min: 0, Max: 14})
	require.ErrorIs(t, err, locator.ErrLocator)
}

func TestExecCancelled(t *testing.T) {
	script := writeScript(t, "echo 0/0/0\n")

	l, err := locator.NewExec(script)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.ListTiles(ctx, square(0, 0, 1, 1), tile.ZoomRange{Min: 0, Max: 0})
	require.ErrorIs(t, err, locator.ErrLocator)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewExecNotAFile(t *testing.T) {
	_, err := locator.NewExec(t.TempDir())
	require.Error(t, err)

	_, err = locator.NewExec(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCover(t *testing.T) {
	// Strictly inside the north-east quadrant of the world.
	feature := square(10, 10, 20, 20)

	got, err := locator.Cover{}.ListTiles(context.Background(), feature, tile.ZoomRange{Min: 0, Max: 2})
	require.NoError(t, err)

	want := []tile.ID{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 1},
		{X: 2, Y: 1, Z: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListTiles mismatch (-want+got):\n%v", diff)
	}
}
