package mb_test

import (
	"errors"
	"maps"
	"path/filepath"
	"testing"

	"github.com/geofabrik/split-vectortiles-by-region/mb"
	"github.com/geofabrik/split-vectortiles-by-region/tile"
	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func TestWriterReader(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "tiles.mbtiles")

	tiles := map[tile.ID][]byte{
		{X: 0, Y: 0, Z: 0}:  []byte("tile000"),
		{X: 1, Y: 0, Z: 1}:  []byte("tile101"),
		{X: 10, Y: 3, Z: 5}: []byte("tile1035"),
	}
	metadata := map[string]string{"name": "test", "format": "pbf"}

	writer, err := mb.NewWriter(filePath, mb.WithMetadata(metadata))
	require.NoError(t, err)
	defer writer.Close()

	for tileID, tileData := range tiles {
		require.NoError(t, writer.WriteTile(tileID, tileData))
	}
	require.NoError(t, writer.Finalize())
	require.NoError(t, writer.Close())

	reader, err := mb.NewReader(filePath)
	require.NoError(t, err)
	defer reader.Close()

	gotMetadata, err := reader.ReadMetadata()
	require.NoError(t, err)
	if diff := cmp.Diff(metadata, gotMetadata); diff != "" {
		t.Errorf("ReadMetadata mismatch (-want+got):\n%v", diff)
	}

	if got, want := maps.Collect(tile.IterTiles(reader)), tiles; !cmp.Equal(got, want) {
		t.Errorf("VisitTiles data mismatch")
	}

	for tileID, tileData := range tiles {
		got, err := reader.ReadTile(tileID)
		require.NoError(t, err)
		require.Equal(t, tileData, got)
	}

	_, err = reader.ReadTile(tile.ID{X: 3, Y: 3, Z: 3})
	require.True(t, errors.Is(err, tile.ErrNotFound), "%v", err)
}

func TestStoredRowIsTMS(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "tiles.mbtiles")

	writer, err := mb.NewWriter(filePath)
	require.NoError(t, err)
	require.NoError(t, writer.WriteTile(tile.ID{X: 1, Y: 0, Z: 2}, []byte("north")))
	require.NoError(t, writer.Finalize())
	require.NoError(t, writer.Close())

	db := openRaw(t, filePath)
	var row int
	require.NoError(t, db.QueryRow("SELECT tile_row FROM tiles").Scan(&row))
	require.Equal(t, 3, row)
}

func TestCloseWithoutFinalizeDiscardsTiles(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "tiles.mbtiles")

	writer, err := mb.NewWriter(filePath)
	require.NoError(t, err)
	require.NoError(t, writer.WriteTile(tile.ID{X: 0, Y: 0, Z: 0}, []byte("tile")))
	require.NoError(t, writer.Close())

	db := openRaw(t, filePath)
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM tiles").Scan(&count))
	require.Equal(t, 0, count)
}
