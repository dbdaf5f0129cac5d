package xyz_test

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/geofabrik/split-vectortiles-by-region/tile"
	"github.com/geofabrik/split-vectortiles-by-region/xyz"
	"github.com/google/go-cmp/cmp"
)

func TestWriterReader(t *testing.T) {
	rootDir := t.TempDir()
	pattern := xyz.Pattern(rootDir, ".png")

	tiles := map[tile.ID][]byte{
		{X: 0, Y: 0, Z: 0}: []byte("tile000"),
		{X: 1, Y: 1, Z: 1}: []byte("tile111"),
		{X: 0, Y: 0, Z: 6}: []byte("tile006"),
		{X: 6, Y: 6, Z: 6}: []byte("tile666"),
	}

	writer, err := xyz.NewWriter(pattern)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	for tileID, tileData := range tiles {
		if err := writer.WriteTile(tileID, tileData); err != nil {
			t.Errorf("WriteTile(%v) failed: %v", tileID, err)
		}
	}

	if err := writer.WriteMetadata(map[string]any{"name": "test"}); err != nil {
		t.Fatalf("WriteMetadata failed: %v", err)
	}

	if err := writer.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	reader, err := xyz.NewReader(pattern)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	if got, want := reader.RootDir(), rootDir; got != want {
		t.Errorf("RootDir() = %v, want %v", got, want)
	}

	if got, want := maps.Collect(tile.IterTiles(reader)), tiles; !cmp.Equal(got, want) {
		t.Errorf("VisitTiles data mismatch")
	}

	for tileID, tileData := range tiles {
		data, err := reader.ReadTile(tileID)
		if err != nil {
			t.Errorf("ReadTile(%v) failed: %v", tileID, err)
			continue
		}
		if !cmp.Equal(data, tileData) {
			t.Errorf("ReadTile data mismatch for %v", tileID)
		}
	}

	if _, err := reader.ReadTile(tile.ID{X: 9, Y: 9, Z: 9}); !errors.Is(err, tile.ErrNotFound) {
		t.Errorf("ReadTile(missing tile) error = %v, want ErrNotFound", err)
	}

	metadata, err := reader.ReadMetadata()
	if err != nil {
		t.Fatalf("ReadMetadata failed: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"name": "test"}, metadata); diff != "" {
		t.Errorf("ReadMetadata mismatch (-want+got):\n%v", diff)
	}
}

func TestReaderSkipsForeignFiles(t *testing.T) {
	rootDir := t.TempDir()
	for _, name := range []string{"1/0/0.pbf", "1/0/0.png", "1/5/0.pbf", "README"} {
		path := filepath.Join(rootDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}

	reader, err := xyz.NewReader(xyz.Pattern(rootDir, ".pbf"))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	want := map[tile.ID][]byte{{X: 0, Y: 0, Z: 1}: []byte("1/0/0.pbf")}
	if diff := cmp.Diff(want, maps.Collect(tile.IterTiles(reader))); diff != "" {
		t.Errorf("VisitTiles mismatch (-want+got):\n%v", diff)
	}

	metadata, err := reader.ReadMetadata()
	if err != nil {
		t.Fatalf("ReadMetadata failed: %v", err)
	}
	if len(metadata) != 0 {
		t.Errorf("ReadMetadata() = %v, want empty", metadata)
	}
}

func TestInvalidPattern(t *testing.T) {
	if _, err := xyz.NewReader("/tiles/{z}/{x}.png"); !errors.Is(err, xyz.ErrInvalidPattern) {
		t.Errorf("NewReader error = %v, want ErrInvalidPattern", err)
	}
	if _, err := xyz.NewWriter("/tiles/{x}/{y}.png"); !errors.Is(err, xyz.ErrInvalidPattern) {
		t.Errorf("NewWriter error = %v, want ErrInvalidPattern", err)
	}
}
