// Package tiletest provides fixtures shared by tests of tile stores and the splitter.
package tiletest

import (
	"archive/tar"
	"fmt"
	"io"
	"iter"
	"os"
	"testing"

	"github.com/geofabrik/split-vectortiles-by-region/tile"
	"github.com/geofabrik/split-vectortiles-by-region/xyz"
	"github.com/klauspost/compress/gzip"
)

// Tiles returns tiles with distinct payloads for all given ids.
func Tiles(ids ...tile.ID) map[tile.ID][]byte {
	tiles := make(map[tile.ID][]byte, len(ids))
	for _, id := range ids {
		tiles[id] = fmt.Appendf(nil, "payload %v", id)
	}
	return tiles
}

// WriteTree writes tiles as an XYZ directory tree below rootDir.
func WriteTree(t testing.TB, rootDir, suffix string, tiles map[tile.ID][]byte) {
	t.Helper()

	writer, err := xyz.NewWriter(xyz.Pattern(rootDir, suffix))
	if err != nil {
		t.Fatal(err)
	}
	for tileID, tileData := range tiles {
		if err := writer.WriteTile(tileID, tileData); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Finalize(); err != nil {
		t.Fatal(err)
	}
}

// ArchiveEntries iterates over names and contents of a tar.gz archive.
// Every entry must be a regular file.
func ArchiveEntries(t testing.TB, filePath string) iter.Seq2[string, []byte] {
	return func(yield func(string, []byte) bool) {
		t.Helper()

		file, err := os.Open(filePath)
		if err != nil {
			t.Fatal(err)
		}
		defer file.Close()

		gzReader, err := gzip.NewReader(file)
		if err != nil {
			t.Fatal(err)
		}
		defer gzReader.Close()

		tarReader := tar.NewReader(gzReader)

		for {
			hdr, err := tarReader.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatal(err)
			}
			if got, want := hdr.Typeflag, tar.TypeReg; got != byte(want) {
				t.Fatalf("hdr.Typeflag = %v, want = %v", got, want)
			}

			fileData, err := io.ReadAll(tarReader)
			if err != nil {
				t.Fatal(err)
			}

			if !yield(hdr.Name, fileData) {
				return
			}
		}
	}
}

// ArchiveTiles collects the tiles of a tar.gz archive written with the given suffix.
// Entries that are not tiles (e.g. metadata.json) are returned separately.
func ArchiveTiles(t testing.TB, filePath, suffix string) (map[tile.ID][]byte, map[string][]byte) {
	t.Helper()

	tiles := make(map[tile.ID][]byte)
	other := make(map[string][]byte)
	for name, data := range ArchiveEntries(t, filePath) {
		var z, x, y uint32
		var rest string
		if n, _ := fmt.Sscanf(name, "%d/%d/%d%s", &z, &x, &y, &rest); n == 4 && rest == suffix {
			tiles[tile.ID{X: x, Y: y, Z: z}] = data
			continue
		}
		other[name] = data
	}
	return tiles, other
}
