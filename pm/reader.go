package pm

import (
	"os"

	"github.com/geofabrik/split-vectortiles-by-region/pm/spec"
	"github.com/geofabrik/split-vectortiles-by-region/tile"
)

// FileAccessFunc reads length bytes at offset. It must be safe for concurrent use.
type FileAccessFunc = func(offset, length uint64) ([]byte, error)

// Reader implements tile.Reader and tile.Visitor interfaces for PMTiles format.
// Reader keeps no cursor state and is safe for concurrent use.
type Reader struct {
	fileAccess FileAccessFunc
	fileCloser func() error
	header     *spec.Header
}

// NewFileReader opens the PMTiles file at filePath.
//
// The returned Reader must be closed after use.
func NewFileReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	fileAccess := func(offset uint64, length uint64) ([]byte, error) {
		buffer := make([]byte, length)
		if _, err := file.ReadAt(buffer, int64(offset)); err != nil {
			return nil, err
		}
		return buffer, nil
	}
	reader, err := NewReader(fileAccess)
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.fileCloser = file.Close
	return reader, nil
}

// NewReader creates a Reader over arbitrary random access storage.
func NewReader(fileAccess FileAccessFunc) (*Reader, error) {
	headerData, err := fileAccess(0, spec.HeaderLength)
	if err != nil {
		return nil, err
	}
	header, err := spec.DeserializeHeader(headerData)
	if err != nil {
		return nil, err
	}
	return &Reader{
		fileAccess: fileAccess,
		fileCloser: func() error { return nil },
		header:     header,
	}, nil
}

func (r *Reader) Close() error {
	return r.fileCloser()
}

func (r *Reader) HeaderMetadata() HeaderMetadata {
	result := HeaderMetadata{}
	result.CopyFromHeader(r.header)
	return result
}

// ReadMetadata returns the decompressed JSON metadata block.
func (r *Reader) ReadMetadata() ([]byte, error) {
	if r.header.MetadataLength == 0 {
		return nil, nil
	}
	data, err := r.fileAccess(r.header.MetadataOffset, r.header.MetadataLength)
	if err != nil {
		return nil, err
	}
	return spec.Decompress(data, r.header.InternalCompression)
}

func (r *Reader) readDirectory(dirOffset, dirLength uint64) ([]spec.Entry, error) {
	dirCompressed, err := r.fileAccess(dirOffset, dirLength)
	if err != nil {
		return nil, err
	}
	dirData, err := spec.Decompress(dirCompressed, r.header.InternalCompression)
	if err != nil {
		return nil, err
	}
	return spec.DeserializeDirectory(dirData)
}

// ReadLocation returns tile.ErrNotFound if the tileset has no such tile.
func (r *Reader) ReadLocation(tileID tile.ID) (Location, error) {
	tileCode, err := spec.EncodeTileID(tileID)
	if err != nil {
		return Location{}, err
	}
	dirOffset := r.header.RootOffset
	dirLength := r.header.RootLength
	for range 4 { // spec v3: at most 3 levels of leaf directories
		dirEntries, err := r.readDirectory(dirOffset, dirLength)
		if err != nil {
			return Location{}, err
		}
		entry, found := spec.FindEntry(dirEntries, tileCode)
		if !found {
			return Location{}, tile.ErrNotFound
		}
		if !entry.IsLeaf() {
			return Location{
				Offset: r.header.TileDataOffset + entry.Offset,
				Length: uint64(entry.Length),
			}, nil
		}
		dirOffset = r.header.LeafDirectoryOffset + entry.Offset
		dirLength = uint64(entry.Length)
	}
	return Location{}, tile.ErrNotFound
}

func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	location, err := r.ReadLocation(tileID)
	if err != nil {
		return nil, err
	}
	return r.fileAccess(location.Offset, location.Length)
}

func (r *Reader) VisitLocations(visitor func(tile.ID, Location) error) error {
	var traverse func(uint64, uint64) error
	traverse = func(dirOffset, dirLength uint64) error {
		dirEntries, err := r.readDirectory(dirOffset, dirLength)
		if err != nil {
			return err
		}
		for _, entry := range dirEntries {
			if entry.IsLeaf() {
				if err := traverse(r.header.LeafDirectoryOffset+entry.Offset, uint64(entry.Length)); err != nil {
					return err
				}
				continue
			}
			location := Location{
				Offset: r.header.TileDataOffset + entry.Offset,
				Length: uint64(entry.Length),
			}
			for i := range entry.RunLength {
				tileID, err := spec.DecodeTileID(entry.TileCode + uint64(i))
				if err != nil {
					return err
				}
				if err := visitor(tileID, location); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return traverse(r.header.RootOffset, r.header.RootLength)
}

func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	return r.VisitLocations(func(tileID tile.ID, location Location) error {
		tileData, err := r.fileAccess(location.Offset, location.Length)
		if err != nil {
			return err
		}
		return visitor(tileID, tileData)
	})
}
