package spec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

type Compression uint8

const (
	CompressionUnknown Compression = iota
	CompressionNone
	CompressionGzip
	CompressionBrotli
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionBrotli:
		return "brotli"
	case CompressionZstd:
		return "zstd"
	}
	return fmt.Sprintf("Compression(%d)", uint8(c))
}

type TileType uint8

const (
	TileTypeUnknown TileType = iota
	TileTypeMvt
	TileTypePng
	TileTypeJpeg
	TileTypeWebp
	TileTypeAvif
)

var tileTypeNames = map[TileType]string{
	TileTypeMvt:  "pbf",
	TileTypePng:  "png",
	TileTypeJpeg: "jpg",
	TileTypeWebp: "webp",
	TileTypeAvif: "avif",
}

// Format returns the MBTiles format name of the tile type, "" if unknown.
func (t TileType) Format() string {
	return tileTypeNames[t]
}

// ParseTileFormat maps an MBTiles format name to a tile type and the
// compression tiles of that type usually carry. Vector tiles are gzipped.
func ParseTileFormat(format string) (TileType, Compression) {
	switch format {
	case "pbf", "mvt":
		return TileTypeMvt, CompressionGzip
	case "png":
		return TileTypePng, CompressionNone
	case "jpg", "jpeg":
		return TileTypeJpeg, CompressionNone
	case "webp":
		return TileTypeWebp, CompressionNone
	case "avif":
		return TileTypeAvif, CompressionNone
	}
	return TileTypeUnknown, CompressionUnknown
}

type Header struct {
	HeaderMagic         uint64
	RootOffset          uint64
	RootLength          uint64
	MetadataOffset      uint64
	MetadataLength      uint64
	LeafDirectoryOffset uint64
	LeafDirectoryLength uint64
	TileDataOffset      uint64
	TileDataLength      uint64
	AddressedTilesCount uint64
	TileEntriesCount    uint64
	TileContentsCount   uint64
	Clustered           bool
	InternalCompression Compression
	TileCompression     Compression
	TileType            TileType
	MinZoom             uint8
	MaxZoom             uint8
	MinLonE7            int32
	MinLatE7            int32
	MaxLonE7            int32
	MaxLatE7            int32
	CenterZoom          uint8
	CenterLonE7         int32
	CenterLatE7         int32
}

const (
	headerMagic     uint64 = 0x73656C69544D50 // "PMTiles"
	headerMagicMask uint64 = 1<<56 - 1
	HeaderMagicV3   uint64 = headerMagic | (0x03 << 56)

	HeaderLength = 127

	// The root directory must fit into the first 16 KiB.
	HeaderRootDirMaxLength = 16 << 10
	RootDirOffset          = HeaderLength
	RootDirMaxLength       = HeaderRootDirMaxLength - HeaderLength
)

var (
	ErrInvalidHeader  = errors.New("invalid file header")
	ErrInvalidVersion = errors.New("invalid version")
)

// SerializeHeader encodes the header into its fixed HeaderLength bytes.
func SerializeHeader(header *Header) []byte {
	data, err := binary.Append(make([]byte, 0, HeaderLength), binary.LittleEndian, header)
	if err != nil {
		// Header has fixed size fields only.
		panic(err)
	}
	return data
}

// DeserializeHeader decodes a header and accepts PMTiles version 3 only.
func DeserializeHeader(buffer []byte) (*Header, error) {
	var header Header
	if err := binary.Read(bytes.NewReader(buffer), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	if header.HeaderMagic&headerMagicMask != headerMagic {
		return nil, fmt.Errorf("%w: not a PMTiles file", ErrInvalidHeader)
	}
	if header.HeaderMagic != HeaderMagicV3 {
		return nil, fmt.Errorf("%w: %d, want 3", ErrInvalidVersion, header.HeaderMagic>>56)
	}
	return &header, nil
}
