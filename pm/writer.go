package pm

import (
	"bufio"
	"cmp"
	"crypto/md5"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/geofabrik/split-vectortiles-by-region/pm/spec"
	"github.com/geofabrik/split-vectortiles-by-region/tile"
)

// Writer implements tile.Writer interface for PMTiles format.
// Identical tile contents are stored once.
type Writer struct {
	logger *slog.Logger
	file   *os.File
	header spec.Header

	tileWriter *bufio.Writer
	tileOffset uint64

	entries   []spec.Entry
	locations map[[16]byte]uint32 // hash -> entry index
	lastCode  uint64
}

type writerConfig struct {
	Metadata       []byte
	HeaderMetadata HeaderMetadata
	Logger         *slog.Logger
}

type WriterOption func(*writerConfig)

// WithMetadata sets the JSON metadata block (uncompressed).
func WithMetadata(metadata []byte) WriterOption {
	return func(c *writerConfig) { c.Metadata = metadata }
}

func WithHeaderMetadata(headerMetadata HeaderMetadata) WriterOption {
	return func(c *writerConfig) { c.HeaderMetadata = headerMetadata }
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

// NewWriter creates the PMTiles file at filePath and prepares it for writing tiles.
func NewWriter(filePath string, opts ...WriterOption) (w *Writer, err error) {
	config := writerConfig{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			file.Close()
		}
	}()

	header := spec.Header{}
	header.HeaderMagic = spec.HeaderMagicV3
	header.Clustered = true
	header.InternalCompression = spec.CompressionGzip
	config.HeaderMetadata.CopyToHeader(&header)

	offset := uint64(spec.HeaderRootDirMaxLength)
	if _, err = file.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, err
	}

	if len(config.Metadata) > 0 {
		metadata, err := spec.Compress(config.Metadata, header.InternalCompression)
		if err != nil {
			return nil, err
		}
		if _, err := file.Write(metadata); err != nil {
			return nil, err
		}
		header.MetadataOffset = offset
		header.MetadataLength = uint64(len(metadata))
		offset += header.MetadataLength
	}

	header.TileDataOffset = offset

	return &Writer{
		logger:     config.Logger,
		file:       file,
		header:     header,
		tileWriter: bufio.NewWriter(file),
		locations:  make(map[[16]byte]uint32),
	}, nil
}

// WriteTile returns tile.ErrEmptyTile for empty tileData, PMTiles entries
// have a positive length.
func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if len(tileData) == 0 {
		return fmt.Errorf("%w: %v", tile.ErrEmptyTile, tileID)
	}

	tileCode, err := spec.EncodeTileID(tileID)
	if err != nil {
		return err
	}
	if len(w.entries) > 0 && tileCode <= w.lastCode {
		w.header.Clustered = false
	}
	w.lastCode = tileCode

	digest := md5.Sum(tileData)
	if entryIdx, exists := w.locations[digest]; exists {
		w.entries = append(w.entries, spec.Entry{
			TileCode:  tileCode,
			Offset:    w.entries[entryIdx].Offset,
			Length:    w.entries[entryIdx].Length,
			RunLength: 1,
		})
		return nil
	}

	if _, err := w.tileWriter.Write(tileData); err != nil {
		return err
	}

	w.locations[digest] = uint32(len(w.entries))
	w.entries = append(w.entries, spec.Entry{
		TileCode:  tileCode,
		Offset:    w.tileOffset,
		Length:    uint32(len(tileData)),
		RunLength: 1,
	})
	w.tileOffset += uint64(len(tileData))

	return nil
}

func (w *Writer) Finalize() error {
	if w.tileWriter == nil {
		panic("pm: finalize called twice")
	}

	w.logger.Debug("pm: flush tiles")
	if err := w.tileWriter.Flush(); err != nil {
		return err
	}
	w.header.TileDataLength = w.tileOffset
	w.tileWriter = nil

	slices.SortFunc(w.entries, func(a, b spec.Entry) int {
		return cmp.Compare(a.TileCode, b.TileCode)
	})
	w.header.AddressedTilesCount = uint64(len(w.entries))
	w.header.TileContentsCount = uint64(len(w.locations))
	w.entries = spec.CompactEntries(w.entries)
	w.header.TileEntriesCount = uint64(len(w.entries))

	w.logger.Debug("pm: serialize directories", slog.Int("entries", len(w.entries)))
	rootBytes, leavesBytes, err := spec.BuildDirectories(w.entries, w.header.InternalCompression)
	if err != nil {
		return err
	}

	leavesOffset, err := w.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := w.file.Write(leavesBytes); err != nil {
		return err
	}
	w.header.LeafDirectoryOffset = uint64(leavesOffset)
	w.header.LeafDirectoryLength = uint64(len(leavesBytes))

	if _, err := w.file.WriteAt(rootBytes, spec.RootDirOffset); err != nil {
		return err
	}
	w.header.RootOffset = spec.RootDirOffset
	w.header.RootLength = uint64(len(rootBytes))

	if _, err := w.file.WriteAt(spec.SerializeHeader(&w.header), 0); err != nil {
		return err
	}

	err = w.file.Close()
	w.file = nil
	if err != nil {
		return err
	}

	w.logger.Debug("pm: done")
	return nil
}

func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
