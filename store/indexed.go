package store

import (
	"errors"
	"log/slog"
	"os"

	"github.com/geofabrik/split-vectortiles-by-region/mb"
	"github.com/geofabrik/split-vectortiles-by-region/tile"
)

// indexedOutput builds an MBTiles container at a temporary path and renames
// it into place on Finalize.
type indexedOutput struct {
	path    string
	tmpPath string
	writer  *mb.Writer
	logger  *slog.Logger
	closed  bool
	done    bool
}

func newIndexedOutput(path string, o options) (*indexedOutput, error) {
	values, err := o.metadata.mbtilesValues()
	if err != nil {
		return nil, err
	}

	tmpPath, err := tempPath(path)
	if err != nil {
		return nil, err
	}

	writer, err := mb.NewWriter(tmpPath, mb.WithMetadata(values), mb.WithLogger(o.logger))
	if err != nil {
		removeIfExists(tmpPath)
		return nil, err
	}

	return &indexedOutput{
		path:    path,
		tmpPath: tmpPath,
		writer:  writer,
		logger:  o.logger,
	}, nil
}

func (i *indexedOutput) WriteTile(tileID tile.ID, tileData []byte) error {
	return i.writer.WriteTile(tileID, tileData)
}

func (i *indexedOutput) close() error {
	if i.closed {
		return nil
	}
	i.closed = true
	return i.writer.Close()
}

func (i *indexedOutput) Finalize() (err error) {
	defer func() {
		if err != nil {
			i.Abort()
		}
	}()

	if err := i.writer.Finalize(); err != nil {
		return err
	}
	if err := i.close(); err != nil {
		return err
	}
	if err := os.Rename(i.tmpPath, i.path); err != nil {
		return err
	}
	i.done = true
	return nil
}

func (i *indexedOutput) Abort() error {
	if i.done {
		return nil
	}
	return errors.Join(i.close(), removeIfExists(i.tmpPath))
}
