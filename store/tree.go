package store

import (
	"archive/tar"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/geofabrik/split-vectortiles-by-region/tile"
	"github.com/geofabrik/split-vectortiles-by-region/xyz"
	"github.com/klauspost/compress/gzip"
)

// treeOutput writes tiles into a private working directory and packs it
// into a tar.gz archive on Finalize.
type treeOutput struct {
	path     string
	workDir  string
	writer   *xyz.Writer
	metadata Metadata
	logger   *slog.Logger
	done     bool
}

func newTreeOutput(path string, o options) (*treeOutput, error) {
	workDir, err := os.MkdirTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.d")
	if err != nil {
		return nil, err
	}
	writer, err := xyz.NewWriter(xyz.Pattern(workDir, o.suffix))
	if err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}
	return &treeOutput{
		path:     path,
		workDir:  workDir,
		writer:   writer,
		metadata: o.metadata,
		logger:   o.logger,
	}, nil
}

func (t *treeOutput) WriteTile(tileID tile.ID, tileData []byte) error {
	return t.writer.WriteTile(tileID, tileData)
}

func (t *treeOutput) Finalize() (err error) {
	defer func() {
		if err != nil {
			t.Abort()
		}
	}()

	if len(t.metadata) > 0 {
		if err := t.writer.WriteMetadata(t.metadata); err != nil {
			return err
		}
	}
	if err := t.writer.Finalize(); err != nil {
		return err
	}

	tmpPath, err := tempPath(t.path)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			removeIfExists(tmpPath)
		}
	}()

	t.logger.Debug("packing archive", slog.String("path", t.path))
	if err := writeArchiveFile(tmpPath, t.workDir); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, t.path); err != nil {
		return err
	}

	t.done = true
	if err := os.RemoveAll(t.workDir); err != nil {
		t.logger.Warn("failed to remove working directory", slog.String("path", t.workDir), slog.Any("error", err))
	}
	return nil
}

func (t *treeOutput) Abort() error {
	if t.done {
		return nil
	}
	return os.RemoveAll(t.workDir)
}

func writeArchiveFile(path, rootDir string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	err = WriteArchive(file, rootDir)
	if err == nil {
		err = file.Sync()
	}
	return errors.Join(err, file.Close())
}

// WriteArchive packs all regular files below rootDir into a gzip compressed
// tar stream. Entries are sorted and carry no owner or timestamp, so the same
// tree always produces the same bytes.
func WriteArchive(w io.Writer, rootDir string) error {
	gzWriter, err := gzip.NewWriterLevel(w, gzip.BestSpeed)
	if err != nil {
		return err
	}
	tarWriter := tar.NewWriter(gzWriter)

	err = filepath.WalkDir(rootDir, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(rootDir, filePath)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		header := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     filepath.ToSlash(relPath),
			Size:     info.Size(),
			Mode:     0644,
			ModTime:  time.Unix(0, 0),
			Format:   tar.FormatUSTAR,
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}

		file, err := os.Open(filePath)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(tarWriter, file)
		return err
	})
	if err != nil {
		return err
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	return gzWriter.Close()
}
