package mb

import (
	"database/sql"
	"errors"
	"log/slog"
	"maps"
	"slices"

	"github.com/geofabrik/split-vectortiles-by-region/tile"
)

// Writer implements tile.Writer interface for MBTiles format.
// All tiles are inserted in one transaction which is committed by Finalize.
type Writer struct {
	db     *sql.DB
	tx     *sql.Tx
	stmt   *sql.Stmt
	logger *slog.Logger
}

type writerConfig struct {
	Metadata map[string]string
	Logger   *slog.Logger
}

type WriterOption func(*writerConfig)

func WithMetadata(metadata map[string]string) WriterOption {
	return func(c *writerConfig) { c.Metadata = metadata }
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

// NewWriter creates a new Writer for writing to a MBTiles file.
// The file must not contain any tables yet.
// It applies given options and initializes database for writing tiles.
func NewWriter(filePath string, opts ...WriterOption) (*Writer, error) {
	config := writerConfig{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	var err error
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// pragmas are per connection
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		PRAGMA auto_vacuum = 0;
		PRAGMA journal_mode = MEMORY;
		PRAGMA synchronous = OFF;
		CREATE TABLE metadata (name TEXT, value TEXT);
		CREATE TABLE tiles (
			zoom_level INTEGER,
			tile_column INTEGER,
			tile_row INTEGER,
			tile_data BLOB
		);
	`)
	if err != nil {
		return nil, err
	}

	for _, k := range slices.Sorted(maps.Keys(config.Metadata)) {
		_, err = db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, config.Metadata[k])
		if err != nil {
			return nil, err
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}

	stmt, err := tx.Prepare("INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	return &Writer{db, tx, stmt, config.Logger}, nil
}

// Close releases database resources. Tiles not yet committed by Finalize are discarded.
func (w *Writer) Close() error {
	var errs []error
	if w.tx != nil {
		errs = append(errs, w.stmt.Close(), w.tx.Rollback())
		w.tx = nil
	}
	errs = append(errs, w.db.Close())
	return errors.Join(errs...)
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	_, err := w.stmt.Exec(tileID.Z, tileID.X, tileID.FlipY(), tileData) // XYZ -> TMS
	return err
}

func (w *Writer) Finalize() error {
	if w.tx == nil {
		panic("mb: finalize called twice")
	}

	w.logger.Debug("mb: commit tiles")
	err := errors.Join(w.stmt.Close(), w.tx.Commit())
	w.tx = nil
	if err != nil {
		return err
	}

	w.logger.Debug("mb: creating index")
	if _, err := w.db.Exec("CREATE UNIQUE INDEX tile_index ON tiles (zoom_level, tile_column, tile_row)"); err != nil {
		return err
	}

	w.logger.Debug("mb: done")
	return nil
}
