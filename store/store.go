// Package store unifies the supported tile containers behind two capabilities:
// Input, a read-only tileset shared by concurrent readers, and Output, a
// tileset created for exactly one writer which becomes visible at its final
// path only after a successful Finalize.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/geofabrik/split-vectortiles-by-region/mb"
	"github.com/geofabrik/split-vectortiles-by-region/pm"
	"github.com/geofabrik/split-vectortiles-by-region/tile"
	"github.com/geofabrik/split-vectortiles-by-region/xyz"
)

var ErrUnknownFormat = errors.New("unknown tile store format")

type Format string

const (
	// FormatXYZ is a plain {z}/{x}/{y}<suffix> directory tree. Input only.
	FormatXYZ Format = "xyz"
	// FormatTarGz is a {z}/{x}/{y}<suffix> tree packed into a gzip compressed tar archive. Output only.
	FormatTarGz   Format = "tar.gz"
	FormatMBTiles Format = "mbtiles"
	FormatPMTiles Format = "pmtiles"
)

// ParseFormat accepts format names case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatXYZ, FormatTarGz, FormatMBTiles, FormatPMTiles:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// DeduceFormat returns format if set, otherwise guesses it from the path.
func DeduceFormat(format, filePath string) (Format, error) {
	if format != "" {
		return ParseFormat(format)
	}
	switch {
	case strings.HasSuffix(filePath, ".mbtiles"):
		return FormatMBTiles, nil
	case strings.HasSuffix(filePath, ".pmtiles"):
		return FormatPMTiles, nil
	case strings.HasSuffix(filePath, ".tar.gz"):
		return FormatTarGz, nil
	}
	return FormatXYZ, nil
}

// Extension returns the file name extension of an output in this format.
func (f Format) Extension() string {
	switch f {
	case FormatTarGz:
		return ".tar.gz"
	case FormatMBTiles:
		return ".mbtiles"
	case FormatPMTiles:
		return ".pmtiles"
	}
	return ""
}

// Input is a read-only tileset. Implementations are safe for concurrent use.
type Input interface {
	tile.Reader
	tile.Visitor

	// Metadata returns a fresh copy of the tileset metadata.
	Metadata() (Metadata, error)
	Close() error
}

// Output is a tileset under construction.
type Output interface {
	tile.Writer

	// Abort discards everything written so far and removes temporary files.
	// It is a no-op after a successful Finalize and may be called repeatedly.
	Abort() error
}

type options struct {
	suffix   string
	logger   *slog.Logger
	metadata Metadata
}

type Option func(*options)

// WithSuffix sets the tile file name suffix of directory based stores (default ".pbf").
func WithSuffix(suffix string) Option {
	return func(o *options) { o.suffix = suffix }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetadata sets the metadata stored in a new Output.
func WithMetadata(metadata Metadata) Option {
	return func(o *options) { o.metadata = metadata }
}

func newOptions(opts []Option) options {
	o := options{
		suffix: ".pbf",
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// OpenInput opens an existing tileset for reading.
func OpenInput(path string, format Format, opts ...Option) (Input, error) {
	o := newOptions(opts)

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatXYZ:
		if !info.IsDir() {
			return nil, fmt.Errorf("%v: not a directory", path)
		}
		reader, err := xyz.NewReader(xyz.Pattern(path, o.suffix))
		if err != nil {
			return nil, err
		}
		return &xyzInput{reader}, nil
	case FormatMBTiles:
		reader, err := mb.NewReader(path)
		if err != nil {
			return nil, err
		}
		return &mbInput{reader}, nil
	case FormatPMTiles:
		reader, err := pm.NewFileReader(path)
		if err != nil {
			return nil, err
		}
		return &pmInput{reader}, nil
	}
	return nil, fmt.Errorf("%w: %q can not be read", ErrUnknownFormat, format)
}

// CreateOutput starts a new tileset which replaces path on Finalize.
// Instances never share temporary files, so any number of them may be
// written concurrently as long as their paths differ.
func CreateOutput(path string, format Format, opts ...Option) (Output, error) {
	o := newOptions(opts)

	if _, err := os.Stat(path); err == nil {
		o.logger.Warn("output exists and will be replaced", slog.String("path", path))
	}

	switch format {
	case FormatTarGz:
		return newTreeOutput(path, o)
	case FormatMBTiles:
		return newIndexedOutput(path, o)
	case FormatPMTiles:
		return newPMOutput(path, o)
	}
	return nil, fmt.Errorf("%w: %q can not be written", ErrUnknownFormat, format)
}
