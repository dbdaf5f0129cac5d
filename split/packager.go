// Package split cuts a tileset into one package per region.
//
// A Packager copies the tiles a region's polygon covers from the shared input
// into a fresh output. Run packages a whole catalog on a bounded worker pool.
package split

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/geofabrik/split-vectortiles-by-region/locator"
	"github.com/geofabrik/split-vectortiles-by-region/region"
	"github.com/geofabrik/split-vectortiles-by-region/store"
	"github.com/geofabrik/split-vectortiles-by-region/tile"
)

// Options configure a Packager.
type Options struct {
	// Format of the region outputs.
	Format store.Format
	Zoom   tile.ZoomRange
	// Strict turns regions without tiles into failures.
	Strict bool
	// Suffix of tile files inside tar.gz outputs, store default if empty.
	Suffix string
	// Metadata overrides entries of the input metadata in every output.
	Metadata map[string]string
	Logger   *slog.Logger
}

// Packager writes region outputs from one shared input. It is safe for
// concurrent use as long as regions have distinct output paths.
type Packager struct {
	input    store.Input
	locator  locator.Locator
	opts     Options
	metadata store.Metadata
	logger   *slog.Logger
}

// NewPackager prepares packaging from input. The input metadata is read once
// and shared by all regions.
func NewPackager(input store.Input, locator locator.Locator, opts Options) (*Packager, error) {
	metadata, err := input.Metadata()
	if err != nil {
		return nil, fmt.Errorf("%w: reading input metadata: %w", ErrStore, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Packager{
		input:    input,
		locator:  locator,
		opts:     opts,
		metadata: metadata,
		logger:   logger,
	}, nil
}

// PackageRegion writes the output of one region. seq is the 1-based position
// of the region in the catalog and only used for logging.
// Tiles missing in the input are skipped. On failure no output is left at
// the region's output path.
func (p *Packager) PackageRegion(ctx context.Context, seq int, r region.Region) Result {
	logger := p.logger.With(slog.String("region", r.ID), slog.Int("seq", seq))
	result := Result{RegionID: r.ID, OutputPath: r.OutputPath}

	fail := func(err error) Result {
		logger.Error("region failed", slog.Any("error", err))
		result.Status = Failed
		result.Err = err
		return result
	}

	logger.Info("listing tiles", slog.String("zoom", p.opts.Zoom.String()))
	tiles, err := p.locator.ListTiles(ctx, r.Feature, p.opts.Zoom)
	if err != nil {
		return fail(err)
	}

	if len(tiles) == 0 {
		if p.opts.Strict {
			return fail(ErrRegionEmpty)
		}
		logger.Warn("no tiles in zoom range, skipping region")
		result.Status = NotFound
		return result
	}

	logger.Info("writing tiles", slog.Int("tiles", len(tiles)), slog.String("path", r.OutputPath))
	count, err := p.copyTiles(ctx, r, tiles, logger)
	if err != nil {
		return fail(err)
	}

	logger.Info("region done", slog.Int("written", count), slog.Int("missing", len(tiles)-count))
	result.Status = Success
	result.TileCount = count
	return result
}

func (p *Packager) copyTiles(ctx context.Context, r region.Region, tiles []tile.ID, logger *slog.Logger) (count int, err error) {
	if err := os.MkdirAll(filepath.Dir(r.OutputPath), 0o755); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStore, err)
	}

	opts := []store.Option{
		store.WithLogger(logger),
		store.WithMetadata(p.regionMetadata(r)),
	}
	if p.opts.Suffix != "" {
		opts = append(opts, store.WithSuffix(p.opts.Suffix))
	}
	output, err := store.CreateOutput(r.OutputPath, p.opts.Format, opts...)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, output.Abort())
		}
	}()

	empty := 0
	for _, tileID := range tiles {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		tileData, err := p.input.ReadTile(tileID)
		if errors.Is(err, tile.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("%w: reading %v: %w", ErrStore, tileID, err)
		}
		err = output.WriteTile(tileID, tileData)
		if errors.Is(err, tile.ErrEmptyTile) {
			empty++
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("%w: writing %v: %w", ErrStore, tileID, err)
		}
		count++
	}
	if empty > 0 {
		logger.Warn("empty tiles can not be stored in this format, skipped", slog.Int("tiles", empty), slog.String("format", string(p.opts.Format)))
	}

	if err := output.Finalize(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return count, nil
}

// regionMetadata is the input metadata narrowed to the region.
func (p *Packager) regionMetadata(r region.Region) store.Metadata {
	metadata := p.metadata.Clone()
	for k, v := range p.opts.Metadata {
		metadata[k] = v
	}

	bound := r.Bound()
	center := bound.Center()
	metadata["bounds"] = []float64{bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat()}
	metadata["center"] = []float64{center.Lon(), center.Lat(), float64(p.opts.Zoom.Min)}
	metadata["minzoom"] = int(p.opts.Zoom.Min)
	metadata["maxzoom"] = int(p.opts.Zoom.Max)
	return metadata
}
