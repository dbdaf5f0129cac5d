package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/geofabrik/split-vectortiles-by-region/locator"
	"github.com/geofabrik/split-vectortiles-by-region/region"
	"github.com/geofabrik/split-vectortiles-by-region/split"
	"github.com/geofabrik/split-vectortiles-by-region/store"
	"github.com/geofabrik/split-vectortiles-by-region/tile"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

const zoomLimit = 20

type splitCmd struct {
	configPath  string
	format      string
	geojsonPath string
	inputPath   string
	inputFormat string
	logLevel    string
	logFormat   string
	outputDir   string
	workers     int
	suffix      string
	strict      bool
	toolPath    string
	locatorName string
	minZoom     int
	maxZoom     int
}

func (c *splitCmd) Name() string     { return "split" }
func (c *splitCmd) Synopsis() string { return "split a tileset into one package per region" }
func (c *splitCmd) Usage() string {
	return "tilesplit split -c <config> -f <format> -g <geojson> -i <input> -o <output dir> -t <tool> [flags]\n"
}
func (c *splitCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "c", "", "Region config file (YAML)")
	f.StringVar(&c.format, "f", "", "Output format (mbtiles, tar.gz, pmtiles)")
	f.StringVar(&c.geojsonPath, "g", "", "GeoJSON file with the region polygons")
	f.StringVar(&c.inputPath, "i", "", "Input tileset (directory, .mbtiles or .pmtiles)")
	f.StringVar(&c.inputFormat, "if", "", "Input format (xyz, mbtiles, pmtiles), deduced from -i if empty")
	f.StringVar(&c.logLevel, "l", "info", "Log level (debug, info, warning, error, critical)")
	f.StringVar(&c.logFormat, "log-format", "console", "Log format (console, json)")
	f.StringVar(&c.outputDir, "o", "", "Output base directory")
	f.IntVar(&c.workers, "p", runtime.NumCPU(), "Number of regions processed in parallel")
	f.StringVar(&c.suffix, "s", ".pbf", "Tile file suffix in directory trees")
	f.BoolVar(&c.strict, "S", false, "Fail if a region has no tiles")
	f.StringVar(&c.toolPath, "t", "", "Program listing the tiles of a polygon")
	f.StringVar(&c.locatorName, "locator", "exec", "Tile locator: exec (run -t) or cover (built in)")
	f.IntVar(&c.minZoom, "z", 0, "Minimum zoom level")
	f.IntVar(&c.maxZoom, "Z", 14, "Maximum zoom level")
}

// validate checks flags before any work is done.
func (c *splitCmd) validate(logger *slog.Logger) error {
	var errs []error
	required := func(value, name string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("flag -%v is required", name))
		}
	}
	required(c.configPath, "c")
	required(c.format, "f")
	required(c.geojsonPath, "g")
	required(c.inputPath, "i")
	required(c.outputDir, "o")

	if c.minZoom < 0 || c.minZoom > zoomLimit {
		errs = append(errs, fmt.Errorf("minimum zoom level %d outside of 0..%d", c.minZoom, zoomLimit))
	}
	if c.maxZoom < 0 || c.maxZoom > zoomLimit {
		errs = append(errs, fmt.Errorf("maximum zoom level %d outside of 0..%d", c.maxZoom, zoomLimit))
	}
	if c.minZoom > c.maxZoom {
		errs = append(errs, fmt.Errorf("minimum zoom level %d is larger than maximum zoom level %d", c.minZoom, c.maxZoom))
	}

	if c.format != "" {
		if format, err := store.ParseFormat(c.format); err != nil || format == store.FormatXYZ {
			errs = append(errs, fmt.Errorf("output format must be mbtiles, tar.gz or pmtiles, got %q", c.format))
		}
	}

	if c.outputDir != "" {
		if info, err := os.Stat(c.outputDir); err != nil {
			errs = append(errs, err)
		} else if !info.IsDir() {
			errs = append(errs, fmt.Errorf("output %v is not a directory", c.outputDir))
		}
	}
	if c.inputPath != "" {
		if _, err := os.Stat(c.inputPath); err != nil {
			errs = append(errs, err)
		}
	}

	switch c.locatorName {
	case "exec":
		required(c.toolPath, "t")
		if c.toolPath != "" {
			if info, err := os.Stat(c.toolPath); err != nil {
				errs = append(errs, err)
			} else if !info.Mode().IsRegular() {
				errs = append(errs, fmt.Errorf("tile list program %v is not a file", c.toolPath))
			}
		}
	case "cover":
	default:
		errs = append(errs, fmt.Errorf("unknown locator %q", c.locatorName))
	}

	if c.suffix != "" && !strings.HasPrefix(c.suffix, ".") {
		logger.Warn("tile suffix does not start with a dot", slog.String("suffix", c.suffix))
	}

	return errors.Join(errs...)
}

func (c *splitCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	logger, sync, err := newLogger(c.logLevel, c.logFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	defer sync()

	if err := c.validate(logger); err != nil {
		logger.Error("invalid arguments", slog.Any("error", err))
		return subcommands.ExitUsageError
	}

	if err := c.run(ctx, logger); err != nil {
		logger.Error("split failed", slog.Any("error", err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *splitCmd) run(ctx context.Context, logger *slog.Logger) error {
	format, err := store.ParseFormat(c.format)
	if err != nil {
		return err
	}

	config, err := region.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	features, err := region.LoadFeatures(c.geojsonPath)
	if err != nil {
		return err
	}
	catalog, err := region.Build(config, features, region.Layout{BaseDir: c.outputDir, Extension: format.Extension()})
	if err != nil {
		return err
	}
	logger.Info("regions loaded", slog.Int("regions", len(catalog.Regions)))

	inputFormat, err := store.DeduceFormat(c.inputFormat, c.inputPath)
	if err != nil {
		return err
	}
	input, err := store.OpenInput(c.inputPath, inputFormat, store.WithSuffix(c.suffix), store.WithLogger(logger))
	if err != nil {
		return err
	}
	defer input.Close()

	tileLocator, err := c.newLocator(inputFormat, logger)
	if err != nil {
		return err
	}

	packager, err := split.NewPackager(input, tileLocator, split.Options{
		Format:   format,
		Zoom:     tile.ZoomRange{Min: uint32(c.minZoom), Max: uint32(c.maxZoom)},
		Strict:   c.strict,
		Suffix:   c.suffix,
		Metadata: config.Metadata,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(catalog.Regions),
		progressbar.OptionSetDescription("regions"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
	)
	summary := split.Run(ctx, catalog, packager, c.workers, func(split.Result) {
		bar.Add(1)
	})
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	logger.Info("split finished",
		slog.Int("success", summary.Count(split.Success)),
		slog.Int("not_found", summary.Count(split.NotFound)),
		slog.Int("failed", summary.Count(split.Failed)),
		slog.Int("tiles", summary.Tiles()),
	)
	return summary.Err(c.strict)
}

func (c *splitCmd) newLocator(inputFormat store.Format, logger *slog.Logger) (locator.Locator, error) {
	if c.locatorName == "cover" {
		return locator.Cover{}, nil
	}

	// The program runs in the directory of the input.
	inputPath, err := filepath.Abs(c.inputPath)
	if err != nil {
		return nil, err
	}
	dir := inputPath
	if inputFormat != store.FormatXYZ {
		dir = filepath.Dir(inputPath)
	}
	toolPath, err := filepath.Abs(c.toolPath)
	if err != nil {
		return nil, err
	}
	return locator.NewExec(toolPath, locator.WithDir(dir), locator.WithLogger(logger))
}
