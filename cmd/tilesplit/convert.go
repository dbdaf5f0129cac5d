package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/geofabrik/split-vectortiles-by-region/store"
	"github.com/geofabrik/split-vectortiles-by-region/tile"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type convertCmd struct {
	inputFormat  string
	inputPath    string
	outputFormat string
	outputPath   string
	suffix       string
	logLevel     string
}

func (c *convertCmd) Name() string     { return "convert" }
func (c *convertCmd) Synopsis() string { return "convert between tile storage formats" }
func (c *convertCmd) Usage() string {
	return "tilesplit convert -i <path> -o <path> [-if <format> | -of <format>]\n"
}
func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input format (xyz, mbtiles, pmtiles)")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output format (mbtiles, pmtiles, tar.gz)")
	f.StringVar(&c.suffix, "s", ".pbf", "Tile file suffix in directory trees")
	f.StringVar(&c.logLevel, "l", "info", "Log level")
}

func (c *convertCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	logger, sync, err := newLogger(c.logLevel, "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	defer sync()

	if c.inputPath == "" || c.outputPath == "" {
		logger.Error("flags -i and -o are required")
		return subcommands.ExitUsageError
	}

	if err := c.convert(ctx, logger); err != nil {
		logger.Error("convert failed", slog.Any("error", err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *convertCmd) convert(ctx context.Context, logger *slog.Logger) (err error) {
	inputFormat, err := store.DeduceFormat(c.inputFormat, c.inputPath)
	if err != nil {
		return err
	}
	outputFormat, err := store.DeduceFormat(c.outputFormat, c.outputPath)
	if err != nil {
		return err
	}

	input, err := store.OpenInput(c.inputPath, inputFormat, store.WithSuffix(c.suffix), store.WithLogger(logger))
	if err != nil {
		return err
	}
	defer input.Close()

	metadata, err := input.Metadata()
	if err != nil {
		return err
	}

	output, err := store.CreateOutput(c.outputPath, outputFormat,
		store.WithSuffix(c.suffix),
		store.WithMetadata(metadata),
		store.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			output.Abort()
		}
	}()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionShowIts(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
	)
	empty := 0
	err = input.VisitTiles(func(tileID tile.ID, tileData []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := output.WriteTile(tileID, tileData)
		if errors.Is(err, tile.ErrEmptyTile) {
			empty++
			err = nil
		}
		bar.Add(1)
		return err
	})
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	if empty > 0 {
		logger.Warn("empty tiles skipped", slog.Int("tiles", empty), slog.String("format", string(outputFormat)))
	}

	return output.Finalize()
}
