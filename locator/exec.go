package locator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/geofabrik/split-vectortiles-by-region/tile"
	"github.com/paulmach/orb/geojson"
)

// Exec runs an external polygon-to-tile-list program once per region:
//
//	<program> -g <geojson file> -z <min zoom> -Z <max zoom>
//
// The GeoJSON file holds a FeatureCollection with the region feature only.
// The program prints one "z/x/y" line per tile on standard output.
type Exec struct {
	path   string
	dir    string
	env    []string
	logger *slog.Logger
}

type ExecOption func(*Exec)

// WithDir sets the working directory of the program.
func WithDir(dir string) ExecOption {
	return func(e *Exec) { e.dir = dir }
}

// WithEnv adds "KEY=value" entries to the program environment.
func WithEnv(env ...string) ExecOption {
	return func(e *Exec) { e.env = append(e.env, env...) }
}

func WithLogger(logger *slog.Logger) ExecOption {
	return func(e *Exec) { e.logger = logger }
}

// NewExec checks that path is a regular file and returns a Locator running it.
// OGR_ENABLE_PARTIAL_REPROJECTION=TRUE is always set for the program.
func NewExec(path string, opts ...ExecOption) (*Exec, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%v is not a file", path)
	}

	e := &Exec{
		path:   path,
		env:    []string{"OGR_ENABLE_PARTIAL_REPROJECTION=TRUE"},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Exec) ListTiles(ctx context.Context, feature *geojson.Feature, zooms tile.ZoomRange) ([]tile.ID, error) {
	geojsonPath, err := writeFeature(feature)
	if err != nil {
		return nil, err
	}
	defer os.Remove(geojsonPath)

	args := []string{
		"-g", geojsonPath,
		"-z", strconv.FormatUint(uint64(zooms.Min), 10),
		"-Z", strconv.FormatUint(uint64(zooms.Max), 10),
	}
	cmd := exec.CommandContext(ctx, e.path, args...)
	cmd.Dir = e.dir
	cmd.Env = append(os.Environ(), e.env...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.logger.Debug("running tile list program", slog.String("command", e.path+" "+strings.Join(args, " ")))

	stdout, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrLocator, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %v exited with code %d: %v", ErrLocator, e.path, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%w: %w", ErrLocator, err)
	}

	return ParseTileList(bytes.NewReader(stdout), zooms)
}

func writeFeature(feature *geojson.Feature) (string, error) {
	fc := geojson.NewFeatureCollection()
	fc.Append(feature)
	data, err := fc.MarshalJSON()
	if err != nil {
		return "", err
	}

	file, err := os.CreateTemp("", "region-*.geojson")
	if err != nil {
		return "", err
	}
	_, err = file.Write(data)
	if err = errors.Join(err, file.Close()); err != nil {
		os.Remove(file.Name())
		return "", err
	}
	return file.Name(), nil
}
