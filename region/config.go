// Package region builds the catalog of tile packages to produce: the
// configured regions joined with their clipping polygons.
package region

import (
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/viper"
)

var (
	ErrInvalidConfig   = errors.New("invalid region config")
	ErrDuplicateRegion = fmt.Errorf("%w: duplicate region", ErrInvalidConfig)
	ErrMissingPolygon  = errors.New("region polygon not found")
)

// Config is the region configuration document.
type Config struct {
	// PathTemplate renders the output path of a region, "{path}" is replaced
	// by the region path and "{version}" by Version. Defaults to "{path}", or
	// to "{path}-shortbread-{version}" for configs setting ShortbreadVersion.
	PathTemplate string `mapstructure:"path_template"`
	Version      string `mapstructure:"version"`
	// ShortbreadVersion is the legacy name of Version.
	ShortbreadVersion string `mapstructure:"shortbread_version"`
	// Metadata is added to the metadata of every output. Keys are case
	// insensitive and stored lower case, as MBTiles metadata names are.
	// Dots are part of the key.
	Metadata map[string]string `mapstructure:"metadata"`
	Polygons []Entry           `mapstructure:"polygons"`
}

// Entry configures one tile package.
type Entry struct {
	ID   string `mapstructure:"id"`
	Path string `mapstructure:"path"`
}

// LoadConfig reads a YAML (or any other viper supported) config file.
func LoadConfig(path string) (*Config, error) {
	// Metadata keys may contain dots.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if config.Version == "" {
		config.Version = config.ShortbreadVersion
	}
	if config.PathTemplate == "" {
		config.PathTemplate = "{path}"
		if config.ShortbreadVersion != "" {
			config.PathTemplate = "{path}-shortbread-{version}"
		}
	}
	if len(config.Polygons) == 0 {
		return nil, fmt.Errorf("%w: 'polygons' not found or an empty list", ErrInvalidConfig)
	}

	return &config, nil
}

// LoadFeatures reads the GeoJSON feature collection with the clipping polygons.
func LoadFeatures(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	features, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %w", ErrInvalidConfig, path, err)
	}
	if len(features.Features) == 0 {
		return nil, fmt.Errorf("%w: %v: GeoJSON is empty", ErrInvalidConfig, path)
	}
	return features, nil
}
