package region

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Region is a configured tile package joined with its clipping polygon.
type Region struct {
	ID string
	// Path is the slash separated region path from the config.
	Path string
	// OutputPath is where the finished package is stored.
	OutputPath string
	Feature    *geojson.Feature
}

// Bound returns the bounding box of the clipping polygon.
func (r Region) Bound() orb.Bound {
	return r.Feature.Geometry.Bound()
}

// Catalog lists regions in config order.
type Catalog struct {
	Regions []Region
}

// Layout decides where outputs are stored.
type Layout struct {
	BaseDir string
	// Extension is appended to the rendered path template, e.g. ".mbtiles".
	Extension string
}

// OutputPath renders the output path of a region path.
func (l Layout) OutputPath(config *Config, regionPath string) string {
	template := config.PathTemplate
	if template == "" {
		template = "{path}"
	}
	name := strings.NewReplacer("{path}", regionPath, "{version}", config.Version).Replace(template)
	return filepath.Join(l.BaseDir, filepath.FromSlash(name)) + l.Extension
}

// FeatureID returns the region id of a feature: the "id" property, or the
// GeoJSON feature id if the property is absent.
func FeatureID(feature *geojson.Feature) string {
	if id, ok := feature.Properties["id"]; ok && id != nil {
		return fmt.Sprint(id)
	}
	if feature.ID != nil {
		return fmt.Sprint(feature.ID)
	}
	return ""
}

// Build validates config entries and joins them with their polygons.
// Every entry must have a polygon, features without an entry are ignored.
// When several features share an id, the first one is used.
func Build(config *Config, features *geojson.FeatureCollection, layout Layout) (*Catalog, error) {
	polygons := make(map[string]*geojson.Feature)
	for _, feature := range features.Features {
		id := FeatureID(feature)
		if _, exists := polygons[id]; id == "" || exists {
			continue
		}
		polygons[id] = feature
	}

	var missing []error
	ids := make(map[string]bool)
	outputs := make(map[string]string)
	catalog := &Catalog{Regions: make([]Region, 0, len(config.Polygons))}

	for i, entry := range config.Polygons {
		if entry.ID == "" {
			return nil, fmt.Errorf("%w: polygon #%d has no id", ErrInvalidConfig, i+1)
		}
		if !filepath.IsLocal(filepath.FromSlash(entry.Path)) {
			return nil, fmt.Errorf("%w: region %q: path %q must be relative and stay inside the output directory", ErrInvalidConfig, entry.ID, entry.Path)
		}
		if ids[entry.ID] {
			return nil, fmt.Errorf("%w: id %q", ErrDuplicateRegion, entry.ID)
		}
		ids[entry.ID] = true

		outputPath := layout.OutputPath(config, entry.Path)
		if other, exists := outputs[outputPath]; exists {
			return nil, fmt.Errorf("%w: regions %q and %q both write %v", ErrDuplicateRegion, other, entry.ID, outputPath)
		}
		outputs[outputPath] = entry.ID

		feature, found := polygons[entry.ID]
		if !found {
			missing = append(missing, fmt.Errorf("%w: %q", ErrMissingPolygon, entry.ID))
			continue
		}
		if !isPolygonal(feature.Geometry) {
			return nil, fmt.Errorf("%w: region %q: geometry must be a Polygon or MultiPolygon, got %v", ErrInvalidConfig, entry.ID, geometryType(feature.Geometry))
		}

		catalog.Regions = append(catalog.Regions, Region{
			ID:         entry.ID,
			Path:       entry.Path,
			OutputPath: outputPath,
			Feature:    feature,
		})
	}

	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}
	return catalog, nil
}

func isPolygonal(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "no geometry"
	}
	return g.GeoJSONType()
}
