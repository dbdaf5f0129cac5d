package region_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/geofabrik/split-vectortiles-by-region/region"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(minX, minY, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minX, minY}, {minX + size, minY}, {minX + size, minY + size}, {minX, minY + size}, {minX, minY},
	}}
}

func featureCollection(ids ...string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, id := range ids {
		f := geojson.NewFeature(square(float64(i), float64(i), 1))
		f.Properties["id"] = id
		fc.Append(f)
	}
	return fc
}

func TestBuild(t *testing.T) {
	config := &region.Config{
		PathTemplate: "{path}-shortbread-{version}",
		Version:      "1.0",
		Polygons: []region.Entry{
			{ID: "a", Path: "x/a"},
			{ID: "b", Path: "x/b"},
		},
	}
	layout := region.Layout{BaseDir: "/out", Extension: ".mbtiles"}

	catalog, err := region.Build(config, featureCollection("b", "unused", "a"), layout)
	require.NoError(t, err)
	require.Len(t, catalog.Regions, 2)

	a, b := catalog.Regions[0], catalog.Regions[1]
	assert.Equal(t, "a", a.ID)
	assert.Equal(t, filepath.Join("/out", "x", "a-shortbread-1.0.mbtiles"), a.OutputPath)
	assert.Equal(t, "b", b.ID)
	assert.Equal(t, filepath.Join("/out", "x", "b-shortbread-1.0.mbtiles"), b.OutputPath)
	assert.Equal(t, orb.Bound{Min: orb.Point{2, 2}, Max: orb.Point{3, 3}}, a.Bound())
}

func TestBuildMissingPolygon(t *testing.T) {
	config := &region.Config{Polygons: []region.Entry{
		{ID: "a", Path: "a"},
		{ID: "c", Path: "c"},
		{ID: "d", Path: "d"},
	}}

	_, err := region.Build(config, featureCollection("a"), region.Layout{BaseDir: "/out"})
	require.True(t, errors.Is(err, region.ErrMissingPolygon), "%v", err)
	assert.Contains(t, err.Error(), `"c"`)
	assert.Contains(t, err.Error(), `"d"`)
}

func TestBuildDuplicates(t *testing.T) {
	for name, config := range map[string]*region.Config{
		"id": {Polygons: []region.Entry{
			{ID: "a", Path: "a"},
			{ID: "a", Path: "b"},
		}},
		"output path": {Polygons: []region.Entry{
			{ID: "a", Path: "x/a"},
			{ID: "b", Path: "x/./a"},
		}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := region.Build(config, featureCollection("a", "b"), region.Layout{BaseDir: "/out"})
			require.True(t, errors.Is(err, region.ErrDuplicateRegion), "%v", err)
			require.True(t, errors.Is(err, region.ErrInvalidConfig), "%v", err)
		})
	}
}

func TestBuildInvalidEntries(t *testing.T) {
	for name, entry := range map[string]region.Entry{
		"no id":         {ID: "", Path: "a"},
		"no path":       {ID: "a", Path: ""},
		"absolute path": {ID: "a", Path: "/etc/a"},
		"escaping path": {ID: "a", Path: "../a"},
	} {
		t.Run(name, func(t *testing.T) {
			config := &region.Config{Polygons: []region.Entry{entry}}
			_, err := region.Build(config, featureCollection("a"), region.Layout{BaseDir: "/out"})
			require.True(t, errors.Is(err, region.ErrInvalidConfig), "%v", err)
		})
	}
}

func TestBuildRejectsNonPolygons(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Point{1, 2})
	f.Properties["id"] = "a"
	fc.Append(f)

	config := &region.Config{Polygons: []region.Entry{{ID: "a", Path: "a"}}}
	_, err := region.Build(config, fc, region.Layout{BaseDir: "/out"})
	require.True(t, errors.Is(err, region.ErrInvalidConfig), "%v", err)
}

func TestFeatureID(t *testing.T) {
	f := geojson.NewFeature(square(0, 0, 1))
	assert.Equal(t, "", region.FeatureID(f))

	f.ID = 42.0
	assert.Equal(t, "42", region.FeatureID(f))

	f.Properties["id"] = "europe/germany"
	assert.Equal(t, "europe/germany", region.FeatureID(f))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
shortbread_version: "1.0"
path_template: "{path}-shortbread-{version}"
metadata:
  name: Shortbread
  attribution: OpenStreetMap contributors (ODbL)
polygons:
  - id: germany
    path: europe/germany
  - id: france
    path: europe/france
`), 0644))

	config, err := region.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "{path}-shortbread-{version}", config.PathTemplate)
	assert.Equal(t, "Shortbread", config.Metadata["name"])
	assert.Equal(t, []region.Entry{
		{ID: "germany", Path: "europe/germany"},
		{ID: "france", Path: "europe/france"},
	}, config.Polygons)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("polygons:\n  - {id: a, path: a}\n"), 0644))

	config, err := region.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "{path}", config.PathTemplate)
}

func TestLoadConfigLegacyTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
shortbread_version: "1.0"
polygons:
  - {id: germany, path: europe/germany}
`), 0644))

	config, err := region.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "{path}-shortbread-{version}", config.PathTemplate)

	layout := region.Layout{BaseDir: "/out", Extension: ".mbtiles"}
	assert.Equal(t, filepath.Join("/out", "europe", "germany-shortbread-1.0.mbtiles"), layout.OutputPath(config, "europe/germany"))
}

func TestLoadConfigMetadataKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
metadata:
  Name: Shortbread
  tile.format: pbf
polygons:
  - {id: a, path: a}
`), 0644))

	config, err := region.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "Shortbread", "tile.format": "pbf"}, config.Metadata)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("polygons: []\n"), 0644))

	for _, path := range []string{empty, filepath.Join(dir, "missing.yaml")} {
		_, err := region.LoadConfig(path)
		require.True(t, errors.Is(err, region.ErrInvalidConfig), "%v: %v", path, err)
	}
}

func TestLoadFeatures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regions.geojson")
	data, err := featureCollection("a", "b").MarshalJSON()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	features, err := region.LoadFeatures(path)
	require.NoError(t, err)
	require.Len(t, features.Features, 2)
	assert.Equal(t, "b", region.FeatureID(features.Features[1]))

	emptyPath := filepath.Join(dir, "empty.geojson")
	require.NoError(t, os.WriteFile(emptyPath, []byte(`{"type":"FeatureCollection","features":[]}`), 0644))
	_, err = region.LoadFeatures(emptyPath)
	require.True(t, errors.Is(err, region.ErrInvalidConfig), "%v", err)
}
