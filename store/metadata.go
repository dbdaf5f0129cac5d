package store

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/geofabrik/split-vectortiles-by-region/pm"
)

const e7 = 10000000.0

// Metadata describes a tileset. Keys follow the MBTiles metadata table
// ("name", "format", "bounds", "minzoom", ...). Values are whatever the source
// provided: strings for MBTiles, arbitrary JSON values for metadata.json.
type Metadata map[string]any

func (m Metadata) Clone() Metadata {
	if m == nil {
		return make(Metadata)
	}
	return maps.Clone(m)
}

// Bounds returns the "bounds" entry as west, south, east, north.
// Both the MBTiles "w,s,e,n" string and a JSON array of numbers are accepted.
func (m Metadata) Bounds() ([4]float64, bool) {
	var bounds [4]float64
	values, ok := m.floats("bounds")
	if !ok || len(values) != 4 {
		return bounds, false
	}
	copy(bounds[:], values)
	return bounds, true
}

// Center returns the "center" entry as longitude, latitude, zoom.
func (m Metadata) Center() ([3]float64, bool) {
	var center [3]float64
	values, ok := m.floats("center")
	if !ok || len(values) != 3 {
		return center, false
	}
	copy(center[:], values)
	return center, true
}

// Int returns a numeric entry such as "minzoom".
func (m Metadata) Int(key string) (int, bool) {
	values, ok := m.floats(key)
	if !ok || len(values) != 1 {
		return 0, false
	}
	return int(values[0]), true
}

func (m Metadata) floats(key string) ([]float64, bool) {
	switch v := m[key].(type) {
	case string:
		parts := strings.Split(v, ",")
		values := make([]float64, len(parts))
		for i, part := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, false
			}
			values[i] = f
		}
		return values, true
	case []float64:
		return v, true
	case []any:
		values := make([]float64, len(v))
		for i, item := range v {
			f, ok := toFloat(item)
			if !ok {
				return nil, false
			}
			values[i] = f
		}
		return values, true
	default:
		f, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		return []float64{f}, true
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// mbtilesValues renders metadata as MBTiles metadata table rows:
// lists become comma separated, other non-string values JSON encoded.
func (m Metadata) mbtilesValues() (map[string]string, error) {
	values := make(map[string]string, len(m))
	for k, v := range m {
		switch v := v.(type) {
		case string:
			values[k] = v
		case []float64:
			parts := make([]string, len(v))
			for i, f := range v {
				parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
			}
			values[k] = strings.Join(parts, ",")
		case int, int64, uint32, float64:
			values[k] = fmt.Sprint(v)
		default:
			data, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("metadata %q: %w", k, err)
			}
			values[k] = string(data)
		}
	}
	return values, nil
}

// headerMetadata fills the PMTiles header from metadata, the world is the default extent.
func (m Metadata) headerMetadata() pm.HeaderMetadata {
	header := pm.HeaderMetadata{}

	if format, ok := m["format"].(string); ok {
		header.TileType, header.TileCompression = pm.TileFormat(format)
	}

	bounds, ok := m.Bounds()
	if !ok {
		bounds = [4]float64{-180, -85, 180, 85}
	}
	header.MinLonE7 = int32(bounds[0] * e7)
	header.MinLatE7 = int32(bounds[1] * e7)
	header.MaxLonE7 = int32(bounds[2] * e7)
	header.MaxLatE7 = int32(bounds[3] * e7)

	if z, ok := m.Int("minzoom"); ok {
		header.MinZoom = uint8(z)
	}
	if z, ok := m.Int("maxzoom"); ok {
		header.MaxZoom = uint8(z)
	}

	if center, ok := m.Center(); ok {
		header.CenterLonE7 = int32(center[0] * e7)
		header.CenterLatE7 = int32(center[1] * e7)
		header.CenterZoom = uint8(center[2])
	} else {
		header.CenterLonE7 = int32((bounds[0] + bounds[2]) / 2 * e7)
		header.CenterLatE7 = int32((bounds[1] + bounds[3]) / 2 * e7)
		header.CenterZoom = header.MinZoom
	}

	return header
}
