package store

import (
	"encoding/json"
	"fmt"

	"github.com/geofabrik/split-vectortiles-by-region/mb"
	"github.com/geofabrik/split-vectortiles-by-region/pm"
	"github.com/geofabrik/split-vectortiles-by-region/xyz"
)

type xyzInput struct {
	*xyz.Reader
}

func (i *xyzInput) Metadata() (Metadata, error) {
	return i.ReadMetadata()
}

func (i *xyzInput) Close() error {
	return nil
}

type mbInput struct {
	*mb.Reader
}

func (i *mbInput) Metadata() (Metadata, error) {
	values, err := i.ReadMetadata()
	if err != nil {
		return nil, err
	}
	metadata := make(Metadata, len(values))
	for k, v := range values {
		metadata[k] = v
	}
	return metadata, nil
}

type pmInput struct {
	*pm.Reader
}

// Metadata merges the JSON metadata block with the descriptive header fields.
func (i *pmInput) Metadata() (Metadata, error) {
	metadata := make(Metadata)
	data, err := i.ReadMetadata()
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &metadata); err != nil {
			return nil, fmt.Errorf("pmtiles metadata: %w", err)
		}
	}

	header := i.HeaderMetadata()
	if _, ok := metadata["format"]; !ok {
		if format := header.TileType.Format(); format != "" {
			metadata["format"] = format
		}
	}
	if _, ok := metadata["bounds"]; !ok && header.MinLonE7 != header.MaxLonE7 {
		metadata["bounds"] = []float64{
			float64(header.MinLonE7) / e7,
			float64(header.MinLatE7) / e7,
			float64(header.MaxLonE7) / e7,
			float64(header.MaxLatE7) / e7,
		}
	}
	return metadata, nil
}
