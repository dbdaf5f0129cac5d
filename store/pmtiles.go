package store

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/geofabrik/split-vectortiles-by-region/pm"
	"github.com/geofabrik/split-vectortiles-by-region/tile"
)

// pmOutput builds a PMTiles archive at a temporary path and renames it into
// place on Finalize.
type pmOutput struct {
	path    string
	tmpPath string
	writer  *pm.Writer
	done    bool
}

func newPMOutput(path string, o options) (*pmOutput, error) {
	var jsonMetadata []byte
	if len(o.metadata) > 0 {
		var err error
		if jsonMetadata, err = json.Marshal(o.metadata); err != nil {
			return nil, err
		}
	}

	tmpPath, err := tempPath(path)
	if err != nil {
		return nil, err
	}

	writer, err := pm.NewWriter(tmpPath,
		pm.WithMetadata(jsonMetadata),
		pm.WithHeaderMetadata(o.metadata.headerMetadata()),
		pm.WithLogger(o.logger),
	)
	if err != nil {
		removeIfExists(tmpPath)
		return nil, err
	}

	return &pmOutput{path: path, tmpPath: tmpPath, writer: writer}, nil
}

func (p *pmOutput) WriteTile(tileID tile.ID, tileData []byte) error {
	return p.writer.WriteTile(tileID, tileData)
}

func (p *pmOutput) Finalize() (err error) {
	defer func() {
		if err != nil {
			p.Abort()
		}
	}()

	if err := p.writer.Finalize(); err != nil {
		return err
	}
	if err := os.Rename(p.tmpPath, p.path); err != nil {
		return err
	}
	p.done = true
	return nil
}

func (p *pmOutput) Abort() error {
	if p.done {
		return nil
	}
	return errors.Join(p.writer.Close(), removeIfExists(p.tmpPath))
}
