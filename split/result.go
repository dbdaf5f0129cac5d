package split

import (
	"errors"
	"fmt"
)

var (
	// ErrRegionEmpty is reported in strict mode for regions without tiles in the zoom range.
	ErrRegionEmpty = errors.New("region has no tiles")

	// ErrStore wraps input and output IO failures.
	ErrStore = errors.New("tile store failed")
)

// Status is the outcome class of a region.
type Status int

const (
	// Success means the output was written, possibly without tiles when
	// none of the listed tiles exist in the input.
	Success Status = iota
	// NotFound means the region covers no tiles in the zoom range and no output was written.
	NotFound
	Failed
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case NotFound:
		return "not found"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result is the outcome of packaging one region.
type Result struct {
	RegionID   string
	OutputPath string
	Status     Status
	// TileCount is the number of tiles written to the output.
	TileCount int
	// Err is set iff Status is Failed.
	Err error
}

// Summary holds the results of a run in catalog order.
type Summary struct {
	Results []Result
}

// Count returns the number of regions with the given status.
func (s Summary) Count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Tiles returns the number of tiles written over all regions.
func (s Summary) Tiles() int {
	n := 0
	for _, r := range s.Results {
		n += r.TileCount
	}
	return n
}

// Err returns the joined errors of failed regions. In strict mode regions
// without tiles count as failures too. It returns nil for a successful run.
func (s Summary) Err(strict bool) error {
	var errs []error
	for _, r := range s.Results {
		switch {
		case r.Status == Failed:
			errs = append(errs, fmt.Errorf("region %q: %w", r.RegionID, r.Err))
		case r.Status == NotFound && strict:
			errs = append(errs, fmt.Errorf("region %q: %w", r.RegionID, ErrRegionEmpty))
		}
	}
	return errors.Join(errs...)
}
