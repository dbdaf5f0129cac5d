package split

import (
	"context"
	"runtime"
	"sync"

	"github.com/geofabrik/split-vectortiles-by-region/region"
	"golang.org/x/sync/errgroup"
)

// Run packages every region of the catalog with at most workers regions in
// parallel (runtime.NumCPU if workers <= 0). A failing region does not stop
// the others. Once ctx is cancelled, regions not yet started fail with the
// context error. onDone, if set, is called after each region, one call at a time.
func Run(ctx context.Context, catalog *region.Catalog, packager *Packager, workers int, onDone func(Result)) Summary {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]Result, len(catalog.Regions))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(workers)
	for i, r := range catalog.Regions {
		g.Go(func() error {
			var result Result
			if err := ctx.Err(); err != nil {
				result = Result{RegionID: r.ID, OutputPath: r.OutputPath, Status: Failed, Err: err}
			} else {
				result = packager.PackageRegion(ctx, i+1, r)
			}
			results[i] = result

			if onDone != nil {
				mu.Lock()
				defer mu.Unlock()
				onDone(result)
			}
			return nil
		})
	}
	// Workers report through results, never through the group.
	_ = g.Wait()

	return Summary{Results: results}
}
