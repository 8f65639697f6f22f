package processor

import (
	"context"
	"fmt"
	"sync"

	"github.com/phambaophuc/resizo/internal/models"
)

const DefaultWorkers = 4

// ItemError ties a bulk failure to the index of the offending item.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// TransformBulk transforms items concurrently. Results are returned in item
// order. On failure no results are returned and the error is the *ItemError
// of the lowest failing index; items above an observed failure are skipped.
func (p *ImageProcessor) TransformBulk(ctx context.Context, items []models.BulkItem, workers int) ([]*models.TransformResult, error) {
	results := make([]*models.TransformResult, len(items))
	errs := make([]error, len(items))
	jobs := make(chan int, len(items))

	numWorkers := workers
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}
	if len(items) < numWorkers {
		numWorkers = len(items)
	}

	var (
		mu        sync.Mutex
		minFailed = len(items)
	)
	skip := func(i int) bool {
		mu.Lock()
		defer mu.Unlock()
		return i > minFailed
	}
	fail := func(i int, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs[i] = err
		if i < minFailed {
			minFailed = i
		}
	}

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if skip(i) {
					continue
				}
				result, err := p.Transform(ctx, items[i].File.Data, itemConfig(items[i]))
				if err != nil {
					fail(i, err)
					continue
				}
				results[i] = result
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if minFailed < len(items) {
		return nil, &ItemError{Index: items[minFailed].Index, Err: errs[minFailed]}
	}
	return results, nil
}

// itemConfig resolves the defaults of an item sent without a config: no
// resize and the source format.
func itemConfig(item models.BulkItem) models.TransformConfig {
	if item.Config == nil {
		return models.TransformConfig{Format: models.FormatOriginal}
	}
	return *item.Config
}
