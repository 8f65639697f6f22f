package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// UploadMultiple uploads objects concurrently and returns the keys that were
// stored. The error lists every failed object.
func (s *StorageService) UploadMultiple(ctx context.Context, objects []Object) ([]string, error) {
	if len(objects) == 0 {
		return []string{}, nil
	}

	errors := make([]error, len(objects))

	numWorkers := s.workers
	if len(objects) < numWorkers {
		numWorkers = len(objects)
	}

	jobs := make(chan int, len(objects))
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errors[i] = s.Upload(ctx, objects[i].Data, objects[i].Key, objects[i].ContentType)
			}
		}()
	}

	for i := range objects {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	var failedUploads []string
	stored := make([]string, 0, len(objects))

	for i, err := range errors {
		if err != nil {
			failedUploads = append(failedUploads, fmt.Sprintf("%s: %v", objects[i].Key, err))
		} else {
			stored = append(stored, objects[i].Key)
		}
	}

	if len(failedUploads) > 0 {
		return stored, fmt.Errorf("failed to upload %d files: %s",
			len(failedUploads), strings.Join(failedUploads, "; "))
	}

	return stored, nil
}
