package predict

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/domain"
)

// predictBatch fans readings out over workers goroutines. Each result is
// written to its input's index, so order is preserved without coordination.
func predictBatch(p Predictor, readings []domain.Reading, workers int) ([]domain.PredictionResult, error) {
	results := make([]domain.PredictionResult, len(readings))
	errs := make([]error, len(readings))

	workers = min(workers, len(readings))
	workers = max(workers, 1)

	var (
		next atomic.Int64
		wg   sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1) - 1)
				if i >= len(readings) {
					return
				}
				results[i], errs[i] = p.Predict(readings[i])
			}
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("reading %d: %w", i, err)
		}
	}
	return results, nil
}
