package filter

import (
	"context"
	"runtime"
	"sync"

	"github.com/s0up4200/dnscerts/dnsimple"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of worker goroutines
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		e.workerCount = workers
	}
}

// WithBatchSize sets the minimum chunk size for concurrent evaluation
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// ConcurrentEvaluator implements both Evaluator and BatchEvaluator interfaces
type ConcurrentEvaluator struct {
	workerCount int
	batchSize   int
	pool        WorkerPool
}

// NewConcurrentEvaluator creates a new concurrent evaluator
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   100,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.workerCount <= 0 {
		e.workerCount = 1
	}
	e.pool = NewWorkerPool(e.workerCount)

	return e
}

// Evaluate returns the certificates matching filter, in input order
func (e *ConcurrentEvaluator) Evaluate(ctx context.Context, filter CompiledFilter, certs []dnsimple.Certificate) ([]dnsimple.Certificate, error) {
	if len(certs) == 0 {
		return []dnsimple.Certificate{}, nil
	}

	// Most accounts hold a handful of certificates
	if len(certs) < e.batchSize || !filter.IsThreadSafe() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return evaluateSequential(filter, certs), nil
	}

	return e.evaluateConcurrent(ctx, filter, certs)
}

// EvaluateBatch evaluates multiple filters against certificates concurrently.
// Filters that fail are left out of the result.
func (e *ConcurrentEvaluator) EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, certs []dnsimple.Certificate) (map[string][]dnsimple.Certificate, error) {
	results := make(map[string][]dnsimple.Certificate, len(filters))
	if len(filters) == 0 {
		return results, nil
	}

	resultChan := make(chan BatchResult, len(filters))

	var wg sync.WaitGroup
	for name, filter := range filters {
		wg.Add(1)

		// Each filter is one unit of work so tasks never wait on the pool
		err := e.pool.Submit(func() {
			defer wg.Done()

			if err := ctx.Err(); err != nil {
				resultChan <- BatchResult{FilterName: name, Error: err}
				return
			}

			resultChan <- BatchResult{
				FilterName: name,
				Matches:    evaluateSequential(filter, certs),
			}
		})

		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}

	wg.Wait()
	close(resultChan)

	for result := range resultChan {
		if result.Error != nil {
			continue
		}
		results[result.FilterName] = result.Matches
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// evaluateSequential evaluates a filter against all certificates sequentially
func evaluateSequential(filter CompiledFilter, certs []dnsimple.Certificate) []dnsimple.Certificate {
	matches := make([]dnsimple.Certificate, 0, len(certs))
	for _, cert := range certs {
		if filter.Evaluate(cert) {
			matches = append(matches, cert)
		}
	}
	return matches
}

// evaluateConcurrent splits certs into chunks and evaluates them on the pool
func (e *ConcurrentEvaluator) evaluateConcurrent(ctx context.Context, filter CompiledFilter, certs []dnsimple.Certificate) ([]dnsimple.Certificate, error) {
	chunkSize := max(len(certs)/e.workerCount, e.batchSize)
	chunkCount := (len(certs) + chunkSize - 1) / chunkSize

	// Each chunk writes only its own slot
	chunks := make([][]dnsimple.Certificate, chunkCount)

	var wg sync.WaitGroup
	for index := 0; index < chunkCount; index++ {
		start := index * chunkSize
		end := min(start+chunkSize, len(certs))
		chunk := certs[start:end]

		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()

			if ctx.Err() != nil {
				return
			}
			chunks[index] = evaluateSequential(filter, chunk)
		})

		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}

	matches := make([]dnsimple.Certificate, 0, total)
	for _, chunk := range chunks {
		matches = append(matches, chunk...)
	}

	return matches, nil
}

// Stop gracefully stops the evaluator's worker pool
func (e *ConcurrentEvaluator) Stop(ctx context.Context) error {
	return e.pool.Stop(ctx)
}
