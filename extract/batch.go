package extract

import (
	"context"

	"github.com/castellan/extract/types"
)

// BatchResult pairs one source job with its outcome.
type BatchResult struct {
	Job    *types.Job
	Result *Result
	Err    error
}

// BatchExtract runs jobs sequentially; one job's failure is recorded and
// does not abort the remaining jobs, per the batch-extraction
// rule. The returned slice preserves jobs' input order.
func (x *Extractor) BatchExtract(ctx context.Context, jobs []*types.Job) []BatchResult {
	results := make([]BatchResult, 0, len(jobs))
	for _, job := range jobs {
		res, err := x.Run(ctx, job)
		results = append(results, BatchResult{Job: job, Result: res, Err: err})
	}
	return results
}
