package similarity

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Failure records a document that could not be scored.
type Failure struct {
	DocID string
	Err   error
}

// Batch is the outcome of scoring many documents in one session. Results
// keep the order of the input document IDs, minus failures.
type Batch struct {
	Results  []Result
	Failures []Failure
}

// ScoreAll scores docIDs concurrently with at most parallelism documents in
// flight (GOMAXPROCS when parallelism <= 0). A document whose statistics
// are missing or invalid becomes a Failure and the rest are still scored.
// Only cancellation of ctx aborts the batch.
func (q *PreparedQuery) ScoreAll(ctx context.Context, docIDs []string, parallelism int) (Batch, error) {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(docIDs))
	errs := make([]error, len(docIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, docID := range docIDs {
		i, docID := i, docID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := q.Score(gctx, docID)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, err
	}

	batch := Batch{Results: make([]Result, 0, len(docIDs))}
	for i, docID := range docIDs {
		if errs[i] != nil {
			batch.Failures = append(batch.Failures, Failure{DocID: docID, Err: errs[i]})
			continue
		}
		batch.Results = append(batch.Results, results[i])
	}
	return batch, nil
}
