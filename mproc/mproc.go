/*Package mproc splits a trajectory into chunks of frames, runs a compute
function over the chunks on a pool of goroutines, and feeds the partial
results to a reduce function in strict chunk order.

The reduce function runs on the goroutine that called Run, never
concurrently, so it can write to files, accumulate into matrices or append to
slices without any locking. Results that finish out of order are buffered
until their turn; the buffer is bounded, so a slow early chunk suspends the
pool instead of filling memory with finished late chunks.*/
package mproc

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Compute produces the partial result for one chunk of frames. It receives
// the shared, read-only context cctx describing the problem, the common
// chunk size, and the number of the chunk to process, which covers frames
// chunkSize*chunkID up to (but excluding) chunkSize*(chunkID+1). The last
// chunk of a trajectory is usually shorter than chunkSize, so a Compute must
// clip the range to the frames that exist.
type Compute[C, R any] func(cctx C, chunkSize, chunkID int) (R, error)

// Reduce consumes the partial result of one chunk. Run calls it exactly once
// per chunk, in strictly ascending chunkID order, always on the goroutine
// that called Run.
type Reduce[R any] func(chunkID int, partial R) error

// Chunks returns the chunk size and the number of chunks that Run will use
// for a trajectory of total frames on the given number of workers: the size
// is ceil(total/workers) after clamping workers to [1, total]. It is
// exported so reducers that map frame numbers back from chunk numbers can
// use the same arithmetic.
func Chunks(total, workers int) (size, n int) {
	if total <= 0 {
		return 0, 0
	}
	if workers > total {
		workers = total
	}
	if workers < 1 {
		workers = 1
	}
	size = (total + workers - 1) / workers
	n = total / size
	if total%size != 0 {
		n++
	}
	return size, n
}

type result[R any] struct {
	id  int
	val R
}

// Run processes a trajectory of total frames with the given number of
// workers. Each chunk of frames is handed to compute on some worker
// goroutine; the partials are passed to reduce in chunk order on the calling
// goroutine. A total of zero (or less) returns immediately with no calls
// made. The first compute failure stops the pool and is returned as a
// *WorkerError; the failing chunk and any later one are never reduced.
// Chunks before the failing one may or may not be reduced, depending on how
// far the pool got. An error from reduce likewise stops the pool and is
// returned.
func Run[C, R any](total, workers int, compute Compute[C, R], reduce Reduce[R], cctx C) error {
	if total <= 0 {
		return nil
	}
	size, nchunks := Chunks(total, workers)
	if workers > total {
		workers = total
	}
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	jobs := make(chan int)
	results := make(chan result[R], workers)
	//sem bounds the chunks that have been started but not yet reduced, so
	//finished chunks can not pile up behind a slow early one.
	sem := make(chan struct{}, workers)

	g.Go(func() error {
		defer close(jobs)
		for id := 0; id < nchunks; id++ {
			select {
			case jobs <- id:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				//acquire before taking a job: a worker that holds a chunk
				//always holds a slot, so the chunk the reducer waits for is
				//never stuck behind later ones.
				select {
				case sem <- struct{}{}:
				case <-gctx.Done():
					return nil
				}
				var id int
				select {
				case v, ok := <-jobs:
					if !ok {
						return nil
					}
					id = v
				case <-gctx.Done():
					return nil
				}
				r, err := compute(cctx, size, id)
				if err != nil {
					return &WorkerError{chunk: id, err: err}
				}
				select {
				case results <- result[R]{id: id, val: r}:
				case <-gctx.Done():
					return nil
				}
			}
		})
	}
	go func() {
		g.Wait()
		close(results)
	}()

	next := 0
	buf := make(map[int]R, workers)
	var redErr error
	for r := range results {
		if redErr != nil {
			continue //just drain
		}
		buf[r.id] = r.val
		for {
			v, ok := buf[next]
			if !ok {
				break
			}
			delete(buf, next)
			if err := reduce(next, v); err != nil {
				redErr = fmt.Errorf("mproc: reduce failed on chunk %d: %w", next, err)
				cancel()
				break
			}
			next++
			<-sem
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return redErr
}

// WorkerError reports the failure of a compute call. It wraps the original
// error, which can be recovered with errors.Unwrap or matched with
// errors.As.
type WorkerError struct {
	chunk int
	err   error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("mproc: worker failed on chunk %d: %v", e.chunk, e.err)
}

// Unwrap returns the error the compute call failed with.
func (e *WorkerError) Unwrap() error { return e.err }

// Chunk returns the number of the chunk whose compute call failed.
func (e *WorkerError) Chunk() int { return e.chunk }
