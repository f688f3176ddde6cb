package mproc

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestChunks(Te *testing.T) {
	cases := []struct {
		total, workers, size, n int
	}{
		{10, 2, 5, 2},
		{10, 4, 3, 4},
		{10, 3, 4, 3},
		{4, 4, 1, 4},
		{3, 8, 1, 3},
		{5, 1, 5, 1},
		{7, 7, 1, 7},
		{10, 0, 10, 1},
		{0, 4, 0, 0},
		{-3, 4, 0, 0},
		{1, 1, 1, 1},
	}
	for _, c := range cases {
		size, n := Chunks(c.total, c.workers)
		if size != c.size || n != c.n {
			Te.Errorf("Chunks(%d, %d) = %d, %d; want %d, %d", c.total, c.workers, size, n, c.size, c.n)
		}
		if c.total > 0 && (size*(n-1) >= c.total || size*n < c.total) {
			Te.Errorf("Chunks(%d, %d): %d chunks of %d do not cover the total exactly", c.total, c.workers, n, size)
		}
	}
}

// frames returns the frame ids a chunk covers, clipped to the total.
func frames(total, chunkSize, chunkID int) []int {
	start := chunkID * chunkSize
	count := chunkSize
	if start+count > total {
		count = total - start
	}
	ret := make([]int, count)
	for i := range ret {
		ret[i] = start + i
	}
	return ret
}

func TestRunOrder(Te *testing.T) {
	const total = 20
	const workers = 4
	_, nchunks := Chunks(total, workers)
	compute := func(cctx int, chunkSize, chunkID int) (int, error) {
		//early chunks sleep longest, so late ones finish first and have
		//to wait their turn
		time.Sleep(time.Duration(nchunks-chunkID) * 3 * time.Millisecond)
		return chunkID, nil
	}
	var got []int
	reduce := func(chunkID int, partial int) error {
		if chunkID != partial {
			Te.Errorf("chunk %d delivered result %d", chunkID, partial)
		}
		got = append(got, chunkID)
		return nil
	}
	if err := Run(total, workers, compute, reduce, 0); err != nil {
		Te.Fatal(err)
	}
	if len(got) != nchunks {
		Te.Fatalf("reduced %d chunks of %d", len(got), nchunks)
	}
	for i, v := range got {
		if v != i {
			Te.Fatalf("chunks reduced out of order: %v", got)
		}
	}
	fmt.Println("reduced in order:", got)
}

func TestRunCoverage(Te *testing.T) {
	for _, workers := range []int{1, 2, 3, 7, 16, 100} {
		const total = 23
		compute := func(cctx int, chunkSize, chunkID int) ([]int, error) {
			return frames(total, chunkSize, chunkID), nil
		}
		var all []int
		reduce := func(chunkID int, partial []int) error {
			all = append(all, partial...)
			return nil
		}
		if err := Run(total, workers, compute, reduce, 0); err != nil {
			Te.Fatal(err)
		}
		if len(all) != total {
			Te.Fatalf("workers=%d: covered %d frames of %d", workers, len(all), total)
		}
		for i, v := range all {
			if v != i {
				Te.Fatalf("workers=%d: frame %d delivered as %d", workers, i, v)
			}
		}
	}
}

func TestRunDeterminism(Te *testing.T) {
	const total = 17
	run := func(workers int) string {
		var b strings.Builder
		compute := func(cctx int, chunkSize, chunkID int) (string, error) {
			var sb strings.Builder
			for _, f := range frames(total, chunkSize, chunkID) {
				fmt.Fprintf(&sb, "frame %d\n", f)
			}
			return sb.String(), nil
		}
		reduce := func(chunkID int, partial string) error {
			b.WriteString(partial)
			return nil
		}
		if err := Run(total, workers, compute, reduce, 0); err != nil {
			Te.Fatal(err)
		}
		return b.String()
	}
	one := run(1)
	for _, w := range []int{2, 5, 16} {
		if out := run(w); out != one {
			Te.Errorf("output with %d workers differs from the serial one", w)
		}
	}
}

func TestRunWorkerError(Te *testing.T) {
	sentinel := errors.New("broken frame")
	const total = 16
	const workers = 8 //8 chunks of 2
	compute := func(cctx int, chunkSize, chunkID int) (int, error) {
		if chunkID == 3 {
			return 0, fmt.Errorf("reading chunk: %w", sentinel)
		}
		return chunkID, nil
	}
	var reduced []int
	reduce := func(chunkID int, partial int) error {
		reduced = append(reduced, chunkID)
		return nil
	}
	err := Run(total, workers, compute, reduce, 0)
	if err == nil {
		Te.Fatal("no error from a failing compute")
	}
	var we *WorkerError
	if !errors.As(err, &we) {
		Te.Fatalf("got %T, want a *WorkerError", err)
	}
	if we.Chunk() != 3 {
		Te.Errorf("failure reported on chunk %d, want 3", we.Chunk())
	}
	if !errors.Is(err, sentinel) {
		Te.Error("the original error was lost")
	}
	for _, id := range reduced {
		if id >= 3 {
			Te.Errorf("chunk %d reduced after the failure point", id)
		}
	}
	fmt.Println("worker error reads:", err)
}

func TestRunReduceError(Te *testing.T) {
	const total = 40
	var calls []int
	compute := func(cctx int, chunkSize, chunkID int) (int, error) {
		return chunkID, nil
	}
	reduce := func(chunkID int, partial int) error {
		calls = append(calls, chunkID)
		if chunkID == 1 {
			return errors.New("disk full")
		}
		return nil
	}
	err := Run(total, 4, compute, reduce, 0)
	if err == nil {
		Te.Fatal("no error from a failing reduce")
	}
	if !strings.Contains(err.Error(), "chunk 1") {
		Te.Errorf("error does not name the failing chunk: %v", err)
	}
	want := []int{0, 1}
	if len(calls) != len(want) || calls[0] != 0 || calls[1] != 1 {
		Te.Errorf("reduce calls after a failure: %v", calls)
	}
}

func TestRunEmpty(Te *testing.T) {
	var computes, reduces int32
	compute := func(cctx int, chunkSize, chunkID int) (int, error) {
		atomic.AddInt32(&computes, 1)
		return 0, nil
	}
	reduce := func(chunkID int, partial int) error {
		reduces++
		return nil
	}
	if err := Run(0, 4, compute, reduce, 0); err != nil {
		Te.Fatal(err)
	}
	if computes != 0 || reduces != 0 {
		Te.Errorf("empty run made %d compute and %d reduce calls", computes, reduces)
	}
}
