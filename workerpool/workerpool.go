// Package workerpool provides a fixed-size goroutine pool used to bound
// the parallelism of lane- and cycle-level decode work.
//
// The original digestiflow-cli sized its rayon thread pool from the
// RAYON_NUM_THREADS process environment variable, a global that every
// concurrent component shares implicitly. This port threads pool size
// through explicitly (settings.threads), one Pool value per fan-out, per the
// design note in spec.md §9 that calls the environment-variable approach
// out as the wrong shape for a library-style concurrency model; the
// goroutine-per-task-over-a-WaitGroup pattern itself is grounded on
// encoding/bam/shardedbam.go's bamWriter, whose waitGroup bounds a
// comparable fan-out of per-shard work.
package workerpool

import "sync"

// Pool runs tasks with at most Size of them executing concurrently.
// The zero Pool has no concurrency limit beyond Go's scheduler (Size <= 0
// is treated as "unbounded").
type Pool struct {
	Size int
}

// New returns a Pool bounded to size concurrent tasks. size <= 0 means
// unbounded.
func New(size int) *Pool {
	return &Pool{Size: size}
}

// Run executes each of fns, waits for all to finish, and returns the
// first non-nil error encountered (if any), after every fn has run.
func (p *Pool) Run(fns []func() error) error {
	if len(fns) == 0 {
		return nil
	}

	size := p.Size
	if size <= 0 || size > len(fns) {
		size = len(fns)
	}

	jobs := make(chan int)
	errs := make([]error, len(fns))

	var wg sync.WaitGroup
	wg.Add(size)
	for w := 0; w < size; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = fns[i]()
			}
		}()
	}
	for i := range fns {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// RunIndexed runs n tasks indexed 0..n-1 with at most Size concurrent,
// collecting each task's result via the supplied function.
func RunIndexed(p *Pool, n int, fn func(i int) error) error {
	fns := make([]func() error, n)
	for i := 0; i < n; i++ {
		i := i
		fns[i] = func() error { return fn(i) }
	}
	return p.Run(fns)
}
