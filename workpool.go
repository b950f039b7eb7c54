// workpool.go - worker pool abstraction
//
// (c) 2024 Sudhi Herle <sudhi@herle.net>
//
// Licensing Terms: GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

// Workers are a fixed number of go-routines that pull work from a
// shared, unbounded queue and invoke a caller defined "work" function.
//
// The API is modeled after sync.WaitGroup; a typical invocation
// looks like so:
//
//	pool := NewWorkPool[myWork](16, func(i int, w myWork) error {
//		.. process the work here
//		.. return error as needed
//		return nil
//	})
//
//	// submission never blocks
//	pool.Submit(work)
//
//	...
//	// wait for pool to complete the work; this
//	// harvests all the errors returned by the workers
//	errs := pool.Wait()
//
// Wait() closes the pool to new work and stops all the worker
// goroutines; it is safe to call it more than once.

package pcopy

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
)

// Error returned if new work is submitted after Wait()
var ErrCompleted = errors.New("workpool: workpool closed")

// WorkPool runs submitted work on a fixed number of workers
type WorkPool[Work any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	q       []job[Work]
	seq     uint64
	stopped bool

	wg sync.WaitGroup

	ech  chan failure
	ewg  sync.WaitGroup
	errs []failure

	once sync.Once
	res  []error
}

// one queued unit of work and its submission order
type job[Work any] struct {
	seq uint64
	w   Work
}

type failure struct {
	seq uint64
	err error
}

// NewWorkPool creates a worker pool that invokes caller provided worker 'fp'.
// Each worker will process one unit of "work" submitted via Submit(). If
// nworkers is not positive, the pool uses one worker per CPU.
func NewWorkPool[Work any](nworkers int, fp func(i int, w Work) error) *WorkPool[Work] {
	if nworkers <= 0 {
		nworkers = runtime.NumCPU()
	}

	wp := &WorkPool[Work]{
		ech:  make(chan failure, nworkers),
		errs: make([]failure, 0, 1),
	}
	wp.cond = sync.NewCond(&wp.mu)

	wp.wg.Add(nworkers)
	for i := 0; i < nworkers; i++ {
		go wp.worker(i, fp)
	}

	// harvest errors
	wp.ewg.Add(1)
	go func(ech chan failure) {
		for e := range ech {
			wp.errs = append(wp.errs, e)
		}
		wp.ewg.Done()
	}(wp.ech)

	return wp
}

func (wp *WorkPool[Work]) worker(i int, fp func(i int, w Work) error) {
	defer wp.wg.Done()

	for {
		j, ok := wp.next()
		if !ok {
			return
		}

		if err := wp.run(i, j, fp); err != nil {
			wp.ech <- failure{j.seq, err}
		}
	}
}

// dequeue the next job; returns false when the pool is closed and empty
func (wp *WorkPool[Work]) next() (job[Work], bool) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	for len(wp.q) == 0 && !wp.stopped {
		wp.cond.Wait()
	}

	if len(wp.q) == 0 {
		var z job[Work]
		return z, false
	}

	j := wp.q[0]
	wp.q[0] = job[Work]{}
	wp.q = wp.q[1:]
	return j, true
}

// run one unit of work; a panic is turned into an error so that the
// worker lives on to process the rest of the queue.
func (wp *WorkPool[Work]) run(i int, j job[Work], fp func(i int, w Work) error) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("workpool: panic: %v", e)
		}
	}()

	return fp(i, j.w)
}

// Submit queues one unit of work and returns immediately.
func (wp *WorkPool[Work]) Submit(w Work) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopped {
		return ErrCompleted
	}

	wp.seq++
	wp.q = append(wp.q, job[Work]{wp.seq, w})
	wp.cond.Signal()
	return nil
}

// Wait closes the pool to new work, waits for every submitted unit of
// work to finish and returns the errors from the workers ordered by
// submission. Subsequent calls return the same errors.
func (wp *WorkPool[Work]) Wait() []error {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.stopped = true
		wp.cond.Broadcast()
		wp.mu.Unlock()

		wp.wg.Wait()
		close(wp.ech)

		// wait for error harvestor to complete
		wp.ewg.Wait()

		sort.Slice(wp.errs, func(i, j int) bool {
			return wp.errs[i].seq < wp.errs[j].seq
		})

		if len(wp.errs) > 0 {
			wp.res = make([]error, 0, len(wp.errs))
			for _, f := range wp.errs {
				wp.res = append(wp.res, f.err)
			}
		}
	})
	return wp.res
}
