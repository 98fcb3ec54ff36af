// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a pool of goroutines that run kernel tiles and map
// conversions.
//
// Each worker owns a queue and steals from the others when its own queue
// is empty, which balances tiles of uneven cost (edge tiles, neighborhood
// kernels) across workers.
//
// Thread safety: WorkerPool is safe for concurrent use, including Close
// while ExecuteAll or Submit is queueing. Work items must not wait on, or
// submit, other items of the same pool.
type WorkerPool struct {
	workers    int
	workQueues []chan func()
	done       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
	next       atomic.Uint64 // round-robin cursor for Submit

	// sendMu is held for reading around every queue send and for writing
	// while Close flips running, so nothing is queued once workers drain.
	sendMu sync.RWMutex
}

// NewWorkerPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.workQueues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case work := <-own:
			run(work)
		default:
			if stolen := p.steal(id); stolen != nil {
				run(stolen)
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case work := <-own:
				run(work)
			}
		}
	}
}

func run(work func()) {
	if work != nil {
		work()
	}
}

// drain executes whatever is left in a queue during shutdown.
func (p *WorkerPool) drain(queue chan func()) {
	for {
		select {
		case work := <-queue:
			run(work)
		default:
			return
		}
	}
}

func (p *WorkerPool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// ExecuteAll distributes work across workers and waits for it to finish.
// It returns the number of items that ran; fewer than len(work) means the
// pool was closed before everything could be queued. Items queued before
// Close always run.
func (p *WorkerPool) ExecuteAll(work []func()) int {
	if len(work) == 0 || !p.running.Load() {
		return 0
	}

	var (
		wg  sync.WaitGroup
		ran atomic.Int64
	)
	for i, fn := range work {
		wg.Add(1)
		wrapped := func() {
			defer wg.Done()
			run(fn)
			ran.Add(1)
		}
		if !p.send(i%p.workers, wrapped) {
			wg.Done()
		}
	}
	wg.Wait()
	return int(ran.Load())
}

// Submit queues a single work item without waiting for it.
// It reports false if the pool is closed.
func (p *WorkerPool) Submit(fn func()) bool {
	if fn == nil {
		return false
	}
	id := int(p.next.Add(1) % uint64(p.workers)) //nolint:gosec // workers is positive
	return p.send(id, fn)
}

// send queues fn on worker id's queue unless the pool is closed. Workers
// keep reading while the read lock is held, so a full queue only delays it.
func (p *WorkerPool) send(id int, fn func()) bool {
	p.sendMu.RLock()
	defer p.sendMu.RUnlock()
	if !p.running.Load() {
		return false
	}
	p.workQueues[id] <- fn
	return true
}

// Close stops accepting work, runs what is already queued and stops all
// workers. Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.sendMu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.sendMu.Unlock()
		return
	}
	p.sendMu.Unlock()
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}
