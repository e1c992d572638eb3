// Package worker provides background processing for listening-history refreshes.
package worker

import (
	"context"
	"log"
	"sync"
	"time"
)

const defaultJobTimeout = 2 * time.Minute

// Job is a background refresh of one user's listening history.
type Job struct {
	UserID string
}

// Refresher performs the refresh work for a job.
type Refresher interface {
	RefreshListening(ctx context.Context, userID string) error
}

// Pool manages background workers for async jobs.
type Pool struct {
	jobs    chan Job
	workers int
	timeout time.Duration
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending map[string]bool
	stopped bool
}

// NewPool creates a worker pool with the given worker count and queue size.
func NewPool(workers int, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		timeout: defaultJobTimeout,
		pending: make(map[string]bool),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(r Refresher) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(r, job)
			}
		}()
	}
}

// Stop waits for workers to finish after closing the queue.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a job without blocking. A job for a user that is already
// queued is accepted without being queued twice.
func (p *Pool) Submit(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		log.Printf("WARN worker: pool stopped, dropping job for %s", job.UserID)
		return false
	}
	if p.pending[job.UserID] {
		return true
	}
	select {
	case p.jobs <- job:
		p.pending[job.UserID] = true
		return true
	default:
		log.Printf("WARN worker: dropping job for %s", job.UserID)
		return false
	}
}

// Enqueue submits a refresh for userID.
func (p *Pool) Enqueue(userID string) bool {
	return p.Submit(Job{UserID: userID})
}

func (p *Pool) processJob(r Refresher, job Job) {
	p.mu.Lock()
	delete(p.pending, job.UserID)
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	if err := r.RefreshListening(ctx, job.UserID); err != nil {
		log.Printf("WARN worker: refresh for %s failed: %v", job.UserID, err)
		return
	}
	log.Printf("worker: refreshed %s in %s", job.UserID, time.Since(start).Round(time.Millisecond))
}
