package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of workers.
//
// Workers keep draining the queue after cancellation so every accepted job yields
// exactly one result; jobs are expected to return promptly once ctx is done.
// Results must be consumed while jobs are submitted, either through Results or Wait.
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	mu         sync.RWMutex // guards closed against in-flight submits
	closed     bool
	resultOnce sync.Once
}

// NewPool creates a pool bound to parent; cancelling parent cancels running jobs
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the workers. Results is closed once every worker has exited.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	go func() {
		p.wg.Wait()
		p.closeResults()
	}()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobQueue {
		p.results <- job.Execute(p.ctx)
	}
}

// Submit queues a job. It returns false when the pool's context is done and the job was not accepted.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Close stops accepting jobs. Queued jobs still run.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.closed = true
		close(p.jobQueue)
	}
}

// Results streams results as jobs finish
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Wait closes the queue and collects the remaining results.
// Only safe when all jobs were submitted before the call or from another goroutine.
func (p *Pool) Wait() []Result {
	p.Close()

	var results []Result
	for result := range p.results {
		results = append(results, result)
	}
	return results
}

// Shutdown cancels running jobs, discards pending results and waits for workers to exit
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.Close()
	for range p.results {
	}
}

func (p *Pool) closeResults() {
	p.resultOnce.Do(func() {
		close(p.results)
		p.cancelFunc()
	})
}
