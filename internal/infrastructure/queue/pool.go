package queue

import (
	"context"
	"errors"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/tradedesk/auth-service/internal/pkg/metrics"
)

const channelBuffer = 256

// ErrPoolStopped is returned by Do once the pool's workers have exited.
var ErrPoolStopped = errors.New("worker pool stopped")

type job struct {
	ctx     context.Context
	fn      func()
	started chan struct{}
	done    chan struct{}
}

// Pool runs CPU-bound work on a fixed set of goroutines so that a burst of
// requests cannot fan out into unbounded parallel hashing.
type Pool struct {
	jobs    chan job
	size    int
	stopped chan struct{}
	log     zerolog.Logger
}

// NewPool creates a Pool with numWorkers workers.
// If numWorkers <= 0, runtime.NumCPU() is used.
func NewPool(numWorkers int, log zerolog.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Pool{
		jobs:    make(chan job, channelBuffer),
		size:    numWorkers,
		stopped: make(chan struct{}),
		log:     log,
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Start launches all worker goroutines. Workers stop when ctx is cancelled,
// after which Do fails fast with ErrPoolStopped. Jobs a worker had already
// picked up still run to completion.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		go p.runWorker(ctx, i)
	}
	go func() {
		<-ctx.Done()
		close(p.stopped)
		p.log.Debug().Int("workers", p.size).Msg("worker pool stopped")
	}()
}

// Do runs fn on a worker and blocks until it has returned. If ctx ends first,
// Do returns ctx.Err(); a job still waiting in the queue is then skipped.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	j := job{ctx: ctx, fn: fn, started: make(chan struct{}), done: make(chan struct{})}

	select {
	case p.jobs <- j:
		metrics.HashQueueDepth.Set(float64(len(p.jobs)))
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopped:
		return ErrPoolStopped
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopped:
	}

	select {
	case <-j.started:
		return p.wait(ctx, j)
	default:
		return ErrPoolStopped
	}
}

func (p *Pool) wait(ctx context.Context, j job) error {
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			metrics.HashQueueDepth.Set(float64(len(p.jobs)))
			if j.ctx.Err() != nil {
				p.log.Debug().Int("worker_id", id).Msg("skipping job whose caller gave up")
				continue
			}
			p.run(id, j)
		}
	}
}

func (p *Pool) run(id int, j job) {
	close(j.started)
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Int("worker_id", id).Interface("panic", r).Msg("job panicked")
		}
	}()
	j.fn()
}
