package effects

import (
	"context"
	"errors"
	"sync"
	"time"

	"agora/metrics"
	"agora/util/goroutine"
	"go.uber.org/zap"
)

// ErrPoolNotRunning is returned by Start/Stop misuse
var ErrPoolNotRunning = errors.New("effect pool is not running")

type job struct {
	name string
	task Task
}

// Pool is a fire-and-forget Dispatcher backed by a bounded queue and a fixed
// set of workers. When the queue is full the effect runs inline on the caller
// so nothing is silently dropped.
type Pool struct {
	workers     int
	queue       chan job
	failures    FailureLog
	logger      *zap.SugaredLogger
	taskTimeout time.Duration
	stopTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.RWMutex
	running     bool
}

// NewPool creates a pool; workers are not started until Start is called
func NewPool(parent context.Context, workers, queueSize int, failures FailureLog, logger *zap.SugaredLogger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(parent)
	return &Pool{
		workers:     workers,
		queue:       make(chan job, queueSize),
		failures:    failures,
		logger:      logger,
		taskTimeout: DefaultTaskTimeout,
		stopTimeout: 30 * time.Second,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetTaskTimeout bounds each effect. Call before Start.
func (p *Pool) SetTaskTimeout(d time.Duration) {
	p.taskTimeout = d
}

// Start launches the workers. Calling it twice is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	p.logger.Infow("Starting effect pool", "workers", p.workers, "queue_size", cap(p.queue))
	metrics.EffectWorkers.Set(float64(p.workers))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Dispatch enqueues the effect, or runs it inline when the pool is stopped or
// the queue is full.
func (p *Pool) Dispatch(name string, task Task) {
	p.mu.RLock()
	if p.running {
		select {
		case p.queue <- job{name: name, task: task}:
			metrics.EffectQueueSize.Set(float64(len(p.queue)))
			p.mu.RUnlock()
			return
		default:
			p.logger.Warnw("Effect queue full, running inline", "effect", name)
		}
	}
	p.mu.RUnlock()

	execute(p.ctx, p.taskTimeout, name, task, p.failures, p.logger)
}

// Stop closes the queue and waits for queued effects to drain
func (p *Pool) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrPoolNotRunning
	}
	p.running = false
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	defer p.cancel()
	select {
	case <-done:
		p.logger.Infow("Effect pool drained")
	case <-time.After(p.stopTimeout):
		p.logger.Errorw("Effect pool drain timed out",
			"timeout_seconds", p.stopTimeout.Seconds(),
			"pending", len(p.queue))
	}
	metrics.EffectWorkers.Set(0)
	return nil
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	defer goroutine.Recover("effect-worker", p.logger)

	for j := range p.queue {
		metrics.EffectQueueSize.Set(float64(len(p.queue)))
		execute(p.ctx, p.taskTimeout, j.name, j.task, p.failures, p.logger)
	}
	p.logger.Debugw("Effect worker stopped", "worker_id", id)
}
