package worker_pool

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

var ErrPoolClosed = errors.New("worker pool is closed; cannot accept new tasks")

type TaskFunc func(ctx context.Context) (any, error)

// TaskResult holds the outcome of a finished task (its ID, result value, or error).
type TaskResult struct {
	ID     string
	Result any
	Err    error
}

type workItem struct {
	id string
	fn TaskFunc
}

// WorkerPool runs submitted tasks on a fixed number of workers. Every accepted task
// produces exactly one TaskResult on ResultsCh, including tasks that never started
// because the pool was cancelled. ResultsCh is closed once Wait has drained the pool.
type WorkerPool struct {
	tasksCh     chan workItem
	ResultsCh   chan TaskResult
	ctx         context.Context
	cancelFunc  context.CancelFunc
	workers     sync.WaitGroup
	mu          sync.Mutex
	closed      bool
	stopOnError bool
	log         *log.Logger
}

// NewWorkerPool starts numWorkers workers. If stopOnError is true, the pool cancels
// its context on the first task error; queued tasks then report the cancellation.
func NewWorkerPool(parentCtx context.Context, numWorkers int, stopOnError bool, logger *log.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(parentCtx)
	wp := &WorkerPool{
		tasksCh:     make(chan workItem, numWorkers),
		ResultsCh:   make(chan TaskResult, numWorkers),
		ctx:         ctx,
		cancelFunc:  cancel,
		stopOnError: stopOnError,
		log:         logger,
	}
	for i := 1; i <= numWorkers; i++ {
		wp.workers.Add(1)
		go wp.worker(i)
	}
	logger.Debugf(`worker pool started with %d workers`, numWorkers)
	return wp
}

// Submit queues a task. It blocks while the queue is full and fails once Wait has
// been called.
func (wp *WorkerPool) Submit(id string, taskFn TaskFunc) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.closed {
		wp.log.Warnf(`submit rejected for task %s: pool is closed`, id)
		return ErrPoolClosed
	}
	wp.tasksCh <- workItem{id: id, fn: taskFn}
	return nil
}

// Wait stops accepting tasks, waits for every queued task to finish and closes
// ResultsCh. Results must be consumed concurrently or Wait blocks.
func (wp *WorkerPool) Wait() {
	wp.mu.Lock()
	if !wp.closed {
		wp.closed = true
		close(wp.tasksCh)
	}
	wp.mu.Unlock()

	wp.workers.Wait()
	wp.cancelFunc()
	close(wp.ResultsCh)
	wp.log.Debug(`worker pool drained`)
}

func (wp *WorkerPool) worker(workerID int) {
	defer wp.workers.Done()
	for task := range wp.tasksCh {
		if err := wp.ctx.Err(); err != nil {
			wp.log.Debugf(`worker %d skipping task %s: %v`, workerID, task.id, err)
			wp.ResultsCh <- TaskResult{ID: task.id, Err: err}
			continue
		}

		wp.log.Debugf(`worker %d starting task %s`, workerID, task.id)
		result, err := wp.run(task)
		if err != nil {
			wp.log.Debugf(`task %s failed: %v`, task.id, err)
			if wp.stopOnError {
				wp.log.Warnf(`stopOnError active - canceling pool due to error in task %s`, task.id)
				wp.cancelFunc()
			}
		}
		wp.ResultsCh <- TaskResult{ID: task.id, Result: result, Err: err}
	}
}

// run executes one task, turning a panic into an error so the worker survives.
func (wp *WorkerPool) run(task workItem) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			wp.log.WithField(`task`, task.id).Errorf(`task panicked: %v`, rec)
			err = errors.New(`task panicked`)
		}
	}()
	return task.fn(wp.ctx)
}
