package answer

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrQueueFull is returned by Submit when every slot of the queue is taken.
	ErrQueueFull = errors.New("dispatcher queue is full")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("dispatcher is closed")
)

// Job is one inbound chat message.
type Job struct {
	ID     string
	ChatID int64
	Text   string
}

// HandlerFunc processes a job.
type HandlerFunc func(ctx context.Context, chatID int64, text string)

// Dispatcher runs jobs on a fixed number of worker goroutines fed by a
// bounded queue.
type Dispatcher struct {
	handle  HandlerFunc
	workers int
	jobs    chan Job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Non-positive sizes fall back to one
// worker and a queue of one slot.
func NewDispatcher(handle HandlerFunc, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		handle:  handle,
		workers: workers,
		jobs:    make(chan Job, queueSize),
	}
}

// Start launches the workers. Jobs run with ctx, so cancelling it aborts the
// inference calls of in-flight jobs.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(worker int) {
			defer d.wg.Done()
			for job := range d.jobs {
				d.run(ctx, worker, job)
			}
		}(i)
	}
}

func (d *Dispatcher) run(ctx context.Context, worker int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"worker":     worker,
				"request_id": job.ID,
				"panic":      r,
			}).Error("service: job panicked")
		}
	}()
	d.handle(WithRequestID(ctx, job.ID), job.ChatID, job.Text)
}

// Submit enqueues a message without blocking.
func (d *Dispatcher) Submit(chatID int64, text string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	job := Job{ID: uuid.NewString(), ChatID: chatID, Text: text}
	select {
	case d.jobs <- job:
		return nil
	default:
		logrus.WithFields(logrus.Fields{
			"request_id": job.ID,
			"chat_id":    chatID,
		}).Warn("service: dispatcher queue full, rejecting message")
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits until queued ones are processed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}
