// Package writer runs user list operations one at a time on a dedicated goroutine.
// With it, read-modify-write cycles against the backing store never interleave.
package writer

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/userlist/internal/logger"
)

// ErrStopped is returned for operations submitted after (or pending when) the writer stopped.
var ErrStopped = errors.New("the writer is stopped")

// Operation is a unit of work against the backing store.
type Operation func(ctx context.Context) error

type job struct {
	ctx       context.Context
	operation Operation
	done      chan error
}

// Writer owns exclusive access to the backing store.
type Writer struct {
	queue   chan *job
	stopped chan struct{}
}

// New creates a Writer whose queue holds up to channelCapacity waiting operations.
func New(channelCapacity int) *Writer {
	return &Writer{
		queue:   make(chan *job, channelCapacity),
		stopped: make(chan struct{}),
	}
}

// Run starts the worker goroutine. It stops when ctx is done.
func (w *Writer) Run(ctx context.Context) {
	go func() {
		defer close(w.stopped)

		processed := 0
		for {
			select {
			case <-ctx.Done():
				w.drain()
				logger.Log.Infof("writer stopped after %d operations", processed)
				return
			case j := <-w.queue:
				j.done <- w.execute(j)
				processed++
			}
		}
	}()
}

// Do submits operation and waits for its result.
func (w *Writer) Do(ctx context.Context, operation Operation) error {
	j := &job{
		ctx:       ctx,
		operation: operation,
		done:      make(chan error, 1),
	}

	select {
	case <-w.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	case w.queue <- j:
	}

	select {
	case err := <-j.done:
		return err
	case <-w.stopped:
		select {
		case err := <-j.done:
			return err
		default:
			return ErrStopped
		}
	}
}

func (w *Writer) execute(j *job) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}

	return j.operation(j.ctx)
}

func (w *Writer) drain() {
	for {
		select {
		case j := <-w.queue:
			j.done <- ErrStopped
		default:
			return
		}
	}
}

// Inline runs every operation on the caller's goroutine without any coordination.
// Concurrent read-modify-write cycles may then overwrite each other.
type Inline struct{}

// Do runs operation immediately.
func (Inline) Do(ctx context.Context, operation Operation) error {
	return operation(ctx)
}
