// File: internal/concurrency/queue.go
// Package concurrency implements the bounded blocking queue used by the
// inbound and outbound packet pipelines.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// BlockingQueue is a bounded FIFO over an eapache/queue ring buffer,
// guarded by a mutex with two condition variables. Put blocks while the
// queue is full and Take blocks while it is empty.

package concurrency

import (
	"sync"

	"github.com/eapache/queue"
)

// BlockingQueue is a bounded many-producer FIFO.
type BlockingQueue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    *queue.Queue
	capacity int
	sealed   bool // Put rejected, Take still served
	closed   bool
}

// NewBlockingQueue creates a queue holding at most capacity items.
func NewBlockingQueue[T any](capacity int) *BlockingQueue[T] {
	if capacity < 1 {
		panic("concurrency: queue capacity must be positive")
	}
	q := &BlockingQueue[T]{
		items:    queue.New(),
		capacity: capacity,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Put appends item, blocking while the queue is full.
// It returns ErrQueueClosed once Seal or Close has been called.
func (q *BlockingQueue[T]) Put(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.sealed && !q.closed && q.items.Length() >= q.capacity {
		q.notFull.Wait()
	}
	if q.sealed || q.closed {
		return ErrQueueClosed
	}
	q.items.Add(item)
	q.notEmpty.Signal()
	return nil
}

// Take removes the oldest item, blocking while the queue is empty.
// Items still queued at Close are handed out before ErrQueueClosed.
func (q *BlockingQueue[T]) Take() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.closed && q.items.Length() == 0 {
		q.notEmpty.Wait()
	}
	if q.items.Length() == 0 {
		var zero T
		return zero, ErrQueueClosed
	}
	item := q.items.Remove().(T)
	q.notFull.Signal()
	return item, nil
}

// Reset atomically discards every queued item and enqueues sentinel,
// regardless of capacity. It returns the number of discarded items.
func (q *BlockingQueue[T]) Reset(sentinel T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	dropped := q.items.Length()
	q.items = queue.New()
	q.items.Add(sentinel)
	q.notEmpty.Signal()
	q.notFull.Broadcast()
	return dropped
}

// Seal rejects further Puts and releases blocked producers. Consumers keep
// taking queued items and Reset still injects its sentinel.
func (q *BlockingQueue[T]) Seal() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sealed = true
	q.notFull.Broadcast()
}

// Close releases every blocked producer and consumer. Subsequent Puts fail.
func (q *BlockingQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Len returns the number of queued items.
func (q *BlockingQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Cap returns the fixed capacity.
func (q *BlockingQueue[T]) Cap() int {
	return q.capacity
}
