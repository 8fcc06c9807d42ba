// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ordq

import "code.hybscloud.com/atomix"

// SPSC is a single-producer single-consumer bounded queue.
//
// Based on Lamport's ring buffer with cached index optimization.
// The producer caches the consumer's dequeue index, and vice versa,
// reducing cross-core cache line traffic.
//
// Indices are free-running 64-bit counters masked into the ring. One cell
// is reserved to distinguish full from empty, so a ring of n cells holds
// n-1 elements.
//
// Memory: O(capacity) with minimal per-slot overhead
type SPSC[T any] struct {
	_          pad
	head       atomix.Uint64 // Consumer reads from here
	_          pad
	cachedTail uint64 // Consumer's cached view of tail
	_          pad
	tail       atomix.Uint64 // Producer writes here
	_          pad
	cachedHead uint64 // Producer's cached view of head
	_          pad
	buffer     []T
	mask       uint64
}

// NewSPSC creates a new SPSC queue.
// Capacity rounds up to the next power of 2; one cell is reserved, so
// Cap() reports the rounded size minus one.
func NewSPSC[T any](capacity int) *SPSC[T] {
	if capacity < 2 {
		panic("ordq: capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	return &SPSC[T]{
		buffer: make([]T, n),
		mask:   n - 1,
	}
}

// Enqueue adds an element to the queue (producer only).
// Returns ErrWouldBlock if the queue is full.
func (q *SPSC[T]) Enqueue(elem *T) error {
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead >= q.mask {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead >= q.mask {
			return ErrWouldBlock
		}
	}

	q.buffer[tail&q.mask] = *elem
	q.tail.StoreRelease(tail + 1)
	return nil
}

// EnqueueWith claims the next cell and invokes write with a pointer into
// the ring so the caller can construct the value in place (producer only).
// The callback must not block. Returns ErrWouldBlock if the queue is full;
// write is not invoked in that case.
func (q *SPSC[T]) EnqueueWith(write func(*T)) error {
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead >= q.mask {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead >= q.mask {
			return ErrWouldBlock
		}
	}

	write(&q.buffer[tail&q.mask])
	q.tail.StoreRelease(tail + 1)
	return nil
}

// EnqueueBulk copies up to len(src) elements into the ring (producer only).
// Returns the number actually enqueued, possibly 0 and possibly < len(src).
// The copy is split in two when the writable span wraps the ring end; a
// single release store publishes the whole batch.
func (q *SPSC[T]) EnqueueBulk(src []T) int {
	if len(src) == 0 {
		return 0
	}

	tail := q.tail.LoadRelaxed()
	free := q.mask - (tail - q.cachedHead)
	if uint64(len(src)) > free {
		q.cachedHead = q.head.LoadAcquire()
		free = q.mask - (tail - q.cachedHead)
	}

	k := uint64(len(src))
	if k > free {
		k = free
	}
	if k == 0 {
		return 0
	}

	pos := tail & q.mask
	first := q.mask + 1 - pos
	if first > k {
		first = k
	}
	copy(q.buffer[pos:], src[:first])
	copy(q.buffer, src[first:k])

	q.tail.StoreRelease(tail + k)
	return int(k)
}

// Dequeue removes and returns an element (consumer only).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *SPSC[T]) Dequeue() (T, error) {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			var zero T
			return zero, ErrWouldBlock
		}
	}

	elem := q.buffer[head&q.mask]
	var zero T
	q.buffer[head&q.mask] = zero
	q.head.StoreRelease(head + 1)
	return elem, nil
}

// DequeueWith invokes read with a pointer to the head cell before the cell
// is released back to the producer (consumer only). The callback must not
// block or retain the pointer. Returns ErrWouldBlock if the queue is empty;
// read is not invoked in that case.
func (q *SPSC[T]) DequeueWith(read func(*T)) error {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			return ErrWouldBlock
		}
	}

	read(&q.buffer[head&q.mask])
	var zero T
	q.buffer[head&q.mask] = zero
	q.head.StoreRelease(head + 1)
	return nil
}

// DequeueBulk copies up to len(dst) elements out of the ring (consumer
// only). Returns the number actually dequeued, possibly 0. Consumed cells
// are cleared to release references; a single release store frees the
// whole batch.
func (q *SPSC[T]) DequeueBulk(dst []T) int {
	if len(dst) == 0 {
		return 0
	}

	head := q.head.LoadRelaxed()
	avail := q.cachedTail - head
	if uint64(len(dst)) > avail {
		q.cachedTail = q.tail.LoadAcquire()
		avail = q.cachedTail - head
	}

	k := uint64(len(dst))
	if k > avail {
		k = avail
	}
	if k == 0 {
		return 0
	}

	pos := head & q.mask
	first := q.mask + 1 - pos
	if first > k {
		first = k
	}
	copy(dst[:first], q.buffer[pos:pos+first])
	copy(dst[first:k], q.buffer[:k-first])
	clear(q.buffer[pos : pos+first])
	clear(q.buffer[:k-first])

	q.head.StoreRelease(head + k)
	return int(k)
}

// Len returns the number of buffered elements. Observational only: the two
// indices are loaded independently, so the result is not linearizable with
// concurrent operations.
func (q *SPSC[T]) Len() int {
	head := q.head.LoadAcquire()
	tail := q.tail.LoadAcquire()
	ln := tail - head
	if ln > q.mask {
		ln = q.mask
	}
	return int(ln)
}

// Empty reports whether the queue is empty. Observational only.
func (q *SPSC[T]) Empty() bool {
	return q.head.LoadAcquire() == q.tail.LoadAcquire()
}

// Cap returns the usable queue capacity (ring size minus the reserved cell).
func (q *SPSC[T]) Cap() int {
	return int(q.mask)
}
