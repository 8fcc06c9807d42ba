// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ordq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// SeqMPSC is a slot-seq multi-producer single-consumer bounded queue.
//
// Every slot carries an atomic sequence tag that triples as admission
// token for producers, readiness flag for the consumer, and round counter
// preventing ABA on wraparound. For counter value c targeting slot
// i = c mod n:
//
//	seq[i] == c     slot is writable for counter c
//	seq[i] == c+1   slot holds the published value for counter c
//	seq[i] == c+n   consumer has read counter c; writable for c+n
//
// Producers claim a counter with a single CAS on the shared tail, gated
// on the slot being ready; the single consumer reads sequentially.
// Delivery order is the serialization of the tail claims.
//
// Memory: n slots (seq tag + payload per slot)
type SeqMPSC[T any] struct {
	_    pad
	head atomix.Uint64 // Consumer reads from here
	_    pad
	tail atomix.Uint64 // Producers CAS here
	_    pad
	buffer []seqSlot[T]
	mask   uint64 // n - 1: index mask, also the usable capacity
	size   uint64 // n: round advance for consumed slots
}

type seqSlot[T any] struct {
	seq  atomix.Uint64
	data T
	_    padShort // Pad to cache line
}

// NewSeqMPSC creates a new slot-seq MPSC queue.
// Capacity rounds up to the next power of 2; one cell is reserved.
func NewSeqMPSC[T any](capacity int) *SeqMPSC[T] {
	if capacity < 2 {
		panic("ordq: capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	q := &SeqMPSC[T]{
		buffer: make([]seqSlot[T], n),
		mask:   n - 1,
		size:   n,
	}

	for i := uint64(0); i < n; i++ {
		q.buffer[i].seq.StoreRelaxed(i)
	}

	return q
}

// Enqueue adds an element to the queue (multiple producers safe).
// Returns ErrWouldBlock if the queue is full.
func (q *SeqMPSC[T]) Enqueue(elem *T) error {
	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		head := q.head.LoadAcquire()

		if tail >= head+q.mask {
			return ErrWouldBlock
		}

		slot := &q.buffer[tail&q.mask]
		seq := slot.seq.LoadAcquire()

		if seq == tail {
			if q.tail.CompareAndSwapAcqRel(tail, tail+1) {
				slot.data = *elem
				slot.seq.StoreRelease(tail + 1)
				return nil
			}
		} else if seq < tail {
			return ErrWouldBlock
		}
		sw.Once()
	}
}

// EnqueueWith claims a slot and invokes write with a pointer to its
// payload so the caller can construct the value in place (multiple
// producers safe). The slot is exclusively held until the callback
// returns; the callback must not block. Returns ErrWouldBlock if the
// queue is full, without invoking write.
func (q *SeqMPSC[T]) EnqueueWith(write func(*T)) error {
	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		head := q.head.LoadAcquire()

		if tail >= head+q.mask {
			return ErrWouldBlock
		}

		slot := &q.buffer[tail&q.mask]
		seq := slot.seq.LoadAcquire()

		if seq == tail {
			if q.tail.CompareAndSwapAcqRel(tail, tail+1) {
				write(&slot.data)
				slot.seq.StoreRelease(tail + 1)
				return nil
			}
		} else if seq < tail {
			return ErrWouldBlock
		}
		sw.Once()
	}
}

// EnqueueBulk enqueues up to len(src) elements one counter claim at a
// time and returns the number enqueued. Elements from a single bulk call
// are claimed in order but may interleave with other producers.
func (q *SeqMPSC[T]) EnqueueBulk(src []T) int {
	for i := range src {
		if q.Enqueue(&src[i]) != nil {
			return i
		}
	}
	return len(src)
}

// Dequeue removes and returns an element (single consumer only).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *SeqMPSC[T]) Dequeue() (T, error) {
	head := q.head.LoadRelaxed()
	slot := &q.buffer[head&q.mask]
	seq := slot.seq.LoadAcquire()

	if seq != head+1 {
		var zero T
		return zero, ErrWouldBlock
	}

	elem := slot.data
	var zero T
	slot.data = zero
	slot.seq.StoreRelease(head + q.size)
	q.head.StoreRelease(head + 1)

	return elem, nil
}

// DequeueWith invokes read with a pointer to the head slot's payload
// before the slot is released to producers (single consumer only).
// The callback must not block or retain the pointer.
func (q *SeqMPSC[T]) DequeueWith(read func(*T)) error {
	head := q.head.LoadRelaxed()
	slot := &q.buffer[head&q.mask]
	seq := slot.seq.LoadAcquire()

	if seq != head+1 {
		return ErrWouldBlock
	}

	read(&slot.data)
	var zero T
	slot.data = zero
	slot.seq.StoreRelease(head + q.size)
	q.head.StoreRelease(head + 1)

	return nil
}

// DequeueBulk copies up to len(dst) elements out of the queue (single
// consumer only). Returns the number dequeued.
func (q *SeqMPSC[T]) DequeueBulk(dst []T) int {
	for i := range dst {
		elem, err := q.Dequeue()
		if err != nil {
			return i
		}
		dst[i] = elem
	}
	return len(dst)
}

// Len returns the number of buffered elements. Observational only.
func (q *SeqMPSC[T]) Len() int {
	head := q.head.LoadAcquire()
	tail := q.tail.LoadAcquire()
	ln := tail - head
	if ln > q.mask {
		ln = q.mask
	}
	return int(ln)
}

// Empty reports whether the queue is empty. Observational only.
func (q *SeqMPSC[T]) Empty() bool {
	return q.Len() == 0
}

// Cap returns the usable queue capacity.
func (q *SeqMPSC[T]) Cap() int {
	return int(q.mask)
}
