// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ordq

import "code.hybscloud.com/spin"

// SeqMPSCExplicit is a slot-seq multi-producer single-consumer queue where
// the caller supplies the sequence number on each enqueue.
//
// The consumer observes messages in strictly ascending sequence order,
// skipping none. A producer enqueueing sequence s waits until slot
// s mod n reaches state s, which happens only after sequence s-n has been
// consumed; a sequence that never arrives therefore stalls the consumer
// and, one ring round later, the producers. That is the contract: callers
// must supply every sequence number exactly once, with no gaps.
//
// Use [Reorderer] instead when the stream may contain gaps or duplicates.
type SeqMPSCExplicit[T any] struct {
	_ pad
	// Next sequence the consumer will deliver. Consumer-goroutine local,
	// so no atomic needed.
	nextExpected uint64
	_            padShort
	buffer       []seqSlot[T]
	mask         uint64 // n - 1: index mask
	size         uint64 // n: round advance for consumed slots
}

// NewSeqMPSCExplicit creates a new explicit-seq MPSC queue.
// Capacity rounds up to the next power of 2. Sequence numbering starts
// at 0.
func NewSeqMPSCExplicit[T any](capacity int) *SeqMPSCExplicit[T] {
	if capacity < 2 {
		panic("ordq: capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	q := &SeqMPSCExplicit[T]{
		buffer: make([]seqSlot[T], n),
		mask:   n - 1,
		size:   n,
	}

	for i := uint64(0); i < n; i++ {
		q.buffer[i].seq.StoreRelaxed(i)
	}

	return q
}

// EnqueueSeq publishes elem as sequence seq (multiple producers safe).
//
// Blocks (spin with progressive yield) until the target slot is writable
// for seq, i.e. until sequence seq-n has been consumed. Each sequence
// number must be supplied exactly once: slot tags only move forward, so a
// duplicate of an already published sequence never finds its slot
// writable and its producer spins forever.
func (q *SeqMPSCExplicit[T]) EnqueueSeq(seq uint64, elem *T) {
	slot := &q.buffer[seq&q.mask]

	sw := spin.Wait{}
	for slot.seq.LoadAcquire() != seq {
		sw.Once()
	}

	slot.data = *elem
	slot.seq.StoreRelease(seq + 1)
}

// EnqueueSeqWith claims the slot for seq and invokes write with a pointer
// to its payload (multiple producers safe). Blocking behavior matches
// [SeqMPSCExplicit.EnqueueSeq]; the callback must not block.
func (q *SeqMPSCExplicit[T]) EnqueueSeqWith(seq uint64, write func(*T)) {
	slot := &q.buffer[seq&q.mask]

	sw := spin.Wait{}
	for slot.seq.LoadAcquire() != seq {
		sw.Once()
	}

	write(&slot.data)
	slot.seq.StoreRelease(seq + 1)
}

// Dequeue removes and returns the next element in sequence order (single
// consumer only). Returns (zero-value, ErrWouldBlock) if the next
// sequence has not been published yet.
func (q *SeqMPSCExplicit[T]) Dequeue() (T, error) {
	c := q.nextExpected
	slot := &q.buffer[c&q.mask]

	if slot.seq.LoadAcquire() != c+1 {
		var zero T
		return zero, ErrWouldBlock
	}

	elem := slot.data
	var zero T
	slot.data = zero
	slot.seq.StoreRelease(c + q.size)
	q.nextExpected = c + 1

	return elem, nil
}

// DequeueWith invokes read with a pointer to the next in-order payload
// before the slot is released to producers (single consumer only).
func (q *SeqMPSCExplicit[T]) DequeueWith(read func(*T)) error {
	c := q.nextExpected
	slot := &q.buffer[c&q.mask]

	if slot.seq.LoadAcquire() != c+1 {
		return ErrWouldBlock
	}

	read(&slot.data)
	var zero T
	slot.data = zero
	slot.seq.StoreRelease(c + q.size)
	q.nextExpected = c + 1

	return nil
}

// DequeueBulk copies up to len(dst) consecutive in-order elements out of
// the queue (single consumer only). Returns the number dequeued; stops at
// the first unpublished sequence.
func (q *SeqMPSCExplicit[T]) DequeueBulk(dst []T) int {
	for i := range dst {
		elem, err := q.Dequeue()
		if err != nil {
			return i
		}
		dst[i] = elem
	}
	return len(dst)
}

// NextSeq returns the sequence number the consumer will deliver next.
// Consumer-goroutine local, like Dequeue.
func (q *SeqMPSCExplicit[T]) NextSeq() uint64 {
	return q.nextExpected
}

// Len returns the number of consecutively published elements ready for
// delivery, starting at the next expected sequence. Consumer-goroutine
// local and observational only: out-of-order publications beyond the
// first gap are not counted.
func (q *SeqMPSCExplicit[T]) Len() int {
	n := uint64(0)
	for n <= q.mask {
		c := q.nextExpected + n
		if q.buffer[c&q.mask].seq.LoadAcquire() != c+1 {
			break
		}
		n++
	}
	return int(n)
}

// Empty reports whether the next in-order element is unavailable.
// Consumer-goroutine local.
func (q *SeqMPSCExplicit[T]) Empty() bool {
	c := q.nextExpected
	return q.buffer[c&q.mask].seq.LoadAcquire() != c+1
}

// Cap returns the ring capacity in slots.
func (q *SeqMPSCExplicit[T]) Cap() int {
	return int(q.size)
}
