// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ordq

// Queue is the combined producer-consumer interface for a FIFO queue.
//
// Queue provides non-blocking Enqueue and Dequeue operations. Both operations
// return ErrWouldBlock when they cannot proceed (queue full or empty).
//
// Length reported by implementations is observational only: it is computed
// from independently loaded indices and is not linearizable with concurrent
// operations. Track exact counts in application logic when needed.
//
// Example:
//
//	q := ordq.NewSeqMPSC[int](1024)
//
//	// Enqueue
//	val := 42
//	if err := q.Enqueue(&val); err != nil {
//	    // Handle full queue
//	}
//
//	// Dequeue
//	elem, err := q.Dequeue()
//	if err == nil {
//	    fmt.Println(elem)
//	}
type Queue[T any] interface {
	Producer[T]
	Consumer[T]
	Cap() int
}

// Producer is the interface for enqueueing elements.
//
// Producer provides non-blocking enqueue operations. The element is passed
// by pointer to avoid copying large structs. The queue stores a copy of
// the pointed-to value, so the original can be modified after Enqueue returns.
type Producer[T any] interface {
	// Enqueue adds an element to the queue (non-blocking).
	// The element is copied into the queue's internal buffer.
	// Returns nil on success, ErrWouldBlock if the queue is full.
	//
	// Thread safety depends on queue type:
	//   - SPSC: single producer only
	//   - SeqMPSC: multiple producers safe
	Enqueue(elem *T) error
}

// Consumer is the interface for dequeueing elements.
//
// Consumer provides non-blocking dequeue operations. The element is returned
// by value (copied from the queue's internal buffer). The original slot is
// cleared to allow garbage collection of referenced objects.
//
// For large types (>512 bytes), consider using [SPSCPtr] instead to avoid
// copy overhead.
type Consumer[T any] interface {
	// Dequeue removes and returns an element from the queue (non-blocking).
	// Returns the dequeued element on success.
	// Returns (zero-value, ErrWouldBlock) if the queue is empty.
	//
	// All queue types in this package are single-consumer: exactly one
	// goroutine may call Dequeue.
	Dequeue() (T, error)
}

// BulkProducer enqueues contiguous batches of elements.
//
// EnqueueBulk copies up to len(src) elements and returns the number
// actually enqueued, which may be zero when the queue is full or smaller
// than len(src) when it fills partway.
type BulkProducer[T any] interface {
	EnqueueBulk(src []T) int
}

// BulkConsumer dequeues contiguous batches of elements.
//
// DequeueBulk copies up to len(dst) elements out of the queue and returns
// the number actually dequeued (possibly zero).
type BulkConsumer[T any] interface {
	DequeueBulk(dst []T) int
}

// InPlaceProducer exposes the enqueue half of the in-place cell protocol.
//
// EnqueueWith claims a cell and invokes write with a pointer into the
// queue's buffer so the caller can construct the value directly in place,
// avoiding a temporary copy for large payloads. The cell is exclusively
// held for the duration of the callback via the queue's slot-state
// protocol; the callback must not block.
type InPlaceProducer[T any] interface {
	EnqueueWith(write func(*T)) error
}

// InPlaceConsumer exposes the dequeue half of the in-place cell protocol.
//
// DequeueWith invokes read with a pointer to the head cell before the cell
// is released back to the producer. The callback must not block and must
// not retain the pointer after returning.
type InPlaceConsumer[T any] interface {
	DequeueWith(read func(*T)) error
}

// Sequenced is a message tagged with its position in an intended total
// order. Seq is a monotonically increasing 64-bit sequence number assigned
// at the origin of the stream; Data is the payload.
//
// [SeqMPSCExplicit] enforces delivery in ascending Seq order, and
// [Reorderer] restores ascending Seq order from an out-of-order stream.
type Sequenced[T any] struct {
	Seq  uint64
	Data T
}
