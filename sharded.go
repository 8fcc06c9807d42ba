// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ordq

import "code.hybscloud.com/atomix"

// shardBatch caps how many items one shard may yield inside a single bulk
// dequeue round, so a heavily loaded shard cannot starve the others.
const shardBatch = 32

// ShardedMPSC is a multi-producer single-consumer queue built from one
// SPSC ring per producer.
//
// Each producer registers once and receives a [ProducerToken] naming its
// private shard; all of that producer's enqueues go to that shard, so
// per-producer FIFO holds. The single consumer drains shards round-robin,
// which preserves no global order across producers.
//
// A full shard rejects the enqueue even when other shards have room: there
// is no cross-shard spill-over, because a producer writing a foreign shard
// would break that shard's single-producer contract.
type ShardedMPSC[T any] struct {
	shards []SPSC[T]
	_      pad
	producerCounter atomix.Uint64
	_               pad
	// Round-robin cursor. Consumer-goroutine local, so no atomic needed.
	cursor uint64
	_      padShort
	numShards uint64
}

// ProducerToken identifies a producer's shard in a [ShardedMPSC].
//
// Obtain one via [ShardedMPSC.RegisterProducer] and pass it on every
// enqueue. Tokens are cheap values; a producer goroutine registers once
// and keeps its token for the queue's lifetime. Tokens must not be shared
// between goroutines.
type ProducerToken struct {
	shard      uint64
	registered bool
}

// NewShardedMPSC creates a sharded MPSC queue with maxProducers shards of
// the given per-shard capacity. Capacity rounds up to the next power of 2
// with one cell per shard reserved.
// Panics if capacity < 2 or maxProducers < 1.
func NewShardedMPSC[T any](capacity, maxProducers int) *ShardedMPSC[T] {
	if capacity < 2 {
		panic("ordq: capacity must be >= 2")
	}
	if maxProducers < 1 {
		panic("ordq: maxProducers must be >= 1")
	}

	n := uint64(roundToPow2(capacity))
	q := &ShardedMPSC[T]{
		shards:    make([]SPSC[T], maxProducers),
		numShards: uint64(maxProducers),
	}
	for i := range q.shards {
		q.shards[i].buffer = make([]T, n)
		q.shards[i].mask = n - 1
	}
	return q
}

// RegisterProducer claims a shard for the calling producer goroutine.
//
// Returns ErrTooManyProducers once every shard is claimed. Registrations
// are never recycled: a producer that stops does not free its shard.
func (q *ShardedMPSC[T]) RegisterProducer() (ProducerToken, error) {
	id := q.producerCounter.AddAcqRel(1) - 1
	if id >= q.numShards {
		return ProducerToken{}, ErrTooManyProducers
	}
	return ProducerToken{shard: id, registered: true}, nil
}

// Enqueue adds an element to the caller's shard (safe from any registered
// producer). Returns ErrWouldBlock if that shard is full.
// Panics if tok was not obtained from RegisterProducer.
func (q *ShardedMPSC[T]) Enqueue(tok ProducerToken, elem *T) error {
	if !tok.registered {
		panic("ordq: unregistered producer token")
	}
	return q.shards[tok.shard].Enqueue(elem)
}

// EnqueueWith claims a cell on the caller's shard and invokes write with a
// pointer into the ring. Panics if tok was not obtained from
// RegisterProducer.
func (q *ShardedMPSC[T]) EnqueueWith(tok ProducerToken, write func(*T)) error {
	if !tok.registered {
		panic("ordq: unregistered producer token")
	}
	return q.shards[tok.shard].EnqueueWith(write)
}

// EnqueueBulk copies up to len(src) elements into the caller's shard and
// returns the number enqueued. Panics if tok was not obtained from
// RegisterProducer.
func (q *ShardedMPSC[T]) EnqueueBulk(tok ProducerToken, src []T) int {
	if !tok.registered {
		panic("ordq: unregistered producer token")
	}
	return q.shards[tok.shard].EnqueueBulk(src)
}

// Dequeue removes and returns one element (single consumer only).
//
// Shards are probed round-robin starting after the shard that last
// yielded. Returns (zero-value, ErrWouldBlock) when one full sweep finds
// every shard empty.
func (q *ShardedMPSC[T]) Dequeue() (T, error) {
	start := q.cursor
	for i := uint64(0); i < q.numShards; i++ {
		idx := (start + i) % q.numShards
		elem, err := q.shards[idx].Dequeue()
		if err == nil {
			q.cursor = (idx + 1) % q.numShards
			return elem, nil
		}
	}
	var zero T
	return zero, ErrWouldBlock
}

// DequeueWith invokes read with a pointer to the head cell of the first
// non-empty shard (single consumer only).
func (q *ShardedMPSC[T]) DequeueWith(read func(*T)) error {
	start := q.cursor
	for i := uint64(0); i < q.numShards; i++ {
		idx := (start + i) % q.numShards
		if err := q.shards[idx].DequeueWith(read); err == nil {
			q.cursor = (idx + 1) % q.numShards
			return nil
		}
	}
	return ErrWouldBlock
}

// DequeueBulk copies up to len(dst) elements out of the queue (single
// consumer only). Each shard yields at most 32 items per sweep before the
// cursor advances, bounding how long one busy shard can monopolize the
// consumer. Returns the number dequeued.
func (q *ShardedMPSC[T]) DequeueBulk(dst []T) int {
	total := 0
	start := q.cursor
	for round := uint64(0); round < q.numShards && total < len(dst); round++ {
		idx := (start + round) % q.numShards

		batch := len(dst) - total
		if batch > shardBatch {
			batch = shardBatch
		}
		popped := q.shards[idx].DequeueBulk(dst[total : total+batch])
		total += popped

		if popped > 0 {
			q.cursor = (idx + 1) % q.numShards
		}
	}
	return total
}

// Len returns the total number of buffered elements across shards.
// Observational only.
func (q *ShardedMPSC[T]) Len() int {
	total := 0
	for i := range q.shards {
		total += q.shards[i].Len()
	}
	return total
}

// Empty reports whether every shard is empty. Observational only.
func (q *ShardedMPSC[T]) Empty() bool {
	for i := range q.shards {
		if !q.shards[i].Empty() {
			return false
		}
	}
	return true
}

// Cap returns the total usable capacity across shards.
func (q *ShardedMPSC[T]) Cap() int {
	if len(q.shards) == 0 {
		return 0
	}
	return q.shards[0].Cap() * len(q.shards)
}

// NumShards returns the number of producer shards.
func (q *ShardedMPSC[T]) NumShards() int {
	return int(q.numShards)
}
