// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ordq

import "unsafe"

// Options configures queue creation and algorithm selection.
type Options struct {
	// Producer/Consumer constraints (determines queue type)
	singleProducer bool
	singleConsumer bool

	// Sharded selects the per-producer-shard MPSC algorithm.
	sharded      bool
	maxProducers int

	// ExplicitSeq selects the caller-supplied-sequence MPSC algorithm.
	explicitSeq bool

	// Capacity (rounds up to next power of 2)
	capacity int
}

// Builder creates queues with fluent configuration.
//
// Builder provides a fluent API for configuring and creating queues.
// The builder selects the algorithm based on producer/consumer
// constraints and ordering hints.
//
// Example:
//
//	// SPSC queue (optimal for single producer/consumer)
//	q := ordq.BuildSPSC[Event](ordq.New(1024).SingleProducer().SingleConsumer())
//
//	// Slot-seq MPSC queue (default many-to-one)
//	q := ordq.BuildSeq[Request](ordq.New(4096).SingleConsumer())
//
//	// Sharded MPSC with four producer shards
//	q := ordq.BuildSharded[Event](ordq.New(1024).SingleConsumer().Sharded(4))
type Builder struct {
	opts Options
}

// New creates a queue builder with the given capacity.
//
// Capacity rounds up to the next power of 2. One cell of the ring is
// reserved to distinguish full from empty, so the usable capacity is one
// less than the rounded size: capacity=8 results in Cap()=7, capacity=1000
// results in Cap()=1023.
//
// Panics if capacity < 2.
func New(capacity int) *Builder {
	if capacity < 2 {
		panic("ordq: capacity must be >= 2")
	}
	return &Builder{opts: Options{capacity: capacity}}
}

// SingleProducer declares that only one goroutine will enqueue.
// Combined with SingleConsumer it selects the SPSC ring.
func (b *Builder) SingleProducer() *Builder {
	b.opts.singleProducer = true
	return b
}

// SingleConsumer declares that only one goroutine will dequeue.
// Every queue in this package is single-consumer, so builds without this
// constraint panic.
func (b *Builder) SingleConsumer() *Builder {
	b.opts.singleConsumer = true
	return b
}

// Sharded selects the sharded MPSC algorithm with maxProducers shards.
// Each registered producer owns a private SPSC shard; the consumer drains
// shards round-robin. Panics if maxProducers < 1.
func (b *Builder) Sharded(maxProducers int) *Builder {
	if maxProducers < 1 {
		panic("ordq: maxProducers must be >= 1")
	}
	b.opts.sharded = true
	b.opts.maxProducers = maxProducers
	return b
}

// ExplicitSeq selects the slot-seq MPSC variant where producers supply
// the sequence number on each enqueue and the consumer observes strictly
// ascending sequences.
func (b *Builder) ExplicitSeq() *Builder {
	b.opts.explicitSeq = true
	return b
}

// Build creates a Queue[T] with automatic algorithm selection.
//
// Algorithm selection:
//
//	SingleProducer + SingleConsumer → SPSC (Lamport ring buffer)
//	SingleConsumer only             → SeqMPSC (slot-seq protocol)
//
// Sharded and ExplicitSeq configurations carry extra contract surface
// (producer tokens, caller-supplied sequences) that does not fit Queue[T];
// use [BuildSharded] and [BuildExplicit] for those.
//
// Panics if the builder lacks SingleConsumer, or if Sharded/ExplicitSeq
// was requested (their concrete builders must be used instead).
func Build[T any](b *Builder) Queue[T] {
	switch {
	case b.opts.sharded:
		panic("ordq: sharded queues require BuildSharded")
	case b.opts.explicitSeq:
		panic("ordq: explicit-seq queues require BuildExplicit")
	case !b.opts.singleConsumer:
		panic("ordq: all queues are single-consumer; call SingleConsumer()")
	case b.opts.singleProducer:
		return NewSPSC[T](b.opts.capacity)
	default:
		return NewSeqMPSC[T](b.opts.capacity)
	}
}

// BuildSPSC creates an SPSC queue with compile-time type safety.
// Panics if builder is not configured with SingleProducer().SingleConsumer().
func BuildSPSC[T any](b *Builder) *SPSC[T] {
	if !b.opts.singleProducer || !b.opts.singleConsumer {
		panic("ordq: BuildSPSC requires SingleProducer().SingleConsumer()")
	}
	return NewSPSC[T](b.opts.capacity)
}

// BuildSeq creates a slot-seq MPSC queue with compile-time type safety.
// Panics if builder is not configured with SingleConsumer() only.
func BuildSeq[T any](b *Builder) *SeqMPSC[T] {
	if b.opts.singleProducer || !b.opts.singleConsumer || b.opts.sharded || b.opts.explicitSeq {
		panic("ordq: BuildSeq requires SingleConsumer() without other constraints")
	}
	return NewSeqMPSC[T](b.opts.capacity)
}

// BuildExplicit creates an explicit-seq MPSC queue.
// Panics if builder is not configured with SingleConsumer().ExplicitSeq().
func BuildExplicit[T any](b *Builder) *SeqMPSCExplicit[T] {
	if !b.opts.explicitSeq || !b.opts.singleConsumer || b.opts.sharded {
		panic("ordq: BuildExplicit requires SingleConsumer().ExplicitSeq()")
	}
	return NewSeqMPSCExplicit[T](b.opts.capacity)
}

// BuildSharded creates a sharded MPSC queue.
// Panics if builder is not configured with SingleConsumer().Sharded(m).
func BuildSharded[T any](b *Builder) *ShardedMPSC[T] {
	if !b.opts.sharded || !b.opts.singleConsumer || b.opts.explicitSeq {
		panic("ordq: BuildSharded requires SingleConsumer().Sharded(m)")
	}
	return NewShardedMPSC[T](b.opts.capacity, b.opts.maxProducers)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
