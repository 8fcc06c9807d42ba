// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ordq provides bounded many-to-one queues and sequence-order
// restoration for in-process message passing.
//
// The package offers four components:
//
//   - SPSC: Single-Producer Single-Consumer ring buffer
//   - ShardedMPSC: Multi-Producer Single-Consumer over per-producer shards
//   - SeqMPSC / SeqMPSCExplicit: Multi-Producer Single-Consumer over one
//     ring with per-slot sequence tags
//   - Reorderer: restores ascending sequence order on a scattered stream
//
// # Quick Start
//
// Direct constructors (recommended for most cases):
//
//	q := ordq.NewSPSC[Event](1024)
//	q := ordq.NewSeqMPSC[Request](4096)
//
// Builder API selects the algorithm from constraints:
//
//	q := ordq.Build[Event](ordq.New(1024).SingleProducer().SingleConsumer()) // → SPSC
//	q := ordq.Build[Event](ordq.New(1024).SingleConsumer())                  // → SeqMPSC
//	q := ordq.BuildSharded[Event](ordq.New(1024).SingleConsumer().Sharded(4))
//	q := ordq.BuildExplicit[Event](ordq.New(1024).SingleConsumer().ExplicitSeq())
//
// # Basic Usage
//
// Queues share the same non-blocking surface:
//
//	q := ordq.NewSeqMPSC[int](1024)
//
//	// Enqueue (non-blocking)
//	value := 42
//	err := q.Enqueue(&value)
//	if ordq.IsWouldBlock(err) {
//	    // Queue is full - handle backpressure
//	}
//
//	// Dequeue (non-blocking)
//	elem, err := q.Dequeue()
//	if ordq.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
// # Choosing a Queue
//
// SPSC is the building block: strict FIFO between one producer and one
// consumer, wait-free on both sides.
//
// ShardedMPSC assigns each producer a private SPSC shard. Producers
// register once for a [ProducerToken] and never contend with each other;
// the consumer drains shards round-robin. Per-producer FIFO holds, global
// order across producers does not. Registration beyond the shard count is
// rejected with [ErrTooManyProducers].
//
//	q := ordq.NewShardedMPSC[Event](1024, 4)
//
//	// Each producer goroutine:
//	tok, err := q.RegisterProducer()
//	if err != nil { ... }
//	for ev := range events {
//	    for q.Enqueue(tok, &ev) != nil {
//	        backoff.Wait()
//	    }
//	    backoff.Reset()
//	}
//
// SeqMPSC serializes producers through one shared counter with per-slot
// sequence tags; delivery order is the order in which producers won the
// counter. SeqMPSCExplicit lets the producers supply the sequence number
// and delivers in strictly ascending sequence order — a missing sequence
// stalls the stream, which is the point.
//
// The Reorderer tolerates gaps where SeqMPSCExplicit does not: it drains
// any many-to-one queue of [Sequenced] messages, stages out-of-order
// arrivals in a two-level buffer, drops late duplicates, and emits a
// strictly consecutive stream:
//
//	mid := ordq.NewSeqMPSC[ordq.Sequenced[Sample]](1024)
//	ro := ordq.NewReorderer[Sample](mid, true)
//	defer ro.Close()
//
//	// Workers push Sequenced[Sample] into mid in any order...
//
//	for {
//	    msg, err := ro.GetNext()
//	    if err != nil {
//	        backoff.Wait()
//	        continue
//	    }
//	    backoff.Reset()
//	    handle(msg.Seq, msg.Data)
//	}
//
// [Pipeline] wires the whole path (lanes → SeqMPSC → Reorderer) for the
// common scatter/gather case.
//
// # Bulk and In-Place Operations
//
// SPSC and ShardedMPSC move batches with EnqueueBulk/DequeueBulk; the
// SPSC batch is published with a single release store and the sharded
// consumer caps each shard at 32 items per sweep so one busy shard
// cannot starve the rest.
//
// SPSC, ShardedMPSC and SeqMPSC also expose EnqueueWith/DequeueWith
// callback variants (SeqMPSCExplicit: EnqueueSeqWith/DequeueWith) that
// hand the caller a pointer into the ring cell, constructing or reading
// the value in place without a temporary copy. SPSCIndirect and SPSCPtr
// have no callback variants. The cell is exclusively
// held for the duration of the callback via the queue's slot-state
// protocol; callbacks must not block.
//
// # Error Handling
//
// Queues return [ErrWouldBlock] when operations cannot proceed. This
// error is sourced from [code.hybscloud.com/iox] for ecosystem
// consistency.
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Enqueue(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !ordq.IsWouldBlock(err) {
//	        return err // Unexpected error
//	    }
//	    backoff.Wait()
//	}
//
// Misuse — capacity below 2, an unregistered [ProducerToken], a builder
// configuration that no queue matches — is a programming bug and panics.
// Violated cardinality contracts are not detected (see Thread Safety).
//
// # Capacity and Length
//
// Capacity rounds up to the next power of 2. The counter-indexed rings
// reserve one cell to distinguish full from empty, so Cap() reports the
// rounded size minus one:
//
//	q := ordq.NewSPSC[int](8)     // Cap() == 7
//	q := ordq.NewSPSC[int](1000)  // Cap() == 1023
//
// Len and Empty are observational: they load independently-published
// indices and are not linearizable with concurrent operations.
//
// # Thread Safety
//
// All queue operations are thread-safe within their access pattern
// constraints:
//
//   - SPSC: one producer goroutine, one consumer goroutine
//   - ShardedMPSC: one goroutine per token, one consumer goroutine
//   - SeqMPSC / SeqMPSCExplicit: multiple producers, one consumer
//
// Violating these constraints causes undefined behavior including data
// corruption and races.
//
// # Race Detection
//
// Go's race detector is not designed for lock-free algorithm
// verification. It tracks explicit synchronization primitives (mutex,
// channels, WaitGroup) but cannot observe happens-before relationships
// established through atomic memory orderings on separate variables, so
// it may report false positives on the slot-seq queues. Tests
// incompatible with race detection are skipped via RaceEnabled.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors and
// backoff, [code.hybscloud.com/atomix] for atomic primitives with
// explicit memory ordering, [code.hybscloud.com/spin] for CPU pause
// instructions, and github.com/rs/zerolog for the reorderer's debug
// summary.
package ordq
