// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ordq

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/rs/zerolog"
)

// Reorderer restores ascending sequence order on a stream of [Sequenced]
// messages drained from a many-to-one queue.
//
// A dedicated worker goroutine pops the source queue and stages anything
// that arrives ahead of the next expected sequence in a two-level buffer:
// a fixed array of slots indexed by seq mod B (the fast buffer, handling
// light reordering with no allocation) and a map keyed by sequence (the
// overflow buffer, handling rare large gaps). In-order messages, and any
// staged run they complete, are emitted to an internal SPSC output queue.
//
// The output stream is strictly consecutive: every emitted sequence is
// exactly one greater than its predecessor. Messages whose sequence is
// below the next expected one are dropped silently (observable via
// [Reorderer.Stats]).
//
// The Reorderer borrows the source queue; the source must outlive the
// worker, which [Reorderer.Close] guarantees by joining it.
type Reorderer[T any] struct {
	source Consumer[Sequenced[T]]
	out    *SPSC[Sequenced[T]]

	fast     []reorderSlot[T]
	fastMask uint64
	overflow map[uint64]Sequenced[T]

	// Next sequence to emit. Worker-goroutine local.
	nextExpected uint64

	stop    atomix.Bool
	wg      sync.WaitGroup
	enabled bool
	closed  sync.Once

	log zerolog.Logger

	// Debug counters, relaxed: observational only.
	processed     atomix.Uint64
	directHit     atomix.Uint64
	l1Hit         atomix.Uint64
	l2Hit         atomix.Uint64
	dropped       atomix.Uint64
	maxDisordered atomix.Uint64
	overflowPeak  atomix.Uint64
}

type reorderSlot[T any] struct {
	valid bool
	data  Sequenced[T]
}

// ReorderStats is a snapshot of a Reorderer's debug counters.
//
// Processed counts every message drained from the source. Each processed
// message is either emitted directly (DirectHit), emitted later from the
// fast buffer (L1Hit) or the overflow buffer (L2Hit), dropped as late or
// duplicate (Dropped), or still staged when the snapshot is taken.
type ReorderStats struct {
	Processed     uint64
	DirectHit     uint64
	L1Hit         uint64
	L2Hit         uint64
	Dropped       uint64
	MaxDisordered uint64 // max observed seq - nextExpected, monotone
	OverflowPeak  uint64 // high-water mark of the overflow buffer
}

// ReorderOption configures a Reorderer.
type ReorderOption func(*reorderConfig)

type reorderConfig struct {
	fastSize  int
	outputCap int
	log       zerolog.Logger
}

// WithFastBufferSize sets the fast buffer slot count B (rounds up to a
// power of 2, default 1024). Messages at distance < B from the next
// expected sequence stage without allocation.
func WithFastBufferSize(slots int) ReorderOption {
	return func(c *reorderConfig) { c.fastSize = slots }
}

// WithOutputCapacity sets the output SPSC capacity (default 4·B).
// Values below twice the fast buffer size are raised to it, so a full
// staged run can always drain.
func WithOutputCapacity(capacity int) ReorderOption {
	return func(c *reorderConfig) { c.outputCap = capacity }
}

// WithLogger sets the logger used for the debug summary emitted when the
// Reorderer closes. Default is a no-op logger.
func WithLogger(log zerolog.Logger) ReorderOption {
	return func(c *reorderConfig) { c.log = log }
}

// NewReorderer creates a Reorderer draining source.
//
// If enabled is true the worker goroutine starts immediately; the caller
// must eventually call [Reorderer.Close] to stop and join it. If enabled
// is false no goroutine is started and GetNext always reports
// ErrWouldBlock; this exists so pipelines can toggle reordering without
// changing shape.
func NewReorderer[T any](source Consumer[Sequenced[T]], enabled bool, opts ...ReorderOption) *Reorderer[T] {
	if source == nil {
		panic("ordq: reorderer requires a source queue")
	}

	cfg := reorderConfig{
		fastSize: 1024,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.fastSize < 2 {
		cfg.fastSize = 2
	}
	b := roundToPow2(cfg.fastSize)
	if cfg.outputCap == 0 {
		cfg.outputCap = 4 * b
	} else if cfg.outputCap < 2*b {
		cfg.outputCap = 2 * b
	}

	r := &Reorderer[T]{
		source:   source,
		out:      NewSPSC[Sequenced[T]](cfg.outputCap),
		fast:     make([]reorderSlot[T], b),
		fastMask: uint64(b) - 1,
		overflow: make(map[uint64]Sequenced[T]),
		enabled:  enabled,
		log:      cfg.log,
	}

	if enabled {
		r.wg.Add(1)
		go r.work()
	}
	return r
}

// GetNext pops the next in-order message from the output queue.
// Returns ErrWouldBlock when no ordered message is ready. Single
// consumer only.
func (r *Reorderer[T]) GetNext() (Sequenced[T], error) {
	return r.out.Dequeue()
}

// Stats returns a snapshot of the debug counters.
func (r *Reorderer[T]) Stats() ReorderStats {
	return ReorderStats{
		Processed:     r.processed.LoadRelaxed(),
		DirectHit:     r.directHit.LoadRelaxed(),
		L1Hit:         r.l1Hit.LoadRelaxed(),
		L2Hit:         r.l2Hit.LoadRelaxed(),
		Dropped:       r.dropped.LoadRelaxed(),
		MaxDisordered: r.maxDisordered.LoadRelaxed(),
		OverflowPeak:  r.overflowPeak.LoadRelaxed(),
	}
}

// Close stops the worker and joins it. Undelivered messages may remain in
// the output queue; drain GetNext first when they matter. Idempotent.
func (r *Reorderer[T]) Close() {
	r.closed.Do(func() {
		r.stop.Store(true)
		r.wg.Wait()

		s := r.Stats()
		r.log.Debug().
			Uint64("processed", s.Processed).
			Uint64("direct_hit", s.DirectHit).
			Uint64("l1_hit", s.L1Hit).
			Uint64("l2_hit", s.L2Hit).
			Uint64("dropped", s.Dropped).
			Uint64("max_disordered", s.MaxDisordered).
			Uint64("overflow_peak", s.OverflowPeak).
			Msg("reorderer closed")
	})
}

func (r *Reorderer[T]) work() {
	defer r.wg.Done()

	backoff := iox.Backoff{}
	for !r.stop.Load() {
		msg, err := r.source.Dequeue()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()

		r.processed.Add(1)
		r.process(msg)
	}
}

func (r *Reorderer[T]) process(msg Sequenced[T]) {
	if msg.Seq == r.nextExpected {
		r.directHit.Add(1)
		if !r.emit(msg) {
			return
		}
		r.nextExpected++
		r.drainReady()
		return
	}

	if msg.Seq < r.nextExpected {
		// Late duplicate of an already-emitted sequence.
		r.dropped.Add(1)
		return
	}

	if d := msg.Seq - r.nextExpected; d > r.maxDisordered.LoadRelaxed() {
		r.maxDisordered.StoreRelaxed(d)
	}

	if _, ok := r.overflow[msg.Seq]; ok {
		// Duplicate of a message staged in the overflow buffer.
		r.dropped.Add(1)
		return
	}

	slot := &r.fast[msg.Seq&r.fastMask]
	switch {
	case !slot.valid:
		slot.valid = true
		slot.data = msg
	case slot.data.Seq == msg.Seq:
		// Duplicate of a staged message.
		r.dropped.Add(1)
	default:
		// Slot collision: the sequence closer to nextExpected stays in
		// the fast buffer, the other demotes to the overflow map.
		if msg.Seq-r.nextExpected < slot.data.Seq-r.nextExpected {
			r.overflow[slot.data.Seq] = slot.data
			slot.data = msg
		} else {
			r.overflow[msg.Seq] = msg
		}
		if n := uint64(len(r.overflow)); n > r.overflowPeak.LoadRelaxed() {
			r.overflowPeak.StoreRelaxed(n)
		}
	}
}

// drainReady emits the staged run that starts at nextExpected, checking
// the fast buffer before the overflow map at each step.
func (r *Reorderer[T]) drainReady() {
	for {
		slot := &r.fast[r.nextExpected&r.fastMask]
		if slot.valid && slot.data.Seq == r.nextExpected {
			if !r.emit(slot.data) {
				return
			}
			slot.valid = false
			r.l1Hit.Add(1)
			r.nextExpected++
			continue
		}

		if msg, ok := r.overflow[r.nextExpected]; ok {
			if !r.emit(msg) {
				return
			}
			delete(r.overflow, r.nextExpected)
			r.l2Hit.Add(1)
			r.nextExpected++
			continue
		}

		return
	}
}

// emit pushes msg to the output queue, waiting out backpressure.
// Returns false if the reorderer was stopped while waiting.
func (r *Reorderer[T]) emit(msg Sequenced[T]) bool {
	backoff := iox.Backoff{}
	for r.out.Enqueue(&msg) != nil {
		if r.stop.Load() {
			return false
		}
		backoff.Wait()
	}
	return true
}
