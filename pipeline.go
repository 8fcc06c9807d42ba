// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ordq

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
)

// ProcessFunc transforms a message in place on its worker lane, between
// submission and reordering.
type ProcessFunc[T any] func(*Sequenced[T])

// Pipeline is the canonical assembly of this package's components:
//
//	submitter → per-lane SPSC → worker lanes → slot-seq MPSC → Reorderer
//
// A single submitter assigns consecutive sequence numbers and scatters
// messages across worker lanes. Each lane runs a goroutine that applies
// the process function and feeds the shared many-to-one queue; because
// lanes progress independently, messages arrive there out of order. The
// reorderer restores the submission order for the output consumer.
//
// Construct with ordered=false to bypass reordering and read the raw
// interleaving, which is useful for measuring the cost of ordering.
type Pipeline[T any] struct {
	lanes   []*SPSC[Sequenced[T]]
	mid     *SeqMPSC[Sequenced[T]]
	ro      *Reorderer[T]
	ordered bool

	stop atomix.Bool
	wg   sync.WaitGroup
	// Next sequence to assign. Submitter-goroutine local.
	nextSeq uint64
	closed  sync.Once
}

// NewPipeline creates a pipeline with the given number of worker lanes.
// capacity sizes each lane SPSC and the shared many-to-one queue; process
// may be nil. Reorder options apply to the internal [Reorderer].
// Panics if lanes < 1 or capacity < 2.
func NewPipeline[T any](lanes, capacity int, ordered bool, process ProcessFunc[T], opts ...ReorderOption) *Pipeline[T] {
	if lanes < 1 {
		panic("ordq: pipeline requires at least one lane")
	}

	p := &Pipeline[T]{
		lanes:   make([]*SPSC[Sequenced[T]], lanes),
		mid:     NewSeqMPSC[Sequenced[T]](capacity),
		ordered: ordered,
	}
	for i := range p.lanes {
		p.lanes[i] = NewSPSC[Sequenced[T]](capacity)
	}
	p.ro = NewReorderer(p.mid, ordered, opts...)

	for i := range p.lanes {
		p.wg.Add(1)
		go p.lane(p.lanes[i], process)
	}
	return p
}

// Submit hands data to the pipeline under the next sequence number.
// Single submitter only. Returns ErrWouldBlock, without consuming a
// sequence number, when the target lane is full.
func (p *Pipeline[T]) Submit(data T) error {
	seq := p.nextSeq
	msg := Sequenced[T]{Seq: seq, Data: data}

	lane := p.lanes[seq%uint64(len(p.lanes))]
	if err := lane.Enqueue(&msg); err != nil {
		return err
	}
	p.nextSeq++
	return nil
}

// Next returns the next output message: in submission order when the
// pipeline was built ordered, in arrival order otherwise. Returns
// ErrWouldBlock when nothing is ready. Single consumer only.
func (p *Pipeline[T]) Next() (Sequenced[T], error) {
	if p.ordered {
		return p.ro.GetNext()
	}
	return p.mid.Dequeue()
}

// Stats returns the internal reorderer's counters. All zero when the
// pipeline was built unordered.
func (p *Pipeline[T]) Stats() ReorderStats {
	return p.ro.Stats()
}

// Close stops the lane workers, drains what they had in flight, then
// stops the reorderer. Idempotent. Output already emitted remains
// readable via Next. Drain Next until it reports ErrWouldBlock before
// closing when every accepted submission matters: a consumer that stops
// reading can force stopping lanes to shed in-flight messages.
func (p *Pipeline[T]) Close() {
	p.closed.Do(func() {
		p.stop.Store(true)
		p.wg.Wait()
		p.ro.Close()
	})
}

// lane moves messages from one submitter SPSC into the shared MPSC,
// applying process on the way. On stop it drains the lane before exiting;
// a message that still finds the shared queue full after laneShedRetries
// waits is dropped.
func (p *Pipeline[T]) lane(in *SPSC[Sequenced[T]], process ProcessFunc[T]) {
	defer p.wg.Done()

	backoff := iox.Backoff{}
	for {
		msg, err := in.Dequeue()
		if err != nil {
			if p.stop.Load() {
				return
			}
			backoff.Wait()
			continue
		}
		backoff.Reset()

		if process != nil {
			process(&msg)
		}

		tries := 0
		for p.mid.Enqueue(&msg) != nil {
			if p.stop.Load() {
				// Shutdown with a stalled downstream: shed rather than
				// wedge Close.
				if tries++; tries >= laneShedRetries {
					break
				}
			}
			backoff.Wait()
		}
		backoff.Reset()
	}
}

// laneShedRetries bounds how long a stopping lane waits on a full shared
// queue before shedding the message.
const laneShedRetries = 1 << 14
