// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ordq_test

import (
	"errors"
	"sync"
	"testing"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/ordq"
)

// =============================================================================
// Slot-Seq MPSC (implicit)
// =============================================================================

// TestSeqMPSCFIFO verifies single-threaded push-then-pop preserves FIFO
// across several ring rounds.
func TestSeqMPSCFIFO(t *testing.T) {
	q := ordq.NewSeqMPSC[int](8)

	for round := range 50 {
		for i := range 7 {
			v := round*10 + i
			if err := q.Enqueue(&v); err != nil {
				t.Fatalf("round %d: Enqueue(%d): %v", round, i, err)
			}
		}
		for i := range 7 {
			v, err := q.Dequeue()
			if err != nil {
				t.Fatalf("round %d: Dequeue(%d): %v", round, i, err)
			}
			if v != round*10+i {
				t.Fatalf("round %d: got %d, want %d", round, v, round*10+i)
			}
		}
	}
}

// TestSeqMPSCInPlace exercises the in-place callback variants.
func TestSeqMPSCInPlace(t *testing.T) {
	q := ordq.NewSeqMPSC[[4]byte](8)

	for i := range 5 {
		err := q.EnqueueWith(func(p *[4]byte) {
			p[0] = byte(i)
			p[3] = byte(i) + 1
		})
		if err != nil {
			t.Fatalf("EnqueueWith(%d): %v", i, err)
		}
	}
	for i := range 5 {
		err := q.DequeueWith(func(p *[4]byte) {
			if p[0] != byte(i) || p[3] != byte(i)+1 {
				t.Fatalf("DequeueWith(%d): got %v", i, *p)
			}
		})
		if err != nil {
			t.Fatalf("DequeueWith(%d): %v", i, err)
		}
	}
}

// TestSeqMPSCBulk verifies the bulk loop variants stop at capacity and
// at empty.
func TestSeqMPSCBulk(t *testing.T) {
	q := ordq.NewSeqMPSC[int](8)

	src := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	if n := q.EnqueueBulk(src); n != 7 {
		t.Fatalf("EnqueueBulk: got %d, want 7", n)
	}

	dst := make([]int, 10)
	if n := q.DequeueBulk(dst); n != 7 {
		t.Fatalf("DequeueBulk: got %d, want 7", n)
	}
	for i := range 7 {
		if dst[i] != i {
			t.Fatalf("dst[%d]: got %d, want %d", i, dst[i], i)
		}
	}
}

// TestSeqMPSCConcurrent verifies multi-producer delivery: the consumer
// observes every element exactly once, in an order consistent with some
// serialization of the producers (each producer's own elements ascend).
func TestSeqMPSCConcurrent(t *testing.T) {
	if ordq.RaceEnabled {
		t.Skip("skip: CAS-based algorithm uses cross-variable memory ordering")
	}

	const (
		producers = 8
		perProd   = 10000
	)

	q := ordq.NewSeqMPSC[int](64)
	seen := make([]atomix.Int32, producers*perProd)
	var wg sync.WaitGroup

	for p := range producers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for i := range perProd {
				v := id*perProd + i
				for q.Enqueue(&v) != nil {
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(p)
	}

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}

	backoff := iox.Backoff{}
	for got := 0; got < producers*perProd; {
		v, err := q.Dequeue()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		if seen[v].Add(1) != 1 {
			t.Fatalf("duplicate delivery of %d", v)
		}
		id := v / perProd
		if v <= last[id] {
			t.Fatalf("producer %d: got %d after %d", id, v, last[id])
		}
		last[id] = v
		got++
	}
	wg.Wait()
}

// =============================================================================
// Slot-Seq MPSC (explicit)
// =============================================================================

// TestSeqMPSCExplicitScatter pushes sequences 0..K-1 from racing
// producers, each owning a residue class, and verifies the consumer
// observes exactly 0..K-1 in order.
func TestSeqMPSCExplicitScatter(t *testing.T) {
	if ordq.RaceEnabled {
		t.Skip("skip: slot-seq handoff uses cross-variable memory ordering")
	}

	const (
		producers = 4
		total     = 100_000
	)

	q := ordq.NewSeqMPSCExplicit[uint64](64)
	var wg sync.WaitGroup

	for p := range producers {
		wg.Add(1)
		go func(p uint64) {
			defer wg.Done()
			for seq := p; seq < total; seq += producers {
				v := seq*2 + 1
				q.EnqueueSeq(seq, &v)
			}
		}(uint64(p))
	}

	backoff := iox.Backoff{}
	for want := uint64(0); want < total; {
		v, err := q.Dequeue()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		if v != want*2+1 {
			t.Fatalf("got %d, want %d", v, want*2+1)
		}
		want++
	}
	wg.Wait()
}

// TestSeqMPSCExplicitGapStalls verifies a gap stalls the consumer: with
// sequence 0 missing, sequence 1 is published but not deliverable.
func TestSeqMPSCExplicitGapStalls(t *testing.T) {
	q := ordq.NewSeqMPSCExplicit[int](8)

	v := 11
	q.EnqueueSeq(1, &v)

	if !q.Empty() {
		t.Fatal("Empty: got false with a leading gap")
	}
	if _, err := q.Dequeue(); !errors.Is(err, ordq.ErrWouldBlock) {
		t.Fatalf("Dequeue across gap: got %v, want ErrWouldBlock", err)
	}

	// Filling the gap releases both.
	v = 10
	q.EnqueueSeq(0, &v)
	if q.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", q.Len())
	}
	for want := range 2 {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", want, err)
		}
		if got != want+10 {
			t.Fatalf("Dequeue(%d): got %d, want %d", want, got, want+10)
		}
	}
}

// TestSeqMPSCExplicitInPlace exercises the in-place writer with
// out-of-order sequences.
func TestSeqMPSCExplicitInPlace(t *testing.T) {
	q := ordq.NewSeqMPSCExplicit[uint64](8)

	for _, seq := range []uint64{3, 0, 2, 1} {
		q.EnqueueSeqWith(seq, func(p *uint64) { *p = seq * 100 })
	}

	for want := uint64(0); want < 4; want++ {
		err := q.DequeueWith(func(p *uint64) {
			if *p != want*100 {
				t.Fatalf("DequeueWith(%d): got %d", want, *p)
			}
		})
		if err != nil {
			t.Fatalf("DequeueWith(%d): %v", want, err)
		}
	}
}

// TestSeqMPSCExplicitWrapRound pushes three full ring rounds to verify the
// round counter in the slot tags prevents cross-round mixups.
func TestSeqMPSCExplicitWrapRound(t *testing.T) {
	if ordq.RaceEnabled {
		t.Skip("skip: slot-seq handoff uses cross-variable memory ordering")
	}
	q := ordq.NewSeqMPSCExplicit[uint64](4)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Sequences 0..11: pushes beyond the first round block until the
		// consumer frees slots.
		for seq := uint64(0); seq < 12; seq++ {
			v := seq + 1000
			q.EnqueueSeq(seq, &v)
		}
	}()

	backoff := iox.Backoff{}
	for want := uint64(0); want < 12; {
		v, err := q.Dequeue()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		if v != want+1000 {
			t.Fatalf("got %d, want %d", v, want+1000)
		}
		want++
	}
	wg.Wait()
}
